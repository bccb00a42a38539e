package suggest

import (
	"sync"
	"unicode/utf8"
	"unsafe"

	"github.com/bastiangx/wordtree/pkg/dictionary"
)

type tstNode struct {
	ch         rune
	lo, eq, hi uint32
	terminal   bool
	weight     int
}

// TST is a ternary search tree. Each node holds one rune; lo and hi lead to
// siblings at the same depth, eq advances to the next rune.
// nodes[0] is a sentinel so that a zero index means "no child".
type TST struct {
	mu    sync.RWMutex
	nodes []tstNode
	root  uint32
	terms int
}

// NewTST returns an empty ternary search tree.
func NewTST() *TST {
	return &TST{nodes: make([]tstNode, 1, 1024)}
}

// Insert stores term with weight. Re-inserting a term overwrites its weight.
func (t *TST) Insert(term string, weight int) error {
	if err := validEntry(term, weight); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	idx, err := t.locate([]rune(term), true)
	if err != nil {
		return err
	}
	n := &t.nodes[idx]
	if !n.terminal {
		n.terminal = true
		t.terms++
	}
	n.weight = weight
	return nil
}

// Learn adds delta to the weight of term, inserting it with max(0, delta) when absent.
func (t *TST) Learn(term string, delta int) (int, error) {
	if err := validTerm(term); err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	idx, err := t.locate([]rune(term), true)
	if err != nil {
		return 0, err
	}
	n := &t.nodes[idx]
	if !n.terminal {
		n.terminal = true
		n.weight = 0
		t.terms++
	}
	n.weight = dictionary.AddWeight(n.weight, delta)
	return n.weight, nil
}

func (t *TST) alloc(r rune) uint32 {
	t.nodes = append(t.nodes, tstNode{ch: r})
	return uint32(len(t.nodes) - 1)
}

// locate returns the node of the last rune of key, or 0 when it is absent
// and create is false. With create set the caller must hold the write lock.
func (t *TST) locate(key []rune, create bool) (uint32, error) {
	if t.root == 0 {
		if !create {
			return 0, nil
		}
		t.root = t.alloc(key[0])
	}

	cur, i := t.root, 0
	for {
		if int(cur) >= len(t.nodes) {
			return 0, corrupted("tst link points to node %d of %d", cur, len(t.nodes))
		}
		// copied: alloc may move the slice
		n := t.nodes[cur]
		r := key[i]

		var next uint32
		switch {
		case r < n.ch:
			next = n.lo
			if next == 0 {
				if !create {
					return 0, nil
				}
				next = t.alloc(r)
				t.nodes[cur].lo = next
			}
		case r > n.ch:
			next = n.hi
			if next == 0 {
				if !create {
					return 0, nil
				}
				next = t.alloc(r)
				t.nodes[cur].hi = next
			}
		default:
			if i == len(key)-1 {
				return cur, nil
			}
			i++
			next = n.eq
			if next == 0 {
				if !create {
					return 0, nil
				}
				next = t.alloc(key[i])
				t.nodes[cur].eq = next
			}
		}
		cur = next
	}
}

// PrefixSearch returns the best limit terms starting with prefix.
// An unknown prefix is not an error and yields an empty slice.
func (t *TST) PrefixSearch(prefix string, limit int) ([]Suggestion, error) {
	if err := validQuery(prefix, limit); err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	path := []rune(prefix)
	land, err := t.locate(path, false)
	if err != nil {
		return nil, err
	}
	if land == 0 {
		return []Suggestion{}, nil
	}

	top := newTopK(limit)
	n := &t.nodes[land]
	if n.terminal {
		top.offer(prefix, n.weight)
	}
	if err := t.collect(n.eq, path, top); err != nil {
		return nil, err
	}
	return top.results(), nil
}

// collect offers every terminal in the subtree at idx to top. path spells
// the prefix above idx, excluding the rune of idx itself.
func (t *TST) collect(idx uint32, path []rune, top *topK) error {
	if idx == 0 {
		return nil
	}
	if int(idx) >= len(t.nodes) {
		return corrupted("tst link points to node %d of %d", idx, len(t.nodes))
	}
	n := &t.nodes[idx]

	if err := t.collect(n.lo, path, top); err != nil {
		return err
	}
	word := append(path, n.ch)
	if n.terminal && top.admits(n.weight) {
		top.offer(string(word), n.weight)
	}
	if err := t.collect(n.eq, word, top); err != nil {
		return err
	}
	return t.collect(n.hi, path, top)
}

// Len returns the number of stored terms.
func (t *TST) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.terms
}

// Stats reports node and memory figures. The sentinel node is not counted.
func (t *TST) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	nodes := len(t.nodes) - 1
	return Stats{
		Strategy:    StrategyTST,
		Terms:       t.terms,
		Nodes:       nodes,
		ApproxBytes: nodes * int(unsafe.Sizeof(tstNode{})),
	}
}

// tstFrame bounds the runes allowed at a node by its binary-search ancestors.
type tstFrame struct {
	idx    uint32
	lo, hi int64
}

// Check verifies reachability, sibling ordering, weights and the term count.
func (t *TST) Check() error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.nodes[0] != (tstNode{}) {
		return corrupted("tst sentinel node was written")
	}
	if t.root == 0 {
		if len(t.nodes) != 1 || t.terms != 0 {
			return corrupted("empty tst holds %d nodes and %d terms", len(t.nodes)-1, t.terms)
		}
		return nil
	}

	const unbounded = int64(utf8.MaxRune) + 1
	seen := make([]bool, len(t.nodes))
	stack := []tstFrame{{idx: t.root, lo: -1, hi: unbounded}}
	terminals := 0
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if int(f.idx) >= len(t.nodes) {
			return corrupted("tst link points to node %d of %d", f.idx, len(t.nodes))
		}
		if seen[f.idx] {
			return corrupted("tst node %d has more than one parent", f.idx)
		}
		seen[f.idx] = true

		n := &t.nodes[f.idx]
		if c := int64(n.ch); c <= f.lo || c >= f.hi {
			return corrupted("tst node %d rune %q breaks sibling order", f.idx, n.ch)
		}
		if n.terminal {
			if n.weight < 0 {
				return corrupted("tst node %d has negative weight %d", f.idx, n.weight)
			}
			terminals++
		}
		if n.lo != 0 {
			stack = append(stack, tstFrame{idx: n.lo, lo: f.lo, hi: int64(n.ch)})
		}
		if n.hi != 0 {
			stack = append(stack, tstFrame{idx: n.hi, lo: int64(n.ch), hi: f.hi})
		}
		if n.eq != 0 {
			stack = append(stack, tstFrame{idx: n.eq, lo: -1, hi: unbounded})
		}
	}

	for idx := 1; idx < len(seen); idx++ {
		if !seen[idx] {
			return corrupted("tst node %d is unreachable", idx)
		}
	}
	if terminals != t.terms {
		return corrupted("tst holds %d terminals but counts %d terms", terminals, t.terms)
	}
	return nil
}
