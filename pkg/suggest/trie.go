package suggest

import (
	"sync"
	"unsafe"

	"github.com/bastiangx/wordtree/pkg/dictionary"
)

// trieEdgeBytes is a rough per-entry cost of a Go map[rune]uint32 bucket slot.
const trieEdgeBytes = 16

type trieNode struct {
	children map[rune]uint32
	terminal bool
	weight   int
}

// Trie is a rune-indexed prefix tree. Nodes live in one slice and refer to
// their children by index; index 0 is the root (the empty prefix).
type Trie struct {
	mu    sync.RWMutex
	nodes []trieNode
	terms int
	edges int
}

// NewTrie returns an empty trie.
func NewTrie() *Trie {
	return &Trie{nodes: make([]trieNode, 1, 1024)}
}

// Insert stores term with weight. Re-inserting a term overwrites its weight.
func (t *Trie) Insert(term string, weight int) error {
	if err := validEntry(term, weight); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	n := &t.nodes[t.walkOrCreate(term)]
	if !n.terminal {
		n.terminal = true
		t.terms++
	}
	n.weight = weight
	return nil
}

// Learn adds delta to the weight of term, inserting it with max(0, delta) when absent.
func (t *Trie) Learn(term string, delta int) (int, error) {
	if err := validTerm(term); err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	n := &t.nodes[t.walkOrCreate(term)]
	if !n.terminal {
		n.terminal = true
		n.weight = 0
		t.terms++
	}
	n.weight = dictionary.AddWeight(n.weight, delta)
	return n.weight, nil
}

// walkOrCreate returns the node spelling term, creating missing nodes.
// Caller must hold the write lock.
func (t *Trie) walkOrCreate(term string) uint32 {
	cur := uint32(0)
	for _, r := range term {
		next, ok := t.nodes[cur].children[r]
		if !ok {
			next = uint32(len(t.nodes))
			t.nodes = append(t.nodes, trieNode{})
			if t.nodes[cur].children == nil {
				t.nodes[cur].children = make(map[rune]uint32, 1)
			}
			t.nodes[cur].children[r] = next
			t.edges++
		}
		cur = next
	}
	return cur
}

// PrefixSearch returns the best limit terms starting with prefix.
// An unknown prefix is not an error and yields an empty slice.
func (t *Trie) PrefixSearch(prefix string, limit int) ([]Suggestion, error) {
	if err := validQuery(prefix, limit); err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	cur := uint32(0)
	for _, r := range prefix {
		next, ok := t.nodes[cur].children[r]
		if !ok {
			return []Suggestion{}, nil
		}
		if int(next) >= len(t.nodes) {
			return nil, corrupted("trie edge %q points to node %d of %d", r, next, len(t.nodes))
		}
		cur = next
	}

	top := newTopK(limit)
	if err := t.collect(cur, []rune(prefix), top); err != nil {
		return nil, err
	}
	return top.results(), nil
}

// collect offers every terminal below idx to top. path spells idx.
func (t *Trie) collect(idx uint32, path []rune, top *topK) error {
	n := &t.nodes[idx]
	if n.terminal && top.admits(n.weight) {
		top.offer(string(path), n.weight)
	}
	for r, child := range n.children {
		if int(child) >= len(t.nodes) {
			return corrupted("trie edge %q points to node %d of %d", r, child, len(t.nodes))
		}
		if err := t.collect(child, append(path, r), top); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored terms.
func (t *Trie) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.terms
}

// Stats reports node and memory figures. ApproxBytes ignores map headers.
func (t *Trie) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Stats{
		Strategy:    StrategyTrie,
		Terms:       t.terms,
		Nodes:       len(t.nodes),
		ApproxBytes: len(t.nodes)*int(unsafe.Sizeof(trieNode{})) + t.edges*trieEdgeBytes,
	}
}

// Check verifies that every node is reachable exactly once from the root,
// weights are non-negative and the terminal count matches Len.
func (t *Trie) Check() error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	seen := make([]bool, len(t.nodes))
	stack := []uint32{0}
	terminals, edges := 0, 0
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[idx] {
			return corrupted("trie node %d has more than one parent", idx)
		}
		seen[idx] = true

		n := &t.nodes[idx]
		if n.terminal {
			if n.weight < 0 {
				return corrupted("trie node %d has negative weight %d", idx, n.weight)
			}
			terminals++
		}
		for r, child := range n.children {
			if int(child) >= len(t.nodes) || child == 0 {
				return corrupted("trie edge %q points to node %d of %d", r, child, len(t.nodes))
			}
			edges++
			stack = append(stack, child)
		}
	}

	for idx, ok := range seen {
		if !ok {
			return corrupted("trie node %d is unreachable", idx)
		}
	}
	if terminals != t.terms {
		return corrupted("trie holds %d terminals but counts %d terms", terminals, t.terms)
	}
	if edges != t.edges {
		return corrupted("trie holds %d edges but counts %d", edges, t.edges)
	}
	return nil
}
