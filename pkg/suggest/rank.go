package suggest

import (
	"cmp"
	"container/heap"
	"slices"
	"strings"
	"unicode/utf8"
)

// outranks reports whether (aWord, aWeight) is listed before (bWord, bWeight):
// heavier first, then lexicographically smaller.
func outranks(aWord string, aWeight int, bWord string, bWeight int) bool {
	if aWeight != bWeight {
		return aWeight > bWeight
	}
	return aWord < bWord
}

func compareSuggestions(a, b Suggestion) int {
	if n := cmp.Compare(b.Weight, a.Weight); n != 0 {
		return n
	}
	return strings.Compare(a.Word, b.Word)
}

// rankHeap keeps the weakest suggestion at the root.
type rankHeap []Suggestion

func (h rankHeap) Len() int { return len(h) }
func (h rankHeap) Less(i, j int) bool {
	return outranks(h[j].Word, h[j].Weight, h[i].Word, h[i].Weight)
}
func (h rankHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *rankHeap) Push(x any) { *h = append(*h, x.(Suggestion)) }

func (h *rankHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// topK selects the best limit suggestions out of a stream of candidates
// in O(n log limit).
type topK struct {
	limit int
	h     rankHeap
}

func newTopK(limit int) *topK {
	return &topK{limit: limit, h: make(rankHeap, 0, min(limit, 64))}
}

// admits reports whether a candidate with this weight can still enter.
// Callers use it to skip building the word of hopeless candidates.
func (t *topK) admits(weight int) bool {
	return len(t.h) < t.limit || weight >= t.h[0].Weight
}

func (t *topK) offer(word string, weight int) {
	if len(t.h) < t.limit {
		heap.Push(&t.h, Suggestion{Word: word, Weight: weight})
		return
	}
	if outranks(word, weight, t.h[0].Word, t.h[0].Weight) {
		t.h[0] = Suggestion{Word: word, Weight: weight}
		heap.Fix(&t.h, 0)
	}
}

func (t *topK) results() []Suggestion {
	out := make([]Suggestion, len(t.h))
	copy(out, t.h)
	slices.SortFunc(out, compareSuggestions)
	return out
}

func validTerm(term string) error {
	if term == "" {
		return invalid("empty term")
	}
	if !utf8.ValidString(term) {
		return invalid("term %q is not valid UTF-8", term)
	}
	return nil
}

func validEntry(term string, weight int) error {
	if err := validTerm(term); err != nil {
		return err
	}
	if weight < 0 {
		return invalid("negative weight %d for %q", weight, term)
	}
	return nil
}

func validQuery(prefix string, limit int) error {
	if prefix == "" {
		return invalid("empty prefix")
	}
	if !utf8.ValidString(prefix) {
		return invalid("prefix %q is not valid UTF-8", prefix)
	}
	if limit <= 0 {
		return invalid("limit must be positive, got %d", limit)
	}
	return nil
}
