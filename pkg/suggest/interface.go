// Package suggest is the core, providing the prefix trees, their traversals and the ranked retrieval behind every completion.
//
// Two engines implement the same contract: a rune-indexed Trie and a
// ternary search tree (TST). Both are arena backed, guarded by a single
// reader-writer lock each, and rank results with the same bounded top-k
// selection so identical data always yields identical output.
package suggest

import "time"

// Engine defines the contract shared by every prefix engine.
type Engine interface {
	// Insert stores term with weight, overwriting the weight of an existing term.
	Insert(term string, weight int) error

	// PrefixSearch returns at most limit terms starting with prefix,
	// ordered by weight descending and term ascending.
	PrefixSearch(prefix string, limit int) ([]Suggestion, error)

	// Learn adds delta to the weight of term, creating it when missing.
	// The resulting weight never drops below zero and is returned.
	Learn(term string, delta int) (int, error)

	// Len returns the number of stored terms.
	Len() int

	// Stats returns structural statistics of the engine.
	Stats() Stats

	// Check walks the whole structure and reports ErrCorrupted on any broken invariant.
	Check() error
}

// Suggestion is one ranked completion.
type Suggestion struct {
	Word   string `json:"word"`
	Weight int    `json:"weight"`
}

// Stats describes the shape and cost of an engine.
type Stats struct {
	Strategy    Strategy      `json:"strategy"`
	Terms       int           `json:"terms"`
	Nodes       int           `json:"nodes"`
	ApproxBytes int           `json:"approx_bytes"`
	LoadTime    time.Duration `json:"load_time_ns"`
}
