package dictionary

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/tchap/go-patricia/v2/patricia"
)

// ErrInvalidEntry is returned for empty terms and negative weights.
var ErrInvalidEntry = errors.New("invalid dictionary entry")

// Entry is one term with its weight.
type Entry struct {
	Term   string
	Weight int
}

// AddWeight returns w+delta clamped to [0, math.MaxInt].
func AddWeight(w, delta int) int {
	if delta > 0 && w > math.MaxInt-delta {
		return math.MaxInt
	}
	if sum := w + delta; sum > 0 {
		return sum
	}
	return 0
}

// Store is the canonical set of known terms. It seeds the prefix engines
// and follows the weight changes they learn.
type Store struct {
	mu    sync.RWMutex
	trie  *patricia.Trie
	count int
}

// NewStore returns an empty term store.
func NewStore() *Store {
	return &Store{trie: patricia.NewTrie()}
}

// Add stores term with weight, overwriting any previous weight.
func (s *Store) Add(term string, weight int) error {
	if term == "" {
		return fmt.Errorf("%w: empty term", ErrInvalidEntry)
	}
	if weight < 0 {
		return fmt.Errorf("%w: negative weight %d for %q", ErrInvalidEntry, weight, term)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := patricia.Prefix(term)
	if s.trie.Get(key) == nil {
		s.count++
	}
	s.trie.Set(key, weight)
	return nil
}

// AddAll stores every entry after passing its term through normalize (nil
// keeps terms unchanged). Terms that normalize to "" are skipped and later
// duplicates overwrite earlier ones. It returns the number of entries stored
// and stops at the first invalid one.
func (s *Store) AddAll(entries []Entry, normalize func(string) string) (int, error) {
	stored := 0
	for _, e := range entries {
		term := e.Term
		if normalize != nil {
			term = normalize(term)
		}
		if term == "" {
			continue
		}
		if err := s.Add(term, e.Weight); err != nil {
			return stored, err
		}
		stored++
	}
	return stored, nil
}

// Adjust moves the weight of term by delta, clamping at zero.
// Unknown terms are created with max(0, delta).
func (s *Store) Adjust(term string, delta int) int {
	if term == "" {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := patricia.Prefix(term)
	current := 0
	if item := s.trie.Get(key); item != nil {
		current = item.(int)
	} else {
		s.count++
	}
	weight := AddWeight(current, delta)
	s.trie.Set(key, weight)
	return weight
}

// Get returns the weight of term and whether it is known.
func (s *Store) Get(term string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item := s.trie.Get(patricia.Prefix(term))
	if item == nil {
		return 0, false
	}
	return item.(int), true
}

// Len returns the number of distinct terms.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// MaxWeight returns the highest weight currently stored.
func (s *Store) MaxWeight() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	highest := 0
	_ = s.trie.Visit(func(_ patricia.Prefix, item patricia.Item) error {
		if w := item.(int); w > highest {
			highest = w
		}
		return nil
	})
	return highest
}

// Snapshot returns every entry sorted by term.
func (s *Store) Snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]Entry, 0, s.count)
	_ = s.trie.Visit(func(p patricia.Prefix, item patricia.Item) error {
		entries = append(entries, Entry{Term: string(p), Weight: item.(int)})
		return nil
	})
	sortEntries(entries)
	return entries
}

// Prefixed returns every entry whose term starts with prefix, sorted by term.
func (s *Store) Prefixed(prefix string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []Entry
	_ = s.trie.VisitSubtree(patricia.Prefix(prefix), func(p patricia.Prefix, item patricia.Item) error {
		entries = append(entries, Entry{Term: string(p), Weight: item.(int)})
		return nil
	})
	sortEntries(entries)
	return entries
}

func sortEntries(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		return strings.Compare(a.Term, b.Term)
	})
}
