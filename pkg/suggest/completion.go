package suggest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bastiangx/wordtree/pkg/dictionary"
	"github.com/charmbracelet/log"
)

// Strategy names a prefix engine implementation.
type Strategy string

const (
	StrategyTrie Strategy = "trie"
	StrategyTST  Strategy = "tst"
)

// Strategies lists every recognized strategy.
func Strategies() []Strategy {
	return []Strategy{StrategyTrie, StrategyTST}
}

// ParseStrategy maps a config or flag value onto a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyTrie:
		return StrategyTrie, nil
	case StrategyTST:
		return StrategyTST, nil
	}
	return "", fmt.Errorf("%w %q (want %q or %q)", ErrUnknownStrategy, s, StrategyTrie, StrategyTST)
}

// NewEngine returns an empty engine for strategy.
func NewEngine(strategy Strategy) (Engine, error) {
	switch strategy {
	case StrategyTrie:
		return NewTrie(), nil
	case StrategyTST:
		return NewTST(), nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownStrategy, strategy)
}

// Completer is the autocomplete service: one active engine plus,
// optionally, the term store it was seeded from.
type Completer struct {
	engine   Engine
	strategy Strategy
	store    *dictionary.Store
	loadTime atomic.Int64
}

// Option configures a Completer.
type Option func(*Completer)

// WithStore keeps store in step with every Learn call.
func WithStore(store *dictionary.Store) Option {
	return func(c *Completer) {
		c.store = store
	}
}

// NewCompleter builds a completer around an empty engine of the named strategy.
func NewCompleter(strategy string, opts ...Option) (*Completer, error) {
	s, err := ParseStrategy(strategy)
	if err != nil {
		return nil, err
	}
	engine, err := NewEngine(s)
	if err != nil {
		return nil, err
	}

	c := &Completer{engine: engine, strategy: s}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Strategy returns the strategy of the active engine.
func (c *Completer) Strategy() Strategy {
	return c.strategy
}

// Suggest returns up to limit ranked completions for prefix.
func (c *Completer) Suggest(prefix string, limit int) ([]Suggestion, error) {
	if prefix == "" {
		return nil, invalid("empty prefix")
	}
	return c.engine.PrefixSearch(prefix, limit)
}

// Learn records that term was picked, moving its weight by delta.
func (c *Completer) Learn(term string, delta int) (int, error) {
	weight, err := c.engine.Learn(term, delta)
	if err != nil {
		return 0, err
	}
	if c.store != nil {
		c.store.Adjust(term, delta)
	}
	log.Debug("learned", "strategy", c.strategy, "term", term, "delta", delta, "weight", weight)
	return weight, nil
}

// Insert stores a single term, overwriting its weight.
func (c *Completer) Insert(term string, weight int) error {
	return c.engine.Insert(term, weight)
}

// BulkLoad inserts a term store snapshot. The whole snapshot is validated
// first, so a rejected entry leaves the engine untouched.
func (c *Completer) BulkLoad(entries []dictionary.Entry) (int, error) {
	for i, e := range entries {
		if err := validEntry(e.Term, e.Weight); err != nil {
			return 0, fmt.Errorf("bulk load entry %d (%q): %w", i, e.Term, err)
		}
	}

	start := time.Now()
	for i, e := range entries {
		if err := c.engine.Insert(e.Term, e.Weight); err != nil {
			return i, fmt.Errorf("bulk load entry %d (%q): %w", i, e.Term, err)
		}
	}
	elapsed := time.Since(start)
	c.loadTime.Store(int64(elapsed))

	log.Debugf("Loaded %d terms into %s in %v", len(entries), c.strategy, elapsed)
	return len(entries), nil
}

// Len returns the number of terms held by the engine.
func (c *Completer) Len() int {
	return c.engine.Len()
}

// Stats returns engine statistics plus the duration of the last bulk load.
func (c *Completer) Stats() Stats {
	s := c.engine.Stats()
	s.LoadTime = time.Duration(c.loadTime.Load())
	return s
}

// Check verifies the structural integrity of the active engine.
func (c *Completer) Check() error {
	if err := c.engine.Check(); err != nil {
		log.Errorf("%s engine failed integrity check: %v", c.strategy, err)
		return err
	}
	return nil
}
