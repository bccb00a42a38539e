package suggest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var engines = []struct {
	name string
	new  func() Engine
}{
	{"trie", func() Engine { return NewTrie() }},
	{"tst", func() Engine { return NewTST() }},
}

func words(s []Suggestion) []string {
	out := make([]string, len(s))
	for i, sg := range s {
		out[i] = sg.Word
	}
	return out
}

func loaded(t *testing.T, newEngine func() Engine, terms map[string]int) Engine {
	t.Helper()
	e := newEngine()
	for term, w := range terms {
		require.NoError(t, e.Insert(term, w))
	}
	return e
}

func TestPrefixSearchRanking(t *testing.T) {
	for _, tc := range engines {
		t.Run(tc.name, func(t *testing.T) {
			e := loaded(t, tc.new, map[string]int{"cat": 5, "car": 3, "cart": 1})

			got, err := e.PrefixSearch("ca", 2)
			require.NoError(t, err)
			assert.Equal(t, []string{"cat", "car"}, words(got))

			got, err = e.PrefixSearch("car", 2)
			require.NoError(t, err)
			assert.Equal(t, []string{"car", "cart"}, words(got))

			got, err = e.PrefixSearch("dog", 5)
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Empty(t, got)

			weight, err := e.Learn("car", 10)
			require.NoError(t, err)
			assert.Equal(t, 13, weight)

			got, err = e.PrefixSearch("ca", 2)
			require.NoError(t, err)
			assert.Equal(t, []Suggestion{{"car", 13}, {"cat", 5}}, got)
		})
	}
}

func TestPrefixSearchTiesAndLimit(t *testing.T) {
	for _, tc := range engines {
		t.Run(tc.name, func(t *testing.T) {
			e := loaded(t, tc.new, map[string]int{
				"beta": 2, "bet": 2, "be": 2, "bend": 7, "bee": 1, "b": 9,
			})

			got, err := e.PrefixSearch("b", 10)
			require.NoError(t, err)
			assert.Equal(t, []string{"b", "bend", "be", "bet", "beta", "bee"}, words(got))

			got, err = e.PrefixSearch("be", 3)
			require.NoError(t, err)
			assert.Equal(t, []string{"bend", "be", "bet"}, words(got))

			got, err = e.PrefixSearch("bend", 1)
			require.NoError(t, err)
			assert.Equal(t, []Suggestion{{"bend", 7}}, got)
		})
	}
}

func TestInsertOverwritesWeight(t *testing.T) {
	for _, tc := range engines {
		t.Run(tc.name, func(t *testing.T) {
			e := tc.new()
			require.NoError(t, e.Insert("apple", 4))
			require.NoError(t, e.Insert("apple", 1))
			assert.Equal(t, 1, e.Len())

			got, err := e.PrefixSearch("app", 5)
			require.NoError(t, err)
			assert.Equal(t, []Suggestion{{"apple", 1}}, got)
		})
	}
}

func TestInvalidInput(t *testing.T) {
	for _, tc := range engines {
		t.Run(tc.name, func(t *testing.T) {
			e := loaded(t, tc.new, map[string]int{"go": 1})

			assert.ErrorIs(t, e.Insert("", 1), ErrInvalidInput)
			assert.ErrorIs(t, e.Insert("gopher", -1), ErrInvalidInput)
			assert.ErrorIs(t, e.Insert("\xff", 1), ErrInvalidInput)

			_, err := e.PrefixSearch("", 5)
			assert.ErrorIs(t, err, ErrInvalidInput)
			_, err = e.PrefixSearch("g", 0)
			assert.ErrorIs(t, err, ErrInvalidInput)
			_, err = e.PrefixSearch("g", -3)
			assert.ErrorIs(t, err, ErrInvalidInput)

			_, err = e.Learn("", 1)
			assert.ErrorIs(t, err, ErrInvalidInput)

			// rejected calls leave nothing behind
			assert.Equal(t, 1, e.Len())
			assert.NoError(t, e.Check())
		})
	}
}

func TestLearn(t *testing.T) {
	for _, tc := range engines {
		t.Run(tc.name, func(t *testing.T) {
			e := loaded(t, tc.new, map[string]int{"hello": 5, "help": 7})

			before, err := e.PrefixSearch("hel", 1)
			require.NoError(t, err)
			assert.Equal(t, "help", before[0].Word)

			for range 3 {
				_, err := e.Learn("hello", 1)
				require.NoError(t, err)
			}
			after, err := e.PrefixSearch("hel", 2)
			require.NoError(t, err)
			assert.Equal(t, []Suggestion{{"hello", 8}, {"help", 7}}, after)

			weight, err := e.Learn("help", -100)
			require.NoError(t, err)
			assert.Equal(t, 0, weight)
		})
	}
}

func TestLearnUnknownTerm(t *testing.T) {
	for _, tc := range engines {
		t.Run(tc.name, func(t *testing.T) {
			e := loaded(t, tc.new, map[string]int{"tree": 2})

			weight, err := e.Learn("trie", 4)
			require.NoError(t, err)
			assert.Equal(t, 4, weight)
			assert.Equal(t, 2, e.Len())

			weight, err = e.Learn("tst", -2)
			require.NoError(t, err)
			assert.Equal(t, 0, weight)

			got, err := e.PrefixSearch("t", 5)
			require.NoError(t, err)
			assert.Equal(t, []Suggestion{{"trie", 4}, {"tree", 2}, {"tst", 0}}, got)
			assert.NoError(t, e.Check())
		})
	}
}

func TestUnicodeTerms(t *testing.T) {
	for _, tc := range engines {
		t.Run(tc.name, func(t *testing.T) {
			e := loaded(t, tc.new, map[string]int{
				"café": 3, "cafe": 3, "caña": 5, "日本": 2, "日本語": 4,
			})

			got, err := e.PrefixSearch("ca", 10)
			require.NoError(t, err)
			assert.Equal(t, []string{"caña", "cafe", "café"}, words(got))

			got, err = e.PrefixSearch("日", 10)
			require.NoError(t, err)
			assert.Equal(t, []string{"日本語", "日本"}, words(got))

			got, err = e.PrefixSearch("café", 10)
			require.NoError(t, err)
			assert.Equal(t, []string{"café"}, words(got))
		})
	}
}

func TestEveryPrefixFindsTerm(t *testing.T) {
	n := 120
	if testing.Short() {
		n = 40
	}
	terms := map[string]int{}
	for i := range n {
		terms[fmt.Sprintf("w%03dx%d", i*7%1000, i%5)] = i % 13
	}

	for _, tc := range engines {
		t.Run(tc.name, func(t *testing.T) {
			e := loaded(t, tc.new, terms)
			require.Equal(t, len(terms), e.Len())

			for term := range terms {
				runes := []rune(term)
				for i := 1; i <= len(runes); i++ {
					got, err := e.PrefixSearch(string(runes[:i]), len(terms))
					require.NoError(t, err)
					assert.Contains(t, words(got), term)
				}
			}
		})
	}
}

func TestStatsAndCheck(t *testing.T) {
	for _, tc := range engines {
		t.Run(tc.name, func(t *testing.T) {
			e := tc.new()
			assert.NoError(t, e.Check())
			assert.Equal(t, 0, e.Stats().Terms)

			e = loaded(t, tc.new, map[string]int{"a": 1, "ab": 1, "abc": 1, "b": 1})
			st := e.Stats()
			assert.Equal(t, Strategy(tc.name), st.Strategy)
			assert.Equal(t, 4, st.Terms)
			assert.Positive(t, st.Nodes)
			assert.Positive(t, st.ApproxBytes)
			assert.NoError(t, e.Check())
		})
	}
}

func TestTrieCheckDetectsCorruption(t *testing.T) {
	t.Run("term count", func(t *testing.T) {
		tr := loaded(t, func() Engine { return NewTrie() }, map[string]int{"abc": 1}).(*Trie)
		tr.terms++
		assert.ErrorIs(t, tr.Check(), ErrCorrupted)
	})

	t.Run("dangling edge", func(t *testing.T) {
		tr := loaded(t, func() Engine { return NewTrie() }, map[string]int{"abc": 1}).(*Trie)
		tr.nodes[0].children['a'] = 99
		assert.ErrorIs(t, tr.Check(), ErrCorrupted)

		_, err := tr.PrefixSearch("a", 5)
		assert.ErrorIs(t, err, ErrCorrupted)
		assert.False(t, IsInvalidInput(err))
	})

	t.Run("negative weight", func(t *testing.T) {
		tr := loaded(t, func() Engine { return NewTrie() }, map[string]int{"abc": 1}).(*Trie)
		tr.nodes[3].weight = -4
		assert.ErrorIs(t, tr.Check(), ErrCorrupted)
	})

	t.Run("shared child", func(t *testing.T) {
		tr := loaded(t, func() Engine { return NewTrie() }, map[string]int{"ab": 1, "c": 1}).(*Trie)
		tr.nodes[0].children['c'] = tr.nodes[0].children['a']
		assert.ErrorIs(t, tr.Check(), ErrCorrupted)
	})
}

func TestTSTCheckDetectsCorruption(t *testing.T) {
	t.Run("sibling order", func(t *testing.T) {
		ts := NewTST()
		require.NoError(t, ts.Insert("m", 1))
		require.NoError(t, ts.Insert("a", 1))
		lo := ts.nodes[ts.root].lo
		require.NotZero(t, lo)
		ts.nodes[lo].ch = 'z'
		assert.ErrorIs(t, ts.Check(), ErrCorrupted)
	})

	t.Run("dangling link", func(t *testing.T) {
		ts := loaded(t, func() Engine { return NewTST() }, map[string]int{"ab": 1}).(*TST)
		ts.nodes[ts.root].eq = 77
		assert.ErrorIs(t, ts.Check(), ErrCorrupted)

		_, err := ts.PrefixSearch("ab", 5)
		assert.ErrorIs(t, err, ErrCorrupted)
	})

	t.Run("sentinel", func(t *testing.T) {
		ts := loaded(t, func() Engine { return NewTST() }, map[string]int{"ab": 1}).(*TST)
		ts.nodes[0].terminal = true
		assert.ErrorIs(t, ts.Check(), ErrCorrupted)
	})

	t.Run("term count", func(t *testing.T) {
		ts := loaded(t, func() Engine { return NewTST() }, map[string]int{"ab": 1}).(*TST)
		ts.terms = 0
		assert.ErrorIs(t, ts.Check(), ErrCorrupted)
	})
}

func TestTopK(t *testing.T) {
	top := newTopK(3)
	for _, s := range []Suggestion{{"d", 1}, {"a", 4}, {"c", 4}, {"b", 2}, {"e", 4}, {"f", 0}} {
		if top.admits(s.Weight) {
			top.offer(s.Word, s.Weight)
		}
	}
	assert.Equal(t, []Suggestion{{"a", 4}, {"c", 4}, {"e", 4}}, top.results())
	assert.False(t, top.admits(3))
	assert.True(t, top.admits(4))
}
