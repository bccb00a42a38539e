package server

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bastiangx/wordtree/pkg/suggest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func encodeRequests(t *testing.T, reqs ...Request) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	for _, r := range reqs {
		require.NoError(t, enc.Encode(r))
	}
	return &buf
}

func TestIPCRoundTrip(t *testing.T) {
	delta := 10
	in := encodeRequests(t,
		Request{ID: "r1", Prefix: "Ca", Limit: 2},
		Request{ID: "r2", Action: "learn", Term: "car", Delta: &delta},
		Request{ID: "r3", Action: "complete", Prefix: "ca"},
		Request{ID: "r4", Prefix: ""},
		Request{ID: "r5", Action: "delete", Term: "car"},
		Request{ID: "r6", Action: "learn", Term: "  "},
	)

	var out bytes.Buffer
	srv := NewIPCServer(newCompleter(t, suggest.StrategyTST), DefaultOptions(), in, &out)
	require.NoError(t, srv.Start())

	dec := msgpack.NewDecoder(&out)

	var ready map[string]string
	require.NoError(t, dec.Decode(&ready))
	assert.Equal(t, "ready", ready["status"])

	var first CompletionResponse
	require.NoError(t, dec.Decode(&first))
	assert.Equal(t, "r1", first.ID)
	assert.Equal(t, 2, first.Count)
	assert.Equal(t, []CompletionSuggestion{{Word: "cat", Rank: 1}, {Word: "car", Rank: 2}}, first.Suggestions)

	var learned LearnResponse
	require.NoError(t, dec.Decode(&learned))
	assert.Equal(t, LearnResponse{ID: "r2", Term: "car", Weight: 13}, learned)

	var second CompletionResponse
	require.NoError(t, dec.Decode(&second))
	assert.Equal(t, "r3", second.ID)
	require.Len(t, second.Suggestions, 3)
	assert.Equal(t, "car", second.Suggestions[0].Word)

	for _, id := range []string{"r4", "r5", "r6"} {
		var e CompletionError
		require.NoError(t, dec.Decode(&e))
		assert.Equal(t, id, e.ID)
		assert.Equal(t, 400, e.Code)
		assert.NotEmpty(t, e.Error)
	}
	assert.Zero(t, out.Len())
}

func TestIPCClampsLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxLimit = 1
	in := encodeRequests(t, Request{ID: "big", Prefix: "c", Limit: 500})

	var out bytes.Buffer
	require.NoError(t, NewIPCServer(newCompleter(t, suggest.StrategyTrie), opts, in, &out).Start())

	dec := msgpack.NewDecoder(&out)
	var ready map[string]string
	require.NoError(t, dec.Decode(&ready))

	var resp CompletionResponse
	require.NoError(t, dec.Decode(&resp))
	assert.Equal(t, []CompletionSuggestion{{Word: "cat", Rank: 1}}, resp.Suggestions)
}

func TestIPCBrokenStream(t *testing.T) {
	var out bytes.Buffer
	srv := NewIPCServer(newCompleter(t, suggest.StrategyTrie), DefaultOptions(), bytes.NewReader([]byte{0xc1}), &out)
	assert.Error(t, srv.Start())
}

func TestIPCLearnRecorderAndLongPrefix(t *testing.T) {
	long := strings.Repeat("ab", 40)
	c := newCompleter(t, suggest.StrategyTrie)
	require.NoError(t, c.Insert(long, 2))

	in := encodeRequests(t,
		Request{ID: "l1", Action: "learn", Term: "dog"},
		Request{ID: "l2", Action: "learn", Term: "cat"},
		Request{ID: "c1", Prefix: long[:65]},
	)
	rec := &fakeRecorder{}
	var out bytes.Buffer
	srv := NewIPCServer(c, DefaultOptions(), in, &out)
	srv.SetRecorder(rec)
	require.NoError(t, srv.Start())

	dec := msgpack.NewDecoder(&out)
	var ready map[string]string
	require.NoError(t, dec.Decode(&ready))

	var learned LearnResponse
	require.NoError(t, dec.Decode(&learned))
	assert.Equal(t, LearnResponse{ID: "l1", Term: "dog", Weight: 3}, learned)

	require.NoError(t, dec.Decode(&learned))
	assert.Equal(t, 6, learned.Weight)
	assert.Equal(t, []string{"dog+1", "cat+1"}, rec.calls)

	var resp CompletionResponse
	require.NoError(t, dec.Decode(&resp))
	assert.Equal(t, "c1", resp.ID)
	assert.Equal(t, []CompletionSuggestion{{Word: long, Rank: 1}}, resp.Suggestions)
}
