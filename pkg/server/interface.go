/*
Package server exposes the completers to clients.

Two adapters share the same semantics: an HTTP JSON adapter that serves
the autocomplete endpoint used by the web frontend, and a msgpack IPC loop
over stdin/stdout for editor integrations.

# HTTP

	GET /autocomplete?query=ca            -> ["cat","car","cart"]
	GET /autocomplete/tst?query=ca&limit=2 -> ["cat","car"]
	POST /learn {"term":"car","delta":1}  -> {"term":"car","weight":4}
	GET /stats                            -> engine statistics
	GET /health                           -> {"status":"ok",...}

Invalid input maps to 400 and engine failures to a generic 500.

# IPC

Completion requests use this structure:

	{"id": "req_001", "p": "ame", "l": 24}

The server responds with suggestions ranked by weight:

	{"id": "req_001", "s": [{"w": "amenity", "r": 1}, {"w": "america", "r": 2}], "c": 2, "t": 145}

Learn requests move a term's weight:

	{"id": "req_002", "a": "learn", "w": "america", "d": 1}
	{"id": "req_002", "w": "america", "f": 42}

Failures come back as {"id": ..., "e": message, "c": code}.
*/
package server

// Request is any IPC request. An empty action means "complete".
type Request struct {
	ID     string `msgpack:"id"`
	Action string `msgpack:"a,omitempty"`
	Prefix string `msgpack:"p,omitempty"`
	Limit  int    `msgpack:"l,omitempty"`
	Term   string `msgpack:"w,omitempty"`
	Delta  *int   `msgpack:"d,omitempty"`
}

// CompletionSuggestion - minimal suggestion response
type CompletionSuggestion struct {
	Word string `msgpack:"w"`
	Rank uint16 `msgpack:"r"`
}

// CompletionResponse - completion response, TimeTaken in microseconds
type CompletionResponse struct {
	ID          string                 `msgpack:"id"`
	Suggestions []CompletionSuggestion `msgpack:"s"`
	Count       int                    `msgpack:"c"`
	TimeTaken   int64                  `msgpack:"t"`
}

// LearnResponse - weight of a term after a learn request
type LearnResponse struct {
	ID     string `msgpack:"id"`
	Term   string `msgpack:"w"`
	Weight int    `msgpack:"f"`
}

// CompletionError holds basic error information for failed requests
type CompletionError struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
