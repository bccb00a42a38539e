package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/bastiangx/wordtree/internal/logger"
	"github.com/bastiangx/wordtree/internal/utils"
	"github.com/bastiangx/wordtree/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	actionComplete = "complete"
	actionLearn    = "learn"
)

// IPCServer handles msgpack completion requests over a stream pair.
type IPCServer struct {
	completer *suggest.Completer
	recorder  LearnRecorder
	opts      Options
	dec       *msgpack.Decoder
	enc       *msgpack.Encoder
	log       *log.Logger
}

// NewIPCServer creates a server reading requests from r and writing responses to w.
func NewIPCServer(completer *suggest.Completer, opts Options, r io.Reader, w io.Writer) *IPCServer {
	enc := msgpack.NewEncoder(w)
	return &IPCServer{
		completer: completer,
		opts:      opts,
		dec:       msgpack.NewDecoder(r),
		enc:       enc,
		log:       logger.New("ipc"),
	}
}

// SetRecorder mirrors every learned delta to rec.
func (s *IPCServer) SetRecorder(rec LearnRecorder) {
	s.recorder = rec
}

// Start signals readiness and serves requests until the input ends.
// A clean EOF returns nil; a broken stream returns the decode error.
func (s *IPCServer) Start() error {
	s.log.Debug("Starting IPC server.")
	if err := s.send(map[string]string{"status": "ready"}); err != nil {
		return err
	}

	for {
		var req Request
		if err := s.dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			s.log.Errorf("Decoding request: %v", err)
			return fmt.Errorf("decoding ipc request: %w", err)
		}
		if err := s.handle(req); err != nil {
			return err
		}
	}
}

func (s *IPCServer) handle(req Request) error {
	switch req.Action {
	case "", actionComplete:
		return s.handleComplete(req)
	case actionLearn:
		return s.handleLearn(req)
	}
	return s.sendError(req.ID, 400, fmt.Sprintf("unknown action: %s", req.Action))
}

func (s *IPCServer) handleComplete(req Request) error {
	prefix := utils.NormalizeTerm(req.Prefix, s.opts.CaseSensitive)
	if prefix == "" {
		return s.sendError(req.ID, 400, "missing prefix")
	}

	limit := req.Limit
	if limit < 1 {
		limit = s.opts.DefaultLimit
	}
	limit = min(limit, s.opts.MaxLimit, math.MaxUint16)

	start := time.Now()
	suggestions, err := s.completer.Suggest(prefix, limit)
	elapsed := time.Since(start)
	if err != nil {
		return s.sendEngineError(req.ID, err)
	}

	ranked := make([]CompletionSuggestion, len(suggestions))
	for i, sg := range suggestions {
		ranked[i] = CompletionSuggestion{Word: sg.Word, Rank: uint16(i + 1)}
	}
	return s.send(CompletionResponse{
		ID:          req.ID,
		Suggestions: ranked,
		Count:       len(ranked),
		TimeTaken:   elapsed.Microseconds(),
	})
}

func (s *IPCServer) handleLearn(req Request) error {
	term := utils.NormalizeTerm(req.Term, s.opts.CaseSensitive)
	delta := 1
	if req.Delta != nil {
		delta = *req.Delta
	}

	weight, err := s.completer.Learn(term, delta)
	if err != nil {
		return s.sendEngineError(req.ID, err)
	}
	if s.recorder != nil {
		if _, err := s.recorder.Incr(context.Background(), term, delta); err != nil {
			s.log.Errorf("Persisting learned delta for %q: %v", term, err)
		}
	}
	return s.send(LearnResponse{ID: req.ID, Term: term, Weight: weight})
}

func (s *IPCServer) sendEngineError(id string, err error) error {
	if suggest.IsInvalidInput(err) {
		return s.sendError(id, 400, err.Error())
	}
	s.log.Errorf("engine failure for request %s: %v", id, err)
	return s.sendError(id, 500, "internal server error")
}

func (s *IPCServer) sendError(id string, code int, message string) error {
	return s.send(CompletionError{ID: id, Error: message, Code: code})
}

func (s *IPCServer) send(v any) error {
	if err := s.enc.Encode(v); err != nil {
		s.log.Errorf("Encoding response: %v", err)
		return fmt.Errorf("encoding ipc response: %w", err)
	}
	return nil
}
