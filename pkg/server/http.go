package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bastiangx/wordtree/internal/logger"
	"github.com/bastiangx/wordtree/internal/utils"
	"github.com/bastiangx/wordtree/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const maxLearnBody = 1 << 16

// Options are the request limits and normalization policy shared by the adapters.
type Options struct {
	DefaultLimit  int
	MaxLimit      int
	CaseSensitive bool
	AllowOrigin   string
}

// DefaultOptions mirrors the built-in config defaults.
func DefaultOptions() Options {
	return Options{
		DefaultLimit: 10,
		MaxLimit:     64,
		AllowOrigin:  "*",
	}
}

// LearnRecorder persists learned deltas outside the process.
type LearnRecorder interface {
	Incr(ctx context.Context, term string, delta int) (int, error)
}

// HTTPServer serves the autocomplete JSON contract. The primary completer
// answers /autocomplete; every loaded completer is reachable by strategy.
type HTTPServer struct {
	primary    *suggest.Completer
	completers map[suggest.Strategy]*suggest.Completer
	order      []suggest.Strategy
	recorder   LearnRecorder
	opts       Options
	router     *mux.Router
	log        *log.Logger
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

type learnRequest struct {
	Term  string `json:"term"`
	Delta *int   `json:"delta,omitempty"`
}

type learnResponse struct {
	Term   string `json:"term"`
	Weight int    `json:"weight"`
}

type requestIDKey struct{}

// NewHTTPServer wires routes and middleware around primary and any extra
// completers. Extra completers with the primary's strategy are ignored.
func NewHTTPServer(primary *suggest.Completer, opts Options, extra ...*suggest.Completer) *HTTPServer {
	s := &HTTPServer{
		primary:    primary,
		completers: map[suggest.Strategy]*suggest.Completer{primary.Strategy(): primary},
		order:      []suggest.Strategy{primary.Strategy()},
		opts:       opts,
		log:        logger.New("http"),
	}
	for _, c := range extra {
		if _, dup := s.completers[c.Strategy()]; dup {
			continue
		}
		s.completers[c.Strategy()] = c
		s.order = append(s.order, c.Strategy())
	}

	r := mux.NewRouter()
	r.Use(s.withRequestID, s.withLogging, s.withCORS)

	r.HandleFunc("/autocomplete", s.handleAutocomplete).Methods(http.MethodGet)
	r.HandleFunc("/autocomplete/{strategy}", s.handleAutocomplete).Methods(http.MethodGet)
	r.HandleFunc("/learn", s.handleLearn).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	s.router = r
	return s
}

// SetRecorder mirrors every learned delta to rec.
func (s *HTTPServer) SetRecorder(rec LearnRecorder) {
	s.recorder = rec
}

// Handler returns the HTTP handler for the server
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then drains
// in-flight requests for at most shutdownTimeout.
func (s *HTTPServer) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr, "strategies", s.order)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// handleAutocomplete answers GET /autocomplete?query=<text> with a JSON array
// of suggestion strings. A missing query parameter is a 400; an empty one or
// one that matches nothing is an empty array.
func (s *HTTPServer) handleAutocomplete(w http.ResponseWriter, r *http.Request) {
	completer := s.primary
	if name, ok := mux.Vars(r)["strategy"]; ok {
		strategy, err := suggest.ParseStrategy(name)
		c, loaded := s.completers[strategy]
		if err != nil || !loaded {
			s.writeError(w, r, http.StatusNotFound, fmt.Sprintf("strategy %q is not loaded", name))
			return
		}
		completer = c
	}

	values := r.URL.Query()
	raw, ok := values["query"]
	if !ok {
		s.writeError(w, r, http.StatusBadRequest, "missing 'query' parameter")
		return
	}

	limit, err := s.parseLimit(values.Get("limit"))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	query := utils.NormalizeTerm(raw[0], s.opts.CaseSensitive)
	if query == "" {
		writeJSON(w, http.StatusOK, []string{})
		return
	}

	suggestions, err := completer.Suggest(query, limit)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	words := make([]string, len(suggestions))
	for i, sg := range suggestions {
		words[i] = sg.Word
	}
	writeJSON(w, http.StatusOK, words)
}

// parseLimit reads the optional limit parameter, clamped to MaxLimit.
func (s *HTTPServer) parseLimit(raw string) (int, error) {
	if raw == "" {
		return s.opts.DefaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer, got %q", raw)
	}
	return min(limit, s.opts.MaxLimit), nil
}

// handleLearn applies a weight delta to every loaded engine.
func (s *HTTPServer) handleLearn(w http.ResponseWriter, r *http.Request) {
	var req learnRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLearnBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	term := utils.NormalizeTerm(req.Term, s.opts.CaseSensitive)
	delta := 1
	if req.Delta != nil {
		delta = *req.Delta
	}

	weight := 0
	for i, strategy := range s.order {
		wt, err := s.completers[strategy].Learn(term, delta)
		if err != nil {
			s.writeEngineError(w, r, err)
			return
		}
		if i == 0 {
			weight = wt
		}
	}

	if s.recorder != nil {
		if _, err := s.recorder.Incr(r.Context(), term, delta); err != nil {
			s.log.Error("failed to persist learned delta", "term", term, "delta", delta, "err", err,
				"request_id", RequestID(r.Context()))
		}
	}

	writeJSON(w, http.StatusOK, learnResponse{Term: term, Weight: weight})
}

func (s *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := make([]suggest.Stats, 0, len(s.order))
	for _, strategy := range s.order {
		stats = append(stats, s.completers[strategy].Stats())
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"strategy": s.primary.Strategy(),
		"terms":    s.primary.Len(),
	})
}

// writeEngineError maps invalid input to 400 and everything else to a
// generic 500 whose body carries no internal detail.
func (s *HTTPServer) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	if suggest.IsInvalidInput(err) {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	s.log.Error("engine failure", "path", r.URL.Path, "err", err, "request_id", RequestID(r.Context()))
	s.writeError(w, r, http.StatusInternalServerError, "internal server error")
}

func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.log.Debug("request rejected", "status", status, "reason", message, "request_id", RequestID(r.Context()))
	writeJSON(w, status, ErrorResponse{Error: message, Status: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("Encoding response: %v", err)
	}
}

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *HTTPServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (s *HTTPServer) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"took", time.Since(start),
			"request_id", RequestID(r.Context()))
	})
}

func (s *HTTPServer) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.AllowOrigin != "" {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", s.opts.AllowOrigin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
