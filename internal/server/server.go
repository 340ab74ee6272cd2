// Package server exposes the agent and the keyword graph over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/felixgeelhaar/recall/internal/agent"
	"github.com/felixgeelhaar/recall/internal/graph"
	"github.com/felixgeelhaar/recall/internal/observe"
)

// Processor runs a conversation turn.
type Processor interface {
	Process(ctx context.Context, prompt string) (*agent.Turn, error)
}

// GraphBuilder produces the keyword graph.
type GraphBuilder interface {
	Build(ctx context.Context) (*graph.Graph, error)
}

// Catalog answers keyword and size questions about the stored memories.
type Catalog interface {
	ListAllKeywords(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
}

// IndexSizer reports the number of indexed vectors.
type IndexSizer interface {
	Len() int
}

type Server struct {
	agent   Processor
	graphs  GraphBuilder
	catalog Catalog
	index   IndexSizer
	observe *observe.Observer
}

func New(a Processor, g GraphBuilder, c Catalog, idx IndexSizer, o *observe.Observer) *Server {
	return &Server{
		agent:   a,
		graphs:  g,
		catalog: c,
		index:   idx,
		observe: o,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogger)

	r.Post("/chat", s.handleChat)
	r.Get("/graph-data", s.handleGraphData)
	r.Get("/keywords", s.handleKeywords)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.observe.Log().Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.observe.Log().Info().Msg("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.observe.Log().Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Str("duration", time.Since(start).String()).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

type chatRequest struct {
	Prompt string `json:"prompt"`
}

type chatResponse struct {
	Response     string `json:"response"`
	GraphUpdated bool   `json:"graph_updated"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prompt == "" {
		respondJSON(w, http.StatusBadRequest, chatResponse{Response: "Invalid input"})
		return
	}

	turn, err := s.agent.Process(r.Context(), req.Prompt)
	if err != nil {
		s.observe.Log().Error().Err(err).Msg("chat turn failed")
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "An error occurred while generating a response"})
		return
	}

	respondJSON(w, http.StatusOK, chatResponse{Response: turn.Reply, GraphUpdated: turn.MemoryAdded})
}

func (s *Server) handleGraphData(w http.ResponseWriter, r *http.Request) {
	g, err := s.graphs.Build(r.Context())
	if err != nil {
		s.observe.Log().Error().Err(err).Msg("graph build failed")
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "An error occurred while fetching graph data"})
		return
	}
	respondJSON(w, http.StatusOK, g.Elements())
}

func (s *Server) handleKeywords(w http.ResponseWriter, r *http.Request) {
	keywords, err := s.catalog.ListAllKeywords(r.Context())
	if err != nil {
		s.observe.Log().Error().Err(err).Msg("keyword listing failed")
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "An error occurred while fetching keywords"})
		return
	}
	if keywords == nil {
		keywords = []string{}
	}
	respondJSON(w, http.StatusOK, keywords)
}

type healthResponse struct {
	Status  string `json:"status"`
	Entries int    `json:"entries"`
	Vectors int    `json:"vectors"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	n, err := s.catalog.Count(r.Context())
	if err != nil {
		respondJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "store unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, healthResponse{Status: "ok", Entries: n, Vectors: s.index.Len()})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
