// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the search service over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/pdiddy/torrify/internal/metrics"
	"github.com/pdiddy/torrify/internal/registry"
	"github.com/pdiddy/torrify/internal/search"
	"github.com/pdiddy/torrify/pkg/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Searcher answers one search request. *search.Service implements it.
type Searcher interface {
	Search(ctx context.Context, p types.SearchParams) (types.SearchResponse, error)
}

// SourceLister lists the registered adapters. *registry.Registry implements
// it.
type SourceLister interface {
	Entries() []registry.Entry
}

// Server routes HTTP requests to the search service.
type Server struct {
	search  Searcher
	sources SourceLister
	metrics *metrics.Metrics
	log     *zap.Logger
	cfg     types.ServerConfig
}

// New builds a server. m and log may be nil.
func New(svc Searcher, sources SourceLister, m *metrics.Metrics, log *zap.Logger, cfg types.ServerConfig) *Server {
	def := types.DefaultConfig().Server
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}
	if cfg.CacheMaxAge <= 0 {
		cfg.CacheMaxAge = def.CacheMaxAge
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{search: svc, sources: sources, metrics: m, log: log, cfg: cfg}
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("GET /sources", s.handleSources)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	mux.Handle("GET /metrics", s.metrics.Handler())

	return requestID(s.recoverer(s.accessLog(mux)))
}

// Run serves on cfg.Addr until ctx is done, then shuts down gracefully
// within cfg.ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("starting server", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	p := types.SearchParams{
		Query:     q.Get("q"),
		Category:  q.Get("category"),
		SortBy:    types.ParseSortKey(q.Get("sortBy")),
		SortOrder: q.Get("sortOrder"),
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		p.Limit = n
	}
	for _, src := range strings.Split(q.Get("sources"), ",") {
		if src = strings.TrimSpace(src); src != "" {
			p.Sources = append(p.Sources, src)
		}
	}

	resp, err := s.search.Search(r.Context(), p)
	if err != nil {
		var ie *search.InputError
		if errors.As(err, &ie) {
			writeError(w, http.StatusBadRequest, ie.Error())
			return
		}
		s.log.Error("search failed",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("query", p.Query),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	secs := int(s.cfg.CacheMaxAge / time.Second)
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d, s-maxage=%d", secs, secs))
	writeJSON(w, http.StatusOK, resp)
}

type sourceView struct {
	Key        string           `json:"key"`
	Name       string           `json:"name"`
	Enabled    bool             `json:"enabled"`
	Categories []types.Category `json:"categories"`
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	entries := s.sources.Entries()
	out := make([]sourceView, 0, len(entries))
	for _, e := range entries {
		cats := e.Categories
		if cats == nil {
			cats = []types.Category{}
		}
		out = append(out, sourceView{Key: e.Key, Name: e.DisplayName, Enabled: e.Enabled, Categories: cats})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
