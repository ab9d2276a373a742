// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search is the single entry point for a federated torrent search:
// it validates the request, consults the response cache, fans out to the
// selected adapters, and deduplicates and ranks what comes back.
package search

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/pdiddy/torrify/internal/adapter"
	"github.com/pdiddy/torrify/internal/cache"
	"github.com/pdiddy/torrify/internal/metrics"
	"github.com/pdiddy/torrify/internal/normalize"
	"github.com/pdiddy/torrify/internal/orchestrator"
	"github.com/pdiddy/torrify/pkg/types"
)

// MinQueryLength is the shortest accepted query, in characters, after
// trimming.
const MinQueryLength = 2

// FailedRunTTL bounds how long a response in which no adapter succeeded is
// cached.
const FailedRunTTL = time.Minute

// InputError reports a request the caller must fix.
type InputError struct {
	Msg string
	Err error
}

func (e *InputError) Error() string { return e.Msg }
func (e *InputError) Unwrap() error { return e.Err }

// PipelineError wraps an unexpected failure inside the service.
type PipelineError struct {
	Err error
}

func (e *PipelineError) Error() string { return "search pipeline: " + e.Err.Error() }
func (e *PipelineError) Unwrap() error { return e.Err }

// ErrNoAdapters is wrapped by the InputError returned when the selection
// matches no enabled adapter.
var ErrNoAdapters = errors.New("no adapters available")

// IsInputError reports whether err is, or wraps, an InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// Selector picks adapters for a request. *registry.Registry implements it.
type Selector interface {
	ByNames(names []string) []adapter.Adapter
	ByCategory(category string) []adapter.Adapter
	BySource(name string) (adapter.Adapter, bool)
}

// Service runs searches. It is safe for concurrent use.
type Service struct {
	sel     Selector
	orch    *orchestrator.Orchestrator
	cfg     types.SearchConfig
	cache   *cache.Cache
	ttl     time.Duration
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithCache puts c in front of the pipeline; entries live for ttl (the
// cache default when ttl <= 0).
func WithCache(c *cache.Cache, ttl time.Duration) Option {
	return func(s *Service) { s.cache, s.ttl = c, ttl }
}

// WithMetrics records search, cache and adapter outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires a service. Zero limits in cfg fall back to the defaults
// of types.DefaultConfig.
func NewService(sel Selector, orch *orchestrator.Orchestrator, cfg types.SearchConfig, opts ...Option) *Service {
	def := types.DefaultConfig().Search
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = def.MaxLimit
	}
	if cfg.PerSourceLimit <= 0 {
		cfg.PerSourceLimit = def.PerSourceLimit
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = def.MaxConcurrent
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if orch == nil {
		orch = &orchestrator.Orchestrator{}
	}
	s := &Service{
		sel:  sel,
		orch: orch,
		cfg:  cfg,
		log:  zap.NewNop(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search answers one request. Adapter failures never fail the request: they
// are reported in the response's per-source stats. Only an *InputError or a
// *PipelineError is returned.
func (s *Service) Search(ctx context.Context, p types.SearchParams) (resp types.SearchResponse, err error) {
	start := s.now()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("search panic", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			resp, err = types.SearchResponse{}, &PipelineError{Err: fmt.Errorf("panic: %v", r)}
		}
		switch {
		case err == nil:
		case IsInputError(err):
			s.metrics.ObserveSearch(metrics.OutcomeInputError, 0)
		default:
			s.metrics.ObserveSearch(metrics.OutcomeError, 0)
		}
	}()

	query, limit, err := s.validate(p)
	if err != nil {
		return types.SearchResponse{}, err
	}

	adapters := s.selectAdapters(p)
	if len(adapters) == 0 {
		return types.SearchResponse{}, &InputError{Msg: ErrNoAdapters.Error(), Err: ErrNoAdapters}
	}
	names := make([]string, len(adapters))
	for i, a := range adapters {
		names[i] = a.Name()
	}

	if s.cache != nil {
		cached, ok := s.cache.Get(query, names)
		s.metrics.ObserveCache(ok)
		if ok {
			cached.Results = normalize.Rank(cached.Results, p.SortBy, p.SortOrder, limit)
			cached.ExecutionTimeMS = s.now().Sub(start).Milliseconds()
			s.metrics.ObserveSearch(metrics.OutcomeCached, 0)
			s.log.Debug("cache hit", zap.String("query", query), zap.Strings("sources", names))
			return cached, nil
		}
	}

	payload, complete := s.run(ctx, query, adapters)

	if s.cache != nil && !complete {
		s.log.Debug("interrupted run not cached", zap.String("query", query), zap.Strings("sources", names))
	} else if s.cache != nil {
		ttl := s.ttl
		if !anySucceeded(payload.Sources) {
			ttl = min(FailedRunTTL, s.cacheTTL())
		}
		s.cache.Set(query, names, payload, ttl)
	}

	resp = payload.Clone()
	resp.Results = normalize.Rank(payload.Results, p.SortBy, p.SortOrder, limit)
	resp.ExecutionTimeMS = s.now().Sub(start).Milliseconds()
	s.metrics.ObserveSearch(metrics.OutcomeOK, s.now().Sub(start))

	s.log.Info("search completed",
		zap.String("query", query),
		zap.Int("results", resp.TotalCount),
		zap.Int("returned", len(resp.Results)),
		zap.Int("duplicates_removed", resp.DuplicatesRemoved),
		zap.Int("failed_sources", failedCount(resp.Sources)),
		zap.Int64("elapsed_ms", resp.ExecutionTimeMS))
	return resp, nil
}

// run fans out and builds the cacheable payload: deduplicated results in
// source order, not yet ranked or limited. complete is false when the
// caller's context or the request deadline cut the run short.
func (s *Service) run(ctx context.Context, query string, adapters []adapter.Adapter) (payload types.SearchResponse, complete bool) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	stats := s.orch.Run(ctx, query, adapters, s.cfg.PerSourceLimit, s.cfg.MaxConcurrent)
	s.metrics.ObserveAdapters(stats)

	// Rows move into the aggregate; stats keep only their counts.
	var all []types.Result
	for i := range stats {
		all = append(all, stats[i].Results...)
		stats[i].Results = nil
	}
	all = s.orch.Enrich(ctx, all, s.enricherFor)
	complete = ctx.Err() == nil && !anyNotAttempted(stats)

	deduped, removed := normalize.Dedupe(all)
	s.metrics.ObserveDuplicates(removed)

	return types.SearchResponse{
		Results:           deduped,
		TotalCount:        len(deduped),
		Sources:           stats,
		Query:             query,
		DuplicatesRemoved: removed,
	}, complete
}

func (s *Service) validate(p types.SearchParams) (string, int, error) {
	query := strings.TrimSpace(p.Query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return "", 0, &InputError{Msg: fmt.Sprintf("query must be at least %d characters", MinQueryLength)}
	}
	limit := p.Limit
	switch {
	case limit < 0:
		return "", 0, &InputError{Msg: "limit must be positive"}
	case limit == 0:
		limit = s.cfg.DefaultLimit
	case limit > s.cfg.MaxLimit:
		limit = s.cfg.MaxLimit
	}
	if p.Category != "" && !strings.EqualFold(p.Category, "all") {
		if _, ok := types.ParseCategory(p.Category); !ok {
			return "", 0, &InputError{Msg: fmt.Sprintf("unknown category %q", p.Category)}
		}
	}
	return query, limit, nil
}

// selectAdapters uses the explicit source list when given and the category
// otherwise.
func (s *Service) selectAdapters(p types.SearchParams) []adapter.Adapter {
	var names []string
	for _, n := range p.Sources {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	if len(names) > 0 {
		return s.sel.ByNames(names)
	}
	category := p.Category
	if c, ok := types.ParseCategory(category); ok {
		category = string(c)
	}
	return s.sel.ByCategory(category)
}

func (s *Service) enricherFor(source string) adapter.Enricher {
	a, ok := s.sel.BySource(source)
	if !ok {
		return nil
	}
	e, _ := a.(adapter.Enricher)
	return e
}

func (s *Service) cacheTTL() time.Duration {
	if s.ttl > 0 {
		return s.ttl
	}
	return cache.DefaultTTL
}

// Warm searches each query with default parameters so the cache holds an
// answer before the first caller asks. Failures are logged and skipped.
func (s *Service) Warm(ctx context.Context, queries []string) int {
	warmed := 0
	for _, q := range queries {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.Search(ctx, types.SearchParams{Query: q}); err != nil {
			s.log.Warn("cache warm failed", zap.String("query", q), zap.Error(err))
			continue
		}
		warmed++
	}
	return warmed
}

func anySucceeded(stats []types.AdapterResult) bool {
	for _, st := range stats {
		if st.Success {
			return true
		}
	}
	return false
}

func anyNotAttempted(stats []types.AdapterResult) bool {
	for _, st := range stats {
		if st.ErrorKind == types.KindNotAttempted {
			return true
		}
	}
	return false
}

func failedCount(stats []types.AdapterResult) int {
	n := 0
	for _, st := range stats {
		if !st.Success {
			n++
		}
	}
	return n
}
