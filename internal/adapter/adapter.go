// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package adapter wraps each external listing source behind one contract.
// Shared plumbing (rate limiting, circuit breaking, mirror fallback, error
// capture) lives in Behavior, which every concrete adapter embeds.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pdiddy/torrify/pkg/types"
)

// Adapter searches a single source. Search never returns an error: every
// failure is reported inside the AdapterResult.
type Adapter interface {
	Key() string
	Name() string
	Config() types.AdapterConfig
	Enabled() bool
	SetEnabled(enabled bool)
	Search(ctx context.Context, query string, limit int) types.AdapterResult
}

// Enricher is implemented by adapters that can backfill a missing magnet
// link from the row's detail page.
type Enricher interface {
	Enrich(ctx context.Context, r types.Result) (types.Result, error)
}

// Error is a classified adapter failure.
type Error struct {
	Kind   types.ErrorKind
	Source string
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds a classified error.
func Errorf(kind types.ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// ErrDisabled is reported by adapters switched off in configuration.
var ErrDisabled = errors.New("adapter is disabled")

// KindOf classifies err.
func KindOf(err error) types.ErrorKind {
	var ae *Error
	var ne net.Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ae):
		return ae.Kind
	case errors.Is(err, ErrDisabled):
		return types.KindDisabled
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return types.KindCircuitOpen
	case errors.Is(err, context.DeadlineExceeded):
		return types.KindTimeout
	case errors.As(err, &ne) && ne.Timeout():
		return types.KindTimeout
	case errors.As(err, &ne):
		return types.KindTransport
	}
	return types.KindUnknown
}

var (
	unsafeQueryChars = regexp.MustCompile(`[^\p{L}\p{N}_\s\-.]`)
	spaces           = regexp.MustCompile(`\s+`)
)

// CleanQuery trims the query, replaces everything except letters, digits,
// underscores, dashes, dots and whitespace with spaces, and collapses runs
// of whitespace.
func CleanQuery(q string) string {
	q = unsafeQueryChars.ReplaceAllString(strings.TrimSpace(q), " ")
	return strings.TrimSpace(spaces.ReplaceAllString(q, " "))
}

// breakerThreshold is the number of consecutive failures that opens an
// adapter's circuit.
const breakerThreshold = 5

// Behavior carries the state and plumbing shared by all adapters. It is safe
// for concurrent use by overlapping requests.
type Behavior struct {
	key     string
	cfg     types.AdapterConfig
	fetcher Fetcher
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	log     *zap.Logger
	now     func() time.Time
	enabled atomic.Bool
}

// NewBehavior builds the shared plumbing for the adapter registered under
// key.
func NewBehavior(key string, cfg types.AdapterConfig, fetcher Fetcher, log *zap.Logger, now func() time.Time) *Behavior {
	if log == nil {
		log = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	if cfg.DisplayName == "" {
		cfg.DisplayName = key
	}
	b := &Behavior{
		key:     key,
		cfg:     cfg,
		fetcher: fetcher,
		limiter: newLimiter(cfg.RateLimit),
		log:     log.With(zap.String("source", cfg.DisplayName)),
		now:     now,
	}
	b.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.DisplayName,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.log.Warn("circuit state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	b.enabled.Store(cfg.Enabled)
	return b
}

func newLimiter(every time.Duration) *rate.Limiter {
	if every <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(every), 1)
}

// Key returns the registry key.
func (b *Behavior) Key() string { return b.key }

// Name returns the display name stamped on results.
func (b *Behavior) Name() string { return b.cfg.DisplayName }

// Config returns the adapter's configuration.
func (b *Behavior) Config() types.AdapterConfig { return b.cfg }

// Enabled reports whether the adapter accepts searches.
func (b *Behavior) Enabled() bool { return b.enabled.Load() }

// SetEnabled switches the adapter on or off.
func (b *Behavior) SetEnabled(enabled bool) { b.enabled.Store(enabled) }

// Now returns the current time from the injected clock.
func (b *Behavior) Now() time.Time { return b.now() }

// SearchFunc performs the source-specific part of a search.
type SearchFunc func(ctx context.Context, query string, limit int) ([]types.Result, error)

// Run executes search under the shared policies and folds the outcome into
// an AdapterResult. Panics inside search are recovered as parse errors.
// Rows returned together with an error are kept as a partial result.
func (b *Behavior) Run(ctx context.Context, query string, limit int, search SearchFunc) types.AdapterResult {
	start := b.now()
	finish := func(res types.AdapterResult) types.AdapterResult {
		res.Source = b.Name()
		if res.Results == nil {
			res.Results = []types.Result{}
		}
		res.Count = len(res.Results)
		res.ElapsedMS = b.now().Sub(start).Milliseconds()
		return res
	}

	if !b.Enabled() {
		return finish(types.Failed(b.Name(), types.KindDisabled, ErrDisabled.Error()))
	}
	q := CleanQuery(query)
	if q == "" {
		return finish(types.Failed(b.Name(), types.KindParse, "query is empty after cleaning"))
	}

	out, err := b.breaker.Execute(func() (any, error) {
		return b.safeSearch(ctx, q, limit, search)
	})
	rows, _ := out.([]types.Result)

	if err != nil {
		kind := KindOf(err)
		if ctx.Err() != nil && kind != types.KindParse {
			kind = types.KindTimeout
		}
		b.log.Warn("search failed",
			zap.String("query", q),
			zap.String("kind", string(kind)),
			zap.Int("partial_rows", len(rows)),
			zap.Error(err))
		res := types.Failed(b.Name(), kind, err.Error())
		res.Results = rows
		return finish(res)
	}

	b.log.Debug("search completed", zap.String("query", q), zap.Int("rows", len(rows)))
	return finish(types.AdapterResult{Success: true, Results: rows})
}

func (b *Behavior) safeSearch(ctx context.Context, q string, limit int, search SearchFunc) (rows []types.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Errorf(types.KindParse, "parser panic: %v", r)
		}
	}()
	rows, err = search(ctx, q, limit)
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, err
}

// Wait blocks until the adapter's rate limiter admits another request.
func (b *Behavior) Wait(ctx context.Context) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return &Error{Kind: types.KindTimeout, Source: b.Name(), Err: fmt.Errorf("rate limit wait: %w", err)}
	}
	return nil
}
