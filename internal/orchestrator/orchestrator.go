// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package orchestrator fans a query out to adapters in bounded batches and
// collects exactly one AdapterResult per adapter, in input order.
package orchestrator

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/pdiddy/torrify/internal/adapter"
	"github.com/pdiddy/torrify/pkg/types"
)

// Defaults applied when the corresponding Orchestrator field is zero.
const (
	DefaultSearchTimeout     = 15 * time.Second
	DefaultBatchCooldown     = time.Second
	DefaultMaxConcurrent     = 4
	DefaultEnrichTimeout     = 8 * time.Second
	DefaultEnrichConcurrency = 4
)

// Orchestrator runs the fan-out. The zero value is usable.
type Orchestrator struct {
	SearchTimeout     time.Duration
	BatchCooldown     time.Duration
	EnrichTimeout     time.Duration
	EnrichConcurrency int

	Log *zap.Logger

	// Now and Sleep are replaced in tests.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// New builds an orchestrator from the search settings.
func New(cfg types.SearchConfig, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		SearchTimeout:     cfg.SearchTimeout,
		BatchCooldown:     cfg.BatchCooldown,
		EnrichTimeout:     cfg.EnrichTimeout,
		EnrichConcurrency: cfg.EnrichConcurrency,
		Log:               log,
	}
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) log() *zap.Logger {
	if o.Log != nil {
		return o.Log
	}
	return zap.NewNop()
}

func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) error {
	if o.Sleep != nil {
		return o.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run searches every adapter for query. Adapters are called in sequential
// batches of maxConcurrent with a cooldown between batches; each call is
// bounded by SearchTimeout. Once ctx is done no further batch starts and
// the remaining adapters are reported as not attempted. The result has one
// entry per adapter, at the adapter's index.
func (o *Orchestrator) Run(ctx context.Context, query string, adapters []adapter.Adapter, perCallLimit, maxConcurrent int) []types.AdapterResult {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	cooldown := o.BatchCooldown
	if cooldown < 0 {
		cooldown = 0
	}

	out := make([]types.AdapterResult, len(adapters))
	for start := 0; start < len(adapters); start += maxConcurrent {
		if start > 0 {
			if err := o.sleep(ctx, cooldown); err != nil {
				o.notAttempted(out, adapters, start)
				break
			}
		}
		if ctx.Err() != nil {
			o.notAttempted(out, adapters, start)
			break
		}

		end := min(start+maxConcurrent, len(adapters))
		o.log().Debug("launching batch",
			zap.String("query", query),
			zap.Int("from", start),
			zap.Int("to", end))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				out[i] = o.call(ctx, adapters[i], query, perCallLimit)
				return nil
			})
		}
		_ = g.Wait()
	}
	return out
}

func (o *Orchestrator) notAttempted(out []types.AdapterResult, adapters []adapter.Adapter, from int) {
	for i := from; i < len(adapters); i++ {
		out[i] = types.Failed(adapters[i].Name(), types.KindNotAttempted, "not attempted")
	}
	o.log().Warn("request deadline reached", zap.Int("not_attempted", len(adapters)-from))
}

// call races one adapter against the per-call timeout. A result that
// arrives after the timer is discarded.
func (o *Orchestrator) call(ctx context.Context, a adapter.Adapter, query string, limit int) types.AdapterResult {
	timeout := o.SearchTimeout
	if timeout <= 0 {
		timeout = DefaultSearchTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := o.now()
	done := make(chan types.AdapterResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- types.Failed(a.Name(), types.KindUnknown, fmt.Sprintf("adapter panic: %v", r))
			}
		}()
		done <- a.Search(callCtx, query, limit)
	}()

	var res types.AdapterResult
	select {
	case res = <-done:
	case <-callCtx.Done():
		res = types.Failed(a.Name(), types.KindTimeout, "timeout")
		o.log().Warn("adapter timed out", zap.String("source", a.Name()), zap.Duration("timeout", timeout))
	}

	if res.Source == "" {
		res.Source = a.Name()
	}
	if res.Results == nil {
		res.Results = []types.Result{}
	}
	res.Count = len(res.Results)
	res.ElapsedMS = o.now().Sub(start).Milliseconds()
	return res
}

// EnricherFor finds the enricher responsible for rows of a source. It
// returns nil when the source cannot enrich.
type EnricherFor func(source string) adapter.Enricher

// Enrich backfills missing magnet links for rows flagged NeedsEnrichment,
// with bounded concurrency under its own EnrichTimeout. A failed
// enrichment leaves the row unchanged. The input slice is not modified.
func (o *Orchestrator) Enrich(ctx context.Context, results []types.Result, lookup EnricherFor) []types.Result {
	out := slices.Clone(results)
	if lookup == nil {
		return out
	}

	timeout := o.EnrichTimeout
	if timeout <= 0 {
		timeout = DefaultEnrichTimeout
	}
	conc := o.EnrichConcurrency
	if conc <= 0 {
		conc = DefaultEnrichConcurrency
	}
	ectx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sem := semaphore.NewWeighted(int64(conc))
	var wg sync.WaitGroup
	for i, r := range out {
		if !r.NeedsEnrichment || r.MagnetLink != "" {
			continue
		}
		e := lookup(r.Source)
		if e == nil {
			continue
		}
		if err := sem.Acquire(ectx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			defer func() {
				if p := recover(); p != nil {
					o.log().Error("enrich panic", zap.String("source", r.Source), zap.Any("panic", p))
				}
			}()
			got, err := e.Enrich(ectx, r)
			if err != nil {
				o.log().Debug("enrich failed",
					zap.String("source", r.Source),
					zap.String("title", r.Title),
					zap.Error(err))
				return
			}
			out[i] = got
		}()
	}
	wg.Wait()
	return out
}
