// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package adaptertest provides an in-memory adapter for tests of the
// packages that fan out to adapters.
package adaptertest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pdiddy/torrify/pkg/types"
)

// Fake is a scripted adapter. SearchFunc, when set, decides the answer;
// otherwise Fake returns Results after Delay, or Fail when non-empty.
type Fake struct {
	K          string
	N          string
	Categories []types.Category
	Results    []types.Result
	Delay      time.Duration
	Fail       types.ErrorKind
	SearchFunc func(ctx context.Context, query string, limit int) types.AdapterResult
	EnrichFunc func(ctx context.Context, r types.Result) (types.Result, error)

	enabled atomic.Bool
	calls   atomic.Int32
	mu      sync.Mutex
	started []time.Time
	queries []string
}

// New returns an enabled fake with the given key and display name.
func New(key, name string, results ...types.Result) *Fake {
	f := &Fake{K: key, N: name, Results: results}
	f.enabled.Store(true)
	return f
}

func (f *Fake) Key() string  { return f.K }
func (f *Fake) Name() string { return f.N }

func (f *Fake) Config() types.AdapterConfig {
	return types.AdapterConfig{DisplayName: f.N, Enabled: f.Enabled(), Categories: f.Categories}
}

func (f *Fake) Enabled() bool           { return f.enabled.Load() }
func (f *Fake) SetEnabled(enabled bool) { f.enabled.Store(enabled) }

// Calls returns how many searches reached the fake.
func (f *Fake) Calls() int { return int(f.calls.Load()) }

// Started returns the start time of every search, in call order.
func (f *Fake) Started() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.started...)
}

// Queries returns the query of every search, in call order.
func (f *Fake) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

// Search records the call and answers from the script.
func (f *Fake) Search(ctx context.Context, query string, limit int) types.AdapterResult {
	f.calls.Add(1)
	f.mu.Lock()
	f.started = append(f.started, time.Now())
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	if f.SearchFunc != nil {
		return f.SearchFunc(ctx, query, limit)
	}
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return types.Failed(f.N, types.KindTimeout, ctx.Err().Error())
		}
	}
	if f.Fail != "" {
		return types.Failed(f.N, f.Fail, string(f.Fail)+" failure")
	}

	rows := make([]types.Result, 0, len(f.Results))
	for _, r := range f.Results {
		if limit > 0 && len(rows) >= limit {
			break
		}
		r.Source = f.N
		rows = append(rows, r)
	}
	return types.AdapterResult{Source: f.N, Results: rows, Count: len(rows), Success: true}
}

// Enrich delegates to EnrichFunc, returning r unchanged when it is nil.
func (f *Fake) Enrich(ctx context.Context, r types.Result) (types.Result, error) {
	if f.EnrichFunc == nil {
		return r, nil
	}
	return f.EnrichFunc(ctx, r)
}
