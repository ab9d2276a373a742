// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/torrify/internal/adapter"
	"github.com/pdiddy/torrify/internal/adapter/adaptertest"
	"github.com/pdiddy/torrify/pkg/types"
)

func fakes(n int) ([]adapter.Adapter, []*adaptertest.Fake) {
	var as []adapter.Adapter
	var fs []*adaptertest.Fake
	for i := 0; i < n; i++ {
		f := adaptertest.New(fmt.Sprintf("k%d", i), fmt.Sprintf("Source %d", i),
			types.Result{Title: fmt.Sprintf("row from %d", i)})
		as = append(as, f)
		fs = append(fs, f)
	}
	return as, fs
}

// testOrchestrator never actually sleeps between batches and counts the
// cooldowns it was asked for.
func testOrchestrator(cooldowns *atomic.Int32) *Orchestrator {
	return &Orchestrator{
		SearchTimeout: time.Second,
		BatchCooldown: time.Second,
		Log:           zap.NewNop(),
		Sleep: func(ctx context.Context, d time.Duration) error {
			cooldowns.Add(1)
			return ctx.Err()
		},
	}
}

// --- Run ---

func TestRunCompleteAndOrdered(t *testing.T) {
	var cooldowns atomic.Int32
	o := testOrchestrator(&cooldowns)
	as, fs := fakes(9)

	out := o.Run(context.Background(), "ubuntu", as, 10, 4)
	require.Len(t, out, 9)
	for i, res := range out {
		assert.Equal(t, fmt.Sprintf("Source %d", i), res.Source)
		assert.True(t, res.Success)
		assert.Equal(t, 1, res.Count)
		assert.Equal(t, 1, fs[i].Calls())
		assert.Equal(t, []string{"ubuntu"}, fs[i].Queries())
	}
	assert.Equal(t, int32(2), cooldowns.Load(), "three batches, two cooldowns")
}

func TestRunBatchesAreSequential(t *testing.T) {
	o := &Orchestrator{SearchTimeout: time.Second, BatchCooldown: 10 * time.Millisecond}
	as, fs := fakes(4)
	for _, f := range fs[:2] {
		f.Delay = 30 * time.Millisecond
	}

	o.Run(context.Background(), "q", as, 10, 2)

	firstBatchStart := fs[0].Started()[0]
	for _, f := range fs[2:] {
		started := f.Started()
		require.Len(t, started, 1)
		assert.GreaterOrEqual(t, started[0].Sub(firstBatchStart), 40*time.Millisecond)
	}
}

func TestRunTimesOutSlowAdapter(t *testing.T) {
	var cooldowns atomic.Int32
	o := testOrchestrator(&cooldowns)
	o.SearchTimeout = 20 * time.Millisecond

	slow := adaptertest.New("slow", "Slow")
	slow.SearchFunc = func(ctx context.Context, query string, limit int) types.AdapterResult {
		time.Sleep(300 * time.Millisecond) // ignores ctx
		return types.AdapterResult{Source: "Slow", Success: true, Results: []types.Result{{Title: "late"}}}
	}
	fast := adaptertest.New("fast", "Fast", types.Result{Title: "quick"})

	start := time.Now()
	out := o.Run(context.Background(), "q", []adapter.Adapter{slow, fast}, 10, 4)
	assert.Less(t, time.Since(start), 250*time.Millisecond)

	require.Len(t, out, 2)
	assert.False(t, out[0].Success)
	assert.Equal(t, "timeout", out[0].Error)
	assert.Equal(t, types.KindTimeout, out[0].ErrorKind)
	assert.Equal(t, 0, out[0].Count)
	assert.NotNil(t, out[0].Results)
	assert.True(t, out[1].Success)
}

func TestRunMarksUnlaunchedBatchesNotAttempted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		SearchTimeout: time.Second,
		Sleep: func(context.Context, time.Duration) error {
			cancel()
			return context.Canceled
		},
	}
	as, fs := fakes(5)

	out := o.Run(ctx, "q", as, 10, 2)
	require.Len(t, out, 5)
	for i := 0; i < 2; i++ {
		assert.True(t, out[i].Success)
	}
	for i := 2; i < 5; i++ {
		assert.Equal(t, types.KindNotAttempted, out[i].ErrorKind)
		assert.Equal(t, "not attempted", out[i].Error)
		assert.Equal(t, fmt.Sprintf("Source %d", i), out[i].Source)
		assert.Equal(t, 0, fs[i].Calls())
	}
}

func TestRunWithExpiredContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	as, fs := fakes(3)

	out := (&Orchestrator{}).Run(ctx, "q", as, 10, 4)
	require.Len(t, out, 3)
	for i, res := range out {
		assert.Equal(t, types.KindNotAttempted, res.ErrorKind)
		assert.Equal(t, 0, fs[i].Calls())
	}
}

func TestRunRecoversAdapterPanic(t *testing.T) {
	boom := adaptertest.New("boom", "Boom")
	boom.SearchFunc = func(context.Context, string, int) types.AdapterResult { panic("nil map") }

	out := (&Orchestrator{}).Run(context.Background(), "q", []adapter.Adapter{boom}, 10, 4)
	require.Len(t, out, 1)
	assert.False(t, out[0].Success)
	assert.Contains(t, out[0].Error, "panic")
	assert.Equal(t, "Boom", out[0].Source)
}

func TestRunEmpty(t *testing.T) {
	out := (&Orchestrator{}).Run(context.Background(), "q", nil, 10, 4)
	assert.Empty(t, out)
}

// --- Enrich ---

func TestEnrichBackfillsFlaggedRows(t *testing.T) {
	const magnet = "magnet:?xt=urn:btih:0123456789abcdef0123456789abcdef01234567"
	leet := adaptertest.New("leetx", "1337x")
	leet.EnrichFunc = func(ctx context.Context, r types.Result) (types.Result, error) {
		if r.Title == "broken" {
			return r, errors.New("detail page gone")
		}
		r.MagnetLink = magnet
		r.NeedsEnrichment = false
		return r, nil
	}
	lookup := func(source string) adapter.Enricher {
		if source == "1337x" {
			return leet
		}
		return nil
	}

	in := []types.Result{
		{Title: "a", Source: "1337x", NeedsEnrichment: true},
		{Title: "broken", Source: "1337x", NeedsEnrichment: true},
		{Title: "b", Source: "Nyaa", NeedsEnrichment: true},
		{Title: "c", Source: "1337x"},
	}
	out := (&Orchestrator{}).Enrich(context.Background(), in, lookup)

	require.Len(t, out, 4)
	assert.Equal(t, magnet, out[0].MagnetLink)
	assert.Empty(t, out[1].MagnetLink, "failed enrichment keeps the row")
	assert.Equal(t, "broken", out[1].Title)
	assert.Empty(t, out[2].MagnetLink, "source without enricher")
	assert.Empty(t, out[3].MagnetLink, "row not flagged")
	assert.Empty(t, in[0].MagnetLink, "input untouched")
}

func TestEnrichBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	f := adaptertest.New("leetx", "1337x")
	f.EnrichFunc = func(ctx context.Context, r types.Result) (types.Result, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return r, nil
	}

	var in []types.Result
	for i := 0; i < 10; i++ {
		in = append(in, types.Result{Title: fmt.Sprint(i), Source: "1337x", NeedsEnrichment: true})
	}
	o := &Orchestrator{EnrichConcurrency: 2}
	o.Enrich(context.Background(), in, func(string) adapter.Enricher { return f })
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Greater(t, peak.Load(), int32(0))
}

func TestEnrichHonoursTimeout(t *testing.T) {
	f := adaptertest.New("leetx", "1337x")
	f.EnrichFunc = func(ctx context.Context, r types.Result) (types.Result, error) {
		<-ctx.Done()
		return r, ctx.Err()
	}
	o := &Orchestrator{EnrichTimeout: 20 * time.Millisecond}

	start := time.Now()
	out := o.Enrich(context.Background(), []types.Result{{Title: "a", Source: "1337x", NeedsEnrichment: true}},
		func(string) adapter.Enricher { return f })
	assert.Less(t, time.Since(start), time.Second)
	assert.Empty(t, out[0].MagnetLink)
}
