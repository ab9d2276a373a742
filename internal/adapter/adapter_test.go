// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/torrify/pkg/types"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

const (
	hashA = "0123456789abcdef0123456789abcdef01234567"
	hashB = "fedcba9876543210fedcba9876543210fedcba98"
)

func clock() time.Time { return fixedNow }

// testBehavior returns enabled plumbing for key pointed at bases, fetching
// over plain HTTP.
func testBehavior(key string, bases ...string) *Behavior {
	cfg := types.AdapterConfig{
		DisplayName: "Test " + key,
		Enabled:     true,
		BaseURL:     bases[0],
		Mirrors:     bases[1:],
		HTTPConfig:  types.HTTPConfig{Timeout: 5 * time.Second},
	}
	return NewBehavior(key, cfg, NewHTTPFetcher(5*time.Second), zap.NewNop(), clock)
}

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

// pad keeps fixtures above the block-page length threshold.
func pad(html string) string {
	return strings.Replace(html, "</body>", "<p>"+strings.Repeat("lorem ipsum ", 120)+"</p></body>", 1)
}

// --- CleanQuery ---

func TestCleanQuery(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  ubuntu  iso ", "ubuntu iso"},
		{"big.buck-bunny_1080p", "big.buck-bunny_1080p"},
		{"foo'; DROP TABLE--", "foo DROP TABLE--"},
		{"<script>", "script"},
		{"進撃の巨人", "進撃の巨人"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := CleanQuery(tt.in); got != tt.want {
				t.Errorf("CleanQuery(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// --- KindOf ---

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want types.ErrorKind
	}{
		{"nil", nil, ""},
		{"classified", Errorf(types.KindBlocked, "nope"), types.KindBlocked},
		{"wrapped classified", fmt.Errorf("outer: %w", Errorf(types.KindParse, "bad")), types.KindParse},
		{"disabled", ErrDisabled, types.KindDisabled},
		{"open circuit", gobreaker.ErrOpenState, types.KindCircuitOpen},
		{"deadline", context.DeadlineExceeded, types.KindTimeout},
		{"net timeout", timeoutErr{}, types.KindTimeout},
		{"other", errors.New("boom"), types.KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

// --- LooksBlocked ---

func TestLooksBlocked(t *testing.T) {
	long := strings.Repeat("x", 2000)
	assert.True(t, LooksBlocked([]byte("short"), 100))
	assert.False(t, LooksBlocked([]byte(long), 100))
	assert.True(t, LooksBlocked([]byte(long+"<title>Just a moment...</title>"), 100))
	assert.True(t, LooksBlocked([]byte(long+"This Site Has Been Blocked"), 100))
}

// --- Behavior.Run ---

func TestRunDisabled(t *testing.T) {
	b := testBehavior("x", "http://unused.invalid")
	b.SetEnabled(false)

	called := false
	res := b.Run(context.Background(), "ubuntu", 10, func(ctx context.Context, q string, limit int) ([]types.Result, error) {
		called = true
		return nil, nil
	})
	assert.False(t, called)
	assert.False(t, res.Success)
	assert.Equal(t, types.KindDisabled, res.ErrorKind)
	assert.Equal(t, "Test x", res.Source)
	assert.NotNil(t, res.Results)
	assert.Equal(t, 0, res.Count)
}

func TestRunEmptyCleanedQuery(t *testing.T) {
	b := testBehavior("x", "http://unused.invalid")
	res := b.Run(context.Background(), " ?! ", 10, func(ctx context.Context, q string, limit int) ([]types.Result, error) {
		t.Fatal("search must not run")
		return nil, nil
	})
	assert.False(t, res.Success)
	assert.Equal(t, types.KindParse, res.ErrorKind)
}

func TestRunPassesCleanedQuery(t *testing.T) {
	b := testBehavior("x", "http://unused.invalid")
	var got string
	res := b.Run(context.Background(), "  ubuntu;  iso ", 10, func(ctx context.Context, q string, limit int) ([]types.Result, error) {
		got = q
		return []types.Result{{Title: "a", Source: "Test x"}}, nil
	})
	assert.Equal(t, "ubuntu iso", got)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Count)
	assert.Empty(t, res.Error)
}

func TestRunRecoversPanic(t *testing.T) {
	b := testBehavior("x", "http://unused.invalid")
	res := b.Run(context.Background(), "ubuntu", 10, func(ctx context.Context, q string, limit int) ([]types.Result, error) {
		panic("index out of range")
	})
	assert.False(t, res.Success)
	assert.Equal(t, types.KindParse, res.ErrorKind)
	assert.Contains(t, res.Error, "panic")
}

func TestRunKeepsPartialRows(t *testing.T) {
	b := testBehavior("x", "http://unused.invalid")
	res := b.Run(context.Background(), "ubuntu", 10, func(ctx context.Context, q string, limit int) ([]types.Result, error) {
		return []types.Result{{Title: "a"}}, Errorf(types.KindParse, "truncated")
	})
	assert.False(t, res.Success)
	assert.Equal(t, types.KindParse, res.ErrorKind)
	assert.Equal(t, 1, res.Count)
	require.Len(t, res.Results, 1)
}

func TestRunTruncatesToLimit(t *testing.T) {
	b := testBehavior("x", "http://unused.invalid")
	res := b.Run(context.Background(), "ubuntu", 2, func(ctx context.Context, q string, limit int) ([]types.Result, error) {
		return []types.Result{{Title: "a"}, {Title: "b"}, {Title: "c"}}, nil
	})
	assert.Equal(t, 2, res.Count)
}

func TestRunTimeoutKind(t *testing.T) {
	b := testBehavior("x", "http://unused.invalid")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	res := b.Run(ctx, "ubuntu", 10, func(ctx context.Context, q string, limit int) ([]types.Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	assert.False(t, res.Success)
	assert.Equal(t, types.KindTimeout, res.ErrorKind)
}

func TestRunOpensCircuit(t *testing.T) {
	b := testBehavior("x", "http://unused.invalid")
	var calls atomic.Int32
	fail := func(ctx context.Context, q string, limit int) ([]types.Result, error) {
		calls.Add(1)
		return nil, Errorf(types.KindTransport, "connection refused")
	}
	for i := 0; i < breakerThreshold; i++ {
		res := b.Run(context.Background(), "ubuntu", 10, fail)
		assert.Equal(t, types.KindTransport, res.ErrorKind)
	}
	res := b.Run(context.Background(), "ubuntu", 10, fail)
	assert.Equal(t, types.KindCircuitOpen, res.ErrorKind)
	assert.Equal(t, int32(breakerThreshold), calls.Load())
}

// --- rate limiting ---

// recordingFetcher notes when each fetch starts.
type recordingFetcher struct {
	mu     sync.Mutex
	starts []time.Time
}

func (f *recordingFetcher) Fetch(ctx context.Context, url string, header http.Header) (*Page, error) {
	f.mu.Lock()
	f.starts = append(f.starts, time.Now())
	f.mu.Unlock()
	return &Page{URL: url, Status: http.StatusOK}, nil
}

func (f *recordingFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.starts)
}

func rateLimited(every time.Duration, f Fetcher) *Behavior {
	cfg := types.AdapterConfig{
		DisplayName: "Limited",
		Enabled:     true,
		BaseURL:     "http://unused.invalid",
		RateLimit:   every,
	}
	return NewBehavior("limited", cfg, f, zap.NewNop(), nil)
}

func TestFetchHonoursRateLimit(t *testing.T) {
	const every = 50 * time.Millisecond
	f := &recordingFetcher{}
	b := rateLimited(every, f)
	begin := time.Now()

	for i := 0; i < 2; i++ {
		_, err := b.Fetch(context.Background(), "http://unused.invalid/", acceptHTML)
		require.NoError(t, err)
	}
	require.Len(t, f.starts, 2)
	assert.GreaterOrEqual(t, f.starts[1].Sub(begin), every)

	// Overlapping searches share the adapter's limiter.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := b.Run(context.Background(), "ubuntu", 10, func(ctx context.Context, q string, limit int) ([]types.Result, error) {
				_, err := b.Fetch(ctx, "http://unused.invalid/?q="+q, acceptHTML)
				return nil, err
			})
			assert.True(t, res.Success)
		}()
	}
	wg.Wait()

	require.Equal(t, 4, f.count())
	last := f.starts[0]
	for _, s := range f.starts {
		if s.After(last) {
			last = s
		}
	}
	assert.GreaterOrEqual(t, last.Sub(begin), 3*every)
}

func TestFetchRateLimitWaitCancelled(t *testing.T) {
	f := &recordingFetcher{}
	b := rateLimited(time.Hour, f)

	_, err := b.Fetch(context.Background(), "http://unused.invalid/", acceptHTML)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = b.Fetch(ctx, "http://unused.invalid/", acceptHTML)
	require.Error(t, err)
	assert.Equal(t, types.KindTimeout, KindOf(err))
	assert.Equal(t, 1, f.count())
}

// --- TryMirrors ---

const blockPage = `<html><head><title>Just a moment...</title></head><body>Checking your browser</body></html>`

func TestTryMirrorsFallsBackPastBlockPage(t *testing.T) {
	blocked := serve(t, http.StatusOK, blockPage)
	good := serve(t, http.StatusOK, pad(pirateBayHTML))

	a := NewPirateBay(testBehavior("piratebay", blocked.URL, good.URL))
	res := a.Search(context.Background(), "big buck bunny", 10)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, 2, res.Count)
	assert.True(t, strings.HasPrefix(res.Results[0].ExternalLink, good.URL))
}

func TestTryMirrorsFallsBackPastServerError(t *testing.T) {
	down := serve(t, http.StatusForbidden, "forbidden")
	good := serve(t, http.StatusOK, pad(pirateBayHTML))

	a := NewPirateBay(testBehavior("piratebay", down.URL, good.URL))
	res := a.Search(context.Background(), "big buck bunny", 10)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 2, res.Count)
}

func TestTryMirrorsAllFail(t *testing.T) {
	one := serve(t, http.StatusOK, blockPage)
	two := serve(t, http.StatusOK, "tiny")

	a := NewPirateBay(testBehavior("piratebay", one.URL, two.URL))
	res := a.Search(context.Background(), "big buck bunny", 10)
	assert.False(t, res.Success)
	assert.Equal(t, types.KindBlocked, res.ErrorKind)
	assert.Contains(t, res.Error, "all mirrors failed")
	assert.Equal(t, 0, res.Count)
}

func TestTryMirrorsRejectsUnrelatedContent(t *testing.T) {
	parked := serve(t, http.StatusOK, pad(rarbgHTML("Some.Other.Release.2019")))
	good := serve(t, http.StatusOK, pad(rarbgHTML("Big.Buck.Bunny.2008.1080p.BluRay")))

	a := NewRARBG(testBehavior("rarbg", parked.URL, good.URL))
	res := a.Search(context.Background(), "big buck bunny", 10)
	require.True(t, res.Success, res.Error)
	require.Equal(t, 1, res.Count)
	assert.Equal(t, "Big.Buck.Bunny.2008.1080p.BluRay", res.Results[0].Title)
}

func TestTryMirrorsEmptyIsSuccess(t *testing.T) {
	empty := serve(t, http.StatusOK, `[{"id":"0","name":"No results returned","info_hash":"0000000000000000000000000000000000000000","seeders":"0"}]`)

	a := NewAPIBay(testBehavior("apibay", empty.URL))
	res := a.Search(context.Background(), "nothing matches this", 10)
	assert.True(t, res.Success)
	assert.Equal(t, 0, res.Count)
	assert.NotNil(t, res.Results)
}

// --- factory ---

func TestBuildAllDefaultConfig(t *testing.T) {
	cfg := types.DefaultConfig()
	adapters, err := BuildAll(cfg, Deps{Log: zap.NewNop()})
	require.NoError(t, err)

	var keys []string
	for _, a := range adapters {
		keys = append(keys, a.Key())
		assert.Equal(t, cfg.Adapters[a.Key()].Enabled, a.Enabled(), a.Key())
		assert.Equal(t, cfg.HTTP.UserAgent, a.Config().UserAgent, a.Key())
	}
	assert.Equal(t, cfg.AdapterOrder, keys)
	assert.Equal(t, []string{"apibay", "leetx", "nyaa", "nyaarss", "piratebay", "rarbg", "yts"}, Known())
}

func TestBuildAllUnknownKey(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.Adapters["kickass"] = types.AdapterConfig{BaseURL: "https://example.invalid", Enabled: true}
	_, err := BuildAll(cfg, Deps{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kickass")
	assert.Contains(t, err.Error(), "known: apibay, leetx")
}

func TestOrderAppendsUnlistedKeys(t *testing.T) {
	cfg := types.Config{
		Adapters: map[string]types.AdapterConfig{
			"yts": {}, "apibay": {}, "nyaa": {}, "rarbg": {},
		},
		AdapterOrder: []string{"rarbg", "missing", "nyaa"},
	}
	assert.Equal(t, []string{"rarbg", "nyaa", "apibay", "yts"}, Order(cfg))
}

func TestNewFetcherHonoursBrowserCapability(t *testing.T) {
	cfg := types.AdapterConfig{UseBrowser: true, HTTPConfig: types.HTTPConfig{Timeout: time.Second}}

	_, isHTTP := NewFetcher("nyaa", cfg, Deps{}).(*HTTPFetcher)
	assert.True(t, isHTTP, "browser disabled for the process")

	bf, isBrowser := NewFetcher("nyaa", cfg, Deps{Browser: types.BrowserConfig{Enabled: true}}).(*BrowserFetcher)
	require.True(t, isBrowser)
	assert.Equal(t, "table.torrent-list", bf.WaitSelector)

	cfg.UseBrowser = false
	_, isHTTP = NewFetcher("nyaa", cfg, Deps{Browser: types.BrowserConfig{Enabled: true}}).(*HTTPFetcher)
	assert.True(t, isHTTP, "adapter does not ask for a browser")
}

func TestHeaders(t *testing.T) {
	b := testBehavior("x", "https://example.org")
	h := b.Headers(acceptJSON)
	assert.Equal(t, types.DefaultUserAgent, h.Get("User-Agent"))
	assert.Equal(t, acceptJSON, h.Get("Accept"))
	assert.Equal(t, "https://example.org/", h.Get("Referer"))
}
