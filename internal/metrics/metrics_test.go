// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/torrify/pkg/types"
)

func TestObserveAdapters(t *testing.T) {
	m := New()
	m.ObserveAdapters([]types.AdapterResult{
		{Source: "Nyaa", Success: true, ElapsedMS: 120},
		{Source: "RARBG", ErrorKind: types.KindTimeout},
		{Source: "RARBG", ErrorKind: types.KindTimeout},
		{Source: "YTS", ErrorKind: types.KindNotAttempted},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AdapterResults.WithLabelValues("Nyaa", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AdapterResults.WithLabelValues("RARBG", "timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AdapterResults.WithLabelValues("YTS", "not_attempted")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.AdapterLatency), "latency series for Nyaa and RARBG only")
}

func TestObserveSearchAndCache(t *testing.T) {
	m := New()
	m.ObserveSearch(OutcomeOK, 2*time.Second)
	m.ObserveSearch(OutcomeCached, 0)
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)
	m.ObserveDuplicates(3)
	m.ObserveDuplicates(0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Searches.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Searches.WithLabelValues(OutcomeCached)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Duplicates))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveSearch(OutcomeOK, time.Second)
	m.ObserveCache(true)
	m.ObserveAdapters([]types.AdapterResult{{Source: "x"}})
	m.ObserveRequest("/search", 200, time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveRequest("/search", 200, 50*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "torrify_http_request_duration_seconds_count"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
