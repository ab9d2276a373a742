// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exposes Prometheus instrumentation for searches, the
// response cache and individual adapters. A nil *Metrics is a valid no-op
// recorder.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pdiddy/torrify/pkg/types"
)

const namespace = "torrify"

// Search outcomes.
const (
	OutcomeOK         = "ok"
	OutcomeCached     = "cached"
	OutcomeInputError = "input_error"
	OutcomeError      = "error"
)

// Metrics holds the collectors, registered on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	Searches        *prometheus.CounterVec
	SearchDuration  prometheus.Histogram
	CacheLookups    *prometheus.CounterVec
	Duplicates      prometheus.Counter
	AdapterResults  *prometheus.CounterVec
	AdapterLatency  *prometheus.HistogramVec
	RequestDuration *prometheus.HistogramVec
}

// New registers all collectors, plus the Go runtime and process collectors,
// on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		Searches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Searches by outcome.",
		}, []string{"outcome"}),
		SearchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Wall time of searches that reached the adapters.",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 45},
		}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by result.",
		}, []string{"result"}),
		Duplicates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_removed_total",
			Help:      "Results dropped because another source had the same info hash.",
		}),
		AdapterResults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_results_total",
			Help:      "Adapter calls by source and outcome kind.",
		}, []string{"source", "kind"}),
		AdapterLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "adapter_latency_seconds",
			Help:      "Adapter call latency.",
			Buckets:   []float64{.1, .25, .5, 1, 2, 4, 8, 15, 30},
		}, []string{"source"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "code"}),
	}
}

// ObserveSearch counts a search with the given outcome. d is recorded only
// for searches that fanned out.
func (m *Metrics) ObserveSearch(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Searches.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		m.SearchDuration.Observe(d.Seconds())
	}
}

// ObserveCache counts a cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// ObserveDuplicates adds n removed duplicates.
func (m *Metrics) ObserveDuplicates(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Duplicates.Add(float64(n))
}

// ObserveAdapters records the outcome and latency of every adapter call.
// Not-attempted adapters are counted but have no latency.
func (m *Metrics) ObserveAdapters(results []types.AdapterResult) {
	if m == nil {
		return
	}
	for _, r := range results {
		kind := string(r.ErrorKind)
		if r.Success {
			kind = "ok"
		} else if kind == "" {
			kind = string(types.KindUnknown)
		}
		m.AdapterResults.WithLabelValues(r.Source, kind).Inc()
		if r.ErrorKind != types.KindNotAttempted {
			m.AdapterLatency.WithLabelValues(r.Source).Observe(float64(r.ElapsedMS) / 1000)
		}
	}
}

// ObserveRequest records an HTTP request.
func (m *Metrics) ObserveRequest(route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(route, strconv.Itoa(code)).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
