// Package metrics exposes Prometheus counters for the summarization client
// and the reference backend.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "smart_summary"

// Metrics holds all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Client metrics
	Submissions *prometheus.CounterVec
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	Outcomes    *prometheus.CounterVec
	Frames      *prometheus.CounterVec

	// Backend metrics
	StreamRequests *prometheus.CounterVec
	StreamDuration prometheus.Histogram
	StoreLookups   *prometheus.CounterVec
	ActiveStreams  prometheus.Gauge
}

// New creates and registers collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		Submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "submissions_total",
				Help:      "Summarization submissions by trigger",
			},
			[]string{"trigger"},
		),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "cache_hits_total",
			Help:      "Submissions served from the result cache",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "cache_misses_total",
			Help:      "Submissions that required a network call",
		}),
		Outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "operation_outcomes_total",
				Help:      "Terminal outcomes of summarization operations",
			},
			[]string{"outcome"},
		),
		Frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "frames_total",
				Help:      "Decoded content frames by classification",
			},
			[]string{"class"},
		),
		StreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "server",
				Name:      "stream_requests_total",
				Help:      "Streaming summarization requests by result",
			},
			[]string{"result"},
		),
		StreamDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "stream_duration_seconds",
			Help:      "Time spent streaming one summary",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		StoreLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "server",
				Name:      "store_lookups_total",
				Help:      "Summary store lookups by result",
			},
			[]string{"result"},
		),
		ActiveStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "active_streams",
			Help:      "Streams currently being written",
		}),
	}

	reg.MustRegister(
		m.Submissions,
		m.CacheHits,
		m.CacheMisses,
		m.Outcomes,
		m.Frames,
		m.StreamRequests,
		m.StreamDuration,
		m.StoreLookups,
		m.ActiveStreams,
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordSubmission(trigger string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(trigger).Inc()
}

func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.Inc()
		return
	}
	m.CacheMisses.Inc()
}

func (m *Metrics) RecordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.Outcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordFrames(content, suppressed int) {
	if m == nil {
		return
	}
	m.Frames.WithLabelValues("content").Add(float64(content))
	m.Frames.WithLabelValues("metadata").Add(float64(suppressed))
}

// StreamStarted marks a backend stream as active and returns a func that
// records its completion.
func (m *Metrics) StreamStarted() func(result string) {
	if m == nil {
		return func(string) {}
	}
	start := time.Now()
	m.ActiveStreams.Inc()
	return func(result string) {
		m.ActiveStreams.Dec()
		m.StreamDuration.Observe(time.Since(start).Seconds())
		m.StreamRequests.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) RecordStoreLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.StoreLookups.WithLabelValues(result).Inc()
}
