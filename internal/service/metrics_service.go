package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/teaching-portal-api/pkg/jobs"
)

// Recompute outcomes recorded by MetricsService.
const (
	OutcomeSuccess       = "success"
	OutcomeNoCategories  = "no_categories"
	OutcomePersistFailed = "persist_failed"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	cacheLatency      prometheus.Observer
	cacheWrite        prometheus.Observer
	recomputeDuration *prometheus.HistogramVec
	recomputeStudents prometheus.Histogram
	scoresWritten     *prometheus.CounterVec
}

// NewMetricsService registers the service's collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache reads",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache writes",
		Buckets: prometheus.DefBuckets,
	})

	recomputeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grades_recompute_duration_seconds",
		Help:    "Duration of class final grade recomputation",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	recomputeStudents := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "grades_recompute_students",
		Help:    "Number of students ranked per successful recompute",
		Buckets: []float64{5, 10, 20, 40, 80, 160, 320},
	})

	scoresWritten := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grades_scores_written_total",
		Help: "Per-item student scores written",
	}, []string{"source"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLookups, cacheLatency, cacheWrite, recomputeDuration, recomputeStudents, scoresWritten, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLookups:      cacheLookups,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		recomputeDuration: recomputeDuration,
		recomputeStudents: recomputeStudents,
		scoresWritten:     scoresWritten,
	}
}

// Registry exposes the underlying registry for tests and additional collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

// ObserveCacheWrite tracks the duration of cache writes.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveRecompute records one class recompute.
func (m *MetricsService) ObserveRecompute(outcome string, students int, duration time.Duration) {
	if m == nil {
		return
	}
	m.recomputeDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	if outcome == OutcomeSuccess {
		m.recomputeStudents.Observe(float64(students))
	}
}

// AddScoresWritten counts score rows written by a source such as "manual" or "attendance".
func (m *MetricsService) AddScoresWritten(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.scoresWritten.WithLabelValues(source).Add(float64(n))
}

// TrackQueue exposes a job queue's counters as jobs_total{queue,state}.
func (m *MetricsService) TrackQueue(name string, stats func() jobs.Stats) error {
	if m == nil || stats == nil {
		return nil
	}
	states := map[string]func(jobs.Stats) uint64{
		"processed": func(s jobs.Stats) uint64 { return s.Processed },
		"failed":    func(s jobs.Stats) uint64 { return s.Failed },
		"dropped":   func(s jobs.Stats) uint64 { return s.Dropped },
	}
	for state, pick := range states {
		pick := pick
		counter := prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name:        "jobs_total",
			Help:        "Background jobs by final state",
			ConstLabels: prometheus.Labels{"queue": name, "state": state},
		}, func() float64 {
			return float64(pick(stats()))
		})
		if err := m.registry.Register(counter); err != nil {
			return fmt.Errorf("register %s queue metrics: %w", name, err)
		}
	}
	return nil
}
