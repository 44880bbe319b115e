package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/campus-timetable-api/internal/models"
)

// Generator outcome labels.
const (
	GeneratorOutcomeDrafts    = "drafts"
	GeneratorOutcomeEmpty     = "empty"
	GeneratorOutcomeTruncated = "truncated"
	GeneratorOutcomeError     = "error"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	cacheLatency      prometheus.Observer
	cacheWrite        prometheus.Observer
	cacheHitRatio     prometheus.Gauge
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	dbQueryDuration   *prometheus.HistogramVec
	generatorRuns     *prometheus.CounterVec
	generatorDuration prometheus.Observer
	generatorDrafts   prometheus.Observer
	scheduleConflicts *prometheus.CounterVec

	cacheHitCount          uint64
	cacheMissCount         uint64
	requestCount           uint64
	requestDurationTotal   uint64
	generatorRunCount      uint64
	generatorDurationTotal uint64
	draftCount             uint64
}

// NewMetricsService registers core Prometheus collectors.
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	generatorRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_generator_runs_total",
		Help: "Timetable generator invocations by outcome",
	}, []string{"outcome"})

	generatorDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_generator_duration_seconds",
		Help:    "Time spent enumerating timetable drafts",
		Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 2.5, 5, 10},
	})

	generatorDrafts := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_generator_drafts",
		Help:    "Number of drafts returned per generator run",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
	})

	scheduleConflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_schedule_conflicts_total",
		Help: "Rejected timetable writes by conflict type",
	}, []string{"type"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		dbQueryDuration, generatorRuns, generatorDuration, generatorDrafts, scheduleConflicts, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHitRatio:     cacheHitRatio,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		dbQueryDuration:   dbQueryDuration,
		generatorRuns:     generatorRuns,
		generatorDuration: generatorDuration,
		generatorDrafts:   generatorDrafts,
		scheduleConflicts: scheduleConflicts,
	}
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

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// ObserveGeneratorRun records one generator invocation.
func (m *MetricsService) ObserveGeneratorRun(outcome string, drafts int, duration time.Duration) {
	if m == nil {
		return
	}
	m.generatorRuns.WithLabelValues(outcome).Inc()
	m.generatorDuration.Observe(duration.Seconds())
	m.generatorDrafts.Observe(float64(drafts))
	atomic.AddUint64(&m.generatorRunCount, 1)
	atomic.AddUint64(&m.generatorDurationTotal, uint64(duration.Nanoseconds()))
	atomic.AddUint64(&m.draftCount, uint64(drafts))
}

// RecordScheduleConflict counts a rejected timetable write.
func (m *MetricsService) RecordScheduleConflict(kind string) {
	if m == nil {
		return
	}
	m.scheduleConflicts.WithLabelValues(kind).Inc()
}

// Snapshot returns aggregated metrics suitable for the admin summary endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	runs := atomic.LoadUint64(&m.generatorRunCount)
	runDuration := atomic.LoadUint64(&m.generatorDurationTotal)

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	var avgGeneratorMs float64
	if runs > 0 {
		avgGeneratorMs = float64(runDuration) / float64(runs) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		GeneratorRuns:            runs,
		DraftsGenerated:          atomic.LoadUint64(&m.draftCount),
		AverageGeneratorMs:       avgGeneratorMs,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
