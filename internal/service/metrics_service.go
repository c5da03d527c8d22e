package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-room-schedule/internal/dto"
)

// Reload outcomes used as the "outcome" label.
const (
	ReloadOutcomeSuccess = "success"
	ReloadOutcomeFailed  = "failed"
	ReloadOutcomeShared  = "shared"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	indexLoad       prometheus.Histogram
	indexRooms      prometheus.Gauge
	indexRows       *prometheus.GaugeVec
	reloads         *prometheus.CounterVec
	interactions    *prometheus.CounterVec
	streamClients   prometheus.Gauge

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	reloadOK             uint64
	reloadFailed         uint64
	streamClientCount    int64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache lookups",
			Buckets: prometheus.DefBuckets,
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_write_seconds",
			Help:    "Latency for cache set operations",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cache_hit_ratio",
			Help: "Ratio of cache hits to total cache lookups",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total cache misses",
		}),
		indexLoad: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "schedule_index_load_seconds",
			Help:    "Time to fetch, parse and build the schedule index",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		indexRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "schedule_index_rooms",
			Help: "Rooms in the active schedule index",
		}),
		indexRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "schedule_index_rows",
			Help: "Rows indexed or skipped while building the active index",
		}, []string{"state"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schedule_reloads_total",
			Help: "Schedule reload attempts by outcome",
		}, []string{"outcome"}),
		interactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "interactions_total",
			Help: "Recorded interactions by type and whether the cooldown accepted them",
		}, []string{"type", "accepted"}),
		streamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "filter_stream_clients",
			Help: "Connected filter stream clients",
		}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(m.requestDuration, m.requestTotal, m.cacheLatency,
		m.cacheWrite, m.cacheHitRatio, m.cacheHits, m.cacheMisses,
		m.indexLoad, m.indexRooms, m.indexRows, m.reloads, m.interactions,
		m.streamClients, goroutines)

	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
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

// Registry exposes the underlying registry for tests.
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
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
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

// ObserveReload records the outcome of a reload. Index gauges only move on success.
func (m *MetricsService) ObserveReload(outcome string, duration time.Duration, result dto.ReloadResult) {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues(outcome).Inc()
	switch outcome {
	case ReloadOutcomeSuccess:
		atomic.AddUint64(&m.reloadOK, 1)
		m.indexLoad.Observe(duration.Seconds())
		m.indexRooms.Set(float64(result.Rooms))
		m.indexRows.WithLabelValues("indexed").Set(float64(result.RowsIndexed))
		m.indexRows.WithLabelValues("skipped").Set(float64(result.RowsSkipped))
	case ReloadOutcomeFailed:
		atomic.AddUint64(&m.reloadFailed, 1)
	}
}

// ObserveInteraction counts an interaction event.
func (m *MetricsService) ObserveInteraction(kind string, accepted bool) {
	if m == nil {
		return
	}
	m.interactions.WithLabelValues(kind, fmt.Sprintf("%t", accepted)).Inc()
}

// StreamClientConnected adjusts the connected stream client gauge by delta.
func (m *MetricsService) StreamClientConnected(delta int64) {
	if m == nil {
		return
	}
	m.streamClients.Set(float64(atomic.AddInt64(&m.streamClientCount, delta)))
}

// Snapshot returns aggregated metrics for the JSON metrics endpoint.
func (m *MetricsService) Snapshot() dto.MetricsSnapshot {
	if m == nil {
		return dto.MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return dto.MetricsSnapshot{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		ReloadsSucceeded:         atomic.LoadUint64(&m.reloadOK),
		ReloadsFailed:            atomic.LoadUint64(&m.reloadFailed),
		StreamClients:            atomic.LoadInt64(&m.streamClientCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
