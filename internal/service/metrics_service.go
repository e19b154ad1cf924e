package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry for the API and the ledger.
// It satisfies ledger.Observer and the mutation and cache recorders.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	mutations       *prometheus.CounterVec
	lockWait        prometheus.Histogram
	commitDuration  prometheus.Histogram
	currentPersons  prometheus.Gauge
	syncJobs        *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	cacheHitCount  uint64
	cacheMissCount uint64
	requestCount   uint64
	mutationCount  uint64
	failedCount    uint64
	persons        int64
}

// MetricsSnapshot is a JSON friendly summary for the admin stats endpoint.
type MetricsSnapshot struct {
	RequestsTotal   uint64    `json:"requests_total"`
	MutationsTotal  uint64    `json:"mutations_total"`
	MutationsFailed uint64    `json:"mutations_failed"`
	CurrentPersons  int64     `json:"current_persons"`
	CacheHitRatio   float64   `json:"cache_hit_ratio"`
	Goroutines      int       `json:"goroutines"`
	GeneratedAt     time.Time `json:"generated_at"`
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
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_mutations_total",
			Help: "Roster mutations by action and outcome",
		}, []string{"action", "outcome"}),
		lockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "roster_lock_wait_seconds",
			Help:    "Time writers waited for the ledger write section",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 2.5, 5},
		}),
		commitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "roster_commit_duration_seconds",
			Help:    "Duration of durable ledger commits",
			Buckets: prometheus.DefBuckets,
		}),
		currentPersons: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roster_current_persons",
			Help: "Persons in the current roster projection",
		}),
		syncJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_sync_jobs_total",
			Help: "Replication jobs by outcome",
		}, []string{"outcome"}),
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
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		m.requestDuration, m.requestTotal,
		m.mutations, m.lockWait, m.commitDuration, m.currentPersons, m.syncJobs,
		m.cacheLatency, m.cacheWrite,
		m.cacheHitRatio, m.cacheHits, m.cacheMisses, goroutines,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Registry exposes the registry for tests and extra collectors.
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
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
}

// RecordMutation counts a roster mutation outcome.
func (m *MetricsService) RecordMutation(action, outcome string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(action, outcome).Inc()
	atomic.AddUint64(&m.mutationCount, 1)
	if outcome != "ok" {
		atomic.AddUint64(&m.failedCount, 1)
	}
}

// ObserveLockWait implements ledger.Observer.
func (m *MetricsService) ObserveLockWait(d time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.Observe(d.Seconds())
}

// ObserveCommit implements ledger.Observer.
func (m *MetricsService) ObserveCommit(d time.Duration) {
	if m == nil {
		return
	}
	m.commitDuration.Observe(d.Seconds())
}

// SetCurrentPersons implements ledger.Observer.
func (m *MetricsService) SetCurrentPersons(n int) {
	if m == nil {
		return
	}
	m.currentPersons.Set(float64(n))
	atomic.StoreInt64(&m.persons, int64(n))
}

// RecordSync counts a replication job outcome.
func (m *MetricsService) RecordSync(outcome string) {
	if m == nil {
		return
	}
	m.syncJobs.WithLabelValues(outcome).Inc()
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
	m.cacheHitRatio.Set(m.hitRatio())
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

func (m *MetricsService) hitRatio() float64 {
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		RequestsTotal:   atomic.LoadUint64(&m.requestCount),
		MutationsTotal:  atomic.LoadUint64(&m.mutationCount),
		MutationsFailed: atomic.LoadUint64(&m.failedCount),
		CurrentPersons:  atomic.LoadInt64(&m.persons),
		CacheHitRatio:   m.hitRatio(),
		Goroutines:      runtime.NumGoroutine(),
		GeneratedAt:     time.Now().UTC(),
	}
}
