package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "code"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "code"},
	)

	// Dispatch
	dispatchAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "post_dispatch_attempts_total",
			Help: "Dispatch attempts by platform and outcome.",
		},
		[]string{"platform", "outcome"},
	)
	dispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "post_dispatch_duration_seconds",
			Help:    "Time spent publishing a single post.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"platform"},
	)

	// Scheduler
	schedulerCycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_cycles_total",
			Help: "Total number of completed scheduler cycles.",
		},
	)
	schedulerPanics = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_cycle_panics_total",
			Help: "Scheduler cycles aborted by a recovered panic.",
		},
	)
	schedulerDuePosts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_due_posts",
			Help: "Due posts found by the last scheduler cycle.",
		},
	)

	// Cache
	cacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Total number of cache requests by operation.",
		},
		[]string{"operation"},
	)
	cacheErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_errors_total",
			Help: "Total number of failed cache requests by operation.",
		},
		[]string{"operation"},
	)
	cacheDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_request_duration_seconds",
			Help:    "Cache request duration in seconds.",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		},
		[]string{"operation"},
	)

	// Media
	mediaOrphansRemoved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "media_orphans_removed_total",
			Help: "Media rows removed because their file no longer exists.",
		},
	)
)

var registerOnce sync.Once

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,

			dispatchAttempts,
			dispatchDuration,

			schedulerCycles,
			schedulerPanics,
			schedulerDuePosts,

			cacheRequests,
			cacheErrors,
			cacheDuration,

			mediaOrphansRemoved,
		)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// --- HTTP ---
func ObserveHTTPRequest(method, route, code string, d time.Duration) {
	httpRequests.WithLabelValues(method, route, code).Inc()
	httpDuration.WithLabelValues(method, route, code).Observe(d.Seconds())
}

// --- Dispatch ---
func ObserveDispatch(platform string, success bool, d time.Duration) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	dispatchAttempts.WithLabelValues(platform, outcome).Inc()
	dispatchDuration.WithLabelValues(platform).Observe(d.Seconds())
}

// --- Scheduler ---
func IncSchedulerCycle() { schedulerCycles.Inc() }
func IncSchedulerPanic() { schedulerPanics.Inc() }
func SetDuePosts(n int)  { schedulerDuePosts.Set(float64(n)) }

// --- Cache ---
func IncCacheRequest(op string) { cacheRequests.WithLabelValues(op).Inc() }
func IncCacheError(op string)   { cacheErrors.WithLabelValues(op).Inc() }
func ObserveCacheDuration(op string, d time.Duration) {
	cacheDuration.WithLabelValues(op).Observe(d.Seconds())
}

// --- Media ---
func AddMediaOrphans(n int) { mediaOrphansRemoved.Add(float64(n)) }
