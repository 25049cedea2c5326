package observer

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricsEnabled = true

var (
	httpRequestLabels = []string{"method", "route", "status"}
	dbOperationLabels = []string{"operation", "entity", "status"}

	// HTTPRequestDurationSeconds tracks latency of API requests.
	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voicedash_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route and status.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		httpRequestLabels,
	)

	// DBOperationDurationSeconds tracks latency of storage operations.
	DBOperationDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voicedash_db_operation_duration_seconds",
			Help:    "Histogram of database operation durations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
		},
		dbOperationLabels,
	)

	// SyncRunsTotal counts sync runs by outcome.
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicedash_sync_runs_total",
			Help: "Total number of provider sync runs, labeled by outcome.",
		},
		[]string{"status"},
	)

	// SyncRecordsUpsertedTotal counts conversation records upserted by sync.
	SyncRecordsUpsertedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voicedash_sync_records_upserted_total",
			Help: "Total number of conversation records upserted from the provider.",
		},
	)

	// SyncRunDurationSeconds tracks duration of full sync runs.
	SyncRunDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "voicedash_sync_run_duration_seconds",
			Help:    "Histogram of full provider sync run durations.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~3.4min
		},
	)

	// AuthFailuresTotal counts rejected authentications by reason.
	AuthFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicedash_auth_failures_total",
			Help: "Total number of rejected authentication attempts.",
		},
		[]string{"reason"},
	)

	// ProviderRequestsTotal counts upstream provider calls by outcome.
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voicedash_provider_requests_total",
			Help: "Total number of requests made to the voice provider API.",
		},
		[]string{"endpoint", "status"},
	)
)

// InitMetrics enables or disables metric collection globally.
func InitMetrics(enabled bool) {
	metricsEnabled = enabled
}

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if !metricsEnabled {
		return
	}
	HTTPRequestDurationSeconds.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// ObserveDbOperationDuration records the duration and outcome of a DB operation.
func ObserveDbOperationDuration(operation, entity string, duration time.Duration, err error) {
	if !metricsEnabled {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	DBOperationDurationSeconds.WithLabelValues(operation, entity, status).Observe(duration.Seconds())
}

// IncSyncRun records the outcome of one sync run.
func IncSyncRun(status string) {
	if !metricsEnabled {
		return
	}
	SyncRunsTotal.WithLabelValues(status).Inc()
}

// AddSyncRecords adds to the upserted-record counter.
func AddSyncRecords(n int) {
	if !metricsEnabled || n <= 0 {
		return
	}
	SyncRecordsUpsertedTotal.Add(float64(n))
}

// ObserveSyncRun records the duration of a full sync run.
func ObserveSyncRun(duration time.Duration) {
	if !metricsEnabled {
		return
	}
	SyncRunDurationSeconds.Observe(duration.Seconds())
}

// IncAuthFailure records a rejected authentication attempt.
func IncAuthFailure(reason string) {
	if !metricsEnabled {
		return
	}
	AuthFailuresTotal.WithLabelValues(reason).Inc()
}

// IncProviderRequest records one upstream provider call.
func IncProviderRequest(endpoint, status string) {
	if !metricsEnabled {
		return
	}
	ProviderRequestsTotal.WithLabelValues(endpoint, status).Inc()
}
