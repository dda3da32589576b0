package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "khbroker_http_requests_total",
		Help: "Total HTTP requests by route, method, and status.",
	}, []string{"route", "method", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "khbroker_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	// KudosMinted and KudosBurned track the net flow through
	// modify_kudos(accumulated) — mint on worker contribution/uptime
	// reward, burn on user consumption.
	KudosMinted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "khbroker_kudos_minted_total",
		Help: "Total kudos credited via contributions and uptime rewards.",
	})
	KudosBurned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "khbroker_kudos_burned_total",
		Help: "Total kudos debited via prompt submission consumption.",
	})
	KudosTransferred = promauto.NewCounter(prometheus.CounterOpts{
		Name: "khbroker_kudos_transferred_total",
		Help: "Total kudos moved by successful user-to-user transfers.",
	})

	// QueueDepth is the current total_pending_iterations() across the
	// prompt index.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "khbroker_queue_depth",
		Help: "Sum of remaining iterations across all waiting prompts.",
	})

	// MatcherAttempts tags every check-in matching attempt by its
	// outcome (dispatched, or the skip_reason of the last candidate).
	MatcherAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "khbroker_matcher_attempts_total",
		Help: "Worker check-in matching attempts by outcome.",
	}, []string{"outcome"})

	// JanitorSweeps counts every janitor pass and the number of prompts
	// it evicted.
	JanitorSweeps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "khbroker_janitor_sweeps_total",
		Help: "Total prompt-staleness janitor sweeps run.",
	})
	JanitorEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "khbroker_janitor_evictions_total",
		Help: "Total stale prompts evicted across all sweeps.",
	})

	// WorkersLive is a point-in-time gauge of non-stale workers,
	// refreshed by the engine's AvailableModels and CountActiveServers.
	WorkersLive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "khbroker_workers_live",
		Help: "Number of workers not currently stale.",
	})

	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "khbroker_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open) by name.",
	}, []string{"name", "operation"})

	snapshotDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "khbroker_snapshot_duration_seconds",
		Help:    "Duration of persistence snapshot writes.",
		Buckets: prometheus.DefBuckets,
	})
)

// RecordCircuitBreakerStatus publishes the current state of a named
// circuit breaker; called by CircuitBreaker.Call on every invocation.
func RecordCircuitBreakerStatus(name, operation string, state int) {
	circuitBreakerState.WithLabelValues(name, operation).Set(float64(state))
}

// RecordSnapshotDuration publishes how long one snapshot write took.
func RecordSnapshotDuration(d time.Duration) {
	snapshotDuration.Observe(d.Seconds())
}

// HTTPMetricsMiddleware records request count and latency by route.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if pattern := rc.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		httpRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(ww.Status())).Inc()
		httpRequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
