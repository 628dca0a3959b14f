// Package metrics provides Prometheus instrumentation for the payment
// backend.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zelton",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, path pattern, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "zelton",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// PaymentsInitiatedTotal counts checkout sessions opened by ledger.
	PaymentsInitiatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zelton",
			Name:      "payments_initiated_total",
			Help:      "Total payment initiations by ledger (rent, subscription).",
		},
		[]string{"ledger"},
	)

	// PaymentsSettledTotal counts terminal payment transitions.
	PaymentsSettledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zelton",
			Name:      "payments_settled_total",
			Help:      "Total payments driven to a terminal state, by outcome.",
		},
		[]string{"outcome"},
	)

	// ReconcileSweepsTotal counts reconciliation sweeps run.
	ReconcileSweepsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "zelton",
		Name:      "reconcile_sweeps_total",
		Help:      "Total reconciliation sweeps run.",
	})

	// ReconcileChecksTotal counts gateway status checks.
	ReconcileChecksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "zelton",
		Name:      "reconcile_checks_total",
		Help:      "Total gateway status checks performed by the reconciler.",
	})

	// ReconcileSettledTotal counts transactions settled by the reconciler.
	ReconcileSettledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zelton",
			Name:      "reconcile_settled_total",
			Help:      "Transactions the reconciler drove to a terminal state, by outcome.",
		},
		[]string{"outcome"},
	)

	// ReconcileErrorsTotal counts reconciliation attempts that errored.
	ReconcileErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "zelton",
		Name:      "reconcile_errors_total",
		Help:      "Total reconciliation attempts that errored.",
	})

	// PayoutsTotal counts payout transfer outcomes.
	PayoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zelton",
			Name:      "payouts_total",
			Help:      "Total payout transfer attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// WebhookCallbacksTotal counts webhook deliveries by type and result.
	WebhookCallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "zelton",
			Name:      "webhook_callbacks_total",
			Help:      "Total webhook callbacks received, by callback type and result.",
		},
		[]string{"type", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		PaymentsInitiatedTotal,
		PaymentsSettledTotal,
		ReconcileSweepsTotal,
		ReconcileChecksTotal,
		ReconcileSettledTotal,
		ReconcileErrorsTotal,
		PayoutsTotal,
		WebhookCallbacksTotal,
	)
}

// Middleware returns a gin middleware that records request metrics.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := prometheus.NewTimer(HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		))

		c.Next()

		timer.ObserveDuration()
		HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			statusBucket(c.Writer.Status()),
		).Inc()
	}
}

// Handler returns the Prometheus metrics handler for /metrics.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

func statusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
