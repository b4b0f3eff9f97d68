package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BackendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "karpool", Name: "backend_requests_total", Help: "Calls made to the backend API"},
		[]string{"method", "endpoint", "status"},
	)
	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "karpool",
			Name:      "backend_request_duration_seconds",
			Help:      "Backend API latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
	MissingCredentialsTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "karpool", Name: "missing_credentials_total", Help: "Authenticated calls blocked for lack of a token"})
	StaleResponsesTotal     = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "karpool", Name: "stale_responses_total", Help: "Responses discarded because a newer call superseded them"},
		[]string{"resource"},
	)
	LifecycleActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "karpool", Name: "lifecycle_actions_total", Help: "Trip and join-request actions by outcome"},
		[]string{"action", "outcome"},
	)
	AlertsTotal   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "karpool", Name: "alerts_total", Help: "User-facing alerts raised"})
	PushClients   = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "karpool", Name: "push_clients", Help: "Connected UI shells"})
	LocalRequests = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "karpool",
			Name:      "local_api_request_duration_seconds",
			Help:      "Local API latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// ObserveBackend records one backend call. status is "error" when no
// response arrived.
func ObserveBackend(method, endpoint, status string, elapsed time.Duration) {
	BackendRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	BackendRequestDuration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}
