// Package metrics holds the Prometheus collectors shared by the HTTP layer
// and the services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medicore_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "pattern", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medicore_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "pattern"},
	)

	// AuthEventsTotal counts authentication operations by outcome
	// ("ok" or the failure kind).
	AuthEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medicore_auth_events_total",
			Help: "Total authentication events by outcome",
		},
		[]string{"event", "outcome"},
	)

	SessionsPurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "medicore_sessions_purged_total",
			Help: "Total number of expired sessions removed by the janitor",
		},
	)

	SearchProviderErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medicore_search_provider_errors_total",
			Help: "Total number of failed search provider calls",
		},
		[]string{"provider"},
	)
)

// AuthEvent records one authentication event.
func AuthEvent(event, outcome string) {
	AuthEventsTotal.WithLabelValues(event, outcome).Inc()
}
