// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Meeting provider
	ZoomTokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liveacademy_zoom_token_refresh_total",
			Help: "OAuth token refresh attempts by result",
		},
		[]string{"result"}, // success, missing_config, error
	)

	ZoomProvisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liveacademy_zoom_provision_total",
			Help: "Meeting provisioning attempts by result",
		},
		[]string{"result"}, // success, configuration, provider, not_found
	)

	ZoomRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "liveacademy_zoom_request_duration_seconds",
			Help:    "Latency of outbound meeting provider calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	ZoomCircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "liveacademy_zoom_circuit_breaker_state",
			Help: "Meeting API breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Webhook ingestion
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liveacademy_webhook_events_total",
			Help: "Provider webhook events by event type and outcome",
		},
		[]string{"event", "outcome"},
	)

	// Participants
	ParticipantEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liveacademy_participant_events_total",
			Help: "Participant join/leave handling by outcome",
		},
		[]string{"kind", "outcome"}, // join|leave, recorded|dropped|error
	)

	// Realtime
	RealtimeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "liveacademy_realtime_connections",
			Help: "Currently registered socket connections",
		},
	)

	RealtimeEmits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "liveacademy_realtime_emits_total",
			Help: "Realtime frames by target kind and delivery outcome",
		},
		[]string{"kind", "outcome"}, // room|broadcast, delivered|dropped
	)

	// HTTP
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "liveacademy_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Store
	DBWriteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "liveacademy_db_write_duration_seconds",
			Help:    "Time spent executing queued store writes",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)
)

// ObserveHTTP records one request
func ObserveHTTP(method, route string, status int, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// ObserveZoomRequest records the latency of one provider call
func ObserveZoomRequest(operation string, start time.Time) {
	ZoomRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveDBWrite records one queued write
func ObserveDBWrite(err error, d time.Duration) {
	result := "success"
	if err != nil {
		result = "error"
	}
	DBWriteDuration.WithLabelValues(result).Observe(d.Seconds())
}
