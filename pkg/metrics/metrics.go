package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Fleet metrics
	TentaclesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tentacle_fleet_tentacles_total",
			Help: "Total number of tentacles currently in the fleet",
		},
	)

	TentaclesByBuildStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tentacle_build_status_total",
			Help: "Number of tentacles by build status (unknown, success, failure)",
		},
		[]string{"status"},
	)

	TentaclesByStartStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tentacle_start_status_total",
			Help: "Number of tentacles by start status (unknown, success, failure)",
		},
		[]string{"status"},
	)

	// Build / start operation metrics
	BuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tentacle_build_duration_seconds",
			Help:    "Time taken to run a tentacle's full build pipeline in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	BuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tentacle_builds_total",
			Help: "Total number of build attempts by outcome",
		},
		[]string{"outcome"},
	)

	StartsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tentacle_starts_total",
			Help: "Total number of start attempts by outcome",
		},
		[]string{"outcome"},
	)

	StopsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tentacle_stops_total",
			Help: "Total number of stop operations performed",
		},
	)

	// Fleet controller metrics
	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tentacle_reconciliation_duration_seconds",
			Help:    "Time taken for the fleet controller's startup reconciliation pass",
			Buckets: prometheus.DefBuckets,
		},
	)

	WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tentacle_webhook_events_total",
			Help: "Total number of webhook deliveries handled by outcome",
		},
		[]string{"outcome"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tentacle_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tentacle_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Reverse proxy metrics
	ProxyRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tentacle_proxy_requests_total",
			Help: "Total number of proxied requests by branch and status",
		},
		[]string{"branch", "status"},
	)

	ProxyRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tentacle_proxy_request_duration_seconds",
			Help:    "Proxied request duration in seconds by branch",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"branch"},
	)

	// Event bus metrics
	EventBusSubscribersTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tentacle_eventbus_subscribers_total",
			Help: "Current number of connected websocket event subscribers",
		},
	)

	EventBusPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tentacle_eventbus_events_published_total",
			Help: "Total number of events published on the event bus by type",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(TentaclesTotal)
	prometheus.MustRegister(TentaclesByBuildStatus)
	prometheus.MustRegister(TentaclesByStartStatus)
	prometheus.MustRegister(BuildDuration)
	prometheus.MustRegister(BuildsTotal)
	prometheus.MustRegister(StartsTotal)
	prometheus.MustRegister(StopsTotal)
	prometheus.MustRegister(ReconciliationDuration)
	prometheus.MustRegister(WebhookEventsTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(ProxyRequestsTotal)
	prometheus.MustRegister(ProxyRequestDuration)
	prometheus.MustRegister(EventBusSubscribersTotal)
	prometheus.MustRegister(EventBusPublishedTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
