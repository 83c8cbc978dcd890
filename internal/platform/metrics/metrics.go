package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	Transitions          *prometheus.CounterVec
	NotificationsCreated prometheus.Counter
	NotificationsPushed  prometheus.Counter
	PushFailures         prometheus.Counter
	LiveConnections      prometheus.Gauge
	RequestLatency       *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "vigil_state_transitions_total",
			Help: "Total number of applied risk level transitions, by new level",
		}, []string{"level"}),
		NotificationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigil_notifications_created_total",
			Help: "Total number of notification rows persisted",
		}),
		NotificationsPushed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigil_notifications_pushed_total",
			Help: "Total number of notifications delivered over a live stream",
		}),
		PushFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigil_push_failures_total",
			Help: "Total number of live push attempts that failed",
		}),
		LiveConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "vigil_live_connections",
			Help: "Number of currently registered push streams",
		}),
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vigil_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// ObserveRequest records one HTTP request observation.
func (m *Metrics) ObserveRequest(route, status string, d time.Duration) {
	m.RequestLatency.WithLabelValues(route, status).Observe(d.Seconds())
}
