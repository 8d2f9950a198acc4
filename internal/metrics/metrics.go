package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	PairingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairing_confirmations_total",
			Help: "Pairing confirmations by outcome",
		},
		[]string{"result"},
	)

	PairingCodesPurged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pairing_codes_purged_total",
			Help: "Used or expired pairing codes deleted",
		},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "partner_notifications_total",
			Help: "Partner notifications by outcome",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		PairingsTotal,
		PairingCodesPurged,
		NotificationsTotal,
	)
}

// Handler serves the registered metrics
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRequest records one finished HTTP request
func RecordRequest(method, route, status string, duration time.Duration) {
	RequestsTotal.WithLabelValues(method, route, status).Inc()
	RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
