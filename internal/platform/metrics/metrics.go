package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds HTTP-level Prometheus metrics shared by all handlers.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
}

// New creates and registers all HTTP-level metrics.
func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cafeteria_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by path and status",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"path", "status"}),
	}
}

// ObserveRequest records the duration of a handled HTTP request.
func (m *Metrics) ObserveRequest(path, status string, d time.Duration) {
	if m != nil {
		m.RequestDuration.WithLabelValues(path, status).Observe(d.Seconds())
	}
}
