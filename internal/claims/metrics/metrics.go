package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the claims module.
type Metrics struct {
	// Claim outcomes by result and rejection reason
	ClaimOutcome *prometheus.CounterVec

	// Validation latency of the request path (excludes fulfillment)
	ValidateLatency prometheus.Histogram

	// Pending tasks in the fulfillment queue
	QueueDepth prometheus.Gauge

	// Printer dispatch latency and failures
	DispatchLatency  prometheus.Histogram
	DispatchFailures prometheus.Counter

	// Claims that printed but failed to persist - operator must reconcile
	PersistFailures prometheus.Counter
}

// New creates a new Metrics instance with all claims module metrics registered.
func New() *Metrics {
	return &Metrics{
		ClaimOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cafeteria_claim_outcomes_total",
			Help: "Total claim outcomes by result and rejection reason",
		}, []string{"result", "reason"}), // result: "accepted", "rejected"

		ValidateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "cafeteria_claim_validate_duration_seconds",
			Help:    "Duration of claim validation on the request path",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "cafeteria_fulfillment_queue_depth",
			Help: "Number of fulfillment tasks waiting for the worker",
		}),

		DispatchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "cafeteria_printer_dispatch_duration_seconds",
			Help:    "Duration of printer dispatch attempts",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		DispatchFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cafeteria_printer_dispatch_failures_total",
			Help: "Total failed printer dispatch attempts",
		}),

		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cafeteria_claim_persist_failures_total",
			Help: "Total claims that could not be persisted after validation",
		}),
	}
}

// IncrementOutcome records a claim outcome. Reason is empty for acceptances.
func (m *Metrics) IncrementOutcome(result, reason string) {
	if m != nil {
		m.ClaimOutcome.WithLabelValues(result, reason).Inc()
	}
}

// ObserveValidateLatency records the duration of the validation path.
func (m *Metrics) ObserveValidateLatency(d time.Duration) {
	if m != nil {
		m.ValidateLatency.Observe(d.Seconds())
	}
}

// SetQueueDepth records the current fulfillment backlog.
func (m *Metrics) SetQueueDepth(depth int) {
	if m != nil {
		m.QueueDepth.Set(float64(depth))
	}
}

// ObserveDispatchLatency records the duration of a printer dispatch attempt.
func (m *Metrics) ObserveDispatchLatency(d time.Duration) {
	if m != nil {
		m.DispatchLatency.Observe(d.Seconds())
	}
}

// IncrementDispatchFailures records a failed printer dispatch.
func (m *Metrics) IncrementDispatchFailures() {
	if m != nil {
		m.DispatchFailures.Inc()
	}
}

// IncrementPersistFailures records a claim that validated but never reached
// durable storage.
func (m *Metrics) IncrementPersistFailures() {
	if m != nil {
		m.PersistFailures.Inc()
	}
}
