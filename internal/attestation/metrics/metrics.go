package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the attestation registry.
// Tracks lifecycle counts, failures by error code and operation durations.
type Metrics struct {
	AttestationsCreated prometheus.Counter
	AttestationsRevoked prometheus.Counter
	OperationErrors     *prometheus.CounterVec
	OperationDuration   *prometheus.HistogramVec
	EventsPublished     *prometheus.CounterVec
	EventsDropped       *prometheus.CounterVec
}

// New creates a Metrics instance registered with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the collectors with reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not panic.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AttestationsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "trustlink_attestations_created_total",
			Help: "Total number of attestations created",
		}),
		AttestationsRevoked: factory.NewCounter(prometheus.CounterOpts{
			Name: "trustlink_attestations_revoked_total",
			Help: "Total number of attestations revoked",
		}),
		OperationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trustlink_operation_errors_total",
			Help: "Registry operations that failed, by operation and error code",
		}, []string{"operation", "code"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trustlink_operation_duration_seconds",
			Help:    "Duration of registry operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trustlink_events_published_total",
			Help: "Registry events handed to a sink, by sink and kind",
		}, []string{"sink", "kind"}),
		EventsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "trustlink_events_dropped_total",
			Help: "Registry events a sink could not deliver, by sink and kind",
		}, []string{"sink", "kind"}),
	}
}

func (m *Metrics) IncrementCreated() {
	if m == nil {
		return
	}
	m.AttestationsCreated.Inc()
}

func (m *Metrics) IncrementRevoked() {
	if m == nil {
		return
	}
	m.AttestationsRevoked.Inc()
}

// ObserveOperation records the duration of an operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementError(operation, code string) {
	if m == nil {
		return
	}
	m.OperationErrors.WithLabelValues(operation, code).Inc()
}

func (m *Metrics) IncrementPublished(sink, kind string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(sink, kind).Inc()
}

func (m *Metrics) IncrementDropped(sink, kind string) {
	if m == nil {
		return
	}
	m.EventsDropped.WithLabelValues(sink, kind).Inc()
}
