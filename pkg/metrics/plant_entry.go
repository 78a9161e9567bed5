package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OperationSubmit = "submit"
	OperationCancel = "cancel"

	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// PlantEntryMetrics records commit and reversal outcomes of plant entries.
type PlantEntryMetrics struct {
	transitions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewPlantEntryMetrics registers the plant entry metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewPlantEntryMetrics(reg prometheus.Registerer) *PlantEntryMetrics {
	if reg == nil {
		return &PlantEntryMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "plant_entry_transitions_total",
		Help: "Plant entry submit and cancel attempts by outcome.",
	}, []string{"operation", "purpose", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "plant_entry_transition_duration_seconds",
		Help:    "Duration of plant entry submit and cancel operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "purpose"})
	reg.MustRegister(transitions, duration)
	return &PlantEntryMetrics{
		transitions: transitions,
		duration:    duration,
	}
}

// Observe records one attempt.
func (m *PlantEntryMetrics) Observe(operation, purpose, outcome string, elapsed time.Duration) {
	if m == nil || m.transitions == nil {
		return
	}
	purpose = normalizeLabel(purpose)
	m.transitions.WithLabelValues(normalizeLabel(operation), purpose, normalizeLabel(outcome)).Inc()
	m.duration.WithLabelValues(normalizeLabel(operation), purpose).Observe(elapsed.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
