package docstore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "launcher"

// Load outcomes reported by Metrics.
const (
	LoadLoaded    = "loaded"
	LoadCreated   = "created"
	LoadRecovered = "recovered"
)

// Metrics holds Prometheus metrics shared by every document manager. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Persists         *prometheus.CounterVec
	PersistDuration  *prometheus.HistogramVec
	Loads            *prometheus.CounterVec
	SkippedMutations *prometheus.CounterVec
}

// NewMetrics creates document metrics and registers them on reg. A nil reg
// leaves the collectors unregistered, which is convenient in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Persists: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "persists_total",
			Help:      "Total number of document persists, by document and result.",
		}, []string{"document", "result"}),
		PersistDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "persist_duration_seconds",
			Help:      "Time spent encoding and writing a document.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"document"}),
		Loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "loads_total",
			Help:      "Total number of document loads, by document and outcome.",
		}, []string{"document", "outcome"}),
		SkippedMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "skipped_mutations_total",
			Help:      "Mutations that reported no change and did not persist.",
		}, []string{"document"}),
	}

	if reg != nil {
		reg.MustRegister(m.Persists, m.PersistDuration, m.Loads, m.SkippedMutations)
	}
	return m
}

func (m *Metrics) observePersist(document string, started time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Persists.WithLabelValues(document, result).Inc()
	m.PersistDuration.WithLabelValues(document).Observe(time.Since(started).Seconds())
}

func (m *Metrics) observeLoad(document, outcome string) {
	if m == nil {
		return
	}
	m.Loads.WithLabelValues(document, outcome).Inc()
}

func (m *Metrics) observeSkipped(document string) {
	if m == nil {
		return
	}
	m.SkippedMutations.WithLabelValues(document).Inc()
}
