package recalc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "gridcalc"
	metricsSubsystem = "recalc"
)

// Metrics holds the Prometheus instruments updated after every pass.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Passes counts completed passes by kind (full, incremental).
	Passes *prometheus.CounterVec

	// CellsRecomputed counts formula cells recomputed.
	CellsRecomputed prometheus.Counter

	// UnknownDeps counts evaluations of cells with dynamic references.
	UnknownDeps prometheus.Counter

	// SCCIterations counts iteration rounds over cyclic components.
	SCCIterations prometheus.Counter

	// Unconverged counts cyclic components marked #CYCLE!.
	Unconverged prometheus.Counter

	// PassDuration observes the wall time of each pass.
	PassDuration prometheus.Histogram
}

// NewMetrics registers the recalc instruments with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Passes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "passes_total",
			Help:      "Recalculation passes by kind",
		}, []string{"kind"}),
		CellsRecomputed: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "cells_recomputed_total",
			Help:      "Formula cells recomputed",
		}),
		UnknownDeps: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "unknown_deps_recomputed_total",
			Help:      "Cells with dynamic references recomputed",
		}),
		SCCIterations: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "scc_iterations_total",
			Help:      "Iteration rounds over circular components",
		}),
		Unconverged: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "unconverged_sccs_total",
			Help:      "Circular components that hit the iteration cap",
		}),
		PassDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "pass_duration_seconds",
			Help:      "Wall time of a recalculation pass",
			Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
		}),
	}
}

func (m *Metrics) observe(kind string, r *Report, sccRounds, unconverged int) {
	if m == nil {
		return
	}
	m.Passes.WithLabelValues(kind).Inc()
	m.CellsRecomputed.Add(float64(r.CellsRecomputed))
	m.UnknownDeps.Add(float64(r.UnknownDepsRecomputed))
	m.SCCIterations.Add(float64(sccRounds))
	m.Unconverged.Add(float64(unconverged))
	m.PassDuration.Observe(r.Duration.Seconds())
}
