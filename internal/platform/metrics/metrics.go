package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the guard.
type Metrics struct {
	RunsTotal          prometheus.Counter
	DriftDetectedTotal prometheus.Counter
	SealsAttachedTotal prometheus.Counter
	SealVerifications  *prometheus.CounterVec
	AnchorEntriesTotal prometheus.Counter
	AnchorVerifyBroken prometheus.Counter
	WitnessProbesTotal *prometheus.CounterVec
}

// New creates and registers all guard metrics on the default registry.
func New() *Metrics {
	return newWith(prometheus.DefaultRegisterer)
}

// NewForTesting registers on a private registry so parallel tests never
// collide on duplicate metric names.
func NewForTesting() *Metrics {
	return newWith(prometheus.NewRegistry())
}

func newWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "guard_runs_total",
			Help: "Total evidence pipeline runs.",
		}),
		DriftDetectedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "guard_drift_detected_total",
			Help: "Runs that observed profile drift.",
		}),
		SealsAttachedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "guard_seals_attached_total",
			Help: "Evidence documents sealed.",
		}),
		SealVerifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "guard_seal_verifications_total",
			Help: "Seal verifications by result.",
		}, []string{"result"}),
		AnchorEntriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "guard_anchor_entries_total",
			Help: "Entries appended to the anchor log.",
		}),
		AnchorVerifyBroken: factory.NewCounter(prometheus.CounterOpts{
			Name: "guard_anchor_verify_broken_total",
			Help: "Anchor log verifications that found a broken chain.",
		}),
		WitnessProbesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "guard_witness_probes_total",
			Help: "Time-witness probes by outcome.",
		}, []string{"outcome"}),
	}
}
