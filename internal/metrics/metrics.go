// Package metrics exposes Prometheus counters for the control loop.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters one control plane instance updates.
type Metrics struct {
	Ticks           prometheus.Counter
	TickFailures    prometheus.Counter
	ProbeFailures   *prometheus.CounterVec
	StaleFound      prometheus.Counter
	Reclaimed       prometheus.Counter
	ReclaimFailures prometheus.Counter
	PendingSelected prometheus.Counter
}

// New registers the counters on reg. Call once per process.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Ticks: f.NewCounter(prometheus.CounterOpts{
			Name: "driveplane_ticks_total",
			Help: "Control-loop ticks started.",
		}),
		TickFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "driveplane_tick_failures_total",
			Help: "Control-loop ticks that ended in error.",
		}),
		ProbeFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "driveplane_probe_failures_total",
			Help: "Health probes that reported a system unavailable.",
		}, []string{"system"}),
		StaleFound: f.NewCounter(prometheus.CounterOpts{
			Name: "driveplane_stale_records_total",
			Help: "In-process records classified stale.",
		}),
		Reclaimed: f.NewCounter(prometheus.CounterOpts{
			Name: "driveplane_reclaimed_records_total",
			Help: "Stale records reset to PENDING.",
		}),
		ReclaimFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "driveplane_reclaim_failures_total",
			Help: "Stale records whose reset failed.",
		}),
		PendingSelected: f.NewCounter(prometheus.CounterOpts{
			Name: "driveplane_pending_selected_total",
			Help: "Admissible pending records handed to the pipeline.",
		}),
	}
}

// Nop returns metrics backed by a throwaway registry, for callers that
// do not scrape.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}
