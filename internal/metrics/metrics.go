// Package metrics defines the Prometheus collectors of a scene.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cook results used as the "result" label.
const (
	ResultOK        = "ok"
	ResultError     = "error"
	ResultStale     = "stale"
	ResultBypassed  = "bypassed"
	ResultCancelled = "cancelled"
)

// Collectors groups the metrics of one scene. Every scene owns its own set,
// so several scenes can live in one process without clashing.
type Collectors struct {
	// Cooks counts finished cooks, labeled by node type and result.
	Cooks *prometheus.CounterVec
	// CookDuration measures compute step time by node type.
	CookDuration *prometheus.HistogramVec
	// DirtyTraversals counts vertices visited by dirty propagation.
	DirtyTraversals prometheus.Counter
	// DirtyMarks counts vertices that actually changed to dirty.
	DirtyMarks prometheus.Counter
	// Nodes tracks the number of live nodes, root included.
	Nodes prometheus.Gauge
	// CookCallers tracks Compute callers waiting on a cook, including the
	// one running it.
	CookCallers prometheus.Gauge
}

// New creates the collectors and registers them on reg. A nil reg creates
// unregistered collectors.
func New(reg prometheus.Registerer) *Collectors {
	factory := promauto.With(reg)
	return &Collectors{
		Cooks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cookgrid_cooks_total",
				Help: "Total number of node cooks, by node type and result",
			},
			[]string{"type", "result"},
		),
		CookDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "cookgrid_cook_duration_seconds",
				Help: "Duration of node compute steps in seconds",
				// From in-memory math up to network-backed kinds.
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"type"},
		),
		DirtyTraversals: factory.NewCounter(prometheus.CounterOpts{
			Name: "cookgrid_dirty_traversals_total",
			Help: "Total number of dependency graph vertices visited while propagating dirty state",
		}),
		DirtyMarks: factory.NewCounter(prometheus.CounterOpts{
			Name: "cookgrid_dirty_marks_total",
			Help: "Total number of vertices that transitioned to dirty",
		}),
		Nodes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cookgrid_nodes",
			Help: "Number of live nodes in the scene",
		}),
		CookCallers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cookgrid_cook_callers",
			Help: "Number of Compute callers waiting on a cook in flight",
		}),
	}
}
