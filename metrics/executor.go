package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/on-the-ground/cellpool/executor"
)

// StatsSource is anything that can report executor counters.
type StatsSource interface {
	ID() string
	Stats() executor.Stats
}

// NewExecutorCollectors returns counters and a gauge that read src on every
// scrape, labelled with the executor id.
func NewExecutorCollectors(src StatsSource) []prometheus.Collector {
	labels := prometheus.Labels{"executor": src.ID()}
	counter := func(name, help string, read func(executor.Stats) uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace:   "cellpool",
				Subsystem:   "executor",
				Name:        name,
				Help:        help,
				ConstLabels: labels,
			},
			func() float64 { return float64(read(src.Stats())) },
		)
	}
	return []prometheus.Collector{
		counter("tasks_submitted_total", "Tasks accepted by the executor.",
			func(s executor.Stats) uint64 { return s.Submitted }),
		counter("tasks_completed_total", "Tasks that finished, including those that panicked.",
			func(s executor.Stats) uint64 { return s.Completed }),
		counter("tasks_panicked_total", "Tasks that panicked.",
			func(s executor.Stats) uint64 { return s.Panicked }),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace:   "cellpool",
				Subsystem:   "executor",
				Name:        "tasks_pending",
				Help:        "Accepted tasks that have not finished.",
				ConstLabels: labels,
			},
			func() float64 { return float64(src.Stats().Pending()) },
		),
	}
}
