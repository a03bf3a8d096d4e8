// Package metrics provides pool.Sink implementations that forward excess-miss
// reports to a zap logger or to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/on-the-ground/cellpool/pool"
)

var (
	_ pool.Sink = (*LogSink)(nil)
	_ pool.Sink = (*PromSink)(nil)
)

// LogSink writes every report as a log line. Reports of zero misses are
// logged at Debug so quiet pools stay quiet.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) ObserveMisses(name string, misses uint64) {
	level := zap.InfoLevel
	if misses == 0 {
		level = zap.DebugLevel
	}
	if ce := s.logger.Check(level, "pool misses"); ce != nil {
		ce.Write(zap.String("pool", name), zap.Uint64("misses", misses))
	}
}

// PromSink adds reported misses to a counter labelled by pool name.
type PromSink struct {
	misses *prometheus.CounterVec
}

// NewPromSink creates the counter and registers it with reg, if reg is not nil.
func NewPromSink(reg prometheus.Registerer) *PromSink {
	s := &PromSink{
		misses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "cellpool",
				Subsystem: "pool",
				Name:      "misses_total",
				Help:      "Array and object pool misses beyond the pool's capacity.",
			},
			[]string{"pool"},
		),
	}
	if reg != nil {
		reg.MustRegister(s.misses)
	}
	return s
}

func (s *PromSink) ObserveMisses(name string, misses uint64) {
	s.misses.WithLabelValues(name).Add(float64(misses))
}

// Collectors returns the sink's collectors for registering elsewhere.
func (s *PromSink) Collectors() []prometheus.Collector {
	return []prometheus.Collector{s.misses}
}

// Tee fans every report out to each of sinks in order.
type Tee []pool.Sink

func (t Tee) ObserveMisses(name string, misses uint64) {
	for _, s := range t {
		s.ObserveMisses(name, misses)
	}
}
