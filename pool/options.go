package pool

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultReportInterval is the minimum spacing between two emissions of Report
// for a single pool.
const DefaultReportInterval = time.Second

// Option configures a pool at construction.
type Option func(*options)

type options struct {
	name     string
	logger   *zap.Logger
	sink     Sink
	interval time.Duration
	cleanup  any
}

// WithName sets the label used in logs and miss reports.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger sets the logger. Pools log at debug level only.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithSink sets where Report emits drained miss counts.
func WithSink(sink Sink) Option {
	return func(o *options) { o.sink = sink }
}

// WithReportInterval sets the minimum spacing between two emissions of Report.
func WithReportInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

// WithCleanup sets the hook an ObjectPool runs on every released value before
// offering it back. T must match the pool's element type; a mismatch panics
// when the pool is built.
func WithCleanup[T any](fn func(T)) Option {
	return func(o *options) { o.cleanup = fn }
}

func newOptions(kind string, opts []Option) options {
	o := options{
		interval: DefaultReportInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.name == "" {
		o.name = fmt.Sprintf("%s-%s", kind, uuid.New().String()[:8])
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.sink == nil {
		o.sink = nopSink{}
	}
	if o.interval <= 0 {
		o.interval = DefaultReportInterval
	}
	return o
}
