package pool

import (
	"context"
	"sync"
	"time"
)

// Sink receives drained miss counts from Report.
type Sink interface {
	ObserveMisses(pool string, misses uint64)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(pool string, misses uint64)

func (f SinkFunc) ObserveMisses(pool string, misses uint64) {
	f(pool, misses)
}

type nopSink struct{}

func (nopSink) ObserveMisses(string, uint64) {}

// Reportable is any pool that can drain its misses into a sink.
type Reportable interface {
	Name() string
	Report()
}

var (
	_ Reportable = (*ArrayPool[byte])(nil)
	_ Reportable = (*ObjectPool[int])(nil)
)

// Reporter drives Report on a set of pools on a schedule the caller owns.
type Reporter struct {
	interval time.Duration

	mu    sync.Mutex
	pools []Reportable
}

// NewReporter returns a reporter that ticks every interval once Run is called.
func NewReporter(interval time.Duration, pools ...Reportable) *Reporter {
	if interval <= 0 {
		interval = DefaultReportInterval
	}
	return &Reporter{interval: interval, pools: pools}
}

// Add registers another pool.
func (r *Reporter) Add(p Reportable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pools = append(r.pools, p)
}

// Report calls Report on every registered pool.
func (r *Reporter) Report() {
	r.mu.Lock()
	pools := append([]Reportable(nil), r.pools...)
	r.mu.Unlock()
	for _, p := range pools {
		p.Report()
	}
}

// Run reports on every tick until ctx is done. It blocks; start it on a
// goroutine of your own.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Report()
		}
	}
}
