package pool_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/on-the-ground/cellpool/pool"
)

type recordingSink struct {
	mu      sync.Mutex
	reports map[string][]uint64
}

func newRecordingSink() *recordingSink {
	return &recordingSink{reports: make(map[string][]uint64)}
}

func (s *recordingSink) ObserveMisses(name string, misses uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[name] = append(s.reports[name], misses)
}

func (s *recordingSink) get(name string) []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.reports[name]...)
}

func TestReport_DrainsExcessMisses(t *testing.T) {
	sink := newRecordingSink()
	p := pool.NewObjectPool(1, func() int { return 0 },
		pool.WithName("cells"),
		pool.WithSink(sink),
		pool.WithReportInterval(time.Hour),
	)

	for i := 0; i < 4; i++ {
		p.Get()
	}
	require.Equal(t, uint64(3), p.MissCount())

	p.Report()
	assert.Equal(t, []uint64{3}, sink.get("cells"))
	assert.Equal(t, uint64(0), p.MissCount(), "report resets the excess counter")

	p.Get()
	assert.Equal(t, uint64(1), p.MissCount(), "capacity baseline is not granted twice")
}

func TestReport_IsTimeGated(t *testing.T) {
	sink := newRecordingSink()
	p := pool.NewArrayPool(0, func(n int) []byte { return make([]byte, n) },
		pool.WithName("bytes"),
		pool.WithSink(sink),
		pool.WithReportInterval(time.Hour),
	)

	p.Get(1)
	p.Report()
	p.Get(1)
	p.Report()

	assert.Equal(t, []uint64{1}, sink.get("bytes"), "second report inside the interval is skipped")
	assert.Equal(t, uint64(1), p.MissCount(), "skipped report leaves the counter alone")
}

func TestReporter_RunReportsUntilCancelled(t *testing.T) {
	got := make(chan uint64, 16)
	sink := pool.SinkFunc(func(_ string, misses uint64) {
		select {
		case got <- misses:
		default:
		}
	})
	p := pool.NewObjectPool(0, func() int { return 0 },
		pool.WithSink(sink),
		pool.WithReportInterval(time.Nanosecond),
	)
	p.Get()

	ctx, cancel := context.WithCancel(context.Background())
	r := pool.NewReporter(5*time.Millisecond, p)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx)
	}()

	select {
	case misses := <-got:
		assert.Equal(t, uint64(1), misses)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a report")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reporter did not stop after cancel")
	}
}

func TestReporter_ReportCoversAddedPools(t *testing.T) {
	sink := newRecordingSink()
	a := pool.NewObjectPool(0, func() int { return 0 }, pool.WithName("a"), pool.WithSink(sink))
	b := pool.NewObjectPool(0, func() int { return 0 }, pool.WithName("b"), pool.WithSink(sink))
	a.Get()
	b.Get()
	b.Get()

	r := pool.NewReporter(time.Second, a)
	r.Add(b)
	r.Report()

	assert.Equal(t, []uint64{1}, sink.get("a"))
	assert.Equal(t, []uint64{2}, sink.get("b"))
}
