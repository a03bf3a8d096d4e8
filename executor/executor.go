// Package executor runs submitted tasks on a fixed set of worker goroutines.
//
// Each worker owns an unbounded FIFO, so Submit never blocks. Submit spreads
// tasks round robin; SubmitKeyed pins every task with the same key to one
// worker, which runs them in submission order. A panicking task is recovered,
// logged and counted, and its worker keeps running.
package executor

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrClosed is returned when submitting to an executor that has been closed.
var ErrClosed = errors.New("executor: closed")

// Stats is a point-in-time view of an executor's counters.
type Stats struct {
	Submitted uint64
	Completed uint64
	Panicked  uint64
	Workers   int
}

// Pending returns the number of accepted tasks that have not finished.
func (s Stats) Pending() uint64 {
	if s.Completed >= s.Submitted {
		return 0
	}
	return s.Submitted - s.Completed
}

type Option func(*Executor)

// WithLogger sets the logger used to report recovered panics.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

type Executor struct {
	id      string
	logger  *zap.Logger
	workers []*worker
	next    atomic.Uint64
	wg      sync.WaitGroup
	closing sync.Once

	submitted atomic.Uint64
	completed atomic.Uint64
	panicked  atomic.Uint64
}

// New starts cfg.Workers workers. They run until Close.
func New(cfg Config, opts ...Option) *Executor {
	cfg = NewConfig(cfg.Workers, cfg.BufferSize)
	e := &Executor{
		id:     uuid.New().String(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.workers = make([]*worker, cfg.Workers)
	ready := sync.WaitGroup{}
	for i := range e.workers {
		w := newWorker(i, e, cfg.BufferSize)
		e.workers[i] = w
		e.wg.Add(1)
		ready.Add(1)
		go func() {
			defer e.wg.Done()
			ready.Done()
			w.run()
		}()
	}
	ready.Wait()

	e.logger.Debug("executor started",
		zap.String("executor", e.id),
		zap.Int("workers", cfg.Workers),
		zap.Int("buffer_size", cfg.BufferSize),
	)
	return e
}

// ID returns the executor's unique id.
func (e *Executor) ID() string {
	return e.id
}

// NumWorkers returns the number of worker goroutines.
func (e *Executor) NumWorkers() int {
	return len(e.workers)
}

// Submit queues task on the next worker in round robin order.
func (e *Executor) Submit(task func()) error {
	idx := (e.next.Add(1) - 1) % uint64(len(e.workers))
	return e.submitTo(e.workers[idx], task)
}

// SubmitKeyed queues task on the worker chosen by key. Tasks sharing a key
// run one at a time, in the order they were submitted.
func (e *Executor) SubmitKeyed(key string, task func()) error {
	return e.submitTo(e.workers[indexOf(key, len(e.workers))], task)
}

func (e *Executor) submitTo(w *worker, task func()) error {
	if !w.enqueue(task) {
		return ErrClosed
	}
	return nil
}

// Close stops accepting tasks, lets every worker drain what it already holds
// and waits for them to exit. Calling it again has no effect.
func (e *Executor) Close() {
	e.closing.Do(func() {
		for _, w := range e.workers {
			w.shutdown()
		}
		e.wg.Wait()
		e.logger.Debug("executor closed",
			zap.String("executor", e.id),
			zap.Uint64("completed", e.completed.Load()),
			zap.Uint64("panicked", e.panicked.Load()),
		)
	})
}

// Stats reads completed before submitted, so a snapshot never shows more
// completed tasks than submitted ones.
func (e *Executor) Stats() Stats {
	completed := e.completed.Load()
	panicked := e.panicked.Load()
	return Stats{
		Submitted: e.submitted.Load(),
		Completed: completed,
		Panicked:  panicked,
		Workers:   len(e.workers),
	}
}

func indexOf(key string, n int) int {
	switch n {
	case 0:
		panic("number of workers cannot be 0")
	case 1:
		return 0
	default:
		return int(xxhash.Sum64String(key) % uint64(n))
	}
}
