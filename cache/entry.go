// Package cache provides Entry, a memoizing wrapper around one computed value,
// and Store, a timestamp-expiring map of entries.
//
// An entry is either immediate (built around a value that already exists) or
// pending (built around a computation handed to an Executor). The choice is
// made once, at construction. Any number of goroutines may call Get on the same
// entry; the computation runs once and every caller sees the same outcome.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rickb777/date/v2/timespan"
)

// Executor is the execution facility a pending entry is submitted to.
// A non-nil error means the task was not accepted and will never run.
type Executor interface {
	Submit(task func()) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(task func()) error

func (f ExecutorFunc) Submit(task func()) error {
	return f(task)
}

// Result is one outcome delivered over a completion channel.
type Result[T any] struct {
	Value T
	Err   error
}

// State is the lifecycle position of an entry.
type State int

const (
	Pending State = iota
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

var closedCh = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Entry memoizes a single value. The zero Entry is not usable; build one with
// Wrap, Submit or FromChannel.
type Entry[T any] struct {
	timestamp time.Time

	// exactly one of these is set
	immediate *T
	pending   *completion[T]
}

// Wrap returns a completed entry holding v.
func Wrap[T any](v T) *Entry[T] {
	return &Entry[T]{timestamp: time.Now(), immediate: &v}
}

// Submit hands fn to exec and returns an entry for its outcome. If exec
// refuses the task, the entry is failed at once with the refusal as cause.
// A panic inside fn fails the entry instead of escaping to the executor.
func Submit[T any](fn func() (T, error), exec Executor) *Entry[T] {
	c := newCompletion[T]()
	e := &Entry[T]{timestamp: time.Now(), pending: c}
	if err := exec.Submit(func() { c.run(fn) }); err != nil {
		c.fail(err)
	}
	return e
}

// FromChannel adopts an existing completion channel. The first result received
// decides the outcome; a channel closed without a result fails with ErrNoResult.
func FromChannel[T any](ch <-chan Result[T]) *Entry[T] {
	c := newCompletion[T]()
	e := &Entry[T]{timestamp: time.Now(), pending: c}
	go func() {
		res, ok := <-ch
		switch {
		case !ok:
			c.fail(ErrNoResult)
		case res.Err != nil:
			c.fail(res.Err)
		default:
			c.complete(res.Value, nil)
		}
	}()
	return e
}

// IsDone reports whether the entry has left Pending. It never blocks.
func (e *Entry[T]) IsDone() bool {
	if e.immediate != nil {
		return true
	}
	select {
	case <-e.pending.done:
		return true
	default:
		return false
	}
}

// State returns Pending, Completed or Failed.
func (e *Entry[T]) State() State {
	if e.immediate != nil {
		return Completed
	}
	select {
	case <-e.pending.done:
		if e.pending.err != nil {
			return Failed
		}
		return Completed
	default:
		return Pending
	}
}

// Done returns a channel closed once the entry has left Pending.
func (e *Entry[T]) Done() <-chan struct{} {
	if e.immediate != nil {
		return closedCh
	}
	return e.pending.done
}

// Get blocks until the computation finishes and returns its value. A failed
// computation yields an error matching ErrComputationFailed and its cause;
// every call on a failed entry returns that same error.
func (e *Entry[T]) Get() (T, error) {
	if e.immediate != nil {
		return *e.immediate, nil
	}
	<-e.pending.done
	return e.pending.value, e.pending.err
}

// Wait is Get bounded by ctx. Giving up does not affect the entry.
func (e *Entry[T]) Wait(ctx context.Context) (T, error) {
	if e.immediate != nil {
		return *e.immediate, nil
	}
	select {
	case <-e.pending.done:
		return e.pending.value, e.pending.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Timestamp returns the creation time.
func (e *Entry[T]) Timestamp() time.Time {
	return e.timestamp
}

// Age returns the span from creation to now.
func (e *Entry[T]) Age(now time.Time) timespan.TimeSpan {
	return timespan.BetweenTimes(e.timestamp, now)
}

// Expired reports whether the entry is older than ttl at now.
// A non-positive ttl never expires.
func (e *Entry[T]) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 || now.Before(e.timestamp) {
		return false
	}
	return e.Age(now).Duration() > ttl
}

// completion is written once, then only read.
type completion[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

func newCompletion[T any]() *completion[T] {
	return &completion[T]{done: make(chan struct{})}
}

func (c *completion[T]) complete(v T, err error) {
	c.once.Do(func() {
		if err != nil {
			var zero T
			c.value, c.err = zero, failed(err)
		} else {
			c.value = v
		}
		close(c.done)
	})
}

func (c *completion[T]) fail(cause error) {
	var zero T
	c.complete(zero, cause)
}

func (c *completion[T]) run(fn func() (T, error)) {
	finished := false
	defer func() {
		if r := recover(); r != nil {
			c.fail(causeOf(r))
		} else if !finished {
			// fn called runtime.Goexit
			c.fail(ErrAbandoned)
		}
	}()
	v, err := fn()
	finished = true
	c.complete(v, err)
}
