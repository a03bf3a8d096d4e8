package pool

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// freeList is the capacity-bounded LIFO stack shared by both pool kinds,
// together with the miss accounting and report gating around it.
type freeList[T any] struct {
	name     string
	capacity int
	logger   *zap.Logger
	sink     Sink
	gate     *rate.Sometimes

	mu    sync.Mutex
	items []T

	// misses is incremented while mu is held. Reads and drains are lock-free.
	misses atomic.Uint64
}

func newFreeList[T any](capacity int, o options) *freeList[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &freeList[T]{
		name:     o.name,
		capacity: capacity,
		logger:   o.logger,
		sink:     o.sink,
		gate:     &rate.Sometimes{Interval: o.interval},
		items:    make([]T, 0, capacity),
	}
}

// take pops the top item. If fits is non-nil and rejects the item, the item is
// dropped for good. A false result has already been counted as a miss.
func (l *freeList[T]) take(fits func(T) bool) (T, bool) {
	var zero T

	l.mu.Lock()
	if n := len(l.items); n > 0 {
		item := l.items[n-1]
		l.items[n-1] = zero
		l.items = l.items[:n-1]
		if fits == nil || fits(item) {
			l.mu.Unlock()
			return item, true
		}
		l.misses.Add(1)
		l.mu.Unlock()
		if ce := l.logger.Check(zap.DebugLevel, "discarded undersized free item"); ce != nil {
			ce.Write(zap.String("pool", l.name))
		}
		return zero, false
	}
	l.misses.Add(1)
	l.mu.Unlock()
	return zero, false
}

// push offers item back and reports whether it was kept.
func (l *freeList[T]) push(item T) bool {
	l.mu.Lock()
	if len(l.items) < l.capacity {
		l.items = append(l.items, item)
		l.mu.Unlock()
		return true
	}
	l.mu.Unlock()
	if ce := l.logger.Check(zap.DebugLevel, "pool full, dropping released item"); ce != nil {
		ce.Write(zap.String("pool", l.name), zap.Int("capacity", l.capacity))
	}
	return false
}

// Name returns the label used in logs and reports.
func (l *freeList[T]) Name() string {
	return l.name
}

// Capacity returns the maximum number of free items retained.
func (l *freeList[T]) Capacity() int {
	return l.capacity
}

// Size returns the number of free items currently retained.
func (l *freeList[T]) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// MissCount returns the misses in excess of Capacity.
func (l *freeList[T]) MissCount() uint64 {
	raw := l.misses.Load()
	if c := uint64(l.capacity); raw > c {
		return raw - c
	}
	return 0
}

// drainMisses returns the current excess and resets the raw counter to the
// capacity baseline, so that every later miss counts as excess.
func (l *freeList[T]) drainMisses() uint64 {
	c := uint64(l.capacity)
	for {
		raw := l.misses.Load()
		if raw <= c {
			return 0
		}
		if l.misses.CompareAndSwap(raw, c) {
			return raw - c
		}
	}
}

// Report drains the excess miss count into the pool's sink. Calls closer
// together than the report interval are skipped.
func (l *freeList[T]) Report() {
	l.gate.Do(func() {
		l.sink.ObserveMisses(l.name, l.drainMisses())
	})
}
