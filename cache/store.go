package cache

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Store maps keys to entries and expires them by creation timestamp only.
// Concurrent lookups of a missing key create a single entry.
type Store[K comparable, T any] struct {
	ttl    time.Duration
	logger *zap.Logger
	flight singleflight.Group

	mu      sync.Mutex
	entries map[K]*Entry[T]
}

// StoreOption configures a Store.
type StoreOption func(*storeOptions)

type storeOptions struct {
	logger *zap.Logger
}

// WithStoreLogger sets the logger used for sweep diagnostics.
func WithStoreLogger(logger *zap.Logger) StoreOption {
	return func(o *storeOptions) { o.logger = logger }
}

// NewStore returns an empty store whose entries expire after ttl.
// A non-positive ttl keeps entries until they are deleted.
func NewStore[K comparable, T any](ttl time.Duration, opts ...StoreOption) *Store[K, T] {
	o := storeOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return &Store[K, T]{
		ttl:     ttl,
		logger:  o.logger,
		entries: make(map[K]*Entry[T]),
	}
}

// Load returns the entry for key, if any.
func (s *Store[K, T]) Load(key K) (*Entry[T], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return e, ok
}

// GetOrSubmit returns the entry for key, submitting fn to exec if there is none.
func (s *Store[K, T]) GetOrSubmit(key K, fn func() (T, error), exec Executor) *Entry[T] {
	if e, ok := s.Load(key); ok {
		return e
	}
	return s.submitMiss(key, fn, exec)
}

// GetOrWrap returns the entry for key, storing a completed entry for v if there is none.
func (s *Store[K, T]) GetOrWrap(key K, v T) *Entry[T] {
	if e, ok := s.Load(key); ok {
		return e
	}
	return s.wrapMiss(key, v)
}

// submitMiss and wrapMiss keep the captured arguments of the create closure
// off the heap on the hit path.
func (s *Store[K, T]) submitMiss(key K, fn func() (T, error), exec Executor) *Entry[T] {
	return s.getOrCreate(key, func() *Entry[T] {
		return Submit(fn, exec)
	})
}

func (s *Store[K, T]) wrapMiss(key K, v T) *Entry[T] {
	return s.getOrCreate(key, func() *Entry[T] {
		return Wrap(v)
	})
}

// Delete removes the entry for key. It does not affect holders of the entry.
func (s *Store[K, T]) Delete(key K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Len returns the number of stored entries.
func (s *Store[K, T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep removes every entry older than the store's ttl at now, regardless of
// its state, and returns how many were removed.
func (s *Store[K, T]) Sweep(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	removed := 0
	for k, e := range s.entries {
		if e.Expired(now, s.ttl) {
			delete(s.entries, k)
			removed++
		}
	}
	remaining := len(s.entries)
	s.mu.Unlock()

	if removed > 0 {
		s.logger.Debug("swept expired cache entries",
			zap.Int("removed", removed),
			zap.Int("remaining", remaining),
			zap.Duration("ttl", s.ttl),
		)
	}
	return removed
}

// getOrCreate is the miss path: callers have already failed a Load, so hits
// never build the flight key. create runs outside the
// store lock; singleflight keeps concurrent misses from creating twice. Keys
// that format alike share a flight, so the loop re-checks by the real key.
func (s *Store[K, T]) getOrCreate(key K, create func() *Entry[T]) *Entry[T] {
	flightKey := fmt.Sprintf("%v", key)
	for {
		s.flight.Do(flightKey, func() (any, error) {
			if _, ok := s.Load(key); ok {
				return nil, nil
			}
			e := create()
			s.mu.Lock()
			if _, ok := s.entries[key]; !ok {
				s.entries[key] = e
			}
			s.mu.Unlock()
			return nil, nil
		})
		if e, ok := s.Load(key); ok {
			return e
		}
	}
}
