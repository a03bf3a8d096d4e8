package pool

import (
	"sync/atomic"

	"github.com/on-the-ground/cellpool/resource"
)

// restorer is the pool side of a handle: it takes a released value back and
// reports whether it was kept.
type restorer[T any] interface {
	restore(T) bool
}

var _ resource.Resource[int] = (*handle[int])(nil)

// handle is issued once per Get and never reused, so a stale reference can
// only ever see its own released flag.
type handle[T any] struct {
	value    T
	owner    restorer[T]
	released atomic.Bool
}

func newHandle[T any](value T, owner restorer[T]) *handle[T] {
	return &handle[T]{value: value, owner: owner}
}

func (h *handle[T]) Get() T {
	if h.released.Load() {
		panic(resource.ErrReleased)
	}
	return h.value
}

func (h *handle[T]) IsOpen() bool {
	return !h.released.Load()
}

func (h *handle[T]) Close() {
	if !h.released.CompareAndSwap(false, true) {
		return
	}
	v := h.value
	var zero T
	h.value = zero
	h.owner.restore(v)
}
