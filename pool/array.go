package pool

import (
	"github.com/on-the-ground/cellpool/resource"
)

// ArrayPool reuses slices of T. A free slice is reused only when it is at
// least as long as the request; a shorter one is dropped and a new slice of
// exactly the requested length is built.
type ArrayPool[T any] struct {
	*freeList[[]T]
	factory func(n int) []T
}

// NewArrayPool returns a pool retaining at most capacity free slices.
// factory must return a slice of length n.
func NewArrayPool[T any](capacity int, factory func(n int) []T, opts ...Option) *ArrayPool[T] {
	o := newOptions("array", opts)
	return &ArrayPool[T]{
		freeList: newFreeList[[]T](capacity, o),
		factory:  factory,
	}
}

// NewFilledArrayPool returns a pool whose fresh slices have every slot set by elem.
func NewFilledArrayPool[T any](capacity int, elem func() T, opts ...Option) *ArrayPool[T] {
	return NewArrayPool(capacity, func(n int) []T {
		s := make([]T, n)
		for i := range s {
			s[i] = elem()
		}
		return s
	}, opts...)
}

// Get returns a slice of length at least n. Negative n is treated as zero.
// The slice keeps whatever contents it had when it was last released.
func (p *ArrayPool[T]) Get(n int) resource.Resource[[]T] {
	if n < 0 {
		n = 0
	}
	if s, ok := p.take(func(s []T) bool { return len(s) >= n }); ok {
		return newHandle(s, restorer[[]T](p))
	}
	return newHandle(p.factory(n), restorer[[]T](p))
}

func (p *ArrayPool[T]) restore(s []T) bool {
	return p.push(s)
}
