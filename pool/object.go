package pool

import (
	"fmt"
	"reflect"

	"github.com/on-the-ground/cellpool/resource"
)

// ObjectPool reuses values of T. Any free value satisfies any Get.
type ObjectPool[T any] struct {
	*freeList[T]
	factory func() T
	cleanup func(T)
}

// NewObjectPool returns a pool retaining at most capacity free values.
//
// The cleanup hook run on release is decided here, once: WithCleanup if
// given, otherwise Release when T implements resource.Releaser, otherwise none.
// For an interface T the Releaser check is made on each released value.
func NewObjectPool[T any](capacity int, factory func() T, opts ...Option) *ObjectPool[T] {
	o := newOptions("object", opts)
	return &ObjectPool[T]{
		freeList: newFreeList[T](capacity, o),
		factory:  factory,
		cleanup:  resolveCleanup[T](o.cleanup),
	}
}

// Get returns a free value, or a fresh one from the factory.
func (p *ObjectPool[T]) Get() resource.Resource[T] {
	if v, ok := p.take(nil); ok {
		return newHandle(v, restorer[T](p))
	}
	return newHandle(p.factory(), restorer[T](p))
}

func (p *ObjectPool[T]) restore(v T) bool {
	p.cleanup(v)
	return p.push(v)
}

func resolveCleanup[T any](configured any) func(T) {
	if configured != nil {
		fn, ok := configured.(func(T))
		if !ok {
			var zero T
			panic(fmt.Sprintf("pool: cleanup %T does not accept %T", configured, zero))
		}
		return fn
	}
	t := reflect.TypeFor[T]()
	switch {
	case t.Kind() == reflect.Interface:
		// the dynamic type is only known per value
		return func(v T) {
			if r, ok := any(v).(resource.Releaser); ok {
				r.Release()
			}
		}
	case t.Implements(releaserType):
		return func(v T) { any(v).(resource.Releaser).Release() }
	default:
		return func(T) {}
	}
}

var releaserType = reflect.TypeFor[resource.Releaser]()
