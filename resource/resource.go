// Package resource defines the handle contract shared by every pool in cellpool.
//
// A Resource owns a value for a bounded span and must be closed exactly once.
// Closing hands the value back to the pool that issued it; after that the
// handle is dead and Get panics with ErrReleased.
package resource

import "errors"

// ErrReleased is the panic value raised when a closed handle is read.
var ErrReleased = errors.New("resource: use after release")

// Resource grants exclusive access to a value until Close is called.
type Resource[T any] interface {
	// Get returns the owned value. It panics with ErrReleased once the handle is closed.
	Get() T
	// IsOpen reports whether the handle has not been closed yet.
	IsOpen() bool
	// Close releases the value. Calling it again is a no-op.
	Close()
}

// Releaser is implemented by pooled values that need cleanup before reuse.
type Releaser interface {
	Release()
}

// Closer is anything a Scope can close.
type Closer interface {
	Close()
}

// Use runs fn with the value owned by r and closes r on every exit path,
// including panics raised by fn.
func Use[T any](r Resource[T], fn func(T) error) error {
	defer r.Close()
	return fn(r.Get())
}

// UseValue is the value-returning variant of Use.
func UseValue[T, R any](r Resource[T], fn func(T) (R, error)) (R, error) {
	defer r.Close()
	return fn(r.Get())
}
