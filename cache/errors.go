package cache

import (
	"errors"
	"fmt"
)

// ErrComputationFailed is matched by every error an entry's Get returns.
// The underlying cause is wrapped alongside it.
var ErrComputationFailed = errors.New("cache: computation failed")

// ErrNoResult is the cause when an adopted completion channel closes without
// delivering a result.
var ErrNoResult = errors.New("cache: completion channel closed without a result")

// ErrAbandoned is the cause when a computation exits its goroutine without
// returning, as runtime.Goexit does.
var ErrAbandoned = errors.New("cache: computation exited without returning")

// PanicError is the cause recorded when a computation panics with a value
// that is not itself an error.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func failed(cause error) error {
	return fmt.Errorf("%w: %w", ErrComputationFailed, cause)
}

func causeOf(recovered any) error {
	if err, ok := recovered.(error); ok {
		return err
	}
	return &PanicError{Value: recovered}
}
