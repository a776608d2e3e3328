package tracing

import (
	"errors"
	"fmt"
)

// ErrNoActiveSpan is returned by ambient operations that need the
// current span when the stack is empty.
var ErrNoActiveSpan = errors.New("no active span in current context")

// An ImmutablePropertyError reports a rejected write to a span
// property that is frozen after construction.
type ImmutablePropertyError struct {
	Property string
}

func (e *ImmutablePropertyError) Error() string {
	return fmt.Sprintf("span property %s is immutable after creation", e.Property)
}

// A SinkWriteError wraps a failure from the record sink. The recorder
// logs it and keeps going; it never reaches the instrumented program.
type SinkWriteError struct {
	Table string
	Err   error
}

func (e *SinkWriteError) Error() string {
	return fmt.Sprintf("writing record to %s: %v", e.Table, e.Err)
}

func (e *SinkWriteError) Unwrap() error { return e.Err }
