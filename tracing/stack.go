package tracing

import (
	"sync/atomic"
)

var nextThreadID atomic.Int64

// A Stack is the span context for one goroutine. It owns the ordering
// of active spans: Begin pushes, End pops, and the top of the stack is
// the implicit parent for the next Begin. A Stack is not safe for
// concurrent use; create one per goroutine and link traces across
// goroutines with BeginChild.
type Stack struct {
	threadID int64
	spans    []*Span
	recorder *Recorder
}

// A StackOption customizes a Stack at construction time.
type StackOption func(*Stack)

// WithRecorder attaches a recorder so span starts, ends and events
// become persistent records.
func WithRecorder(r *Recorder) StackOption {
	return func(s *Stack) { s.recorder = r }
}

// NewStack creates an empty span stack with a unique thread id.
func NewStack(opts ...StackOption) *Stack {
	s := &Stack{threadID: nextThreadID.Add(1)}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ThreadID returns the stack's numeric identity. It appears as the
// thread id on every record the stack produces.
func (s *Stack) ThreadID() int64 { return s.threadID }

// Current returns the innermost active span, or nil when the stack is
// empty.
func (s *Stack) Current() *Span {
	if len(s.spans) == 0 {
		return nil
	}

	return s.spans[len(s.spans)-1]
}

// Depth returns the number of active spans.
func (s *Stack) Depth() int { return len(s.spans) }

// Begin opens a span and pushes it. If a span is active it becomes the
// parent; otherwise the new span is a root with a fresh trace id.
func (s *Stack) Begin(name string, opts ...SpanOption) *Span {
	var span *Span
	if parent := s.Current(); parent != nil {
		span = NewChildSpan(parent, name, opts...)
	} else {
		span = NewSpan(name, opts...)
	}

	s.push(span)

	return span
}

// BeginChild opens a span under an explicit parent and pushes it. The
// parent may live on another goroutine's stack; this is the supported
// way to continue a trace across goroutines.
func (s *Stack) BeginChild(parent *Span, name string, opts ...SpanOption) *Span {
	span := NewChildSpan(parent, name, opts...)
	s.push(span)

	return span
}

func (s *Stack) push(span *Span) {
	s.spans = append(s.spans, span)

	if s.recorder != nil {
		s.recorder.RecordStart(s.threadID, span)
	}
}

// End completes the span and removes it from the stack. Spans are
// expected to end in LIFO order; ending an inner-but-not-top span
// removes just that span, leaving the rest of the stack intact.
// Ending a span that is not on the stack still completes it.
func (s *Stack) End(span *Span) {
	span.End()

	for i := len(s.spans) - 1; i >= 0; i-- {
		if s.spans[i] == span {
			s.spans = append(s.spans[:i], s.spans[i+1:]...)
			break
		}
	}

	if s.recorder != nil {
		s.recorder.RecordEnd(s.threadID, span)
	}
}

// AddEvent appends an event to the current span. It fails with
// ErrNoActiveSpan when the stack is empty.
func (s *Stack) AddEvent(name string, attributes map[string]string) error {
	span := s.Current()
	if span == nil {
		return ErrNoActiveSpan
	}

	span.AddEvent(name, attributes)

	if s.recorder != nil {
		s.recorder.RecordEvent(s.threadID, span, name, attributes)
	}

	return nil
}
