package tracing

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// SpanStatus tracks where a span is in its lifecycle.
type SpanStatus int

// A span is Active from construction until End completes it.
const (
	StatusActive SpanStatus = iota
	StatusCompleted
)

func (s SpanStatus) String() string {
	if s == StatusCompleted {
		return "Completed"
	}
	return "Active"
}

// An Attribute is one key-value pair attached to a span when it is
// constructed. Attributes keep their insertion order.
type Attribute struct {
	Key   string
	Value string
}

// An Event is a named point-in-time marker appended to a span while it
// is active.
type Event struct {
	Name       string
	Timestamp  int64
	Attributes map[string]string
}

// A Span is a named, timed unit of work. Its identity (trace id, span
// id, parent id) and naming fields are fixed at construction, and its
// attributes can only be provided at construction. Afterwards the only
// permitted mutations are appending events and completing the span.
//
// A root span mints a fresh trace id; every descendant created from it
// carries the same trace id.
type Span struct {
	mu sync.Mutex

	traceID    uint64
	spanID     uint64
	parentID   int64
	name       string
	kind       string
	codePath   string
	attributes []Attribute

	events         []Event
	status         SpanStatus
	startTimestamp int64
	endTimestamp   int64
}

// A SpanOption customizes a span at construction time.
type SpanOption func(*Span)

// WithKind sets the span kind.
func WithKind(kind string) SpanOption {
	return func(s *Span) { s.kind = kind }
}

// WithCodePath records the code location that opened the span.
func WithCodePath(path string) SpanOption {
	return func(s *Span) { s.codePath = path }
}

// WithAttribute appends one attribute. Attributes can only be set at
// construction; there is no post-construction attribute API.
func WithAttribute(key, value string) SpanOption {
	return func(s *Span) {
		s.attributes = append(s.attributes, Attribute{Key: key, Value: value})
	}
}

// WithAttributes bulk-sets attributes in sorted key order.
func WithAttributes(attrs map[string]string) SpanOption {
	return func(s *Span) {
		keys := make([]string, 0, len(attrs))
		for k := range attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			s.attributes = append(s.attributes, Attribute{Key: k, Value: attrs[k]})
		}
	}
}

// NewSpan creates a root span with a fresh trace id.
func NewSpan(name string, opts ...SpanOption) *Span {
	s := &Span{
		traceID:        newID(),
		spanID:         newID(),
		parentID:       NoParent,
		name:           name,
		status:         StatusActive,
		startTimestamp: time.Now().UnixNano(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NewChildSpan creates a span that inherits the parent's trace id and
// records the parent's span id. The parent does not have to be active
// on any stack, which is how traces are continued across goroutines.
func NewChildSpan(parent *Span, name string, opts ...SpanOption) *Span {
	s := &Span{
		traceID:        parent.TraceID(),
		spanID:         newID(),
		parentID:       int64(parent.SpanID()),
		name:           name,
		status:         StatusActive,
		startTimestamp: time.Now().UnixNano(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// TraceID returns the identifier shared by this span and all its
// descendants.
func (s *Span) TraceID() uint64 { return s.traceID }

// SpanID returns the span's own identifier.
func (s *Span) SpanID() uint64 { return s.spanID }

// ParentID returns the parent's span id, or NoParent for a root span.
func (s *Span) ParentID() int64 { return s.parentID }

// IsRoot reports whether the span has no parent.
func (s *Span) IsRoot() bool { return s.parentID == NoParent }

// Name returns the span name.
func (s *Span) Name() string { return s.name }

// Kind returns the span kind, or an empty string.
func (s *Span) Kind() string { return s.kind }

// CodePath returns the code location that opened the span, or an empty
// string.
func (s *Span) CodePath() string { return s.codePath }

// Attributes returns a copy of the construction-time attributes in
// order.
func (s *Span) Attributes() []Attribute {
	out := make([]Attribute, len(s.attributes))
	copy(out, s.attributes)
	return out
}

// Status returns the current lifecycle status.
func (s *Span) Status() SpanStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// IsEnded reports whether the span has completed.
func (s *Span) IsEnded() bool { return s.Status() == StatusCompleted }

// StartTimestamp returns the construction time in nanoseconds.
func (s *Span) StartTimestamp() int64 { return s.startTimestamp }

// EndTimestamp returns the completion time in nanoseconds. The second
// return value is false while the span is active.
func (s *Span) EndTimestamp() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusCompleted {
		return 0, false
	}

	return s.endTimestamp, true
}

// Duration returns end minus start once the span has completed.
func (s *Span) Duration() (time.Duration, bool) {
	end, ok := s.EndTimestamp()
	if !ok {
		return 0, false
	}

	return time.Duration(end - s.startTimestamp), true
}

// AddEvent appends an event. Once the span has completed the call is a
// no-op, so late events are dropped rather than rejected.
func (s *Span) AddEvent(name string, attributes map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusCompleted {
		return
	}

	var attrs map[string]string
	if len(attributes) > 0 {
		attrs = make(map[string]string, len(attributes))
		for k, v := range attributes {
			attrs[k] = v
		}
	}

	s.events = append(s.events, Event{
		Name:       name,
		Timestamp:  time.Now().UnixNano(),
		Attributes: attrs,
	})
}

// Events returns a copy of the appended events in order.
func (s *Span) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// End completes the span. A second call is a no-op that preserves the
// first end timestamp.
func (s *Span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusCompleted {
		return
	}

	s.status = StatusCompleted
	s.endTimestamp = time.Now().UnixNano()
}

// Set attempts to modify a span property by name. Identity, naming and
// attribute fields are frozen after construction, so the call fails
// with an *ImmutablePropertyError for every property a span exposes.
// It exists so that surfaces addressing spans by field name (such as
// HTTP handlers) receive a typed rejection instead of a silent drop.
func (s *Span) Set(field, value string) error {
	switch field {
	case "name", "kind", "code_path", "span_id", "trace_id", "parent_id", "attributes":
		return &ImmutablePropertyError{Property: field}
	default:
		return fmt.Errorf("span has no property %q", field)
	}
}

func (s *Span) String() string {
	return fmt.Sprintf("Span{name: %s, trace_id: %d, span_id: %d, status: %s}",
		s.name, s.traceID, s.spanID, s.Status())
}
