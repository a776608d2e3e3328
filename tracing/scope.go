package tracing

import (
	"reflect"
	"runtime"
)

// A ScopedSpan ties a span's lifetime to a lexical scope. Close ends
// the span exactly once, so it is safe to defer and also call early.
type ScopedSpan struct {
	span  *Span
	stack *Stack
	done  bool
}

// Span returns the underlying span.
func (sc *ScopedSpan) Span() *Span { return sc.span }

// Close ends the scope's span and pops it from the stack. Subsequent
// calls are no-ops.
func (sc *ScopedSpan) Close() {
	if sc.done {
		return
	}
	sc.done = true

	sc.stack.End(sc.span)
}

// Scope begins a span and returns a handle whose Close completes it.
// Intended use:
//
//	sc := stack.Scope("load")
//	defer sc.Close()
func (s *Stack) Scope(name string, opts ...SpanOption) *ScopedSpan {
	return &ScopedSpan{span: s.Begin(name, opts...), stack: s}
}

// ScopeChild is Scope with an explicit parent.
func (s *Stack) ScopeChild(
	parent *Span,
	name string,
	opts ...SpanOption,
) *ScopedSpan {
	return &ScopedSpan{span: s.BeginChild(parent, name, opts...), stack: s}
}

// Instrument runs fn inside a span. An empty name falls back to the
// function's runtime name. The span ends on every exit path, including
// panics, and fn's error is returned unchanged.
func (s *Stack) Instrument(name string, fn func() error) error {
	if name == "" {
		name = funcName(fn)
	}

	sc := s.Scope(name)
	defer sc.Close()

	return fn()
}

func funcName(fn func() error) string {
	pc := reflect.ValueOf(fn).Pointer()
	if f := runtime.FuncForPC(pc); f != nil {
		return f.Name()
	}

	return "anonymous"
}
