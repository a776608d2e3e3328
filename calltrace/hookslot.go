// Package calltrace implements a depth-limited call instrumentation
// engine. Instrumented code drives explicit Frame objects through
// call, line and return notifications; a Tracer installed in the
// frame tree's HookSlot observes the notifications, watches named
// local variables for rebinding, and reports updates.
package calltrace

// An EventKind identifies one frame notification.
type EventKind int

// The three notifications a frame dispatches to its hook.
const (
	EventCall EventKind = iota
	EventLine
	EventReturn
)

func (k EventKind) String() string {
	switch k {
	case EventCall:
		return "call"
	case EventLine:
		return "line"
	case EventReturn:
		return "return"
	}

	return "unknown"
}

// A HookFunc receives frame notifications. For EventCall the return
// value decides whether the new frame keeps dispatching line and
// return notifications; for other events it is ignored.
type HookFunc func(fr *Frame, event EventKind) bool

// A HookSlot holds the single hook installed for one frame tree, plus
// the stack of hooks saved by nested installations. Installing saves
// the current hook; restoring puts it back exactly. The discipline
// keeps nested tracers composable without either one leaking into the
// other's scope.
type HookSlot struct {
	current HookFunc
	saved   []HookFunc
}

// NewHookSlot returns an empty slot.
func NewHookSlot() *HookSlot {
	return &HookSlot{}
}

// Current returns the installed hook, or nil.
func (s *HookSlot) Current() HookFunc {
	return s.current
}

// Install saves the current hook and installs fn in its place.
func (s *HookSlot) Install(fn HookFunc) {
	s.saved = append(s.saved, s.current)
	s.current = fn
}

// Restore reinstates the hook saved by the matching Install. Calling
// it with nothing saved clears the slot.
func (s *HookSlot) Restore() {
	if len(s.saved) == 0 {
		s.current = nil
		return
	}

	s.current = s.saved[len(s.saved)-1]
	s.saved = s.saved[:len(s.saved)-1]
}

func (s *HookSlot) dispatch(fr *Frame, event EventKind) bool {
	if s.current == nil {
		return false
	}

	return s.current(fr, event)
}
