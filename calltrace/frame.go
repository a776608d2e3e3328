package calltrace

import (
	"runtime"
)

const checkpointKey = "__trace_checkpoint__"

// A binding is one named local. The generation counts rebindings:
// SetLocal bumps it, so a hook comparing generations sees rebinding
// as a new identity while in-place mutation of the bound value stays
// invisible. That matches identity semantics, not value equality.
type binding struct {
	value      any
	generation uint64
}

// A Func is a function body driven under a frame.
type Func func(fr *Frame)

// A Frame models one call activation. Instrumented code creates child
// frames with Call, declares locals with SetLocal, and marks
// interesting points with Step. Each mutation of the local table
// dispatches a line notification to the tree's hook slot; Call and
// teardown dispatch call and return notifications.
type Frame struct {
	// Function, File and Line identify the code location the frame
	// runs. They are fixed at creation.
	Function string
	File     string
	Line     int

	slot    *HookSlot
	locals  map[string]*binding
	nextGen uint64

	// observed records the hook's EventCall verdict. When false the
	// frame stays silent: no line or return notifications.
	observed bool
	closed   bool

	checkpoints []*Checkpoint
}

// NewRoot creates a frame tree with a fresh hook slot. The root frame
// itself dispatches no notifications; it exists to host the slot and
// seed locals.
func NewRoot() *Frame {
	file, line := callerLocation(2)

	return &Frame{
		Function: "root",
		File:     file,
		Line:     line,
		slot:     NewHookSlot(),
		locals:   make(map[string]*binding),
	}
}

// Slot returns the frame tree's hook slot.
func (fr *Frame) Slot() *HookSlot { return fr.slot }

// Call runs fn in a child frame. The child receives the given locals,
// dispatches a call notification, and is torn down when fn returns,
// whether normally or by panic.
func (fr *Frame) Call(function string, fn Func, locals map[string]any) {
	file, line := callerLocation(2)

	child := &Frame{
		Function: function,
		File:     file,
		Line:     line,
		slot:     fr.slot,
		locals:   make(map[string]*binding),
	}

	for name, value := range locals {
		child.nextGen++
		child.locals[name] = &binding{value: value, generation: child.nextGen}
	}

	child.observed = fr.slot.dispatch(child, EventCall)

	defer child.close()

	fn(child)
}

// SetLocal binds value to name, bumping the binding's generation, and
// dispatches a line notification if the frame is observed.
func (fr *Frame) SetLocal(name string, value any) {
	fr.nextGen++

	b, ok := fr.locals[name]
	if !ok {
		b = &binding{}
		fr.locals[name] = b
	}

	b.value = value
	b.generation = fr.nextGen

	fr.Step()
}

// Step dispatches a line notification without touching any binding.
// Use it after mutating a bound value in place so the hook gets a
// chance to look at the frame. The hook can return false to stop
// observing the frame.
func (fr *Frame) Step() {
	if !fr.observed || fr.closed {
		return
	}

	if !fr.slot.dispatch(fr, EventLine) {
		fr.observed = false
	}
}

// Local returns the value bound to name.
func (fr *Frame) Local(name string) (any, bool) {
	b, ok := fr.locals[name]
	if !ok {
		return nil, false
	}

	return b.value, true
}

// Locals returns a copy of the visible local table. Internal entries
// are excluded.
func (fr *Frame) Locals() map[string]any {
	out := make(map[string]any, len(fr.locals))
	for name, b := range fr.locals {
		if name == checkpointKey {
			continue
		}
		out[name] = b.value
	}

	return out
}

// swapLocal replaces a binding's value without changing its
// generation. Hooks use it to wrap and unwrap watched values without
// triggering their own rebinding detection.
func (fr *Frame) swapLocal(name string, value any) bool {
	b, ok := fr.locals[name]
	if !ok {
		return false
	}

	b.value = value

	return true
}

// generation returns the binding's generation, or 0 when unbound.
func (fr *Frame) generation(name string) uint64 {
	b, ok := fr.locals[name]
	if !ok {
		return 0
	}

	return b.generation
}

// attachCheckpoint parks a checkpoint on the frame so teardown
// releases it.
func (fr *Frame) attachCheckpoint(c *Checkpoint) {
	fr.checkpoints = append(fr.checkpoints, c)

	fr.nextGen++
	fr.locals[checkpointKey] = &binding{value: c, generation: fr.nextGen}
}

func (fr *Frame) close() {
	if fr.closed {
		return
	}
	fr.closed = true

	if fr.observed {
		fr.slot.dispatch(fr, EventReturn)
	}

	for _, c := range fr.checkpoints {
		c.Release()
	}
	fr.checkpoints = nil
}

func callerLocation(skip int) (string, int) {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown", 0
	}

	return file, line
}
