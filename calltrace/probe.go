package calltrace

// Probe wraps fn so that every call runs under a fresh tracer. The
// tracer is armed on entry and disarmed on every exit path, restoring
// whatever hook was installed before, so probed and unprobed callers
// compose.
func Probe(fn Func, opts ...TracerOption) Func {
	return func(fr *Frame) {
		t := NewTracer(opts...)

		t.Arm(fr.Slot())
		defer t.Disarm()

		fr.Call(fr.Function, fn, fr.Locals())
	}
}
