package calltrace

import (
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/DeepLink-org/probing/tensor"
)

// internalDir locates this package's own source files so the tracer
// can exclude itself from observation.
var internalDir string

func init() {
	_, file, _, ok := runtime.Caller(0)
	if ok {
		internalDir = filepath.Dir(file)
	}
}

// A Tracer observes a frame tree through its hook slot. It enforces a
// call-depth budget, watches named locals for rebinding, wraps tensor
// values so in-place mutations are reported, and emits human-readable
// notices for every detected update. Internal failures are recovered
// and dropped; the tracer must never break the instrumented program.
type Tracer struct {
	depth  int
	watch  []string
	silent bool
	logger *log.Logger
	update UpdateSink

	countCalls   uint64
	countReturns uint64

	// watchImpl maps a watched name to the binding generation last
	// seen, once the variable has come into view.
	watchImpl    map[string]uint64
	startedWatch bool

	slot  *HookSlot
	armed bool
}

// A TracerOption customizes a Tracer.
type TracerOption func(*Tracer)

// WithDepth sets the call budget: how many frames beyond the entry
// frame stay observed at once. The default is 1.
func WithDepth(depth int) TracerOption {
	return func(t *Tracer) { t.depth = depth }
}

// WithWatch names the local variables to watch for updates.
func WithWatch(names ...string) TracerOption {
	return func(t *Tracer) {
		t.watch = append(t.watch, names...)
	}
}

// WithLogger redirects the notice stream.
func WithLogger(l *log.Logger) TracerOption {
	return func(t *Tracer) { t.logger = l }
}

// Silent suppresses notices while keeping table recording active.
func Silent() TracerOption {
	return func(t *Tracer) { t.silent = true }
}

// WithUpdateSink also records each variable update as a table row.
func WithUpdateSink(sink UpdateSink) TracerOption {
	return func(t *Tracer) { t.update = sink }
}

// NewTracer creates a tracer. It observes nothing until Arm installs
// it in a hook slot.
func NewTracer(opts ...TracerOption) *Tracer {
	t := &Tracer{
		depth:     1,
		logger:    log.New(os.Stderr, "probing: ", 0),
		watchImpl: make(map[string]uint64),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// CountCalls returns the number of call notifications received. The
// counters never reset, so they also serve as a cheap activity gauge.
func (t *Tracer) CountCalls() uint64 { return t.countCalls }

// CountReturns returns the number of returns, including checkpoint
// releases from frames that ran out of budget.
func (t *Tracer) CountReturns() uint64 { return t.countReturns }

// Arm installs the tracer's hook in the slot, saving whatever hook
// was installed before. Arming twice without Disarm is a programming
// error and panics.
func (t *Tracer) Arm(slot *HookSlot) {
	if t.armed {
		panic("tracer is already armed")
	}

	slot.Install(t.hook)
	t.slot = slot
	t.armed = true
}

// Disarm restores the hook saved by Arm.
func (t *Tracer) Disarm() {
	if !t.armed {
		return
	}

	t.slot.Restore()
	t.slot = nil
	t.armed = false
}

func (t *Tracer) hook(fr *Frame, event EventKind) (keep bool) {
	defer func() {
		if p := recover(); p != nil {
			t.logger.Printf("tracer error recovered: %v", p)
			keep = true
		}
	}()

	switch event {
	case EventCall:
		return t.onCall(fr)
	case EventLine:
		return t.onLine(fr)
	case EventReturn:
		return t.onReturn(fr)
	}

	return true
}

// outOfDepth checks the budget before the new call is counted, so a
// tracer with depth 1 observes the entry frame and its direct callee
// but declines the callee's callee.
func (t *Tracer) outOfDepth() bool {
	return t.countCalls-t.countReturns > uint64(t.depth)
}

func (t *Tracer) onCall(fr *Frame) bool {
	out := t.outOfDepth()
	t.countCalls++

	if out {
		fr.attachCheckpoint(NewCheckpoint(t.onCheckpointRelease))
		return false
	}

	t.ensureWatch(fr)

	return true
}

func (t *Tracer) onCheckpointRelease() {
	t.countReturns++
}

func (t *Tracer) onReturn(fr *Frame) bool {
	t.countReturns++

	for _, name := range t.watch {
		if v, ok := fr.Local(name); ok {
			if p, isProxy := v.(*tensor.Proxy); isProxy {
				fr.swapLocal(name, p.Unwrap())
			}
		}
	}

	return true
}

func (t *Tracer) onLine(fr *Frame) bool {
	if t.isInternal(fr) {
		return false
	}

	t.ensureWatch(fr)

	for _, name := range t.watch {
		last, watching := t.watchImpl[name]
		if !watching {
			continue
		}

		cur := fr.generation(name)
		if cur == 0 || cur == last {
			continue
		}

		t.watchImpl[name] = cur

		value, _ := fr.Local(name)
		t.notef("variable update %s = %v", name, value)
		t.recordUpdate(fr, name, value)
	}

	return true
}

// isInternal reports whether the frame runs engine code. Test files
// in this directory drive frames from the outside, so they do not
// count as internal.
func (t *Tracer) isInternal(fr *Frame) bool {
	if internalDir == "" || !strings.HasPrefix(fr.File, internalDir) {
		return false
	}

	return !strings.HasSuffix(fr.File, "_test.go")
}

// ensureWatch captures generation baselines for watched variables the
// first time they come into view, wraps tensor values in proxies, and
// announces what is being watched once.
func (t *Tracer) ensureWatch(fr *Frame) {
	var found []string

	for _, name := range t.watch {
		if _, watching := t.watchImpl[name]; watching {
			continue
		}

		value, ok := fr.Local(name)
		if !ok {
			continue
		}

		if tt, isTensor := value.(*tensor.Tensor); isTensor {
			fr.swapLocal(name, tensor.NewProxy(tt, t.logger))
		}

		t.watchImpl[name] = fr.generation(name)
		found = append(found, name)
	}

	if len(found) > 0 && !t.startedWatch {
		t.startedWatch = true
		sort.Strings(found)
		t.notef("started watching variables: %v in %s at %s:%d",
			found, fr.Function, fr.File, fr.Line)
	}
}

func (t *Tracer) notef(format string, args ...any) {
	if t.silent {
		return
	}

	t.logger.Printf(format, args...)
}

func (t *Tracer) recordUpdate(fr *Frame, name string, value any) {
	if t.update == nil {
		return
	}

	if err := t.update.Insert(NewVariableUpdate(fr, name, value)); err != nil {
		t.logger.Printf("recording variable update: %v", err)
	}
}
