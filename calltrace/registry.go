package calltrace

import (
	"fmt"
	"sort"
	"sync"
)

type target struct {
	original Func
	current  Func
}

// A Registry holds named instrumentable functions. Trace swaps in a
// probed wrapper for a target; Untrace restores the exact original.
// A target can carry at most one tracer at a time.
type Registry struct {
	mu      sync.Mutex
	targets map[string]*target
	traced  map[string]bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		targets: make(map[string]*target),
		traced:  make(map[string]bool),
	}
}

// Register adds a named target. Re-registering a name replaces the
// target and drops any installed tracer.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.targets[name] = &target{original: fn, current: fn}
	delete(r.traced, name)
}

// Lookup returns the current callable for name.
func (r *Registry) Lookup(name string) (Func, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.targets[name]
	if !ok {
		return nil, false
	}

	return t.current, true
}

// Call invokes the current callable for name in a child frame of fr.
func (r *Registry) Call(name string, fr *Frame, locals map[string]any) error {
	fn, ok := r.Lookup(name)
	if !ok {
		return fmt.Errorf("function %s is not registered", name)
	}

	fr.Call(name, fn, locals)

	return nil
}

// Trace swaps the target's callable for a probed wrapper. Tracing an
// already-traced target fails; Untrace first.
func (r *Registry) Trace(name string, opts ...TracerOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.targets[name]
	if !ok {
		return fmt.Errorf("function %s is not registered", name)
	}

	if r.traced[name] {
		return fmt.Errorf("function %s is already being traced", name)
	}

	t.current = Probe(t.original, opts...)
	r.traced[name] = true

	return nil
}

// Untrace restores the target's original callable.
func (r *Registry) Untrace(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.targets[name]
	if !ok {
		return fmt.Errorf("function %s is not registered", name)
	}

	if !r.traced[name] {
		return fmt.Errorf("function %s is not being traced", name)
	}

	t.current = t.original
	delete(r.traced, name)

	return nil
}

// Traced returns the sorted names of currently traced targets.
func (r *Registry) Traced() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.traced))
	for name := range r.traced {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Names returns the sorted names of all registered targets.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.targets))
	for name := range r.targets {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// IsTraced reports whether name currently carries a tracer.
func (r *Registry) IsTraced(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.traced[name]
}
