package tensor

import (
	"fmt"
	"log"
	"os"
)

// A Proxy wraps a Tensor and reports its in-place mutations. Read
// operations pass through untouched. Operations that follow the
// in-place naming convention are snapshotted before and after, and a
// successful mutation produces one notice of the form
//
//	tensor update with OP: BEFORE => AFTER
type Proxy struct {
	inner  *Tensor
	logger *log.Logger
}

// NewProxy wraps t. A nil logger falls back to stderr.
func NewProxy(t *Tensor, logger *log.Logger) *Proxy {
	if logger == nil {
		logger = log.New(os.Stderr, "probing: ", 0)
	}

	return &Proxy{inner: t, logger: logger}
}

// Unwrap returns the exact wrapped tensor.
func (p *Proxy) Unwrap() *Tensor { return p.inner }

// String delegates to the wrapped tensor without interception.
func (p *Proxy) String() string { return p.inner.String() }

// Len delegates to the wrapped tensor.
func (p *Proxy) Len() int { return p.inner.Len() }

// At delegates to the wrapped tensor.
func (p *Proxy) At(i int) float64 { return p.inner.At(i) }

// Apply delegates op to the wrapped tensor. Mutating operations are
// logged with their before and after states; a failed operation
// produces no notice. Non-mutating operations pass straight through.
func (p *Proxy) Apply(op string, args ...any) (any, error) {
	if !IsMutatingOp(op) {
		return p.inner.Apply(op, args...)
	}

	before := p.snapshot(args)

	result, err := p.inner.Apply(op, args...)
	if err != nil {
		return result, err
	}

	after := p.snapshot(args)

	p.logger.Printf("tensor update with %s: %s => %s", op, before, after)

	return result, nil
}

// snapshot renders the tensor together with the operation arguments,
// mirroring how the update notice shows the full call state.
func (p *Proxy) snapshot(args []any) string {
	state := make([]any, 0, len(args)+1)
	state = append(state, p.inner)
	state = append(state, args...)

	return fmt.Sprint(state)
}
