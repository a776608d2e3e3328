// Package tensor provides a small numeric array type whose in-place
// operations follow a naming convention: methods ending in a single
// underscore mutate the receiver, everything else is read-only. The
// convention makes mutation observable by name, which is what Proxy
// relies on to intercept and report in-place updates.
package tensor

import (
	"fmt"
	"reflect"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// A Tensor is a dense one-dimensional numeric array.
type Tensor struct {
	vec *mat.VecDense
}

// New creates a tensor holding the given values.
func New(values ...float64) *Tensor {
	if len(values) == 0 {
		return &Tensor{vec: mat.NewVecDense(1, []float64{0})}
	}

	data := make([]float64, len(values))
	copy(data, values)

	return &Tensor{vec: mat.NewVecDense(len(data), data)}
}

// Zeros creates a tensor of n zeros.
func Zeros(n int) *Tensor {
	if n <= 0 {
		n = 1
	}

	return &Tensor{vec: mat.NewVecDense(n, nil)}
}

// Len returns the number of elements.
func (t *Tensor) Len() int { return t.vec.Len() }

// At returns the i-th element.
func (t *Tensor) At(i int) float64 { return t.vec.AtVec(i) }

// Values returns a copy of the elements.
func (t *Tensor) Values() []float64 {
	out := make([]float64, t.vec.Len())
	copy(out, t.vec.RawVector().Data)
	return out
}

// Clone returns an independent copy.
func (t *Tensor) Clone() *Tensor {
	return New(t.Values()...)
}

func (t *Tensor) String() string {
	return fmt.Sprintf("tensor(%v)", t.Values())
}

// Add_ adds v to every element in place.
func (t *Tensor) Add_(v float64) {
	for i := 0; i < t.vec.Len(); i++ {
		t.vec.SetVec(i, t.vec.AtVec(i)+v)
	}
}

// Scale_ multiplies every element by v in place.
func (t *Tensor) Scale_(v float64) {
	t.vec.ScaleVec(v, t.vec)
}

// Fill_ sets every element to v in place.
func (t *Tensor) Fill_(v float64) {
	for i := 0; i < t.vec.Len(); i++ {
		t.vec.SetVec(i, v)
	}
}

// Zero_ sets every element to zero in place.
func (t *Tensor) Zero_() {
	t.vec.Zero()
}

// AddTensor_ adds other element-wise in place. The lengths must match.
func (t *Tensor) AddTensor_(other *Tensor) {
	t.vec.AddVec(t.vec, other.vec)
}

// IsMutatingOp reports whether an operation name follows the in-place
// convention: a single trailing underscore and no leading double
// underscore.
func IsMutatingOp(op string) bool {
	return strings.HasSuffix(op, "_") && !strings.HasPrefix(op, "__")
}

// An Applier can run named operations. Tensor and Proxy both satisfy
// it, so instrumented code can hold either without caring which.
type Applier interface {
	Apply(op string, args ...any) (any, error)
	String() string
}

// Apply dispatches op by method name via reflection. Arguments are
// converted to the parameter types where Go allows it. Apply and
// String themselves are not dispatchable.
func (t *Tensor) Apply(op string, args ...any) (any, error) {
	if op == "Apply" || op == "String" {
		return nil, fmt.Errorf("operation %s is not dispatchable", op)
	}

	method := reflect.ValueOf(t).MethodByName(op)
	if !method.IsValid() {
		return nil, fmt.Errorf("tensor has no operation %s", op)
	}

	mt := method.Type()
	if mt.NumIn() != len(args) {
		return nil, fmt.Errorf("operation %s takes %d arguments, got %d",
			op, mt.NumIn(), len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		av := reflect.ValueOf(arg)
		want := mt.In(i)

		if !av.IsValid() {
			return nil, fmt.Errorf("operation %s: argument %d is nil", op, i)
		}

		if av.Type() != want {
			if !av.Type().ConvertibleTo(want) {
				return nil, fmt.Errorf(
					"operation %s: argument %d has type %s, want %s",
					op, i, av.Type(), want)
			}
			av = av.Convert(want)
		}

		in[i] = av
	}

	out := method.Call(in)

	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0].Interface(), nil
	default:
		return out[0].Interface(), nil
	}
}
