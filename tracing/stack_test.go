package tracing

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Stack", func() {
	var stack *Stack

	BeforeEach(func() {
		stack = NewStack()
	})

	It("should start empty", func() {
		Expect(stack.Current()).To(BeNil())
		Expect(stack.Depth()).To(Equal(0))
	})

	It("should give each stack a distinct thread id", func() {
		other := NewStack()

		Expect(stack.ThreadID()).NotTo(Equal(other.ThreadID()))
	})

	It("should parent nested spans on the current top", func() {
		outer := stack.Begin("outer")
		inner := stack.Begin("inner")

		Expect(inner.TraceID()).To(Equal(outer.TraceID()))
		Expect(inner.ParentID()).To(Equal(int64(outer.SpanID())))
		Expect(stack.Current()).To(BeIdenticalTo(inner))
	})

	It("should restore the parent as current after End", func() {
		outer := stack.Begin("outer")
		inner := stack.Begin("inner")

		stack.End(inner)

		Expect(inner.IsEnded()).To(BeTrue())
		Expect(stack.Current()).To(BeIdenticalTo(outer))
		Expect(outer.IsEnded()).To(BeFalse())
	})

	It("should start a fresh trace after the stack drains", func() {
		first := stack.Begin("first")
		stack.End(first)

		second := stack.Begin("second")

		Expect(second.TraceID()).NotTo(Equal(first.TraceID()))
		Expect(second.IsRoot()).To(BeTrue())
	})

	It("should link across goroutines with BeginChild", func() {
		parent := stack.Begin("parent")

		workerStack := NewStack()
		child := workerStack.BeginChild(parent, "worker")

		Expect(child.TraceID()).To(Equal(parent.TraceID()))
		Expect(child.ParentID()).To(Equal(int64(parent.SpanID())))
		Expect(stack.Current()).To(BeIdenticalTo(parent))
		Expect(workerStack.Current()).To(BeIdenticalTo(child))
	})

	It("should attach ambient events to the current span", func() {
		span := stack.Begin("op")

		err := stack.AddEvent("mark", map[string]string{"k": "v"})

		Expect(err).ToNot(HaveOccurred())
		Expect(span.Events()).To(HaveLen(1))
		Expect(span.Events()[0].Name).To(Equal("mark"))
	})

	It("should fail ambient events with no active span", func() {
		err := stack.AddEvent("mark", nil)

		Expect(err).To(MatchError(ErrNoActiveSpan))
	})

	Describe("ScopedSpan", func() {
		It("should close exactly once", func() {
			sc := stack.Scope("op")
			span := sc.Span()

			sc.Close()
			end1, _ := span.EndTimestamp()

			sc.Close()
			end2, _ := span.EndTimestamp()

			Expect(span.IsEnded()).To(BeTrue())
			Expect(end2).To(Equal(end1))
			Expect(stack.Depth()).To(Equal(0))
		})

		It("should close on panic when deferred", func() {
			var span *Span

			func() {
				defer func() { _ = recover() }()

				sc := stack.Scope("op")
				span = sc.Span()
				defer sc.Close()

				panic("boom")
			}()

			Expect(span.IsEnded()).To(BeTrue())
			Expect(stack.Depth()).To(Equal(0))
		})
	})

	Describe("Instrument", func() {
		It("should run the function inside a span", func() {
			var observed *Span

			err := stack.Instrument("work", func() error {
				observed = stack.Current()
				return nil
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(observed).NotTo(BeNil())
			Expect(observed.Name()).To(Equal("work"))
			Expect(observed.IsEnded()).To(BeTrue())
			Expect(stack.Depth()).To(Equal(0))
		})

		It("should return the function's error unchanged", func() {
			boom := errors.New("boom")

			err := stack.Instrument("work", func() error { return boom })

			Expect(err).To(MatchError(boom))
			Expect(stack.Depth()).To(Equal(0))
		})

		It("should fall back to the runtime function name", func() {
			var observed *Span

			err := stack.Instrument("", func() error {
				observed = stack.Current()
				return nil
			})

			Expect(err).ToNot(HaveOccurred())
			Expect(observed.Name()).NotTo(BeEmpty())
		})
	})
})
