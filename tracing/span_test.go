package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Span", func() {
	It("should start active with a fresh identity", func() {
		span := NewSpan("load")

		Expect(span.Name()).To(Equal("load"))
		Expect(span.TraceID()).NotTo(BeZero())
		Expect(span.SpanID()).NotTo(BeZero())
		Expect(span.ParentID()).To(Equal(NoParent))
		Expect(span.IsRoot()).To(BeTrue())
		Expect(span.Status()).To(Equal(StatusActive))
		Expect(span.StartTimestamp()).NotTo(BeZero())
	})

	It("should give distinct ids to distinct spans", func() {
		a := NewSpan("a")
		b := NewSpan("b")

		Expect(a.SpanID()).NotTo(Equal(b.SpanID()))
		Expect(a.TraceID()).NotTo(Equal(b.TraceID()))
	})

	It("should propagate the trace id to children", func() {
		parent := NewSpan("parent")
		child := NewChildSpan(parent, "child")

		Expect(child.TraceID()).To(Equal(parent.TraceID()))
		Expect(child.ParentID()).To(Equal(int64(parent.SpanID())))
		Expect(child.IsRoot()).To(BeFalse())
	})

	It("should keep attributes in insertion order", func() {
		span := NewSpan("op",
			WithAttribute("z", "1"),
			WithAttribute("a", "2"),
		)

		attrs := span.Attributes()
		Expect(attrs).To(HaveLen(2))
		Expect(attrs[0].Key).To(Equal("z"))
		Expect(attrs[1].Key).To(Equal("a"))
	})

	It("should bulk-set attributes in sorted key order", func() {
		span := NewSpan("op", WithAttributes(map[string]string{
			"c": "3",
			"a": "1",
			"b": "2",
		}))

		attrs := span.Attributes()
		Expect(attrs).To(HaveLen(3))
		Expect(attrs[0].Key).To(Equal("a"))
		Expect(attrs[1].Key).To(Equal("b"))
		Expect(attrs[2].Key).To(Equal("c"))
	})

	It("should record kind and code path", func() {
		span := NewSpan("op",
			WithKind("inference"),
			WithCodePath("model/forward.go:42"),
		)

		Expect(span.Kind()).To(Equal("inference"))
		Expect(span.CodePath()).To(Equal("model/forward.go:42"))
	})

	It("should reject writes to frozen properties", func() {
		span := NewSpan("op")

		for _, field := range []string{
			"name", "kind", "code_path",
			"span_id", "trace_id", "parent_id", "attributes",
		} {
			err := span.Set(field, "x")

			var immutableErr *ImmutablePropertyError
			Expect(err).To(HaveOccurred())
			Expect(err).To(BeAssignableToTypeOf(immutableErr))
		}
	})

	It("should reject writes to unknown properties differently", func() {
		err := NewSpan("op").Set("nonsense", "x")

		var immutableErr *ImmutablePropertyError
		Expect(err).To(HaveOccurred())
		Expect(err).NotTo(BeAssignableToTypeOf(immutableErr))
	})

	It("should append events while active", func() {
		span := NewSpan("op")
		span.AddEvent("checkpoint", map[string]string{"step": "1"})

		events := span.Events()
		Expect(events).To(HaveLen(1))
		Expect(events[0].Name).To(Equal("checkpoint"))
		Expect(events[0].Attributes).To(HaveKeyWithValue("step", "1"))
		Expect(events[0].Timestamp).
			To(BeNumerically(">=", span.StartTimestamp()))
	})

	It("should drop events after completion", func() {
		span := NewSpan("op")
		span.End()

		span.AddEvent("late", nil)

		Expect(span.Events()).To(BeEmpty())
	})

	It("should complete exactly once", func() {
		span := NewSpan("op")

		span.End()
		first, ok := span.EndTimestamp()
		Expect(ok).To(BeTrue())

		span.End()
		second, _ := span.EndTimestamp()

		Expect(second).To(Equal(first))
		Expect(span.IsEnded()).To(BeTrue())
	})

	It("should order end after start", func() {
		span := NewSpan("op")
		span.End()

		end, _ := span.EndTimestamp()
		Expect(end).To(BeNumerically(">=", span.StartTimestamp()))

		d, ok := span.Duration()
		Expect(ok).To(BeTrue())
		Expect(d).To(BeNumerically(">=", 0))
	})

	It("should not expose an end timestamp while active", func() {
		_, ok := NewSpan("op").EndTimestamp()
		Expect(ok).To(BeFalse())
	})
})
