package tracing

import (
	"bytes"
	"errors"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Recorder", func() {
	var (
		ctrl     *gomock.Controller
		sink     *MockSink
		logBuf   *bytes.Buffer
		recorder *Recorder
		stack    *Stack
	)

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		sink = NewMockSink(ctrl)
		logBuf = &bytes.Buffer{}
		recorder = NewRecorder(sink,
			WithRecorderLogger(log.New(logBuf, "probing: ", 0)))
		stack = NewStack(WithRecorder(recorder))
	})

	It("should record a span_start when a span begins", func() {
		var got TraceEvent
		sink.EXPECT().
			Insert(gomock.Any()).
			DoAndReturn(func(rec TraceEvent) error {
				got = rec
				return nil
			})

		span := stack.Begin("op",
			WithKind("inference"),
			WithAttribute("k", "v"),
		)

		Expect(got.RecordType).To(Equal(RecordSpanStart))
		Expect(got.TraceID).To(Equal(span.TraceID()))
		Expect(got.SpanID).To(Equal(span.SpanID()))
		Expect(got.ParentID).To(Equal(NoParent))
		Expect(got.Name).To(Equal("op"))
		Expect(got.Kind).To(Equal("inference"))
		Expect(got.ThreadID).To(Equal(stack.ThreadID()))
		Expect(got.Attributes).To(MatchJSON(`{"k":"v"}`))
		Expect(got.EventAttributes).To(BeEmpty())
	})

	It("should record a span_end with the span's end timestamp", func() {
		var records []TraceEvent
		sink.EXPECT().
			Insert(gomock.Any()).
			DoAndReturn(func(rec TraceEvent) error {
				records = append(records, rec)
				return nil
			}).
			Times(2)

		span := stack.Begin("op")
		stack.End(span)

		Expect(records).To(HaveLen(2))
		end := records[1]
		endTS, _ := span.EndTimestamp()

		Expect(end.RecordType).To(Equal(RecordSpanEnd))
		Expect(end.SpanID).To(Equal(span.SpanID()))
		Expect(end.Timestamp).To(Equal(endTS))
	})

	It("should carry the span's descriptive fields on span_end", func() {
		var records []TraceEvent
		sink.EXPECT().
			Insert(gomock.Any()).
			DoAndReturn(func(rec TraceEvent) error {
				records = append(records, rec)
				return nil
			}).
			Times(2)

		span := stack.Begin("op",
			WithKind("inference"),
			WithCodePath("model/forward.go:42"),
			WithAttribute("k", "v"),
		)
		stack.End(span)

		Expect(records).To(HaveLen(2))
		end := records[1]

		Expect(end.Name).To(Equal("op"))
		Expect(end.Kind).To(Equal("inference"))
		Expect(end.CodePath).To(Equal("model/forward.go:42"))
		Expect(end.Attributes).To(MatchJSON(`{"k":"v"}`))
	})

	It("should record events with their own attributes", func() {
		var records []TraceEvent
		sink.EXPECT().
			Insert(gomock.Any()).
			DoAndReturn(func(rec TraceEvent) error {
				records = append(records, rec)
				return nil
			}).
			Times(2)

		span := stack.Begin("op")
		err := stack.AddEvent("mark", map[string]string{"step": "3"})

		Expect(err).ToNot(HaveOccurred())
		Expect(records).To(HaveLen(2))

		event := records[1]
		Expect(event.RecordType).To(Equal(RecordEvent))
		Expect(event.SpanID).To(Equal(span.SpanID()))
		Expect(event.Name).To(Equal("mark"))
		Expect(event.EventAttributes).To(MatchJSON(`{"step":"3"}`))
	})

	It("should swallow sink failures and log them", func() {
		sink.EXPECT().
			Insert(gomock.Any()).
			Return(errors.New("disk full"))

		Expect(func() { stack.Begin("op") }).ToNot(Panic())
		Expect(logBuf.String()).To(ContainSubstring("disk full"))
		Expect(logBuf.String()).To(ContainSubstring(TraceEventTable))
	})

	It("should swallow sink panics", func() {
		sink.EXPECT().
			Insert(gomock.Any()).
			DoAndReturn(func(rec TraceEvent) error {
				panic("sink exploded")
			})

		Expect(func() { stack.Begin("op") }).ToNot(Panic())
		Expect(logBuf.String()).To(ContainSubstring("sink exploded"))
	})
})
