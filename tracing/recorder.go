package tracing

import (
	"encoding/json"
	"log"
	"os"
	"time"
)

// A Recorder turns span lifecycle transitions into flat TraceEvent
// records and hands them to a sink. Sink failures are logged and
// dropped; recording must never disturb the instrumented program.
type Recorder struct {
	sink   Sink
	logger *log.Logger
}

// A RecorderOption customizes a Recorder.
type RecorderOption func(*Recorder)

// WithRecorderLogger redirects sink-failure diagnostics.
func WithRecorderLogger(l *log.Logger) RecorderOption {
	return func(r *Recorder) { r.logger = l }
}

// NewRecorder creates a recorder writing to sink.
func NewRecorder(sink Sink, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		sink:   sink,
		logger: log.New(os.Stderr, "probing: ", 0),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// RecordStart emits a span_start record carrying the span's full
// identity and construction-time attributes.
func (r *Recorder) RecordStart(threadID int64, span *Span) {
	r.insert(TraceEvent{
		RecordType: RecordSpanStart,
		TraceID:    span.TraceID(),
		SpanID:     span.SpanID(),
		ParentID:   span.ParentID(),
		Name:       span.Name(),
		Timestamp:  span.StartTimestamp(),
		ThreadID:   threadID,
		Kind:       span.Kind(),
		CodePath:   span.CodePath(),
		Attributes: marshalAttributes(span.Attributes()),
	})
}

// RecordEnd emits a span_end record. If the span has somehow not been
// completed, the current time stands in for the end timestamp.
func (r *Recorder) RecordEnd(threadID int64, span *Span) {
	ts, ok := span.EndTimestamp()
	if !ok {
		ts = time.Now().UnixNano()
	}

	r.insert(TraceEvent{
		RecordType: RecordSpanEnd,
		TraceID:    span.TraceID(),
		SpanID:     span.SpanID(),
		ParentID:   span.ParentID(),
		Name:       span.Name(),
		Timestamp:  ts,
		ThreadID:   threadID,
		Kind:       span.Kind(),
		CodePath:   span.CodePath(),
		Attributes: marshalAttributes(span.Attributes()),
	})
}

// RecordEvent emits an event record attached to the span's identity.
func (r *Recorder) RecordEvent(
	threadID int64,
	span *Span,
	name string,
	attributes map[string]string,
) {
	r.insert(TraceEvent{
		RecordType:      RecordEvent,
		TraceID:         span.TraceID(),
		SpanID:          span.SpanID(),
		ParentID:        span.ParentID(),
		Name:            name,
		Timestamp:       time.Now().UnixNano(),
		ThreadID:        threadID,
		EventAttributes: marshalMap(attributes),
	})
}

func (r *Recorder) insert(record TraceEvent) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Printf("sink panic: %v", p)
		}
	}()

	if err := r.sink.Insert(record); err != nil {
		werr := &SinkWriteError{Table: TraceEventTable, Err: err}
		r.logger.Printf("%v", werr)
	}
}

func marshalAttributes(attrs []Attribute) string {
	if len(attrs) == 0 {
		return ""
	}

	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Key] = a.Value
	}

	return marshalMap(m)
}

func marshalMap(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}

	data, err := json.Marshal(m)
	if err != nil {
		return ""
	}

	return string(data)
}
