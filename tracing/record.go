package tracing

// Record types distinguish the three kinds of rows a recorder emits.
const (
	RecordSpanStart = "span_start"
	RecordSpanEnd   = "span_end"
	RecordEvent     = "event"
)

// NoParent marks a record or span with no parent span.
const NoParent int64 = -1

// TraceEventTable is the table name recorders write span records to.
const TraceEventTable = "trace_event"

// A TraceEvent is one flat record handed to a sink. Absent numeric
// fields are -1 and absent string fields are empty.
type TraceEvent struct {
	RecordType      string `json:"record_type"`
	TraceID         uint64 `json:"trace_id"`
	SpanID          uint64 `json:"span_id"`
	ParentID        int64  `json:"parent_id"`
	Name            string `json:"name"`
	Timestamp       int64  `json:"timestamp"`
	ThreadID        int64  `json:"thread_id"`
	Kind            string `json:"kind"`
	CodePath        string `json:"code_path"`
	Attributes      string `json:"attributes"`
	EventAttributes string `json:"event_attributes"`
}

// A Sink receives trace records. Implementations may buffer; they must
// be safe for use from multiple goroutines.
type Sink interface {
	Insert(record TraceEvent) error
}
