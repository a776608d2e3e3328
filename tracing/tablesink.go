package tracing

import (
	"github.com/DeepLink-org/probing/datarecording"
)

// A TableSink stores trace records in a datarecording table.
type TableSink struct {
	recorder datarecording.DataRecorder
}

// NewTableSink creates the trace_event table on the recorder and
// returns a sink that inserts into it.
func NewTableSink(recorder datarecording.DataRecorder) *TableSink {
	recorder.CreateTable(TraceEventTable, TraceEvent{})

	return &TableSink{recorder: recorder}
}

// Insert buffers one record.
func (s *TableSink) Insert(record TraceEvent) error {
	return s.recorder.InsertData(TraceEventTable, record)
}

// Flush forces buffered records out to storage.
func (s *TableSink) Flush() error {
	return s.recorder.Flush()
}
