package calltrace

import (
	"fmt"
	"time"

	"github.com/DeepLink-org/probing/datarecording"
)

// VariableTable is the table watched-variable updates are written to.
const VariableTable = "trace_variables"

// A VariableUpdate is one recorded rebinding of a watched variable.
type VariableUpdate struct {
	FunctionName string
	Filename     string
	Lineno       int64
	VariableName string
	Value        string
	ValueType    string
	Timestamp    int64
}

// NewVariableUpdate snapshots a watched update at the frame's
// location.
func NewVariableUpdate(fr *Frame, name string, value any) VariableUpdate {
	return VariableUpdate{
		FunctionName: fr.Function,
		Filename:     fr.File,
		Lineno:       int64(fr.Line),
		VariableName: name,
		Value:        fmt.Sprint(value),
		ValueType:    fmt.Sprintf("%T", value),
		Timestamp:    time.Now().UnixNano(),
	}
}

// An UpdateSink receives variable updates.
type UpdateSink interface {
	Insert(update VariableUpdate) error
}

// A TableLog stores variable updates in a datarecording table.
type TableLog struct {
	recorder datarecording.DataRecorder
}

// NewTableLog creates the trace_variables table on the recorder and
// returns a log that inserts into it.
func NewTableLog(recorder datarecording.DataRecorder) *TableLog {
	recorder.CreateTable(VariableTable, VariableUpdate{})

	return &TableLog{recorder: recorder}
}

// Insert buffers one update.
func (l *TableLog) Insert(update VariableUpdate) error {
	return l.recorder.InsertData(VariableTable, update)
}
