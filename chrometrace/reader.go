package chrometrace

import (
	"context"

	"github.com/DeepLink-org/probing/datarecording"
	"github.com/DeepLink-org/probing/tracing"
)

// FromReader loads trace records from a datarecording store in
// timestamp order and exports them. A limit of 0 loads everything.
func FromReader(
	ctx context.Context,
	reader datarecording.DataReader,
	limit int,
) (Trace, error) {
	reader.MapTable(tracing.TraceEventTable, tracing.TraceEvent{})

	rows, _, err := reader.Query(ctx, tracing.TraceEventTable,
		datarecording.QueryParams{
			OrderBy: "Timestamp ASC",
			Limit:   limit,
		})
	if err != nil {
		return Trace{}, err
	}

	records := make([]tracing.TraceEvent, 0, len(rows))
	for _, row := range rows {
		if rec, ok := row.(*tracing.TraceEvent); ok {
			records = append(records, *rec)
		}
	}

	return Export(records), nil
}
