// Package chrometrace converts flat trace records into the Chrome
// tracing JSON format, viewable in chrome://tracing and Perfetto.
package chrometrace

import (
	"encoding/json"
	"sort"

	"github.com/DeepLink-org/probing/tracing"
)

// An Event is one entry in the traceEvents array.
type Event struct {
	Name string          `json:"name"`
	Cat  string          `json:"cat"`
	Ph   string          `json:"ph"`
	Ts   int64           `json:"ts"`
	Pid  uint64          `json:"pid"`
	Tid  int64           `json:"tid"`
	Dur  int64           `json:"dur,omitempty"`
	S    string          `json:"s,omitempty"`
	Args json.RawMessage `json:"args,omitempty"`
}

// A Trace is the top-level Chrome tracing document.
type Trace struct {
	TraceEvents     []Event `json:"traceEvents"`
	DisplayTimeUnit string  `json:"displayTimeUnit"`
}

type startKey struct {
	spanID   uint64
	threadID int64
}

type startInfo struct {
	name string
	cat  string
	pid  uint64
	ts   int64
}

// Export reconstructs begin/end pairs from flat records. Records are
// processed in timestamp order; timestamps are rebased to the
// earliest one and converted from nanoseconds to microseconds. An end
// record matches the most recent unmatched start with the same span
// and thread; an end with no start at all becomes a standalone E
// entry so partial traces still render.
func Export(records []tracing.TraceEvent) Trace {
	ordered := make([]tracing.TraceEvent, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp < ordered[j].Timestamp
	})

	var base int64
	if len(ordered) > 0 {
		base = ordered[0].Timestamp
	}

	ts := func(raw int64) int64 {
		return (raw - base) / 1000
	}

	// First pass: remember every start so an end arriving before its
	// start in the record stream can still be matched.
	starts := make(map[startKey]startInfo)

	for _, rec := range ordered {
		if rec.RecordType != tracing.RecordSpanStart {
			continue
		}

		key := startKey{spanID: rec.SpanID, threadID: rec.ThreadID}
		if _, seen := starts[key]; seen {
			continue
		}

		starts[key] = startInfo{
			name: rec.Name,
			cat:  category(rec.Kind),
			pid:  rec.TraceID,
			ts:   ts(rec.Timestamp),
		}
	}

	live := make(map[startKey]startInfo)
	events := make([]Event, 0, len(ordered))

	for _, rec := range ordered {
		key := startKey{spanID: rec.SpanID, threadID: rec.ThreadID}

		switch rec.RecordType {
		case tracing.RecordSpanStart:
			info := startInfo{
				name: rec.Name,
				cat:  category(rec.Kind),
				pid:  rec.TraceID,
				ts:   ts(rec.Timestamp),
			}
			live[key] = info

			events = append(events, Event{
				Name: info.name,
				Cat:  info.cat,
				Ph:   "B",
				Ts:   info.ts,
				Pid:  info.pid,
				Tid:  rec.ThreadID,
				Args: startArgs(rec.Attributes, rec.CodePath),
			})

		case tracing.RecordSpanEnd:
			info, ok := live[key]
			if ok {
				delete(live, key)
			} else {
				info, ok = starts[key]
			}

			if !ok {
				// Orphan end: keep whatever the record itself carries
				// before falling back to placeholders.
				name := rec.Name
				if name == "" {
					name = "unknown_span"
				}

				pid := rec.TraceID
				if pid == 0 {
					pid = 1
				}

				events = append(events, Event{
					Name: name,
					Cat:  category(rec.Kind),
					Ph:   "E",
					Ts:   ts(rec.Timestamp),
					Pid:  pid,
					Tid:  rec.ThreadID,
				})
				continue
			}

			end := Event{
				Name: info.name,
				Cat:  info.cat,
				Ph:   "E",
				Ts:   ts(rec.Timestamp),
				Pid:  info.pid,
				Tid:  rec.ThreadID,
			}

			if d := end.Ts - info.ts; d > 0 {
				end.Dur = d
			}

			events = append(events, end)

		case tracing.RecordEvent:
			events = append(events, Event{
				Name: rec.Name,
				Cat:  "event",
				Ph:   "i",
				Ts:   ts(rec.Timestamp),
				Pid:  rec.TraceID,
				Tid:  rec.ThreadID,
				S:    "t",
				Args: eventArgs(rec.EventAttributes),
			})
		}
	}

	return Trace{
		TraceEvents:     events,
		DisplayTimeUnit: "ms",
	}
}

func category(kind string) string {
	if kind == "" {
		return "span"
	}

	return kind
}

// startArgs combines a start record's attributes with its code
// location into one args object. Malformed attributes are dropped;
// the location survives on its own.
func startArgs(attributes, codePath string) json.RawMessage {
	args := map[string]any{}

	if attributes != "" && json.Valid([]byte(attributes)) {
		if err := json.Unmarshal([]byte(attributes), &args); err != nil {
			args = map[string]any{}
		}
	}

	if codePath != "" {
		args["location"] = codePath
	}

	if len(args) == 0 {
		return nil
	}

	data, err := json.Marshal(args)
	if err != nil {
		return nil
	}

	return data
}

// eventArgs passes recorded attribute JSON through when it is valid,
// and drops it otherwise. Malformed attributes must not poison the
// whole document.
func eventArgs(attributes string) json.RawMessage {
	if attributes == "" {
		return nil
	}

	if !json.Valid([]byte(attributes)) {
		return nil
	}

	return json.RawMessage(attributes)
}
