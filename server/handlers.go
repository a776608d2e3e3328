package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/DeepLink-org/probing/calltrace"
	"github.com/DeepLink-org/probing/chrometrace"
	"github.com/DeepLink-org/probing/datarecording"
	"github.com/DeepLink-org/probing/tracing"
)

func (s *Server) chromeTracing(w http.ResponseWriter, r *http.Request) {
	if s.reader == nil {
		http.Error(w, "no trace store attached", http.StatusNotFound)
		return
	}

	limit := queryInt(r, "limit", 0)

	trace, err := chrometrace.FromReader(r.Context(), s.reader, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, trace)
}

func (s *Server) traceRecords(w http.ResponseWriter, r *http.Request) {
	if s.reader == nil {
		http.Error(w, "no trace store attached", http.StatusNotFound)
		return
	}

	s.reader.MapTable(tracing.TraceEventTable, tracing.TraceEvent{})

	params := datarecording.QueryParams{
		OrderBy: "Timestamp ASC",
		Limit:   queryInt(r, "limit", 0),
		Offset:  queryInt(r, "offset", 0),
	}

	if recordType := r.URL.Query().Get("type"); recordType != "" {
		params.Where = "RecordType = ?"
		params.Args = []any{recordType}
	}

	rows, total, err := s.reader.Query(
		r.Context(), tracing.TraceEventTable, params)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"records": rows,
		"total":   total,
	})
}

func (s *Server) listFunctions(w http.ResponseWriter, _ *http.Request) {
	if s.registry == nil {
		http.Error(w, "no registry attached", http.StatusNotFound)
		return
	}

	writeJSON(w, s.registry.Names())
}

func (s *Server) showTrace(w http.ResponseWriter, _ *http.Request) {
	if s.registry == nil {
		http.Error(w, "no registry attached", http.StatusNotFound)
		return
	}

	writeJSON(w, s.registry.Traced())
}

type traceReq struct {
	Function string   `json:"function"`
	Watch    []string `json:"watch,omitempty"`
	Depth    int      `json:"depth,omitempty"`
}

func (s *Server) startTrace(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		http.Error(w, "no registry attached", http.StatusNotFound)
		return
	}

	var req traceReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	opts := []calltrace.TracerOption{}
	if len(req.Watch) > 0 {
		opts = append(opts, calltrace.WithWatch(req.Watch...))
	}
	if req.Depth > 0 {
		opts = append(opts, calltrace.WithDepth(req.Depth))
	}

	if err := s.registry.Trace(req.Function, opts...); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) stopTrace(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		http.Error(w, "no registry attached", http.StatusNotFound)
		return
	}

	var req traceReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.registry.Untrace(req.Function); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) getConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.conf.Snapshot())
}

func (s *Server) putConfig(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	for key, value := range values {
		s.conf.Set(key, value)
	}

	w.WriteHeader(http.StatusOK)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (s *Server) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memoryInfo, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

func (s *Server) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	time.Sleep(time.Second)
	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, prof)
}

func (s *Server) inspectObject(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	s.inspectablesLock.Lock()
	obj, ok := s.inspectables[name]
	s.inspectablesLock.Unlock()

	if !ok {
		http.Error(w, fmt.Sprintf("object %s not found", name),
			http.StatusNotFound)
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(obj)
	serializer.SetMaxDepth(1)

	if err := serializer.Serialize(w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return n
}
