package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeepLink-org/probing/calltrace"
	"github.com/DeepLink-org/probing/chrometrace"
	"github.com/DeepLink-org/probing/config"
	"github.com/DeepLink-org/probing/datarecording"
	"github.com/DeepLink-org/probing/tracing"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	s := NewServer()
	ts := httptest.NewServer(s.router())
	t.Cleanup(ts.Close)

	return s, ts
}

func TestConfigRoundTrip(t *testing.T) {
	s, ts := newTestServer(t)
	s.RegisterConfig(config.New())

	body := bytes.NewBufferString(`{"server.port":"8080"}`)
	rsp, err := http.Post(ts.URL+"/api/config", "application/json", body)
	require.NoError(t, err)
	rsp.Body.Close()
	assert.Equal(t, http.StatusOK, rsp.StatusCode)

	rsp, err = http.Get(ts.URL + "/api/config")
	require.NoError(t, err)
	defer rsp.Body.Close()

	var values map[string]string
	require.NoError(t, json.NewDecoder(rsp.Body).Decode(&values))
	assert.Equal(t, "8080", values["server.port"])
}

func TestTraceControlEndpoints(t *testing.T) {
	s, ts := newTestServer(t)

	registry := calltrace.NewRegistry()
	registry.Register("work", func(fr *calltrace.Frame) {})
	s.RegisterRegistry(registry)

	rsp, err := http.Get(ts.URL + "/api/trace/list")
	require.NoError(t, err)
	defer rsp.Body.Close()

	var names []string
	require.NoError(t, json.NewDecoder(rsp.Body).Decode(&names))
	assert.Equal(t, []string{"work"}, names)

	body := bytes.NewBufferString(`{"function":"work","watch":["x"]}`)
	rsp, err = http.Post(ts.URL+"/api/trace/start",
		"application/json", body)
	require.NoError(t, err)
	rsp.Body.Close()
	assert.Equal(t, http.StatusOK, rsp.StatusCode)
	assert.True(t, registry.IsTraced("work"))

	body = bytes.NewBufferString(`{"function":"work"}`)
	rsp, err = http.Post(ts.URL+"/api/trace/start",
		"application/json", body)
	require.NoError(t, err)
	rsp.Body.Close()
	assert.Equal(t, http.StatusConflict, rsp.StatusCode)

	body = bytes.NewBufferString(`{"function":"work"}`)
	rsp, err = http.Post(ts.URL+"/api/trace/stop",
		"application/json", body)
	require.NoError(t, err)
	rsp.Body.Close()
	assert.Equal(t, http.StatusOK, rsp.StatusCode)
	assert.False(t, registry.IsTraced("work"))
}

func TestTraceEndpointsWithoutStore(t *testing.T) {
	_, ts := newTestServer(t)

	for _, path := range []string{
		"/api/trace/chrome-tracing",
		"/api/trace/records",
	} {
		rsp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		rsp.Body.Close()
		assert.Equal(t, http.StatusNotFound, rsp.StatusCode)
	}
}

func TestChromeTracingEndpoint(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "trace")

	writer := datarecording.New(dbPath)
	sink := tracing.NewTableSink(writer)
	recorder := tracing.NewRecorder(sink)
	stack := tracing.NewStack(tracing.WithRecorder(recorder))

	span := stack.Begin("forward")
	stack.End(span)

	require.NoError(t, writer.Flush())
	require.NoError(t, writer.Close())

	reader, err := datarecording.NewReader(dbPath + ".sqlite3")
	require.NoError(t, err)
	t.Cleanup(func() { reader.Close() })

	s, ts := newTestServer(t)
	s.RegisterReader(reader)

	rsp, err := http.Get(ts.URL + "/api/trace/chrome-tracing")
	require.NoError(t, err)
	defer rsp.Body.Close()
	require.Equal(t, http.StatusOK, rsp.StatusCode)

	var trace chrometrace.Trace
	require.NoError(t, json.NewDecoder(rsp.Body).Decode(&trace))

	assert.Equal(t, "ms", trace.DisplayTimeUnit)
	require.Len(t, trace.TraceEvents, 2)
	assert.Equal(t, "B", trace.TraceEvents[0].Ph)
	assert.Equal(t, "forward", trace.TraceEvents[0].Name)
	assert.Equal(t, "E", trace.TraceEvents[1].Ph)
}

func TestInspectEndpoint(t *testing.T) {
	s, ts := newTestServer(t)

	type inspectable struct {
		Value int
	}
	s.RegisterInspectable("thing", &inspectable{Value: 42})

	rsp, err := http.Get(ts.URL + "/api/inspect/thing")
	require.NoError(t, err)
	rsp.Body.Close()
	assert.Equal(t, http.StatusOK, rsp.StatusCode)

	rsp, err = http.Get(ts.URL + "/api/inspect/missing")
	require.NoError(t, err)
	rsp.Body.Close()
	assert.Equal(t, http.StatusNotFound, rsp.StatusCode)
}
