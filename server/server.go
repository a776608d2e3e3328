// Package server exposes the instrumentation state of a running
// process over HTTP: trace record queries, Chrome trace export,
// trace control, configuration, process resources, CPU profiles and
// object inspection.
package server

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/gorilla/mux"

	"github.com/DeepLink-org/probing/calltrace"
	"github.com/DeepLink-org/probing/config"
	"github.com/DeepLink-org/probing/datarecording"
)

// A Server is the HTTP API over one process's instrumentation state.
type Server struct {
	reader     datarecording.DataReader
	registry   *calltrace.Registry
	conf       *config.Store
	portNumber int

	inspectablesLock sync.Mutex
	inspectables     map[string]any
}

// NewServer creates a server. All parts are optional; endpoints whose
// backing part is missing answer 404.
func NewServer() *Server {
	return &Server{
		conf:         config.New(),
		inspectables: make(map[string]any),
	}
}

// WithPortNumber sets the port to listen on. Ports at or below 1000
// are rejected and a random port is used instead.
func (s *Server) WithPortNumber(portNumber int) *Server {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is not allowed for the probing server. "+
				"Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	s.portNumber = portNumber

	return s
}

// RegisterReader attaches the trace record store backing the query
// and export endpoints.
func (s *Server) RegisterReader(r datarecording.DataReader) {
	s.reader = r
}

// RegisterRegistry attaches the function registry backing the trace
// control endpoints.
func (s *Server) RegisterRegistry(r *calltrace.Registry) {
	s.registry = r
}

// RegisterConfig attaches the configuration store.
func (s *Server) RegisterConfig(c *config.Store) {
	s.conf = c
}

// RegisterInspectable exposes an object on /api/inspect/{name}.
func (s *Server) RegisterInspectable(name string, obj any) {
	s.inspectablesLock.Lock()
	defer s.inspectablesLock.Unlock()

	s.inspectables[name] = obj
}

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/trace/chrome-tracing", s.chromeTracing)
	r.HandleFunc("/api/trace/records", s.traceRecords)
	r.HandleFunc("/api/trace/list", s.listFunctions)
	r.HandleFunc("/api/trace/show", s.showTrace)
	r.HandleFunc("/api/trace/start", s.startTrace).Methods("POST")
	r.HandleFunc("/api/trace/stop", s.stopTrace).Methods("POST")
	r.HandleFunc("/api/config", s.getConfig).Methods("GET")
	r.HandleFunc("/api/config", s.putConfig).Methods("PUT", "POST")
	r.HandleFunc("/api/resource", s.listResources)
	r.HandleFunc("/api/profile", s.collectProfile)
	r.HandleFunc("/api/inspect/{name}", s.inspectObject)

	return r
}

// StartServer starts serving in the background and returns the bound
// address.
func (s *Server) StartServer() (string, error) {
	actualPort := ":0"
	if s.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(s.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", err
	}

	fmt.Fprintf(os.Stderr,
		"Probing server listening on http://localhost:%d\n",
		listener.Addr().(*net.TCPAddr).Port)

	go func() {
		err := http.Serve(listener, s.router())
		if err != nil {
			log.Printf("probing server stopped: %v", err)
		}
	}()

	return listener.Addr().String(), nil
}
