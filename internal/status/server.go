package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/psantana5/waitgate/internal/logging"
	"github.com/psantana5/waitgate/internal/report"
)

// DefaultShutdownTimeout bounds how long in-flight requests may take.
const DefaultShutdownTimeout = 5 * time.Second

// recentFailureLimit matches the failure log the gate keeps.
const recentFailureLimit = report.DefaultFailureLogSize

// ReadyResponse is the /readyz body.
type ReadyResponse struct {
	Status         Phase                  `json:"status"`
	Target         string                 `json:"target"`
	Attempts       int                    `json:"attempts"`
	RecentFailures []report.FailureSample `json:"recent_failures,omitempty"`
}

// Server exposes liveness, readiness and metrics over HTTP.
type Server struct {
	addr     string
	state    *State
	gatherer prometheus.Gatherer
	logger   *logging.Logger

	srv      *http.Server
	listener net.Listener
}

// NewServer creates a status server. gatherer may be nil, in which case
// /metrics is not registered.
func NewServer(addr string, state *State, gatherer prometheus.Gatherer, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Server{
		addr:     addr,
		state:    state,
		gatherer: gatherer,
		logger:   logger,
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.health).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", s.ready).Methods("GET", "HEAD")
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}
	return r
}

// Start binds the listener and serves in the background.
// Bind errors are returned synchronously.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("status server listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.srv = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Status server error", logging.Fields{"error": err.Error()})
		}
	}()

	s.logger.Info("Status server listening", logging.Fields{"addr": ln.Addr().String()})
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Shutdown stops the server gracefully. Safe to call when never started.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("status server shutdown: %w", err)
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	resp := ReadyResponse{
		Status:   s.state.Phase(),
		Target:   s.state.Target(),
		Attempts: s.state.Attempts(),
	}

	code := http.StatusOK
	if resp.Status != PhaseReady {
		code = http.StatusServiceUnavailable
		resp.RecentFailures = s.state.RecentFailures(recentFailureLimit)
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
