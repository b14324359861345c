// Package server provides the management endpoints: health checks and metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthStatus represents the health status of the service
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version,omitempty"`
	Uptime    string            `json:"uptime,omitempty"`
	Rewriting bool              `json:"rewriting"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthChecker checks a dependency, returning nil when healthy
type HealthChecker func(ctx context.Context) error

// Pinger is anything with a Ping method, such as the cache store or the
// attachment database
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck adapts a Pinger into a HealthChecker
func PingCheck(p Pinger) HealthChecker {
	return p.Ping
}

// Server provides HTTP endpoints for metrics and health
type Server struct {
	mu           sync.RWMutex
	server       *http.Server
	mux          *http.ServeMux
	checkers     map[string]HealthChecker
	startTime    time.Time
	version      string
	rewriting    bool
	checkTimeout time.Duration
}

// Config holds management server configuration
type Config struct {
	// Addr is the address to listen on (e.g., ":9090")
	Addr string

	MetricsPath string
	HealthPath  string
	ReadyPath   string
	LivePath    string

	// Version is the application version
	Version string

	// Rewriting reports whether a valid remote origin is configured
	Rewriting bool
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		Addr:        ":9090",
		MetricsPath: "/metrics",
		HealthPath:  "/health",
		ReadyPath:   "/ready",
		LivePath:    "/live",
		Version:     "dev",
	}
}

// New creates a new management server
func New(cfg *Config) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	s := &Server{
		mux:          http.NewServeMux(),
		checkers:     make(map[string]HealthChecker),
		startTime:    time.Now(),
		version:      cfg.Version,
		rewriting:    cfg.Rewriting,
		checkTimeout: 2 * time.Second,
	}

	s.mux.Handle(cfg.MetricsPath, promhttp.Handler())
	s.mux.HandleFunc(cfg.HealthPath, s.healthHandler)
	s.mux.HandleFunc(cfg.ReadyPath, s.readyHandler)
	s.mux.HandleFunc(cfg.LivePath, s.liveHandler)

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return s
}

// RegisterHealthCheck registers a health checker
func (s *Server) RegisterHealthCheck(name string, checker HealthChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkers[name] = checker
}

// Start starts the management server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// runChecks runs every checker and returns failures by name
func (s *Server) runChecks(ctx context.Context) (map[string]string, []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, s.checkTimeout)
	defer cancel()

	results := make(map[string]string, len(s.checkers))
	var failed []string
	for name, checker := range s.checkers {
		if err := checker(ctx); err != nil {
			results[name] = err.Error()
			failed = append(failed, name)
			continue
		}
		results[name] = "ok"
	}
	sort.Strings(failed)
	return results, failed
}

// healthHandler returns detailed health status
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	checks, failed := s.runChecks(r.Context())

	status := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   s.version,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Rewriting: s.rewriting,
		Checks:    checks,
	}

	code := http.StatusOK
	if len(failed) > 0 {
		status.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(status); err != nil {
		// Connection closed, nothing we can do
		return
	}
}

// readyHandler indicates if the service is ready to receive traffic
func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	_, failed := s.runChecks(r.Context())
	if len(failed) > 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		if _, err := fmt.Fprintf(w, "not ready: %s check failed", failed[0]); err != nil {
			return
		}
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ready")); err != nil {
		return
	}
}

// liveHandler indicates if the service is alive
func (s *Server) liveHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("alive")); err != nil {
		return
	}
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Addr returns the server address
func (s *Server) Addr() string {
	return s.server.Addr
}
