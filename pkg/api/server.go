package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// ServerConfig holds the server configuration.
type ServerConfig struct {
	Host           string        // Host to bind to (default "localhost")
	Port           int           // Port to listen on (default 8080)
	ReadTimeout    time.Duration // Read timeout (default 30s)
	WriteTimeout   time.Duration // Write timeout (default 30s)
	IdleTimeout    time.Duration // Idle timeout (default 60s)
	MaxFastWorkers int           // Max concurrent fast operations (default 100)
	MaxSlowWorkers int           // Max concurrent slow operations (default 4)
	MaxIterations  int           // Max games per simulation request (default 1000000)
	MaxTurns       int           // Per-game turn cap (default 200)
}

// DefaultConfig returns a ServerConfig with sensible defaults.
func DefaultConfig() ServerConfig {
	return ServerConfig{
		Host:           "localhost",
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxFastWorkers: 100,
		MaxSlowWorkers: 4,
		MaxIterations:  1000000,
		MaxTurns:       200,
	}
}

// Server is the HTTP API server.
type Server struct {
	config   ServerConfig
	handlers *Handlers
	server   *http.Server
	version  string
}

// NewServer creates a new API server. Zero worker counts and limits fall
// back to their defaults.
func NewServer(config ServerConfig, version string) *Server {
	pool := NewWorkerPool(PoolConfig{
		MaxFastWorkers: config.MaxFastWorkers,
		MaxSlowWorkers: config.MaxSlowWorkers,
	})
	limits := Limits{MaxIterations: config.MaxIterations, MaxTurns: config.MaxTurns}
	return &Server{
		config:   config,
		handlers: NewHandlersWithPool(version, limits, pool),
		version:  version,
	}
}

// route is one API endpoint.
type route struct {
	method  string // Empty for any method
	path    string
	about   string
	handler http.HandlerFunc
}

func (s *Server) routes() []route {
	h := s.handlers
	return []route{
		{"GET", "/api/health", "Health check", h.Health},
		{"GET", "/api/policies", "List move policies", h.Policies},
		{"POST", "/api/decide", "Moves a policy plays for a roll", h.Decide},
		{"POST", "/api/play", "Play one game", h.Play},
		{"POST", "/api/simulate", "Monte Carlo run", h.Simulate},
		{"POST", "/api/exact", "Exact turn distribution", h.Exact},
		{"GET", "/api/simulate/stream", "Monte Carlo run with SSE progress", h.SimulateSSE},
		{"", "/api/ws", "WebSocket for interactive use", h.WebSocket},
	}
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs all requests.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// Handler returns the routed API with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	for _, rt := range s.routes() {
		pattern := rt.path
		if rt.method != "" {
			pattern = rt.method + " " + rt.path
		}
		mux.HandleFunc(pattern, rt.handler)
	}
	return corsMiddleware(loggingMiddleware(mux))
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	log.Printf("Starting bear-off API server v%s on %s", s.version, addr)
	log.Printf("Endpoints:")
	for _, rt := range s.routes() {
		method := rt.method
		if method == "" {
			method = "WS"
		}
		log.Printf("  %-4s %-20s - %s", method, rt.path, rt.about)
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// ListenAndServeWithGracefulShutdown starts the server and handles shutdown signals.
func (s *Server) ListenAndServeWithGracefulShutdown() error {
	errChan := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-quit:
		log.Printf("Received signal %v, shutting down...", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped gracefully")
	return nil
}
