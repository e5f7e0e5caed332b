// Package server exposes the runtime control surface over HTTP. It is a thin
// JSON layer over the engine: workflow submission, run state and signature
// inspection, and manual node invocation. Transport framing beyond plain
// HTTP/JSON (streaming, websockets) is intentionally absent.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/hupe1980/agentgrid/engine"
	"github.com/hupe1980/agentgrid/logging"
)

// Options configures a Server.
type Options struct {
	// Addr is the listen address. Defaults to ":8080".
	Addr string

	// ReadTimeout / WriteTimeout bound request processing.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Logger provides structured logging. Defaults to NoOp.
	Logger logging.Logger
}

// WithAddr sets the listen address.
func WithAddr(addr string) func(o *Options) {
	return func(o *Options) { o.Addr = addr }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// Server serves the runtime control API.
type Server struct {
	engine     *engine.Engine
	logger     logging.Logger
	httpServer *http.Server
}

// New creates a Server wired to an engine.
func New(eng *engine.Engine, optFns ...func(o *Options)) *Server {
	opts := Options{
		Addr:         ":8080",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Server{engine: eng, logger: opts.Logger}

	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the route mux. Exposed so tests can drive the API through
// httptest without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /runtime/start", s.handleStart)
	mux.HandleFunc("GET /runtime/state", s.handleState)
	mux.HandleFunc("GET /runtime/signatures", s.handleSignatures)
	mux.HandleFunc("POST /runtime/agent/{id}/invoke", s.handleInvoke)
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

// Start starts the HTTP server. Blocks until the server is stopped or an
// error occurs.
func (s *Server) Start() error {
	s.logger.Info("control surface listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server. Runs in flight keep executing
// on the engine; only the HTTP listener stops.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
