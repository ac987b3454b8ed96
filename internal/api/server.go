package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kavi0/sherpa/internal/log"
)

const (
	// DefaultAddr is the listen address used when none is configured.
	DefaultAddr = "0.0.0.0:8000"

	// ShutdownTimeout bounds graceful shutdown before in-flight
	// requests are abandoned.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout guards against Slowloris-style clients.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout bounds reading the full request including body.
	ReadTimeout = 30 * time.Second

	// WriteTimeout bounds response writes. Model calls dominate query
	// latency, so this stays generous.
	WriteTimeout = 60 * time.Second

	// IdleTimeout closes keep-alive connections that go quiet.
	IdleTimeout = 120 * time.Second
)

// apiVersion is reported by the root endpoint.
const apiVersion = "1.0.0"

const (
	defaultRateRPS   = 10.0
	defaultRateBurst = 20
)

// ServerConfig wires the server to the application's long-lived services.
// Engine, Indexer and Store may be nil during partial startup; the
// affected endpoints then report 503 instead of panicking.
type ServerConfig struct {
	Logger      log.Logger
	Engine      QueryEngine  // nil: query endpoint reports 503
	Indexer     IndexManager // nil: admin endpoints report 503
	Store       IndexReader  // nil: stats and readiness report 503
	Environment string       // "development" relaxes transport headers
	AdminToken  string       // empty disables admin auth
	CORSOrigins []string     // allowed origins, "*" echoes any
	RateRPS     float64      // per-IP refill rate (0 = default 10)
	RateBurst   int          // per-IP burst size (0 = default 20)
	TrustProxy  bool         // trust X-Real-IP/X-Forwarded-For headers
}

// Server is the JSON HTTP server for the support chatbot.
type Server struct {
	handler http.Handler
	logger  log.Logger
}

// NewServer creates a server with all routes and middleware configured.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	qh := &queryHandler{engine: cfg.Engine, logger: logger}
	ih := &indexHandler{indexer: cfg.Indexer, store: cfg.Store, logger: logger}
	hh := &healthHandler{
		engine:      cfg.Engine,
		store:       cfg.Store,
		environment: cfg.Environment,
		logger:      logger,
	}

	admin := requireAdmin(cfg.AdminToken, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", hh.root)
	mux.HandleFunc("POST /query", qh.handleQuery)
	mux.Handle("POST /index/populate", admin(http.HandlerFunc(ih.populate)))
	mux.HandleFunc("GET /index/stats", ih.stats)
	mux.Handle("DELETE /index/clear", admin(http.HandlerFunc(ih.clear)))

	rps := cfg.RateRPS
	if rps <= 0 {
		rps = defaultRateRPS
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = defaultRateBurst
	}
	rl := newIPLimiters(rps, burst)

	// API middleware stack (outermost first):
	//   Logging → Tracing → CORS → RateLimit → Routes
	// CORS sits outside RateLimit so preflight responses carry CORS
	// headers even when the client is being throttled.
	var apiHandler http.Handler = mux
	apiHandler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(apiHandler)
	apiHandler = corsMiddleware(cfg.CORSOrigins)(apiHandler)
	apiHandler = tracingMiddleware()(apiHandler)
	apiHandler = loggingMiddleware(logger)(apiHandler)

	// Health probes bypass the API stack so orchestrator checks are
	// never rate limited or traced.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", hh.health)
	topMux.HandleFunc("GET /ready", hh.ready)
	topMux.Handle("/", apiHandler)

	// RequestID and Recovery cover everything, probes included.
	// RequestID must be outside Logging so request_id is available in
	// log attributes.
	var handler http.Handler = topMux
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	isDev := cfg.Environment == "development" || cfg.Environment == ""
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, isDev)
		handler.ServeHTTP(w, r)
	})

	return &Server{handler: final, logger: logger}
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves HTTP on addr until ctx is canceled, then shuts down
// gracefully. A closed server returns nil.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
