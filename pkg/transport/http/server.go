package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/alertbridge/pkg/auth"
	"github.com/rhuss/alertbridge/pkg/observability"
	"github.com/rhuss/alertbridge/pkg/transport"
)

// HealthChecker reports whether a dependency is usable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Addr            string
	RoutePrefix     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MetricsPath     string // empty disables the metrics endpoint
	Logger          *slog.Logger
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:            ":8080",
		RoutePrefix:     "/mqtt",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		MetricsPath:     "/metrics",
		Logger:          slog.Default(),
	}
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithConfig replaces the server configuration.
func WithConfig(cfg ServerConfig) ServerOption {
	return func(s *Server) { s.config = cfg }
}

// WithAuth protects the mint endpoint with the given chain and limiter.
// Without it the mint endpoint rejects every request with 401.
func WithAuth(chain *auth.AuthChain, limiter auth.RateLimiter) ServerOption {
	return func(s *Server) {
		s.authChain = chain
		s.limiter = limiter
	}
}

// WithReadiness sets the checks behind /readyz. The directory check gates
// readiness. The broker status is only reported.
func WithReadiness(directory HealthChecker, brokerConnected func() bool) ServerOption {
	return func(s *Server) {
		s.directory = directory
		s.brokerConnected = brokerConnected
	}
}

// Server wraps an http.Server with the alertbridge router and manages the
// full lifecycle including startup and graceful shutdown.
type Server struct {
	httpServer      *http.Server
	router          chi.Router
	gateway         *Gateway
	config          ServerConfig
	logger          *slog.Logger
	authChain       *auth.AuthChain
	limiter         auth.RateLimiter
	directory       HealthChecker
	brokerConnected func() bool
}

// NewServer builds the router around the gateway.
func NewServer(gw *Gateway, opts ...ServerOption) *Server {
	s := &Server{
		gateway: gw,
		config:  DefaultServerConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.config.Logger == nil {
		s.config.Logger = slog.Default()
	}
	if s.authChain == nil {
		s.authChain = &auth.AuthChain{}
	}
	s.logger = s.config.Logger
	s.router = s.routes()

	s.httpServer = &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(
		transport.Recovery(s.logger),
		transport.RequestID(),
		transport.Logging(s.logger),
		observability.MetricsMiddleware,
	)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if s.config.MetricsPath != "" {
		r.Handle(s.config.MetricsPath, promhttp.Handler())
	}

	r.Route(s.config.RoutePrefix, func(r chi.Router) {
		r.Post("/user", s.gateway.HandleUser)
		r.Post("/superuser", s.gateway.HandleSuperuser)
		r.Post("/acl", s.gateway.HandleACL)
		r.With(middleware.NoCache, auth.Middleware(s.authChain, s.limiter)).
			Get("/jwt", s.gateway.HandleMint)
	})

	return r
}

// Handler returns the router. Use this to test with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// readiness is the /readyz body.
type readiness struct {
	Status          string `json:"status"`
	BrokerConnected bool   `json:"broker_connected"`
	Error           string `json:"error,omitempty"`
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	body := readiness{Status: "ready"}
	status := http.StatusOK

	if s.brokerConnected != nil {
		body.BrokerConnected = s.brokerConnected()
	}
	if s.directory != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.directory.HealthCheck(ctx); err != nil {
			body.Status = "unavailable"
			body.Error = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", ln.Addr().String()),
			slog.String("route_prefix", s.config.RoutePrefix),
		)
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	return s.shutdown()
}

func (s *Server) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down gracefully", slog.Duration("timeout", s.config.ShutdownTimeout))
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("shutdown error", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

// Shutdown gracefully shuts down the server with the given context.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
