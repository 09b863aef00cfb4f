package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"golang.org/x/time/rate"
)

// Defaults for the HTTP transport.
const (
	DefaultHTTPAddr     = "127.0.0.1:8080"
	DefaultHTTPEndpoint = "/mcp"

	defaultRequestRate  = 10
	defaultRequestBurst = 20
)

// HTTPServerConfig holds configuration for the HTTP transport.
type HTTPServerConfig struct {
	// Addr must resolve to a loopback interface.
	Addr string

	// Health adds the health endpoints when set.
	Health *HealthChecker

	// RequestsPerSecond limits incoming requests. Zero uses the default.
	RequestsPerSecond float64
	Burst             int

	Logger *slog.Logger
}

// HTTPServer exposes an MCP server over the streamable HTTP transport.
type HTTPServer struct {
	httpServer *http.Server
	listener   net.Listener
	addr       string
	logger     *slog.Logger
}

// NewHTTPServer creates the HTTP transport for mcpServer.
func NewHTTPServer(mcpServer *mcpserver.MCPServer, config HTTPServerConfig) (*HTTPServer, error) {
	if config.Addr == "" {
		config.Addr = DefaultHTTPAddr
	}
	if err := validateLoopbackAddr(config.Addr); err != nil {
		return nil, err
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = defaultRequestRate
	}
	if config.Burst <= 0 {
		config.Burst = defaultRequestBurst
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	streamable := mcpserver.NewStreamableHTTPServer(mcpServer,
		mcpserver.WithEndpointPath(DefaultHTTPEndpoint),
	)

	mux := http.NewServeMux()
	limiter := rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst)
	mux.Handle(DefaultHTTPEndpoint, rateLimitMiddleware(limiter, streamable))
	if config.Health != nil {
		config.Health.RegisterHealthEndpoints(mux)
	}

	return &HTTPServer{
		addr:   config.Addr,
		logger: logger,
		httpServer: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}, nil
}

// Listen binds the configured address.
func (s *HTTPServer) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln
	s.addr = ln.Addr().String()
	return nil
}

// Serve serves requests until Shutdown. The returned error is nil after a
// graceful shutdown.
func (s *HTTPServer) Serve() error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	s.logger.Info("starting MCP HTTP server", slog.String("addr", s.addr), slog.String("endpoint", DefaultHTTPEndpoint))
	if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the server address.
func (s *HTTPServer) Addr() string {
	return s.addr
}

// validateLoopbackAddr rejects addresses that are reachable from other
// hosts. The transport has no authentication.
func validateLoopbackAddr(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	if host == "localhost" {
		return nil
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("address %q is not a loopback address; the HTTP transport is unauthenticated", addr)
	}
	return nil
}

func rateLimitMiddleware(limiter *rate.Limiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
