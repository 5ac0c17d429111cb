// Package httpapi wraps an overlay node in the host process's HTTP surface:
// management endpoints, Prometheus metrics, and the /ws connection-upgrade
// path other nodes dial into.
package httpapi

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/peermesh/peermesh-go/internal/overlaynode"
)

// Server represents the HTTP API server
type Server struct {
	node       *overlaynode.Node
	jwtAuth    *JWTAuth
	handlers   *Handlers
	middleware *Middleware
	server     *http.Server
}

// Config holds server configuration
type Config struct {
	// Addr is the listen address, e.g. ":4000".
	Addr string

	// SecretKey signs API tokens.
	SecretKey string

	// NoAuth bypasses token checks on management endpoints (development).
	NoAuth bool

	// Logger receives request and error logs. Nil means stderr.
	Logger *log.Logger
}

// NewServer creates a new HTTP API server around the given node
func NewServer(node *overlaynode.Node, config Config) *Server {
	secretKey := config.SecretKey
	if secretKey == "" {
		secretKey = "peermesh-dev-secret-key-change-in-production"
	}
	logger := config.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "[peermesh/api] ", log.LstdFlags)
	}

	jwtAuth := NewJWTAuth(secretKey)
	handlers := NewHandlers(node, jwtAuth, logger)
	middleware := NewMiddleware(jwtAuth, logger, config.NoAuth)

	s := &Server{
		node:       node,
		jwtAuth:    jwtAuth,
		handlers:   handlers,
		middleware: middleware,
	}

	s.server = &http.Server{
		Addr:           config.Addr,
		Handler:        s.Routes(),
		ReadTimeout:    30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Routes configures all HTTP routes. Exposed so tests and embedding hosts
// can mount the API on their own server.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	withMiddleware := func(handler http.HandlerFunc) http.Handler {
		return s.middleware.Recovery(
			s.middleware.Logging(
				s.middleware.CORS(
					s.middleware.ContentType(handler))))
	}

	// Authentication endpoint (no auth required)
	mux.Handle("/api/v1/auth/login", withMiddleware(s.handlers.Login))

	// Overlay management endpoints (auth required)
	mux.Handle("/api/v1/peers", withMiddleware(s.middleware.AuthRequired(s.handlePeers)))
	mux.Handle("/api/v1/broadcast", withMiddleware(s.middleware.AuthRequired(s.handlers.Broadcast)))

	// Health endpoint (no auth required)
	mux.Handle("/api/v1/health", withMiddleware(s.handlers.Health))

	// Prometheus metrics for this node's registry
	mux.Handle("/metrics", promhttp.HandlerFor(s.node.Registry(), promhttp.HandlerOpts{}))

	// The overlay's connection-upgrade path: other nodes dial ws://host/ws.
	// Peer connections carry no authentication.
	mux.Handle("/ws", s.node.Handler())

	return mux
}

// handlePeers routes peer-set requests based on HTTP method
func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handlers.ListPeers(w, r)
	case http.MethodPost:
		s.handlers.AddPeer(w, r)
	default:
		s.middleware.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
