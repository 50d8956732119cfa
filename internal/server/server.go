package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/orbitalworks/verdict/internal/auth"
	"github.com/orbitalworks/verdict/internal/ratelimit"
	"github.com/orbitalworks/verdict/internal/service/decisions"
	"github.com/orbitalworks/verdict/internal/storage"
)

// Server is the decision engine HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	handlers   *Handlers
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a Server.
// Optional fields (nil-safe): Limiter, Broker, MCPServer.
type ServerConfig struct {
	// Required dependencies.
	DB          *storage.DB
	JWTMgr      *auth.JWTManager
	DecisionSvc *decisions.Service
	Logger      *slog.Logger

	// Optional dependencies (nil = disabled).
	Limiter   *ratelimit.Limiter
	Broker    *Broker
	MCPServer *mcpserver.MCPServer

	// HTTP server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
	BacklogLimit        int
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		DB:                  cfg.DB,
		JWTMgr:              cfg.JWTMgr,
		DecisionSvc:         cfg.DecisionSvc,
		Broker:              cfg.Broker,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		BacklogLimit:        cfg.BacklogLimit,
	})

	// Request ID extractor for rate limit error responses.
	reqIDFunc := func(r *http.Request) string {
		return RequestIDFromContext(r.Context())
	}

	// Rate limit rules. Token issuance is keyed by IP because it runs before
	// auth; everything else is keyed by the authenticated user.
	authRL := ratelimit.MiddlewareWithRequestID(cfg.Limiter, ratelimit.Rule{
		Prefix: "auth", Limit: 20, Window: time.Minute,
	}, ratelimit.IPKeyFunc, reqIDFunc)
	writeRL := ratelimit.MiddlewareWithRequestID(cfg.Limiter, ratelimit.Rule{
		Prefix: "write", Limit: 120, Window: time.Minute,
	}, userKeyFunc, reqIDFunc)
	readRL := ratelimit.MiddlewareWithRequestID(cfg.Limiter, ratelimit.Rule{
		Prefix: "read", Limit: 300, Window: time.Minute,
	}, userKeyFunc, reqIDFunc)

	mux := http.NewServeMux()

	// Auth endpoint (no auth required, rate limited by IP).
	mux.Handle("POST /auth/token", authRL(http.HandlerFunc(h.HandleAuthToken)))

	// Decision lifecycle.
	mux.Handle("POST /v1/decisions", writeRL(http.HandlerFunc(h.HandleCreateDecision)))
	mux.Handle("GET /v1/decisions", readRL(http.HandlerFunc(h.HandleListDecisions)))
	mux.Handle("GET /v1/decisions/metrics", readRL(http.HandlerFunc(h.HandleDecisionMetrics)))
	mux.Handle("GET /v1/decisions/backlog", readRL(http.HandlerFunc(h.HandleBacklog)))
	mux.Handle("POST /v1/decisions/batch-review", readRL(http.HandlerFunc(h.HandleBatchReview)))
	mux.Handle("GET /v1/decisions/{id}", readRL(http.HandlerFunc(h.HandleGetDecision)))
	mux.Handle("POST /v1/decisions/{id}/decide", writeRL(http.HandlerFunc(h.HandleResolveDecision)))
	mux.Handle("GET /v1/decisions/{id}/analysis", readRL(http.HandlerFunc(h.HandleDecisionAnalysis)))

	// Stakeholder notifications.
	mux.Handle("GET /v1/notifications", readRL(http.HandlerFunc(h.HandleListNotifications)))

	// Subscription endpoint (no rate limit, long-lived connection).
	mux.Handle("GET /v1/subscribe", http.HandlerFunc(h.HandleSubscribe))

	// MCP StreamableHTTP transport (auth required).
	if cfg.MCPServer != nil {
		mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(cfg.MCPServer))
	}

	// Health (no auth, no rate limit).
	mux.HandleFunc("GET /health", h.HandleHealth)

	// Middleware chain (outermost executes first):
	// request ID -> security headers -> tracing -> logging -> auth -> recovery -> handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = authMiddleware(cfg.JWTMgr, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler:  handler,
		handlers: h,
		logger:   cfg.Logger,
	}
}

// userKeyFunc extracts the authenticated user ID for rate limiting.
// Requests without claims (shouldn't reach rate limited routes) are exempt.
func userKeyFunc(r *http.Request) string {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		return ""
	}
	return claims.UserID.String()
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
