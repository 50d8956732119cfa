// Package mcp implements the Model Context Protocol surface of the decision
// engine.
//
// The MCP server exposes a read-only slice of the HTTP API (backlog, metrics,
// decision lookup) so MCP-compatible agents can triage and inspect decisions.
// Resolution stays on the HTTP API where the full audit pipeline runs.
package mcp

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/orbitalworks/verdict/internal/service/decisions"
)

// TenantFunc extracts the calling organization from a request context.
// The HTTP transport injects it from the validated JWT claims.
type TenantFunc func(ctx context.Context) (orgID uuid.UUID, ok bool)

// Server wraps the MCP server with the decision service.
type Server struct {
	mcpServer *mcpserver.MCPServer
	svc       *decisions.Service
	logger    *slog.Logger
	tenant    TenantFunc
}

// New creates and configures a new MCP server with all tools and prompts.
func New(svc *decisions.Service, logger *slog.Logger, tenant TenantFunc) *Server {
	s := &Server{
		svc:    svc,
		logger: logger,
		tenant: tenant,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"verdict",
		"0.1.0",
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithPromptCapabilities(true),
	)

	s.registerTools()
	s.registerPrompts()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}
