// ABOUTME: MCP server setup for the healthcal record store.
// ABOUTME: Exposes health records, schedules, and settings to MCP clients over stdio.
package mcp

import (
	"context"
	"errors"

	"github.com/harperreed/healthcal/internal/service"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Services are the entity services the server calls. The store behind them
// must already hold a signed-in session.
type Services struct {
	Records   *service.HealthRecords
	Schedules *service.Schedules
	Settings  *service.Settings
}

// Server wraps the MCP server with service access.
type Server struct {
	mcpServer *mcp.Server
	svc       Services
}

// NewServer creates a new MCP server over svc.
func NewServer(svc Services) (*Server, error) {
	if svc.Records == nil || svc.Schedules == nil || svc.Settings == nil {
		return nil, errors.New("mcp: records, schedules and settings services are required")
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "healthcal",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		mcpServer: mcpServer,
		svc:       svc,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve starts the MCP server using stdio transport.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
