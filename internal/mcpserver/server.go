package mcpserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/apresai/storybook/internal/app"
)

// Config holds server configuration.
type Config struct {
	Port     int
	Version  string
	Checkout CheckoutConfig
}

// Server is the MCP server for storybook generation.
type Server struct {
	cfg      Config
	mcp      *server.MCPServer
	handlers *Handlers
	log      *slog.Logger
}

// New creates and configures the MCP server. baseCtx bounds every run and
// should be cancelled on SIGTERM.
func New(baseCtx context.Context, a *app.App, cfg Config, logger *slog.Logger) *Server {
	runner := NewRunner(baseCtx, a.Deps, logger)
	handlers := NewHandlers(runner, cfg.Checkout, logger)

	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	mcpServer := server.NewMCPServer(
		"storybook",
		version,
		server.WithToolCapabilities(true),
	)
	register(mcpServer, handlers)

	return &Server{
		cfg:      cfg,
		mcp:      mcpServer,
		handlers: handlers,
		log:      logger,
	}
}

func register(s *server.MCPServer, h *Handlers) {
	tools := ToolDefs()
	s.AddTool(tools[0], h.HandleGenerateStorybook)
	s.AddTool(tools[1], h.HandleEncodeIntake)
	s.AddTool(tools[2], h.HandleDecodeIntake)
	s.AddTool(tools[3], h.HandleParseScenes)
	s.AddTool(tools[4], h.HandlePaymentLink)
}

// Start runs the HTTP MCP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.log.Info("Starting MCP server", "addr", addr)

	httpServer := server.NewStreamableHTTPServer(s.mcp,
		server.WithStateLess(true),
	)
	return httpServer.Start(addr)
}
