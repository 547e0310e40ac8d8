// Package mcp implements the Model Context Protocol server for Shinsa.
//
// The MCP server is the primary surface: agents drafting social content
// call the review tools before publishing, and the resources expose the
// model catalog and the evaluation audit trail as readable context.
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/shinsa-ai/shinsa/internal/history"
	"github.com/shinsa-ai/shinsa/internal/review"
	"github.com/shinsa-ai/shinsa/internal/router"
)

// Server wraps the MCP server with Shinsa's service layer.
type Server struct {
	mcpServer *mcpserver.MCPServer
	review    *review.Service
	router    *router.Router
	hist      *history.Store
	logger    *slog.Logger
}

// New creates and configures an MCP server with all resources, tools, and
// prompts. hist may be nil; history-backed surfaces then report that the
// audit trail is disabled.
func New(reviewSvc *review.Service, r *router.Router, hist *history.Store, logger *slog.Logger, version string) *Server {
	s := &Server{
		review: reviewSvc,
		router: r,
		hist:   hist,
		logger: logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"shinsa",
		version,
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithPromptCapabilities(true),
	)

	s.registerResources()
	s.registerTools()
	s.registerPrompts()

	return s
}

// ServeStdio blocks serving the MCP protocol over stdin/stdout until ctx is
// cancelled or the client disconnects.
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcpserver.NewStdioServer(s.mcpServer).Listen(ctx, os.Stdin, os.Stdout)
}

// jsonResult marshals v as indented JSON into a successful tool result.
func jsonResult(v any) *mcplib.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("marshal result: " + err.Error())
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
