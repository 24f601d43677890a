// Package server exposes the guideline engine to MCP hosts over stdio.
package server

import (
	"github.com/mark3labs/mcp-go/server"
	"guide/internal/usecase"
)

// Version is reported to MCP clients during initialization.
var Version = "0.1.0"

// New creates the MCP server with the guideline tools registered.
func New(engine *usecase.Engine) *server.MCPServer {
	s := server.NewMCPServer(
		"guide",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	forFile := NewGuidelinesForFileTool(engine)
	s.AddTool(forFile.Definition(), forFile.Handle)

	list := NewListGuidelinesTool(engine)
	s.AddTool(list.Definition(), list.Handle)

	return s
}

// ServeStdio runs s on stdin/stdout until the client disconnects.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

const instructions = `Call guidelines_for_file before editing a file to get the project conventions that apply to it.
Sections come ordered from most to least specific. A section with conflicts_with disagrees with an earlier document's section of the same title; prefer the earlier one.`
