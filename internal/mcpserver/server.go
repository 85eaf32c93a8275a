// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Jera linking tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/jera/internal/linker"
	"github.com/starford/jera/internal/storage"
)

// Server wraps the MCP server with Jera tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *linker.Service
	store storage.Provider
}

// New creates a new MCP server with all Jera tools registered.
func New(svc *linker.Service, store storage.Provider) *Server {
	s := &Server{svc: svc, store: store}

	s.mcp = server.NewMCPServer(
		"Jera",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("link_note",
		mcp.WithDescription("Link a daily note into its weekly note. "+
			"Idempotent: calling it again for the same note changes nothing."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path of the daily note (e.g. daily/2025-05-12.md)")),
	), s.linkNote)

	s.mcp.AddTool(mcp.NewTool("unlink_note",
		mcp.WithDescription("Remove a daily note's link from its weekly note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path of the daily note to unlink")),
	), s.unlinkNote)

	s.mcp.AddTool(mcp.NewTool("backfill_links",
		mcp.WithDescription("Process every note in the vault once and link all daily notes "+
			"into their weekly notes. Returns a run summary."),
	), s.backfillLinks)

	s.mcp.AddTool(mcp.NewTool("resolve_weekly",
		mcp.WithDescription("Resolve the weekly note path that owns a daily note, without writing anything."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path of the daily note")),
	), s.resolveWeekly)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a Markdown note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
	), s.readNote)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) linkNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	changed, err := s.svc.ProcessOne(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	weekly, ok, _ := s.svc.ResolveWeekly(path)
	if !ok {
		return mcp.NewToolResultText(fmt.Sprintf("not a daily note: %s", path)), nil
	}
	if !changed {
		return mcp.NewToolResultText(fmt.Sprintf("already linked: %s -> %s", path, weekly)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("linked: %s -> %s", path, weekly)), nil
}

func (s *Server) unlinkNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	changed, err := s.svc.OnDeleted(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !changed {
		return mcp.NewToolResultText(fmt.Sprintf("no link to remove: %s", path)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("unlinked: %s", path)), nil
}

func (s *Server) backfillLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sum, err := s.svc.BackfillAll(ctx, false)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(sum, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) resolveWeekly(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	weekly, ok, err := s.svc.ResolveWeekly(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultText(fmt.Sprintf("not a daily note: %s", path)), nil
	}
	return mcp.NewToolResultText(weekly), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
