// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes sitegen tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/suntyn/sitegen/internal/apperr"
	"github.com/suntyn/sitegen/internal/assetservice"
	"github.com/suntyn/sitegen/internal/publisher"
	"github.com/suntyn/sitegen/internal/sitemap"
)

// CatalogURI identifies the route catalog resource.
const CatalogURI = "sitegen://route-catalog"

// Server wraps the MCP server with sitegen tools.
type Server struct {
	mcp *server.MCPServer
	svc *assetservice.Service
}

// New creates a new MCP server with all sitegen tools registered.
func New(svc *assetservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"sitegen",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("regenerate_assets",
		mcp.WithDescription("Regenerate robots.txt, sitemap.xml, sitemap-tools.xml and sitemap-index.xml. "+
			"Fails without writing anything if a regeneration is already running."),
	), s.regenerateAssets)

	s.mcp.AddTool(mcp.NewTool("read_artifact",
		mcp.WithDescription("Read the current content of a published crawler file."),
		mcp.WithString("name", mcp.Required(),
			mcp.Description("File name"),
			mcp.Enum(sitemap.Names...)),
	), s.readArtifact)

	s.mcp.AddTool(mcp.NewTool("list_routes",
		mcp.WithDescription("List the URLs the sitemaps are generated from, with change frequency and priority."),
		mcp.WithString("kind", mcp.Description("Optional filter"), mcp.Enum("static", "tool")),
	), s.listRoutes)

	s.mcp.AddTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List recent regeneration runs, newest first."),
		mcp.WithNumber("limit", mcp.Description("Max runs to return (default 20)")),
	), s.listRuns)

	s.mcp.AddResource(
		mcp.NewResource(CatalogURI, "Route Catalog",
			mcp.WithResourceDescription("Every static page and tool page listed in the sitemaps."),
			mcp.WithMIMEType("application/json"),
		),
		s.readCatalogResource,
	)

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

func (s *Server) regenerateAssets(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.Regenerate(ctx, publisher.TriggerMCP)
	if err != nil {
		if errors.Is(err, apperr.ErrBusy) {
			return mcp.NewToolResultError("regeneration already in progress, try again shortly"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readArtifact(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	art, err := s.svc.ReadArtifact(ctx, name)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("%s not found; run regenerate_assets first", name)), nil
	case errors.Is(err, apperr.ErrUnknownArtifact):
		return mcp.NewToolResultError(fmt.Sprintf("unknown artifact %q, expected one of: %s",
			name, strings.Join(sitemap.Names, ", "))), nil
	case err != nil:
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(art.Content)), nil
}

func (s *Server) listRoutes(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind := ""
	if k, err := req.RequireString("kind"); err == nil {
		kind = k
	}
	routes, err := s.svc.Routes(kind)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(routes, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := 0
	if n, err := req.RequireInt("limit"); err == nil {
		limit = n
	}
	runs, err := s.svc.Runs(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(runs) == 0 {
		return mcp.NewToolResultText("no runs recorded"), nil
	}
	out, _ := json.MarshalIndent(runs, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readCatalogResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out, err := json.MarshalIndent(s.svc.Catalog().Entries(), "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      CatalogURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}
