// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Raido catalog tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/amsel/raido/internal/catalog"
	"github.com/amsel/raido/internal/media"
	"github.com/amsel/raido/internal/models"
	"github.com/amsel/raido/internal/nodeservice"
)

// Server wraps the MCP server with Raido tools.
type Server struct {
	mcp *server.MCPServer
	svc *nodeservice.Service
	db  *catalog.DB
}

// New creates a new MCP server with all Raido tools registered.
func New(db *catalog.DB, store media.Store) *Server {
	s := &Server{
		svc: nodeservice.NewService(db, store),
		db:  db,
	}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_nodes",
		mcp.WithDescription("Search content nodes by name."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchNodes)

	s.mcp.AddTool(mcp.NewTool("read_node",
		mcp.WithDescription("Read a single content node's metadata as JSON."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Node id")),
	), s.readNode)

	s.mcp.AddTool(mcp.NewTool("list_children",
		mcp.WithDescription("List the direct children of a folder node. Use the id 'root' for the top level."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Folder node id or 'root'")),
	), s.listChildren)

	s.mcp.AddTool(mcp.NewTool("create_folder",
		mcp.WithDescription("Create a folder node. The kind must follow the node taxonomy contract "+
			"(read it first via the get_node_taxonomy tool or the raido://node-taxonomy resource); "+
			"in particular a map folder may only contain spots and stops."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Display name for the folder")),
		mcp.WithString("kind", mcp.Required(), mcp.Description("One of: location, map, spot, stop")),
		mcp.WithString("parent_id", mcp.Description("Parent folder id (omit for the root)")),
	), s.createFolder)

	s.mcp.AddTool(mcp.NewTool("validate_access_code",
		mcp.WithDescription("Check whether an access code exists and is inside its validity window."),
		mcp.WithString("code", mcp.Required(), mcp.Description("The access code value")),
	), s.validateAccessCode)

	s.mcp.AddTool(mcp.NewTool("get_node_taxonomy",
		mcp.WithDescription("Returns the canonical Raido node taxonomy contract. "+
			"Call this before creating folders to pick a valid kind."),
	), s.getNodeTaxonomy)

	// Resource: node taxonomy contract.
	s.mcp.AddResource(
		mcp.NewResource("raido://node-taxonomy", "Node Taxonomy Contract",
			mcp.WithResourceDescription("Canonical taxonomy for folders, files, and access codes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readTaxonomyResource,
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

func (s *Server) searchNodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	it, err := s.svc.Node(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	out, _ := json.MarshalIndent(it, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listChildren(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	children, err := s.svc.Children(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(children, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	kind, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	parentID := models.RootID
	if p, err := req.RequireString("parent_id"); err == nil && p != "" {
		parentID = p
	}

	it, err := s.svc.CreateFolder(ctx, name, models.FolderKind(kind), parentID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s (%s)", it.ID, it.Name)), nil
}

func (s *Server) validateAccessCode(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := req.RequireString("code")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	valid, err := s.db.ValidateCode(code, time.Now())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if valid {
		return mcp.NewToolResultText("valid"), nil
	}
	return mcp.NewToolResultText("invalid"), nil
}

func (s *Server) getNodeTaxonomy(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NodeTaxonomyContract), nil
}

func (s *Server) readTaxonomyResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "raido://node-taxonomy",
			MIMEType: "text/markdown",
			Text:     NodeTaxonomyContract,
		},
	}, nil
}
