package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/wfgraph/internal/expressions"
	"github.com/rendis/wfgraph/internal/logging"
	"github.com/rendis/wfgraph/internal/store"
	"github.com/rendis/wfgraph/internal/streaming"
	"github.com/rendis/wfgraph/internal/validation"
)

// ServerDeps holds the dependencies for creating a GraphServer.
type ServerDeps struct {
	// Store backs save/load/list. Without it those tools report an error.
	Store store.Store
	// Dialect selects the gateway condition language. Empty means CEL.
	Dialect string
	// Hub, when set, receives a graph_saved event for every save.
	Hub     streaming.EventHub
	Version string // reported to clients
	Logger  *slog.Logger
}

// GraphServer wraps an MCP server with workflow graph tool handlers.
type GraphServer struct {
	store     store.Store
	checker   expressions.Engine
	snapshots *validation.SnapshotValidator
	sessions  *SessionRegistry
	notifier  SessionNotifier
	hub       streaming.EventHub
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewGraphServer creates a GraphServer with all tools registered.
func NewGraphServer(deps ServerDeps) (*GraphServer, error) {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	checker, err := expressions.New(deps.Dialect)
	if err != nil {
		return nil, err
	}
	snapshots, err := validation.NewSnapshotValidator()
	if err != nil {
		return nil, err
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}

	s := &GraphServer{
		store:     deps.Store,
		checker:   checker,
		snapshots: snapshots,
		sessions:  NewSessionRegistry(),
		hub:       deps.Hub,
		logger:    logger,
	}

	hooks := &server.Hooks{}
	hooks.AddOnUnregisterSession(func(_ context.Context, session server.ClientSession) {
		s.sessions.Remove(session.SessionID())
	})

	mcpSrv := server.NewMCPServer(
		"wfgraph",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithHooks(hooks),
		server.WithInstructions("wfgraph lays out, validates, renders and stores workflow process graphs. "+
			"Pass a graph snapshot (nodes with id/kind/name, connections with from/to) or a stored graph_id. "+
			"Use wfgraph.layout for node positions and connection paths, wfgraph.validate for structural issues, "+
			"wfgraph.diagram for ascii/mermaid/svg/image output, and wfgraph.save/load/list for persistence."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	s.notifier = NewMCPNotifier(mcpSrv, s.sessions)
	return s, nil
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *GraphServer) Serve(ctx context.Context) error {
	s.logger.InfoContext(ctx, "mcp server started", slog.String("transport", "stdio"))
	stdio := server.NewStdioServer(s.mcpServer)
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil {
		return fmt.Errorf("mcp stdio: %w", err)
	}
	return nil
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *GraphServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Sessions returns the registry of per-session current graphs.
func (s *GraphServer) Sessions() *SessionRegistry {
	return s.sessions
}

// tools returns the registered MCP tools as ServerTool entries.
func (s *GraphServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: layoutTool(), Handler: s.handleLayout},
		{Tool: validateTool(), Handler: s.handleValidate},
		{Tool: diagramTool(), Handler: s.handleDiagram},
		{Tool: saveTool(), Handler: s.handleSave},
		{Tool: loadTool(), Handler: s.handleLoad},
		{Tool: listTool(), Handler: s.handleList},
	}
}

// --- Tool definitions ---

func withGraphInput() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithObject("snapshot", mcp.Description("Graph snapshot: {id?, name?, orientation?, nodes: [{id, kind, name?, ...}], connections?: [{from, to, label?}]}")),
		mcp.WithString("graph_id", mcp.Description("ID of a stored graph, used when snapshot is omitted (default: the session's current graph)")),
	}
}

func layoutTool() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Compute node positions and connection paths for a workflow graph"),
		mcp.WithString("orientation",
			mcp.Enum("horizontal", "vertical"),
			mcp.Description("Layout orientation (default: the snapshot's, else horizontal)"),
		),
	}, withGraphInput()...)
	return mcp.NewTool("wfgraph.layout", opts...)
}

func validateTool() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Check a workflow graph for structural issues"),
	}, withGraphInput()...)
	return mcp.NewTool("wfgraph.validate", opts...)
}

func diagramTool() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Render a workflow graph. Returns ASCII art, Mermaid flowchart syntax, SVG markup, or a base64-encoded PNG image"),
		mcp.WithString("format", mcp.Required(),
			mcp.Enum("ascii", "mermaid", "svg", "image"),
			mcp.Description("Output format"),
		),
		mcp.WithString("orientation",
			mcp.Enum("horizontal", "vertical"),
			mcp.Description("Layout orientation (default: the snapshot's, else horizontal)"),
		),
	}, withGraphInput()...)
	return mcp.NewTool("wfgraph.diagram", opts...)
}

func saveTool() mcp.Tool {
	return mcp.NewTool("wfgraph.save",
		mcp.WithDescription("Store a graph snapshot as a new revision"),
		mcp.WithObject("snapshot", mcp.Required(), mcp.Description("Graph snapshot to store; its id is generated when missing")),
		mcp.WithBoolean("allow_invalid", mcp.Description("Store even when the validator reports issues (default: false)")),
	)
}

func loadTool() mcp.Tool {
	return mcp.NewTool("wfgraph.load",
		mcp.WithDescription("Load a stored graph snapshot"),
		mcp.WithString("graph_id", mcp.Required(), mcp.Description("ID of the stored graph")),
		mcp.WithNumber("version", mcp.Description("Revision to load (default: latest)")),
	)
}

func listTool() mcp.Tool {
	return mcp.NewTool("wfgraph.list",
		mcp.WithDescription("List stored graphs, most recently updated first"),
		mcp.WithString("name_prefix", mcp.Description("Only graphs whose name starts with this prefix")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of graphs (default: 50)")),
		mcp.WithNumber("offset", mcp.Description("Number of graphs to skip")),
	)
}
