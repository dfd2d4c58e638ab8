package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/wfgraph/internal/diagram"
	"github.com/rendis/wfgraph/internal/graph"
	"github.com/rendis/wfgraph/internal/layout"
	"github.com/rendis/wfgraph/internal/logging"
	"github.com/rendis/wfgraph/internal/store"
	"github.com/rendis/wfgraph/internal/streaming"
	"github.com/rendis/wfgraph/internal/validation"
	"github.com/rendis/wfgraph/internal/viewer"
	"github.com/rendis/wfgraph/pkg/schema"
)

const defaultListLimit = 50

// handleLayout returns node positions and connection paths.
func (s *GraphServer) handleLayout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v, err := s.viewerFor(ctx, req)
	if err != nil {
		return toolError("layout failed", err), nil
	}
	return marshalResult(v.Scene())
}

// handleValidate reports structural issues. Issues are data: the call
// succeeds even when the graph is invalid.
func (s *GraphServer) handleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := s.inputSnapshot(ctx, req)
	if err != nil {
		return toolError("invalid input", err), nil
	}
	g, err := graph.FromSnapshot(snap)
	if err != nil {
		return toolError("invalid graph", err), nil
	}
	issues := s.validate(g)
	return marshalResult(map[string]any{
		"valid":  issues.Valid(),
		"issues": issues,
	})
}

// handleDiagram renders the graph in the requested format.
func (s *GraphServer) handleDiagram(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format, err := req.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError("format is required"), nil
	}
	switch format {
	case "ascii", "mermaid", "svg", "image":
	default:
		return mcp.NewToolResultError("format must be ascii, mermaid, svg, or image"), nil
	}

	v, err := s.viewerFor(ctx, req)
	if err != nil {
		return toolError("diagram build failed", err), nil
	}
	model := diagram.Build(v.Title(), v.Graph(), v.Layout(), v.Paths())

	switch format {
	case "ascii":
		return mcp.NewToolResultText(diagram.RenderASCII(model)), nil
	case "mermaid":
		return mcp.NewToolResultText(diagram.RenderMermaid(model)), nil
	case "svg":
		return mcp.NewToolResultText(diagram.RenderSVG(model)), nil
	default:
		png, imgErr := diagram.RenderImage(ctx, model, diagram.ImagePNG)
		if imgErr != nil {
			return toolError("image render failed", imgErr), nil
		}
		encoded := base64.StdEncoding.EncodeToString(png)
		return mcp.NewToolResultImage(model.Title, encoded, "image/png"), nil
	}
}

// handleSave stores a snapshot as a new revision and makes it the session's
// current graph.
func (s *GraphServer) handleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError("no graph store configured"), nil
	}
	raw := mcp.ParseStringMap(req, "snapshot", nil)
	if raw == nil {
		return mcp.NewToolResultError("snapshot is required"), nil
	}
	snap, err := s.decodeSnapshot(raw)
	if err != nil {
		return toolError("invalid snapshot", err), nil
	}
	g, err := graph.FromSnapshot(snap)
	if err != nil {
		return toolError("invalid graph", err), nil
	}
	issues := s.validate(g)
	if !issues.Valid() && !req.GetBool("allow_invalid", false) {
		res, _ := marshalResult(map[string]any{"saved": false, "issues": issues})
		res.IsError = true
		return res, nil
	}

	rec := &store.GraphRecord{Snapshot: snap}
	if err := s.store.SaveGraph(ctx, rec); err != nil {
		return toolError("save failed", err), nil
	}
	s.captureSession(ctx, rec.ID)

	if err := s.notifier.Notify(ctx, rec.ID, map[string]any{
		"graph_id": rec.ID,
		"version":  rec.Version,
	}); err != nil {
		s.logger.WarnContext(logging.WithGraphID(ctx, rec.ID), "graph change notification failed",
			slog.String("error", err.Error()))
	}
	if s.hub != nil {
		if err := s.hub.Publish(ctx, streaming.StreamEvent{
			GraphID:   rec.ID,
			Version:   rec.Version,
			EventType: streaming.EventGraphSaved,
			Source:    "mcp",
		}); err != nil {
			s.logger.WarnContext(logging.WithGraphID(ctx, rec.ID), "graph change publish failed",
				slog.String("error", err.Error()))
		}
	}

	return marshalResult(map[string]any{
		"saved":       true,
		"graph_id":    rec.ID,
		"version":     rec.Version,
		"nodes":       rec.Nodes,
		"connections": rec.Connections,
		"issues":      issues,
	})
}

// handleLoad returns a stored snapshot, the latest revision unless a
// version is given.
func (s *GraphServer) handleLoad(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError("no graph store configured"), nil
	}
	id, err := req.RequireString("graph_id")
	if err != nil {
		return mcp.NewToolResultError("graph_id is required"), nil
	}

	var (
		snap    *schema.Snapshot
		version int
	)
	if v := req.GetInt("version", 0); v > 0 {
		rev, revErr := s.store.GetRevision(ctx, id, v)
		if revErr != nil {
			return toolError("load failed", revErr), nil
		}
		snap, version = rev.Snapshot, rev.Version
	} else {
		rec, getErr := s.store.GetGraph(ctx, id)
		if getErr != nil {
			return toolError("load failed", getErr), nil
		}
		snap, version = rec.Snapshot, rec.Version
	}
	s.captureSession(ctx, id)

	return marshalResult(map[string]any{
		"graph_id": id,
		"version":  version,
		"snapshot": snap,
	})
}

// handleList returns stored graph summaries.
func (s *GraphServer) handleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return mcp.NewToolResultError("no graph store configured"), nil
	}
	filter := store.GraphFilter{
		NamePrefix: req.GetString("name_prefix", ""),
		Limit:      req.GetInt("limit", defaultListLimit),
		Offset:     req.GetInt("offset", 0),
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	recs, err := s.store.ListGraphs(ctx, filter)
	if err != nil {
		return toolError("list failed", err), nil
	}
	if recs == nil {
		recs = []*store.GraphRecord{}
	}
	return marshalResult(map[string]any{"graphs": recs})
}

// --- Helpers ---

// viewerFor lays out the request's graph with the requested orientation.
func (s *GraphServer) viewerFor(ctx context.Context, req mcp.CallToolRequest) (*viewer.Viewer, error) {
	snap, err := s.inputSnapshot(ctx, req)
	if err != nil {
		return nil, err
	}
	opts := []viewer.Option{
		viewer.WithLogger(s.logger),
		viewer.WithSessionID(sessionID(ctx)),
	}
	if o := req.GetString("orientation", ""); o != "" {
		orientation, parseErr := layout.ParseOrientation(o)
		if parseErr != nil {
			return nil, schema.NewError(schema.ErrCodeValidation, parseErr.Error()).WithCause(parseErr)
		}
		opts = append(opts, viewer.WithOrientation(orientation))
	}
	return viewer.FromSnapshot(snap, opts...)
}

// inputSnapshot resolves the graph a tool works on: an inline snapshot,
// then graph_id, then the session's current graph.
func (s *GraphServer) inputSnapshot(ctx context.Context, req mcp.CallToolRequest) (*schema.Snapshot, error) {
	if raw := mcp.ParseStringMap(req, "snapshot", nil); raw != nil {
		return s.decodeSnapshot(raw)
	}

	id := req.GetString("graph_id", "")
	if id == "" {
		id, _ = s.sessions.GraphFor(sessionID(ctx))
	}
	if id == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "one of snapshot or graph_id is required")
	}
	if s.store == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "graph_id given but no graph store configured")
	}
	rec, err := s.store.GetGraph(ctx, id)
	if err != nil {
		return nil, err
	}
	s.captureSession(ctx, id)
	return rec.Snapshot, nil
}

// decodeSnapshot checks a tool argument against the snapshot JSON Schema
// and decodes it.
func (s *GraphServer) decodeSnapshot(raw map[string]any) (*schema.Snapshot, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeDecode, "snapshot is not serializable").WithCause(err)
	}
	if err := s.snapshots.ValidateJSON(data); err != nil {
		return nil, err
	}
	return schema.DecodeSnapshot(data, schema.FormatJSON)
}

func (s *GraphServer) validate(g *graph.Graph) schema.Issues {
	issues := validation.Validate(g, validation.WithConditionChecker(s.checker))
	if issues == nil {
		issues = schema.Issues{}
	}
	return issues
}

// captureSession makes graphID the current graph of the calling session.
func (s *GraphServer) captureSession(ctx context.Context, graphID string) {
	s.sessions.Register(sessionID(ctx), graphID)
}

func sessionID(ctx context.Context) string {
	if session := server.ClientSessionFromContext(ctx); session != nil {
		return session.SessionID()
	}
	return ""
}

// toolError reports err as a tool-level error, keeping the GraphError code
// visible to the client.
func toolError(prefix string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", prefix, err))
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
