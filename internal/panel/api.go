package panel

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

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

const maxSnapshotBytes = 4 << 20

func (s *PanelServer) handleListGraphs(w http.ResponseWriter, r *http.Request) {
	recs, err := s.deps.Store.ListGraphs(r.Context(), store.GraphFilter{
		NamePrefix: r.URL.Query().Get("prefix"),
		Limit:      queryInt(r, "limit", 50),
		Offset:     queryInt(r, "offset", 0),
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	if recs == nil {
		recs = []*store.GraphRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"graphs": recs})
}

// handleSaveGraph stores the request body as a new revision. Invalid graphs
// are refused with 422 unless allow_invalid=true.
func (s *PanelServer) handleSaveGraph(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data, err := io.ReadAll(io.LimitReader(r.Body, maxSnapshotBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	if err := s.snapshots.ValidateJSON(data); err != nil {
		writeErr(w, err)
		return
	}
	snap, err := schema.DecodeSnapshot(data, schema.FormatJSON)
	if err != nil {
		writeErr(w, err)
		return
	}
	g, err := graph.FromSnapshot(snap)
	if err != nil {
		writeErr(w, err)
		return
	}
	issues := s.validate(g)
	allowInvalid, _ := strconv.ParseBool(r.URL.Query().Get("allow_invalid"))
	if !issues.Valid() && !allowInvalid {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"saved": false, "issues": issues})
		return
	}

	rec := &store.GraphRecord{Snapshot: snap}
	if err := s.deps.Store.SaveGraph(ctx, rec); err != nil {
		writeErr(w, err)
		return
	}
	s.publish(ctx, streaming.StreamEvent{GraphID: rec.ID, Version: rec.Version, EventType: streaming.EventGraphSaved})

	writeJSON(w, http.StatusCreated, map[string]any{
		"saved":    true,
		"graph_id": rec.ID,
		"version":  rec.Version,
		"issues":   issues,
	})
}

// handleGetGraph returns the stored record, or one revision with ?version=N.
func (s *PanelServer) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if version := queryInt(r, "version", 0); version > 0 {
		rev, err := s.deps.Store.GetRevision(r.Context(), id, version)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rev)
		return
	}
	rec, err := s.deps.Store.GetGraph(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *PanelServer) handleDeleteGraph(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.deps.Store.DeleteGraph(r.Context(), id); err != nil {
		writeErr(w, err)
		return
	}
	s.publish(r.Context(), streaming.StreamEvent{GraphID: id, EventType: streaming.EventGraphDeleted})
	w.WriteHeader(http.StatusNoContent)
}

func (s *PanelServer) handleRevisions(w http.ResponseWriter, r *http.Request) {
	revs, err := s.deps.Store.ListRevisions(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"revisions": revs})
}

func (s *PanelServer) handleScene(w http.ResponseWriter, r *http.Request) {
	v, ok := s.storedViewer(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, v.Scene())
}

func (s *PanelServer) handleDiagram(w http.ResponseWriter, r *http.Request) {
	v, ok := s.storedViewer(w, r)
	if !ok {
		return
	}
	model := diagram.Build(v.Title(), v.Graph(), v.Layout(), v.Paths())

	switch format := r.URL.Query().Get("format"); format {
	case "", "svg":
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = io.WriteString(w, diagram.RenderSVG(model))
	case "mermaid":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, diagram.RenderMermaid(model))
	case "ascii":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, diagram.RenderASCII(model))
	default:
		writeError(w, http.StatusBadRequest, "unknown format "+strconv.Quote(format)+" (want svg, mermaid or ascii)")
	}
}

func (s *PanelServer) handleIssues(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Store.GetGraph(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	g, err := graph.FromSnapshot(rec.Snapshot)
	if err != nil {
		writeErr(w, err)
		return
	}
	issues := s.validate(g)
	writeJSON(w, http.StatusOK, map[string]any{"valid": issues.Valid(), "issues": issues})
}

// storedViewer loads the graph named in the path and lays it out. On
// failure it has already written the response.
func (s *PanelServer) storedViewer(w http.ResponseWriter, r *http.Request) (*viewer.Viewer, bool) {
	rec, err := s.deps.Store.GetGraph(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return nil, false
	}
	v, err := s.viewerFor(r, rec.Snapshot)
	if err != nil {
		writeErr(w, err)
		return nil, false
	}
	return v, true
}

// viewerFor lays out snap in ?orientation=, else the snapshot's own.
func (s *PanelServer) viewerFor(r *http.Request, snap *schema.Snapshot) (*viewer.Viewer, error) {
	o := r.URL.Query().Get("orientation")
	if o == "" {
		o = snap.Orientation
	}
	orientation, err := layout.ParseOrientation(o)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeValidation, err.Error()).WithCause(err)
	}
	return viewer.FromSnapshot(snap, viewer.WithOrientation(orientation), viewer.WithLogger(s.deps.Logger))
}

func (s *PanelServer) validate(g *graph.Graph) schema.Issues {
	issues := validation.Validate(g, validation.WithConditionChecker(s.checker))
	if issues == nil {
		issues = schema.Issues{}
	}
	return issues
}

func (s *PanelServer) publish(ctx context.Context, ev streaming.StreamEvent) {
	if s.deps.Hub == nil {
		return
	}
	ev.Source = "panel"
	if err := s.deps.Hub.Publish(ctx, ev); err != nil {
		s.deps.Logger.WarnContext(logging.WithGraphID(ctx, ev.GraphID), "graph change publish failed",
			slog.String("event", ev.EventType), slog.String("error", err.Error()))
	}
}
