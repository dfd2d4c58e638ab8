package panel

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/rendis/wfgraph/internal/expressions"
	"github.com/rendis/wfgraph/internal/logging"
	"github.com/rendis/wfgraph/internal/store"
	"github.com/rendis/wfgraph/internal/streaming"
	"github.com/rendis/wfgraph/internal/validation"
)

// PanelDeps holds the dependencies for the panel server.
type PanelDeps struct {
	Store store.Store
	// Hub carries graph change events to SSE clients. Optional: without it
	// the SSE routes answer 503 and writes publish nothing.
	Hub     streaming.EventHub
	Dialect string
	Logger  *slog.Logger
}

// PanelServer is the read-mostly HTTP viewer over the graph store: HTML
// pages, a JSON API with scene and diagram output, and SSE change feeds.
type PanelServer struct {
	deps      PanelDeps
	checker   expressions.Engine
	snapshots *validation.SnapshotValidator
	pages     map[string]*template.Template
}

// NewPanelServer parses the page templates and prepares the validators.
func NewPanelServer(deps PanelDeps) (*PanelServer, error) {
	if deps.Store == nil {
		return nil, errors.New("panel: store is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	checker, err := expressions.New(deps.Dialect)
	if err != nil {
		return nil, err
	}
	snapshots, err := validation.NewSnapshotValidator()
	if err != nil {
		return nil, err
	}

	funcMap := template.FuncMap{
		"timeAgo":     timeAgo,
		"statusBadge": statusBadge,
		"truncate":    truncate,
		"add":         add,
		"subtract":    subtract,
	}
	base := template.Must(template.New("base").Funcs(funcMap).Parse(baseTemplate))

	// Each page clones the base so its "content" block stays separate.
	pages := make(map[string]*template.Template, len(pageTemplates))
	for name, src := range pageTemplates {
		clone := template.Must(base.Clone())
		pages[name] = template.Must(clone.Parse(src))
	}

	return &PanelServer{
		deps:      deps,
		checker:   checker,
		snapshots: snapshots,
		pages:     pages,
	}, nil
}

// Handler returns the HTTP handler for the panel routes.
func (s *PanelServer) Handler() http.Handler {
	mux := http.NewServeMux()

	// Pages.
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /graphs/{id}", s.handleGraphPage)

	// JSON API.
	mux.HandleFunc("GET /api/graphs", s.handleListGraphs)
	mux.HandleFunc("POST /api/graphs", s.handleSaveGraph)
	mux.HandleFunc("GET /api/graphs/{id}", s.handleGetGraph)
	mux.HandleFunc("DELETE /api/graphs/{id}", s.handleDeleteGraph)
	mux.HandleFunc("GET /api/graphs/{id}/revisions", s.handleRevisions)
	mux.HandleFunc("GET /api/graphs/{id}/scene", s.handleScene)
	mux.HandleFunc("GET /api/graphs/{id}/diagram", s.handleDiagram)
	mux.HandleFunc("GET /api/graphs/{id}/issues", s.handleIssues)

	// SSE streams.
	mux.HandleFunc("GET /sse/events", s.handleSSEGlobal)
	mux.HandleFunc("GET /sse/graphs/{id}", s.handleSSEGraph)

	return mux
}

// renderPage executes a page template by name.
func (s *PanelServer) renderPage(w http.ResponseWriter, page string, data any) {
	tmpl, ok := s.pages[page]
	if !ok {
		s.deps.Logger.Error("template not found", "page", page)
		http.Error(w, fmt.Sprintf("template %q not found", page), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		s.deps.Logger.Error("template render error", "page", page, "error", err)
	}
}
