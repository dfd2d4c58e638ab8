package panel

import (
	"html/template"
	"net/http"

	"github.com/rendis/wfgraph/internal/diagram"
	"github.com/rendis/wfgraph/internal/graph"
	"github.com/rendis/wfgraph/internal/store"
	"github.com/rendis/wfgraph/pkg/schema"
)

const pageSize = 25

type pageData struct {
	Title string
}

type indexData struct {
	pageData
	Graphs []*store.GraphRecord
	Prefix string
	Offset int
	Limit  int
	More   bool
}

type graphData struct {
	pageData
	Record      *store.GraphRecord
	Orientation string
	SVG         template.HTML
	Issues      schema.Issues
	Nodes       []graph.Node
}

func (s *PanelServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := indexData{
		pageData: pageData{Title: "Graphs"},
		Prefix:   r.URL.Query().Get("prefix"),
		Offset:   max(queryInt(r, "offset", 0), 0),
		Limit:    pageSize,
	}
	// One extra row tells whether a next page exists.
	recs, err := s.deps.Store.ListGraphs(r.Context(), store.GraphFilter{
		NamePrefix: data.Prefix,
		Limit:      pageSize + 1,
		Offset:     data.Offset,
	})
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	if len(recs) > pageSize {
		recs, data.More = recs[:pageSize], true
	}
	data.Graphs = recs
	s.renderPage(w, "index", data)
}

func (s *PanelServer) handleGraphPage(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Store.GetGraph(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	v, err := s.viewerFor(r, rec.Snapshot)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	model := diagram.Build(v.Title(), v.Graph(), v.Layout(), v.Paths())

	title := rec.Name
	if title == "" {
		title = rec.ID
	}
	s.renderPage(w, "graph", graphData{
		pageData:    pageData{Title: title},
		Record:      rec,
		Orientation: string(v.Orientation()),
		// RenderSVG escapes every label and id it writes.
		SVG:    template.HTML(diagram.RenderSVG(model)), //nolint:gosec
		Issues: s.validate(v.Graph()),
		Nodes:  v.Graph().Nodes(),
	})
}
