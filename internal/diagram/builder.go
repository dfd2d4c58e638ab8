package diagram

import (
	"fmt"

	"github.com/rendis/wfgraph/internal/graph"
	"github.com/rendis/wfgraph/internal/layout"
	"github.com/rendis/wfgraph/internal/route"
)

// Build constructs a DiagramModel from a laid-out graph. res supplies levels
// and buckets; node positions are read from g, so res must already have been
// applied. paths are the routed connections in connection order.
func Build(title string, g *graph.Graph, res *layout.Result, paths []route.Path) *DiagramModel {
	nodes := g.Nodes()
	model := &DiagramModel{
		Title:       titleOrDefault(title),
		Orientation: res.Orientation,
		Nodes:       make([]*Node, 0, len(nodes)),
		Edges:       make([]Edge, 0, len(paths)),
		Levels:      res.Buckets,
	}

	for _, n := range nodes {
		model.Nodes = append(model.Nodes, &Node{
			ID:       n.ID,
			Label:    nodeLabel(n),
			Kind:     NodeKind(n.Kind),
			Level:    res.Level(n.ID),
			Position: n.Position,
			Size:     route.SizeOf(n.Kind),
			Status:   overlay(n),
		})
	}
	for _, p := range paths {
		model.Edges = append(model.Edges, Edge{From: p.From, To: p.To, Label: p.Label, Path: p})
	}
	if b, ok := route.Bounds(nodes); ok {
		model.Bounds = b
	}
	return model
}

// FromGraph lays out a copy of g and builds its diagram. g is not modified.
func FromGraph(title string, g *graph.Graph, o layout.Orientation) (*DiagramModel, error) {
	cp := g.Clone()
	res := layout.Compute(cp, o)
	if err := res.Apply(cp); err != nil {
		return nil, fmt.Errorf("diagram: apply layout: %w", err)
	}
	return Build(title, cp, res, route.RouteAll(cp, o)), nil
}

// nodeLabel creates a human-readable label for a node. Tasks show their
// assignee on a second line.
func nodeLabel(n graph.Node) string {
	if n.Kind == graph.KindTask && n.Assignee != "" {
		return fmt.Sprintf("%s\n(%s)", n.Name, n.Assignee)
	}
	return n.Name
}

// overlay returns the viewer status of a node, or nil when it has none.
func overlay(n graph.Node) *StatusOverlay {
	if n.Status == graph.StatusNone {
		return nil
	}
	return &StatusOverlay{Status: string(n.Status), Assignee: n.Assignee, SLADays: n.SLADays}
}

func titleOrDefault(title string) string {
	if title != "" {
		return title
	}
	return "Workflow"
}
