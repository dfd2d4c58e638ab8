package diagram

import (
	"github.com/rendis/wfgraph/internal/graph"
	"github.com/rendis/wfgraph/internal/layout"
	"github.com/rendis/wfgraph/internal/route"
)

// NodeKind classifies a diagram node by its workflow node kind.
type NodeKind string

const (
	NodeKindStart   NodeKind = "start"
	NodeKindTask    NodeKind = "task"
	NodeKindGateway NodeKind = "gateway"
	NodeKindEnd     NodeKind = "end"
)

// DiagramModel is the intermediate representation used by all renderers.
// Positions and paths come from the layout engine and the router, so every
// renderer draws the same picture.
type DiagramModel struct {
	Title       string
	Orientation layout.Orientation
	Nodes       []*Node
	Edges       []Edge
	Levels      [][]string
	Bounds      route.Rect
}

// Node represents a single workflow node in the diagram.
type Node struct {
	ID       string
	Label    string
	Kind     NodeKind
	Level    int
	Position graph.Point // center
	Size     route.Size
	Status   *StatusOverlay
}

// StatusOverlay carries the viewer-only progress of a node.
type StatusOverlay struct {
	Status   string // graph.Status
	Assignee string
	SLADays  *int
}

// Edge represents a connection between two nodes.
type Edge struct {
	From  string
	To    string
	Label string
	Path  route.Path
}

// Back reports whether the edge points to the same or an earlier level.
func (e Edge) Back(m *DiagramModel) bool {
	from, to := m.node(e.From), m.node(e.To)
	return from != nil && to != nil && to.Level <= from.Level
}

func (m *DiagramModel) node(id string) *Node {
	return findNode(m.Nodes, id)
}
