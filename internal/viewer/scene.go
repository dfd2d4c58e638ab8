package viewer

import (
	"github.com/rendis/wfgraph/internal/graph"
	"github.com/rendis/wfgraph/internal/route"
	"github.com/rendis/wfgraph/pkg/schema"
)

// Scene is everything a renderer needs to draw the current view: node
// centers and boxes, connector curves and the canvas extent. It is the JSON
// payload of the layout tool and the CLI layout command.
type Scene struct {
	ID          string            `json:"id,omitempty"`
	Name        string            `json:"name,omitempty"`
	Orientation string            `json:"orientation"`
	Zoom        float64           `json:"zoom"`
	Pan         schema.Point      `json:"pan"`
	Bounds      *SceneBounds      `json:"bounds,omitempty"`
	Nodes       []SceneNode       `json:"nodes"`
	Connections []SceneConnection `json:"connections"`
}

// SceneNode is a positioned node. Position is the center.
type SceneNode struct {
	ID       string       `json:"id"`
	Kind     string       `json:"kind"`
	Name     string       `json:"name"`
	Status   string       `json:"status,omitempty"`
	Level    int          `json:"level"`
	Shape    string       `json:"shape"`
	Position schema.Point `json:"position"`
	Width    float64      `json:"width"`
	Height   float64      `json:"height"`
}

// SceneConnection is a routed connector.
type SceneConnection struct {
	ID         string       `json:"id"`
	From       string       `json:"from"`
	To         string       `json:"to"`
	Label      string       `json:"label,omitempty"`
	Path       string       `json:"path"`
	Start      schema.Point `json:"start"`
	C1         schema.Point `json:"c1"`
	C2         schema.Point `json:"c2"`
	End        schema.Point `json:"end"`
	ArrowAngle float64      `json:"arrow_angle"`
	LabelAt    schema.Point `json:"label_at"`
}

// SceneBounds is the union of all node boxes.
type SceneBounds struct {
	Min schema.Point `json:"min"`
	Max schema.Point `json:"max"`
}

func pt(p graph.Point) schema.Point { return schema.Point{X: p.X, Y: p.Y} }

// Scene snapshots the current layout, routes and view.
func (v *Viewer) Scene() *Scene {
	nodes := v.graph.Nodes()
	sc := &Scene{
		ID:          v.graphID,
		Name:        v.title,
		Orientation: string(v.opts.Orientation),
		Zoom:        v.view.Zoom,
		Pan:         pt(v.view.Pan),
		Nodes:       make([]SceneNode, 0, len(nodes)),
		Connections: make([]SceneConnection, 0, len(v.paths)),
	}
	for _, n := range nodes {
		size := route.SizeOf(n.Kind)
		sc.Nodes = append(sc.Nodes, SceneNode{
			ID:       n.ID,
			Kind:     string(n.Kind),
			Name:     n.Name,
			Status:   string(n.Status),
			Level:    v.result.Level(n.ID),
			Shape:    route.ShapeOf(n.Kind).String(),
			Position: pt(n.Position),
			Width:    size.W,
			Height:   size.H,
		})
	}
	for _, p := range v.paths {
		sc.Connections = append(sc.Connections, SceneConnection{
			ID:         p.ConnectionID,
			From:       p.From,
			To:         p.To,
			Label:      p.Label,
			Path:       p.SVG(),
			Start:      pt(p.Start),
			C1:         pt(p.C1),
			C2:         pt(p.C2),
			End:        pt(p.End),
			ArrowAngle: p.ArrowAngle,
			LabelAt:    pt(p.LabelAnchor()),
		})
	}
	if b, ok := route.Bounds(nodes); ok {
		sc.Bounds = &SceneBounds{Min: pt(b.Min), Max: pt(b.Max)}
	}
	return sc
}
