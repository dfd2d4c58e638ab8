// Package route computes curved connector paths between positioned nodes.
//
// A path leaves the source at the midpoint of the side facing the target and
// enters the target the same way. Both control points sit on the primary-axis
// midpoint between the two attachment points, which gives an S-curve when the
// nodes are offset on the cross axis and a straight line when they are not.
package route

import (
	"fmt"
	"math"
	"strings"

	"github.com/rendis/wfgraph/internal/graph"
	"github.com/rendis/wfgraph/internal/layout"
)

// Shape is the rendered outline of a node kind.
type Shape int

const (
	ShapeCircle  Shape = iota // start, end
	ShapeRect                 // task
	ShapeDiamond              // gateway
)

func (s Shape) String() string {
	switch s {
	case ShapeCircle:
		return "circle"
	case ShapeDiamond:
		return "diamond"
	default:
		return "rect"
	}
}

// Size is a bounding box width and height in canvas units.
type Size struct {
	W float64
	H float64
}

// Fixed shape dimensions.
var (
	CircleSize  = Size{W: 48, H: 48}
	TaskSize    = Size{W: 120, H: 56}
	GatewaySize = Size{W: 60, H: 60}
)

// ShapeOf returns the outline drawn for a node kind.
func ShapeOf(k graph.Kind) Shape {
	switch k {
	case graph.KindStart, graph.KindEnd:
		return ShapeCircle
	case graph.KindGateway:
		return ShapeDiamond
	default:
		return ShapeRect
	}
}

// SizeOf returns the bounding box of a node kind.
func SizeOf(k graph.Kind) Size {
	switch ShapeOf(k) {
	case ShapeCircle:
		return CircleSize
	case ShapeDiamond:
		return GatewaySize
	default:
		return TaskSize
	}
}

// Rect is an axis-aligned box.
type Rect struct {
	Min graph.Point
	Max graph.Point
}

// Box returns the bounding box of a node centered on its position.
func Box(n graph.Node) Rect {
	s := SizeOf(n.Kind)
	half := graph.Point{X: s.W / 2, Y: s.H / 2}
	return Rect{Min: n.Position.Sub(half), Max: n.Position.Add(half)}
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p graph.Point) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Union returns the smallest box holding both r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		Min: graph.Point{X: math.Min(r.Min.X, o.Min.X), Y: math.Min(r.Min.Y, o.Min.Y)},
		Max: graph.Point{X: math.Max(r.Max.X, o.Max.X), Y: math.Max(r.Max.Y, o.Max.Y)},
	}
}

// Width of the box.
func (r Rect) Width() float64 { return r.Max.X - r.Min.X }

// Height of the box.
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// Bounds returns the box enclosing every node, or false for an empty list.
func Bounds(nodes []graph.Node) (Rect, bool) {
	if len(nodes) == 0 {
		return Rect{}, false
	}
	b := Box(nodes[0])
	for _, n := range nodes[1:] {
		b = b.Union(Box(n))
	}
	return b, true
}

// Side is a node boundary side.
type Side int

const (
	SideRight Side = iota
	SideLeft
	SideBottom
	SideTop
)

// Anchor returns the midpoint of a node's boundary on the given side.
func Anchor(n graph.Node, side Side) graph.Point {
	s := SizeOf(n.Kind)
	p := n.Position
	switch side {
	case SideRight:
		p.X += s.W / 2
	case SideLeft:
		p.X -= s.W / 2
	case SideBottom:
		p.Y += s.H / 2
	case SideTop:
		p.Y -= s.H / 2
	}
	return p
}

// facing picks the source and target sides. The source uses the side that
// points toward the target along the primary axis, so back edges leave from
// the opposite side instead of crossing the source.
func facing(from, to graph.Node, o layout.Orientation) (Side, Side) {
	if o == layout.Vertical {
		if to.Position.Y >= from.Position.Y {
			return SideBottom, SideTop
		}
		return SideTop, SideBottom
	}
	if to.Position.X >= from.Position.X {
		return SideRight, SideLeft
	}
	return SideLeft, SideRight
}

// Path is a cubic Bézier connector ready for rendering.
type Path struct {
	ConnectionID string
	From         string
	To           string
	Label        string

	Start graph.Point
	C1    graph.Point
	C2    graph.Point
	End   graph.Point

	// ArrowAngle is the heading of the curve at End, in radians.
	ArrowAngle float64
}

// Route computes the connector between two positioned nodes.
func Route(from, to graph.Node, o layout.Orientation) Path {
	srcSide, dstSide := facing(from, to, o)
	start := Anchor(from, srcSide)
	end := Anchor(to, dstSide)

	var c1, c2 graph.Point
	if o == layout.Vertical {
		mid := (start.Y + end.Y) / 2
		c1 = graph.Point{X: start.X, Y: mid}
		c2 = graph.Point{X: end.X, Y: mid}
	} else {
		mid := (start.X + end.X) / 2
		c1 = graph.Point{X: mid, Y: start.Y}
		c2 = graph.Point{X: mid, Y: end.Y}
	}

	p := Path{From: from.ID, To: to.ID, Start: start, C1: c1, C2: c2, End: end}
	p.ArrowAngle = arrowAngle(p, dstSide)
	return p
}

// arrowAngle is the tangent direction at the end of the curve. When the last
// control point coincides with the end the chord is used, and when the whole
// path collapses to a point the angle points into the target side.
func arrowAngle(p Path, entry Side) float64 {
	d := p.End.Sub(p.C2)
	if d.X == 0 && d.Y == 0 {
		d = p.End.Sub(p.Start)
	}
	if d.X == 0 && d.Y == 0 {
		switch entry {
		case SideLeft:
			return 0
		case SideRight:
			return math.Pi
		case SideTop:
			return math.Pi / 2
		default:
			return -math.Pi / 2
		}
	}
	return math.Atan2(d.Y, d.X)
}

// RouteAll routes every connection of g in connection order. Node positions
// are read from g.
func RouteAll(g *graph.Graph, o layout.Orientation) []Path {
	conns := g.Connections()
	paths := make([]Path, 0, len(conns))
	for _, c := range conns {
		from, ok := g.Node(c.From)
		if !ok {
			continue
		}
		to, ok := g.Node(c.To)
		if !ok {
			continue
		}
		p := Route(from, to, o)
		p.ConnectionID = c.ID
		p.Label = c.Label
		paths = append(paths, p)
	}
	return paths
}

// PointAt evaluates the curve at t in [0, 1].
func (p Path) PointAt(t float64) graph.Point {
	u := 1 - t
	a := u * u * u
	b := 3 * u * u * t
	c := 3 * u * t * t
	d := t * t * t
	return graph.Point{
		X: a*p.Start.X + b*p.C1.X + c*p.C2.X + d*p.End.X,
		Y: a*p.Start.Y + b*p.C1.Y + c*p.C2.Y + d*p.End.Y,
	}
}

// LabelAnchor is where a connection label is drawn: the curve midpoint.
func (p Path) LabelAnchor() graph.Point {
	return p.PointAt(0.5)
}

// Arrowhead returns the three corners of an arrow triangle of the given
// length whose tip sits on End.
func (p Path) Arrowhead(length float64) [3]graph.Point {
	const spread = math.Pi / 7
	back := p.ArrowAngle + math.Pi
	return [3]graph.Point{
		p.End,
		{X: p.End.X + length*math.Cos(back-spread), Y: p.End.Y + length*math.Sin(back-spread)},
		{X: p.End.X + length*math.Cos(back+spread), Y: p.End.Y + length*math.Sin(back+spread)},
	}
}

// SVG returns the path data string ("M ... C ...") for an SVG <path>.
func (p Path) SVG() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "M %s %s C %s %s, %s %s, %s %s",
		num(p.Start.X), num(p.Start.Y),
		num(p.C1.X), num(p.C1.Y),
		num(p.C2.X), num(p.C2.Y),
		num(p.End.X), num(p.End.Y))
	return sb.String()
}

// num formats a coordinate with at most two decimals and no trailing zeros.
func num(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}
