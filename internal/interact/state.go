// Package interact is the builder's input state machine. It turns palette
// drops, pointer events and toolbar commands into graph mutations and view
// state changes.
//
// Transition is a pure function from (state, event) to (state, effects).
// Controller owns a graph and a state, runs Transition and applies the
// effects. Nothing here blocks or suspends; every event runs to completion
// before the next one is dispatched.
package interact

import (
	"fmt"
	"math"
	"strings"

	"github.com/rendis/wfgraph/internal/graph"
)

// ToolMode is the active builder tool.
type ToolMode string

const (
	ToolSelect  ToolMode = "select"
	ToolConnect ToolMode = "connect"
)

// ParseToolMode converts a script/toolbar string. Empty means select.
func ParseToolMode(s string) (ToolMode, error) {
	switch ToolMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ToolSelect:
		return ToolSelect, nil
	case ToolConnect:
		return ToolConnect, nil
	default:
		return "", fmt.Errorf("unknown tool %q", s)
	}
}

// DragKind is the pointer-drag sub-state.
type DragKind int

const (
	DragIdle DragKind = iota
	DragNode
	DragPan
)

func (k DragKind) String() string {
	switch k {
	case DragNode:
		return "dragging_node"
	case DragPan:
		return "panning"
	default:
		return "idle"
	}
}

// Drag holds what a pointer-down captured. Only the fields relevant to Kind
// are set.
type Drag struct {
	Kind DragKind

	// NodeID is the dragged node and Offset the pointer position relative to
	// its center, in world units.
	NodeID string
	Offset graph.Point

	// StartPan is the pan offset at pointer-down (panning only).
	StartPan graph.Point

	// Origin is the screen position of the pointer-down. Moved turns true
	// once a move event reports a different position.
	Origin graph.Point
	Moved  bool
}

// Zoom bounds and step.
const (
	BuilderMinZoom = 0.3
	ViewerMinZoom  = 0.5
	MaxZoom        = 2.0
	ZoomStep       = 1.2
)

// View is the zoom/pan transform between screen and world coordinates:
// screen = world*Zoom + Pan.
type View struct {
	Zoom    float64
	Pan     graph.Point
	MinZoom float64
	MaxZoom float64
}

// BuilderView is the initial view of an editing session.
func BuilderView() View {
	return View{Zoom: 1, MinZoom: BuilderMinZoom, MaxZoom: MaxZoom}
}

// ViewerView is the initial view of a read-only session.
func ViewerView() View {
	return View{Zoom: 1, MinZoom: ViewerMinZoom, MaxZoom: MaxZoom}
}

// ToWorld maps a screen point into world (canvas) coordinates.
func (v View) ToWorld(p graph.Point) graph.Point {
	z := v.zoom()
	return graph.Point{X: (p.X - v.Pan.X) / z, Y: (p.Y - v.Pan.Y) / z}
}

// ToScreen maps a world point onto the screen.
func (v View) ToScreen(p graph.Point) graph.Point {
	z := v.zoom()
	return graph.Point{X: p.X*z + v.Pan.X, Y: p.Y*z + v.Pan.Y}
}

// ZoomIn multiplies the zoom factor by ZoomStep, up to MaxZoom.
func (v View) ZoomIn() View {
	v.Zoom = v.clamp(v.zoom() * ZoomStep)
	return v
}

// ZoomOut divides the zoom factor by ZoomStep, down to MinZoom.
func (v View) ZoomOut() View {
	v.Zoom = v.clamp(v.zoom() / ZoomStep)
	return v
}

// Reset restores zoom 1 and pan (0, 0).
func (v View) Reset() View {
	v.Zoom = v.clamp(1)
	v.Pan = graph.Point{}
	return v
}

func (v View) zoom() float64 {
	if v.Zoom <= 0 {
		return 1
	}
	return v.Zoom
}

func (v View) clamp(z float64) float64 {
	lo, hi := v.MinZoom, v.MaxZoom
	if lo <= 0 {
		lo = BuilderMinZoom
	}
	if hi <= 0 {
		hi = MaxZoom
	}
	return math.Min(hi, math.Max(lo, z))
}

// State is the complete interaction state of one builder session.
type State struct {
	Tool ToolMode
	Drag Drag
	View View

	// Armed is the pending connection source in connect mode.
	Armed string
	// Selected is the highlighted node; Inspected is the node whose
	// attributes the property panel edits.
	Selected  string
	Inspected string
}

// NewState returns an idle select-mode state with the given view.
func NewState(v View) State {
	return State{Tool: ToolSelect, View: v}
}

// clampCanvas keeps a node position on the non-negative quadrant.
func clampCanvas(p graph.Point) graph.Point {
	return graph.Point{X: math.Max(0, p.X), Y: math.Max(0, p.Y)}
}
