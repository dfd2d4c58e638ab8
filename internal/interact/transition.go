package interact

import (
	"github.com/rendis/wfgraph/internal/graph"
)

// DuplicateOffset is how far a duplicated node lands from its original.
var DuplicateOffset = graph.Point{X: 40, Y: 40}

// CopySuffix is appended to the name of a duplicated node.
const CopySuffix = " (copy)"

// Env is the read-only view of the graph Transition needs. *graph.Graph
// satisfies it.
type Env interface {
	Node(id string) (graph.Node, bool)
}

// Transition computes the next state and the graph effects of one event.
// It only reads env; the caller applies the effects in order. Events that
// create nodes carry the new ID, and produce nothing without one.
func Transition(s State, ev Event, env Env) (State, []Effect) {
	switch ev := ev.(type) {
	case PaletteDrop:
		return drop(s, ev)
	case PointerDown:
		return pointerDown(s, ev, env)
	case PointerMove:
		return pointerMove(s, ev)
	case PointerUp:
		return pointerUp(s, ev)
	case SelectTool:
		tool := ev.Tool
		if tool == "" {
			tool = ToolSelect
		}
		s.Tool = tool
		s.Armed = ""
		s.Drag = Drag{}
		return s, nil
	case ZoomIn:
		s.View = s.View.ZoomIn()
		return s, nil
	case ZoomOut:
		s.View = s.View.ZoomOut()
		return s, nil
	case ZoomReset:
		s.View = s.View.Reset()
		return s, nil
	case Cancel:
		s.Armed = ""
		s.Drag = Drag{}
		return s, nil
	case DeleteInspected:
		return deleteInspected(s, env)
	case DuplicateInspected:
		return duplicateInspected(s, ev, env)
	case UpdateInspected:
		if s.Inspected == "" || ev.Patch.Empty() {
			return s, nil
		}
		if _, ok := env.Node(s.Inspected); !ok {
			s.Inspected = ""
			return s, nil
		}
		return s, []Effect{PatchNode{ID: s.Inspected, Patch: ev.Patch}}
	default:
		return s, nil
	}
}

// drop creates a node at the drop point in any tool mode and selects it.
func drop(s State, ev PaletteDrop) (State, []Effect) {
	if ev.ID == "" {
		return s, nil
	}
	n, err := graph.NewNode(ev.Kind, "", graph.Attributes{})
	if err != nil {
		return s, nil
	}
	n.ID = ev.ID
	n.Position = clampCanvas(s.View.ToWorld(ev.At))
	s.Selected = n.ID
	s.Inspected = n.ID
	return s, []Effect{CreateNode{Node: n}}
}

func pointerDown(s State, ev PointerDown, env Env) (State, []Effect) {
	var (
		n      graph.Node
		onNode bool
	)
	if ev.NodeID != "" {
		n, onNode = env.Node(ev.NodeID)
	}

	if s.Tool == ToolConnect {
		switch {
		case !onNode:
			s.Armed = ""
			return s, nil
		case s.Armed == "":
			s.Armed = n.ID
			return s, nil
		case s.Armed == n.ID:
			s.Armed = ""
			return s, nil
		default:
			if _, ok := env.Node(s.Armed); !ok {
				// Source vanished since it was armed; re-arm on this node.
				s.Armed = n.ID
				return s, nil
			}
			from := s.Armed
			s.Armed = ""
			return s, []Effect{CreateConnection{From: from, To: n.ID}}
		}
	}

	if onNode {
		s.Selected = n.ID
		s.Drag = Drag{
			Kind:   DragNode,
			NodeID: n.ID,
			Offset: s.View.ToWorld(ev.At).Sub(n.Position),
			Origin: ev.At,
		}
		return s, nil
	}
	s.Drag = Drag{Kind: DragPan, StartPan: s.View.Pan, Origin: ev.At}
	return s, nil
}

func pointerMove(s State, ev PointerMove) (State, []Effect) {
	switch s.Drag.Kind {
	case DragNode:
		if ev.At != s.Drag.Origin {
			s.Drag.Moved = true
		}
		to := clampCanvas(s.View.ToWorld(ev.At).Sub(s.Drag.Offset))
		return s, []Effect{MoveNode{ID: s.Drag.NodeID, To: to}}
	case DragPan:
		if ev.At != s.Drag.Origin {
			s.Drag.Moved = true
		}
		s.View.Pan = s.Drag.StartPan.Add(ev.At.Sub(s.Drag.Origin))
		return s, nil
	default:
		return s, nil
	}
}

// pointerUp ends a drag. A press and release without movement is a click:
// on a node it inspects the node, on the canvas it clears the inspection.
func pointerUp(s State, _ PointerUp) (State, []Effect) {
	d := s.Drag
	s.Drag = Drag{}
	if d.Moved {
		return s, nil
	}
	switch d.Kind {
	case DragNode:
		s.Inspected = d.NodeID
	case DragPan:
		s.Inspected = ""
		s.Selected = ""
	}
	return s, nil
}

func deleteInspected(s State, env Env) (State, []Effect) {
	id := s.Inspected
	if id == "" {
		return s, nil
	}
	s.Inspected = ""
	if s.Selected == id {
		s.Selected = ""
	}
	if s.Armed == id {
		s.Armed = ""
	}
	if s.Drag.NodeID == id {
		s.Drag = Drag{}
	}
	if _, ok := env.Node(id); !ok {
		return s, nil
	}
	return s, []Effect{DeleteNode{ID: id}}
}

// duplicateInspected copies the inspected node under ev.ID. The copy has no
// connections and becomes the inspected node.
func duplicateInspected(s State, ev DuplicateInspected, env Env) (State, []Effect) {
	src, ok := env.Node(s.Inspected)
	if !ok || ev.ID == "" {
		return s, nil
	}
	cp := src
	cp.ID = ev.ID
	cp.Name = src.Name + CopySuffix
	cp.Position = src.Position.Add(DuplicateOffset)
	cp.Outgoing = nil
	s.Selected = cp.ID
	s.Inspected = cp.ID
	return s, []Effect{CreateNode{Node: cp}}
}
