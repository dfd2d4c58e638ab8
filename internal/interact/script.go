package interact

import (
	"context"
	"fmt"
	"strings"

	"github.com/rendis/wfgraph/internal/graph"
	"github.com/rendis/wfgraph/pkg/schema"
)

// Script is a recorded builder session: a list of input steps replayed
// against a Controller. It is how the CLI and tests drive the builder
// without a pointer device.
//
//	steps:
//	  - drop: {kind: task, x: 300, y: 120}
//	  - update: {name: Review request}
//	  - tool: connect
//	  - down: {node: start}
//	  - down: {x: 300, y: 120}
type Script struct {
	Session string `json:"session,omitempty" yaml:"session,omitempty"`
	Steps   []Step `json:"steps" yaml:"steps"`
}

// Step is one scripted input. Exactly one field must be set.
type Step struct {
	Drop      *DropStep  `json:"drop,omitempty" yaml:"drop,omitempty"`
	Down      *PointStep `json:"down,omitempty" yaml:"down,omitempty"`
	Move      *PointStep `json:"move,omitempty" yaml:"move,omitempty"`
	Up        *PointStep `json:"up,omitempty" yaml:"up,omitempty"`
	Tool      string     `json:"tool,omitempty" yaml:"tool,omitempty"`
	Zoom      string     `json:"zoom,omitempty" yaml:"zoom,omitempty"` // in | out | reset
	Update    *PatchStep `json:"update,omitempty" yaml:"update,omitempty"`
	Delete    bool       `json:"delete,omitempty" yaml:"delete,omitempty"`
	Duplicate bool       `json:"duplicate,omitempty" yaml:"duplicate,omitempty"`
	Cancel    bool       `json:"cancel,omitempty" yaml:"cancel,omitempty"`
}

// DropStep drops a palette item at a screen position.
type DropStep struct {
	Kind string  `json:"kind" yaml:"kind"`
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
}

// PointStep is a pointer position. For "down", Node presses on that node's
// center instead of hit testing X/Y.
type PointStep struct {
	X    float64 `json:"x,omitempty" yaml:"x,omitempty"`
	Y    float64 `json:"y,omitempty" yaml:"y,omitempty"`
	Node string  `json:"node,omitempty" yaml:"node,omitempty"`
}

// PatchStep edits the inspected node.
type PatchStep struct {
	Name      *string `json:"name,omitempty" yaml:"name,omitempty"`
	Assignee  *string `json:"assignee,omitempty" yaml:"assignee,omitempty"`
	SLADays   *int    `json:"sla_days,omitempty" yaml:"sla_days,omitempty"`
	Condition *string `json:"condition,omitempty" yaml:"condition,omitempty"`
	TaskType  *string `json:"task_type,omitempty" yaml:"task_type,omitempty"`
	Status    *string `json:"status,omitempty" yaml:"status,omitempty"`
}

// ParseScript decodes a script document.
func ParseScript(data []byte, format schema.Format) (*Script, error) {
	var s Script
	if err := schema.Decode(data, format, &s, "script"); err != nil {
		return nil, err
	}
	for i := range s.Steps {
		if n := s.Steps[i].fields(); n != 1 {
			return nil, schema.NewErrorf(schema.ErrCodeDecode, "steps[%d]: expected exactly one action, got %d", i, n)
		}
	}
	return &s, nil
}

func (s Step) fields() int {
	n := 0
	for _, set := range []bool{
		s.Drop != nil, s.Down != nil, s.Move != nil, s.Up != nil,
		s.Tool != "", s.Zoom != "", s.Update != nil,
		s.Delete, s.Duplicate, s.Cancel,
	} {
		if set {
			n++
		}
	}
	return n
}

// event converts a step into an Event. Pointer-downs are resolved against
// the controller's current graph and view.
func (s Step) event(c *Controller) (Event, error) {
	point := func(p *PointStep) graph.Point { return graph.Point{X: p.X, Y: p.Y} }

	switch {
	case s.Drop != nil:
		kind, err := graph.ParseKind(s.Drop.Kind)
		if err != nil {
			return nil, err
		}
		return PaletteDrop{Kind: kind, At: graph.Point{X: s.Drop.X, Y: s.Drop.Y}}, nil
	case s.Down != nil:
		if s.Down.Node != "" {
			n, ok := c.graph.Node(s.Down.Node)
			if !ok {
				return nil, schema.NewErrorf(schema.ErrCodeNotFound, "node %q not found", s.Down.Node).WithNode(s.Down.Node)
			}
			return PointerDown{At: c.state.View.ToScreen(n.Position), NodeID: n.ID}, nil
		}
		at := point(s.Down)
		return PointerDown{At: at, NodeID: c.HitTest(at)}, nil
	case s.Move != nil:
		return PointerMove{At: point(s.Move)}, nil
	case s.Up != nil:
		return PointerUp{At: point(s.Up)}, nil
	case s.Tool != "":
		tool, err := ParseToolMode(s.Tool)
		if err != nil {
			return nil, err
		}
		return SelectTool{Tool: tool}, nil
	case s.Zoom != "":
		switch strings.ToLower(s.Zoom) {
		case "in":
			return ZoomIn{}, nil
		case "out":
			return ZoomOut{}, nil
		case "reset":
			return ZoomReset{}, nil
		}
		return nil, fmt.Errorf("unknown zoom action %q", s.Zoom)
	case s.Update != nil:
		p := NodePatch{
			Name:      s.Update.Name,
			Assignee:  s.Update.Assignee,
			SLADays:   s.Update.SLADays,
			Condition: s.Update.Condition,
			TaskType:  s.Update.TaskType,
		}
		if s.Update.Status != nil {
			st := graph.Status(*s.Update.Status)
			p.Status = &st
		}
		return UpdateInspected{Patch: p}, nil
	case s.Delete:
		return DeleteInspected{}, nil
	case s.Duplicate:
		return DuplicateInspected{}, nil
	case s.Cancel:
		return Cancel{}, nil
	}
	return nil, fmt.Errorf("empty step")
}

// ReplayResult summarizes a replay.
type ReplayResult struct {
	Steps   int           `json:"steps"`
	Effects int           `json:"effects"`
	Issues  schema.Issues `json:"issues"`
}

// Replay dispatches every step in order and stops at the first failing one.
// The returned result covers the steps applied so far.
func (c *Controller) Replay(ctx context.Context, s *Script) (*ReplayResult, error) {
	res := &ReplayResult{}
	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		ev, err := step.event(c)
		if err != nil {
			return res, schema.NewErrorf(schema.ErrCodeInvalidTransition, "steps[%d]: %s", i, err.Error()).
				WithCause(err).
				WithDetails(map[string]any{"step": i})
		}
		effects, err := c.Dispatch(ctx, ev)
		if err != nil {
			return res, schema.NewErrorf(schema.ErrCodeInvalidTransition, "steps[%d]: %s", i, err.Error()).
				WithCause(err).
				WithDetails(map[string]any{"step": i})
		}
		res.Steps++
		res.Effects += len(effects)
	}
	res.Issues = c.Diagnostics()
	return res, nil
}
