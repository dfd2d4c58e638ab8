package interact

import (
	"github.com/rendis/wfgraph/internal/graph"
)

// Event is an input delivered to Transition. Positions are screen
// coordinates; the view transform maps them into the world.
type Event interface {
	eventName() string
}

// PaletteDrop adds a node of Kind where it was dropped. ID names the new
// node; Controller.Dispatch draws one from the graph when it is empty.
type PaletteDrop struct {
	Kind graph.Kind
	At   graph.Point
	ID   string
}

// PointerDown presses on NodeID, or on empty canvas when NodeID is "".
// Callers resolve NodeID by hit testing (see Controller.HitTest).
type PointerDown struct {
	At     graph.Point
	NodeID string
}

// PointerMove reports the pointer position while a button is held.
type PointerMove struct {
	At graph.Point
}

// PointerUp releases the pointer.
type PointerUp struct {
	At graph.Point
}

// SelectTool switches the active tool.
type SelectTool struct {
	Tool ToolMode
}

type (
	ZoomIn          struct{}
	ZoomOut         struct{}
	ZoomReset       struct{}
	DeleteInspected struct{}
	// Cancel drops a pending connection and any drag in progress.
	Cancel struct{}
)

// DuplicateInspected copies the inspected node under ID, which
// Controller.Dispatch fills like PaletteDrop.ID.
type DuplicateInspected struct {
	ID string
}

// UpdateInspected edits the inspected node's attributes from the property
// panel.
type UpdateInspected struct {
	Patch NodePatch
}

func (PaletteDrop) eventName() string        { return "palette_drop" }
func (PointerDown) eventName() string        { return "pointer_down" }
func (PointerMove) eventName() string        { return "pointer_move" }
func (PointerUp) eventName() string          { return "pointer_up" }
func (SelectTool) eventName() string         { return "select_tool" }
func (ZoomIn) eventName() string             { return "zoom_in" }
func (ZoomOut) eventName() string            { return "zoom_out" }
func (ZoomReset) eventName() string          { return "zoom_reset" }
func (DeleteInspected) eventName() string    { return "delete" }
func (DuplicateInspected) eventName() string { return "duplicate" }
func (Cancel) eventName() string             { return "cancel" }
func (UpdateInspected) eventName() string    { return "update" }

// NodePatch lists attribute edits; nil fields are left alone.
type NodePatch struct {
	Name      *string
	Assignee  *string
	SLADays   *int
	ClearSLA  bool
	Condition *string
	TaskType  *string
	Status    *graph.Status
}

// Empty reports whether the patch changes nothing.
func (p NodePatch) Empty() bool {
	return p.Name == nil && p.Assignee == nil && p.SLADays == nil && !p.ClearSLA &&
		p.Condition == nil && p.TaskType == nil && p.Status == nil
}

// Apply writes the patch into n.
func (p NodePatch) Apply(n *graph.Node) {
	if p.Name != nil {
		n.Name = *p.Name
	}
	if p.Assignee != nil {
		n.Assignee = *p.Assignee
	}
	if p.ClearSLA {
		n.SLADays = nil
	}
	if p.SLADays != nil {
		v := *p.SLADays
		n.SLADays = &v
	}
	if p.Condition != nil {
		n.Condition = *p.Condition
	}
	if p.TaskType != nil {
		n.TaskType = *p.TaskType
	}
	if p.Status != nil {
		n.Status = *p.Status
	}
}

// Effect is a graph mutation requested by Transition. Each event yields at
// most one effect.
type Effect interface {
	effectName() string
}

// CreateNode inserts Node, whose ID is already assigned.
type CreateNode struct {
	Node graph.Node
}

// MoveNode sets a node's position.
type MoveNode struct {
	ID string
	To graph.Point
}

// CreateConnection links From to To.
type CreateConnection struct {
	From string
	To   string
}

// DeleteNode removes a node and every connection touching it.
type DeleteNode struct {
	ID string
}

// PatchNode edits a node's attributes.
type PatchNode struct {
	ID    string
	Patch NodePatch
}

func (CreateNode) effectName() string       { return "create_node" }
func (MoveNode) effectName() string         { return "move_node" }
func (CreateConnection) effectName() string { return "create_connection" }
func (DeleteNode) effectName() string       { return "delete_node" }
func (PatchNode) effectName() string        { return "patch_node" }
