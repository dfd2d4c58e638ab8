package graph

import (
	"fmt"
	"maps"
	"strings"

	"github.com/rendis/wfgraph/pkg/schema"
)

// Kind classifies a node. The set is closed: it decides the rendered shape
// and which optional attributes a node may carry.
type Kind string

const (
	KindStart   Kind = "start"
	KindTask    Kind = "task"
	KindGateway Kind = "gateway"
	KindEnd     Kind = "end"
)

// Kinds lists every node kind in palette order.
var Kinds = []Kind{KindStart, KindTask, KindGateway, KindEnd}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindStart, KindTask, KindGateway, KindEnd:
		return true
	default:
		return false
	}
}

// ParseKind converts a wire string into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", schema.NewErrorf(schema.ErrCodeInvalidAttribute, "unknown node kind %q", s)
	}
	return k, nil
}

// DefaultName is the placeholder label a freshly dropped node receives.
// Task and gateway nodes still carrying it are reported as unnamed.
func DefaultName(k Kind) string {
	switch k {
	case KindStart:
		return "Start"
	case KindEnd:
		return "End"
	case KindTask:
		return "New Task"
	case KindGateway:
		return "New Gateway"
	default:
		return ""
	}
}

// Status is the viewer-only progress overlay of a node.
type Status string

const (
	StatusNone       Status = ""
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusRejected   Status = "rejected"
)

// Valid reports whether s is empty or one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNone, StatusPending, StatusInProgress, StatusCompleted, StatusRejected:
		return true
	default:
		return false
	}
}

// Point is a position in logical canvas units.
type Point struct {
	X float64
	Y float64
}

// Add returns p translated by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Sub returns p - d.
func (p Point) Sub(d Point) Point {
	return Point{X: p.X - d.X, Y: p.Y - d.Y}
}

// Attributes holds the optional per-kind fields of a node.
type Attributes struct {
	Assignee  string
	SLADays   *int
	Condition string // gateway only
	TaskType  string // task only
	Status    Status
	Metadata  map[string]any // display only
}

// Node is a single workflow node.
//
// Outgoing is a derived view filled in by the Graph on read; it is ignored
// when the node is added or updated.
type Node struct {
	ID       string
	Kind     Kind
	Name     string
	Position Point
	Attributes
	Outgoing []string
}

// NewNode builds a node of the given kind and checks its attributes. An empty
// name is replaced by DefaultName(kind).
func NewNode(kind Kind, name string, attrs Attributes) (Node, error) {
	if name == "" {
		name = DefaultName(kind)
	}
	n := Node{Kind: kind, Name: name, Attributes: attrs}
	if err := n.Check(); err != nil {
		return Node{}, err
	}
	return n, nil
}

// Check validates kind-specific attribute constraints.
func (n *Node) Check() error {
	if !n.Kind.Valid() {
		return schema.NewErrorf(schema.ErrCodeInvalidAttribute, "unknown node kind %q", n.Kind).WithNode(n.ID)
	}
	if n.Condition != "" && n.Kind != KindGateway {
		return schema.NewErrorf(schema.ErrCodeInvalidAttribute, "condition is only allowed on gateway nodes, got %s", n.Kind).WithNode(n.ID)
	}
	if n.TaskType != "" && n.Kind != KindTask {
		return schema.NewErrorf(schema.ErrCodeInvalidAttribute, "task type is only allowed on task nodes, got %s", n.Kind).WithNode(n.ID)
	}
	if n.SLADays != nil && *n.SLADays < 0 {
		return schema.NewErrorf(schema.ErrCodeInvalidAttribute, "sla days must be >= 0, got %d", *n.SLADays).WithNode(n.ID)
	}
	if !n.Status.Valid() {
		return schema.NewErrorf(schema.ErrCodeInvalidAttribute, "unknown status %q", n.Status).WithNode(n.ID)
	}
	return nil
}

// HasDefaultName reports whether the node's name is blank or still the
// placeholder for its kind.
func (n *Node) HasDefaultName() bool {
	name := strings.TrimSpace(n.Name)
	return name == "" || name == DefaultName(n.Kind)
}

// clone returns a deep copy of n.
func (n *Node) clone() *Node {
	cp := *n
	if n.SLADays != nil {
		v := *n.SLADays
		cp.SLADays = &v
	}
	if n.Metadata != nil {
		cp.Metadata = maps.Clone(n.Metadata)
	}
	cp.Outgoing = nil
	return &cp
}

func (n Node) String() string {
	return fmt.Sprintf("%s(%s %q)", n.Kind, n.ID, n.Name)
}

// Connection is a directed edge between two nodes.
type Connection struct {
	ID    string
	From  string
	To    string
	Label string
}
