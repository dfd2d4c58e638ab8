package schema

// Snapshot is the serializable form of a workflow graph. It is the exchange
// format between the graph core and whatever loads or saves processes.
// Node and connection order is significant: it is the insertion order the
// layout uses to break ties.
type Snapshot struct {
	ID          string               `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string               `json:"name,omitempty" yaml:"name,omitempty"`
	Orientation string               `json:"orientation,omitempty" yaml:"orientation,omitempty"` // horizontal | vertical
	Nodes       []SnapshotNode       `json:"nodes" yaml:"nodes"`
	Connections []SnapshotConnection `json:"connections,omitempty" yaml:"connections,omitempty"`
	Metadata    map[string]any       `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// SnapshotNode is a single node record.
type SnapshotNode struct {
	ID        string         `json:"id" yaml:"id"`
	Kind      string         `json:"kind" yaml:"kind"` // start | task | gateway | end
	Name      string         `json:"name,omitempty" yaml:"name,omitempty"`
	Position  *Point         `json:"position,omitempty" yaml:"position,omitempty"`
	Outgoing  []string       `json:"outgoing,omitempty" yaml:"outgoing,omitempty"` // target node IDs, used when connections are omitted
	Assignee  string         `json:"assignee,omitempty" yaml:"assignee,omitempty"`
	SLADays   *int           `json:"sla_days,omitempty" yaml:"sla_days,omitempty"`
	Condition string         `json:"condition,omitempty" yaml:"condition,omitempty"` // gateway only
	TaskType  string         `json:"task_type,omitempty" yaml:"task_type,omitempty"` // task only
	Status    string         `json:"status,omitempty" yaml:"status,omitempty"`       // pending | in_progress | completed | rejected
	Metadata  map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// SnapshotConnection is a directed edge between two nodes.
type SnapshotConnection struct {
	ID    string `json:"id,omitempty" yaml:"id,omitempty"`
	From  string `json:"from" yaml:"from"`
	To    string `json:"to" yaml:"to"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Point is a 2-D coordinate in logical canvas units.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}
