package store

import (
	"time"

	"github.com/rendis/wfgraph/pkg/schema"
)

// GraphRecord is a stored workflow graph. Snapshot holds the latest saved
// revision; it is nil in list results.
type GraphRecord struct {
	ID          string           `json:"id"`
	Name        string           `json:"name,omitempty"`
	Orientation string           `json:"orientation"`
	Snapshot    *schema.Snapshot `json:"snapshot,omitempty"`
	Nodes       int              `json:"node_count"`
	Connections int              `json:"connection_count"`
	Version     int              `json:"version"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Revision is one entry in a graph's save history.
type Revision struct {
	GraphID  string           `json:"graph_id"`
	Version  int              `json:"version"`
	Snapshot *schema.Snapshot `json:"snapshot,omitempty"`
	SavedAt  time.Time        `json:"saved_at"`
}

// GraphFilter narrows ListGraphs. Zero values mean no restriction.
type GraphFilter struct {
	NamePrefix string
	Limit      int
	Offset     int
}
