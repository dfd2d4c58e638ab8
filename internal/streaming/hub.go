package streaming

import (
	"context"
	"time"
)

// Graph change event types.
const (
	EventGraphSaved   = "graph_saved"
	EventGraphDeleted = "graph_deleted"
)

// StreamEvent is a change to a stored graph, fanned out to live viewers.
type StreamEvent struct {
	GraphID   string    `json:"graph_id"`
	Version   int       `json:"version,omitempty"`
	EventType string    `json:"event_type"`
	Source    string    `json:"source,omitempty"` // "mcp", "panel", ...
	At        time.Time `json:"at"`
	Payload   any       `json:"payload,omitempty"`
}

// EventFilter selects events for a subscriber. Zero values match everything.
type EventFilter struct {
	GraphID    string   `json:"graph_id,omitempty"`
	EventTypes []string `json:"event_types,omitempty"`
}

// EventHub is the pub/sub bus between graph writers and viewers.
type EventHub interface {
	Publish(ctx context.Context, event StreamEvent) error
	Subscribe(ctx context.Context, filter EventFilter) (<-chan StreamEvent, func(), error)
}
