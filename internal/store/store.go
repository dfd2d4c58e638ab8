package store

import "context"

// Store persists workflow graph snapshots. It is the save/load collaborator
// the graph core itself knows nothing about.
// All implementations must be safe for concurrent use.
type Store interface {
	// Graphs
	SaveGraph(ctx context.Context, snap *GraphRecord) error
	GetGraph(ctx context.Context, id string) (*GraphRecord, error)
	ListGraphs(ctx context.Context, filter GraphFilter) ([]*GraphRecord, error)
	DeleteGraph(ctx context.Context, id string) error

	// Revisions (append-only)
	ListRevisions(ctx context.Context, graphID string) ([]*Revision, error)
	GetRevision(ctx context.Context, graphID string, version int) (*Revision, error)

	// Maintenance
	Migrate(ctx context.Context) error
	Vacuum(ctx context.Context) error

	// Lifecycle
	Close() error
}
