package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ListRevisions returns a graph's save history, oldest first. Snapshots are
// not loaded; use GetRevision for that.
func (s *LibSQLStore) ListRevisions(ctx context.Context, graphID string) ([]*Revision, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT graph_id, version, saved_at FROM graph_revisions WHERE graph_id = ? ORDER BY version`, graphID,
	)
	if err != nil {
		return nil, storeErr("list revisions", err)
	}
	defer rows.Close()

	var revs []*Revision
	for rows.Next() {
		r := &Revision{}
		if err := rows.Scan(&r.GraphID, &r.Version, &r.SavedAt); err != nil {
			return nil, storeErr("scan revision", err)
		}
		revs = append(revs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list revisions", err)
	}
	if len(revs) == 0 {
		return nil, storeNotFound("graph", graphID)
	}
	return revs, nil
}

// GetRevision loads one saved version of a graph.
func (s *LibSQLStore) GetRevision(ctx context.Context, graphID string, version int) (*Revision, error) {
	r := &Revision{}
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT graph_id, version, snapshot, saved_at FROM graph_revisions WHERE graph_id = ? AND version = ?`,
		graphID, version,
	).Scan(&r.GraphID, &r.Version, &data, &r.SavedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storeNotFound("revision", fmt.Sprintf("%s@%d", graphID, version))
	}
	if err != nil {
		return nil, storeErr("get revision", err)
	}
	if r.Snapshot, err = decodeSnapshot(data); err != nil {
		return nil, err
	}
	return r, nil
}
