package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/rendis/wfgraph/internal/logging"
	"github.com/rendis/wfgraph/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures a LibSQLStore.
type Option func(*LibSQLStore)

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *LibSQLStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/graphs.db".
func NewLibSQLStore(dbPath string, opts ...Option) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Some PRAGMAs return rows, so they go through QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	s := &LibSQLStore{db: db, logger: logging.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DB returns the underlying *sql.DB.
func (s *LibSQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	if err := runMigrations(ctx, s.db); err != nil {
		return storeErr("migrate", err)
	}
	return nil
}

// SchemaVersion reports the applied migration level.
func (s *LibSQLStore) SchemaVersion(ctx context.Context) (int, error) {
	return schemaVersion(ctx, s.db)
}

// Vacuum runs VACUUM on the database.
func (s *LibSQLStore) Vacuum(ctx context.Context) error {
	start := time.Now()
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return storeErr("vacuum", err)
	}
	s.logger.InfoContext(ctx, "store vacuumed", slog.Duration("took", time.Since(start)))
	return nil
}

// --- Graphs ---

// SaveGraph inserts or replaces a graph and appends a revision. A missing ID
// is taken from the snapshot, or generated, and written back into the
// snapshot. On return rec carries the new version and timestamps.
func (s *LibSQLStore) SaveGraph(ctx context.Context, rec *GraphRecord) error {
	if rec == nil || rec.Snapshot == nil {
		return schema.NewError(schema.ErrCodeValidation, "save graph: snapshot is required")
	}
	snap := rec.Snapshot
	if rec.ID == "" {
		rec.ID = snap.ID
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	snap.ID = rec.ID
	if rec.Name == "" {
		rec.Name = snap.Name
	}
	if rec.Orientation == "" {
		rec.Orientation = snap.Orientation
	}
	if rec.Orientation == "" {
		rec.Orientation = "horizontal"
	}
	rec.Nodes = len(snap.Nodes)
	rec.Connections = len(snap.Connections)

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin save", err)
	}
	defer tx.Rollback()

	var version int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) + 1 FROM graph_revisions WHERE graph_id = ?`, rec.ID,
	).Scan(&version); err != nil {
		return storeErr("next version", err)
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO graphs (id, name, orientation, snapshot, node_count, connection_count, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name=excluded.name, orientation=excluded.orientation,
		   snapshot=excluded.snapshot, node_count=excluded.node_count,
		   connection_count=excluded.connection_count, version=excluded.version,
		   updated_at=excluded.updated_at`,
		rec.ID, nullStr(rec.Name), rec.Orientation, string(data), rec.Nodes, rec.Connections, version, now, now,
	); err != nil {
		return storeErr("upsert graph", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO graph_revisions (graph_id, version, snapshot, saved_at) VALUES (?, ?, ?, ?)`,
		rec.ID, version, string(data), now,
	); err != nil {
		return storeErr("append revision", err)
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit save", err)
	}

	if version == 1 {
		rec.CreatedAt = now
	} else if err := s.db.QueryRowContext(ctx,
		`SELECT created_at FROM graphs WHERE id = ?`, rec.ID,
	).Scan(&rec.CreatedAt); err != nil {
		return storeErr("read created_at", err)
	}
	rec.Version = version
	rec.UpdatedAt = now

	s.logger.InfoContext(logging.WithGraphID(ctx, rec.ID), "graph saved",
		slog.Int("version", version),
		slog.Int("nodes", rec.Nodes),
		slog.Int("connections", rec.Connections))
	return nil
}

// GetGraph returns the latest revision of a graph.
func (s *LibSQLStore) GetGraph(ctx context.Context, id string) (*GraphRecord, error) {
	rec := &GraphRecord{}
	var name sql.NullString
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, orientation, snapshot, node_count, connection_count, version, created_at, updated_at
		 FROM graphs WHERE id = ?`, id,
	).Scan(&rec.ID, &name, &rec.Orientation, &data, &rec.Nodes, &rec.Connections, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storeNotFound("graph", id)
	}
	if err != nil {
		return nil, storeErr("get graph", err)
	}
	rec.Name = name.String
	if rec.Snapshot, err = decodeSnapshot(data); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListGraphs returns graph summaries, most recently updated first.
func (s *LibSQLStore) ListGraphs(ctx context.Context, filter GraphFilter) ([]*GraphRecord, error) {
	query := `SELECT id, name, orientation, node_count, connection_count, version, created_at, updated_at FROM graphs`
	var args []any
	if filter.NamePrefix != "" {
		query += ` WHERE name LIKE ? ESCAPE '\'`
		args = append(args, likePrefix(filter.NamePrefix))
	}
	query += " ORDER BY updated_at DESC, id"
	switch {
	case filter.Limit > 0:
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	case filter.Offset > 0:
		// SQLite needs a LIMIT before OFFSET; -1 means no limit.
		query += fmt.Sprintf(" LIMIT -1 OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list graphs", err)
	}
	defer rows.Close()

	var out []*GraphRecord
	for rows.Next() {
		rec := &GraphRecord{}
		var name sql.NullString
		if err := rows.Scan(&rec.ID, &name, &rec.Orientation, &rec.Nodes, &rec.Connections, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, storeErr("scan graph", err)
		}
		rec.Name = name.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteGraph removes a graph and its revisions.
func (s *LibSQLStore) DeleteGraph(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin delete", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM graph_revisions WHERE graph_id = ?`, id); err != nil {
		return storeErr("delete revisions", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM graphs WHERE id = ?`, id)
	if err != nil {
		return storeErr("delete graph", err)
	}
	if err := checkRowsAffected(res, "graph", id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit delete", err)
	}
	s.logger.InfoContext(logging.WithGraphID(ctx, id), "graph deleted")
	return nil
}

// --- Helpers ---

func decodeSnapshot(data string) (*schema.Snapshot, error) {
	var snap schema.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, schema.NewError(schema.ErrCodeDecode, "stored snapshot is not valid JSON").WithCause(err)
	}
	return &snap, nil
}

func storeNotFound(resource, id string) *schema.GraphError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

func storeErr(op string, err error) *schema.GraphError {
	return schema.NewErrorf(schema.ErrCodeStore, "%s: %s", op, err.Error()).WithCause(err)
}

func checkRowsAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("rows affected", err)
	}
	if n == 0 {
		return storeNotFound(resource, id)
	}
	return nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// likePrefix escapes LIKE wildcards in p and appends %.
func likePrefix(p string) string {
	r := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)
	return r.Replace(p) + "%"
}
