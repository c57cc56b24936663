package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"

	"github.com/kirillkom/f1-penalty-rag/internal/core/tracker"
)

const schemaLockKey int64 = 2026101701

// TrackerStore persists tracker sets in Postgres so several workers share
// one view of what each stage has done.
type TrackerStore struct {
	db *sql.DB
}

func NewTrackerStore(db *sql.DB) *TrackerStore {
	return &TrackerStore{db: db}
}

func (s *TrackerStore) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS tracker_stages (
	stage TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS tracker_entries (
	stage TEXT NOT NULL REFERENCES tracker_stages(stage) ON DELETE CASCADE,
	kind TEXT NOT NULL,
	name TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (stage, kind, name)
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (s *TrackerStore) Load(ctx context.Context, stage tracker.Stage) (tracker.Snapshot, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM tracker_stages WHERE stage = $1)`, string(stage)).Scan(&exists)
	if err != nil {
		return tracker.Snapshot{}, fmt.Errorf("check tracker stage: %w", err)
	}
	if !exists {
		return tracker.Snapshot{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT kind, name
FROM tracker_entries
WHERE stage = $1
ORDER BY kind, name
`, string(stage))
	if err != nil {
		return tracker.Snapshot{}, fmt.Errorf("query tracker entries: %w", err)
	}
	defer rows.Close()

	snap := tracker.Snapshot{Exists: true, Entries: make(map[tracker.Kind][]string)}
	for rows.Next() {
		var kind, name string
		if err := rows.Scan(&kind, &name); err != nil {
			return tracker.Snapshot{}, fmt.Errorf("scan tracker entry: %w", err)
		}
		snap.Entries[tracker.Kind(kind)] = append(snap.Entries[tracker.Kind(kind)], name)
	}
	if err := rows.Err(); err != nil {
		return tracker.Snapshot{}, fmt.Errorf("iterate tracker entries: %w", err)
	}
	return snap, nil
}

// Save replaces one set in a transaction holding a per-stage advisory lock.
func (s *TrackerStore) Save(ctx context.Context, stage tracker.Stage, kind tracker.Kind, names []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tracker tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, stageLockKey(stage)); err != nil {
		return fmt.Errorf("acquire tracker lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO tracker_stages (stage) VALUES ($1) ON CONFLICT (stage) DO NOTHING`, string(stage)); err != nil {
		return fmt.Errorf("register tracker stage: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tracker_entries WHERE stage = $1 AND kind = $2`, string(stage), string(kind)); err != nil {
		return fmt.Errorf("clear tracker entries: %w", err)
	}
	for _, name := range names {
		if _, err := tx.ExecContext(ctx, `INSERT INTO tracker_entries (stage, kind, name) VALUES ($1, $2, $3)`, string(stage), string(kind), name); err != nil {
			return fmt.Errorf("insert tracker entry %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tracker tx: %w", err)
	}
	return nil
}

func stageLockKey(stage tracker.Stage) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("tracker:" + string(stage)))
	return int64(h.Sum64())
}
