// Package sqlite persists model snapshots in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chagge/phrasal/pkg/phrasal/internalerr"
	"github.com/chagge/phrasal/pkg/phrasal/store"
)

type sqliteStore struct {
	db *sql.DB
}

// Open opens (and if necessary initializes) a SQLite snapshot database with
// WAL mode enabled.
func Open(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection.
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS word_pairs (
	run_id TEXT NOT NULL,
	f TEXT NOT NULL,
	e TEXT NOT NULL,
	count INTEGER NOT NULL,
	PRIMARY KEY(run_id, f, e),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS word_marginals (
	run_id TEXT NOT NULL,
	side TEXT NOT NULL,
	word TEXT NOT NULL,
	count INTEGER NOT NULL,
	PRIMARY KEY(run_id, side, word),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS phrase_pairs (
	run_id TEXT NOT NULL,
	f TEXT NOT NULL,
	e TEXT NOT NULL,
	links TEXT NOT NULL,
	count INTEGER NOT NULL,
	PRIMARY KEY(run_id, f, e),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS phrase_marginals (
	run_id TEXT NOT NULL,
	side TEXT NOT NULL,
	phrase TEXT NOT NULL,
	count INTEGER NOT NULL,
	PRIMARY KEY(run_id, side, phrase),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveModel stores snap in one transaction.
func (s *sqliteStore) SaveModel(ctx context.Context, snap store.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	createdAt := snap.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, created_at) VALUES (?, ?)`,
		snap.RunID, createdAt.Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("save run %s: %w", snap.RunID, err)
	}

	wordPairs, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO word_pairs (run_id, f, e, count) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer wordPairs.Close()
	for _, wp := range snap.WordPairs {
		if _, err := wordPairs.ExecContext(ctx, snap.RunID, wp.Source, wp.Target, wp.Count); err != nil {
			return fmt.Errorf("save word pair (%s,%s): %w", wp.Source, wp.Target, err)
		}
	}

	wordMarginals, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO word_marginals (run_id, side, word, count) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer wordMarginals.Close()
	for _, wm := range snap.WordMarginals {
		if _, err := wordMarginals.ExecContext(ctx, snap.RunID, string(wm.Side), wm.Word, wm.Count); err != nil {
			return fmt.Errorf("save word marginal %s/%s: %w", wm.Side, wm.Word, err)
		}
	}

	phrasePairs, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO phrase_pairs (run_id, f, e, links, count) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer phrasePairs.Close()
	for _, pp := range snap.PhrasePairs {
		if _, err := phrasePairs.ExecContext(ctx, snap.RunID, pp.Source, pp.Target, pp.Links, pp.Count); err != nil {
			return fmt.Errorf("save phrase pair (%s,%s): %w", pp.Source, pp.Target, err)
		}
	}

	phraseMarginals, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO phrase_marginals (run_id, side, phrase, count) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer phraseMarginals.Close()
	for _, pm := range snap.PhraseMarginals {
		if _, err := phraseMarginals.ExecContext(ctx, snap.RunID, string(pm.Side), pm.Phrase, pm.Count); err != nil {
			return fmt.Errorf("save phrase marginal %s/%s: %w", pm.Side, pm.Phrase, err)
		}
	}

	return tx.Commit()
}

// LoadModel retrieves a snapshot; an empty run id means the most recent.
func (s *sqliteStore) LoadModel(ctx context.Context, runID string) (store.Snapshot, error) {
	var snap store.Snapshot

	var createdAt string
	var err error
	if runID == "" {
		err = s.db.QueryRowContext(ctx,
			`SELECT id, created_at FROM runs ORDER BY created_at DESC LIMIT 1`).
			Scan(&runID, &createdAt)
	} else {
		err = s.db.QueryRowContext(ctx,
			`SELECT id, created_at FROM runs WHERE id = ?`, runID).
			Scan(&runID, &createdAt)
	}
	if err == sql.ErrNoRows {
		return snap, fmt.Errorf("run %q: %w", runID, internalerr.ErrNotFound)
	}
	if err != nil {
		return snap, err
	}
	snap.RunID = runID
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		snap.CreatedAt = ts
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT f, e, count FROM word_pairs WHERE run_id = ?`, runID)
	if err != nil {
		return snap, err
	}
	defer rows.Close()
	for rows.Next() {
		var wp store.WordPairCount
		if err := rows.Scan(&wp.Source, &wp.Target, &wp.Count); err != nil {
			return snap, err
		}
		snap.WordPairs = append(snap.WordPairs, wp)
	}
	if err := rows.Err(); err != nil {
		return snap, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT side, word, count FROM word_marginals WHERE run_id = ?`, runID)
	if err != nil {
		return snap, err
	}
	defer rows.Close()
	for rows.Next() {
		var wm store.WordMarginalCount
		var side string
		if err := rows.Scan(&side, &wm.Word, &wm.Count); err != nil {
			return snap, err
		}
		wm.Side = store.Side(side)
		snap.WordMarginals = append(snap.WordMarginals, wm)
	}
	if err := rows.Err(); err != nil {
		return snap, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT f, e, links, count FROM phrase_pairs WHERE run_id = ?`, runID)
	if err != nil {
		return snap, err
	}
	defer rows.Close()
	for rows.Next() {
		var pp store.PhrasePairCount
		if err := rows.Scan(&pp.Source, &pp.Target, &pp.Links, &pp.Count); err != nil {
			return snap, err
		}
		snap.PhrasePairs = append(snap.PhrasePairs, pp)
	}
	if err := rows.Err(); err != nil {
		return snap, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT side, phrase, count FROM phrase_marginals WHERE run_id = ?`, runID)
	if err != nil {
		return snap, err
	}
	defer rows.Close()
	for rows.Next() {
		var pm store.PhraseMarginalCount
		var side string
		if err := rows.Scan(&side, &pm.Phrase, &pm.Count); err != nil {
			return snap, err
		}
		pm.Side = store.Side(side)
		snap.PhraseMarginals = append(snap.PhraseMarginals, pm)
	}
	if err := rows.Err(); err != nil {
		return snap, err
	}

	return snap, nil
}

// Runs lists stored runs, most recent first.
func (s *sqliteStore) Runs(ctx context.Context) ([]store.RunInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []store.RunInfo
	for rows.Next() {
		var info store.RunInfo
		var createdAt string
		if err := rows.Scan(&info.ID, &createdAt); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			info.CreatedAt = ts
		}
		runs = append(runs, info)
	}
	return runs, rows.Err()
}
