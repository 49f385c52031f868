package cache

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps search-space entries in SQLite. A single version row
// is advanced with compare-and-swap inside the commit transaction.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS search_space (
	query TEXT PRIMARY KEY,
	value BLOB NOT NULL
);

CREATE TABLE IF NOT EXISTS search_space_version (
	id      INTEGER PRIMARY KEY CHECK (id = 1),
	version INTEGER NOT NULL
);

INSERT OR IGNORE INTO search_space_version (id, version) VALUES (1, 0);
`

// NewSQLiteStore opens (and migrates) a SQLite database at path
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteMigration); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "sqlite: migrate")
	}
	return &SQLiteStore{db: db}, nil
}

// Load reads every entry and the current version
func (s *SQLiteStore) Load(ctx context.Context) (Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, eris.Wrap(err, "sqlite: begin")
	}
	defer func() { _ = tx.Rollback() }()

	return readSnapshot(ctx, tx)
}

// Commit upserts changes and advances the version from base. When another
// writer advanced it first, conflict is reported and the changes still land
// on top of the newer content.
func (s *SQLiteStore) Commit(ctx context.Context, base string, changes map[string][]byte) (Snapshot, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, false, eris.Wrap(err, "sqlite: begin")
	}
	defer func() { _ = tx.Rollback() }()

	var current int64
	if err := tx.QueryRowContext(ctx, `SELECT version FROM search_space_version WHERE id = 1`).Scan(&current); err != nil {
		return Snapshot{}, false, eris.Wrap(err, "sqlite: read version")
	}
	conflict := versionString(current) != base

	for query, value := range changes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO search_space (query, value) VALUES (?, ?)
			 ON CONFLICT(query) DO UPDATE SET value = excluded.value`,
			query, value,
		); err != nil {
			return Snapshot{}, false, eris.Wrapf(err, "sqlite: upsert %q", query)
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE search_space_version SET version = ? WHERE id = 1 AND version = ?`,
		current+1, current,
	)
	if err != nil {
		return Snapshot{}, false, eris.Wrap(err, "sqlite: bump version")
	}
	if n, err := res.RowsAffected(); err != nil || n != 1 {
		return Snapshot{}, false, eris.New("sqlite: version moved during commit")
	}

	snap, err := readSnapshot(ctx, tx)
	if err != nil {
		return Snapshot{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return Snapshot{}, false, eris.Wrap(err, "sqlite: commit")
	}
	return snap, conflict, nil
}

// Reset deletes every entry and restarts the version
func (s *SQLiteStore) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM search_space`); err != nil {
		return eris.Wrap(err, "sqlite: clear entries")
	}
	if _, err := tx.ExecContext(ctx, `UPDATE search_space_version SET version = 0 WHERE id = 1`); err != nil {
		return eris.Wrap(err, "sqlite: reset version")
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func readSnapshot(ctx context.Context, tx *sql.Tx) (Snapshot, error) {
	var version int64
	if err := tx.QueryRowContext(ctx, `SELECT version FROM search_space_version WHERE id = 1`).Scan(&version); err != nil {
		return Snapshot{}, eris.Wrap(err, "sqlite: read version")
	}

	rows, err := tx.QueryContext(ctx, `SELECT query, value FROM search_space`)
	if err != nil {
		return Snapshot{}, eris.Wrap(err, "sqlite: query entries")
	}
	defer func() { _ = rows.Close() }()

	snap := Snapshot{Entries: map[string][]byte{}, Version: versionString(version)}
	for rows.Next() {
		var query string
		var value []byte
		if err := rows.Scan(&query, &value); err != nil {
			return Snapshot{}, eris.Wrap(err, "sqlite: scan entry")
		}
		snap.Entries[query] = value
	}
	return snap, eris.Wrap(rows.Err(), "sqlite: iterate entries")
}

// versionString renders a version; zero means never written
func versionString(v int64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}
