package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// MemoryPath keeps snapshots for the lifetime of the process only.
const MemoryPath = ":memory:"

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if strings.TrimSpace(dbPath) == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// SchemaVersion returns the highest applied migration.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.GetContext(ctx, &v, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

// SaveSnapshot inserts or replaces the snapshot of key.
func (s *SQLiteStore) SaveSnapshot(
	ctx context.Context,
	kind, key string,
	data []byte,
	at time.Time,
) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO snapshots (id, cache_key, kind, data, saved_at)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), key, kind, data, at.UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("saving snapshot %s: %w", key, err)
	}
	return nil
}

// LoadSnapshot returns the snapshot of key. ok is false when there is none.
func (s *SQLiteStore) LoadSnapshot(
	ctx context.Context,
	key string,
) ([]byte, time.Time, bool, error) {
	var snap Snapshot
	err := s.db.GetContext(ctx, &snap,
		"SELECT id, cache_key, kind, data, saved_at FROM snapshots WHERE cache_key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("loading snapshot %s: %w", key, err)
	}
	return snap.Data, time.Unix(0, snap.SavedAtNano).UTC(), true, nil
}

// ListSnapshots returns the snapshots of kind, or all when kind is "",
// newest first.
func (s *SQLiteStore) ListSnapshots(ctx context.Context, kind string) ([]Snapshot, error) {
	query := "SELECT id, cache_key, kind, data, saved_at FROM snapshots"
	var args []interface{}
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY saved_at DESC"

	var snaps []Snapshot
	if err := s.db.SelectContext(ctx, &snaps, query, args...); err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	for i := range snaps {
		snaps[i].SavedAt = time.Unix(0, snaps[i].SavedAtNano).UTC()
	}
	return snaps, nil
}

// DeleteSnapshots removes the snapshots of kind, or all when kind is "".
func (s *SQLiteStore) DeleteSnapshots(ctx context.Context, kind string) error {
	var err error
	if kind == "" {
		_, err = s.db.ExecContext(ctx, "DELETE FROM snapshots")
	} else {
		_, err = s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE kind = ?", kind)
	}
	if err != nil {
		return fmt.Errorf("deleting snapshots: %w", err)
	}
	return nil
}

// PruneSnapshots removes snapshots saved before the given time and returns
// how many were removed.
func (s *SQLiteStore) PruneSnapshots(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM snapshots WHERE saved_at < ?", before.UTC().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("pruning snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning snapshots: %w", err)
	}
	return n, nil
}
