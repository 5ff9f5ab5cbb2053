package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const createSnapshotsTable = `CREATE TABLE IF NOT EXISTS stats_snapshots (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	games_created   INTEGER NOT NULL,
	games_completed INTEGER NOT NULL,
	games_removed   INTEGER NOT NULL,
	active_games    INTEGER NOT NULL,
	updated_at      INTEGER NOT NULL
)`

// SQLiteStore appends every flushed snapshot to a SQLite table, keeping a
// history of usage over time.
type SQLiteStore struct {
	sqlDB *sql.DB
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create stats directory: %w", err)
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(createSnapshotsTable); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create stats table: %w", err)
	}
	return &SQLiteStore{sqlDB: sqlDB}, nil
}

// Save inserts one snapshot row.
func (s *SQLiteStore) Save(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	updatedAt := snap.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO stats_snapshots (games_created, games_completed, games_removed, active_games, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		snap.GamesCreated, snap.GamesCompleted, snap.GamesRemoved, snap.ActiveGames,
		updatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert stats snapshot: %w", err)
	}
	return nil
}

// Load returns the most recent snapshot.
func (s *SQLiteStore) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	if err := ctx.Err(); err != nil {
		return snap, err
	}
	if s == nil || s.sqlDB == nil {
		return snap, fmt.Errorf("storage is not configured")
	}

	var updatedAt int64
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT games_created, games_completed, games_removed, active_games, updated_at
		 FROM stats_snapshots ORDER BY id DESC LIMIT 1`)
	err := row.Scan(&snap.GamesCreated, &snap.GamesCompleted, &snap.GamesRemoved, &snap.ActiveGames, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, ErrNoSnapshot
	}
	if err != nil {
		return snap, fmt.Errorf("query stats snapshot: %w", err)
	}
	snap.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return snap, nil
}

// Close closes the SQLite handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}
