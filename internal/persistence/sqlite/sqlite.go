package sqlite

import (
	"context"
	"fmt"
)

// Storage bundles the connection pool with schema management. Repositories
// are constructed on top of its pool.
type Storage struct {
	pool *ConnectionPool
}

// Open creates a storage backed by the given DSN.
func Open(dsn string) (*Storage, error) {
	pool, err := NewConnectionPool(DefaultConfig(dsn))
	if err != nil {
		return nil, err
	}
	return &Storage{pool: pool}, nil
}

// Pool returns the underlying connection pool.
func (s *Storage) Pool() *ConnectionPool {
	return s.pool
}

// Close releases the underlying connections.
func (s *Storage) Close() error {
	return s.pool.Close()
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id           TEXT PRIMARY KEY,
		email        TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id                TEXT PRIMARY KEY,
		name              TEXT NOT NULL,
		description       TEXT NOT NULL DEFAULT '',
		scheduling_method TEXT NOT NULL CHECK (scheduling_method IN ('fixed', 'flexible')),
		duration_millis   INTEGER NOT NULL,
		window_start      INTEGER,
		window_end        INTEGER,
		status            TEXT NOT NULL CHECK (status IN ('scheduling', 'scheduled', 'confirmed', 'cancelled')),
		scheduled_time    INTEGER,
		visibility        TEXT NOT NULL CHECK (visibility IN ('draft', 'public', 'private')),
		confirmation_code TEXT UNIQUE,
		created_at        TEXT NOT NULL,
		updated_at        TEXT NOT NULL,
		version           INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS event_members (
		event_id      TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		user_id       TEXT NOT NULL,
		role          TEXT NOT NULL CHECK (role IN ('creator', 'admin', 'participant')),
		availability  TEXT NOT NULL CHECK (availability IN ('available', 'unavailable', 'invited')),
		padding_after INTEGER,
		position      INTEGER NOT NULL,
		PRIMARY KEY (event_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_event_members_user ON event_members(user_id)`,
	`CREATE TABLE IF NOT EXISTS event_periods (
		event_id     TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		kind         TEXT NOT NULL CHECK (kind IN ('blackout', 'preferred', 'daily_start')),
		start_millis INTEGER NOT NULL,
		end_millis   INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_event_periods_event ON event_periods(event_id)`,
}

// Migrate applies the schema. Statements are idempotent, so running Migrate
// on an existing database is safe.
func (s *Storage) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.DB().ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
