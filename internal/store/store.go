// Package store provides database access for the agentstore adapter.
//
// The store owns a single SQLite connection shared by every repository.
// SQLite is single-writer by design, so the connection pool is pinned to one
// connection and concurrent callers are serialized by database/sql instead of
// fighting for write locks across multiple underlying connections.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // SQLite driver
)

// Store wraps the shared database connection. It is created explicitly and
// passed to every component; there is no package-level singleton.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// DefaultBusyTimeoutMS is how long a statement waits on a locked database
// before failing, unless overridden with WithBusyTimeout.
const DefaultBusyTimeoutMS = 5000

// Option configures Open.
type Option func(*settings)

type settings struct {
	logger        *slog.Logger
	busyTimeoutMS int
}

// WithLogger sets the store's logger; the default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithBusyTimeout overrides the busy_timeout pragma, in milliseconds.
// Non-positive values keep the default.
func WithBusyTimeout(ms int) Option {
	return func(s *settings) {
		if ms > 0 {
			s.busyTimeoutMS = ms
		}
	}
}

// Open opens (or creates) the database at path. Use ":memory:" for an
// ephemeral instance; tests rely on this for isolation. Open does not apply
// the schema — that is the adapter's Init step.
func Open(path string, opts ...Option) (*Store, error) {
	s := settings{busyTimeoutMS: DefaultBusyTimeoutMS}
	for _, opt := range opts {
		opt(&s)
	}
	logger := s.logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", s.busyTimeoutMS),
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: set pragma: %w", err)
		}
	}

	logger.Debug("store: database opened", "path", path)

	return &Store{db: db, logger: logger}, nil
}

// DB returns the underlying connection for repository queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// TableExists reports whether a table with the given name exists in the live
// schema.
func (s *Store) TableExists(ctx context.Context, name string) (bool, error) {
	var found string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, name,
	).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: check table %q: %w", name, err)
	}
	return true, nil
}
