package store

import (
	"context"
	"fmt"
	"strings"
)

// schema is the full table set. Every statement is idempotent so the schema
// can be re-applied on every startup against an already-initialized store.
//
// Column names are camelCase to stay byte-compatible with database files
// written by earlier versions of the runtime.
const schema = `
CREATE TABLE IF NOT EXISTS rooms (
    id TEXT PRIMARY KEY,
    createdAt TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS accounts (
    id TEXT PRIMARY KEY,
    name TEXT,
    username TEXT,
    email TEXT,
    avatarUrl TEXT,
    details TEXT,
    createdAt TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS memories (
    id TEXT PRIMARY KEY,
    roomId TEXT NOT NULL,
    userId TEXT,
    content TEXT,
    embedding BLOB,
    type TEXT NOT NULL DEFAULT 'default',
    agentId TEXT,
    "unique" INTEGER NOT NULL DEFAULT 0,
    createdAt INTEGER,
    FOREIGN KEY (roomId) REFERENCES rooms(id),
    FOREIGN KEY (userId) REFERENCES accounts(id)
);

CREATE TABLE IF NOT EXISTS messages (
    id TEXT PRIMARY KEY,
    roomId TEXT NOT NULL,
    userId TEXT,
    content TEXT,
    embedding BLOB,
    type TEXT NOT NULL DEFAULT 'message',
    createdAt INTEGER,
    FOREIGN KEY (roomId) REFERENCES rooms(id),
    FOREIGN KEY (userId) REFERENCES accounts(id)
);

CREATE TABLE IF NOT EXISTS goals (
    id TEXT PRIMARY KEY,
    createdAt TEXT DEFAULT CURRENT_TIMESTAMP,
    userId TEXT,
    name TEXT,
    status TEXT,
    description TEXT,
    roomId TEXT,
    objectives TEXT DEFAULT '[]' NOT NULL,
    FOREIGN KEY (userId) REFERENCES accounts(id),
    FOREIGN KEY (roomId) REFERENCES rooms(id)
);

CREATE TABLE IF NOT EXISTS logs (
    id TEXT PRIMARY KEY,
    createdAt TEXT DEFAULT CURRENT_TIMESTAMP,
    userId TEXT NOT NULL,
    body TEXT NOT NULL,
    type TEXT NOT NULL,
    roomId TEXT NOT NULL,
    FOREIGN KEY (userId) REFERENCES accounts(id),
    FOREIGN KEY (roomId) REFERENCES rooms(id)
);

CREATE TABLE IF NOT EXISTS participants (
    id TEXT PRIMARY KEY,
    createdAt TEXT DEFAULT CURRENT_TIMESTAMP,
    userId TEXT,
    roomId TEXT,
    userState TEXT,
    last_message_read TEXT,
    FOREIGN KEY (userId) REFERENCES accounts(id),
    FOREIGN KEY (roomId) REFERENCES rooms(id)
);

CREATE TABLE IF NOT EXISTS relationships (
    id TEXT PRIMARY KEY,
    createdAt TEXT DEFAULT CURRENT_TIMESTAMP,
    userId TEXT NOT NULL,
    targetId TEXT NOT NULL,
    status TEXT,
    FOREIGN KEY (userId) REFERENCES accounts(id),
    FOREIGN KEY (targetId) REFERENCES accounts(id)
);

CREATE TABLE IF NOT EXISTS cache (
    key TEXT NOT NULL,
    agentId TEXT NOT NULL,
    value TEXT DEFAULT '{}',
    createdAt TEXT DEFAULT CURRENT_TIMESTAMP,
    expiresAt TEXT,
    PRIMARY KEY (key, agentId)
);

CREATE INDEX IF NOT EXISTS idx_rooms_id ON rooms(id);
CREATE INDEX IF NOT EXISTS idx_memories_roomId ON memories(roomId);
CREATE INDEX IF NOT EXISTS idx_memories_userId ON memories(userId);
`

// requiredTables is the set VerifyTables checks after schema application.
var requiredTables = []string{
	"rooms",
	"accounts",
	"memories",
	"messages",
	"goals",
	"logs",
	"participants",
	"relationships",
	"cache",
}

// ApplySchema executes the idempotent DDL. Safe to run on every startup.
func (s *Store) ApplySchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store: apply schema: %w", err)
	}
	return nil
}

// VerifyTables checks that every required table exists, returning a single
// aggregated error naming all missing tables. A partially applied schema is
// treated as fatal.
func (s *Store) VerifyTables(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		return fmt.Errorf("store: list tables: %w", err)
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("store: scan table name: %w", err)
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("store: iterate tables: %w", err)
	}

	var missing []string
	for _, name := range requiredTables {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("store: missing tables: %s", strings.Join(missing, ", "))
	}
	return nil
}
