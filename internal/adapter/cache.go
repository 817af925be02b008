package adapter

import (
	"context"
	"database/sql"
	"time"
)

// The cache is a namespaced key/value store keyed by (key, agentId). The
// 2-argument surface uses the empty agent id as a global namespace. The
// expiresAt column is advisory metadata only; no eviction logic runs.

// Get reads a value from the global namespace.
func (a *Adapter) Get(ctx context.Context, key string) (string, bool) {
	return a.GetCache(ctx, key, "")
}

// Set writes a value into the global namespace.
func (a *Adapter) Set(ctx context.Context, key, value string) bool {
	return a.SetCache(ctx, key, "", value)
}

// Delete removes a key from the global namespace.
func (a *Adapter) Delete(ctx context.Context, key string) bool {
	return a.DeleteCache(ctx, key, "")
}

// GetCache reads a value. The second return is false when the key is absent
// in the agent's namespace or the read fails.
func (a *Adapter) GetCache(ctx context.Context, key, agentID string) (string, bool) {
	var value string
	err := a.db.QueryRowContext(ctx,
		`SELECT value FROM cache WHERE key = ? AND agentId = ?`, key, agentID,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		a.logger.Error("adapter: get cache", "key", key, "agent", agentID, "err", err)
		return "", false
	}
	return value, true
}

// SetCache upserts a value with last-write-wins semantics, reporting failure
// as false, never an error.
func (a *Adapter) SetCache(ctx context.Context, key, agentID, value string) bool {
	_, err := a.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO cache (key, agentId, value, createdAt)
		VALUES (?, ?, ?, ?)`,
		key, agentID, value, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		a.logger.Error("adapter: set cache", "key", key, "agent", agentID, "err", err)
		return false
	}
	return true
}

// DeleteCache removes a key from the agent's namespace, reporting failure as
// false. Deleting an absent key succeeds.
func (a *Adapter) DeleteCache(ctx context.Context, key, agentID string) bool {
	_, err := a.db.ExecContext(ctx,
		`DELETE FROM cache WHERE key = ? AND agentId = ?`, key, agentID)
	if err != nil {
		a.logger.Error("adapter: delete cache", "key", key, "agent", agentID, "err", err)
		return false
	}
	return true
}
