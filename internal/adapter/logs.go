package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/calyptra/agentstore/internal/types"
)

// Log appends a structured log row. The entry's ID and CreatedAt are always
// assigned fresh; logs are never updated or deleted.
func (a *Adapter) Log(ctx context.Context, entry types.LogEntry) error {
	body, err := json.Marshal(entry.Body)
	if err != nil {
		return fmt.Errorf("adapter: encode log body: %w", err)
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO logs (id, userId, body, type, roomId, createdAt)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), entry.UserID, string(body), entry.Type, entry.RoomID,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("adapter: write log: %w", err)
	}
	return nil
}
