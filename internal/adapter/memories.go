package adapter

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/calyptra/agentstore/internal/memories"
	"github.com/calyptra/agentstore/internal/types"
)

// CreateMemory persists a memory into the given namespace. When the memory
// references an unknown room, the room is created first, synchronously, so a
// memory can never reference a nonexistent room. Content is validated
// against the namespace's registered schema, if any. Persistence failures
// propagate.
func (a *Adapter) CreateMemory(ctx context.Context, m *types.Memory, namespace string) error {
	room, err := a.GetRoom(ctx, m.RoomID)
	if err != nil {
		return err
	}
	if room == nil {
		if err := a.CreateRoom(ctx, m.RoomID, time.Time{}); err != nil {
			return err
		}
		a.logger.Debug("adapter: created room for memory", "room", m.RoomID)
	}

	if err := a.schemas.Validate(namespace, m.Content); err != nil {
		return err
	}

	return a.memories.Create(ctx, m, namespace)
}

// GetMemories filters memories by namespace, agent and room; see
// types.MemoryQuery.
func (a *Adapter) GetMemories(ctx context.Context, q types.MemoryQuery) ([]types.Memory, error) {
	return a.memories.Get(ctx, q)
}

// GetMemoryByID fetches one memory, nil when absent.
func (a *Adapter) GetMemoryByID(ctx context.Context, id string) (*types.Memory, error) {
	return a.memories.GetByID(ctx, id)
}

// GetMemoriesByRoomIDs returns memories across a set of rooms, optionally
// restricted to one agent.
func (a *Adapter) GetMemoriesByRoomIDs(ctx context.Context, agentID string, roomIDs []string) ([]types.Memory, error) {
	return a.memories.GetByRoomIDs(ctx, agentID, roomIDs)
}

// SearchMemories returns the room's most recent memories, newest first,
// capped at count. Failures are swallowed to an empty slice.
func (a *Adapter) SearchMemories(ctx context.Context, roomID string, count int) []types.Memory {
	results, err := a.memories.RecentByRoom(ctx, roomID, count)
	if err != nil {
		a.logger.Error("adapter: search memories", "room", roomID, "err", err)
		return nil
	}
	return results
}

// SearchMemoriesByEmbedding scores stored embeddings against vector using
// the configured similarity strategy.
func (a *Adapter) SearchMemoriesByEmbedding(ctx context.Context, vector []float32, q types.SearchQuery) ([]types.Memory, error) {
	return a.memories.SearchByEmbedding(ctx, vector, q)
}

// RemoveMemory deletes one memory from a namespace.
func (a *Adapter) RemoveMemory(ctx context.Context, id, namespace string) error {
	return a.memories.Remove(ctx, id, namespace)
}

// RemoveAllMemories deletes every memory in a namespace belonging to a room.
func (a *Adapter) RemoveAllMemories(ctx context.Context, roomID, namespace string) error {
	return a.memories.RemoveAll(ctx, roomID, namespace)
}

// CountMemories counts a room's memories, optionally unique-flagged only.
func (a *Adapter) CountMemories(ctx context.Context, roomID, namespace string, unique bool) (int, error) {
	return a.memories.Count(ctx, roomID, namespace, unique)
}

// identifierPattern restricts field and table names interpolated into SQL to
// bare identifiers.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// GetCachedEmbeddings matches rows whose named field contains the query
// input as a substring and returns each match's decoded embedding paired
// with the matched field's character length as the score. The requested
// table is validated against the live schema and falls back to the memories
// table when absent. Failures are swallowed to an empty slice.
func (a *Adapter) GetCachedEmbeddings(ctx context.Context, q types.CachedEmbeddingQuery) []types.CachedEmbedding {
	if !identifierPattern.MatchString(q.FieldName) {
		a.logger.Error("adapter: cached embeddings: invalid field name", "field", q.FieldName)
		return nil
	}

	table := q.TableName
	if !identifierPattern.MatchString(table) {
		table = "memories"
	} else if exists, err := a.store.TableExists(ctx, table); err != nil || !exists {
		if err != nil {
			a.logger.Error("adapter: cached embeddings: table check", "table", table, "err", err)
			return nil
		}
		a.logger.Debug("adapter: cached embeddings: unknown table, falling back to memories", "table", table)
		table = "memories"
	}

	query := fmt.Sprintf(`
		SELECT embedding, length(%s) AS match_length
		FROM %s
		WHERE %s LIKE ? AND embedding IS NOT NULL
		LIMIT ?`, q.FieldName, table, q.FieldName)

	rows, err := a.db.QueryContext(ctx, query, "%"+q.Input+"%", q.Count)
	if err != nil {
		a.logger.Error("adapter: cached embeddings", "table", table, "err", err)
		return nil
	}
	defer rows.Close()

	var matches []types.CachedEmbedding
	for rows.Next() {
		var (
			raw         []byte
			matchLength int
		)
		if err := rows.Scan(&raw, &matchLength); err != nil {
			a.logger.Error("adapter: cached embeddings: scan", "err", err)
			return nil
		}
		vec, err := memories.DecodeVector(raw)
		if err != nil || len(vec) == 0 {
			// Rows whose embedding does not decode to a vector are dropped.
			continue
		}
		matches = append(matches, types.CachedEmbedding{Embedding: vec, Score: matchLength})
	}
	if err := rows.Err(); err != nil {
		a.logger.Error("adapter: cached embeddings: iterate", "err", err)
		return nil
	}
	return matches
}
