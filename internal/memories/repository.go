// Package memories implements CRUD and search over content items with
// optional embedding vectors, including the insert-time uniqueness policy.
package memories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/calyptra/agentstore/internal/types"
)

// dedupThreshold is the similarity above which a new memory is considered a
// duplicate of an existing one and not flagged unique.
const dedupThreshold = 0.95

// ErrMissingScope is returned when a query omits its required namespace or
// room/agent scope.
var ErrMissingScope = errors.New("memories: namespace and scope identifiers are required")

// Repository reads and writes the memories table.
type Repository struct {
	db     *sql.DB
	sim    Similarity
	logger *slog.Logger
}

// New creates a Repository on the shared connection. A nil sim selects
// LengthSimilarity (the historical behavior); a nil logger selects
// slog.Default().
func New(db *sql.DB, sim Similarity, logger *slog.Logger) *Repository {
	if sim == nil {
		sim = LengthSimilarity{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, sim: sim, logger: logger}
}

// Create inserts a memory into the given namespace with replace-on-conflict
// semantics keyed by id. When the memory carries an embedding, a pre-check
// search in the same namespace/room/agent scope decides the unique flag
// before the insert. The pre-check and the insert are not transactionally
// linked; a concurrent writer can admit two memories each believing itself
// unique.
func (r *Repository) Create(ctx context.Context, m *types.Memory, namespace string) error {
	unique := true
	if len(m.Embedding) > 0 {
		similar, err := r.SearchByEmbedding(ctx, m.Embedding, types.SearchQuery{
			Namespace:      namespace,
			AgentID:        m.AgentID,
			RoomID:         m.RoomID,
			MatchThreshold: dedupThreshold,
			Count:          1,
		})
		if err != nil {
			return fmt.Errorf("memories: uniqueness pre-check: %w", err)
		}
		unique = len(similar) == 0
	}
	m.Unique = unique

	id := m.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := m.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}

	content, err := json.Marshal(m.Content)
	if err != nil {
		return fmt.Errorf("memories: encode content: %w", err)
	}

	var userID any
	if m.UserID != "" {
		userID = m.UserID
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO memories
			(id, type, content, embedding, userId, roomId, agentId, "unique", createdAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, namespace, string(content), EncodeVector(m.Embedding),
		userID, m.RoomID, m.AgentID, boolToInt(unique), createdAt,
	)
	if err != nil {
		return fmt.Errorf("memories: create memory %q: %w", id, err)
	}

	m.ID = id
	m.Type = namespace
	m.CreatedAt = createdAt
	return nil
}

// Get returns memories filtered by namespace, agent and room, newest first.
// Namespace and RoomID are required.
func (r *Repository) Get(ctx context.Context, q types.MemoryQuery) ([]types.Memory, error) {
	if q.Namespace == "" || q.RoomID == "" {
		return nil, ErrMissingScope
	}

	var sb strings.Builder
	sb.WriteString(`
		SELECT id, type, content, embedding, userId, roomId, agentId, "unique", createdAt
		FROM memories
		WHERE type = ? AND agentId = ? AND roomId = ?`)
	args := []any{q.Namespace, q.AgentID, q.RoomID}

	if q.UniqueOnly {
		sb.WriteString(` AND "unique" = 1`)
	}
	if q.Start != 0 {
		sb.WriteString(` AND createdAt >= ?`)
		args = append(args, q.Start)
	}
	if q.End != 0 {
		sb.WriteString(` AND createdAt <= ?`)
		args = append(args, q.End)
	}

	sb.WriteString(` ORDER BY createdAt DESC`)

	if q.Count > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, q.Count)
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("memories: query: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

// SearchByEmbedding returns memories in the namespace/agent scope that carry
// an embedding, scored against vector by the configured similarity strategy
// and ordered by descending score. The match threshold is honored only when
// the strategy produces comparable scores.
func (r *Repository) SearchByEmbedding(ctx context.Context, vector []float32, q types.SearchQuery) ([]types.Memory, error) {
	if q.Namespace == "" || q.AgentID == "" {
		return nil, ErrMissingScope
	}

	var sb strings.Builder
	sb.WriteString(`
		SELECT id, type, content, embedding, userId, roomId, agentId, "unique", createdAt
		FROM memories
		WHERE embedding IS NOT NULL AND type = ? AND agentId = ?`)
	args := []any{q.Namespace, q.AgentID}

	if q.UniqueOnly {
		sb.WriteString(` AND "unique" = 1`)
	}
	if q.RoomID != "" {
		sb.WriteString(` AND roomId = ?`)
		args = append(args, q.RoomID)
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("memories: embedding search: %w", err)
	}
	defer rows.Close()

	var results []types.Memory
	for rows.Next() {
		m, encodedLen, err := scanMemory(rows)
		if err != nil {
			r.logger.Warn("memories: skip malformed row", "err", err)
			continue
		}
		m.Similarity = r.sim.Score(vector, m.Embedding, encodedLen)
		if r.sim.Comparable() && q.MatchThreshold > 0 && m.Similarity < q.MatchThreshold {
			continue
		}
		results = append(results, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("memories: iterate rows: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	if q.Count > 0 && len(results) > q.Count {
		results = results[:q.Count]
	}
	return results, nil
}

// RecentByRoom returns a room's memories across all namespaces, newest
// first, capped at count.
func (r *Repository) RecentByRoom(ctx context.Context, roomID string, count int) ([]types.Memory, error) {
	if count <= 0 {
		count = 10
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, content, embedding, userId, roomId, agentId, "unique", createdAt
		FROM memories
		WHERE roomId = ?
		ORDER BY createdAt DESC
		LIMIT ?`, roomID, count)
	if err != nil {
		return nil, fmt.Errorf("memories: recent for room %q: %w", roomID, err)
	}
	defer rows.Close()

	return r.collect(rows)
}

// GetByID fetches one memory. Returns (nil, nil) when no row exists.
func (r *Repository) GetByID(ctx context.Context, id string) (*types.Memory, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, content, embedding, userId, roomId, agentId, "unique", createdAt
		FROM memories
		WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("memories: get %q: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("memories: get %q: %w", id, err)
		}
		return nil, nil
	}
	m, _, err := scanMemory(rows)
	if err != nil {
		return nil, fmt.Errorf("memories: get %q: %w", id, err)
	}
	return &m, nil
}

// GetByRoomIDs returns memories across a set of rooms, optionally restricted
// to one agent.
func (r *Repository) GetByRoomIDs(ctx context.Context, agentID string, roomIDs []string) ([]types.Memory, error) {
	if len(roomIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(roomIDs)), ", ")
	query := `
		SELECT id, type, content, embedding, userId, roomId, agentId, "unique", createdAt
		FROM memories
		WHERE roomId IN (` + placeholders + `)`
	args := make([]any, 0, len(roomIDs)+1)
	for _, id := range roomIDs {
		args = append(args, id)
	}
	if agentID != "" {
		query += ` AND agentId = ?`
		args = append(args, agentID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("memories: query by rooms: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

// Remove deletes one memory from a namespace.
func (r *Repository) Remove(ctx context.Context, id, namespace string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM memories WHERE id = ? AND type = ?`, id, namespace)
	if err != nil {
		return fmt.Errorf("memories: remove %q: %w", id, err)
	}
	return nil
}

// RemoveAll deletes every memory in a namespace belonging to a room.
func (r *Repository) RemoveAll(ctx context.Context, roomID, namespace string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM memories WHERE roomId = ? AND type = ?`, roomID, namespace)
	if err != nil {
		return fmt.Errorf("memories: remove all for room %q: %w", roomID, err)
	}
	return nil
}

// Count returns the number of memories in a room, optionally restricted to a
// namespace and to unique-flagged rows.
func (r *Repository) Count(ctx context.Context, roomID, namespace string, unique bool) (int, error) {
	query := `SELECT COUNT(*) FROM memories WHERE roomId = ?`
	args := []any{roomID}
	if namespace != "" {
		query += ` AND type = ?`
		args = append(args, namespace)
	}
	if unique {
		query += ` AND "unique" = 1`
	}

	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("memories: count for room %q: %w", roomID, err)
	}
	return n, nil
}

// collect scans all remaining rows, skipping malformed ones with a warning.
func (r *Repository) collect(rows *sql.Rows) ([]types.Memory, error) {
	var results []types.Memory
	for rows.Next() {
		m, _, err := scanMemory(rows)
		if err != nil {
			r.logger.Warn("memories: skip malformed row", "err", err)
			continue
		}
		results = append(results, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("memories: iterate rows: %w", err)
	}
	return results, nil
}

// scanMemory reads one row, decoding content JSON and the embedding through
// the canonical vector codec. It also returns the persisted embedding's byte
// length for the length-proxy similarity strategy.
func scanMemory(rows *sql.Rows) (types.Memory, int, error) {
	var (
		m         types.Memory
		content   sql.NullString
		embedding []byte
		userID    sql.NullString
		agentID   sql.NullString
		unique    int
		createdAt any
	)
	err := rows.Scan(&m.ID, &m.Type, &content, &embedding, &userID, &m.RoomID, &agentID, &unique, &createdAt)
	if err != nil {
		return types.Memory{}, 0, fmt.Errorf("scan row: %w", err)
	}

	if content.Valid && content.String != "" {
		if err := json.Unmarshal([]byte(content.String), &m.Content); err != nil {
			return types.Memory{}, 0, fmt.Errorf("decode content: %w", err)
		}
	}
	m.Embedding, err = DecodeVector(embedding)
	if err != nil {
		return types.Memory{}, 0, err
	}
	m.UserID = userID.String
	m.AgentID = agentID.String
	m.Unique = unique != 0
	m.CreatedAt = NormalizeEpoch(createdAt)

	return m, len(embedding), nil
}

// NormalizeEpoch accepts either a numeric epoch (millis) or a textual
// timestamp and returns epoch milliseconds. Zero when unparseable. Exposed
// because goal rows share the same mixed historical encodings.
func NormalizeEpoch(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case float64:
		return int64(t)
	case string:
		return parseTimestamp(t)
	case []byte:
		return parseTimestamp(string(t))
	default:
		return 0
	}
}

func parseTimestamp(s string) int64 {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli()
		}
	}
	return 0
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
