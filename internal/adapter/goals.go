package adapter

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/calyptra/agentstore/internal/memories"
	"github.com/calyptra/agentstore/internal/types"
)

// GoalQuery filters a GetGoals call. RoomID is required.
type GoalQuery struct {
	RoomID string
	UserID string
	// OnlyInProgress restricts results to goals with status IN_PROGRESS.
	OnlyInProgress bool
	// Count caps the number of rows returned; zero means no cap.
	Count int
}

// GetGoals returns a room's goals, newest first, optionally filtered to one
// user and to in-progress status. Failures are swallowed to an empty slice.
func (a *Adapter) GetGoals(ctx context.Context, q GoalQuery) []types.Goal {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, roomId, userId, name, status, description, objectives, createdAt
		FROM goals
		WHERE roomId = ?`)
	args := []any{q.RoomID}

	if q.UserID != "" {
		sb.WriteString(` AND userId = ?`)
		args = append(args, q.UserID)
	}
	if q.OnlyInProgress {
		sb.WriteString(` AND status = 'IN_PROGRESS'`)
	}

	sb.WriteString(` ORDER BY createdAt DESC`)

	if q.Count > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, q.Count)
	}

	rows, err := a.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		a.logger.Error("adapter: get goals", "room", q.RoomID, "err", err)
		return nil
	}
	defer rows.Close()

	var goals []types.Goal
	for rows.Next() {
		goal, err := scanGoal(rows)
		if err != nil {
			a.logger.Error("adapter: get goals", "room", q.RoomID, "err", err)
			return nil
		}
		goals = append(goals, goal)
	}
	if err := rows.Err(); err != nil {
		a.logger.Error("adapter: get goals", "room", q.RoomID, "err", err)
		return nil
	}
	return goals
}

// CreateGoal inserts a goal with objectives JSON-encoded. Failures propagate.
func (a *Adapter) CreateGoal(ctx context.Context, g *types.Goal) error {
	objectives, err := json.Marshal(g.Objectives)
	if err != nil {
		return fmt.Errorf("adapter: encode objectives: %w", err)
	}

	createdAt := g.CreatedAt
	if createdAt == 0 {
		createdAt = time.Now().UnixMilli()
	}

	var userID any
	if g.UserID != "" {
		userID = g.UserID
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO goals (id, roomId, userId, name, status, description, objectives, createdAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.RoomID, userID, g.Name, string(g.Status),
		nullable(g.Description), string(objectives), createdAt)
	if err != nil {
		return fmt.Errorf("adapter: create goal %q: %w", g.ID, err)
	}

	g.CreatedAt = createdAt
	return nil
}

// UpdateGoal overwrites name, status, description and objectives of the goal
// addressed by id and room. Failures propagate.
func (a *Adapter) UpdateGoal(ctx context.Context, g *types.Goal) error {
	objectives, err := json.Marshal(g.Objectives)
	if err != nil {
		return fmt.Errorf("adapter: encode objectives: %w", err)
	}

	_, err = a.db.ExecContext(ctx, `
		UPDATE goals
		SET name = ?, status = ?, description = ?, objectives = ?
		WHERE id = ? AND roomId = ?`,
		g.Name, string(g.Status), nullable(g.Description), string(objectives), g.ID, g.RoomID)
	if err != nil {
		return fmt.Errorf("adapter: update goal %q: %w", g.ID, err)
	}
	return nil
}

// RemoveGoal deletes one goal.
func (a *Adapter) RemoveGoal(ctx context.Context, id string) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id); err != nil {
		return fmt.Errorf("adapter: remove goal %q: %w", id, err)
	}
	return nil
}

// RemoveAllGoals deletes every goal in a room.
func (a *Adapter) RemoveAllGoals(ctx context.Context, roomID string) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM goals WHERE roomId = ?`, roomID); err != nil {
		return fmt.Errorf("adapter: remove goals for room %q: %w", roomID, err)
	}
	return nil
}

// UpdateGoalStatus transitions one goal's status.
func (a *Adapter) UpdateGoalStatus(ctx context.Context, id string, status types.GoalStatus) error {
	_, err := a.db.ExecContext(ctx,
		`UPDATE goals SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("adapter: update goal status %q: %w", id, err)
	}
	return nil
}

// scanGoal decodes objectives JSON and normalizes createdAt, which older
// rows persisted as textual timestamps, to epoch millis. The name and status
// columns are nullable and may be NULL in rows written by earlier runtimes.
func scanGoal(rows *sql.Rows) (types.Goal, error) {
	var (
		g           types.Goal
		userID      sql.NullString
		name        sql.NullString
		status      sql.NullString
		description sql.NullString
		objectives  string
		createdAt   any
	)
	err := rows.Scan(&g.ID, &g.RoomID, &userID, &name, &status, &description, &objectives, &createdAt)
	if err != nil {
		return types.Goal{}, fmt.Errorf("scan goal: %w", err)
	}

	g.UserID = userID.String
	g.Name = name.String
	g.Status = types.GoalStatus(status.String)
	if description.Valid {
		g.Description = &description.String
	}
	if objectives != "" {
		if err := json.Unmarshal([]byte(objectives), &g.Objectives); err != nil {
			return types.Goal{}, fmt.Errorf("decode objectives: %w", err)
		}
	}
	g.CreatedAt = memories.NormalizeEpoch(createdAt)
	return g, nil
}
