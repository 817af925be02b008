package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/calyptra/agentstore/internal/types"
)

// CreateRelationship records a directed edge from userA to userB, reporting
// failure as false. The edge id is freshly generated.
func (a *Adapter) CreateRelationship(ctx context.Context, userA, userB string) bool {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO relationships (id, userId, targetId, createdAt)
		VALUES (?, ?, ?, ?)`,
		uuid.NewString(), userA, userB, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		a.logger.Error("adapter: create relationship", "userA", userA, "userB", userB, "err", err)
		return false
	}
	return true
}

// GetRelationship returns the edge between two accounts in either direction,
// nil when none exists.
func (a *Adapter) GetRelationship(ctx context.Context, userA, userB string) (*types.Relationship, error) {
	rel, err := scanRelationship(a.db.QueryRowContext(ctx, `
		SELECT id, userId, targetId, status, createdAt
		FROM relationships
		WHERE (userId = ? AND targetId = ?) OR (userId = ? AND targetId = ?)`,
		userA, userB, userB, userA))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("adapter: get relationship %q/%q: %w", userA, userB, err)
	}
	return rel, nil
}

// GetRelationships returns every edge touching the account, as source or
// target.
func (a *Adapter) GetRelationships(ctx context.Context, userID string) ([]types.Relationship, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, userId, targetId, status, createdAt
		FROM relationships
		WHERE userId = ? OR targetId = ?`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("adapter: relationships for %q: %w", userID, err)
	}
	defer rows.Close()

	var rels []types.Relationship
	for rows.Next() {
		var (
			rel    types.Relationship
			status sql.NullString
		)
		if err := rows.Scan(&rel.ID, &rel.UserID, &rel.TargetID, &status, &rel.CreatedAt); err != nil {
			return nil, fmt.Errorf("adapter: scan relationship: %w", err)
		}
		if status.Valid {
			rel.Status = &status.String
		}
		rels = append(rels, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("adapter: iterate relationships: %w", err)
	}
	return rels, nil
}

func scanRelationship(row *sql.Row) (*types.Relationship, error) {
	var (
		rel    types.Relationship
		status sql.NullString
	)
	if err := row.Scan(&rel.ID, &rel.UserID, &rel.TargetID, &status, &rel.CreatedAt); err != nil {
		return nil, err
	}
	if status.Valid {
		rel.Status = &status.String
	}
	return &rel, nil
}
