package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/calyptra/agentstore/internal/types"
)

// CreateRoom inserts a room with insert-or-ignore semantics; creating a room
// that already exists is not an error. A zero createdAt defaults to now.
func (a *Adapter) CreateRoom(ctx context.Context, id string, createdAt time.Time) error {
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := a.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO rooms (id, createdAt) VALUES (?, ?)`,
		id, createdAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("adapter: create room %q: %w", id, err)
	}

	// Observational only, not part of the contract.
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		a.logger.Debug("adapter: room created", "room", id)
	} else {
		a.logger.Debug("adapter: room already exists", "room", id)
	}
	return nil
}

// GetRoom fetches the persisted room row. Returns (nil, nil) when the room
// does not exist. Lookup failures are swallowed and reported as not-found.
func (a *Adapter) GetRoom(ctx context.Context, id string) (*types.Room, error) {
	var room types.Room
	err := a.db.QueryRowContext(ctx,
		`SELECT id, createdAt FROM rooms WHERE id = ?`, id,
	).Scan(&room.ID, &room.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		a.logger.Error("adapter: get room", "room", id, "err", err)
		return nil, nil
	}
	return &room, nil
}

// RemoveRoom deletes a room row. Rows referencing it are left to the caller.
func (a *Adapter) RemoveRoom(ctx context.Context, id string) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id); err != nil {
		return fmt.Errorf("adapter: remove room %q: %w", id, err)
	}
	return nil
}

// AddParticipant records a membership with insert-or-ignore semantics keyed
// by the participant's own id. CreatedAt defaults to now.
func (a *Adapter) AddParticipant(ctx context.Context, p types.Participant) error {
	createdAt := p.CreatedAt
	if createdAt == "" {
		createdAt = time.Now().UTC().Format(time.RFC3339)
	}

	_, err := a.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO participants
			(id, roomId, userId, createdAt, userState, last_message_read)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.RoomID, p.UserID, createdAt, nullable(p.UserState), nullable(p.LastMessageRead))
	if err != nil {
		return fmt.Errorf("adapter: add participant %q: %w", p.ID, err)
	}
	return nil
}

// GetParticipantsForAccount returns one row per room membership of the
// account, joined against rooms.
func (a *Adapter) GetParticipantsForAccount(ctx context.Context, userID string) ([]types.Participant, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT p.id, p.roomId, p.userId, p.createdAt, p.userState, p.last_message_read
		FROM participants p
		JOIN rooms r ON p.roomId = r.id
		WHERE p.userId = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("adapter: participants for account %q: %w", userID, err)
	}
	defer rows.Close()

	return scanParticipants(rows, false)
}

// GetParticipantsForRoom returns the room's members with the account display
// name attached via a left join. Failures are swallowed to an empty slice.
func (a *Adapter) GetParticipantsForRoom(ctx context.Context, roomID string) []types.Participant {
	rows, err := a.db.QueryContext(ctx, `
		SELECT p.id, p.roomId, p.userId, p.createdAt, p.userState, p.last_message_read, u.name
		FROM participants p
		LEFT JOIN accounts u ON p.userId = u.id
		WHERE p.roomId = ?`, roomID)
	if err != nil {
		a.logger.Error("adapter: participants for room", "room", roomID, "err", err)
		return nil
	}
	defer rows.Close()

	participants, err := scanParticipants(rows, true)
	if err != nil {
		a.logger.Error("adapter: participants for room", "room", roomID, "err", err)
		return nil
	}
	return participants
}

// GetRoomParticipant returns one membership row with display name attached,
// nil when absent or on failure.
func (a *Adapter) GetRoomParticipant(ctx context.Context, roomID, userID string) *types.Participant {
	rows, err := a.db.QueryContext(ctx, `
		SELECT p.id, p.roomId, p.userId, p.createdAt, p.userState, p.last_message_read, u.name
		FROM participants p
		LEFT JOIN accounts u ON p.userId = u.id
		WHERE p.roomId = ? AND p.userId = ?`, roomID, userID)
	if err != nil {
		a.logger.Error("adapter: room participant", "room", roomID, "user", userID, "err", err)
		return nil
	}
	defer rows.Close()

	participants, err := scanParticipants(rows, true)
	if err != nil || len(participants) == 0 {
		return nil
	}
	return &participants[0]
}

// RemoveParticipantFromRoom deletes a membership, reporting failure as false.
func (a *Adapter) RemoveParticipantFromRoom(ctx context.Context, roomID, userID string) bool {
	_, err := a.db.ExecContext(ctx,
		`DELETE FROM participants WHERE roomId = ? AND userId = ?`, roomID, userID)
	if err != nil {
		a.logger.Error("adapter: remove participant", "room", roomID, "user", userID, "err", err)
		return false
	}
	return true
}

// UpdateParticipant overwrites the mutable membership fields (userState and
// last-read marker), reporting failure as false.
func (a *Adapter) UpdateParticipant(ctx context.Context, p types.Participant) bool {
	_, err := a.db.ExecContext(ctx, `
		UPDATE participants
		SET userState = ?, last_message_read = ?
		WHERE roomId = ? AND userId = ?`,
		nullable(p.UserState), nullable(p.LastMessageRead), p.RoomID, p.UserID)
	if err != nil {
		a.logger.Error("adapter: update participant", "room", p.RoomID, "user", p.UserID, "err", err)
		return false
	}
	return true
}

// GetParticipantUserState returns the membership's userState, nil when the
// membership exists without a state or does not exist.
func (a *Adapter) GetParticipantUserState(ctx context.Context, roomID, userID string) (*string, error) {
	var state sql.NullString
	err := a.db.QueryRowContext(ctx,
		`SELECT userState FROM participants WHERE roomId = ? AND userId = ?`,
		roomID, userID,
	).Scan(&state)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("adapter: participant state %q/%q: %w", roomID, userID, err)
	}
	if !state.Valid {
		return nil, nil
	}
	return &state.String, nil
}

// SetParticipantUserState sets or clears the membership's userState.
func (a *Adapter) SetParticipantUserState(ctx context.Context, roomID, userID string, state *string) error {
	_, err := a.db.ExecContext(ctx,
		`UPDATE participants SET userState = ? WHERE roomId = ? AND userId = ?`,
		nullable(state), roomID, userID)
	if err != nil {
		return fmt.Errorf("adapter: set participant state %q/%q: %w", roomID, userID, err)
	}
	return nil
}

// GetRoomsForParticipant returns the rooms one account belongs to. Failures
// are swallowed to an empty slice.
func (a *Adapter) GetRoomsForParticipant(ctx context.Context, userID string) []string {
	rows, err := a.db.QueryContext(ctx,
		`SELECT DISTINCT roomId FROM participants WHERE userId = ?`, userID)
	if err != nil {
		a.logger.Error("adapter: rooms for participant", "user", userID, "err", err)
		return nil
	}
	defer rows.Close()

	return a.collectRoomIDs(rows)
}

// GetRoomsForParticipants returns rooms whose participant set contains all
// the given users: exact multi-user co-membership, not "any of". Failures
// are swallowed to an empty slice.
func (a *Adapter) GetRoomsForParticipants(ctx context.Context, userIDs []string) []string {
	if len(userIDs) == 0 {
		return nil
	}

	placeholders := ""
	args := make([]any, 0, len(userIDs)+1)
	for i, id := range userIDs {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += "?"
		args = append(args, id)
	}
	args = append(args, len(userIDs))

	rows, err := a.db.QueryContext(ctx, `
		SELECT DISTINCT roomId
		FROM participants
		WHERE userId IN (`+placeholders+`)
		GROUP BY roomId
		HAVING COUNT(DISTINCT userId) = ?`, args...)
	if err != nil {
		a.logger.Error("adapter: rooms for participants", "err", err)
		return nil
	}
	defer rows.Close()

	return a.collectRoomIDs(rows)
}

func (a *Adapter) collectRoomIDs(rows *sql.Rows) []string {
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			a.logger.Error("adapter: scan room id", "err", err)
			return nil
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		a.logger.Error("adapter: iterate room ids", "err", err)
		return nil
	}
	return ids
}

// scanParticipants reads membership rows. The persisted createdAt is always
// returned as stored.
func scanParticipants(rows *sql.Rows, withUserName bool) ([]types.Participant, error) {
	var participants []types.Participant
	for rows.Next() {
		var (
			p         types.Participant
			userState sql.NullString
			lastRead  sql.NullString
			userName  sql.NullString
		)
		dest := []any{&p.ID, &p.RoomID, &p.UserID, &p.CreatedAt, &userState, &lastRead}
		if withUserName {
			dest = append(dest, &userName)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("adapter: scan participant: %w", err)
		}
		if userState.Valid {
			p.UserState = &userState.String
		}
		if lastRead.Valid {
			p.LastMessageRead = &lastRead.String
		}
		if userName.Valid {
			p.UserName = &userName.String
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("adapter: iterate participants: %w", err)
	}
	return participants, nil
}

// nullable maps a nil string pointer to SQL NULL.
func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
