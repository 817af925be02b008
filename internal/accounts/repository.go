// Package accounts implements CRUD over user identity records.
package accounts

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/calyptra/agentstore/internal/types"
)

// Repository reads and writes the accounts table.
type Repository struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a Repository on the shared connection. If logger is nil, the
// default slog logger is used.
func New(db *sql.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{db: db, logger: logger}
}

// GetByID fetches one account. Returns (nil, nil) when no row exists. The
// details column is decoded from JSON text before returning. Every column
// except id and createdAt is nullable; rows written by earlier runtimes leave
// unknown fields NULL rather than empty.
func (r *Repository) GetByID(ctx context.Context, id string) (*types.Account, error) {
	var (
		acc       types.Account
		name      sql.NullString
		username  sql.NullString
		email     sql.NullString
		avatarURL sql.NullString
		details   sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, username, email, avatarUrl, details, createdAt
		FROM accounts
		WHERE id = ?`, id,
	).Scan(&acc.ID, &name, &username, &email, &avatarURL, &details, &acc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("accounts: get %q: %w", id, err)
	}

	acc.Name = name.String
	acc.Username = username.String
	acc.Email = email.String
	acc.AvatarURL = avatarURL.String
	if details.Valid && details.String != "" {
		if err := json.Unmarshal([]byte(details.String), &acc.Details); err != nil {
			return nil, fmt.Errorf("accounts: decode details for %q: %w", id, err)
		}
	}
	return &acc, nil
}

// Create inserts a new account row. Write failures are reported as a false
// return rather than an error; callers must check the boolean.
func (r *Repository) Create(ctx context.Context, acc *types.Account) bool {
	details, err := json.Marshal(acc.Details)
	if err != nil {
		r.logger.Error("accounts: encode details", "id", acc.ID, "err", err)
		return false
	}

	createdAt := acc.CreatedAt
	if createdAt == "" {
		createdAt = time.Now().UTC().Format(time.RFC3339)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, username, email, avatarUrl, details, createdAt)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		acc.ID, acc.Name, acc.Username, acc.Email, acc.AvatarURL, string(details), createdAt,
	)
	if err != nil {
		r.logger.Error("accounts: create", "id", acc.ID, "err", err)
		return false
	}
	return true
}
