package accounts

import (
	"context"
	"testing"

	"github.com/calyptra/agentstore/internal/store"
	"github.com/calyptra/agentstore/internal/types"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	if err := st.ApplySchema(context.Background()); err != nil {
		t.Fatalf("ApplySchema: %v", err)
	}
	return New(st.DB(), nil)
}

func TestCreateAndGetRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	acc := &types.Account{
		ID:        "user-1",
		Name:      "Alice",
		Username:  "alice",
		Email:     "alice@example.com",
		AvatarURL: "https://example.com/a.png",
		Details: map[string]any{
			"locale": "en",
			"prefs":  map[string]any{"theme": "dark"},
		},
	}
	if ok := repo.Create(ctx, acc); !ok {
		t.Fatal("Create returned false")
	}

	got, err := repo.GetByID(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil {
		t.Fatal("account not found after create")
	}
	if got.Name != "Alice" || got.Username != "alice" {
		t.Errorf("fields: got %+v", got)
	}
	if got.CreatedAt == "" {
		t.Error("createdAt should be defaulted on create")
	}
	prefs, ok := got.Details["prefs"].(map[string]any)
	if !ok || prefs["theme"] != "dark" {
		t.Errorf("details did not round-trip: %v", got.Details)
	}
}

func TestGetByIDNullColumns(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	// Rows written by earlier runtimes bind NULL for undefined fields
	// instead of empty strings.
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, username, email, avatarUrl, details, createdAt)
		VALUES ('u-null', NULL, NULL, NULL, NULL, NULL, '2024-01-01T00:00:00Z')`)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := repo.GetByID(ctx, "u-null")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil {
		t.Fatal("account with NULL fields not returned")
	}
	if got.Name != "" || got.Username != "" || got.Email != "" || got.AvatarURL != "" {
		t.Errorf("NULL fields should map to empty strings: %+v", got)
	}
	if got.Details != nil {
		t.Errorf("NULL details should stay nil: %v", got.Details)
	}
}

func TestGetByIDAbsent(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.GetByID(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for absent account, got %+v", got)
	}
}

func TestCreateFailureReturnsFalse(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	acc := &types.Account{ID: "user-1", Name: "Alice"}
	if ok := repo.Create(ctx, acc); !ok {
		t.Fatal("first create should succeed")
	}

	// Duplicate primary key: the failure is signaled, never raised.
	if ok := repo.Create(ctx, acc); ok {
		t.Error("duplicate create should return false")
	}
}
