package memories

import (
	"context"
	"errors"
	"testing"

	"github.com/calyptra/agentstore/internal/store"
	"github.com/calyptra/agentstore/internal/types"
)

// newTestRepo builds a repository over a fresh in-memory database with the
// full schema applied and two rooms pre-created (memories carry a foreign
// key to rooms).
func newTestRepo(t *testing.T, sim Similarity) *Repository {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	if err := st.ApplySchema(ctx); err != nil {
		t.Fatalf("ApplySchema: %v", err)
	}
	for _, room := range []string{"room-1", "room-2"} {
		if _, err := st.DB().ExecContext(ctx,
			`INSERT INTO rooms (id, createdAt) VALUES (?, '2024-01-01T00:00:00Z')`, room); err != nil {
			t.Fatalf("insert room %s: %v", room, err)
		}
	}

	return New(st.DB(), sim, nil)
}

func TestCreateAndGetRoundTrip(t *testing.T) {
	repo := newTestRepo(t, nil)
	ctx := context.Background()

	content := map[string]any{
		"text": "the user prefers terse answers",
		"meta": map[string]any{"source": "chat", "turn": float64(3)},
	}
	m := &types.Memory{
		ID:      "mem-1",
		RoomID:  "room-1",
		AgentID: "agent-1",
		Content: content,
	}
	if err := repo.Create(ctx, m, "facts"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !m.Unique {
		t.Error("memory without embedding should be flagged unique")
	}
	if m.CreatedAt == 0 {
		t.Error("Create should stamp createdAt")
	}

	got, err := repo.Get(ctx, types.MemoryQuery{
		Namespace: "facts",
		RoomID:    "room-1",
		AgentID:   "agent-1",
	})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d memories, want 1", len(got))
	}
	if got[0].Content["text"] != content["text"] {
		t.Errorf("content text: got %v, want %v", got[0].Content["text"], content["text"])
	}
	meta, ok := got[0].Content["meta"].(map[string]any)
	if !ok || meta["turn"] != float64(3) {
		t.Errorf("nested content did not round-trip: %v", got[0].Content["meta"])
	}
}

func TestGetRequiresNamespaceAndRoom(t *testing.T) {
	repo := newTestRepo(t, nil)
	ctx := context.Background()

	_, err := repo.Get(ctx, types.MemoryQuery{RoomID: "room-1"})
	if !errors.Is(err, ErrMissingScope) {
		t.Errorf("missing namespace: got %v, want ErrMissingScope", err)
	}
	_, err = repo.Get(ctx, types.MemoryQuery{Namespace: "facts"})
	if !errors.Is(err, ErrMissingScope) {
		t.Errorf("missing roomId: got %v, want ErrMissingScope", err)
	}
}

func TestUniquenessFlag(t *testing.T) {
	repo := newTestRepo(t, nil)
	ctx := context.Background()

	embedding := []float32{0.5, 0.5, 0.5, 0.5}

	first := &types.Memory{
		ID:        "mem-1",
		RoomID:    "room-1",
		AgentID:   "agent-1",
		Content:   map[string]any{"text": "a"},
		Embedding: embedding,
	}
	if err := repo.Create(ctx, first, "facts"); err != nil {
		t.Fatalf("Create first: %v", err)
	}
	if !first.Unique {
		t.Error("first embedding in scope should be unique")
	}

	second := &types.Memory{
		ID:        "mem-2",
		RoomID:    "room-1",
		AgentID:   "agent-1",
		Content:   map[string]any{"text": "a'"},
		Embedding: []float32{0.5, 0.5, 0.5, 0.50001},
	}
	if err := repo.Create(ctx, second, "facts"); err != nil {
		t.Fatalf("Create second: %v", err)
	}
	if second.Unique {
		t.Error("near-identical embedding in the same scope should not be unique")
	}

	// A different room is a different scope.
	elsewhere := &types.Memory{
		ID:        "mem-3",
		RoomID:    "room-2",
		AgentID:   "agent-1",
		Content:   map[string]any{"text": "a"},
		Embedding: embedding,
	}
	if err := repo.Create(ctx, elsewhere, "facts"); err != nil {
		t.Fatalf("Create elsewhere: %v", err)
	}
	if !elsewhere.Unique {
		t.Error("same embedding in a different room should be unique")
	}
}

func TestGetFilters(t *testing.T) {
	repo := newTestRepo(t, nil)
	ctx := context.Background()

	seed := []struct {
		id        string
		createdAt int64
		embedding []float32
	}{
		{"mem-1", 1000, nil},
		{"mem-2", 2000, []float32{1, 2}},
		{"mem-3", 3000, []float32{1, 2, 3}}, // not unique: mem-2 already in scope
	}
	for _, s := range seed {
		m := &types.Memory{
			ID:        s.id,
			RoomID:    "room-1",
			AgentID:   "agent-1",
			Content:   map[string]any{"id": s.id},
			Embedding: s.embedding,
			CreatedAt: s.createdAt,
		}
		if err := repo.Create(ctx, m, "facts"); err != nil {
			t.Fatalf("Create %s: %v", s.id, err)
		}
	}

	// Newest first.
	all, err := repo.Get(ctx, types.MemoryQuery{Namespace: "facts", RoomID: "room-1", AgentID: "agent-1"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(all) != 3 || all[0].ID != "mem-3" || all[2].ID != "mem-1" {
		t.Fatalf("unexpected ordering: %+v", ids(all))
	}

	// Count cap.
	capped, err := repo.Get(ctx, types.MemoryQuery{Namespace: "facts", RoomID: "room-1", AgentID: "agent-1", Count: 2})
	if err != nil {
		t.Fatalf("Get capped: %v", err)
	}
	if len(capped) != 2 || capped[0].ID != "mem-3" {
		t.Fatalf("count cap: got %v", ids(capped))
	}

	// Time range.
	ranged, err := repo.Get(ctx, types.MemoryQuery{
		Namespace: "facts", RoomID: "room-1", AgentID: "agent-1",
		Start: 1500, End: 2500,
	})
	if err != nil {
		t.Fatalf("Get ranged: %v", err)
	}
	if len(ranged) != 1 || ranged[0].ID != "mem-2" {
		t.Fatalf("time range: got %v", ids(ranged))
	}

	// Unique-only excludes mem-3.
	uniqueOnly, err := repo.Get(ctx, types.MemoryQuery{
		Namespace: "facts", RoomID: "room-1", AgentID: "agent-1", UniqueOnly: true,
	})
	if err != nil {
		t.Fatalf("Get unique: %v", err)
	}
	for _, m := range uniqueOnly {
		if m.ID == "mem-3" {
			t.Error("unique-only result contains a non-unique memory")
		}
	}
}

func TestSearchByEmbeddingLengthOrdering(t *testing.T) {
	repo := newTestRepo(t, nil)
	ctx := context.Background()

	// Different vector lengths: the historical strategy orders by stored
	// byte length, not closeness to the query.
	seed := map[string][]float32{
		"mem-short": {1, 0},
		"mem-long":  {0, 0, 0, 0, 0, 0, 0, 1},
		"mem-mid":   {0, 1, 0, 0},
	}
	for id, emb := range seed {
		m := &types.Memory{
			ID: id, RoomID: "room-1", AgentID: "agent-1",
			Content:   map[string]any{"id": id},
			Embedding: emb,
		}
		if err := repo.Create(ctx, m, "facts"); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}

	results, err := repo.SearchByEmbedding(ctx, []float32{1, 0}, types.SearchQuery{
		Namespace: "facts",
		AgentID:   "agent-1",
	})
	if err != nil {
		t.Fatalf("SearchByEmbedding: %v", err)
	}
	want := []string{"mem-long", "mem-mid", "mem-short"}
	got := ids(results)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("length ordering: got %v, want %v", got, want)
		}
	}
}

func TestSearchByEmbeddingCosine(t *testing.T) {
	repo := newTestRepo(t, CosineSimilarity{})
	ctx := context.Background()

	seed := map[string][]float32{
		"mem-aligned":    {1, 0, 0},
		"mem-close":      {0.9, 0.1, 0},
		"mem-orthogonal": {0, 1, 0},
	}
	for id, emb := range seed {
		if _, err := repo.db.ExecContext(ctx, `
			INSERT INTO memories (id, type, content, embedding, roomId, agentId, "unique", createdAt)
			VALUES (?, 'facts', '{}', ?, 'room-1', 'agent-1', 1, 1000)`,
			id, EncodeVector(emb)); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	results, err := repo.SearchByEmbedding(ctx, []float32{1, 0, 0}, types.SearchQuery{
		Namespace:      "facts",
		AgentID:        "agent-1",
		MatchThreshold: 0.5,
	})
	if err != nil {
		t.Fatalf("SearchByEmbedding: %v", err)
	}
	got := ids(results)
	if len(got) != 2 || got[0] != "mem-aligned" || got[1] != "mem-close" {
		t.Fatalf("cosine search: got %v, want [mem-aligned mem-close]", got)
	}
	if results[0].Similarity < results[1].Similarity {
		t.Error("results not ordered by descending similarity")
	}
}

func TestSearchRequiresScope(t *testing.T) {
	repo := newTestRepo(t, nil)

	_, err := repo.SearchByEmbedding(context.Background(), []float32{1}, types.SearchQuery{Namespace: "facts"})
	if !errors.Is(err, ErrMissingScope) {
		t.Errorf("missing agentId: got %v, want ErrMissingScope", err)
	}
}

func TestCreateReplacesOnConflict(t *testing.T) {
	repo := newTestRepo(t, nil)
	ctx := context.Background()

	for _, text := range []string{"before", "after"} {
		m := &types.Memory{
			ID:      "mem-1",
			RoomID:  "room-1",
			AgentID: "agent-1",
			Content: map[string]any{"text": text},
		}
		if err := repo.Create(ctx, m, "facts"); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err := repo.GetByID(ctx, "mem-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.Content["text"] != "after" {
		t.Fatalf("replace-on-conflict: got %+v", got)
	}
}

func TestGetByIDAbsent(t *testing.T) {
	repo := newTestRepo(t, nil)

	got, err := repo.GetByID(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for absent memory, got %+v", got)
	}
}

func TestGetByRoomIDs(t *testing.T) {
	repo := newTestRepo(t, nil)
	ctx := context.Background()

	seed := []struct{ id, room, agent string }{
		{"mem-1", "room-1", "agent-1"},
		{"mem-2", "room-2", "agent-1"},
		{"mem-3", "room-2", "agent-2"},
	}
	for _, s := range seed {
		m := &types.Memory{ID: s.id, RoomID: s.room, AgentID: s.agent, Content: map[string]any{}}
		if err := repo.Create(ctx, m, "facts"); err != nil {
			t.Fatalf("Create %s: %v", s.id, err)
		}
	}

	both, err := repo.GetByRoomIDs(ctx, "", []string{"room-1", "room-2"})
	if err != nil {
		t.Fatalf("GetByRoomIDs: %v", err)
	}
	if len(both) != 3 {
		t.Errorf("all rooms: got %d memories, want 3", len(both))
	}

	agentOnly, err := repo.GetByRoomIDs(ctx, "agent-1", []string{"room-2"})
	if err != nil {
		t.Fatalf("GetByRoomIDs agent: %v", err)
	}
	if len(agentOnly) != 1 || agentOnly[0].ID != "mem-2" {
		t.Errorf("agent filter: got %v", ids(agentOnly))
	}

	none, err := repo.GetByRoomIDs(ctx, "", nil)
	if err != nil || none != nil {
		t.Errorf("empty room list: got (%v, %v)", none, err)
	}
}

func TestRemoveAndCount(t *testing.T) {
	repo := newTestRepo(t, nil)
	ctx := context.Background()

	for _, id := range []string{"mem-1", "mem-2", "mem-3"} {
		m := &types.Memory{ID: id, RoomID: "room-1", AgentID: "agent-1", Content: map[string]any{}}
		if err := repo.Create(ctx, m, "facts"); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}

	n, err := repo.Count(ctx, "room-1", "facts", false)
	if err != nil || n != 3 {
		t.Fatalf("Count: got (%d, %v), want 3", n, err)
	}

	if err := repo.Remove(ctx, "mem-2", "facts"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	n, _ = repo.Count(ctx, "room-1", "facts", false)
	if n != 2 {
		t.Fatalf("after Remove: got %d, want 2", n)
	}

	if err := repo.RemoveAll(ctx, "room-1", "facts"); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	n, _ = repo.Count(ctx, "room-1", "facts", false)
	if n != 0 {
		t.Fatalf("after RemoveAll: got %d, want 0", n)
	}
}

func TestNormalizeEpoch(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int64
	}{
		{"int64 passthrough", int64(1700000000000), 1700000000000},
		{"numeric text", "1700000000000", 1700000000000},
		{"rfc3339", "2024-01-01T00:00:00Z", 1704067200000},
		{"sql timestamp", "2024-01-01 00:00:00", 1704067200000},
		{"garbage", "not a time", 0},
		{"nil", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeEpoch(tt.in); got != tt.want {
				t.Errorf("NormalizeEpoch(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func ids(memories []types.Memory) []string {
	out := make([]string, len(memories))
	for i, m := range memories {
		out[i] = m.ID
	}
	return out
}
