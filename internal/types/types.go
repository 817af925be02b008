// Package types defines the entities and parameter shapes persisted by the
// agentstore adapter. All identifiers are opaque unique strings (UUIDs by
// convention, but never parsed as such).
package types

// GoalStatus is the lifecycle state of a Goal.
type GoalStatus string

const (
	GoalNotStarted GoalStatus = "NOT_STARTED"
	GoalInProgress GoalStatus = "IN_PROGRESS"
	GoalCompleted  GoalStatus = "COMPLETED"
	GoalFailed     GoalStatus = "FAILED"
)

// Account is a user identity record. It is the identity root referenced by
// memories, goals, participants and relationships.
type Account struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Username  string         `json:"username"`
	Email     string         `json:"email"`
	AvatarURL string         `json:"avatarUrl"`
	Details   map[string]any `json:"details"`
	CreatedAt string         `json:"createdAt"`
}

// Room is a conversation scope. Rooms are created explicitly or implicitly on
// the first memory write that references an unknown room id.
type Room struct {
	ID        string `json:"id"`
	CreatedAt string `json:"createdAt"`
}

// Participant is the membership of an account in a room. (RoomID, UserID)
// is unique in practice but not enforced as a composite key; inserts are
// keyed by the participant's own id with insert-or-ignore semantics.
type Participant struct {
	ID              string  `json:"id"`
	RoomID          string  `json:"roomId"`
	UserID          string  `json:"userId"`
	CreatedAt       string  `json:"createdAt"`
	UserState       *string `json:"userState,omitempty"`
	LastMessageRead *string `json:"lastMessageRead,omitempty"`
	// UserName is attached on reads that join against accounts; it is never
	// persisted on the participant row itself.
	UserName *string `json:"userName,omitempty"`
}

// Memory is the core searchable unit: an arbitrary structured payload scoped
// to a namespace, room and agent, with an optional embedding vector.
type Memory struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	RoomID    string         `json:"roomId"`
	UserID    string         `json:"userId,omitempty"`
	AgentID   string         `json:"agentId"`
	Content   map[string]any `json:"content"`
	Embedding []float32      `json:"embedding,omitempty"`
	// CreatedAt is epoch milliseconds.
	CreatedAt int64 `json:"createdAt"`
	// Unique records whether, at insert time, no sufficiently similar
	// embedding already existed in the same namespace/room/agent scope.
	Unique bool `json:"unique"`
	// Similarity is populated only by embedding search; it is the score
	// assigned by the active similarity strategy.
	Similarity float64 `json:"similarity,omitempty"`
}

// Objective is an ordered sub-item of a Goal.
type Objective struct {
	ID          string `json:"id,omitempty"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// Goal is a mutable, status-tracked intention scoped to a room.
type Goal struct {
	ID          string      `json:"id"`
	RoomID      string      `json:"roomId"`
	UserID      string      `json:"userId,omitempty"`
	Name        string      `json:"name"`
	Status      GoalStatus  `json:"status"`
	Description *string     `json:"description,omitempty"`
	Objectives  []Objective `json:"objectives"`
	// CreatedAt is epoch milliseconds.
	CreatedAt int64 `json:"createdAt"`
}

// Relationship is a directed edge between two accounts.
type Relationship struct {
	ID        string  `json:"id"`
	UserID    string  `json:"userId"`
	TargetID  string  `json:"targetId"`
	Status    *string `json:"status,omitempty"`
	CreatedAt string  `json:"createdAt"`
}

// LogEntry is an append-only structured log row. The adapter assigns a fresh
// id and the current timestamp on every write.
type LogEntry struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	RoomID    string         `json:"roomId"`
	Type      string         `json:"type"`
	Body      map[string]any `json:"body"`
	CreatedAt string         `json:"createdAt"`
}

// MemoryQuery filters a getMemories call. Namespace and RoomID are required.
type MemoryQuery struct {
	Namespace string
	RoomID    string
	AgentID   string
	// UniqueOnly restricts results to rows flagged unique at insert time.
	UniqueOnly bool
	// Start and End bound createdAt (epoch millis, inclusive); zero means
	// unbounded.
	Start int64
	End   int64
	// Count caps the number of rows returned; zero means no cap.
	Count int
}

// SearchQuery filters an embedding search. Namespace and AgentID are
// required; RoomID is optional.
type SearchQuery struct {
	Namespace  string
	AgentID    string
	RoomID     string
	UniqueOnly bool
	// MatchThreshold is the minimum score for a row to be returned. It is
	// honored only by similarity strategies that produce comparable scores.
	MatchThreshold float64
	Count          int
}

// CachedEmbeddingQuery drives the substring-match fallback search over a
// table carrying embeddings.
type CachedEmbeddingQuery struct {
	// TableName is validated against the live schema; unknown tables fall
	// back to "memories".
	TableName string
	// FieldName is the column matched against Input as a substring. It must
	// be a bare SQL identifier.
	FieldName string
	Input     string
	Count     int
}

// CachedEmbedding pairs a decoded embedding with its match score. Score is
// the character length of the matched field, not an edit distance.
type CachedEmbedding struct {
	Embedding []float32 `json:"embedding"`
	Score     int       `json:"score"`
}
