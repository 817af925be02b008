// Package adapter composes the agentstore repositories behind the single
// database contract consumed by the agent runtime.
//
// Two error policies coexist deliberately, per operation: schema and memory
// and goal mutations propagate wrapped errors, while cache mutation, room
// lookup, participant updates and the search surfaces swallow internal
// failures and return a benign false/empty/nil value after logging. Callers
// rely on the non-throwing behavior of the latter group.
package adapter

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/calyptra/agentstore/internal/accounts"
	"github.com/calyptra/agentstore/internal/contentschema"
	"github.com/calyptra/agentstore/internal/memories"
	"github.com/calyptra/agentstore/internal/store"
	"github.com/calyptra/agentstore/internal/types"
)

// Database is the adapter contract surface consumed by the agent runtime.
type Database interface {
	// Lifecycle.
	Init(ctx context.Context) error
	Close() error

	// Identity.
	GetAccountByID(ctx context.Context, id string) (*types.Account, error)
	CreateAccount(ctx context.Context, acc *types.Account) bool

	// Rooms and participants.
	CreateRoom(ctx context.Context, id string, createdAt time.Time) error
	GetRoom(ctx context.Context, id string) (*types.Room, error)
	RemoveRoom(ctx context.Context, id string) error
	AddParticipant(ctx context.Context, p types.Participant) error
	GetParticipantsForAccount(ctx context.Context, userID string) ([]types.Participant, error)
	GetParticipantsForRoom(ctx context.Context, roomID string) []types.Participant
	GetRoomParticipant(ctx context.Context, roomID, userID string) *types.Participant
	RemoveParticipantFromRoom(ctx context.Context, roomID, userID string) bool
	UpdateParticipant(ctx context.Context, p types.Participant) bool
	GetParticipantUserState(ctx context.Context, roomID, userID string) (*string, error)
	SetParticipantUserState(ctx context.Context, roomID, userID string, state *string) error
	GetRoomsForParticipant(ctx context.Context, userID string) []string
	GetRoomsForParticipants(ctx context.Context, userIDs []string) []string

	// Relationships.
	CreateRelationship(ctx context.Context, userA, userB string) bool
	GetRelationship(ctx context.Context, userA, userB string) (*types.Relationship, error)
	GetRelationships(ctx context.Context, userID string) ([]types.Relationship, error)

	// Memories.
	CreateMemory(ctx context.Context, m *types.Memory, namespace string) error
	GetMemories(ctx context.Context, q types.MemoryQuery) ([]types.Memory, error)
	GetMemoryByID(ctx context.Context, id string) (*types.Memory, error)
	GetMemoriesByRoomIDs(ctx context.Context, agentID string, roomIDs []string) ([]types.Memory, error)
	SearchMemories(ctx context.Context, roomID string, count int) []types.Memory
	SearchMemoriesByEmbedding(ctx context.Context, vector []float32, q types.SearchQuery) ([]types.Memory, error)
	GetCachedEmbeddings(ctx context.Context, q types.CachedEmbeddingQuery) []types.CachedEmbedding
	RemoveMemory(ctx context.Context, id, namespace string) error
	RemoveAllMemories(ctx context.Context, roomID, namespace string) error
	CountMemories(ctx context.Context, roomID, namespace string, unique bool) (int, error)

	// Goals.
	GetGoals(ctx context.Context, q GoalQuery) []types.Goal
	CreateGoal(ctx context.Context, g *types.Goal) error
	UpdateGoal(ctx context.Context, g *types.Goal) error
	RemoveGoal(ctx context.Context, id string) error
	RemoveAllGoals(ctx context.Context, roomID string) error
	UpdateGoalStatus(ctx context.Context, id string, status types.GoalStatus) error

	// Cache.
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string) bool
	Delete(ctx context.Context, key string) bool
	GetCache(ctx context.Context, key, agentID string) (string, bool)
	SetCache(ctx context.Context, key, agentID, value string) bool
	DeleteCache(ctx context.Context, key, agentID string) bool

	// Logging.
	Log(ctx context.Context, entry types.LogEntry) error
}

// Adapter is the SQLite-backed implementation of Database. All repositories
// share the store's single connection; the adapter owns no other state.
type Adapter struct {
	store    *store.Store
	db       *sql.DB
	accounts *accounts.Repository
	memories *memories.Repository
	schemas  *contentschema.Registry
	logger   *slog.Logger
}

var _ Database = (*Adapter)(nil)

// Option configures an Adapter.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	sim     memories.Similarity
	schemas *contentschema.Registry
}

// WithLogger sets the logger shared by the adapter and its repositories.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithSimilarity selects the embedding search strategy. The default is
// memories.LengthSimilarity, which preserves the historical ordering by
// embedding byte length; pass memories.CosineSimilarity for real ranking.
func WithSimilarity(sim memories.Similarity) Option {
	return func(o *options) { o.sim = sim }
}

// WithContentSchemas installs a namespace validation registry applied on
// every CreateMemory.
func WithContentSchemas(reg *contentschema.Registry) Option {
	return func(o *options) { o.schemas = reg }
}

// New creates an Adapter over an opened store. Call Init before first use.
func New(st *store.Store, opts ...Option) *Adapter {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	db := st.DB()
	return &Adapter{
		store:    st,
		db:       db,
		accounts: accounts.New(db, o.logger),
		memories: memories.New(db, o.sim, o.logger),
		schemas:  o.schemas,
		logger:   o.logger,
	}
}

// Init applies the idempotent schema and then verifies that every required
// table exists, failing fast with an aggregated error when the application
// silently left tables missing.
func (a *Adapter) Init(ctx context.Context) error {
	if err := a.store.ApplySchema(ctx); err != nil {
		return err
	}
	if err := a.store.VerifyTables(ctx); err != nil {
		return err
	}
	a.logger.Info("adapter: database initialized, all required tables present")
	return nil
}

// Close closes the underlying store.
func (a *Adapter) Close() error {
	return a.store.Close()
}

// GetAccountByID fetches one account, nil when absent.
func (a *Adapter) GetAccountByID(ctx context.Context, id string) (*types.Account, error) {
	return a.accounts.GetByID(ctx, id)
}

// CreateAccount inserts an account, reporting failure as false.
func (a *Adapter) CreateAccount(ctx context.Context, acc *types.Account) bool {
	return a.accounts.Create(ctx, acc)
}
