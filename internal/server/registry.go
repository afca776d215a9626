package server

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quorumlabs/quorum/internal/agents"
	"github.com/quorumlabs/quorum/internal/coordinator"
	"github.com/quorumlabs/quorum/internal/state"
)

// Registry maps conversation IDs to live coordinators. Coordinators are
// created on demand and kept for the life of the process; a coordinator
// evicted by a restart is rebuilt from the store on the next connection.
type Registry struct {
	mu     sync.Mutex
	coords map[string]*coordinator.Coordinator

	workers    *agents.Agents
	db         *state.DB
	embedder   coordinator.Embedder
	log        *zap.Logger
	tokenDelay time.Duration
}

// NewRegistry creates a registry. embedder may be nil when vector indexing is
// disabled.
func NewRegistry(workers *agents.Agents, db *state.DB, embedder coordinator.Embedder, log *zap.Logger, tokenDelay time.Duration) *Registry {
	return &Registry{
		coords:     make(map[string]*coordinator.Coordinator),
		workers:    workers,
		db:         db,
		embedder:   embedder,
		log:        log,
		tokenDelay: tokenDelay,
	}
}

// Create starts a new conversation for userID and returns its ID.
func (r *Registry) Create(userID string) (string, error) {
	conversationID, err := r.db.CreateConversation(userID)
	if err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}

	coord := coordinator.New(conversationID, r.workers, r.db, r.embedder, r.log, r.tokenDelay)
	coord.Initialize(userID)

	r.mu.Lock()
	r.coords[conversationID] = coord
	r.mu.Unlock()

	return conversationID, nil
}

// Get returns the coordinator for conversationID, rebuilding it from the
// store if the process has no live one. Returns state.ErrNotFound for unknown
// conversations.
func (r *Registry) Get(conversationID string) (*coordinator.Coordinator, error) {
	r.mu.Lock()
	coord, ok := r.coords[conversationID]
	r.mu.Unlock()
	if ok {
		return coord, nil
	}

	cc, err := r.db.GetConversationContext(conversationID)
	if err != nil {
		return nil, err
	}

	coord = coordinator.New(conversationID, r.workers, r.db, r.embedder, r.log, r.tokenDelay)
	coord.Restore(cc)

	r.mu.Lock()
	// A concurrent Get may have rebuilt it first; keep the existing one.
	if existing, ok := r.coords[conversationID]; ok {
		coord = existing
	} else {
		r.coords[conversationID] = coord
	}
	r.mu.Unlock()

	return coord, nil
}
