package server

import (
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/quorumlabs/quorum/internal/agents"
	"github.com/quorumlabs/quorum/internal/state"
)

func newTestRegistry(t *testing.T) (*Registry, *state.DB) {
	t.Helper()

	db, err := state.Open(filepath.Join(t.TempDir(), "quorum.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	workers := agents.New(fixedCompleter{text: "ok"}, emptySearcher{}, 3, zap.NewNop())
	return NewRegistry(workers, db, nil, zap.NewNop(), 0), db
}

func TestRegistryCreateAndGet(t *testing.T) {
	registry, _ := newTestRegistry(t)

	conversationID, err := registry.Create("alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	coord, err := registry.Get(conversationID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !coord.Initialized() {
		t.Error("created coordinator has no context")
	}

	again, err := registry.Get(conversationID)
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if coord != again {
		t.Error("repeated Get returned a different coordinator")
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	registry, _ := newTestRegistry(t)

	_, err := registry.Get("conv_missing")
	if !errors.Is(err, state.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRegistryRestoresFromStore(t *testing.T) {
	registry, db := newTestRegistry(t)

	conversationID, err := registry.Create("alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// A fresh registry simulates a process restart: the coordinator must be
	// rebuilt from the store.
	workers := agents.New(fixedCompleter{text: "ok"}, emptySearcher{}, 3, zap.NewNop())
	fresh := NewRegistry(workers, db, nil, zap.NewNop(), 0)

	coord, err := fresh.Get(conversationID)
	if err != nil {
		t.Fatalf("get after restart: %v", err)
	}
	if !coord.Initialized() {
		t.Error("restored coordinator has no context")
	}
}
