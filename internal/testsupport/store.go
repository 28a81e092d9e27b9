package testsupport

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"equipqr/internal/config"
	"equipqr/internal/logging"
	"equipqr/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewItem inserts a pending item with the given payload into repo.
func NewItem(t testing.TB, repo queue.Repository, scope queue.Scope, itemType queue.ItemType, payload any) *queue.Item {
	t.Helper()

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	item := &queue.Item{
		ID:             uuid.NewString(),
		Type:           itemType,
		Payload:        raw,
		OrganizationID: scope.OrganizationID,
		UserID:         scope.UserID,
		MaxRetries:     5,
		Status:         queue.StatusPending,
	}
	if err := repo.Insert(context.Background(), item); err != nil {
		t.Fatalf("insert item: %v", err)
	}
	return item
}
