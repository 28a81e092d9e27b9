package badger_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"equipqr/internal/logging"
	"equipqr/internal/queue"
	"equipqr/internal/queue/badger"
	"equipqr/internal/testsupport"
)

var scope = queue.Scope{OrganizationID: "org-1", UserID: "user-1"}

func openStore(t *testing.T) *badger.Store {
	t.Helper()
	store, err := badger.OpenInMemory(logging.NewNop())
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestListIsFIFOAndScoped(t *testing.T) {
	store := openStore(t)
	other := queue.Scope{OrganizationID: "org-2", UserID: "user-1"}

	var want []string
	for i := 0; i < 4; i++ {
		item := testsupport.NewItem(t, store, scope, queue.TypeWorkOrderNote, map[string]string{"workOrderId": "wo-1"})
		want = append(want, item.ID)
		testsupport.NewItem(t, store, other, queue.TypeWorkOrderNote, map[string]string{"workOrderId": "wo-1"})
	}

	items, err := store.List(context.Background(), scope)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(items))
	}
	for i, item := range items {
		if item.ID != want[i] {
			t.Fatalf("position %d: got %s, want %s", i, item.ID, want[i])
		}
	}
	if _, err := store.GetByID(context.Background(), other, want[0]); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound across scopes, got %v", err)
	}
}

func TestLifecycleOperations(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	a := testsupport.NewItem(t, store, scope, queue.TypeEquipmentNote, map[string]string{"equipmentId": "eq-1"})
	b := testsupport.NewItem(t, store, scope, queue.TypeEquipmentNote, map[string]string{"equipmentId": "eq-1"})
	c := testsupport.NewItem(t, store, scope, queue.TypeEquipmentNote, map[string]string{"equipmentId": "eq-1"})

	b.Status = queue.StatusFailed
	b.RetryCount = 5
	b.LastError = "boom"
	if err := store.Update(ctx, b); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	c.Status = queue.StatusProcessing
	if err := store.Update(ctx, c); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	stats, err := store.Stats(ctx, scope)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[queue.StatusPending] != 1 || stats[queue.StatusFailed] != 1 || stats[queue.StatusProcessing] != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}

	if n, err := store.ResetProcessing(ctx, scope); err != nil || n != 1 {
		t.Fatalf("ResetProcessing = %d, %v", n, err)
	}
	if n, err := store.RetryFailed(ctx, scope, b.ID); err != nil || n != 1 {
		t.Fatalf("RetryFailed = %d, %v", n, err)
	}
	got, err := store.GetByID(ctx, scope, b.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != queue.StatusPending || got.RetryCount != 0 || got.LastError != "" {
		t.Fatalf("unexpected retried item: %#v", got)
	}
	if got.Seq != b.Seq {
		t.Fatalf("seq changed on update: %d vs %d", got.Seq, b.Seq)
	}

	if removed, err := store.Remove(ctx, scope, a.ID); err != nil || !removed {
		t.Fatalf("Remove = %v, %v", removed, err)
	}
	if removed, err := store.Remove(ctx, scope, a.ID); err != nil || removed {
		t.Fatalf("second Remove = %v, %v", removed, err)
	}
	if count, err := store.Count(ctx, scope); err != nil || count != 2 {
		t.Fatalf("Count = %d, %v", count, err)
	}
	if cleared, err := store.Clear(ctx, scope); err != nil || cleared != 2 {
		t.Fatalf("Clear = %d, %v", cleared, err)
	}
}

func TestInsertRejectsDuplicateID(t *testing.T) {
	store := openStore(t)
	item := testsupport.NewItem(t, store, scope, queue.TypePMUpdate, map[string]string{"id": "pm-1"})
	if err := store.Insert(context.Background(), item.Clone()); !errors.Is(err, queue.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestOpenPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := badger.Open(dir, logging.NewNop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	first := testsupport.NewItem(t, store, scope, queue.TypeWorkOrderCreate, map[string]string{"title": "Pump"})
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := badger.Open(dir, logging.NewNop())
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })
	second := testsupport.NewItem(t, reopened, scope, queue.TypeWorkOrderNote, map[string]string{"workOrderId": first.ID})
	if second.Seq <= first.Seq {
		t.Fatalf("sequence went backwards: %d then %d", first.Seq, second.Seq)
	}

	items, err := reopened.List(context.Background(), scope)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 2 || items[0].ID != first.ID {
		t.Fatalf("unexpected items after reopen: %#v", items)
	}
}

func TestUpdateAfterRemoveReportsNotFound(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	item := testsupport.NewItem(t, store, scope, queue.TypeEquipmentNote, map[string]string{"equipmentId": "eq-1"})

	if removed, err := store.Remove(ctx, scope, item.ID); err != nil || !removed {
		t.Fatalf("Remove = %v, %v", removed, err)
	}
	item.Status = queue.StatusProcessing
	if err := store.Update(ctx, item); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOpenRecoversFromCorruptDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "q")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "MANIFEST"), []byte("not a badger manifest"), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	store, err := badger.Open(dir, logging.NewNop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	count, err := store.Count(context.Background(), scope)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty queue, got %d", count)
	}
	testsupport.NewItem(t, store, scope, queue.TypeWorkOrderNote, map[string]string{"workOrderId": "wo-1"})

	matches, err := filepath.Glob(dir + ".corrupt-*")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected quarantined directory, found %v", matches)
	}
	if _, err := os.Stat(filepath.Join(matches[0], "MANIFEST")); err != nil {
		t.Fatalf("quarantined directory should keep the bad manifest: %v", err)
	}
}
