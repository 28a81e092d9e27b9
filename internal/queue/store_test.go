package queue_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"equipqr/internal/logging"
	"equipqr/internal/queue"
	"equipqr/internal/testsupport"
)

type notePayload struct {
	WorkOrderID string `json:"workOrderId"`
	Content     string `json:"content"`
}

func TestInsertAssignsSequenceAndRoundTrips(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	scope := testsupport.Scope(cfg)

	first := testsupport.NewItem(t, store, scope, queue.TypeWorkOrderNote, notePayload{WorkOrderID: "wo-1", Content: "a"})
	second := testsupport.NewItem(t, store, scope, queue.TypeWorkOrderNote, notePayload{WorkOrderID: "wo-1", Content: "b"})
	if first.Seq == 0 || second.Seq <= first.Seq {
		t.Fatalf("expected increasing sequence numbers, got %d then %d", first.Seq, second.Seq)
	}

	fetched, err := store.GetByID(context.Background(), scope, first.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Type != queue.TypeWorkOrderNote || fetched.Status != queue.StatusPending {
		t.Fatalf("unexpected fetched item: %#v", fetched)
	}
	if !strings.Contains(string(fetched.Payload), `"wo-1"`) {
		t.Fatalf("payload not preserved: %s", fetched.Payload)
	}
	if fetched.PayloadSizeBytes != len(fetched.Payload) {
		t.Fatalf("payload size = %d, want %d", fetched.PayloadSizeBytes, len(fetched.Payload))
	}
	if fetched.MaxRetries != 5 {
		t.Fatalf("max retries = %d, want 5", fetched.MaxRetries)
	}
}

func TestInsertRejectsDuplicateID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	scope := testsupport.Scope(cfg)

	item := testsupport.NewItem(t, store, scope, queue.TypeEquipmentNote, map[string]string{"equipmentId": "eq-1"})
	dup := item.Clone()
	if err := store.Insert(context.Background(), dup); !errors.Is(err, queue.ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestInsertValidatesItem(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	scope := testsupport.Scope(cfg)

	cases := []struct {
		name string
		item *queue.Item
	}{
		{"missing id", &queue.Item{Type: queue.TypeWorkOrderNote, Payload: []byte(`{}`), OrganizationID: scope.OrganizationID, UserID: scope.UserID}},
		{"missing scope", &queue.Item{ID: "a", Type: queue.TypeWorkOrderNote, Payload: []byte(`{}`)}},
		{"unknown type", &queue.Item{ID: "b", Type: "team_create", Payload: []byte(`{}`), OrganizationID: scope.OrganizationID, UserID: scope.UserID}},
		{"bad payload", &queue.Item{ID: "c", Type: queue.TypeWorkOrderNote, Payload: []byte(`{`), OrganizationID: scope.OrganizationID, UserID: scope.UserID}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := store.Insert(context.Background(), tc.item); err == nil {
				t.Fatal("expected insert to fail")
			}
		})
	}
}

func TestListIsFIFOAndScoped(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	scope := testsupport.Scope(cfg)
	other := queue.Scope{OrganizationID: "org-other", UserID: scope.UserID}

	var want []string
	for i := 0; i < 5; i++ {
		item := testsupport.NewItem(t, store, scope, queue.TypeWorkOrderNote, notePayload{WorkOrderID: "wo-1"})
		want = append(want, item.ID)
		testsupport.NewItem(t, store, other, queue.TypeWorkOrderNote, notePayload{WorkOrderID: "wo-1"})
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

func TestUpdateAndStatusFilters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	scope := testsupport.Scope(cfg)
	ctx := context.Background()

	pending := testsupport.NewItem(t, store, scope, queue.TypeWorkOrderUpdate, map[string]string{"id": "wo-1"})
	failed := testsupport.NewItem(t, store, scope, queue.TypeWorkOrderUpdate, map[string]string{"id": "wo-2"})

	next := time.Now().Add(time.Minute).UTC()
	failed.Status = queue.StatusFailed
	failed.RetryCount = 5
	failed.LastError = "server said no"
	failed.NextAttemptAt = &next
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	items, err := store.List(ctx, scope, queue.StatusFailed)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 1 || items[0].ID != failed.ID {
		t.Fatalf("expected only failed item, got %#v", items)
	}
	got := items[0]
	if got.RetryCount != 5 || got.LastError != "server said no" || got.NextAttemptAt == nil {
		t.Fatalf("update not persisted: %#v", got)
	}

	stats, err := store.Stats(ctx, scope)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[queue.StatusPending] != 1 || stats[queue.StatusFailed] != 1 || stats.Total() != 2 {
		t.Fatalf("unexpected stats: %#v", stats)
	}

	missing := pending.Clone()
	missing.ID = "missing"
	if err := store.Update(ctx, missing); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRetryFailedResetsBudget(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	scope := testsupport.Scope(cfg)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		item := testsupport.NewItem(t, store, scope, queue.TypeEquipmentNote, map[string]string{"equipmentId": "eq-1"})
		item.Status = queue.StatusFailed
		item.RetryCount = item.MaxRetries
		item.LastError = "boom"
		if err := store.Update(ctx, item); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		ids = append(ids, item.ID)
	}

	updated, err := store.RetryFailed(ctx, scope, ids[0])
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if updated != 1 {
		t.Fatalf("expected 1 item reset, got %d", updated)
	}
	item, err := store.GetByID(ctx, scope, ids[0])
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if item.Status != queue.StatusPending || item.RetryCount != 0 || item.LastError != "" || item.NextAttemptAt != nil {
		t.Fatalf("unexpected retried item: %#v", item)
	}

	updated, err = store.RetryFailed(ctx, scope)
	if err != nil {
		t.Fatalf("RetryFailed all failed: %v", err)
	}
	if updated != 2 {
		t.Fatalf("expected 2 items reset, got %d", updated)
	}
}

func TestResetProcessingKeepsRetryCount(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	scope := testsupport.Scope(cfg)
	ctx := context.Background()

	item := testsupport.NewItem(t, store, scope, queue.TypeWorkOrderCreate, map[string]string{"title": "Pump"})
	item.Status = queue.StatusProcessing
	item.RetryCount = 2
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	reset, err := store.ResetProcessing(ctx, scope)
	if err != nil {
		t.Fatalf("ResetProcessing failed: %v", err)
	}
	if reset != 1 {
		t.Fatalf("expected 1 reset, got %d", reset)
	}
	got, err := store.GetByID(ctx, scope, item.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != queue.StatusPending || got.RetryCount != 2 {
		t.Fatalf("unexpected item after reset: %#v", got)
	}
}

func TestRemoveClearAndCount(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	scope := testsupport.Scope(cfg)
	ctx := context.Background()

	a := testsupport.NewItem(t, store, scope, queue.TypePMUpdate, map[string]string{"id": "pm-1"})
	b := testsupport.NewItem(t, store, scope, queue.TypePMUpdate, map[string]string{"id": "pm-2"})
	b.Status = queue.StatusFailed
	if err := store.Update(ctx, b); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	testsupport.NewItem(t, store, scope, queue.TypePMUpdate, map[string]string{"id": "pm-3"})

	removed, err := store.Remove(ctx, scope, a.ID)
	if err != nil || !removed {
		t.Fatalf("Remove = %v, %v", removed, err)
	}
	removed, err = store.Remove(ctx, scope, a.ID)
	if err != nil || removed {
		t.Fatalf("second Remove = %v, %v", removed, err)
	}

	cleared, err := store.ClearFailed(ctx, scope)
	if err != nil || cleared != 1 {
		t.Fatalf("ClearFailed = %d, %v", cleared, err)
	}
	count, err := store.Count(ctx, scope)
	if err != nil || count != 1 {
		t.Fatalf("Count = %d, %v", count, err)
	}
	cleared, err = store.Clear(ctx, scope)
	if err != nil || cleared != 1 {
		t.Fatalf("Clear = %d, %v", cleared, err)
	}
}

func TestItemsSurviveReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	scope := testsupport.Scope(cfg)

	store, err := queue.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	item := testsupport.NewItem(t, store, scope, queue.TypeWorkOrderNote, notePayload{WorkOrderID: "wo-1"})
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	got, err := reopened.GetByID(context.Background(), scope, item.ID)
	if err != nil {
		t.Fatalf("GetByID after reopen: %v", err)
	}
	if got.Seq != item.Seq {
		t.Fatalf("seq = %d, want %d", got.Seq, item.Seq)
	}
}

func TestOpenRecoversFromCorruptDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	testsupport.WriteCorruptStore(t, cfg.QueueDBPath(), 8192)

	store := testsupport.MustOpenStore(t, cfg)
	count, err := store.Count(context.Background(), testsupport.Scope(cfg))
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty queue, got %d", count)
	}

	matches, err := filepath.Glob(cfg.QueueDBPath() + ".corrupt-*")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected quarantined database, found %v", matches)
	}
	if _, err := os.Stat(matches[0]); err != nil {
		t.Fatalf("stat quarantined file: %v", err)
	}
}

func TestCheckHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.NewItem(t, store, testsupport.Scope(cfg), queue.TypeWorkOrderNote, notePayload{WorkOrderID: "wo-1"})

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth failed: %v", err)
	}
	if !health.Exists || !health.Readable || !health.IntegrityCheck {
		t.Fatalf("unexpected health: %#v", health)
	}
	if health.TotalItems != 1 || health.SchemaVersion != 1 {
		t.Fatalf("unexpected health counts: %#v", health)
	}
}
