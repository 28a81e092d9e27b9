package cache_test

import (
	"context"
	"errors"
	"testing"

	"equipqr/internal/cache"
	"equipqr/internal/domain"
	"equipqr/internal/queue"
)

func TestInvalidateMarksAffectedKeysStale(t *testing.T) {
	c := cache.New()
	c.Put(domain.WorkOrderNotesKey("wo-1"), []domain.Note{{ID: "n-1"}})
	c.Put(domain.WorkOrderNotesKey("wo-2"), []domain.Note{{ID: "n-2"}})

	item := &queue.Item{
		Type:           queue.TypeWorkOrderNote,
		Payload:        []byte(`{"id":"n-3","workOrderId":"wo-1","content":"x"}`),
		OrganizationID: "org-1",
	}
	c.Invalidate(context.Background(), item)

	if !c.IsStale(domain.WorkOrderNotesKey("wo-1")) {
		t.Fatal("expected wo-1 notes to be stale")
	}
	if c.IsStale(domain.WorkOrderNotesKey("wo-2")) {
		t.Fatal("expected wo-2 notes to stay fresh")
	}
	notes, ok := cache.Get[[]domain.Note](c, domain.WorkOrderNotesKey("wo-1"))
	if !ok || len(notes) != 1 {
		t.Fatalf("stale entries must still be readable, got %v %v", notes, ok)
	}
}

func TestLoadFetchesOnlyWhenStale(t *testing.T) {
	c := cache.New()
	calls := 0
	fetch := func(context.Context) (any, error) {
		calls++
		return []domain.Equipment{{ID: "eq-1", Name: "Forklift"}}, nil
	}
	key := domain.EquipmentListKey("org-1")

	if _, err := c.Load(context.Background(), key, fetch); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := c.Load(context.Background(), key, fetch); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one fetch, got %d", calls)
	}

	c.MarkStale("equipment:")
	failing := func(context.Context) (any, error) { return nil, errors.New("offline") }
	value, err := c.Load(context.Background(), key, failing)
	if err != nil {
		t.Fatalf("expected stale value fallback, got %v", err)
	}
	if list, ok := value.([]domain.Equipment); !ok || len(list) != 1 {
		t.Fatalf("unexpected fallback value: %#v", value)
	}
}

func TestNameLookups(t *testing.T) {
	c := cache.New()
	c.RememberEquipment([]domain.Equipment{{ID: "eq-1", Name: "Forklift"}, {ID: "eq-2"}})
	c.RememberUser("u-1", "Dana")

	if name, ok := c.EquipmentName("eq-1"); !ok || name != "Forklift" {
		t.Fatalf("EquipmentName = %q, %v", name, ok)
	}
	if _, ok := c.EquipmentName("eq-2"); ok {
		t.Fatal("expected unnamed equipment to be skipped")
	}
	if name, ok := c.UserName("u-1"); !ok || name != "Dana" {
		t.Fatalf("UserName = %q, %v", name, ok)
	}
}
