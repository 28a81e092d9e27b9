package domain_test

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"

	"equipqr/internal/domain"
	"equipqr/internal/queue"
)

func TestPrepareDefaultsIDsAndValidates(t *testing.T) {
	raw := []byte(`{"workOrderId":"wo-1","content":"  replaced filter  "}`)
	out, err := domain.Prepare("q-1", queue.TypeWorkOrderNote, raw)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	var note domain.WorkOrderNote
	if err := json.Unmarshal(out, &note); err != nil {
		t.Fatalf("decode prepared payload: %v", err)
	}
	if note.ID != "q-1" {
		t.Fatalf("note id = %q, want q-1", note.ID)
	}
	if note.Content != "replaced filter" {
		t.Fatalf("content not trimmed: %q", note.Content)
	}
}

func TestPrepareKeepsClientID(t *testing.T) {
	out, err := domain.Prepare("q-1", queue.TypeWorkOrderCreate, []byte(`{"id":"wo-9","equipmentId":"eq-1","title":"Leak"}`))
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	var wo domain.WorkOrderCreate
	if err := json.Unmarshal(out, &wo); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if wo.ID != "wo-9" || wo.Priority != "medium" {
		t.Fatalf("unexpected normalized payload: %#v", wo)
	}
}

func TestPrepareRejectsInvalidPayloads(t *testing.T) {
	cases := []struct {
		name     string
		itemType queue.ItemType
		raw      string
	}{
		{"malformed json", queue.TypeWorkOrderNote, `{"workOrderId":`},
		{"missing parent", queue.TypeWorkOrderNote, `{"content":"x"}`},
		{"empty content", queue.TypeEquipmentNote, `{"equipmentId":"eq-1","content":"   "}`},
		{"bad status", queue.TypeWorkOrderUpdate, `{"workOrderId":"wo-1","status":"done"}`},
		{"bad priority", queue.TypeWorkOrderCreate, `{"equipmentId":"eq-1","title":"x","priority":"urgent"}`},
		{"negative hours", queue.TypeEquipmentUpdate, `{"equipmentId":"eq-1","workingHours":-1}`},
		{"missing pm id", queue.TypePMUpdate, `{"workOrderId":"wo-1"}`},
		{"unknown type", queue.ItemType("team_create"), `{}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := domain.Prepare("q-1", tc.itemType, []byte(tc.raw))
			if !errors.Is(err, queue.ErrInvalidPayload) {
				t.Fatalf("expected ErrInvalidPayload, got %v", err)
			}
		})
	}
}

func TestBuildMutation(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	item := &queue.Item{
		ID:             "q-1",
		Type:           queue.TypeWorkOrderCreate,
		Payload:        []byte(`{"id":"q-1","equipmentId":"eq-1","title":"Leak","priority":"high","assigneeId":"u-2"}`),
		OrganizationID: "org-1",
		UserID:         "u-1",
		Timestamp:      ts,
	}
	m, err := domain.BuildMutation(item)
	if err != nil {
		t.Fatalf("BuildMutation failed: %v", err)
	}
	if m.Table != domain.TableWorkOrders || !m.Create || m.RowID != "q-1" {
		t.Fatalf("unexpected mutation: %#v", m)
	}
	if m.Row["organization_id"] != "org-1" || m.Row["created_by"] != "u-1" || m.Row["status"] != domain.WorkOrderAssigned {
		t.Fatalf("unexpected row: %#v", m.Row)
	}

	update := &queue.Item{
		ID:             "q-2",
		Type:           queue.TypeWorkOrderUpdate,
		Payload:        []byte(`{"workOrderId":"wo-1","status":"completed"}`),
		OrganizationID: "org-1",
		UserID:         "u-1",
		Timestamp:      ts,
	}
	m, err = domain.BuildMutation(update)
	if err != nil {
		t.Fatalf("BuildMutation failed: %v", err)
	}
	if m.Create || m.RowID != "wo-1" || len(m.Row) != 1 || m.Row["status"] != "completed" {
		t.Fatalf("unexpected update mutation: %#v", m)
	}
}

func TestCacheKeys(t *testing.T) {
	item := &queue.Item{
		Type:           queue.TypeWorkOrderNote,
		Payload:        []byte(`{"id":"n-1","workOrderId":"wo-1","content":"x"}`),
		OrganizationID: "org-1",
	}
	keys := domain.CacheKeys(item)
	if !slices.Contains(keys, domain.WorkOrderNotesKey("wo-1")) {
		t.Fatalf("expected notes key in %v", keys)
	}

	broken := &queue.Item{Type: queue.TypeEquipmentNote, Payload: []byte(`[]`), OrganizationID: "org-1"}
	keys = domain.CacheKeys(broken)
	if len(keys) != 1 || keys[0] != domain.EquipmentListKey("org-1") {
		t.Fatalf("expected fallback key, got %v", keys)
	}
}

func TestWorkOrderUpdateApply(t *testing.T) {
	status := domain.WorkOrderCompleted
	wo := domain.WorkOrder{ID: "wo-1", Title: "Leak", Status: domain.WorkOrderAssigned}
	domain.WorkOrderUpdate{WorkOrderID: "wo-1", Status: &status}.Apply(&wo)
	if wo.Status != domain.WorkOrderCompleted || wo.Title != "Leak" {
		t.Fatalf("unexpected work order after apply: %#v", wo)
	}
}
