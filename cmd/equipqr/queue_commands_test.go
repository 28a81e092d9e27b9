package main

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"equipqr/internal/connectivity"
	"equipqr/internal/daemon"
	"equipqr/internal/logging"
	"equipqr/internal/queue"
	"equipqr/internal/queueaccess"
	"equipqr/internal/testsupport"
)

func TestOfflineQueueLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, configPath, "--local", "note", "add", "--work-order", "wo-1", "-m", "replaced belt", "--hours", "1.5")
	if err != nil {
		t.Fatalf("note add: %v", err)
	}
	requireContains(t, out, "Queued work_order_note")
	requireContains(t, out, "offline with 1 item")

	out, _, err = runCLI(t, configPath, "--local", "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "work_order_note")
	requireContains(t, out, "Pending")

	out, _, err = runCLI(t, configPath, "--local", "queue", "status")
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	requireContains(t, out, "offline with 1 item")
	requireContains(t, out, "Source:  local")
	requireContains(t, out, "Online:  no")

	out, _, err = runCLI(t, configPath, "--local", "queue", "sync")
	if err != nil {
		t.Fatalf("queue sync: %v", err)
	}
	requireContains(t, out, "Offline: 1 item remain queued")

	out, _, err = runCLI(t, configPath, "--local", "queue", "list", "--json")
	if err != nil {
		t.Fatalf("queue list --json: %v", err)
	}
	var listed []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("decode list: %v\n%s", err, out)
	}
	if len(listed) != 1 || listed[0].ID == "" {
		t.Fatalf("expected one listed item, got %+v", listed)
	}

	out, _, err = runCLI(t, configPath, "--local", "queue", "dismiss", listed[0].ID)
	if err != nil {
		t.Fatalf("queue dismiss: %v", err)
	}
	requireContains(t, out, "Dismissed "+listed[0].ID)

	if _, _, err := runCLI(t, configPath, "--local", "queue", "dismiss", listed[0].ID); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found on second dismiss, got %v", err)
	}

	out, _, err = runCLI(t, configPath, "--local", "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}

func TestQueueClear(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	for _, id := range []string{"eq-1", "eq-2"} {
		if _, _, err := runCLI(t, configPath, "--local", "note", "add", "--equipment", id, "oil changed"); err != nil {
			t.Fatalf("note add: %v", err)
		}
	}

	out, _, err := runCLI(t, configPath, "--local", "queue", "clear")
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	requireContains(t, out, "Cleared 0 failed items")

	out, _, err = runCLI(t, configPath, "--local", "queue", "clear", "--all")
	if err != nil {
		t.Fatalf("queue clear --all: %v", err)
	}
	requireContains(t, out, "Cleared 2 items")

	out, _, err = runCLI(t, configPath, "--local", "queue", "list", "--json")
	if err != nil {
		t.Fatalf("queue list --json: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Fatalf("empty list should encode as [], got %q", out)
	}
}

func TestQueueSyncAgainstBackend(t *testing.T) {
	backend := newFakeBackend(t)
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(backend.server.URL))
	configPath := writeTestConfig(t, cfg)

	if _, _, err := runCLI(t, configPath, "--local", "note", "add", "-w", "wo-7", "-m", "tightened bolts"); err != nil {
		t.Fatalf("note add: %v", err)
	}
	out, _, err := runCLI(t, configPath, "--local", "workorder", "create", "--equipment", "eq-3", "--title", "Leaking valve", "--priority", "high", "--due", "2026-11-02")
	if err != nil {
		t.Fatalf("workorder create: %v", err)
	}
	requireContains(t, out, "Queued work_order_create")
	requireContains(t, out, "2 items waiting to sync")

	out, _, err = runCLI(t, configPath, "--local", "queue", "sync")
	if err != nil {
		t.Fatalf("queue sync: %v", err)
	}
	requireContains(t, out, "Synced 2, failed 0, 0 items remaining")

	if got := backend.insertCount("work_order_notes"); got != 1 {
		t.Fatalf("expected 1 note insert, got %d", got)
	}
	if got := backend.insertCount("work_orders"); got != 1 {
		t.Fatalf("expected 1 work order insert, got %d", got)
	}
}

func TestEnqueueRejectsBadInput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "note without target",
			args: []string{"note", "add", "-m", "hello"},
			want: "exactly one of --work-order or --equipment",
		},
		{
			name: "note with both targets",
			args: []string{"note", "add", "-w", "wo-1", "-e", "eq-1", "-m", "hello"},
			want: "exactly one of --work-order or --equipment",
		},
		{
			name: "empty note",
			args: []string{"note", "add", "-w", "wo-1"},
			want: "invalid change",
		},
		{
			name: "bad priority",
			args: []string{"workorder", "create", "--equipment", "eq-1", "--title", "x", "--priority", "urgent"},
			want: "invalid change",
		},
		{
			name: "bad due date",
			args: []string{"workorder", "create", "--equipment", "eq-1", "--title", "x", "--due", "tomorrow"},
			want: "use YYYY-MM-DD",
		},
		{
			name: "empty update",
			args: []string{"workorder", "update", "wo-1"},
			want: "nothing to update",
		},
		{
			name: "bad list status",
			args: []string{"queue", "list", "--status", "synced"},
			want: "unknown status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCLI(t, configPath, append([]string{"--local"}, tt.args...)...)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			requireContains(t, err.Error(), tt.want)
		})
	}

	out, _, err := runCLI(t, configPath, "--local", "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}

func TestWorkOrderUpdateQueuesChangedFieldsOnly(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := writeTestConfig(t, cfg)

	if _, _, err := runCLI(t, configPath, "--local", "workorder", "update", "wo-9", "--status", "completed"); err != nil {
		t.Fatalf("workorder update: %v", err)
	}

	store := testsupport.MustOpenStore(t, cfg)
	items, err := store.List(context.Background(), testsupport.Scope(cfg))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].Type != queue.TypeWorkOrderUpdate {
		t.Fatalf("expected one work order update, got %+v", items)
	}
	var payload map[string]any
	if err := json.Unmarshal(items[0].Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["status"] != "completed" || payload["workOrderId"] != "wo-9" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if _, ok := payload["title"]; ok {
		t.Fatalf("title should be omitted when not set: %v", payload)
	}
}

func TestCommandsUseRunningDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Daemon.APIToken = "cli-token"

	store, err := queueaccess.OpenStore(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	prober := connectivity.ProberFunc(func(context.Context) error { return queue.ErrNetworkUnavailable })
	local := queueaccess.NewLocal(cfg, store, testsupport.NewFakeDispatcher(), prober, logging.NewNop())
	d, err := daemon.New(cfg, local, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	cfg.Daemon.APIBind = d.APIAddress()
	configPath := writeTestConfig(t, cfg)

	out, _, err := runCLI(t, configPath, "note", "add", "-e", "eq-5", "-m", "checked pressure")
	if err != nil {
		t.Fatalf("note add: %v", err)
	}
	requireContains(t, out, "Queued equipment_note")

	waitFor(t, 2*time.Second, func() bool {
		count, err := store.Count(context.Background(), testsupport.Scope(cfg))
		return err == nil && count == 1
	})

	out, _, err = runCLI(t, configPath, "queue", "status")
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	requireContains(t, out, "Source:  daemon")
	requireContains(t, out, "offline with 1 item")

	out, _, err = runCLI(t, configPath, "queue", "sync")
	if err != nil {
		t.Fatalf("queue sync: %v", err)
	}
	requireContains(t, out, "Offline: 1 item remain queued")
}
