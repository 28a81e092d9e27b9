package daemonctl_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"equipqr/internal/api"
	"equipqr/internal/daemonctl"
	"equipqr/internal/queue"
	"equipqr/internal/testsupport"
)

func TestBaseURL(t *testing.T) {
	cases := map[string]string{
		"127.0.0.1:7489":        "http://127.0.0.1:7489",
		":7489":                 "http://127.0.0.1:7489",
		"0.0.0.0:7489":          "http://127.0.0.1:7489",
		"http://example.test:1": "http://example.test:1",
	}
	for bind, want := range cases {
		if got := daemonctl.BaseURL(bind); got != want {
			t.Fatalf("BaseURL(%q) = %q, want %q", bind, got, want)
		}
	}
}

func TestClientRequestsAndErrors(t *testing.T) {
	var gotAuth, gotQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/queue", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(api.QueueListResponse{Items: []api.QueueItem{{ID: "q-1", Status: "pending"}}})
		case http.MethodPost:
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "payload too large", Kind: api.KindPayloadTooLarge})
		case http.MethodDelete:
			_ = json.NewEncoder(w).Encode(api.RemoveResponse{Removed: 2})
		}
	})
	mux.HandleFunc("/api/queue/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "queue item not found", Kind: api.KindNotFound})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := daemonctl.NewWithURL(srv.URL, "secret")
	ctx := context.Background()

	items, err := client.List(ctx, queue.StatusPending, queue.StatusFailed)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].ID != "q-1" {
		t.Fatalf("unexpected items: %+v", items)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotQuery != "status=pending&status=failed" {
		t.Fatalf("query = %q", gotQuery)
	}

	_, err = client.Enqueue(ctx, api.EnqueueRequest{Type: queue.TypeWorkOrderNote, Payload: json.RawMessage(`{}`)})
	if !errors.Is(err, queue.ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge across the wire, got %v", err)
	}

	if err := client.Dismiss(ctx, "missing"); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	removed, err := client.ClearFailed(ctx)
	if err != nil || removed != 2 {
		t.Fatalf("ClearFailed = %d, %v", removed, err)
	}
	if gotQuery != "status=failed" {
		t.Fatalf("clear query = %q", gotQuery)
	}
}

func TestDialReportsNotRunning(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Daemon.APIBind = addr
	_, err := daemonctl.Dial(context.Background(), cfg, time.Second)
	if !daemonctl.IsNotRunning(err) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
}
