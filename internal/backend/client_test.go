package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"equipqr/internal/backend"
	"equipqr/internal/queue"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   map[string]any
}

type fakeBackend struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	response string
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Header: r.Header.Clone()}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&rec.Body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	status := f.status
	response := f.response
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if response != "" {
		_, _ = w.Write([]byte(response))
	}
}

func (f *fakeBackend) last(t *testing.T) recordedRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		t.Fatal("no requests recorded")
	}
	return f.requests[len(f.requests)-1]
}

func (f *fakeBackend) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newClient(t *testing.T, fake *fakeBackend, token string) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return backend.NewClient(srv.URL, "anon-key", token, 2*time.Second, backend.WithRateLimit(0, 1))
}

func noteItem() *queue.Item {
	return &queue.Item{
		ID:             "q-1",
		Type:           queue.TypeWorkOrderNote,
		Payload:        []byte(`{"id":"q-1","workOrderId":"wo-1","content":"Replaced belt","hoursWorked":1.5}`),
		OrganizationID: "org-1",
		UserID:         "u-1",
		Timestamp:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestDispatchInsertsNote(t *testing.T) {
	fake := &fakeBackend{status: http.StatusCreated}
	client := newClient(t, fake, "session-token")

	if err := client.Dispatch(context.Background(), noteItem()); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	req := fake.last(t)
	if req.Method != http.MethodPost || req.Path != "/rest/v1/work_order_notes" {
		t.Fatalf("unexpected request %s %s", req.Method, req.Path)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer session-token" {
		t.Fatalf("authorization = %q", got)
	}
	if got := req.Header.Get("apikey"); got != "anon-key" {
		t.Fatalf("apikey = %q", got)
	}
	if got := req.Header.Get("Prefer"); got != "resolution=ignore-duplicates,return=minimal" {
		t.Fatalf("prefer = %q", got)
	}
	if req.Body["id"] != "q-1" || req.Body["work_order_id"] != "wo-1" || req.Body["author_id"] != "u-1" {
		t.Fatalf("unexpected body: %#v", req.Body)
	}
}

func TestDispatchTreatsConflictOnInsertAsSynced(t *testing.T) {
	fake := &fakeBackend{status: http.StatusConflict, response: `{"message":"duplicate key"}`}
	client := newClient(t, fake, "")

	if err := client.Dispatch(context.Background(), noteItem()); err != nil {
		t.Fatalf("expected duplicate insert to count as success, got %v", err)
	}
	if got := fake.last(t).Header.Get("Authorization"); got != "" {
		t.Fatalf("expected no authorization header without a token, got %q", got)
	}
}

func TestDispatchPatchesUpdates(t *testing.T) {
	fake := &fakeBackend{status: http.StatusNoContent}
	client := newClient(t, fake, "")
	item := &queue.Item{
		ID:             "q-2",
		Type:           queue.TypeWorkOrderUpdate,
		Payload:        []byte(`{"workOrderId":"wo-7","status":"completed"}`),
		OrganizationID: "org-1",
		UserID:         "u-1",
		Timestamp:      time.Now(),
	}

	if err := client.Dispatch(context.Background(), item); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	req := fake.last(t)
	if req.Method != http.MethodPatch || req.Path != "/rest/v1/work_orders" {
		t.Fatalf("unexpected request %s %s", req.Method, req.Path)
	}
	if req.Query != "id=eq.wo-7" {
		t.Fatalf("query = %q", req.Query)
	}
	if req.Body["status"] != "completed" || len(req.Body) != 1 {
		t.Fatalf("unexpected body: %#v", req.Body)
	}
}

func TestDispatchSkipsEmptyUpdate(t *testing.T) {
	fake := &fakeBackend{}
	client := newClient(t, fake, "")
	item := &queue.Item{
		ID:        "q-3",
		Type:      queue.TypeEquipmentUpdate,
		Payload:   []byte(`{"equipmentId":"eq-1"}`),
		Timestamp: time.Now(),
	}
	if err := client.Dispatch(context.Background(), item); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if fake.count() != 0 {
		t.Fatalf("expected no request for an empty update, got %d", fake.count())
	}
}

func TestDispatchClassifiesFailures(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		transient bool
	}{
		{"server error", http.StatusBadGateway, true},
		{"rate limited", http.StatusTooManyRequests, true},
		{"expired session", http.StatusUnauthorized, true},
		{"rejected row", http.StatusBadRequest, false},
		{"forbidden", http.StatusForbidden, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeBackend{status: tc.status, response: `{"message":"nope"}`}
			client := newClient(t, fake, "")
			err := client.Dispatch(context.Background(), noteItem())
			if err == nil {
				t.Fatal("expected error")
			}
			var apiErr *backend.APIError
			if !errors.As(err, &apiErr) || apiErr.StatusCode != tc.status {
				t.Fatalf("expected APIError with status %d, got %v", tc.status, err)
			}
			if queue.IsPermanent(err) == tc.transient {
				t.Fatalf("IsPermanent = %v, want %v", queue.IsPermanent(err), !tc.transient)
			}
		})
	}
}

func TestDispatchReportsNetworkUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := backend.NewClient(url, "", "", time.Second)
	err := client.Dispatch(context.Background(), noteItem())
	if !errors.Is(err, queue.ErrNetworkUnavailable) {
		t.Fatalf("expected ErrNetworkUnavailable, got %v", err)
	}
	if !backend.IsNetworkError(err) {
		t.Fatal("IsNetworkError should report true")
	}
}

func TestDispatchRejectsUnknownType(t *testing.T) {
	client := newClient(t, &fakeBackend{}, "")
	err := client.Dispatch(context.Background(), &queue.Item{ID: "q", Type: queue.ItemType("bogus"), Payload: []byte(`{}`)})
	if !errors.Is(err, queue.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestListWorkOrdersFilters(t *testing.T) {
	fake := &fakeBackend{response: `[{"id":"wo-1","organization_id":"org-1","equipment_id":"eq-1","title":"Leak","status":"submitted","priority":"high","created_date":"2026-03-01T09:00:00Z"}]`}
	client := newClient(t, fake, "")

	orders, err := client.ListWorkOrders(context.Background(), "org-1", "eq-1")
	if err != nil {
		t.Fatalf("ListWorkOrders failed: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != "wo-1" || orders[0].CreatedAt.IsZero() {
		t.Fatalf("unexpected orders: %#v", orders)
	}
	req := fake.last(t)
	if req.Path != "/rest/v1/work_orders" {
		t.Fatalf("path = %q", req.Path)
	}
	want := "equipment_id=eq.eq-1&order=created_date.desc&organization_id=eq.org-1"
	if req.Query != want {
		t.Fatalf("query = %q, want %q", req.Query, want)
	}
}

func TestListNotes(t *testing.T) {
	fake := &fakeBackend{response: `[{"id":"n-1","equipment_id":"eq-1","content":"Oil change","author_id":"u-1","is_private":false,"created_at":"2026-03-01T09:00:00Z"}]`}
	client := newClient(t, fake, "")

	notes, err := client.ListEquipmentNotes(context.Background(), "eq-1")
	if err != nil {
		t.Fatalf("ListEquipmentNotes failed: %v", err)
	}
	if len(notes) != 1 || notes[0].Content != "Oil change" {
		t.Fatalf("unexpected notes: %#v", notes)
	}
	if fake.last(t).Path != "/rest/v1/equipment_notes" {
		t.Fatalf("unexpected path %q", fake.last(t).Path)
	}
}

func TestPing(t *testing.T) {
	fake := &fakeBackend{status: http.StatusUnauthorized}
	client := newClient(t, fake, "")
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("auth failure still proves connectivity, got %v", err)
	}

	fake.mu.Lock()
	fake.status = http.StatusServiceUnavailable
	fake.mu.Unlock()
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error on 503")
	}
}
