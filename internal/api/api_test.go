package api_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"equipqr/internal/api"
	"equipqr/internal/queue"
)

func TestQueueItemRoundTripKeepsMergeFields(t *testing.T) {
	ts := time.Date(2026, 3, 1, 9, 30, 0, 123000000, time.UTC)
	next := ts.Add(4 * time.Second)
	item := &queue.Item{
		ID:             "q-1",
		Seq:            7,
		Type:           queue.TypeWorkOrderNote,
		Payload:        []byte(`{"id":"q-1","workOrderId":"wo-1","content":"x"}`),
		OrganizationID: "org-1",
		UserID:         "u-1",
		Timestamp:      ts,
		RetryCount:     2,
		MaxRetries:     5,
		Status:         queue.StatusPending,
		NextAttemptAt:  &next,
		LastError:      " boom ",
	}

	dto := api.FromQueueItem(item)
	if dto.CreatedAt != "2026-03-01T09:30:00.123Z" || dto.LastError != "boom" {
		t.Fatalf("unexpected dto: %+v", dto)
	}

	back := dto.ToQueueItem()
	if back.ID != item.ID || back.Seq != 7 || back.Type != item.Type || back.Status != item.Status {
		t.Fatalf("identity fields lost: %+v", back)
	}
	if !back.Timestamp.Equal(ts) || back.NextAttemptAt == nil || !back.NextAttemptAt.Equal(next) {
		t.Fatalf("timestamps lost: %+v", back)
	}
	if string(back.Payload) != string(item.Payload) {
		t.Fatalf("payload = %s", back.Payload)
	}
}

func TestErrorMappingRoundTrip(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("enqueue: %w", queue.ErrPayloadTooLarge), http.StatusRequestEntityTooLarge},
		{fmt.Errorf("enqueue: %w", queue.ErrQueueFull), http.StatusTooManyRequests},
		{fmt.Errorf("enqueue: %w", queue.ErrInvalidPayload), http.StatusBadRequest},
		{fmt.Errorf("dismiss: %w", queue.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("sync: %w", queue.ErrNetworkUnavailable), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		status, body := api.NewErrorResponse(tc.err)
		if status != tc.status {
			t.Fatalf("%v: status = %d, want %d", tc.err, status, tc.status)
		}
		decoded := api.DecodeError(status, body)
		if !errors.Is(decoded, errors.Unwrap(tc.err)) {
			t.Fatalf("decoded error %v should match %v", decoded, errors.Unwrap(tc.err))
		}
	}

	status, body := api.NewErrorResponse(errors.New("disk on fire"))
	if status != http.StatusInternalServerError || body.Kind != api.KindInternal {
		t.Fatalf("unexpected mapping: %d %+v", status, body)
	}
	if errors.Unwrap(api.DecodeError(status, body)) != nil {
		t.Fatal("internal errors should not unwrap to a queue sentinel")
	}
}
