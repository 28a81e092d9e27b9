package api

import (
	"strings"
	"time"

	"equipqr/internal/queue"
)

// FromQueueItem converts a queue item into its API representation.
func FromQueueItem(item *queue.Item) QueueItem {
	if item == nil {
		return QueueItem{}
	}
	dto := QueueItem{
		ID:               item.ID,
		Seq:              item.Seq,
		Type:             string(item.Type),
		Status:           string(item.Status),
		OrganizationID:   item.OrganizationID,
		UserID:           item.UserID,
		RetryCount:       item.RetryCount,
		MaxRetries:       item.MaxRetries,
		PayloadSizeBytes: item.PayloadSizeBytes,
		Payload:          item.Payload,
		LastError:        strings.TrimSpace(item.LastError),
		CreatedAt:        formatTime(item.Timestamp),
		UpdatedAt:        formatTime(item.UpdatedAt),
	}
	if item.NextAttemptAt != nil {
		dto.NextAttemptAt = formatTime(*item.NextAttemptAt)
	}
	return dto
}

// FromQueueItems converts a slice, preserving order.
func FromQueueItems(items []*queue.Item) []QueueItem {
	out := make([]QueueItem, 0, len(items))
	for _, item := range items {
		out = append(out, FromQueueItem(item))
	}
	return out
}

// ToQueueItem converts an API item back into a queue item so clients can feed
// daemon snapshots to the merge layer. Unparseable timestamps are left zero.
func (q QueueItem) ToQueueItem() *queue.Item {
	item := &queue.Item{
		ID:               q.ID,
		Seq:              q.Seq,
		Type:             queue.ItemType(q.Type),
		Status:           queue.Status(q.Status),
		OrganizationID:   q.OrganizationID,
		UserID:           q.UserID,
		RetryCount:       q.RetryCount,
		MaxRetries:       q.MaxRetries,
		PayloadSizeBytes: q.PayloadSizeBytes,
		Payload:          q.Payload,
		LastError:        q.LastError,
		Timestamp:        parseTime(q.CreatedAt),
		UpdatedAt:        parseTime(q.UpdatedAt),
	}
	if next := parseTime(q.NextAttemptAt); !next.IsZero() {
		item.NextAttemptAt = &next
	}
	return item
}

// ToQueueItems converts a slice, preserving order.
func ToQueueItems(items []QueueItem) []*queue.Item {
	out := make([]*queue.Item, 0, len(items))
	for _, item := range items {
		out = append(out, item.ToQueueItem())
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func parseTime(value string) time.Time {
	if strings.TrimSpace(value) == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
