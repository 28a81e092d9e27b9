package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"equipqr/internal/logging"
	"equipqr/internal/queue"
)

// EnqueueRequest describes a mutation to queue. ID is optional; a UUID is
// assigned when empty.
type EnqueueRequest struct {
	ID      string          `json:"id,omitempty"`
	Type    queue.ItemType  `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Enqueue validates and persists a new pending item and returns it. Oversized
// payloads and a full queue are rejected without storing anything. When
// online the item is synced in the background.
func (m *Manager) Enqueue(ctx context.Context, req EnqueueRequest) (*queue.Item, error) {
	if !m.scope.Valid() {
		return nil, fmt.Errorf("%w: no active organization and user", queue.ErrInvalidPayload)
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}

	payload, err := m.prepare(id, req.Type, req.Payload)
	if err != nil {
		return nil, err
	}
	size := len(payload)
	if limit := m.policy.MaxPayloadBytes; limit > 0 && size > limit {
		return nil, fmt.Errorf("%w: %d bytes exceeds the %d byte limit", queue.ErrPayloadTooLarge, size, limit)
	}
	if limit := m.policy.MaxItems; limit > 0 {
		count, err := m.store.Count(ctx, m.scope)
		if err != nil {
			return nil, fmt.Errorf("count queued items: %w", err)
		}
		if count >= limit {
			return nil, fmt.Errorf("%w: %d items already queued", queue.ErrQueueFull, count)
		}
	}

	item := &queue.Item{
		ID:               id,
		Type:             req.Type,
		Payload:          payload,
		OrganizationID:   m.scope.OrganizationID,
		UserID:           m.scope.UserID,
		Timestamp:        m.now().UTC(),
		MaxRetries:       m.policy.MaxRetries,
		Status:           queue.StatusPending,
		PayloadSizeBytes: size,
	}
	if err := m.store.Insert(ctx, item); err != nil {
		return nil, err
	}

	m.itemLogger(item).Info("queued change for sync", logging.Int("payload_bytes", size))
	m.publish(ctx, Update{Reason: ReasonEnqueued, ItemID: item.ID, ItemStatus: item.Status})

	if m.Online() {
		m.kick()
	}
	return item.Clone(), nil
}

// Dismiss removes an item regardless of its status.
func (m *Manager) Dismiss(ctx context.Context, id string) error {
	removed, err := m.store.Remove(ctx, m.scope, id)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("dismiss %s: %w", id, queue.ErrNotFound)
	}
	m.logger.Info("dismissed queued change", logging.String(logging.FieldItemID, id))
	m.publish(ctx, Update{Reason: ReasonDismissed, ItemID: id})
	return nil
}

// ClearFailed removes every failed item in the scope.
func (m *Manager) ClearFailed(ctx context.Context) (int64, error) {
	removed, err := m.store.ClearFailed(ctx, m.scope)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		m.logger.Info("cleared failed changes", logging.Int64("count", removed))
		m.publish(ctx, Update{Reason: ReasonDismissed})
	}
	return removed, nil
}

// Clear removes every item in the scope, pending ones included.
func (m *Manager) Clear(ctx context.Context) (int64, error) {
	removed, err := m.store.Clear(ctx, m.scope)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		logging.WarnWithContext(m.logger, "discarded all queued changes", "queue_cleared",
			logging.Int64("count", removed),
			logging.String(logging.FieldErrorHint, "re-enter the changes if they were still needed"),
			logging.String(logging.FieldImpact, "unsynced changes were dropped"),
		)
		m.publish(ctx, Update{Reason: ReasonDismissed})
	}
	return removed, nil
}

// Snapshot returns every item in the scope in FIFO order.
func (m *Manager) Snapshot(ctx context.Context) ([]*queue.Item, error) {
	return m.store.List(ctx, m.scope)
}

// Item returns one item in the scope.
func (m *Manager) Item(ctx context.Context, id string) (*queue.Item, error) {
	return m.store.GetByID(ctx, m.scope, id)
}
