package offline

import (
	"context"
	"fmt"
	"time"

	"equipqr/internal/logging"
	"equipqr/internal/queue"
)

// Status is a point-in-time summary of the queue for one scope.
type Status struct {
	Online          bool        `json:"online"`
	Syncing         bool        `json:"syncing"`
	PendingCount    int         `json:"pendingCount"`
	ProcessingCount int         `json:"processingCount"`
	FailedCount     int         `json:"failedCount"`
	LastSyncAt      *time.Time  `json:"lastSyncAt,omitempty"`
	LastResult      *SyncResult `json:"lastResult,omitempty"`
	Banner          Banner      `json:"banner"`
}

// Total returns the number of stored items.
func (s Status) Total() int {
	return s.PendingCount + s.ProcessingCount + s.FailedCount
}

// BannerKind selects how a UI renders the sync banner.
type BannerKind string

const (
	BannerHidden  BannerKind = "hidden"
	BannerOffline BannerKind = "offline"
	BannerSyncing BannerKind = "syncing"
	BannerFailed  BannerKind = "failed"
	BannerPending BannerKind = "pending"
	BannerSynced  BannerKind = "synced"
)

// Banner is the user-facing summary of sync state.
type Banner struct {
	Kind    BannerKind `json:"kind"`
	Message string     `json:"message"`
	Count   int        `json:"count"`
}

// DeriveBanner picks the banner for s. Offline wins over everything, then an
// active sync, then failures awaiting the user, then items waiting on backoff.
func DeriveBanner(s Status) Banner {
	total := s.Total()
	switch {
	case !s.Online:
		if total == 0 {
			return Banner{Kind: BannerOffline, Message: "offline"}
		}
		return Banner{Kind: BannerOffline, Message: fmt.Sprintf("offline with %s", pluralItems(total)), Count: total}
	case s.Syncing:
		active := s.PendingCount + s.ProcessingCount
		return Banner{Kind: BannerSyncing, Message: fmt.Sprintf("syncing %s", pluralItems(active)), Count: active}
	case s.FailedCount > 0:
		return Banner{Kind: BannerFailed, Message: fmt.Sprintf("%s failed to sync", pluralItems(s.FailedCount)), Count: s.FailedCount}
	case s.PendingCount+s.ProcessingCount > 0:
		waiting := s.PendingCount + s.ProcessingCount
		return Banner{Kind: BannerPending, Message: fmt.Sprintf("%s waiting to sync", pluralItems(waiting)), Count: waiting}
	case s.LastResult != nil && s.LastResult.Succeeded > 0:
		return Banner{Kind: BannerSynced, Message: "all changes synced"}
	default:
		return Banner{Kind: BannerHidden}
	}
}

func pluralItems(n int) string {
	if n == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d items", n)
}

// Status reads the current queue counts and connectivity state.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	stats, err := m.store.Stats(ctx, m.scope)
	if err != nil {
		return Status{}, err
	}

	m.mu.RLock()
	status := Status{
		Online:          m.online,
		Syncing:         m.syncing,
		PendingCount:    stats[queue.StatusPending],
		ProcessingCount: stats[queue.StatusProcessing],
		FailedCount:     stats[queue.StatusFailed],
	}
	if !m.lastSyncAt.IsZero() {
		at := m.lastSyncAt
		status.LastSyncAt = &at
	}
	if m.lastResult != nil {
		res := *m.lastResult
		status.LastResult = &res
	}
	m.mu.RUnlock()

	status.Banner = DeriveBanner(status)
	return status, nil
}

// Banner derives the current banner. Store errors degrade to the
// connectivity-only banner.
func (m *Manager) Banner(ctx context.Context) Banner {
	status, err := m.Status(ctx)
	if err != nil {
		m.logger.Debug("banner status read failed", logging.Error(err))
		return DeriveBanner(Status{Online: m.Online()})
	}
	return status.Banner
}

// Update reasons.
const (
	ReasonStarted      = "started"
	ReasonEnqueued     = "enqueued"
	ReasonItem         = "item"
	ReasonDismissed    = "dismissed"
	ReasonRetry        = "retry"
	ReasonSyncStarted  = "sync_started"
	ReasonSyncFinished = "sync_finished"
	ReasonConnectivity = "connectivity"
)

// Update is delivered to subscribers on every observable change. ItemStatus
// is set for item transitions; StatusSynced only ever appears here because
// synced items are removed from the store.
type Update struct {
	Reason     string       `json:"reason"`
	ItemID     string       `json:"itemId,omitempty"`
	ItemStatus queue.Status `json:"itemStatus,omitempty"`
	Status     Status       `json:"status"`
}

const subscriberBuffer = 32

// Subscribe registers a listener. Slow subscribers lose the oldest updates
// rather than blocking the manager. Call the returned function to unsubscribe.
func (m *Manager) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, subscriberBuffer)
	m.subMu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = ch
	m.subMu.Unlock()

	return ch, func() {
		m.subMu.Lock()
		if existing, ok := m.subscribers[id]; ok {
			delete(m.subscribers, id)
			close(existing)
		}
		m.subMu.Unlock()
	}
}

func (m *Manager) publish(ctx context.Context, update Update) {
	m.subMu.Lock()
	empty := len(m.subscribers) == 0
	m.subMu.Unlock()
	if empty {
		return
	}

	status, err := m.Status(context.WithoutCancel(ctx))
	if err != nil {
		m.logger.Debug("status read for subscribers failed", logging.Error(err))
		status = Status{Online: m.Online()}
		status.Banner = DeriveBanner(status)
	}
	update.Status = status

	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subscribers {
		select {
		case ch <- update:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- update:
			default:
			}
		}
	}
}
