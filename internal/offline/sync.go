package offline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"equipqr/internal/logging"
	"equipqr/internal/queue"
)

// SyncResult summarizes one sync pass. Failed counts attempts that failed in
// the pass, whether the item was rescheduled or parked as failed. Remaining is
// the number of items still stored in the scope afterwards.
type SyncResult struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Remaining int `json:"remaining"`
}

// SyncNow replays due pending items in FIFO order. When offline it returns
// ErrNetworkUnavailable without attempting anything. Losing connectivity
// part way through halts the pass, leaves the current item pending with its
// retry budget intact, and also returns ErrNetworkUnavailable alongside the
// partial result.
func (m *Manager) SyncNow(ctx context.Context) (SyncResult, error) {
	return m.syncPass(ctx, nil)
}

// RetryFailed returns failed items (all of them, or only ids) to pending with
// a fresh retry budget and syncs when online.
func (m *Manager) RetryFailed(ctx context.Context, ids ...string) (SyncResult, error) {
	reset, err := m.store.RetryFailed(ctx, m.scope, ids...)
	if err != nil {
		return SyncResult{}, err
	}
	if reset > 0 {
		m.logger.Info("requeued failed changes", logging.Int64("count", reset))
		m.publish(ctx, Update{Reason: ReasonRetry})
	}
	if !m.Online() {
		remaining, err := m.store.Count(ctx, m.scope)
		if err != nil {
			return SyncResult{}, err
		}
		return SyncResult{Remaining: remaining}, nil
	}
	return m.SyncNow(ctx)
}

func (m *Manager) syncPass(ctx context.Context, onAcquire func()) (SyncResult, error) {
	if !m.Online() {
		if onAcquire != nil {
			onAcquire()
		}
		remaining, err := m.store.Count(ctx, m.scope)
		if err != nil {
			return SyncResult{}, err
		}
		return SyncResult{Remaining: remaining}, fmt.Errorf("sync skipped: %w", queue.ErrNetworkUnavailable)
	}

	m.syncMu.Lock()
	defer m.syncMu.Unlock()
	if onAcquire != nil {
		onAcquire()
	}

	items, err := m.store.List(ctx, m.scope, queue.StatusPending)
	if err != nil {
		return SyncResult{}, err
	}
	if len(items) == 0 {
		remaining, err := m.store.Count(ctx, m.scope)
		if err != nil {
			return SyncResult{}, err
		}
		return SyncResult{Remaining: remaining}, nil
	}

	m.setSyncing(true)
	m.publish(ctx, Update{Reason: ReasonSyncStarted})
	start := m.now()

	var result SyncResult
	var passErr error
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			passErr = err
			break
		}
		if !item.Due(m.now()) {
			continue
		}
		if !m.Online() {
			passErr = fmt.Errorf("sync halted: %w", queue.ErrNetworkUnavailable)
			break
		}

		outcome, err := m.attempt(ctx, item)
		if err != nil {
			passErr = err
			break
		}
		switch outcome {
		case outcomeSkipped:
			continue
		case outcomeSynced:
			result.Succeeded++
		case outcomeRetry, outcomeFailed:
			result.Failed++
		case outcomeHalted:
			passErr = fmt.Errorf("sync halted: %w", queue.ErrNetworkUnavailable)
		}
		if passErr != nil {
			break
		}
	}

	// Bookkeeping must land even when ctx was cancelled mid-pass.
	bookCtx := context.WithoutCancel(ctx)
	remaining, err := m.store.Count(bookCtx, m.scope)
	if err != nil && passErr == nil {
		passErr = err
	}
	result.Remaining = remaining

	m.finishPass(bookCtx, result, m.now().Sub(start))
	if passErr == nil {
		m.scheduleRetry(bookCtx)
	}
	return result, passErr
}

// scheduleRetry arms one timer for the earliest backoff gate among pending
// items so gated retries run when they fall due.
func (m *Manager) scheduleRetry(ctx context.Context) {
	items, err := m.store.List(ctx, m.scope, queue.StatusPending)
	if err != nil {
		m.logger.Debug("retry timer not armed", logging.Error(err))
		return
	}
	var next time.Time
	for _, item := range items {
		if item.NextAttemptAt == nil {
			continue
		}
		if next.IsZero() || item.NextAttemptAt.Before(next) {
			next = *item.NextAttemptAt
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	if next.IsZero() || !m.running || !m.online {
		return
	}
	m.retryTimer = time.AfterFunc(max(next.Sub(m.now()), 0), m.kick)
}

type attemptOutcome int

const (
	outcomeSynced attemptOutcome = iota
	outcomeRetry
	outcomeFailed
	outcomeHalted
	// outcomeSkipped means the item was removed (dismissed) while the pass ran.
	outcomeSkipped
)

// attempt dispatches one item and persists its next state. A non-nil error
// means the store could not record the outcome.
func (m *Manager) attempt(ctx context.Context, item *queue.Item) (attemptOutcome, error) {
	logger := m.itemLogger(item)

	item.Status = queue.StatusProcessing
	if err := m.store.Update(ctx, item); err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			logger.Debug("change dismissed before sync; skipping")
			return outcomeSkipped, nil
		}
		return outcomeHalted, fmt.Errorf("mark %s processing: %w", item.ID, err)
	}
	m.publish(ctx, Update{Reason: ReasonItem, ItemID: item.ID, ItemStatus: queue.StatusProcessing})

	dispatchErr := m.dispatcher.Dispatch(ctx, item)
	bookCtx := context.WithoutCancel(ctx)

	switch {
	case dispatchErr == nil:
		if _, err := m.store.Remove(bookCtx, m.scope, item.ID); err != nil {
			return outcomeHalted, fmt.Errorf("remove synced item %s: %w", item.ID, err)
		}
		if m.invalidator != nil {
			m.invalidator.Invalidate(bookCtx, item)
		}
		logger.Info("change synced", logging.Int("retry_count", item.RetryCount))
		m.publish(bookCtx, Update{Reason: ReasonItem, ItemID: item.ID, ItemStatus: queue.StatusSynced})
		return outcomeSynced, nil

	case errors.Is(dispatchErr, queue.ErrNetworkUnavailable),
		errors.Is(dispatchErr, context.Canceled),
		errors.Is(dispatchErr, context.DeadlineExceeded) && ctx.Err() != nil:
		item.Status = queue.StatusPending
		if err := m.store.Update(bookCtx, item); err != nil && !errors.Is(err, queue.ErrNotFound) {
			return outcomeHalted, fmt.Errorf("return %s to pending: %w", item.ID, err)
		}
		logger.Info("sync interrupted; change stays queued", logging.Error(dispatchErr))
		if errors.Is(dispatchErr, queue.ErrNetworkUnavailable) {
			m.SetOnline(false)
		}
		m.publish(bookCtx, Update{Reason: ReasonItem, ItemID: item.ID, ItemStatus: queue.StatusPending})
		return outcomeHalted, nil
	}

	item.RetryCount++
	item.LastError = dispatchErr.Error()
	item.Status = queue.FailureStatus(dispatchErr, item.RetryCount, item.MaxRetries)
	if item.Status == queue.StatusPending {
		next := m.now().Add(m.policy.Backoff(item.RetryCount)).UTC()
		item.NextAttemptAt = &next
	} else {
		item.NextAttemptAt = nil
	}
	if err := m.store.Update(bookCtx, item); err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			logger.Debug("change dismissed during sync; dropping failed attempt", logging.Error(dispatchErr))
			return outcomeSkipped, nil
		}
		return outcomeHalted, fmt.Errorf("record failure for %s: %w", item.ID, err)
	}
	m.publish(bookCtx, Update{Reason: ReasonItem, ItemID: item.ID, ItemStatus: item.Status})

	if item.Status == queue.StatusFailed {
		logging.WarnWithContext(logger, "change failed to sync", "sync_item_failed",
			logging.Int("retry_count", item.RetryCount),
			logging.Bool("permanent", queue.IsPermanent(dispatchErr)),
			logging.Error(dispatchErr),
			logging.String(logging.FieldErrorHint, "review the change, then retry or dismiss it"),
			logging.String(logging.FieldImpact, "the change will not sync until retried"),
		)
		if err := m.notifier.NotifySyncFailed(bookCtx, string(item.Type), item.ID, item.LastError); err != nil {
			logger.Debug("failure notification failed", logging.Error(err))
		}
		return outcomeFailed, nil
	}

	logger.Info("sync attempt failed; will retry",
		logging.Int("retry_count", item.RetryCount),
		logging.Int("max_retries", item.MaxRetries),
		logging.Time("next_attempt_at", *item.NextAttemptAt),
		logging.Error(dispatchErr),
	)
	return outcomeRetry, nil
}

func (m *Manager) setSyncing(syncing bool) {
	m.mu.Lock()
	m.syncing = syncing
	m.mu.Unlock()
}

func (m *Manager) finishPass(ctx context.Context, result SyncResult, elapsed time.Duration) {
	m.mu.Lock()
	m.syncing = false
	m.lastSyncAt = m.now().UTC()
	res := result
	m.lastResult = &res
	m.mu.Unlock()

	m.logger.Info("sync pass complete",
		logging.Int("succeeded", result.Succeeded),
		logging.Int("failed", result.Failed),
		logging.Int("remaining", result.Remaining),
		logging.Duration("elapsed", elapsed),
	)
	if result.Succeeded+result.Failed > 0 {
		if err := m.notifier.NotifySyncCompleted(ctx, result.Succeeded, result.Failed, result.Remaining, elapsed); err != nil {
			m.logger.Debug("sync summary notification failed", logging.Error(err))
		}
	}
	m.publish(ctx, Update{Reason: ReasonSyncFinished})
}
