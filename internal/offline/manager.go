package offline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"equipqr/internal/domain"
	"equipqr/internal/logging"
	"equipqr/internal/notifications"
	"equipqr/internal/queue"
)

// Dispatcher replays one queue item against the backend.
type Dispatcher interface {
	Dispatch(ctx context.Context, item *queue.Item) error
}

// Invalidator marks server data touched by a synced item as stale.
type Invalidator interface {
	Invalidate(ctx context.Context, item *queue.Item)
}

// Preparer normalizes and validates a raw payload before it is queued.
type Preparer func(itemID string, itemType queue.ItemType, raw []byte) (json.RawMessage, error)

// Manager coordinates the offline queue for one scope.
type Manager struct {
	store       queue.Repository
	dispatcher  Dispatcher
	scope       queue.Scope
	policy      Policy
	logger      *slog.Logger
	invalidator Invalidator
	notifier    notifications.Service
	prepare     Preparer
	now         func() time.Time

	// syncMu serializes sync passes.
	syncMu sync.Mutex

	mu         sync.RWMutex
	online     bool
	running    bool
	syncing    bool
	bgQueued   bool
	runCtx     context.Context
	cancel     context.CancelFunc
	lastSyncAt time.Time
	lastResult *SyncResult
	retryTimer *time.Timer
	wg         sync.WaitGroup

	subMu       sync.Mutex
	subscribers map[int]chan Update
	nextSubID   int
}

// Option configures optional Manager behavior.
type Option func(*Manager)

// WithLogger sets the manager logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithPolicy overrides the retry and admission policy.
func WithPolicy(policy Policy) Option {
	return func(m *Manager) {
		m.policy = policy
	}
}

// WithInvalidator registers the cache invalidated after each successful sync.
func WithInvalidator(inv Invalidator) Option {
	return func(m *Manager) {
		m.invalidator = inv
	}
}

// WithNotifier sets the notification service.
func WithNotifier(notifier notifications.Service) Option {
	return func(m *Manager) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

// WithClock replaces time.Now (used in tests).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithPreparer replaces the payload preparer.
func WithPreparer(prepare Preparer) Option {
	return func(m *Manager) {
		if prepare != nil {
			m.prepare = prepare
		}
	}
}

// WithInitialOnline sets the connectivity state assumed before the first probe.
func WithInitialOnline(online bool) Option {
	return func(m *Manager) {
		m.online = online
	}
}

// NewManager constructs a manager for scope. The manager starts offline unless
// WithInitialOnline says otherwise.
func NewManager(store queue.Repository, dispatcher Dispatcher, scope queue.Scope, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		dispatcher:  dispatcher,
		scope:       scope,
		policy:      DefaultPolicy(),
		logger:      logging.NewNop(),
		notifier:    notifications.NewNoop(),
		prepare:     domain.Prepare,
		now:         time.Now,
		subscribers: make(map[int]chan Update),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.NewComponentLogger(m.logger, "offline").With(
		logging.String(logging.FieldOrganizationID, scope.OrganizationID),
		logging.String(logging.FieldUserID, scope.UserID),
	)
	return m
}

// Scope returns the scope the manager operates on.
func (m *Manager) Scope() queue.Scope {
	return m.scope
}

// Start resets items a crash left in processing, publishes the initial
// status, and kicks a sync when online.
func (m *Manager) Start(ctx context.Context) error {
	if !m.scope.Valid() {
		return errors.New("offline manager requires organization and user")
	}
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("offline manager already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.runCtx = runCtx
	m.cancel = cancel
	m.running = true
	m.bgQueued = false
	online := m.online
	m.mu.Unlock()

	reset, err := m.store.ResetProcessing(ctx, m.scope)
	if err != nil {
		m.Stop()
		return err
	}
	if reset > 0 {
		m.logger.Info("returned interrupted items to pending", logging.Int64("count", reset))
	}

	m.publish(ctx, Update{Reason: ReasonStarted})
	if online {
		m.kick()
	}
	return nil
}

// Stop cancels background syncs and waits for them to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	m.running = false
	m.cancel = nil
	m.runCtx = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Online reports the connectivity state last given to SetOnline.
func (m *Manager) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// SetOnline records a connectivity observation. Coming back online while
// running triggers a background sync.
func (m *Manager) SetOnline(online bool) {
	m.mu.Lock()
	previous := m.online
	m.online = online
	running := m.running
	m.mu.Unlock()

	if previous == online {
		return
	}
	if online {
		m.logger.Info("connectivity restored")
	} else {
		m.logger.Info("connectivity lost; queued changes will wait")
	}
	m.publish(context.Background(), Update{Reason: ReasonConnectivity})

	if online && running {
		m.background(func(ctx context.Context) {
			if count, err := m.store.Count(ctx, m.scope); err == nil && count > 0 {
				if err := m.notifier.NotifyBackOnline(ctx, count); err != nil {
					m.logger.Debug("back-online notification failed", logging.Error(err))
				}
			}
		})
		m.kick()
	}
}

// kick schedules one background sync pass. A pass already waiting to start
// will see any item queued before it acquires the sync lock, so at most one
// is scheduled at a time.
func (m *Manager) kick() {
	m.mu.Lock()
	if !m.running || m.bgQueued {
		m.mu.Unlock()
		return
	}
	m.bgQueued = true
	m.mu.Unlock()

	started := m.background(func(ctx context.Context) {
		_, err := m.syncPass(ctx, func() {
			m.mu.Lock()
			m.bgQueued = false
			m.mu.Unlock()
		})
		if err != nil && !errors.Is(err, queue.ErrNetworkUnavailable) && !errors.Is(err, context.Canceled) {
			m.logger.Warn("background sync failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "background_sync_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
		}
	})
	if !started {
		m.mu.Lock()
		m.bgQueued = false
		m.mu.Unlock()
	}
}

func (m *Manager) background(fn func(ctx context.Context)) bool {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return false
	}
	ctx := m.runCtx
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		fn(ctx)
	}()
	return true
}

func (m *Manager) itemLogger(item *queue.Item) *slog.Logger {
	ctx := logging.WithScope(context.Background(), item.OrganizationID, item.UserID)
	ctx = logging.WithItem(ctx, item.ID, string(item.Type))
	return logging.WithContext(ctx, m.logger)
}
