package queueaccess

import (
	"context"
	"fmt"
	"log/slog"

	"equipqr/internal/backend"
	"equipqr/internal/cache"
	"equipqr/internal/config"
	"equipqr/internal/connectivity"
	"equipqr/internal/logging"
	"equipqr/internal/notifications"
	"equipqr/internal/offline"
	"equipqr/internal/queue"
	queuebadger "equipqr/internal/queue/badger"
)

// OpenStore opens the queue repository selected by queue.store.
func OpenStore(cfg *config.Config, logger *slog.Logger) (queue.Repository, error) {
	switch cfg.Queue.Store {
	case config.StoreBadger:
		store, err := queuebadger.Open(cfg.QueueBadgerDir(), logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoreSQLite, "":
		store, err := queue.Open(cfg, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown queue store %q", cfg.Queue.Store)
	}
}

// Local wires a store, the backend client, the server cache, and an offline
// manager for the configured session. The daemon runs the same wiring.
type Local struct {
	Store   queue.Repository
	Backend *backend.Client
	Cache   *cache.Cache
	Manager *offline.Manager
	prober  connectivity.Prober
}

// OpenLocal opens the store and builds the manager. The manager starts
// offline; Sync probes the backend first.
func OpenLocal(cfg *config.Config, logger *slog.Logger) (*Local, error) {
	if err := cfg.ValidateSession(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	store, err := OpenStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open queue store: %w", err)
	}
	client := backend.New(cfg, logger)
	local := NewLocal(cfg, store, client, client, logger)
	local.Backend = client
	return local, nil
}

// NewLocal assembles a Local from already-open parts. Backend is left nil;
// OpenLocal sets it.
func NewLocal(cfg *config.Config, store queue.Repository, dispatcher offline.Dispatcher, prober connectivity.Prober, logger *slog.Logger) *Local {
	serverCache := cache.New()
	scope := queue.Scope{OrganizationID: cfg.Session.OrganizationID, UserID: cfg.Session.UserID}
	if cfg.Session.UserName != "" {
		serverCache.RememberUser(cfg.Session.UserID, cfg.Session.UserName)
	}
	manager := offline.NewManager(store, dispatcher, scope,
		offline.WithLogger(logger),
		offline.WithPolicy(offline.PolicyFromConfig(cfg)),
		offline.WithInvalidator(serverCache),
		offline.WithNotifier(notifications.NewService(cfg)),
	)
	return &Local{
		Store:   store,
		Cache:   serverCache,
		Manager: manager,
		prober:  prober,
	}
}

// Prober returns the connectivity prober.
func (l *Local) Prober() connectivity.Prober {
	return l.prober
}

// Close stops the manager and closes the store.
func (l *Local) Close() error {
	l.Manager.Stop()
	return l.Store.Close()
}

// Access returns the local Access view.
func (l *Local) Access() Access {
	return &localAccess{local: l}
}

type localAccess struct {
	local *Local
}

func (a *localAccess) Mode() string { return ModeLocal }

// refreshConnectivity probes once so commands reflect the current network.
func (a *localAccess) refreshConnectivity(ctx context.Context) {
	if a.local.prober == nil {
		return
	}
	a.local.Manager.SetOnline(a.local.prober.Ping(ctx) == nil)
}

func (a *localAccess) Status(ctx context.Context) (offline.Status, error) {
	a.refreshConnectivity(ctx)
	return a.local.Manager.Status(ctx)
}

func (a *localAccess) List(ctx context.Context, statuses ...queue.Status) ([]*queue.Item, error) {
	return a.local.Store.List(ctx, a.local.Manager.Scope(), statuses...)
}

func (a *localAccess) Enqueue(ctx context.Context, req offline.EnqueueRequest) (*queue.Item, error) {
	return a.local.Manager.Enqueue(ctx, req)
}

func (a *localAccess) Sync(ctx context.Context) (offline.SyncResult, error) {
	a.refreshConnectivity(ctx)
	return a.local.Manager.SyncNow(ctx)
}

func (a *localAccess) Retry(ctx context.Context, ids ...string) (offline.SyncResult, error) {
	a.refreshConnectivity(ctx)
	return a.local.Manager.RetryFailed(ctx, ids...)
}

func (a *localAccess) Dismiss(ctx context.Context, id string) error {
	return a.local.Manager.Dismiss(ctx, id)
}

func (a *localAccess) ClearFailed(ctx context.Context) (int64, error) {
	return a.local.Manager.ClearFailed(ctx)
}

func (a *localAccess) Clear(ctx context.Context) (int64, error) {
	return a.local.Manager.Clear(ctx)
}
