// Package queueaccess gives the CLI one queue API whether or not the daemon
// is running. When a daemon answers, requests go through its HTTP API so the
// daemon stays the only process syncing the store; otherwise the CLI opens
// the store and drives an offline manager directly.
package queueaccess

import (
	"context"
	"fmt"

	"equipqr/internal/api"
	"equipqr/internal/daemonctl"
	"equipqr/internal/offline"
	"equipqr/internal/queue"
)

// Access provides queue operations regardless of daemon or direct store backing.
type Access interface {
	Mode() string
	Status(ctx context.Context) (offline.Status, error)
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Item, error)
	Enqueue(ctx context.Context, req offline.EnqueueRequest) (*queue.Item, error)
	Sync(ctx context.Context) (offline.SyncResult, error)
	Retry(ctx context.Context, ids ...string) (offline.SyncResult, error)
	Dismiss(ctx context.Context, id string) error
	ClearFailed(ctx context.Context) (int64, error)
	Clear(ctx context.Context) (int64, error)
}

// Access modes.
const (
	ModeDaemon = "daemon"
	ModeLocal  = "local"
)

// NewDaemonAccess returns an Access backed by the daemon HTTP API.
func NewDaemonAccess(client *daemonctl.Client) Access {
	return &daemonAccess{client: client}
}

type daemonAccess struct {
	client *daemonctl.Client
}

func (a *daemonAccess) Mode() string { return ModeDaemon }

func (a *daemonAccess) Status(ctx context.Context) (offline.Status, error) {
	resp, err := a.client.Status(ctx)
	if err != nil {
		return offline.Status{}, err
	}
	return resp.Sync, nil
}

func (a *daemonAccess) List(ctx context.Context, statuses ...queue.Status) ([]*queue.Item, error) {
	items, err := a.client.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return api.ToQueueItems(items), nil
}

func (a *daemonAccess) Enqueue(ctx context.Context, req offline.EnqueueRequest) (*queue.Item, error) {
	item, err := a.client.Enqueue(ctx, req)
	if err != nil {
		return nil, err
	}
	return item.ToQueueItem(), nil
}

func (a *daemonAccess) Sync(ctx context.Context) (offline.SyncResult, error) {
	return syncOutcome(a.client.Sync(ctx))
}

func (a *daemonAccess) Retry(ctx context.Context, ids ...string) (offline.SyncResult, error) {
	return syncOutcome(a.client.Retry(ctx, ids...))
}

func syncOutcome(resp api.SyncResponse, err error) (offline.SyncResult, error) {
	if err != nil {
		return offline.SyncResult{}, err
	}
	if resp.Offline {
		return resp.Result, fmt.Errorf("daemon sync: %w", queue.ErrNetworkUnavailable)
	}
	return resp.Result, nil
}

func (a *daemonAccess) Dismiss(ctx context.Context, id string) error {
	return a.client.Dismiss(ctx, id)
}

func (a *daemonAccess) ClearFailed(ctx context.Context) (int64, error) {
	return a.client.ClearFailed(ctx)
}

func (a *daemonAccess) Clear(ctx context.Context) (int64, error) {
	return a.client.Clear(ctx)
}
