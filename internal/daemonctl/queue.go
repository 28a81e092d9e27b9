package daemonctl

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"equipqr/internal/api"
	"equipqr/internal/queue"
)

// Status returns the daemon status and banner.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var out api.DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &out)
	return out, err
}

// List returns queue items, optionally filtered by status.
func (c *Client) List(ctx context.Context, statuses ...queue.Status) ([]api.QueueItem, error) {
	path := "/api/queue"
	if len(statuses) > 0 {
		values := url.Values{}
		for _, status := range statuses {
			values.Add("status", string(status))
		}
		path += "?" + values.Encode()
	}
	var out api.QueueListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Get returns one queue item.
func (c *Client) Get(ctx context.Context, id string) (api.QueueItem, error) {
	var out api.QueueItemResponse
	err := c.do(ctx, http.MethodGet, "/api/queue/"+url.PathEscape(id), nil, &out)
	return out.Item, err
}

// Enqueue queues a mutation through the daemon.
func (c *Client) Enqueue(ctx context.Context, req api.EnqueueRequest) (api.QueueItem, error) {
	var out api.QueueItemResponse
	err := c.do(ctx, http.MethodPost, "/api/queue", req, &out)
	return out.Item, err
}

// Sync asks the daemon to run a sync pass now.
func (c *Client) Sync(ctx context.Context) (api.SyncResponse, error) {
	var out api.SyncResponse
	err := c.do(ctx, http.MethodPost, "/api/queue/sync", nil, &out)
	return out, err
}

// Retry requeues failed items (all when ids is empty) and syncs.
func (c *Client) Retry(ctx context.Context, ids ...string) (api.SyncResponse, error) {
	var out api.SyncResponse
	err := c.do(ctx, http.MethodPost, "/api/queue/retry", api.RetryRequest{IDs: ids}, &out)
	return out, err
}

// Dismiss removes one item.
func (c *Client) Dismiss(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/queue/"+url.PathEscape(id), nil, nil)
}

// ClearFailed removes every failed item.
func (c *Client) ClearFailed(ctx context.Context) (int64, error) {
	return c.clear(ctx, "/api/queue?status=failed")
}

// Clear removes every item.
func (c *Client) Clear(ctx context.Context) (int64, error) {
	return c.clear(ctx, "/api/queue")
}

func (c *Client) clear(ctx context.Context, path string) (int64, error) {
	var out api.RemoveResponse
	if err := c.do(ctx, http.MethodDelete, path, nil, &out); err != nil {
		return 0, err
	}
	return out.Removed, nil
}

// IsNotRunning reports whether err means no daemon answered.
func IsNotRunning(err error) bool {
	return errors.Is(err, ErrNotRunning)
}
