package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"equipqr/internal/domain"
	"equipqr/internal/queue"
)

// Dispatch replays one queue item against the backend. Inserts ask the server
// to ignore duplicate keys, and a 409 on insert counts as success, so an item
// whose earlier attempt landed without an acknowledgement syncs exactly once.
func (c *Client) Dispatch(ctx context.Context, item *queue.Item) error {
	mutation, err := domain.BuildMutation(item)
	if err != nil {
		return err
	}

	if mutation.Create {
		req, err := c.newRequest(ctx, http.MethodPost, tablePath(mutation.Table, nil), mutation.Row)
		if err != nil {
			return err
		}
		req.Header.Set("Prefer", "resolution=ignore-duplicates,return=minimal")
		status, err := c.do(req, nil)
		if status == http.StatusConflict {
			return nil
		}
		if err != nil {
			return fmt.Errorf("insert into %s: %w", mutation.Table, err)
		}
		return nil
	}

	if mutation.RowID == "" {
		return fmt.Errorf("%w: %s payload has no row id", queue.ErrInvalidPayload, item.Type)
	}
	if len(mutation.Row) == 0 {
		return nil
	}
	filters := url.Values{"id": []string{eq(mutation.RowID)}}
	req, err := c.newRequest(ctx, http.MethodPatch, tablePath(mutation.Table, filters), mutation.Row)
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "return=minimal")
	if _, err := c.do(req, nil); err != nil {
		return fmt.Errorf("update %s %s: %w", mutation.Table, mutation.RowID, err)
	}
	return nil
}

// IsNetworkError reports whether err means the request never reached the backend.
func IsNetworkError(err error) bool {
	return errors.Is(err, queue.ErrNetworkUnavailable)
}
