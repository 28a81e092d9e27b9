// Package daemonctl is the client side of the daemon HTTP API.
package daemonctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"equipqr/internal/api"
	"equipqr/internal/config"
)

// ErrNotRunning reports that no daemon answered at the configured address.
var ErrNotRunning = errors.New("daemon not running")

// Client talks to a running daemon.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New builds a client for the daemon configured in cfg without contacting it.
func New(cfg *config.Config) *Client {
	return NewWithURL(BaseURL(cfg.Daemon.APIBind), cfg.Daemon.APIToken)
}

// NewWithURL builds a client for an explicit base URL.
func NewWithURL(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// BaseURL turns an api_bind address into a loopback URL. Wildcard hosts are
// reached through 127.0.0.1.
func BaseURL(bind string) string {
	bind = strings.TrimSpace(bind)
	if strings.HasPrefix(bind, "http://") || strings.HasPrefix(bind, "https://") {
		return bind
	}
	switch {
	case strings.HasPrefix(bind, ":"):
		bind = "127.0.0.1" + bind
	case strings.HasPrefix(bind, "0.0.0.0:"):
		bind = "127.0.0.1" + strings.TrimPrefix(bind, "0.0.0.0")
	}
	return "http://" + bind
}

// Dial returns a client once the daemon answers a status request within
// timeout. Connection failures map to ErrNotRunning.
func Dial(ctx context.Context, cfg *config.Config, timeout time.Duration) (*Client, error) {
	client := New(cfg)
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := client.Status(probeCtx); err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			return nil, err
		}
		return nil, fmt.Errorf("%w at %s: %v", ErrNotRunning, client.baseURL, err)
	}
	return client, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// URL returns the daemon base URL.
func (c *Client) URL() string {
	return c.baseURL
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody api.ErrorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&errBody)
		return api.DecodeError(resp.StatusCode, errBody)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
