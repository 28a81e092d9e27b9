// Package backend talks to the hosted REST backend (a PostgREST-style API).
//
// The Client replays queue items as inserts or patches, fetches the lists the
// merge layer overlays, and answers connectivity probes. Every failure is
// classified into the queue error taxonomy so the offline manager can decide
// between halting, retrying, and failing an item.
package backend

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"equipqr/internal/config"
	"equipqr/internal/logging"
)

const (
	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 15 * time.Second
	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 5

	restPrefix = "/rest/v1/"
	userAgent  = "EquipQR-Sync/0.1.0"
)

// Client is a backend API client.
type Client struct {
	baseURL    string
	apiKey     string
	healthPath string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. It replaces the bearer-token transport.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "backend")
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond float64, burst int) Option {
	return func(c *Client) {
		if burst < 1 {
			burst = 1
		}
		limit := rate.Limit(requestsPerSecond)
		if requestsPerSecond <= 0 {
			limit = rate.Inf
		}
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithHealthPath overrides the path probed by Ping.
func WithHealthPath(path string) Option {
	return func(c *Client) {
		c.healthPath = path
	}
}

// NewClient creates a backend client. A non-empty accessToken is sent as a
// bearer token on every request.
func NewClient(baseURL, apiKey, accessToken string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := &http.Client{Timeout: timeout}
	if token := strings.TrimSpace(accessToken); token != "" {
		httpClient.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   http.DefaultTransport,
		}
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		healthPath: restPrefix,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// New builds a client from application config.
func New(cfg *config.Config, logger *slog.Logger) *Client {
	return NewClient(
		cfg.Backend.URL,
		cfg.Backend.APIKey,
		cfg.Session.AccessToken,
		cfg.BackendTimeout(),
		WithLogger(logger),
		WithRateLimit(cfg.Backend.RequestsPerSecond, cfg.Backend.Burst),
		WithHealthPath(cfg.Backend.HealthPath),
	)
}

// Ping checks that the backend answers. Any HTTP response, including an auth
// error, proves connectivity; only transport failures report offline.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, c.healthPath, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransport(ctx, err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return newAPIError(resp.StatusCode, resp.Status, c.healthPath)
	}
	return nil
}
