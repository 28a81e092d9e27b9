package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"equipqr/internal/config"
)

const userAgent = "EquipQR-Sync/0.1.0"

// Service defines the notification surface exposed to sync components.
type Service interface {
	NotifySyncFailed(ctx context.Context, itemType, itemID, reason string) error
	NotifySyncCompleted(ctx context.Context, succeeded, failed, remaining int, duration time.Duration) error
	NotifyBackOnline(ctx context.Context, pending int) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		syncFailures: cfg.Notifications.SyncFailures,
		syncSummary:  cfg.Notifications.SyncSummary,
		backOnline:   cfg.Notifications.BackOnline,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	syncFailures bool
	syncSummary  bool
	backOnline   bool
}

func (n *ntfyService) NotifySyncFailed(ctx context.Context, itemType, itemID, reason string) error {
	if !n.syncFailures {
		return nil
	}
	itemType = strings.ReplaceAll(strings.TrimSpace(itemType), "_", " ")
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown error"
	}
	data := payload{
		title:    "EquipQR - Sync Failed",
		message:  fmt.Sprintf("Could not sync %s %s: %s\nRetry or dismiss it from the queue.", itemType, strings.TrimSpace(itemID), reason),
		tags:     []string{"equipqr", "sync", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySyncCompleted(ctx context.Context, succeeded, failed, remaining int, duration time.Duration) error {
	if !n.syncSummary {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	title := "EquipQR - Sync Complete"
	message := fmt.Sprintf("Synced %d offline changes in %s", succeeded, duration)
	if failed > 0 {
		title = "EquipQR - Sync Complete (with errors)"
		message = fmt.Sprintf("Synced %d offline changes, %d failed in %s", succeeded, failed, duration)
	}
	if remaining > 0 {
		message = fmt.Sprintf("%s\n%d changes still queued", message, remaining)
	}
	data := payload{
		title:   title,
		message: message,
		tags:    []string{"equipqr", "sync", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBackOnline(ctx context.Context, pending int) error {
	if !n.backOnline {
		return nil
	}
	message := "Connection restored"
	if pending > 0 {
		message = fmt.Sprintf("Connection restored, syncing %d queued changes", pending)
	}
	data := payload{
		title:   "EquipQR - Back Online",
		message: message,
		tags:    []string{"equipqr", "online"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "EquipQR - Test",
		message:  "Notification system test",
		tags:     []string{"equipqr", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifySyncFailed(context.Context, string, string, string) error          { return nil }
func (noopService) NotifySyncCompleted(context.Context, int, int, int, time.Duration) error { return nil }
func (noopService) NotifyBackOnline(context.Context, int) error                             { return nil }
func (noopService) TestNotification(context.Context) error                                  { return nil }

// NewNoop returns a Service that discards every notification.
func NewNoop() Service { return noopService{} }
