package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/robfig/cron/v3"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateDaemon(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// ValidateSession reports whether a queue scope is configured. Commands that
// touch the queue call it; configuration helpers do not.
func (c *Config) ValidateSession() error {
	if c.Session.OrganizationID == "" {
		return errors.New("session.organization_id is required. Set EQUIPQR_ORGANIZATION_ID or edit the config file (create with 'equipqr config init')")
	}
	if c.Session.UserID == "" {
		return errors.New("session.user_id is required. Set EQUIPQR_USER_ID or edit the config file")
	}
	return nil
}

func (c *Config) validateBackend() error {
	if c.Backend.URL == "" {
		return nil
	}
	parsed, err := url.Parse(c.Backend.URL)
	if err != nil {
		return fmt.Errorf("backend.url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("backend.url must use http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("backend.url must include a host")
	}
	return nil
}

func (c *Config) validateQueue() error {
	switch c.Queue.Store {
	case StoreSQLite, StoreBadger:
	default:
		return fmt.Errorf("queue.store: unsupported value %q (use %q or %q)", c.Queue.Store, StoreSQLite, StoreBadger)
	}
	if c.Queue.MaxRetries < 1 {
		return errors.New("queue.max_retries must be at least 1")
	}
	if c.Queue.BackoffMaxSeconds < c.Queue.BackoffBaseSeconds {
		return errors.New("queue.backoff_max_seconds must be >= queue.backoff_base_seconds")
	}
	return nil
}

func (c *Config) validateDaemon() error {
	if c.Daemon.SyncSchedule == "" {
		return nil
	}
	if _, err := cron.ParseStandard(c.Daemon.SyncSchedule); err != nil {
		return fmt.Errorf("daemon.sync_schedule: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
