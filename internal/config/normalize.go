package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSession()
	c.normalizeBackend()
	c.normalizeQueue()
	c.normalizeConnectivity()
	c.normalizeDaemon()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSession() {
	c.Session.OrganizationID = envFallback(c.Session.OrganizationID, "EQUIPQR_ORGANIZATION_ID")
	c.Session.UserID = envFallback(c.Session.UserID, "EQUIPQR_USER_ID")
	c.Session.AccessToken = envFallback(c.Session.AccessToken, "EQUIPQR_ACCESS_TOKEN")
	c.Session.UserName = strings.TrimSpace(c.Session.UserName)
}

func (c *Config) normalizeBackend() {
	c.Backend.URL = strings.TrimRight(envFallback(c.Backend.URL, "EQUIPQR_BACKEND_URL"), "/")
	c.Backend.APIKey = envFallback(c.Backend.APIKey, "EQUIPQR_API_KEY")
	if c.Backend.TimeoutSeconds <= 0 {
		c.Backend.TimeoutSeconds = defaultBackendTimeoutSeconds
	}
	if c.Backend.RequestsPerSecond <= 0 {
		c.Backend.RequestsPerSecond = defaultBackendRequestsPerSecond
	}
	if c.Backend.Burst <= 0 {
		c.Backend.Burst = defaultBackendBurst
	}
	c.Backend.HealthPath = strings.TrimSpace(c.Backend.HealthPath)
	if c.Backend.HealthPath == "" {
		c.Backend.HealthPath = defaultBackendHealthPath
	}
	if !strings.HasPrefix(c.Backend.HealthPath, "/") {
		c.Backend.HealthPath = "/" + c.Backend.HealthPath
	}
}

func (c *Config) normalizeQueue() {
	c.Queue.Store = strings.ToLower(strings.TrimSpace(c.Queue.Store))
	if c.Queue.Store == "" {
		c.Queue.Store = defaultQueueStore
	}
	if c.Queue.BackoffBaseSeconds <= 0 {
		c.Queue.BackoffBaseSeconds = defaultQueueBackoffBaseSeconds
	}
	if c.Queue.BackoffMaxSeconds <= 0 {
		c.Queue.BackoffMaxSeconds = defaultQueueBackoffMaxSeconds
	}
	if c.Queue.MaxPayloadBytes <= 0 {
		c.Queue.MaxPayloadBytes = defaultQueueMaxPayloadBytes
	}
	if c.Queue.MaxItems <= 0 {
		c.Queue.MaxItems = defaultQueueMaxItems
	}
}

func (c *Config) normalizeConnectivity() {
	if c.Connectivity.ProbeIntervalSeconds <= 0 {
		c.Connectivity.ProbeIntervalSeconds = defaultProbeIntervalSeconds
	}
	if c.Connectivity.ProbeTimeoutSeconds <= 0 {
		c.Connectivity.ProbeTimeoutSeconds = defaultProbeTimeoutSeconds
	}
	if c.Connectivity.FailureThreshold <= 0 {
		c.Connectivity.FailureThreshold = defaultProbeFailureThreshold
	}
}

func (c *Config) normalizeDaemon() {
	c.Daemon.APIBind = strings.TrimSpace(c.Daemon.APIBind)
	c.Daemon.APIToken = envFallback(c.Daemon.APIToken, "EQUIPQR_DAEMON_TOKEN")
	c.Daemon.SyncSchedule = strings.TrimSpace(c.Daemon.SyncSchedule)
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func envFallback(value, key string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	if env, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(env)
	}
	return ""
}
