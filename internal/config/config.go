package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains on-disk locations.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Session identifies the signed-in user and the organization whose queue is managed.
type Session struct {
	OrganizationID string `toml:"organization_id"`
	UserID         string `toml:"user_id"`
	UserName       string `toml:"user_name"`
	AccessToken    string `toml:"access_token"`
}

// Backend contains connection settings for the hosted REST backend.
type Backend struct {
	URL               string  `toml:"url"`
	APIKey            string  `toml:"api_key"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
	HealthPath        string  `toml:"health_path"`
}

// Queue contains offline queue persistence and retry policy settings.
type Queue struct {
	Store              string `toml:"store"`
	MaxRetries         int    `toml:"max_retries"`
	BackoffBaseSeconds int    `toml:"backoff_base_seconds"`
	BackoffMaxSeconds  int    `toml:"backoff_max_seconds"`
	MaxPayloadBytes    int    `toml:"max_payload_bytes"`
	MaxItems           int    `toml:"max_items"`
}

// Connectivity contains online/offline detection settings.
type Connectivity struct {
	ProbeIntervalSeconds int `toml:"probe_interval_seconds"`
	ProbeTimeoutSeconds  int `toml:"probe_timeout_seconds"`
	FailureThreshold     int `toml:"failure_threshold"`
}

// Daemon contains settings for the long-running sync process.
type Daemon struct {
	APIBind      string `toml:"api_bind"`
	APIToken     string `toml:"api_token"`
	SyncSchedule string `toml:"sync_schedule"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	SyncFailures   bool   `toml:"sync_failures"`
	SyncSummary    bool   `toml:"sync_summary"`
	BackOnline     bool   `toml:"back_online"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for EquipQR sync.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Session: organization/user scope and credentials
//   - Backend: REST backend connection
//   - Queue: persistence backend and retry policy
//   - Connectivity: online detection probing
//   - Daemon: local API and sync schedule
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Session       Session       `toml:"session"`
	Backend       Backend       `toml:"backend"`
	Queue         Queue         `toml:"queue"`
	Connectivity  Connectivity  `toml:"connectivity"`
	Daemon        Daemon        `toml:"daemon"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("equipqr.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for queue storage and logs.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueueDBPath returns the SQLite queue database location.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.DataDir, "queue.db")
}

// QueueBadgerDir returns the Badger queue directory location.
func (c *Config) QueueBadgerDir() string {
	return filepath.Join(c.Paths.DataDir, "queue.badger")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "equipqr.lock")
}

// BackendTimeout returns the per-request backend timeout.
func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// BackoffBase returns the first retry delay.
func (c *Config) BackoffBase() time.Duration {
	return time.Duration(c.Queue.BackoffBaseSeconds) * time.Second
}

// BackoffMax returns the retry delay cap.
func (c *Config) BackoffMax() time.Duration {
	return time.Duration(c.Queue.BackoffMaxSeconds) * time.Second
}

// ProbeInterval returns how often connectivity is probed.
func (c *Config) ProbeInterval() time.Duration {
	return time.Duration(c.Connectivity.ProbeIntervalSeconds) * time.Second
}

// ProbeTimeout returns the per-probe deadline.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Connectivity.ProbeTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
