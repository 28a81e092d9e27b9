package testsupport

import (
	"path/filepath"
	"testing"

	"equipqr/internal/config"
	"equipqr/internal/queue"
)

// Test scope identifiers used by NewConfig.
const (
	OrganizationID = "org-test"
	UserID         = "user-test"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Session.OrganizationID = OrganizationID
	cfgVal.Session.UserID = UserID
	cfgVal.Session.UserName = "Test User"
	cfgVal.Session.AccessToken = "test-token"
	cfgVal.Backend.URL = "http://127.0.0.1:1"
	cfgVal.Backend.APIKey = "test-key"
	cfgVal.Daemon.APIBind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithBackendURL points the test config at a fake backend.
func WithBackendURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Backend.URL = url
	}
}

// WithStore selects the queue persistence backend.
func WithStore(kind string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Queue.Store = kind
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}

// Scope returns the queue scope described by the config session.
func Scope(cfg *config.Config) queue.Scope {
	return queue.Scope{OrganizationID: cfg.Session.OrganizationID, UserID: cfg.Session.UserID}
}
