package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"equipqr/internal/config"
	"equipqr/internal/daemon"
	"equipqr/internal/logging"
	"equipqr/internal/queueaccess"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
}

// Run starts the equipqr daemon and blocks until ctx is cancelled or the
// process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.ValidateSession(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("equipqr-%s.log", runID))

	level := strings.TrimSpace(opts.LogLevel)
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update equipqr.log link: %v\n", err)
	}
	logConfigSnapshot(logger, cfg)

	pidPath := filepath.Join(cfg.Paths.DataDir, "equipqr.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	local, err := queueaccess.OpenLocal(cfg, logger)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}

	d, err := daemon.New(cfg, local, logger)
	if err != nil {
		_ = local.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the lock file, api_bind, and sync_schedule"),
			logging.String(logging.FieldImpact, "queued changes will not sync in the background"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("equipqr daemon shutting down")
	return nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "equipqr-daemon.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String(logging.FieldOrganizationID, cfg.Session.OrganizationID),
		logging.String(logging.FieldUserID, cfg.Session.UserID),
		logging.String("backend_url", cfg.Backend.URL),
		logging.Bool("api_key_present", strings.TrimSpace(cfg.Backend.APIKey) != ""),
		logging.Bool("access_token_present", strings.TrimSpace(cfg.Session.AccessToken) != ""),
		logging.String("queue_store", cfg.Queue.Store),
		logging.String("api_bind", cfg.Daemon.APIBind),
		logging.String("sync_schedule", cfg.Daemon.SyncSchedule),
		logging.Bool("ntfy_enabled", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
	)
}
