package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"

	"equipqr/internal/api"
	"equipqr/internal/config"
	"equipqr/internal/connectivity"
	"equipqr/internal/logging"
	"equipqr/internal/notifications"
	"equipqr/internal/offline"
	"equipqr/internal/queue"
	"equipqr/internal/queueaccess"
)

// Daemon coordinates background syncing and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	local   *queueaccess.Local
	monitor *connectivity.Monitor
	api     *apiServer

	lockPath string
	lock     *flock.Flock

	scheduleMu sync.Mutex
	schedule   *cron.Cron
	syncEntry  cron.EntryID

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a daemon around an opened local queue.
func New(cfg *config.Config, local *queueaccess.Local, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || local == nil || local.Manager == nil {
		return nil, errors.New("daemon requires config and local queue")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "daemon")

	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		local:    local,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	if prober := local.Prober(); prober != nil {
		d.monitor = connectivity.NewFromConfig(cfg, prober, logger, local.Manager.SetOnline)
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, then launches the manager, the connectivity
// monitor, the sync schedule, and the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another equipqr daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.local.Manager.Start(d.ctx); err != nil {
		d.abortStart()
		return fmt.Errorf("start offline manager: %w", err)
	}

	schedule := cron.New()
	entry, err := schedule.AddFunc(d.cfg.Daemon.SyncSchedule, d.scheduledSync)
	if err != nil {
		d.local.Manager.Stop()
		d.abortStart()
		return fmt.Errorf("parse sync schedule %q: %w", d.cfg.Daemon.SyncSchedule, err)
	}

	if err := d.api.start(d.ctx); err != nil {
		d.local.Manager.Stop()
		d.abortStart()
		return err
	}

	d.scheduleMu.Lock()
	d.schedule = schedule
	d.syncEntry = entry
	d.scheduleMu.Unlock()
	schedule.Start()

	if d.monitor != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.monitor.Run(d.ctx)
		}()
	}

	d.running.Store(true)
	d.logger.Info("equipqr daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.address()),
		logging.String("sync_schedule", d.cfg.Daemon.SyncSchedule),
	)
	return nil
}

func (d *Daemon) abortStart() {
	_ = d.lock.Unlock()
	d.cancel()
	d.ctx = nil
	d.cancel = nil
}

// Stop halts background work and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.scheduleMu.Lock()
	schedule := d.schedule
	d.schedule = nil
	d.scheduleMu.Unlock()
	if schedule != nil {
		<-schedule.Stop().Done()
	}
	d.wg.Wait()
	d.api.stop()
	d.local.Manager.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("equipqr daemon stopped")
}

// Close stops the daemon and releases the queue store.
func (d *Daemon) Close() error {
	d.Stop()
	return d.local.Close()
}

// Manager exposes the offline manager.
func (d *Daemon) Manager() *offline.Manager {
	return d.local.Manager
}

// APIAddress returns the address the API server listens on, or empty before Start.
func (d *Daemon) APIAddress() string {
	return d.api.address()
}

func (d *Daemon) scheduledSync() {
	ctx := d.ctx
	if ctx == nil || !d.local.Manager.Online() {
		return
	}
	result, err := d.local.Manager.SyncNow(ctx)
	switch {
	case err == nil:
		if result.Succeeded > 0 || result.Failed > 0 {
			d.logger.Info("scheduled sync finished",
				logging.Int("succeeded", result.Succeeded),
				logging.Int("failed", result.Failed),
				logging.Int("remaining", result.Remaining),
			)
		}
	case errors.Is(err, queue.ErrNetworkUnavailable), errors.Is(err, context.Canceled):
		d.logger.Debug("scheduled sync skipped", logging.Error(err))
	default:
		logging.WarnWithContext(d.logger, "scheduled sync failed", "scheduled_sync_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"),
		)
	}
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) (api.DaemonStatus, error) {
	syncStatus, err := d.local.Manager.Status(ctx)
	if err != nil {
		return api.DaemonStatus{}, err
	}
	status := api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StoreBackend: d.cfg.Queue.Store,
		StorePath:    d.storePath(),
		LockFilePath: d.lockPath,
		SyncSchedule: d.cfg.Daemon.SyncSchedule,
		Sync:         syncStatus,
	}
	if next := d.nextSync(); !next.IsZero() {
		status.NextSyncAt = next.UTC().Format(time.RFC3339)
	}
	health, err := d.local.Store.CheckHealth(ctx)
	if err != nil {
		health.Error = err.Error()
	}
	status.Database = &health
	return status, nil
}

func (d *Daemon) nextSync() time.Time {
	d.scheduleMu.Lock()
	defer d.scheduleMu.Unlock()
	if d.schedule == nil {
		return time.Time{}
	}
	return d.schedule.Entry(d.syncEntry).Next
}

func (d *Daemon) storePath() string {
	if d.cfg.Queue.Store == config.StoreBadger {
		return d.cfg.QueueBadgerDir()
	}
	return d.cfg.QueueDBPath()
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
