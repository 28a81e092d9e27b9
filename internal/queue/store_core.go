package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"equipqr/internal/config"
	"equipqr/internal/logging"
)

// Store manages queue persistence backed by SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

const (
	sqliteBusyCode          = 5
	sqliteCorruptCode       = 11
	sqliteNotADBCode        = 26
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func sqliteCode(err error) (int, bool) {
	var coder interface{ Code() int }
	if errors.As(err, &coder) {
		return coder.Code() & 0xff, true
	}
	return 0, false
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqliteCode(err); ok && code == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func isSQLiteCorrupt(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqliteCode(err); ok && (code == sqliteCorruptCode || code == sqliteNotADBCode) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "file is not a database") || strings.Contains(msg, "malformed")
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Open initializes or connects to the queue database configured for cfg.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.QueueDBPath(), logger)
}

// OpenPath opens the queue database at dbPath. A file SQLite reports as corrupt
// is renamed to <name>.corrupt-<unix> and replaced by an empty queue.
func OpenPath(dbPath string, logger *slog.Logger) (*Store, error) {
	logger = logging.NewComponentLogger(logger, "queue-store")

	store, err := openSQLite(dbPath, logger)
	if err == nil {
		return store, nil
	}
	if !isSQLiteCorrupt(err) {
		return nil, err
	}

	quarantined, moveErr := quarantine(dbPath, time.Now())
	if moveErr != nil {
		return nil, fmt.Errorf("quarantine corrupt queue database: %w (open error: %v)", moveErr, err)
	}
	logging.WarnWithContext(logger, "queue database corrupt; starting with an empty queue", "queue_store_corrupt",
		logging.String("path", dbPath),
		logging.String("quarantined_path", quarantined),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "inspect the quarantined file to recover unsynced changes"),
		logging.String(logging.FieldImpact, "unsynced offline changes in the old file are not replayed"),
	)
	return openSQLite(dbPath, logger)
}

func openSQLite(dbPath string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, logger: logger}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func quarantine(dbPath string, now time.Time) (string, error) {
	target := fmt.Sprintf("%s.corrupt-%d", dbPath, now.Unix())
	if err := os.Rename(dbPath, target); err != nil {
		return "", err
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		sidecar := dbPath + suffix
		if _, err := os.Stat(sidecar); err == nil {
			_ = os.Rename(sidecar, target+suffix)
		}
	}
	return target, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return filepath.Clean(s.path)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
