package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Clear removes every item in scope.
func (s *Store) Clear(ctx context.Context, scope Scope) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`DELETE FROM queue_items WHERE organization_id = ? AND user_id = ?`,
		scope.OrganizationID, scope.UserID,
	)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes failed items in scope.
func (s *Store) ClearFailed(ctx context.Context, scope Scope) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`DELETE FROM queue_items WHERE organization_id = ? AND user_id = ? AND status = ?`,
		scope.OrganizationID, scope.UserID, StatusFailed,
	)
	if err != nil {
		return 0, fmt.Errorf("clear failed items: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed moves failed items back to pending with a fresh retry budget.
// With no ids every failed item in scope is reset.
func (s *Store) RetryFailed(ctx context.Context, scope Scope, ids ...string) (int64, error) {
	query := `UPDATE queue_items
        SET status = ?, retry_count = 0, next_attempt_at = NULL, last_error = NULL, updated_at = ?
        WHERE organization_id = ? AND user_id = ? AND status = ?`
	args := []any{StatusPending, formatTime(time.Now()), scope.OrganizationID, scope.UserID, StatusFailed}
	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed items: %w", err)
	}
	return res.RowsAffected()
}

// ResetProcessing returns items stranded in processing (for example by a crash
// mid-dispatch) to pending without consuming a retry.
func (s *Store) ResetProcessing(ctx context.Context, scope Scope) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE queue_items SET status = ?, updated_at = ?
         WHERE organization_id = ? AND user_id = ? AND status = ?`,
		StatusPending, formatTime(time.Now()), scope.OrganizationID, scope.UserID, StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset processing items: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of items grouped by status.
func (s *Store) Stats(ctx context.Context, scope Scope) (Stats, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT status, COUNT(1) FROM queue_items WHERE organization_id = ? AND user_id = ? GROUP BY status`,
		scope.OrganizationID, scope.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(Stats)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Count returns the number of items stored in scope.
func (s *Store) Count(ctx context.Context, scope Scope) (int, error) {
	var count int
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(1) FROM queue_items WHERE organization_id = ? AND user_id = ?`,
		scope.OrganizationID, scope.UserID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return count, nil
}

// CheckHealth returns diagnostic information about the queue database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{Backend: "sqlite", Path: s.path}

	if s.path == "" {
		return health, errors.New("queue database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return health, nil
		}
		return health, fmt.Errorf("stat queue database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("queue database path %q is a directory", s.path)
	}
	health.Exists = true

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping queue database: %w", err)
	}
	health.Readable = true

	if err := s.db.QueryRowContext(connCtx, "PRAGMA user_version").Scan(&health.SchemaVersion); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("read schema version: %w", err)
	}

	if err := s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM queue_items").Scan(&health.TotalItems); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("count queue items: %w", err)
	}

	var integrityResult string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}
