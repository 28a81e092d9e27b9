package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"equipqr/internal/logging"
)

// Insert persists a new item and assigns its sequence number.
func (s *Store) Insert(ctx context.Context, item *Item) error {
	if err := ValidateForInsert(item); err != nil {
		return err
	}
	if item.Status == "" {
		item.Status = StatusPending
	}
	if item.Timestamp.IsZero() {
		item.Timestamp = time.Now().UTC()
	}
	item.UpdatedAt = item.Timestamp
	if item.PayloadSizeBytes == 0 {
		item.PayloadSizeBytes = len(item.Payload)
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO queue_items (
            id, organization_id, user_id, item_type, payload, payload_size_bytes,
            status, retry_count, max_retries, next_attempt_at, last_error, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.OrganizationID,
		item.UserID,
		item.Type,
		string(item.Payload),
		item.PayloadSizeBytes,
		item.Status,
		item.RetryCount,
		item.MaxRetries,
		nullableTime(item.NextAttemptAt),
		nullableString(item.LastError),
		formatTime(item.Timestamp),
		formatTime(item.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert item %s: %w", item.ID, ErrDuplicateID)
		}
		return fmt.Errorf("insert item: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	item.Seq = seq
	return nil
}

// GetByID fetches a queue item by identifier within scope.
func (s *Store) GetByID(ctx context.Context, scope Scope, id string) (*Item, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+itemColumns+` FROM queue_items WHERE id = ? AND organization_id = ? AND user_id = ?`,
		id, scope.OrganizationID, scope.UserID,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get item %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// List returns items in FIFO order, optionally filtered by status. Rows that
// cannot be decoded are skipped with a warning.
func (s *Store) List(ctx context.Context, scope Scope, statuses ...Status) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM queue_items WHERE organization_id = ? AND user_id = ?`
	args := []any{scope.OrganizationID, scope.UserID}
	if len(statuses) > 0 {
		query += ` AND status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY seq`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			if errors.Is(err, errUndecodable) {
				logging.WarnWithContext(s.logger, "skipping undecodable queue row", "queue_row_skipped",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "dismiss or clear the queue to drop the row"),
					logging.String(logging.FieldImpact, "the skipped mutation is not synced"),
				)
				continue
			}
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Update persists lifecycle changes to an existing queue item.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	item.UpdatedAt = time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE queue_items
         SET status = ?, retry_count = ?, max_retries = ?, next_attempt_at = ?,
             last_error = ?, payload = ?, payload_size_bytes = ?, updated_at = ?
         WHERE id = ? AND organization_id = ? AND user_id = ?`,
		item.Status,
		item.RetryCount,
		item.MaxRetries,
		nullableTime(item.NextAttemptAt),
		nullableString(item.LastError),
		string(item.Payload),
		item.PayloadSizeBytes,
		formatTime(item.UpdatedAt),
		item.ID,
		item.OrganizationID,
		item.UserID,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update item rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update item %s: %w", item.ID, ErrNotFound)
	}
	return nil
}

// Remove deletes an item. It reports whether a row was removed.
func (s *Store) Remove(ctx context.Context, scope Scope, id string) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM queue_items WHERE id = ? AND organization_id = ? AND user_id = ?`,
		id, scope.OrganizationID, scope.UserID,
	)
	if err != nil {
		return false, fmt.Errorf("remove item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove item rows affected: %w", err)
	}
	return affected > 0, nil
}
