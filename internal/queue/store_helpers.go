package queue

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const itemColumns = "seq, id, organization_id, user_id, item_type, payload, payload_size_bytes, status, retry_count, max_retries, next_attempt_at, last_error, created_at, updated_at"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		seq            int64
		id             string
		organizationID string
		userID         string
		itemType       string
		payload        sql.NullString
		payloadSize    sql.NullInt64
		statusStr      string
		retryCount     sql.NullInt64
		maxRetries     sql.NullInt64
		nextAttemptRaw sql.NullString
		lastError      sql.NullString
		createdRaw     sql.NullString
		updatedRaw     sql.NullString
	)

	if err := scanner.Scan(
		&seq,
		&id,
		&organizationID,
		&userID,
		&itemType,
		&payload,
		&payloadSize,
		&statusStr,
		&retryCount,
		&maxRetries,
		&nextAttemptRaw,
		&lastError,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	return decodeRow(rawRow{
		seq:            seq,
		id:             id,
		organizationID: organizationID,
		userID:         userID,
		itemType:       itemType,
		payload:        payload.String,
		payloadSize:    int(payloadSize.Int64),
		status:         statusStr,
		retryCount:     int(retryCount.Int64),
		maxRetries:     int(maxRetries.Int64),
		nextAttempt:    nextAttemptRaw.String,
		lastError:      lastError.String,
		created:        createdRaw.String,
		updated:        updatedRaw.String,
	})
}

type rawRow struct {
	seq            int64
	id             string
	organizationID string
	userID         string
	itemType       string
	payload        string
	payloadSize    int
	status         string
	retryCount     int
	maxRetries     int
	nextAttempt    string
	lastError      string
	created        string
	updated        string
}

// errUndecodable marks a stored row that cannot be turned back into an Item.
var errUndecodable = errors.New("undecodable queue row")

func decodeRow(row rawRow) (*Item, error) {
	status, ok := ParseStatus(row.status)
	if !ok {
		return nil, fmt.Errorf("%w: seq %d has unknown status %q", errUndecodable, row.seq, row.status)
	}
	itemType, ok := ParseType(row.itemType)
	if !ok {
		return nil, fmt.Errorf("%w: seq %d has unknown type %q", errUndecodable, row.seq, row.itemType)
	}
	if !json.Valid([]byte(row.payload)) {
		return nil, fmt.Errorf("%w: seq %d has malformed payload", errUndecodable, row.seq)
	}
	created, err := parseTimeString(row.created)
	if err != nil {
		return nil, fmt.Errorf("%w: seq %d has bad timestamp: %v", errUndecodable, row.seq, err)
	}

	item := &Item{
		ID:               row.id,
		Seq:              row.seq,
		Type:             itemType,
		Payload:          json.RawMessage(row.payload),
		OrganizationID:   row.organizationID,
		UserID:           row.userID,
		Timestamp:        created,
		RetryCount:       row.retryCount,
		MaxRetries:       row.maxRetries,
		Status:           status,
		PayloadSizeBytes: row.payloadSize,
		LastError:        row.lastError,
	}
	if updated, err := parseTimeString(row.updated); err == nil {
		item.UpdatedAt = updated
	}
	if row.nextAttempt != "" {
		if next, err := parseTimeString(row.nextAttempt); err == nil {
			item.NextAttemptAt = &next
		}
	}
	return item, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

// ValidateForInsert checks the fields every backend requires before persisting an item.
func ValidateForInsert(item *Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	if item.ID == "" {
		return errors.New("item id is required")
	}
	if !item.Scope().Valid() {
		return errors.New("item scope requires organization and user")
	}
	if _, ok := ParseType(string(item.Type)); !ok {
		return fmt.Errorf("%w: unknown item type %q", ErrInvalidPayload, item.Type)
	}
	if !json.Valid(item.Payload) {
		return fmt.Errorf("%w: payload is not valid JSON", ErrInvalidPayload)
	}
	return nil
}
