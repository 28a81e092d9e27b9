// Package badger stores offline queue items in an embedded Badger database
// through badgerhold. It satisfies queue.Repository so hosts can swap it in for
// the SQLite store without touching sync code.
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"

	"equipqr/internal/logging"
	"equipqr/internal/queue"
)

const (
	sequenceKey       = "queue_seq"
	sequenceBandwidth = 64
)

// itemRecord is the persisted form of a queue item.
type itemRecord struct {
	ID               string `badgerhold:"key"`
	Seq              int64
	Type             string
	Payload          []byte
	OrganizationID   string `badgerhold:"index"`
	UserID           string
	Timestamp        time.Time
	RetryCount       int
	MaxRetries       int
	Status           string `badgerhold:"index"`
	PayloadSizeBytes int
	NextAttemptAt    *time.Time
	LastError        string
	UpdatedAt        time.Time
}

// Store manages queue persistence backed by Badger.
type Store struct {
	store  *badgerhold.Store
	seq    *badgerdb.Sequence
	dir    string
	logger *slog.Logger
	mu     sync.Mutex
}

var _ queue.Repository = (*Store)(nil)

// Open opens or creates the Badger queue under dir. A directory Badger reports
// as corrupt is moved aside and replaced by an empty queue.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	logger = logging.NewComponentLogger(logger, "queue-badger")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create badger directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = dir
	options.ValueDir = dir
	options.Logger = nil

	store, err := openStore(options, dir, logger)
	if err == nil || !isCorrupt(err) {
		return store, err
	}

	target := fmt.Sprintf("%s.corrupt-%d", dir, time.Now().Unix())
	if moveErr := os.Rename(dir, target); moveErr != nil {
		return nil, fmt.Errorf("quarantine corrupt badger queue: %w (open error: %v)", moveErr, err)
	}
	logging.WarnWithContext(logger, "badger queue corrupt; starting with an empty queue", "queue_store_corrupt",
		logging.String("path", dir),
		logging.String("quarantined_path", target),
		logging.Error(err),
		logging.String(logging.FieldImpact, "unsynced offline changes in the old directory are not replayed"),
	)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("recreate badger directory: %w", err)
	}
	return openStore(options, dir, logger)
}

// OpenInMemory opens a throwaway store that keeps everything in memory.
func OpenInMemory(logger *slog.Logger) (*Store, error) {
	options := badgerhold.DefaultOptions
	options.InMemory = true
	options.Logger = nil
	return openStore(options, "", logging.NewComponentLogger(logger, "queue-badger"))
}

func openStore(options badgerhold.Options, dir string, logger *slog.Logger) (*Store, error) {
	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open badger queue: %w", err)
	}
	seq, err := store.Badger().GetSequence([]byte(sequenceKey), sequenceBandwidth)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open queue sequence: %w", err)
	}
	return &Store{store: store, seq: seq, dir: dir, logger: logger}, nil
}

func isCorrupt(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "manifest") || strings.Contains(msg, "checksum") || strings.Contains(msg, "corrupt")
}

func scopeQuery(scope queue.Scope) *badgerhold.Query {
	return badgerhold.Where("OrganizationID").Eq(scope.OrganizationID).And("UserID").Eq(scope.UserID)
}

func toRecord(item *queue.Item) itemRecord {
	return itemRecord{
		ID:               item.ID,
		Seq:              item.Seq,
		Type:             string(item.Type),
		Payload:          []byte(item.Payload),
		OrganizationID:   item.OrganizationID,
		UserID:           item.UserID,
		Timestamp:        item.Timestamp.UTC(),
		RetryCount:       item.RetryCount,
		MaxRetries:       item.MaxRetries,
		Status:           string(item.Status),
		PayloadSizeBytes: item.PayloadSizeBytes,
		NextAttemptAt:    item.NextAttemptAt,
		LastError:        item.LastError,
		UpdatedAt:        item.UpdatedAt.UTC(),
	}
}

func (r itemRecord) toItem() *queue.Item {
	return &queue.Item{
		ID:               r.ID,
		Seq:              r.Seq,
		Type:             queue.ItemType(r.Type),
		Payload:          append([]byte(nil), r.Payload...),
		OrganizationID:   r.OrganizationID,
		UserID:           r.UserID,
		Timestamp:        r.Timestamp,
		RetryCount:       r.RetryCount,
		MaxRetries:       r.MaxRetries,
		Status:           queue.Status(r.Status),
		PayloadSizeBytes: r.PayloadSizeBytes,
		NextAttemptAt:    r.NextAttemptAt,
		LastError:        r.LastError,
		UpdatedAt:        r.UpdatedAt,
	}
}

// Insert persists a new item and assigns its sequence number.
func (s *Store) Insert(_ context.Context, item *queue.Item) error {
	if err := queue.ValidateForInsert(item); err != nil {
		return err
	}
	if item.Status == "" {
		item.Status = queue.StatusPending
	}
	if item.Timestamp.IsZero() {
		item.Timestamp = time.Now().UTC()
	}
	item.UpdatedAt = item.Timestamp
	if item.PayloadSizeBytes == 0 {
		item.PayloadSizeBytes = len(item.Payload)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	item.Seq = int64(next) + 1

	if err := s.store.Insert(item.ID, toRecord(item)); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return fmt.Errorf("insert item %s: %w", item.ID, queue.ErrDuplicateID)
		}
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// GetByID fetches a queue item by identifier within scope.
func (s *Store) GetByID(_ context.Context, scope queue.Scope, id string) (*queue.Item, error) {
	var record itemRecord
	if err := s.store.Get(id, &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("get item %s: %w", id, queue.ErrNotFound)
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	if record.OrganizationID != scope.OrganizationID || record.UserID != scope.UserID {
		return nil, fmt.Errorf("get item %s: %w", id, queue.ErrNotFound)
	}
	return record.toItem(), nil
}

// List returns items in FIFO order, optionally filtered by status.
func (s *Store) List(_ context.Context, scope queue.Scope, statuses ...queue.Status) ([]*queue.Item, error) {
	query := scopeQuery(scope)
	if len(statuses) > 0 {
		values := make([]interface{}, 0, len(statuses))
		for _, status := range statuses {
			values = append(values, string(status))
		}
		query = query.And("Status").In(values...)
	}

	var records []itemRecord
	if err := s.store.Find(&records, query.SortBy("Seq")); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	items := make([]*queue.Item, 0, len(records))
	for _, record := range records {
		if _, ok := queue.ParseStatus(record.Status); !ok {
			logging.WarnWithContext(s.logger, "skipping undecodable queue record", "queue_row_skipped",
				logging.String(logging.FieldItemID, record.ID),
				logging.String("status", record.Status),
			)
			continue
		}
		items = append(items, record.toItem())
	}
	return items, nil
}

// Update persists lifecycle changes to an existing queue item.
func (s *Store) Update(ctx context.Context, item *queue.Item) error {
	if item == nil {
		return errors.New("item is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, err := s.GetByID(ctx, item.Scope(), item.ID)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	item.UpdatedAt = time.Now().UTC()
	item.Seq = existing.Seq
	item.Timestamp = existing.Timestamp
	if err := s.store.Update(item.ID, toRecord(item)); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("update item %s: %w", item.ID, queue.ErrNotFound)
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// Remove deletes an item. It reports whether a record was removed.
func (s *Store) Remove(ctx context.Context, scope queue.Scope, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.GetByID(ctx, scope, id); err != nil {
		if errors.Is(err, queue.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := s.store.Delete(id, itemRecord{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("remove item: %w", err)
	}
	return true, nil
}

func (s *Store) deleteMatching(query *badgerhold.Query) (int64, error) {
	count, err := s.store.Count(&itemRecord{}, query)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	if err := s.store.DeleteMatching(&itemRecord{}, query); err != nil {
		return 0, err
	}
	return int64(count), nil
}

// Clear removes every item in scope.
func (s *Store) Clear(_ context.Context, scope queue.Scope) (int64, error) {
	removed, err := s.deleteMatching(scopeQuery(scope))
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return removed, nil
}

// ClearFailed removes failed items in scope.
func (s *Store) ClearFailed(_ context.Context, scope queue.Scope) (int64, error) {
	removed, err := s.deleteMatching(scopeQuery(scope).And("Status").Eq(string(queue.StatusFailed)))
	if err != nil {
		return 0, fmt.Errorf("clear failed items: %w", err)
	}
	return removed, nil
}

func (s *Store) updateMatching(query *badgerhold.Query, mutate func(*itemRecord)) (int64, error) {
	var updated int64
	err := s.store.UpdateMatching(&itemRecord{}, query, func(record interface{}) error {
		rec, ok := record.(*itemRecord)
		if !ok {
			return fmt.Errorf("unexpected record type %T", record)
		}
		mutate(rec)
		rec.UpdatedAt = time.Now().UTC()
		updated++
		return nil
	})
	return updated, err
}

// RetryFailed moves failed items back to pending with a fresh retry budget.
// With no ids every failed item in scope is reset.
func (s *Store) RetryFailed(ctx context.Context, scope queue.Scope, ids ...string) (int64, error) {
	reset := func(rec *itemRecord) {
		rec.Status = string(queue.StatusPending)
		rec.RetryCount = 0
		rec.NextAttemptAt = nil
		rec.LastError = ""
	}
	if len(ids) == 0 {
		updated, err := s.updateMatching(scopeQuery(scope).And("Status").Eq(string(queue.StatusFailed)), reset)
		if err != nil {
			return 0, fmt.Errorf("retry failed items: %w", err)
		}
		return updated, nil
	}

	var updated int64
	for _, id := range ids {
		item, err := s.GetByID(ctx, scope, id)
		if errors.Is(err, queue.ErrNotFound) {
			continue
		}
		if err != nil {
			return updated, fmt.Errorf("retry failed items: %w", err)
		}
		if item.Status != queue.StatusFailed {
			continue
		}
		record := toRecord(item)
		reset(&record)
		record.UpdatedAt = time.Now().UTC()
		if err := s.store.Update(id, record); err != nil {
			return updated, fmt.Errorf("retry failed items: %w", err)
		}
		updated++
	}
	return updated, nil
}

// ResetProcessing returns items stranded in processing to pending without consuming a retry.
func (s *Store) ResetProcessing(_ context.Context, scope queue.Scope) (int64, error) {
	query := scopeQuery(scope).And("Status").Eq(string(queue.StatusProcessing))
	updated, err := s.updateMatching(query, func(rec *itemRecord) {
		rec.Status = string(queue.StatusPending)
	})
	if err != nil {
		return 0, fmt.Errorf("reset processing items: %w", err)
	}
	return updated, nil
}

// Stats returns a count of items grouped by status.
func (s *Store) Stats(ctx context.Context, scope queue.Scope) (queue.Stats, error) {
	items, err := s.List(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	stats := make(queue.Stats)
	for _, item := range items {
		stats[item.Status]++
	}
	return stats, nil
}

// Count returns the number of items stored in scope.
func (s *Store) Count(_ context.Context, scope queue.Scope) (int, error) {
	count, err := s.store.Count(&itemRecord{}, scopeQuery(scope))
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return int(count), nil
}

// CheckHealth returns diagnostic information about the Badger queue.
func (s *Store) CheckHealth(_ context.Context) (queue.DatabaseHealth, error) {
	health := queue.DatabaseHealth{Backend: "badger", Path: s.dir, SchemaVersion: 1}
	db := s.store.Badger()
	if db == nil || db.IsClosed() {
		return health, errors.New("badger queue is closed")
	}
	health.Exists = true
	count, err := s.store.Count(&itemRecord{}, nil)
	if err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("count queue items: %w", err)
	}
	health.Readable = true
	health.IntegrityCheck = true
	health.TotalItems = int(count)
	return health, nil
}

// Close releases the sequence lease and closes the database.
func (s *Store) Close() error {
	if s == nil || s.store == nil {
		return nil
	}
	if s.seq != nil {
		_ = s.seq.Release()
	}
	return s.store.Close()
}
