package queue

import (
	"encoding/json"
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusFailed     Status = "failed"
	// StatusSynced is reported on status streams only; synced rows are removed.
	StatusSynced Status = "synced"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusFailed,
	StatusSynced,
}

// AllStatuses returns all known queue statuses in display order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus attempts to map a string to a known queue status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// IsActive reports whether items in this status are still waiting to reach the server.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusProcessing
}

// ItemType identifies the mutation a queue item replays.
type ItemType string

const (
	TypeWorkOrderCreate ItemType = "work_order_create"
	TypeWorkOrderUpdate ItemType = "work_order_update"
	TypeWorkOrderNote   ItemType = "work_order_note"
	TypeEquipmentNote   ItemType = "equipment_note"
	TypeEquipmentUpdate ItemType = "equipment_update"
	TypePMUpdate        ItemType = "pm_update"
)

var allTypes = []ItemType{
	TypeWorkOrderCreate,
	TypeWorkOrderUpdate,
	TypeWorkOrderNote,
	TypeEquipmentNote,
	TypeEquipmentUpdate,
	TypePMUpdate,
}

// AllTypes returns every supported item type.
func AllTypes() []ItemType {
	out := make([]ItemType, len(allTypes))
	copy(out, allTypes)
	return out
}

// ParseType maps a string to a known item type.
func ParseType(value string) (ItemType, bool) {
	normalized := ItemType(strings.ToLower(strings.TrimSpace(value)))
	for _, t := range allTypes {
		if t == normalized {
			return t, true
		}
	}
	return "", false
}

// Scope partitions local storage per organization and user.
type Scope struct {
	OrganizationID string `json:"organizationId"`
	UserID         string `json:"userId"`
}

// Valid reports whether both scope fields are populated.
func (s Scope) Valid() bool {
	return strings.TrimSpace(s.OrganizationID) != "" && strings.TrimSpace(s.UserID) != ""
}

func (s Scope) String() string {
	return s.OrganizationID + "/" + s.UserID
}

// Item is one locally persisted mutation awaiting confirmation from the server.
type Item struct {
	ID               string          `json:"id"`
	Seq              int64           `json:"seq"`
	Type             ItemType        `json:"type"`
	Payload          json.RawMessage `json:"payload"`
	OrganizationID   string          `json:"organizationId"`
	UserID           string          `json:"userId"`
	Timestamp        time.Time       `json:"timestamp"`
	RetryCount       int             `json:"retryCount"`
	MaxRetries       int             `json:"maxRetries"`
	Status           Status          `json:"status"`
	PayloadSizeBytes int             `json:"payloadSizeBytes"`
	NextAttemptAt    *time.Time      `json:"nextAttemptAt,omitempty"`
	LastError        string          `json:"lastError,omitempty"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// Scope returns the organization/user pair the item belongs to.
func (i *Item) Scope() Scope {
	return Scope{OrganizationID: i.OrganizationID, UserID: i.UserID}
}

// Due reports whether the backoff gate allows another attempt at now.
func (i *Item) Due(now time.Time) bool {
	return i.NextAttemptAt == nil || !i.NextAttemptAt.After(now)
}

// Exhausted reports whether the item has used all of its retries.
func (i *Item) Exhausted() bool {
	return i.MaxRetries > 0 && i.RetryCount >= i.MaxRetries
}

// Clone returns a deep copy so callers can hand out snapshots safely.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	out := *i
	if i.Payload != nil {
		out.Payload = append(json.RawMessage(nil), i.Payload...)
	}
	if i.NextAttemptAt != nil {
		next := *i.NextAttemptAt
		out.NextAttemptAt = &next
	}
	return &out
}

// Stats counts items per status within a scope.
type Stats map[Status]int

// Total returns the number of stored items.
func (s Stats) Total() int {
	total := 0
	for _, count := range s {
		total += count
	}
	return total
}

// DatabaseHealth describes queue database diagnostics.
type DatabaseHealth struct {
	Backend        string `json:"backend"`
	Path           string `json:"path"`
	Exists         bool   `json:"exists"`
	Readable       bool   `json:"readable"`
	SchemaVersion  int    `json:"schemaVersion"`
	IntegrityCheck bool   `json:"integrityCheck"`
	TotalItems     int    `json:"totalItems"`
	Error          string `json:"error,omitempty"`
}
