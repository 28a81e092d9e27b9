package api

import (
	"encoding/json"

	"equipqr/internal/offline"
	"equipqr/internal/queue"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueItem describes a queue entry in a transport-friendly format.
type QueueItem struct {
	ID               string          `json:"id"`
	Seq              int64           `json:"seq"`
	Type             string          `json:"type"`
	Status           string          `json:"status"`
	OrganizationID   string          `json:"organizationId"`
	UserID           string          `json:"userId"`
	RetryCount       int             `json:"retryCount"`
	MaxRetries       int             `json:"maxRetries"`
	PayloadSizeBytes int             `json:"payloadSizeBytes"`
	Payload          json.RawMessage `json:"payload,omitempty"`
	LastError        string          `json:"lastError,omitempty"`
	CreatedAt        string          `json:"createdAt,omitempty"`
	UpdatedAt        string          `json:"updatedAt,omitempty"`
	NextAttemptAt    string          `json:"nextAttemptAt,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool                  `json:"running"`
	PID          int                   `json:"pid"`
	StoreBackend string                `json:"storeBackend"`
	StorePath    string                `json:"storePath"`
	LockFilePath string                `json:"lockFilePath"`
	SyncSchedule string                `json:"syncSchedule,omitempty"`
	NextSyncAt   string                `json:"nextSyncAt,omitempty"`
	Sync         offline.Status        `json:"sync"`
	Database     *queue.DatabaseHealth `json:"database,omitempty"`
}

// QueueListResponse wraps a collection of queue items for API responses.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueItemResponse wraps a single queue item.
type QueueItemResponse struct {
	Item QueueItem `json:"item"`
}

// EnqueueRequest is the body of POST /api/queue.
type EnqueueRequest = offline.EnqueueRequest

// SyncResponse reports the outcome of a sync or retry request. Offline is
// set when the pass was skipped or halted for lack of connectivity.
type SyncResponse struct {
	Result  offline.SyncResult `json:"result"`
	Offline bool               `json:"offline"`
}

// RetryRequest names the failed items to retry; empty retries all of them.
type RetryRequest struct {
	IDs []string `json:"ids,omitempty"`
}

// RemoveResponse reports how many items a delete removed.
type RemoveResponse struct {
	Removed int64 `json:"removed"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
