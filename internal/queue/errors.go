package queue

import "errors"

var (
	// ErrNetworkUnavailable means no network attempt was made because the device is offline.
	ErrNetworkUnavailable = errors.New("network unavailable")
	// ErrTransientSync marks a retryable sync failure.
	ErrTransientSync = errors.New("transient sync failure")
	// ErrPermanentSync marks a failure that will not succeed on retry.
	ErrPermanentSync = errors.New("permanent sync failure")
	// ErrPayloadTooLarge rejects an enqueue whose payload exceeds the configured limit.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrQueueFull rejects an enqueue when the scope already holds the maximum number of items.
	ErrQueueFull = errors.New("queue full")
	// ErrInvalidPayload rejects an enqueue whose payload does not match its item type.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrNotFound is returned when an item does not exist in the requested scope.
	ErrNotFound = errors.New("queue item not found")
	// ErrDuplicateID is returned when an insert reuses an existing item id.
	ErrDuplicateID = errors.New("duplicate queue item id")
)

// ErrorClassifier allows errors to declare their classification for status mapping.
// Errors that implement this interface can decide whether a failed attempt is retried
// (StatusPending) or parked for the user (StatusFailed).
type ErrorClassifier interface {
	// ErrorKind returns a string classification of the error.
	// Known kinds that map to StatusFailed: "permanent", "validation".
	// All other kinds are retried.
	ErrorKind() string
}

// IsPermanent reports whether err should fail an item without further retries.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPermanentSync) || errors.Is(err, ErrInvalidPayload) {
		return true
	}
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		switch classifier.ErrorKind() {
		case "permanent", "validation":
			return true
		}
	}
	return false
}

// FailureStatus maps a dispatch error to the status persisted after the attempt.
// Permanent errors and attempts that exhaust the retry budget fail the item;
// everything else returns it to pending behind a backoff gate.
func FailureStatus(err error, retryCount, maxRetries int) Status {
	if IsPermanent(err) {
		return StatusFailed
	}
	if maxRetries > 0 && retryCount >= maxRetries {
		return StatusFailed
	}
	return StatusPending
}
