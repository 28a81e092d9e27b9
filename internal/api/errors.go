package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"equipqr/internal/queue"
)

// Error kinds carried in ErrorResponse.Kind.
const (
	KindNetworkUnavailable = "network_unavailable"
	KindPayloadTooLarge    = "payload_too_large"
	KindQueueFull          = "queue_full"
	KindInvalidPayload     = "invalid_payload"
	KindNotFound           = "not_found"
	KindDuplicateID        = "duplicate_id"
	KindUnauthorized       = "unauthorized"
	KindInternal           = "internal"
)

var kindSentinels = map[string]error{
	KindNetworkUnavailable: queue.ErrNetworkUnavailable,
	KindPayloadTooLarge:    queue.ErrPayloadTooLarge,
	KindQueueFull:          queue.ErrQueueFull,
	KindInvalidPayload:     queue.ErrInvalidPayload,
	KindNotFound:           queue.ErrNotFound,
	KindDuplicateID:        queue.ErrDuplicateID,
}

// ErrorStatus maps err onto an HTTP status and error kind.
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, queue.ErrNotFound):
		return http.StatusNotFound, KindNotFound
	case errors.Is(err, queue.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, KindPayloadTooLarge
	case errors.Is(err, queue.ErrQueueFull):
		return http.StatusTooManyRequests, KindQueueFull
	case errors.Is(err, queue.ErrInvalidPayload):
		return http.StatusBadRequest, KindInvalidPayload
	case errors.Is(err, queue.ErrDuplicateID):
		return http.StatusConflict, KindDuplicateID
	case errors.Is(err, queue.ErrNetworkUnavailable):
		return http.StatusServiceUnavailable, KindNetworkUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, KindInternal
	default:
		return http.StatusInternalServerError, KindInternal
	}
}

// NewErrorResponse builds the error body for err.
func NewErrorResponse(err error) (int, ErrorResponse) {
	status, kind := ErrorStatus(err)
	return status, ErrorResponse{Error: err.Error(), Kind: kind}
}

// Error is a decoded API error. It unwraps to the matching queue sentinel.
type Error struct {
	StatusCode int
	Kind       string
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("daemon api: %s (status %d)", e.Message, e.StatusCode)
}

// Unwrap returns the queue sentinel for the error kind, if any.
func (e *Error) Unwrap() error {
	return kindSentinels[e.Kind]
}

// DecodeError turns an error body back into an error.
func DecodeError(status int, body ErrorResponse) error {
	message := body.Error
	if message == "" {
		message = http.StatusText(status)
	}
	return &Error{StatusCode: status, Kind: body.Kind, Message: message}
}
