package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"equipqr/internal/queue"
)

// APIError represents a non-success response from the backend.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func newAPIError(status int, message, endpoint string) *APIError {
	return &APIError{StatusCode: status, Message: message, Endpoint: endpoint}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend error: %s (status %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Transient reports whether a retry may succeed.
func (e *APIError) Transient() bool {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		// Expired sessions recover once the user signs in again.
		return true
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	default:
		return false
	}
}

// ErrorKind implements queue.ErrorClassifier.
func (e *APIError) ErrorKind() string {
	if e.Transient() {
		return "transient"
	}
	return "permanent"
}

// Unwrap maps the response onto the queue error taxonomy.
func (e *APIError) Unwrap() error {
	if e.Transient() {
		return queue.ErrTransientSync
	}
	return queue.ErrPermanentSync
}

// classifyTransport converts a failed round trip into ErrNetworkUnavailable
// unless the caller cancelled.
func classifyTransport(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", queue.ErrNetworkUnavailable, err)
}
