package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldItemID is the standardized structured logging key for queue item identifiers.
	FieldItemID = "item_id"
	// FieldItemType is the standardized structured logging key for queue item types.
	FieldItemType = "item_type"
	// FieldOrganizationID identifies the organization a queue operation is scoped to.
	FieldOrganizationID = "organization_id"
	// FieldUserID identifies the user a queue operation is scoped to.
	FieldUserID = "user_id"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to try next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
)

type contextKey int

const (
	scopeKey contextKey = iota
	itemKey
	requestKey
)

type scopeValue struct {
	organizationID string
	userID         string
}

type itemValue struct {
	id       string
	itemType string
}

// WithScope records the organization and user for later log enrichment.
func WithScope(ctx context.Context, organizationID, userID string) context.Context {
	return context.WithValue(ctx, scopeKey, scopeValue{organizationID: organizationID, userID: userID})
}

// WithItem records the queue item currently being processed.
func WithItem(ctx context.Context, id, itemType string) context.Context {
	return context.WithValue(ctx, itemKey, itemValue{id: id, itemType: itemType})
}

// WithRequestID records an API request correlation id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestKey, id)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 5)
	if scope, ok := ctx.Value(scopeKey).(scopeValue); ok {
		if scope.organizationID != "" {
			fields = append(fields, slog.String(FieldOrganizationID, scope.organizationID))
		}
		if scope.userID != "" {
			fields = append(fields, slog.String(FieldUserID, scope.userID))
		}
	}
	if item, ok := ctx.Value(itemKey).(itemValue); ok {
		if item.id != "" {
			fields = append(fields, slog.String(FieldItemID, item.id))
		}
		if item.itemType != "" {
			fields = append(fields, slog.String(FieldItemType, item.itemType))
		}
	}
	if rid, ok := ctx.Value(requestKey).(string); ok && rid != "" {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
