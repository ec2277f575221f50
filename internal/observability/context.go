package observability

import (
	"context"
)

// Context keys for observability data.
type contextKey string

const (
	requestIDKey contextKey = "request_id"
	importIDKey  contextKey = "import_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// WithImportID adds a CSV import run ID to the context.
func WithImportID(ctx context.Context, importID string) context.Context {
	return context.WithValue(ctx, importIDKey, importID)
}

// ImportIDFromContext retrieves the import run ID from context.
// Returns empty string if not present.
func ImportIDFromContext(ctx context.Context) string {
	if v := ctx.Value(importIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
