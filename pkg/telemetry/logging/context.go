package logging

import (
	"context"
)

// Context keys for common log fields.
type contextKey string

const (
	// RequestIDKey is the context key for HTTP request IDs.
	RequestIDKey contextKey = "request_id"

	// ModeKey is the context key for the record/replay mode a request runs under.
	ModeKey contextKey = "mode"

	// ConnectionIDKey is the context key for pass-through connection IDs.
	ConnectionIDKey contextKey = "connection_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithMode adds the request mode to the context.
func WithMode(ctx context.Context, mode string) context.Context {
	return context.WithValue(ctx, ModeKey, mode)
}

// GetMode retrieves the request mode from the context.
func GetMode(ctx context.Context) string {
	if mode, ok := ctx.Value(ModeKey).(string); ok {
		return mode
	}
	return ""
}

// WithConnectionID adds a pass-through connection ID to the context.
func WithConnectionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ConnectionIDKey, id)
}

// GetConnectionID retrieves the connection ID from the context.
func GetConnectionID(ctx context.Context) string {
	if id, ok := ctx.Value(ConnectionIDKey).(string); ok {
		return id
	}
	return ""
}

// extractContextFields extracts common fields from context for logging.
// Returns a slice of key-value pairs suitable for slog.
func extractContextFields(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}

	var fields []any

	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, string(RequestIDKey), requestID)
	}
	if mode := GetMode(ctx); mode != "" {
		fields = append(fields, string(ModeKey), mode)
	}
	if id := GetConnectionID(ctx); id != "" {
		fields = append(fields, string(ConnectionIDKey), id)
	}

	return fields
}
