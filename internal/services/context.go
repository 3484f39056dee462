package services

import "context"

type contextKey string

const (
	runIDKey      contextKey = "run_id"
	findingKeyKey contextKey = "finding_key"
	itemIndexKey  contextKey = "item_index"
	requestIDKey  contextKey = "request_id"
)

// WithRunID annotates context with the identifier of the current invocation.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the invocation identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithFindingKey annotates context with the static-analysis finding being processed.
func WithFindingKey(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, findingKeyKey, key)
}

// FindingKeyFromContext returns the finding key if present.
func FindingKeyFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(findingKeyKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithItemIndex annotates context with the 1-based position of the item in a batch.
func WithItemIndex(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, itemIndexKey, index)
}

// ItemIndexFromContext extracts the batch position if present.
func ItemIndexFromContext(ctx context.Context) (int, bool) {
	v := ctx.Value(itemIndexKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	default:
		return 0, false
	}
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
