package logging

import (
	"context"
	"log/slog"

	"ticketsmith/internal/services"
)

const (
	// FieldComponent names the subsystem emitting the record.
	FieldComponent = "component"
	// FieldRunID identifies one CLI invocation.
	FieldRunID = "run_id"
	// FieldFindingKey identifies the static-analysis finding being processed.
	FieldFindingKey = "finding_key"
	// FieldItemIndex is the 1-based position of an item within a batch.
	FieldItemIndex = "item_index"
	// FieldCorrelationID identifies an outbound request.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies a record for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step to an operator.
	FieldErrorHint = "error_hint"
	// FieldErrorKind carries services.Kind of the logged error.
	FieldErrorKind = "error_kind"
	// FieldError is the key used for error values.
	FieldError = "error"
)

// ContextFields extracts standardized attributes from ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if key, ok := services.FindingKeyFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldFindingKey, key))
	}
	if idx, ok := services.ItemIndexFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldItemIndex, idx))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns logger augmented with the fields carried by ctx.
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
