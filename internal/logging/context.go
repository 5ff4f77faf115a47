package logging

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSessionID identifies the enrichment session a log line belongs to.
	FieldSessionID = "session_id"
	// FieldRowID identifies the enrichment row a log line belongs to.
	FieldRowID = "row_id"
	// FieldStage is the pipeline stage (vendor or fallback).
	FieldStage = "stage"
	// FieldProvider names the provider class involved in a call.
	FieldProvider = "provider"
	// FieldAttempt is the 1-based attempt number of a retried call.
	FieldAttempt = "attempt"
	// FieldEventType is a stable machine-readable event name.
	FieldEventType = "event_type"
	// FieldErrorHint is a short next step for the operator.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldCorrelationID is the standardized key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
)

type contextKey int

const (
	sessionIDKey contextKey = iota
	rowIDKey
	stageKey
	requestIDKey
)

// WithSessionID returns a context carrying the session identifier.
func WithSessionID(ctx context.Context, id string) context.Context {
	return withValue(ctx, sessionIDKey, id)
}

// WithRowID returns a context carrying the row identifier.
func WithRowID(ctx context.Context, id string) context.Context {
	return withValue(ctx, rowIDKey, id)
}

// WithStage returns a context carrying the pipeline stage.
func WithStage(ctx context.Context, stage string) context.Context {
	return withValue(ctx, stageKey, stage)
}

// WithRequestID returns a context carrying an API request identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey, id)
}

func withValue(ctx context.Context, key contextKey, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(key).(string)
	return value, ok && value != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	fields := make([]slog.Attr, 0, 4)
	if id, ok := stringFrom(ctx, sessionIDKey); ok {
		fields = append(fields, slog.String(FieldSessionID, id))
	}
	if id, ok := stringFrom(ctx, rowIDKey); ok {
		fields = append(fields, slog.String(FieldRowID, id))
	}
	if stage, ok := stringFrom(ctx, stageKey); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if rid, ok := stringFrom(ctx, requestIDKey); ok {
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
