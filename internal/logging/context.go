package logging

import (
	"context"
	"log/slog"

	"lapse/internal/services"
)

// Field names shared by every component so log lines can be filtered
// uniformly across the daemon and the CLI.
const (
	FieldComponent     = "component"
	FieldJobID         = "job_id"
	FieldStage         = "stage"
	FieldCamera        = "camera"
	FieldCorrelationID = "correlation_id"
	FieldEventType     = "event_type"
	FieldErrorHint     = "error_hint"
	FieldErrorKind     = "error_kind"
	FieldImpact        = "impact"
	FieldAlert         = "alert"
)

var contextFields = []struct {
	key    string
	lookup func(context.Context) (string, bool)
}{
	{FieldJobID, services.JobIDFromContext},
	{FieldStage, services.StageFromContext},
	{FieldCamera, services.CameraFromContext},
	{FieldCorrelationID, services.RequestIDFromContext},
}

// WithContext returns logger extended with whatever job, stage, camera and
// request identifiers ctx carries.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	var args []any
	for _, field := range contextFields {
		if value, ok := field.lookup(ctx); ok {
			args = append(args, slog.String(field.key, value))
		}
	}
	if len(args) == 0 {
		return logger
	}
	return logger.With(args...)
}
