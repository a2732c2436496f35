package logging

import (
	"context"
	"log/slog"

	"slidecue/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for run identifiers.
	FieldRunID = "run_id"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldInput is the standardized structured logging key for the lecture name.
	FieldInput = "input"
	// FieldEventType classifies warnings for log filtering.
	FieldEventType = "event_type"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldFrame is the standardized key for video frame numbers.
	FieldFrame = "frame"
	// FieldSlide is the standardized key for 1-based slide page numbers.
	FieldSlide = "slide"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	if name, ok := services.InputFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldInput, name))
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
	return logger.With(args(fields)...)
}
