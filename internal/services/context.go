package services

import "context"

type contextKey string

const (
	runIDKey  contextKey = "run_id"
	objectKey contextKey = "object"
	stepKey   contextKey = "step"
)

// WithRunID annotates context with the pipeline run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(runIDKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithObject annotates context with the canonical object identity string.
func WithObject(ctx context.Context, object string) context.Context {
	if object == "" {
		return ctx
	}
	return context.WithValue(ctx, objectKey, object)
}

// ObjectFromContext returns the object identity string if present.
func ObjectFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(objectKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithStep annotates context with the pipeline step name.
func WithStep(ctx context.Context, step string) context.Context {
	if step == "" {
		return ctx
	}
	return context.WithValue(ctx, stepKey, step)
}

// StepFromContext returns the step name if present.
func StepFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(stepKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}
