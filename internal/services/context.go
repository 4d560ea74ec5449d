package services

import (
	"context"
	"strings"
)

type contextKey int

const (
	jobIDKey contextKey = iota
	stageKey
	cameraKey
	requestIDKey
)

func withValue(ctx context.Context, key contextKey, value string) context.Context {
	if strings.TrimSpace(value) == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func lookup(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}

// WithJobID tags ctx with the render job being processed.
func WithJobID(ctx context.Context, id string) context.Context { return withValue(ctx, jobIDKey, id) }

// JobIDFromContext returns the render job id, if any.
func JobIDFromContext(ctx context.Context) (string, bool) { return lookup(ctx, jobIDKey) }

// WithStage tags ctx with the pipeline stage, e.g. "before-render".
func WithStage(ctx context.Context, stage string) context.Context {
	return withValue(ctx, stageKey, stage)
}

func StageFromContext(ctx context.Context) (string, bool) { return lookup(ctx, stageKey) }

// WithCamera tags ctx with the display name of the job's camera.
func WithCamera(ctx context.Context, camera string) context.Context {
	return withValue(ctx, cameraKey, camera)
}

func CameraFromContext(ctx context.Context) (string, bool) { return lookup(ctx, cameraKey) }

// WithRequestID tags ctx with the API request that triggered the work.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) (string, bool) { return lookup(ctx, requestIDKey) }
