package events

import (
	"log/slog"

	"lapse/internal/logging"
	"lapse/internal/render"
)

// Listener receives the per-job lifecycle callbacks plus the batch-level
// RenderEnd fired when the queue drains.
type Listener interface {
	render.Observer
	RenderEnd()
}

// ListenerFuncs adapts optional funcs to a Listener. Nil fields are skipped.
type ListenerFuncs struct {
	OnPrerenderStart func(render.Payload)
	OnRenderStart    func(render.Payload)
	OnRenderSuccess  func(render.Payload)
	OnRenderError    func(render.Payload, *render.Error)
	OnRenderEnd      func()
}

func (f ListenerFuncs) PrerenderStart(p render.Payload) {
	if f.OnPrerenderStart != nil {
		f.OnPrerenderStart(p)
	}
}

func (f ListenerFuncs) RenderStart(p render.Payload) {
	if f.OnRenderStart != nil {
		f.OnRenderStart(p)
	}
}

func (f ListenerFuncs) RenderSuccess(p render.Payload) {
	if f.OnRenderSuccess != nil {
		f.OnRenderSuccess(p)
	}
}

func (f ListenerFuncs) RenderError(p render.Payload, err *render.Error) {
	if f.OnRenderError != nil {
		f.OnRenderError(p, err)
	}
}

func (f ListenerFuncs) RenderEnd() {
	if f.OnRenderEnd != nil {
		f.OnRenderEnd()
	}
}

// LoggingListener writes one structured line per lifecycle event.
type LoggingListener struct {
	logger *slog.Logger
}

// NewLoggingListener returns a listener that logs through logger.
func NewLoggingListener(logger *slog.Logger) *LoggingListener {
	return &LoggingListener{logger: logging.NewComponentLogger(logger, "events")}
}

func (l *LoggingListener) PrerenderStart(p render.Payload) {
	l.logger.Info("prerender started", payloadAttrs(p, TypePrerenderStart)...)
}

func (l *LoggingListener) RenderStart(p render.Payload) {
	l.logger.Info("render started", payloadAttrs(p, TypeRenderStart)...)
}

func (l *LoggingListener) RenderSuccess(p render.Payload) {
	args := payloadAttrs(p, TypeRenderSuccess)
	args = append(args, logging.String("output", outputPath(p)))
	for _, scriptErr := range p.ScriptErrors() {
		logging.WarnWithContext(l.logger, "render hook script reported an error", "hook_script_failed",
			logging.String(logging.FieldJobID, p.JobID),
			logging.String(logging.FieldErrorKind, string(scriptErr.Kind)),
			logging.String("message", scriptErr.Message),
			logging.String(logging.FieldImpact, "the timelapse rendered but the hook did not complete"),
			logging.String(logging.FieldErrorHint, "check the camera's render scripts"),
		)
	}
	l.logger.Info("render succeeded", args...)
}

func (l *LoggingListener) RenderError(p render.Payload, err *render.Error) {
	args := payloadAttrs(p, TypeRenderError)
	if err != nil {
		args = append(args,
			logging.String(logging.FieldErrorKind, string(err.Kind)),
			logging.String("message", err.Message),
		)
	}
	l.logger.Warn("render failed", args...)
}

func (l *LoggingListener) RenderEnd() {
	l.logger.Info("render queue drained", logging.String(logging.FieldEventType, string(TypeRenderEnd)))
}

func payloadAttrs(p render.Payload, eventType Type) []any {
	return logging.Args(
		logging.String(logging.FieldEventType, string(eventType)),
		logging.String(logging.FieldJobID, p.JobID),
		logging.String(logging.FieldCamera, p.CameraName),
		logging.Int("job_number", p.JobNumber),
		logging.Int("jobs_remaining", p.JobsRemaining),
	)
}

func outputPath(p render.Payload) string {
	if p.Synchronize && p.SynchronizationFilename != "" {
		return p.SynchronizationPath()
	}
	return p.RenderingPath()
}
