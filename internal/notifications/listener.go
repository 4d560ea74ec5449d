package notifications

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"lapse/internal/logging"
	"lapse/internal/render"
)

// Listener publishes render outcomes and a summary when the queue drains.
type Listener struct {
	service Service
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time

	mu         sync.Mutex
	batchStart time.Time
	succeeded  int
	failed     int
}

// NewListener adapts service to the render lifecycle.
func NewListener(service Service, logger *slog.Logger) *Listener {
	if service == nil {
		service = noopService{}
	}
	return &Listener{
		service: service,
		logger:  logging.NewComponentLogger(logger, "notifications"),
		timeout: 15 * time.Second,
		now:     time.Now,
	}
}

func (l *Listener) PrerenderStart(render.Payload) {
	l.mu.Lock()
	if l.batchStart.IsZero() {
		l.batchStart = l.now()
	}
	l.mu.Unlock()
}

func (l *Listener) RenderStart(render.Payload) {}

func (l *Listener) RenderSuccess(p render.Payload) {
	l.mu.Lock()
	l.succeeded++
	l.mu.Unlock()

	output := p.RenderingPath()
	if p.Synchronize && p.SynchronizationFilename != "" {
		output = p.SynchronizationPath()
	}
	var warnings []string
	for _, scriptErr := range p.ScriptErrors() {
		warnings = append(warnings, scriptErr.Message)
	}
	l.publish(EventRenderSucceeded, Payload{
		"output":       output,
		"camera":       p.CameraName,
		"scriptErrors": strings.Join(warnings, "; "),
	})
}

func (l *Listener) RenderError(p render.Payload, err *render.Error) {
	l.mu.Lock()
	l.failed++
	l.mu.Unlock()

	payload := Payload{"job": p.JobID}
	if err != nil {
		payload["kind"] = string(err.Kind)
		payload["message"] = err.Message
	}
	l.publish(EventRenderFailed, payload)
}

func (l *Listener) RenderEnd() {
	l.mu.Lock()
	start := l.batchStart
	succeeded, failed := l.succeeded, l.failed
	l.batchStart = time.Time{}
	l.succeeded, l.failed = 0, 0
	l.mu.Unlock()

	if succeeded+failed == 0 {
		return
	}
	duration := time.Duration(0)
	if !start.IsZero() {
		duration = l.now().Sub(start)
	}
	l.publish(EventBatchCompleted, Payload{
		"succeeded": succeeded,
		"failed":    failed,
		"duration":  duration,
	})
}

func (l *Listener) publish(event Event, payload Payload) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	if err := l.service.Publish(ctx, event, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			l.logger.Debug("notification cancelled", logging.String("event", string(event)))
			return
		}
		logging.WarnWithContext(l.logger, "notification delivery failed", "notification_failed",
			logging.Error(err),
			logging.String("event", string(event)),
			logging.String(logging.FieldImpact, "the render outcome was not announced"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
		)
	}
}
