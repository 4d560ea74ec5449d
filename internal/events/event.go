package events

import (
	"time"

	"lapse/internal/render"
)

// Type names a lifecycle transition.
type Type string

const (
	TypePrerenderStart Type = "prerender_start"
	TypeRenderStart    Type = "render_start"
	TypeRenderSuccess  Type = "render_success"
	TypeRenderError    Type = "render_error"
	TypeRenderEnd      Type = "render_end"
)

// Event is the tagged form of a lifecycle notification. Payload is nil for
// render_end and Error is only set for render_error.
type Event struct {
	Sequence  uint64          `json:"seq"`
	Timestamp time.Time       `json:"ts"`
	Type      Type            `json:"type"`
	Payload   *render.Payload `json:"payload,omitempty"`
	Error     *render.Error   `json:"error,omitempty"`
}

// Terminal reports whether the event ends a single job.
func (e Event) Terminal() bool {
	return e.Type == TypeRenderSuccess || e.Type == TypeRenderError
}

// Dispatch delivers the event to the matching Listener method.
func (e Event) Dispatch(l Listener) {
	if l == nil {
		return
	}
	var payload render.Payload
	if e.Payload != nil {
		payload = *e.Payload
	}
	switch e.Type {
	case TypePrerenderStart:
		l.PrerenderStart(payload)
	case TypeRenderStart:
		l.RenderStart(payload)
	case TypeRenderSuccess:
		l.RenderSuccess(payload)
	case TypeRenderError:
		l.RenderError(payload, e.Error)
	case TypeRenderEnd:
		l.RenderEnd()
	}
}
