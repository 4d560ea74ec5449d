package workflow

import (
	"log/slog"

	"lapse/internal/events"
	"lapse/internal/logging"
	"lapse/internal/render"
)

// forwarder relays pipeline callbacks to the processor's listener.
type forwarder struct {
	listener events.Listener
	logger   *slog.Logger
}

func (f *forwarder) PrerenderStart(p render.Payload) {
	f.logger.Debug("sending prerender start message", logging.String(logging.FieldEventType, string(events.TypePrerenderStart)))
	f.listener.PrerenderStart(p)
}

func (f *forwarder) RenderStart(p render.Payload) {
	f.logger.Debug("sending render start message", logging.String(logging.FieldEventType, string(events.TypeRenderStart)))
	f.listener.RenderStart(p)
}

func (f *forwarder) RenderSuccess(p render.Payload) {
	f.logger.Debug("sending render complete message", logging.String(logging.FieldEventType, string(events.TypeRenderSuccess)))
	f.listener.RenderSuccess(p)
}

func (f *forwarder) RenderError(p render.Payload, err *render.Error) {
	f.logger.Debug("sending render failed message", logging.String(logging.FieldEventType, string(events.TypeRenderError)))
	f.listener.RenderError(p, err)
}
