package history

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"lapse/internal/logging"
	"lapse/internal/render"
)

// Recorder appends a history row for every terminal lifecycle event.
type Recorder struct {
	store   *Store
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewRecorder wires a Recorder to store. A nil store makes every call a no-op.
func NewRecorder(store *Store, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:   store,
		logger:  logging.NewComponentLogger(logger, "history"),
		timeout: 5 * time.Second,
		now:     time.Now,
	}
}

func (r *Recorder) PrerenderStart(render.Payload) {}

func (r *Recorder) RenderStart(render.Payload) {}

func (r *Recorder) RenderSuccess(p render.Payload) {
	r.append(RecordFromPayload(p, nil, r.now()))
}

func (r *Recorder) RenderError(p render.Payload, err *render.Error) {
	if err == nil {
		err = render.AsError(errUnknown)
	}
	r.append(RecordFromPayload(p, err, r.now()))
}

func (r *Recorder) RenderEnd() {}

func (r *Recorder) append(rec Record) {
	if r == nil || r.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if _, err := r.store.Append(ctx, rec); err != nil {
		logging.WarnWithContext(r.logger, "render history write failed", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldJobID, rec.JobID),
			logging.String(logging.FieldImpact, "the job will be missing from render history"),
			logging.String(logging.FieldErrorHint, "check permissions on "+r.store.Path()),
		)
	}
}

var errUnknown = errors.New("render failed without an error value")
