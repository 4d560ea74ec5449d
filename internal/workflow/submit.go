package workflow

import (
	"strings"

	"github.com/google/uuid"

	"lapse/internal/config"
	"lapse/internal/queue"
	"lapse/internal/render"
	"lapse/internal/services"
)

// Submit builds a descriptor for info against the current rendering profile
// and enqueues it. A missing job GUID is generated. Cameras absent from the
// configuration render without hook scripts.
func (p *Processor) Submit(info render.JobInfo, cameraGUID string) (*render.Descriptor, error) {
	return Submit(p.cfg, p.queue, info, cameraGUID)
}

// Submit is the queue-side half of Processor.Submit, usable before a
// processor exists.
func Submit(cfg *config.Config, q *queue.Queue, info render.JobInfo, cameraGUID string) (*render.Descriptor, error) {
	cameraGUID = strings.TrimSpace(cameraGUID)
	if cameraGUID == "" {
		return nil, services.Wrap(services.ErrValidation, "workflow", "submit", "camera guid is required", nil)
	}
	if strings.TrimSpace(info.JobGUID) == "" {
		info.JobGUID = uuid.NewString()
	}
	camera, ok := cfg.Camera(cameraGUID)
	if !ok {
		camera = config.Camera{GUID: cameraGUID}
	}
	desc, err := render.NewDescriptor(info, cfg.Paths.DataDir, camera, cfg.Rendering, cfg.FFmpeg.Binary)
	if err != nil {
		return nil, err
	}
	if err := q.Enqueue(desc); err != nil {
		return nil, err
	}
	return desc, nil
}
