package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"lapse/internal/config"
	"lapse/internal/events"
	"lapse/internal/render"
	"lapse/internal/workflow"
)

// BatchJob is one print to render.
type BatchJob struct {
	Info       render.JobInfo
	CameraGUID string
}

// FailedJob pairs a failed render with its error.
type FailedJob struct {
	Payload render.Payload
	Err     *render.Error
}

// BatchResult collects terminal outcomes in completion order.
type BatchResult struct {
	Succeeded []render.Payload
	Failed    []FailedJob
}

// RenderBatch renders jobs in order without a daemon and returns once the
// queue drains. Every job is validated before the first render starts.
func RenderBatch(ctx context.Context, cfg *config.Config, logger *slog.Logger, jobs []BatchJob, opts ...workflow.Option) (BatchResult, error) {
	var (
		mu     sync.Mutex
		result BatchResult
	)
	collector := events.ListenerFuncs{
		OnRenderSuccess: func(p render.Payload) {
			mu.Lock()
			result.Succeeded = append(result.Succeeded, p)
			mu.Unlock()
		},
		OnRenderError: func(p render.Payload, err *render.Error) {
			mu.Lock()
			result.Failed = append(result.Failed, FailedJob{Payload: p, Err: err})
			mu.Unlock()
		},
	}

	rt, err := Assemble(cfg, logger, AssembleOptions{
		Listeners:        []events.Listener{collector},
		ProcessorOptions: opts,
	})
	if err != nil {
		return BatchResult{}, err
	}
	defer rt.Close()

	for i, job := range jobs {
		if _, err := rt.Processor.Submit(job.Info, job.CameraGUID); err != nil {
			return BatchResult{}, fmt.Errorf("job %d: %w", i+1, err)
		}
	}
	rt.Queue.Close()

	runErr := rt.Processor.Run(ctx)
	mu.Lock()
	defer mu.Unlock()
	return result, runErr
}
