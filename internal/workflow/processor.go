package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"lapse/internal/config"
	"lapse/internal/events"
	"lapse/internal/logging"
	"lapse/internal/queue"
	"lapse/internal/render"
	"lapse/internal/services"
)

// JobRunner executes one render job.
type JobRunner interface {
	Run(ctx context.Context) error
}

// PipelineFactory builds the runner for a dequeued job.
type PipelineFactory func(desc *render.Descriptor, dequeue render.DequeueContext, observer render.Observer) JobRunner

// FatalError reports a job that panicked. The processor stops after
// returning it.
type FatalError struct {
	JobID string
	Value any
	Stack []byte
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("render job %s panicked: %v", e.JobID, e.Value)
}

// Processor is the single consumer of the render queue.
type Processor struct {
	cfg          *config.Config
	queue        *queue.Queue
	listener     events.Listener
	logger       *slog.Logger
	baseLogger   *slog.Logger
	pollInterval time.Duration
	factory      PipelineFactory

	mu         sync.RWMutex
	running    bool
	processing bool
	completed  int
	lastErr    error
	lastJobID  string
}

// Option configures optional Processor behavior.
type Option func(*Processor)

// WithPipelineFactory replaces the render pipeline constructor.
func WithPipelineFactory(factory PipelineFactory) Option {
	return func(p *Processor) {
		if factory != nil {
			p.factory = factory
		}
	}
}

// WithPollInterval overrides workflow.queue_poll_seconds.
func WithPollInterval(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

// NewProcessor binds a processor to the shared queue. listener receives every
// lifecycle callback; nil discards them.
func NewProcessor(cfg *config.Config, q *queue.Queue, listener events.Listener, logger *slog.Logger, opts ...Option) *Processor {
	if listener == nil {
		listener = events.ListenerFuncs{}
	}
	p := &Processor{
		cfg:          cfg,
		queue:        q,
		listener:     listener,
		logger:       logging.NewComponentLogger(logger, "workflow"),
		baseLogger:   logger,
		pollInterval: time.Duration(cfg.Workflow.QueuePollSeconds) * time.Second,
	}
	if p.pollInterval <= 0 {
		p.pollInterval = 5 * time.Second
	}
	p.factory = p.newPipeline
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Processor) newPipeline(desc *render.Descriptor, dequeue render.DequeueContext, observer render.Observer) JobRunner {
	return render.NewPipeline(desc, dequeue, observer, render.Options{
		Logger:        p.baseLogger,
		OutputDir:     p.cfg.TimelapseDir(),
		SyncDir:       p.cfg.Paths.SyncDir,
		WorkDir:       p.cfg.Paths.WorkDir,
		LockPath:      p.cfg.Workflow.RenderLockPath,
		ScriptTimeout: time.Duration(p.cfg.Workflow.ScriptTimeoutSeconds) * time.Second,
	})
}

// Run consumes the queue until ctx ends or the queue is closed and drained.
// Render failures are reported through the listener and do not stop the
// loop; only a *FatalError or a queue fault is returned.
func (p *Processor) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errors.New("processor already running")
	}
	p.running = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	p.logger.Info("render queue processor started",
		logging.String(logging.FieldEventType, "processor_start"),
		logging.Duration("poll_interval", p.pollInterval),
	)
	for {
		desc, err := p.queue.Get(ctx, p.pollInterval)
		if err != nil {
			if errors.Is(err, queue.ErrClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				p.logger.Info("render queue processor stopped",
					logging.String(logging.FieldEventType, "processor_stop"),
					logging.Int("completed_jobs", p.Completed()),
				)
				return nil
			}
			p.setLastError(err)
			return fmt.Errorf("read render queue: %w", err)
		}
		if desc == nil {
			p.clearStaleProcessing()
			continue
		}
		if err := p.process(ctx, desc); err != nil {
			return err
		}
	}
}

func (p *Processor) process(ctx context.Context, desc *render.Descriptor) error {
	p.mu.Lock()
	p.completed++
	dequeue := render.DequeueContext{JobNumber: p.completed, JobsRemaining: p.queue.Len()}
	p.processing = true
	p.lastJobID = desc.JobID
	p.mu.Unlock()

	jobCtx := services.WithJobID(ctx, desc.JobID)
	jobCtx = services.WithCamera(jobCtx, desc.Camera.Name)
	logger := logging.WithContext(jobCtx, p.logger)
	logger.Info("render job dequeued",
		logging.String(logging.FieldEventType, "job_dequeued"),
		logging.Int("job_number", dequeue.JobNumber),
		logging.Int("jobs_remaining", dequeue.JobsRemaining),
	)

	fatal := p.execute(jobCtx, logger, desc, dequeue)
	p.queue.TaskDone()

	if fatal != nil {
		p.setProcessing(false)
		p.setLastError(fatal)
		logging.ErrorWithContext(logger, "render job panicked; processor stopping", "processor_fatal",
			logging.Error(fatal),
			logging.String("stack", string(fatal.Stack)),
			logging.Alert("processor_fatal"),
			logging.String(logging.FieldImpact, "queued renders will not run until lapse restarts"),
		)
		return fatal
	}

	if p.queue.Len() == 0 {
		p.setProcessing(false)
		logger.Debug("sending render end message", logging.String(logging.FieldEventType, "render_end"))
		p.listener.RenderEnd()
	}
	return nil
}

func (p *Processor) execute(ctx context.Context, logger *slog.Logger, desc *render.Descriptor, dequeue render.DequeueContext) (fatal *FatalError) {
	defer func() {
		if r := recover(); r != nil {
			fatal = &FatalError{JobID: desc.JobID, Value: r, Stack: debug.Stack()}
		}
	}()

	runner := p.factory(desc, dequeue, &forwarder{listener: p.listener, logger: logger})
	if err := runner.Run(ctx); err != nil {
		p.setLastError(err)
		logger.Debug("render job finished with error", logging.Error(err))
		return nil
	}
	logger.Debug("render job finished")
	return nil
}

// IsProcessing reports whether a job is currently being rendered.
func (p *Processor) IsProcessing() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.processing
}

// Completed reports how many jobs have been dequeued since start.
func (p *Processor) Completed() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.completed
}

func (p *Processor) clearStaleProcessing() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.processing && p.queue.Len() == 0 {
		p.processing = false
	}
}

func (p *Processor) setProcessing(v bool) {
	p.mu.Lock()
	p.processing = v
	p.mu.Unlock()
}

func (p *Processor) setLastError(err error) {
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
}
