package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"lapse/internal/api"
	"lapse/internal/config"
	"lapse/internal/deps"
	"lapse/internal/events"
	"lapse/internal/history"
	"lapse/internal/logging"
	"lapse/internal/queue"
	"lapse/internal/render"
	"lapse/internal/services"
	"lapse/internal/workflow"
)

const (
	// LockFileName is the single-instance lock inside the log directory.
	LockFileName = "lapsed.lock"
	// PIDFileName records the daemon process id inside the log directory.
	PIDFileName = "lapsed.pid"
)

// Daemon coordinates the queue processor and API server and enforces
// single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	queue     *queue.Queue
	processor *workflow.Processor
	hub       *events.Hub
	history   *history.Store

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	addrMu  sync.RWMutex
	addr    string
}

// New constructs a daemon around already wired components. store may be nil
// when history is disabled.
func New(cfg *config.Config, logger *slog.Logger, q *queue.Queue, proc *workflow.Processor, hub *events.Hub, store *history.Store) (*Daemon, error) {
	if cfg == nil || q == nil || proc == nil || hub == nil {
		return nil, errors.New("daemon requires config, queue, processor, and event hub")
	}
	lockPath := filepath.Join(cfg.Paths.LogDir, LockFileName)
	return &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		queue:     q,
		processor: proc,
		hub:       hub,
		history:   store,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// Run acquires the daemon lock and serves until ctx ends or the processor
// hits a fatal error.
func (d *Daemon) Run(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another lapse daemon instance is already running")
	}
	defer func() {
		if err := d.lock.Unlock(); err != nil {
			d.logger.Warn("failed to release daemon lock", logging.Error(err))
		}
	}()

	handler := api.NewRouter(api.Options{
		Backend: d,
		Hub:     d.hub,
		Logger:  d.logger,
		Token:   d.cfg.API.Token,
	})
	srv, err := newAPIServer(d.cfg.API.Bind, handler, d.logger)
	if err != nil {
		return err
	}
	d.setAddr(srv.addr())

	d.running.Store(true)
	defer d.running.Store(false)
	d.logger.Info("lapse daemon started",
		logging.String(logging.FieldEventType, "daemon_start"),
		logging.String("lock", d.lockPath),
		logging.String("address", srv.addr()),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := d.processor.Run(gctx); err != nil {
			return err
		}
		// The processor only returns nil once the context ends.
		<-gctx.Done()
		return nil
	})
	g.Go(func() error {
		return srv.serve(gctx)
	})
	err = g.Wait()
	d.queue.Close()
	d.setAddr("")

	if err != nil {
		var fatal *workflow.FatalError
		if errors.As(err, &fatal) {
			logging.ErrorWithContext(d.logger, "lapse daemon stopping after fatal render error", "daemon_fatal",
				logging.Error(err),
				logging.Alert("daemon_fatal"),
				logging.String(logging.FieldImpact, "pending renders were dropped"),
			)
		}
		return err
	}
	d.logger.Info("lapse daemon stopped",
		logging.String(logging.FieldEventType, "daemon_stop"),
		logging.Int("pending_jobs", d.queue.Len()),
	)
	return nil
}

// Addr returns the API listener address while the daemon is running.
func (d *Daemon) Addr() string {
	d.addrMu.RLock()
	defer d.addrMu.RUnlock()
	return d.addr
}

func (d *Daemon) setAddr(addr string) {
	d.addrMu.Lock()
	d.addr = addr
	d.addrMu.Unlock()
}

// LockPath returns the single-instance lock location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) api.DaemonStatus {
	status := api.DaemonStatus{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		LockFilePath: d.lockPath,
		Workflow:     api.FromStatusSummary(d.processor.Status(), d.queue.Pending()),
		Dependencies: api.FromDependencies(deps.Check(d.cfg)),
	}
	if d.history != nil {
		status.HistoryPath = d.history.Path()
	}
	return status
}

// Submit queues a render job.
func (d *Daemon) Submit(info render.JobInfo, cameraGUID string) (*render.Descriptor, error) {
	return d.processor.Submit(info, cameraGUID)
}

// History lists the most recent render outcomes.
func (d *Daemon) History(ctx context.Context, limit int) ([]history.Record, error) {
	if d.history == nil {
		return nil, services.Wrap(services.ErrConfiguration, "daemon", "history", "render history is disabled", nil)
	}
	return d.history.List(ctx, limit)
}
