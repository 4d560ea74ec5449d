package daemonrun

import (
	"fmt"
	"log/slog"

	"lapse/internal/config"
	"lapse/internal/events"
	"lapse/internal/history"
	"lapse/internal/logging"
	"lapse/internal/notifications"
	"lapse/internal/queue"
	"lapse/internal/workflow"
)

// Runtime is the in-process render stack shared by the daemon and one-shot
// renders.
type Runtime struct {
	Queue     *queue.Queue
	Hub       *events.Hub
	Processor *workflow.Processor
	History   *history.Store
}

// AssembleOptions adds listeners and processor options to the runtime.
type AssembleOptions struct {
	Listeners        []events.Listener
	ProcessorOptions []workflow.Option
}

// Assemble wires the hub listeners in delivery order: log line, history
// record, notification, then any extra listeners.
func Assemble(cfg *config.Config, logger *slog.Logger, opts AssembleOptions) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	var store *history.Store
	if cfg.History.Enabled {
		var err error
		store, err = history.Open(cfg.HistoryPath())
		if err != nil {
			return nil, fmt.Errorf("open render history: %w", err)
		}
	}

	hub := events.NewHub(0)
	hub.Register(events.NewLoggingListener(logger))
	if store != nil {
		hub.Register(history.NewRecorder(store, logger))
	}
	hub.Register(notifications.NewListener(notifications.NewService(cfg), logger))
	for _, listener := range opts.Listeners {
		hub.Register(listener)
	}

	q := queue.New()
	return &Runtime{
		Queue:     q,
		Hub:       hub,
		Processor: workflow.NewProcessor(cfg, q, hub, logger, opts.ProcessorOptions...),
		History:   store,
	}, nil
}

// Close releases the history store.
func (r *Runtime) Close() error {
	if r == nil || r.History == nil {
		return nil
	}
	return r.History.Close()
}
