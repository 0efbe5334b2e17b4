package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Sweeper evicts idle state and reports how much it removed.
type Sweeper interface {
	Sweep(now time.Time) int
}

// Config holds worker configuration
type Config struct {
	// WorkerID uniquely identifies this worker instance
	WorkerID string

	// PollInterval is how often to sweep
	PollInterval time.Duration
}

// Worker periodically sweeps idle carts out of memory.
type Worker struct {
	config  Config
	sweeper Sweeper
	logger  *slog.Logger
	now     func() time.Time
}

// NewWorker creates a new background sweeper
func NewWorker(sweeper Sweeper, config Config, logger *slog.Logger) *Worker {
	// Set defaults
	if config.WorkerID == "" {
		config.WorkerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if config.PollInterval == 0 {
		config.PollInterval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		config:  config,
		sweeper: sweeper,
		logger:  logger,
		now:     time.Now,
	}
}

// Start sweeps on every tick until the context is cancelled
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("worker starting",
		"worker_id", w.config.WorkerID,
		"poll_interval", w.config.PollInterval,
	)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker shutting down", "worker_id", w.config.WorkerID)
			return ctx.Err()

		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *Worker) sweep() {
	if n := w.sweeper.Sweep(w.now()); n > 0 {
		w.logger.Debug("evicted idle carts", "worker_id", w.config.WorkerID, "count", n)
	}
}
