package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/supportflow/support-agent/internal/repository"
	"github.com/supportflow/support-agent/internal/workflow"
)

// RetryWorkerConfig holds configuration for the ticket retry worker
type RetryWorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	Concurrency  int
}

// DefaultRetryWorkerConfig returns default configuration
func DefaultRetryWorkerConfig() RetryWorkerConfig {
	return RetryWorkerConfig{
		PollInterval: 5 * time.Minute,
		BatchSize:    10,
		Concurrency:  3,
	}
}

// RetryWorker re-drives tickets that failed on a service error. Each ticket
// resumes from its durable checkpoint; nothing is replayed from scratch.
type RetryWorker struct {
	config  RetryWorkerConfig
	engine  *workflow.Engine
	tickets *repository.TicketRepository
	logger  *zap.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	isRunning bool
}

// NewRetryWorker creates a new retry worker
func NewRetryWorker(
	config RetryWorkerConfig,
	engine *workflow.Engine,
	tickets *repository.TicketRepository,
	logger *zap.Logger,
) *RetryWorker {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultRetryWorkerConfig().PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultRetryWorkerConfig().BatchSize
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultRetryWorkerConfig().Concurrency
	}

	return &RetryWorker{
		config:  config,
		engine:  engine,
		tickets: tickets,
		logger:  logger,
	}
}

// Name implements Worker.
func (w *RetryWorker) Name() string {
	return "ticket-retry"
}

// Start implements Worker.
func (w *RetryWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.isRunning = true

	go w.loop(runCtx)
	return nil
}

// Stop implements Worker.
func (w *RetryWorker) Stop() {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return
	}
	w.cancel()
	done := w.done
	w.isRunning = false
	w.mu.Unlock()

	<-done
}

func (w *RetryWorker) loop(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processBatch(ctx)
		}
	}
}

func (w *RetryWorker) processBatch(ctx context.Context) {
	batch, err := w.tickets.ListNeedingRetry(w.config.BatchSize)
	if err != nil {
		w.logger.Error("Failed to list tickets for retry", zap.Error(err))
		return
	}
	if len(batch) == 0 {
		return
	}

	w.logger.Info("Retrying failed tickets", zap.Int("count", len(batch)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.config.Concurrency)

	for _, t := range batch {
		ticketID := t.ID
		g.Go(func() error {
			// Clear the flag first so a ticket that fails again is
			// re-flagged by the engine, not stuck being retried forever
			// in the same batch.
			if err := w.tickets.SetNeedsRetry(nil, ticketID, false); err != nil {
				w.logger.Error("Failed to clear retry flag",
					zap.String("ticket_id", ticketID), zap.Error(err))
				return nil
			}

			outcome, err := w.engine.Retry(gctx, ticketID)
			if err != nil {
				w.logger.Warn("Ticket not retryable",
					zap.String("ticket_id", ticketID), zap.Error(err))
				return nil
			}

			w.logger.Info("Ticket retried",
				zap.String("ticket_id", ticketID),
				zap.String("outcome", string(outcome.Status)))
			return nil
		})
	}

	_ = g.Wait()
}
