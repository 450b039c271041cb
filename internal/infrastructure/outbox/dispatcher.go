package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/corebank/ledgersvc/internal/domain"
	"github.com/corebank/ledgersvc/internal/infrastructure/metrics"
	"github.com/corebank/ledgersvc/internal/usecase"
)

// Dispatcher drains the event outbox and hands events to a Publisher.
// Delivery is at least once: an event is marked processed only after the
// publisher accepted it, so a crash between the two replays the event on the
// next pass. Consumers dedupe on the event ID.
type Dispatcher struct {
	outboxRepo  usecase.OutboxRepository
	publisher   Publisher
	logger      *slog.Logger
	metrics     *metrics.Metrics
	batchSize   int
	interval    time.Duration
	claimTTL    time.Duration
	maxAttempts int
}

// Publisher delivers a single outbox event to the downstream bus.
type Publisher interface {
	Publish(ctx context.Context, event *domain.OutboxEvent) error
}

// Config for Dispatcher.
type Config struct {
	OutboxRepo usecase.OutboxRepository
	Publisher  Publisher
	Logger     *slog.Logger
	Metrics    *metrics.Metrics

	BatchSize int           // Number of events to claim per pass
	Interval  time.Duration // Polling interval
	ClaimTTL  time.Duration // Claims older than this are considered abandoned
	// Events that failed this many times are left for manual inspection.
	// Zero means retry forever.
	MaxAttempts int
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.ClaimTTL == 0 {
		cfg.ClaimTTL = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Dispatcher{
		outboxRepo:  cfg.OutboxRepo,
		publisher:   cfg.Publisher,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		batchSize:   cfg.BatchSize,
		interval:    cfg.Interval,
		claimTTL:    cfg.ClaimTTL,
		maxAttempts: cfg.MaxAttempts,
	}
}

// Start begins the dispatch worker. It runs until the context is cancelled.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.logger.Info("outbox dispatcher started",
		slog.Int("batch_size", d.batchSize),
		slog.Duration("interval", d.interval),
		slog.Int("max_attempts", d.maxAttempts))

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	// Drain whatever accumulated while we were down.
	if err := d.processBatch(ctx); err != nil {
		d.logger.Error("error processing outbox batch on start", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("outbox dispatcher shutting down")
			return ctx.Err()
		case <-ticker.C:
			if err := d.processBatch(ctx); err != nil {
				d.logger.Error("error processing outbox batch", slog.String("error", err.Error()))
			}
		}
	}
}

// processBatch claims and publishes one batch of unprocessed events.
func (d *Dispatcher) processBatch(ctx context.Context) error {
	events, err := d.outboxRepo.ClaimBatch(ctx, d.batchSize, d.claimTTL, d.maxAttempts)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		return nil
	}

	d.logger.Info("dispatching outbox events", slog.Int("count", len(events)))

	for _, event := range events {
		if err := d.dispatchEvent(ctx, event); err != nil {
			d.logger.Error("failed to publish event",
				slog.String("event_id", event.ID),
				slog.String("event_type", event.EventType),
				slog.Int("retry_count", event.RetryCount),
				slog.String("error", err.Error()))

			if d.metrics != nil {
				d.metrics.OutboxPublishFailures.WithLabelValues(event.EventType).Inc()
			}

			// Record the failure and release the claim; the event is
			// retried on a later pass.
			if recErr := d.outboxRepo.RecordError(ctx, event.ID, err.Error()); recErr != nil {
				d.logger.Error("failed to record outbox error",
					slog.String("event_id", event.ID),
					slog.String("error", recErr.Error()))
			}
			continue
		}

		if err := d.outboxRepo.MarkProcessed(ctx, event.ID, time.Now().UTC()); err != nil {
			// The event was published but not acknowledged. It will be
			// delivered again; that is the at-least-once contract.
			d.logger.Error("failed to mark event processed",
				slog.String("event_id", event.ID),
				slog.String("error", err.Error()))
			continue
		}

		if d.metrics != nil {
			d.metrics.OutboxEventsPublished.WithLabelValues(event.EventType).Inc()
		}
	}

	return nil
}

func (d *Dispatcher) dispatchEvent(ctx context.Context, event *domain.OutboxEvent) error {
	d.logger.Debug("publishing event",
		slog.String("event_id", event.ID),
		slog.String("event_type", event.EventType),
		slog.String("aggregate_type", event.AggregateType),
		slog.String("aggregate_id", event.AggregateID))

	if err := d.publisher.Publish(ctx, event); err != nil {
		return err
	}

	d.logger.Info("event published",
		slog.String("event_id", event.ID),
		slog.String("event_type", event.EventType))

	return nil
}
