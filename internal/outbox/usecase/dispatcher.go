package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/allisson/ledger/internal/broker"
	"github.com/allisson/ledger/internal/database"
	"github.com/allisson/ledger/internal/metrics"
	"github.com/allisson/ledger/internal/outbox/domain"
)

// Config holds dispatcher configuration.
type Config struct {
	BatchSize     int
	BaseDelay     time.Duration
	MaxAttempts   int
	// ParkExhausted stops scheduling messages that reached MaxAttempts.
	ParkExhausted bool
	BusyInterval  time.Duration
	IdleInterval  time.Duration
	Lease         time.Duration
}

// dispatcher moves outbox messages to the broker.
type dispatcher struct {
	config    Config
	txManager database.TxManager
	repo      MessageRepository
	publisher Publisher
	metrics   metrics.BusinessMetrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(
	cfg Config,
	txManager database.TxManager,
	repo MessageRepository,
	publisher Publisher,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) Dispatcher {
	if businessMetrics == nil {
		businessMetrics = metrics.NewNoOpBusinessMetrics()
	}
	return &dispatcher{
		config:    cfg,
		txManager: txManager,
		repo:      repo,
		publisher: publisher,
		metrics:   businessMetrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start runs dispatch iterations until ctx is cancelled. Iteration errors are logged and
// never stop the loop.
func (d *dispatcher) Start(ctx context.Context) error {
	d.logger.Info("starting outbox dispatcher",
		slog.Int("batch_size", d.config.BatchSize),
		slog.Duration("base_delay", d.config.BaseDelay),
		slog.Bool("park_exhausted", d.config.ParkExhausted),
	)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("stopping outbox dispatcher")
			return ctx.Err()
		case <-timer.C:
		}

		wait := d.config.IdleInterval
		n, err := d.DispatchBatch(ctx)
		if err != nil && ctx.Err() == nil {
			d.logger.Error("outbox dispatch iteration failed", slog.Any("error", err))
		}
		if n > 0 {
			wait = d.config.BusyInterval
		}
		timer.Reset(wait)
	}
}

// DispatchBatch publishes up to BatchSize due messages oldest first and returns how many
// it attempted.
func (d *dispatcher) DispatchBatch(ctx context.Context) (int, error) {
	messages, err := d.repo.ListDue(ctx, d.now(), d.config.BatchSize)
	if err != nil {
		return 0, err
	}

	attempted := 0
	for _, msg := range messages {
		if ctx.Err() != nil {
			return attempted, ctx.Err()
		}

		claimed, err := d.claim(ctx, msg)
		if err != nil {
			return attempted, err
		}
		if !claimed {
			continue
		}

		attempted++
		if err := d.dispatch(ctx, msg); err != nil {
			return attempted, err
		}
	}

	return attempted, nil
}

func (d *dispatcher) claim(ctx context.Context, msg *domain.Message) (bool, error) {
	var claimed bool
	err := d.txManager.WithTx(ctx, func(ctx context.Context) error {
		now := d.now()
		ok, err := d.repo.Claim(ctx, msg.ID, now, now.Add(d.config.Lease))
		claimed = ok
		return err
	})
	return claimed, err
}

// dispatch publishes one claimed message and records the outcome. Only bookkeeping
// failures are returned; publish failures are recorded on the row.
func (d *dispatcher) dispatch(ctx context.Context, msg *domain.Message) error {
	start := time.Now()
	pubErr := d.publisher.Publish(ctx, toBrokerMessage(msg))

	status := metrics.Outcome(pubErr)
	d.metrics.RecordOperation(ctx, "outbox", "publish", status)
	d.metrics.RecordDuration(ctx, "outbox", "publish", time.Since(start), status)

	if pubErr == nil {
		return d.repo.MarkPublished(ctx, msg.ID, d.now())
	}

	attempts := msg.Attempts + 1
	now := d.now()
	next := now.Add(domain.Backoff(d.config.BaseDelay, attempts))
	nextAttemptAt := &next

	logAttrs := []any{
		slog.String("message_id", msg.ID.String()),
		slog.String("event_type", msg.EventType),
		slog.String("routing_key", msg.RoutingKey),
		slog.Int("attempts", attempts),
		slog.Any("error", pubErr),
	}

	if attempts >= d.config.MaxAttempts {
		if d.config.ParkExhausted {
			nextAttemptAt = nil
			d.logger.Warn("outbox message exhausted its attempts and was parked", logAttrs...)
		} else {
			d.logger.Warn("outbox message exceeded max attempts, retrying anyway", logAttrs...)
		}
	} else {
		d.logger.Error("failed to publish outbox message", logAttrs...)
	}

	return d.repo.MarkFailed(ctx, msg.ID, attempts, nextAttemptAt, pubErr.Error())
}

func toBrokerMessage(msg *domain.Message) broker.Message {
	headers := make(map[string]string, len(msg.Headers))
	for k, v := range msg.Headers {
		headers[k] = v
	}
	return broker.Message{
		ID:         msg.ID.String(),
		RoutingKey: msg.RoutingKey,
		Headers:    headers,
		Body:       []byte(msg.Payload),
	}
}

func jsonString(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return string(data), nil
}
