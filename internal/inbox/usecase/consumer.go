package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/ledger/internal/broker"
	"github.com/allisson/ledger/internal/database"
	apperrors "github.com/allisson/ledger/internal/errors"
	"github.com/allisson/ledger/internal/events"
	"github.com/allisson/ledger/internal/inbox/domain"
	"github.com/allisson/ledger/internal/metrics"
)

// ConsumerConfig holds consumer configuration.
type ConsumerConfig struct {
	// MaxRetryCount is the number of failed attempts after which a message is dead-lettered.
	MaxRetryCount int
	// ReceiveBackoff is the pause after a failed Receive.
	ReceiveBackoff time.Duration
}

// consumer applies a Handler to deliveries exactly once per message id.
type consumer struct {
	config    ConsumerConfig
	txManager database.TxManager
	repo      InboxRepository
	cache     ProcessedCache
	handler   Handler
	receiver  Receiver
	metrics   metrics.BusinessMetrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewConsumer creates a new Consumer. A nil cache disables the fast path.
func NewConsumer(
	cfg ConsumerConfig,
	txManager database.TxManager,
	repo InboxRepository,
	cache ProcessedCache,
	handler Handler,
	receiver Receiver,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) Consumer {
	if businessMetrics == nil {
		businessMetrics = metrics.NewNoOpBusinessMetrics()
	}
	if cfg.ReceiveBackoff <= 0 {
		cfg.ReceiveBackoff = time.Second
	}
	return &consumer{
		config:    cfg,
		txManager: txManager,
		repo:      repo,
		cache:     cache,
		handler:   handler,
		receiver:  receiver,
		metrics:   businessMetrics,
		logger:    logger.With(slog.String("handler", handler.Name())),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Start receives and processes deliveries until ctx is cancelled or the subscription is
// closed. Receive and processing errors are logged and never stop the loop.
func (c *consumer) Start(ctx context.Context) error {
	c.logger.Info("starting inbox consumer", slog.Int("max_retry_count", c.config.MaxRetryCount))

	for {
		delivery, err := c.receiver.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("stopping inbox consumer")
				return ctx.Err()
			}
			if errors.Is(err, broker.ErrClosed) {
				c.logger.Info("inbox subscription closed")
				return nil
			}

			c.logger.Error("failed to receive message", slog.Any("error", err))
			select {
			case <-ctx.Done():
				c.logger.Info("stopping inbox consumer")
				return ctx.Err()
			case <-time.After(c.config.ReceiveBackoff):
			}
			continue
		}

		if err := c.Process(ctx, delivery); err != nil && ctx.Err() == nil {
			c.logger.Error("failed to settle message", slog.Any("error", err))
		}
	}
}

// Process handles one delivery and settles it. The returned error only reports a failed
// ack or nack; processing failures are recorded in the inbox tables.
func (c *consumer) Process(ctx context.Context, delivery broker.Delivery) error {
	start := time.Now()
	msg := delivery.Message()

	if !c.handler.Binds(msg.RoutingKey) {
		return delivery.Ack(ctx)
	}

	messageID, err := uuid.Parse(msg.ID)
	if err != nil {
		c.logger.Error("rejecting message without a valid message id",
			slog.String("message_id", msg.ID),
			slog.String("routing_key", msg.RoutingKey),
			slog.Any("headers", msg.Headers),
			slog.String("payload", string(msg.Body)),
			slog.Any("error", fmt.Errorf("%w: %v", domain.ErrMissingMessageID, err)),
		)
		c.record(ctx, metrics.StatusRejected, start)
		return delivery.Nack(ctx, false)
	}

	if c.cachedAsProcessed(ctx, messageID) {
		c.record(ctx, metrics.StatusDuplicate, start)
		return delivery.Ack(ctx)
	}

	duplicate := false
	procErr := c.txManager.WithTx(ctx, func(ctx context.Context) error {
		record, err := c.repo.GetOrCreate(ctx, messageID, c.handler.Name(), c.now())
		if err != nil {
			return err
		}
		if record.IsProcessed() {
			duplicate = true
			return nil
		}

		in, err := inbound(msg, messageID, record.ReceivedAt)
		if err != nil {
			return err
		}
		if err := c.handler.Handle(ctx, in); err != nil {
			return err
		}
		return c.repo.MarkProcessed(ctx, messageID, c.handler.Name(), c.now())
	})
	if procErr != nil {
		return c.fail(ctx, delivery, messageID, msg, procErr, start)
	}

	if duplicate {
		c.logger.Debug("skipping already processed message", slog.String("message_id", msg.ID))
		c.record(ctx, metrics.StatusDuplicate, start)
	} else {
		c.rememberProcessed(ctx, messageID)
		c.record(ctx, metrics.StatusSuccess, start)
	}
	return delivery.Ack(ctx)
}

// fail records a failed attempt. Below MaxRetryCount the delivery is requeued; at the
// threshold the message moves to the dead-letter table and is acked.
func (c *consumer) fail(
	ctx context.Context,
	delivery broker.Delivery,
	messageID uuid.UUID,
	msg broker.Message,
	procErr error,
	start time.Time,
) error {
	attrs := []any{
		slog.String("message_id", msg.ID),
		slog.String("routing_key", msg.RoutingKey),
		slog.String("error_kind", apperrors.Kind(procErr)),
		slog.Any("error", procErr),
	}

	if ctx.Err() != nil {
		c.logger.Warn("message processing interrupted by shutdown", attrs...)
		return delivery.Nack(context.WithoutCancel(ctx), true)
	}

	var (
		retries      int
		deadLettered bool
	)
	err := c.txManager.WithTx(ctx, func(ctx context.Context) error {
		record, err := c.repo.GetOrCreate(ctx, messageID, c.handler.Name(), c.now())
		if err != nil {
			return err
		}

		retries, err = c.repo.IncrementRetry(ctx, messageID, c.handler.Name())
		if err != nil {
			return err
		}
		if retries < c.config.MaxRetryCount {
			return nil
		}

		letter := &domain.DeadLetter{
			ID:         uuid.Must(uuid.NewV7()),
			MessageID:  messageID,
			Handler:    c.handler.Name(),
			ReceivedAt: record.ReceivedAt,
			Payload:    string(msg.Body),
			Error:      procErr.Error(),
		}
		if err := c.repo.CreateDeadLetter(ctx, letter); err != nil {
			return err
		}
		deadLettered = true
		return c.repo.Delete(ctx, messageID, c.handler.Name())
	})
	if err != nil {
		c.logger.Error("failed to record message failure", append(attrs, slog.Any("bookkeeping_error", err))...)
		c.record(ctx, metrics.StatusError, start)
		return delivery.Nack(ctx, true)
	}

	attrs = append(attrs, slog.Int("retry_count", retries))
	if deadLettered {
		c.logger.Error("message exhausted its retries and was dead-lettered", attrs...)
		c.record(ctx, metrics.StatusDeadLetter, start)
		return delivery.Ack(ctx)
	}

	c.logger.Warn("failed to process message, requeueing", attrs...)
	c.record(ctx, metrics.StatusRetry, start)
	return delivery.Nack(ctx, true)
}

func (c *consumer) cachedAsProcessed(ctx context.Context, messageID uuid.UUID) bool {
	if c.cache == nil {
		return false
	}
	ok, err := c.cache.IsProcessed(ctx, messageID, c.handler.Name())
	if err != nil {
		c.logger.Warn("processed cache lookup failed",
			slog.String("message_id", messageID.String()),
			slog.Any("error", err),
		)
		return false
	}
	return ok
}

func (c *consumer) rememberProcessed(ctx context.Context, messageID uuid.UUID) {
	if c.cache == nil {
		return
	}
	if err := c.cache.MarkProcessed(ctx, messageID, c.handler.Name()); err != nil {
		c.logger.Warn("failed to write processed marker",
			slog.String("message_id", messageID.String()),
			slog.Any("error", err),
		)
	}
}

func (c *consumer) record(ctx context.Context, status string, start time.Time) {
	operation := c.handler.Name() + "_process"
	c.metrics.RecordOperation(ctx, "inbox", operation, status)
	c.metrics.RecordDuration(ctx, "inbox", operation, time.Since(start), status)
}

func inbound(msg broker.Message, messageID uuid.UUID, receivedAt time.Time) (*Inbound, error) {
	env, err := events.ParseEnvelope(msg.Body)
	if err != nil {
		return nil, err
	}

	eventType := msg.Headers[events.HeaderEventType]
	if eventType == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "missing event type header")
	}

	return &Inbound{
		MessageID:  messageID,
		RoutingKey: msg.RoutingKey,
		EventType:  eventType,
		Envelope:   env,
		Body:       msg.Body,
		ReceivedAt: receivedAt,
	}, nil
}
