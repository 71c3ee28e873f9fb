package app

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/allisson/ledger/internal/broker"
	"github.com/allisson/ledger/internal/config"
	"github.com/allisson/ledger/internal/inbox/cache"
	inboxRepository "github.com/allisson/ledger/internal/inbox/repository"
	inboxUseCase "github.com/allisson/ledger/internal/inbox/usecase"
	outboxRepository "github.com/allisson/ledger/internal/outbox/repository"
	outboxUseCase "github.com/allisson/ledger/internal/outbox/usecase"
)

// Inbox queues, one per consumer.
const (
	QueueAntifraud = "antifraud"
	QueueAudit     = "audit"
)

// inboxStore is satisfied by both inbox repositories: they keep the inbox, the dead
// letters and the audit trail.
type inboxStore interface {
	inboxUseCase.InboxRepository
	inboxUseCase.AuditRepository
}

// OutboxRepository returns the outbox message repository based on database driver.
func (c *Container) OutboxRepository() (outboxUseCase.MessageRepository, error) {
	var err error
	c.outboxRepoInit.Do(func() {
		c.outboxRepo, err = c.initOutboxRepository()
		if err != nil {
			c.initErrors["outboxRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["outboxRepo"]; exists {
		return nil, storedErr
	}
	return c.outboxRepo, nil
}

// InboxRepository returns the inbox repository based on database driver.
func (c *Container) InboxRepository() (inboxUseCase.InboxRepository, error) {
	repo, err := c.inboxStore()
	if err != nil {
		return nil, err
	}
	return repo, nil
}

func (c *Container) inboxStore() (inboxStore, error) {
	var err error
	c.inboxRepoInit.Do(func() {
		c.inboxRepo, err = c.initInboxRepository()
		if err != nil {
			c.initErrors["inboxRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["inboxRepo"]; exists {
		return nil, storedErr
	}
	return c.inboxRepo, nil
}

// EventAppender returns the outbox appender used by the account use cases.
func (c *Container) EventAppender() (outboxUseCase.EventAppender, error) {
	var err error
	c.eventAppenderInit.Do(func() {
		var repo outboxUseCase.MessageRepository
		repo, err = c.OutboxRepository()
		if err != nil {
			err = fmt.Errorf("failed to get outbox repository for event appender: %w", err)
			c.initErrors["eventAppender"] = err
			return
		}
		c.eventAppender = outboxUseCase.NewEventAppender(repo, c.config.EventSource)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["eventAppender"]; exists {
		return nil, storedErr
	}
	return c.eventAppender, nil
}

// StatusUseCase returns the outbox backlog reporter.
func (c *Container) StatusUseCase() (outboxUseCase.StatusUseCase, error) {
	var err error
	c.statusUseCaseInit.Do(func() {
		var repo outboxUseCase.MessageRepository
		repo, err = c.OutboxRepository()
		if err != nil {
			err = fmt.Errorf("failed to get outbox repository for status use case: %w", err)
			c.initErrors["statusUseCase"] = err
			return
		}
		c.statusUseCase = outboxUseCase.NewStatusUseCase(repo, c.config.OutboxBacklogThreshold)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["statusUseCase"]; exists {
		return nil, storedErr
	}
	return c.statusUseCase, nil
}

// Dispatcher returns the outbox dispatcher.
func (c *Container) Dispatcher(ctx context.Context) (outboxUseCase.Dispatcher, error) {
	var err error
	c.dispatcherInit.Do(func() {
		c.dispatcher, err = c.initDispatcher(ctx)
		if err != nil {
			c.initErrors["dispatcher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["dispatcher"]; exists {
		return nil, storedErr
	}
	return c.dispatcher, nil
}

// DeadLetterUseCase returns the dead letter listing use case.
func (c *Container) DeadLetterUseCase() (inboxUseCase.DeadLetterUseCase, error) {
	var err error
	c.deadLetterUseCaseInit.Do(func() {
		var repo inboxUseCase.InboxRepository
		repo, err = c.InboxRepository()
		if err != nil {
			err = fmt.Errorf("failed to get inbox repository for dead letter use case: %w", err)
			c.initErrors["deadLetterUseCase"] = err
			return
		}
		c.deadLetterUseCase = inboxUseCase.NewDeadLetterUseCase(repo)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["deadLetterUseCase"]; exists {
		return nil, storedErr
	}
	return c.deadLetterUseCase, nil
}

// ProcessedCache returns the redis processed-marker cache, or a no-op one without RedisURL.
func (c *Container) ProcessedCache(ctx context.Context) (inboxUseCase.ProcessedCache, error) {
	var err error
	c.processedCacheInit.Do(func() {
		c.processedCache, err = c.initProcessedCache(ctx)
		if err != nil {
			c.initErrors["processedCache"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["processedCache"]; exists {
		return nil, storedErr
	}
	return c.processedCache, nil
}

// Consumers returns the antifraud and audit inbox consumers.
func (c *Container) Consumers(ctx context.Context) ([]inboxUseCase.Consumer, error) {
	var err error
	c.consumersInit.Do(func() {
		c.consumers, err = c.initConsumers(ctx)
		if err != nil {
			c.initErrors["consumers"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["consumers"]; exists {
		return nil, storedErr
	}
	return c.consumers, nil
}

// initOutboxRepository creates the outbox repository based on the database driver.
func (c *Container) initOutboxRepository() (outboxUseCase.MessageRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for outbox repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return outboxRepository.NewPostgreSQLMessageRepository(db), nil
	case "mysql":
		return outboxRepository.NewMySQLMessageRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initInboxRepository creates the inbox repository based on the database driver.
func (c *Container) initInboxRepository() (inboxStore, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for inbox repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return inboxRepository.NewPostgreSQLInboxRepository(db), nil
	case "mysql":
		return inboxRepository.NewMySQLInboxRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) kafkaConfig() broker.KafkaConfig {
	return broker.KafkaConfig{Brokers: c.config.KafkaBrokers, Topic: c.config.KafkaTopic}
}

// initPublisher opens the publisher of the configured broker driver.
func (c *Container) initPublisher(ctx context.Context) (broker.Publisher, error) {
	switch c.config.BrokerDriver {
	case config.BrokerDriverPubSub:
		publisher, err := broker.OpenPubSubPublisher(ctx, c.config.BrokerTopicURL)
		if err != nil {
			return nil, err
		}
		return publisher, nil
	case config.BrokerDriverKafka:
		return broker.NewKafkaPublisher(c.kafkaConfig()), nil
	default:
		return nil, fmt.Errorf("unsupported broker driver: %s", c.config.BrokerDriver)
	}
}

// initSubscriber opens the subscriber of queue. Kafka queues are consumer groups named
// after the queue.
func (c *Container) initSubscriber(ctx context.Context, queue string) (broker.Subscriber, error) {
	switch c.config.BrokerDriver {
	case config.BrokerDriverPubSub:
		// mem:// subscriptions attach to a topic opened in this process.
		if _, err := c.Publisher(ctx); err != nil {
			return nil, fmt.Errorf("failed to open publisher before %s subscription: %w", queue, err)
		}
		var url string
		switch queue {
		case QueueAntifraud:
			url = c.config.BrokerAntifraudSubscriptionURL
		case QueueAudit:
			url = c.config.BrokerAuditSubscriptionURL
		default:
			return nil, fmt.Errorf("unknown queue: %s", queue)
		}
		sub, err := broker.OpenPubSubSubscriber(ctx, url)
		if err != nil {
			return nil, err
		}
		return sub, nil
	case config.BrokerDriverKafka:
		return broker.NewKafkaSubscriber(c.kafkaConfig(), queue), nil
	default:
		return nil, fmt.Errorf("unsupported broker driver: %s", c.config.BrokerDriver)
	}
}

// initRedisClient connects to redis. It returns nil when no URL is configured.
func (c *Container) initRedisClient(ctx context.Context) (*redis.Client, error) {
	if c.config.RedisURL == "" {
		return nil, nil
	}
	client, err := cache.Connect(ctx, c.config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (c *Container) initProcessedCache(ctx context.Context) (inboxUseCase.ProcessedCache, error) {
	client, err := c.RedisClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get redis client for processed cache: %w", err)
	}
	if client == nil {
		return cache.NewNoOpProcessedCache(), nil
	}
	return cache.NewRedisProcessedCache(client, c.config.InboxCacheTTL), nil
}

// initDispatcher creates the dispatcher publishing to the configured broker.
func (c *Container) initDispatcher(ctx context.Context) (outboxUseCase.Dispatcher, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for dispatcher: %w", err)
	}
	repo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for dispatcher: %w", err)
	}
	publisher, err := c.Publisher(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get publisher for dispatcher: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for dispatcher: %w", err)
	}

	cfg := outboxUseCase.Config{
		BatchSize:     c.config.OutboxBatchSize,
		BaseDelay:     c.config.OutboxBaseDelay,
		MaxAttempts:   c.config.OutboxMaxAttempts,
		ParkExhausted: c.config.OutboxExhaustedPolicy == config.OutboxExhaustedPark,
		BusyInterval:  c.config.OutboxBusyInterval,
		IdleInterval:  c.config.OutboxIdleInterval,
		Lease:         c.config.OutboxLease,
	}
	return outboxUseCase.NewDispatcher(cfg, txManager, repo, publisher, businessMetrics, c.Logger()), nil
}

// initConsumers wires the antifraud consumer to the account use case and the audit consumer
// to the inbox store, each on its own queue.
func (c *Container) initConsumers(ctx context.Context) ([]inboxUseCase.Consumer, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for consumers: %w", err)
	}
	store, err := c.inboxStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get inbox repository for consumers: %w", err)
	}
	processed, err := c.ProcessedCache(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get processed cache for consumers: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for consumers: %w", err)
	}
	accounts, err := c.AccountUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get account use case for antifraud consumer: %w", err)
	}

	logger := c.Logger()
	handlers := map[string]inboxUseCase.Handler{
		QueueAntifraud: inboxUseCase.NewAntifraudHandler(accounts, logger),
		QueueAudit:     inboxUseCase.NewAuditHandler(store),
	}
	cfg := inboxUseCase.ConsumerConfig{MaxRetryCount: c.config.InboxMaxRetryCount}

	consumers := make([]inboxUseCase.Consumer, 0, len(handlers))
	for _, queue := range []string{QueueAntifraud, QueueAudit} {
		sub, err := c.Subscriber(ctx, queue)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s subscriber: %w", queue, err)
		}
		consumers = append(consumers, inboxUseCase.NewConsumer(
			cfg, txManager, store, processed, handlers[queue], sub, businessMetrics, logger,
		))
	}
	return consumers, nil
}
