// Package app provides dependency injection container for assembling application components.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/go-redis/redis/v8"

	accountHTTP "github.com/allisson/ledger/internal/account/http"
	accountUseCase "github.com/allisson/ledger/internal/account/usecase"
	"github.com/allisson/ledger/internal/broker"
	"github.com/allisson/ledger/internal/config"
	"github.com/allisson/ledger/internal/database"
	"github.com/allisson/ledger/internal/http"
	inboxUseCase "github.com/allisson/ledger/internal/inbox/usecase"
	"github.com/allisson/ledger/internal/metrics"
	outboxUseCase "github.com/allisson/ledger/internal/outbox/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics
	redisClient     *redis.Client
	publisher       broker.Publisher
	subscribers     map[string]broker.Subscriber

	// Managers
	txManager database.TxManager

	// Repositories
	accountRepo     accountUseCase.AccountRepository
	transactionRepo accountUseCase.TransactionRepository
	outboxRepo      outboxUseCase.MessageRepository
	inboxRepo       inboxStore

	// Use Cases
	eventAppender      outboxUseCase.EventAppender
	accountUseCase     accountUseCase.AccountUseCase
	transactionUseCase accountUseCase.TransactionUseCase
	interestUseCase    accountUseCase.InterestUseCase
	statusUseCase      outboxUseCase.StatusUseCase
	deadLetterUseCase  inboxUseCase.DeadLetterUseCase
	processedCache     inboxUseCase.ProcessedCache

	// Handlers
	accountHandler     *accountHTTP.AccountHandler
	transactionHandler *accountHTTP.TransactionHandler

	// Servers and Workers
	httpServer    *http.Server
	metricsServer *http.MetricsServer
	dispatcher    outboxUseCase.Dispatcher
	interestJob   *accountUseCase.InterestJob
	consumers     []inboxUseCase.Consumer

	// Initialization flags and mutex for thread-safety
	mu                     sync.Mutex
	loggerInit             sync.Once
	dbInit                 sync.Once
	txManagerInit          sync.Once
	metricsProviderInit    sync.Once
	businessMetricsInit    sync.Once
	redisClientInit        sync.Once
	publisherInit          sync.Once
	accountRepoInit        sync.Once
	transactionRepoInit    sync.Once
	outboxRepoInit         sync.Once
	inboxRepoInit          sync.Once
	eventAppenderInit      sync.Once
	accountUseCaseInit     sync.Once
	transactionUseCaseInit sync.Once
	interestUseCaseInit    sync.Once
	statusUseCaseInit      sync.Once
	deadLetterUseCaseInit  sync.Once
	processedCacheInit     sync.Once
	accountHandlerInit     sync.Once
	transactionHandlerInit sync.Once
	httpServerInit         sync.Once
	metricsServerInit      sync.Once
	dispatcherInit         sync.Once
	interestJobInit        sync.Once
	consumersInit          sync.Once
	initErrors             map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:      cfg,
		subscribers: make(map[string]broker.Subscriber),
		initErrors:  make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		c.txManager, err = c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// MetricsProvider returns the OpenTelemetry provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		c.metricsProvider, err = c.initMetricsProvider()
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. It is a no-op when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, err = c.initBusinessMetrics()
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// RedisClient returns the redis client, or nil when RedisURL is empty.
func (c *Container) RedisClient(ctx context.Context) (*redis.Client, error) {
	var err error
	c.redisClientInit.Do(func() {
		c.redisClient, err = c.initRedisClient(ctx)
		if err != nil {
			c.initErrors["redisClient"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["redisClient"]; exists {
		return nil, storedErr
	}
	return c.redisClient, nil
}

// Publisher returns the broker publisher for the configured driver.
func (c *Container) Publisher(ctx context.Context) (broker.Publisher, error) {
	var err error
	c.publisherInit.Do(func() {
		c.publisher, err = c.initPublisher(ctx)
		if err != nil {
			c.initErrors["publisher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["publisher"]; exists {
		return nil, storedErr
	}
	return c.publisher, nil
}

// Subscriber returns the subscriber of the named queue, opening it on first access.
func (c *Container) Subscriber(ctx context.Context, queue string) (broker.Subscriber, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sub, ok := c.subscribers[queue]; ok {
		return sub, nil
	}
	sub, err := c.initSubscriber(ctx, queue)
	if err != nil {
		return nil, err
	}
	c.subscribers[queue] = sub
	return sub, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	for queue, sub := range c.subscribers {
		if err := sub.Close(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("%s subscriber close: %w", queue, err))
		}
	}

	if c.publisher != nil {
		if err := c.publisher.Close(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("publisher close: %w", err))
		}
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("redis close: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	return errors.Join(shutdownErrors...)
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initTxManager creates the transaction manager using the database connection.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

func (c *Container) initMetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}
	provider, err := metrics.NewProvider(c.config.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}
	return provider, nil
}

func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}
	return metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
}

// initMetricsServer creates the metrics server and registers the outbox backlog gauge.
// It returns nil when metrics are disabled.
func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}
	if provider == nil {
		return nil, nil
	}

	status, err := c.StatusUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox status for metrics server: %w", err)
	}
	err = metrics.RegisterBacklogGauge(
		provider.MeterProvider(),
		c.config.MetricsNamespace,
		func(ctx context.Context) (int64, error) {
			backlog, err := status.Backlog(ctx)
			if err != nil {
				return 0, err
			}
			return backlog.Unpublished, nil
		},
	)
	if err != nil {
		return nil, err
	}

	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider), nil
}

// MetricsServer returns the metrics server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		c.metricsServer, err = c.initMetricsServer()
		if err != nil {
			c.initErrors["metricsServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// HTTPServer returns the API server with its router configured.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

func (c *Container) initHTTPServer() (*http.Server, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}
	accountHandler, err := c.AccountHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get account handler for http server: %w", err)
	}
	transactionHandler, err := c.TransactionHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction handler for http server: %w", err)
	}
	status, err := c.StatusUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox status for http server: %w", err)
	}
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, c.Logger())
	server.SetupRouter(c.config, accountHandler, transactionHandler, status, provider)
	return server, nil
}
