// Package http provides the API server, the metrics server and their middleware.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	accountHTTP "github.com/allisson/ledger/internal/account/http"
	"github.com/allisson/ledger/internal/config"
	"github.com/allisson/ledger/internal/metrics"
	outboxUseCase "github.com/allisson/ledger/internal/outbox/usecase"
)

// BacklogReporter reports the outbox backlog for readiness checks.
type BacklogReporter interface {
	Backlog(ctx context.Context) (*outboxUseCase.Backlog, error)
}

// Server represents the API HTTP server.
type Server struct {
	db      *sql.DB
	server  *http.Server
	router  *gin.Engine
	logger  *slog.Logger
	backlog BacklogReporter
}

// NewServer creates a new API server. SetupRouter must be called before Start.
func NewServer(db *sql.DB, host string, port int, logger *slog.Logger) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: newHTTPServer(host, port, nil),
	}
}

// SetupRouter registers middleware and routes.
func (s *Server) SetupRouter(
	cfg *config.Config,
	accountHandler *accountHTTP.AccountHandler,
	transactionHandler *accountHTTP.TransactionHandler,
	backlog BacklogReporter,
	metricsProvider *metrics.Provider,
) {
	s.backlog = backlog

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}
	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	if cfg.RateLimitEnabled {
		v1.Use(RateLimitMiddleware(cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}

	accounts := v1.Group("/accounts")
	{
		accounts.POST("", accountHandler.OpenHandler)
		accounts.GET("", accountHandler.ListHandler)
		accounts.GET("/:id", accountHandler.GetHandler)
		accounts.DELETE("/:id", accountHandler.CloseHandler)
		accounts.PATCH("/:id/interest-rate", accountHandler.UpdateInterestRateHandler)
		accounts.GET("/:id/statement", accountHandler.StatementHandler)
	}

	v1.POST("/transactions", transactionHandler.RegisterHandler)
	v1.POST("/transfers", transactionHandler.TransferHandler)

	clients := v1.Group("/clients")
	{
		clients.POST("/:owner_id/block", accountHandler.BlockClientHandler)
		clients.POST("/:owner_id/unblock", accountHandler.UnblockClientHandler)
	}

	s.router = router
}

// Start serves until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.router
	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports not_ready when the database is unreachable. An outbox backlog
// above the threshold reports degraded but stays 200 so the instance keeps serving writes.
func (s *Server) readinessHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	components := gin.H{"database": "ok"}
	if s.db == nil || s.db.PingContext(ctx) != nil {
		components["database"] = "error"
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "components": components})
		return
	}

	status := "ready"
	if s.backlog != nil {
		backlog, err := s.backlog.Backlog(ctx)
		switch {
		case err != nil:
			s.logger.Warn("failed to read outbox backlog", slog.Any("error", err))
			components["outbox"] = "unknown"
		case backlog.Degraded:
			status = "degraded"
			components["outbox"] = gin.H{"status": "degraded", "unpublished": backlog.Unpublished}
		default:
			components["outbox"] = gin.H{"status": "ok", "unpublished": backlog.Unpublished}
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": status, "components": components})
}
