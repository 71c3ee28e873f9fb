package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/ledger/internal/app"
	"github.com/allisson/ledger/internal/config"
)

const shutdownTimeout = 30 * time.Second

// Service is a listener started with Start and stopped with Shutdown.
type Service interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Worker is a loop that runs until its context is cancelled.
type Worker interface {
	Start(ctx context.Context) error
}

// RunServer runs the HTTP API next to the background workers until SIGINT or SIGTERM.
func RunServer(ctx context.Context, version string) error {
	return runApp(ctx, version, true)
}

// RunWorker runs the background workers without the HTTP API until SIGINT or SIGTERM.
func RunWorker(ctx context.Context, version string) error {
	return runApp(ctx, version, false)
}

func runApp(ctx context.Context, version string, withAPI bool) error {
	cfg := config.Load()
	gin.SetMode(cfg.GetGinMode())

	container := app.NewContainer(cfg)
	logger := container.Logger()
	logger.Info("starting ledger", slog.String("version", version), slog.Bool("api", withAPI))
	defer CloseContainer(container, logger)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	services, workers, err := assemble(ctx, container, withAPI)
	if err != nil {
		return err
	}

	return RunProcess(ctx, logger, services, workers)
}

// assemble pulls every component the process runs out of the container.
func assemble(ctx context.Context, container *app.Container, withAPI bool) ([]Service, []Worker, error) {
	var (
		services []Service
		workers  []Worker
	)

	if withAPI {
		server, err := container.HTTPServer()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize HTTP server: %w", err)
		}
		services = append(services, server)
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize metrics server: %w", err)
	}
	if metricsServer != nil {
		services = append(services, metricsServer)
	}

	dispatcher, err := container.Dispatcher(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize outbox dispatcher: %w", err)
	}
	workers = append(workers, dispatcher)

	consumers, err := container.Consumers(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize inbox consumers: %w", err)
	}
	for _, consumer := range consumers {
		workers = append(workers, consumer)
	}

	job, err := container.InterestJob()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize interest job: %w", err)
	}
	if job != nil {
		workers = append(workers, job)
	}

	return services, workers, nil
}

// RunProcess starts services and workers in one errgroup. The first failure or the
// cancellation of ctx stops all of them; services get shutdownTimeout to drain.
func RunProcess(ctx context.Context, logger *slog.Logger, services []Service, workers []Worker) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, svc := range services {
		g.Go(func() error {
			return svc.Start(gctx)
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
			defer cancel()
			return svc.Shutdown(shutdownCtx)
		})
	}

	for _, w := range workers {
		g.Go(func() error {
			if err := w.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		logger.Error("process stopped with error", slog.Any("error", err))
		return err
	}
	logger.Info("process stopped")
	return nil
}
