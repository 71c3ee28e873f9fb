package usecase

import (
	"context"
	"log/slog"
	"time"
)

// InterestJob runs AccrueAll on a fixed interval until its context is cancelled.
type InterestJob struct {
	useCase  InterestUseCase
	interval time.Duration
	logger   *slog.Logger
}

// NewInterestJob creates an InterestJob.
func NewInterestJob(useCase InterestUseCase, interval time.Duration, logger *slog.Logger) *InterestJob {
	return &InterestJob{useCase: useCase, interval: interval, logger: logger}
}

// Start blocks until ctx is cancelled and returns ctx.Err().
func (j *InterestJob) Start(ctx context.Context) error {
	j.logger.Info("interest job started", slog.Duration("interval", j.interval))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("interest job stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := j.useCase.AccrueAll(ctx); err != nil && ctx.Err() == nil {
				j.logger.Error("interest accrual run failed", slog.Any("error", err))
			}
		}
	}
}
