package usecase

import (
	"context"

	"github.com/allisson/ledger/internal/outbox/domain"
)

// Backlog summarizes unpublished outbox messages.
type Backlog struct {
	Unpublished int64
	Threshold   int64
	Degraded    bool
}

type statusUseCase struct {
	repo      MessageRepository
	threshold int64
}

// NewStatusUseCase creates a StatusUseCase that degrades above threshold unpublished rows.
func NewStatusUseCase(repo MessageRepository, threshold int) StatusUseCase {
	return &statusUseCase{repo: repo, threshold: int64(threshold)}
}

func (s *statusUseCase) Backlog(ctx context.Context) (*Backlog, error) {
	count, err := s.repo.CountUnpublished(ctx)
	if err != nil {
		return nil, err
	}
	return &Backlog{
		Unpublished: count,
		Threshold:   s.threshold,
		Degraded:    count > s.threshold,
	}, nil
}

func (s *statusUseCase) CountByStatus(ctx context.Context) ([]domain.StatusCount, error) {
	return s.repo.CountByStatus(ctx)
}
