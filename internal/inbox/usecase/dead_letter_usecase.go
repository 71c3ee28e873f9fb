package usecase

import (
	"context"

	"github.com/allisson/ledger/internal/inbox/domain"
)

type deadLetterUseCase struct {
	repo InboxRepository
}

// NewDeadLetterUseCase creates a new DeadLetterUseCase.
func NewDeadLetterUseCase(repo InboxRepository) DeadLetterUseCase {
	return &deadLetterUseCase{repo: repo}
}

// List returns dead letters oldest first. An empty handler lists every handler.
func (d *deadLetterUseCase) List(
	ctx context.Context,
	handler string,
	offset, limit int,
) ([]*domain.DeadLetter, error) {
	return d.repo.ListDeadLetters(ctx, handler, offset, limit)
}
