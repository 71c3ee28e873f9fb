// Package usecase implements the outbox: appending events inside business units of work,
// dispatching them to the broker and reporting the backlog.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/ledger/internal/broker"
	"github.com/allisson/ledger/internal/events"
	"github.com/allisson/ledger/internal/outbox/domain"
)

// MessageRepository defines outbox message persistence operations.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	LatestForAccount(ctx context.Context, accountID uuid.UUID) (*domain.Message, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*domain.Message, error)
	Claim(ctx context.Context, id uuid.UUID, now, leaseUntil time.Time) (bool, error)
	MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, attempts int, nextAttemptAt *time.Time, lastError string) error
	CountUnpublished(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context) ([]domain.StatusCount, error)
}

// Publisher is the broker capability the dispatcher needs.
type Publisher interface {
	Publish(ctx context.Context, msg broker.Message) error
}

// EventAppender records events in the caller's unit of work.
type EventAppender interface {
	// Append stores ev as a pending outbox message in the lineage of accountID.
	// It must run inside the transaction that performs the business change.
	Append(ctx context.Context, accountID uuid.UUID, ev events.Event, opts ...AppendOption) (*domain.Message, error)
}

// Dispatcher publishes pending outbox messages.
type Dispatcher interface {
	Start(ctx context.Context) error
	DispatchBatch(ctx context.Context) (int, error)
}

// StatusUseCase reports on the outbox backlog.
type StatusUseCase interface {
	Backlog(ctx context.Context) (*Backlog, error)
	CountByStatus(ctx context.Context) ([]domain.StatusCount, error)
}
