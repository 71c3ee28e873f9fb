// Package usecase implements the inbox consumers: idempotent processing of broker
// deliveries with durable retry accounting and dead-lettering.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/ledger/internal/broker"
	"github.com/allisson/ledger/internal/events"
	"github.com/allisson/ledger/internal/inbox/domain"
)

// InboxRepository defines inbox bookkeeping persistence operations.
type InboxRepository interface {
	GetOrCreate(ctx context.Context, messageID uuid.UUID, handler string, receivedAt time.Time) (*domain.Consumed, error)
	MarkProcessed(ctx context.Context, messageID uuid.UUID, handler string, at time.Time) error
	IncrementRetry(ctx context.Context, messageID uuid.UUID, handler string) (int, error)
	Delete(ctx context.Context, messageID uuid.UUID, handler string) error
	CreateDeadLetter(ctx context.Context, letter *domain.DeadLetter) error
	ListDeadLetters(ctx context.Context, handler string, offset, limit int) ([]*domain.DeadLetter, error)
}

// AuditRepository persists audit events.
type AuditRepository interface {
	CreateAuditEvent(ctx context.Context, event *domain.AuditEvent) error
}

// ProcessedCache is a best-effort fast path in front of the inbox table.
type ProcessedCache interface {
	IsProcessed(ctx context.Context, messageID uuid.UUID, handler string) (bool, error)
	MarkProcessed(ctx context.Context, messageID uuid.UUID, handler string) error
}

// AccountFreezer freezes or unfreezes every account of an owner.
type AccountFreezer interface {
	SetOwnerFrozen(ctx context.Context, ownerID uuid.UUID, frozen bool) (int64, error)
}

// Inbound is a delivery whose message id and envelope have been validated.
type Inbound struct {
	MessageID  uuid.UUID
	RoutingKey string
	// EventType comes from the X-Event-Type header.
	EventType  string
	Envelope   *events.Envelope
	Body       []byte
	ReceivedAt time.Time
}

// Handler applies the side effects of one consumer. Handle runs inside the unit of work
// that marks the inbox row processed.
type Handler interface {
	Name() string
	Binds(routingKey string) bool
	Handle(ctx context.Context, in *Inbound) error
}

// Receiver is the broker capability a Consumer reads from.
type Receiver interface {
	Receive(ctx context.Context) (broker.Delivery, error)
}

// Consumer drives one Handler from a broker subscription.
type Consumer interface {
	Start(ctx context.Context) error
	Process(ctx context.Context, delivery broker.Delivery) error
}

// DeadLetterUseCase exposes dead letters for manual remediation.
type DeadLetterUseCase interface {
	List(ctx context.Context, handler string, offset, limit int) ([]*domain.DeadLetter, error)
}
