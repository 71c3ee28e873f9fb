// Package domain defines the inbox entities: consumed-message records, dead letters and
// audit events.
package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/ledger/internal/errors"
)

// Handler names of the inbox consumers.
const (
	HandlerAntifraud = "antifraud"
	HandlerAudit     = "audit"
)

var (
	// ErrMissingMessageID indicates a delivery without a usable message id.
	ErrMissingMessageID = apperrors.Wrap(apperrors.ErrInvalidInput, "message id is missing or malformed")
	// ErrConsumedNotFound indicates no inbox row exists for a message and handler.
	ErrConsumedNotFound = apperrors.Wrap(apperrors.ErrNotFound, "inbox record not found")
)

// Consumed tracks one message as seen by one handler.
type Consumed struct {
	MessageID   uuid.UUID
	Handler     string
	ReceivedAt  time.Time
	ProcessedAt *time.Time
	RetryCount  int
}

// IsProcessed reports whether the handler already applied the message.
func (c *Consumed) IsProcessed() bool {
	return c.ProcessedAt != nil
}

// DeadLetter is a message that exhausted its retries. It keeps the raw payload for
// manual remediation.
type DeadLetter struct {
	ID         uuid.UUID
	MessageID  uuid.UUID
	Handler    string
	ReceivedAt time.Time
	Payload    string
	Error      string
}

// AuditEvent is the audit trail entry written for every event the audit handler receives.
type AuditEvent struct {
	ID            uuid.UUID
	MessageID     uuid.UUID
	EventType     string
	RoutingKey    string
	CorrelationID uuid.NullUUID
	CausationID   uuid.NullUUID
	Payload       string
	ReceivedAt    time.Time
}
