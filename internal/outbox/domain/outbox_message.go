// Package domain defines the core outbox domain entities and types.
package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/ledger/internal/errors"
)

// MessageStatus represents the delivery status of an outbox message.
type MessageStatus string

const (
	MessageStatusPending    MessageStatus = "pending"
	MessageStatusPublishing MessageStatus = "publishing"
	MessageStatusPublished  MessageStatus = "published"
	MessageStatusFailed     MessageStatus = "failed"
)

// MaxBackoffExponent caps the exponential backoff multiplier at 2^8.
const MaxBackoffExponent = 8

// ErrMessageNotFound is returned when no outbox message matches the lookup.
var ErrMessageNotFound = apperrors.Wrap(apperrors.ErrNotFound, "outbox message not found")

// Message is an event recorded in the same unit of work as the business change it describes.
// Rows are never deleted; they form the audit trail of everything the ledger announced.
type Message struct {
	ID uuid.UUID
	// Sequence is assigned by the store and breaks OccurredAt ties.
	Sequence int64
	// AccountID is the account whose lineage this message extends. Nil for none.
	AccountID     uuid.NullUUID
	OccurredAt    time.Time
	EventType     string
	RoutingKey    string
	Payload       string
	Headers       map[string]string
	Status        MessageStatus
	Attempts      int
	NextAttemptAt *time.Time
	PublishedAt   *time.Time
	LastError     *string
}

// Backoff returns the delay before the next attempt once a message has failed attempts times.
func Backoff(base time.Duration, attempts int) time.Duration {
	exp := attempts
	if exp < 0 {
		exp = 0
	}
	if exp > MaxBackoffExponent {
		exp = MaxBackoffExponent
	}
	return base * time.Duration(1<<exp)
}

// StatusCount is the number of outbox rows in a given status.
type StatusCount struct {
	Status MessageStatus
	Count  int64
}
