package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	apperrors "github.com/allisson/ledger/internal/errors"
	"github.com/allisson/ledger/internal/events"
	"github.com/allisson/ledger/internal/outbox/domain"
)

type appendOptions struct {
	causedBy *domain.Message
}

// AppendOption customizes Append.
type AppendOption func(*appendOptions)

// CausedBy chains the new event from prev instead of the account's latest message.
// It is used for the second leg of a transfer.
func CausedBy(prev *domain.Message) AppendOption {
	return func(o *appendOptions) {
		o.causedBy = prev
	}
}

type eventAppender struct {
	repo   MessageRepository
	source string
}

// NewEventAppender creates an EventAppender stamping source on every envelope.
func NewEventAppender(repo MessageRepository, source string) EventAppender {
	return &eventAppender{repo: repo, source: source}
}

func (a *eventAppender) Append(
	ctx context.Context,
	accountID uuid.UUID,
	ev events.Event,
	opts ...AppendOption,
) (*domain.Message, error) {
	var o appendOptions
	for _, opt := range opts {
		opt(&o)
	}

	routingKey, err := ev.Kind().RoutingKey()
	if err != nil {
		return nil, err
	}

	prev := o.causedBy
	if prev == nil && accountID != uuid.Nil {
		prev, err = a.repo.LatestForAccount(ctx, accountID)
		if err != nil && !errors.Is(err, domain.ErrMessageNotFound) {
			return nil, err
		}
	}

	lineage, err := lineageAfter(prev)
	if err != nil {
		return nil, err
	}

	env, err := events.Wrap(ev, a.source, lineage)
	if err != nil {
		return nil, err
	}

	payload, err := jsonString(env)
	if err != nil {
		return nil, err
	}

	id := ev.Identity()
	msg := &domain.Message{
		ID:         id.EventID,
		AccountID:  uuid.NullUUID{UUID: accountID, Valid: accountID != uuid.Nil},
		OccurredAt: id.OccurredAt,
		EventType:  string(ev.Kind()),
		RoutingKey: routingKey,
		Payload:    payload,
		Headers:    env.Headers(ev.Kind()),
		Status:     domain.MessageStatusPending,
	}

	if err := a.repo.Create(ctx, msg); err != nil {
		return nil, err
	}

	return msg, nil
}

// lineageAfter continues the process prev belongs to, or starts a new one.
func lineageAfter(prev *domain.Message) (events.Lineage, error) {
	if prev == nil {
		return events.NewLineage(), nil
	}

	raw, ok := prev.Headers[events.HeaderCorrelationID]
	if !ok {
		env, err := events.ParseEnvelope([]byte(prev.Payload))
		if err != nil {
			return events.Lineage{}, fmt.Errorf("failed to read lineage of message %s: %w", prev.ID, err)
		}
		return env.Lineage().Follow(prev.ID), nil
	}

	correlationID, err := uuid.Parse(raw)
	if err != nil {
		return events.Lineage{}, apperrors.Wrapf(
			apperrors.ErrInvalidInput,
			"message %s has a malformed correlation id: %v",
			prev.ID,
			err,
		)
	}

	return events.Lineage{CorrelationID: correlationID}.Follow(prev.ID), nil
}
