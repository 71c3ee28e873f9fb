package usecase_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/allisson/ledger/internal/broker"
	"github.com/allisson/ledger/internal/events"
	"github.com/allisson/ledger/internal/inbox/domain"
)

type consumedKey struct {
	messageID uuid.UUID
	handler   string
}

// memoryInbox is an in-memory InboxRepository.
type memoryInbox struct {
	mu          sync.Mutex
	consumed    map[consumedKey]*domain.Consumed
	deadLetters []*domain.DeadLetter
}

func newMemoryInbox() *memoryInbox {
	return &memoryInbox{consumed: make(map[consumedKey]*domain.Consumed)}
}

func (m *memoryInbox) GetOrCreate(
	_ context.Context,
	messageID uuid.UUID,
	handler string,
	receivedAt time.Time,
) (*domain.Consumed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := consumedKey{messageID, handler}
	record, ok := m.consumed[key]
	if !ok {
		record = &domain.Consumed{MessageID: messageID, Handler: handler, ReceivedAt: receivedAt}
		m.consumed[key] = record
	}
	clone := *record
	return &clone, nil
}

func (m *memoryInbox) MarkProcessed(_ context.Context, messageID uuid.UUID, handler string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.consumed[consumedKey{messageID, handler}]
	if !ok {
		return domain.ErrConsumedNotFound
	}
	record.ProcessedAt = &at
	return nil
}

func (m *memoryInbox) IncrementRetry(_ context.Context, messageID uuid.UUID, handler string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.consumed[consumedKey{messageID, handler}]
	if !ok {
		return 0, domain.ErrConsumedNotFound
	}
	record.RetryCount++
	return record.RetryCount, nil
}

func (m *memoryInbox) Delete(_ context.Context, messageID uuid.UUID, handler string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := consumedKey{messageID, handler}
	if _, ok := m.consumed[key]; !ok {
		return domain.ErrConsumedNotFound
	}
	delete(m.consumed, key)
	return nil
}

func (m *memoryInbox) CreateDeadLetter(_ context.Context, letter *domain.DeadLetter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deadLetters = append(m.deadLetters, letter)
	return nil
}

func (m *memoryInbox) ListDeadLetters(
	_ context.Context,
	handler string,
	offset, limit int,
) ([]*domain.DeadLetter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*domain.DeadLetter, 0)
	for _, letter := range m.deadLetters {
		if handler == "" || letter.Handler == handler {
			out = append(out, letter)
		}
	}
	if offset >= len(out) {
		return []*domain.DeadLetter{}, nil
	}
	return out[offset:min(offset+limit, len(out))], nil
}

func (m *memoryInbox) record(messageID uuid.UUID, handler string) (*domain.Consumed, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.consumed[consumedKey{messageID, handler}]
	return record, ok
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// brokerMessage builds the message the outbox dispatcher would publish for ev.
func brokerMessage(t *testing.T, ev events.Event) broker.Message {
	t.Helper()

	env, err := events.Wrap(ev, "account-service", events.NewLineage())
	require.NoError(t, err)
	body, err := json.Marshal(env)
	require.NoError(t, err)
	routingKey, err := ev.Kind().RoutingKey()
	require.NoError(t, err)

	return broker.Message{
		ID:         ev.Identity().EventID.String(),
		RoutingKey: routingKey,
		Headers:    env.Headers(ev.Kind()),
		Body:       body,
	}
}

func clientBlocked(clientID uuid.UUID) events.ClientBlocked {
	return events.ClientBlocked{Base: events.NewBase(time.Now()), ClientID: clientID}
}
