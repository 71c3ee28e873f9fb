// Package mocks provides mock implementations of the inbox use case ports.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/ledger/internal/broker"
	"github.com/allisson/ledger/internal/inbox/domain"
	"github.com/allisson/ledger/internal/inbox/usecase"
)

// MockInboxRepository is a mock implementation of InboxRepository.
type MockInboxRepository struct {
	mock.Mock
}

// GetOrCreate mocks the GetOrCreate method.
func (m *MockInboxRepository) GetOrCreate(
	ctx context.Context,
	messageID uuid.UUID,
	handler string,
	receivedAt time.Time,
) (*domain.Consumed, error) {
	args := m.Called(ctx, messageID, handler, receivedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Consumed), args.Error(1)
}

// MarkProcessed mocks the MarkProcessed method.
func (m *MockInboxRepository) MarkProcessed(
	ctx context.Context,
	messageID uuid.UUID,
	handler string,
	at time.Time,
) error {
	args := m.Called(ctx, messageID, handler, at)
	return args.Error(0)
}

// IncrementRetry mocks the IncrementRetry method.
func (m *MockInboxRepository) IncrementRetry(ctx context.Context, messageID uuid.UUID, handler string) (int, error) {
	args := m.Called(ctx, messageID, handler)
	return args.Int(0), args.Error(1)
}

// Delete mocks the Delete method.
func (m *MockInboxRepository) Delete(ctx context.Context, messageID uuid.UUID, handler string) error {
	args := m.Called(ctx, messageID, handler)
	return args.Error(0)
}

// CreateDeadLetter mocks the CreateDeadLetter method.
func (m *MockInboxRepository) CreateDeadLetter(ctx context.Context, letter *domain.DeadLetter) error {
	args := m.Called(ctx, letter)
	return args.Error(0)
}

// ListDeadLetters mocks the ListDeadLetters method.
func (m *MockInboxRepository) ListDeadLetters(
	ctx context.Context,
	handler string,
	offset, limit int,
) ([]*domain.DeadLetter, error) {
	args := m.Called(ctx, handler, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.DeadLetter), args.Error(1)
}

// MockAuditRepository is a mock implementation of AuditRepository.
type MockAuditRepository struct {
	mock.Mock
}

// CreateAuditEvent mocks the CreateAuditEvent method.
func (m *MockAuditRepository) CreateAuditEvent(ctx context.Context, event *domain.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockProcessedCache is a mock implementation of ProcessedCache.
type MockProcessedCache struct {
	mock.Mock
}

// IsProcessed mocks the IsProcessed method.
func (m *MockProcessedCache) IsProcessed(ctx context.Context, messageID uuid.UUID, handler string) (bool, error) {
	args := m.Called(ctx, messageID, handler)
	return args.Bool(0), args.Error(1)
}

// MarkProcessed mocks the MarkProcessed method.
func (m *MockProcessedCache) MarkProcessed(ctx context.Context, messageID uuid.UUID, handler string) error {
	args := m.Called(ctx, messageID, handler)
	return args.Error(0)
}

// MockAccountFreezer is a mock implementation of AccountFreezer.
type MockAccountFreezer struct {
	mock.Mock
}

// SetOwnerFrozen mocks the SetOwnerFrozen method.
func (m *MockAccountFreezer) SetOwnerFrozen(ctx context.Context, ownerID uuid.UUID, frozen bool) (int64, error) {
	args := m.Called(ctx, ownerID, frozen)
	return args.Get(0).(int64), args.Error(1)
}

// MockHandler is a mock implementation of Handler.
type MockHandler struct {
	mock.Mock
}

// Name mocks the Name method.
func (m *MockHandler) Name() string {
	args := m.Called()
	return args.String(0)
}

// Binds mocks the Binds method.
func (m *MockHandler) Binds(routingKey string) bool {
	args := m.Called(routingKey)
	return args.Bool(0)
}

// Handle mocks the Handle method.
func (m *MockHandler) Handle(ctx context.Context, in *usecase.Inbound) error {
	args := m.Called(ctx, in)
	return args.Error(0)
}

// MockReceiver is a mock implementation of Receiver.
type MockReceiver struct {
	mock.Mock
}

// Receive mocks the Receive method.
func (m *MockReceiver) Receive(ctx context.Context) (broker.Delivery, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(broker.Delivery), args.Error(1)
}

// MockDelivery is a mock implementation of broker.Delivery.
type MockDelivery struct {
	mock.Mock
}

// Message mocks the Message method.
func (m *MockDelivery) Message() broker.Message {
	args := m.Called()
	return args.Get(0).(broker.Message)
}

// Ack mocks the Ack method.
func (m *MockDelivery) Ack(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Nack mocks the Nack method.
func (m *MockDelivery) Nack(ctx context.Context, requeue bool) error {
	args := m.Called(ctx, requeue)
	return args.Error(0)
}

// MockDeadLetterUseCase is a mock implementation of DeadLetterUseCase.
type MockDeadLetterUseCase struct {
	mock.Mock
}

// List mocks the List method.
func (m *MockDeadLetterUseCase) List(
	ctx context.Context,
	handler string,
	offset, limit int,
) ([]*domain.DeadLetter, error) {
	args := m.Called(ctx, handler, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.DeadLetter), args.Error(1)
}
