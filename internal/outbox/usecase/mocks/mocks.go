// Package mocks provides mock implementations of the outbox use case ports.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/ledger/internal/broker"
	"github.com/allisson/ledger/internal/events"
	"github.com/allisson/ledger/internal/outbox/domain"
	"github.com/allisson/ledger/internal/outbox/usecase"
)

// MockMessageRepository is a mock implementation of MessageRepository.
type MockMessageRepository struct {
	mock.Mock
}

// Create mocks the Create method.
func (m *MockMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// LatestForAccount mocks the LatestForAccount method.
func (m *MockMessageRepository) LatestForAccount(ctx context.Context, accountID uuid.UUID) (*domain.Message, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

// ListDue mocks the ListDue method.
func (m *MockMessageRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*domain.Message, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

// Claim mocks the Claim method.
func (m *MockMessageRepository) Claim(ctx context.Context, id uuid.UUID, now, leaseUntil time.Time) (bool, error) {
	args := m.Called(ctx, id, now, leaseUntil)
	return args.Bool(0), args.Error(1)
}

// MarkPublished mocks the MarkPublished method.
func (m *MockMessageRepository) MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// MarkFailed mocks the MarkFailed method.
func (m *MockMessageRepository) MarkFailed(
	ctx context.Context,
	id uuid.UUID,
	attempts int,
	nextAttemptAt *time.Time,
	lastError string,
) error {
	args := m.Called(ctx, id, attempts, nextAttemptAt, lastError)
	return args.Error(0)
}

// CountUnpublished mocks the CountUnpublished method.
func (m *MockMessageRepository) CountUnpublished(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// CountByStatus mocks the CountByStatus method.
func (m *MockMessageRepository) CountByStatus(ctx context.Context) ([]domain.StatusCount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StatusCount), args.Error(1)
}

// MockPublisher is a mock implementation of Publisher.
type MockPublisher struct {
	mock.Mock
}

// Publish mocks the Publish method.
func (m *MockPublisher) Publish(ctx context.Context, msg broker.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockEventAppender is a mock implementation of EventAppender. Options are not recorded.
type MockEventAppender struct {
	mock.Mock
}

// Append mocks the Append method.
func (m *MockEventAppender) Append(
	ctx context.Context,
	accountID uuid.UUID,
	ev events.Event,
	_ ...usecase.AppendOption,
) (*domain.Message, error) {
	args := m.Called(ctx, accountID, ev)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

// MockStatusUseCase is a mock implementation of StatusUseCase.
type MockStatusUseCase struct {
	mock.Mock
}

// Backlog mocks the Backlog method.
func (m *MockStatusUseCase) Backlog(ctx context.Context) (*usecase.Backlog, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.Backlog), args.Error(1)
}

// CountByStatus mocks the CountByStatus method.
func (m *MockStatusUseCase) CountByStatus(ctx context.Context) ([]domain.StatusCount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StatusCount), args.Error(1)
}
