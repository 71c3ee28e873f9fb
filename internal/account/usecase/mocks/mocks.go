// Package mocks provides mock implementations of the account use case ports.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/ledger/internal/account/domain"
	"github.com/allisson/ledger/internal/account/usecase"
)

// MockAccountRepository is a mock implementation of AccountRepository.
type MockAccountRepository struct {
	mock.Mock
}

// Create mocks the Create method.
func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// Get mocks the Get method.
func (m *MockAccountRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

// Update mocks the Update method.
func (m *MockAccountRepository) Update(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// ListByOwner mocks the ListByOwner method.
func (m *MockAccountRepository) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	offset, limit int,
) ([]*domain.Account, error) {
	args := m.Called(ctx, ownerID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Account), args.Error(1)
}

// SetFrozenByOwner mocks the SetFrozenByOwner method.
func (m *MockAccountRepository) SetFrozenByOwner(ctx context.Context, ownerID uuid.UUID, frozen bool) (int64, error) {
	args := m.Called(ctx, ownerID, frozen)
	return args.Get(0).(int64), args.Error(1)
}

// ListInterestBearing mocks the ListInterestBearing method.
func (m *MockAccountRepository) ListInterestBearing(
	ctx context.Context,
	afterID uuid.UUID,
	limit int,
) ([]*domain.Account, error) {
	args := m.Called(ctx, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Account), args.Error(1)
}

// MockTransactionRepository is a mock implementation of TransactionRepository.
type MockTransactionRepository struct {
	mock.Mock
}

// Create mocks the Create method.
func (m *MockTransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

// ListByAccountBetween mocks the ListByAccountBetween method.
func (m *MockTransactionRepository) ListByAccountBetween(
	ctx context.Context,
	accountID uuid.UUID,
	from, to time.Time,
) ([]*domain.Transaction, error) {
	args := m.Called(ctx, accountID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Transaction), args.Error(1)
}

// LastByDescription mocks the LastByDescription method.
func (m *MockTransactionRepository) LastByDescription(
	ctx context.Context,
	accountID uuid.UUID,
	description string,
) (*domain.Transaction, error) {
	args := m.Called(ctx, accountID, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

// MockCurrencyService is a mock implementation of CurrencyService.
type MockCurrencyService struct {
	mock.Mock
}

// IsSupported mocks the IsSupported method.
func (m *MockCurrencyService) IsSupported(currency string) bool {
	args := m.Called(currency)
	return args.Bool(0)
}

// MockOwnerVerifier is a mock implementation of OwnerVerifier.
type MockOwnerVerifier struct {
	mock.Mock
}

// OwnerExists mocks the OwnerExists method.
func (m *MockOwnerVerifier) OwnerExists(ctx context.Context, ownerID uuid.UUID) (bool, error) {
	args := m.Called(ctx, ownerID)
	return args.Bool(0), args.Error(1)
}

// MockTransactionUseCase is a mock implementation of TransactionUseCase.
type MockTransactionUseCase struct {
	mock.Mock
}

// RegisterTransaction mocks the RegisterTransaction method.
func (m *MockTransactionUseCase) RegisterTransaction(
	ctx context.Context,
	input *domain.RegisterTransactionInput,
) (*domain.Transaction, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

// Transfer mocks the Transfer method.
func (m *MockTransactionUseCase) Transfer(
	ctx context.Context,
	input *domain.TransferInput,
) (*domain.TransferResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransferResult), args.Error(1)
}

// MockAccountUseCase is a mock implementation of AccountUseCase.
type MockAccountUseCase struct {
	mock.Mock
}

// Open mocks the Open method.
func (m *MockAccountUseCase) Open(ctx context.Context, input *domain.OpenAccountInput) (*domain.Account, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

// Get mocks the Get method.
func (m *MockAccountUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

// ListByOwner mocks the ListByOwner method.
func (m *MockAccountUseCase) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	offset, limit int,
) ([]*domain.Account, error) {
	args := m.Called(ctx, ownerID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Account), args.Error(1)
}

// Close mocks the Close method.
func (m *MockAccountUseCase) Close(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

// UpdateInterestRate mocks the UpdateInterestRate method.
func (m *MockAccountUseCase) UpdateInterestRate(
	ctx context.Context,
	id uuid.UUID,
	rate decimal.NullDecimal,
) (*domain.Account, error) {
	args := m.Called(ctx, id, rate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

// Statement mocks the Statement method.
func (m *MockAccountUseCase) Statement(
	ctx context.Context,
	id uuid.UUID,
	from, to time.Time,
) (*domain.Statement, error) {
	args := m.Called(ctx, id, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Statement), args.Error(1)
}

// BlockClient mocks the BlockClient method.
func (m *MockAccountUseCase) BlockClient(ctx context.Context, ownerID uuid.UUID) error {
	args := m.Called(ctx, ownerID)
	return args.Error(0)
}

// UnblockClient mocks the UnblockClient method.
func (m *MockAccountUseCase) UnblockClient(ctx context.Context, ownerID uuid.UUID) error {
	args := m.Called(ctx, ownerID)
	return args.Error(0)
}

// SetOwnerFrozen mocks the SetOwnerFrozen method.
func (m *MockAccountUseCase) SetOwnerFrozen(ctx context.Context, ownerID uuid.UUID, frozen bool) (int64, error) {
	args := m.Called(ctx, ownerID, frozen)
	return args.Get(0).(int64), args.Error(1)
}

// MockInterestUseCase is a mock implementation of InterestUseCase.
type MockInterestUseCase struct {
	mock.Mock
}

// AccrueAll mocks the AccrueAll method.
func (m *MockInterestUseCase) AccrueAll(ctx context.Context) (*usecase.AccrualReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.AccrualReport), args.Error(1)
}

// Accrue mocks the Accrue method.
func (m *MockInterestUseCase) Accrue(ctx context.Context, accountID uuid.UUID) (*domain.Transaction, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}
