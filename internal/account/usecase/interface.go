// Package usecase implements the ledger: opening and maintaining accounts, posting
// transactions and transfers under optimistic concurrency, and accruing interest.
// Every balance mutation appends its events to the outbox in the same unit of work.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/allisson/ledger/internal/account/domain"
)

// AccountRepository defines account persistence operations.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	// Update compares account.Version with the stored one and fails with
	// domain.ErrConcurrentModification when they differ.
	Update(ctx context.Context, account *domain.Account) error
	ListByOwner(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*domain.Account, error)
	SetFrozenByOwner(ctx context.Context, ownerID uuid.UUID, frozen bool) (int64, error)
	ListInterestBearing(ctx context.Context, afterID uuid.UUID, limit int) ([]*domain.Account, error)
}

// TransactionRepository defines transaction persistence operations.
type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	ListByAccountBetween(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]*domain.Transaction, error)
	LastByDescription(ctx context.Context, accountID uuid.UUID, description string) (*domain.Transaction, error)
}

// CurrencyService reports which currencies the ledger accepts.
type CurrencyService interface {
	IsSupported(currency string) bool
}

// OwnerVerifier reports whether an owner is a verified client.
type OwnerVerifier interface {
	OwnerExists(ctx context.Context, ownerID uuid.UUID) (bool, error)
}

// TransactionUseCase posts balance mutations.
type TransactionUseCase interface {
	RegisterTransaction(ctx context.Context, input *domain.RegisterTransactionInput) (*domain.Transaction, error)
	Transfer(ctx context.Context, input *domain.TransferInput) (*domain.TransferResult, error)
}

// AccountUseCase manages the account lifecycle.
type AccountUseCase interface {
	Open(ctx context.Context, input *domain.OpenAccountInput) (*domain.Account, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*domain.Account, error)
	Close(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	UpdateInterestRate(ctx context.Context, id uuid.UUID, rate decimal.NullDecimal) (*domain.Account, error)
	Statement(ctx context.Context, id uuid.UUID, from, to time.Time) (*domain.Statement, error)
	BlockClient(ctx context.Context, ownerID uuid.UUID) error
	UnblockClient(ctx context.Context, ownerID uuid.UUID) error
	// SetOwnerFrozen freezes or unfreezes every open account of an owner and returns
	// how many accounts changed. It is driven by the antifraud consumer.
	SetOwnerFrozen(ctx context.Context, ownerID uuid.UUID, frozen bool) (int64, error)
}

// AccrualReport summarizes one interest accrual run.
type AccrualReport struct {
	Accrued int
	Skipped int
	Failed  int
}

// InterestUseCase accrues interest on interest bearing accounts.
type InterestUseCase interface {
	AccrueAll(ctx context.Context) (*AccrualReport, error)
	Accrue(ctx context.Context, accountID uuid.UUID) (*domain.Transaction, error)
}
