package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/allisson/ledger/internal/account/domain"
	"github.com/allisson/ledger/internal/database"
)

// IsConflictRetryable reports whether err is an optimistic or serialization conflict that a
// fresh attempt, re-reading everything, may resolve. Business-rule conflicts such as a frozen
// or closed account are not retryable.
func IsConflictRetryable(err error) bool {
	return errors.Is(err, domain.ErrConcurrentModification) || database.IsRetryable(err)
}

// withConflictRetry runs fn once, then up to retries more times while it fails with a
// retryable conflict.
func withConflictRetry[T any](ctx context.Context, retries int, fn func() (T, error)) (T, error) {
	result, err := fn()
	for attempt := 0; attempt < retries && err != nil && IsConflictRetryable(err); attempt++ {
		if ctx.Err() != nil {
			return result, err
		}
		result, err = fn()
	}
	return result, err
}

// transactionUseCaseWithRetry retries optimistic conflicts of a TransactionUseCase.
type transactionUseCaseWithRetry struct {
	next    TransactionUseCase
	retries int
}

// NewTransactionUseCaseWithRetry wraps a TransactionUseCase so that conflicts are retried
// up to retries times before they surface.
func NewTransactionUseCaseWithRetry(useCase TransactionUseCase, retries int) TransactionUseCase {
	return &transactionUseCaseWithRetry{next: useCase, retries: retries}
}

func (t *transactionUseCaseWithRetry) RegisterTransaction(
	ctx context.Context,
	input *domain.RegisterTransactionInput,
) (*domain.Transaction, error) {
	return withConflictRetry(ctx, t.retries, func() (*domain.Transaction, error) {
		return t.next.RegisterTransaction(ctx, input)
	})
}

func (t *transactionUseCaseWithRetry) Transfer(
	ctx context.Context,
	input *domain.TransferInput,
) (*domain.TransferResult, error) {
	return withConflictRetry(ctx, t.retries, func() (*domain.TransferResult, error) {
		return t.next.Transfer(ctx, input)
	})
}

// accountUseCaseWithRetry retries optimistic conflicts of the versioned AccountUseCase writes.
type accountUseCaseWithRetry struct {
	AccountUseCase
	retries int
}

// NewAccountUseCaseWithRetry wraps an AccountUseCase so that Close and UpdateInterestRate
// retry conflicts up to retries times.
func NewAccountUseCaseWithRetry(useCase AccountUseCase, retries int) AccountUseCase {
	return &accountUseCaseWithRetry{AccountUseCase: useCase, retries: retries}
}

func (a *accountUseCaseWithRetry) Close(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return withConflictRetry(ctx, a.retries, func() (*domain.Account, error) {
		return a.AccountUseCase.Close(ctx, id)
	})
}

func (a *accountUseCaseWithRetry) UpdateInterestRate(
	ctx context.Context,
	id uuid.UUID,
	rate decimal.NullDecimal,
) (*domain.Account, error) {
	return withConflictRetry(ctx, a.retries, func() (*domain.Account, error) {
		return a.AccountUseCase.UpdateInterestRate(ctx, id, rate)
	})
}
