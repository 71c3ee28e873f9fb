package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/allisson/ledger/internal/account/domain"
	"github.com/allisson/ledger/internal/metrics"
)

const metricsDomain = "ledger"

func recordOperation(ctx context.Context, m metrics.BusinessMetrics, operation string, start time.Time, err error) {
	status := metrics.Outcome(err)
	m.RecordOperation(ctx, metricsDomain, operation, status)
	m.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// transactionUseCaseWithMetrics decorates TransactionUseCase with metrics instrumentation.
type transactionUseCaseWithMetrics struct {
	next    TransactionUseCase
	metrics metrics.BusinessMetrics
}

// NewTransactionUseCaseWithMetrics wraps a TransactionUseCase with metrics recording.
func NewTransactionUseCaseWithMetrics(useCase TransactionUseCase, m metrics.BusinessMetrics) TransactionUseCase {
	return &transactionUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// RegisterTransaction records metrics for single-account transactions.
func (t *transactionUseCaseWithMetrics) RegisterTransaction(
	ctx context.Context,
	input *domain.RegisterTransactionInput,
) (*domain.Transaction, error) {
	start := time.Now()
	tx, err := t.next.RegisterTransaction(ctx, input)
	recordOperation(ctx, t.metrics, "transaction_register", start, err)
	return tx, err
}

// Transfer records metrics for transfers.
func (t *transactionUseCaseWithMetrics) Transfer(
	ctx context.Context,
	input *domain.TransferInput,
) (*domain.TransferResult, error) {
	start := time.Now()
	result, err := t.next.Transfer(ctx, input)
	recordOperation(ctx, t.metrics, "transfer", start, err)
	return result, err
}

// accountUseCaseWithMetrics decorates AccountUseCase with metrics instrumentation.
type accountUseCaseWithMetrics struct {
	next    AccountUseCase
	metrics metrics.BusinessMetrics
}

// NewAccountUseCaseWithMetrics wraps an AccountUseCase with metrics recording.
func NewAccountUseCaseWithMetrics(useCase AccountUseCase, m metrics.BusinessMetrics) AccountUseCase {
	return &accountUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (a *accountUseCaseWithMetrics) Open(
	ctx context.Context,
	input *domain.OpenAccountInput,
) (*domain.Account, error) {
	start := time.Now()
	account, err := a.next.Open(ctx, input)
	recordOperation(ctx, a.metrics, "account_open", start, err)
	return account, err
}

func (a *accountUseCaseWithMetrics) Get(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	start := time.Now()
	account, err := a.next.Get(ctx, id)
	recordOperation(ctx, a.metrics, "account_get", start, err)
	return account, err
}

func (a *accountUseCaseWithMetrics) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	offset, limit int,
) ([]*domain.Account, error) {
	start := time.Now()
	accounts, err := a.next.ListByOwner(ctx, ownerID, offset, limit)
	recordOperation(ctx, a.metrics, "account_list", start, err)
	return accounts, err
}

func (a *accountUseCaseWithMetrics) Close(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	start := time.Now()
	account, err := a.next.Close(ctx, id)
	recordOperation(ctx, a.metrics, "account_close", start, err)
	return account, err
}

func (a *accountUseCaseWithMetrics) UpdateInterestRate(
	ctx context.Context,
	id uuid.UUID,
	rate decimal.NullDecimal,
) (*domain.Account, error) {
	start := time.Now()
	account, err := a.next.UpdateInterestRate(ctx, id, rate)
	recordOperation(ctx, a.metrics, "account_update_rate", start, err)
	return account, err
}

func (a *accountUseCaseWithMetrics) Statement(
	ctx context.Context,
	id uuid.UUID,
	from, to time.Time,
) (*domain.Statement, error) {
	start := time.Now()
	statement, err := a.next.Statement(ctx, id, from, to)
	recordOperation(ctx, a.metrics, "account_statement", start, err)
	return statement, err
}

func (a *accountUseCaseWithMetrics) BlockClient(ctx context.Context, ownerID uuid.UUID) error {
	start := time.Now()
	err := a.next.BlockClient(ctx, ownerID)
	recordOperation(ctx, a.metrics, "client_block", start, err)
	return err
}

func (a *accountUseCaseWithMetrics) UnblockClient(ctx context.Context, ownerID uuid.UUID) error {
	start := time.Now()
	err := a.next.UnblockClient(ctx, ownerID)
	recordOperation(ctx, a.metrics, "client_unblock", start, err)
	return err
}

func (a *accountUseCaseWithMetrics) SetOwnerFrozen(
	ctx context.Context,
	ownerID uuid.UUID,
	frozen bool,
) (int64, error) {
	start := time.Now()
	changed, err := a.next.SetOwnerFrozen(ctx, ownerID, frozen)
	recordOperation(ctx, a.metrics, "owner_freeze", start, err)
	return changed, err
}

// interestUseCaseWithMetrics decorates InterestUseCase with metrics instrumentation.
type interestUseCaseWithMetrics struct {
	next    InterestUseCase
	metrics metrics.BusinessMetrics
}

// NewInterestUseCaseWithMetrics wraps an InterestUseCase with metrics recording.
func NewInterestUseCaseWithMetrics(useCase InterestUseCase, m metrics.BusinessMetrics) InterestUseCase {
	return &interestUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (i *interestUseCaseWithMetrics) AccrueAll(ctx context.Context) (*AccrualReport, error) {
	start := time.Now()
	report, err := i.next.AccrueAll(ctx)
	recordOperation(ctx, i.metrics, "interest_accrue_all", start, err)
	return report, err
}

func (i *interestUseCaseWithMetrics) Accrue(ctx context.Context, accountID uuid.UUID) (*domain.Transaction, error) {
	start := time.Now()
	tx, err := i.next.Accrue(ctx, accountID)
	recordOperation(ctx, i.metrics, "interest_accrue", start, err)
	return tx, err
}
