package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/ledger/internal/account/domain"
	"github.com/allisson/ledger/internal/account/usecase"
	"github.com/allisson/ledger/internal/account/usecase/mocks"
	databaseMocks "github.com/allisson/ledger/internal/database/mocks"
	"github.com/allisson/ledger/internal/events"
	outboxUseCase "github.com/allisson/ledger/internal/outbox/usecase"
	outboxMocks "github.com/allisson/ledger/internal/outbox/usecase/mocks"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type interestFixture struct {
	store   *memoryStore
	useCase usecase.InterestUseCase
}

func newInterestFixture(batchSize int) *interestFixture {
	store := newMemoryStore()
	return &interestFixture{
		store: store,
		useCase: usecase.NewInterestUseCase(
			store,
			&accountRepo{store: store},
			&transactionRepo{store: store},
			outboxUseCase.NewEventAppender(&messageRepo{store: store}, "account-service"),
			batchSize,
			discardLogger(),
		),
	}
}

func (f *interestFixture) seed(accountType domain.AccountType, balance, rate string) uuid.UUID {
	account := domain.Account{
		ID:       uuid.Must(uuid.NewV7()),
		OwnerID:  uuid.Must(uuid.NewV7()),
		Type:     accountType,
		Currency: "RUB",
		Balance:  decimal.RequireFromString(balance),
		OpenedAt: time.Now().UTC().AddDate(-1, 0, 0),
		Version:  1,
	}
	if rate != "" {
		account.InterestRate = decimal.NewNullDecimal(decimal.RequireFromString(rate))
	}
	f.store.seed(account)
	return account.ID
}

func (f *interestFixture) accruedEvent(t *testing.T, accountID uuid.UUID) events.InterestAccrued {
	t.Helper()
	for _, msg := range f.store.outbox() {
		if msg.AccountID.UUID != accountID || msg.EventType != string(events.KindInterestAccrued) {
			continue
		}
		ev, err := events.Decode(msg.EventType, envelopeOf(t, msg).Payload)
		require.NoError(t, err)
		return ev.(events.InterestAccrued)
	}
	t.Fatalf("no interest event for account %s", accountID)
	return events.InterestAccrued{}
}

func TestInterestUseCase_Accrue_Deposit(t *testing.T) {
	f := newInterestFixture(0)
	id := f.seed(domain.AccountTypeDeposit, "10000", "10")

	tx, err := f.useCase.Accrue(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, tx)

	ev := f.accruedEvent(t, id)
	expected := domain.Interest(decimal.NewFromInt(10000), decimal.NewFromInt(10), ev.PeriodFrom, ev.PeriodTo)
	require.True(t, expected.IsPositive())

	assert.Equal(t, domain.TransactionTypeDebit, tx.Type)
	assert.Equal(t, domain.InterestAccrualDescription, tx.Description)
	assert.True(t, tx.Amount.Equal(expected), "got %s want %s", tx.Amount, expected)
	assert.True(t, ev.Amount.Equal(expected))
	assert.WithinDuration(t, ev.PeriodTo.AddDate(0, -1, 0), ev.PeriodFrom, time.Second)
	assert.True(t, f.store.account(id).Balance.Equal(decimal.NewFromInt(10000).Add(expected)))
	assert.Equal(t, int64(2), f.store.account(id).Version)
}

func TestInterestUseCase_Accrue_ContinuesFromLastAccrual(t *testing.T) {
	f := newInterestFixture(0)
	id := f.seed(domain.AccountTypeDeposit, "10000", "10")
	ctx := context.Background()

	_, err := f.useCase.Accrue(ctx, id)
	require.NoError(t, err)
	balance := f.store.account(id).Balance

	// The second run starts where the first one ended, so nothing has accrued yet.
	tx, err := f.useCase.Accrue(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, tx)
	assert.True(t, f.store.account(id).Balance.Equal(balance))
	assert.Len(t, f.store.transactionsOf(id), 1)
}

func TestInterestUseCase_Accrue_NegativeCreditBalance(t *testing.T) {
	f := newInterestFixture(0)
	id := f.seed(domain.AccountTypeCredit, "-5000", "20")

	tx, err := f.useCase.Accrue(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, tx)

	ev := f.accruedEvent(t, id)
	assert.True(t, ev.Amount.IsNegative())
	assert.Equal(t, domain.TransactionTypeCredit, tx.Type)
	assert.True(t, tx.Amount.Equal(ev.Amount.Abs()))
	assert.True(t, f.store.account(id).Balance.Equal(decimal.NewFromInt(-5000).Add(ev.Amount)))
}

func TestInterestUseCase_Accrue_Skips(t *testing.T) {
	f := newInterestFixture(0)
	ctx := context.Background()

	checking := f.seed(domain.AccountTypeChecking, "1000", "")
	zeroRate := f.seed(domain.AccountTypeDeposit, "1000", "0")
	empty := f.seed(domain.AccountTypeDeposit, "0", "5")
	closed := f.seed(domain.AccountTypeDeposit, "1000", "5")
	account := f.store.account(closed)
	closedAt := time.Now()
	account.ClosedAt = &closedAt
	f.store.seed(account)

	for _, id := range []uuid.UUID{checking, zeroRate, empty, closed} {
		tx, err := f.useCase.Accrue(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, tx)
	}
	assert.Empty(t, f.store.outbox())
}

func TestInterestUseCase_AccrueAll(t *testing.T) {
	f := newInterestFixture(1)
	ctx := context.Background()

	accrued := []uuid.UUID{
		f.seed(domain.AccountTypeDeposit, "1000", "5"),
		f.seed(domain.AccountTypeCredit, "-1000", "25"),
	}
	f.seed(domain.AccountTypeDeposit, "1000", "0")
	f.seed(domain.AccountTypeChecking, "1000", "")

	report, err := f.useCase.AccrueAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, &usecase.AccrualReport{Accrued: 2, Skipped: 1}, report)
	for _, id := range accrued {
		assert.Len(t, f.store.transactionsOf(id), 1)
	}
	assert.Len(t, f.store.outbox(), 2)
}

func TestInterestUseCase_AccrueAll_CountsFailures(t *testing.T) {
	ctx := context.Background()
	txManager := &databaseMocks.MockTxManager{}
	accounts := &mocks.MockAccountRepository{}
	appender := &outboxMocks.MockEventAppender{}
	useCase := usecase.NewInterestUseCase(
		txManager,
		accounts,
		&mocks.MockTransactionRepository{},
		appender,
		10,
		discardLogger(),
	)

	failing := &domain.Account{ID: uuid.Must(uuid.NewV7())}
	accounts.On("ListInterestBearing", ctx, uuid.Nil, 10).Return([]*domain.Account{failing}, nil)
	txManager.On("WithSerializableTx", ctx, mock.Anything).Return(nil)
	accounts.On("Get", ctx, failing.ID).Return(nil, assert.AnError)

	report, err := useCase.AccrueAll(ctx)

	require.NoError(t, err)
	assert.Equal(t, &usecase.AccrualReport{Failed: 1}, report)
	appender.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything)
}

func TestInterestUseCase_AccrueAll_ListError(t *testing.T) {
	ctx := context.Background()
	accounts := &mocks.MockAccountRepository{}
	useCase := usecase.NewInterestUseCase(
		&databaseMocks.MockTxManager{},
		accounts,
		&mocks.MockTransactionRepository{},
		&outboxMocks.MockEventAppender{},
		10,
		discardLogger(),
	)
	accounts.On("ListInterestBearing", ctx, uuid.Nil, 10).Return(nil, assert.AnError)

	_, err := useCase.AccrueAll(ctx)

	assert.ErrorIs(t, err, assert.AnError)
}
