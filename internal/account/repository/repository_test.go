package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/ledger/internal/account/domain"
	"github.com/allisson/ledger/internal/database"
	"github.com/allisson/ledger/internal/testutil"
)

type accountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	Update(ctx context.Context, account *domain.Account) error
	ListByOwner(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*domain.Account, error)
	SetFrozenByOwner(ctx context.Context, ownerID uuid.UUID, frozen bool) (int64, error)
	ListInterestBearing(ctx context.Context, afterID uuid.UUID, limit int) ([]*domain.Account, error)
}

type transactionRepository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	ListByAccountBetween(ctx context.Context, accountID uuid.UUID, from, to time.Time) ([]*domain.Transaction, error)
	LastByDescription(ctx context.Context, accountID uuid.UUID, description string) (*domain.Transaction, error)
}

type driverCase struct {
	name      string
	skip      func(t *testing.T)
	setup     func(t *testing.T) *sql.DB
	accounts  func(db *sql.DB) accountRepository
	transfers func(db *sql.DB) transactionRepository
}

func driverCases() []driverCase {
	return []driverCase{
		{
			name:  "postgres",
			skip:  testutil.SkipIfNoPostgres,
			setup: testutil.SetupPostgresDB,
			accounts: func(db *sql.DB) accountRepository {
				return NewPostgreSQLAccountRepository(db)
			},
			transfers: func(db *sql.DB) transactionRepository {
				return NewPostgreSQLTransactionRepository(db)
			},
		},
		{
			name:  "mysql",
			skip:  testutil.SkipIfNoMySQL,
			setup: testutil.SetupMySQLDB,
			accounts: func(db *sql.DB) accountRepository {
				return NewMySQLAccountRepository(db)
			},
			transfers: func(db *sql.DB) transactionRepository {
				return NewMySQLTransactionRepository(db)
			},
		},
	}
}

func newAccount(ownerID uuid.UUID, accountType domain.AccountType) *domain.Account {
	account := &domain.Account{
		ID:       uuid.Must(uuid.NewV7()),
		OwnerID:  ownerID,
		Type:     accountType,
		Currency: "RUB",
		Balance:  decimal.Zero,
		OpenedAt: time.Now().UTC().Truncate(time.Millisecond),
		Version:  1,
	}
	if accountType.BearsInterest() {
		account.InterestRate = decimal.NewNullDecimal(decimal.RequireFromString("7.5"))
	}
	return account
}

func TestAccountRepository_CreateAndGet(t *testing.T) {
	for _, dc := range driverCases() {
		t.Run(dc.name, func(t *testing.T) {
			dc.skip(t)
			db := dc.setup(t)
			defer testutil.TeardownDB(t, db)

			repo := dc.accounts(db)
			ctx := context.Background()

			account := newAccount(uuid.Must(uuid.NewV7()), domain.AccountTypeDeposit)
			account.Balance = decimal.RequireFromString("1000.50")
			require.NoError(t, repo.Create(ctx, account))

			got, err := repo.Get(ctx, account.ID)
			require.NoError(t, err)
			assert.Equal(t, account.ID, got.ID)
			assert.Equal(t, account.OwnerID, got.OwnerID)
			assert.Equal(t, domain.AccountTypeDeposit, got.Type)
			assert.Equal(t, "RUB", got.Currency)
			assert.True(t, account.Balance.Equal(got.Balance), got.Balance.String())
			require.True(t, got.InterestRate.Valid)
			assert.True(t, got.InterestRate.Decimal.Equal(decimal.RequireFromString("7.5")))
			assert.Nil(t, got.ClosedAt)
			assert.False(t, got.Frozen)
			assert.Equal(t, int64(1), got.Version)

			_, err = repo.Get(ctx, uuid.New())
			assert.ErrorIs(t, err, domain.ErrAccountNotFound)
		})
	}
}

func TestAccountRepository_UpdateComparesVersion(t *testing.T) {
	for _, dc := range driverCases() {
		t.Run(dc.name, func(t *testing.T) {
			dc.skip(t)
			db := dc.setup(t)
			defer testutil.TeardownDB(t, db)

			repo := dc.accounts(db)
			ctx := context.Background()

			account := newAccount(uuid.Must(uuid.NewV7()), domain.AccountTypeChecking)
			require.NoError(t, repo.Create(ctx, account))

			first, err := repo.Get(ctx, account.ID)
			require.NoError(t, err)
			second, err := repo.Get(ctx, account.ID)
			require.NoError(t, err)

			first.Balance = decimal.NewFromInt(100)
			require.NoError(t, repo.Update(ctx, first))
			assert.Equal(t, int64(2), first.Version)

			second.Balance = decimal.NewFromInt(200)
			err = repo.Update(ctx, second)
			assert.ErrorIs(t, err, domain.ErrConcurrentModification)

			stored, err := repo.Get(ctx, account.ID)
			require.NoError(t, err)
			assert.True(t, stored.Balance.Equal(decimal.NewFromInt(100)))
			assert.Equal(t, int64(2), stored.Version)
		})
	}
}

func TestAccountRepository_ListByOwnerAndFreeze(t *testing.T) {
	for _, dc := range driverCases() {
		t.Run(dc.name, func(t *testing.T) {
			dc.skip(t)
			db := dc.setup(t)
			defer testutil.TeardownDB(t, db)

			repo := dc.accounts(db)
			ctx := context.Background()
			ownerID := uuid.Must(uuid.NewV7())

			checking := newAccount(ownerID, domain.AccountTypeChecking)
			deposit := newAccount(ownerID, domain.AccountTypeDeposit)
			deposit.OpenedAt = checking.OpenedAt.Add(time.Second)
			closed := newAccount(ownerID, domain.AccountTypeCredit)
			closed.OpenedAt = checking.OpenedAt.Add(2 * time.Second)
			closedAt := closed.OpenedAt.Add(time.Hour)
			closed.ClosedAt = &closedAt
			other := newAccount(uuid.Must(uuid.NewV7()), domain.AccountTypeChecking)

			for _, account := range []*domain.Account{checking, deposit, closed, other} {
				require.NoError(t, repo.Create(ctx, account))
			}

			page, err := repo.ListByOwner(ctx, ownerID, 0, 2)
			require.NoError(t, err)
			require.Len(t, page, 2)
			assert.Equal(t, checking.ID, page[0].ID)
			assert.Equal(t, deposit.ID, page[1].ID)

			page, err = repo.ListByOwner(ctx, ownerID, 2, 2)
			require.NoError(t, err)
			require.Len(t, page, 1)
			assert.Equal(t, closed.ID, page[0].ID)

			changed, err := repo.SetFrozenByOwner(ctx, ownerID, true)
			require.NoError(t, err)
			assert.Equal(t, int64(2), changed, "closed accounts are left alone")

			changed, err = repo.SetFrozenByOwner(ctx, ownerID, true)
			require.NoError(t, err)
			assert.Zero(t, changed)

			stored, err := repo.Get(ctx, checking.ID)
			require.NoError(t, err)
			assert.True(t, stored.Frozen)
			assert.Equal(t, int64(2), stored.Version)

			untouched, err := repo.Get(ctx, other.ID)
			require.NoError(t, err)
			assert.False(t, untouched.Frozen)
		})
	}
}

func TestAccountRepository_ListInterestBearing(t *testing.T) {
	for _, dc := range driverCases() {
		t.Run(dc.name, func(t *testing.T) {
			dc.skip(t)
			db := dc.setup(t)
			defer testutil.TeardownDB(t, db)

			repo := dc.accounts(db)
			ctx := context.Background()
			ownerID := uuid.Must(uuid.NewV7())

			bearing := make([]*domain.Account, 0, 3)
			for range 3 {
				account := newAccount(ownerID, domain.AccountTypeDeposit)
				require.NoError(t, repo.Create(ctx, account))
				bearing = append(bearing, account)
			}
			require.NoError(t, repo.Create(ctx, newAccount(ownerID, domain.AccountTypeChecking)))

			first, err := repo.ListInterestBearing(ctx, uuid.Nil, 2)
			require.NoError(t, err)
			require.Len(t, first, 2)
			assert.Equal(t, bearing[0].ID, first[0].ID)
			assert.Equal(t, bearing[1].ID, first[1].ID)

			rest, err := repo.ListInterestBearing(ctx, first[1].ID, 2)
			require.NoError(t, err)
			require.Len(t, rest, 1)
			assert.Equal(t, bearing[2].ID, rest[0].ID)
		})
	}
}

func TestTransactionRepository_CreateAndList(t *testing.T) {
	for _, dc := range driverCases() {
		t.Run(dc.name, func(t *testing.T) {
			dc.skip(t)
			db := dc.setup(t)
			defer testutil.TeardownDB(t, db)

			accounts := dc.accounts(db)
			repo := dc.transfers(db)
			ctx := context.Background()

			source := newAccount(uuid.Must(uuid.NewV7()), domain.AccountTypeChecking)
			target := newAccount(uuid.Must(uuid.NewV7()), domain.AccountTypeChecking)
			require.NoError(t, accounts.Create(ctx, source))
			require.NoError(t, accounts.Create(ctx, target))

			base := time.Now().UTC().Truncate(time.Millisecond)
			deposit := &domain.Transaction{
				ID:          uuid.Must(uuid.NewV7()),
				AccountID:   source.ID,
				Amount:      decimal.NewFromInt(1000),
				Currency:    "RUB",
				Type:        domain.TransactionTypeDebit,
				Description: "salary",
				OccurredAt:  base,
			}
			transfer := &domain.Transaction{
				ID:             uuid.Must(uuid.NewV7()),
				AccountID:      source.ID,
				CounterpartyID: uuid.NullUUID{UUID: target.ID, Valid: true},
				Amount:         decimal.RequireFromString("300.25"),
				Currency:       "RUB",
				Type:           domain.TransactionTypeCredit,
				Description:    "rent",
				OccurredAt:     base.Add(time.Minute),
			}
			require.NoError(t, repo.Create(ctx, deposit))
			require.NoError(t, repo.Create(ctx, transfer))

			all, err := repo.ListByAccountBetween(ctx, source.ID, base, base.Add(time.Hour))
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, deposit.ID, all[0].ID)
			assert.False(t, all[0].CounterpartyID.Valid)
			assert.Equal(t, transfer.ID, all[1].ID)
			assert.Equal(t, target.ID, all[1].CounterpartyID.UUID)
			assert.True(t, all[1].Amount.Equal(transfer.Amount))
			assert.Equal(t, domain.TransactionTypeCredit, all[1].Type)

			window, err := repo.ListByAccountBetween(ctx, source.ID, base.Add(time.Second), base.Add(time.Hour))
			require.NoError(t, err)
			require.Len(t, window, 1)
			assert.Equal(t, transfer.ID, window[0].ID)

			empty, err := repo.ListByAccountBetween(ctx, target.ID, base, base.Add(time.Hour))
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestTransactionRepository_LastByDescription(t *testing.T) {
	for _, dc := range driverCases() {
		t.Run(dc.name, func(t *testing.T) {
			dc.skip(t)
			db := dc.setup(t)
			defer testutil.TeardownDB(t, db)

			accounts := dc.accounts(db)
			repo := dc.transfers(db)
			ctx := context.Background()

			account := newAccount(uuid.Must(uuid.NewV7()), domain.AccountTypeDeposit)
			require.NoError(t, accounts.Create(ctx, account))

			_, err := repo.LastByDescription(ctx, account.ID, domain.InterestAccrualDescription)
			assert.ErrorIs(t, err, domain.ErrTransactionNotFound)

			base := time.Now().UTC().Truncate(time.Millisecond)
			var last *domain.Transaction
			for i := range 2 {
				last = &domain.Transaction{
					ID:          uuid.Must(uuid.NewV7()),
					AccountID:   account.ID,
					Amount:      decimal.RequireFromString("1.23"),
					Currency:    "RUB",
					Type:        domain.TransactionTypeDebit,
					Description: domain.InterestAccrualDescription,
					OccurredAt:  base.Add(time.Duration(i) * time.Hour),
				}
				require.NoError(t, repo.Create(ctx, last))
			}

			got, err := repo.LastByDescription(ctx, account.ID, domain.InterestAccrualDescription)
			require.NoError(t, err)
			assert.Equal(t, last.ID, got.ID)
			assert.True(t, last.OccurredAt.Equal(got.OccurredAt))
		})
	}
}

func TestAccountRepository_RollbackDiscardsWrites(t *testing.T) {
	for _, dc := range driverCases() {
		t.Run(dc.name, func(t *testing.T) {
			dc.skip(t)
			db := dc.setup(t)
			defer testutil.TeardownDB(t, db)

			repo := dc.accounts(db)
			txManager := database.NewTxManager(db)
			ctx := context.Background()
			account := newAccount(uuid.Must(uuid.NewV7()), domain.AccountTypeChecking)

			err := txManager.WithSerializableTx(ctx, func(ctx context.Context) error {
				if err := repo.Create(ctx, account); err != nil {
					return err
				}
				return assert.AnError
			})
			require.ErrorIs(t, err, assert.AnError)

			_, err = repo.Get(ctx, account.ID)
			assert.ErrorIs(t, err, domain.ErrAccountNotFound)
		})
	}
}
