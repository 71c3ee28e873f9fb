package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/allisson/ledger/internal/account/domain"
	"github.com/allisson/ledger/internal/database"
	"github.com/allisson/ledger/internal/events"
	outboxUseCase "github.com/allisson/ledger/internal/outbox/usecase"
)

// accountUseCase implements AccountUseCase.
type accountUseCase struct {
	txManager       database.TxManager
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	appender        outboxUseCase.EventAppender
	validator       CommandValidator
	now             func() time.Time
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(
	txManager database.TxManager,
	accountRepo AccountRepository,
	transactionRepo TransactionRepository,
	appender outboxUseCase.EventAppender,
	validator CommandValidator,
) AccountUseCase {
	return &accountUseCase{
		txManager:       txManager,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		appender:        appender,
		validator:       validator,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Open creates an empty account and appends AccountOpenedEvent.
func (a *accountUseCase) Open(ctx context.Context, input *domain.OpenAccountInput) (*domain.Account, error) {
	if err := a.validator.ValidateOpen(ctx, input); err != nil {
		return nil, err
	}

	account := &domain.Account{
		ID:           uuid.Must(uuid.NewV7()),
		OwnerID:      input.OwnerID,
		Type:         input.Type,
		Currency:     input.Currency,
		Balance:      decimal.Zero,
		InterestRate: input.InterestRate,
		OpenedAt:     a.now(),
		Version:      1,
	}

	err := a.txManager.WithSerializableTx(ctx, func(ctx context.Context) error {
		if err := a.accountRepo.Create(ctx, account); err != nil {
			return err
		}
		_, err := a.appender.Append(ctx, account.ID, events.AccountOpened{
			Base:      events.NewBase(account.OpenedAt),
			AccountID: account.ID,
			OwnerID:   account.OwnerID,
			Currency:  account.Currency,
			Type:      string(account.Type),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}

// Get retrieves an account by id.
func (a *accountUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return a.accountRepo.Get(ctx, id)
}

// ListByOwner returns a page of an owner's accounts.
func (a *accountUseCase) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	offset, limit int,
) ([]*domain.Account, error) {
	if err := a.validator.ValidatePage(offset, limit); err != nil {
		return nil, err
	}
	return a.accountRepo.ListByOwner(ctx, ownerID, offset, limit)
}

// Close stamps the close time of an open account.
func (a *accountUseCase) Close(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var account *domain.Account
	err := a.txManager.WithSerializableTx(ctx, func(ctx context.Context) error {
		var err error
		account, err = a.accountRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		if account.IsClosed() {
			return domain.ErrAccountClosed
		}

		closedAt := a.now()
		account.ClosedAt = &closedAt
		return a.accountRepo.Update(ctx, account)
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// UpdateInterestRate replaces the interest rate of an open account.
func (a *accountUseCase) UpdateInterestRate(
	ctx context.Context,
	id uuid.UUID,
	rate decimal.NullDecimal,
) (*domain.Account, error) {
	var account *domain.Account
	err := a.txManager.WithSerializableTx(ctx, func(ctx context.Context) error {
		var err error
		account, err = a.accountRepo.Get(ctx, id)
		if err != nil {
			return err
		}
		if account.IsClosed() {
			return domain.ErrAccountClosed
		}
		if err := a.validator.ValidateInterestRate(account.Type, rate); err != nil {
			return err
		}

		account.InterestRate = rate
		return a.accountRepo.Update(ctx, account)
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Statement returns an account with its transactions in [from, to].
func (a *accountUseCase) Statement(
	ctx context.Context,
	id uuid.UUID,
	from, to time.Time,
) (*domain.Statement, error) {
	if err := a.validator.ValidatePeriod(from, to); err != nil {
		return nil, err
	}

	account, err := a.accountRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	transactions, err := a.transactionRepo.ListByAccountBetween(ctx, id, from, to)
	if err != nil {
		return nil, err
	}

	return &domain.Statement{Account: account, From: from, To: to, Transactions: transactions}, nil
}

// BlockClient announces that every account of ownerID must be frozen.
func (a *accountUseCase) BlockClient(ctx context.Context, ownerID uuid.UUID) error {
	return a.announceClient(ctx, ownerID, func(at time.Time) events.Event {
		return events.ClientBlocked{Base: events.NewBase(at), ClientID: ownerID}
	})
}

// UnblockClient lifts a previous BlockClient.
func (a *accountUseCase) UnblockClient(ctx context.Context, ownerID uuid.UUID) error {
	return a.announceClient(ctx, ownerID, func(at time.Time) events.Event {
		return events.ClientUnblocked{Base: events.NewBase(at), ClientID: ownerID}
	})
}

// announceClient appends a client event in the lineage of the owner's first account.
func (a *accountUseCase) announceClient(
	ctx context.Context,
	ownerID uuid.UUID,
	build func(at time.Time) events.Event,
) error {
	return a.txManager.WithTx(ctx, func(ctx context.Context) error {
		accounts, err := a.accountRepo.ListByOwner(ctx, ownerID, 0, 1)
		if err != nil {
			return err
		}
		if len(accounts) == 0 {
			return domain.ErrAccountNotFound
		}

		_, err = a.appender.Append(ctx, accounts[0].ID, build(a.now()))
		return err
	})
}

// SetOwnerFrozen sets the frozen flag on all open accounts of ownerID.
func (a *accountUseCase) SetOwnerFrozen(ctx context.Context, ownerID uuid.UUID, frozen bool) (int64, error) {
	var changed int64
	err := a.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		changed, err = a.accountRepo.SetFrozenByOwner(ctx, ownerID, frozen)
		return err
	})
	return changed, err
}
