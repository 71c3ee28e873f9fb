package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/ledger/internal/account/domain"
	"github.com/allisson/ledger/internal/database"
	outboxUseCase "github.com/allisson/ledger/internal/outbox/usecase"
)

// transactionUseCase implements TransactionUseCase.
type transactionUseCase struct {
	txManager   database.TxManager
	accountRepo AccountRepository
	ledger      *ledger
	appender    outboxUseCase.EventAppender
	validator   CommandValidator
	now         func() time.Time
}

// NewTransactionUseCase creates a new TransactionUseCase.
func NewTransactionUseCase(
	txManager database.TxManager,
	accountRepo AccountRepository,
	transactionRepo TransactionRepository,
	appender outboxUseCase.EventAppender,
	validator CommandValidator,
) TransactionUseCase {
	return &transactionUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		ledger:      &ledger{accountRepo: accountRepo, transactionRepo: transactionRepo},
		appender:    appender,
		validator:   validator,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// RegisterTransaction posts a single-account transaction and appends its money event.
func (t *transactionUseCase) RegisterTransaction(
	ctx context.Context,
	input *domain.RegisterTransactionInput,
) (*domain.Transaction, error) {
	if err := t.validator.ValidateTransactionInput(input); err != nil {
		return nil, err
	}

	var result *domain.Transaction
	err := t.txManager.WithSerializableTx(ctx, func(ctx context.Context) error {
		account, err := t.accountRepo.Get(ctx, input.AccountID)
		if err != nil {
			return err
		}
		if err := t.validator.ValidateTransactionAccount(ctx, input, account); err != nil {
			return err
		}

		tx, err := t.ledger.post(ctx, entry{
			account:     account,
			kind:        input.Type,
			amount:      input.Amount,
			description: input.Description,
		}, t.now())
		if err != nil {
			return err
		}

		if _, err := t.appender.Append(ctx, account.ID, movementEvent(tx)); err != nil {
			return err
		}

		result = tx
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Transfer moves funds between two accounts. Both balances are computed from a single read,
// and the side losing funds is posted and appended first so its event precedes the other
// leg's in the outbox. The second leg's event is caused by the first one.
func (t *transactionUseCase) Transfer(
	ctx context.Context,
	input *domain.TransferInput,
) (*domain.TransferResult, error) {
	if input.CounterpartyID == uuid.Nil {
		return nil, domain.ErrCounterpartyRequired
	}
	if input.CounterpartyID == input.AccountID {
		return nil, domain.ErrSameAccount
	}
	if err := t.validator.ValidateTransferInput(input); err != nil {
		return nil, err
	}

	var result *domain.TransferResult
	err := t.txManager.WithSerializableTx(ctx, func(ctx context.Context) error {
		source, err := t.accountRepo.Get(ctx, input.AccountID)
		if err != nil {
			return err
		}
		counterparty, err := t.accountRepo.Get(ctx, input.CounterpartyID)
		if err != nil {
			return err
		}
		if err := t.validator.ValidateTransferAccounts(ctx, input, source, counterparty); err != nil {
			return err
		}

		sourceEntry := entry{
			account:      source,
			counterparty: uuid.NullUUID{UUID: counterparty.ID, Valid: true},
			kind:         input.Type,
			amount:       input.Amount,
			description:  input.Description,
		}
		counterpartyEntry := entry{
			account:      counterparty,
			counterparty: uuid.NullUUID{UUID: source.ID, Valid: true},
			kind:         input.Type.Opposite(),
			amount:       input.Amount,
			description:  input.Description,
		}

		// Both sides must be acceptable before anything is written.
		if _, err := source.Apply(sourceEntry.kind, sourceEntry.amount); err != nil {
			return err
		}
		if _, err := counterparty.Apply(counterpartyEntry.kind, counterpartyEntry.amount); err != nil {
			return err
		}

		debited, credited := sourceEntry, counterpartyEntry
		if !input.Type.Delta(input.Amount).IsNegative() {
			debited, credited = counterpartyEntry, sourceEntry
		}

		at := t.now()
		debitedTx, err := t.ledger.post(ctx, debited, at)
		if err != nil {
			return err
		}
		creditedTx, err := t.ledger.post(ctx, credited, at)
		if err != nil {
			return err
		}

		debitedMsg, err := t.appender.Append(ctx, debited.account.ID, movementEvent(debitedTx))
		if err != nil {
			return err
		}
		_, err = t.appender.Append(
			ctx,
			credited.account.ID,
			movementEvent(creditedTx),
			outboxUseCase.CausedBy(debitedMsg),
		)
		if err != nil {
			return err
		}

		result = &domain.TransferResult{Source: debitedTx, Counterparty: creditedTx}
		if debited.account.ID != source.ID {
			result = &domain.TransferResult{Source: creditedTx, Counterparty: debitedTx}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
