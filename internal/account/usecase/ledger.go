package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/allisson/ledger/internal/account/domain"
	"github.com/allisson/ledger/internal/events"
)

// ledger is the balance mutation path shared by transactions, transfers and interest.
// Callers run it inside a serializable unit of work.
type ledger struct {
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
}

// entry describes one side of a posting.
type entry struct {
	account      *domain.Account
	counterparty uuid.NullUUID
	kind         domain.TransactionType
	amount       decimal.Decimal
	description  string
}

// post mutates the balance of e.account and records the matching transaction row.
func (l *ledger) post(ctx context.Context, e entry, at time.Time) (*domain.Transaction, error) {
	if err := l.mutate(ctx, e.account, e.kind, e.amount); err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		ID:             uuid.Must(uuid.NewV7()),
		AccountID:      e.account.ID,
		CounterpartyID: e.counterparty,
		Amount:         e.amount,
		Currency:       e.account.Currency,
		Type:           e.kind,
		Description:    e.description,
		OccurredAt:     at,
	}
	if err := l.transactionRepo.Create(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// mutate writes the new balance under the version check, then re-reads the account and
// requires the stored balance to equal the expected one.
func (l *ledger) mutate(
	ctx context.Context,
	account *domain.Account,
	kind domain.TransactionType,
	amount decimal.Decimal,
) error {
	before := account.Balance
	next, err := account.Apply(kind, amount)
	if err != nil {
		return err
	}
	expected := before.Add(kind.Delta(amount))

	account.Balance = next
	if err := l.accountRepo.Update(ctx, account); err != nil {
		account.Balance = before
		return err
	}

	stored, err := l.accountRepo.Get(ctx, account.ID)
	if err != nil {
		return err
	}
	if !stored.Balance.Equal(expected) {
		return fmt.Errorf(
			"%w: account %s holds %s, expected %s",
			domain.ErrBalanceMismatch,
			account.ID,
			stored.Balance.StringFixed(2),
			expected.StringFixed(2),
		)
	}
	*account = *stored
	return nil
}

// movementEvent describes tx as money leaving or entering its account.
func movementEvent(tx *domain.Transaction) events.Event {
	base := events.NewBase(tx.OccurredAt)
	if tx.Type.Delta(tx.Amount).IsNegative() {
		return events.MoneyDebited{
			Base:        base,
			AccountID:   tx.AccountID,
			Amount:      tx.Amount,
			Currency:    tx.Currency,
			OperationID: tx.ID,
			Reason:      tx.Description,
		}
	}
	return events.MoneyCredited{
		Base:        base,
		AccountID:   tx.AccountID,
		Amount:      tx.Amount,
		Currency:    tx.Currency,
		OperationID: tx.ID,
	}
}
