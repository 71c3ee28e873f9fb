package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType tags the direction of a transaction relative to its owning account.
type TransactionType string

const (
	// TransactionTypeDebit moves funds into the owning account.
	TransactionTypeDebit TransactionType = "Debit"
	// TransactionTypeCredit moves funds out of the owning account.
	TransactionTypeCredit TransactionType = "Credit"
)

// InterestAccrualDescription is the description of transactions created by interest accrual.
const InterestAccrualDescription = "Interest Accrual"

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeDebit || t == TransactionTypeCredit
}

// Delta returns the signed balance change of a transaction of type t.
func (t TransactionType) Delta(amount decimal.Decimal) decimal.Decimal {
	if t == TransactionTypeCredit {
		return amount.Neg()
	}
	return amount
}

// Opposite returns the type of the mirrored leg of a transfer.
func (t TransactionType) Opposite() TransactionType {
	if t == TransactionTypeCredit {
		return TransactionTypeDebit
	}
	return TransactionTypeCredit
}

// Transaction is an immutable ledger entry of one account. A transfer is recorded as two
// transactions pointing at each other's account.
type Transaction struct {
	ID             uuid.UUID
	AccountID      uuid.UUID
	CounterpartyID uuid.NullUUID
	Amount         decimal.Decimal
	Currency       string
	Type           TransactionType
	Description    string
	OccurredAt     time.Time
}

// RegisterTransactionInput is the command of a single-account transaction.
type RegisterTransactionInput struct {
	AccountID   uuid.UUID
	Amount      decimal.Decimal
	Currency    string
	Type        TransactionType
	Description string
}

// TransferInput is the command of a two-account transfer. Type applies to the source.
type TransferInput struct {
	AccountID      uuid.UUID
	CounterpartyID uuid.UUID
	Amount         decimal.Decimal
	Currency       string
	Type           TransactionType
	Description    string
}

// TransferResult holds both legs of a transfer.
type TransferResult struct {
	Source       *Transaction
	Counterparty *Transaction
}

// Statement is an account with its transactions in a period.
type Statement struct {
	Account      *Account
	From         time.Time
	To           time.Time
	Transactions []*Transaction
}

// OpenAccountInput is the command of opening an account.
type OpenAccountInput struct {
	OwnerID      uuid.UUID
	Type         AccountType
	Currency     string
	InterestRate decimal.NullDecimal
}
