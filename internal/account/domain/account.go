package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType is the product kind of an account.
type AccountType string

const (
	AccountTypeChecking AccountType = "Checking"
	AccountTypeDeposit  AccountType = "Deposit"
	AccountTypeCredit   AccountType = "Credit"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeChecking, AccountTypeDeposit, AccountTypeCredit:
		return true
	}
	return false
}

// BearsInterest reports whether accounts of type t carry an interest rate.
func (t AccountType) BearsInterest() bool {
	return t == AccountTypeDeposit || t == AccountTypeCredit
}

// AllowsNegativeBalance reports whether the balance of t may drop below zero.
func (t AccountType) AllowsNegativeBalance() bool {
	return t == AccountTypeCredit
}

// Account is a single-currency balance owned by a client.
type Account struct {
	ID       uuid.UUID
	OwnerID  uuid.UUID
	Type     AccountType
	Currency string
	Balance  decimal.Decimal
	// InterestRate is an annual percentage. Checking accounts have none.
	InterestRate decimal.NullDecimal
	OpenedAt     time.Time
	ClosedAt     *time.Time
	Frozen       bool
	// Version is incremented by the store on every update and compared on write.
	Version int64
}

// IsClosed reports whether the account has been closed.
func (a *Account) IsClosed() bool {
	return a.ClosedAt != nil
}

// Apply returns the balance after a transaction of type t and amount, enforcing the
// closed, frozen and negative-balance rules. The account is not modified.
func (a *Account) Apply(t TransactionType, amount decimal.Decimal) (decimal.Decimal, error) {
	if a.IsClosed() {
		return decimal.Decimal{}, ErrAccountClosed
	}
	delta := t.Delta(amount)
	if delta.IsNegative() && a.Frozen {
		return decimal.Decimal{}, ErrAccountFrozen
	}
	next := a.Balance.Add(delta)
	if next.IsNegative() && !a.Type.AllowsNegativeBalance() {
		return decimal.Decimal{}, ErrNegativeBalance
	}
	return next, nil
}
