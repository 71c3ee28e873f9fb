// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/allisson/ledger/internal/account/domain"
)

// OpenAccountRequest contains the parameters for opening an account.
type OpenAccountRequest struct {
	OwnerID      uuid.UUID        `json:"owner_id"`
	Type         string           `json:"type"`
	Currency     string           `json:"currency"`
	InterestRate *decimal.Decimal `json:"interest_rate"`
}

// ToInput maps the request to the use case input.
func (r *OpenAccountRequest) ToInput() *domain.OpenAccountInput {
	return &domain.OpenAccountInput{
		OwnerID:      r.OwnerID,
		Type:         domain.AccountType(r.Type),
		Currency:     r.Currency,
		InterestRate: nullDecimal(r.InterestRate),
	}
}

// UpdateInterestRateRequest sets or clears the interest rate of an account.
// A null rate removes it.
type UpdateInterestRateRequest struct {
	InterestRate *decimal.Decimal `json:"interest_rate"`
}

// Rate returns the requested rate.
func (r *UpdateInterestRateRequest) Rate() decimal.NullDecimal {
	return nullDecimal(r.InterestRate)
}

// RegisterTransactionRequest contains the parameters for posting a single-account transaction.
type RegisterTransactionRequest struct {
	AccountID   uuid.UUID       `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
}

// ToInput maps the request to the use case input.
func (r *RegisterTransactionRequest) ToInput() *domain.RegisterTransactionInput {
	return &domain.RegisterTransactionInput{
		AccountID:   r.AccountID,
		Amount:      r.Amount,
		Currency:    r.Currency,
		Type:        domain.TransactionType(r.Type),
		Description: r.Description,
	}
}

// TransferRequest contains the parameters for a transfer between two accounts.
type TransferRequest struct {
	AccountID      uuid.UUID       `json:"account_id"`
	CounterpartyID uuid.UUID       `json:"counterparty_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Type           string          `json:"type"`
	Description    string          `json:"description"`
}

// ToInput maps the request to the use case input.
func (r *TransferRequest) ToInput() *domain.TransferInput {
	return &domain.TransferInput{
		AccountID:      r.AccountID,
		CounterpartyID: r.CounterpartyID,
		Amount:         r.Amount,
		Currency:       r.Currency,
		Type:           domain.TransactionType(r.Type),
		Description:    r.Description,
	}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
