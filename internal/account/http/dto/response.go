package dto

import (
	"time"

	"github.com/allisson/ledger/internal/account/domain"
)

// AccountResponse represents an account in API responses. Money is rendered as a decimal string.
type AccountResponse struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"owner_id"`
	Type         string     `json:"type"`
	Currency     string     `json:"currency"`
	Balance      string     `json:"balance"`
	InterestRate *string    `json:"interest_rate"`
	OpenedAt     time.Time  `json:"opened_at"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	Frozen       bool       `json:"frozen"`
	Version      int64      `json:"version"`
}

// ListAccountsResponse is a page of accounts.
type ListAccountsResponse struct {
	Data []AccountResponse `json:"data"`
}

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID             string    `json:"id"`
	AccountID      string    `json:"account_id"`
	CounterpartyID *string   `json:"counterparty_id,omitempty"`
	Amount         string    `json:"amount"`
	Currency       string    `json:"currency"`
	Type           string    `json:"type"`
	Description    string    `json:"description"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// TransferResponse holds both legs of a transfer.
type TransferResponse struct {
	Source       TransactionResponse `json:"source"`
	Counterparty TransactionResponse `json:"counterparty"`
}

// StatementResponse lists the transactions of an account over a period.
type StatementResponse struct {
	Account      AccountResponse       `json:"account"`
	From         time.Time             `json:"from"`
	To           time.Time             `json:"to"`
	Transactions []TransactionResponse `json:"transactions"`
}

// MapAccountToResponse converts a domain account to an API response.
func MapAccountToResponse(account *domain.Account) AccountResponse {
	response := AccountResponse{
		ID:       account.ID.String(),
		OwnerID:  account.OwnerID.String(),
		Type:     string(account.Type),
		Currency: account.Currency,
		Balance:  account.Balance.StringFixed(2),
		OpenedAt: account.OpenedAt,
		ClosedAt: account.ClosedAt,
		Frozen:   account.Frozen,
		Version:  account.Version,
	}
	if account.InterestRate.Valid {
		rate := account.InterestRate.Decimal.String()
		response.InterestRate = &rate
	}
	return response
}

// MapAccountsToListResponse converts a page of accounts.
func MapAccountsToListResponse(accounts []*domain.Account) ListAccountsResponse {
	data := make([]AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		data = append(data, MapAccountToResponse(account))
	}
	return ListAccountsResponse{Data: data}
}

// MapTransactionToResponse converts a domain transaction to an API response.
func MapTransactionToResponse(tx *domain.Transaction) TransactionResponse {
	response := TransactionResponse{
		ID:          tx.ID.String(),
		AccountID:   tx.AccountID.String(),
		Amount:      tx.Amount.StringFixed(2),
		Currency:    tx.Currency,
		Type:        string(tx.Type),
		Description: tx.Description,
		OccurredAt:  tx.OccurredAt,
	}
	if tx.CounterpartyID.Valid {
		id := tx.CounterpartyID.UUID.String()
		response.CounterpartyID = &id
	}
	return response
}

// MapTransferToResponse converts a transfer result.
func MapTransferToResponse(result *domain.TransferResult) TransferResponse {
	return TransferResponse{
		Source:       MapTransactionToResponse(result.Source),
		Counterparty: MapTransactionToResponse(result.Counterparty),
	}
}

// MapStatementToResponse converts a statement.
func MapStatementToResponse(statement *domain.Statement) StatementResponse {
	transactions := make([]TransactionResponse, 0, len(statement.Transactions))
	for _, tx := range statement.Transactions {
		transactions = append(transactions, MapTransactionToResponse(tx))
	}
	return StatementResponse{
		Account:      MapAccountToResponse(statement.Account),
		From:         statement.From,
		To:           statement.To,
		Transactions: transactions,
	}
}
