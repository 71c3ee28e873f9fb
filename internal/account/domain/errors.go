// Package domain defines core domain models and errors for accounts.
package domain

import (
	"github.com/allisson/ledger/internal/errors"
)

// Account-specific error definitions.
var (
	// ErrAccountNotFound indicates the account does not exist.
	ErrAccountNotFound = errors.Wrap(errors.ErrNotFound, "account not found")

	// ErrTransactionNotFound indicates no transaction matched the lookup.
	ErrTransactionNotFound = errors.Wrap(errors.ErrNotFound, "transaction not found")

	// ErrConcurrentModification indicates the account version changed since it was read.
	ErrConcurrentModification = errors.Wrap(errors.ErrConflict, "account was modified concurrently")

	// ErrAccountClosed indicates a mutation of a closed account.
	ErrAccountClosed = errors.Wrap(errors.ErrConflict, "account is closed")

	// ErrAccountFrozen indicates an outflow from a frozen account.
	ErrAccountFrozen = errors.Wrap(errors.ErrConflict, "account is frozen")

	// ErrBalanceMismatch indicates the stored balance differs from the expected post-mutation balance.
	ErrBalanceMismatch = errors.Wrap(errors.ErrInvalidInput, "balance does not match the expected value")

	// ErrNegativeBalance indicates a mutation would drive a non-credit account below zero.
	ErrNegativeBalance = errors.Wrap(errors.ErrInvalidInput, "balance cannot become negative")

	// ErrSameAccount indicates a transfer whose counterparty is the source account.
	ErrSameAccount = errors.Wrap(errors.ErrInvalidInput, "counterparty must differ from the source account")

	// ErrCounterpartyRequired indicates a transfer without a counterparty.
	ErrCounterpartyRequired = errors.Wrap(errors.ErrInvalidInput, "counterparty is required")
)
