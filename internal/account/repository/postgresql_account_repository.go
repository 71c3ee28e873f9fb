// Package repository provides data persistence implementations for accounts and transactions.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/ledger/internal/account/domain"
	"github.com/allisson/ledger/internal/database"
	apperrors "github.com/allisson/ledger/internal/errors"
)

const accountColumns = `id, owner_id, type, currency, balance, interest_rate, opened_at, closed_at, frozen, version`

// PostgreSQLAccountRepository handles account persistence for PostgreSQL.
type PostgreSQLAccountRepository struct {
	db *sql.DB
}

// NewPostgreSQLAccountRepository creates a new PostgreSQLAccountRepository.
func NewPostgreSQLAccountRepository(db *sql.DB) *PostgreSQLAccountRepository {
	return &PostgreSQLAccountRepository{db: db}
}

// Create inserts a new account.
func (r *PostgreSQLAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO accounts (` + accountColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := querier.ExecContext(
		ctx,
		query,
		account.ID,
		account.OwnerID,
		account.Type,
		account.Currency,
		account.Balance,
		account.InterestRate,
		account.OpenedAt,
		account.ClosedAt,
		account.Frozen,
		account.Version,
	)
	if err != nil {
		return apperrors.Wrap(database.ClassifyError(err), "failed to create account")
	}
	return nil
}

// Get retrieves an account by id.
func (r *PostgreSQLAccountRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(database.ClassifyError(err), "failed to get account")
	}
	return account, nil
}

// Update writes the mutable fields of account if its version is unchanged, then bumps
// account.Version. A stale version yields domain.ErrConcurrentModification.
func (r *PostgreSQLAccountRepository) Update(ctx context.Context, account *domain.Account) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE accounts
			  SET balance = $1, interest_rate = $2, closed_at = $3, frozen = $4, version = version + 1
			  WHERE id = $5 AND version = $6`

	result, err := querier.ExecContext(
		ctx,
		query,
		account.Balance,
		account.InterestRate,
		account.ClosedAt,
		account.Frozen,
		account.ID,
		account.Version,
	)
	if err != nil {
		return apperrors.Wrap(database.ClassifyError(err), "failed to update account")
	}

	return checkVersionedUpdate(result, account)
}

// ListByOwner returns the accounts of an owner ordered by opening time.
func (r *PostgreSQLAccountRepository) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	offset, limit int,
) ([]*domain.Account, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + accountColumns + ` FROM accounts
			  WHERE owner_id = $1
			  ORDER BY opened_at ASC, id ASC
			  LIMIT $2 OFFSET $3`

	rows, err := querier.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list accounts")
	}
	return collectAccounts(rows)
}

// SetFrozenByOwner sets the frozen flag of every open account of an owner and returns
// how many rows changed.
func (r *PostgreSQLAccountRepository) SetFrozenByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	frozen bool,
) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE accounts SET frozen = $1, version = version + 1
			  WHERE owner_id = $2 AND frozen <> $1 AND closed_at IS NULL`

	result, err := querier.ExecContext(ctx, query, frozen, ownerID)
	if err != nil {
		return 0, apperrors.Wrap(database.ClassifyError(err), "failed to set frozen flag")
	}
	return result.RowsAffected()
}

// ListInterestBearing pages through open accounts with an interest rate, ordered by id.
func (r *PostgreSQLAccountRepository) ListInterestBearing(
	ctx context.Context,
	afterID uuid.UUID,
	limit int,
) ([]*domain.Account, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + accountColumns + ` FROM accounts
			  WHERE interest_rate IS NOT NULL AND closed_at IS NULL AND id > $1
			  ORDER BY id ASC
			  LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list interest bearing accounts")
	}
	return collectAccounts(rows)
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var account domain.Account
	err := row.Scan(
		&account.ID,
		&account.OwnerID,
		&account.Type,
		&account.Currency,
		&account.Balance,
		&account.InterestRate,
		&account.OpenedAt,
		&account.ClosedAt,
		&account.Frozen,
		&account.Version,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func collectAccounts(rows *sql.Rows) ([]*domain.Account, error) {
	defer rows.Close() //nolint:errcheck

	accounts := make([]*domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan account")
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate accounts")
	}
	return accounts, nil
}
