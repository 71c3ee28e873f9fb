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

// MySQLAccountRepository handles account persistence for MySQL. UUIDs are stored as BINARY(16).
type MySQLAccountRepository struct {
	db *sql.DB
}

// NewMySQLAccountRepository creates a new MySQLAccountRepository.
func NewMySQLAccountRepository(db *sql.DB) *MySQLAccountRepository {
	return &MySQLAccountRepository{db: db}
}

// Create inserts a new account.
func (r *MySQLAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	querier := database.GetTx(ctx, r.db)

	id, err := account.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal account id")
	}
	ownerID, err := account.OwnerID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal owner id")
	}

	query := `INSERT INTO accounts (` + accountColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		ownerID,
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
func (r *MySQLAccountRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal account id")
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`

	account, err := scanMySQLAccount(querier.QueryRowContext(ctx, query, idBytes))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(database.ClassifyError(err), "failed to get account")
	}
	return account, nil
}

// Update writes the mutable fields of account if its version is unchanged, then bumps
// account.Version.
func (r *MySQLAccountRepository) Update(ctx context.Context, account *domain.Account) error {
	querier := database.GetTx(ctx, r.db)

	id, err := account.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal account id")
	}

	query := `UPDATE accounts
			  SET balance = ?, interest_rate = ?, closed_at = ?, frozen = ?, version = version + 1
			  WHERE id = ? AND version = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		account.Balance,
		account.InterestRate,
		account.ClosedAt,
		account.Frozen,
		id,
		account.Version,
	)
	if err != nil {
		return apperrors.Wrap(database.ClassifyError(err), "failed to update account")
	}

	return checkVersionedUpdate(result, account)
}

// ListByOwner returns the accounts of an owner ordered by opening time.
func (r *MySQLAccountRepository) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	offset, limit int,
) ([]*domain.Account, error) {
	querier := database.GetTx(ctx, r.db)

	owner, err := ownerID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal owner id")
	}

	query := `SELECT ` + accountColumns + ` FROM accounts
			  WHERE owner_id = ?
			  ORDER BY opened_at ASC, id ASC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, owner, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list accounts")
	}
	return collectMySQLAccounts(rows)
}

// SetFrozenByOwner sets the frozen flag of every open account of an owner.
func (r *MySQLAccountRepository) SetFrozenByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	frozen bool,
) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	owner, err := ownerID.MarshalBinary()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to marshal owner id")
	}

	query := `UPDATE accounts SET frozen = ?, version = version + 1
			  WHERE owner_id = ? AND frozen <> ? AND closed_at IS NULL`

	result, err := querier.ExecContext(ctx, query, frozen, owner, frozen)
	if err != nil {
		return 0, apperrors.Wrap(database.ClassifyError(err), "failed to set frozen flag")
	}
	return result.RowsAffected()
}

// ListInterestBearing pages through open accounts with an interest rate, ordered by id.
func (r *MySQLAccountRepository) ListInterestBearing(
	ctx context.Context,
	afterID uuid.UUID,
	limit int,
) ([]*domain.Account, error) {
	querier := database.GetTx(ctx, r.db)

	after, err := afterID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal account id")
	}

	query := `SELECT ` + accountColumns + ` FROM accounts
			  WHERE interest_rate IS NOT NULL AND closed_at IS NULL AND id > ?
			  ORDER BY id ASC
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, after, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list interest bearing accounts")
	}
	return collectMySQLAccounts(rows)
}

func scanMySQLAccount(row rowScanner) (*domain.Account, error) {
	var account domain.Account
	var id, ownerID []byte

	err := row.Scan(
		&id,
		&ownerID,
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

	if err := account.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal account id")
	}
	if err := account.OwnerID.UnmarshalBinary(ownerID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal owner id")
	}
	return &account, nil
}

func collectMySQLAccounts(rows *sql.Rows) ([]*domain.Account, error) {
	defer rows.Close() //nolint:errcheck

	accounts := make([]*domain.Account, 0)
	for rows.Next() {
		account, err := scanMySQLAccount(rows)
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
