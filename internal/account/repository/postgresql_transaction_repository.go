package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/ledger/internal/account/domain"
	"github.com/allisson/ledger/internal/database"
	apperrors "github.com/allisson/ledger/internal/errors"
)

const transactionColumns = `id, account_id, counterparty_id, amount, currency, type, description, occurred_at`

// PostgreSQLTransactionRepository handles transaction persistence for PostgreSQL.
type PostgreSQLTransactionRepository struct {
	db *sql.DB
}

// NewPostgreSQLTransactionRepository creates a new PostgreSQLTransactionRepository.
func NewPostgreSQLTransactionRepository(db *sql.DB) *PostgreSQLTransactionRepository {
	return &PostgreSQLTransactionRepository{db: db}
}

// Create inserts a new transaction. Transactions are never updated.
func (r *PostgreSQLTransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO transactions (` + transactionColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := querier.ExecContext(
		ctx,
		query,
		tx.ID,
		tx.AccountID,
		tx.CounterpartyID,
		tx.Amount,
		tx.Currency,
		tx.Type,
		tx.Description,
		tx.OccurredAt,
	)
	if err != nil {
		return apperrors.Wrap(database.ClassifyError(err), "failed to create transaction")
	}
	return nil
}

// ListByAccountBetween returns the transactions of an account in [from, to] ordered by time.
func (r *PostgreSQLTransactionRepository) ListByAccountBetween(
	ctx context.Context,
	accountID uuid.UUID,
	from, to time.Time,
) ([]*domain.Transaction, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + transactionColumns + ` FROM transactions
			  WHERE account_id = $1 AND occurred_at >= $2 AND occurred_at <= $3
			  ORDER BY occurred_at ASC, id ASC`

	rows, err := querier.QueryContext(ctx, query, accountID, from, to)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list transactions")
	}
	defer rows.Close() //nolint:errcheck

	transactions := make([]*domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan transaction")
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate transactions")
	}
	return transactions, nil
}

// LastByDescription returns the most recent transaction of an account with the given description.
func (r *PostgreSQLTransactionRepository) LastByDescription(
	ctx context.Context,
	accountID uuid.UUID,
	description string,
) (*domain.Transaction, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + transactionColumns + ` FROM transactions
			  WHERE account_id = $1 AND description = $2
			  ORDER BY occurred_at DESC, id DESC
			  LIMIT 1`

	tx, err := scanTransaction(querier.QueryRowContext(ctx, query, accountID, description))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get last transaction")
	}
	return tx, nil
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.AccountID,
		&tx.CounterpartyID,
		&tx.Amount,
		&tx.Currency,
		&tx.Type,
		&tx.Description,
		&tx.OccurredAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}
