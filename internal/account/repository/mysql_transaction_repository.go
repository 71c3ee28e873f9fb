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

// MySQLTransactionRepository handles transaction persistence for MySQL.
type MySQLTransactionRepository struct {
	db *sql.DB
}

// NewMySQLTransactionRepository creates a new MySQLTransactionRepository.
func NewMySQLTransactionRepository(db *sql.DB) *MySQLTransactionRepository {
	return &MySQLTransactionRepository{db: db}
}

// Create inserts a new transaction.
func (r *MySQLTransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	querier := database.GetTx(ctx, r.db)

	id, err := tx.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal transaction id")
	}
	accountID, err := tx.AccountID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal account id")
	}
	var counterpartyID []byte
	if tx.CounterpartyID.Valid {
		if counterpartyID, err = tx.CounterpartyID.UUID.MarshalBinary(); err != nil {
			return apperrors.Wrap(err, "failed to marshal counterparty id")
		}
	}

	query := `INSERT INTO transactions (` + transactionColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		accountID,
		counterpartyID,
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
func (r *MySQLTransactionRepository) ListByAccountBetween(
	ctx context.Context,
	accountID uuid.UUID,
	from, to time.Time,
) ([]*domain.Transaction, error) {
	querier := database.GetTx(ctx, r.db)

	account, err := accountID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal account id")
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions
			  WHERE account_id = ? AND occurred_at >= ? AND occurred_at <= ?
			  ORDER BY occurred_at ASC, id ASC`

	rows, err := querier.QueryContext(ctx, query, account, from, to)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list transactions")
	}
	defer rows.Close() //nolint:errcheck

	transactions := make([]*domain.Transaction, 0)
	for rows.Next() {
		tx, err := scanMySQLTransaction(rows)
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
func (r *MySQLTransactionRepository) LastByDescription(
	ctx context.Context,
	accountID uuid.UUID,
	description string,
) (*domain.Transaction, error) {
	querier := database.GetTx(ctx, r.db)

	account, err := accountID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal account id")
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions
			  WHERE account_id = ? AND description = ?
			  ORDER BY occurred_at DESC, id DESC
			  LIMIT 1`

	tx, err := scanMySQLTransaction(querier.QueryRowContext(ctx, query, account, description))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get last transaction")
	}
	return tx, nil
}

func scanMySQLTransaction(row rowScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var id, accountID, counterpartyID []byte

	err := row.Scan(
		&id,
		&accountID,
		&counterpartyID,
		&tx.Amount,
		&tx.Currency,
		&tx.Type,
		&tx.Description,
		&tx.OccurredAt,
	)
	if err != nil {
		return nil, err
	}

	if err := tx.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal transaction id")
	}
	if err := tx.AccountID.UnmarshalBinary(accountID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal account id")
	}
	if counterpartyID != nil {
		if err := tx.CounterpartyID.UUID.UnmarshalBinary(counterpartyID); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal counterparty id")
		}
		tx.CounterpartyID.Valid = true
	}
	return &tx, nil
}
