package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/ledger/internal/database"
	apperrors "github.com/allisson/ledger/internal/errors"
	"github.com/allisson/ledger/internal/outbox/domain"
)

// MySQLMessageRepository handles outbox message persistence for MySQL.
// UUIDs are stored as BINARY(16).
type MySQLMessageRepository struct {
	db *sql.DB
}

// NewMySQLMessageRepository creates a new MySQLMessageRepository.
func NewMySQLMessageRepository(db *sql.DB) *MySQLMessageRepository {
	return &MySQLMessageRepository{db: db}
}

// Create inserts a new outbox message and fills in its store assigned sequence.
func (r *MySQLMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	querier := database.GetTx(ctx, r.db)

	id, err := msg.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal outbox message id")
	}

	var accountID []byte
	if msg.AccountID.Valid {
		if accountID, err = msg.AccountID.UUID.MarshalBinary(); err != nil {
			return apperrors.Wrap(err, "failed to marshal account id")
		}
	}

	headers, err := marshalHeaders(msg.Headers)
	if err != nil {
		return err
	}

	query := `INSERT INTO outbox_messages (id, account_id, occurred_at, event_type, routing_key, payload,
			  headers, status, attempts, next_attempt_at, published_at, last_error)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := querier.ExecContext(
		ctx,
		query,
		id,
		accountID,
		msg.OccurredAt,
		msg.EventType,
		msg.RoutingKey,
		msg.Payload,
		headers,
		msg.Status,
		msg.Attempts,
		msg.NextAttemptAt,
		msg.PublishedAt,
		msg.LastError,
	)
	if err != nil {
		return apperrors.Wrap(database.ClassifyError(err), "failed to create outbox message")
	}

	if msg.Sequence, err = result.LastInsertId(); err != nil {
		return apperrors.Wrap(err, "failed to read outbox message sequence")
	}

	return nil
}

// LatestForAccount returns the most recent message in the lineage of an account.
func (r *MySQLMessageRepository) LatestForAccount(
	ctx context.Context,
	accountID uuid.UUID,
) (*domain.Message, error) {
	querier := database.GetTx(ctx, r.db)

	account, err := accountID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal account id")
	}

	query := `SELECT ` + messageColumns + `
			  FROM outbox_messages
			  WHERE account_id = ?
			  ORDER BY occurred_at DESC, sequence DESC
			  LIMIT 1`

	msg, err := r.scan(querier.QueryRowContext(ctx, query, account))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get latest outbox message")
	}

	return msg, nil
}

// ListDue returns pending messages plus failed or lease-expired publishing messages whose
// next attempt is due, oldest first.
func (r *MySQLMessageRepository) ListDue(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*domain.Message, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + messageColumns + `
			  FROM outbox_messages
			  WHERE status = ?
			     OR (status IN (?, ?) AND next_attempt_at <= ?)
			  ORDER BY occurred_at ASC, sequence ASC
			  LIMIT ?`

	rows, err := querier.QueryContext(
		ctx,
		query,
		domain.MessageStatusPending,
		domain.MessageStatusFailed,
		domain.MessageStatusPublishing,
		now,
		limit,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list due outbox messages")
	}
	defer rows.Close() //nolint:errcheck

	var messages []*domain.Message
	for rows.Next() {
		msg, err := r.scan(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan outbox message")
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate outbox messages")
	}

	return messages, nil
}

// Claim moves a due message to publishing and leases it until leaseUntil.
// It reports false when another dispatcher claimed the message first.
func (r *MySQLMessageRepository) Claim(
	ctx context.Context,
	id uuid.UUID,
	now, leaseUntil time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal outbox message id")
	}

	query := `UPDATE outbox_messages
			  SET status = ?, next_attempt_at = ?
			  WHERE id = ?
			    AND (status = ? OR (status IN (?, ?) AND next_attempt_at <= ?))`

	result, err := querier.ExecContext(
		ctx,
		query,
		domain.MessageStatusPublishing,
		leaseUntil,
		idBytes,
		domain.MessageStatusPending,
		domain.MessageStatusFailed,
		domain.MessageStatusPublishing,
		now,
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to claim outbox message")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to claim outbox message")
	}

	return affected == 1, nil
}

// MarkPublished records a successful publish.
func (r *MySQLMessageRepository) MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal outbox message id")
	}

	query := `UPDATE outbox_messages
			  SET status = ?, published_at = ?, next_attempt_at = NULL, last_error = NULL
			  WHERE id = ?`

	if _, err := querier.ExecContext(ctx, query, domain.MessageStatusPublished, at, idBytes); err != nil {
		return apperrors.Wrap(err, "failed to mark outbox message published")
	}
	return nil
}

// MarkFailed records a failed publish. A nil nextAttemptAt parks the message.
func (r *MySQLMessageRepository) MarkFailed(
	ctx context.Context,
	id uuid.UUID,
	attempts int,
	nextAttemptAt *time.Time,
	lastError string,
) error {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal outbox message id")
	}

	query := `UPDATE outbox_messages
			  SET status = ?, attempts = ?, next_attempt_at = ?, last_error = ?
			  WHERE id = ?`

	_, err = querier.ExecContext(ctx, query, domain.MessageStatusFailed, attempts, nextAttemptAt, lastError, idBytes)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark outbox message failed")
	}
	return nil
}

// CountUnpublished returns the number of messages not yet published.
func (r *MySQLMessageRepository) CountUnpublished(ctx context.Context) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	var count int64
	query := `SELECT COUNT(*) FROM outbox_messages WHERE status <> ?`
	if err := querier.QueryRowContext(ctx, query, domain.MessageStatusPublished).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count unpublished outbox messages")
	}
	return count, nil
}

// CountByStatus returns the number of messages per status.
func (r *MySQLMessageRepository) CountByStatus(ctx context.Context) ([]domain.StatusCount, error) {
	querier := database.GetTx(ctx, r.db)

	rows, err := querier.QueryContext(
		ctx,
		`SELECT status, COUNT(*) FROM outbox_messages GROUP BY status ORDER BY status`,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to count outbox messages")
	}
	defer rows.Close() //nolint:errcheck

	var counts []domain.StatusCount
	for rows.Next() {
		var sc domain.StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan outbox count")
		}
		counts = append(counts, sc)
	}

	return counts, rows.Err()
}

func (r *MySQLMessageRepository) scan(row rowScanner) (*domain.Message, error) {
	var msg domain.Message
	var id, accountID, headers []byte

	err := row.Scan(
		&id,
		&msg.Sequence,
		&accountID,
		&msg.OccurredAt,
		&msg.EventType,
		&msg.RoutingKey,
		&msg.Payload,
		&headers,
		&msg.Status,
		&msg.Attempts,
		&msg.NextAttemptAt,
		&msg.PublishedAt,
		&msg.LastError,
	)
	if err != nil {
		return nil, err
	}

	if err := msg.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal outbox message id")
	}

	if len(accountID) > 0 {
		if err := msg.AccountID.UUID.UnmarshalBinary(accountID); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal account id")
		}
		msg.AccountID.Valid = true
	}

	if err := unmarshalHeaders(&msg, headers); err != nil {
		return nil, err
	}

	return &msg, nil
}
