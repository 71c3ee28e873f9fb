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

// PostgreSQLMessageRepository handles outbox message persistence for PostgreSQL.
type PostgreSQLMessageRepository struct {
	db *sql.DB
}

// NewPostgreSQLMessageRepository creates a new PostgreSQLMessageRepository.
func NewPostgreSQLMessageRepository(db *sql.DB) *PostgreSQLMessageRepository {
	return &PostgreSQLMessageRepository{db: db}
}

// Create inserts a new outbox message and fills in its store assigned sequence.
func (r *PostgreSQLMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	querier := database.GetTx(ctx, r.db)

	headers, err := marshalHeaders(msg.Headers)
	if err != nil {
		return err
	}

	query := `INSERT INTO outbox_messages (id, account_id, occurred_at, event_type, routing_key, payload,
			  headers, status, attempts, next_attempt_at, published_at, last_error)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			  RETURNING sequence`

	err = querier.QueryRowContext(
		ctx,
		query,
		msg.ID,
		msg.AccountID,
		msg.OccurredAt,
		msg.EventType,
		msg.RoutingKey,
		msg.Payload,
		string(headers),
		msg.Status,
		msg.Attempts,
		msg.NextAttemptAt,
		msg.PublishedAt,
		msg.LastError,
	).Scan(&msg.Sequence)
	if err != nil {
		return apperrors.Wrap(database.ClassifyError(err), "failed to create outbox message")
	}

	return nil
}

// LatestForAccount returns the most recent message in the lineage of an account.
func (r *PostgreSQLMessageRepository) LatestForAccount(
	ctx context.Context,
	accountID uuid.UUID,
) (*domain.Message, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + messageColumns + `
			  FROM outbox_messages
			  WHERE account_id = $1
			  ORDER BY occurred_at DESC, sequence DESC
			  LIMIT 1`

	msg, err := r.scan(querier.QueryRowContext(ctx, query, accountID))
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
func (r *PostgreSQLMessageRepository) ListDue(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*domain.Message, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + messageColumns + `
			  FROM outbox_messages
			  WHERE status = $1
			     OR (status IN ($2, $3) AND next_attempt_at <= $4)
			  ORDER BY occurred_at ASC, sequence ASC
			  LIMIT $5`

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
func (r *PostgreSQLMessageRepository) Claim(
	ctx context.Context,
	id uuid.UUID,
	now, leaseUntil time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_messages
			  SET status = $1, next_attempt_at = $2
			  WHERE id = $3
			    AND (status = $4 OR (status IN ($5, $1) AND next_attempt_at <= $6))`

	result, err := querier.ExecContext(
		ctx,
		query,
		domain.MessageStatusPublishing,
		leaseUntil,
		id,
		domain.MessageStatusPending,
		domain.MessageStatusFailed,
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
func (r *PostgreSQLMessageRepository) MarkPublished(ctx context.Context, id uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_messages
			  SET status = $1, published_at = $2, next_attempt_at = NULL, last_error = NULL
			  WHERE id = $3`

	if _, err := querier.ExecContext(ctx, query, domain.MessageStatusPublished, at, id); err != nil {
		return apperrors.Wrap(err, "failed to mark outbox message published")
	}
	return nil
}

// MarkFailed records a failed publish. A nil nextAttemptAt parks the message.
func (r *PostgreSQLMessageRepository) MarkFailed(
	ctx context.Context,
	id uuid.UUID,
	attempts int,
	nextAttemptAt *time.Time,
	lastError string,
) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_messages
			  SET status = $1, attempts = $2, next_attempt_at = $3, last_error = $4
			  WHERE id = $5`

	_, err := querier.ExecContext(ctx, query, domain.MessageStatusFailed, attempts, nextAttemptAt, lastError, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark outbox message failed")
	}
	return nil
}

// CountUnpublished returns the number of messages not yet published.
func (r *PostgreSQLMessageRepository) CountUnpublished(ctx context.Context) (int64, error) {
	querier := database.GetTx(ctx, r.db)

	var count int64
	query := `SELECT COUNT(*) FROM outbox_messages WHERE status <> $1`
	if err := querier.QueryRowContext(ctx, query, domain.MessageStatusPublished).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count unpublished outbox messages")
	}
	return count, nil
}

// CountByStatus returns the number of messages per status.
func (r *PostgreSQLMessageRepository) CountByStatus(ctx context.Context) ([]domain.StatusCount, error) {
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

func (r *PostgreSQLMessageRepository) scan(row rowScanner) (*domain.Message, error) {
	var msg domain.Message
	var headers []byte

	err := row.Scan(
		&msg.ID,
		&msg.Sequence,
		&msg.AccountID,
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

	if err := unmarshalHeaders(&msg, headers); err != nil {
		return nil, err
	}

	return &msg, nil
}
