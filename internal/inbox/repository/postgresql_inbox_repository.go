package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/ledger/internal/database"
	apperrors "github.com/allisson/ledger/internal/errors"
	"github.com/allisson/ledger/internal/inbox/domain"
)

// PostgreSQLInboxRepository handles inbox, dead letter and audit persistence for PostgreSQL.
type PostgreSQLInboxRepository struct {
	db *sql.DB
}

// NewPostgreSQLInboxRepository creates a new PostgreSQLInboxRepository.
func NewPostgreSQLInboxRepository(db *sql.DB) *PostgreSQLInboxRepository {
	return &PostgreSQLInboxRepository{db: db}
}

// GetOrCreate returns the inbox row of (messageID, handler), inserting it on first sight.
// The row stays locked until the surrounding transaction ends.
func (r *PostgreSQLInboxRepository) GetOrCreate(
	ctx context.Context,
	messageID uuid.UUID,
	handler string,
	receivedAt time.Time,
) (*domain.Consumed, error) {
	querier := database.GetTx(ctx, r.db)

	insert := `INSERT INTO inbox_consumed (message_id, handler, received_at, retry_count)
			   VALUES ($1, $2, $3, 0)
			   ON CONFLICT (message_id, handler) DO NOTHING`
	if _, err := querier.ExecContext(ctx, insert, messageID, handler, receivedAt); err != nil {
		return nil, apperrors.Wrap(database.ClassifyError(err), "failed to create inbox record")
	}

	query := `SELECT ` + consumedColumns + `
			  FROM inbox_consumed
			  WHERE message_id = $1 AND handler = $2
			  FOR UPDATE`

	var c domain.Consumed
	err := querier.QueryRowContext(ctx, query, messageID, handler).Scan(
		&c.MessageID,
		&c.Handler,
		&c.ReceivedAt,
		&c.ProcessedAt,
		&c.RetryCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrConsumedNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get inbox record")
	}

	return &c, nil
}

// MarkProcessed stamps the processed time of an inbox row.
func (r *PostgreSQLInboxRepository) MarkProcessed(
	ctx context.Context,
	messageID uuid.UUID,
	handler string,
	at time.Time,
) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE inbox_consumed SET processed_at = $1 WHERE message_id = $2 AND handler = $3`

	result, err := querier.ExecContext(ctx, query, at, messageID, handler)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark inbox record processed")
	}
	return requireAffected(result, "mark inbox record processed")
}

// IncrementRetry adds one failed attempt and returns the new retry count.
func (r *PostgreSQLInboxRepository) IncrementRetry(
	ctx context.Context,
	messageID uuid.UUID,
	handler string,
) (int, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE inbox_consumed SET retry_count = retry_count + 1
			  WHERE message_id = $1 AND handler = $2
			  RETURNING retry_count`

	var count int
	if err := querier.QueryRowContext(ctx, query, messageID, handler).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrConsumedNotFound
		}
		return 0, apperrors.Wrap(err, "failed to increment inbox retry count")
	}
	return count, nil
}

// Delete removes the inbox row of (messageID, handler).
func (r *PostgreSQLInboxRepository) Delete(ctx context.Context, messageID uuid.UUID, handler string) error {
	querier := database.GetTx(ctx, r.db)

	query := `DELETE FROM inbox_consumed WHERE message_id = $1 AND handler = $2`

	result, err := querier.ExecContext(ctx, query, messageID, handler)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete inbox record")
	}
	return requireAffected(result, "delete inbox record")
}

// CreateDeadLetter inserts a dead letter.
func (r *PostgreSQLInboxRepository) CreateDeadLetter(ctx context.Context, letter *domain.DeadLetter) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO inbox_dead_letters (` + deadLetterColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := querier.ExecContext(
		ctx,
		query,
		letter.ID,
		letter.MessageID,
		letter.Handler,
		letter.ReceivedAt,
		letter.Payload,
		letter.Error,
	)
	if err != nil {
		return apperrors.Wrap(database.ClassifyError(err), "failed to create dead letter")
	}
	return nil
}

// ListDeadLetters returns dead letters oldest first. An empty handler lists every handler.
func (r *PostgreSQLInboxRepository) ListDeadLetters(
	ctx context.Context,
	handler string,
	offset, limit int,
) ([]*domain.DeadLetter, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + deadLetterColumns + `
			  FROM inbox_dead_letters
			  WHERE $1 = '' OR handler = $1
			  ORDER BY received_at ASC, id ASC
			  LIMIT $2 OFFSET $3`

	rows, err := querier.QueryContext(ctx, query, handler, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list dead letters")
	}
	defer rows.Close() //nolint:errcheck

	letters := make([]*domain.DeadLetter, 0)
	for rows.Next() {
		var letter domain.DeadLetter
		err := rows.Scan(
			&letter.ID,
			&letter.MessageID,
			&letter.Handler,
			&letter.ReceivedAt,
			&letter.Payload,
			&letter.Error,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan dead letter")
		}
		letters = append(letters, &letter)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate dead letters")
	}
	return letters, nil
}

// CreateAuditEvent inserts an audit event.
func (r *PostgreSQLInboxRepository) CreateAuditEvent(ctx context.Context, event *domain.AuditEvent) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO audit_events (id, message_id, event_type, routing_key, correlation_id,
			  causation_id, payload, received_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := querier.ExecContext(
		ctx,
		query,
		event.ID,
		event.MessageID,
		event.EventType,
		event.RoutingKey,
		event.CorrelationID,
		event.CausationID,
		event.Payload,
		event.ReceivedAt,
	)
	if err != nil {
		return apperrors.Wrap(database.ClassifyError(err), "failed to create audit event")
	}
	return nil
}
