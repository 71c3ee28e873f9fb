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

// MySQLInboxRepository handles inbox, dead letter and audit persistence for MySQL.
// UUIDs are stored as BINARY(16).
type MySQLInboxRepository struct {
	db *sql.DB
}

// NewMySQLInboxRepository creates a new MySQLInboxRepository.
func NewMySQLInboxRepository(db *sql.DB) *MySQLInboxRepository {
	return &MySQLInboxRepository{db: db}
}

// GetOrCreate returns the inbox row of (messageID, handler), inserting it on first sight.
// The row stays locked until the surrounding transaction ends.
func (r *MySQLInboxRepository) GetOrCreate(
	ctx context.Context,
	messageID uuid.UUID,
	handler string,
	receivedAt time.Time,
) (*domain.Consumed, error) {
	querier := database.GetTx(ctx, r.db)

	id, err := messageID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal message id")
	}

	insert := `INSERT IGNORE INTO inbox_consumed (message_id, handler, received_at, retry_count)
			   VALUES (?, ?, ?, 0)`
	if _, err := querier.ExecContext(ctx, insert, id, handler, receivedAt); err != nil {
		return nil, apperrors.Wrap(database.ClassifyError(err), "failed to create inbox record")
	}

	query := `SELECT ` + consumedColumns + `
			  FROM inbox_consumed
			  WHERE message_id = ? AND handler = ?
			  FOR UPDATE`

	var c domain.Consumed
	var rawID []byte
	err = querier.QueryRowContext(ctx, query, id, handler).Scan(
		&rawID,
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

	if err := c.MessageID.UnmarshalBinary(rawID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal message id")
	}

	return &c, nil
}

// MarkProcessed stamps the processed time of an inbox row.
func (r *MySQLInboxRepository) MarkProcessed(
	ctx context.Context,
	messageID uuid.UUID,
	handler string,
	at time.Time,
) error {
	querier := database.GetTx(ctx, r.db)

	id, err := messageID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal message id")
	}

	query := `UPDATE inbox_consumed SET processed_at = ? WHERE message_id = ? AND handler = ?`

	result, err := querier.ExecContext(ctx, query, at, id, handler)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark inbox record processed")
	}
	return requireAffected(result, "mark inbox record processed")
}

// IncrementRetry adds one failed attempt and returns the new retry count.
func (r *MySQLInboxRepository) IncrementRetry(
	ctx context.Context,
	messageID uuid.UUID,
	handler string,
) (int, error) {
	querier := database.GetTx(ctx, r.db)

	id, err := messageID.MarshalBinary()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to marshal message id")
	}

	update := `UPDATE inbox_consumed SET retry_count = retry_count + 1 WHERE message_id = ? AND handler = ?`

	result, err := querier.ExecContext(ctx, update, id, handler)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to increment inbox retry count")
	}
	if err := requireAffected(result, "increment inbox retry count"); err != nil {
		return 0, err
	}

	var count int
	query := `SELECT retry_count FROM inbox_consumed WHERE message_id = ? AND handler = ?`
	if err := querier.QueryRowContext(ctx, query, id, handler).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to read inbox retry count")
	}
	return count, nil
}

// Delete removes the inbox row of (messageID, handler).
func (r *MySQLInboxRepository) Delete(ctx context.Context, messageID uuid.UUID, handler string) error {
	querier := database.GetTx(ctx, r.db)

	id, err := messageID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal message id")
	}

	query := `DELETE FROM inbox_consumed WHERE message_id = ? AND handler = ?`

	result, err := querier.ExecContext(ctx, query, id, handler)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete inbox record")
	}
	return requireAffected(result, "delete inbox record")
}

// CreateDeadLetter inserts a dead letter.
func (r *MySQLInboxRepository) CreateDeadLetter(ctx context.Context, letter *domain.DeadLetter) error {
	querier := database.GetTx(ctx, r.db)

	id, err := letter.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal dead letter id")
	}
	messageID, err := letter.MessageID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal message id")
	}

	query := `INSERT INTO inbox_dead_letters (` + deadLetterColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		messageID,
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
func (r *MySQLInboxRepository) ListDeadLetters(
	ctx context.Context,
	handler string,
	offset, limit int,
) ([]*domain.DeadLetter, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + deadLetterColumns + `
			  FROM inbox_dead_letters
			  WHERE ? = '' OR handler = ?
			  ORDER BY received_at ASC, id ASC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, handler, handler, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list dead letters")
	}
	defer rows.Close() //nolint:errcheck

	letters := make([]*domain.DeadLetter, 0)
	for rows.Next() {
		letter, err := scanMySQLDeadLetter(rows)
		if err != nil {
			return nil, err
		}
		letters = append(letters, letter)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate dead letters")
	}
	return letters, nil
}

// CreateAuditEvent inserts an audit event.
func (r *MySQLInboxRepository) CreateAuditEvent(ctx context.Context, event *domain.AuditEvent) error {
	querier := database.GetTx(ctx, r.db)

	id, err := event.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit event id")
	}
	messageID, err := event.MessageID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal message id")
	}
	correlationID, err := nullableBinary(event.CorrelationID)
	if err != nil {
		return err
	}
	causationID, err := nullableBinary(event.CausationID)
	if err != nil {
		return err
	}

	query := `INSERT INTO audit_events (id, message_id, event_type, routing_key, correlation_id,
			  causation_id, payload, received_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		messageID,
		event.EventType,
		event.RoutingKey,
		correlationID,
		causationID,
		event.Payload,
		event.ReceivedAt,
	)
	if err != nil {
		return apperrors.Wrap(database.ClassifyError(err), "failed to create audit event")
	}
	return nil
}

func scanMySQLDeadLetter(row rowScanner) (*domain.DeadLetter, error) {
	var letter domain.DeadLetter
	var id, messageID []byte

	err := row.Scan(&id, &messageID, &letter.Handler, &letter.ReceivedAt, &letter.Payload, &letter.Error)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to scan dead letter")
	}

	if err := letter.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal dead letter id")
	}
	if err := letter.MessageID.UnmarshalBinary(messageID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal message id")
	}
	return &letter, nil
}

// nullableBinary encodes an optional UUID, nil meaning NULL.
func nullableBinary(id uuid.NullUUID) ([]byte, error) {
	if !id.Valid {
		return nil, nil
	}
	data, err := id.UUID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal optional id")
	}
	return data, nil
}
