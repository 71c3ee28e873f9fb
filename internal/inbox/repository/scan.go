// Package repository provides data persistence implementations for inbox entities.
package repository

import (
	"database/sql"

	apperrors "github.com/allisson/ledger/internal/errors"
	"github.com/allisson/ledger/internal/inbox/domain"
)

const (
	consumedColumns   = "message_id, handler, received_at, processed_at, retry_count"
	deadLetterColumns = "id, message_id, handler, received_at, payload, error"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// requireAffected maps an update that touched no row to ErrConsumedNotFound.
func requireAffected(result sql.Result, action string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrapf(err, "failed to %s", action)
	}
	if rows == 0 {
		return domain.ErrConsumedNotFound
	}
	return nil
}
