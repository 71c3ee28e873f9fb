package database

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	apperrors "github.com/allisson/ledger/internal/errors"
)

// ErrSerializationFailure is returned when the database aborted a transaction because it
// could not be serialized against a concurrent one. Callers may retry from a fresh read.
var ErrSerializationFailure = apperrors.Wrap(apperrors.ErrConflict, "serialization failure")

// ErrDuplicateKey is returned when an insert violates a unique constraint.
var ErrDuplicateKey = apperrors.Wrap(apperrors.ErrConflict, "duplicate key")

const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"

	mysqlDuplicateEntry  = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// ClassifyError maps driver specific errors onto the application error taxonomy.
// Unknown errors are returned untouched; nil stays nil.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrSerializationFailure) || errors.Is(err, ErrDuplicateKey) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%w: %w", ErrSerializationFailure, err)
		case pgUniqueViolation:
			return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
		}
		return err
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDeadlock, mysqlLockWaitTimeout:
			return fmt.Errorf("%w: %w", ErrSerializationFailure, err)
		case mysqlDuplicateEntry:
			return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
		}
	}

	return err
}

// IsRetryable reports whether err is a concurrency failure that a fresh attempt may resolve.
func IsRetryable(err error) bool {
	return errors.Is(ClassifyError(err), ErrSerializationFailure)
}
