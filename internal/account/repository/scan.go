package repository

import (
	"database/sql"

	"github.com/allisson/ledger/internal/account/domain"
	apperrors "github.com/allisson/ledger/internal/errors"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// checkVersionedUpdate turns a compare-and-swap update result into the account's new version.
func checkVersionedUpdate(result sql.Result, account *domain.Account) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to update account")
	}
	if affected != 1 {
		return domain.ErrConcurrentModification
	}
	account.Version++
	return nil
}
