package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	accountUseCase "github.com/allisson/ledger/internal/account/usecase"
)

// RunAccrueInterest runs one interest accrual pass. With accountID set only that account
// is accrued.
func RunAccrueInterest(
	ctx context.Context,
	interestUseCase accountUseCase.InterestUseCase,
	logger *slog.Logger,
	writer io.Writer,
	accountID string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	if accountID != "" {
		id, err := uuid.Parse(accountID)
		if err != nil {
			return fmt.Errorf("invalid account id: %w", err)
		}
		return accrueOne(ctx, interestUseCase, logger, writer, id, format)
	}

	logger.Info("accruing interest on all accounts")
	report, err := interestUseCase.AccrueAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to accrue interest: %w", err)
	}

	if format == "json" {
		return writeJSON(writer, map[string]any{
			"accrued": report.Accrued,
			"skipped": report.Skipped,
			"failed":  report.Failed,
		})
	}
	_, err = fmt.Fprintf(writer, "Accrued: %d\nSkipped: %d\nFailed: %d\n", report.Accrued, report.Skipped, report.Failed)
	return err
}

func accrueOne(
	ctx context.Context,
	interestUseCase accountUseCase.InterestUseCase,
	logger *slog.Logger,
	writer io.Writer,
	accountID uuid.UUID,
	format string,
) error {
	logger.Info("accruing interest", slog.String("account_id", accountID.String()))
	tx, err := interestUseCase.Accrue(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to accrue interest for account %s: %w", accountID, err)
	}

	// nil means there was nothing to accrue for the period
	if tx == nil {
		if format == "json" {
			return writeJSON(writer, map[string]any{"account_id": accountID, "accrued": false})
		}
		_, err = fmt.Fprintf(writer, "Nothing to accrue for account %s\n", accountID)
		return err
	}

	if format == "json" {
		return writeJSON(writer, map[string]any{
			"account_id":     accountID,
			"accrued":        true,
			"transaction_id": tx.ID,
			"amount":         tx.Amount.StringFixed(2),
		})
	}
	_, err = fmt.Fprintf(writer, "Accrued %s on account %s (transaction %s)\n", tx.Amount.StringFixed(2), accountID, tx.ID)
	return err
}
