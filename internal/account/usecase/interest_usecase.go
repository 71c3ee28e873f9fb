package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/ledger/internal/account/domain"
	"github.com/allisson/ledger/internal/database"
	"github.com/allisson/ledger/internal/events"
	outboxUseCase "github.com/allisson/ledger/internal/outbox/usecase"
)

// accrualRetries is how many times a conflicting accrual of one account is retried.
const accrualRetries = 3

// interestUseCase implements InterestUseCase.
type interestUseCase struct {
	txManager       database.TxManager
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	ledger          *ledger
	appender        outboxUseCase.EventAppender
	batchSize       int
	logger          *slog.Logger
	now             func() time.Time
}

// NewInterestUseCase creates a new InterestUseCase walking accounts batchSize at a time.
func NewInterestUseCase(
	txManager database.TxManager,
	accountRepo AccountRepository,
	transactionRepo TransactionRepository,
	appender outboxUseCase.EventAppender,
	batchSize int,
	logger *slog.Logger,
) InterestUseCase {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &interestUseCase{
		txManager:       txManager,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		ledger:          &ledger{accountRepo: accountRepo, transactionRepo: transactionRepo},
		appender:        appender,
		batchSize:       batchSize,
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// AccrueAll accrues interest on every open interest bearing account. A failing account is
// logged and counted, and the run moves on to the next one.
func (i *interestUseCase) AccrueAll(ctx context.Context) (*AccrualReport, error) {
	report := &AccrualReport{}
	after := uuid.Nil

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		page, err := i.accountRepo.ListInterestBearing(ctx, after, i.batchSize)
		if err != nil {
			return report, err
		}

		for _, account := range page {
			tx, err := i.Accrue(ctx, account.ID)
			switch {
			case err != nil:
				report.Failed++
				i.logger.Error("failed to accrue interest",
					slog.String("account_id", account.ID.String()),
					slog.Any("error", err),
				)
			case tx == nil:
				report.Skipped++
			default:
				report.Accrued++
			}
		}

		if len(page) < i.batchSize {
			break
		}
		after = page[len(page)-1].ID
	}

	i.logger.Info("interest accrual finished",
		slog.Int("accrued", report.Accrued),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
	)
	return report, nil
}

// Accrue accrues interest on one account in its own serializable unit of work. It returns a
// nil transaction when there is nothing to accrue.
func (i *interestUseCase) Accrue(ctx context.Context, accountID uuid.UUID) (*domain.Transaction, error) {
	return withConflictRetry(ctx, accrualRetries, func() (*domain.Transaction, error) {
		return i.accrueOnce(ctx, accountID)
	})
}

func (i *interestUseCase) accrueOnce(ctx context.Context, accountID uuid.UUID) (*domain.Transaction, error) {
	var result *domain.Transaction
	err := i.txManager.WithSerializableTx(ctx, func(ctx context.Context) error {
		account, err := i.accountRepo.Get(ctx, accountID)
		if err != nil {
			return err
		}
		if account.IsClosed() || !account.InterestRate.Valid {
			return nil
		}

		periodTo := i.now()
		periodFrom := periodTo.AddDate(0, -1, 0)
		last, err := i.transactionRepo.LastByDescription(ctx, account.ID, domain.InterestAccrualDescription)
		switch {
		case err == nil:
			periodFrom = last.OccurredAt
		case !errors.Is(err, domain.ErrTransactionNotFound):
			return err
		}

		amount := domain.Interest(account.Balance, account.InterestRate.Decimal, periodFrom, periodTo)
		if amount.IsZero() {
			return nil
		}

		kind := domain.TransactionTypeDebit
		if amount.IsNegative() {
			kind = domain.TransactionTypeCredit
		}

		tx, err := i.ledger.post(ctx, entry{
			account:     account,
			kind:        kind,
			amount:      amount.Abs(),
			description: domain.InterestAccrualDescription,
		}, periodTo)
		if err != nil {
			return err
		}

		_, err = i.appender.Append(ctx, account.ID, events.InterestAccrued{
			Base:       events.NewBase(periodTo),
			AccountID:  account.ID,
			PeriodFrom: periodFrom,
			PeriodTo:   periodTo,
			Amount:     amount,
		})
		if err != nil {
			return err
		}

		result = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
