package usecase

import (
	"context"
	"time"

	validation "github.com/jellydator/validation"
	"github.com/shopspring/decimal"

	"github.com/allisson/ledger/internal/account/domain"
	customValidation "github.com/allisson/ledger/internal/validation"
)

// Page bounds of ListByOwner.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

var (
	errUnsupportedCurrency = validation.NewError("validation_currency_supported", "currency is not supported")
	errCurrencyMismatch    = validation.NewError("validation_currency_mismatch", "must match the account currency")
	errOwnerNotVerified    = validation.NewError("validation_owner_verified", "owner is not verified")
	errAccountIsClosed     = validation.NewError("validation_account_open", "account is closed")
	errOutflowForbidden    = validation.NewError(
		"validation_outflow",
		"withdrawals from deposit and credit accounts are not allowed",
	)
	errInsufficientFunds = validation.NewError("validation_funds", "insufficient funds")
	errRateNotAllowed    = validation.NewError(
		"validation_rate_forbidden",
		"checking accounts do not carry an interest rate",
	)
	errRateRequired = validation.NewError(
		"validation_rate_required",
		"interest rate is required for this account type",
	)
	errAccountType     = validation.NewError("validation_account_type", "must be Checking, Deposit or Credit")
	errTransactionType = validation.NewError("validation_transaction_type", "must be Debit or Credit")
	errPeriodOrder     = validation.NewError("validation_period", "must not be after the end of the period")
)

// CommandValidator checks commands before they reach the ledger. Failures are returned as
// per-field validation.Errors wrapped in apperrors.ErrInvalidInput.
//
// The *Input methods look at the command alone. The *Account(s) methods run inside the
// unit of work against the accounts it loaded.
type CommandValidator interface {
	ValidateTransactionInput(input *domain.RegisterTransactionInput) error
	ValidateTransactionAccount(
		ctx context.Context,
		input *domain.RegisterTransactionInput,
		account *domain.Account,
	) error
	ValidateTransferInput(input *domain.TransferInput) error
	ValidateTransferAccounts(
		ctx context.Context,
		input *domain.TransferInput,
		source, counterparty *domain.Account,
	) error
	ValidateOpen(ctx context.Context, input *domain.OpenAccountInput) error
	ValidateInterestRate(accountType domain.AccountType, rate decimal.NullDecimal) error
	ValidatePage(offset, limit int) error
	ValidatePeriod(from, to time.Time) error
}

type commandValidator struct {
	currencies CurrencyService
	owners     OwnerVerifier
}

// NewCommandValidator creates a CommandValidator backed by the currency and owner services.
func NewCommandValidator(currencies CurrencyService, owners OwnerVerifier) CommandValidator {
	return &commandValidator{currencies: currencies, owners: owners}
}

func (v *commandValidator) ValidateTransactionInput(input *domain.RegisterTransactionInput) error {
	errs := validation.Errors{
		"account_id":  validation.Validate(input.AccountID, customValidation.NotNilUUID),
		"amount":      validation.Validate(input.Amount, amountRules()...),
		"currency":    validation.Validate(input.Currency, v.currencyRules()...),
		"type":        validation.Validate(input.Type, validation.By(transactionType)),
		"description": validation.Validate(input.Description, descriptionRules()...),
	}
	return customValidation.WrapValidationError(errs.Filter())
}

func (v *commandValidator) ValidateTransactionAccount(
	ctx context.Context,
	input *domain.RegisterTransactionInput,
	account *domain.Account,
) error {
	errs := validation.Errors{}

	fieldErr, err := v.checkAccount(ctx, account, input.Currency)
	if err != nil {
		return err
	}
	errs["account_id"] = fieldErr
	errs["amount"] = checkOutflow(account, input.Type, input.Amount)

	return customValidation.WrapValidationError(errs.Filter())
}

func (v *commandValidator) ValidateTransferInput(input *domain.TransferInput) error {
	errs := validation.Errors{
		"account_id":      validation.Validate(input.AccountID, customValidation.NotNilUUID),
		"counterparty_id": validation.Validate(input.CounterpartyID, customValidation.NotNilUUID),
		"amount":          validation.Validate(input.Amount, amountRules()...),
		"currency":        validation.Validate(input.Currency, v.currencyRules()...),
		"type":            validation.Validate(input.Type, validation.By(transactionType)),
		"description":     validation.Validate(input.Description, descriptionRules()...),
	}
	return customValidation.WrapValidationError(errs.Filter())
}

func (v *commandValidator) ValidateTransferAccounts(
	ctx context.Context,
	input *domain.TransferInput,
	source, counterparty *domain.Account,
) error {
	errs := validation.Errors{}

	fieldErr, err := v.checkAccount(ctx, source, input.Currency)
	if err != nil {
		return err
	}
	errs["account_id"] = fieldErr

	fieldErr, err = v.checkAccount(ctx, counterparty, input.Currency)
	if err != nil {
		return err
	}
	errs["counterparty_id"] = fieldErr

	// The side losing funds is the source for Credit and the counterparty for Debit.
	errs["amount"] = checkOutflow(source, input.Type, input.Amount)
	if errs["amount"] == nil {
		errs["amount"] = checkOutflow(counterparty, input.Type.Opposite(), input.Amount)
	}

	return customValidation.WrapValidationError(errs.Filter())
}

func (v *commandValidator) ValidateOpen(ctx context.Context, input *domain.OpenAccountInput) error {
	errs := validation.Errors{
		"owner_id": validation.Validate(input.OwnerID, customValidation.NotNilUUID),
		"type":     validation.Validate(input.Type, validation.By(accountType)),
		"currency": validation.Validate(input.Currency, v.currencyRules()...),
	}
	if errs["owner_id"] == nil {
		exists, err := v.owners.OwnerExists(ctx, input.OwnerID)
		if err != nil {
			return err
		}
		if !exists {
			errs["owner_id"] = errOwnerNotVerified
		}
	}
	if errs["type"] == nil {
		errs["interest_rate"] = rateError(input.Type, input.InterestRate)
	}
	return customValidation.WrapValidationError(errs.Filter())
}

func (v *commandValidator) ValidateInterestRate(accountType domain.AccountType, rate decimal.NullDecimal) error {
	errs := validation.Errors{"interest_rate": rateError(accountType, rate)}
	return customValidation.WrapValidationError(errs.Filter())
}

func (v *commandValidator) ValidatePage(offset, limit int) error {
	err := validation.Errors{
		"offset": validation.Validate(offset, validation.Min(0)),
		"limit":  validation.Validate(limit, validation.Required, validation.Min(1), validation.Max(MaxPageLimit)),
	}.Filter()
	return customValidation.WrapValidationError(err)
}

func (v *commandValidator) ValidatePeriod(from, to time.Time) error {
	var err error
	if from.After(to) {
		err = validation.Errors{"from": errPeriodOrder}
	}
	return customValidation.WrapValidationError(err)
}

func (v *commandValidator) currencyRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		customValidation.CurrencyCode,
		validation.By(func(value interface{}) error {
			if code, _ := value.(string); code != "" && !v.currencies.IsSupported(code) {
				return errUnsupportedCurrency
			}
			return nil
		}),
	}
}

// checkAccount applies the per-account rules shared by transactions and transfers.
func (v *commandValidator) checkAccount(
	ctx context.Context,
	account *domain.Account,
	currency string,
) (validation.Error, error) {
	if account.IsClosed() {
		return errAccountIsClosed, nil
	}
	if account.Currency != currency {
		return errCurrencyMismatch, nil
	}
	exists, err := v.owners.OwnerExists(ctx, account.OwnerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return errOwnerNotVerified, nil
	}
	return nil, nil
}

func rateError(accountType domain.AccountType, rate decimal.NullDecimal) error {
	switch {
	case !accountType.BearsInterest() && rate.Valid:
		return errRateNotAllowed
	case accountType.BearsInterest() && !rate.Valid:
		return errRateRequired
	}
	return validation.Validate(rate, customValidation.NonNegativeRate)
}

// checkOutflow rejects outflows from deposit and credit accounts and overdrafts of checking accounts.
func checkOutflow(account *domain.Account, t domain.TransactionType, amount decimal.Decimal) error {
	if !t.Delta(amount).IsNegative() {
		return nil
	}
	if account.Type != domain.AccountTypeChecking {
		return errOutflowForbidden
	}
	if account.Balance.LessThan(amount) {
		return errInsufficientFunds
	}
	return nil
}

func amountRules() []validation.Rule {
	return []validation.Rule{customValidation.PositiveAmount, customValidation.MaxScale(2)}
}

func descriptionRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		customValidation.NotBlank,
		customValidation.NoWhitespace,
		validation.RuneLength(1, 255),
	}
}

func transactionType(value interface{}) error {
	if t, _ := value.(domain.TransactionType); !t.Valid() {
		return errTransactionType
	}
	return nil
}

func accountType(value interface{}) error {
	if t, _ := value.(domain.AccountType); !t.Valid() {
		return errAccountType
	}
	return nil
}
