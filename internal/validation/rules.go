// Package validation provides custom validation rules for the application.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"
	"github.com/shopspring/decimal"

	apperrors "github.com/allisson/ledger/internal/errors"
)

var (
	// currencyRegex matches ISO 4217 alphabetic codes
	currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput. The original error
// stays reachable through errors.As so per-field details survive.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, err)
}

// CurrencyCode validates a three letter upper-case currency code.
var CurrencyCode = validation.NewStringRuleWithError(
	func(s string) bool {
		return currencyRegex.MatchString(s)
	},
	validation.NewError("validation_currency_code", "must be a three letter currency code"),
)

// PositiveAmount validates that a decimal is strictly greater than zero.
var PositiveAmount = validation.By(func(value interface{}) error {
	d, ok := asDecimal(value)
	if !ok {
		return validation.NewError("validation_decimal_type", "must be a decimal")
	}
	if !d.IsPositive() {
		return validation.NewError("validation_positive_amount", "must be greater than zero")
	}
	return nil
})

// MaxScale validates that a decimal has at most places fractional digits.
func MaxScale(places int32) validation.Rule {
	return validation.By(func(value interface{}) error {
		d, ok := asDecimal(value)
		if !ok {
			return validation.NewError("validation_decimal_type", "must be a decimal")
		}
		if !d.Equal(d.Truncate(places)) {
			return validation.NewError(
				"validation_decimal_scale",
				fmt.Sprintf("must have at most %d decimal places", places),
			)
		}
		return nil
	})
}

// NonNegativeRate validates an optional interest rate: when present it must be at least zero.
var NonNegativeRate = validation.By(func(value interface{}) error {
	rate, ok := value.(decimal.NullDecimal)
	if !ok {
		if p, isPtr := value.(*decimal.NullDecimal); isPtr && p != nil {
			rate, ok = *p, true
		}
	}
	if !ok {
		return validation.NewError("validation_rate_type", "must be a decimal")
	}
	if rate.Valid && rate.Decimal.IsNegative() {
		return validation.NewError("validation_rate_negative", "must not be negative")
	}
	return nil
})

// NotNilUUID validates that a UUID is set.
var NotNilUUID = validation.By(func(value interface{}) error {
	var id uuid.UUID
	switch v := value.(type) {
	case uuid.UUID:
		id = v
	case *uuid.UUID:
		if v == nil {
			return validation.NewError("validation_uuid_required", "is required")
		}
		id = *v
	default:
		return validation.NewError("validation_uuid_type", "must be a uuid")
	}
	if id == uuid.Nil {
		return validation.NewError("validation_uuid_required", "is required")
	}
	return nil
})

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

func asDecimal(value interface{}) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, true
	case *decimal.Decimal:
		if v == nil {
			return decimal.Decimal{}, false
		}
		return *v, true
	}
	return decimal.Decimal{}, false
}
