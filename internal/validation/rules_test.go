package validation

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/ledger/internal/errors"
)

func TestCurrencyCode(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		shouldErr bool
	}{
		{name: "upper case code", input: "RUB", shouldErr: false},
		{name: "lower case code", input: "rub", shouldErr: true},
		{name: "too short", input: "RU", shouldErr: true},
		{name: "too long", input: "RUBL", shouldErr: true},
		{name: "digits", input: "R2B", shouldErr: true},
		{name: "empty is left to Required", input: "", shouldErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CurrencyCode.Validate(tt.input)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPositiveAmount(t *testing.T) {
	tests := []struct {
		name      string
		input     interface{}
		shouldErr bool
		errMsg    string
	}{
		{name: "positive", input: decimal.RequireFromString("0.01"), shouldErr: false},
		{name: "zero", input: decimal.Zero, shouldErr: true, errMsg: "greater than zero"},
		{name: "negative", input: decimal.NewFromInt(-5), shouldErr: true, errMsg: "greater than zero"},
		{name: "pointer", input: func() *decimal.Decimal { d := decimal.NewFromInt(3); return &d }(), shouldErr: false},
		{name: "wrong type", input: "10", shouldErr: true, errMsg: "must be a decimal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := PositiveAmount.Validate(tt.input)
			if tt.shouldErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMaxScale(t *testing.T) {
	rule := MaxScale(2)

	assert.NoError(t, rule.Validate(decimal.RequireFromString("10.25")))
	assert.NoError(t, rule.Validate(decimal.RequireFromString("10.20000")))
	assert.NoError(t, rule.Validate(decimal.NewFromInt(7)))

	err := rule.Validate(decimal.RequireFromString("10.255"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most 2 decimal places")
}

func TestNonNegativeRate(t *testing.T) {
	assert.NoError(t, NonNegativeRate.Validate(decimal.NullDecimal{}))
	assert.NoError(t, NonNegativeRate.Validate(decimal.NewNullDecimal(decimal.Zero)))
	assert.NoError(t, NonNegativeRate.Validate(decimal.NewNullDecimal(decimal.RequireFromString("7.5"))))
	assert.Error(t, NonNegativeRate.Validate(decimal.NewNullDecimal(decimal.NewFromInt(-1))))
	assert.Error(t, NonNegativeRate.Validate(1.5))
}

func TestNotNilUUID(t *testing.T) {
	id := uuid.New()

	assert.NoError(t, NotNilUUID.Validate(id))
	assert.NoError(t, NotNilUUID.Validate(&id))
	assert.Error(t, NotNilUUID.Validate(uuid.Nil))
	assert.Error(t, NotNilUUID.Validate((*uuid.UUID)(nil)))
	assert.Error(t, NotNilUUID.Validate("not-a-uuid"))
}

func TestNoWhitespace(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		shouldErr bool
	}{
		{
			name:      "no whitespace",
			input:     "validstring",
			shouldErr: false,
		},
		{
			name:      "leading whitespace",
			input:     " validstring",
			shouldErr: true,
		},
		{
			name:      "trailing whitespace",
			input:     "validstring ",
			shouldErr: true,
		},
		{
			name:      "both leading and trailing",
			input:     " validstring ",
			shouldErr: true,
		},
		{
			name:      "internal spaces allowed",
			input:     "valid string",
			shouldErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NoWhitespace.Validate(tt.input)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNotBlank(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		shouldErr bool
	}{
		{
			name:      "valid string",
			input:     "validstring",
			shouldErr: false,
		},
		{
			name:      "only spaces",
			input:     "   ",
			shouldErr: true,
		},
		{
			name:      "only tabs",
			input:     "\t\t",
			shouldErr: true,
		},
		{
			name:      "only newlines",
			input:     "\n\n",
			shouldErr: true,
		},
		{
			name:      "mixed whitespace",
			input:     " \t\n ",
			shouldErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NotBlank.Validate(tt.input)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWrapValidationError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		assert.NoError(t, WrapValidationError(nil))
	})

	t.Run("wraps as invalid input", func(t *testing.T) {
		result := WrapValidationError(assert.AnError)
		assert.ErrorIs(t, result, apperrors.ErrInvalidInput)
		assert.ErrorIs(t, result, assert.AnError)
	})

	t.Run("keeps field errors reachable", func(t *testing.T) {
		fields := validation.Errors{"amount": errors.New("must be greater than zero")}

		result := WrapValidationError(fields)

		var got validation.Errors
		require.True(t, errors.As(result, &got))
		assert.Equal(t, "must be greater than zero", got["amount"].Error())
	})
}
