package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestInterest(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		balance string
		rate    string
		to      time.Time
		want    string
	}{
		{name: "one year", balance: "1000", rate: "10", to: from.AddDate(0, 0, 365), want: "100"},
		{name: "thirty days", balance: "10000", rate: "7.5", to: from.AddDate(0, 0, 30), want: "61.64"},
		{name: "negative balance", balance: "-1000", rate: "20", to: from.AddDate(0, 0, 365), want: "-200"},
		{name: "zero rate", balance: "1000", rate: "0", to: from.AddDate(0, 0, 30), want: "0"},
		{name: "empty period", balance: "1000", rate: "10", to: from, want: "0"},
		{name: "reversed period", balance: "1000", rate: "10", to: from.Add(-time.Hour), want: "0"},
		{name: "one day", balance: "1000", rate: "3.65", to: from.AddDate(0, 0, 1), want: "0.1"},
		// 73 at 2.5% for one day is exactly 0.005.
		{name: "half rounds to even", balance: "73", rate: "2.5", to: from.AddDate(0, 0, 1), want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Interest(
				decimal.RequireFromString(tt.balance),
				decimal.RequireFromString(tt.rate),
				from,
				tt.to,
			)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}
