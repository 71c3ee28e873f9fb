package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	hundred       = decimal.NewFromInt(100)
	secondsInYear = decimal.NewFromInt(365 * 24 * 60 * 60)
)

// Interest returns the interest earned by balance at an annual percentage rate over
// [from, to], rounded half to even to two places. A negative balance yields a negative amount.
func Interest(balance, rate decimal.Decimal, from, to time.Time) decimal.Decimal {
	if !to.After(from) {
		return decimal.Zero
	}
	seconds := decimal.NewFromInt(int64(to.Sub(from) / time.Second))
	return balance.
		Mul(rate).
		Div(hundred).
		Mul(seconds).
		Div(secondsInYear).
		RoundBank(2)
}
