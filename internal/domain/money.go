package domain

import (
	"github.com/shopspring/decimal"
)

// Amounts are exact decimals. Two fraction digits are what the API accepts,
// but arithmetic never rounds.

// RequirePositive fails with InvalidAmount when amount <= 0.
func RequirePositive(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return invalidAmount(amount)
	}
	return nil
}

// MinAmount returns the smaller of a and b.
func MinAmount(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
