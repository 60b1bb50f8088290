package payment

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("amount must be positive")

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts a major-unit total (rupees) into minor units (paise), rounding half away from zero.
func ToMinorUnits(major float64) (int64, error) {
	amount := decimal.NewFromFloat(major)
	if !amount.IsPositive() {
		return 0, ErrInvalidAmount
	}
	return amount.Mul(hundred).Round(0).IntPart(), nil
}

func FromMinorUnits(minor int64) float64 {
	return decimal.NewFromInt(minor).Div(hundred).InexactFloat64()
}
