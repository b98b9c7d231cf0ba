package shared

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the number of minor-unit digits for every amount in the ledger
const CurrencyPlaces int32 = 2

var hundred = decimal.NewFromInt(100)

// RoundCurrency rounds half-up (away from zero) to the currency's minor unit
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyPlaces)
}

// Percent converts a percentage such as 2.99 into the fraction 0.0299
func Percent(p decimal.Decimal) decimal.Decimal {
	return p.Div(hundred)
}

// ParseAmount parses a decimal string and rounds it to the minor unit
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: malformed amount %q", ErrInvalidArgument, s)
	}
	return RoundCurrency(d), nil
}
