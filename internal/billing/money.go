package billing

import (
	"strings"

	"erpsaas/internal/apperr"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts a major-unit price (e.g. 29.99) to the provider's
// integer minor units (2999). Sub-cent remainders are rounded half away from zero.
func ToMinorUnits(price float64) (int64, error) {
	d := decimal.NewFromFloat(price)
	if d.IsNegative() {
		return 0, apperr.Validation("price must not be negative")
	}
	return d.Mul(hundred).Round(0).IntPart(), nil
}

// FormatMinorUnits renders minor units as a major-unit amount with currency,
// e.g. (2999, "usd") -> "29.99 USD".
func FormatMinorUnits(amount int64, currency string) string {
	s := decimal.New(amount, -2).StringFixed(2)
	if currency == "" {
		return s
	}
	return s + " " + strings.ToUpper(currency)
}
