package wallet

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseAmount converts a decimal currency amount into integer cents.
// Anything with sub-cent precision is rejected: balances are stored in
// minor units and must never round silently.
func ParseAmount(d decimal.Decimal) (int64, error) {
	cents := d.Mul(hundred)
	if !cents.IsInteger() {
		return 0, E(CodeInvalidDataType, map[string]any{
			"field":  "amount",
			"reason": "more than two decimal places",
			"value":  d.String(),
		})
	}
	return cents.IntPart(), nil
}

// FormatCents renders integer cents as a two-decimal string, the shape
// clients already expect for balances and amounts.
func FormatCents(cents int64) string {
	return decimal.NewFromInt(cents).Div(hundred).StringFixed(2)
}

// CentsDecimal exposes cents as a decimal for JSON encoding.
func CentsDecimal(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(hundred)
}
