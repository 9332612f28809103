package normalize

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Discount is the percentage saved against original, rounded to two places.
// It is only defined when original is present and above price.
func Discount(price decimal.Decimal, original decimal.NullDecimal) decimal.NullDecimal {
	if !original.Valid || !original.Decimal.GreaterThan(price) || !original.Decimal.IsPositive() {
		return decimal.NullDecimal{}
	}

	pct := original.Decimal.Sub(price).Mul(hundred).Div(original.Decimal).Round(2)
	return decimal.NewNullDecimal(pct)
}
