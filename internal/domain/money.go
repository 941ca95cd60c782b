package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Round2 rounds a currency amount to kuruş precision, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// NonNegative clamps negative amounts to zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// OrderTotal is max(0, subtotal - discount + shipping) at 2 decimals.
func OrderTotal(subtotal, discount, shipping decimal.Decimal) decimal.Decimal {
	return Round2(NonNegative(subtotal.Sub(discount).Add(shipping)))
}
