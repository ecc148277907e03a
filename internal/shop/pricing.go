package shop

import "github.com/shopspring/decimal"

// Quantity tier discounts. Rates are fractions of the gross line amount.
var (
	rateNone  = decimal.Zero
	rateBulk5 = decimal.NewFromFloat(0.05)
	rateBulk1 = decimal.NewFromFloat(0.10)
)

// DiscountRate returns the discount fraction for a given line quantity.
// Deterministic for fixed inputs.
func DiscountRate(quantity int) decimal.Decimal {
	switch {
	case quantity >= 10:
		return rateBulk1
	case quantity >= 5:
		return rateBulk5
	default:
		return rateNone
	}
}

// CalcLineAmounts prices one line: rate in [0,1] plus the net amount
// price*qty*(1-rate), rounded to the smallest currency unit.
func CalcLineAmounts(unitPrice decimal.Decimal, quantity int) (rate, net decimal.Decimal) {
	rate = DiscountRate(quantity)
	gross := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	net = gross.Mul(decimal.NewFromInt(1).Sub(rate)).Round(2)
	return rate, net
}
