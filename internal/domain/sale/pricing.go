package sale

import "github.com/shopspring/decimal"

// Totals is the VAT-inclusive money breakdown of a sale.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals derives the money breakdown from a VAT-inclusive line total.
//
// The item prices already contain VAT, so the total is exact and the tax is
// extracted, never added:
//
//	total    = Σ unit_price × quantity
//	subtotal = total / (1 + rate)   (banker's rounding to minor units)
//	tax      = total − subtotal
//
// Pure function: no suspension, no storage access.
func ComputeTotals(total, taxRate decimal.Decimal) Totals {
	divisor := decimal.NewFromInt(1).Add(taxRate)
	subtotal := total.DivRound(divisor, 8).RoundBank(2)

	return Totals{
		Subtotal: subtotal,
		Tax:      total.Sub(subtotal),
		Total:    total,
	}
}

// LineTotal returns quantity × unit price for one item.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
