package sale

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Two items (500 × 2, 200 × 1) at 16% VAT-inclusive: the total is exact,
// subtotal and tax are extracted.
func TestComputeTotals_VATInclusive(t *testing.T) {
	total := LineTotal(d("500"), 2).Add(LineTotal(d("200"), 1))
	require.True(t, total.Equal(d("1200")))

	totals := ComputeTotals(total, d("0.16"))

	assert.True(t, totals.Total.Equal(d("1200")), "total must stay exact")
	assert.True(t, totals.Subtotal.Equal(d("1034.48")), "subtotal got %s", totals.Subtotal)
	assert.True(t, totals.Tax.Equal(d("165.52")), "tax got %s", totals.Tax)
}

func TestComputeTotals_TotalEquation(t *testing.T) {
	cases := []struct {
		total string
		rate  string
	}{
		{"1200", "0.16"},
		{"999.99", "0.16"},
		{"0.01", "0.16"},
		{"100", "0"},
		{"1500", "0.075"},
		{"33333.33", "0.20"},
	}

	for _, tc := range cases {
		totals := ComputeTotals(d(tc.total), d(tc.rate))

		// total = subtotal + tax, exactly, for every rate
		assert.True(t, totals.Subtotal.Add(totals.Tax).Equal(totals.Total),
			"total=%s rate=%s: %s + %s != %s", tc.total, tc.rate, totals.Subtotal, totals.Tax, totals.Total)

		// tax = total − total/(1+r) within one minor unit
		expectedTax := d(tc.total).Sub(d(tc.total).DivRound(decimal.NewFromInt(1).Add(d(tc.rate)), 8))
		diff := totals.Tax.Sub(expectedTax).Abs()
		assert.True(t, diff.LessThanOrEqual(d("0.01")),
			"tax deviates more than one minor unit for total=%s rate=%s", tc.total, tc.rate)
	}
}

func TestComputeTotals_ZeroRate(t *testing.T) {
	totals := ComputeTotals(d("150"), decimal.Zero)

	assert.True(t, totals.Subtotal.Equal(d("150")))
	assert.True(t, totals.Tax.IsZero())
}

func TestLineTotal(t *testing.T) {
	assert.True(t, LineTotal(d("12.50"), 4).Equal(d("50")))
	assert.True(t, LineTotal(d("0.01"), 1).Equal(d("0.01")))
}

func TestValidPaymentMethod(t *testing.T) {
	assert.True(t, ValidPaymentMethod(PaymentMethodCash))
	assert.True(t, ValidPaymentMethod(PaymentMethodMobileMoney))
	assert.False(t, ValidPaymentMethod(PaymentMethod("cheque")))
}
