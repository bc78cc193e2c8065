package subscription

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func pricing() Pricing {
	return Pricing{Base: d("2000"), BranchRate: d("0.8")}
}

func TestCyclePrice(t *testing.T) {
	p := pricing()

	assert.True(t, p.CyclePrice(CycleMonthly).Equal(d("2000")))
	// semi-annual is six months at five, annual twelve months at ten
	assert.True(t, p.CyclePrice(CycleSemiAnnual).Equal(d("10000")))
	assert.True(t, p.CyclePrice(CycleAnnual).Equal(d("20000")))
}

func TestTotalPrice(t *testing.T) {
	p := pricing()

	// main location only
	assert.True(t, p.TotalPrice(CycleMonthly, 1).Equal(d("2000")))
	// each extra branch at 80%
	assert.True(t, p.TotalPrice(CycleMonthly, 2).Equal(d("3600")))
	assert.True(t, p.TotalPrice(CycleMonthly, 3).Equal(d("5200")))
	assert.True(t, p.TotalPrice(CycleAnnual, 2).Equal(d("36000")))
	// degenerate input clamps to one location
	assert.True(t, p.TotalPrice(CycleMonthly, 0).Equal(d("2000")))
}

// Adding a branch on day 10 of a 30-day monthly period: 1600 × 20/30.
func TestProRata_MidCycleAdd(t *testing.T) {
	p := pricing()

	amount := p.ProRata(CycleMonthly, 20, 30)
	assert.True(t, amount.Equal(d("1066.67")), "got %s", amount)
}

func TestProRata_Bounds(t *testing.T) {
	p := pricing()

	// full period remaining charges the full per-branch price
	assert.True(t, p.ProRata(CycleMonthly, 30, 30).Equal(d("1600")))
	// remaining days are clamped to the period
	assert.True(t, p.ProRata(CycleMonthly, 45, 30).Equal(d("1600")))
	// nothing remaining, nothing charged
	assert.True(t, p.ProRata(CycleMonthly, 0, 30).IsZero())
	assert.True(t, p.ProRata(CycleMonthly, -3, 30).IsZero())
	assert.True(t, p.ProRata(CycleMonthly, 10, 0).IsZero())
}

func TestCycleMonths(t *testing.T) {
	assert.Equal(t, 1, CycleMonthly.Months())
	assert.Equal(t, 6, CycleSemiAnnual.Months())
	assert.Equal(t, 12, CycleAnnual.Months())
}

func TestValidCycle(t *testing.T) {
	assert.True(t, ValidCycle(CycleMonthly))
	assert.False(t, ValidCycle(Cycle("weekly")))
}
