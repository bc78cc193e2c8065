package subscription

import "github.com/shopspring/decimal"

// Cycle price multipliers against the monthly base: semi-annual bills six
// months at five (one month free), annual twelve months at ten (two free).
var cycleMultipliers = map[Cycle]int64{
	CycleMonthly:    1,
	CycleSemiAnnual: 5,
	CycleAnnual:     10,
}

// Pricing computes subscription amounts. All functions are pure.
type Pricing struct {
	// Base is the monthly base price in currency units with two decimal
	// places; the gateway adapter converts amounts to subunits.
	Base decimal.Decimal

	// BranchRate is the fraction of the base charged per additional branch
	// beyond the main location (volume discount).
	BranchRate decimal.Decimal
}

// CyclePrice is the base price for one location over a full cycle.
func (p Pricing) CyclePrice(c Cycle) decimal.Decimal {
	return p.Base.Mul(decimal.NewFromInt(cycleMultipliers[c]))
}

// PerBranchPrice is the discounted full-cycle price of each additional
// branch beyond the main location.
func (p Pricing) PerBranchPrice(c Cycle) decimal.Decimal {
	return p.CyclePrice(c).Mul(p.BranchRate)
}

// TotalPrice prices a selection of branchCount locations (the main location
// included) for a full cycle:
//
//	price = base(cycle) + (branchCount − 1) × base(cycle) × rate
func (p Pricing) TotalPrice(c Cycle, branchCount int) decimal.Decimal {
	if branchCount < 1 {
		branchCount = 1
	}
	extra := decimal.NewFromInt(int64(branchCount - 1))
	return p.CyclePrice(c).Add(p.PerBranchPrice(c).Mul(extra)).RoundBank(2)
}

// ProRata prices a branch added mid-cycle: the per-branch cycle price scaled
// by the remaining fraction of the billing period, rounded to minor units.
func (p Pricing) ProRata(c Cycle, remainingDays, periodDays int) decimal.Decimal {
	if periodDays <= 0 || remainingDays <= 0 {
		return decimal.Zero
	}
	if remainingDays > periodDays {
		remainingDays = periodDays
	}
	return p.PerBranchPrice(c).
		Mul(decimal.NewFromInt(int64(remainingDays))).
		DivRound(decimal.NewFromInt(int64(periodDays)), 8).
		RoundBank(2)
}
