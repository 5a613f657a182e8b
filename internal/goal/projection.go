// Package goal projects savings-goal attainment from a balance series and a reference rate.
package goal

import (
	"errors"
	"fmt"
	"math"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/financas/internal/model"
)

// Months is the length of the per-month breakdown.
const Months = 12

var (
	// ErrNegativeTarget indicates a target override below zero.
	ErrNegativeTarget = errors.New("goal: target must be non-negative")
	// ErrInvalidRate indicates an annual rate at or below -100%.
	ErrInvalidRate = errors.New("goal: annual rate must be greater than -100%")
)

var twelve = decimal.NewFromInt(12)

// MonthlyRate converts an annual rate (fraction) to its compound monthly equivalent.
func MonthlyRate(annual float64) float64 {
	return math.Pow(1+annual, 1.0/12) - 1
}

// StartingBalance returns the balance at the latest date on or before d.
// ok is false when d precedes every entry of the ascending series.
func StartingBalance(series []model.DailyBalance, d civil.Date) (model.DailyBalance, bool) {
	var found model.DailyBalance
	ok := false
	for _, b := range series {
		if b.Date.After(d) {
			break
		}
		found = b
		ok = true
	}
	return found, ok
}

// Project computes the goal projection for cfg. annualRatePct is the annual
// reference rate in percent (13.75 means 13.75%); callers resolve overrides first.
func Project(cfg model.GoalConfig, series []model.DailyBalance, annualRatePct float64) (model.GoalProjection, error) {
	if cfg.TargetOverride != nil && cfg.TargetOverride.IsNegative() {
		return model.GoalProjection{}, fmt.Errorf("%w: got %s", ErrNegativeTarget, cfg.TargetOverride)
	}
	annual := annualRatePct / 100
	if annual <= -1 || math.IsNaN(annual) || math.IsInf(annual, 0) {
		return model.GoalProjection{}, fmt.Errorf("%w: got %v%%", ErrInvalidRate, annualRatePct)
	}

	p := model.GoalProjection{
		StartDate:   cfg.StartDate,
		AnnualRate:  annual,
		MonthlyRate: MonthlyRate(annual),
	}

	if b, ok := StartingBalance(series, cfg.StartDate); ok {
		p.HasStartingData = true
		p.BalanceDate = b.Date
		p.StartingNetWorth = b.Value
	}

	start := p.StartingNetWorth
	monthlyYield := start.Mul(decimal.NewFromFloat(p.MonthlyRate))
	annualYield := start.Mul(decimal.NewFromFloat(annual))
	savings := cfg.NetSalary.Sub(cfg.FixedCosts)

	p.MonthlyYield = monthlyYield.Round(2)
	p.AnnualYield = annualYield.Round(2)
	p.MonthlyIncomePotential = savings.Add(monthlyYield).Round(2)
	p.AnnualIncomePotential = savings.Mul(twelve).Add(annualYield).Round(2)

	p.AnnualTarget = p.AnnualIncomePotential
	if cfg.TargetOverride != nil {
		p.AnnualTarget = *cfg.TargetOverride
		p.TargetOverridden = true
	}
	p.MonthlyTarget = p.AnnualTarget.Div(twelve).Round(2)
	p.ProjectedFinalNetWorth = p.AnnualTarget.Add(start)

	actuals := monthEndValues(series)
	first := civil.Date{Year: cfg.StartDate.Year, Month: cfg.StartDate.Month, Day: 1}
	p.Months = make([]model.MonthProgress, 0, Months)
	for k := 1; k <= Months; k++ {
		month := first.AddMonths(k)
		mp := model.MonthProgress{
			Month:  month,
			Target: start.Add(p.MonthlyTarget.Mul(decimal.NewFromInt(int64(k)))),
		}
		mp.ExpectedOfAnnual = ratio(mp.Target, p.ProjectedFinalNetWorth)

		if actual, ok := actuals[monthKey(month)]; ok {
			mp.Actual = decimal.NewNullDecimal(actual)
			mp.Attainment = ratio(actual, mp.Target)
			mp.AttainmentOfAnnual = ratio(actual, p.ProjectedFinalNetWorth)
		}
		p.Months = append(p.Months, mp)
	}

	return p, nil
}

// monthEndValues maps each year-month to its last recorded balance.
func monthEndValues(series []model.DailyBalance) map[int]decimal.Decimal {
	m := make(map[int]decimal.Decimal)
	for _, b := range series {
		m[monthKey(b.Date)] = b.Value
	}
	return m
}

func monthKey(d civil.Date) int {
	return d.Year*12 + int(d.Month) - 1
}

// ratio returns num/den as a float, or nil when den is zero.
func ratio(num, den decimal.Decimal) *float64 {
	if den.IsZero() {
		return nil
	}
	f := num.Div(den).InexactFloat64()
	return &f
}
