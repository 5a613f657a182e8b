package model

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// GoalConfig holds the user's savings goal parameters for one session.
type GoalConfig struct {
	StartDate   civil.Date
	GrossSalary decimal.Decimal
	NetSalary   decimal.Decimal
	FixedCosts  decimal.Decimal
	// RateOverride replaces the looked-up annual rate (in percent) when set.
	RateOverride *float64
	// TargetOverride replaces the computed annual target when set.
	TargetOverride *decimal.Decimal
}

// GoalProjection is the projected attainment of a savings goal.
type GoalProjection struct {
	StartDate        civil.Date
	BalanceDate      civil.Date // date the starting net worth was read from
	HasStartingData  bool
	StartingNetWorth decimal.Decimal

	AnnualRate  float64 // fraction, e.g. 0.1075
	MonthlyRate float64 // compound equivalent of AnnualRate

	MonthlyYield           decimal.Decimal
	AnnualYield            decimal.Decimal
	MonthlyIncomePotential decimal.Decimal
	AnnualIncomePotential  decimal.Decimal

	MonthlyTarget          decimal.Decimal
	AnnualTarget           decimal.Decimal
	TargetOverridden       bool
	ProjectedFinalNetWorth decimal.Decimal

	Months []MonthProgress
}

// MonthProgress is one row of the per-month goal breakdown.
type MonthProgress struct {
	Month              civil.Date // first day of the reference month
	Target             decimal.Decimal
	Actual             decimal.NullDecimal
	Attainment         *float64
	AttainmentOfAnnual *float64
	ExpectedOfAnnual   *float64
}
