package model

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// StatsRow holds the derived metrics for one date of the balance series.
// Invalid NullDecimal values and nil ratios mean "not enough history".
type StatsRow struct {
	Date                 civil.Date
	Value                decimal.Decimal
	PriorValue           decimal.NullDecimal
	MonthlyDelta         decimal.NullDecimal
	MonthlyDeltaRelative *float64
	Windows              []WindowStats
}

// WindowStats holds the rolling aggregates for one window size.
type WindowStats struct {
	Size           int
	MeanDelta      decimal.NullDecimal
	TotalChange    decimal.NullDecimal
	RelativeChange *float64
}

// Window returns the aggregates for the given window size, if computed.
func (r StatsRow) Window(size int) (WindowStats, bool) {
	for _, w := range r.Windows {
		if w.Size == size {
			return w, true
		}
	}
	return WindowStats{}, false
}
