// Package model defines domain types for financas balances, statistics and goals.
package model

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Transaction is one normalized row of the uploaded export.
type Transaction struct {
	Date        civil.Date
	Institution string
	Amount      decimal.Decimal
}

// DailyBalance is the net total across all institutions on one date.
type DailyBalance struct {
	Date  civil.Date
	Value decimal.Decimal
}

// InstitutionPivot maps each date to per-institution totals.
// Dates and Institutions are sorted ascending and list every key present.
type InstitutionPivot struct {
	Dates        []civil.Date
	Institutions []string
	Values       map[civil.Date]map[string]decimal.Decimal
}

// At returns the amount recorded for an institution on a date.
func (p InstitutionPivot) At(d civil.Date, institution string) (decimal.Decimal, bool) {
	row, ok := p.Values[d]
	if !ok {
		return decimal.Decimal{}, false
	}
	v, ok := row[institution]
	return v, ok
}

// InstitutionShare is one slice of the distribution on a given date.
type InstitutionShare struct {
	Institution string
	Amount      decimal.Decimal
	Share       *float64 // nil when the date total is zero
}
