// Package pipeline orchestrates export loading, balance aggregation and rolling statistics.
package pipeline

import (
	"sort"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/financas/internal/model"
)

// AggregateDays sums every institution per date into a single net balance series.
// The result is sorted ascending with one entry per date that has transactions.
func AggregateDays(txs []model.Transaction) []model.DailyBalance {
	dayMap := make(map[civil.Date]decimal.Decimal)
	for _, tx := range txs {
		dayMap[tx.Date] = dayMap[tx.Date].Add(tx.Amount)
	}

	days := make([]model.DailyBalance, 0, len(dayMap))
	for d, v := range dayMap {
		days = append(days, model.DailyBalance{Date: d, Value: v})
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Date.Before(days[j].Date)
	})

	return days
}

// PivotInstitutions builds the date x institution matrix of summed amounts.
func PivotInstitutions(txs []model.Transaction) model.InstitutionPivot {
	pivot := model.InstitutionPivot{
		Values: make(map[civil.Date]map[string]decimal.Decimal),
	}
	seen := make(map[string]struct{})

	for _, tx := range txs {
		row, ok := pivot.Values[tx.Date]
		if !ok {
			row = make(map[string]decimal.Decimal)
			pivot.Values[tx.Date] = row
			pivot.Dates = append(pivot.Dates, tx.Date)
		}
		row[tx.Institution] = row[tx.Institution].Add(tx.Amount)

		if _, ok := seen[tx.Institution]; !ok {
			seen[tx.Institution] = struct{}{}
			pivot.Institutions = append(pivot.Institutions, tx.Institution)
		}
	}

	sort.Slice(pivot.Dates, func(i, j int) bool {
		return pivot.Dates[i].Before(pivot.Dates[j])
	})
	sort.Strings(pivot.Institutions)

	return pivot
}

// Distribution splits one date's total across institutions, largest amount first.
// Shares are nil when the date total is zero. A date absent from the pivot yields nil.
func Distribution(pivot model.InstitutionPivot, date civil.Date) []model.InstitutionShare {
	row, ok := pivot.Values[date]
	if !ok {
		return nil
	}

	total := decimal.Zero
	for _, v := range row {
		total = total.Add(v)
	}

	shares := make([]model.InstitutionShare, 0, len(row))
	for _, inst := range pivot.Institutions {
		v, ok := row[inst]
		if !ok {
			continue
		}
		s := model.InstitutionShare{Institution: inst, Amount: v}
		if !total.IsZero() {
			f := v.Div(total).InexactFloat64()
			s.Share = &f
		}
		shares = append(shares, s)
	}
	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].Amount.GreaterThan(shares[j].Amount)
	})

	return shares
}

// LatestDate returns the most recent date in the pivot, or false when empty.
func LatestDate(pivot model.InstitutionPivot) (civil.Date, bool) {
	if len(pivot.Dates) == 0 {
		return civil.Date{}, false
	}
	return pivot.Dates[len(pivot.Dates)-1], true
}

// FilterByDate returns transactions dated within [since, until].
// A zero bound is open.
func FilterByDate(txs []model.Transaction, since, until civil.Date) []model.Transaction {
	if since.IsZero() && until.IsZero() {
		return txs
	}

	var result []model.Transaction
	for _, tx := range txs {
		if !since.IsZero() && tx.Date.Before(since) {
			continue
		}
		if !until.IsZero() && tx.Date.After(until) {
			continue
		}
		result = append(result, tx)
	}
	return result
}

// FilterByInstitution returns transactions whose institution contains the substring.
func FilterByInstitution(txs []model.Transaction, institution string) []model.Transaction {
	if institution == "" {
		return txs
	}
	var result []model.Transaction
	for _, tx := range txs {
		if containsIgnoreCase(tx.Institution, institution) {
			result = append(result, tx)
		}
	}
	return result
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
