package model

import "cloud.google.com/go/civil"

// RateRecord is one reference-rate interval. The interval is [Start, End).
type RateRecord struct {
	Start       civil.Date
	End         civil.Date
	OpenEnded   bool // absent upstream; End is the day after the fetch date
	RatePercent float64
}

// Contains reports whether d falls inside [Start, End). An open-ended record
// extends through today even when it was fetched on an earlier day.
func (r RateRecord) Contains(d, today civil.Date) bool {
	end := r.End
	if r.OpenEnded {
		if next := today.AddDays(1); next.After(end) {
			end = next
		}
	}
	return !d.Before(r.Start) && d.Before(end)
}

// LastDay is the final date covered by the record.
func (r RateRecord) LastDay() civil.Date {
	return r.End.AddDays(-1)
}
