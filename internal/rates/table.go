package rates

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/theirongolddev/financas/internal/model"
)

// Table is one fetched snapshot of the rate history.
type Table struct {
	Records   []model.RateRecord // sorted by Start
	FetchedAt time.Time
}

// RateAt returns the annual rate in percent whose [Start, End) interval contains d.
// Open-ended records cover every day through today. ok is false when no interval covers d.
func (t *Table) RateAt(d, today civil.Date) (float64, bool) {
	if t == nil {
		return 0, false
	}
	// Later records win when upstream intervals overlap.
	for i := len(t.Records) - 1; i >= 0; i-- {
		if t.Records[i].Contains(d, today) {
			return t.Records[i].RatePercent, true
		}
	}
	return 0, false
}

// Latest returns the most recent record.
func (t *Table) Latest() (model.RateRecord, bool) {
	if t == nil || len(t.Records) == 0 {
		return model.RateRecord{}, false
	}
	return t.Records[len(t.Records)-1], true
}

// Since returns the records that end after d, oldest first.
func (t *Table) Since(d civil.Date) []model.RateRecord {
	if t == nil {
		return nil
	}
	var out []model.RateRecord
	for _, r := range t.Records {
		if r.End.After(d) {
			out = append(out, r)
		}
	}
	return out
}
