package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/financas/internal/model"
)

// DefaultWindows are the rolling window sizes reported when none are configured.
var DefaultWindows = []int{6, 12, 24}

// WindowMode selects how a rolling window of size w is measured.
type WindowMode int

const (
	// WindowRows spans the last w rows of the series, whatever their dates.
	WindowRows WindowMode = iota
	// WindowCalendarMonths spans the last w calendar months ending at the row's month.
	WindowCalendarMonths
)

func (m WindowMode) String() string {
	switch m {
	case WindowCalendarMonths:
		return "calendar"
	default:
		return "rows"
	}
}

// ParseWindowMode maps a config or flag value to a WindowMode.
func ParseWindowMode(s string) (WindowMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rows":
		return WindowRows, nil
	case "calendar", "months", "calendar-months":
		return WindowCalendarMonths, nil
	default:
		return WindowRows, fmt.Errorf("unknown window mode %q (want rows or calendar)", s)
	}
}

// StatsOptions configures ComputeStats.
type StatsOptions struct {
	Windows []int // defaults to DefaultWindows
	Mode    WindowMode
}

func (o StatsOptions) windows() []int {
	if len(o.Windows) == 0 {
		return DefaultWindows
	}
	ws := make([]int, 0, len(o.Windows))
	seen := make(map[int]struct{})
	for _, w := range o.Windows {
		if w < 1 {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		ws = append(ws, w)
	}
	sort.Ints(ws)
	return ws
}

// ComputeStats derives period-over-period and rolling-window metrics for a
// balance series sorted ascending by date. Fields without enough history are null.
func ComputeStats(series []model.DailyBalance, opts StatsOptions) []model.StatsRow {
	if len(series) == 0 {
		return nil
	}

	rows := make([]model.StatsRow, len(series))
	for i, b := range series {
		row := model.StatsRow{Date: b.Date, Value: b.Value}
		if i > 0 {
			prior := series[i-1].Value
			row.PriorValue = decimal.NewNullDecimal(prior)
			row.MonthlyDelta = decimal.NewNullDecimal(b.Value.Sub(prior))
			row.MonthlyDeltaRelative = relativeChange(b.Value, prior)
		}
		rows[i] = row
	}

	months := make([]int, len(series))
	for i, b := range series {
		months[i] = monthIndex(b)
	}

	windows := opts.windows()
	for i := range rows {
		for _, w := range windows {
			start, ok := windowStart(i, w, opts.Mode, months)
			rows[i].Windows = append(rows[i].Windows, windowStats(rows, start, i, w, ok))
		}
	}

	return rows
}

// windowStart returns the index of the first row inside the window ending at i,
// or false when the series does not yet cover the whole window.
func windowStart(i, w int, mode WindowMode, months []int) (int, bool) {
	if mode == WindowCalendarMonths {
		first := months[i] - (w - 1)
		if months[0] > first {
			return 0, false
		}
		j := sort.SearchInts(months[:i+1], first)
		return j, true
	}

	if i < w-1 {
		return 0, false
	}
	return i - w + 1, true
}

func windowStats(rows []model.StatsRow, start, end, size int, ok bool) model.WindowStats {
	ws := model.WindowStats{Size: size}
	if !ok {
		return ws
	}

	sum := decimal.Zero
	n := 0
	for k := start; k <= end; k++ {
		if rows[k].MonthlyDelta.Valid {
			sum = sum.Add(rows[k].MonthlyDelta.Decimal)
			n++
		}
	}
	if n > 0 {
		ws.MeanDelta = decimal.NewNullDecimal(sum.Div(decimal.NewFromInt(int64(n))).Round(2))
	}

	base := rows[start].Value
	ws.TotalChange = decimal.NewNullDecimal(rows[end].Value.Sub(base))
	ws.RelativeChange = relativeChange(rows[end].Value, base)
	return ws
}

// relativeChange returns value/base - 1, or nil when base is zero.
func relativeChange(value, base decimal.Decimal) *float64 {
	if base.IsZero() {
		return nil
	}
	f := value.Div(base).Sub(decimal.NewFromInt(1)).InexactFloat64()
	return &f
}

func monthIndex(b model.DailyBalance) int {
	return b.Date.Year*12 + int(b.Date.Month) - 1
}
