// Package report turns engine results into presentation-neutral tables.
package report

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/financas/internal/cli"
)

// Kind is the formatting hint for a column.
type Kind string

// Column kinds.
const (
	KindDate     Kind = "date"
	KindMonth    Kind = "month"
	KindText     Kind = "text"
	KindCurrency Kind = "currency"
	KindPercent  Kind = "percent" // fraction, 0.1 renders as 10,00%
	KindNumber   Kind = "number"
)

// Column describes one table column.
type Column struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Kind  Kind   `json:"kind"`
}

// Cell is one value: civil.Date, string, decimal.Decimal, float64 or int.
// A nil cell means the value could not be computed.
type Cell = any

// Table is one named tabular output.
type Table struct {
	Name    string   `json:"name"`
	Title   string   `json:"title"`
	Columns []Column `json:"columns"`
	Rows    [][]Cell `json:"rows"`
}

// Bundle is the full output of one computation.
type Bundle struct {
	ID          uuid.UUID `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	Warnings    []string  `json:"warnings,omitempty"`
	Tables      []Table   `json:"tables"`
}

// NewBundle stamps tables with a fresh ID and the current time.
func NewBundle(tables ...Table) Bundle {
	return Bundle{
		ID:          uuid.New(),
		GeneratedAt: time.Now().UTC(),
		Tables:      tables,
	}
}

// Table returns the bundle's table with the given name.
func (b Bundle) Table(name string) (Table, bool) {
	for _, t := range b.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// ColumnIndex returns the position of the column with key, or -1.
func (t Table) ColumnIndex(key string) int {
	for i, c := range t.Columns {
		if c.Key == key {
			return i
		}
	}
	return -1
}

// FormatCell renders a cell for display according to kind.
func FormatCell(c Cell, kind Kind) string {
	if c == nil {
		return cli.Missing
	}

	switch v := c.(type) {
	case civil.Date:
		if kind == KindMonth {
			return cli.FormatMonth(v)
		}
		return cli.FormatDate(v)
	case decimal.Decimal:
		if kind == KindNumber {
			return v.StringFixed(2)
		}
		return cli.FormatBRL(v)
	case decimal.NullDecimal:
		if !v.Valid {
			return cli.Missing
		}
		return FormatCell(v.Decimal, kind)
	case *float64:
		if v == nil {
			return cli.Missing
		}
		return FormatCell(*v, kind)
	case float64:
		if kind == KindPercent {
			return cli.FormatPercent(v)
		}
		return fmt.Sprintf("%.2f", v)
	case int:
		return cli.FormatNumber(int64(v))
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Strings renders every row of t for display.
func (t Table) Strings() [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]string, len(t.Columns))
		for j, col := range t.Columns {
			var c Cell
			if j < len(row) {
				c = row[j]
			}
			cells[j] = FormatCell(c, col.Kind)
		}
		out[i] = cells
	}
	return out
}

// CLI converts t to a terminal table.
func (t Table) CLI() cli.Table {
	headers := make([]string, len(t.Columns))
	left := make([]bool, len(t.Columns))
	for i, c := range t.Columns {
		headers[i] = c.Title
		left[i] = c.Kind == KindText
	}
	return cli.Table{
		Title:   t.Title,
		Headers: headers,
		Rows:    t.Strings(),
		Left:    left,
	}
}

// nullDecimal unwraps an optional amount into a cell.
func nullDecimal(d decimal.NullDecimal) Cell {
	if !d.Valid {
		return nil
	}
	return d.Decimal
}

// nullFloat unwraps an optional ratio into a cell.
func nullFloat(f *float64) Cell {
	if f == nil {
		return nil
	}
	return *f
}
