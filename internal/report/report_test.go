package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/financas/internal/cli"
	"github.com/theirongolddev/financas/internal/model"
)

func day(y, m, d int) civil.Date {
	return civil.Date{Year: y, Month: time.Month(m), Day: d}
}

func TestFormatCell(t *testing.T) {
	ratio := 0.25
	tests := []struct {
		cell Cell
		kind Kind
		want string
	}{
		{nil, KindCurrency, cli.Missing},
		{day(2023, 1, 31), KindDate, "31/01/2023"},
		{day(2023, 1, 1), KindMonth, "01/2023"},
		{decimal.RequireFromString("1234.5"), KindCurrency, "R$ 1.234,50"},
		{decimal.NullDecimal{}, KindCurrency, cli.Missing},
		{0.1, KindPercent, "10,00%"},
		{&ratio, KindPercent, "25,00%"},
		{(*float64)(nil), KindPercent, cli.Missing},
		{"Nubank", KindText, "Nubank"},
		{1234, KindNumber, "1.234"},
	}
	for _, tt := range tests {
		if got := FormatCell(tt.cell, tt.kind); got != tt.want {
			t.Errorf("FormatCell(%v, %s) = %q, want %q", tt.cell, tt.kind, got, tt.want)
		}
	}
}

func TestInstitutions_MissingIsNil(t *testing.T) {
	pivot := model.InstitutionPivot{
		Dates:        []civil.Date{day(2023, 1, 31)},
		Institutions: []string{"Inter", "Nubank"},
		Values: map[civil.Date]map[string]decimal.Decimal{
			day(2023, 1, 31): {"Nubank": decimal.NewFromInt(10)},
		},
	}
	tbl := Institutions(pivot)
	if len(tbl.Columns) != 4 {
		t.Fatalf("columns = %d, want 4", len(tbl.Columns))
	}
	row := tbl.Rows[0]
	if row[tbl.ColumnIndex("Inter")] != nil {
		t.Errorf("Inter = %v, want nil", row[1])
	}
	total := row[tbl.ColumnIndex("total")].(decimal.Decimal)
	if !total.Equal(decimal.NewFromInt(10)) {
		t.Errorf("total = %s", total)
	}
	if got := tbl.Strings()[0][1]; got != cli.Missing {
		t.Errorf("rendered Inter = %q", got)
	}
}

func TestStats_WindowColumns(t *testing.T) {
	rows := []model.StatsRow{{
		Date:  day(2023, 1, 31),
		Value: decimal.NewFromInt(1000),
		Windows: []model.WindowStats{
			{Size: 6},
			{Size: 12},
		},
	}}
	tbl := Stats(rows)
	if len(tbl.Columns) != 5+2*3 {
		t.Errorf("columns = %d, want 11", len(tbl.Columns))
	}
	if tbl.ColumnIndex("relative_change_12") < 0 {
		t.Error("missing relative_change_12 column")
	}
	for i := 2; i < len(tbl.Rows[0]); i++ {
		if tbl.Rows[0][i] != nil {
			t.Errorf("cell %d = %v, want nil", i, tbl.Rows[0][i])
		}
	}
}

func TestGoalBreakdown(t *testing.T) {
	att := 0.9
	p := model.GoalProjection{Months: []model.MonthProgress{
		{Month: day(2023, 2, 1), Target: decimal.NewFromInt(100), Actual: decimal.NewNullDecimal(decimal.NewFromInt(90)), Attainment: &att},
		{Month: day(2023, 3, 1), Target: decimal.NewFromInt(200)},
	}}
	tbl := GoalBreakdown(p)
	s := tbl.Strings()
	if s[0][0] != "02/2023" || s[0][3] != "90,00%" {
		t.Errorf("row 0 = %v", s[0])
	}
	if s[1][2] != cli.Missing || s[1][3] != cli.Missing {
		t.Errorf("row 1 = %v, want missing actual and attainment", s[1])
	}
}

func TestRates_NewestFirst(t *testing.T) {
	tbl := Rates([]model.RateRecord{
		{Start: day(2023, 1, 1), End: day(2023, 2, 1), RatePercent: 13.75},
		{Start: day(2023, 2, 1), End: day(2023, 3, 1), OpenEnded: true, RatePercent: 13.25},
	})
	s := tbl.Strings()
	if s[0][0] != "01/02/2023" || s[0][1] != "28/02/2023" || s[0][2] != "13,25%" || s[0][3] != "vigente" {
		t.Errorf("row 0 = %v", s[0])
	}
}

func TestBundleJSON(t *testing.T) {
	b := NewBundle(Transactions([]model.Transaction{
		{Date: day(2023, 1, 31), Institution: "Itaú", Amount: decimal.RequireFromString("10.5")},
	}))
	if b.ID == uuid.Nil {
		t.Error("bundle ID should be set")
	}
	if _, ok := b.Table(NameTransactions); !ok {
		t.Fatal("transactions table missing")
	}

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, want := range []string{`"name":"transactions"`, `"2023-01-31"`, `"Itaú"`, `"10.5"`, `"kind":"currency"`} {
		if !strings.Contains(out, want) {
			t.Errorf("JSON missing %s: %s", want, out)
		}
	}
}

func TestCLI(t *testing.T) {
	ct := Distribution([]model.InstitutionShare{{Institution: "Nubank", Amount: decimal.NewFromInt(5)}}, day(2023, 1, 31)).CLI()
	if ct.Title != "Distribuição em 31/01/2023" {
		t.Errorf("Title = %q", ct.Title)
	}
	if len(ct.Left) != 3 || !ct.Left[0] || ct.Left[1] {
		t.Errorf("Left = %v", ct.Left)
	}
	if ct.Rows[0][2] != cli.Missing {
		t.Errorf("share = %q, want missing", ct.Rows[0][2])
	}
}
