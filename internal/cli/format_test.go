package cli

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0.1, "10,00%"},
		{0.123456, "12,35%"},
		{-0.05, "-5,00%"},
		{0, "0,00%"},
	}
	for _, tt := range tests {
		if got := FormatPercent(tt.in); got != tt.want {
			t.Errorf("FormatPercent(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := FormatNullPercent(nil); got != Missing {
		t.Errorf("FormatNullPercent(nil) = %q", got)
	}
}

func TestFormatBRL(t *testing.T) {
	if got := FormatBRL(decimal.RequireFromString("1234.5")); got != "R$ 1.234,50" {
		t.Errorf("FormatBRL = %q", got)
	}
	if got := FormatSignedBRL(decimal.NewFromInt(100)); got != "+R$ 100,00" {
		t.Errorf("FormatSignedBRL(+) = %q", got)
	}
	if got := FormatSignedBRL(decimal.NewFromInt(-5)); got != "-R$ 5,00" {
		t.Errorf("FormatSignedBRL(-) = %q", got)
	}
	if got := FormatSignedBRL(decimal.Zero); got != "R$ 0,00" {
		t.Errorf("FormatSignedBRL(0) = %q", got)
	}
	if got := FormatNullBRL(decimal.NullDecimal{}); got != Missing {
		t.Errorf("FormatNullBRL(null) = %q", got)
	}
}

func TestFormatDates(t *testing.T) {
	d := civil.Date{Year: 2023, Month: 2, Day: 5}
	if got := FormatDate(d); got != "05/02/2023" {
		t.Errorf("FormatDate = %q", got)
	}
	if got := FormatMonth(d); got != "02/2023" {
		t.Errorf("FormatMonth = %q", got)
	}
	if got := FormatDate(civil.Date{}); got != Missing {
		t.Errorf("FormatDate(zero) = %q", got)
	}
}

func TestFormatRate(t *testing.T) {
	if got := FormatRate(13.75); got != "13,75% a.a." {
		t.Errorf("FormatRate = %q", got)
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1.000"},
		{1234567, "1.234.567"},
		{-1234, "-1.234"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderSparkline(t *testing.T) {
	if got := RenderSparkline(nil); got != "" {
		t.Errorf("empty = %q", got)
	}
	got := []rune(RenderSparkline([]float64{-10, 0, 10}))
	if len(got) != 3 || got[0] != '▁' || got[2] != '█' {
		t.Errorf("sparkline = %q", string(got))
	}
	if flat := RenderSparkline([]float64{5, 5}); flat != "▁▁" {
		t.Errorf("flat = %q", flat)
	}
}

func TestRenderTable_AlignsUnicode(t *testing.T) {
	out := RenderTable(Table{
		Headers: []string{"Instituição", "Valor"},
		Rows: [][]string{
			{"Itaú", "R$ 1,00"},
			{"---"},
			{"Total", Missing},
		},
	})
	if out == "" {
		t.Fatal("empty render")
	}
	if RenderTable(Table{}) != "" {
		t.Error("empty table should render nothing")
	}
}
