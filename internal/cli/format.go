// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/financas/internal/source"
)

// Missing is shown for values that cannot be computed.
const Missing = "—"

// FormatBRL formats an amount as pt-BR currency.
// e.g., 1234.5 -> "R$ 1.234,50"
func FormatBRL(d decimal.Decimal) string {
	return source.FormatAmount(d)
}

// FormatSignedBRL formats an amount with an explicit sign.
// e.g., 100 -> "+R$ 100,00", -5 -> "-R$ 5,00"
func FormatSignedBRL(d decimal.Decimal) string {
	s := source.FormatAmount(d)
	if d.Round(2).IsPositive() {
		return "+" + s
	}
	return s
}

// FormatNullBRL formats an optional amount, or Missing.
func FormatNullBRL(d decimal.NullDecimal) string {
	if !d.Valid {
		return Missing
	}
	return FormatBRL(d.Decimal)
}

// FormatPercent formats a fraction as a pt-BR percentage with two decimals.
// e.g., 0.1234 -> "12,34%"
func FormatPercent(f float64) string {
	return strings.Replace(fmt.Sprintf("%.2f%%", f*100), ".", ",", 1)
}

// FormatNullPercent formats an optional fraction, or Missing.
func FormatNullPercent(f *float64) string {
	if f == nil {
		return Missing
	}
	return FormatPercent(*f)
}

// FormatRate formats an annual rate given in percent.
// e.g., 13.75 -> "13,75% a.a."
func FormatRate(pct float64) string {
	return strings.Replace(fmt.Sprintf("%.2f%% a.a.", pct), ".", ",", 1)
}

// FormatDate formats a date as DD/MM/YYYY.
func FormatDate(d civil.Date) string {
	if d.IsZero() {
		return Missing
	}
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, int(d.Month), d.Year)
}

// FormatMonth formats the month of a date as MM/YYYY.
func FormatMonth(d civil.Date) string {
	if d.IsZero() {
		return Missing
	}
	return fmt.Sprintf("%02d/%04d", int(d.Month), d.Year)
}

// FormatNumber adds pt-BR dot separators to an integer.
// e.g., 1234567 -> "1.234.567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte('.')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}
