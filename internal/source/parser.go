// Package source discovers and normalizes transaction exports.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/financas/internal/model"
)

const dateLayout = "2/1/2006"

var (
	currencyPrefix = "R$"
	// Integer part is either plain digits or 1-3 digits followed by dot-separated groups of 3.
	amountPattern = regexp.MustCompile(`^(\d{1,3}(\.\d{3})+|\d+)(,\d+)?$`)
)

// ParseAmount converts a pt-BR currency string ("R$ 1.234,56") to a decimal.
// The prefix and the thousands separators are optional; a leading minus sign
// is accepted before or after the prefix.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimSpace(s[1:])
	}
	if strings.HasPrefix(s, currencyPrefix) {
		s = strings.TrimSpace(strings.TrimPrefix(s, currencyPrefix))
	}
	if strings.HasPrefix(s, "-") {
		if negative {
			return decimal.Decimal{}, ErrInvalidAmount
		}
		negative = true
		s = strings.TrimSpace(s[1:])
	}

	if !amountPattern.MatchString(s) {
		return decimal.Decimal{}, ErrInvalidAmount
	}

	normalized := strings.ReplaceAll(s, ".", "")
	normalized = strings.Replace(normalized, ",", ".", 1)
	if negative {
		normalized = "-" + normalized
	}

	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders a decimal as a pt-BR currency string rounded to cents.
// e.g., 1234.5 -> "R$ 1.234,50", -10 -> "-R$ 10,00"
func FormatAmount(d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		fixed = fixed[1:]
		if fixed != "0.00" {
			sign = "-"
		}
	}
	intPart, frac, _ := strings.Cut(fixed, ".")
	return sign + currencyPrefix + " " + groupThousands(intPart) + "," + frac
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	remainder := len(digits) % 3
	if remainder > 0 {
		b.WriteString(digits[:remainder])
	}
	for i := remainder; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// ParseDate parses a day/month/year date such as "31/01/2023".
func ParseDate(s string) (civil.Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, ErrInvalidDate
	}
	return civil.DateOf(t), nil
}

// ParseCSV reads a comma-separated export and returns every row as a Transaction.
// The header must contain Data, Instituição and Valor; other columns are ignored.
// The first malformed row aborts the whole batch with a *ParseError.
func ParseCSV(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Line: 1, Err: fmt.Errorf("%w: empty file", ErrMissingColumn)}
		}
		return nil, csvError(err)
	}

	cols, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	var txs []model.Transaction
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}
		line, _ := cr.FieldPos(0)

		if isBlank(record) {
			continue
		}

		tx, err := parseRecord(record, cols, line)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}

	return txs, nil
}

type columnIndex struct {
	date, institution, amount int
}

func resolveColumns(header []string) (columnIndex, error) {
	idx := columnIndex{date: -1, institution: -1, amount: -1}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		switch {
		case strings.EqualFold(h, ColumnDate):
			idx.date = i
		case strings.EqualFold(h, ColumnInstitution), strings.EqualFold(h, "Instituicao"):
			idx.institution = i
		case strings.EqualFold(h, ColumnAmount):
			idx.amount = i
		}
	}

	var missing []string
	if idx.date < 0 {
		missing = append(missing, ColumnDate)
	}
	if idx.institution < 0 {
		missing = append(missing, ColumnInstitution)
	}
	if idx.amount < 0 {
		missing = append(missing, ColumnAmount)
	}
	if len(missing) > 0 {
		return idx, &ParseError{
			Line: 1,
			Err:  fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", ")),
		}
	}
	return idx, nil
}

func parseRecord(record []string, cols columnIndex, line int) (model.Transaction, error) {
	cell := func(i int) string {
		if i < len(record) {
			return record[i]
		}
		return ""
	}

	rawDate := cell(cols.date)
	date, err := ParseDate(rawDate)
	if err != nil {
		return model.Transaction{}, &ParseError{Line: line, Column: ColumnDate, Value: rawDate, Err: err}
	}

	institution := strings.TrimSpace(cell(cols.institution))
	if institution == "" {
		return model.Transaction{}, &ParseError{Line: line, Column: ColumnInstitution, Err: ErrEmptyInstitution}
	}

	rawAmount := cell(cols.amount)
	amount, err := ParseAmount(rawAmount)
	if err != nil {
		return model.Transaction{}, &ParseError{Line: line, Column: ColumnAmount, Value: rawAmount, Err: err}
	}

	return model.Transaction{Date: date, Institution: institution, Amount: amount}, nil
}

func csvError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Line: pe.Line, Err: pe.Err}
	}
	return fmt.Errorf("reading csv: %w", err)
}

func isBlank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
