package report

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/financas/internal/model"
)

// Table names.
const (
	NameTransactions = "transactions"
	NameInstitutions = "institutions"
	NameStats        = "stats"
	NameGoalSummary  = "goal_summary"
	NameGoalMonths   = "goal_months"
	NameDistribution = "distribution"
	NameRates        = "rates"
)

// Transactions lists the normalized input rows.
func Transactions(txs []model.Transaction) Table {
	t := Table{
		Name:  NameTransactions,
		Title: "Dados Brutos",
		Columns: []Column{
			{Key: "date", Title: "Data", Kind: KindDate},
			{Key: "institution", Title: "Instituição", Kind: KindText},
			{Key: "amount", Title: "Valor", Kind: KindCurrency},
		},
	}
	for _, tx := range txs {
		t.Rows = append(t.Rows, []Cell{tx.Date, tx.Institution, tx.Amount})
	}
	return t
}

// Institutions renders the date x institution pivot with a total column.
// Institutions without a record on a date are nil, not zero.
func Institutions(pivot model.InstitutionPivot) Table {
	t := Table{
		Name:    NameInstitutions,
		Title:   "Instituições",
		Columns: []Column{{Key: "date", Title: "Data", Kind: KindDate}},
	}
	for _, inst := range pivot.Institutions {
		t.Columns = append(t.Columns, Column{Key: inst, Title: inst, Kind: KindCurrency})
	}
	t.Columns = append(t.Columns, Column{Key: "total", Title: "Total", Kind: KindCurrency})

	for _, d := range pivot.Dates {
		row := []Cell{d}
		total := decimal.Zero
		for _, inst := range pivot.Institutions {
			v, ok := pivot.At(d, inst)
			if !ok {
				row = append(row, nil)
				continue
			}
			total = total.Add(v)
			row = append(row, v)
		}
		row = append(row, total)
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Stats renders the rolling statistics, one column group per window size.
func Stats(rows []model.StatsRow) Table {
	t := Table{
		Name:  NameStats,
		Title: "Estatísticas",
		Columns: []Column{
			{Key: "date", Title: "Data", Kind: KindDate},
			{Key: "value", Title: "Patrimônio", Kind: KindCurrency},
			{Key: "prior_value", Title: "Anterior", Kind: KindCurrency},
			{Key: "monthly_delta", Title: "Variação", Kind: KindCurrency},
			{Key: "monthly_delta_relative", Title: "Variação %", Kind: KindPercent},
		},
	}

	var sizes []int
	if len(rows) > 0 {
		for _, w := range rows[0].Windows {
			sizes = append(sizes, w.Size)
		}
	}
	for _, w := range sizes {
		t.Columns = append(t.Columns,
			Column{Key: fmt.Sprintf("mean_delta_%d", w), Title: fmt.Sprintf("Média %dM", w), Kind: KindCurrency},
			Column{Key: fmt.Sprintf("total_change_%d", w), Title: fmt.Sprintf("Var. %dM", w), Kind: KindCurrency},
			Column{Key: fmt.Sprintf("relative_change_%d", w), Title: fmt.Sprintf("Var. %% %dM", w), Kind: KindPercent},
		)
	}

	for _, r := range rows {
		row := []Cell{
			r.Date,
			r.Value,
			nullDecimal(r.PriorValue),
			nullDecimal(r.MonthlyDelta),
			nullFloat(r.MonthlyDeltaRelative),
		}
		for _, w := range sizes {
			ws, _ := r.Window(w)
			row = append(row, nullDecimal(ws.MeanDelta), nullDecimal(ws.TotalChange), nullFloat(ws.RelativeChange))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// GoalSummary renders the headline goal figures. rateSource names where the
// annual rate came from ("provider", "override", ...).
func GoalSummary(p model.GoalProjection, rateSource string) Table {
	t := Table{
		Name:  NameGoalSummary,
		Title: "Meta",
		Columns: []Column{
			{Key: "metric", Title: "Métrica", Kind: KindText},
			{Key: "amount", Title: "Valor", Kind: KindCurrency},
			{Key: "rate", Title: "Taxa", Kind: KindPercent},
			{Key: "note", Title: "Obs.", Kind: KindText},
		},
	}

	startNote := "em " + formatDate(p.BalanceDate)
	if !p.HasStartingData {
		startNote = "sem dados até o início"
	}
	targetNote := "potencial anual"
	if p.TargetOverridden {
		targetNote = "definida pelo usuário"
	}

	t.Rows = [][]Cell{
		{"Início da meta", nil, nil, formatDate(p.StartDate)},
		{"Patrimônio inicial", p.StartingNetWorth, nil, startNote},
		{"Taxa anual", nil, p.AnnualRate, rateSource},
		{"Taxa mensal", nil, p.MonthlyRate, "composta"},
		{"Rendimento mensal", p.MonthlyYield, nil, nil},
		{"Rendimento anual", p.AnnualYield, nil, nil},
		{"Potencial mensal", p.MonthlyIncomePotential, nil, nil},
		{"Potencial anual", p.AnnualIncomePotential, nil, nil},
		{"Meta mensal", p.MonthlyTarget, nil, nil},
		{"Meta anual", p.AnnualTarget, nil, targetNote},
		{"Patrimônio final projetado", p.ProjectedFinalNetWorth, nil, nil},
	}
	return t
}

// GoalBreakdown renders the per-month targets and attainment.
func GoalBreakdown(p model.GoalProjection) Table {
	t := Table{
		Name:  NameGoalMonths,
		Title: "Acompanhamento Mensal",
		Columns: []Column{
			{Key: "month", Title: "Mês", Kind: KindMonth},
			{Key: "target", Title: "Meta", Kind: KindCurrency},
			{Key: "actual", Title: "Realizado", Kind: KindCurrency},
			{Key: "attainment", Title: "Atingimento", Kind: KindPercent},
			{Key: "attainment_of_annual", Title: "% da Meta Anual", Kind: KindPercent},
			{Key: "expected_of_annual", Title: "% Esperado", Kind: KindPercent},
		},
	}
	for _, m := range p.Months {
		t.Rows = append(t.Rows, []Cell{
			m.Month,
			m.Target,
			nullDecimal(m.Actual),
			nullFloat(m.Attainment),
			nullFloat(m.AttainmentOfAnnual),
			nullFloat(m.ExpectedOfAnnual),
		})
	}
	return t
}

// Distribution renders one date's split across institutions.
func Distribution(shares []model.InstitutionShare, date civil.Date) Table {
	t := Table{
		Name:  NameDistribution,
		Title: "Distribuição em " + formatDate(date),
		Columns: []Column{
			{Key: "institution", Title: "Instituição", Kind: KindText},
			{Key: "amount", Title: "Valor", Kind: KindCurrency},
			{Key: "share", Title: "Participação", Kind: KindPercent},
		},
	}
	for _, s := range shares {
		t.Rows = append(t.Rows, []Cell{s.Institution, s.Amount, nullFloat(s.Share)})
	}
	return t
}

// Rates renders reference rate intervals, newest first.
func Rates(records []model.RateRecord) Table {
	t := Table{
		Name:  NameRates,
		Title: "SELIC Meta",
		Columns: []Column{
			{Key: "start", Title: "Início", Kind: KindDate},
			{Key: "end", Title: "Fim", Kind: KindDate},
			{Key: "rate", Title: "Taxa a.a.", Kind: KindPercent},
			{Key: "status", Title: "Status", Kind: KindText},
		},
	}
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		status := "encerrada"
		if r.OpenEnded {
			status = "vigente"
		}
		t.Rows = append(t.Rows, []Cell{r.Start, r.LastDay(), r.RatePercent / 100, status})
	}
	return t
}

func formatDate(d civil.Date) string {
	return FormatCell(d, KindDate)
}
