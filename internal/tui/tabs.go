package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/theirongolddev/financas/internal/cli"
	"github.com/theirongolddev/financas/internal/model"
	"github.com/theirongolddev/financas/internal/report"
	"github.com/theirongolddev/financas/internal/tui/components"
	"github.com/theirongolddev/financas/internal/tui/theme"
)

// maxChartBars caps the overview chart to the most recent balances.
const maxChartBars = 36

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active
	res := a.result
	var b strings.Builder

	if res.GoalErr != nil {
		warn := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
		b.WriteString(components.ContentCard("Aviso", warn.Render("Meta não projetada: "+res.GoalErr.Error()), cw))
		b.WriteString("\n")
	}
	if res.RateErr != nil {
		warn := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
		b.WriteString(components.ContentCard("Aviso", warn.Render("Taxa de referência indisponível: "+res.RateErr.Error()), cw))
		b.WriteString("\n")
	}
	if a.goalErr != nil {
		warn := lipgloss.NewStyle().Foreground(t.Orange).Background(t.Surface)
		b.WriteString(components.ContentCard("Meta inválida", warn.Render(a.goalErr.Error()), cw))
		b.WriteString("\n")
	}

	if len(res.Stats) == 0 {
		b.WriteString(components.ContentCard("Sem dados", "Nenhuma transação no período selecionado.", cw))
		return b.String()
	}

	last := res.Stats[len(res.Stats)-1]
	metrics := []components.Metric{
		netWorthMetric(last),
		windowMetric(last, 12),
		{
			Label: "Registros",
			Value: cli.FormatNumber(int64(len(res.Transactions))),
			Delta: fmt.Sprintf("%s datas · %d instituições", cli.FormatNumber(int64(len(res.Series))), len(res.Pivot.Institutions)),
		},
		a.rateMetric(),
	}
	b.WriteString(components.MetricCardRow(metrics, cw))
	b.WriteString("\n")

	series := res.Series
	if len(series) > maxChartBars {
		series = series[len(series)-maxChartBars:]
	}
	values := make([]float64, len(series))
	labels := make([]string, len(series))
	for i, d := range series {
		values[i] = d.Value.InexactFloat64()
		labels[i] = fmt.Sprintf("%02d/%02d", int(d.Date.Month), d.Date.Year%100)
	}
	chartH := 10
	if a.isCompactLayout() {
		chartH = 7
	}
	b.WriteString(components.ContentCard(
		fmt.Sprintf("Patrimônio (%d registros mais recentes)", len(series)),
		components.BarChart(values, labels, t.Blue, components.CardInnerWidth(cw), chartH),
		cw,
	))
	b.WriteString("\n")

	deltas := make([]float64, 0, len(res.Stats))
	for _, r := range res.Stats {
		if r.MonthlyDelta.Valid {
			deltas = append(deltas, r.MonthlyDelta.Decimal.InexactFloat64())
		}
	}
	if len(deltas) > 1 {
		b.WriteString(components.ContentCard("Variação entre registros",
			components.Sparkline(deltas, t.Accent), cw))
	}

	return b.String()
}

func netWorthMetric(r model.StatsRow) components.Metric {
	m := components.Metric{Label: "Patrimônio em " + cli.FormatDate(r.Date), Value: cli.FormatBRL(r.Value)}
	if r.MonthlyDelta.Valid {
		m.Delta = cli.FormatSignedBRL(r.MonthlyDelta.Decimal)
		if r.MonthlyDeltaRelative != nil {
			m.Delta += " (" + cli.FormatPercent(*r.MonthlyDeltaRelative) + ")"
		}
		m.DeltaColor = theme.Active.Signed(r.MonthlyDelta.Decimal.InexactFloat64())
	}
	return m
}

func windowMetric(r model.StatsRow, size int) components.Metric {
	m := components.Metric{Label: fmt.Sprintf("Média %d períodos", size), Value: cli.Missing}
	ws, ok := r.Window(size)
	if !ok || !ws.MeanDelta.Valid {
		// Fall back to the largest window that is defined.
		for i := len(r.Windows) - 1; i >= 0; i-- {
			if r.Windows[i].MeanDelta.Valid {
				ws, ok = r.Windows[i], true
				m.Label = fmt.Sprintf("Média %d períodos", ws.Size)
				break
			}
		}
	}
	if !ok || !ws.MeanDelta.Valid {
		return m
	}
	m.Value = cli.FormatSignedBRL(ws.MeanDelta.Decimal)
	if ws.RelativeChange != nil {
		m.Delta = "acumulado " + cli.FormatPercent(*ws.RelativeChange)
		m.DeltaColor = theme.Active.Signed(*ws.RelativeChange)
	}
	return m
}

func (a App) rateMetric() components.Metric {
	res := a.result
	m := components.Metric{Label: "Taxa anual", Value: cli.Missing}
	if res.Goal == nil {
		if a.opts.Goal == nil {
			m.Delta = "defina a meta com [g]"
		}
		return m
	}
	m.Value = cli.FormatRate(res.Rate.RatePercent)
	m.Delta = "fonte: " + string(res.Rate.Source)
	return m
}

func (a App) renderTransactionsTab(cw int) string {
	return renderReportTable(report.Transactions(a.result.Transactions), cw)
}

func (a App) renderInstitutionsTab(cw int) string {
	return renderReportTable(report.Institutions(a.result.Pivot), cw)
}

func (a App) renderStatsTab(cw int) string {
	title := lipgloss.NewStyle().Foreground(theme.Active.TextMuted).
		Render(fmt.Sprintf("Janela: %s  ·  [w] alterna", a.opts.Stats.Mode))
	return title + "\n" + renderReportTable(report.Stats(a.result.Stats), cw)
}

func (a App) renderGoalTab(cw int) string {
	t := theme.Active
	res := a.result

	if res.Goal == nil {
		msg := "Nenhuma meta definida. Pressione [g] para informar salário, custos e início."
		if a.opts.Goal != nil {
			msg = "Meta sem taxa de referência disponível. Informe uma taxa no formulário [g]."
		}
		if a.goalErr != nil {
			msg = a.goalErr.Error()
		}
		return components.ContentCard("Meta", lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render(msg), cw)
	}

	p := *res.Goal
	var b strings.Builder
	b.WriteString(renderReportTable(report.GoalSummary(p, string(res.Rate.Source)), cw))
	b.WriteString("\n")

	inner := components.CardInnerWidth(cw)
	barW := max(inner-8-1-10, 10)
	var bars strings.Builder
	for i, m := range p.Months {
		if i > 0 {
			bars.WriteString("\n")
		}
		bars.WriteString(components.GoalBar(cli.FormatMonth(m.Month), m.Attainment, 8, barW))
	}
	b.WriteString(components.ContentCard("Atingimento mensal", bars.String(), cw))
	b.WriteString("\n")
	b.WriteString(renderReportTable(report.GoalBreakdown(p), cw))
	return b.String()
}

func (a App) renderDistributionTab(cw int) string {
	t := theme.Active
	res := a.result
	if len(res.Distribution) == 0 {
		return components.ContentCard("Distribuição", "Sem dados.", cw)
	}

	inner := components.CardInnerWidth(cw)
	nameW := 0
	for _, s := range res.Distribution {
		nameW = max(nameW, lipgloss.Width(s.Institution))
	}
	nameW = min(nameW, inner/3)
	barMax := max(inner-nameW-1-12, 5)

	nameStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	barStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	negStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface)
	pctStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	var bars strings.Builder
	for i, s := range res.Distribution {
		if i > 0 {
			bars.WriteString("\n")
		}
		name := ansi.Truncate(s.Institution, nameW, "…")
		bars.WriteString(nameStyle.Render(name + strings.Repeat(" ", nameW-lipgloss.Width(name)+1)))
		if s.Share == nil {
			bars.WriteString(pctStyle.Render(cli.Missing))
			continue
		}
		n := int(min(max(*s.Share, -1), 1) * float64(barMax))
		style := barStyle
		if n < 0 {
			n, style = -n, negStyle
		}
		bars.WriteString(style.Render(strings.Repeat("█", n)))
		bars.WriteString(pctStyle.Render(" " + cli.FormatPercent(*s.Share)))
	}

	var b strings.Builder
	b.WriteString(components.ContentCard("Participação em "+cli.FormatDate(res.DistributionDate), bars.String(), cw))
	b.WriteString("\n")
	b.WriteString(renderReportTable(report.Distribution(res.Distribution, res.DistributionDate), cw))
	return b.String()
}

// renderReportTable renders a report table inside a card. Lines wider than
// the card are truncated.
func renderReportTable(tbl report.Table, cw int) string {
	t := theme.Active
	inner := components.CardInnerWidth(cw)

	rows := tbl.Strings()
	widths := make([]int, len(tbl.Columns))
	for i, c := range tbl.Columns {
		widths[i] = lipgloss.Width(c.Title)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	cellStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	missingStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	ruleStyle := lipgloss.NewStyle().Foreground(t.Border).Background(t.Surface)

	align := func(s string, i int) string {
		pad := strings.Repeat(" ", max(widths[i]-lipgloss.Width(s), 0))
		switch tbl.Columns[i].Kind {
		case report.KindText, report.KindDate, report.KindMonth:
			return s + pad
		default:
			return pad + s
		}
	}

	var b strings.Builder
	header := make([]string, len(tbl.Columns))
	for i, c := range tbl.Columns {
		header[i] = align(c.Title, i)
	}
	b.WriteString(headerStyle.Render(ansi.Truncate(strings.Join(header, "  "), inner, "…")))
	b.WriteString("\n")
	b.WriteString(ruleStyle.Render(strings.Repeat("─", inner)))

	for _, row := range rows {
		b.WriteString("\n")
		var line strings.Builder
		for i, cell := range row {
			if i > 0 {
				line.WriteString(cellStyle.Render("  "))
			}
			style := cellStyle
			if cell == cli.Missing {
				style = missingStyle
			}
			line.WriteString(style.Render(align(cell, i)))
		}
		b.WriteString(ansi.Truncate(line.String(), inner, "…"))
	}
	if len(rows) == 0 {
		b.WriteString("\n")
		b.WriteString(missingStyle.Render("Sem linhas."))
	}

	return components.ContentCard(tbl.Title, b.String(), cw)
}
