package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/theirongolddev/financas/internal/cli"
	"github.com/theirongolddev/financas/internal/engine"
	"github.com/theirongolddev/financas/internal/model"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Net worth overview with rolling statistics",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	res, err := runEngine(cmd.Context())
	if err != nil {
		return err
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res.Bundle())
	}

	if len(res.Series) == 0 {
		fmt.Println("\n  No balances found in the selected range.")
		fmt.Println("  The export needs the columns Data, Instituição and Valor.")
		return nil
	}

	first := res.Series[0]
	latest := res.Series[len(res.Series)-1]
	latestStats := res.Stats[len(res.Stats)-1]

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("PATRIMÔNIO  %s – %s",
		cli.FormatDate(first.Date), cli.FormatDate(latest.Date))))
	fmt.Println()

	rows := [][]string{
		{"Patrimônio", cli.FormatBRL(latest.Value)},
		{"Em", cli.FormatDate(latest.Date)},
		{"Lançamentos", cli.FormatNumber(int64(len(res.Transactions)))},
		{"Datas", cli.FormatNumber(int64(len(res.Series)))},
		{"Instituições", cli.FormatNumber(int64(len(res.Pivot.Institutions)))},
		{"---"},
		{"Variação mensal", signedBRL(latestStats.MonthlyDelta)},
		{"Variação mensal %", cli.FormatNullPercent(latestStats.MonthlyDeltaRelative)},
	}
	rows = append(rows, windowRows(latestStats)...)

	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Resumo",
		Headers: []string{"Métrica", "Valor"},
		Rows:    rows,
	}))

	if len(res.Series) > 1 {
		values := make([]float64, len(res.Series))
		for i, b := range res.Series {
			values[i], _ = b.Value.Float64()
		}
		fmt.Println()
		fmt.Printf("  Evolução  %s\n", cli.RenderSparkline(values))
	}

	if res.Goal != nil {
		fmt.Println()
		renderGoalHeadline(res)
	}
	return nil
}

func windowRows(r model.StatsRow) [][]string {
	var rows [][]string
	for _, ws := range r.Windows {
		rows = append(rows,
			[]string{"---"},
			[]string{fmt.Sprintf("Média mensal %dM", ws.Size), signedBRL(ws.MeanDelta)},
			[]string{fmt.Sprintf("Variação %dM", ws.Size), signedBRL(ws.TotalChange)},
			[]string{fmt.Sprintf("Variação %% %dM", ws.Size), cli.FormatNullPercent(ws.RelativeChange)},
		)
	}
	return rows
}

func signedBRL(d decimal.NullDecimal) string {
	if !d.Valid {
		return cli.Missing
	}
	f, _ := d.Decimal.Float64()
	return cli.RenderSigned(cli.FormatSignedBRL(d.Decimal), f)
}

// renderGoalHeadline prints the attainment of the latest month with data.
func renderGoalHeadline(res *engine.Result) {
	p := res.Goal
	fmt.Printf("  Meta anual %s a %s\n", cli.FormatBRL(p.AnnualTarget), cli.FormatRate(p.AnnualRate*100))

	var last *model.MonthProgress
	for i := range p.Months {
		if p.Months[i].Actual.Valid {
			last = &p.Months[i]
		}
	}
	if last == nil {
		fmt.Println("  " + cli.RenderMuted("Nenhum mês da meta com dados ainda."))
		return
	}
	if last.AttainmentOfAnnual != nil {
		fmt.Printf("  %s  %s\n", cli.FormatMonth(last.Month), cli.RenderGauge(*last.AttainmentOfAnnual, 30))
	}
	fmt.Println("  Use `financas goal` para o detalhamento mensal.")
}
