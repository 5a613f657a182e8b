package cmd

import (
	"errors"
	"fmt"

	"github.com/theirongolddev/financas/internal/cli"
	"github.com/theirongolddev/financas/internal/report"

	"github.com/spf13/cobra"
)

var transactionsCmd = &cobra.Command{
	Use:     "transactions",
	Aliases: []string{"tx"},
	Short:   "List the normalized transactions",
	RunE:    runTransactions,
}

var institutionsCmd = &cobra.Command{
	Use:   "institutions",
	Short: "Balance per institution for every date",
	RunE:  runInstitutions,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Period-over-period and rolling-window statistics",
	RunE:  runStats,
}

var distributionCmd = &cobra.Command{
	Use:   "distribution",
	Short: "Share of each institution on one date (--date, default latest)",
	RunE:  runDistribution,
}

var goalCmd = &cobra.Command{
	Use:   "goal",
	Short: "Project the savings goal (requires --start)",
	Example: "  financas goal -f extrato.csv --start 01/01/2024 --net 8.000,00 --fixed 3.500,00\n" +
		"  financas goal -f extrato.csv --start 01/01/2024 --net 8000 --fixed 3500 --rate 10,5",
	RunE: runGoal,
}

func init() {
	rootCmd.AddCommand(transactionsCmd)
	rootCmd.AddCommand(institutionsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(distributionCmd)
	rootCmd.AddCommand(goalCmd)
}

func runTransactions(cmd *cobra.Command, _ []string) error {
	res, err := runEngine(cmd.Context())
	if err != nil {
		return err
	}
	if noData(res) {
		return nil
	}
	return printTables(report.Transactions(res.Transactions))
}

func runInstitutions(cmd *cobra.Command, _ []string) error {
	res, err := runEngine(cmd.Context())
	if err != nil {
		return err
	}
	if noData(res) {
		return nil
	}
	return printTables(report.Institutions(res.Pivot))
}

func runStats(cmd *cobra.Command, _ []string) error {
	res, err := runEngine(cmd.Context())
	if err != nil {
		return err
	}
	if noData(res) {
		return nil
	}
	return printTables(report.Stats(res.Stats))
}

func runDistribution(cmd *cobra.Command, _ []string) error {
	res, err := runEngine(cmd.Context())
	if err != nil {
		return err
	}
	if noData(res) {
		return nil
	}
	if len(res.Distribution) == 0 {
		return fmt.Errorf("no balances on %s", cli.FormatDate(res.DistributionDate))
	}
	if err := printTables(report.Distribution(res.Distribution, res.DistributionDate)); err != nil {
		return err
	}
	if flagJSON {
		return nil
	}

	var maxAmount float64
	for _, s := range res.Distribution {
		if f, _ := s.Amount.Float64(); f > maxAmount {
			maxAmount = f
		}
	}
	for _, s := range res.Distribution {
		f, _ := s.Amount.Float64()
		label := fmt.Sprintf("%s %s", s.Institution, cli.FormatNullPercent(s.Share))
		fmt.Println(cli.RenderHorizontalBar(label, f, maxAmount, 40))
	}
	return nil
}

func runGoal(cmd *cobra.Command, _ []string) error {
	if flagGoalStart == "" {
		return errors.New("--start is required (goal start date, DD/MM/YYYY)")
	}

	res, err := runEngine(cmd.Context())
	if err != nil {
		return err
	}
	if noData(res) {
		return nil
	}
	if res.GoalErr != nil {
		return res.GoalErr
	}
	if res.Goal == nil {
		return errors.New("no reference rate available: pass --rate or set rates.fallback_rate")
	}

	if !flagJSON {
		fmt.Println()
		fmt.Println(cli.RenderTitle("META  " + cli.FormatDate(res.Goal.StartDate)))
		fmt.Println()
	}
	return printTables(
		report.GoalSummary(*res.Goal, string(res.Rate.Source)),
		report.GoalBreakdown(*res.Goal),
	)
}
