package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/civil"

	"github.com/theirongolddev/financas/internal/cli"
	"github.com/theirongolddev/financas/internal/config"
	"github.com/theirongolddev/financas/internal/rates"
	"github.com/theirongolddev/financas/internal/report"
	"github.com/theirongolddev/financas/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagRatesRefresh bool
	flagRatesClear   bool
	flagRatesLimit   int
)

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Show the SELIC target history, or the rate on --date",
	RunE:  runRates,
}

func init() {
	ratesCmd.Flags().BoolVar(&flagRatesRefresh, "refresh", false, "Fetch the history again, ignoring the cached copy")
	ratesCmd.Flags().BoolVar(&flagRatesClear, "clear", false, "Delete stored rate snapshots and exit")
	ratesCmd.Flags().IntVar(&flagRatesLimit, "limit", 20, "Show only the newest N intervals (0 for all)")
	rootCmd.AddCommand(ratesCmd)
}

func runRates(cmd *cobra.Command, _ []string) error {
	if flagRatesClear {
		return clearRateSnapshots()
	}

	ctx := cmd.Context()
	provider, closeFn := openProvider()
	defer closeFn()

	var (
		table *rates.Table
		err   error
	)
	if flagRatesRefresh {
		table, err = provider.Refresh(ctx)
	} else {
		table, err = provider.Table(ctx)
	}
	if err != nil {
		return fmt.Errorf("fetching SELIC history: %w", err)
	}

	if flagDate != "" {
		d, err := parseOptionalDate(flagDate, "--date")
		if err != nil {
			return err
		}
		rate, ok := table.RateAt(d, civil.DateOf(time.Now()))
		if !ok {
			return fmt.Errorf("%w: %s", rates.ErrNotFound, cli.FormatDate(d))
		}
		fmt.Printf("  SELIC em %s: %s\n", cli.FormatDate(d), cli.FormatRate(rate))
		return nil
	}

	records := table.Records
	if flagRatesLimit > 0 && len(records) > flagRatesLimit {
		records = records[len(records)-flagRatesLimit:]
	}

	if !flagJSON {
		fmt.Println()
		fmt.Println(cli.RenderTitle("SELIC META"))
		fmt.Println()
	}
	if err := printTables(report.Rates(records)); err != nil {
		return err
	}
	if !flagJSON && !flagQuiet {
		fmt.Fprintf(os.Stderr, "  %s\n", cli.RenderMuted(fmt.Sprintf("Obtido em %s (%d intervalos)",
			table.FetchedAt.Local().Format(time.DateTime), len(table.Records))))
	}
	return nil
}

func clearRateSnapshots() error {
	path := config.CachePath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		fmt.Println("  No rate snapshots stored.")
		return nil
	}

	cache, err := store.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = cache.Close() }()

	snaps, err := cache.Snapshots()
	if err != nil {
		return fmt.Errorf("listing snapshots: %w", err)
	}
	if err := cache.Clear(); err != nil {
		return fmt.Errorf("clearing snapshots: %w", err)
	}
	for _, s := range snaps {
		fmt.Printf("  Removed %s (%d records, %s)\n", s.Endpoint, s.RecordCount, s.FetchedAt.Local().Format(time.DateTime))
	}
	fmt.Printf("  Cleared %d snapshot(s) from %s\n", len(snaps), path)
	return nil
}
