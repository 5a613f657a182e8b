package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/financas/internal/cli"
	"github.com/theirongolddev/financas/internal/config"
	"github.com/theirongolddev/financas/internal/engine"
	"github.com/theirongolddev/financas/internal/logger"
	"github.com/theirongolddev/financas/internal/model"
	"github.com/theirongolddev/financas/internal/pipeline"
	"github.com/theirongolddev/financas/internal/rates"
	"github.com/theirongolddev/financas/internal/report"
	"github.com/theirongolddev/financas/internal/source"
	"github.com/theirongolddev/financas/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagFile        string
	flagSince       string
	flagUntil       string
	flagInstitution string
	flagWindowMode  string
	flagWindows     []int
	flagNoCache     bool
	flagQuiet       bool
	flagJSON        bool
	flagLogLevel    string

	flagGoalStart  string
	flagGoalNet    string
	flagGoalFixed  string
	flagGoalGross  string
	flagGoalRate   string
	flagGoalTarget string
	flagDate       string
)

// cfg is loaded once in PersistentPreRunE.
var cfg = config.DefaultConfig()

var rootCmd = &cobra.Command{
	Use:   "financas",
	Short: "Personal finance statistics and goal projection",
	Long: "Analyze a bank balance export (Data, Instituição, Valor): net worth over time,\n" +
		"rolling statistics and a savings goal projected against the SELIC target rate.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE:              runSummary,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagFile, "file", "f", "", "Export CSV file or directory of exports")
	pf.StringVar(&flagSince, "since", "", "Only use balances on or after this date (DD/MM/YYYY)")
	pf.StringVar(&flagUntil, "until", "", "Only use balances on or before this date (DD/MM/YYYY)")
	pf.StringVarP(&flagInstitution, "institution", "i", "", "Filter to institution (substring match)")
	pf.StringVar(&flagWindowMode, "window-mode", "", "Rolling window mode: rows or calendar")
	pf.IntSliceVar(&flagWindows, "windows", nil, "Rolling window sizes in months (default 6,12,24)")
	pf.BoolVar(&flagNoCache, "no-cache", false, "Skip the SQLite rate snapshot, always fetch")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
	pf.BoolVar(&flagJSON, "json", false, "Print JSON instead of tables")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")

	pf.StringVar(&flagGoalStart, "start", "", "Goal start date (DD/MM/YYYY); enables the projection")
	pf.StringVar(&flagGoalNet, "net", "", "Monthly net salary (R$)")
	pf.StringVar(&flagGoalFixed, "fixed", "", "Monthly fixed costs (R$)")
	pf.StringVar(&flagGoalGross, "gross", "", "Monthly gross salary (R$), informational")
	pf.StringVar(&flagGoalRate, "rate", "", "Annual rate override in percent (e.g. 13,75)")
	pf.StringVar(&flagGoalTarget, "target", "", "Annual savings target override (R$)")
	pf.StringVar(&flagDate, "date", "", "Distribution date (DD/MM/YYYY), default latest")
}

// setup loads .env and the config file and attaches the logger to the command context.
func setup(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	loaded, err := config.Load()
	if err != nil {
		return err
	}
	cfg = loaded

	level := flagLogLevel
	if level == "" {
		level = config.GetLogLevel(cfg)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logger.WithContext(ctx, logger.New(level)))
	return nil
}

func exportPath() (string, error) {
	path := flagFile
	if path == "" {
		path = config.GetFile(cfg)
	}
	if path == "" {
		return "", errors.New("no export file: pass --file or set general.file (financas setup)")
	}
	return path, nil
}

// loadData is the shared data loading path used by all commands.
func loadData() (*pipeline.LoadResult, error) {
	path, err := exportPath()
	if err != nil {
		return nil, err
	}

	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Reading %s...\n", path)
	}

	progressFn := func(current, total int) {
		if flagQuiet || total < 2 {
			return
		}
		fmt.Fprintf(os.Stderr, "\r  Parsing [%d/%d]", current, total)
	}

	result, err := pipeline.Load(path, progressFn)
	if err != nil {
		if !flagQuiet {
			fmt.Fprintln(os.Stderr)
		}
		return nil, err
	}

	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "\r  Parsed %s transactions from %d file(s)    \n",
			cli.FormatNumber(int64(len(result.Transactions))),
			result.TotalFiles,
		)
	}
	return result, nil
}

// applyFilters narrows transactions by --since, --until and --institution.
func applyFilters(txs []model.Transaction) ([]model.Transaction, error) {
	since, err := parseOptionalDate(flagSince, "--since")
	if err != nil {
		return nil, err
	}
	until, err := parseOptionalDate(flagUntil, "--until")
	if err != nil {
		return nil, err
	}

	filtered := pipeline.FilterByDate(txs, since, until)
	if flagInstitution != "" {
		filtered = pipeline.FilterByInstitution(filtered, flagInstitution)
	}
	if filtered == nil {
		filtered = []model.Transaction{}
	}
	return filtered, nil
}

func parseOptionalDate(s, flag string) (civil.Date, error) {
	if strings.TrimSpace(s) == "" {
		return civil.Date{}, nil
	}
	d, err := source.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, fmt.Errorf("%s: %w", flag, err)
	}
	return d, nil
}

func statsOptions() (pipeline.StatsOptions, error) {
	modeName := flagWindowMode
	if modeName == "" {
		modeName = cfg.Stats.WindowMode
	}
	mode, err := pipeline.ParseWindowMode(modeName)
	if err != nil {
		return pipeline.StatsOptions{}, err
	}

	windows := flagWindows
	if len(windows) == 0 {
		windows = cfg.Stats.Windows
	}
	for _, w := range windows {
		if w < 1 {
			return pipeline.StatsOptions{}, fmt.Errorf("--windows: window size must be positive, got %d", w)
		}
	}
	return pipeline.StatsOptions{Windows: windows, Mode: mode}, nil
}

// goalConfig builds the goal from flags. It returns nil when --start is absent.
func goalConfig() (*model.GoalConfig, error) {
	if strings.TrimSpace(flagGoalStart) == "" {
		return nil, nil
	}

	start, err := parseOptionalDate(flagGoalStart, "--start")
	if err != nil {
		return nil, err
	}
	g := &model.GoalConfig{StartDate: start}

	if g.NetSalary, err = parseFlagAmount(flagGoalNet, "--net"); err != nil {
		return nil, err
	}
	if g.FixedCosts, err = parseFlagAmount(flagGoalFixed, "--fixed"); err != nil {
		return nil, err
	}
	if g.GrossSalary, err = parseFlagAmount(flagGoalGross, "--gross"); err != nil {
		return nil, err
	}

	if strings.TrimSpace(flagGoalRate) != "" {
		rate, err := parseFlagRate(flagGoalRate)
		if err != nil {
			return nil, err
		}
		g.RateOverride = &rate
	}
	if strings.TrimSpace(flagGoalTarget) != "" {
		target, err := parseFlagAmount(flagGoalTarget, "--target")
		if err != nil {
			return nil, err
		}
		g.TargetOverride = &target
	}
	return g, nil
}

// parseFlagAmount reads a pt-BR amount ("R$ 1.234,56" or "1234,56"); empty is zero.
func parseFlagAmount(s, flag string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := source.ParseAmount(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", flag, err)
	}
	return d, nil
}

func parseFlagRate(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	rate, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, fmt.Errorf("--rate: invalid percent %q", s)
	}
	return rate, nil
}

// openProvider builds the SELIC provider. The returned close func releases
// the snapshot database and is always safe to call.
func openProvider() (*rates.Provider, func()) {
	client := rates.NewClient(config.GetRateEndpoint(cfg), cfg.Rates.RateTimeout())
	pc := rates.ProviderConfig{TTL: cfg.Rates.TTL()}
	closeFn := func() {}

	if cfg.Rates.DiskCache && !flagNoCache {
		cache, err := store.Open(config.CachePath())
		if err != nil {
			if !flagQuiet {
				fmt.Fprintf(os.Stderr, "  Rate snapshot unavailable, fetching directly\n")
			}
		} else {
			pc.Snapshot = cache.Rates(client.Endpoint())
			closeFn = func() { _ = cache.Close() }
		}
	}
	return rates.NewProvider(client, pc), closeFn
}

// runEngine loads the export and runs the full computation with the flag settings.
func runEngine(ctx context.Context) (*engine.Result, error) {
	loaded, err := loadData()
	if err != nil {
		return nil, err
	}
	txs, err := applyFilters(loaded.Transactions)
	if err != nil {
		return nil, err
	}

	in := engine.Input{Transactions: txs}
	if in.Stats, err = statsOptions(); err != nil {
		return nil, err
	}
	if in.Goal, err = goalConfig(); err != nil {
		return nil, err
	}
	if in.DistributionDate, err = parseOptionalDate(flagDate, "--date"); err != nil {
		return nil, err
	}
	if in.FallbackRate, err = config.GetFallbackRate(cfg); err != nil {
		return nil, err
	}

	if in.Goal != nil && in.Goal.RateOverride == nil {
		provider, closeFn := openProvider()
		defer closeFn()
		in.Rates = provider
	}

	res, err := engine.Run(ctx, in)
	if err != nil {
		return nil, err
	}
	printWarnings(res)
	return res, nil
}

func printWarnings(res *engine.Result) {
	if flagQuiet {
		return
	}
	if res.GoalErr != nil {
		fmt.Fprintln(os.Stderr, cli.RenderWarning(res.GoalErr.Error()))
	}
	if res.RateErr == nil {
		return
	}
	fmt.Fprintln(os.Stderr, cli.RenderWarning("SELIC indisponível: "+res.RateErr.Error()))
	if res.Rate.Source == rates.SourceFallback {
		fmt.Fprintln(os.Stderr, cli.RenderWarning("usando taxa de reserva "+cli.FormatRate(res.Rate.RatePercent)))
	} else if res.Goal == nil {
		fmt.Fprintln(os.Stderr, cli.RenderWarning("meta não projetada: informe --rate"))
	}
}

// printTables renders tables to stdout, or as one JSON document with --json.
func printTables(tables ...report.Table) error {
	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if len(tables) == 1 {
			return enc.Encode(tables[0])
		}
		return enc.Encode(tables)
	}
	for _, t := range tables {
		if len(t.Rows) == 0 {
			fmt.Printf("  %s: %s\n\n", t.Title, cli.RenderMuted("sem dados"))
			continue
		}
		fmt.Print(cli.RenderTable(t.CLI()))
		fmt.Println()
	}
	return nil
}

func noData(res *engine.Result) bool {
	if len(res.Series) > 0 {
		return false
	}
	if flagJSON {
		fmt.Println("[]")
		return true
	}
	fmt.Println("\n  No balances found in the selected range.")
	return true
}
