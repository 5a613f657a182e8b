package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/financas/internal/goal"
	"github.com/theirongolddev/financas/internal/model"
	"github.com/theirongolddev/financas/internal/pipeline"
	"github.com/theirongolddev/financas/internal/rates"
	"github.com/theirongolddev/financas/internal/report"
	"github.com/theirongolddev/financas/internal/source"
)

const export = `Data,Instituição,Valor
31/01/2023,Nubank,"R$ 8.000,00"
31/01/2023,Itaú,"R$ 2.000,00"
28/02/2023,Nubank,"R$ 8.500,00"
28/02/2023,Itaú,"R$ 2.500,00"
`

func day(y, m, d int) civil.Date {
	return civil.Date{Year: y, Month: time.Month(m), Day: d}
}

type fakeFetcher struct {
	records []model.RateRecord
	err     error
}

func (f fakeFetcher) FetchRecords(context.Context, civil.Date) ([]model.RateRecord, error) {
	return f.records, f.err
}

func goalConfig() *model.GoalConfig {
	return &model.GoalConfig{
		StartDate:  day(2023, 1, 31),
		NetSalary:  decimal.NewFromInt(5000),
		FixedCosts: decimal.NewFromInt(3000),
	}
}

func TestRun_BalancesAndStats(t *testing.T) {
	res, err := Run(context.Background(), Input{CSV: strings.NewReader(export)})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Series) != 2 || !res.Series[1].Value.Equal(decimal.NewFromInt(11000)) {
		t.Errorf("Series = %+v", res.Series)
	}
	if res.Goal != nil {
		t.Error("Goal should be nil without a goal config")
	}
	if res.DistributionDate != day(2023, 2, 28) || len(res.Distribution) != 2 {
		t.Errorf("Distribution on %v = %+v", res.DistributionDate, res.Distribution)
	}
	if len(res.Stats) != 2 || res.Stats[1].MonthlyDeltaRelative == nil {
		t.Errorf("Stats = %+v", res.Stats)
	}
}

func TestRun_ParseErrorAborts(t *testing.T) {
	_, err := Run(context.Background(), Input{CSV: strings.NewReader("Data,Instituição,Valor\n31/01/2023,Nubank,xyz\n")})
	var pe *source.ParseError
	if !errors.As(err, &pe) || pe.Line != 2 {
		t.Errorf("err = %v, want ParseError on line 2", err)
	}
}

func TestRun_GoalWithProvider(t *testing.T) {
	p := rates.NewProvider(fakeFetcher{records: []model.RateRecord{
		{Start: day(2023, 1, 1), End: day(2024, 1, 1), RatePercent: 10},
	}}, rates.ProviderConfig{})

	res, err := Run(context.Background(), Input{
		CSV:   strings.NewReader(export),
		Goal:  goalConfig(),
		Rates: p,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.RateErr != nil {
		t.Errorf("RateErr = %v", res.RateErr)
	}
	if res.Goal == nil {
		t.Fatal("Goal is nil")
	}
	if res.Rate.Source != rates.SourceProvider || res.Goal.AnnualRate != 0.10 {
		t.Errorf("rate = %+v, annual = %v", res.Rate, res.Goal.AnnualRate)
	}
	if !res.Goal.StartingNetWorth.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("StartingNetWorth = %s", res.Goal.StartingNetWorth)
	}
	if feb := res.Goal.Months[0]; !feb.Actual.Valid || !feb.Actual.Decimal.Equal(decimal.NewFromInt(11000)) {
		t.Errorf("Feb actual = %v", feb.Actual)
	}
}

func TestRun_RateMissFallsBackToOverride(t *testing.T) {
	// The provider has no interval for 2023.
	p := rates.NewProvider(fakeFetcher{records: []model.RateRecord{
		{Start: day(2020, 1, 1), End: day(2020, 6, 1), RatePercent: 4.25},
	}}, rates.ProviderConfig{})
	fallback := 11.0

	res, err := Run(context.Background(), Input{
		CSV:          strings.NewReader(export),
		Goal:         goalConfig(),
		Rates:        p,
		FallbackRate: &fallback,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(res.RateErr, rates.ErrNotFound) {
		t.Errorf("RateErr = %v, want ErrNotFound", res.RateErr)
	}
	if res.Goal == nil || res.Rate.Source != rates.SourceFallback || res.Goal.AnnualRate != 0.11 {
		t.Errorf("rate = %+v, goal = %v", res.Rate, res.Goal)
	}

	// An explicit override never consults the provider.
	cfg := goalConfig()
	override := 12.5
	cfg.RateOverride = &override
	res, err = Run(context.Background(), Input{CSV: strings.NewReader(export), Goal: cfg, Rates: p})
	if err != nil {
		t.Fatal(err)
	}
	if res.RateErr != nil || res.Rate.Source != rates.SourceOverride || res.Goal == nil {
		t.Errorf("override run = %+v", res.Rate)
	}
}

func TestRun_ServiceErrorKeepsStats(t *testing.T) {
	p := rates.NewProvider(fakeFetcher{err: errors.New("dial tcp: connection refused")}, rates.ProviderConfig{})

	res, err := Run(context.Background(), Input{
		CSV:   strings.NewReader(export),
		Goal:  goalConfig(),
		Rates: p,
	})
	if err != nil {
		t.Fatalf("service failure must not abort the run: %v", err)
	}
	if !errors.Is(res.RateErr, rates.ErrService) {
		t.Errorf("RateErr = %v, want ErrService", res.RateErr)
	}
	if res.Goal != nil {
		t.Error("Goal should be nil without any rate")
	}
	if len(res.Stats) != 2 {
		t.Errorf("Stats = %d rows, want 2", len(res.Stats))
	}

	b := res.Bundle()
	if len(b.Warnings) != 1 {
		t.Errorf("Warnings = %v", b.Warnings)
	}
	if _, ok := b.Table(report.NameGoalSummary); ok {
		t.Error("goal tables should be absent")
	}
}

func TestRun_EmptyInput(t *testing.T) {
	res, err := Run(context.Background(), Input{
		CSV:  strings.NewReader("Data,Instituição,Valor\n"),
		Goal: goalConfig(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Series) != 0 || res.Goal != nil {
		t.Errorf("empty input: series=%d goal=%v", len(res.Series), res.Goal)
	}
}

func TestRun_CalendarMode(t *testing.T) {
	res, err := Run(context.Background(), Input{
		CSV:   strings.NewReader(export),
		Stats: pipeline.StatsOptions{Windows: []int{2}, Mode: pipeline.WindowCalendarMonths},
	})
	if err != nil {
		t.Fatal(err)
	}
	ws, ok := res.Stats[1].Window(2)
	if !ok || !ws.TotalChange.Valid || !ws.TotalChange.Decimal.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("window = %+v", ws)
	}
}

func TestResult_Bundle(t *testing.T) {
	override := 10.0
	cfg := goalConfig()
	cfg.RateOverride = &override
	res, err := Run(context.Background(), Input{CSV: strings.NewReader(export), Goal: cfg})
	if err != nil {
		t.Fatal(err)
	}
	b := res.Bundle()
	for _, name := range []string{
		report.NameTransactions, report.NameInstitutions, report.NameStats,
		report.NameDistribution, report.NameGoalSummary, report.NameGoalMonths,
	} {
		if _, ok := b.Table(name); !ok {
			t.Errorf("bundle missing %s", name)
		}
	}
}

func TestRun_RejectedGoalKeepsBalances(t *testing.T) {
	g := goalConfig()
	rate := 10.0
	target := decimal.NewFromInt(-1)
	g.RateOverride = &rate
	g.TargetOverride = &target

	res, err := Run(context.Background(), Input{CSV: strings.NewReader(export), Goal: g})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !errors.Is(res.GoalErr, goal.ErrNegativeTarget) {
		t.Errorf("GoalErr = %v, want ErrNegativeTarget", res.GoalErr)
	}
	if res.Goal != nil {
		t.Error("Goal should be nil when rejected")
	}
	if len(res.Series) != 2 || len(res.Stats) != 2 {
		t.Errorf("series = %d, stats = %d, want 2 each", len(res.Series), len(res.Stats))
	}

	b := res.Bundle()
	if len(b.Warnings) != 1 {
		t.Errorf("warnings = %v, want the goal error", b.Warnings)
	}
	if _, ok := b.Table(report.NameGoalSummary); ok {
		t.Error("goal_summary present for a rejected goal")
	}
}
