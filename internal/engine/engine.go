// Package engine runs the full computation for one export: normalize,
// aggregate, compute statistics, resolve the reference rate and project the goal.
package engine

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/civil"

	"github.com/theirongolddev/financas/internal/goal"
	"github.com/theirongolddev/financas/internal/logger"
	"github.com/theirongolddev/financas/internal/model"
	"github.com/theirongolddev/financas/internal/pipeline"
	"github.com/theirongolddev/financas/internal/rates"
	"github.com/theirongolddev/financas/internal/report"
	"github.com/theirongolddev/financas/internal/source"
)

// RateResolver resolves the annual reference rate. *rates.Provider implements it.
type RateResolver interface {
	Resolve(ctx context.Context, d civil.Date, override *float64) rates.Resolution
}

// Input is everything one run needs. Exactly one of Transactions or CSV is used;
// Transactions wins when both are set.
type Input struct {
	Transactions []model.Transaction
	CSV          io.Reader

	Stats pipeline.StatsOptions
	// Goal is optional; without it no projection is made.
	Goal *model.GoalConfig
	// Rates is optional; without it only GoalConfig.RateOverride is used.
	Rates RateResolver
	// FallbackRate (percent) replaces a failed or missed lookup.
	FallbackRate *float64
	// DistributionDate selects the Distribution date; zero means the latest date.
	DistributionDate civil.Date
}

// Result holds every derived output of a run.
type Result struct {
	Transactions []model.Transaction
	Series       []model.DailyBalance
	Pivot        model.InstitutionPivot
	Stats        []model.StatsRow

	DistributionDate civil.Date
	Distribution     []model.InstitutionShare

	Rate rates.Resolution
	// RateErr is set when the rate lookup failed; balances and statistics are still valid.
	RateErr error
	// GoalErr is set when the goal parameters were rejected; the other outputs are still valid.
	GoalErr error
	// Goal is nil when no goal was requested, the series is empty, no rate is available,
	// or GoalErr is set.
	Goal *model.GoalProjection
}

// Run executes the pipeline. Parse errors abort the run; rate failures and
// rejected goal parameters only skip or degrade the goal projection.
func Run(ctx context.Context, in Input) (*Result, error) {
	log := logger.FromContext(ctx)

	txs := in.Transactions
	if txs == nil && in.CSV != nil {
		parsed, err := source.ParseCSV(in.CSV)
		if err != nil {
			return nil, err
		}
		txs = parsed
	}

	res := &Result{Transactions: txs}
	res.Series = pipeline.AggregateDays(txs)
	res.Pivot = pipeline.PivotInstitutions(txs)
	res.Stats = pipeline.ComputeStats(res.Series, in.Stats)
	log.Debug().Int("transactions", len(txs)).Int("dates", len(res.Series)).Msg("aggregated")

	res.DistributionDate = in.DistributionDate
	if res.DistributionDate.IsZero() {
		res.DistributionDate, _ = pipeline.LatestDate(res.Pivot)
	}
	res.Distribution = pipeline.Distribution(res.Pivot, res.DistributionDate)

	if in.Goal == nil || len(res.Series) == 0 {
		return res, nil
	}

	res.Rate = resolveRate(ctx, in)
	if res.Rate.Err != nil {
		res.RateErr = res.Rate.Err
		log.Warn().Err(res.Rate.Err).Str("date", in.Goal.StartDate.String()).Msg("reference rate unavailable")
	}
	if res.Rate.Source == rates.SourceMissing {
		if in.FallbackRate == nil {
			return res, nil
		}
		res.Rate = rates.Resolution{RatePercent: *in.FallbackRate, Source: rates.SourceFallback, Err: res.Rate.Err}
	}

	p, err := goal.Project(*in.Goal, res.Series, res.Rate.RatePercent)
	if err != nil {
		res.GoalErr = fmt.Errorf("projecting goal: %w", err)
		log.Warn().Err(err).Msg("goal rejected")
		return res, nil
	}
	res.Goal = &p
	return res, nil
}

func resolveRate(ctx context.Context, in Input) rates.Resolution {
	if in.Rates != nil {
		return in.Rates.Resolve(ctx, in.Goal.StartDate, in.Goal.RateOverride)
	}
	if in.Goal.RateOverride != nil {
		return rates.Resolution{RatePercent: *in.Goal.RateOverride, Source: rates.SourceOverride}
	}
	return rates.Resolution{Source: rates.SourceMissing, Err: fmt.Errorf("%w: no rate provider or override", rates.ErrNotFound)}
}

// Bundle renders every result table.
func (r *Result) Bundle() report.Bundle {
	tables := []report.Table{
		report.Transactions(r.Transactions),
		report.Institutions(r.Pivot),
		report.Stats(r.Stats),
	}
	if len(r.Distribution) > 0 {
		tables = append(tables, report.Distribution(r.Distribution, r.DistributionDate))
	}
	if r.Goal != nil {
		tables = append(tables,
			report.GoalSummary(*r.Goal, string(r.Rate.Source)),
			report.GoalBreakdown(*r.Goal),
		)
	}

	b := report.NewBundle(tables...)
	if r.RateErr != nil {
		b.Warnings = append(b.Warnings, r.RateErr.Error())
	}
	if r.GoalErr != nil {
		b.Warnings = append(b.Warnings, r.GoalErr.Error())
	}
	return b
}
