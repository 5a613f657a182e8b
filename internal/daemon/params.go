package daemon

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/financas/internal/engine"
	"github.com/theirongolddev/financas/internal/model"
	"github.com/theirongolddev/financas/internal/pipeline"
	"github.com/theirongolddev/financas/internal/source"
)

// reportParams are the query parameters accepted by /v1/report.
// The goal is projected only when "start" is present.
type reportParams struct {
	stats pipeline.StatsOptions
	goal  *model.GoalConfig
	date  civil.Date
}

func parseReportParams(q url.Values, defaults pipeline.StatsOptions) (reportParams, error) {
	p := reportParams{stats: defaults}

	if v := q.Get("window_mode"); v != "" {
		mode, err := pipeline.ParseWindowMode(v)
		if err != nil {
			return p, err
		}
		p.stats.Mode = mode
	}
	if v := q.Get("windows"); v != "" {
		windows, err := parseWindows(v)
		if err != nil {
			return p, err
		}
		p.stats.Windows = windows
	}
	if v := q.Get("date"); v != "" {
		d, err := parseQueryDate(v)
		if err != nil {
			return p, fmt.Errorf("date: %w", err)
		}
		p.date = d
	}

	startRaw := q.Get("start")
	if startRaw == "" {
		return p, nil
	}
	start, err := parseQueryDate(startRaw)
	if err != nil {
		return p, fmt.Errorf("start: %w", err)
	}
	g := &model.GoalConfig{StartDate: start}

	for _, f := range []struct {
		key string
		dst *decimal.Decimal
	}{
		{"net", &g.NetSalary},
		{"fixed", &g.FixedCosts},
		{"gross", &g.GrossSalary},
	} {
		v := q.Get(f.key)
		if v == "" {
			continue
		}
		d, err := parseQueryAmount(v)
		if err != nil {
			return p, fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = d
	}

	if v := q.Get("target"); v != "" {
		d, err := parseQueryAmount(v)
		if err != nil {
			return p, fmt.Errorf("target: %w", err)
		}
		g.TargetOverride = &d
	}
	if v := q.Get("rate"); v != "" {
		rate, err := strconv.ParseFloat(strings.Replace(strings.TrimSuffix(v, "%"), ",", ".", 1), 64)
		if err != nil {
			return p, fmt.Errorf("rate: invalid number %q", v)
		}
		g.RateOverride = &rate
	}

	p.goal = g
	return p, nil
}

func (p reportParams) input(s *Service) engine.Input {
	in := engine.Input{
		Stats:            p.stats,
		Goal:             p.goal,
		FallbackRate:     s.cfg.FallbackRate,
		DistributionDate: p.date,
	}
	if s.cfg.Provider != nil {
		in.Rates = s.cfg.Provider
	}
	return in
}

// parseQueryDate accepts DD/MM/YYYY as in the export, or ISO YYYY-MM-DD.
func parseQueryDate(s string) (civil.Date, error) {
	if strings.Contains(s, "/") {
		return source.ParseDate(s)
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("%w: %q", source.ErrInvalidDate, s)
	}
	return d, nil
}

// parseQueryAmount accepts export-style amounts ("R$ 1.234,56", "8.000") and
// plain decimals ("1234.56"). A dot-grouped integer is read as pt-BR thousands.
func parseQueryAmount(s string) (decimal.Decimal, error) {
	if d, err := source.ParseAmount(s); err == nil {
		return d, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, source.ErrInvalidAmount
	}
	return d, nil
}

func parseWindows(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("windows: invalid size %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}
