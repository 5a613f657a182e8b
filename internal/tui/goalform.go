package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/financas/internal/model"
	"github.com/theirongolddev/financas/internal/source"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
)

// goalValues are the raw form strings for a goal, in export notation.
type goalValues struct {
	Start  string
	Net    string
	Fixed  string
	Gross  string
	Rate   string // optional annual percent override
	Target string // optional annual target override
}

func newGoalValues(cfg *model.GoalConfig) *goalValues {
	v := &goalValues{}
	if cfg == nil {
		return v
	}
	v.Start = fmt.Sprintf("%02d/%02d/%04d", cfg.StartDate.Day, cfg.StartDate.Month, cfg.StartDate.Year)
	v.Net = formatFormAmount(cfg.NetSalary)
	v.Fixed = formatFormAmount(cfg.FixedCosts)
	v.Gross = formatFormAmount(cfg.GrossSalary)
	if cfg.RateOverride != nil {
		v.Rate = strings.Replace(strconv.FormatFloat(*cfg.RateOverride, 'f', -1, 64), ".", ",", 1)
	}
	if cfg.TargetOverride != nil {
		v.Target = formatFormAmount(*cfg.TargetOverride)
	}
	return v
}

func formatFormAmount(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return strings.TrimPrefix(source.FormatAmount(d), "R$ ")
}

// config converts the form values into a goal. Empty amounts are zero and
// empty overrides are absent.
func (v goalValues) config() (model.GoalConfig, error) {
	var cfg model.GoalConfig

	start, err := source.ParseDate(strings.TrimSpace(v.Start))
	if err != nil {
		return cfg, fmt.Errorf("início: %w", err)
	}
	cfg.StartDate = start

	for _, f := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"salário líquido", v.Net, &cfg.NetSalary},
		{"custos fixos", v.Fixed, &cfg.FixedCosts},
		{"salário bruto", v.Gross, &cfg.GrossSalary},
	} {
		d, err := parseFormAmount(f.raw)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = d
	}

	if strings.TrimSpace(v.Target) != "" {
		d, err := parseFormAmount(v.Target)
		if err != nil {
			return cfg, fmt.Errorf("meta anual: %w", err)
		}
		if d.IsNegative() {
			return cfg, errors.New("meta anual: não pode ser negativa")
		}
		cfg.TargetOverride = &d
	}

	if strings.TrimSpace(v.Rate) != "" {
		rate, err := parseFormRate(v.Rate)
		if err != nil {
			return cfg, fmt.Errorf("taxa: %w", err)
		}
		cfg.RateOverride = &rate
	}
	return cfg, nil
}

func parseFormAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return source.ParseAmount(s)
}

func parseFormRate(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	rate, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, fmt.Errorf("número inválido %q", s)
	}
	return rate, nil
}

func validateDate(s string) error {
	_, err := source.ParseDate(strings.TrimSpace(s))
	return err
}

func validateAmount(s string) error {
	_, err := parseFormAmount(s)
	return err
}

func validateRate(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	_, err := parseFormRate(s)
	return err
}

func newGoalForm(v *goalValues) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Meta de patrimônio").
				Description("Valores no formato do extrato (1.234,56).\nOs dados da meta não são salvos em disco."),
			huh.NewInput().
				Title("Início da meta").
				Placeholder("DD/MM/AAAA").
				Value(&v.Start).
				Validate(validateDate),
			huh.NewInput().
				Title("Salário líquido mensal").
				Value(&v.Net).
				Validate(validateAmount),
			huh.NewInput().
				Title("Custos fixos mensais").
				Value(&v.Fixed).
				Validate(validateAmount),
			huh.NewInput().
				Title("Salário bruto mensal").
				Description("Apenas exibido").
				Value(&v.Gross).
				Validate(validateAmount),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Taxa anual (%)").
				Description("Vazio usa a SELIC meta vigente no início").
				Value(&v.Rate).
				Validate(validateRate),
			huh.NewInput().
				Title("Meta anual").
				Description("Vazio usa o potencial de renda anual").
				Value(&v.Target).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return nil
					}
					d, err := parseFormAmount(s)
					if err == nil && d.IsNegative() {
						return errors.New("não pode ser negativa")
					}
					return err
				}),
		),
	).WithTheme(huh.ThemeCharm()).WithShowHelp(true)
}

func (a App) openGoalForm() (tea.Model, tea.Cmd) {
	a.goalVals = newGoalValues(a.opts.Goal)
	a.goalForm = newGoalForm(a.goalVals)
	if a.width > 0 {
		a.goalForm = a.goalForm.WithWidth(a.width).WithHeight(a.height)
	}
	return a, a.goalForm.Init()
}

func (a App) updateGoalForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.goalForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.goalForm = f
	}

	switch a.goalForm.State {
	case huh.StateCompleted:
		a.goalForm = nil
		cfg, err := a.goalVals.config()
		a.goalErr = err
		if err != nil {
			return a, nil
		}
		a.opts.Goal = &cfg
		a.activeTab = 4
		return a.recompute()
	case huh.StateAborted:
		a.goalForm = nil
		return a, nil
	}
	return a, cmd
}
