package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/financas/internal/model"
	"github.com/theirongolddev/financas/internal/pipeline"
	"github.com/theirongolddev/financas/internal/tui/components"
)

func sampleTransactions() []model.Transaction {
	d := func(y, m, day int) civil.Date { return civil.Date{Year: y, Month: time.Month(m), Day: day} }
	amt := decimal.RequireFromString
	return []model.Transaction{
		{Date: d(2024, 1, 31), Institution: "Banco A", Amount: amt("10000")},
		{Date: d(2024, 2, 29), Institution: "Banco A", Amount: amt("12000")},
		{Date: d(2024, 2, 29), Institution: "Corretora", Amount: amt("3000")},
		{Date: d(2024, 3, 31), Institution: "Banco A", Amount: amt("15000")},
	}
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// loadedApp returns an app with data loaded and the engine result applied.
func loadedApp(t *testing.T, opts Options) App {
	t.Helper()
	a := NewApp(opts)
	a.width, a.height = 140, 50

	m, _ := a.Update(DataLoadedMsg{Transactions: sampleTransactions()})
	a = m.(App)
	if !a.computing {
		t.Fatal("expected a computation after load")
	}
	m, _ = a.Update(computeCmd(a.input())())
	a = m.(App)
	if a.computeErr != nil {
		t.Fatalf("compute: %v", a.computeErr)
	}
	return a
}

func TestTabAtXMatchesTabWidths(t *testing.T) {
	n := len(components.Tabs)
	for active := 0; active < n; active++ {
		a := App{activeTab: active}
		pos := 0
		for i, tab := range components.Tabs {
			w := components.TabVisualWidth(tab, i == active)
			x := pos + w/2
			if got := a.tabAtX(x); got != i {
				t.Fatalf("active=%d x=%d -> tab=%d, want %d", active, x, got, i)
			}
			pos += w + 1
		}
		if got := a.tabAtX(pos + 500); got != -1 {
			t.Fatalf("tabAtX past the bar = %d, want -1", got)
		}
	}
}

func TestGoalValuesConfig(t *testing.T) {
	tests := []struct {
		name    string
		vals    goalValues
		wantErr bool
		check   func(t *testing.T, cfg model.GoalConfig)
	}{
		{
			name: "full",
			vals: goalValues{Start: "01/01/2024", Net: "5.000,00", Fixed: "R$ 3.000,00", Gross: "8000", Rate: "10,5%", Target: "20.000"},
			check: func(t *testing.T, cfg model.GoalConfig) {
				if cfg.StartDate != (civil.Date{Year: 2024, Month: 1, Day: 1}) {
					t.Errorf("StartDate = %v", cfg.StartDate)
				}
				if !cfg.NetSalary.Equal(decimal.NewFromInt(5000)) || !cfg.FixedCosts.Equal(decimal.NewFromInt(3000)) {
					t.Errorf("salary/costs = %s/%s", cfg.NetSalary, cfg.FixedCosts)
				}
				if cfg.RateOverride == nil || *cfg.RateOverride != 10.5 {
					t.Errorf("RateOverride = %v, want 10.5", cfg.RateOverride)
				}
				if cfg.TargetOverride == nil || !cfg.TargetOverride.Equal(decimal.NewFromInt(20000)) {
					t.Errorf("TargetOverride = %v", cfg.TargetOverride)
				}
			},
		},
		{
			name: "optional fields empty",
			vals: goalValues{Start: "15/03/2024"},
			check: func(t *testing.T, cfg model.GoalConfig) {
				if cfg.RateOverride != nil || cfg.TargetOverride != nil {
					t.Error("overrides should be absent")
				}
				if !cfg.NetSalary.IsZero() {
					t.Errorf("NetSalary = %s, want 0", cfg.NetSalary)
				}
			},
		},
		{name: "bad date", vals: goalValues{Start: "2024-01-01"}, wantErr: true},
		{name: "bad amount", vals: goalValues{Start: "01/01/2024", Net: "cinco mil"}, wantErr: true},
		{name: "bad rate", vals: goalValues{Start: "01/01/2024", Rate: "alta"}, wantErr: true},
		{name: "negative target", vals: goalValues{Start: "01/01/2024", Target: "-1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := tt.vals.config()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("config: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestNewGoalValuesRoundTrip(t *testing.T) {
	rate := 13.75
	target := decimal.RequireFromString("24000.50")
	in := model.GoalConfig{
		StartDate:      civil.Date{Year: 2024, Month: 2, Day: 5},
		NetSalary:      decimal.RequireFromString("5432.10"),
		FixedCosts:     decimal.RequireFromString("1234.56"),
		RateOverride:   &rate,
		TargetOverride: &target,
	}
	out, err := newGoalValues(&in).config()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if out.StartDate != in.StartDate || !out.NetSalary.Equal(in.NetSalary) || !out.FixedCosts.Equal(in.FixedCosts) {
		t.Errorf("round trip = %+v", out)
	}
	if out.RateOverride == nil || *out.RateOverride != rate {
		t.Errorf("RateOverride = %v", out.RateOverride)
	}
	if out.TargetOverride == nil || !out.TargetOverride.Equal(target) {
		t.Errorf("TargetOverride = %v", out.TargetOverride)
	}
}

func TestApp_LoadComputeAndRender(t *testing.T) {
	rate := 10.0
	a := loadedApp(t, Options{
		Path: "extrato.csv",
		Goal: &model.GoalConfig{
			StartDate:    civil.Date{Year: 2024, Month: 1, Day: 31},
			NetSalary:    decimal.NewFromInt(5000),
			FixedCosts:   decimal.NewFromInt(3000),
			RateOverride: &rate,
		},
	})

	if a.result == nil || len(a.result.Series) != 3 {
		t.Fatalf("result series = %+v", a.result)
	}
	if a.result.Goal == nil {
		t.Fatal("goal not projected")
	}

	for tab := range components.Tabs {
		a.activeTab = tab
		view := ansi.Strip(a.View())
		if view == "" {
			t.Fatalf("tab %d rendered empty", tab)
		}
		if lines := strings.Count(view, "\n") + 1; lines != a.height {
			t.Errorf("tab %d rendered %d lines, want %d", tab, lines, a.height)
		}
	}

	a.activeTab = 0
	if view := ansi.Strip(a.View()); !strings.Contains(view, "R$ 15.000,00") {
		t.Error("overview missing latest net worth")
	}
}

func TestApp_LoadError(t *testing.T) {
	a := NewApp(Options{Path: "missing"})
	a.width, a.height = 120, 30
	m, _ := a.Update(DataLoadedMsg{Err: errors.New("boom")})
	a = m.(App)
	if !a.loaded || a.loadErr == nil {
		t.Fatal("load error not recorded")
	}
	if !strings.Contains(ansi.Strip(a.View()), "boom") {
		t.Error("error not shown")
	}
}

func TestApp_Keys(t *testing.T) {
	a := loadedApp(t, Options{Path: "extrato.csv"})

	m, _ := a.Update(keyRune('e'))
	a = m.(App)
	if a.activeTab != 3 {
		t.Fatalf("after 'e' activeTab = %d, want 3", a.activeTab)
	}

	m, _ = a.Update(tea.KeyMsg{Type: tea.KeyRight})
	a = m.(App)
	if a.activeTab != 4 {
		t.Fatalf("after right activeTab = %d, want 4", a.activeTab)
	}

	m, _ = a.Update(tea.KeyMsg{Type: tea.KeyLeft})
	m, _ = m.(App).Update(tea.KeyMsg{Type: tea.KeyLeft})
	a = m.(App)
	if a.activeTab != 2 {
		t.Fatalf("after two lefts activeTab = %d, want 2", a.activeTab)
	}

	m, cmd := a.Update(keyRune('w'))
	a = m.(App)
	if a.opts.Stats.Mode != pipeline.WindowCalendarMonths || cmd == nil {
		t.Fatalf("'w' mode = %v cmd = %v", a.opts.Stats.Mode, cmd)
	}

	m, _ = a.Update(keyRune('j'))
	a = m.(App)
	if a.scroll[a.activeTab] != 1 {
		t.Fatalf("scroll = %d, want 1", a.scroll[a.activeTab])
	}
	m, _ = a.Update(keyRune('k'))
	m, _ = m.(App).Update(keyRune('k'))
	a = m.(App)
	if a.scroll[a.activeTab] != 0 {
		t.Fatalf("scroll = %d, want 0", a.scroll[a.activeTab])
	}

	m, _ = a.Update(keyRune('g'))
	a = m.(App)
	if a.goalForm == nil {
		t.Fatal("'g' did not open the goal form")
	}
	m, _ = a.Update(tea.KeyMsg{Type: tea.KeyEsc})
	a = m.(App)
	if a.goalForm != nil {
		t.Fatal("esc did not close the goal form")
	}

	_, cmd = a.Update(keyRune('q'))
	if cmd == nil {
		t.Fatal("'q' returned no command")
	}
}

func TestScrollLines(t *testing.T) {
	s := "a\nb\nc\nd\ne"
	tests := []struct {
		offset, h int
		want      string
	}{
		{0, 3, "a\nb\nc"},
		{1, 3, "b\nc\nd"},
		{10, 3, "c\nd\ne"},
		{0, 7, "a\nb\nc\nd\ne\n\n"},
	}
	for _, tt := range tests {
		if got := scrollLines(s, tt.offset, tt.h); got != tt.want {
			t.Errorf("scrollLines(%d, %d) = %q, want %q", tt.offset, tt.h, got, tt.want)
		}
	}
}
