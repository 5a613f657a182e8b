package cmd

import (
	"path/filepath"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/financas/internal/config"
	"github.com/theirongolddev/financas/internal/model"
	"github.com/theirongolddev/financas/internal/pipeline"
)

func resetGoalFlags(t *testing.T) {
	t.Helper()
	flagGoalStart, flagGoalNet, flagGoalFixed, flagGoalGross = "", "", "", ""
	flagGoalRate, flagGoalTarget = "", ""
	t.Cleanup(func() {
		flagGoalStart, flagGoalNet, flagGoalFixed, flagGoalGross = "", "", "", ""
		flagGoalRate, flagGoalTarget = "", ""
	})
}

func TestGoalConfig_AbsentWithoutStart(t *testing.T) {
	resetGoalFlags(t)
	flagGoalNet = "8000"

	g, err := goalConfig()
	if err != nil {
		t.Fatalf("goalConfig: %v", err)
	}
	if g != nil {
		t.Errorf("goal = %+v, want nil without --start", g)
	}
}

func TestGoalConfig_FromFlags(t *testing.T) {
	resetGoalFlags(t)
	flagGoalStart = "01/01/2024"
	flagGoalNet = "R$ 8.000,00"
	flagGoalFixed = "3500"
	flagGoalRate = "10,5%"
	flagGoalTarget = "60.000,00"

	g, err := goalConfig()
	if err != nil {
		t.Fatalf("goalConfig: %v", err)
	}
	if g.StartDate != (civil.Date{Year: 2024, Month: 1, Day: 1}) {
		t.Errorf("StartDate = %v", g.StartDate)
	}
	if !g.NetSalary.Equal(decimal.NewFromInt(8000)) {
		t.Errorf("NetSalary = %s", g.NetSalary)
	}
	if !g.FixedCosts.Equal(decimal.NewFromInt(3500)) {
		t.Errorf("FixedCosts = %s", g.FixedCosts)
	}
	if !g.GrossSalary.IsZero() {
		t.Errorf("GrossSalary = %s, want 0", g.GrossSalary)
	}
	if g.RateOverride == nil || *g.RateOverride != 10.5 {
		t.Errorf("RateOverride = %v, want 10.5", g.RateOverride)
	}
	if g.TargetOverride == nil || !g.TargetOverride.Equal(decimal.NewFromInt(60000)) {
		t.Errorf("TargetOverride = %v, want 60000", g.TargetOverride)
	}
}

func TestGoalConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		set  func()
	}{
		{"bad start", func() { flagGoalStart = "2024-01-01" }},
		{"bad net", func() { flagGoalStart = "01/01/2024"; flagGoalNet = "abc" }},
		{"bad rate", func() { flagGoalStart = "01/01/2024"; flagGoalRate = "dez" }},
		{"bad target", func() { flagGoalStart = "01/01/2024"; flagGoalTarget = "1,2,3" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetGoalFlags(t)
			tt.set()
			if _, err := goalConfig(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestStatsOptions(t *testing.T) {
	t.Cleanup(func() {
		cfg = config.DefaultConfig()
		flagWindowMode, flagWindows = "", nil
	})

	cfg = config.DefaultConfig()
	cfg.Stats.WindowMode = "calendar"
	opts, err := statsOptions()
	if err != nil {
		t.Fatalf("statsOptions: %v", err)
	}
	if opts.Mode != pipeline.WindowCalendarMonths {
		t.Errorf("Mode = %v, want calendar from config", opts.Mode)
	}
	if len(opts.Windows) != 3 {
		t.Errorf("Windows = %v, want config defaults", opts.Windows)
	}

	flagWindowMode = "rows"
	flagWindows = []int{3}
	opts, err = statsOptions()
	if err != nil {
		t.Fatalf("statsOptions: %v", err)
	}
	if opts.Mode != pipeline.WindowRows || len(opts.Windows) != 1 || opts.Windows[0] != 3 {
		t.Errorf("opts = %+v, want flags to win", opts)
	}

	flagWindows = []int{0}
	if _, err := statsOptions(); err == nil {
		t.Error("expected error for window 0")
	}

	flagWindows = nil
	flagWindowMode = "weekly"
	if _, err := statsOptions(); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestApplyFilters(t *testing.T) {
	t.Cleanup(func() { flagSince, flagUntil, flagInstitution = "", "", "" })

	txs := []model.Transaction{
		{Date: civil.Date{Year: 2023, Month: 1, Day: 31}, Institution: "Banco A", Amount: decimal.NewFromInt(1)},
		{Date: civil.Date{Year: 2023, Month: 2, Day: 28}, Institution: "Banco A", Amount: decimal.NewFromInt(2)},
		{Date: civil.Date{Year: 2023, Month: 2, Day: 28}, Institution: "Corretora B", Amount: decimal.NewFromInt(3)},
	}

	flagSince = "01/02/2023"
	got, err := applyFilters(txs)
	if err != nil {
		t.Fatalf("applyFilters: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("since: got %d transactions, want 2", len(got))
	}

	flagInstitution = "corretora"
	got, err = applyFilters(txs)
	if err != nil {
		t.Fatalf("applyFilters: %v", err)
	}
	if len(got) != 1 || got[0].Institution != "Corretora B" {
		t.Errorf("institution: got %+v", got)
	}

	flagSince, flagInstitution = "", ""
	flagUntil = "01/01/2020"
	got, err = applyFilters(txs)
	if err != nil {
		t.Fatalf("applyFilters: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("until: got %v, want empty non-nil", got)
	}

	flagUntil = "31-12-2023"
	if _, err := applyFilters(txs); err == nil {
		t.Error("expected error for malformed --until")
	}
}

func TestFilterDetachArg(t *testing.T) {
	got := filterDetachArg([]string{"serve", "--detach", "--addr", ":9000", "--detach=true"})
	want := []string{"serve", "--addr", ":9000"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("arg %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPIDFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "financasd.pid")
	if err := writePID(path, 4242); err != nil {
		t.Fatalf("writePID: %v", err)
	}
	pid, err := readPID(path)
	if err != nil {
		t.Fatalf("readPID: %v", err)
	}
	if pid != 4242 {
		t.Errorf("pid = %d, want 4242", pid)
	}

	if err := ensureServerNotRunning(filepath.Join(t.TempDir(), "missing.pid")); err != nil {
		t.Errorf("missing pid file: %v", err)
	}
}
