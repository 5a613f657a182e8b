package goal

import (
	"errors"
	"math"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/financas/internal/model"
)

func day(y, m, d int) civil.Date {
	return civil.Date{Year: y, Month: time.Month(m), Day: d}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func sampleSeries() []model.DailyBalance {
	return []model.DailyBalance{
		{Date: day(2023, 1, 10), Value: dec("10000")},
		{Date: day(2023, 2, 15), Value: dec("10500")},
		{Date: day(2023, 2, 28), Value: dec("11000")},
		// no March data
		{Date: day(2023, 4, 30), Value: dec("13000")},
	}
}

func sampleConfig() model.GoalConfig {
	return model.GoalConfig{
		StartDate:   day(2023, 1, 15),
		GrossSalary: dec("7000"),
		NetSalary:   dec("5000"),
		FixedCosts:  dec("3000"),
	}
}

func TestMonthlyRate(t *testing.T) {
	got := MonthlyRate(0.10)
	if !approx(got, 0.00797414, 1e-8) {
		t.Errorf("MonthlyRate(0.10) = %v, want ~0.00797414", got)
	}
	if approx(got, 0.10/12, 1e-6) {
		t.Error("MonthlyRate must compound, not divide by 12")
	}
}

func TestMonthlyRate_CompoundingIdentity(t *testing.T) {
	for _, annual := range []float64{0, 0.02, 0.1075, 0.1375, 0.5, -0.3, 2} {
		m := MonthlyRate(annual)
		if got := math.Pow(1+m, 12); !approx(got, 1+annual, 1e-12) {
			t.Errorf("(1+MonthlyRate(%v))^12 = %v, want %v", annual, got, 1+annual)
		}
	}
}

func TestProject(t *testing.T) {
	p, err := Project(sampleConfig(), sampleSeries(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !p.HasStartingData || p.BalanceDate != day(2023, 1, 10) {
		t.Errorf("starting data = %v on %v", p.HasStartingData, p.BalanceDate)
	}
	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"StartingNetWorth", p.StartingNetWorth, "10000"},
		{"MonthlyYield", p.MonthlyYield, "79.74"},
		{"AnnualYield", p.AnnualYield, "1000"},
		{"MonthlyIncomePotential", p.MonthlyIncomePotential, "2079.74"},
		{"AnnualIncomePotential", p.AnnualIncomePotential, "25000"},
		{"AnnualTarget", p.AnnualTarget, "25000"},
		{"MonthlyTarget", p.MonthlyTarget, "2083.33"},
		{"ProjectedFinalNetWorth", p.ProjectedFinalNetWorth, "35000"},
	}
	for _, c := range checks {
		if !c.got.Equal(dec(c.want)) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
	if p.TargetOverridden {
		t.Error("TargetOverridden should be false")
	}

	if len(p.Months) != Months {
		t.Fatalf("months = %d, want %d", len(p.Months), Months)
	}

	feb := p.Months[0]
	if feb.Month != day(2023, 2, 1) {
		t.Errorf("first month = %v, want 2023-02", feb.Month)
	}
	if !feb.Target.Equal(dec("12083.33")) {
		t.Errorf("Feb target = %s, want 12083.33", feb.Target)
	}
	// Last value recorded in February.
	if !feb.Actual.Valid || !feb.Actual.Decimal.Equal(dec("11000")) {
		t.Errorf("Feb actual = %v, want 11000", feb.Actual)
	}
	if feb.Attainment == nil || !approx(*feb.Attainment, 11000/12083.33, 1e-9) {
		t.Errorf("Feb attainment = %v", feb.Attainment)
	}
	if feb.AttainmentOfAnnual == nil || !approx(*feb.AttainmentOfAnnual, 11000.0/35000, 1e-9) {
		t.Errorf("Feb attainment of annual = %v", feb.AttainmentOfAnnual)
	}
	if feb.ExpectedOfAnnual == nil || !approx(*feb.ExpectedOfAnnual, 12083.33/35000, 1e-9) {
		t.Errorf("Feb expected of annual = %v", feb.ExpectedOfAnnual)
	}

	apr := p.Months[2]
	if !apr.Target.Equal(dec("16249.99")) {
		t.Errorf("Apr target = %s, want 16249.99", apr.Target)
	}
	if last := p.Months[11]; last.Month != day(2024, 1, 1) {
		t.Errorf("last month = %v, want 2024-01", last.Month)
	}
}

func TestProject_MonthWithoutData(t *testing.T) {
	p, err := Project(sampleConfig(), sampleSeries(), 10)
	if err != nil {
		t.Fatal(err)
	}

	mar := p.Months[1]
	if mar.Month != day(2023, 3, 1) {
		t.Fatalf("month = %v, want 2023-03", mar.Month)
	}
	if mar.Actual.Valid {
		t.Errorf("March actual = %s, want null", mar.Actual.Decimal)
	}
	if mar.Attainment != nil || mar.AttainmentOfAnnual != nil {
		t.Error("March attainment should be null, not zero")
	}
	if mar.ExpectedOfAnnual == nil {
		t.Error("expected attainment does not depend on actuals")
	}
}

func TestProject_StartBeforeData(t *testing.T) {
	cfg := sampleConfig()
	cfg.StartDate = day(2022, 6, 1)

	p, err := Project(cfg, sampleSeries(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.HasStartingData {
		t.Error("HasStartingData should be false")
	}
	if !p.StartingNetWorth.IsZero() {
		t.Errorf("StartingNetWorth = %s, want 0", p.StartingNetWorth)
	}
	if !p.AnnualTarget.Equal(dec("24000")) {
		t.Errorf("AnnualTarget = %s, want 24000", p.AnnualTarget)
	}
	if !p.Months[0].Target.Equal(dec("2000")) {
		t.Errorf("first target = %s, want 2000", p.Months[0].Target)
	}
}

func TestProject_EmptySeries(t *testing.T) {
	p, err := Project(sampleConfig(), nil, 13.75)
	if err != nil {
		t.Fatal(err)
	}
	if p.HasStartingData {
		t.Error("HasStartingData should be false")
	}
	for _, m := range p.Months {
		if m.Actual.Valid {
			t.Errorf("%v actual should be null", m.Month)
		}
	}
}

func TestProject_TargetOverride(t *testing.T) {
	cfg := sampleConfig()
	target := dec("30000")
	cfg.TargetOverride = &target

	p, err := Project(cfg, sampleSeries(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if !p.TargetOverridden || !p.AnnualTarget.Equal(target) {
		t.Errorf("AnnualTarget = %s overridden=%v", p.AnnualTarget, p.TargetOverridden)
	}
	if !p.MonthlyTarget.Equal(dec("2500")) {
		t.Errorf("MonthlyTarget = %s, want 2500", p.MonthlyTarget)
	}
	if !p.ProjectedFinalNetWorth.Equal(dec("40000")) {
		t.Errorf("ProjectedFinalNetWorth = %s, want 40000", p.ProjectedFinalNetWorth)
	}
}

func TestProject_ZeroProjection(t *testing.T) {
	cfg := model.GoalConfig{StartDate: day(2022, 1, 1)}
	zero := decimal.Zero
	cfg.TargetOverride = &zero

	p, err := Project(cfg, sampleSeries(), 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range p.Months {
		if m.Attainment != nil || m.AttainmentOfAnnual != nil || m.ExpectedOfAnnual != nil {
			t.Fatalf("%v: ratios over a zero target should be null", m.Month)
		}
	}
}

func TestProject_InvalidInput(t *testing.T) {
	cfg := sampleConfig()
	neg := dec("-1")
	cfg.TargetOverride = &neg
	if _, err := Project(cfg, sampleSeries(), 10); !errors.Is(err, ErrNegativeTarget) {
		t.Errorf("err = %v, want ErrNegativeTarget", err)
	}

	if _, err := Project(sampleConfig(), sampleSeries(), -100); !errors.Is(err, ErrInvalidRate) {
		t.Errorf("err = %v, want ErrInvalidRate", err)
	}
}

func TestStartingBalance(t *testing.T) {
	series := sampleSeries()
	tests := []struct {
		d      civil.Date
		want   string
		wantOK bool
	}{
		{day(2023, 1, 9), "0", false},
		{day(2023, 1, 10), "10000", true},
		{day(2023, 3, 15), "11000", true},
		{day(2030, 1, 1), "13000", true},
	}
	for _, tt := range tests {
		b, ok := StartingBalance(series, tt.d)
		if ok != tt.wantOK || (ok && !b.Value.Equal(dec(tt.want))) {
			t.Errorf("StartingBalance(%v) = %s, %v", tt.d, b.Value, ok)
		}
	}
}
