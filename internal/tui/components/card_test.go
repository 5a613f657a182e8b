package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/theirongolddev/financas/internal/tui/theme"
)

func init() {
	// Force TrueColor output so ANSI codes are generated in tests
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestLayoutRow(t *testing.T) {
	tests := []struct {
		total, n int
		want     []int
	}{
		{10, 3, []int{4, 3, 3}},
		{9, 3, []int{3, 3, 3}},
		{5, 0, nil},
	}
	for _, tt := range tests {
		got := LayoutRow(tt.total, tt.n)
		if len(got) != len(tt.want) {
			t.Fatalf("LayoutRow(%d, %d) = %v, want %v", tt.total, tt.n, got, tt.want)
		}
		sum := 0
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("LayoutRow(%d, %d)[%d] = %d, want %d", tt.total, tt.n, i, got[i], tt.want[i])
			}
			sum += got[i]
		}
		if tt.n > 0 && sum != tt.total {
			t.Errorf("LayoutRow(%d, %d) sums to %d", tt.total, tt.n, sum)
		}
	}
}

func TestCardRowBackgroundFill(t *testing.T) {
	theme.SetActive("flexoki-dark")

	shortCard := ContentCard("Curto", "Conteúdo", 22)
	tallCard := ContentCard("Alto", "Linha 1\nLinha 2\nLinha 3\nLinha 4\nLinha 5", 22)

	shortLines := len(strings.Split(shortCard, "\n"))
	tallLines := len(strings.Split(tallCard, "\n"))
	if shortLines >= tallLines {
		t.Fatal("short card should be shorter than tall card")
	}

	joined := CardRow([]string{tallCard, shortCard})
	lines := strings.Split(joined, "\n")
	if len(lines) != tallLines {
		t.Errorf("joined height = %d, want %d", len(lines), tallLines)
	}

	// Padding below the short card must still carry background styling.
	for i := shortLines; i < len(lines); i++ {
		if !strings.Contains(lines[i], "\x1b[") {
			t.Errorf("line %d has no ANSI codes", i)
		}
	}
}

func TestMetricCardRowWidth(t *testing.T) {
	theme.SetActive("flexoki-dark")

	row := MetricCardRow([]Metric{
		{Label: "Patrimônio", Value: "R$ 12.000,00", Delta: "+R$ 500,00"},
		{Label: "Taxa", Value: "13,75% a.a."},
		{Label: "Meta", Value: "80,00%"},
	}, 90)

	for i, line := range strings.Split(row, "\n") {
		if w := lipgloss.Width(line); w != 90 {
			t.Errorf("line %d width = %d, want 90", i, w)
		}
	}
}
