package components

import (
	"fmt"
	"strings"

	"github.com/theirongolddev/financas/internal/cli"
	"github.com/theirongolddev/financas/internal/tui/theme"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// ProgressBar renders the loading progress bar with its percentage.
func ProgressBar(pct float64, width int) string {
	t := theme.Active
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	var barColor lipgloss.Color
	switch {
	case pct >= 0.8:
		barColor = t.AccentBright
	case pct >= 0.5:
		barColor = t.Accent
	default:
		barColor = t.Cyan
	}

	filledStyle := lipgloss.NewStyle().Foreground(barColor).Background(t.Surface)
	emptyStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	pctStyle := lipgloss.NewStyle().Foreground(barColor).Background(t.Surface).Bold(true)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)

	var b strings.Builder
	b.WriteString(filledStyle.Render(strings.Repeat("█", filled)))
	b.WriteString(emptyStyle.Render(strings.Repeat("░", width-filled)))

	return b.String() + spaceStyle.Render(" ") + pctStyle.Render(fmt.Sprintf("%.0f%%", pct*100))
}

// GoalBar renders a labeled attainment bar. frac is actual/target; the bar is
// clamped to full but the percentage shows the real value. A nil frac renders
// an empty bar with the missing marker.
func GoalBar(label string, frac *float64, labelW, barWidth int) string {
	t := theme.Active

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	spaceStyle := lipgloss.NewStyle().Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	head := labelStyle.Render(fmt.Sprintf("%-*s", labelW, label)) + spaceStyle.Render(" ")
	if frac == nil {
		return head + dimStyle.Render(strings.Repeat("░", barWidth)) + spaceStyle.Render(" ") + dimStyle.Render(cli.Missing)
	}

	shown := min(max(*frac, 0), 1)
	color := t.Attainment(*frac)

	bar := progress.New(
		progress.WithSolidFill(string(color)),
		progress.WithWidth(barWidth),
		progress.WithoutPercentage(),
	)
	bar.EmptyColor = string(t.TextDim)

	pctStyle := lipgloss.NewStyle().Foreground(color).Background(t.Surface).Bold(true)
	return head + bar.ViewAs(shown) + spaceStyle.Render(" ") + pctStyle.Render(cli.FormatPercent(*frac))
}
