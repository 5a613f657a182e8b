package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/theirongolddev/financas/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Sparkline renders a unicode sparkline scaled between the series minimum
// and maximum, so balances far from zero still show their movement.
func Sparkline(values []float64, color lipgloss.Color) string {
	if len(values) == 0 {
		return ""
	}
	t := theme.Active

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo

	style := lipgloss.NewStyle().Foreground(color).Background(t.Surface)

	var buf strings.Builder
	buf.Grow(len(values) * 3)
	for _, v := range values {
		idx := 0
		if span > 0 {
			idx = int((v - lo) / span * float64(len(blocks)-1))
		}
		idx = max(0, min(idx, len(blocks)-1))
		buf.WriteRune(blocks[idx])
	}

	return style.Render(buf.String())
}

// BarChart renders balances as vertical bars over a zero baseline, most recent
// on the right. Negative values are drawn as empty bars. When the bars do not
// fit, the oldest are dropped.
func BarChart(values []float64, labels []string, color lipgloss.Color, width, height int) string {
	if len(values) == 0 {
		return ""
	}
	clamped := make([]float64, len(values))
	for i, v := range values {
		clamped[i] = math.Max(v, 0)
	}
	if width < 15 || height < 3 {
		return Sparkline(clamped, color)
	}
	if len(labels) != len(values) {
		labels = nil
	}

	t := theme.Active
	axis := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	bar := lipgloss.NewStyle().Foreground(color).Background(t.Surface)
	blank := lipgloss.NewStyle().Background(t.Surface)

	peak := 0.0
	for _, v := range clamped {
		peak = math.Max(peak, v)
	}
	ceiling := niceCeiling(peak)

	top, mid := formatChartLabel(ceiling), formatChartLabel(ceiling/2)
	labelW := max(len(top), len(mid), 1) + 1

	// Bars are 2-4 cells wide with a one-cell gap.
	plotW := width - labelW - 1
	barW := 4
	for barW > 2 && len(clamped)*(barW+1)-1 > plotW {
		barW--
	}
	if fit := (plotW + 1) / (barW + 1); len(clamped) > fit {
		drop := len(clamped) - max(fit, 1)
		clamped = clamped[drop:]
		if labels != nil {
			labels = labels[drop:]
		}
	}
	plotLen := len(clamped)*(barW+1) - 1

	// Each row holds eight sub-cell levels.
	eighths := make([]int, len(clamped))
	for i, v := range clamped {
		eighths[i] = int(math.Round(v / ceiling * float64(height*8)))
	}
	blocks := []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	var b strings.Builder
	for row := height; row >= 1; row-- {
		var tick string
		switch row {
		case height:
			tick = top
		case (height + 1) / 2:
			tick = mid
		}
		b.WriteString(axis.Render(fmt.Sprintf("%*s│", labelW, tick)))

		for i, e := range eighths {
			if i > 0 {
				b.WriteString(blank.Render(" "))
			}
			level := min(max(e-(row-1)*8, 0), 8)
			if level == 0 {
				b.WriteString(blank.Render(strings.Repeat(" ", barW)))
				continue
			}
			b.WriteString(bar.Render(strings.Repeat(string(blocks[level]), barW)))
		}
		b.WriteString("\n")
	}
	b.WriteString(axis.Render(fmt.Sprintf("%*s└%s", labelW, "0", strings.Repeat("─", plotLen))))

	if labels != nil {
		b.WriteString("\n")
		b.WriteString(blank.Render(strings.Repeat(" ", labelW+1)))
		b.WriteString(axis.Render(xAxisLabels(labels, barW, plotLen)))
	}
	return b.String()
}

// xAxisLabels places labels under their bars, stepping back from the newest
// so labels never touch. The row may run past the plot by one label.
func xAxisLabels(labels []string, barW, plotLen int) string {
	labelW := 0
	for _, l := range labels {
		labelW = max(labelW, len([]rune(l)))
	}
	buf := []rune(strings.Repeat(" ", plotLen+labelW))
	stride := max(1, (labelW+barW)/(barW+1))

	for i := len(labels) - 1; i >= 0; i -= stride {
		copy(buf[i*(barW+1):], []rune(labels[i]))
	}
	return strings.TrimRight(string(buf), " ")
}

// niceCeiling rounds v up to 1, 2, 2.5 or 5 times a power of ten.
func niceCeiling(v float64) float64 {
	if v <= 0 {
		return 1
	}
	base := math.Pow(10, math.Floor(math.Log10(v)))
	for _, m := range []float64{1, 2, 2.5, 5, 10} {
		if v <= m*base {
			return m * base
		}
	}
	return 10 * base
}

// formatChartLabel renders an axis value in compact pt-BR form: 1,5 mil, 2 mi.
func formatChartLabel(v float64) string {
	compact := func(x float64, unit string) string {
		if x == math.Trunc(x) {
			return fmt.Sprintf("%.0f%s", x, unit)
		}
		return strings.Replace(fmt.Sprintf("%.1f%s", x, unit), ".", ",", 1)
	}
	switch {
	case v >= 1e9:
		return compact(v/1e9, "bi")
	case v >= 1e6:
		return compact(v/1e6, "mi")
	case v >= 1e3:
		return compact(v/1e3, "mil")
	case v >= 1:
		return fmt.Sprintf("%.0f", v)
	default:
		return strings.Replace(fmt.Sprintf("%.2f", v), ".", ",", 1)
	}
}
