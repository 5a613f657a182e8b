package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme colors (Flexoki Dark)
var (
	ColorBg        = lipgloss.Color("#100F0F")
	ColorSurface   = lipgloss.Color("#1C1B1A")
	ColorBorder    = lipgloss.Color("#282726")
	ColorTextDim   = lipgloss.Color("#575653")
	ColorTextMuted = lipgloss.Color("#6F6E69")
	ColorText      = lipgloss.Color("#FFFCF0")
	ColorAccent    = lipgloss.Color("#3AA99F")
	ColorGreen     = lipgloss.Color("#879A39")
	ColorOrange    = lipgloss.Color("#DA702C")
	ColorRed       = lipgloss.Color("#D14D41")
	ColorBlue      = lipgloss.Color("#4385BE")
	ColorPurple    = lipgloss.Color("#8B7EC8")
	ColorYellow    = lipgloss.Color("#D0A215")
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	valueStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	positiveStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	negativeStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	warnStyle = lipgloss.NewStyle().
			Foreground(ColorOrange)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorTextDim)
)

// Table represents a bordered text table for CLI output.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	Widths  []int  // optional column widths, auto-calculated if nil
	Left    []bool // optional per-column left alignment; the first column is always left
}

// RenderTitle renders a centered title bar in a bordered box.
func RenderTitle(title string) string {
	width := 55
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(width).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// RenderTable renders a bordered table with headers and rows.
func RenderTable(t Table) string {
	if len(t.Rows) == 0 && len(t.Headers) == 0 {
		return ""
	}

	// Calculate column widths
	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}

	widths := make([]int, numCols)
	if t.Widths != nil {
		copy(widths, t.Widths)
	} else {
		for i, h := range t.Headers {
			if w := lipgloss.Width(h); w > widths[i] {
				widths[i] = w
			}
		}
		for _, row := range t.Rows {
			if isSeparator(row) {
				continue
			}
			for i, cell := range row {
				if w := lipgloss.Width(cell); i < numCols && w > widths[i] {
					widths[i] = w
				}
			}
		}
	}

	var b strings.Builder

	// Title above table if present
	if t.Title != "" {
		b.WriteString("  ")
		b.WriteString(headerStyle.Render(t.Title))
		b.WriteString("\n")
	}

	// Top border
	b.WriteString(dimStyle.Render("╭"))
	for i, w := range widths {
		b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
		if i < numCols-1 {
			b.WriteString(dimStyle.Render("┬"))
		}
	}
	b.WriteString(dimStyle.Render("╮"))
	b.WriteString("\n")

	// Header row
	if len(t.Headers) > 0 {
		b.WriteString(dimStyle.Render("│"))
		for i, h := range t.Headers {
			padded := " " + padRight(h, widths[i]) + " "
			b.WriteString(headerStyle.Render(padded))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│"))
		b.WriteString("\n")

		// Header separator
		b.WriteString(dimStyle.Render("├"))
		for i, w := range widths {
			b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("┼"))
			}
		}
		b.WriteString(dimStyle.Render("┤"))
		b.WriteString("\n")
	}

	// Data rows
	for _, row := range t.Rows {
		if isSeparator(row) {
			// Separator row
			b.WriteString(dimStyle.Render("├"))
			for i, w := range widths {
				b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
				if i < numCols-1 {
					b.WriteString(dimStyle.Render("┼"))
				}
			}
			b.WriteString(dimStyle.Render("┤"))
			b.WriteString("\n")
			continue
		}

		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			w := widths[i]
			cell := ""
			if i < len(row) {
				cell = row[i]
			}

			// Right-align numeric columns
			var padded string
			if i == 0 || (i < len(t.Left) && t.Left[i]) {
				padded = " " + padRight(cell, w) + " "
			} else {
				padded = " " + padLeft(cell, w) + " "
			}
			b.WriteString(valueStyle.Render(padded))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render("│"))
			}
		}
		b.WriteString(dimStyle.Render("│"))
		b.WriteString("\n")
	}

	// Bottom border
	b.WriteString(dimStyle.Render("╰"))
	for i, w := range widths {
		b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
		if i < numCols-1 {
			b.WriteString(dimStyle.Render("┴"))
		}
	}
	b.WriteString(dimStyle.Render("╯"))
	b.WriteString("\n")

	return b.String()
}

func isSeparator(row []string) bool {
	return len(row) == 1 && row[0] == "---"
}

// padRight pads s with spaces to display width w.
func padRight(s string, w int) string {
	if n := w - lipgloss.Width(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

// padLeft pads s with leading spaces to display width w.
func padLeft(s string, w int) string {
	if n := w - lipgloss.Width(s); n > 0 {
		return strings.Repeat(" ", n) + s
	}
	return s
}

// RenderGauge renders a fraction (0-1, clamped) as a fixed-width bar with its percentage.
func RenderGauge(frac float64, width int) string {
	clamped := frac
	if clamped < 0 {
		clamped = 0
	}
	if clamped > 1 {
		clamped = 1
	}

	filled := int(clamped * float64(width))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	style := positiveStyle
	if frac < 1 {
		style = warnStyle
	}
	return fmt.Sprintf("[%s] %s", style.Render(bar), FormatPercent(frac))
}

// RenderSigned colors a formatted value by the sign of v.
func RenderSigned(text string, v float64) string {
	switch {
	case v > 0:
		return positiveStyle.Render(text)
	case v < 0:
		return negativeStyle.Render(text)
	default:
		return text
	}
}

// RenderWarning renders a warning line for stderr.
func RenderWarning(msg string) string {
	return warnStyle.Render("  ! " + msg)
}

// RenderMuted renders secondary text.
func RenderMuted(msg string) string {
	return mutedStyle.Render(msg)
}

// RenderSparkline generates a unicode block sparkline scaled between the
// series minimum and maximum.
func RenderSparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}

	blocks := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	span := hi - lo

	var b strings.Builder
	for _, v := range values {
		idx := 0
		if span > 0 {
			idx = int((v - lo) / span * float64(len(blocks)-1))
		}
		if idx >= len(blocks) {
			idx = len(blocks) - 1
		}
		if idx < 0 {
			idx = 0
		}
		b.WriteRune(blocks[idx])
	}

	return b.String()
}

// RenderHorizontalBar renders one bar of a horizontal bar chart followed by its label.
func RenderHorizontalBar(label string, value, maxValue float64, maxWidth int) string {
	if maxValue <= 0 {
		return fmt.Sprintf("  %s", label)
	}
	barLen := int(value / maxValue * float64(maxWidth))
	if barLen < 0 {
		barLen = 0
	}
	bar := strings.Repeat("█", barLen)
	return fmt.Sprintf("  %s %s", headerStyle.Render(bar), label)
}
