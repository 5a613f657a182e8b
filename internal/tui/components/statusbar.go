package components

import (
	"strings"

	"github.com/theirongolddev/financas/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// StatusInfo is what the status bar shows on its right side.
type StatusInfo struct {
	Source     string // export file or directory
	WindowMode string
	Rate       string // formatted reference rate, empty when unknown
	Refreshing bool
}

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, info StatusInfo) string {
	t := theme.Active

	style := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface).
		Width(width)
	accent := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)

	left := " [?]ajuda  [g]meta  [w]janela  [r]recarregar  [q]sair"

	var right []string
	if info.Refreshing {
		right = append(right, accent.Render("recarregando…"))
	}
	if info.Rate != "" {
		right = append(right, "SELIC "+info.Rate)
	}
	if info.WindowMode != "" {
		right = append(right, "janela: "+info.WindowMode)
	}
	if info.Source != "" {
		right = append(right, info.Source)
	}
	rightStr := strings.Join(right, " │ ") + " "

	padding := width - lipgloss.Width(left) - lipgloss.Width(rightStr)
	if padding < 1 {
		// Drop the right side before truncating the key hints.
		return style.MaxHeight(1).Render(left)
	}
	return style.Render(left + strings.Repeat(" ", padding) + rightStr)
}
