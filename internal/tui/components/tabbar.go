package components

import (
	"strings"

	"github.com/theirongolddev/financas/internal/tui/theme"

	"github.com/charmbracelet/lipgloss"
)

// Tab represents a single tab in the tab bar.
type Tab struct {
	Name   string
	Key    rune
	KeyPos int // byte offset of the shortcut letter in Name, -1 if absent
}

// Tabs defines all available tabs in display order.
var Tabs = []Tab{
	{Name: "Visão geral", Key: 'v', KeyPos: 0},
	{Name: "Transações", Key: 't', KeyPos: 0},
	{Name: "Instituições", Key: 'i', KeyPos: 0},
	{Name: "Estatísticas", Key: 'e', KeyPos: 0},
	{Name: "Meta", Key: 'm', KeyPos: 0},
	{Name: "Distribuição", Key: 'd', KeyPos: 0},
}

// TabVisualWidth is the rendered width of a tab, including padding and the
// "[k]" shortcut brackets shown on inactive tabs.
func TabVisualWidth(tab Tab, active bool) int {
	w := lipgloss.Width(tab.Name) + 2
	if !active {
		w += 2
		if tab.KeyPos < 0 {
			w++
		}
	}
	return w
}

// RenderTabBar renders a single-row tab bar with the given active index.
func RenderTabBar(activeIdx int, width int) string {
	t := theme.Active

	activeStyle := lipgloss.NewStyle().
		Foreground(t.AccentBright).
		Background(t.SurfaceHover).
		Bold(true).
		Padding(0, 1)
	inactiveStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	keyStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	dimKeyStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	padStyle := lipgloss.NewStyle().Background(t.Surface)
	sepStyle := lipgloss.NewStyle().Foreground(t.Border).Background(t.Surface)

	parts := make([]string, len(Tabs))
	for i, tab := range Tabs {
		if i == activeIdx {
			parts[i] = activeStyle.Render(tab.Name)
			continue
		}
		var label string
		if tab.KeyPos >= 0 && tab.KeyPos < len(tab.Name) {
			before := tab.Name[:tab.KeyPos]
			key := string(tab.Name[tab.KeyPos])
			after := tab.Name[tab.KeyPos+1:]
			label = inactiveStyle.Render(before) +
				dimKeyStyle.Render("[") + keyStyle.Render(key) + dimKeyStyle.Render("]") +
				inactiveStyle.Render(after)
		} else {
			label = inactiveStyle.Render(tab.Name) +
				dimKeyStyle.Render("[") + keyStyle.Render(string(tab.Key)) + dimKeyStyle.Render("]")
		}
		parts[i] = padStyle.Render(" ") + label + padStyle.Render(" ")
	}

	bar := strings.Join(parts, sepStyle.Render("│"))
	return lipgloss.NewStyle().Background(t.Surface).Width(width).Render(bar)
}

// TabIdxByKey returns the tab index for a given key press, or -1.
func TabIdxByKey(key rune) int {
	for i, tab := range Tabs {
		if tab.Key == key {
			return i
		}
	}
	return -1
}
