package components

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestTabIdxByKey(t *testing.T) {
	for i, tab := range Tabs {
		if got := TabIdxByKey(tab.Key); got != i {
			t.Errorf("TabIdxByKey(%q) = %d, want %d", tab.Key, got, i)
		}
	}
	if got := TabIdxByKey('z'); got != -1 {
		t.Errorf("TabIdxByKey('z') = %d, want -1", got)
	}
}

func TestRenderTabBarFitsWidth(t *testing.T) {
	total := len(Tabs) - 1 // separators
	for i, tab := range Tabs {
		total += TabVisualWidth(tab, i == 0)
	}

	bar := RenderTabBar(0, 120)
	if w := lipgloss.Width(bar); w != 120 {
		t.Fatalf("tab bar width = %d, want 120", w)
	}
	if total > 120 {
		t.Fatalf("tabs need %d columns, more than the bar", total)
	}
}

func TestRenderStatusBar(t *testing.T) {
	bar := RenderStatusBar(140, StatusInfo{Source: "extrato.csv", WindowMode: "rows", Rate: "13,75% a.a."})
	if w := lipgloss.Width(bar); w != 140 {
		t.Errorf("status bar width = %d, want 140", w)
	}
	narrow := RenderStatusBar(40, StatusInfo{Source: "extrato.csv"})
	if w := lipgloss.Width(narrow); w != 40 {
		t.Errorf("narrow status bar width = %d, want 40", w)
	}
}
