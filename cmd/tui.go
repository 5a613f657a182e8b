package cmd

import (
	"fmt"
	"time"

	"github.com/theirongolddev/financas/internal/config"
	"github.com/theirongolddev/financas/internal/tui"
	"github.com/theirongolddev/financas/internal/tui/theme"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

var flagTUIRefresh time.Duration

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive TUI dashboard",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().DurationVar(&flagTUIRefresh, "refresh", 0, "Re-read the export on this interval (0 disables)")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(_ *cobra.Command, _ []string) error {
	path, err := exportPath()
	if err != nil {
		return err
	}

	opts := tui.Options{Path: path, Institution: flagInstitution, RefreshInterval: flagTUIRefresh}
	if opts.Stats, err = statsOptions(); err != nil {
		return err
	}
	if opts.Goal, err = goalConfig(); err != nil {
		return err
	}
	if opts.Since, err = parseOptionalDate(flagSince, "--since"); err != nil {
		return err
	}
	if opts.Until, err = parseOptionalDate(flagUntil, "--until"); err != nil {
		return err
	}
	if opts.FallbackRate, err = config.GetFallbackRate(cfg); err != nil {
		return err
	}

	provider, closeFn := openProvider()
	defer closeFn()
	opts.Rates = provider

	theme.SetActive(cfg.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	p := tea.NewProgram(tui.NewApp(opts), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
