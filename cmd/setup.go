package cmd

import (
	"errors"
	"fmt"

	"github.com/theirongolddev/financas/internal/config"
	"github.com/theirongolddev/financas/internal/tui"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "First-time setup wizard",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	values := tui.NewSetupValues(cfg)

	if err := tui.NewSetupForm(values).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("  Setup cancelled, nothing saved.")
			return nil
		}
		return fmt.Errorf("setup form: %w", err)
	}

	if err := values.Apply(&cfg); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.Path())
	fmt.Println("  Run `financas` for a summary or `financas tui` for the dashboard.")
	return nil
}
