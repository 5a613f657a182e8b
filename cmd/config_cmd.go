// Package cmd implements the financas CLI commands.
package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/theirongolddev/financas/internal/cli"
	"github.com/theirongolddev/financas/internal/config"
	"github.com/theirongolddev/financas/internal/rates"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	fmt.Printf("  Config file: %s\n", config.Path())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	if file := config.GetFile(cfg); file != "" {
		fmt.Printf("    Export file: %s\n", file)
	} else {
		fmt.Println("    Export file: not set (use --file)")
	}
	fmt.Printf("    Log level:   %s\n", config.GetLogLevel(cfg))
	fmt.Println()

	fmt.Println("  [Stats]")
	windows := make([]string, len(cfg.Stats.Windows))
	for i, w := range cfg.Stats.Windows {
		windows[i] = strconv.Itoa(w)
	}
	fmt.Printf("    Windows:     %s\n", strings.Join(windows, ", "))
	fmt.Printf("    Window mode: %s\n", cfg.Stats.WindowMode)
	fmt.Println()

	fmt.Println("  [Rates]")
	endpoint := config.GetRateEndpoint(cfg)
	if endpoint == "" {
		endpoint = rates.DefaultEndpoint + " (default)"
	}
	fmt.Printf("    Endpoint:      %s\n", endpoint)
	fmt.Printf("    Timeout:       %s\n", cfg.Rates.RateTimeout())
	fmt.Printf("    Cache TTL:     %s\n", cfg.Rates.TTL())
	if cfg.Rates.DiskCache {
		fmt.Printf("    Disk cache:    %s\n", config.CachePath())
	} else {
		fmt.Println("    Disk cache:    disabled")
	}
	fallback, err := config.GetFallbackRate(cfg)
	switch {
	case err != nil:
		fmt.Printf("    Fallback rate: invalid (%v)\n", err)
	case fallback != nil:
		fmt.Printf("    Fallback rate: %s\n", cli.FormatRate(*fallback))
	default:
		fmt.Println("    Fallback rate: not set")
	}
	fmt.Println()

	fmt.Println("  [Server]")
	fmt.Printf("    Address: %s\n", cfg.Server.Addr)
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  Goal parameters are per run (--start, --net, ...) and never saved.")
	fmt.Println("  Run `financas setup` to reconfigure.")
	return nil
}
