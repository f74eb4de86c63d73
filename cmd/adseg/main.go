// Command adseg analyses ad performance exports from the terminal.
//
// Usage:
//
//	adseg segment export.csv
//	adseg segment export.xlsx --json
//	adseg segment export.csv --xlsx report.xlsx
//	adseg history --limit 20
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ignite/adoptimizer/internal/app"
	"github.com/ignite/adoptimizer/internal/config"
	"github.com/ignite/adoptimizer/internal/pkg/logger"
)

var (
	configPath string
	verbose    bool
	owner      string
)

// loaded is set by the root PersistentPreRunE.
var loaded *config.Config

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "adseg",
		Short:         "Segment ads by cost efficiency and find wasted spend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromEnv(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if verbose {
				cfg.Log.Level = "debug"
			} else if cfg.Log.Level == "info" {
				// keep terminal output clean unless asked
				cfg.Log.Level = "warn"
			}
			if err := app.ConfigureLogging(cfg.Log); err != nil {
				return err
			}
			loaded = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "path to config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&owner, "owner", os.Getenv("USER"), "identity audits are recorded under")

	root.AddCommand(newSegmentCmd(), newHistoryCmd())
	return root
}

func buildApp(ctx context.Context) (*app.App, error) {
	return app.Build(ctx, loaded)
}

func main() {
	defer logger.Sync()
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
