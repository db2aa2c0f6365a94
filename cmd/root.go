// Package cmd defines the scraper's CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-scraper/internal/config"
	"github.com/JakeFAU/catalog-scraper/internal/logging"
)

// app carries what every subcommand needs once the root command has loaded
// configuration.
type app struct {
	cfgFile string
	cfg     config.Config
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	cmd := &cobra.Command{
		Use:   "catalog-scraper",
		Short: "Scrapes a book catalogue into a line log and an items table.",
		Long: `catalog-scraper crawls catalogue listing and product pages, turns each page
into typed records, validates them and writes every accepted record to the
configured sinks (JSON Lines file, SQLite and optionally Postgres).`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			a.cfg = cfg
			a.logger = logger
			return nil
		},

		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			// Sync on a console-backed logger reports EINVAL; nothing to do about it.
			_ = a.logger.Sync()
		},
	}

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "path to a YAML config file")

	cmd.AddCommand(newCrawlCmd(a))
	cmd.AddCommand(newExtractCmd(a))

	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "catalog-scraper: %v\n", err)
		return 1
	}
	return 0
}
