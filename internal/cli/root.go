// Package cli provides the command-line interface for sercha-wiki.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-wiki/internal/config"
)

var (
	// Version is set at build time.
	Version = "dev"

	// Global flags
	cfgFile string

	// Loaded by PersistentPreRunE
	cfg       *config.Config
	logger    *slog.Logger
	closeLogs func() error
)

// commands that run without configuration
var standalone = map[string]bool{
	"help":     true,
	"version":  true,
	"hash-key": true,
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sercha-wiki",
	Short: "Multilingual wiki search service",
	Long: `Sercha Wiki indexes wiki pages, attachments and objects into a search
engine (embedded bleve or Vespa) and answers queries with results filtered
by what the requesting user may view.

Configuration is read from a YAML file (--config) and overridden by
environment variables such as DATABASE_URL, SEARCH_BACKEND and JWT_SECRET.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if standalone[cmd.Name()] {
			return nil
		}

		loaded, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		level, err := config.ParseLevel(loaded.Log.Level)
		if err != nil {
			return err
		}

		cfg = loaded
		logger, closeLogs = config.SetupLogger(cfg.Log.File, level)
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if closeLogs != nil {
			if err := closeLogs(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	rootCmd.Version = Version
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to a YAML config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(hashKeyCmd)
	rootCmd.AddCommand(issueTokenCmd)
}
