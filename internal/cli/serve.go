package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the indexing workers",
	Long: `Run the search and indexing HTTP API.

The engine is opened at startup; if it is not reachable yet the server still
starts and /ready reports it until the engine comes up.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	if err := a.engines.Init(ctx); err != nil {
		logger.Warn("index engine not available yet", "backend", a.engines.Backend(), "error", err)
	}
	if err := a.indexer.Start(ctx); err != nil {
		return fmt.Errorf("start indexer: %w", err)
	}

	logger.Info("sercha-wiki starting",
		"version", Version,
		"backend", a.engines.Backend(),
		"redis", a.redis != nil,
	)
	return a.newServer().Start()
}
