package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driving"
)

var (
	reindexWiki  string
	reindexSpace string
	reindexPlain bool
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the index for the installation, a wiki or a space",
	Long: `Rebuild the index and wait for the job to finish.

Without flags every wiki is rebuilt; only one replica may run a full rebuild
at a time. With --wiki (and optionally --space) only that scope is indexed.

Examples:
  sercha-wiki reindex
  sercha-wiki reindex --wiki xwiki --space Sandbox`,
	Args: cobra.NoArgs,
	RunE: runReindex,
}

func init() {
	reindexCmd.Flags().StringVar(&reindexWiki, "wiki", "", "wiki to reindex")
	reindexCmd.Flags().StringVar(&reindexSpace, "space", "", "space to reindex (requires --wiki)")
	reindexCmd.Flags().BoolVar(&reindexPlain, "plain", false, "print progress lines instead of the interactive display")
}

func runReindex(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	if err := a.indexer.Start(ctx); err != nil {
		return fmt.Errorf("start indexer: %w", err)
	}

	jobID, err := submitReindex(ctx, a.indexing, reindexWiki, reindexSpace)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Job %s submitted\n", jobID)

	if !reindexPlain && term.IsTerminal(int(os.Stdout.Fd())) {
		return runJobProgress(ctx, a.indexing, jobID)
	}
	return waitForJob(ctx, cmd.OutOrStdout(), a.indexing, jobID, pollInterval)
}

func submitReindex(ctx context.Context, indexing driving.IndexingService, wiki, space string) (string, error) {
	if wiki == "" && space == "" {
		return indexing.IndexAll(ctx)
	}
	scope := domain.Scope{Wiki: wiki, Space: space}
	if err := scope.Validate(); err != nil {
		return "", err
	}
	return indexing.IndexUnitsInScope(ctx, scope, nil)
}
