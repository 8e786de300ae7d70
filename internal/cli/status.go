package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-wiki/internal/core/domain"
	"github.com/custodia-labs/sercha-wiki/internal/core/ports/driving"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Show indexing jobs and engine state",
	Long: `List indexing jobs with their progress, or inspect one job by ID.

Examples:
  sercha-wiki status
  sercha-wiki status 3f2b9c1e-...
  sercha-wiki status --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print jobs as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		return showJob(ctx, out, a.indexing, args[0])
	}
	if statusJSON {
		data, err := a.indexing.StatusJSON(ctx)
		if err != nil {
			return fmt.Errorf("list jobs: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	printEngine(ctx, out, a)
	return listJobs(ctx, out, a.indexing)
}

func printEngine(ctx context.Context, w io.Writer, a *app) {
	fmt.Fprintf(w, "Engine: %s\n", a.engines.Backend())
	engine, err := a.engines.Engine(ctx)
	if err != nil {
		fmt.Fprintf(w, "  unavailable: %v\n\n", err)
		return
	}
	count, err := engine.Count(ctx)
	if err != nil {
		fmt.Fprintf(w, "  unavailable: %v\n\n", err)
		return
	}
	fmt.Fprintf(w, "  documents: %d\n\n", count)
}

func listJobs(ctx context.Context, w io.Writer, indexing driving.IndexingService) error {
	jobs, err := indexing.Status(ctx)
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}
	if len(jobs) == 0 {
		fmt.Fprintln(w, "No jobs found")
		return nil
	}

	fmt.Fprintf(w, "%-36s %-10s %-10s %-14s %s\n", "ID", "NAME", "STATUS", "PROGRESS", "CREATED")
	fmt.Fprintln(w, "------------------------------------------------------------------------------------------")
	for _, job := range jobs {
		progress := fmt.Sprintf("%d/%d", job.IndexedCount, job.TotalCount)
		fmt.Fprintf(w, "%-36s %-10s %-10s %-14s %s\n",
			job.JobID, job.Name, job.Status, progress, job.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func showJob(ctx context.Context, w io.Writer, indexing driving.IndexingService, id string) error {
	job, err := indexing.JobStatus(ctx, id)
	if err != nil {
		return fmt.Errorf("get job: %w", err)
	}

	fmt.Fprintf(w, "Job: %s\n", job.JobID)
	fmt.Fprintf(w, "  Name: %s\n", job.Name)
	fmt.Fprintf(w, "  Status: %s\n", job.Status)
	fmt.Fprintf(w, "  Progress: %.1f%% (%d indexed, %d skipped, %d total)\n",
		job.Percent(), job.IndexedCount, job.SkippedCount, job.TotalCount)
	if job.Status == domain.JobStatusRunning {
		fmt.Fprintf(w, "  Speed: %.1f units/s\n", job.Speed)
		fmt.Fprintf(w, "  ETA: %s\n", job.EstimatedCompletion)
	}
	fmt.Fprintf(w, "  Elapsed: %s\n", job.Elapsed)
	fmt.Fprintf(w, "  Created: %s\n", job.CreatedAt.Format(time.RFC3339))
	if job.CompletedAt != nil {
		fmt.Fprintf(w, "  Completed: %s\n", job.CompletedAt.Format(time.RFC3339))
	}
	if job.Error != "" {
		fmt.Fprintf(w, "  Error: %s\n", job.Error)
	}
	return nil
}
