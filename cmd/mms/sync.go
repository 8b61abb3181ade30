package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/franz/manga-mirror/internal/util"
)

var syncCmd = &cobra.Command{
	Use:   "sync <slug>",
	Short: "Sync one series with the source catalog",
	Long: `Sync a single series. The source chapter list is diffed against the
sync ledger, and only chapters that are missing, failed, or incomplete
get fetched. Chapter failures are retried in bounded rounds; anything
still failing after the final round is reported and picked up again on
the next run.

The series must already be known (see 'mms add').`,
	Args: cobra.ExactArgs(1),
	RunE: runSync,
}

var syncOpts syncFlags

func init() {
	syncCmd.Flags().BoolVar(&syncOpts.force, "force", false, "re-process every chapter, ignoring the ledger")
	syncCmd.Flags().IntVar(&syncOpts.maxChapters, "max-chapters", 0, "process at most N chapters this run (0 = all)")
	syncCmd.Flags().Float64Var(&syncOpts.from, "from", 0, "skip chapters below this number")
	syncCmd.Flags().Float64Var(&syncOpts.to, "to", 0, "skip chapters above this number")
	syncCmd.Flags().IntVar(&syncOpts.retryRounds, "retry-rounds", 3, "retry rounds for failing chapters")
	syncCmd.Flags().DurationVar(&syncOpts.delay, "delay", 2*time.Second, "delay between chapter fetches")

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	slug := args[0]

	rt, err := openRuntime(syncOpts)
	if err != nil {
		return err
	}
	defer rt.Close()

	series, err := rt.store.GetSeriesBySlug(slug)
	if err != nil {
		return fmt.Errorf("failed to look up series: %w", err)
	}
	if series == nil {
		return fmt.Errorf("%w: series %q (add it first with 'mms add %s')", util.ErrNotFound, slug, slug)
	}

	util.InfoLog("Syncing %s", series.Title)
	summary := rt.orch.SyncOne(ctx, series)

	return finish(summary)
}
