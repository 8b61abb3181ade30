package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Sync every stored series",
	Long: `Run an incremental sync over every series in the database, in slug
order, with a politeness delay between series. Series that are already
up to date cost one catalog request and nothing else.`,
	RunE: runUpdate,
}

var updateOpts syncFlags

func init() {
	updateCmd.Flags().BoolVar(&updateOpts.force, "force", false, "re-process every chapter, ignoring the ledger")
	updateCmd.Flags().IntVar(&updateOpts.maxChapters, "max-chapters", 0, "process at most N chapters per series (0 = all)")
	updateCmd.Flags().IntVar(&updateOpts.retryRounds, "retry-rounds", 3, "retry rounds for failing chapters")
	updateCmd.Flags().DurationVar(&updateOpts.delay, "delay", 2*time.Second, "delay between chapter fetches")
	updateCmd.Flags().DurationVar(&updateOpts.seriesDelay, "series-delay", 5*time.Second, "delay between series")

	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	rt, err := openRuntime(updateOpts)
	if err != nil {
		return err
	}
	defer rt.Close()

	summary, err := rt.orch.SyncAll(ctx)
	if err != nil {
		return fmt.Errorf("update failed: %w", err)
	}

	return finish(summary)
}
