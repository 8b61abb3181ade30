package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/franz/manga-mirror/internal/store"
	"github.com/franz/manga-mirror/internal/util"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <slug>",
	Short: "Inspect a stored series and check its consistency",
	Long: `Print what is stored for a series: metadata, genres, per-chapter panel
counts and ledger status. The stored aggregates are recomputed from the
chapter rows; a mismatch or an incomplete chapter makes the command
exit non-zero so it can back a cron health check.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))

	db, err := store.Open(viper.GetString("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	slug := args[0]
	series, err := db.GetSeriesBySlug(slug)
	if err != nil {
		return fmt.Errorf("failed to look up series: %w", err)
	}
	if series == nil {
		return fmt.Errorf("%w: series %q", util.ErrNotFound, slug)
	}

	genres, err := db.GetSeriesGenres(series.ID)
	if err != nil {
		return fmt.Errorf("failed to load genres: %w", err)
	}
	chapters, err := db.GetSeriesChapters(series.ID)
	if err != nil {
		return fmt.Errorf("failed to load chapters: %w", err)
	}
	ledger, err := db.GetSyncRecords(series.ID)
	if err != nil {
		return fmt.Errorf("failed to load sync ledger: %w", err)
	}

	fmt.Printf("%s (%s)\n", series.Title, series.Slug)
	if series.Author != "" {
		fmt.Printf("  Author:   %s\n", series.Author)
	}
	fmt.Printf("  Status:   %s\n", series.Status)
	if series.Locked {
		fmt.Printf("  Locked:   yes (skipped by 'mms update')\n")
	}
	if len(genres) > 0 {
		names := make([]string, len(genres))
		for i, g := range genres {
			names[i] = g.Name
		}
		fmt.Printf("  Genres:   %v\n", names)
	}
	fmt.Printf("  Chapters: %s stored, %s panels total\n",
		humanize.Comma(int64(series.TotalChapters)), humanize.Comma(int64(series.TotalPanels)))

	problems := 0
	panelSum := 0
	for _, ch := range chapters {
		panelSum += ch.PersistedPanels

		marker := " "
		note := ""
		if ch.Status != store.StatusSuccess || ch.PersistedPanels != ch.ExpectedPanels {
			marker = "!"
			note = fmt.Sprintf("  (%s, %d/%d panels)", ch.Status, ch.PersistedPanels, ch.ExpectedPanels)
			problems++
		}
		if record, ok := ledger[ch.Number]; !ok {
			marker = "!"
			note = "  (missing ledger entry)"
			problems++
		} else if record.Status != ch.Status {
			marker = "!"
			note = fmt.Sprintf("  (ledger says %s, chapter says %s)", record.Status, ch.Status)
			problems++
		}

		fmt.Printf("  %s chapter %-8s %3d panels%s\n", marker, ch.Number, ch.PersistedPanels, note)
	}

	if series.TotalChapters != len(chapters) || series.TotalPanels != panelSum {
		problems++
		util.ErrorLog("Stored aggregates are stale: %d chapters / %d panels stored, %d / %d recomputed",
			series.TotalChapters, series.TotalPanels, len(chapters), panelSum)
	}

	if problems > 0 {
		return fmt.Errorf("%d consistency problems found", problems)
	}

	util.SuccessLog("%s is consistent", slug)
	return nil
}
