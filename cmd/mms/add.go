package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/franz/manga-mirror/internal/store"
	"github.com/franz/manga-mirror/internal/util"
)

var addCmd = &cobra.Command{
	Use:   "add <slug>",
	Short: "Register a series and run its first sync",
	Long: `Register a series under its catalog slug, with optional metadata and
genres, then run an initial sync. Use --no-sync to only register.

Adding an already-known slug updates its metadata instead of creating a
duplicate.`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

var (
	addOpts syncFlags

	addTitle       string
	addDescription string
	addAuthor      string
	addCover       string
	addStatus      string
	addYear        int
	addGenres      []string
	addLocked      bool
	addNoSync      bool
)

func init() {
	addCmd.Flags().StringVar(&addTitle, "title", "", "display title (defaults to the slug)")
	addCmd.Flags().StringVar(&addDescription, "description", "", "series description")
	addCmd.Flags().StringVar(&addAuthor, "author", "", "author name")
	addCmd.Flags().StringVar(&addCover, "cover", "", "cover image URL")
	addCmd.Flags().StringVar(&addStatus, "status", "ongoing", "publication status (ongoing, completed, hiatus)")
	addCmd.Flags().IntVar(&addYear, "year", 0, "publication year")
	addCmd.Flags().StringSliceVar(&addGenres, "genres", nil, "comma-separated genre names")
	addCmd.Flags().BoolVar(&addLocked, "locked", false, "exclude this series from 'mms update' batch runs")
	addCmd.Flags().BoolVar(&addNoSync, "no-sync", false, "register only, skip the initial sync")

	addCmd.Flags().IntVar(&addOpts.maxChapters, "max-chapters", 0, "process at most N chapters in the initial sync (0 = all)")
	addCmd.Flags().IntVar(&addOpts.retryRounds, "retry-rounds", 3, "retry rounds for failing chapters")
	addCmd.Flags().DurationVar(&addOpts.delay, "delay", 2*time.Second, "delay between chapter fetches")

	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	slug := strings.Trim(strings.TrimSpace(args[0]), "/")
	if slug == "" {
		return fmt.Errorf("series slug cannot be empty")
	}

	rt, err := openRuntime(addOpts)
	if err != nil {
		return err
	}
	defer rt.Close()

	title := addTitle
	if title == "" {
		title = titleFromSlug(slug)
	}

	series := &store.Series{
		Slug:            slug,
		Title:           title,
		Description:     addDescription,
		Author:          addAuthor,
		CoverURL:        addCover,
		Status:          addStatus,
		PublicationYear: addYear,
		Locked:          addLocked,
	}
	if existing, err := rt.store.GetSeriesBySlug(slug); err != nil {
		return fmt.Errorf("failed to look up series: %w", err)
	} else if existing != nil {
		util.InfoLog("Series %s already known, updating metadata", slug)
	}

	if err := rt.store.UpsertSeries(series); err != nil {
		return fmt.Errorf("failed to save series: %w", err)
	}

	for _, name := range addGenres {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		genre, err := rt.store.EnsureGenre(name)
		if err != nil {
			return fmt.Errorf("failed to save genre %q: %w", name, err)
		}
		if err := rt.store.LinkSeriesGenre(series.ID, genre.ID); err != nil {
			return fmt.Errorf("failed to link genre %q: %w", name, err)
		}
	}

	util.SuccessLog("Registered %s (%s)", series.Title, series.Slug)

	if addNoSync {
		return nil
	}

	summary := rt.orch.SyncOne(ctx, series)
	return finish(summary)
}

// titleFromSlug turns "one-piece" into "One Piece"
func titleFromSlug(slug string) string {
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
