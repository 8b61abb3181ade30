package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/franz/manga-mirror/internal/engine"
	"github.com/franz/manga-mirror/internal/media"
	"github.com/franz/manga-mirror/internal/report"
	"github.com/franz/manga-mirror/internal/source"
	"github.com/franz/manga-mirror/internal/store"
	"github.com/franz/manga-mirror/internal/util"
)

// runtime bundles everything a sync command needs
type runtime struct {
	store  *store.Store
	logger *report.EventLogger
	orch   *engine.Orchestrator
}

func (r *runtime) Close() {
	r.logger.Close()
	r.store.Close()
}

// syncFlags are the per-run knobs shared by sync and update
type syncFlags struct {
	force       bool
	maxChapters int
	from        float64
	to          float64
	retryRounds int
	delay       time.Duration
	seriesDelay time.Duration
}

// openRuntime wires the store, event logger, source client and media
// store into an orchestrator, driven by viper so flags, config file and
// MMS_ environment variables all work.
func openRuntime(flags syncFlags) (*runtime, error) {
	verbose := viper.GetBool("verbose")
	quiet := viper.GetBool("quiet")
	util.SetVerbose(verbose)
	util.SetQuiet(quiet)

	dbPath := viper.GetString("db")
	util.InfoLog("Opening database: %s", dbPath)

	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	logLevel := report.LevelInfo
	if quiet {
		logLevel = report.LevelWarning
	} else if verbose {
		logLevel = report.LevelDebug
	}

	logger, err := report.NewEventLogger("artifacts", logLevel)
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		logger = report.NullLogger()
	}
	if logger.Path() != "" {
		util.InfoLog("Event log: %s", logger.Path())
	}

	src := source.NewClient(viper.GetString("base_url"))

	var mediaStore engine.MediaStore
	if viper.GetBool("mirror_media") {
		disk, err := media.NewDiskStore(viper.GetString("media_root"))
		if err != nil {
			logger.Close()
			db.Close()
			return nil, fmt.Errorf("failed to set up media store: %w", err)
		}
		util.InfoLog("Mirroring panel images to: %s", disk.Root())
		mediaStore = disk
	}

	orch, err := engine.New(engine.Config{
		Store:        db,
		Src:          src,
		Media:        mediaStore,
		Force:        flags.force,
		MaxChapters:  flags.maxChapters,
		FromChapter:  flags.from,
		ToChapter:    flags.to,
		MaxRounds:    flags.retryRounds,
		FetchDelay:   flags.delay,
		SeriesDelay:  flags.seriesDelay,
		Logger:       logger,
		ShowProgress: !quiet,
	})
	if err != nil {
		logger.Close()
		db.Close()
		return nil, err
	}

	return &runtime{store: db, logger: logger, orch: orch}, nil
}

// finish prints the summary and turns failures into a command error so
// the process exits non-zero.
func finish(summary *report.Summary) error {
	if !viper.GetBool("quiet") {
		summary.Print()
	}
	if summary.HasFailures() {
		_, _, failed := summary.Counts()
		return fmt.Errorf("%d series failed, %d chapters still incomplete", failed, len(summary.ChapterFailures))
	}
	return nil
}
