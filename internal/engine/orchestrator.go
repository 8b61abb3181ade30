package engine

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/franz/manga-mirror/internal/report"
	"github.com/franz/manga-mirror/internal/store"
	"github.com/franz/manga-mirror/internal/util"
)

// Config holds orchestrator configuration. One Config is built at
// process start and passed down; components hold no global state.
type Config struct {
	Store *store.Store
	Src   Source
	Media MediaStore // nil unless media mirroring is enabled

	Force       bool    // re-process every available chapter
	MaxChapters int     // cap per run, 0 = unbounded
	FromChapter float64 // lowest chapter number to process, 0 = open
	ToChapter   float64 // highest chapter number to process, 0 = open

	MaxRounds   int           // retry rounds, default 3
	FetchDelay  time.Duration // politeness delay between chapter fetches
	SeriesDelay time.Duration // politeness delay between series in a batch

	Logger       *report.EventLogger
	ShowProgress bool
}

// Orchestrator drives the sync of one or many series: diff the catalog,
// fetch and upsert each missing chapter, keep the series aggregates
// fresh, and retry what failed. Execution is strictly sequential; the
// store is treated as a single-writer resource.
type Orchestrator struct {
	cfg      Config
	upsert   *Upserter
	mirrored int64

	// panelCounts holds the latest persisted count per chapter, so a
	// chapter that goes partial and then succeeds on a retry round is
	// counted once, at its final value.
	panelCounts map[string]int
}

// New creates an Orchestrator
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil || cfg.Src == nil {
		return nil, fmt.Errorf("%w: store and source are required", util.ErrInvalidConfig)
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = 3
	}

	o := &Orchestrator{cfg: cfg, panelCounts: make(map[string]int)}

	var resolve PanelResolver
	if cfg.Media != nil {
		resolve = o.mirrorPanel
	}
	o.upsert = NewUpserter(cfg.Store, resolve)

	return o, nil
}

// SeriesResult reports the outcome of syncing one series
type SeriesResult struct {
	Slug        string
	Status      string // report.SeriesUpToDate / SeriesUpdated / SeriesFailed
	Reason      string
	NewChapters int
	Failures    []FailedItem
}

// SyncSeries brings one series up to date with the source catalog.
// Per-chapter errors never abort the series; they are collected and
// re-driven by the retry controller. Only a catalog-level failure
// (unreachable page, empty chapter list) fails the series itself.
func (o *Orchestrator) SyncSeries(ctx context.Context, series *store.Series) *SeriesResult {
	result := &SeriesResult{Slug: series.Slug, Status: report.SeriesUpdated}

	util.InfoLog("Processing %s (%s)", series.Title, series.Slug)

	ledger, err := o.cfg.Store.GetSyncRecords(series.ID)
	if err != nil {
		return o.failSeries(result, fmt.Sprintf("ledger read failed: %v", err))
	}

	available, err := o.cfg.Src.ListChapters(ctx, series.Slug)
	if err != nil {
		return o.failSeries(result, fmt.Sprintf("chapter list fetch failed: %v", err))
	}
	o.cfg.Logger.Log(report.Event{
		Level: report.LevelInfo, Event: report.EventList,
		Series: series.Slug, Panels: len(available),
	})

	items, err := Diff(ledger, available, o.cfg.Force)
	if err != nil {
		if errors.Is(err, util.ErrSourceEmpty) {
			// distinct from "nothing new": the scrape itself likely broke
			return o.failSeries(result, "source returned no chapters")
		}
		return o.failSeries(result, err.Error())
	}

	items = o.clampRange(items)

	o.cfg.Logger.Log(report.Event{
		Level: report.LevelInfo, Event: report.EventDiff,
		Series: series.Slug, Panels: len(items),
	})

	if len(items) == 0 {
		util.SuccessLog("%s: all chapters up to date", series.Slug)
		result.Status = report.SeriesUpToDate
		return result
	}

	util.InfoLog("%s: %d new or incomplete chapters", series.Slug, len(items))

	var bar *progressbar.ProgressBar
	if o.cfg.ShowProgress {
		bar = progressbar.NewOptions(len(items),
			progressbar.OptionSetDescription(series.Slug),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}

	seen := make(map[string]bool)
	attempt := func(ctx context.Context, item WorkItem) error {
		err := o.processChapter(ctx, series, item)
		if bar != nil && !seen[item.Number.String()] {
			seen[item.Number.String()] = true
			_ = bar.Add(1)
		}
		return err
	}

	controller := &RetryController{MaxRounds: o.cfg.MaxRounds, Delay: o.cfg.FetchDelay}
	succeeded, failed := controller.Run(ctx, items, attempt)
	if bar != nil {
		_ = bar.Finish()
	}

	result.NewChapters = succeeded
	result.Failures = failed

	if succeeded == 0 && len(failed) > 0 {
		// every chapter failed; that is not "updated", and it is not a
		// catalog-level abort either, so it gets its own reason
		result.Status = report.SeriesFailed
		result.Reason = fmt.Sprintf("all %d chapters failed", len(failed))
	}
	util.InfoLog("%s: %d chapters synced, %d failed", series.Slug, succeeded, len(failed))

	return result
}

// SyncAll runs SyncSeries over every stored series with a politeness
// delay between series, and returns the aggregated run summary.
func (o *Orchestrator) SyncAll(ctx context.Context) (*report.Summary, error) {
	start := time.Now()
	summary := &report.Summary{StartedAt: start, EventLogPath: o.cfg.Logger.Path()}

	all, err := o.cfg.Store.GetAllSeries()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrPersistence, err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: no series in database", util.ErrInvalidConfig)
	}

	active := make([]*store.Series, 0, len(all))
	for _, series := range all {
		if series.Locked {
			util.InfoLog("Skipping %s (locked)", series.Slug)
			o.cfg.Logger.Log(report.Event{
				Level: report.LevelInfo, Event: report.EventSkip,
				Series: series.Slug, Reason: "locked",
			})
			continue
		}
		active = append(active, series)
	}
	if len(active) == 0 {
		return nil, fmt.Errorf("%w: every series is locked", util.ErrInvalidConfig)
	}

	util.InfoLog("Will process %d series", len(active))

	for i, series := range active {
		if ctx.Err() != nil {
			break
		}

		result := o.SyncSeries(ctx, series)
		o.record(summary, result)

		if o.cfg.SeriesDelay > 0 && i < len(active)-1 {
			time.Sleep(o.cfg.SeriesDelay)
		}
	}

	summary.Duration = time.Since(start)
	summary.PanelsWritten = o.panelsWritten()
	summary.BytesMirrored = o.mirrored
	return summary, nil
}

// SyncOne runs a single-series sync and returns its summary
func (o *Orchestrator) SyncOne(ctx context.Context, series *store.Series) *report.Summary {
	start := time.Now()
	summary := &report.Summary{StartedAt: start, EventLogPath: o.cfg.Logger.Path()}

	result := o.SyncSeries(ctx, series)
	o.record(summary, result)

	summary.Duration = time.Since(start)
	summary.PanelsWritten = o.panelsWritten()
	summary.BytesMirrored = o.mirrored
	return summary
}

// panelsWritten sums the final persisted count of every chapter this
// run touched
func (o *Orchestrator) panelsWritten() int {
	total := 0
	for _, n := range o.panelCounts {
		total += n
	}
	return total
}

// processChapter drives one work item end to end: fetch, upsert,
// refresh the series aggregates, write events. The ledger row is
// written by the upserter whatever the outcome.
func (o *Orchestrator) processChapter(ctx context.Context, series *store.Series, item WorkItem) error {
	started := time.Now()

	panelURLs, err := o.cfg.Src.FetchChapterPanels(ctx, item.Ref.URL)
	if err != nil {
		o.cfg.Logger.Log(report.Event{
			Level: report.LevelError, Event: report.EventFetch,
			Series: series.Slug, Chapter: item.Number.String(), Error: err.Error(),
		})
		// fetch failures never reach the upsert engine; the unit is
		// simply retried later
		return fmt.Errorf("%w: %v", util.ErrFetch, err)
	}
	if len(panelURLs) == 0 {
		o.cfg.Logger.Log(report.Event{
			Level: report.LevelError, Event: report.EventFetch,
			Series: series.Slug, Chapter: item.Number.String(), Error: "no images found",
		})
		return fmt.Errorf("%w: no images found", util.ErrFetch)
	}

	res, err := o.upsert.Upsert(ctx, series, item.Number, item.Ref.Title, panelURLs)
	if err != nil {
		o.cfg.Logger.Log(report.Event{
			Level: report.LevelError, Event: report.EventUpsert,
			Series: series.Slug, Chapter: item.Number.String(), Error: err.Error(),
		})
		return err
	}

	o.panelCounts[series.ID+"/"+item.Number.String()] = res.Persisted
	o.cfg.Logger.Log(report.Event{
		Level: report.LevelInfo, Event: report.EventUpsert,
		Series: series.Slug, Chapter: item.Number.String(),
		Panels: res.Persisted, Expected: res.Expected, Status: res.Status,
		Duration: time.Since(started).Milliseconds(),
	})

	if err := o.cfg.Store.RefreshSeriesStats(series.ID); err != nil {
		util.WarnLog("Could not refresh stats for %s: %v", series.Slug, err)
	} else {
		o.cfg.Logger.Log(report.Event{
			Level: report.LevelDebug, Event: report.EventStats, Series: series.Slug,
		})
	}

	if res.Status != store.StatusSuccess {
		return fmt.Errorf("chapter %s %s: %s", item.Number, res.Status, res.Error)
	}

	util.DebugLog("Chapter %s saved (%d panels)", item.Number, res.Persisted)
	return nil
}

// mirrorPanel downloads one panel and stores the bytes in the media
// store, returning the durable reference that gets persisted in place
// of the source URL.
func (o *Orchestrator) mirrorPanel(ctx context.Context, slug string, number Number, position int, srcURL string) (string, error) {
	data, err := o.cfg.Src.FetchImage(ctx, srcURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrFetch, err)
	}

	ext := strings.ToLower(path.Ext(srcURL))
	if ext == "" || len(ext) > 5 {
		ext = ".jpg"
	}
	if ext == ".jpeg" {
		ext = ".jpg"
	}

	logical := fmt.Sprintf("%s/chapter-%s/panel-%03d%s", slug, number, position, ext)
	ref, err := o.cfg.Media.Put(ctx, logical, data)
	if err != nil {
		return "", err
	}

	o.mirrored += int64(len(data))
	return ref, nil
}

func (o *Orchestrator) clampRange(items []WorkItem) []WorkItem {
	from, to := o.cfg.FromChapter, o.cfg.ToChapter
	if from > 0 || to > 0 {
		kept := items[:0]
		for _, item := range items {
			if from > 0 && item.Number.Key() < from {
				continue
			}
			if to > 0 && item.Number.Key() > to {
				continue
			}
			kept = append(kept, item)
		}
		items = kept
	}

	if o.cfg.MaxChapters > 0 && len(items) > o.cfg.MaxChapters {
		items = items[:o.cfg.MaxChapters]
	}
	return items
}

func (o *Orchestrator) failSeries(result *SeriesResult, reason string) *SeriesResult {
	util.ErrorLog("Series %s: %s", result.Slug, reason)
	o.cfg.Logger.Log(report.Event{
		Level: report.LevelError, Event: report.EventError,
		Series: result.Slug, Error: reason,
	})
	result.Status = report.SeriesFailed
	result.Reason = reason
	return result
}

func (o *Orchestrator) record(summary *report.Summary, result *SeriesResult) {
	var failures []report.ChapterFailure
	for _, f := range result.Failures {
		failures = append(failures, report.ChapterFailure{
			Series:  result.Slug,
			Chapter: f.Item.Number.String(),
			Reason:  f.Reason,
		})
		o.cfg.Logger.Log(report.Event{
			Level: report.LevelWarning, Event: report.EventRetry,
			Series: result.Slug, Chapter: f.Item.Number.String(),
			Reason: f.Reason, Status: "exhausted",
		})
	}

	summary.Add(report.SeriesOutcome{
		Slug:        result.Slug,
		Status:      result.Status,
		Reason:      result.Reason,
		NewChapters: result.NewChapters,
		Failed:      len(result.Failures),
	}, failures)
}
