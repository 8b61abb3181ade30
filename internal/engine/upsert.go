package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/franz/manga-mirror/internal/store"
	"github.com/franz/manga-mirror/internal/util"
)

// PanelResolver turns a source image URL into the reference that gets
// persisted, e.g. by mirroring the bytes into a media store. A nil
// resolver stores the source URL as-is. A resolver error counts as a
// failed panel write. position is the 1-based ordinal the panel will be
// stored under, which tracks successful writes rather than the source
// index.
type PanelResolver func(ctx context.Context, slug string, number Number, position int, srcURL string) (string, error)

// Upserter writes one chapter and its panels into the store,
// idempotently by the (series, number) natural key.
type Upserter struct {
	store   *store.Store
	resolve PanelResolver
}

// NewUpserter creates an Upserter. resolve may be nil.
func NewUpserter(s *store.Store, resolve PanelResolver) *Upserter {
	return &Upserter{store: s, resolve: resolve}
}

// UpsertResult reports what one chapter upsert persisted
type UpsertResult struct {
	ChapterID string
	Expected  int
	Persisted int
	Status    string
	Error     string
}

// Upsert creates or replaces one chapter. An existing chapter has its
// panels deleted and reinserted wholesale; panels are never merged.
// Each panel write is independent: a single failure is recorded and
// excluded from the persisted count while the remaining panels continue.
// The derived status (success, partial, failed) and both counts are
// always written to the sync ledger, whatever the outcome.
func (u *Upserter) Upsert(ctx context.Context, series *store.Series, number Number, title string, panelURLs []string) (*UpsertResult, error) {
	expected := len(panelURLs)
	result := &UpsertResult{Expected: expected}

	chapter, err := u.store.GetChapterByNumber(series.ID, number.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrPersistence, err)
	}

	if chapter != nil {
		if err := u.store.DeleteChapterPanels(chapter.ID); err != nil {
			return nil, fmt.Errorf("%w: %v", util.ErrPersistence, err)
		}
		chapter.Title = title
		chapter.ExpectedPanels = expected
		chapter.PublishedAt = time.Now()
	} else {
		chapter = &store.Chapter{
			SeriesID:       series.ID,
			Number:         number.String(),
			NumberKey:      number.Key(),
			Title:          title,
			ExpectedPanels: expected,
			Status:         store.StatusFailed,
		}
		if err := u.store.InsertChapter(chapter); err != nil {
			return nil, fmt.Errorf("%w: %v", util.ErrPersistence, err)
		}
	}
	result.ChapterID = chapter.ID

	persisted := 0
	var firstErr string
	for i, srcURL := range panelURLs {
		// stored ordinals stay a gapless 1..persisted sequence: a failed
		// write gives its slot to the next surviving panel
		ordinal := persisted + 1

		ref := srcURL
		if u.resolve != nil {
			ref, err = u.resolve(ctx, series.Slug, number, ordinal, srcURL)
			if err != nil {
				util.WarnLog("Upsert: panel %d of chapter %s failed: %v", i+1, number, err)
				if firstErr == "" {
					firstErr = err.Error()
				}
				continue
			}
		}

		panel := &store.Panel{ChapterID: chapter.ID, Position: ordinal, ImageURL: ref}
		if err := u.store.InsertPanel(panel); err != nil {
			util.WarnLog("Upsert: panel %d of chapter %s failed: %v", i+1, number, err)
			if firstErr == "" {
				firstErr = err.Error()
			}
			continue
		}
		persisted++
	}

	result.Persisted = persisted
	result.Status = deriveStatus(persisted, expected)
	switch {
	case result.Status == store.StatusPartial:
		result.Error = fmt.Sprintf("persisted %d/%d panels: %s", persisted, expected, firstErr)
	case result.Status == store.StatusFailed && expected == 0:
		result.Error = "no panels found"
	case result.Status == store.StatusFailed:
		result.Error = fmt.Sprintf("all %d panel writes failed: %s", expected, firstErr)
	}

	chapter.PersistedPanels = persisted
	chapter.Status = result.Status
	if err := u.store.UpdateChapter(chapter); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrPersistence, err)
	}

	record := &store.SyncRecord{
		SeriesID:        series.ID,
		ChapterNumber:   number.String(),
		Status:          result.Status,
		PersistedPanels: persisted,
		ExpectedPanels:  expected,
		Error:           result.Error,
	}
	if err := u.store.PutSyncRecord(record); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrPersistence, err)
	}

	return result, nil
}

// deriveStatus is never supplied by the caller: it falls out of the
// panel write counts
func deriveStatus(persisted, expected int) string {
	switch {
	case expected == 0 || persisted == 0:
		return store.StatusFailed
	case persisted < expected:
		return store.StatusPartial
	default:
		return store.StatusSuccess
	}
}
