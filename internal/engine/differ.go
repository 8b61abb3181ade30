package engine

import (
	"sort"

	"github.com/franz/manga-mirror/internal/store"
	"github.com/franz/manga-mirror/internal/util"
)

// WorkItem is one chapter the current run must (re)process
type WorkItem struct {
	Number Number
	Ref    ChapterRef
}

// Diff compares the sync ledger against the chapters currently advertised
// by the source and returns the ordered work list.
//
// A chapter is included when it has no ledger entry, when its last sync
// did not end in success, or when its persisted panel count does not
// match the expected count. With force, every available chapter is
// included regardless of the ledger. The result is always ascending by
// chapter number so interrupted runs resume deterministically.
//
// Refs whose RawID does not normalize are skipped. Duplicate refs
// normalizing to the same number collapse last-seen-wins in source
// document order. An empty catalog returns util.ErrSourceEmpty: that is
// a scraping failure, not "nothing new".
func Diff(ledger map[string]*store.SyncRecord, available []ChapterRef, force bool) ([]WorkItem, error) {
	if len(available) == 0 {
		return nil, util.ErrSourceEmpty
	}

	unique := make(map[Number]ChapterRef)
	for _, ref := range available {
		num, err := ParseNumber(ref.RawID)
		if err != nil {
			util.DebugLog("Diff: skipping unparseable chapter id %q", ref.RawID)
			continue
		}
		unique[num] = ref
	}

	items := make([]WorkItem, 0, len(unique))
	for num, ref := range unique {
		if !force && isComplete(ledger[num.String()]) {
			continue
		}
		items = append(items, WorkItem{Number: num, Ref: ref})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Number < items[j].Number
	})

	return items, nil
}

// isComplete reports whether a ledger entry proves the chapter needs no
// further work
func isComplete(r *store.SyncRecord) bool {
	if r == nil {
		return false
	}
	return r.Status == store.StatusSuccess && r.PersistedPanels == r.ExpectedPanels
}
