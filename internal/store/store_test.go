package store

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
		os.Remove(path + "-shm")
		os.Remove(path + "-wal")
	})
	return s
}

func TestStoreOpenAndMigrate(t *testing.T) {
	s := openTestStore(t)

	version, err := s.getSchemaVersion()
	if err != nil {
		t.Fatalf("failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("expected schema version %d, got %d", currentSchemaVersion, version)
	}

	tables := []string{"series", "genres", "series_genres", "chapters", "panels", "sync_records", "schema_version"}
	for _, table := range tables {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("expected table %s to exist", table)
		}
	}
}

func TestSeriesUpsertAndRetrieve(t *testing.T) {
	s := openTestStore(t)

	series := &Series{
		Slug:            "one-piece",
		Title:           "One Piece",
		Author:          "Eiichiro Oda",
		Status:          "ongoing",
		PublicationYear: 1997,
	}

	if err := s.UpsertSeries(series); err != nil {
		t.Fatalf("failed to upsert series: %v", err)
	}
	if series.ID == "" {
		t.Fatal("expected series ID to be assigned on insert")
	}
	firstID := series.ID

	got, err := s.GetSeriesBySlug("one-piece")
	if err != nil {
		t.Fatalf("failed to get series: %v", err)
	}
	if got == nil {
		t.Fatal("expected series to exist")
	}
	if got.Title != "One Piece" || got.Author != "Eiichiro Oda" {
		t.Errorf("unexpected series: %+v", got)
	}

	// Upserting the same slug again must update, not duplicate
	series.Title = "One Piece (updated)"
	if err := s.UpsertSeries(series); err != nil {
		t.Fatalf("failed to re-upsert series: %v", err)
	}
	if series.ID != firstID {
		t.Errorf("expected stable series ID, got %s then %s", firstID, series.ID)
	}

	all, err := s.GetAllSeries()
	if err != nil {
		t.Fatalf("failed to list series: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 series, got %d", len(all))
	}
	if all[0].Title != "One Piece (updated)" {
		t.Errorf("expected updated title, got %q", all[0].Title)
	}
}

func TestChapterInsertAndPanels(t *testing.T) {
	s := openTestStore(t)

	series := &Series{Slug: "naruto", Title: "Naruto"}
	if err := s.UpsertSeries(series); err != nil {
		t.Fatalf("failed to upsert series: %v", err)
	}

	ch := &Chapter{
		SeriesID:        series.ID,
		Number:          "100.5",
		NumberKey:       100.5,
		Title:           "Chapter 100.5",
		ExpectedPanels:  2,
		PersistedPanels: 2,
		Status:          StatusSuccess,
	}
	if err := s.InsertChapter(ch); err != nil {
		t.Fatalf("failed to insert chapter: %v", err)
	}

	for i, url := range []string{"https://img/1.jpg", "https://img/2.jpg"} {
		if err := s.InsertPanel(&Panel{ChapterID: ch.ID, Position: i + 1, ImageURL: url}); err != nil {
			t.Fatalf("failed to insert panel %d: %v", i+1, err)
		}
	}

	got, err := s.GetChapterByNumber(series.ID, "100.5")
	if err != nil {
		t.Fatalf("failed to get chapter: %v", err)
	}
	if got == nil {
		t.Fatal("expected chapter to exist")
	}
	if got.NumberKey != 100.5 || got.Status != StatusSuccess {
		t.Errorf("unexpected chapter: %+v", got)
	}

	panels, err := s.GetChapterPanels(ch.ID)
	if err != nil {
		t.Fatalf("failed to get panels: %v", err)
	}
	if len(panels) != 2 {
		t.Fatalf("expected 2 panels, got %d", len(panels))
	}
	if panels[0].Position != 1 || panels[1].Position != 2 {
		t.Errorf("panels out of order: %+v", panels)
	}

	if err := s.DeleteChapterPanels(ch.ID); err != nil {
		t.Fatalf("failed to delete panels: %v", err)
	}
	panels, err = s.GetChapterPanels(ch.ID)
	if err != nil {
		t.Fatalf("failed to re-get panels: %v", err)
	}
	if len(panels) != 0 {
		t.Errorf("expected 0 panels after delete, got %d", len(panels))
	}
}

func TestRefreshSeriesStats(t *testing.T) {
	s := openTestStore(t)

	series := &Series{Slug: "bleach", Title: "Bleach"}
	if err := s.UpsertSeries(series); err != nil {
		t.Fatalf("failed to upsert series: %v", err)
	}

	counts := []int{12, 18, 20}
	for i, n := range counts {
		ch := &Chapter{
			SeriesID:        series.ID,
			Number:          strconv.Itoa(i + 1),
			NumberKey:       float64(i + 1),
			ExpectedPanels:  n,
			PersistedPanels: n,
			Status:          StatusSuccess,
		}
		if err := s.InsertChapter(ch); err != nil {
			t.Fatalf("failed to insert chapter: %v", err)
		}
	}

	if err := s.RefreshSeriesStats(series.ID); err != nil {
		t.Fatalf("failed to refresh stats: %v", err)
	}

	got, err := s.GetSeriesByID(series.ID)
	if err != nil {
		t.Fatalf("failed to get series: %v", err)
	}
	if got.TotalChapters != 3 {
		t.Errorf("expected 3 total chapters, got %d", got.TotalChapters)
	}
	if got.TotalPanels != 50 {
		t.Errorf("expected 50 total panels, got %d", got.TotalPanels)
	}
}

func TestSyncRecordLastWriteWins(t *testing.T) {
	s := openTestStore(t)

	series := &Series{Slug: "berserk", Title: "Berserk"}
	if err := s.UpsertSeries(series); err != nil {
		t.Fatalf("failed to upsert series: %v", err)
	}

	first := &SyncRecord{
		SeriesID:        series.ID,
		ChapterNumber:   "4",
		Status:          StatusPartial,
		PersistedPanels: 18,
		ExpectedPanels:  20,
		Error:           "2 panel writes failed",
	}
	if err := s.PutSyncRecord(first); err != nil {
		t.Fatalf("failed to put sync record: %v", err)
	}

	second := &SyncRecord{
		SeriesID:        series.ID,
		ChapterNumber:   "4",
		Status:          StatusSuccess,
		PersistedPanels: 20,
		ExpectedPanels:  20,
	}
	if err := s.PutSyncRecord(second); err != nil {
		t.Fatalf("failed to overwrite sync record: %v", err)
	}

	got, err := s.GetSyncRecord(series.ID, "4")
	if err != nil {
		t.Fatalf("failed to get sync record: %v", err)
	}
	if got == nil {
		t.Fatal("expected sync record to exist")
	}
	if got.Status != StatusSuccess || got.PersistedPanels != 20 || got.Error != "" {
		t.Errorf("expected last write to win, got %+v", got)
	}

	records, err := s.GetSyncRecords(series.ID)
	if err != nil {
		t.Fatalf("failed to get sync records: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected a single ledger row, got %d", len(records))
	}
}

func TestEnsureGenreIdempotent(t *testing.T) {
	s := openTestStore(t)

	g1, err := s.EnsureGenre("Dark Fantasy")
	if err != nil {
		t.Fatalf("failed to ensure genre: %v", err)
	}
	if g1.Slug != "dark-fantasy" {
		t.Errorf("expected slug dark-fantasy, got %q", g1.Slug)
	}

	g2, err := s.EnsureGenre("Dark Fantasy")
	if err != nil {
		t.Fatalf("failed to re-ensure genre: %v", err)
	}
	if g2.ID != g1.ID {
		t.Errorf("expected stable genre ID, got %s then %s", g1.ID, g2.ID)
	}

	series := &Series{Slug: "claymore", Title: "Claymore"}
	if err := s.UpsertSeries(series); err != nil {
		t.Fatalf("failed to upsert series: %v", err)
	}
	if err := s.LinkSeriesGenre(series.ID, g1.ID); err != nil {
		t.Fatalf("failed to link genre: %v", err)
	}
	if err := s.LinkSeriesGenre(series.ID, g1.ID); err != nil {
		t.Fatalf("expected re-link to be idempotent: %v", err)
	}

	genres, err := s.GetSeriesGenres(series.ID)
	if err != nil {
		t.Fatalf("failed to get genres: %v", err)
	}
	if len(genres) != 1 {
		t.Errorf("expected 1 linked genre, got %d", len(genres))
	}
}
