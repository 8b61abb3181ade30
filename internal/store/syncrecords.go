package store

import (
	"database/sql"
	"fmt"
	"time"
)

// PutSyncRecord writes or replaces the ledger entry for a
// (series, chapter number) pair. Last write wins on re-sync.
func (s *Store) PutSyncRecord(r *SyncRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO sync_records (series_id, chapter_number, status,
			persisted_panels, expected_panels, error, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(series_id, chapter_number) DO UPDATE SET
			status = excluded.status,
			persisted_panels = excluded.persisted_panels,
			expected_panels = excluded.expected_panels,
			error = excluded.error,
			updated_at = excluded.updated_at
	`, r.SeriesID, r.ChapterNumber, r.Status,
		r.PersistedPanels, r.ExpectedPanels, r.Error, time.Now())
	if err != nil {
		return fmt.Errorf("failed to put sync record: %w", err)
	}
	return nil
}

// GetSyncRecord retrieves the ledger entry for one chapter, nil when absent
func (s *Store) GetSyncRecord(seriesID, chapterNumber string) (*SyncRecord, error) {
	r := &SyncRecord{}
	err := s.db.QueryRow(`
		SELECT series_id, chapter_number, status, persisted_panels,
		       expected_panels, COALESCE(error, ''), updated_at
		FROM sync_records WHERE series_id = ? AND chapter_number = ?
	`, seriesID, chapterNumber).Scan(
		&r.SeriesID, &r.ChapterNumber, &r.Status, &r.PersistedPanels,
		&r.ExpectedPanels, &r.Error, &r.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync record: %w", err)
	}

	return r, nil
}

// GetSyncRecords retrieves the whole ledger for a series, keyed by
// chapter number
func (s *Store) GetSyncRecords(seriesID string) (map[string]*SyncRecord, error) {
	rows, err := s.db.Query(`
		SELECT series_id, chapter_number, status, persisted_panels,
		       expected_panels, COALESCE(error, ''), updated_at
		FROM sync_records WHERE series_id = ?
	`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync records: %w", err)
	}
	defer rows.Close()

	records := make(map[string]*SyncRecord)
	for rows.Next() {
		r := &SyncRecord{}
		err := rows.Scan(
			&r.SeriesID, &r.ChapterNumber, &r.Status, &r.PersistedPanels,
			&r.ExpectedPanels, &r.Error, &r.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync record: %w", err)
		}
		records[r.ChapterNumber] = r
	}

	return records, rows.Err()
}
