package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GetChapterByNumber retrieves a chapter by its natural key
// (series, normalized number), nil when absent
func (s *Store) GetChapterByNumber(seriesID, number string) (*Chapter, error) {
	c := &Chapter{}
	var published sql.NullTime
	err := s.db.QueryRow(`
		SELECT id, series_id, number, number_key, COALESCE(title, ''),
		       expected_panels, persisted_panels, status, published_at, created_at
		FROM chapters WHERE series_id = ? AND number = ?
	`, seriesID, number).Scan(
		&c.ID, &c.SeriesID, &c.Number, &c.NumberKey, &c.Title,
		&c.ExpectedPanels, &c.PersistedPanels, &c.Status, &published, &c.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chapter: %w", err)
	}
	if published.Valid {
		c.PublishedAt = published.Time
	}

	return c, nil
}

// InsertChapter inserts a new chapter. The ID is assigned here and
// written back to c.
func (s *Store) InsertChapter(c *Chapter) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.PublishedAt.IsZero() {
		c.PublishedAt = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO chapters (id, series_id, number, number_key, title,
			expected_panels, persisted_panels, status, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.SeriesID, c.Number, c.NumberKey, c.Title,
		c.ExpectedPanels, c.PersistedPanels, c.Status, c.PublishedAt)
	if err != nil {
		return fmt.Errorf("failed to insert chapter %s: %w", c.Number, err)
	}

	return nil
}

// UpdateChapter updates the mutable fields of an existing chapter
func (s *Store) UpdateChapter(c *Chapter) error {
	_, err := s.db.Exec(`
		UPDATE chapters SET title = ?, expected_panels = ?, persisted_panels = ?,
			status = ?, published_at = ?
		WHERE id = ?
	`, c.Title, c.ExpectedPanels, c.PersistedPanels, c.Status, c.PublishedAt, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update chapter %s: %w", c.Number, err)
	}
	return nil
}

// DeleteChapterPanels removes every panel of a chapter. Panels are always
// replaced wholesale on re-sync, never merged.
func (s *Store) DeleteChapterPanels(chapterID string) error {
	_, err := s.db.Exec("DELETE FROM panels WHERE chapter_id = ?", chapterID)
	if err != nil {
		return fmt.Errorf("failed to delete panels: %w", err)
	}
	return nil
}

// InsertPanel inserts a single panel
func (s *Store) InsertPanel(p *Panel) error {
	_, err := s.db.Exec(`
		INSERT INTO panels (chapter_id, position, image_url) VALUES (?, ?, ?)
	`, p.ChapterID, p.Position, p.ImageURL)
	if err != nil {
		return fmt.Errorf("failed to insert panel %d: %w", p.Position, err)
	}
	return nil
}

// GetChapterPanels retrieves the panels of a chapter in reading order
func (s *Store) GetChapterPanels(chapterID string) ([]*Panel, error) {
	rows, err := s.db.Query(`
		SELECT chapter_id, position, image_url
		FROM panels WHERE chapter_id = ?
		ORDER BY position
	`, chapterID)
	if err != nil {
		return nil, fmt.Errorf("failed to query panels: %w", err)
	}
	defer rows.Close()

	var panels []*Panel
	for rows.Next() {
		p := &Panel{}
		if err := rows.Scan(&p.ChapterID, &p.Position, &p.ImageURL); err != nil {
			return nil, fmt.Errorf("failed to scan panel: %w", err)
		}
		panels = append(panels, p)
	}

	return panels, rows.Err()
}

// GetSeriesChapters retrieves every chapter of a series in ascending
// number order
func (s *Store) GetSeriesChapters(seriesID string) ([]*Chapter, error) {
	rows, err := s.db.Query(`
		SELECT id, series_id, number, number_key, COALESCE(title, ''),
		       expected_panels, persisted_panels, status, published_at, created_at
		FROM chapters WHERE series_id = ?
		ORDER BY number_key
	`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chapters: %w", err)
	}
	defer rows.Close()

	var chapters []*Chapter
	for rows.Next() {
		c := &Chapter{}
		var published sql.NullTime
		err := rows.Scan(
			&c.ID, &c.SeriesID, &c.Number, &c.NumberKey, &c.Title,
			&c.ExpectedPanels, &c.PersistedPanels, &c.Status, &published, &c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chapter: %w", err)
		}
		if published.Valid {
			c.PublishedAt = published.Time
		}
		chapters = append(chapters, c)
	}

	return chapters, rows.Err()
}
