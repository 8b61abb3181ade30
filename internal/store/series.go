package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UpsertSeries creates the series if its slug is new, otherwise updates
// the stored metadata. The ID is assigned here on first insert and
// written back to s.
func (s *Store) UpsertSeries(series *Series) error {
	existing, err := s.GetSeriesBySlug(series.Slug)
	if err != nil {
		return err
	}

	if existing != nil {
		series.ID = existing.ID
		_, err := s.db.Exec(`
			UPDATE series SET title = ?, description = ?, cover_url = ?,
				author = ?, status = ?, publication_year = ?, locked = ?,
				updated_at = ?
			WHERE id = ?
		`, series.Title, series.Description, series.CoverURL,
			series.Author, series.Status, series.PublicationYear, boolToInt(series.Locked),
			time.Now(), series.ID)
		if err != nil {
			return fmt.Errorf("failed to update series %s: %w", series.Slug, err)
		}
		return nil
	}

	if series.ID == "" {
		series.ID = uuid.NewString()
	}
	if series.Status == "" {
		series.Status = "ongoing"
	}

	_, err = s.db.Exec(`
		INSERT INTO series (id, slug, title, description, cover_url, author,
			status, publication_year, locked)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, series.ID, series.Slug, series.Title, series.Description, series.CoverURL,
		series.Author, series.Status, series.PublicationYear, boolToInt(series.Locked))
	if err != nil {
		return fmt.Errorf("failed to insert series %s: %w", series.Slug, err)
	}

	return nil
}

// GetSeriesBySlug retrieves a series by its slug, nil when absent
func (s *Store) GetSeriesBySlug(slug string) (*Series, error) {
	row := s.db.QueryRow(`
		SELECT id, slug, title, COALESCE(description, ''), COALESCE(cover_url, ''),
		       COALESCE(author, ''), status, COALESCE(publication_year, 0), locked,
		       total_chapters, total_panels, created_at, updated_at
		FROM series WHERE slug = ?
	`, slug)
	return scanSeries(row)
}

// GetSeriesByID retrieves a series by its ID, nil when absent
func (s *Store) GetSeriesByID(id string) (*Series, error) {
	row := s.db.QueryRow(`
		SELECT id, slug, title, COALESCE(description, ''), COALESCE(cover_url, ''),
		       COALESCE(author, ''), status, COALESCE(publication_year, 0), locked,
		       total_chapters, total_panels, created_at, updated_at
		FROM series WHERE id = ?
	`, id)
	return scanSeries(row)
}

// GetAllSeries retrieves every stored series ordered by slug
func (s *Store) GetAllSeries() ([]*Series, error) {
	rows, err := s.db.Query(`
		SELECT id, slug, title, COALESCE(description, ''), COALESCE(cover_url, ''),
		       COALESCE(author, ''), status, COALESCE(publication_year, 0), locked,
		       total_chapters, total_panels, created_at, updated_at
		FROM series ORDER BY slug
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query series: %w", err)
	}
	defer rows.Close()

	var all []*Series
	for rows.Next() {
		sr := &Series{}
		var locked int
		err := rows.Scan(
			&sr.ID, &sr.Slug, &sr.Title, &sr.Description, &sr.CoverURL,
			&sr.Author, &sr.Status, &sr.PublicationYear, &locked,
			&sr.TotalChapters, &sr.TotalPanels, &sr.CreatedAt, &sr.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan series: %w", err)
		}
		sr.Locked = locked != 0
		all = append(all, sr)
	}

	return all, rows.Err()
}

// RefreshSeriesStats recomputes the aggregate counters on the series row
// from the currently persisted chapters. Always a full re-scan, never an
// incremental adjustment, so re-runs cannot drift the counts.
func (s *Store) RefreshSeriesStats(seriesID string) error {
	_, err := s.db.Exec(`
		UPDATE series SET
			total_chapters = (SELECT COUNT(*) FROM chapters WHERE series_id = ?),
			total_panels = (SELECT COALESCE(SUM(persisted_panels), 0) FROM chapters WHERE series_id = ?),
			updated_at = ?
		WHERE id = ?
	`, seriesID, seriesID, time.Now(), seriesID)
	if err != nil {
		return fmt.Errorf("failed to refresh series stats: %w", err)
	}
	return nil
}

// EnsureGenre returns the genre with the given name, creating it if missing.
// The slug is derived from the name.
func (s *Store) EnsureGenre(name string) (*Genre, error) {
	name = strings.TrimSpace(name)
	slug := strings.ToLower(strings.ReplaceAll(name, " ", "-"))

	g := &Genre{}
	err := s.db.QueryRow("SELECT id, name, slug FROM genres WHERE slug = ?", slug).
		Scan(&g.ID, &g.Name, &g.Slug)
	if err == nil {
		return g, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query genre %s: %w", slug, err)
	}

	g = &Genre{ID: uuid.NewString(), Name: name, Slug: slug}
	if _, err := s.db.Exec("INSERT INTO genres (id, name, slug) VALUES (?, ?, ?)",
		g.ID, g.Name, g.Slug); err != nil {
		return nil, fmt.Errorf("failed to insert genre %s: %w", slug, err)
	}

	return g, nil
}

// LinkSeriesGenre associates a genre with a series (idempotent)
func (s *Store) LinkSeriesGenre(seriesID, genreID string) error {
	_, err := s.db.Exec(`
		INSERT INTO series_genres (series_id, genre_id) VALUES (?, ?)
		ON CONFLICT(series_id, genre_id) DO NOTHING
	`, seriesID, genreID)
	if err != nil {
		return fmt.Errorf("failed to link genre: %w", err)
	}
	return nil
}

// GetSeriesGenres returns the genres linked to a series, ordered by slug
func (s *Store) GetSeriesGenres(seriesID string) ([]*Genre, error) {
	rows, err := s.db.Query(`
		SELECT g.id, g.name, g.slug
		FROM genres g
		JOIN series_genres sg ON sg.genre_id = g.id
		WHERE sg.series_id = ?
		ORDER BY g.slug
	`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("failed to query series genres: %w", err)
	}
	defer rows.Close()

	var genres []*Genre
	for rows.Next() {
		g := &Genre{}
		if err := rows.Scan(&g.ID, &g.Name, &g.Slug); err != nil {
			return nil, fmt.Errorf("failed to scan genre: %w", err)
		}
		genres = append(genres, g)
	}

	return genres, rows.Err()
}

func scanSeries(row *sql.Row) (*Series, error) {
	sr := &Series{}
	var locked int
	err := row.Scan(
		&sr.ID, &sr.Slug, &sr.Title, &sr.Description, &sr.CoverURL,
		&sr.Author, &sr.Status, &sr.PublicationYear, &locked,
		&sr.TotalChapters, &sr.TotalPanels, &sr.CreatedAt, &sr.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get series: %w", err)
	}
	sr.Locked = locked != 0
	return sr, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
