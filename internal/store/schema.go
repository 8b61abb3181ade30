package store

// Schema v1 - Initial database schema
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Mirrored series (one row per manga title)
CREATE TABLE IF NOT EXISTS series (
  id TEXT PRIMARY KEY,
  slug TEXT UNIQUE NOT NULL,
  title TEXT NOT NULL,
  description TEXT,
  cover_url TEXT,
  author TEXT,
  status TEXT NOT NULL DEFAULT 'ongoing',
  publication_year INTEGER,
  locked INTEGER NOT NULL DEFAULT 0,
  total_chapters INTEGER NOT NULL DEFAULT 0,
  total_panels INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_series_slug ON series(slug);

-- Genre taxonomy
CREATE TABLE IF NOT EXISTS genres (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT UNIQUE NOT NULL
);

CREATE TABLE IF NOT EXISTS series_genres (
  series_id TEXT REFERENCES series(id) ON DELETE CASCADE,
  genre_id TEXT REFERENCES genres(id) ON DELETE CASCADE,
  PRIMARY KEY (series_id, genre_id)
);

-- Chapters, keyed by normalized chapter number within a series
CREATE TABLE IF NOT EXISTS chapters (
  id TEXT PRIMARY KEY,
  series_id TEXT NOT NULL REFERENCES series(id) ON DELETE CASCADE,
  number TEXT NOT NULL,
  number_key REAL NOT NULL,
  title TEXT,
  expected_panels INTEGER NOT NULL DEFAULT 0,
  persisted_panels INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'failed',
  published_at DATETIME,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  UNIQUE (series_id, number)
);

CREATE INDEX IF NOT EXISTS idx_chapters_series ON chapters(series_id, number_key);

-- Panels, fully owned by their chapter, ordered by position
CREATE TABLE IF NOT EXISTS panels (
  chapter_id TEXT NOT NULL REFERENCES chapters(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  image_url TEXT NOT NULL,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (chapter_id, position)
);

-- Sync ledger: last known outcome per (series, chapter number)
CREATE TABLE IF NOT EXISTS sync_records (
  series_id TEXT NOT NULL REFERENCES series(id) ON DELETE CASCADE,
  chapter_number TEXT NOT NULL,
  status TEXT NOT NULL,
  persisted_panels INTEGER NOT NULL DEFAULT 0,
  expected_panels INTEGER NOT NULL DEFAULT 0,
  error TEXT,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (series_id, chapter_number)
);
`
