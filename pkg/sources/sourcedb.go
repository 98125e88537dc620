// Package sources keeps the on-disk character data in step with an upstream
// copy: a SQLite ledger of upstream URLs, a fetcher that downloads character
// documents with retries, and a checker that probes upstream availability.
package sources

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Source is one row of the character_sources table.
type Source struct {
	CharacterID string
	SourceURL   string
	ContentHash *string
	LastFetch   *int64
	LastCheck   *int64
	LastStatus  *int
	LastError   *string
	UpdatedAt   int64
}

// SourceDB manages the character_sources SQLite table.
type SourceDB struct {
	db *sql.DB
}

// ErrUnknownSource is returned for character ids missing from the ledger.
var ErrUnknownSource = errors.New("unknown source")

// OpenSourceDB opens (or creates) the SQLite database at path and ensures the
// character_sources table exists.
func OpenSourceDB(path string) (*SourceDB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open source db: %w", err)
	}

	const ddl = `CREATE TABLE IF NOT EXISTS character_sources (
		character_id TEXT PRIMARY KEY,
		source_url   TEXT NOT NULL,
		content_hash TEXT,
		last_fetch   INTEGER,
		last_check   INTEGER,
		last_status  INTEGER,
		last_error   TEXT,
		updated_at   INTEGER NOT NULL
	)`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("create character_sources table: %w", err)
	}

	return &SourceDB{db: db}, nil
}

// Close closes the database.
func (s *SourceDB) Close() error {
	return s.db.Close()
}

// CharacterURL is the upstream folder of id under baseURL.
func CharacterURL(baseURL, id string) string {
	return strings.TrimRight(baseURL, "/") + "/" + id
}

// Seed inserts a row per character pointing at baseURL/<id>. Existing rows are
// left untouched so manual URL overrides survive restarts.
func (s *SourceDB) Seed(ids []string, baseURL string) error {
	const q = `INSERT OR IGNORE INTO character_sources
		(character_id, source_url, updated_at) VALUES (?, ?, ?)`

	now := time.Now().Unix()
	for _, id := range ids {
		if _, err := s.db.Exec(q, id, CharacterURL(baseURL, id), now); err != nil {
			return fmt.Errorf("seed %s: %w", id, err)
		}
	}
	return nil
}

// GetURL returns the upstream URL of a character.
func (s *SourceDB) GetURL(id string) (string, error) {
	var url string
	err := s.db.QueryRow(`SELECT source_url FROM character_sources WHERE character_id = ?`, id).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("get url for %s: %w", id, ErrUnknownSource)
	}
	if err != nil {
		return "", fmt.Errorf("get url for %s: %w", id, err)
	}
	return url, nil
}

// SetURL overrides the upstream URL of a character.
func (s *SourceDB) SetURL(id, url string) error {
	res, err := s.db.Exec(
		`UPDATE character_sources SET source_url = ?, updated_at = ? WHERE character_id = ?`,
		url, time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("set url for %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("set url for %s: %w", id, ErrUnknownSource)
	}
	return nil
}

// UpdateCheck persists the result of an availability check.
func (s *SourceDB) UpdateCheck(id string, status int, checkErr string) error {
	_, err := s.db.Exec(
		`UPDATE character_sources SET last_check = ?, last_status = ?, last_error = ? WHERE character_id = ?`,
		time.Now().Unix(), status, nullable(checkErr), id,
	)
	if err != nil {
		return fmt.Errorf("update check for %s: %w", id, err)
	}
	return nil
}

// RecordFetch persists the outcome of a fetch. The stored hash is kept when
// the fetch failed.
func (s *SourceDB) RecordFetch(id, hash string, fetchErr string) error {
	_, err := s.db.Exec(
		`UPDATE character_sources
		 SET last_fetch = ?, content_hash = COALESCE(?, content_hash), last_error = ?
		 WHERE character_id = ?`,
		time.Now().Unix(), nullable(hash), nullable(fetchErr), id,
	)
	if err != nil {
		return fmt.Errorf("record fetch for %s: %w", id, err)
	}
	return nil
}

// ContentHash returns the hash of the last successful fetch, or "".
func (s *SourceDB) ContentHash(id string) (string, error) {
	var hash sql.NullString
	err := s.db.QueryRow(`SELECT content_hash FROM character_sources WHERE character_id = ?`, id).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("content hash for %s: %w", id, ErrUnknownSource)
	}
	if err != nil {
		return "", fmt.Errorf("content hash for %s: %w", id, err)
	}
	return hash.String, nil
}

// ListSources returns all rows ordered by character id.
func (s *SourceDB) ListSources() ([]Source, error) {
	rows, err := s.db.Query(`SELECT character_id, source_url, content_hash,
		last_fetch, last_check, last_status, last_error, updated_at
		FROM character_sources ORDER BY character_id`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var src Source
		if err := rows.Scan(&src.CharacterID, &src.SourceURL, &src.ContentHash,
			&src.LastFetch, &src.LastCheck, &src.LastStatus, &src.LastError, &src.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
