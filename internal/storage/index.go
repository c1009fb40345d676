package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const lastProjectKey = "last_selected_project"

const schema = `
CREATE TABLE IF NOT EXISTS captures (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	project TEXT NOT NULL DEFAULT '',
	path TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_captures_created ON captures(created_at DESC);

CREATE TABLE IF NOT EXISTS preferences (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

func openIndex(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	// one writer; avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping index: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return db, nil
}

func (s *Store) index(c Capture) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO captures (id, title, project, path, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, c.Title, c.Project, c.Path, c.Content, c.CreatedAt.UnixMilli())
	if err != nil {
		return "", fmt.Errorf("insert capture: %w", err)
	}
	return id, nil
}

// Recent returns up to limit captures, newest first.
func (s *Store) Recent(limit int) ([]Capture, error) {
	rows, err := s.db.Query(
		`SELECT id, title, project, path, content, created_at FROM captures
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query captures: %w", err)
	}
	return scanCaptures(rows)
}

// Search returns captures whose title or content contains text.
func (s *Store) Search(text string, limit int) ([]Capture, error) {
	pattern := "%" + text + "%"
	rows, err := s.db.Query(
		`SELECT id, title, project, path, content, created_at FROM captures
		WHERE title LIKE ? OR content LIKE ?
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search captures: %w", err)
	}
	return scanCaptures(rows)
}

// Count returns the number of indexed captures.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM captures`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count captures: %w", err)
	}
	return n, nil
}

func scanCaptures(rows *sql.Rows) ([]Capture, error) {
	defer rows.Close()
	var out []Capture
	for rows.Next() {
		var (
			c       Capture
			created int64
		)
		if err := rows.Scan(&c.ID, &c.Title, &c.Project, &c.Path, &c.Content, &created); err != nil {
			return nil, fmt.Errorf("scan capture: %w", err)
		}
		c.CreatedAt = time.UnixMilli(created)
		out = append(out, c)
	}
	return out, rows.Err()
}

// LastSelectedProject returns the remembered project, or "" for the inbox.
func (s *Store) LastSelectedProject() (string, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM preferences WHERE key = ?`, lastProjectKey).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read preference: %w", err)
	}
	return v, nil
}

// SetLastSelectedProject remembers project. An empty name or the inbox
// clears it.
func (s *Store) SetLastSelectedProject(project string) error {
	var err error
	if project == "" || strings.EqualFold(project, inboxDir) {
		_, err = s.db.Exec(`DELETE FROM preferences WHERE key = ?`, lastProjectKey)
	} else {
		_, err = s.db.Exec(
			`INSERT INTO preferences (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, lastProjectKey, project)
	}
	if err != nil {
		return fmt.Errorf("write preference: %w", err)
	}
	return nil
}
