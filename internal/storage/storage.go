// Package storage writes captures as Markdown files and keeps a SQLite
// index of them alongside user preferences.
//
// Layout under the base directory:
//
//	inbox/<2006-01-02>/<15-04>_<title>.md
//	projects/<name>/<2006-01-02>/<15-04>_<title>.md
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidProjectName is returned for empty, reserved or unsafe names.
	ErrInvalidProjectName = errors.New("invalid project name")
	// ErrProjectExists is returned when creating a project that exists.
	ErrProjectExists = errors.New("project already exists")
)

// IndexFileName is the default index database name inside the base dir.
const IndexFileName = ".index.db"

const (
	inboxDir    = "inbox"
	projectsDir = "projects"

	maxTitleLength = 50
	untitled       = "untitled"
	illegalChars   = `\/:*?"<>|`
)

// DefaultProjects are created on first open.
var DefaultProjects = []string{"Ideas", "Research", "WorkNotes", "TestProject"}

// Capture is one saved note.
type Capture struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Project   string    `json:"project"`
	Path      string    `json:"path"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Options configures Open.
type Options struct {
	// BaseDir defaults to ~/ContextCollector.
	BaseDir string
	// Database defaults to <BaseDir>/.index.db.
	Database string
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger *slog.Logger
}

// Store is the capture store.
type Store struct {
	base   string
	db     *sql.DB
	now    func() time.Time
	logger *slog.Logger
}

// DefaultBaseDir returns ~/ContextCollector.
func DefaultBaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, "ContextCollector"), nil
}

// Open prepares the directory layout and the index.
func Open(opts Options) (*Store, error) {
	if opts.BaseDir == "" {
		base, err := DefaultBaseDir()
		if err != nil {
			return nil, err
		}
		opts.BaseDir = base
	}
	if opts.Database == "" {
		opts.Database = filepath.Join(opts.BaseDir, IndexFileName)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Store{base: opts.BaseDir, now: opts.Now, logger: opts.Logger}
	if err := s.setupDirectories(); err != nil {
		return nil, err
	}

	db, err := openIndex(opts.Database)
	if err != nil {
		return nil, err
	}
	s.db = db
	s.logger.Info("storage opened", "base_dir", s.base, "database", opts.Database)
	return s, nil
}

// Close closes the index.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// BaseDir returns the root of the capture tree.
func (s *Store) BaseDir() string {
	return s.base
}

func (s *Store) setupDirectories() error {
	dirs := []string{
		s.base,
		filepath.Join(s.base, inboxDir),
		filepath.Join(s.base, projectsDir),
	}
	for _, p := range DefaultProjects {
		dirs = append(dirs, filepath.Join(s.base, projectsDir, p))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// Projects returns the project names, sorted.
func (s *Store) Projects() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.base, projectsDir))
	if err != nil {
		return nil, fmt.Errorf("read projects: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// CreateProject makes a new project directory and returns its sanitized
// name.
func (s *Store) CreateProject(name string) (string, error) {
	clean := SanitizeTitle(name)
	if strings.TrimSpace(name) == "" || clean == untitled || strings.HasPrefix(clean, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidProjectName, name)
	}
	dir := filepath.Join(s.base, projectsDir, clean)
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrProjectExists, clean)
		}
		return "", fmt.Errorf("create project %s: %w", clean, err)
	}
	s.logger.Info("project created", "project", clean)
	return clean, nil
}

// Save writes content to a new file and indexes it. An empty project
// saves to the inbox.
func (s *Store) Save(content, title, project string) (Capture, error) {
	parent := filepath.Join(s.base, inboxDir)
	if project != "" {
		if SanitizeTitle(project) != project || strings.HasPrefix(project, ".") {
			return Capture{}, fmt.Errorf("%w: %q", ErrInvalidProjectName, project)
		}
		parent = filepath.Join(s.base, projectsDir, project)
	}

	now := s.now()
	day := filepath.Join(parent, now.Format("2006-01-02"))
	if err := os.MkdirAll(day, 0o755); err != nil {
		return Capture{}, fmt.Errorf("create day directory: %w", err)
	}

	clean := SanitizeTitle(title)
	path, err := writeUnique(day, now.Format("15-04")+"_"+clean, content)
	if err != nil {
		return Capture{}, err
	}

	c := Capture{
		Title:     clean,
		Project:   project,
		Path:      path,
		Content:   content,
		CreatedAt: now,
	}
	if c.ID, err = s.index(c); err != nil {
		// the file is the record; the index only feeds the dashboard
		s.logger.Warn("capture not indexed", "path", path, "error", err)
	}
	s.logger.Info("capture saved", "path", path, "project", project)
	return c, nil
}

// writeUnique creates stem.md in dir, or stem-2.md, stem-3.md and so on
// when the name is taken.
func writeUnique(dir, stem, content string) (string, error) {
	for n := 1; n < 1000; n++ {
		name := stem + ".md"
		if n > 1 {
			name = stem + "-" + strconv.Itoa(n) + ".md"
		}
		path := filepath.Join(dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create capture file: %w", err)
		}
		if _, err := f.WriteString(content); err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("write capture file: %w", err)
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return "", fmt.Errorf("close capture file: %w", err)
		}
		return path, nil
	}
	return "", fmt.Errorf("no free file name for %s in %s", stem, dir)
}

// SanitizeTitle makes title safe as a file name: whitespace is trimmed,
// path and shell metacharacters become '-', and the result is at most 50
// characters. An empty title becomes "untitled".
func SanitizeTitle(title string) string {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return untitled
	}
	clean := strings.Map(func(r rune) rune {
		if strings.ContainsRune(illegalChars, r) {
			return '-'
		}
		return r
	}, trimmed)
	if runes := []rune(clean); len(runes) > maxTitleLength {
		clean = string(runes[:maxTitleLength])
	}
	return clean
}
