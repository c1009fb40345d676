// Package dashboard renders recent captures as a standalone HTML page.
package dashboard

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"contextcollector/internal/storage"
)

// FileName is the page written by Write.
const FileName = "contextcollector-dashboard.html"

// DefaultLimit is how many captures the page shows.
const DefaultLimit = 200

// Entry is a capture prepared for the page.
type Entry struct {
	Title   string
	Project string
	Path    string
	Created string
	Body    template.HTML
}

type page struct {
	Entries   []Entry
	Count     int
	Displayed int
	Projects  int
	Generated string
}

var pageTemplate = template.Must(template.New("dashboard").Parse(pageHTML))

// Generate renders captures into the dashboard page. count is the total
// number of indexed captures.
func Generate(captures []storage.Capture, count int, now time.Time) (string, error) {
	p := page{
		Count:     count,
		Displayed: len(captures),
		Generated: now.Format("2006-01-02 15:04:05"),
	}
	projects := make(map[string]struct{})
	for _, c := range captures {
		body, err := RenderMarkdown(c.Content)
		if err != nil {
			return "", err
		}
		project := c.Project
		if project == "" {
			project = "Inbox"
		}
		projects[project] = struct{}{}
		p.Entries = append(p.Entries, Entry{
			Title:   c.Title,
			Project: project,
			Path:    c.Path,
			Created: c.CreatedAt.Format("2006-01-02 15:04"),
			Body:    template.HTML(body),
		})
	}
	p.Projects = len(projects)

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("execute dashboard template: %w", err)
	}
	return buf.String(), nil
}

// Write stores page as FileName under dir, or the temp dir when dir is
// empty, and returns its path.
func Write(dir, page string) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(page), 0o600); err != nil {
		return "", fmt.Errorf("write dashboard: %w", err)
	}
	return path, nil
}

// Build reads recent captures from store and writes the page.
func Build(store *storage.Store, dir string, now time.Time) (string, error) {
	captures, err := store.Recent(DefaultLimit)
	if err != nil {
		return "", err
	}
	count, err := store.Count()
	if err != nil {
		return "", err
	}
	html, err := Generate(captures, count, now)
	if err != nil {
		return "", err
	}
	return Write(dir, html)
}

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>ContextCollector: Recent captures</title>
<style>
* { margin: 0; padding: 0; box-sizing: border-box; }
body {
  font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', 'Roboto', sans-serif;
  background: #1f2430;
  color: #2b2f3a;
  min-height: 100vh;
  padding: 24px;
}
main {
  max-width: 1100px;
  margin: 0 auto;
  background: #fff;
  border-radius: 10px;
  overflow: hidden;
  box-shadow: 0 16px 32px rgba(0,0,0,0.25);
}
header { background: #2d6cdf; color: #fff; padding: 28px; }
header h1 { font-size: 2rem; font-weight: 400; }
header p { opacity: 0.85; margin-top: 6px; }
.stats {
  display: flex;
  gap: 36px;
  padding: 18px 28px;
  background: #f4f6fa;
  border-bottom: 1px solid #e1e5ee;
}
.stat b { display: block; font-size: 1.6rem; color: #2d6cdf; }
.stat span { color: #69707d; font-size: 0.85rem; }
.captures { padding: 24px 28px; }
article {
  border: 1px solid #e1e5ee;
  border-left: 4px solid #2d6cdf;
  border-radius: 6px;
  padding: 16px 20px;
  margin-bottom: 14px;
}
article h2 { font-size: 1.1rem; }
.meta { display: flex; gap: 12px; color: #69707d; font-size: 0.8rem; margin: 4px 0 12px; }
.project { background: #2d6cdf; color: #fff; padding: 1px 10px; border-radius: 10px; }
.body { line-height: 1.55; word-break: break-word; }
.body pre { background: #f4f6fa; padding: 10px; border-radius: 4px; overflow-x: auto; }
.body table { border-collapse: collapse; }
.body td, .body th { border: 1px solid #e1e5ee; padding: 4px 8px; }
.empty { text-align: center; padding: 56px; color: #69707d; }
footer { text-align: center; padding: 16px; background: #f4f6fa; color: #69707d; font-size: 0.8rem; }
</style>
</head>
<body>
<main>
  <header>
    <h1>Recent captures</h1>
    <p>Notes collected with ContextCollector</p>
  </header>
  <section class="stats">
    <div class="stat"><b>{{.Count}}</b><span>Total captures</span></div>
    <div class="stat"><b>{{.Displayed}}</b><span>Shown</span></div>
    <div class="stat"><b>{{.Projects}}</b><span>Projects</span></div>
  </section>
  <section class="captures">
  {{- if .Entries}}
    {{- range .Entries}}
    <article>
      <h2>{{.Title}}</h2>
      <div class="meta">
        <span class="project">{{.Project}}</span>
        <span>{{.Created}}</span>
        <span title="{{.Path}}">{{.Path}}</span>
      </div>
      <div class="body">{{.Body}}</div>
    </article>
    {{- end}}
  {{- else}}
    <p class="empty">No captures yet. Press the copy shortcut twice to start one.</p>
  {{- end}}
  </section>
  <footer>Generated {{.Generated}}</footer>
</main>
</body>
</html>
`
