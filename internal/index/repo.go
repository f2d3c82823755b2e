package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/linkmark/internal/apperr"
	"github.com/starford/linkmark/internal/models"
)

// DocumentRow represents a row in the documents table.
type DocumentRow struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string      `json:"path"`
	Kind    models.Kind `json:"kind"`
	URL     string      `json:"url"`
	Text    string      `json:"text"`
	Line    int         `json:"line"`
	Column  int         `json:"column"`
	Snippet string      `json:"snippet"`
}

// Filter selects links for Links. Zero fields do not filter.
type Filter struct {
	Path       string
	Kind       models.Kind
	URL        string
	Unresolved bool
	Limit      int
	Offset     int
}

// Stats summarizes the index.
type Stats struct {
	Documents  int            `json:"documents"`
	Links      int            `json:"links"`
	Unresolved int            `json:"unresolved"`
	ByKind     map[string]int `json:"by_kind"`
}

// UpsertDocument inserts or replaces a document, its links and their FTS
// entries within a transaction. Records keep their extraction order.
func (db *DB) UpsertDocument(d DocumentRow, records []models.LinkRecord) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = time.Now().UTC()
	}
	_, err = tx.Exec(`
		INSERT INTO documents (path, title, checksum, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title      = excluded.title,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, d.Path, d.Title, d.Checksum, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	// Replace links: delete old then bulk insert.
	if _, err := tx.Exec(`DELETE FROM links WHERE path = ?`, d.Path); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}
	if len(records) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO links (path, seq, kind, url, title, text, label, resolved, line, col, context_path)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for i, r := range records {
			ctxJSON, _ := json.Marshal(nonNil(r.ContextPath))
			if _, err := stmt.Exec(d.Path, i, string(r.Kind), r.URL, nullable(r.Title), r.Text,
				nullable(r.Label), r.Resolved, r.Source.Line, r.Source.Column, string(ctxJSON)); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, d.Path, records); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteDocument removes a document, its links and their FTS entries.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM links WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM documents WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or empty string if
// not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// GetDocument returns one document row.
func (db *DB) GetDocument(path string) (*DocumentRow, error) {
	var d DocumentRow
	err := db.conn.QueryRow(`SELECT path, title, checksum, updated_at FROM documents WHERE path = ?`, path).
		Scan(&d.Path, &d.Title, &d.Checksum, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("index: document %s: %w", path, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get document: %w", err)
	}
	return &d, nil
}

// AllChecksums returns path -> checksum for every indexed document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// Links returns the links matching f in (path, document order) and the total
// number of matches ignoring Limit and Offset.
func (db *DB) Links(f Filter) ([]models.LinkRecord, int, error) {
	var where []string
	var args []any
	if f.Path != "" {
		where = append(where, "path = ?")
		args = append(args, f.Path)
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.URL != "" {
		where = append(where, "url = ?")
		args = append(args, f.URL)
	}
	if f.Unresolved {
		where = append(where, "resolved = 0")
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM links`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count links: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.conn.Query(`
		SELECT path, kind, url, title, text, label, resolved, line, col, context_path
		FROM links`+clause+`
		ORDER BY path, seq
		LIMIT ? OFFSET ?`, append(args, limit, max(f.Offset, 0))...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list links: %w", err)
	}
	defer rows.Close()

	var out []models.LinkRecord
	for rows.Next() {
		r, err := scanLink(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

func scanLink(rows *sql.Rows) (models.LinkRecord, error) {
	var (
		r       models.LinkRecord
		kind    string
		title   sql.NullString
		label   sql.NullString
		ctxJSON string
	)
	if err := rows.Scan(&r.Source.File, &kind, &r.URL, &title, &r.Text, &label,
		&r.Resolved, &r.Source.Line, &r.Source.Column, &ctxJSON); err != nil {
		return r, fmt.Errorf("index: scan link: %w", err)
	}
	r.Kind = models.Kind(kind)
	if title.Valid {
		r.Title = &title.String
	}
	if label.Valid {
		r.Label = &label.String
	}
	if err := json.Unmarshal([]byte(ctxJSON), &r.ContextPath); err != nil || r.ContextPath == nil {
		r.ContextPath = []string{}
	}
	return r, nil
}

// Stats counts documents and links.
func (db *DB) Stats() (Stats, error) {
	s := Stats{ByKind: make(map[string]int)}
	if err := db.conn.QueryRow(`SELECT count(*) FROM documents`).Scan(&s.Documents); err != nil {
		return s, fmt.Errorf("index: stats: %w", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*), coalesce(sum(resolved = 0), 0) FROM links`).
		Scan(&s.Links, &s.Unresolved); err != nil {
		return s, fmt.Errorf("index: stats: %w", err)
	}
	rows, err := db.conn.Query(`SELECT kind, count(*) FROM links GROUP BY kind`)
	if err != nil {
		return s, fmt.Errorf("index: stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			return s, err
		}
		s.ByKind[k] = n
	}
	return s, rows.Err()
}

// Backlinks returns the paths of all documents that link to url, sorted.
func (db *DB) Backlinks(url string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT path FROM links WHERE url = ? AND url != '' ORDER BY path`, url)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
