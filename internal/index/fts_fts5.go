//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"

	"github.com/starford/linkmark/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS links_fts USING fts5(
			path UNINDEXED,
			seq UNINDEXED,
			url,
			text,
			title,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, path string, records []models.LinkRecord) error {
	_, _ = tx.Exec(`DELETE FROM links_fts WHERE path = ?`, path)
	for i, r := range records {
		title, _ := r.TitleValue()
		if _, err := tx.Exec(`INSERT INTO links_fts (path, seq, url, text, title) VALUES (?, ?, ?, ?, ?)`,
			path, i, r.URL, r.Text, title); err != nil {
			return fmt.Errorf("index: upsert fts: %w", err)
		}
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM links_fts WHERE path = ?`, path)
}

// Search performs an FTS5 full-text search over link URLs, text and titles
// and returns matching links with snippets of their text.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT f.path, l.kind, l.url, l.text, l.line, l.col,
		       snippet(links_fts, 3, '<b>', '</b>', '...', 16)
		FROM links_fts f
		JOIN links l ON l.path = f.path AND l.seq = f.seq
		WHERE links_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Kind, &r.URL, &r.Text, &r.Line, &r.Column, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
