// Package linkservice coordinates extraction, storage and the link index for
// the HTTP API and the MCP server.
package linkservice

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/starford/linkmark/internal/aggregate"
	"github.com/starford/linkmark/internal/apperr"
	"github.com/starford/linkmark/internal/extractor"
	"github.com/starford/linkmark/internal/index"
	"github.com/starford/linkmark/internal/models"
	"github.com/starford/linkmark/internal/serialize"
	"github.com/starford/linkmark/internal/storage"
)

// StdinFile is the file identifier used for content that has no path.
const StdinFile = "-"

// DocumentDetail is the full link view of one indexed source file.
type DocumentDetail struct {
	Path        string              `json:"path"`
	Title       string              `json:"title"`
	Checksum    string              `json:"checksum"`
	Frontmatter map[string]any      `json:"frontmatter,omitempty"`
	Links       []models.LinkRecord `json:"links"`
	Backlinks   []string            `json:"backlinks"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// ExtractRequest is one ad-hoc extraction of in-memory Markdown.
type ExtractRequest struct {
	File        string
	Content     []byte
	Format      serialize.Format
	Deduplicate bool
}

// ExtractResult carries the serialized records.
type ExtractResult struct {
	Output  []byte
	Records int
}

// Service coordinates storage, extraction and index operations.
type Service struct {
	store storage.Provider
	db    index.LinkIndex
	ext   *extractor.Service
}

// NewService creates a new link service. store and db may be nil when only
// ad-hoc extraction is needed.
func NewService(store storage.Provider, db index.LinkIndex, ext *extractor.Service) *Service {
	if ext == nil {
		ext = extractor.New()
	}
	return &Service{store: store, db: db, ext: ext}
}

// Extract extracts, optionally deduplicates and serializes req.Content.
// Nothing is returned when a record cannot be serialized in req.Format.
func (s *Service) Extract(_ context.Context, req ExtractRequest) (*ExtractResult, error) {
	if err := req.Format.Validate(); err != nil {
		return nil, err
	}
	file := req.File
	if file == "" {
		file = StdinFile
	}
	records, err := s.ext.ExtractBytes(file, req.Content)
	if err != nil {
		return nil, err
	}
	agg := aggregate.New(aggregate.Options{Deduplicate: req.Deduplicate})
	agg.AddSlice(records)
	records = agg.Finalize()

	var buf bytes.Buffer
	if err := serialize.Serialize(&buf, records, req.Format); err != nil {
		return nil, err
	}
	return &ExtractResult{Output: buf.Bytes(), Records: len(records)}, nil
}

// GetDocument reads a source file, extracts its links and adds the documents
// that link back to it.
func (s *Service) GetDocument(_ context.Context, path string) (*DocumentDetail, error) {
	if s.store == nil || s.db == nil {
		return nil, fmt.Errorf("linkservice: no sources configured: %w", apperr.ErrNotFound)
	}
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("linkservice: %s: %w", path, apperr.ErrNotFound)
		}
		return nil, err
	}
	doc, err := s.ext.Extract(path, data)
	if err != nil {
		return nil, err
	}
	bl, err := s.db.Backlinks(path)
	if err != nil {
		return nil, err
	}
	detail := &DocumentDetail{
		Path:        path,
		Title:       doc.Title,
		Checksum:    storage.Checksum(data),
		Frontmatter: doc.Frontmatter,
		Links:       nonNilSlice(doc.Records),
		Backlinks:   nonNilSlice(bl),
		UpdatedAt:   time.Now().UTC(),
	}
	if row, err := s.db.GetDocument(path); err == nil {
		detail.UpdatedAt = row.UpdatedAt
	}
	return detail, nil
}

// ListLinks returns indexed links matching f and the total match count.
func (s *Service) ListLinks(_ context.Context, f index.Filter) ([]models.LinkRecord, int, error) {
	if f.Kind != "" && !f.Kind.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown link kind %q", apperr.ErrInvalidConfig, f.Kind)
	}
	links, total, err := s.db.Links(f)
	if err != nil {
		return nil, 0, err
	}
	return nonNilSlice(links), total, nil
}

// Search delegates full-text search over link text and URLs to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	res, err := s.db.Search(query, limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(res), nil
}

// Stats returns index-wide counts.
func (s *Service) Stats(_ context.Context) (index.Stats, error) {
	return s.db.Stats()
}

// Backlinks returns all document paths that link to url.
func (s *Service) Backlinks(_ context.Context, url string) ([]string, error) {
	bl, err := s.db.Backlinks(url)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(bl), nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
