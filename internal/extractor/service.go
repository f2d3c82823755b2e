// Package extractor runs the parse, walk, aggregate and serialize pipeline
// over a set of Markdown files.
package extractor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/linkmark/internal/aggregate"
	"github.com/starford/linkmark/internal/logfields"
	"github.com/starford/linkmark/internal/metrics"
	"github.com/starford/linkmark/internal/models"
	"github.com/starford/linkmark/internal/parser"
	"github.com/starford/linkmark/internal/serialize"
	"github.com/starford/linkmark/internal/walker"
)

// ReadFunc loads the content of one input file.
type ReadFunc func(path string) ([]byte, error)

// ProgressFunc is called after every file with the number of files done.
type ProgressFunc func(done, total int)

// Document is the extraction result for one file.
type Document struct {
	Path        string
	Title       string
	Frontmatter map[string]any
	Records     []models.LinkRecord
}

// FileResult pairs an input path with its document or the error that
// prevented reading it.
type FileResult struct {
	Path     string
	Document *Document
	Err      error
}

// Summary describes one Run.
type Summary struct {
	Files   int
	Failed  int
	Records int
}

// Service extracts links from Markdown sources. It is safe for concurrent use.
type Service struct {
	parser   *parser.Parser
	read     ReadFunc
	metrics  *metrics.Recorder
	logger   *slog.Logger
	workers  int
	progress ProgressFunc
}

// Option configures a Service.
type Option func(*Service)

// WithParser sets the Markdown parser.
func WithParser(p *parser.Parser) Option {
	return func(s *Service) { s.parser = p }
}

// WithReader sets how ExtractFiles loads paths. The default is os.ReadFile.
func WithReader(read ReadFunc) Option {
	return func(s *Service) { s.read = read }
}

// WithMetrics records every extracted document.
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithWorkers bounds how many files are processed at once. Values below one
// mean GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(s *Service) { s.workers = n }
}

// WithProgress reports per-file progress of ExtractFiles. fn is called from
// worker goroutines, one call at a time, with done increasing by one per call.
func WithProgress(fn ProgressFunc) Option {
	return func(s *Service) { s.progress = fn }
}

// New returns a Service with the default parser, os.ReadFile and one worker
// per CPU.
func New(opts ...Option) *Service {
	s := &Service{}
	for _, opt := range opts {
		opt(s)
	}
	if s.parser == nil {
		s.parser = parser.New(parser.DefaultOptions())
	}
	if s.read == nil {
		s.read = os.ReadFile
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.workers < 1 {
		s.workers = runtime.GOMAXPROCS(0)
	}
	return s
}

// Extract parses data and returns its title, frontmatter and link records.
// file is only used as the records' file identifier.
func (s *Service) Extract(file string, data []byte) (*Document, error) {
	start := time.Now()
	res, err := s.parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("extractor: parse %s: %w", file, err)
	}
	records := walker.All(res.Tree, file)
	s.metrics.ObserveDocument(records, time.Since(start))
	return &Document{
		Path:        file,
		Title:       res.Title,
		Frontmatter: res.Frontmatter,
		Records:     records,
	}, nil
}

// ExtractBytes returns the link records of one in-memory document.
func (s *Service) ExtractBytes(file string, data []byte) ([]models.LinkRecord, error) {
	doc, err := s.Extract(file, data)
	if err != nil {
		return nil, err
	}
	return doc.Records, nil
}

// ExtractFiles reads and extracts paths in parallel. Results come back in the
// order of paths regardless of completion order. A file that cannot be read
// carries its error in its FileResult; only cancellation of ctx fails the
// whole call.
func (s *Service) ExtractFiles(ctx context.Context, paths []string) ([]FileResult, error) {
	results := make([]FileResult, len(paths))
	var (
		mu   sync.Mutex
		done int
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, p := range paths {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			results[i] = s.extractFile(p)
			if s.progress != nil {
				mu.Lock()
				done++
				s.progress(done, len(paths))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extractor: %w", err)
	}
	return results, nil
}

func (s *Service) extractFile(path string) FileResult {
	data, err := s.read(path)
	if err != nil {
		return FileResult{Path: path, Err: err}
	}
	doc, err := s.Extract(path, data)
	if err != nil {
		return FileResult{Path: path, Err: err}
	}
	return FileResult{Path: path, Document: doc}
}

// Run extracts paths and writes the aggregated records to w in format f.
// Unreadable files are logged and skipped. Nothing is written when the
// records cannot be serialized.
func (s *Service) Run(ctx context.Context, paths []string, w io.Writer, f serialize.Format, dedupe bool) (Summary, error) {
	if err := f.Validate(); err != nil {
		return Summary{}, err
	}

	results, err := s.ExtractFiles(ctx, paths)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{Files: len(paths)}
	agg := aggregate.New(aggregate.Options{Deduplicate: dedupe})
	for _, r := range results {
		if r.Err != nil {
			sum.Failed++
			s.logger.Warn("extract: skipping file", logfields.Path(r.Path), logfields.Error(r.Err))
			continue
		}
		agg.AddSlice(r.Document.Records)
	}

	records := agg.Finalize()
	sum.Records = len(records)
	if err := serialize.Serialize(w, records, f); err != nil {
		return sum, err
	}
	s.logger.Debug("extract: done",
		logfields.Count(sum.Records),
		slog.Int("files", sum.Files),
		slog.Int("failed", sum.Failed),
		logfields.Format(string(f.Kind)))
	return sum, nil
}
