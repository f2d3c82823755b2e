package index

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/linkmark/internal/extractor"
	"github.com/starford/linkmark/internal/logfields"
	"github.com/starford/linkmark/internal/storage"
)

// Sources selects which files under a storage root are indexed.
type Sources struct {
	Store    storage.Provider
	Includes []string
	Excludes []string
	// Progress, when set, is called after each file is examined.
	Progress func(done, total int)
}

// Report counts what a Sync changed.
type Report struct {
	Indexed   int
	Unchanged int
	Removed   int
	Failed    int
}

// Sync walks the sources and brings the index up to date:
//   - new or changed files are extracted and upserted
//   - files removed from disk are deleted from the index
func Sync(ctx context.Context, db *DB, src Sources, svc *extractor.Service, logger *slog.Logger) (Report, error) {
	var rep Report
	start := time.Now()

	paths, err := src.Store.Glob(src.Includes, src.Excludes)
	if err != nil {
		return rep, err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return rep, err
	}

	disk := make(map[string]struct{}, len(paths))
	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		disk[p] = struct{}{}

		data, err := src.Store.Read(p)
		if err != nil {
			rep.Failed++
			logger.Warn("sync: read failed", logfields.Path(p), logfields.Error(err))
		} else if checksums[p] == storage.Checksum(data) {
			rep.Unchanged++
		} else if err := indexFile(db, svc, p, data); err != nil {
			rep.Failed++
			logger.Warn("sync: index failed", logfields.Path(p), logfields.Error(err))
		} else {
			rep.Indexed++
			logger.Debug("sync: indexed", logfields.Path(p))
		}

		if src.Progress != nil {
			src.Progress(i+1, len(paths))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteDocument(p); err != nil {
			logger.Warn("sync: delete failed", logfields.Path(p), logfields.Error(err))
			continue
		}
		rep.Removed++
		logger.Debug("sync: removed stale", logfields.Path(p))
	}

	logger.Info("sync: done",
		slog.Int("indexed", rep.Indexed),
		slog.Int("unchanged", rep.Unchanged),
		slog.Int("removed", rep.Removed),
		slog.Int("failed", rep.Failed),
		logfields.Since(start))
	return rep, nil
}

// indexFile extracts data and upserts the document and its links.
func indexFile(db *DB, svc *extractor.Service, path string, data []byte) error {
	doc, err := svc.Extract(path, data)
	if err != nil {
		return err
	}
	row := DocumentRow{
		Path:      path,
		Title:     doc.Title,
		Checksum:  storage.Checksum(data),
		UpdatedAt: time.Now().UTC(),
	}
	return db.UpsertDocument(row, doc.Records)
}
