// Package aggregate concatenates per-file link streams into one ordered set.
package aggregate

import (
	"iter"

	"github.com/starford/linkmark/internal/models"
)

// Options configures the aggregator.
type Options struct {
	// Deduplicate collapses records sharing (url, file), keeping the first.
	Deduplicate bool
}

// Aggregator owns every record added to it. Files must be added in the order
// the caller supplied them; records are never reordered.
type Aggregator struct {
	opts    Options
	records []models.LinkRecord
}

// New returns an empty aggregator.
func New(opts Options) *Aggregator {
	return &Aggregator{opts: opts}
}

// Add appends one file's records.
func (a *Aggregator) Add(seq iter.Seq[models.LinkRecord]) {
	for r := range seq {
		a.records = append(a.records, r)
	}
}

// AddSlice appends records that were already materialized.
func (a *Aggregator) AddSlice(records []models.LinkRecord) {
	a.records = append(a.records, records...)
}

// Len returns the number of records added so far.
func (a *Aggregator) Len() int {
	return len(a.records)
}

// Finalize returns the ordered record set, deduplicated when configured.
func (a *Aggregator) Finalize() []models.LinkRecord {
	if a.opts.Deduplicate {
		return Deduplicate(a.records)
	}
	out := make([]models.LinkRecord, len(a.records))
	copy(out, a.records)
	return out
}

type dedupKey struct {
	url  string
	file string
}

// Deduplicate keeps the first record for every (url, file) pair and preserves
// order. Applying it twice gives the same result as applying it once.
func Deduplicate(records []models.LinkRecord) []models.LinkRecord {
	seen := make(map[dedupKey]struct{}, len(records))
	out := make([]models.LinkRecord, 0, len(records))
	for _, r := range records {
		k := dedupKey{url: r.URL, file: r.Source.File}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}
