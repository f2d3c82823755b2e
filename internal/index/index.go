package index

import "github.com/starford/linkmark/internal/models"

// LinkIndex defines the interface for link indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type LinkIndex interface {
	UpsertDocument(d DocumentRow, records []models.LinkRecord) error
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	GetDocument(path string) (*DocumentRow, error)
	AllChecksums() (map[string]string, error)
	Links(f Filter) ([]models.LinkRecord, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Stats() (Stats, error)
	Backlinks(url string) ([]string, error)
	Close() error
}

// Verify *DB satisfies LinkIndex at compile time.
var _ LinkIndex = (*DB)(nil)
