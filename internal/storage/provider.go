// Package storage defines the file-system abstraction over a tree of Markdown
// sources.
package storage

import "github.com/starford/linkmark/internal/models"

// DefaultPatterns selects every Markdown file under the root.
var DefaultPatterns = []string{"**/*.md"}

// Provider is the interface for source file operations. Paths are relative
// to the provider root and use forward slashes.
type Provider interface {
	// Root returns the absolute directory the provider is confined to.
	Root() string
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.DocumentMetadata, error)
	// Glob returns the files matching any of patterns and none of excludes,
	// in lexical order.
	Glob(patterns, excludes []string) ([]string, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
}
