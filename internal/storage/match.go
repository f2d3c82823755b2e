package storage

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher decides whether a relative path is a source file.
type Matcher struct {
	includes []string
	excludes []string
}

// NewMatcher validates the patterns and returns a matcher. An empty include
// list means DefaultPatterns.
func NewMatcher(includes, excludes []string) (*Matcher, error) {
	if len(includes) == 0 {
		includes = DefaultPatterns
	}
	for _, p := range append(append([]string(nil), includes...), excludes...) {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("storage: invalid pattern %q", p)
		}
	}
	return &Matcher{includes: includes, excludes: excludes}, nil
}

// Match reports whether rel (slash separated) is included and not excluded.
func (m *Matcher) Match(rel string) bool {
	return matchAny(m.includes, rel) && !m.excluded(rel)
}

func (m *Matcher) excluded(rel string) bool {
	return matchAny(m.excludes, rel)
}

func matchAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, path); err == nil && ok {
			return true
		}
	}
	return false
}
