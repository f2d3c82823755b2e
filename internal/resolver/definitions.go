package resolver

import (
	"strings"

	"golang.org/x/text/cases"
)

// Definition is the target of a reference definition.
type Definition struct {
	URL      string
	Title    string
	HasTitle bool
}

// Definitions maps normalized reference labels to their first definition.
type Definitions struct {
	byLabel map[string]Definition
}

// NewDefinitions returns an empty definition table.
func NewDefinitions() *Definitions {
	return &Definitions{byLabel: make(map[string]Definition)}
}

// Add records def under label unless the label is already defined.
// It reports whether def was stored.
func (d *Definitions) Add(label string, def Definition) bool {
	key := NormalizeLabel(label)
	if key == "" {
		return false
	}
	if _, ok := d.byLabel[key]; ok {
		return false
	}
	d.byLabel[key] = def
	return true
}

// Lookup returns the definition for label.
func (d *Definitions) Lookup(label string) (Definition, bool) {
	if d == nil {
		return Definition{}, false
	}
	def, ok := d.byLabel[NormalizeLabel(label)]
	return def, ok
}

// Len returns the number of distinct labels.
func (d *Definitions) Len() int {
	if d == nil {
		return 0
	}
	return len(d.byLabel)
}

// Footnotes is the set of footnote labels defined in a document.
type Footnotes map[string]struct{}

// Add records a footnote label.
func (f Footnotes) Add(label string) {
	f[NormalizeLabel(label)] = struct{}{}
}

// Has reports whether label is defined.
func (f Footnotes) Has(label string) bool {
	_, ok := f[NormalizeLabel(label)]
	return ok
}

// NormalizeLabel applies CommonMark label matching: surrounding whitespace is
// trimmed, internal whitespace runs collapse to one space and the result is
// Unicode case folded. A Caser is stateful, so each call gets its own.
func NormalizeLabel(label string) string {
	return cases.Fold().String(strings.Join(strings.Fields(label), " "))
}
