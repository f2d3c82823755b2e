// Package models defines the domain types for linkmark.
package models

import (
	"strings"
	"time"
)

// Kind is the syntactic shape a link was written in.
type Kind string

// Link kinds.
const (
	KindInline    Kind = "inline"
	KindReference Kind = "reference"
	KindAutolink  Kind = "autolink"
	KindImage     Kind = "image"
	KindFootnote  Kind = "footnote-reference"
)

// Kinds lists every link kind in a stable order.
var Kinds = []Kind{KindInline, KindReference, KindAutolink, KindImage, KindFootnote}

// Valid reports whether k is a known link kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Source is the position of the link-opening token in its file.
type Source struct {
	File   string `json:"file_identifier"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// LinkRecord is one extracted link. Records are values; the constructor copies
// every slice it is given, so a record never aliases walker state.
type LinkRecord struct {
	Kind        Kind     `json:"kind"`
	URL         string   `json:"url"`
	Title       *string  `json:"title"`
	Text        string   `json:"text"`
	Label       *string  `json:"label"`
	Resolved    bool     `json:"resolved"`
	Source      Source   `json:"source"`
	ContextPath []string `json:"context_path"`
}

// RecordOption sets an optional LinkRecord attribute.
type RecordOption func(*LinkRecord)

// WithTitle sets the link title.
func WithTitle(title string) RecordOption {
	return func(r *LinkRecord) {
		r.Title = &title
	}
}

// WithLabel sets the reference or footnote label.
func WithLabel(label string) RecordOption {
	return func(r *LinkRecord) {
		r.Label = &label
	}
}

// Unresolved marks the record as pointing at a missing definition.
// An unresolved record never carries a URL or title.
func Unresolved() RecordOption {
	return func(r *LinkRecord) {
		r.Resolved = false
	}
}

// NewLinkRecord builds a record. Resolved defaults to true.
func NewLinkRecord(kind Kind, url, text string, src Source, contextPath []string, opts ...RecordOption) LinkRecord {
	r := LinkRecord{
		Kind:        kind,
		URL:         url,
		Text:        text,
		Resolved:    true,
		Source:      src,
		ContextPath: append(make([]string, 0, len(contextPath)), contextPath...),
	}
	for _, opt := range opts {
		opt(&r)
	}
	if !r.Resolved {
		r.URL = ""
		r.Title = nil
	}
	r.sanitize()
	return r
}

// sanitize replaces invalid UTF-8 in every string field with U+FFFD, so a
// record holds exactly what its JSON encoding carries.
func (r *LinkRecord) sanitize() {
	r.URL = validUTF8(r.URL)
	r.Text = validUTF8(r.Text)
	r.Source.File = validUTF8(r.Source.File)
	if r.Title != nil {
		t := validUTF8(*r.Title)
		r.Title = &t
	}
	if r.Label != nil {
		l := validUTF8(*r.Label)
		r.Label = &l
	}
	for i, h := range r.ContextPath {
		r.ContextPath[i] = validUTF8(h)
	}
}

func validUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

// TitleValue returns the title and whether it is present.
func (r LinkRecord) TitleValue() (string, bool) {
	if r.Title == nil {
		return "", false
	}
	return *r.Title, true
}

// LabelValue returns the label and whether it is present.
func (r LinkRecord) LabelValue() (string, bool) {
	if r.Label == nil {
		return "", false
	}
	return *r.Label, true
}

// DocumentMetadata is a lightweight representation of a source file returned
// by storage list operations.
type DocumentMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
