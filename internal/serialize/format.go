// Package serialize renders link records as JSON-lines or delimited text.
package serialize

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/starford/linkmark/internal/apperr"
)

// Kind selects the output encoding.
type Kind string

// Output kinds.
const (
	JSONLines Kind = "json-lines"
	Delimited Kind = "delimited"
)

// Field names a LinkRecord attribute in delimited output.
type Field string

// Record fields.
const (
	FieldKind        Field = "kind"
	FieldURL         Field = "url"
	FieldTitle       Field = "title"
	FieldText        Field = "text"
	FieldLabel       Field = "label"
	FieldResolved    Field = "resolved"
	FieldFile        Field = "file_identifier"
	FieldLine        Field = "line"
	FieldColumn      Field = "column"
	FieldContextPath Field = "context_path"
)

// AllFields lists every field in canonical order.
var AllFields = []Field{
	FieldKind, FieldURL, FieldTitle, FieldText, FieldLabel, FieldResolved,
	FieldFile, FieldLine, FieldColumn, FieldContextPath,
}

// DefaultFieldOrder is used by delimited output when no order is configured.
var DefaultFieldOrder = []Field{
	FieldKind, FieldURL, FieldTitle, FieldText, FieldFile, FieldLine, FieldColumn,
}

// ContextPathSeparator joins heading titles in delimited output.
const ContextPathSeparator = " > "

// Format is the output configuration.
type Format struct {
	Kind Kind
	// Delimiter separates fields (delimited output only).
	Delimiter rune
	// QuoteFields quotes values that contain the delimiter or a line break.
	// When false such values are rejected.
	QuoteFields bool
	// FieldOrder selects and orders delimited fields; empty means
	// DefaultFieldOrder.
	FieldOrder []Field
	// Header writes a first line with the field names (delimited only).
	Header bool
}

// DefaultFormat returns tab-delimited output with quoting enabled.
func DefaultFormat() Format {
	return Format{
		Kind:        Delimited,
		Delimiter:   '\t',
		QuoteFields: true,
	}
}

// Fields returns the effective field order.
func (f Format) Fields() []Field {
	if len(f.FieldOrder) == 0 {
		return DefaultFieldOrder
	}
	return f.FieldOrder
}

// Validate rejects configurations that cannot produce well-formed output.
func (f Format) Validate() error {
	switch f.Kind {
	case JSONLines, Delimited:
	default:
		return fmt.Errorf("%w: unknown output format %q", apperr.ErrInvalidConfig, f.Kind)
	}
	for _, field := range f.FieldOrder {
		if !field.Valid() {
			return fmt.Errorf("%w: unknown field %q in field order", apperr.ErrInvalidConfig, field)
		}
	}
	if f.Kind == Delimited {
		if err := ValidateDelimiter(f.Delimiter); err != nil {
			return err
		}
	}
	return nil
}

// ValidateDelimiter rejects delimiters that would make lines ambiguous.
func ValidateDelimiter(d rune) error {
	switch {
	case d == 0:
		return fmt.Errorf("%w: delimiter is empty", apperr.ErrInvalidConfig)
	case d == '"' || d == '\n' || d == '\r':
		return fmt.Errorf("%w: delimiter %q is reserved", apperr.ErrInvalidConfig, d)
	case !utf8.ValidRune(d) || d == utf8.RuneError:
		return fmt.Errorf("%w: delimiter is not a valid character", apperr.ErrInvalidConfig)
	}
	return nil
}

// Valid reports whether f names a record field.
func (f Field) Valid() bool {
	for _, known := range AllFields {
		if f == known {
			return true
		}
	}
	return false
}

// ParseKind maps a user-facing format name to a Kind. "json" and "jsonl" are
// accepted as aliases of json-lines, "csv", "tsv" and "text" of delimited.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json-lines", "jsonl", "json":
		return JSONLines, nil
	case "delimited", "csv", "tsv", "text":
		return Delimited, nil
	}
	return "", fmt.Errorf("%w: unknown output format %q", apperr.ErrInvalidConfig, s)
}

// ParseDelimiter converts a one-character string into a delimiter. The
// escapes `\t` and "tab" name the tab character.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case `\t`, "tab":
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("%w: delimiter must be exactly one character, got %q", apperr.ErrInvalidConfig, s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if err := ValidateDelimiter(r); err != nil {
		return 0, err
	}
	return r, nil
}

// ParseFields parses a comma-separated field list.
func ParseFields(s string) ([]Field, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]Field, 0, len(parts))
	for _, p := range parts {
		f := Field(strings.TrimSpace(p))
		if !f.Valid() {
			return nil, fmt.Errorf("%w: unknown field %q in field order", apperr.ErrInvalidConfig, f)
		}
		out = append(out, f)
	}
	return out, nil
}
