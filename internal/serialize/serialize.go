package serialize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/starford/linkmark/internal/apperr"
	"github.com/starford/linkmark/internal/models"
)

// FieldError reports a value that cannot be written without quoting.
type FieldError struct {
	Record int
	Field  Field
	Value  string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("serialize: record %d: field %q contains the delimiter or a line break (value %q); enable quote-fields",
		e.Record, e.Field, e.Value)
}

func (e *FieldError) Unwrap() error {
	return apperr.ErrUnescapable
}

// Serialize writes records to w in format f. The format is validated first
// and nothing is written when any record fails to encode.
func Serialize(w io.Writer, records []models.LinkRecord, f Format) error {
	if err := f.Validate(); err != nil {
		return err
	}

	var buf bytes.Buffer
	var err error
	switch f.Kind {
	case JSONLines:
		err = writeJSONLines(&buf, records)
	case Delimited:
		err = writeDelimited(&buf, records, f)
	}
	if err != nil {
		return err
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("serialize: write: %w", err)
	}
	return nil
}

func writeJSONLines(buf *bytes.Buffer, records []models.LinkRecord) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	for i, r := range records {
		if r.ContextPath == nil {
			r.ContextPath = []string{}
		}
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("serialize: record %d: %w", i, err)
		}
	}
	return nil
}

// ParseJSONLine decodes one JSON-lines record.
func ParseJSONLine(line []byte) (models.LinkRecord, error) {
	var r models.LinkRecord
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&r); err != nil {
		return models.LinkRecord{}, fmt.Errorf("serialize: decode line: %w", err)
	}
	return r, nil
}

func writeDelimited(buf *bytes.Buffer, records []models.LinkRecord, f Format) error {
	fields := f.Fields()
	delim := string(f.Delimiter)
	values := make([]string, len(fields))

	if f.Header {
		for j, field := range fields {
			values[j] = string(field)
		}
		if err := writeRow(buf, values, fields, -1, delim, f.QuoteFields); err != nil {
			return err
		}
	}

	for i, r := range records {
		for j, field := range fields {
			values[j] = FieldValue(r, field)
		}
		if err := writeRow(buf, values, fields, i, delim, f.QuoteFields); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(buf *bytes.Buffer, values []string, fields []Field, record int, delim string, quote bool) error {
	for j, v := range values {
		if j > 0 {
			buf.WriteString(delim)
		}
		if !needsQuoting(v, delim) {
			buf.WriteString(v)
			continue
		}
		if !quote {
			if strings.Contains(v, delim) || strings.ContainsAny(v, "\r\n") {
				return &FieldError{Record: record, Field: fields[j], Value: v}
			}
			// A bare double quote is harmless when quoting is off.
			buf.WriteString(v)
			continue
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(v, `"`, `""`))
		buf.WriteByte('"')
	}
	buf.WriteByte('\n')
	return nil
}

func needsQuoting(v, delim string) bool {
	return strings.Contains(v, delim) || strings.ContainsAny(v, "\"\r\n")
}

// FieldValue renders one record attribute as delimited text. Absent optional
// values render as the empty string.
func FieldValue(r models.LinkRecord, f Field) string {
	switch f {
	case FieldKind:
		return string(r.Kind)
	case FieldURL:
		return r.URL
	case FieldTitle:
		title, _ := r.TitleValue()
		return title
	case FieldText:
		return r.Text
	case FieldLabel:
		label, _ := r.LabelValue()
		return label
	case FieldResolved:
		return strconv.FormatBool(r.Resolved)
	case FieldFile:
		return r.Source.File
	case FieldLine:
		return strconv.Itoa(r.Source.Line)
	case FieldColumn:
		return strconv.Itoa(r.Source.Column)
	case FieldContextPath:
		return strings.Join(r.ContextPath, ContextPathSeparator)
	}
	return ""
}
