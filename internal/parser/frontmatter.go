package parser

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// frontmatter is the YAML header of a document and where its body starts.
type frontmatter struct {
	fields map[string]any
	// bodyStart is the byte offset of the body in the original data.
	bodyStart int
	// lineOffset is the number of lines consumed by the header.
	lineOffset int
}

// splitFrontmatter separates YAML frontmatter (between leading --- lines)
// from the Markdown body. Without a closed, valid header the whole input is
// body.
func splitFrontmatter(data []byte) frontmatter {
	const delim = "---"
	none := frontmatter{}

	first, rest, ok := bytes.Cut(data, []byte("\n"))
	if !ok || string(bytes.TrimRight(first, " \t\r")) != delim {
		return none
	}

	headerStart := len(first) + 1
	offset := headerStart
	for len(rest) > 0 {
		line, next, found := bytes.Cut(rest, []byte("\n"))
		lineEnd := offset + len(line)
		if found {
			lineEnd++
		}
		if string(bytes.TrimRight(line, " \t\r")) == delim {
			var fields map[string]any
			if err := yaml.Unmarshal(data[headerStart:offset], &fields); err != nil {
				// Invalid YAML: treat everything as body.
				return none
			}
			return frontmatter{
				fields:     fields,
				bodyStart:  lineEnd,
				lineOffset: bytes.Count(data[:lineEnd], []byte("\n")),
			}
		}
		offset = lineEnd
		rest = next
		if !found {
			break
		}
	}
	// No closing delimiter.
	return none
}
