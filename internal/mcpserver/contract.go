package mcpserver

// RecordFormatContract describes the link records that linkmark tools return,
// so LLM consumers can interpret them without guessing.
const RecordFormatContract = `# linkmark Link Record Format

Every extracted link is one record. JSON-lines output writes one JSON object
per line:

` + "```" + `json
{"kind":"reference","url":"https://spec.commonmark.org","title":"CommonMark","text":"spec","label":"ref","resolved":true,"source":{"file_identifier":"guide.md","line":3,"column":25},"context_path":["Guide","Links"]}
` + "```" + `

## Fields

- **kind**: one of ` + "`" + `inline` + "`" + `, ` + "`" + `reference` + "`" + `, ` + "`" + `autolink` + "`" + `, ` + "`" + `image` + "`" + `, ` + "`" + `footnote-reference` + "`" + `.
- **url**: destination. Empty when the record is unresolved.
- **title**: link title or null.
- **text**: visible text with inline markup removed (alt text for images).
- **label**: reference label as written for full references, the lowercased whitespace-normalized text for collapsed and shortcut references, the footnote label for footnotes. Null for inline links and autolinks.
- **resolved**: false when a reference or footnote label has no definition.
- **source**: file identifier plus the 1-based line and column of the opening token.
- **context_path**: titles of the enclosing headings, outermost first.

## Delimited output

Fields default to ` + "`" + `kind, url, title, text, file_identifier, line, column` + "`" + `.
Values containing the delimiter or a line break are double-quoted with inner
quotes doubled. With quoting disabled such values are an error and no output
is written. Absent titles and labels are empty, context_path is joined with
` + "`" + ` > ` + "`" + `.

## Ordering

Records follow the order files were given, then document order within a file.
Duplicates are kept unless deduplication is requested, which keeps the first
record per (url, file_identifier).
`
