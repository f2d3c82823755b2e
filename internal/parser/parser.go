// Package parser turns Markdown source into an mdtree document, splitting off
// YAML frontmatter first so that positions still refer to the original file.
package parser

import (
	"strings"

	"github.com/yuin/goldmark"
	gmparser "github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"

	"github.com/starford/linkmark/internal/mdtree"
)

// Result holds the output of parsing a Markdown file.
type Result struct {
	Tree        mdtree.Node
	Frontmatter map[string]any
	Title       string
}

// Parser is a configured Markdown parser. It is safe for concurrent use.
type Parser struct {
	opts Options
	md   goldmark.Markdown
}

// New returns a parser with the given extensions enabled.
func New(opts Options) *Parser {
	return &Parser{opts: opts, md: newMarkdown(opts)}
}

var defaultParser = New(DefaultOptions())

// Parse parses data with the default options.
func Parse(data []byte) (*Result, error) {
	return defaultParser.Parse(data)
}

// Parse builds the document tree of data. Malformed Markdown is never an
// error: CommonMark defines a parse for every input.
func (p *Parser) Parse(data []byte) (*Result, error) {
	fm := splitFrontmatter(data)
	body := data[fm.bodyStart:]

	ctx := newTrackingContext(p.opts.Footnotes)
	doc := p.md.Parser().Parse(text.NewReader(body), gmparser.WithContext(ctx))
	tree := newConverter(body, ctx, fm.lineOffset).document(doc)

	return &Result{
		Tree:        tree,
		Frontmatter: fm.fields,
		Title:       deriveTitle(fm.fields, tree),
	}, nil
}

// deriveTitle returns the frontmatter "title" if present, otherwise the text
// of the first H1 heading, otherwise the empty string.
func deriveTitle(fm map[string]any, tree mdtree.Node) string {
	if s, ok := fm["title"].(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	if h := firstH1(tree); h != nil {
		return strings.TrimSpace(mdtree.Flatten(h))
	}
	return ""
}

func firstH1(n mdtree.Node) mdtree.Node {
	if n == nil {
		return nil
	}
	if n.Kind() == mdtree.KindHeading && n.Attrs().Level == 1 {
		return n
	}
	for _, c := range n.Children() {
		if h := firstH1(c); h != nil {
			return h
		}
	}
	return nil
}
