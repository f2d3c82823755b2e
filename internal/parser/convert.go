package parser

import (
	"bytes"
	"sort"
	"strings"

	gmast "github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/util"

	"github.com/starford/linkmark/internal/mdtree"
	"github.com/starford/linkmark/internal/resolver"
)

// converter turns a goldmark AST into an mdtree document.
type converter struct {
	src        []byte
	ctx        *trackingContext
	lineStarts []int
	lineOffset int
	footnotes  map[int]string // footnote index -> label
}

func newConverter(src []byte, ctx *trackingContext, lineOffset int) *converter {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &converter{
		src:        src,
		ctx:        ctx,
		lineStarts: starts,
		lineOffset: lineOffset,
		footnotes:  make(map[int]string),
	}
}

// pos maps a byte offset of the body to a file position.
func (c *converter) pos(offset int) mdtree.Position {
	if offset < 0 || offset > len(c.src) {
		return mdtree.Position{}
	}
	i := sort.Search(len(c.lineStarts), func(i int) bool { return c.lineStarts[i] > offset }) - 1
	return mdtree.Position{
		Line:   i + 1 + c.lineOffset,
		Column: offset - c.lineStarts[i] + 1,
	}
}

func (c *converter) document(doc gmast.Node) *mdtree.Element {
	_ = gmast.Walk(doc, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if fn, ok := n.(*east.Footnote); entering && ok && fn.Index > 0 {
			c.footnotes[fn.Index] = string(fn.Ref)
		}
		return gmast.WalkContinue, nil
	})

	children := c.children(doc)
	children = append(children, c.definitions()...)
	return mdtree.Document(children...)
}

func (c *converter) children(n gmast.Node) []mdtree.Node {
	var out []mdtree.Node
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		if m := c.node(child); m != nil {
			out = append(out, m)
		}
	}
	return out
}

func (c *converter) node(n gmast.Node) mdtree.Node {
	switch n := n.(type) {
	case *gmast.Heading:
		var p mdtree.Position
		if lines := n.Lines(); lines.Len() > 0 {
			p = c.pos(lines.At(0).Start)
		}
		return mdtree.Heading(n.Level, p, c.children(n)...)
	case *gmast.Text:
		return mdtree.Text(c.text(n))
	case *gmast.String:
		return mdtree.Text(string(n.Value))
	case *gmast.RawHTML, *gmast.HTMLBlock:
		return nil
	case *gmast.Link:
		return c.link(n, false, n.Destination, n.Title)
	case *gmast.Image:
		return c.link(n, true, n.Destination, n.Title)
	case *gmast.AutoLink:
		return mdtree.AutoLink(c.pos(c.ctx.infos[n].open), string(n.URL(c.src)))
	case *east.FootnoteLink:
		label := c.footnotes[n.Index]
		return mdtree.FootnoteRef(c.pos(c.ctx.infos[n].open), label)
	case *east.Footnote:
		label := string(n.Ref)
		return mdtree.FootnoteDef(c.find("[^"+label+"]:", 0), label, c.children(n)...)
	case *east.FootnoteBacklink:
		return nil
	}
	return mdtree.Container(c.children(n)...)
}

func (c *converter) text(t *gmast.Text) string {
	v := t.Segment.Value(c.src)
	if !t.IsRaw() {
		v = util.ResolveNumericReferences(util.ResolveEntityNames(util.UnescapePunctuations(v)))
	}
	s := string(v)
	if t.SoftLineBreak() || t.HardLineBreak() {
		s += " "
	}
	return s
}

// link converts a link or image according to the form it was written in.
// Shortcut references to labels with no definition are plain text in
// CommonMark and come back as a container around the bracketed text, except
// footnote-style labels, which become unresolved footnote references.
func (c *converter) link(n gmast.Node, image bool, dest, title []byte) mdtree.Node {
	info, known := c.ctx.infos[n]
	p := c.pos(info.open)
	children := c.children(n)

	if !known {
		info.form = formInline
	}
	switch info.form {
	case formInline:
		if image {
			return mdtree.Image(p, string(dest), string(title), children...)
		}
		return mdtree.InlineLink(p, string(dest), string(title), children...)
	case formFull:
		return c.reference(p, image, info.label, children)
	case formCollapsed:
		return c.reference(p, image, resolver.NormalizeLabel(info.label), children)
	}

	if c.ctx.defined(info.label) {
		return c.reference(p, image, resolver.NormalizeLabel(info.label), children)
	}
	if c.ctx.footnotes && !image && strings.HasPrefix(info.label, "^") {
		return mdtree.FootnoteRef(p, strings.TrimPrefix(info.label, "^"))
	}

	open := "["
	if image {
		open = "!["
	}
	wrapped := make([]mdtree.Node, 0, len(children)+2)
	wrapped = append(wrapped, mdtree.Text(open))
	wrapped = append(wrapped, children...)
	wrapped = append(wrapped, mdtree.Text("]"))
	return mdtree.Container(wrapped...)
}

func (c *converter) reference(p mdtree.Position, image bool, label string, children []mdtree.Node) mdtree.Node {
	if image {
		return mdtree.ReferenceImage(p, label, children...)
	}
	return mdtree.ReferenceLink(p, label, children...)
}

// definitions returns the reference definitions in the order they were
// parsed. Positions are located by searching the source for each label.
func (c *converter) definitions() []mdtree.Node {
	out := make([]mdtree.Node, 0, len(c.ctx.refs))
	cursor := 0
	for _, ref := range c.ctx.refs {
		label := string(ref.Label())
		p := c.find("["+label+"]:", cursor)
		if p.Line > 0 {
			cursor = c.lineStarts[p.Line-1-c.lineOffset] + p.Column
		}
		out = append(out, mdtree.Definition(p, label, string(ref.Destination()), string(ref.Title())))
	}
	return out
}

// find returns the position of the first occurrence of needle at or after
// from, or the zero position.
func (c *converter) find(needle string, from int) mdtree.Position {
	if from > len(c.src) {
		return mdtree.Position{}
	}
	i := bytes.Index(c.src[from:], []byte(needle))
	if i < 0 {
		return mdtree.Position{}
	}
	return c.pos(from + i)
}
