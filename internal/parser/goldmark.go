package parser

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	gmparser "github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// linkForm is how a link or image was written.
type linkForm int

const (
	formInline linkForm = iota
	formFull
	formCollapsed
	formShortcut
)

// linkInfo is what the inline parser wrappers learn about a node that the
// goldmark AST does not keep.
type linkInfo struct {
	// open is the byte offset of the opening token ('[', '!', '<' or the
	// first URL byte of a bare autolink).
	open  int
	form  linkForm
	label string
}

// trackingContext records reference definitions in document order and lets
// full and collapsed references to missing labels survive as link nodes, so
// they can be reported instead of silently becoming text.
type trackingContext struct {
	gmparser.Context
	refs            []gmparser.Reference
	infos           map[gmast.Node]linkInfo
	allowUnresolved bool
	footnotes       bool
}

func newTrackingContext(footnotes bool) *trackingContext {
	return &trackingContext{
		Context:   gmparser.NewContext(),
		infos:     make(map[gmast.Node]linkInfo),
		footnotes: footnotes,
	}
}

func (c *trackingContext) AddReference(ref gmparser.Reference) {
	c.refs = append(c.refs, ref)
	c.Context.AddReference(ref)
}

func (c *trackingContext) Reference(label string) (gmparser.Reference, bool) {
	if ref, ok := c.Context.Reference(label); ok {
		return ref, true
	}
	if c.allowUnresolved || (c.footnotes && strings.HasPrefix(label, "^")) {
		return gmparser.NewReference([]byte(label), nil, nil), true
	}
	return nil, false
}

// defined reports whether a raw label has a reference definition.
func (c *trackingContext) defined(raw string) bool {
	_, ok := c.Context.Reference(util.ToLinkReference([]byte(raw)))
	return ok
}

// closeBlocker is implemented by inline parsers that keep per-block state.
type closeBlocker interface {
	CloseBlock(parent gmast.Node, block text.Reader, pc gmparser.Context)
}

// linkFormParser wraps goldmark's link parser and records, for every link and
// image it produces, the opening offset, the written form and the raw label.
type linkFormParser struct {
	inner gmparser.InlineParser
}

func (p *linkFormParser) Trigger() []byte {
	return p.inner.Trigger()
}

func (p *linkFormParser) CloseBlock(parent gmast.Node, block text.Reader, pc gmparser.Context) {
	if cb, ok := p.inner.(closeBlocker); ok {
		cb.CloseBlock(parent, block, pc)
	}
}

func (p *linkFormParser) Parse(parent gmast.Node, block text.Reader, pc gmparser.Context) gmast.Node {
	tc, ok := pc.(*trackingContext)
	line, seg := block.PeekLine()
	if !ok || len(line) == 0 || line[0] != ']' {
		return p.inner.Parse(parent, block, pc)
	}

	closeAt := seg.Start
	tc.allowUnresolved = len(line) > 1 && line[1] == '['
	node := p.inner.Parse(parent, block, pc)
	tc.allowUnresolved = false

	switch node.(type) {
	case *gmast.Link, *gmast.Image:
	default:
		return node
	}

	src := block.Source()
	_, after := block.Position()
	_, isImage := node.(*gmast.Image)
	open := openerOffset(node, closeAt, src, tc.infos, isImage)

	textStart := open + 1
	if isImage {
		textStart++
	}
	raw := ""
	if textStart <= closeAt {
		raw = string(src[textStart:closeAt])
	}

	info := linkInfo{open: open, form: formShortcut, label: raw}
	tail := src[closeAt:max(after.Start, closeAt)]
	switch {
	case len(tail) > 1 && tail[1] == '(':
		info.form = formInline
		info.label = ""
	case len(tail) > 1 && tail[1] == '[':
		label := strings.TrimSuffix(string(tail[2:]), "]")
		if strings.TrimSpace(label) == "" {
			info.form = formCollapsed
		} else {
			info.form = formFull
			info.label = label
		}
	}
	tc.infos[node] = info
	return node
}

// openerOffset finds the '[' (or "![") that opened n. Nested links and
// images were parsed first and already know their own opener; otherwise the
// first text segment bounds the search.
func openerOffset(n gmast.Node, closeAt int, src []byte, infos map[gmast.Node]linkInfo, isImage bool) int {
	bound := closeAt
	for c := n.FirstChild(); c != nil; c = c.FirstChild() {
		if info, ok := infos[c]; ok {
			bound = info.open
			break
		}
		if t, ok := c.(*gmast.Text); ok {
			bound = t.Segment.Start
			break
		}
	}
	if bound > len(src) {
		bound = len(src)
	}
	open := bytes.LastIndexByte(src[:bound], '[')
	if open < 0 {
		return closeAt
	}
	if isImage && open > 0 && src[open-1] == '!' {
		open--
	}
	return open
}

// offsetParser records where the nodes of an inline parser start. It is used
// for autolinks and footnote references, whose goldmark nodes carry no
// position of their own.
type offsetParser struct {
	inner gmparser.InlineParser
}

func (p *offsetParser) Trigger() []byte {
	return p.inner.Trigger()
}

func (p *offsetParser) CloseBlock(parent gmast.Node, block text.Reader, pc gmparser.Context) {
	if cb, ok := p.inner.(closeBlocker); ok {
		cb.CloseBlock(parent, block, pc)
	}
}

func (p *offsetParser) Parse(parent gmast.Node, block text.Reader, pc gmparser.Context) gmast.Node {
	node := p.inner.Parse(parent, block, pc)
	if node == nil {
		return nil
	}
	tc, ok := pc.(*trackingContext)
	if !ok {
		return node
	}
	src := block.Source()
	_, after := block.Position()
	end := min(after.Start, len(src))

	open := end
	switch n := node.(type) {
	case *gmast.AutoLink:
		label := n.Label(src)
		open = end - len(label)
		if end > 0 && src[end-1] == '>' {
			open = end - len(label) - 2
		}
	default:
		// Footnote references: [^label] ends at the closing bracket.
		if i := bytes.LastIndex(src[:end], []byte("[^")); i >= 0 {
			open = i
			if i > 0 && src[i-1] == '!' {
				open = i - 1
			}
		}
	}
	tc.infos[node] = linkInfo{open: max(open, 0)}
	return node
}

// Options selects the optional Markdown extensions.
type Options struct {
	// Footnotes enables [^label] references and definitions.
	Footnotes bool
	// Linkify turns bare URLs into autolinks.
	Linkify bool
}

// DefaultOptions enables footnotes and bare-URL autolinks.
func DefaultOptions() Options {
	return Options{Footnotes: true, Linkify: true}
}

// newMarkdown builds a CommonMark parser whose link, autolink and footnote
// inline parsers are wrapped to record positions and link forms. The footnote
// AST transformer is not installed, so footnote definitions stay where they
// were written.
func newMarkdown(opts Options) goldmark.Markdown {
	inline := []util.PrioritizedValue{
		util.Prioritized(gmparser.NewCodeSpanParser(), 100),
		util.Prioritized(&linkFormParser{inner: gmparser.NewLinkParser()}, 200),
		util.Prioritized(&offsetParser{inner: gmparser.NewAutoLinkParser()}, 300),
		util.Prioritized(gmparser.NewRawHTMLParser(), 400),
		util.Prioritized(gmparser.NewEmphasisParser(), 500),
	}
	block := gmparser.DefaultBlockParsers()

	if opts.Footnotes {
		block = append(block, util.Prioritized(extension.NewFootnoteBlockParser(), 999))
		inline = append(inline, util.Prioritized(&offsetParser{inner: extension.NewFootnoteParser()}, 101))
	}
	if opts.Linkify {
		inline = append(inline, util.Prioritized(&offsetParser{inner: extension.NewLinkifyParser()}, 999))
	}

	p := gmparser.NewParser(
		gmparser.WithBlockParsers(block...),
		gmparser.WithInlineParsers(inline...),
		gmparser.WithParagraphTransformers(gmparser.DefaultParagraphTransformers()...),
	)
	return goldmark.New(goldmark.WithParser(p))
}
