// Package mdtree is the document-tree boundary between a Markdown parser and
// the link walker. The walker depends only on the Node interface, so any
// CommonMark parser that can build these nodes can be substituted.
package mdtree

import "strings"

// Kind tags the closed set of node shapes the walker cares about.
type Kind int

const (
	// KindOther is any container or leaf without link semantics
	// (paragraphs, lists, emphasis, code blocks, raw HTML ...).
	KindOther Kind = iota
	KindDocument
	KindText
	KindHeading
	KindLink
	KindImage
	KindAutoLink
	KindReferenceDefinition
	KindFootnoteReference
	KindFootnoteDefinition
)

var kindNames = [...]string{
	KindOther:               "other",
	KindDocument:            "document",
	KindText:                "text",
	KindHeading:             "heading",
	KindLink:                "link",
	KindImage:               "image",
	KindAutoLink:            "autolink",
	KindReferenceDefinition: "reference-definition",
	KindFootnoteReference:   "footnote-reference",
	KindFootnoteDefinition:  "footnote-definition",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Position is a 1-based line and byte column. The zero value means unknown.
type Position struct {
	Line   int
	Column int
}

// Attrs is the typed payload of link-bearing and heading nodes.
type Attrs struct {
	// Level is the heading level (1-6).
	Level int
	// Destination is the URL as written for inline links, images, autolinks
	// and reference definitions.
	Destination    string
	HasDestination bool
	Title          string
	HasTitle       bool
	// Label is the reference label (links and images written in reference
	// form, reference definitions) or the footnote label.
	Label string
	// Reference is true when a link or image is written in reference form
	// and must be resolved against the document's definitions.
	Reference bool
}

// Node is the minimal capability the walker needs from a parsed document.
type Node interface {
	Kind() Kind
	Children() []Node
	// Literal is the raw text of leaf nodes (text, code spans).
	Literal() string
	Pos() Position
	Attrs() Attrs
}

// Element is the concrete Node built by parser adapters and tests.
// Elements are not modified after construction.
type Element struct {
	kind     Kind
	children []Node
	literal  string
	pos      Position
	attrs    Attrs
}

var _ Node = (*Element)(nil)

func (e *Element) Kind() Kind       { return e.kind }
func (e *Element) Children() []Node { return e.children }
func (e *Element) Literal() string  { return e.literal }
func (e *Element) Pos() Position    { return e.pos }
func (e *Element) Attrs() Attrs     { return e.attrs }

// New builds an element of any kind.
func New(kind Kind, pos Position, attrs Attrs, literal string, children ...Node) *Element {
	return &Element{
		kind:     kind,
		children: append([]Node(nil), children...),
		literal:  literal,
		pos:      pos,
		attrs:    attrs,
	}
}

// Document builds a document root.
func Document(children ...Node) *Element {
	return New(KindDocument, Position{}, Attrs{}, "", children...)
}

// Container builds an opaque container (paragraph, emphasis, list item ...).
func Container(children ...Node) *Element {
	return New(KindOther, Position{}, Attrs{}, "", children...)
}

// Text builds a text leaf.
func Text(s string) *Element {
	return New(KindText, Position{}, Attrs{}, s)
}

// Heading builds a heading of the given level.
func Heading(level int, pos Position, children ...Node) *Element {
	return New(KindHeading, pos, Attrs{Level: level}, "", children...)
}

// InlineLink builds a [text](url "title") link.
func InlineLink(pos Position, dest, title string, children ...Node) *Element {
	return New(KindLink, pos, Attrs{
		Destination:    dest,
		HasDestination: true,
		Title:          title,
		HasTitle:       title != "",
	}, "", children...)
}

// ReferenceLink builds a [text][label] link. An empty label means collapsed
// or shortcut form; the flattened text is used as the label.
func ReferenceLink(pos Position, label string, children ...Node) *Element {
	return New(KindLink, pos, Attrs{Label: label, Reference: true}, "", children...)
}

// Image builds an inline ![alt](url "title") image.
func Image(pos Position, dest, title string, children ...Node) *Element {
	return New(KindImage, pos, Attrs{
		Destination:    dest,
		HasDestination: true,
		Title:          title,
		HasTitle:       title != "",
	}, "", children...)
}

// ReferenceImage builds a ![alt][label] image.
func ReferenceImage(pos Position, label string, children ...Node) *Element {
	return New(KindImage, pos, Attrs{Label: label, Reference: true}, "", children...)
}

// AutoLink builds an autolink; the URL is its own text.
func AutoLink(pos Position, url string) *Element {
	return New(KindAutoLink, pos, Attrs{Destination: url, HasDestination: true}, "")
}

// Definition builds a [label]: url "title" reference definition.
func Definition(pos Position, label, dest, title string) *Element {
	return New(KindReferenceDefinition, pos, Attrs{
		Label:          label,
		Destination:    dest,
		HasDestination: true,
		Title:          title,
		HasTitle:       title != "",
	}, "")
}

// FootnoteRef builds a [^label] footnote reference.
func FootnoteRef(pos Position, label string) *Element {
	return New(KindFootnoteReference, pos, Attrs{Label: label}, "")
}

// FootnoteDef builds a [^label]: ... footnote definition.
func FootnoteDef(pos Position, label string, children ...Node) *Element {
	return New(KindFootnoteDefinition, pos, Attrs{Label: label}, "", children...)
}

// Flatten renders the plain text of n: text and code literals are
// concatenated, images contribute their alt text and autolinks their URL.
func Flatten(n Node) string {
	var b strings.Builder
	flatten(&b, n)
	return b.String()
}

func flatten(b *strings.Builder, n Node) {
	if n == nil {
		return
	}
	switch n.Kind() {
	case KindAutoLink:
		b.WriteString(n.Attrs().Destination)
		return
	case KindReferenceDefinition, KindFootnoteReference, KindFootnoteDefinition:
		return
	}
	b.WriteString(n.Literal())
	for _, c := range n.Children() {
		flatten(b, c)
	}
}
