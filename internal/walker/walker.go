// Package walker traverses a document tree and yields the links it contains
// in document order.
package walker

import (
	"iter"
	"slices"

	"github.com/starford/linkmark/internal/mdtree"
	"github.com/starford/linkmark/internal/models"
	"github.com/starford/linkmark/internal/resolver"
)

// Collected is the result of the definition pass over one document.
type Collected struct {
	Definitions *resolver.Definitions
	Footnotes   resolver.Footnotes
}

// Collect gathers every reference and footnote definition in tree. When a
// label is defined more than once the first definition in document order wins.
func Collect(tree mdtree.Node) Collected {
	c := Collected{
		Definitions: resolver.NewDefinitions(),
		Footnotes:   make(resolver.Footnotes),
	}
	collect(tree, &c)
	return c
}

func collect(n mdtree.Node, c *Collected) {
	if n == nil {
		return
	}
	switch n.Kind() {
	case mdtree.KindReferenceDefinition:
		a := n.Attrs()
		c.Definitions.Add(a.Label, resolver.Definition{
			URL:      a.Destination,
			Title:    a.Title,
			HasTitle: a.HasTitle,
		})
	case mdtree.KindFootnoteDefinition:
		if label := n.Attrs().Label; label != "" {
			c.Footnotes.Add(label)
		}
	}
	for _, child := range n.Children() {
		collect(child, c)
	}
}

// Walk returns the link records of tree in document order. The sequence is
// lazy and restartable: every iteration re-walks the (immutable) tree with a
// fresh heading stack, so it is safe to range over it more than once and to
// walk different trees concurrently.
func Walk(tree mdtree.Node, file string) iter.Seq[models.LinkRecord] {
	return func(yield func(models.LinkRecord) bool) {
		if tree == nil {
			return
		}
		c := Collect(tree)
		w := &walk{
			ctx: resolver.Context{
				File:        file,
				Definitions: c.Definitions,
				Footnotes:   c.Footnotes,
			},
			yield: yield,
		}
		w.visit(tree)
	}
}

// All walks tree and returns the records as a slice.
func All(tree mdtree.Node, file string) []models.LinkRecord {
	return slices.Collect(Walk(tree, file))
}

type heading struct {
	level int
	text  string
}

// walk is the state of one extraction pass. The heading stack lives here and
// nowhere else.
type walk struct {
	ctx      resolver.Context
	headings []heading
	yield    func(models.LinkRecord) bool
}

// visit returns false once the consumer stops iterating.
func (w *walk) visit(n mdtree.Node) bool {
	if n == nil {
		return true
	}
	switch n.Kind() {
	case mdtree.KindHeading:
		w.enterHeading(n)
	case mdtree.KindLink, mdtree.KindImage, mdtree.KindAutoLink, mdtree.KindFootnoteReference:
		// Link content is folded into the record's text; links nested inside
		// link text are not emitted on their own.
		return w.emit(n)
	case mdtree.KindReferenceDefinition:
		return true
	}
	for _, child := range n.Children() {
		if !w.visit(child) {
			return false
		}
	}
	return true
}

// enterHeading closes every open section of equal or deeper level and opens
// the section introduced by n.
func (w *walk) enterHeading(n mdtree.Node) {
	level := n.Attrs().Level
	for len(w.headings) > 0 && w.headings[len(w.headings)-1].level >= level {
		w.headings = w.headings[:len(w.headings)-1]
	}
	w.headings = append(w.headings, heading{level: level, text: mdtree.Flatten(n)})
}

func (w *walk) emit(n mdtree.Node) bool {
	ctx := w.ctx
	ctx.Headings = w.path()
	for _, r := range resolver.Resolve(n, ctx) {
		if !w.yield(r) {
			return false
		}
	}
	return true
}

func (w *walk) path() []string {
	out := make([]string, len(w.headings))
	for i, h := range w.headings {
		out[i] = h.text
	}
	return out
}
