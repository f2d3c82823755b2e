// Package resolver turns link-bearing document nodes into link records.
package resolver

import (
	"strings"

	"github.com/starford/linkmark/internal/mdtree"
	"github.com/starford/linkmark/internal/models"
)

// FootnoteAnchorPrefix is prepended to footnote labels to form their URL.
const FootnoteAnchorPrefix = "#fn-"

// Context is the per-document state a node is resolved against.
type Context struct {
	File        string
	Headings    []string
	Definitions *Definitions
	Footnotes   Footnotes
}

// Resolve returns the records produced by n. Nodes without link semantics
// yield nil. Malformed nodes never cause an error; they resolve to an
// unresolved record instead.
func Resolve(n mdtree.Node, ctx Context) []models.LinkRecord {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case mdtree.KindLink:
		return one(resolveLink(n, ctx, models.KindInline))
	case mdtree.KindImage:
		return one(resolveLink(n, ctx, models.KindImage))
	case mdtree.KindAutoLink:
		return one(resolveAutoLink(n, ctx))
	case mdtree.KindFootnoteReference:
		return one(resolveFootnote(n, ctx))
	default:
		return nil
	}
}

func one(r models.LinkRecord) []models.LinkRecord {
	return []models.LinkRecord{r}
}

func source(n mdtree.Node, ctx Context) models.Source {
	p := n.Pos()
	return models.Source{File: ctx.File, Line: p.Line, Column: p.Column}
}

func resolveLink(n mdtree.Node, ctx Context, kind models.Kind) models.LinkRecord {
	a := n.Attrs()
	text := mdtree.Flatten(n)
	if a.Reference {
		return resolveReference(n, ctx, kind, text)
	}
	if !a.HasDestination {
		return models.NewLinkRecord(kind, "", text, source(n, ctx), ctx.Headings, models.Unresolved())
	}
	var opts []models.RecordOption
	if a.HasTitle {
		opts = append(opts, models.WithTitle(a.Title))
	}
	return models.NewLinkRecord(kind, a.Destination, text, source(n, ctx), ctx.Headings, opts...)
}

// resolveReference handles full, collapsed and shortcut references. Images
// written in reference form keep the image kind.
func resolveReference(n mdtree.Node, ctx Context, kind models.Kind, text string) models.LinkRecord {
	if kind == models.KindInline {
		kind = models.KindReference
	}
	label := strings.TrimSpace(n.Attrs().Label)
	if label == "" {
		label = NormalizeLabel(text)
	}
	opts := []models.RecordOption{models.WithLabel(label)}

	def, ok := ctx.Definitions.Lookup(label)
	if !ok {
		opts = append(opts, models.Unresolved())
		return models.NewLinkRecord(kind, "", text, source(n, ctx), ctx.Headings, opts...)
	}
	if def.HasTitle {
		opts = append(opts, models.WithTitle(def.Title))
	}
	return models.NewLinkRecord(kind, def.URL, text, source(n, ctx), ctx.Headings, opts...)
}

func resolveAutoLink(n mdtree.Node, ctx Context) models.LinkRecord {
	a := n.Attrs()
	if !a.HasDestination || a.Destination == "" {
		return models.NewLinkRecord(models.KindAutolink, "", "", source(n, ctx), ctx.Headings, models.Unresolved())
	}
	return models.NewLinkRecord(models.KindAutolink, a.Destination, a.Destination, source(n, ctx), ctx.Headings)
}

func resolveFootnote(n mdtree.Node, ctx Context) models.LinkRecord {
	label := strings.TrimSpace(n.Attrs().Label)
	opts := []models.RecordOption{models.WithLabel(label)}
	if label == "" || !ctx.Footnotes.Has(label) {
		opts = append(opts, models.Unresolved())
	}
	return models.NewLinkRecord(models.KindFootnote, FootnoteAnchorPrefix+label, "^"+label, source(n, ctx), ctx.Headings, opts...)
}
