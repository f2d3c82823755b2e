package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/linkmark/internal/mdtree"
)

// linkNodes returns every node of the given kinds in depth-first order.
func linkNodes(n mdtree.Node, kinds ...mdtree.Kind) []mdtree.Node {
	var out []mdtree.Node
	var visit func(mdtree.Node)
	visit = func(n mdtree.Node) {
		for _, k := range kinds {
			if n.Kind() == k {
				out = append(out, n)
				break
			}
		}
		for _, c := range n.Children() {
			visit(c)
		}
	}
	visit(n)
	return out
}

var linkKinds = []mdtree.Kind{
	mdtree.KindLink, mdtree.KindImage, mdtree.KindAutoLink, mdtree.KindFootnoteReference,
}

func mustParse(t *testing.T, src string) *Result {
	t.Helper()
	r, err := Parse([]byte(src))
	require.NoError(t, err)
	require.NotNil(t, r.Tree)
	return r
}

func TestParse_FrontmatterTitleAndLineOffset(t *testing.T) {
	r := mustParse(t, "---\ntitle: Hello\ntags:\n  - go\n---\n# Heading\nSee [x](http://a).\n")

	assert.Equal(t, "Hello", r.Title)
	assert.Equal(t, []any{"go"}, r.Frontmatter["tags"])

	links := linkNodes(r.Tree, mdtree.KindLink)
	require.Len(t, links, 1)
	assert.Equal(t, mdtree.Position{Line: 7, Column: 5}, links[0].Pos())
}

func TestParse_TitleFromFirstH1(t *testing.T) {
	r := mustParse(t, "Intro\n\n## Sub\n\n# Just a heading\n")
	assert.Nil(t, r.Frontmatter)
	assert.Equal(t, "Just a heading", r.Title)
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	r := mustParse(t, "---\n: invalid: yaml: {{{\n---\nBody [a](b)\n")
	assert.Nil(t, r.Frontmatter)

	links := linkNodes(r.Tree, mdtree.KindLink)
	require.Len(t, links, 1)
	assert.Equal(t, 4, links[0].Pos().Line)
}

func TestParse_LinkForms(t *testing.T) {
	src := "[a](http://x \"T\") [b][r] [r][] [r] ![i](img.png) <http://auto>\n\n[r]: http://ref\n"
	r := mustParse(t, src)

	nodes := linkNodes(r.Tree, linkKinds...)
	require.Len(t, nodes, 6)

	inline := nodes[0]
	assert.Equal(t, mdtree.KindLink, inline.Kind())
	assert.False(t, inline.Attrs().Reference)
	assert.Equal(t, "http://x", inline.Attrs().Destination)
	assert.Equal(t, "T", inline.Attrs().Title)
	assert.Equal(t, mdtree.Position{Line: 1, Column: 1}, inline.Pos())

	full := nodes[1]
	assert.True(t, full.Attrs().Reference)
	assert.Equal(t, "r", full.Attrs().Label)
	assert.Equal(t, "b", mdtree.Flatten(full))
	assert.Equal(t, mdtree.Position{Line: 1, Column: 19}, full.Pos())

	collapsed := nodes[2]
	assert.True(t, collapsed.Attrs().Reference)
	assert.Equal(t, "r", collapsed.Attrs().Label)

	shortcut := nodes[3]
	assert.True(t, shortcut.Attrs().Reference)
	assert.Equal(t, "r", shortcut.Attrs().Label)

	img := nodes[4]
	assert.Equal(t, mdtree.KindImage, img.Kind())
	assert.Equal(t, "img.png", img.Attrs().Destination)
	assert.Equal(t, "i", mdtree.Flatten(img))

	auto := nodes[5]
	assert.Equal(t, mdtree.KindAutoLink, auto.Kind())
	assert.Equal(t, "http://auto", auto.Attrs().Destination)

	defs := linkNodes(r.Tree, mdtree.KindReferenceDefinition)
	require.Len(t, defs, 1)
	assert.Equal(t, "http://ref", defs[0].Attrs().Destination)
	assert.Equal(t, 3, defs[0].Pos().Line)
}

func TestParse_UnresolvedFullReferenceIsKept(t *testing.T) {
	r := mustParse(t, "[broken][missing]\n")

	nodes := linkNodes(r.Tree, linkKinds...)
	require.Len(t, nodes, 1)
	assert.True(t, nodes[0].Attrs().Reference)
	assert.Equal(t, "missing", nodes[0].Attrs().Label)
	assert.Equal(t, "broken", mdtree.Flatten(nodes[0]))
}

func TestParse_UndefinedShortcutIsText(t *testing.T) {
	r := mustParse(t, "[nothing] here\n")

	assert.Empty(t, linkNodes(r.Tree, linkKinds...))
	assert.Contains(t, mdtree.Flatten(r.Tree), "[nothing] here")
}

func TestParse_Footnotes(t *testing.T) {
	r := mustParse(t, "Text[^1] and [^nope].\n\n[^1]: A note.\n")

	refs := linkNodes(r.Tree, mdtree.KindFootnoteReference)
	require.Len(t, refs, 2)
	assert.Equal(t, "1", refs[0].Attrs().Label)
	assert.Equal(t, mdtree.Position{Line: 1, Column: 5}, refs[0].Pos())
	assert.Equal(t, "nope", refs[1].Attrs().Label)

	defs := linkNodes(r.Tree, mdtree.KindFootnoteDefinition)
	require.Len(t, defs, 1)
	assert.Equal(t, "1", defs[0].Attrs().Label)
}

func TestParse_FootnotesDisabled(t *testing.T) {
	p := New(Options{})
	r, err := p.Parse([]byte("Text[^1].\n\n[^1]: A note.\n"))
	require.NoError(t, err)

	assert.Empty(t, linkNodes(r.Tree, mdtree.KindFootnoteReference, mdtree.KindFootnoteDefinition))
}

func TestParse_Linkify(t *testing.T) {
	r := mustParse(t, "Visit https://example.com today.\n")

	nodes := linkNodes(r.Tree, mdtree.KindAutoLink)
	require.Len(t, nodes, 1)
	assert.Equal(t, "https://example.com", nodes[0].Attrs().Destination)
	assert.Equal(t, mdtree.Position{Line: 1, Column: 7}, nodes[0].Pos())

	plain, err := New(Options{}).Parse([]byte("Visit https://example.com today.\n"))
	require.NoError(t, err)
	assert.Empty(t, linkNodes(plain.Tree, mdtree.KindAutoLink))
}

func TestParse_ImageInsideLink(t *testing.T) {
	r := mustParse(t, "[![alt](i.png)](http://x)\n")

	links := linkNodes(r.Tree, mdtree.KindLink)
	require.Len(t, links, 1)
	assert.Equal(t, "http://x", links[0].Attrs().Destination)
	assert.Equal(t, mdtree.Position{Line: 1, Column: 1}, links[0].Pos())

	images := linkNodes(r.Tree, mdtree.KindImage)
	require.Len(t, images, 1)
	assert.Equal(t, mdtree.Position{Line: 1, Column: 2}, images[0].Pos())
}

func TestParse_CodeIsNotLinked(t *testing.T) {
	r := mustParse(t, "`[a](b)`\n\n    [c](d)\n")
	assert.Empty(t, linkNodes(r.Tree, linkKinds...))
}

func TestParse_DuplicateDefinitionsKeepOrder(t *testing.T) {
	r := mustParse(t, "[x]\n\n[x]: http://one\n[x]: http://two\n")

	defs := linkNodes(r.Tree, mdtree.KindReferenceDefinition)
	require.Len(t, defs, 2)
	assert.Equal(t, "http://one", defs[0].Attrs().Destination)
	assert.Equal(t, "http://two", defs[1].Attrs().Destination)
}

func TestSplitFrontmatter(t *testing.T) {
	fm := splitFrontmatter([]byte("---\ntitle: x\n---\n# A\n"))
	assert.Equal(t, "x", fm.fields["title"])
	assert.Equal(t, 17, fm.bodyStart)
	assert.Equal(t, 3, fm.lineOffset)

	unclosed := splitFrontmatter([]byte("---\ntitle: x\n# A\n"))
	assert.Zero(t, unclosed.bodyStart)
	assert.Nil(t, unclosed.fields)
}
