package walker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/linkmark/internal/mdtree"
	"github.com/starford/linkmark/internal/models"
	"github.com/starford/linkmark/internal/parser"
)

func walkSource(t *testing.T, src string) []models.LinkRecord {
	t.Helper()
	res, err := parser.Parse([]byte(src))
	require.NoError(t, err)
	return All(res.Tree, "doc.md")
}

func TestWalk_ReferenceUnderHeading(t *testing.T) {
	records := walkSource(t, "# A\n[foo][1]\n\n[1]: http://example.com \"Ex\"\n")
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, models.KindReference, r.Kind)
	assert.Equal(t, "http://example.com", r.URL)
	require.NotNil(t, r.Title)
	assert.Equal(t, "Ex", *r.Title)
	assert.Equal(t, "foo", r.Text)
	require.NotNil(t, r.Label)
	assert.Equal(t, "1", *r.Label)
	assert.True(t, r.Resolved)
	assert.Equal(t, models.Source{File: "doc.md", Line: 2, Column: 1}, r.Source)
	assert.Equal(t, []string{"A"}, r.ContextPath)
}

func TestWalk_BrokenReference(t *testing.T) {
	records := walkSource(t, "[broken][missing]")
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, models.KindReference, r.Kind)
	assert.False(t, r.Resolved)
	assert.Empty(t, r.URL)
	assert.Nil(t, r.Title)
	assert.Equal(t, "broken", r.Text)
	assert.Equal(t, "missing", *r.Label)
	assert.Equal(t, []string{}, r.ContextPath)
}

func TestWalk_ContextPath(t *testing.T) {
	src := "[top](u0)\n\n# A\n\n## B\n\n[in-b](u1)\n\n# C\n\n[in-c](u2)\n\n### D\n\n[in-d](u3)\n"
	records := walkSource(t, src)
	require.Len(t, records, 4)

	assert.Equal(t, []string{}, records[0].ContextPath)
	assert.Equal(t, []string{"A", "B"}, records[1].ContextPath)
	assert.Equal(t, []string{"C"}, records[2].ContextPath)
	assert.Equal(t, []string{"C", "D"}, records[3].ContextPath)
}

func TestWalk_LinkInsideHeadingSeesHeading(t *testing.T) {
	records := walkSource(t, "# See [docs](http://d)\n")
	require.Len(t, records, 1)
	assert.Equal(t, []string{"See docs"}, records[0].ContextPath)
}

func TestWalk_ForwardReferenceAndFirstDefinitionWins(t *testing.T) {
	records := walkSource(t, "[x][y] and [y]\n\n[y]: http://one\n[Y]: http://two\n")
	require.Len(t, records, 2)
	for _, r := range records {
		assert.True(t, r.Resolved)
		assert.Equal(t, "http://one", r.URL)
	}
}

func TestWalk_DocumentOrderAndKinds(t *testing.T) {
	src := "Start <http://auto> then ![pic](p.png) and [i](http://i).[^n]\n\n[^n]: Note with [inner](http://inner).\n"
	records := walkSource(t, src)

	var kinds []models.Kind
	for _, r := range records {
		kinds = append(kinds, r.Kind)
	}
	assert.Equal(t, []models.Kind{
		models.KindAutolink, models.KindImage, models.KindInline, models.KindFootnote, models.KindInline,
	}, kinds)
	assert.Equal(t, "http://inner", records[4].URL)

	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1].Source, records[i].Source
		assert.True(t, prev.Line < cur.Line || (prev.Line == cur.Line && prev.Column < cur.Column),
			"record %d out of order", i)
	}
}

func TestWalk_NestedImageFoldsIntoLink(t *testing.T) {
	records := walkSource(t, "[![alt](i.png)](http://x)\n")
	require.Len(t, records, 1)
	assert.Equal(t, models.KindInline, records[0].Kind)
	assert.Equal(t, "alt", records[0].Text)
}

func TestWalk_NestedLinkKeepsOuter(t *testing.T) {
	p := mdtree.Position{Line: 1, Column: 1}
	tree := mdtree.Document(mdtree.Container(
		mdtree.InlineLink(p, "/outer", "",
			mdtree.Text("a "),
			mdtree.InlineLink(mdtree.Position{Line: 1, Column: 4}, "/inner", "", mdtree.Text("b"))),
	))

	records := All(tree, "doc.md")
	require.Len(t, records, 1)
	assert.Equal(t, models.KindInline, records[0].Kind)
	assert.Equal(t, "/outer", records[0].URL)
	assert.Equal(t, "a b", records[0].Text)
	assert.True(t, records[0].Resolved)
}

func TestWalk_LinkWithoutDestinationIsUnresolved(t *testing.T) {
	p := mdtree.Position{Line: 2, Column: 3}
	tree := mdtree.Document(mdtree.New(mdtree.KindLink, p, mdtree.Attrs{}, "", mdtree.Text("nodest")))

	records := All(tree, "doc.md")
	require.Len(t, records, 1)
	assert.Equal(t, models.KindInline, records[0].Kind)
	assert.Empty(t, records[0].URL)
	assert.Equal(t, "nodest", records[0].Text)
	assert.False(t, records[0].Resolved)
	assert.Equal(t, models.Source{File: "doc.md", Line: 2, Column: 3}, records[0].Source)
}

func TestWalk_InvalidUTF8IsReplaced(t *testing.T) {
	records := walkSource(t, "[bad\xff](/u\xfe)\n")
	require.Len(t, records, 1)
	assert.Equal(t, "/u\uFFFD", records[0].URL)
	assert.Equal(t, "bad\uFFFD", records[0].Text)
}

func TestWalk_CollapsedAndShortcutLabelsAreNormalized(t *testing.T) {
	records := walkSource(t, "[Foo  Bar][] [FOO bar]\n\n[foo bar]: http://fb\n")
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, "http://fb", r.URL)
		require.NotNil(t, r.Label)
		assert.Equal(t, "foo bar", *r.Label)
	}
}

func TestWalk_UnresolvedNeverHasURL(t *testing.T) {
	src := "[a][nope] [b][] [^gone] [c](http://c)\n\n[b]: http://b\n"
	for _, r := range walkSource(t, src) {
		if !r.Resolved {
			assert.Empty(t, r.URL, "record %+v", r)
			assert.Nil(t, r.Title)
		}
	}
}

func TestWalk_RestartableAndDeterministic(t *testing.T) {
	res, err := parser.Parse([]byte("# H\n[a](1) [b](2) [c](3)\n"))
	require.NoError(t, err)

	seq := Walk(res.Tree, "f.md")
	var first, second []models.LinkRecord
	for r := range seq {
		first = append(first, r)
	}
	for r := range seq {
		second = append(second, r)
	}
	assert.Len(t, first, 3)
	assert.Equal(t, first, second)
	assert.Equal(t, first, All(res.Tree, "f.md"))
}

func TestWalk_StopsEarly(t *testing.T) {
	res, err := parser.Parse([]byte("[a](1) [b](2) [c](3)\n"))
	require.NoError(t, err)

	n := 0
	for range Walk(res.Tree, "f.md") {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestWalk_NilAndEmpty(t *testing.T) {
	assert.Empty(t, All(nil, "f.md"))
	assert.Empty(t, All(mdtree.Document(), "f.md"))
}

func TestCollect(t *testing.T) {
	tree := mdtree.Document(
		mdtree.Definition(mdtree.Position{}, "a", "http://a", "A"),
		mdtree.Container(mdtree.FootnoteDef(mdtree.Position{}, "n", mdtree.Text("note"))),
		mdtree.Definition(mdtree.Position{}, "A", "http://other", ""),
	)
	c := Collect(tree)

	def, ok := c.Definitions.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "http://a", def.URL)
	assert.Equal(t, 1, c.Definitions.Len())
	assert.True(t, c.Footnotes.Has("n"))
}
