package mdast

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkt.systems/mdast/ast"
)

// paragraph returns the first paragraph of doc.
func paragraph(t *testing.T, doc *Document) ast.NodeID {
	t.Helper()
	ids := doc.Tree.Find(doc.Tree.Root(), ast.KindParagraph)
	require.NotEmpty(t, ids, "no paragraph in:\n%s", doc.Tree)
	return ids[0]
}

func TestEmphasisAndStrong(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "*italic*")
	p := paragraph(t, doc)
	require.Equal(t, []ast.Kind{ast.KindEmphasis}, kinds(doc, p))
	em := doc.Tree.Node(p).Children[0]
	assert.Equal(t, []ast.Kind{ast.KindText}, kinds(doc, em))
	assert.Equal(t, "italic", doc.Tree.Text(em))

	doc = parseDoc(t, "**bold**")
	assert.Equal(t, []ast.Kind{ast.KindStrong}, kinds(doc, paragraph(t, doc)))

	doc = parseDoc(t, "__bold__ and _em_")
	assert.Equal(t, []ast.Kind{ast.KindStrong, ast.KindText, ast.KindEmphasis}, kinds(doc, paragraph(t, doc)))
}

func TestTripleDelimiterNestsEmphasisInStrong(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "***both***")
	p := paragraph(t, doc)
	require.Equal(t, []ast.Kind{ast.KindStrong}, kinds(doc, p))
	strong := doc.Tree.Node(p).Children[0]
	require.Equal(t, []ast.Kind{ast.KindEmphasis}, kinds(doc, strong))
	em := doc.Tree.Node(strong).Children[0]
	require.Equal(t, []ast.Kind{ast.KindText}, kinds(doc, em))
	assert.Equal(t, "both", doc.Tree.Node(doc.Tree.Node(em).Children[0]).Literal)
}

func TestIntrawordDelimiters(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "foo_bar_baz")
	assert.Zero(t, count(doc, ast.KindEmphasis))
	assert.Equal(t, "foo_bar_baz", doc.Tree.Text(paragraph(t, doc)))

	doc = parseDoc(t, "foo*bar*baz")
	em := only(t, doc, ast.KindEmphasis)
	require.Len(t, em.Children, 1)
	assert.Equal(t, "bar", doc.Tree.Node(em.Children[0]).Literal)
}

func TestUnmatchedDelimitersStayText(t *testing.T) {
	t.Parallel()
	for _, src := range []string{"*foo", "foo*", "* foo *", "**foo*"} {
		doc := parseDoc(t, "x "+src)
		assert.Zero(t, count(doc, ast.KindStrong), src)
	}
	doc := parseDoc(t, "x **foo*")
	em := only(t, doc, ast.KindEmphasis)
	assert.Equal(t, "foo", doc.Tree.Text(doc.Tree.Find(doc.Tree.Root(), ast.KindEmphasis)[0]))
	assert.Len(t, em.Children, 1)
	assert.Equal(t, "x *foo", doc.Tree.Text(paragraph(t, doc)))
}

func TestStrikethrough(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "~~gone~~ and ~kept~")
	strike := only(t, doc, ast.KindStrike)
	assert.Len(t, strike.Children, 1)
	assert.Equal(t, "gone and ~kept~", doc.Tree.Text(paragraph(t, doc)))

	doc = parseDoc(t, "~~gone~~", WithoutExtensions(ExtStrikethrough))
	assert.Zero(t, count(doc, ast.KindStrike))
}

func TestCodeSpans(t *testing.T) {
	t.Parallel()
	tests := []struct {
		src  string
		want string
	}{
		{"`a  b`", "a  b"},
		{"`` ` ``", "`"},
		{"` a `", "a"},
		{"`  `", "  "},
		{"`*no*`", "*no*"},
	}
	for _, tc := range tests {
		doc := parseDoc(t, tc.src)
		code := only(t, doc, ast.KindInlineCode)
		assert.Equal(t, tc.want, code.Literal, tc.src)
	}

	doc := parseDoc(t, "`open\nclose`")
	assert.Equal(t, "open close", only(t, doc, ast.KindInlineCode).Literal)

	doc = parseDoc(t, "``not closed`")
	assert.Zero(t, count(doc, ast.KindInlineCode))
	assert.Equal(t, "``not closed`", doc.Tree.Text(paragraph(t, doc)))
}

func TestBackslashEscapes(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, `\*not emphasis\* \_x\_ \a`)
	assert.Zero(t, count(doc, ast.KindEmphasis))
	assert.Equal(t, `*not emphasis* _x_ \a`, doc.Tree.Text(paragraph(t, doc)))
}

func TestLineBreaks(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "foo  \nbar\\\nbaz\nqux")
	breaks := doc.Tree.Find(doc.Tree.Root(), ast.KindLineBreak)
	require.Len(t, breaks, 3)
	assert.True(t, doc.Tree.Node(breaks[0]).Hard)
	assert.True(t, doc.Tree.Node(breaks[1]).Hard)
	assert.False(t, doc.Tree.Node(breaks[2]).Hard)
	assert.Equal(t, "foo\nbar\nbaz qux", doc.Tree.Text(paragraph(t, doc)))
}

func TestEntities(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "&amp; &copy; &#35; &#x41; &#0; &bogus;")
	assert.Equal(t, "& © # A \uFFFD &bogus;", doc.Tree.Text(paragraph(t, doc)))
	assert.Len(t, doc.Diagnostics.Filter(DiagInvalidCharRef), 1)
}

func TestInlineLinks(t *testing.T) {
	t.Parallel()
	tests := []struct {
		src   string
		url   string
		title string
		text  string
	}{
		{`[a](/u)`, "/u", "", "a"},
		{`[a](/u "T")`, "/u", "T", "a"},
		{`[a *b*](</my url> 'T')`, "/my%20url", "T", "a b"},
		{`[a](/u(v))`, "/u(v)", "", "a"},
		{`[a]()`, "", "", "a"},
		{`[a](/ö)`, "/%C3%B6", "", "a"},
		{`[a](/u\))`, "/u)", "", "a"},
	}
	for _, tc := range tests {
		doc := parseDoc(t, tc.src)
		link := only(t, doc, ast.KindLink)
		assert.Equal(t, tc.url, link.URL, tc.src)
		assert.Equal(t, tc.title, link.Title, tc.src)
		id := doc.Tree.Find(doc.Tree.Root(), ast.KindLink)[0]
		assert.Equal(t, tc.text, doc.Tree.Text(id), tc.src)
	}
}

func TestImages(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, `![alt *x*](/img.png "T")`)
	img := only(t, doc, ast.KindImage)
	assert.Equal(t, "/img.png", img.URL)
	assert.Equal(t, "T", img.Title)
	assert.Equal(t, "alt x", img.Alt)
}

func TestImageAltFromLaterDefinition(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "![foo *bar*][ref] and ![baz]\n\n[ref]: /f.png\n[baz]: /b.png\n")
	imgs := doc.Tree.Find(doc.Tree.Root(), ast.KindImage)
	require.Len(t, imgs, 2)
	assert.Equal(t, "foo bar", doc.Tree.Node(imgs[0]).Alt)
	assert.Equal(t, "baz", doc.Tree.Node(imgs[1]).Alt)
	assert.Equal(t, "foo bar and baz", doc.Tree.Text(paragraph(t, doc)))
}

func TestLinksDoNotNest(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, `[a [b](/inner) c](/outer)`)
	link := only(t, doc, ast.KindLink)
	assert.Equal(t, "/inner", link.URL)
	assert.Equal(t, "[a b c](/outer)", doc.Tree.Text(paragraph(t, doc)))
}

func TestReferenceResolvedAfterDefinition(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "[foo]\n\n[foo]: /bar* \"ti*tle\"")
	link := only(t, doc, ast.KindLink)
	assert.Equal(t, "/bar*", link.URL)
	assert.Equal(t, "ti*tle", link.Title)
	assert.Zero(t, count(doc, ast.KindReference))
	assert.Empty(t, doc.Diagnostics)

	def, ok := doc.Definition("FOO")
	require.True(t, ok)
	assert.Equal(t, "/bar*", def.URL)
	assert.Equal(t, 3, def.Line)
}

func TestReferenceForms(t *testing.T) {
	t.Parallel()
	src := "[full][Ref] [collapsed][] [shortcut] ![img][ref]\n\n" +
		"[ref]: /r\n[collapsed]: /c\n[SHORTCUT]: /s 'S'\n"
	doc := parseDoc(t, src)
	links := doc.Tree.Find(doc.Tree.Root(), ast.KindLink)
	require.Len(t, links, 3)
	assert.Equal(t, "/r", doc.Tree.Node(links[0]).URL)
	assert.Equal(t, "/c", doc.Tree.Node(links[1]).URL)
	assert.Equal(t, "/s", doc.Tree.Node(links[2]).URL)
	assert.Equal(t, "S", doc.Tree.Node(links[2]).Title)
	img := only(t, doc, ast.KindImage)
	assert.Equal(t, "img", img.Alt)
	assert.Len(t, doc.References, 3)
}

func TestFullReferenceAroundLinkRetriesLabel(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "[foo *bar [baz][ref]*][ref]\n\n[ref]: /uri")
	links := doc.Tree.Find(doc.Tree.Root(), ast.KindLink)
	require.Len(t, links, 2)
	assert.Equal(t, "baz", doc.Tree.Text(links[0]))
	assert.Equal(t, "ref", doc.Tree.Text(links[1]))
	assert.Equal(t, "/uri", doc.Tree.Node(links[1]).URL)
	p := paragraph(t, doc)
	assert.Equal(t, []ast.Kind{ast.KindText, ast.KindEmphasis, ast.KindText, ast.KindLink}, kinds(doc, p))
	assert.Equal(t, "[foo bar baz]ref", doc.Tree.Text(p))

	doc = parseDoc(t, "[foo *bar [baz][ref]*][nope]\n\n[ref]: /uri")
	assert.Len(t, doc.Tree.Find(doc.Tree.Root(), ast.KindLink), 1)
	assert.Equal(t, "[foo bar baz][nope]", doc.Tree.Text(paragraph(t, doc)))
}

func TestDestinationParenNesting(t *testing.T) {
	t.Parallel()
	deep := strings.Repeat("(", maxLinkParens) + strings.Repeat(")", maxLinkParens)
	link := only(t, parseDoc(t, "[a](x"+deep+")"), ast.KindLink)
	assert.Equal(t, "x"+deep, link.URL)

	deeper := strings.Repeat("(", maxLinkParens+1) + strings.Repeat(")", maxLinkParens+1)
	doc := parseDoc(t, "[a](x"+deeper+")")
	assert.Zero(t, count(doc, ast.KindLink))
}

func TestRepeatedConstructsParseInLinearTime(t *testing.T) {
	for _, unit := range []string{"*a* ", "[a] ", "[a](", "a $b ", "a $$b ", "a \\(b ", "a <!-- ", "![a] ", "[a]: "} {
		src := strings.Repeat(unit, 50000)
		start := time.Now()
		doc := ParseString(src)
		elapsed := time.Since(start)
		require.NoError(t, doc.Tree.Check(), "%q", unit)
		assert.Less(t, elapsed, 5*time.Second, "%q took %s", unit, elapsed)
	}
}

func TestDefinitionBeforeUse(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "[x]: <> \n\n[x]")
	link := only(t, doc, ast.KindLink)
	assert.Empty(t, link.URL)
	assert.Equal(t, 1, count(doc, ast.KindParagraph))
}

func TestUnresolvedReferenceRevertsToText(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "see [nope] and ![img][gone]")
	assert.Zero(t, count(doc, ast.KindReference))
	assert.Zero(t, count(doc, ast.KindLink))
	assert.Equal(t, "see [nope] and ![img][gone]", doc.Tree.Text(paragraph(t, doc)))
	assert.Len(t, doc.Diagnostics.Filter(DiagUnresolvedReference), 2)

	doc = parseDoc(t, "see [nope]", WithKeepUnresolved(true))
	ref := only(t, doc, ast.KindReference)
	assert.Equal(t, "nope", ref.Identifier)
	assert.Equal(t, "nope", ref.Label)
}

func TestDefinitionDiagnostics(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "[a]: /first\n[A]: /second\n[unused]: /u\n\n[a]\n")
	assert.Equal(t, "/first", only(t, doc, ast.KindLink).URL)
	assert.Len(t, doc.Diagnostics.Filter(DiagDuplicateDefinition), 1)
	unused := doc.Diagnostics.Filter(DiagUnusedDefinition)
	require.Len(t, unused, 1)
	assert.Equal(t, 3, unused[0].Line)
	assert.Equal(t, 1, count(doc, ast.KindParagraph))
}

func TestNormalizeLabel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "foo bar", NormalizeLabel("  Foo \n\t BAR "))
	assert.Equal(t, NormalizeLabel("ÄÖ"), NormalizeLabel("äö"))
	assert.Empty(t, NormalizeLabel(" \t"))
}

func TestAutolinks(t *testing.T) {
	t.Parallel()
	tests := []struct {
		src  string
		url  string
		text string
	}{
		{"<https://example.com/a>", "https://example.com/a", "https://example.com/a"},
		{"<me@example.com>", "mailto:me@example.com", "me@example.com"},
		{"visit https://example.com.", "https://example.com", "https://example.com"},
		{"visit www.example.com", "http://www.example.com", "www.example.com"},
		{"mail me@example.com", "mailto:me@example.com", "me@example.com"},
	}
	for _, tc := range tests {
		doc := parseDoc(t, tc.src)
		link := only(t, doc, ast.KindLink)
		assert.True(t, link.Autolink, tc.src)
		assert.Equal(t, tc.url, link.URL, tc.src)
		id := doc.Tree.Find(doc.Tree.Root(), ast.KindLink)[0]
		assert.Equal(t, tc.text, doc.Tree.Text(id), tc.src)
	}

	doc := parseDoc(t, "visit https://example.com", WithoutExtensions(ExtAutolinks))
	assert.Zero(t, count(doc, ast.KindLink))
	doc = parseDoc(t, "<https://example.com>", WithoutExtensions(ExtAutolinks))
	assert.Equal(t, 1, count(doc, ast.KindLink))
}

func TestInlineHTMLAndComments(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "a <b class=\"x\">bold</b> <!-- hidden --> c")
	html := doc.Tree.Find(doc.Tree.Root(), ast.KindHTMLInline)
	require.Len(t, html, 2)
	assert.Equal(t, `<b class="x">`, doc.Tree.Node(html[0]).Literal)
	assert.Equal(t, " hidden ", only(t, doc, ast.KindComment).Literal)
}
