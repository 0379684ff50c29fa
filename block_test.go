package mdast

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkt.systems/mdast/ast"
	"pkt.systems/mdast/token"
)

func parseDoc(t *testing.T, src string, opts ...Option) *Document {
	t.Helper()
	doc := ParseString(src, opts...)
	require.NoError(t, doc.Tree.Check(), "tree:\n%s", doc.Tree)
	return doc
}

// only returns the single node of kind in doc, failing otherwise.
func only(t *testing.T, doc *Document, kind ast.Kind) *ast.Node {
	t.Helper()
	ids := doc.Tree.Find(doc.Tree.Root(), kind)
	require.Len(t, ids, 1, "want one %s in:\n%s", kind, doc.Tree)
	return doc.Tree.Node(ids[0])
}

func count(doc *Document, kind ast.Kind) int {
	return len(doc.Tree.Find(doc.Tree.Root(), kind))
}

// kinds lists the kinds of the children of id.
func kinds(doc *Document, id ast.NodeID) []ast.Kind {
	var out []ast.Kind
	for _, c := range doc.Tree.Node(id).Children {
		out = append(out, doc.Tree.Kind(c))
	}
	return out
}

func TestATXHeadingLevels(t *testing.T) {
	t.Parallel()
	for n := 1; n <= 6; n++ {
		doc := parseDoc(t, strings.Repeat("#", n)+" text")
		id := doc.Tree.Find(doc.Tree.Root(), ast.KindHeader)
		require.Len(t, id, 1, "level %d", n)
		assert.Equal(t, n, doc.Tree.Node(id[0]).Level)
		assert.Equal(t, "text", doc.Tree.Text(id[0]))
	}
	doc := parseDoc(t, "####### text")
	assert.Zero(t, count(doc, ast.KindHeader))
	assert.Equal(t, 1, count(doc, ast.KindParagraph))
}

func TestATXHeadingClosingSequence(t *testing.T) {
	t.Parallel()
	tests := []struct {
		src  string
		want string
	}{
		{"### foo ###", "foo"},
		{"### foo ### b", "foo ### b"},
		{"## foo#", "foo#"},
		{"#", ""},
		{"# foo ##########   ", "foo"},
	}
	for _, tc := range tests {
		doc := parseDoc(t, tc.src)
		ids := doc.Tree.Find(doc.Tree.Root(), ast.KindHeader)
		require.Len(t, ids, 1, tc.src)
		assert.Equal(t, tc.want, doc.Tree.Text(ids[0]), tc.src)
	}
}

func TestSetextHeadings(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "Title\n=====\n\nSub\ntitle\n---\n")
	ids := doc.Tree.Find(doc.Tree.Root(), ast.KindHeader)
	require.Len(t, ids, 2)
	assert.Equal(t, 1, doc.Tree.Node(ids[0]).Level)
	assert.Equal(t, "Title", doc.Tree.Text(ids[0]))
	assert.Equal(t, 2, doc.Tree.Node(ids[1]).Level)
	assert.Equal(t, "Sub title", doc.Tree.Text(ids[1]))
	assert.Equal(t, 4, doc.Tree.Node(ids[1]).Line)
	assert.Zero(t, count(doc, ast.KindThematicBreak))
}

func TestThematicBreaks(t *testing.T) {
	t.Parallel()
	for _, src := range []string{"***", "---", "___", "- - -", " * * * *"} {
		doc := parseDoc(t, src)
		assert.Equal(t, 1, count(doc, ast.KindThematicBreak), "%q:\n%s", src, doc.Tree)
	}
	for _, src := range []string{"--", "- -", "**", "    ***"} {
		doc := parseDoc(t, src)
		assert.Zero(t, count(doc, ast.KindThematicBreak), "%q:\n%s", src, doc.Tree)
	}
}

func TestFencedCode(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "```\ncode\n```")
	code := only(t, doc, ast.KindCodeBlock)
	assert.Equal(t, "code", code.Literal)
	assert.Empty(t, code.Language)
	assert.True(t, code.Fenced)
	assert.Empty(t, doc.Diagnostics)

	doc = parseDoc(t, "~~~ go linenos\nfunc main() {}\n\n~~~\n")
	code = only(t, doc, ast.KindCodeBlock)
	assert.Equal(t, "go", code.Language)
	assert.Equal(t, "go linenos", code.Info)
	assert.Equal(t, "func main() {}\n", code.Literal)
}

func TestUnterminatedFenceRunsToEnd(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "```\ncode")
	code := only(t, doc, ast.KindCodeBlock)
	assert.Equal(t, "code", code.Literal)
	assert.Len(t, doc.Diagnostics.Filter(DiagUnclosedFence), 1)
}

func TestFenceInsideListItemStripsIndent(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "- item\n\n  ```\n  a\n   b\n  ```\n")
	code := only(t, doc, ast.KindCodeBlock)
	assert.Equal(t, "a\n b", code.Literal)
	item := doc.Tree.Find(doc.Tree.Root(), ast.KindListItem)
	require.Len(t, item, 1)
	assert.Equal(t, []ast.Kind{ast.KindParagraph, ast.KindCodeBlock}, kinds(doc, item[0]))
}

func TestIndentedCode(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "    a\n\n    b\n\n\npara\n")
	code := only(t, doc, ast.KindCodeBlock)
	assert.False(t, code.Fenced)
	assert.Equal(t, "a\n\nb", code.Literal)
	assert.Equal(t, 1, count(doc, ast.KindParagraph))

	doc = parseDoc(t, "para\n    not code\n")
	assert.Zero(t, count(doc, ast.KindCodeBlock))
}

func TestBlockquoteLazyContinuation(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "> foo\nbaz")
	root := doc.Tree.Root()
	require.Equal(t, []ast.Kind{ast.KindBlockquote}, kinds(doc, root))
	quote := doc.Tree.Node(root).Children[0]
	require.Equal(t, []ast.Kind{ast.KindParagraph}, kinds(doc, quote))
	para := doc.Tree.Node(quote).Children[0]
	assert.Equal(t, []ast.Kind{ast.KindText, ast.KindLineBreak, ast.KindText}, kinds(doc, para))
	assert.Equal(t, "foo baz", doc.Tree.Text(para))

	doc = parseDoc(t, "> foo\n\nbaz")
	assert.Equal(t, []ast.Kind{ast.KindBlockquote, ast.KindParagraph}, kinds(doc, doc.Tree.Root()))
}

func TestNestedBlockquotes(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "> a\n>> b\n> > c\n")
	assert.Equal(t, 2, count(doc, ast.KindBlockquote))
	inner := doc.Tree.Find(doc.Tree.Root(), ast.KindBlockquote)[1]
	assert.Equal(t, "b c", doc.Tree.Text(inner))
}

func TestListTightness(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		src   string
		tight bool
	}{
		{"tight", "- a\n- b\n", true},
		{"loose items", "- a\n\n- b\n", false},
		{"loose inside item", "- a\n\n  b\n- c\n", false},
		{"trailing blank", "- a\n- b\n\n", true},
		{"nested tight", "- a\n  - b\n- c\n", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc := parseDoc(t, tc.src)
			lists := doc.Tree.Find(doc.Tree.Root(), ast.KindUnorderedList)
			require.NotEmpty(t, lists)
			assert.Equal(t, tc.tight, doc.Tree.Node(lists[0]).Tight, "tree:\n%s", doc.Tree)
		})
	}
}

func TestOrderedListStart(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "3. a\n4. b\n")
	list := only(t, doc, ast.KindOrderedList)
	assert.Equal(t, 3, list.Start)
	assert.Equal(t, "3.", list.Marker)
	assert.Len(t, list.Children, 2)
	assert.Equal(t, "4.", doc.Tree.Node(list.Children[1]).Marker)
}

func TestListMarkerChangeStartsNewList(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "- a\n+ b\n1. c\n2) d\n")
	assert.Equal(t, []ast.Kind{
		ast.KindUnorderedList, ast.KindUnorderedList, ast.KindOrderedList, ast.KindOrderedList,
	}, kinds(doc, doc.Tree.Root()))
}

func TestOrderedListInterruptsParagraphOnlyFromOne(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "The year\n2020. was long\n")
	assert.Zero(t, count(doc, ast.KindOrderedList))
	doc = parseDoc(t, "Steps\n1. one\n")
	assert.Equal(t, 1, count(doc, ast.KindOrderedList))
}

func TestHTMLBlocks(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "<div>\nhi\n</div>\n\ntext\n")
	block := only(t, doc, ast.KindHTMLBlock)
	assert.Equal(t, "<div>\nhi\n</div>", block.Literal)
	assert.Equal(t, 1, count(doc, ast.KindParagraph))

	doc = parseDoc(t, "<!-- note -->\nafter\n")
	block = only(t, doc, ast.KindHTMLBlock)
	assert.Equal(t, "<!-- note -->", block.Literal)
	assert.Equal(t, 1, count(doc, ast.KindParagraph))

	doc = parseDoc(t, "<script>\nlet a = 1;\n\nlet b = 2;\n</script>\n")
	block = only(t, doc, ast.KindHTMLBlock)
	assert.Equal(t, "<script>\nlet a = 1;\n\nlet b = 2;\n</script>", block.Literal)
}

func TestHTMLBlockTypeSevenCannotInterruptParagraph(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "para\n<span>\n")
	assert.Zero(t, count(doc, ast.KindHTMLBlock))
	assert.Equal(t, 1, count(doc, ast.KindHTMLInline))
}

func TestTables(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "| a | b |\n|:--|--:|\n| 1 | 2 |\n| 3 |\n\nafter\n")
	table := only(t, doc, ast.KindTable)
	require.Len(t, table.Children, 3)
	header := doc.Tree.Node(table.Children[0])
	assert.True(t, header.Header)
	require.Len(t, header.Children, 2)
	assert.Equal(t, ast.AlignLeft, doc.Tree.Node(header.Children[0]).Align)
	assert.Equal(t, ast.AlignRight, doc.Tree.Node(header.Children[1]).Align)
	assert.Equal(t, "a", doc.Tree.Text(header.Children[0]))

	short := doc.Tree.Node(table.Children[2])
	require.Len(t, short.Children, 2)
	assert.Equal(t, "3", doc.Tree.Text(short.Children[0]))
	assert.Empty(t, doc.Tree.Node(short.Children[1]).Children)
	assert.Equal(t, 1, count(doc, ast.KindParagraph))
}

func TestTableKeepsLeadingParagraphLines(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "intro\na | b\n--|--\nx | y \\| z\n")
	assert.Equal(t, []ast.Kind{ast.KindParagraph, ast.KindTable}, kinds(doc, doc.Tree.Root()))
	table := only(t, doc, ast.KindTable)
	row := doc.Tree.Node(table.Children[1])
	assert.Equal(t, "y | z", doc.Tree.Text(row.Children[1]))
}

func TestDefinitionsBeforeUnderlineLine(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "[foo]: /url\n---\n")
	assert.Equal(t, []ast.Kind{ast.KindThematicBreak}, kinds(doc, doc.Tree.Root()))
	def, ok := doc.Definition("foo")
	require.True(t, ok)
	assert.Equal(t, "/url", def.URL)

	doc = parseDoc(t, "[foo]: /url\n===\n")
	para := only(t, doc, ast.KindParagraph)
	assert.Equal(t, "===", doc.Tree.Text(doc.Tree.Find(doc.Tree.Root(), ast.KindParagraph)[0]))
	assert.Equal(t, 2, para.Line)

	doc = parseDoc(t, "[foo]: /url\nbar\n===\n")
	assert.Equal(t, []ast.Kind{ast.KindHeader}, kinds(doc, doc.Tree.Root()))
	assert.Equal(t, "bar", doc.Tree.Text(doc.Tree.Node(doc.Tree.Root()).Children[0]))

	doc = parseDoc(t, "[foo]: /url\n-")
	assert.Equal(t, []ast.Kind{ast.KindUnorderedList}, kinds(doc, doc.Tree.Root()))
}

func TestDefinitionsBeforeTableHeader(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "[foo]: /url\na | b\n--|--\n")
	assert.Equal(t, []ast.Kind{ast.KindTable}, kinds(doc, doc.Tree.Root()))
	table := only(t, doc, ast.KindTable)
	assert.Equal(t, "a", doc.Tree.Text(doc.Tree.Node(table.Children[0]).Children[0]))
	_, ok := doc.Definition("foo")
	assert.True(t, ok)
}

func TestTableNeedsMatchingColumns(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "| a | b |\n| - |\n")
	assert.Zero(t, count(doc, ast.KindTable))
	doc = parseDoc(t, "| a | b |\n|---|---|\n", WithoutExtensions(ExtTables))
	assert.Zero(t, count(doc, ast.KindTable))
}

func TestNestingLimitDegradesToText(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "> > > > x\n", WithMaxNesting(3))
	assert.Equal(t, 2, count(doc, ast.KindBlockquote))
	para := only(t, doc, ast.KindParagraph)
	assert.Equal(t, 1, len(para.Children))
	assert.Equal(t, "> > x", doc.Tree.Text(doc.Tree.Find(doc.Tree.Root(), ast.KindParagraph)[0]))
	assert.Len(t, doc.Diagnostics.Filter(DiagNestingLimit), 1)
}

func TestBlockLines(t *testing.T) {
	t.Parallel()
	doc := parseDoc(t, "# one\n\ntwo\n\n- three\n")
	root := doc.Tree.Node(doc.Tree.Root())
	var lines []int
	for _, c := range root.Children {
		lines = append(lines, doc.Tree.Node(c).Line)
	}
	assert.Equal(t, []int{1, 3, 5}, lines)
}

func TestMalformedInputNeverPanics(t *testing.T) {
	t.Parallel()
	inputs := []string{
		"", "\n\n", "[", "]", "![", "*", "**_", "```", "<", "<!--", "> ", "- ", "1.",
		"[a]: ", "[^]", "[@]:", "$$", ":::", "::: note", "|", "|-|", "&#;", "\\", "\t\t-\t>",
		"[x](", "[x](<y", "*a **b* c**", "- [ ]", "> - > 1. ```",
		"[foo]: /url\n---\n", "[x]:\\\n-", "[x]: /u\n|a|\n|-|", "a <!-- x\r--> b\n",
		"a <?x\ry?>", "<![CDATA[\r]]>", "[a *b [c][r]*][r]\n\n[r]: /u",
	}
	for _, src := range inputs {
		doc := ParseString(src)
		require.NoError(t, doc.Tree.Check(), "%q", src)
	}
}

// randomMarkdown builds a document from pieces that open and close block and
// inline constructs, so unusual combinations show up quickly.
func randomMarkdown(r *rand.Rand, pieces []string, n int) string {
	var b strings.Builder
	for range n {
		b.WriteString(pieces[r.IntN(len(pieces))])
	}
	return b.String()
}

func TestRandomInputKeepsInvariants(t *testing.T) {
	t.Parallel()
	pieces := []string{
		"\r", "\n", "\r\n", " ", "  ", "\t", "[", "]", "(", ")", ":", "-", "=", "*", "_", "~~",
		"`", "``", "<", ">", "!", "?", "$", "$$", "\\", "|", "#", "a", "b c", "1.", "+",
		"<!--", "-->", "<?", "?>", "<![CDATA[", "]]>", "<div>", "```", ":::", "[^n]", "[@c]",
		"[foo]: /url", "---", "&amp;", "\\(", "\\)", "http://x.y", "\"t\"",
	}
	r := rand.New(rand.NewPCG(7, 11))
	for range 3000 {
		src := randomMarkdown(r, pieces, 1+r.IntN(40))
		require.Equal(t, src, token.Join(token.Tokenize(src)), "%q", src)
		for _, line := range token.Lines(token.Tokenize(src)) {
			for _, tok := range line.Tokens {
				require.False(t, strings.ContainsAny(tok.Text, "\r\n"), "%q in %q", tok.Text, src)
			}
		}
		doc := ParseString(src)
		require.NoError(t, doc.Tree.Check(), "%q", src)
	}
}
