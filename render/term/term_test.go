package term

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkt.systems/mdast"
)

func renderPlain(t *testing.T, src string, width int, opts ...Option) string {
	t.Helper()
	out, err := RenderString(mdast.ParseString(src), width, BoringTheme(), opts...)
	require.NoError(t, err)
	return out
}

func TestRenderBlocksPlain(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		src   string
		width int
		want  string
	}{
		{"heading", "# Title\n\nSome *text* here.\n", 80, "# Title\n\nSome text here.\n"},
		{"wrap", "aaa bbb ccc ddd\n", 7, "aaa bbb\nccc ddd\n"},
		{"soft break joins", "one\ntwo\n", 80, "one two\n"},
		{"hard break", "one  \ntwo\n", 80, "one\ntwo\n"},
		{"tight list", "- a\n- b\n", 80, "- a\n- b\n"},
		{"loose list", "- a\n\n- b\n", 80, "- a\n\n- b\n"},
		{"nested list", "- a\n  - b\n", 80, "- a\n  - b\n"},
		{"ordered", "3. x\n4. y\n", 80, "3. x\n4. y\n"},
		{"task list", "- [ ] todo\n- [x] done\n", 80, "- [ ] todo\n- [x] done\n"},
		{"blockquote", "> q\n>\n> r\n", 80, "> q\n>\n> r\n"},
		{"code", "```\nx := 1\n```\n", 80, "  x := 1\n"},
		{"thematic break", "a\n\n---\n", 10, "a\n\n──────────\n"},
		{"math", "$x^2$ and\n\n$$\na < b\n$$\n", 80, "x^2 and\n\n  a < b\n"},
		{"admonition", "::: warning\nBody.\n:::\n", 80, "▌ WARNING\n▌ Body.\n"},
		{"admonition title", "::: tip \"Read me\"\nx\n:::\n", 80, "▌ TIP: Read me\n▌ x\n"},
		{"kept text for unresolved", "[missing]\n", 80, "[missing]\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, renderPlain(t, tc.src, tc.width))
		})
	}
}

func TestRenderLinks(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "site (https://example.com)\n", renderPlain(t, "[site](https://example.com)\n", 80))
	assert.Equal(t, "https://example.com\n", renderPlain(t, "<https://example.com>\n", 80))

	out := renderPlain(t, "[site](https://example.com)\n", 80, WithOSC8(true))
	assert.Equal(t, "\x1b]8;;https://example.com\x1b\\site\x1b]8;;\x1b\\\n", out)
}

func TestRenderTable(t *testing.T) {
	t.Parallel()
	out := renderPlain(t, "| a | b |\n|:--|--:|\n| 1 | 22 |\n", 80)
	assert.Equal(t, "│ a │  b │\n├───┼────┤\n│ 1 │ 22 │\n", out)

	out = renderPlain(t, "| abcdefghij |\n|---|\n", 10)
	assert.Equal(t, "│ abcde… │\n├────────┤\n", out)
}

func TestRenderFootnotesAndCitations(t *testing.T) {
	t.Parallel()
	out := renderPlain(t, "Hi[^n].\n\n[^n]: Note.\n", 80)
	assert.Equal(t, "Hi[1].\n\n"+strings.Repeat("─", 20)+"\n[1] Note.\n", out)

	out = renderPlain(t, "As shown [@Doe2020].\n\n[@doe2020]: Doe, J. 2020.\n", 80)
	assert.Contains(t, out, "As shown [@Doe2020].")
	assert.Contains(t, out, "Doe, J. 2020.")
}

func TestSoftWrapSplitsLongWords(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "abcdefghij\n", renderPlain(t, "abcdefghij\n", 5))
	assert.Equal(t, "abcde\nfghij\n", renderPlain(t, "abcdefghij\n", 5, WithSoftWrap(true)))
}

func TestRenderStyles(t *testing.T) {
	t.Parallel()
	out, err := RenderString(mdast.ParseString("**b**\n"), 80, DefaultTheme())
	require.NoError(t, err)
	assert.Equal(t, Bold+"b"+Reset+"\n", out)

	out, err = RenderString(mdast.ParseString("```go\nfunc main() {}\n```\n"), 80, DefaultTheme())
	require.NoError(t, err)
	assert.Contains(t, out, "\x1b[38;2;")
	assert.True(t, strings.HasPrefix(out, "  "))

	out, err = RenderString(mdast.ParseString("```go\nfunc main() {}\n```\n"), 80, BoringTheme())
	require.NoError(t, err)
	assert.Equal(t, "  func main() {}\n", out)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestRenderErrors(t *testing.T) {
	t.Parallel()
	assert.ErrorIs(t, Render(RenderRequest{Writer: &strings.Builder{}}), ErrNilDocument)
	assert.ErrorIs(t, Render(RenderRequest{Document: mdast.ParseString("x")}), ErrNilWriter)
	assert.Error(t, Render(RenderRequest{Document: mdast.ParseString("x"), Writer: failingWriter{}}))
}

func TestWrapHelpers(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "https://a.io", fitURL("https://a.io", 20))
	assert.Equal(t, "a.io/x", fitURL("https://a.io/x", 8))
	assert.Equal(t, "example.com/ve…", fitURL("https://example.com/very/long", 15))
	assert.Equal(t, "a…", truncateWithEllipsis("abc", 2))
	assert.Equal(t, "", truncateWithEllipsis("abc", 0))
	assert.Equal(t, []string{"- a", "", "  b"}, prefixLines([]string{"a", "", "b"}, "- ", "  "))
}
