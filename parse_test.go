package mdast

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkt.systems/mdast/ast"
	"pkt.systems/mdast/token"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestParseRequestErrors(t *testing.T) {
	t.Parallel()
	_, err := Parse(ParseRequest{})
	assert.ErrorIs(t, err, ErrNilReader)

	_, err = Parse(ParseRequest{Reader: failingReader{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestParseReadsReader(t *testing.T) {
	t.Parallel()
	doc, err := Parse(ParseRequest{
		Reader:  strings.NewReader("# Title\n\nBody ~~x~~\n"),
		Options: []Option{WithoutExtensions(ExtStrikethrough)},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count(doc, ast.KindHeader))
	assert.Zero(t, count(doc, ast.KindStrike))
	assert.Contains(t, doc.String(), "Header level=1")
}

func TestParseBytesStripsBOM(t *testing.T) {
	t.Parallel()
	doc, err := ParseBytes([]byte("\xEF\xBB\xBF# Title\n"))
	require.NoError(t, err)
	assert.Equal(t, "Title", doc.Tree.Text(doc.Tree.Root()))
}

func TestTokenizationIsLossless(t *testing.T) {
	t.Parallel()
	inputs := []string{
		"# h\n\n> q\n- a\n  1. b\n\n```go\nx\n```\n",
		"a *b* `c` <d> &amp; [e](f) $g$ \\(h\\)\r\nnext\rline",
		"| a | b |\n|---|---|\n::: note\nx\n:::\n$$\ny\n$$\n<div>\n\nz</div>\n    code\n",
	}
	for _, src := range inputs {
		toks := token.Tokenize(src)
		assert.Equal(t, src, token.Join(toks))
		var b strings.Builder
		for _, line := range token.Lines(toks) {
			b.WriteString(line.Text())
			b.WriteString(line.End.Text)
		}
		assert.Equal(t, src, b.String())
	}
}

func TestDiagnosticsErr(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ParseString("plain").Diagnostics.Err())

	doc := parseDoc(t, "[unused]: /u\n\n[missing]\n")
	err := doc.Diagnostics.Err()
	require.Error(t, err)
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 2)
	assert.Contains(t, err.Error(), "line 3: unresolved-reference")

	var diag Diagnostic
	require.True(t, errors.As(merr.Errors[0], &diag))
	assert.Equal(t, DiagUnresolvedReference, diag.Kind)
}

func TestParseLogsDiagnostics(t *testing.T) {
	t.Parallel()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	ParseString("[missing]\n", WithLogger(logger))

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "unresolved-reference", entries[0].Data["kind"])
	assert.Equal(t, 1, entries[0].Data["line"])
	assert.Equal(t, "parsed markdown", entries[1].Message)
	assert.Equal(t, 1, entries[1].Data["diagnostics"])
}

func TestParseURL(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/doc.md" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/markdown")
		_, _ = w.Write([]byte("# Remote\n\n[link](/x)\n"))
	}))
	defer srv.Close()

	doc, err := ParseURL(context.Background(), URLParseRequest{URL: srv.URL + "/doc.md", Client: srv.Client()})
	require.NoError(t, err)
	assert.Equal(t, 1, count(doc, ast.KindHeader))
	assert.Equal(t, "/x", only(t, doc, ast.KindLink).URL)

	_, err = ParseURL(context.Background(), URLParseRequest{URL: srv.URL + "/missing", Client: srv.Client()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestParseURLRejectsSchemes(t *testing.T) {
	t.Parallel()
	_, err := ParseURL(context.Background(), URLParseRequest{URL: "file:///etc/passwd"})
	assert.ErrorIs(t, err, ErrUnsupportedScheme)

	_, err = ParseURL(context.Background(), URLParseRequest{})
	assert.Error(t, err)
}
