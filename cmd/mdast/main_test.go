package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenInputFileAndURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "input.md")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	reader, closer, err := openInputs([]string{path}, nil)
	if err != nil {
		t.Fatalf("openInputs file: %v", err)
	}
	defer func() { _ = closer.Close() }()
	buf, _ := io.ReadAll(reader)
	if string(buf) != "hello" {
		t.Fatalf("unexpected file content: %q", string(buf))
	}

	reader, closer, err = openInputs([]string{"file://" + path}, nil)
	if err != nil {
		t.Fatalf("openInputs file URL: %v", err)
	}
	defer func() { _ = closer.Close() }()
	buf, _ = io.ReadAll(reader)
	if string(buf) != "hello" {
		t.Fatalf("unexpected file URL content: %q", string(buf))
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("stream"))
	}))
	defer srv.Close()
	reader, closer, err = openInputs([]string{srv.URL}, nil)
	if err != nil {
		t.Fatalf("openInputs http: %v", err)
	}
	defer func() { _ = closer.Close() }()
	buf, _ = io.ReadAll(reader)
	if string(buf) != "stream" {
		t.Fatalf("unexpected http content: %q", string(buf))
	}
}

func TestOpenInputsConcatenates(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.md")
	second := filepath.Join(dir, "b.md")
	if err := os.WriteFile(first, []byte("one "), 0o644); err != nil {
		t.Fatalf("write first: %v", err)
	}
	if err := os.WriteFile(second, []byte("two"), 0o644); err != nil {
		t.Fatalf("write second: %v", err)
	}
	reader, closer, err := openInputs([]string{first, second}, nil)
	if err != nil {
		t.Fatalf("openInputs concat: %v", err)
	}
	defer func() { _ = closer.Close() }()
	buf, _ := io.ReadAll(reader)
	if string(buf) != "one two" {
		t.Fatalf("unexpected concatenated content: %q", string(buf))
	}

	reader, _, err = openInputs(nil, strings.NewReader("stdin"))
	if err != nil {
		t.Fatalf("openInputs stdin: %v", err)
	}
	buf, _ = io.ReadAll(reader)
	if string(buf) != "stdin" {
		t.Fatalf("unexpected stdin content: %q", string(buf))
	}
}

func TestResolveOSC8(t *testing.T) {
	cases := map[string]bool{
		"on":  true,
		"off": false,
		"1":   true,
		"0":   false,
	}
	for input, want := range cases {
		got, err := resolveOSC8(input, io.Discard)
		if err != nil {
			t.Fatalf("resolveOSC8(%q): %v", input, err)
		}
		if got != want {
			t.Fatalf("resolveOSC8(%q)=%v want %v", input, got, want)
		}
	}
	if got, _ := resolveOSC8("auto", &bytes.Buffer{}); got {
		t.Fatalf("expected auto to stay off for a non-terminal writer")
	}
	if _, err := resolveOSC8("nope", io.Discard); err == nil {
		t.Fatalf("expected error for invalid osc8 value")
	}
}

// isolateConfig points the config lookup at an empty directory.
func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("MDAST_FORMAT", "")
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunFormats(t *testing.T) {
	isolateConfig(t)
	code, out, _ := runCLI(t, "# Title\n", "--format", "html")
	require.Equal(t, 0, code)
	assert.Equal(t, "<h1 id=\"title\">Title</h1>\n", out)

	code, out, _ = runCLI(t, "# Title\n", "-f", "ansi", "--boring", "-w", "20")
	require.Equal(t, 0, code)
	assert.Equal(t, "# Title\n", out)

	code, out, _ = runCLI(t, "# Title\n", "-f", "tree")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Header level=1")

	code, out, _ = runCLI(t, "---\ntitle: T\n---\n[x]\n", "-f", "json")
	require.Equal(t, 0, code)
	var doc jsonDocument
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "Document", doc.Tree.Kind)
	require.NotNil(t, doc.FrontMatter)
	assert.Equal(t, "T", doc.FrontMatter.Data["title"])
	require.Len(t, doc.Diagnostics, 1)
	assert.Equal(t, "unresolved-reference", doc.Diagnostics[0].Kind)
}

func TestRunExtensions(t *testing.T) {
	isolateConfig(t)
	code, out, _ := runCLI(t, "~~x~~\n", "-f", "html", "--no-ext")
	require.Equal(t, 0, code)
	assert.Equal(t, "<p>~~x~~</p>\n", out)

	code, out, _ = runCLI(t, "~~x~~ $y$\n", "-f", "html", "--ext", "strikethrough")
	require.Equal(t, 0, code)
	assert.Equal(t, "<p><del>x</del> $y$</p>\n", out)

	code, _, errOut := runCLI(t, "x", "--ext", "bogus")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "unknown extension")
}

func TestRunErrors(t *testing.T) {
	isolateConfig(t)
	code, _, errOut := runCLI(t, "x", "-f", "pdf")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "unknown format")

	code, _, errOut = runCLI(t, "x", "-t", "no-such-theme")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "unknown theme")

	code, _, _ = runCLI(t, "x", "--log-level", "loud")
	assert.Equal(t, 2, code)

	code, _, _ = runCLI(t, "", filepath.Join(t.TempDir(), "missing.md"))
	assert.Equal(t, 1, code)

	code, _, _ = runCLI(t, "a\x00\x01\x02\x03\x04\x05")
	assert.Equal(t, 1, code)
}

func TestRunDiagnostics(t *testing.T) {
	isolateConfig(t)
	code, _, errOut := runCLI(t, "[missing]\n", "-f", "tree", "--diagnostics")
	require.Equal(t, 0, code)
	assert.Contains(t, errOut, "kind=unresolved-reference")
	assert.Contains(t, errOut, "line=1")
}

func TestRunConfigLayers(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "mdast"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mdast", "config.yaml"), []byte("format: html\n"), 0o644))
	isolateConfig(t)
	t.Setenv("XDG_CONFIG_HOME", dir)

	code, out, _ := runCLI(t, "hi\n")
	require.Equal(t, 0, code)
	assert.Equal(t, "<p>hi</p>\n", out)

	t.Setenv("MDAST_FORMAT", "tree")
	code, out, _ = runCLI(t, "hi\n")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Paragraph")

	code, out, _ = runCLI(t, "hi\n", "-f", "html")
	require.Equal(t, 0, code)
	assert.Equal(t, "<p>hi</p>\n", out)
}

func TestRunOutputFileAndListThemes(t *testing.T) {
	isolateConfig(t)
	path := filepath.Join(t.TempDir(), "out", "doc.html")
	code, _, _ := runCLI(t, "hi\n", "-f", "html", "-o", path)
	require.Equal(t, 0, code)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>\n", string(data))

	code, out, _ := runCLI(t, "", "--list-themes")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "default\n")
	assert.Contains(t, out, "nord\n")

	code, out, _ = runCLI(t, "", "--version")
	require.Equal(t, 0, code)
	assert.NotEmpty(t, out)
}
