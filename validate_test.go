package mdast

import (
	"testing"
)

func TestValidateInputRejectsInvalidUTF8(t *testing.T) {
	data := []byte{0xff, 0xfe, 0xfd}
	if err := ValidateInput(data); err != ErrInvalidUTF8 {
		t.Fatalf("expected ErrInvalidUTF8, got %v", err)
	}
}

func TestValidateInputRejectsBinary(t *testing.T) {
	data := append([]byte("hello"), 0x00)
	if err := ValidateInput(data); err != ErrBinaryInput {
		t.Fatalf("expected ErrBinaryInput, got %v", err)
	}
}

func TestSanitizeReplacesInvalidBytesAndNUL(t *testing.T) {
	out, n := Sanitize([]byte("a\xffb\x00c"))
	if n != 2 {
		t.Fatalf("expected 2 replacements, got %d", n)
	}
	if got, want := string(out), "a\uFFFDb\uFFFDc"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSanitizeKeepsValidInput(t *testing.T) {
	src := []byte("héllo\nworld\n")
	out, n := Sanitize(src)
	if n != 0 || string(out) != string(src) {
		t.Fatalf("unexpected change: %q (%d)", out, n)
	}
}

func TestParseRejectBinary(t *testing.T) {
	_, err := ParseBytes(append([]byte("# hi"), 0x00), WithRejectBinary(true))
	if err != ErrBinaryInput {
		t.Fatalf("expected ErrBinaryInput, got %v", err)
	}
}

func TestParseReportsSanitizedInput(t *testing.T) {
	doc := ParseString("ok\n\nbad \xff byte\n")
	diags := doc.Diagnostics.Filter(DiagInvalidUTF8)
	if len(diags) != 1 || diags[0].Line != 3 {
		t.Fatalf("expected one invalid-utf8 diagnostic on line 3, got %v", doc.Diagnostics)
	}
	if got := doc.Tree.Text(doc.Tree.Root()); got != "okbad \uFFFD byte" {
		t.Fatalf("unexpected text %q", got)
	}
}
