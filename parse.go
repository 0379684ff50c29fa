package mdast

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"pkt.systems/mdast/ast"
)

// ErrNilReader reports a ParseRequest without a Reader.
var ErrNilReader = errors.New("parse: Reader is nil")

// Document is a parsed Markdown document.
type Document struct {
	Tree *ast.Tree
	// FrontMatter is the leading metadata block, if any.
	FrontMatter *FrontMatter
	// References maps normalized labels to link reference definitions.
	References map[string]Definition
	// Footnotes lists the referenced Footnote nodes in numbering order.
	Footnotes []ast.NodeID
	// Diagnostics are the recoverable problems noticed while parsing.
	Diagnostics Diagnostics
}

// Definition looks up a link reference definition by label.
func (d *Document) Definition(label string) (Definition, bool) {
	def, ok := d.References[NormalizeLabel(label)]
	return def, ok
}

func (d *Document) String() string { return d.Tree.String() }

// ParseRequest configures Parse.
type ParseRequest struct {
	Reader  io.Reader
	Options []Option
}

// Parse reads all of req.Reader and parses it. Malformed Markdown never
// fails; only read errors and, with WithRejectBinary, binary input do.
func Parse(req ParseRequest) (*Document, error) {
	if req.Reader == nil {
		return nil, ErrNilReader
	}
	src, err := io.ReadAll(req.Reader)
	if err != nil {
		return nil, fmt.Errorf("parse: read: %w", err)
	}
	return ParseBytes(src, req.Options...)
}

// ParseBytes parses src.
func ParseBytes(src []byte, opts ...Option) (*Document, error) {
	cfg := newConfig(opts)
	if cfg.rejectBinary {
		if err := ValidateInput(src); errors.Is(err, ErrBinaryInput) {
			return nil, err
		}
	}
	return parse(cfg, src), nil
}

// ParseString parses src. WithRejectBinary has no effect here.
func ParseString(src string, opts ...Option) *Document {
	return parse(newConfig(opts), []byte(src))
}

func parse(cfg config, src []byte) *Document {
	start := time.Now()
	var diags Diagnostics
	src, stats := sanitize(trimBOM(src))
	if stats.invalid > 0 {
		diags.add(DiagInvalidUTF8, stats.firstInvalid, "%d invalid UTF-8 sequence(s) replaced with U+FFFD", stats.invalid)
	}
	if stats.nul > 0 {
		diags.add(DiagNUL, stats.firstNUL, "%d NUL byte(s) replaced with U+FFFD", stats.nul)
	}

	doc := &Document{}
	lineBase := 0
	if cfg.ext.Has(ExtFrontMatter) {
		fm, body, lines, err := extractFrontMatter(src)
		if err != nil {
			diags.add(DiagFrontMatter, 1, "%v", err)
		}
		if fm != nil {
			doc.FrontMatter = fm
			src = body
			lineBase = lines
		}
	}

	p := newParser(cfg, string(src))
	p.lineBase = lineBase
	p.diags = diags
	p.run()
	doc.Footnotes = p.finishReferences()
	doc.Tree = p.tree
	doc.References = make(map[string]Definition, len(p.refs.defs))
	for key, def := range p.refs.defs {
		doc.References[key] = *def
	}
	doc.Diagnostics = p.diags

	if cfg.logger != nil {
		p.diags.log(cfg.logger)
		cfg.logger.WithFields(logrus.Fields{
			"bytes":       len(src),
			"lines":       p.lineNo,
			"nodes":       p.tree.Len(),
			"diagnostics": len(p.diags),
			"elapsed":     time.Since(start),
		}).Debug("parsed markdown")
	}
	return doc
}
