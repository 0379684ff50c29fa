// Package html renders a parsed Markdown document as HTML.
//
// Output follows the CommonMark reference renderer for core constructs and
// the GitHub conventions for tables, task lists and footnotes.
package html

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"
	"unicode"

	xhtml "golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"pkt.systems/mdast"
	"pkt.systems/mdast/ast"
)

var (
	// ErrNilDocument is returned when a request carries no document.
	ErrNilDocument = errors.New("html: nil document")
	// ErrNilWriter is returned when a request carries no writer.
	ErrNilWriter = errors.New("html: nil writer")
)

// Option configures rendering behavior.
type Option func(*config)

type config struct {
	safe       bool
	headingIDs bool
}

// WithSafe omits raw HTML and drops javascript:, vbscript:, file: and
// non-image data: destinations.
func WithSafe(enabled bool) Option {
	return func(cfg *config) {
		cfg.safe = enabled
	}
}

// WithHeadingIDs adds slug id attributes to headings.
func WithHeadingIDs(enabled bool) Option {
	return func(cfg *config) {
		cfg.headingIDs = enabled
	}
}

// RenderRequest describes one rendering pass.
type RenderRequest struct {
	Document *mdast.Document
	Writer   io.Writer
	Options  []Option
}

// Render writes req.Document as HTML to req.Writer.
func Render(req RenderRequest) error {
	if req.Document == nil || req.Document.Tree == nil {
		return ErrNilDocument
	}
	if req.Writer == nil {
		return ErrNilWriter
	}
	r := newRenderer(req.Document, req.Writer, req.Options)
	r.render(r.tree.Root())
	r.footnoteSection()
	if err := r.w.Flush(); err != nil && r.err == nil {
		r.err = err
	}
	return r.err
}

// RenderString renders doc and returns the HTML.
func RenderString(doc *mdast.Document, opts ...Option) (string, error) {
	var b strings.Builder
	if err := Render(RenderRequest{Document: doc, Writer: &b, Options: opts}); err != nil {
		return "", err
	}
	return b.String(), nil
}

type renderer struct {
	cfg   config
	doc   *mdast.Document
	tree  *ast.Tree
	w     *bufio.Writer
	err   error
	last  byte
	title cases.Caser
	lower cases.Caser

	// tight holds one entry per open list.
	tight       []bool
	pendingTask ast.NodeID
	slugs       map[string]int
	citations   map[string]bool
	fnRefs      map[int]int

	backrefTarget ast.NodeID
	backrefIndex  int
}

func newRenderer(doc *mdast.Document, w io.Writer, opts []Option) *renderer {
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	r := &renderer{
		cfg:           cfg,
		doc:           doc,
		tree:          doc.Tree,
		w:             bufio.NewWriter(w),
		last:          '\n',
		title:         cases.Title(language.English),
		lower:         cases.Lower(language.Und),
		pendingTask:   ast.NoNode,
		backrefTarget: ast.NoNode,
		slugs:         make(map[string]int),
		citations:     make(map[string]bool),
		fnRefs:        make(map[int]int),
	}
	for _, id := range r.tree.Find(r.tree.Root(), ast.KindCitation) {
		r.citations[r.tree.Node(id).Identifier] = true
	}
	return r
}

func (r *renderer) write(s string) {
	if r.err != nil || s == "" {
		return
	}
	if _, err := r.w.WriteString(s); err != nil {
		r.err = err
		return
	}
	r.last = s[len(s)-1]
}

func (r *renderer) escape(s string) { r.write(xhtml.EscapeString(s)) }

// cr starts a new line unless the output already ends with one.
func (r *renderer) cr() {
	if r.last != '\n' {
		r.write("\n")
	}
}

func (r *renderer) attr(name, value string) {
	r.write(" " + name + "=\"")
	r.escape(value)
	r.write("\"")
}

func (r *renderer) children(id ast.NodeID) {
	for _, c := range r.tree.Node(id).Children {
		r.render(c)
	}
}

func (r *renderer) inTightList() bool {
	return len(r.tight) > 0 && r.tight[len(r.tight)-1]
}

func (r *renderer) render(id ast.NodeID) {
	n := r.tree.Node(id)
	switch n.Kind {
	case ast.KindDocument:
		r.children(id)
	case ast.KindParagraph:
		r.paragraph(id, n)
	case ast.KindHeader:
		r.heading(id, n)
	case ast.KindBlockquote:
		r.cr()
		r.write("<blockquote>\n")
		r.children(id)
		r.cr()
		r.write("</blockquote>\n")
	case ast.KindOrderedList, ast.KindUnorderedList:
		r.list(id, n)
	case ast.KindListItem, ast.KindTaskListItem:
		r.item(id, n)
	case ast.KindCodeBlock:
		r.codeBlock(n)
	case ast.KindHTMLBlock:
		r.cr()
		if r.cfg.safe {
			r.write("<!-- raw HTML omitted -->\n")
			return
		}
		r.write(n.Literal)
		r.cr()
	case ast.KindThematicBreak:
		r.cr()
		r.write("<hr />\n")
	case ast.KindTable:
		r.table(id, n)
	case ast.KindFootnote:
		// Rendered in the footnote section.
	case ast.KindCitation:
		r.cr()
		r.write(`<div class="citation"`)
		r.attr("id", "cite-"+n.Identifier)
		r.write(">\n")
		r.children(id)
		r.cr()
		r.write("</div>\n")
	case ast.KindFormulaBlock:
		r.cr()
		r.write(`<div class="math display">\[`)
		r.escape(n.Literal)
		r.write("\\]</div>\n")
	case ast.KindAdmonition:
		r.admonition(id, n)
	default:
		r.inline(id, n)
	}
}

func (r *renderer) paragraph(id ast.NodeID, n *ast.Node) {
	parent := r.tree.Node(n.Parent)
	bare := parent.Kind.IsItem() && r.inTightList()
	if !bare {
		r.cr()
		r.write("<p>")
	}
	if r.pendingTask == n.Parent {
		r.checkbox(parent.Checked)
	}
	r.children(id)
	if id == r.backrefTarget {
		r.backref()
	}
	if !bare {
		r.write("</p>\n")
	}
}

func (r *renderer) heading(id ast.NodeID, n *ast.Node) {
	tag := "h" + strconv.Itoa(n.Level)
	r.cr()
	r.write("<" + tag)
	if r.cfg.headingIDs {
		r.attr("id", r.slug(r.tree.Text(id)))
	}
	r.write(">")
	r.children(id)
	r.write("</" + tag + ">\n")
}

func (r *renderer) list(id ast.NodeID, n *ast.Node) {
	tag := "ul"
	if n.Kind == ast.KindOrderedList {
		tag = "ol"
	}
	r.cr()
	r.write("<" + tag)
	if n.Kind == ast.KindOrderedList && n.Start != 1 {
		r.attr("start", strconv.Itoa(n.Start))
	}
	r.write(">\n")
	r.tight = append(r.tight, n.Tight)
	r.children(id)
	r.tight = r.tight[:len(r.tight)-1]
	r.cr()
	r.write("</" + tag + ">\n")
}

func (r *renderer) item(id ast.NodeID, n *ast.Node) {
	r.cr()
	r.write("<li>")
	if n.Kind == ast.KindTaskListItem {
		first := n.FirstChild()
		if first != ast.NoNode && r.tree.Kind(first) == ast.KindParagraph {
			r.pendingTask = id
		} else {
			r.checkbox(n.Checked)
		}
	}
	r.children(id)
	r.pendingTask = ast.NoNode
	r.write("</li>\n")
}

func (r *renderer) checkbox(checked bool) {
	r.pendingTask = ast.NoNode
	if checked {
		r.write(`<input type="checkbox" checked="" disabled="" /> `)
		return
	}
	r.write(`<input type="checkbox" disabled="" /> `)
}

func (r *renderer) codeBlock(n *ast.Node) {
	r.cr()
	r.write("<pre><code")
	if n.Language != "" {
		r.attr("class", "language-"+n.Language)
	}
	r.write(">")
	if n.Literal != "" {
		r.escape(n.Literal)
		r.write("\n")
	}
	r.write("</code></pre>\n")
}

func (r *renderer) table(id ast.NodeID, n *ast.Node) {
	r.cr()
	r.write("<table>\n")
	inBody := false
	for _, row := range n.Children {
		header := r.tree.Node(row).Header
		switch {
		case header:
			r.write("<thead>\n")
		case !inBody:
			r.write("<tbody>\n")
			inBody = true
		}
		r.write("<tr>\n")
		for _, cell := range r.tree.Node(row).Children {
			tag := "td"
			if header {
				tag = "th"
			}
			r.write("<" + tag)
			if align := r.tree.Node(cell).Align; align != ast.AlignNone {
				r.attr("align", align.String())
			}
			r.write(">")
			r.children(cell)
			r.write("</" + tag + ">\n")
		}
		r.write("</tr>\n")
		if header {
			r.write("</thead>\n")
		}
	}
	if inBody {
		r.write("</tbody>\n")
	}
	r.write("</table>\n")
}

func (r *renderer) admonition(id ast.NodeID, n *ast.Node) {
	r.cr()
	r.write("<div")
	r.attr("class", "admonition "+n.Name)
	r.write(">\n")
	title := n.Title
	if title == "" {
		title = r.title.String(n.Name)
	}
	r.write(`<p class="admonition-title">`)
	r.escape(title)
	r.write("</p>\n")
	r.children(id)
	r.cr()
	r.write("</div>\n")
}

func (r *renderer) inline(id ast.NodeID, n *ast.Node) {
	switch n.Kind {
	case ast.KindText:
		r.escape(n.Literal)
	case ast.KindEmphasis:
		r.wrap(id, "em")
	case ast.KindStrong:
		r.wrap(id, "strong")
	case ast.KindStrike:
		r.wrap(id, "del")
	case ast.KindInlineCode:
		r.write("<code>")
		r.escape(n.Literal)
		r.write("</code>")
	case ast.KindLink:
		r.write("<a")
		r.attr("href", r.destination(n.URL, false))
		if n.Title != "" {
			r.attr("title", n.Title)
		}
		r.write(">")
		r.children(id)
		r.write("</a>")
	case ast.KindImage:
		r.write("<img")
		r.attr("src", r.destination(n.URL, true))
		r.attr("alt", n.Alt)
		if n.Title != "" {
			r.attr("title", n.Title)
		}
		r.write(" />")
	case ast.KindReference:
		if n.Image {
			r.write("!")
		}
		r.write("[")
		r.children(id)
		r.escape(n.Literal)
	case ast.KindLineBreak:
		if n.Hard {
			r.write("<br />\n")
			return
		}
		r.write("\n")
	case ast.KindHTMLInline:
		if r.cfg.safe {
			r.write("<!-- raw HTML omitted -->")
			return
		}
		r.write(n.Literal)
	case ast.KindComment:
		if r.cfg.safe {
			return
		}
		r.write("<!--" + n.Literal + "-->")
	case ast.KindFootnoteReference:
		r.footnoteRef(n)
	case ast.KindCitationReference:
		r.write("<cite>")
		if r.citations[n.Identifier] {
			r.write("<a")
			r.attr("href", "#cite-"+n.Identifier)
			r.write(">")
			r.escape("@" + n.Label)
			r.write("</a>")
		} else {
			r.escape("@" + n.Label)
		}
		r.write("</cite>")
	case ast.KindFormula:
		if n.Hard {
			r.write(`<span class="math display">\[`)
			r.escape(n.Literal)
			r.write(`\]</span>`)
			return
		}
		r.write(`<span class="math inline">\(`)
		r.escape(n.Literal)
		r.write(`\)</span>`)
	default:
		r.children(id)
	}
}

func (r *renderer) wrap(id ast.NodeID, tag string) {
	r.write("<" + tag + ">")
	r.children(id)
	r.write("</" + tag + ">")
}

func (r *renderer) destination(url string, image bool) string {
	if r.cfg.safe && unsafeURL(url, image) {
		return ""
	}
	return url
}

func unsafeURL(url string, image bool) bool {
	lower := strings.ToLower(strings.TrimSpace(url))
	for _, scheme := range []string{"javascript:", "vbscript:", "file:"} {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	if strings.HasPrefix(lower, "data:") {
		if !image {
			return true
		}
		for _, kind := range []string{"image/png", "image/gif", "image/jpeg", "image/webp"} {
			if strings.HasPrefix(lower[len("data:"):], kind) {
				return false
			}
		}
		return true
	}
	return false
}

// slug lowercases s, keeps letters, digits, '-' and '_', turns spaces into
// '-' and makes repeated slugs unique with a numeric suffix.
func (r *renderer) slug(s string) string {
	var b strings.Builder
	for _, c := range r.lower.String(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(c), unicode.IsDigit(c), c == '-', c == '_':
			b.WriteRune(c)
		case unicode.IsSpace(c):
			b.WriteByte('-')
		}
	}
	base := b.String()
	if base == "" {
		base = "section"
	}
	n := r.slugs[base]
	r.slugs[base] = n + 1
	if n == 0 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}
