// Package term renders a parsed Markdown document for ANSI terminals.
//
// Text is wrapped to a fixed width, styled through a Theme and, when the
// terminal supports it, links become OSC 8 hyperlinks. Fenced code with a
// known language is highlighted with chroma.
package term

import (
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"pkt.systems/mdast"
	"pkt.systems/mdast/ast"
)

// DefaultWidth is used when a request does not set a width.
const DefaultWidth = 80

const codeIndent = 2

var (
	// ErrNilDocument is returned when a request carries no document.
	ErrNilDocument = errors.New("term: nil document")
	// ErrNilWriter is returned when a request carries no writer.
	ErrNilWriter = errors.New("term: nil writer")
)

// RenderRequest describes one rendering pass.
type RenderRequest struct {
	Document *mdast.Document
	Writer   io.Writer
	Width    int
	Theme    Theme
	Options  []Option
}

// Render writes req.Document to req.Writer.
func Render(req RenderRequest) error {
	if req.Document == nil || req.Document.Tree == nil {
		return ErrNilDocument
	}
	if req.Writer == nil {
		return ErrNilWriter
	}
	lines := renderLines(req)
	if len(lines) == 0 {
		return nil
	}
	_, err := io.WriteString(req.Writer, strings.Join(lines, "\n")+"\n")
	return err
}

// RenderString renders doc at width with theme and returns the output.
func RenderString(doc *mdast.Document, width int, theme Theme, opts ...Option) (string, error) {
	var b strings.Builder
	err := Render(RenderRequest{Document: doc, Writer: &b, Width: width, Theme: theme, Options: opts})
	return b.String(), err
}

type renderer struct {
	cfg    config
	doc    *mdast.Document
	tree   *ast.Tree
	styles Styles
}

func renderLines(req RenderRequest) []string {
	cfg := config{}
	for _, opt := range req.Options {
		if opt != nil {
			opt(&cfg)
		}
	}
	theme := req.Theme
	if theme == nil {
		theme = DefaultTheme()
	}
	width := req.Width
	if width <= 0 {
		width = DefaultWidth
	}
	r := &renderer{cfg: cfg, doc: req.Document, tree: req.Document.Tree, styles: theme.Styles()}
	lines := r.blocks(r.tree.Node(r.tree.Root()).Children, width, false)
	if notes := r.footnotes(width); len(notes) > 0 {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, notes...)
	}
	return lines
}

// blocks renders sibling blocks, separated by a blank line unless tight.
func (r *renderer) blocks(ids []ast.NodeID, width int, tight bool) []string {
	var out []string
	for _, id := range ids {
		lines := r.block(id, width)
		if lines == nil {
			continue
		}
		if len(out) > 0 && !tight {
			out = append(out, "")
		}
		out = append(out, lines...)
	}
	return out
}

func (r *renderer) block(id ast.NodeID, width int) []string {
	n := r.tree.Node(id)
	switch n.Kind {
	case ast.KindParagraph:
		return r.layout(r.inlines(id, r.styles.Text), width)
	case ast.KindHeader:
		st := r.styles.Heading[clampLevel(n.Level)-1]
		pieces := append([]piece{{text: strings.Repeat("#", n.Level) + " ", style: st}}, r.inlines(id, st)...)
		return r.layout(pieces, width)
	case ast.KindThematicBreak:
		return []string{r.styles.ThematicBreak.apply(strings.Repeat("─", width))}
	case ast.KindCodeBlock:
		return r.codeBlock(n, width)
	case ast.KindHTMLBlock:
		return r.plainBlock(n.Literal, width, r.styles.CodeBlock, 0)
	case ast.KindFormulaBlock:
		return r.plainBlock(n.Literal, width, r.styles.Math, codeIndent)
	case ast.KindBlockquote:
		bar := r.styles.Quote.apply(">") + " "
		return prefixLines(r.blocks(n.Children, width-2, false), bar, bar)
	case ast.KindOrderedList, ast.KindUnorderedList:
		return r.list(n, width)
	case ast.KindTable:
		return r.table(n, width)
	case ast.KindAdmonition:
		return r.admonition(n, width)
	case ast.KindCitation:
		label := "[@" + n.Label + "]"
		return r.hanging(r.styles.Footnote.apply(label), ansi.PrintableRuneWidth(label)+1, n.Children, width)
	case ast.KindFootnote:
		return nil
	}
	return r.blocks(n.Children, width, false)
}

func clampLevel(level int) int {
	switch {
	case level < 1:
		return 1
	case level > 6:
		return 6
	}
	return level
}

func (r *renderer) layout(pieces []piece, width int) []string {
	lb := &lineBuilder{width: width, softWrap: r.cfg.softWrap, osc8: r.cfg.osc8}
	for _, p := range pieces {
		lb.add(p)
	}
	return lb.finish()
}

// hanging renders children with a marker on the first line and the rest
// indented by markerWidth.
func (r *renderer) hanging(marker string, markerWidth int, children []ast.NodeID, width int) []string {
	lines := r.blocks(children, width-markerWidth, false)
	if len(lines) == 0 {
		lines = []string{""}
	}
	first := marker + strings.Repeat(" ", markerWidth-ansi.PrintableRuneWidth(marker))
	return prefixLines(lines, first, strings.Repeat(" ", markerWidth))
}

func (r *renderer) codeBlock(n *ast.Node, width int) []string {
	lines, ok := highlight(n.Literal, n.Language, r.styles.CodeTheme)
	if !ok {
		lines = strings.Split(n.Literal, "\n")
		for i, line := range lines {
			lines[i] = r.styles.CodeBlock.apply(line)
		}
	}
	code := strings.Join(lines, "\n")
	if r.cfg.softWrap && width > codeIndent {
		code = wrap.String(code, width-codeIndent)
	}
	return strings.Split(indent.String(code, codeIndent), "\n")
}

func (r *renderer) plainBlock(text string, width int, st Style, pad uint) []string {
	if width > int(pad) {
		text = wordwrap.String(text, width-int(pad))
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = st.apply(line)
	}
	return strings.Split(indent.String(strings.Join(lines, "\n"), pad), "\n")
}

func (r *renderer) list(n *ast.Node, width int) []string {
	var out []string
	for i, item := range n.Children {
		in := r.tree.Node(item)
		marker := in.Marker
		if n.Kind == ast.KindOrderedList {
			delim := "."
			if strings.HasSuffix(in.Marker, ")") {
				delim = ")"
			}
			marker = strconv.Itoa(n.Start+i) + delim
		} else if marker == "" {
			marker = "-"
		}
		shown := r.styles.ListMarker.apply(marker)
		markerWidth := ansi.PrintableRuneWidth(marker) + 1
		if in.Kind == ast.KindTaskListItem {
			box := "[ ]"
			if in.Checked {
				box = "[x]"
			}
			shown += " " + r.styles.ListMarker.apply(box)
			markerWidth += len(box) + 1
		}
		lines := r.blocks(in.Children, width-markerWidth, n.Tight)
		if len(lines) == 0 {
			lines = []string{""}
		}
		if len(out) > 0 && !n.Tight {
			out = append(out, "")
		}
		out = append(out, prefixLines(lines, shown+" ", strings.Repeat(" ", markerWidth))...)
	}
	return out
}

func (r *renderer) admonition(n *ast.Node, width int) []string {
	head := strings.ToUpper(n.Name)
	if n.Title != "" {
		head += ": " + n.Title
	}
	bar := r.styles.Admonition.apply("▌") + " "
	out := prefixLines(r.layout([]piece{{text: head, style: r.styles.Admonition}}, width-2), bar, bar)
	body := r.blocks(n.Children, width-2, false)
	return append(out, prefixLines(body, bar, bar)...)
}

// footnotes renders referenced footnote definitions in numbering order.
func (r *renderer) footnotes(width int) []string {
	if len(r.doc.Footnotes) == 0 {
		return nil
	}
	out := []string{r.styles.ThematicBreak.apply(strings.Repeat("─", min(width, 20)))}
	for _, id := range r.doc.Footnotes {
		n := r.tree.Node(id)
		label := "[" + strconv.Itoa(n.Index) + "]"
		out = append(out, r.hanging(r.styles.Footnote.apply(label), len(label)+1, n.Children, width)...)
	}
	return out
}
