package ast

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// WalkStatus tells Walk how to proceed after visiting a node.
type WalkStatus int

const (
	WalkContinue WalkStatus = iota
	WalkSkipChildren
	WalkStop
)

// Visitor is called when Walk enters and leaves each node.
type Visitor func(id NodeID, entering bool) WalkStatus

// Walk visits id and its descendants depth first.
func (t *Tree) Walk(id NodeID, fn Visitor) {
	t.walk(id, fn)
}

func (t *Tree) walk(id NodeID, fn Visitor) WalkStatus {
	status := fn(id, true)
	if status == WalkStop {
		return WalkStop
	}
	if status != WalkSkipChildren {
		for _, c := range t.nodes[id].Children {
			if t.walk(c, fn) == WalkStop {
				return WalkStop
			}
		}
	}
	return fn(id, false)
}

// Find returns every node beneath id, id included, whose kind is in kinds.
func (t *Tree) Find(id NodeID, kinds ...Kind) []NodeID {
	var out []NodeID
	t.Walk(id, func(n NodeID, entering bool) WalkStatus {
		if entering {
			for _, k := range kinds {
				if t.nodes[n].Kind == k {
					out = append(out, n)
					break
				}
			}
		}
		return WalkContinue
	})
	return out
}

// Dump writes an indented outline of the subtree at id.
func (t *Tree) Dump(w io.Writer, id NodeID) error {
	var err error
	depth := 0
	t.Walk(id, func(n NodeID, entering bool) WalkStatus {
		if !entering {
			depth--
			return WalkContinue
		}
		if _, werr := fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), t.describe(n)); werr != nil {
			err = werr
			return WalkStop
		}
		depth++
		return WalkContinue
	})
	return err
}

// String returns the Dump of the whole tree.
func (t *Tree) String() string {
	var b strings.Builder
	_ = t.Dump(&b, t.Root())
	return b.String()
}

func (t *Tree) describe(id NodeID) string {
	n := t.nodes[id]
	var b strings.Builder
	b.WriteString(n.Kind.String())
	attr := func(k, v string) {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
	}
	switch n.Kind {
	case KindHeader:
		attr("level", strconv.Itoa(n.Level))
	case KindOrderedList:
		attr("start", strconv.Itoa(n.Start))
		attr("tight", strconv.FormatBool(n.Tight))
	case KindUnorderedList:
		attr("tight", strconv.FormatBool(n.Tight))
	case KindListItem:
		attr("marker", strconv.Quote(n.Marker))
	case KindTaskListItem:
		attr("marker", strconv.Quote(n.Marker))
		attr("checked", strconv.FormatBool(n.Checked))
	case KindCodeBlock:
		if n.Language != "" {
			attr("lang", strconv.Quote(n.Language))
		}
		attr("code", strconv.Quote(n.Literal))
	case KindText, KindHTMLBlock, KindHTMLInline, KindComment, KindInlineCode, KindFormulaBlock:
		b.WriteByte(' ')
		b.WriteString(strconv.Quote(n.Literal))
	case KindFormula:
		if n.Hard {
			attr("display", "true")
		}
		b.WriteByte(' ')
		b.WriteString(strconv.Quote(n.Literal))
	case KindLink, KindImage:
		attr("url", strconv.Quote(n.URL))
		if n.Title != "" {
			attr("title", strconv.Quote(n.Title))
		}
		if n.Kind == KindImage {
			attr("alt", strconv.Quote(n.Alt))
		}
	case KindReference:
		attr("id", strconv.Quote(n.Identifier))
	case KindLineBreak:
		if n.Hard {
			attr("hard", "true")
		}
	case KindTableRow:
		if n.Header {
			attr("header", "true")
		}
	case KindTableCell:
		if n.Align != AlignNone {
			attr("align", n.Align.String())
		}
	case KindFootnote, KindFootnoteReference, KindCitation, KindCitationReference:
		attr("id", strconv.Quote(n.Identifier))
	case KindAdmonition:
		attr("name", strconv.Quote(n.Name))
		if n.Title != "" {
			attr("title", strconv.Quote(n.Title))
		}
	}
	return b.String()
}
