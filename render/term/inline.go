package term

import (
	"strconv"

	"pkt.systems/mdast/ast"
)

type inlineState struct {
	base   Style
	em     bool
	strong bool
	strike bool
	link   string
	inLink bool
}

func (s inlineState) style(st Styles) Style {
	out := s.base
	switch {
	case s.inLink:
		out = st.LinkText
	case s.em && s.strong:
		out = st.EmphasisStrong
	case s.strong:
		out = st.Strong
	case s.em:
		out = st.Emphasis
	}
	if s.strike {
		out.Prefix += st.Strike.Prefix
	}
	return out
}

// inlines flattens the inline children of id into styled pieces.
func (r *renderer) inlines(id ast.NodeID, base Style) []piece {
	var out []piece
	r.flatten(id, inlineState{base: base}, &out)
	return out
}

func (r *renderer) flatten(id ast.NodeID, s inlineState, out *[]piece) {
	for _, c := range r.tree.Node(id).Children {
		r.inline(c, s, out)
	}
}

func (r *renderer) inline(id ast.NodeID, s inlineState, out *[]piece) {
	n := r.tree.Node(id)
	add := func(text string, st Style) {
		*out = append(*out, piece{text: text, style: st, url: s.link})
	}
	switch n.Kind {
	case ast.KindText, ast.KindHTMLInline:
		add(n.Literal, s.style(r.styles))
	case ast.KindEmphasis:
		s.em = true
		r.flatten(id, s, out)
	case ast.KindStrong:
		s.strong = true
		r.flatten(id, s, out)
	case ast.KindStrike:
		s.strike = true
		r.flatten(id, s, out)
	case ast.KindInlineCode:
		add(n.Literal, r.styles.CodeInline)
	case ast.KindFormula:
		add(n.Literal, r.styles.Math)
	case ast.KindLineBreak:
		if n.Hard {
			*out = append(*out, piece{brk: true})
			return
		}
		add(" ", s.style(r.styles))
	case ast.KindLink:
		r.link(id, n, s, out)
	case ast.KindImage:
		s.inLink = true
		if r.cfg.osc8 {
			s.link = n.URL
		}
		alt := n.Alt
		if alt == "" {
			alt = "image"
		}
		add("["+alt+"]", s.style(r.styles))
		r.trailingURL(n.URL, out)
	case ast.KindReference:
		open := "["
		if n.Image {
			open = "!["
		}
		add(open, s.style(r.styles))
		r.flatten(id, s, out)
		add(n.Literal, s.style(r.styles))
	case ast.KindFootnoteReference:
		add("["+strconv.Itoa(n.Index)+"]", r.styles.Footnote)
	case ast.KindCitationReference:
		add("[@"+n.Label+"]", r.styles.Footnote)
	case ast.KindComment:
	default:
		r.flatten(id, s, out)
	}
}

func (r *renderer) link(id ast.NodeID, n *ast.Node, s inlineState, out *[]piece) {
	s.inLink = true
	if r.cfg.osc8 {
		s.link = n.URL
	}
	r.flatten(id, s, out)
	if n.Autolink || r.tree.Text(id) == n.URL {
		return
	}
	r.trailingURL(n.URL, out)
}

// trailingURL prints the destination after link text when hyperlinks are off.
func (r *renderer) trailingURL(url string, out *[]piece) {
	if r.cfg.osc8 || url == "" {
		return
	}
	*out = append(*out, piece{text: " (" + fitURL(url, 60) + ")", style: r.styles.LinkURL})
}
