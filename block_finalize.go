package mdast

import (
	"strings"

	"pkt.systems/mdast/ast"
	"pkt.systems/mdast/token"
)

// finalize closes id at source line line and moves the tip to its parent.
func (p *parser) finalize(id ast.NodeID, line int) {
	st := p.st(id)
	parent := p.tree.Node(id).Parent
	st.open = false
	st.endLine = line
	switch p.kind(id) {
	case ast.KindParagraph:
		p.finalizeParagraph(id, st)
	case ast.KindHeader:
		p.resolveInlines(id, flatten(st.content))
	case ast.KindCodeBlock:
		p.finalizeCode(id, st)
	case ast.KindHTMLBlock:
		p.tree.Node(id).Literal = strings.TrimSuffix(st.text.String(), "\n")
		if st.htmlType <= 5 && !st.closed {
			p.diags.add(DiagUnclosedBlock, p.tree.Node(id).Line, "HTML block is not closed before the end of its container")
		}
	case ast.KindFormulaBlock:
		p.tree.Node(id).Literal = strings.Trim(st.text.String(), "\n")
		if !st.closed {
			p.diags.add(DiagUnclosedBlock, p.tree.Node(id).Line, "formula block has no closing $$")
		}
	case ast.KindTable:
		p.finalizeTable(id, st)
	case ast.KindOrderedList, ast.KindUnorderedList:
		p.endAtLastChild(id, st)
		p.tree.Node(id).Tight = p.listIsTight(id)
	case ast.KindListItem, ast.KindTaskListItem:
		p.endAtLastChild(id, st)
	case ast.KindFootnote:
		p.endAtLastChild(id, st)
		p.defineFootnote(id)
	case ast.KindCitation:
		p.endAtLastChild(id, st)
		p.defineCitation(id)
	case ast.KindAdmonition:
		if !st.closed {
			p.diags.add(DiagUnclosedBlock, p.tree.Node(id).Line, "admonition %q has no closing fence", p.tree.Node(id).Name)
		}
	}
	p.tip = parent
}

func (p *parser) endAtLastChild(id ast.NodeID, st *blockState) {
	if last := p.tree.Node(id).LastChild(); last != ast.NoNode {
		st.endLine = p.st(last).endLine
	} else {
		st.endLine = st.startLine
	}
}

// listIsTight reports whether no item, and no block directly inside an
// item, is followed by a blank line.
func (p *parser) listIsTight(list ast.NodeID) bool {
	for _, item := range p.tree.Node(list).Children {
		if p.blankAfter(item) {
			return false
		}
		for _, child := range p.tree.Node(item).Children {
			if p.blankAfter(child) {
				return false
			}
		}
	}
	return true
}

func (p *parser) blankAfter(id ast.NodeID) bool {
	next := p.tree.Next(id)
	return next != ast.NoNode && p.st(next).startLine > p.st(id).endLine+1
}

func (p *parser) finalizeParagraph(id ast.NodeID, st *blockState) {
	p.extractDefinitions(id)
	if len(st.content) == 0 {
		p.tree.Detach(id)
		return
	}
	toks := flatten(st.content)
	if p.cfg.ext.Has(ExtTaskLists) {
		toks = p.markTask(id, toks)
	}
	p.resolveInlines(id, toks)
}

// markTask turns the parent item into a task item when its first paragraph
// starts with [ ], [x] or [X] followed by whitespace.
func (p *parser) markTask(id ast.NodeID, toks []token.Token) []token.Token {
	parent := p.tree.Node(id).Parent
	if parent == ast.NoNode || p.kind(parent) != ast.KindListItem || p.tree.Node(parent).FirstChild() != id {
		return toks
	}
	if len(toks) < 4 || toks[0].Kind != token.LBracket || toks[2].Kind != token.RBracket || !toks[3].Kind.IsSpace() {
		return toks
	}
	mark := toks[1].Text
	if mark != " " && mark != "x" && mark != "X" {
		return toks
	}
	node := p.tree.Node(parent)
	node.Kind = ast.KindTaskListItem
	node.Checked = mark != " "
	return toks[3:]
}

// extractDefinitions removes link reference definitions from the start of
// a paragraph and registers them.
func (p *parser) extractDefinitions(id ast.NodeID) {
	st := p.st(id)
	if len(st.content) == 0 {
		return
	}
	toks := trimSpaceTokens(flatten(st.content))
	if len(toks) == 0 || toks[0].Kind != token.LBracket {
		return
	}
	text := token.Join(toks)
	line := p.tree.Node(id).Line
	consumed := 0
	for consumed < len(text) && text[consumed] == '[' {
		n, def := parseLinkDefinition(text[consumed:])
		if n == 0 {
			break
		}
		url, bad := normalizeURL(def.url)
		if bad {
			p.diags.add(DiagDestination, line, "stray %% in destination %q", def.url)
		}
		p.define(def.label, url, def.title, line+strings.Count(text[:consumed], "\n"))
		consumed += n
	}
	if consumed == 0 {
		return
	}
	rest := trimSpaceTokens(cutTokens(toks, consumed))
	if len(rest) == 0 {
		st.content = nil
		return
	}
	st.content = splitContent(rest, st.content[len(st.content)-1].end)
}

// splitContent cuts toks back into content lines at its line endings.
func splitContent(toks []token.Token, end token.Token) []contentLine {
	var out []contentLine
	start := 0
	for i, t := range toks {
		if t.Kind == token.Newline || t.Kind == token.CarriageReturn {
			out = append(out, contentLine{toks: toks[start:i], end: t})
			start = i + 1
		}
	}
	return append(out, contentLine{toks: toks[start:], end: end})
}

// cutTokens drops the first n bytes of toks.
func cutTokens(toks []token.Token, n int) []token.Token {
	for i, t := range toks {
		if n <= 0 {
			return toks[i:]
		}
		if n < len(t.Text) {
			var head []token.Token
			if t.Kind.IsComposite() {
				head = token.ScanLine(t.Text[n:], t.Range.Start+n)
			} else {
				head = []token.Token{t.Slice(n, len(t.Text))}
			}
			return append(head, toks[i+1:]...)
		}
		n -= len(t.Text)
	}
	return nil
}

// flatten joins content lines with their line endings in between.
func flatten(lines []contentLine) []token.Token {
	if len(lines) == 1 {
		return lines[0].toks
	}
	var out []token.Token
	for i, l := range lines {
		out = append(out, l.toks...)
		if i < len(lines)-1 {
			out = append(out, l.end)
		}
	}
	return out
}

func (p *parser) finalizeCode(id ast.NodeID, st *blockState) {
	node := p.tree.Node(id)
	text := st.text.String()
	if st.fenceLen > 0 {
		info, body, _ := strings.Cut(text, "\n")
		node.Info = unescapeString(strings.TrimSpace(info))
		if fields := strings.Fields(node.Info); len(fields) > 0 {
			node.Language = fields[0]
		}
		node.Literal = strings.TrimSuffix(body, "\n")
		if !st.closed {
			p.diags.add(DiagUnclosedFence, node.Line, "code fence %s is not closed", strings.Repeat(string(st.fenceChar), st.fenceLen))
		}
		return
	}
	lines := strings.Split(text, "\n")
	for len(lines) > 0 && strings.TrimLeft(lines[len(lines)-1], " \t") == "" {
		lines = lines[:len(lines)-1]
	}
	node.Literal = strings.Join(lines, "\n")
	st.endLine = st.startLine + max(len(lines), 1) - 1
}
