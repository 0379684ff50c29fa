package mdast

import (
	"strings"

	"pkt.systems/mdast/ast"
	"pkt.systems/mdast/token"
)

// startTable turns the last line of the open paragraph into a table header
// when the current line is a matching delimiter row. Earlier paragraph lines
// stay a paragraph.
func startTable(p *parser, container ast.NodeID) startResult {
	if !p.cfg.ext.Has(ExtTables) || p.indented || p.kind(container) != ast.KindParagraph {
		return startNone
	}
	row := strings.TrimSpace(p.ln[p.nextNonspace:])
	aligns, ok := parseDelimiterRow(row)
	if !ok {
		return startNone
	}
	st := p.st(container)
	if len(st.content) == 0 {
		return startNone
	}
	header := st.content[len(st.content)-1]
	if !hasPipe(header.toks) || len(splitRow(header.toks)) != len(aligns) {
		return startNone
	}
	if !strings.Contains(row, "|") && !strings.HasPrefix(token.Join(trimSpaceTokens(header.toks)), "|") {
		return startNone
	}
	p.closeUnmatchedBlocks()
	parent := p.tree.Node(container).Parent
	st.content = st.content[:len(st.content)-1]
	if len(st.content) == 0 {
		p.tree.Detach(container)
		st.open = false
		p.tip = parent
	} else {
		p.finalize(container, p.lineNo-2)
	}

	id := p.tree.New(ast.KindTable)
	p.tree.Node(id).Line = p.lineNo - 1 + p.lineBase
	p.tree.Append(parent, id)
	ts := p.st(id)
	ts.open = true
	ts.startLine = p.lineNo - 1
	ts.delimLine = p.lineNo
	ts.aligns = aligns
	ts.content = []contentLine{header}
	p.tip = id
	p.advanceOffset(len(p.ln)-p.offset, false)
	return startLeaf
}

// parseDelimiterRow reads a row like "| :-- | --: |" into alignments.
func parseDelimiterRow(row string) ([]ast.Alignment, bool) {
	if row == "" || strings.Trim(row, "|:- \t") != "" || !strings.Contains(row, "-") {
		return nil, false
	}
	row = strings.TrimPrefix(row, "|")
	row = strings.TrimSuffix(row, "|")
	var aligns []ast.Alignment
	for _, cell := range strings.Split(row, "|") {
		cell = strings.TrimSpace(cell)
		left, right := strings.HasPrefix(cell, ":"), strings.HasSuffix(cell, ":")
		dashes := strings.TrimSuffix(strings.TrimPrefix(cell, ":"), ":")
		if dashes == "" || strings.Trim(dashes, "-") != "" {
			return nil, false
		}
		switch {
		case left && right:
			aligns = append(aligns, ast.AlignCenter)
		case left:
			aligns = append(aligns, ast.AlignLeft)
		case right:
			aligns = append(aligns, ast.AlignRight)
		default:
			aligns = append(aligns, ast.AlignNone)
		}
	}
	return aligns, true
}

// hasPipe reports whether toks hold an unescaped pipe.
func hasPipe(toks []token.Token) bool {
	for i, t := range toks {
		if t.Kind == token.Pipe && (i == 0 || toks[i-1].Kind != token.Backslash) {
			return true
		}
	}
	return false
}

// splitRow cuts a table row into cells at unescaped pipes. A leading and a
// trailing pipe are optional. Escaped pipes become part of the cell text.
func splitRow(toks []token.Token) [][]token.Token {
	toks = trimSpaceTokens(toks)
	if len(toks) > 0 && toks[0].Kind == token.Pipe {
		toks = toks[1:]
	}
	if n := len(toks); n > 0 && toks[n-1].Kind == token.Pipe && (n == 1 || toks[n-2].Kind != token.Backslash) {
		toks = toks[:n-1]
	}
	var (
		cells [][]token.Token
		cell  []token.Token
	)
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.Kind == token.Backslash && i+1 < len(toks) && toks[i+1].Kind == token.Pipe:
			cell = append(cell, toks[i+1])
			i++
		case t.Kind == token.Pipe:
			cells = append(cells, cell)
			cell = nil
		default:
			cell = append(cell, t)
		}
	}
	return append(cells, cell)
}

func (p *parser) finalizeTable(id ast.NodeID, st *blockState) {
	for i, line := range st.content {
		row := p.tree.New(ast.KindTableRow)
		p.tree.Node(row).Header = i == 0
		p.tree.Append(id, row)
		cells := splitRow(line.toks)
		for c, align := range st.aligns {
			cell := p.tree.New(ast.KindTableCell)
			p.tree.Node(cell).Align = align
			p.tree.Append(row, cell)
			if c < len(cells) {
				p.resolveInlines(cell, cells[c])
			}
		}
	}
	st.endLine = st.startLine + len(st.content)
}
