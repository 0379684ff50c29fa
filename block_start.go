package mdast

import (
	"strconv"
	"strings"

	"pkt.systems/mdast/ast"
	"pkt.systems/mdast/token"
)

type startResult int

const (
	startNone startResult = iota
	startContainer
	startLeaf
)

type blockStart func(p *parser, container ast.NodeID) startResult

// blockStarts is tried in order at each position of a line.
var blockStarts = []blockStart{
	startBlockquote,
	startATXHeading,
	startFencedCode,
	startFormulaBlock,
	startAdmonition,
	startHTMLBlock,
	startSetextHeading,
	startTable,
	startThematicBreak,
	startNoteDefinition,
	startListItem,
	startIndentedCode,
}

func startBlockquote(p *parser, container ast.NodeID) startResult {
	if p.indented || p.peek(p.nextNonspace) != '>' || !p.nestingAllowed(container) {
		return startNone
	}
	p.advanceNextNonspace()
	p.advanceOffset(1, false)
	if c := p.peek(p.offset); c == ' ' || c == '\t' {
		p.advanceOffset(1, true)
	}
	p.closeUnmatchedBlocks()
	p.addChild(ast.KindBlockquote)
	return startContainer
}

func startATXHeading(p *parser, _ ast.NodeID) startResult {
	if p.indented || p.kindAt(p.nextNonspace) != token.Hash {
		return startNone
	}
	rest := p.ln[p.nextNonspace:]
	level := runOf(rest, '#')
	if level > 6 || (level < len(rest) && rest[level] != ' ' && rest[level] != '\t') {
		return startNone
	}
	p.advanceNextNonspace()
	p.advanceOffset(level, false)
	p.closeUnmatchedBlocks()
	id := p.addChild(ast.KindHeader)
	p.tree.Node(id).Level = level
	p.st(id).content = []contentLine{{toks: headingContent(p.rest()), end: p.line.End}}
	p.advanceOffset(len(p.ln)-p.offset, false)
	return startLeaf
}

// headingContent strips an optional closing sequence of #s.
func headingContent(toks []token.Token) []token.Token {
	toks = trimSpaceTokens(toks)
	i := len(toks)
	for i > 0 && toks[i-1].Kind == token.Hash {
		i--
	}
	if i == len(toks) {
		return toks
	}
	if i == 0 || toks[i-1].Kind.IsSpace() {
		return trimSpaceTokens(toks[:i])
	}
	return toks
}

func startFencedCode(p *parser, _ ast.NodeID) startResult {
	if p.indented {
		return startNone
	}
	c := p.peek(p.nextNonspace)
	if c != '`' && c != '~' {
		return startNone
	}
	rest := p.ln[p.nextNonspace:]
	n := runOf(rest, c)
	if n < 3 || (c == '`' && strings.IndexByte(rest[n:], '`') >= 0) {
		return startNone
	}
	p.closeUnmatchedBlocks()
	id := p.addChild(ast.KindCodeBlock)
	st := p.st(id)
	st.fenceChar = c
	st.fenceLen = n
	st.fenceOffset = p.indent
	p.tree.Node(id).Fenced = true
	p.advanceNextNonspace()
	p.advanceOffset(n, false)
	return startLeaf
}

func startFormulaBlock(p *parser, _ ast.NodeID) startResult {
	if !p.cfg.ext.Has(ExtMath) || p.indented || !strings.HasPrefix(p.ln[p.nextNonspace:], "$$") {
		return startNone
	}
	rest := strings.TrimRight(p.ln[p.nextNonspace+2:], " \t")
	if rest != "" && (len(rest) < 2 || !strings.HasSuffix(rest, "$$")) {
		return startNone
	}
	p.closeUnmatchedBlocks()
	id := p.addChild(ast.KindFormulaBlock)
	p.advanceOffset(len(p.ln)-p.offset, false)
	if rest != "" {
		st := p.st(id)
		st.text.WriteString(rest[:len(rest)-2])
		st.closed = true
		p.finalize(id, p.lineNo)
	}
	return startLeaf
}

func startAdmonition(p *parser, container ast.NodeID) startResult {
	if !p.cfg.ext.Has(ExtAdmonitions) || p.indented || p.peek(p.nextNonspace) != ':' {
		return startNone
	}
	rest := p.ln[p.nextNonspace:]
	n := runOf(rest, ':')
	header := strings.TrimSpace(rest[n:])
	if n < 3 || header == "" || !p.nestingAllowed(container) {
		return startNone
	}
	name, title, _ := strings.Cut(header, " ")
	title = strings.TrimSpace(title)
	if len(title) >= 2 && title[0] == '"' && title[len(title)-1] == '"' {
		title = title[1 : len(title)-1]
	}
	p.closeUnmatchedBlocks()
	id := p.addChild(ast.KindAdmonition)
	node := p.tree.Node(id)
	node.Name = strings.ToLower(name)
	node.Title = title
	p.st(id).fenceLen = n
	p.advanceOffset(len(p.ln)-p.offset, false)
	return startLeaf
}

func startHTMLBlock(p *parser, container ast.NodeID) startResult {
	if p.indented || p.peek(p.nextNonspace) != '<' {
		return startNone
	}
	s := p.ln[p.nextNonspace:]
	t := htmlBlockStart(s)
	if t == 0 {
		t = p.htmlTagLine()
	}
	if t == 0 {
		return startNone
	}
	if t == 7 && (p.kind(container) == ast.KindParagraph ||
		(!p.allClosed && !p.blank && p.kind(p.tip) == ast.KindParagraph)) {
		return startNone
	}
	p.closeUnmatchedBlocks()
	id := p.addChild(ast.KindHTMLBlock)
	p.st(id).htmlType = t
	return startLeaf
}

// htmlTagLine reports condition 7: a lone complete open or closing tag.
func (p *parser) htmlTagLine() int {
	toks := p.line.Tokens
	abs := p.lnBase + p.nextNonspace
	for i, t := range toks {
		if t.Range.Start != abs {
			continue
		}
		if t.Kind != token.HTMLTag || !isOpenOrCloseTag(t.Text) {
			return 0
		}
		for _, rest := range toks[i+1:] {
			if !rest.Kind.IsSpace() {
				return 0
			}
		}
		return 7
	}
	return 0
}

func startSetextHeading(p *parser, container ast.NodeID) startResult {
	if p.indented || p.kind(container) != ast.KindParagraph {
		return startNone
	}
	level := setextLevel(p.ln[p.nextNonspace:])
	if level == 0 {
		return startNone
	}
	p.closeUnmatchedBlocks()
	p.extractDefinitions(container)
	st := p.st(container)
	if len(st.content) == 0 {
		// Only definitions: drop the paragraph and read the line afresh.
		p.finalize(container, p.lineNo-1)
		return startContainer
	}
	id := p.tree.New(ast.KindHeader)
	node := p.tree.Node(id)
	node.Level = level
	node.Line = p.tree.Node(container).Line
	hs := p.st(id)
	hs.open = true
	hs.startLine = st.startLine
	hs.content = st.content
	p.tree.Replace(container, id)
	st.open = false
	p.tip = id
	p.advanceOffset(len(p.ln)-p.offset, false)
	return startLeaf
}

func setextLevel(s string) int {
	s = strings.TrimRight(s, " \t")
	if s == "" {
		return 0
	}
	n := runOf(s, s[0])
	if n != len(s) {
		return 0
	}
	switch s[0] {
	case '=':
		return 1
	case '-':
		return 2
	}
	return 0
}

func startThematicBreak(p *parser, _ ast.NodeID) startResult {
	if p.indented {
		return startNone
	}
	switch p.kindAt(p.nextNonspace) {
	case token.Asterisk, token.Dash, token.Underscore:
	default:
		return startNone
	}
	if !isThematicBreak(p.ln[p.nextNonspace:]) {
		return startNone
	}
	p.closeUnmatchedBlocks()
	p.addChild(ast.KindThematicBreak)
	p.advanceOffset(len(p.ln)-p.offset, false)
	return startLeaf
}

func isThematicBreak(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	n := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case c:
			n++
		case ' ', '\t':
		default:
			return false
		}
	}
	return n >= 3
}

// startNoteDefinition opens a footnote ([^id]:) or citation ([@id]:)
// definition container.
func startNoteDefinition(p *parser, container ast.NodeID) startResult {
	if p.indented || p.peek(p.nextNonspace) != '[' {
		return startNone
	}
	rest := p.ln[p.nextNonspace:]
	if len(rest) < 5 {
		return startNone
	}
	var kind ast.Kind
	switch {
	case rest[1] == '^' && p.cfg.ext.Has(ExtFootnotes):
		kind = ast.KindFootnote
	case rest[1] == '@' && p.cfg.ext.Has(ExtCitations):
		kind = ast.KindCitation
	default:
		return startNone
	}
	end := strings.Index(rest, "]:")
	if end < 3 {
		return startNone
	}
	label := rest[2:end]
	if strings.ContainsAny(label, " \t[]") || !p.nestingAllowed(container) {
		return startNone
	}
	p.closeUnmatchedBlocks()
	id := p.addChild(kind)
	node := p.tree.Node(id)
	node.Label = label
	node.Identifier = NormalizeLabel(label)
	p.advanceNextNonspace()
	p.advanceOffset(end+2, false)
	if c := p.peek(p.offset); c == ' ' || c == '\t' {
		p.advanceOffset(1, true)
	}
	return startContainer
}

func startListItem(p *parser, container ast.NodeID) startResult {
	if p.indented && !p.kind(container).IsList() {
		return startNone
	}
	data, ok := p.parseListMarker(container)
	if !ok {
		return startNone
	}
	p.closeUnmatchedBlocks()
	if tip := p.kind(p.tip); !tip.IsList() || !listsMatch(p.st(p.tip).list, data) {
		kind := ast.KindUnorderedList
		if data.ordered {
			kind = ast.KindOrderedList
		}
		list := p.addChild(kind)
		p.st(list).list = data
		node := p.tree.Node(list)
		node.Start = data.start
		node.Marker = data.marker
	}
	item := p.addChild(ast.KindListItem)
	p.st(item).list = data
	p.tree.Node(item).Marker = data.marker
	return startContainer
}

// parseListMarker reads a bullet or ordered list marker at the next
// nonspace position and advances past it and its padding.
func (p *parser) parseListMarker(container ast.NodeID) (listData, bool) {
	if p.indent >= 4 {
		return listData{}, false
	}
	data := listData{markerOffset: p.indent}
	rest := p.ln[p.nextNonspace:]
	markerLen := 0
	switch p.kindAt(p.nextNonspace) {
	case token.Dash, token.Plus, token.Asterisk:
		data.bulletChar = rest[0]
		markerLen = 1
	case token.Number:
		digits := 0
		for digits < len(rest) && digits < 10 && rest[digits] >= '0' && rest[digits] <= '9' {
			digits++
		}
		if digits > 9 || digits >= len(rest) || (rest[digits] != '.' && rest[digits] != ')') {
			return listData{}, false
		}
		if p.kind(container) == ast.KindParagraph && rest[:digits] != "1" {
			return listData{}, false
		}
		data.ordered = true
		data.start, _ = strconv.Atoi(rest[:digits])
		data.delimiter = rest[digits]
		markerLen = digits + 1
	default:
		return listData{}, false
	}
	data.marker = rest[:markerLen]
	if next := p.peek(p.nextNonspace + markerLen); next != 0 && next != ' ' && next != '\t' {
		return listData{}, false
	}
	if p.kind(container) == ast.KindParagraph && strings.TrimSpace(rest[markerLen:]) == "" {
		return listData{}, false
	}
	if !p.nestingAllowed(container) {
		return listData{}, false
	}

	p.advanceNextNonspace()
	p.advanceOffset(markerLen, true)
	spacesStartCol := p.column
	spacesStartOffset := p.offset
	for {
		p.advanceOffset(1, true)
		next := p.peek(p.offset)
		if p.column-spacesStartCol >= 5 || (next != ' ' && next != '\t') {
			break
		}
	}
	blankItem := p.peek(p.offset) == 0
	spacesAfter := p.column - spacesStartCol
	if spacesAfter >= 5 || spacesAfter < 1 || blankItem {
		data.padding = markerLen + 1
		p.column = spacesStartCol
		p.offset = spacesStartOffset
		if c := p.peek(p.offset); c == ' ' || c == '\t' {
			p.advanceOffset(1, true)
		}
	} else {
		data.padding = markerLen + spacesAfter
	}
	return data, true
}

func listsMatch(a, b listData) bool {
	return a.ordered == b.ordered && a.delimiter == b.delimiter && a.bulletChar == b.bulletChar
}

func startIndentedCode(p *parser, _ ast.NodeID) startResult {
	if !p.indented || p.kind(p.tip) == ast.KindParagraph || p.blank {
		return startNone
	}
	p.advanceOffset(4, true)
	p.closeUnmatchedBlocks()
	p.addChild(ast.KindCodeBlock)
	return startLeaf
}

// interruptsTable reports whether the line starts a block that ends a table.
func (p *parser) interruptsTable() bool {
	s := p.ln[p.nextNonspace:]
	if s == "" {
		return false
	}
	switch s[0] {
	case '>':
		return true
	case '#':
		n := runOf(s, '#')
		return n <= 6 && (n == len(s) || s[n] == ' ' || s[n] == '\t')
	case '`', '~':
		return runOf(s, s[0]) >= 3
	case '*', '-', '_':
		return isThematicBreak(s)
	}
	return false
}
