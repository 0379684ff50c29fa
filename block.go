package mdast

import (
	"strings"

	"pkt.systems/mdast/ast"
	"pkt.systems/mdast/token"
)

// contentLine is one line of paragraph, heading or table text.
type contentLine struct {
	toks []token.Token
	end  token.Token
}

// blockState is the parse-time bookkeeping of an open or closed block.
type blockState struct {
	open      bool
	closed    bool
	startLine int
	endLine   int

	content []contentLine
	text    strings.Builder

	fenceChar   byte
	fenceLen    int
	fenceOffset int
	htmlType    int
	list        listData
	aligns      []ast.Alignment
	delimLine   int
}

type listData struct {
	ordered      bool
	bulletChar   byte
	delimiter    byte
	start        int
	markerOffset int
	padding      int
	marker       string
}

// parser is the state of one parse. Nothing in it is shared between parses.
type parser struct {
	cfg   config
	src   string
	tree  *ast.Tree
	refs  *referenceTable
	diags Diagnostics

	lines    []token.Line
	line     token.Line
	ln       string
	lnBase   int
	lineNo   int
	lineBase int

	offset       int
	column       int
	partialTab   bool
	nextNonspace int
	nextColumn   int
	indent       int
	indented     bool
	blank        bool

	allClosed   bool
	tip         ast.NodeID
	oldtip      ast.NodeID
	lastMatched ast.NodeID

	states     []*blockState
	nestingHit bool
}

func newParser(cfg config, src string) *parser {
	p := &parser{
		cfg:  cfg,
		src:  src,
		tree: ast.NewTree(),
		refs: newReferenceTable(),
	}
	p.tip = p.tree.Root()
	p.st(p.tip).open = true
	p.st(p.tip).startLine = 1
	return p
}

func (p *parser) st(id ast.NodeID) *blockState {
	for int(id) >= len(p.states) {
		p.states = append(p.states, nil)
	}
	if p.states[id] == nil {
		p.states[id] = &blockState{}
	}
	return p.states[id]
}

func (p *parser) isOpen(id ast.NodeID) bool {
	return int(id) < len(p.states) && p.states[id] != nil && p.states[id].open
}

func (p *parser) kind(id ast.NodeID) ast.Kind { return p.tree.Kind(id) }

// run feeds every line through the block engine and closes what is left.
func (p *parser) run() {
	p.lines = token.Lines(token.Tokenize(p.src))
	for _, line := range p.lines {
		p.incorporateLine(line)
	}
	for p.tip != ast.NoNode {
		p.finalize(p.tip, p.lineNo)
	}
}

func (p *parser) peek(i int) byte {
	if i < len(p.ln) {
		return p.ln[i]
	}
	return 0
}

func (p *parser) findNextNonspace() {
	i, cols := p.offset, p.column
	for i < len(p.ln) {
		c := p.ln[i]
		if c == ' ' {
			i++
			cols++
		} else if c == '\t' {
			i++
			cols += 4 - cols%4
		} else {
			break
		}
	}
	p.blank = i >= len(p.ln)
	p.nextNonspace = i
	p.nextColumn = cols
	p.indent = cols - p.column
	p.indented = p.indent >= 4
}

func (p *parser) advanceNextNonspace() {
	p.offset = p.nextNonspace
	p.column = p.nextColumn
	p.partialTab = false
}

// advanceOffset moves count bytes, or count columns when columns is set, in
// which case a tab may be consumed partially.
func (p *parser) advanceOffset(count int, columns bool) {
	for count > 0 && p.offset < len(p.ln) {
		if p.ln[p.offset] == '\t' {
			toTab := 4 - p.column%4
			if columns {
				p.partialTab = toTab > count
				step := min(toTab, count)
				p.column += step
				if !p.partialTab {
					p.offset++
				}
				count -= step
			} else {
				p.partialTab = false
				p.column += toTab
				p.offset++
				count--
			}
		} else {
			p.partialTab = false
			p.offset++
			p.column++
			count--
		}
	}
}

// kindAt returns the kind of the line token covering byte off of the line.
func (p *parser) kindAt(off int) token.Kind {
	abs := p.lnBase + off
	for _, t := range p.line.Tokens {
		if t.Range.Start <= abs && abs < t.Range.End {
			return t.Kind
		}
	}
	return token.EOF
}

// rest returns the line tokens from the current offset on, splitting the
// token the offset falls into.
func (p *parser) rest() []token.Token {
	abs := p.lnBase + p.offset
	toks := p.line.Tokens
	for i, t := range toks {
		if t.Range.End <= abs {
			continue
		}
		if t.Range.Start >= abs {
			return toks[i:]
		}
		k := abs - t.Range.Start
		var head []token.Token
		if t.Kind.IsComposite() {
			head = token.ScanLine(t.Text[k:], abs)
		} else {
			head = []token.Token{t.Slice(k, len(t.Text))}
		}
		return append(head, toks[i+1:]...)
	}
	return nil
}

func (p *parser) incorporateLine(line token.Line) {
	p.line = line
	p.lnBase = line.Start()
	p.ln = p.src[p.lnBase:line.End.Range.Start]
	p.lineNo++
	p.offset, p.column, p.partialTab, p.blank = 0, 0, false, false
	p.oldtip = p.tip

	container := p.tree.Root()
	for {
		last := p.tree.Node(container).LastChild()
		if last == ast.NoNode || !p.isOpen(last) {
			break
		}
		p.findNextNonspace()
		res := p.continueBlock(last)
		if res == continueDone {
			return
		}
		if res == continueFail {
			break
		}
		container = last
	}

	p.allClosed = container == p.oldtip
	p.lastMatched = container
	k := p.kind(container)
	matchedLeaf := k != ast.KindParagraph && acceptsLines(k)

	for !matchedLeaf {
		p.findNextNonspace()
		if !p.indented && !maybeSpecial(p.peek(p.nextNonspace)) {
			p.advanceNextNonspace()
			break
		}
		res := startNone
		for _, start := range blockStarts {
			if res = start(p, container); res != startNone {
				break
			}
		}
		if res == startNone {
			p.advanceNextNonspace()
			break
		}
		container = p.tip
		if res == startLeaf {
			matchedLeaf = true
		}
	}

	if !p.allClosed && !p.blank && p.kind(p.tip) == ast.KindParagraph {
		// lazy continuation
		p.addLine()
		return
	}
	p.closeUnmatchedBlocks()
	k = p.kind(container)
	switch {
	case acceptsLines(k):
		p.addLine()
		if st := p.st(container); k == ast.KindHTMLBlock && st.htmlType >= 1 && st.htmlType <= 5 &&
			htmlBlockEnds(st.htmlType, p.ln[p.offset:]) {
			st.closed = true
			p.finalize(container, p.lineNo)
		}
	case p.offset < len(p.ln) && !p.blank:
		p.addChild(ast.KindParagraph)
		p.advanceNextNonspace()
		p.addLine()
	}
}

func (p *parser) closeUnmatchedBlocks() {
	if p.allClosed {
		return
	}
	for p.oldtip != p.lastMatched {
		parent := p.tree.Node(p.oldtip).Parent
		p.finalize(p.oldtip, p.lineNo-1)
		p.oldtip = parent
	}
	p.allClosed = true
}

// addChild opens a block of kind under the tip, closing blocks that cannot
// hold it.
func (p *parser) addChild(kind ast.Kind) ast.NodeID {
	for !canContain(p.kind(p.tip), kind) {
		p.finalize(p.tip, p.lineNo-1)
	}
	id := p.tree.New(kind)
	p.tree.Node(id).Line = p.lineNo + p.lineBase
	p.tree.Append(p.tip, id)
	st := p.st(id)
	st.open = true
	st.startLine = p.lineNo
	p.tip = id
	return id
}

func (p *parser) addLine() {
	st := p.st(p.tip)
	switch p.kind(p.tip) {
	case ast.KindParagraph, ast.KindTable:
		if p.kind(p.tip) == ast.KindTable && p.lineNo == st.delimLine {
			return
		}
		if p.partialTab {
			p.offset++
		}
		st.content = append(st.content, contentLine{toks: p.rest(), end: p.line.End})
	default:
		if p.partialTab {
			p.offset++
			st.text.WriteString(strings.Repeat(" ", 4-p.column%4))
		}
		st.text.WriteString(p.ln[min(p.offset, len(p.ln)):])
		st.text.WriteByte('\n')
	}
}

func canContain(parent, child ast.Kind) bool {
	switch parent {
	case ast.KindDocument, ast.KindBlockquote, ast.KindListItem, ast.KindTaskListItem,
		ast.KindFootnote, ast.KindCitation, ast.KindAdmonition:
		return child != ast.KindListItem
	case ast.KindOrderedList, ast.KindUnorderedList:
		return child == ast.KindListItem
	}
	return false
}

func acceptsLines(k ast.Kind) bool {
	switch k {
	case ast.KindParagraph, ast.KindCodeBlock, ast.KindHTMLBlock, ast.KindTable, ast.KindFormulaBlock:
		return true
	}
	return false
}

func maybeSpecial(c byte) bool {
	return strings.IndexByte("#`~*+_=<>-$:[|", c) >= 0 || (c >= '0' && c <= '9')
}

// depth counts the containers from id up to the document.
func (p *parser) depth(id ast.NodeID) int {
	d := 0
	for ; id != ast.NoNode; id = p.tree.Node(id).Parent {
		d++
	}
	return d
}

// nestingAllowed reports whether another container fits beneath container.
func (p *parser) nestingAllowed(container ast.NodeID) bool {
	if p.depth(container) < p.cfg.maxNesting {
		return true
	}
	if !p.nestingHit {
		p.nestingHit = true
		p.diags.add(DiagNestingLimit, p.lineNo+p.lineBase, "containers nested deeper than %d are read as text", p.cfg.maxNesting)
	}
	return false
}

type continueResult int

const (
	continueMatched continueResult = iota
	continueFail
	continueDone
)

func (p *parser) continueBlock(id ast.NodeID) continueResult {
	st := p.st(id)
	switch p.kind(id) {
	case ast.KindOrderedList, ast.KindUnorderedList:
		return continueMatched

	case ast.KindBlockquote:
		if !p.indented && p.peek(p.nextNonspace) == '>' {
			p.advanceNextNonspace()
			p.advanceOffset(1, false)
			if c := p.peek(p.offset); c == ' ' || c == '\t' {
				p.advanceOffset(1, true)
			}
			return continueMatched
		}
		return continueFail

	case ast.KindListItem, ast.KindTaskListItem:
		if p.blank {
			if len(p.tree.Node(id).Children) == 0 {
				return continueFail
			}
			p.advanceNextNonspace()
			return continueMatched
		}
		if p.indent >= st.list.markerOffset+st.list.padding {
			p.advanceOffset(st.list.markerOffset+st.list.padding, true)
			return continueMatched
		}
		return continueFail

	case ast.KindFootnote, ast.KindCitation:
		if p.indent >= 4 {
			p.advanceOffset(4, true)
			return continueMatched
		}
		if p.blank {
			p.advanceNextNonspace()
			return continueMatched
		}
		return continueFail

	case ast.KindAdmonition:
		if !p.indented && p.admonitionCloses(id) {
			st.closed = true
			for p.tip != id {
				p.finalize(p.tip, p.lineNo-1)
			}
			p.advanceOffset(len(p.ln)-p.offset, false)
			p.finalize(id, p.lineNo)
			return continueDone
		}
		return continueMatched

	case ast.KindHeader, ast.KindThematicBreak:
		return continueFail

	case ast.KindCodeBlock:
		if st.fenceLen > 0 {
			if p.closesFence(st) {
				st.closed = true
				p.finalize(id, p.lineNo)
				return continueDone
			}
			for i := st.fenceOffset; i > 0 && (p.peek(p.offset) == ' ' || p.peek(p.offset) == '\t'); i-- {
				p.advanceOffset(1, true)
			}
			return continueMatched
		}
		if p.indent >= 4 {
			p.advanceOffset(4, true)
			return continueMatched
		}
		if p.blank {
			p.advanceNextNonspace()
			return continueMatched
		}
		return continueFail

	case ast.KindHTMLBlock:
		if p.blank && (st.htmlType == 6 || st.htmlType == 7) {
			return continueFail
		}
		return continueMatched

	case ast.KindFormulaBlock:
		line := strings.TrimRight(p.ln[p.offset:], " \t")
		if strings.HasSuffix(line, "$$") {
			st.text.WriteString(line[:len(line)-2])
			st.text.WriteByte('\n')
			st.closed = true
			p.advanceOffset(len(p.ln)-p.offset, false)
			p.finalize(id, p.lineNo)
			return continueDone
		}
		return continueMatched

	case ast.KindParagraph:
		if p.blank {
			return continueFail
		}
		return continueMatched

	case ast.KindTable:
		if p.blank || p.indented || p.interruptsTable() || !hasPipe(p.rest()) {
			return continueFail
		}
		return continueMatched
	}
	return continueMatched
}

func (p *parser) closesFence(st *blockState) bool {
	if p.indented || p.peek(p.nextNonspace) != st.fenceChar {
		return false
	}
	rest := p.ln[p.nextNonspace:]
	n := runOf(rest, st.fenceChar)
	return n >= st.fenceLen && strings.TrimLeft(rest[n:], " \t") == ""
}

// admonitionCloses reports whether the line is a ::: fence closing id. A
// fence belongs to the innermost open admonition, and does not close
// anything while a code, HTML or formula block is open inside.
func (p *parser) admonitionCloses(id ast.NodeID) bool {
	rest := p.ln[p.nextNonspace:]
	n := runOf(rest, ':')
	if n < 3 || n < p.st(id).fenceLen || strings.TrimSpace(rest[n:]) != "" {
		return false
	}
	for open := p.oldtip; open != id && open != ast.NoNode; open = p.tree.Node(open).Parent {
		switch p.kind(open) {
		case ast.KindAdmonition, ast.KindCodeBlock, ast.KindHTMLBlock, ast.KindFormulaBlock:
			return false
		}
	}
	return true
}

func runOf(s string, c byte) int {
	n := 0
	for n < len(s) && s[n] == c {
		n++
	}
	return n
}
