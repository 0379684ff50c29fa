package mdast

import (
	"bytes"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"pkt.systems/mdast/ast"
	"pkt.systems/mdast/token"
)

type delimiter struct {
	node     ast.NodeID
	slot     int
	char     byte
	length   int
	origLen  int
	canOpen  bool
	canClose bool
	active   bool
}

type bracket struct {
	slot         int
	image        bool
	active       bool
	bracketAfter bool
	// bottom is len(delims) when the bracket opened; emphasis inside the
	// brackets only looks at delimiters from there on.
	bottom int
	// tok is the index of the first token inside the brackets.
	tok int
}

// inlineParser turns the tokens of one leaf block into inline nodes. The
// nodes it produces stay detached until the block adopts them. They live in
// slots of seq chained by next and prev, so wrapping a run of them in a new
// node does not shift the rest.
type inlineParser struct {
	p    *parser
	line int

	toks []token.Token
	offs []int
	text string
	pos  int

	seq        []ast.NodeID
	next, prev []int
	head, tail int

	// tickMiss maps a backtick run length to the token index from which no
	// closing run of that length follows.
	tickMiss map[int]int

	textBuf  []byte
	delims   []delimiter
	brackets []bracket
	hard     bool
}

var inlineParserPool = sync.Pool{
	New: func() any { return &inlineParser{} },
}

var codeSpanNewlines = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// resolveInlines replaces the children of block with the inline nodes
// parsed from toks.
func (p *parser) resolveInlines(block ast.NodeID, toks []token.Token) {
	toks = trimSpaceTokens(toks)
	if len(toks) == 0 {
		p.tree.SetChildren(block, nil)
		return
	}
	ip := inlineParserPool.Get().(*inlineParser)
	ip.reset(p, p.lineOf(block), toks)
	ip.parse()
	p.tree.SetChildren(block, mergeText(p.tree, ip.between(-1, -1)))
	ip.p = nil
	inlineParserPool.Put(ip)
}

func (ip *inlineParser) reset(p *parser, line int, toks []token.Token) {
	ip.p = p
	ip.line = line
	ip.toks = toks
	ip.pos = 0
	ip.seq = ip.seq[:0]
	ip.next = ip.next[:0]
	ip.prev = ip.prev[:0]
	ip.head, ip.tail = -1, -1
	clear(ip.tickMiss)
	ip.textBuf = ip.textBuf[:0]
	ip.delims = ip.delims[:0]
	ip.brackets = ip.brackets[:0]
	ip.hard = false
	ip.offs = ip.offs[:0]
	var b strings.Builder
	for _, t := range toks {
		ip.offs = append(ip.offs, b.Len())
		b.WriteString(t.Text)
	}
	ip.offs = append(ip.offs, b.Len())
	ip.text = b.String()
}

func (ip *inlineParser) parse() {
	for ip.pos < len(ip.toks) {
		t := ip.toks[ip.pos]
		switch t.Kind {
		case token.Newline, token.CarriageReturn:
			ip.parseNewline()
		case token.Backslash:
			ip.parseBackslash()
		case token.Backtick:
			ip.parseBackticks()
		case token.CodeSpan:
			ip.pos++
			n := strings.IndexFunc(t.Text, func(r rune) bool { return r != '`' })
			ip.appendCode(t.Text[n : len(t.Text)-n])
		case token.Asterisk, token.Underscore, token.Tilde:
			ip.parseDelimiterRun()
		case token.LBracket:
			if !ip.parseNoteReference() {
				ip.openBracket(false)
			}
		case token.Bang:
			if ip.pos+1 < len(ip.toks) && ip.toks[ip.pos+1].Kind == token.LBracket {
				ip.openBracket(true)
			} else {
				ip.pos++
				ip.appendText(t.Text)
			}
		case token.RBracket:
			ip.parseCloseBracket()
		case token.Entity:
			ip.pos++
			ip.parseEntity(t.Text)
		case token.HTMLTag:
			ip.pos++
			ip.appendLeaf(ast.KindHTMLInline, t.Text)
		case token.HTMLComment:
			ip.pos++
			inner := ""
			if len(t.Text) >= len("<!---->") {
				inner = t.Text[4 : len(t.Text)-3]
			}
			ip.appendLeaf(ast.KindComment, inner)
		case token.Autolink:
			ip.pos++
			ip.parseAutolink(t.Text)
		case token.Formula:
			ip.pos++
			ip.parseFormula(t.Text)
		default:
			ip.pos++
			ip.appendText(t.Text)
		}
	}
	ip.flush()
	ip.processEmphasis(0)
}

func (ip *inlineParser) appendText(s string) {
	ip.textBuf = append(ip.textBuf, s...)
}

func (ip *inlineParser) flush() {
	if len(ip.textBuf) == 0 {
		return
	}
	ip.push(ip.p.tree.NewText(string(ip.textBuf)))
	ip.textBuf = ip.textBuf[:0]
}

func (ip *inlineParser) appendNode(id ast.NodeID) {
	ip.flush()
	ip.push(id)
}

// push puts id in a new slot at the end of the chain.
func (ip *inlineParser) push(id ast.NodeID) int {
	slot := ip.newSlot(id, ip.tail, -1)
	if ip.tail >= 0 {
		ip.next[ip.tail] = slot
	} else {
		ip.head = slot
	}
	ip.tail = slot
	return slot
}

func (ip *inlineParser) newSlot(id ast.NodeID, prev, next int) int {
	ip.seq = append(ip.seq, id)
	ip.prev = append(ip.prev, prev)
	ip.next = append(ip.next, next)
	return len(ip.seq) - 1
}

func (ip *inlineParser) unlink(slot int) {
	prev, next := ip.prev[slot], ip.next[slot]
	if prev >= 0 {
		ip.next[prev] = next
	} else {
		ip.head = next
	}
	if next >= 0 {
		ip.prev[next] = prev
	} else {
		ip.tail = prev
	}
}

// between lists the nodes strictly between slots from and to; -1 stands for
// the start or the end of the chain.
func (ip *inlineParser) between(from, to int) []ast.NodeID {
	slot := ip.head
	if from >= 0 {
		slot = ip.next[from]
	}
	var out []ast.NodeID
	for ; slot >= 0 && slot != to; slot = ip.next[slot] {
		out = append(out, ip.seq[slot])
	}
	return out
}

func (ip *inlineParser) appendLeaf(kind ast.Kind, literal string) ast.NodeID {
	id := ip.p.tree.New(kind)
	ip.p.tree.Node(id).Literal = literal
	ip.appendNode(id)
	return id
}

func (ip *inlineParser) parseNewline() {
	ip.pos++
	hard := ip.hard
	ip.hard = false
	n := len(ip.textBuf)
	ip.textBuf = bytes.TrimRight(ip.textBuf, " ")
	if n-len(ip.textBuf) >= 2 {
		hard = true
	}
	ip.textBuf = bytes.TrimRight(ip.textBuf, "\t")
	id := ip.p.tree.New(ast.KindLineBreak)
	ip.p.tree.Node(id).Hard = hard
	ip.appendNode(id)
	for ip.pos < len(ip.toks) && ip.toks[ip.pos].Kind.IsSpace() {
		ip.pos++
	}
}

func (ip *inlineParser) parseBackslash() {
	if next := ip.pos + 1; next < len(ip.toks) {
		nt := ip.toks[next]
		if nt.Kind.IsLineEnd() {
			ip.pos = next
			ip.hard = true
			return
		}
		if len(nt.Text) == 1 && token.IsASCIIPunct(nt.Text[0]) {
			ip.pos = next + 1
			ip.appendText(nt.Text)
			return
		}
	}
	ip.pos++
	ip.appendText(`\`)
}

// parseBackticks looks for a closing run of the same length, possibly on a
// later line, and falls back to literal backticks.
func (ip *inlineParser) parseBackticks() {
	open := ip.toks[ip.pos]
	n := len(open.Text)
	if from, ok := ip.tickMiss[n]; !ok || ip.pos < from {
		for j := ip.pos + 1; j < len(ip.toks); j++ {
			if t := ip.toks[j]; t.Kind == token.Backtick && len(t.Text) == n {
				ip.appendCode(token.Join(ip.toks[ip.pos+1 : j]))
				ip.pos = j + 1
				return
			}
		}
		if ip.tickMiss == nil {
			ip.tickMiss = make(map[int]int)
		}
		ip.tickMiss[n] = ip.pos
	}
	ip.pos++
	ip.appendText(open.Text)
}

func (ip *inlineParser) appendCode(content string) {
	content = codeSpanNewlines.Replace(content)
	if len(content) >= 2 && content[0] == ' ' && content[len(content)-1] == ' ' && strings.Trim(content, " ") != "" {
		content = content[1 : len(content)-1]
	}
	ip.appendLeaf(ast.KindInlineCode, content)
}

func (ip *inlineParser) parseEntity(text string) {
	decoded, ok := decodeEntity(text)
	if !ok {
		ip.appendText(text)
		return
	}
	if strings.HasPrefix(text, "&#") && !numericRefValid(text) {
		ip.p.diags.add(DiagInvalidCharRef, ip.line, "%s is not a valid code point", text)
	}
	ip.appendText(decoded)
}

func (ip *inlineParser) parseAutolink(text string) {
	label, url := text, text
	if strings.HasPrefix(text, "<") {
		label = text[1 : len(text)-1]
		url = label
		if !strings.Contains(label, ":") {
			url = "mailto:" + label
		}
	} else {
		if !ip.p.cfg.ext.Has(ExtAutolinks) {
			ip.appendText(text)
			return
		}
		switch {
		case len(text) > 4 && strings.EqualFold(text[:4], "www."):
			url = "http://" + text
		case !strings.Contains(text, "://") && strings.Contains(text, "@"):
			url = "mailto:" + text
		}
	}
	dest, _ := normalizeURL(url)
	id := ip.p.tree.New(ast.KindLink)
	n := ip.p.tree.Node(id)
	n.URL = dest
	n.Autolink = true
	ip.p.tree.Append(id, ip.p.tree.NewText(label))
	ip.appendNode(id)
}

func (ip *inlineParser) parseFormula(text string) {
	tex := strings.HasPrefix(text, `\`)
	if !ip.p.cfg.ext.Has(ExtMath) {
		if tex {
			text = unescapeString(text)
		}
		ip.appendText(text)
		return
	}
	open := 1
	if tex || strings.HasPrefix(text, "$$") {
		open = 2
	}
	id := ip.appendLeaf(ast.KindFormula, strings.TrimSpace(text[open:len(text)-open]))
	ip.p.tree.Node(id).Hard = strings.HasPrefix(text, "$$") || strings.HasPrefix(text, `\[`)
}

func (ip *inlineParser) parseDelimiterRun() {
	start := ip.pos
	kind := ip.toks[start].Kind
	for ip.pos < len(ip.toks) && ip.toks[ip.pos].Kind == kind {
		ip.pos++
	}
	run := token.Join(ip.toks[start:ip.pos])
	c := run[0]
	canOpen, canClose := flanking(c, ip.runeBefore(start), ip.runeAfter(ip.pos))
	if c == '~' && (!ip.p.cfg.ext.Has(ExtStrikethrough) || len(run) < 2) {
		canOpen, canClose = false, false
	}
	id := ip.p.tree.NewText(run)
	ip.appendNode(id)
	if canOpen || canClose {
		ip.delims = append(ip.delims, delimiter{
			node:     id,
			slot:     ip.tail,
			char:     c,
			length:   len(run),
			origLen:  len(run),
			canOpen:  canOpen,
			canClose: canClose,
			active:   true,
		})
	}
}

func (ip *inlineParser) runeBefore(i int) rune {
	if i == 0 || ip.toks[i-1].Text == "" {
		return '\n'
	}
	r, _ := utf8.DecodeLastRuneInString(ip.toks[i-1].Text)
	return r
}

func (ip *inlineParser) runeAfter(i int) rune {
	if i >= len(ip.toks) || ip.toks[i].Text == "" {
		return '\n'
	}
	r, _ := utf8.DecodeRuneInString(ip.toks[i].Text)
	return r
}

// flanking applies the left/right flanking rules to a delimiter run of c
// between the runes before and after it.
func flanking(c byte, before, after rune) (canOpen, canClose bool) {
	beforeSpace, afterSpace := unicode.IsSpace(before), unicode.IsSpace(after)
	beforePunct, afterPunct := isPunctRune(before), isPunctRune(after)
	left := !afterSpace && (!afterPunct || beforeSpace || beforePunct)
	right := !beforeSpace && (!beforePunct || afterSpace || afterPunct)
	if c == '_' {
		return left && (!right || beforePunct), right && (!left || afterPunct)
	}
	return left, right
}

func isPunctRune(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

func delimSlot(c byte) int {
	switch c {
	case '_':
		return 1
	case '~':
		return 2
	}
	return 0
}

// processEmphasis pairs the delimiters from bottom upwards into Emphasis,
// Strong and Strike nodes, then drops them from the stack.
func (ip *inlineParser) processEmphasis(bottom int) {
	var openersBottom [3][6]int
	for i := range openersBottom {
		for j := range openersBottom[i] {
			openersBottom[i][j] = bottom - 1
		}
	}
	ci := bottom
	for ci < len(ip.delims) {
		closer := &ip.delims[ci]
		if !closer.active || !closer.canClose || (closer.char == '~' && closer.length < 2) {
			ci++
			continue
		}
		ch := delimSlot(closer.char)
		slot := closer.origLen % 3
		if closer.canOpen {
			slot += 3
		}
		found := -1
		for oi := ci - 1; oi > openersBottom[ch][slot] && oi >= bottom; oi-- {
			o := &ip.delims[oi]
			if !o.active || !o.canOpen || o.char != closer.char {
				continue
			}
			if o.char == '~' {
				if o.length >= 2 {
					found = oi
					break
				}
				continue
			}
			odd := (closer.canOpen || o.canClose) && closer.origLen%3 != 0 && (o.origLen+closer.origLen)%3 == 0
			if !odd {
				found = oi
				break
			}
		}
		if found < 0 {
			openersBottom[ch][slot] = ci - 1
			if !closer.canOpen {
				closer.active = false
			}
			ci++
			continue
		}
		ip.wrapEmphasis(found, ci)
		if !ip.delims[ci].active {
			ci++
		}
	}
	ip.delims = ip.delims[:bottom]
}

func (ip *inlineParser) wrapEmphasis(oi, ci int) {
	tree := ip.p.tree
	opener, closer := &ip.delims[oi], &ip.delims[ci]
	kind, use := ast.KindEmphasis, 1
	switch {
	case closer.char == '~':
		kind, use = ast.KindStrike, 2
	case closer.length >= 2 && opener.length >= 2:
		kind, use = ast.KindStrong, 2
		// ***x*** nests the emphasis inside the strong span.
		if closer.length >= 3 && opener.length >= 3 && closer.length%2 == 1 && opener.length%2 == 1 {
			kind, use = ast.KindEmphasis, 1
		}
	}
	opener.length -= use
	closer.length -= use
	on, cn := tree.Node(opener.node), tree.Node(closer.node)
	on.Literal = on.Literal[:opener.length]
	cn.Literal = cn.Literal[:closer.length]

	span := tree.New(kind)
	tree.SetChildren(span, ip.between(opener.slot, closer.slot))
	ss := ip.newSlot(span, opener.slot, closer.slot)
	ip.next[opener.slot] = ss
	ip.prev[closer.slot] = ss

	for k := oi + 1; k < ci; k++ {
		ip.delims[k].active = false
	}
	if opener.length == 0 {
		ip.unlink(opener.slot)
		opener.active = false
	}
	if closer.length == 0 {
		ip.unlink(closer.slot)
		closer.active = false
	}
}

func (ip *inlineParser) openBracket(image bool) {
	text, n := "[", 1
	if image {
		text, n = "![", 2
	}
	id := ip.p.tree.NewText(text)
	ip.appendNode(id)
	if k := len(ip.brackets); k > 0 {
		ip.brackets[k-1].bracketAfter = true
	}
	ip.brackets = append(ip.brackets, bracket{
		slot:   ip.tail,
		image:  image,
		active: true,
		bottom: len(ip.delims),
		tok:    ip.pos + n,
	})
	ip.pos += n
}

// parseNoteReference handles [^id] and [@id].
func (ip *inlineParser) parseNoteReference() bool {
	i := ip.pos
	if i+2 >= len(ip.toks) {
		return false
	}
	var kind ast.Kind
	switch ip.toks[i+1].Kind {
	case token.Caret:
		if !ip.p.cfg.ext.Has(ExtFootnotes) {
			return false
		}
		kind = ast.KindFootnoteReference
	case token.At:
		if !ip.p.cfg.ext.Has(ExtCitations) {
			return false
		}
		kind = ast.KindCitationReference
	default:
		return false
	}
	j := i + 2
	for ; j < len(ip.toks) && ip.toks[j].Kind != token.RBracket; j++ {
		switch k := ip.toks[j].Kind; {
		case k.IsSpace(), k.IsLineEnd(), k == token.LBracket, k == token.Backslash:
			return false
		}
	}
	if j == len(ip.toks) || j == i+2 {
		return false
	}
	label := token.Join(ip.toks[i+2 : j])
	id := ip.p.tree.New(kind)
	n := ip.p.tree.Node(id)
	n.Identifier = NormalizeLabel(label)
	n.Label = label
	ip.appendNode(id)
	if kind == ast.KindFootnoteReference {
		ip.p.refs.footnoteRefs = append(ip.p.refs.footnoteRefs, id)
	}
	ip.pos = j + 1
	return true
}

// tokenIndex maps a byte offset in ip.text to the token starting there.
func (ip *inlineParser) tokenIndex(off int) int {
	i := sort.SearchInts(ip.offs, off)
	if i < len(ip.offs) && ip.offs[i] == off {
		return i
	}
	return -1
}

func (ip *inlineParser) parseCloseBracket() {
	closeTok := ip.pos
	ip.pos++
	if len(ip.brackets) == 0 {
		ip.appendText("]")
		return
	}
	top := len(ip.brackets) - 1
	op := ip.brackets[top]
	if !op.active {
		ip.brackets = ip.brackets[:top]
		ip.appendText("]")
		return
	}

	after := ip.offs[ip.pos]
	ls := &linkScanner{s: ip.text, pos: after}
	if ls.peek() == '(' {
		ls.pos++
		ls.spnl()
		if dest, ok := ls.destination(); ok {
			beforeTitle := ls.pos
			ls.spnl()
			title := ""
			if ls.pos > beforeTitle {
				title, _ = ls.title()
			}
			ls.spnl()
			if ls.peek() == ')' {
				if end := ip.tokenIndex(ls.pos + 1); end >= 0 {
					ip.pos = end
					ip.closeLink(op, ip.destination(dest), title)
					return
				}
			}
		}
	}

	inner := ip.text[ip.offs[op.tok]:ip.offs[closeTok]]
	raw, suffix, end := "", "", ip.pos
	ls.pos = after
	if lbl, ok := ls.label(); ok && ls.pos-after > 2 {
		raw, suffix, end = lbl, "]"+ip.text[after:ls.pos], ip.tokenIndex(ls.pos)
	} else if !op.bracketAfter {
		raw, suffix = inner, "]"
		if ok {
			suffix, end = "][]", ip.tokenIndex(ls.pos)
		}
	}
	if len(raw) > maxLabelLen || end < 0 {
		raw = ""
	}
	if key := NormalizeLabel(raw); key != "" {
		ip.pos = end
		if def := ip.p.lookup(key); def != nil {
			ip.closeLink(op, def.URL, def.Title)
		} else {
			ip.closeReference(op, key, raw, suffix)
		}
		return
	}
	ip.brackets = ip.brackets[:top]
	ip.appendText("]")
}

func (ip *inlineParser) destination(dest string) string {
	url, bad := normalizeURL(dest)
	if bad {
		ip.p.diags.add(DiagDestination, ip.line, "stray %% in destination %q", dest)
	}
	return url
}

// wrapBracket moves everything after the bracket's opening text into a new
// node of kind, which takes the bracket's place.
func (ip *inlineParser) wrapBracket(op bracket, kind ast.Kind) ast.NodeID {
	ip.flush()
	ip.processEmphasis(op.bottom)
	id := ip.p.tree.New(kind)
	ip.p.tree.SetChildren(id, ip.between(op.slot, -1))
	ip.seq[op.slot] = id
	ip.next[op.slot] = -1
	ip.tail = op.slot
	ip.brackets = ip.brackets[:len(ip.brackets)-1]
	return id
}

func (ip *inlineParser) closeLink(op bracket, url, title string) {
	kind := ast.KindLink
	if op.image {
		kind = ast.KindImage
	}
	id := ip.wrapBracket(op, kind)
	n := ip.p.tree.Node(id)
	n.URL = url
	n.Title = title
	if op.image {
		n.Alt = ip.p.tree.ContentText(id)
		return
	}
	for i := range ip.brackets {
		if !ip.brackets[i].image {
			ip.brackets[i].active = false
		}
	}
	for _, inner := range ip.p.tree.Find(id, ast.KindLink) {
		if inner != id && ip.p.tree.Node(inner).Autolink {
			ip.p.replaceWithText(inner, ip.p.tree.Text(inner))
		}
	}
}

func (ip *inlineParser) closeReference(op bracket, key, raw, suffix string) {
	id := ip.wrapBracket(op, ast.KindReference)
	n := ip.p.tree.Node(id)
	n.Identifier = key
	n.Label = raw
	n.Literal = suffix
	n.Image = op.image
	ip.p.await(key, id)
}

// mergeText joins adjacent Text nodes and drops empty ones, recursively.
func mergeText(tree *ast.Tree, ids []ast.NodeID) []ast.NodeID {
	out := make([]ast.NodeID, 0, len(ids))
	first := ast.NoNode
	var run []string
	endRun := func() {
		if first == ast.NoNode {
			return
		}
		if len(run) > 1 {
			tree.Node(first).Literal = strings.Join(run, "")
		}
		out = append(out, first)
		first, run = ast.NoNode, run[:0]
	}
	for _, id := range ids {
		n := tree.Node(id)
		if n.Kind == ast.KindText {
			if n.Literal == "" {
				continue
			}
			if first == ast.NoNode {
				first = id
			}
			run = append(run, n.Literal)
			continue
		}
		endRun()
		if n.Kind.IsInline() && len(n.Children) > 0 {
			tree.SetChildren(id, mergeText(tree, n.Children))
		}
		out = append(out, id)
	}
	endRun()
	return out
}

func trimSpaceTokens(toks []token.Token) []token.Token {
	for len(toks) > 0 && (toks[0].Kind.IsSpace() || toks[0].Kind.IsLineEnd()) {
		toks = toks[1:]
	}
	for len(toks) > 0 {
		k := toks[len(toks)-1].Kind
		if !k.IsSpace() && !k.IsLineEnd() {
			break
		}
		toks = toks[:len(toks)-1]
	}
	return toks
}
