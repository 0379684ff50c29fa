package token

import (
	"regexp"
	"strings"
)

// Tokenize classifies src into a lossless token stream terminated by EOF.
func Tokenize(src string) []Token {
	s := scanner{src: src, toks: make([]Token, 0, len(src)/3+1), lastBlank: true}
	s.run()
	return s.toks
}

type scanner struct {
	src      string
	base     int
	pos      int
	lineMode bool
	toks     []Token

	// lastBlank is true when the previous line held only whitespace.
	lastBlank bool
	content   bool

	// eol caches lineEnd for positions from eolFrom on.
	eol, eolFrom int
	eolSet       bool

	// The *Miss fields hold the offset before which a closer search that
	// already failed is known to fail again. Scanning only moves forward.
	tickMiss                       map[int]int
	commentMiss, piMiss, cdataMiss int
	dollarMiss, doubleDollarMiss   int
	texMiss                        [2]int
}

func (s *scanner) run() {
	for s.pos < len(s.src) {
		if !s.lineMode && s.atLineStart() && s.scanBlock() {
			s.lastBlank = false
			s.content = false
			continue
		}
		s.scanInline()
	}
	if !s.lineMode {
		end := s.base + len(s.src)
		s.toks = append(s.toks, Token{Kind: EOF, Range: Range{Start: end, End: end}})
	}
}

func (s *scanner) emit(k Kind, end int) {
	s.toks = append(s.toks, Token{
		Kind:  k,
		Text:  s.src[s.pos:end],
		Range: Range{Start: s.base + s.pos, End: s.base + end},
	})
	s.pos = end
}

func (s *scanner) atLineStart() bool {
	if s.pos == 0 {
		return true
	}
	c := s.src[s.pos-1]
	return c == '\n' || c == '\r'
}

func (s *scanner) endLine() {
	s.lastBlank = !s.content
	s.content = false
}

// lineBounds returns the end of the line content starting at or before i and
// the offset of the following line.
func (s *scanner) lineBounds(i int) (int, int) {
	return lineBounds(s.src, i)
}

func lineBounds(src string, i int) (int, int) {
	for j := i; j < len(src); j++ {
		switch src[j] {
		case '\n':
			return j, j + 1
		case '\r':
			if j+1 < len(src) && src[j+1] == '\n' {
				return j, j + 2
			}
			return j, j + 1
		}
	}
	return len(src), len(src)
}

// indentAt measures leading whitespace in columns, expanding tabs to 4-column
// stops, and returns the offset of the first non-whitespace byte.
func indentAt(src string, i int) (int, int) {
	col := 0
	for ; i < len(src); i++ {
		switch src[i] {
		case ' ':
			col++
		case '\t':
			col += 4 - col%4
		default:
			return col, i
		}
	}
	return col, i
}

func isBlank(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != ' ' && s[i] != '\t' {
			return false
		}
	}
	return true
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func isLetter(c byte) bool { return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' }

func isAlnum(c byte) bool { return isLetter(c) || isDigit(c) }

func runLen(src string, i int, c byte) int {
	n := 0
	for i+n < len(src) && src[i+n] == c {
		n++
	}
	return n
}

// scanBlock recognises the line-initial composites: indented and fenced code,
// formula blocks, custom containers and HTML blocks with explicit terminators.
func (s *scanner) scanBlock() bool {
	start := s.pos
	col, i := indentAt(s.src, start)
	end, _ := s.lineBounds(i)
	if i >= end {
		return false
	}
	if col >= 4 {
		if !s.lastBlank {
			return false
		}
		s.scanIndentedCode(start)
		return true
	}
	switch s.src[i] {
	case '`', '~':
		return s.scanFence(i)
	case '$':
		return s.scanFormulaBlock(i)
	case ':':
		return s.scanContainer(i)
	case '<':
		return s.scanHTMLBlock(i)
	}
	return false
}

func (s *scanner) scanIndentedCode(start int) {
	end := start
	for ln := start; ln < len(s.src); {
		cEnd, next := s.lineBounds(ln)
		col, p := indentAt(s.src, ln)
		blank := p >= cEnd
		if !blank && col < 4 {
			break
		}
		if !blank {
			end = next
		}
		if next <= ln {
			break
		}
		ln = next
	}
	s.emit(IndentedCode, end)
}

func (s *scanner) scanFence(i int) bool {
	c := s.src[i]
	n := runLen(s.src, i, c)
	if n < 3 {
		return false
	}
	cEnd, next := s.lineBounds(i)
	if c == '`' && strings.IndexByte(s.src[i+n:cEnd], '`') >= 0 {
		return false
	}
	end := len(s.src)
	for ln := next; ln < len(s.src); {
		lEnd, lNext := s.lineBounds(ln)
		col, p := indentAt(s.src, ln)
		if col <= 3 && p < lEnd && s.src[p] == c {
			if m := runLen(s.src, p, c); m >= n && isBlank(s.src[p+m:lEnd]) {
				end = lNext
				break
			}
		}
		ln = lNext
	}
	s.emit(FencedCode, end)
	return true
}

func (s *scanner) scanFormulaBlock(i int) bool {
	if !strings.HasPrefix(s.src[i:], "$$") {
		return false
	}
	cEnd, next := s.lineBounds(i)
	rest := strings.TrimRight(s.src[i+2:cEnd], " \t")
	if rest != "" {
		if !strings.HasSuffix(rest, "$$") {
			return false
		}
		s.emit(FormulaBlock, next)
		return true
	}
	end := len(s.src)
	for ln := next; ln < len(s.src); {
		lEnd, lNext := s.lineBounds(ln)
		if strings.HasSuffix(strings.TrimRight(s.src[ln:lEnd], " \t"), "$$") {
			end = lNext
			break
		}
		ln = lNext
	}
	s.emit(FormulaBlock, end)
	return true
}

// containerFence reports the colon count of a ::: line and whether it names a
// container (an opener) rather than closing one.
func containerFence(line string) (n int, named bool) {
	col, p := indentAt(line, 0)
	if col > 3 {
		return 0, false
	}
	n = runLen(line, p, ':')
	if n < 3 {
		return 0, false
	}
	return n, !isBlank(line[p+n:])
}

func (s *scanner) scanContainer(i int) bool {
	cEnd, next := s.lineBounds(i)
	n, named := containerFence(s.src[i:cEnd])
	if n == 0 || !named {
		return false
	}
	depth := 0
	end := len(s.src)
	for ln := next; ln < len(s.src); {
		lEnd, lNext := s.lineBounds(ln)
		if m, opener := containerFence(s.src[ln:lEnd]); m > 0 {
			if opener {
				depth++
			} else if depth > 0 {
				depth--
			} else if m >= n {
				end = lNext
				break
			}
		}
		ln = lNext
	}
	s.emit(CustomContainer, end)
	return true
}

var htmlRawOpen = regexp.MustCompile(`(?i)^<(?:script|pre|style|textarea)(?:[ \t>]|$)`)

var htmlRawClose = []string{"</script>", "</pre>", "</style>", "</textarea>"}

func (s *scanner) scanHTMLBlock(i int) bool {
	cEnd, _ := s.lineBounds(i)
	line := s.src[i:cEnd]
	var at int
	switch {
	case htmlRawOpen.MatchString(line):
		lower := strings.ToLower(s.src[i:])
		at = -1
		for _, t := range htmlRawClose {
			if j := strings.Index(lower, t); j >= 0 && (at < 0 || j < at) {
				at = j
			}
		}
		if at >= 0 {
			at += i
		}
	case strings.HasPrefix(line, "<!--"):
		at = indexFrom(s.src, i+2, "-->")
	case strings.HasPrefix(line, "<?"):
		at = indexFrom(s.src, i+2, "?>")
	case strings.HasPrefix(line, "<![CDATA["):
		at = indexFrom(s.src, i+9, "]]>")
	case len(line) > 2 && line[1] == '!' && isLetter(line[2]):
		at = indexFrom(s.src, i+2, ">")
	default:
		return false
	}
	end := len(s.src)
	if at >= 0 {
		_, end = s.lineBounds(at)
	}
	s.emit(HTMLBlock, end)
	return true
}

func indexFrom(src string, from int, sub string) int {
	if from > len(src) {
		return -1
	}
	if j := strings.Index(src[from:], sub); j >= 0 {
		return from + j
	}
	return -1
}

func (s *scanner) scanInline() {
	c := s.src[s.pos]
	switch {
	case c == '\n':
		s.endLine()
		s.emit(Newline, s.pos+1)
		return
	case c == '\r':
		s.endLine()
		if s.pos+1 < len(s.src) && s.src[s.pos+1] == '\n' {
			s.emit(Newline, s.pos+2)
		} else {
			s.emit(CarriageReturn, s.pos+1)
		}
		return
	case c == ' ':
		s.emit(Space, s.pos+runLen(s.src, s.pos, ' '))
		return
	case c == '\t':
		s.emit(Tab, s.pos+runLen(s.src, s.pos, '\t'))
		return
	}
	s.content = true
	switch {
	case c == '\\':
		s.scanBackslash()
	case c == '`':
		s.scanBackticks()
	case c == '<':
		s.scanLess()
	case c == '&':
		s.scanAmpersand()
	case c == '$':
		s.scanDollar()
	case IsASCIIPunct(c):
		s.emit(PunctKind(c), s.pos+1)
	default:
		if s.atWordBoundary() {
			if n := bareAutolinkLen(s.src[s.pos:]); n > 0 {
				s.emit(Autolink, s.pos+n)
				return
			}
		}
		if isDigit(c) {
			end := s.pos
			for end < len(s.src) && isDigit(s.src[end]) {
				end++
			}
			s.emit(Number, end)
			return
		}
		end := s.pos + 1
		for end < len(s.src) && !isTextBreak(s.src[end]) {
			end++
		}
		s.emit(Text, end)
	}
}

func isTextBreak(c byte) bool {
	if c >= 0x80 {
		return false
	}
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || isDigit(c) || IsASCIIPunct(c)
}

func (s *scanner) atWordBoundary() bool {
	if s.pos == 0 {
		return true
	}
	switch s.src[s.pos-1] {
	case ' ', '\t', '\n', '\r', '*', '_', '~', '(':
		return true
	}
	return false
}

func (s *scanner) lineEnd() int {
	if !s.eolSet || s.pos < s.eolFrom || s.pos > s.eol {
		s.eol, _ = s.lineBounds(s.pos)
		s.eolFrom = s.pos
		s.eolSet = true
	}
	return s.eol
}

func (s *scanner) scanBackslash() {
	if s.pos+1 < len(s.src) {
		c := s.src[s.pos+1]
		if (c == '(' || c == '[') && s.pos >= s.texMiss[texSlot(c)] {
			closer := `\)`
			if c == '[' {
				closer = `\]`
			}
			end := s.lineEnd()
			j := strings.Index(s.src[s.pos+2:end], closer)
			if j > 0 {
				s.emit(Formula, s.pos+2+j+2)
				return
			}
			if j < 0 {
				s.texMiss[texSlot(c)] = end
			}
		}
		if IsASCIIPunct(c) {
			s.emit(Backslash, s.pos+1)
			s.emit(PunctKind(c), s.pos+1)
			return
		}
	}
	s.emit(Backslash, s.pos+1)
}

func texSlot(c byte) int {
	if c == '[' {
		return 1
	}
	return 0
}

func (s *scanner) blankLineAt(i int) bool {
	if i >= len(s.src) {
		return true
	}
	end, _ := s.lineBounds(i)
	return isBlank(s.src[i:end])
}

// scanBackticks matches a code span: the first later run of exactly the same
// length closes it. Spans do not cross a line in line mode, nor a blank line.
func (s *scanner) scanBackticks() {
	n := runLen(s.src, s.pos, '`')
	if stop, ok := s.tickMiss[n]; ok && s.pos < stop {
		s.emit(Backtick, s.pos+n)
		return
	}
	stop := len(s.src)
scan:
	for j := s.pos + n; j < len(s.src); {
		switch c := s.src[j]; c {
		case '`':
			m := runLen(s.src, j, '`')
			if m == n {
				s.emit(CodeSpan, j+m)
				return
			}
			j += m
		case '\n', '\r':
			_, next := s.lineBounds(j)
			if s.lineMode || s.blankLineAt(next) {
				stop = j
				break scan
			}
			j = next
		default:
			j++
		}
	}
	if s.tickMiss == nil {
		s.tickMiss = make(map[int]int)
	}
	s.tickMiss[n] = stop
	s.emit(Backtick, s.pos+n)
}

type htmlPatterns struct {
	uri, email, comment, pi, cdata, decl, openTag, closeTag *regexp.Regexp
}

func newHTMLPatterns(anyChar, ws, noNL string) htmlPatterns {
	const (
		tagName  = `[A-Za-z][A-Za-z0-9-]*`
		attrName = `[A-Za-z_:][A-Za-z0-9_.:-]*`
	)
	attrValue := `(?:[^"'=<>` + "`" + `\x00-\x20]+|'[^'` + noNL + `]*'|"[^"` + noNL + `]*")`
	attr := `(?:` + ws + `+` + attrName + `(?:` + ws + `*=` + ws + `*` + attrValue + `)?)`
	return htmlPatterns{
		uri:      regexp.MustCompile(`^<[A-Za-z][A-Za-z0-9.+-]{1,31}:[^<>\x00-\x20]*>`),
		email:    regexp.MustCompile(`^<[A-Za-z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?)*>`),
		comment:  regexp.MustCompile(`^(?:<!-->|<!--->|<!--` + anyChar + `*?-->)`),
		pi:       regexp.MustCompile(`^<\?` + anyChar + `*?\?>`),
		cdata:    regexp.MustCompile(`^<!\[CDATA\[` + anyChar + `*?\]\]>`),
		decl:     regexp.MustCompile(`^<![A-Za-z][^>` + noNL + `]*>`),
		openTag:  regexp.MustCompile(`^<` + tagName + attr + `*` + ws + `*/?>`),
		closeTag: regexp.MustCompile(`^</` + tagName + ws + `*>`),
	}
}

var (
	fullHTML = newHTMLPatterns(`[\s\S]`, `\s`, ``)
	lineHTML = newHTMLPatterns(`[^\r\n]`, `[ \t]`, `\n\r`)
)

func (s *scanner) scanLess() {
	pats, bound := &fullHTML, len(s.src)
	if s.lineMode {
		pats, bound = &lineHTML, s.lineEnd()
	}
	rest := s.src[s.pos:]
	for _, m := range []struct {
		re     *regexp.Regexp
		kind   Kind
		miss   *int
		prefix string
	}{
		{pats.uri, Autolink, nil, ""},
		{pats.email, Autolink, nil, ""},
		{pats.comment, HTMLComment, &s.commentMiss, "<!--"},
		{pats.pi, HTMLTag, &s.piMiss, "<?"},
		{pats.cdata, HTMLTag, &s.cdataMiss, "<![CDATA["},
		{pats.decl, HTMLTag, nil, ""},
		{pats.openTag, HTMLTag, nil, ""},
		{pats.closeTag, HTMLTag, nil, ""},
	} {
		if m.miss != nil && s.pos < *m.miss {
			continue
		}
		if loc := m.re.FindStringIndex(rest); loc != nil {
			s.emit(m.kind, s.pos+loc[1])
			return
		}
		// Without a terminator ahead no later opener of the same kind matches.
		if m.miss != nil && strings.HasPrefix(rest, m.prefix) {
			*m.miss = bound
		}
	}
	s.emit(Less, s.pos+1)
}

var entityPattern = regexp.MustCompile(`^&(?:#[xX][0-9a-fA-F]{1,6}|#[0-9]{1,7}|[A-Za-z][A-Za-z0-9]{1,31});`)

func (s *scanner) scanAmpersand() {
	if loc := entityPattern.FindStringIndex(s.src[s.pos:]); loc != nil {
		s.emit(Entity, s.pos+loc[1])
		return
	}
	s.emit(Ampersand, s.pos+1)
}

// scanDollar matches $$...$$ and $...$ on a single line. Inline $ math may not
// open before or close after whitespace, and a closing $ followed by a digit
// is not a closer.
func (s *scanner) scanDollar() {
	end := s.lineEnd()
	if strings.HasPrefix(s.src[s.pos:], "$$") {
		if s.pos >= s.doubleDollarMiss {
			j := strings.Index(s.src[s.pos+2:end], "$$")
			if j > 0 {
				s.emit(Formula, s.pos+2+j+2)
				return
			}
			if j < 0 {
				s.doubleDollarMiss = end
			}
		}
		s.emit(Dollar, s.pos+1)
		s.emit(Dollar, s.pos+1)
		return
	}
	if s.pos+1 < end && !isSpaceByte(s.src[s.pos+1]) && s.pos >= s.dollarMiss {
		for j := s.pos + 1; j < end; j++ {
			switch s.src[j] {
			case '\\':
				j++
			case '$':
				if !isSpaceByte(s.src[j-1]) && (j+1 >= end || !isDigit(s.src[j+1])) {
					s.emit(Formula, j+1)
					return
				}
			}
		}
		s.dollarMiss = end
	}
	s.emit(Dollar, s.pos+1)
}

var urlPrefixes = []string{"https://", "http://", "ftp://", "www."}

var bareEmail = regexp.MustCompile(`^[A-Za-z0-9._+-]+@[A-Za-z0-9_-]+(?:\.[A-Za-z0-9_-]+)+`)

// bareAutolinkLen returns the length of a GFM extended autolink at the start
// of s, or 0.
func bareAutolinkLen(s string) int {
	for _, p := range urlPrefixes {
		if len(s) < len(p) || !strings.EqualFold(s[:len(p)], p) {
			continue
		}
		d := domainLen(s[len(p):])
		if d == 0 {
			return 0
		}
		end := len(p) + d
		for end < len(s) && !isSpaceByte(s[end]) && s[end] != '<' {
			end++
		}
		if n := trimAutolinkTail(s[:end]); n > len(p) {
			return n
		}
		return 0
	}
	loc := bareEmail.FindStringIndex(s)
	if loc == nil {
		return 0
	}
	n := loc[1]
	if last := s[n-1]; last == '-' || last == '_' {
		return 0
	}
	return n
}

// domainLen accepts period-separated segments of alphanumerics, hyphens and
// underscores with at least one period and no underscore in the last two
// segments.
func domainLen(s string) int {
	n := 0
	for n < len(s) && (isAlnum(s[n]) || s[n] == '-' || s[n] == '_' || s[n] == '.' || s[n] >= 0x80) {
		n++
	}
	d := strings.TrimRight(s[:n], ".")
	segs := strings.Split(d, ".")
	if len(segs) < 2 || segs[0] == "" {
		return 0
	}
	for _, seg := range segs[len(segs)-2:] {
		if seg == "" || strings.IndexByte(seg, '_') >= 0 {
			return 0
		}
	}
	return n
}

func trimAutolinkTail(u string) int {
	for len(u) > 0 {
		c := u[len(u)-1]
		switch {
		case strings.IndexByte("?!.,:*_~'\"", c) >= 0:
			u = u[:len(u)-1]
			continue
		case c == ')':
			if strings.Count(u, "(") < strings.Count(u, ")") {
				u = u[:len(u)-1]
				continue
			}
		case c == ';':
			if i := strings.LastIndexByte(u, '&'); i >= 0 && isAlnumString(u[i+1:len(u)-1]) {
				u = u[:i]
				continue
			}
		}
		break
	}
	return len(u)
}

func isAlnumString(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isAlnum(s[i]) {
			return false
		}
	}
	return true
}
