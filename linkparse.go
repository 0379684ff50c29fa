package mdast

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"pkt.systems/mdast/token"
)

const (
	maxLabelLen = 999
	// maxLinkParens bounds the nesting of unescaped parentheses in a bare
	// destination.
	maxLinkParens = 32
)

// linkScanner walks the link syntax that follows a label: destinations,
// titles and further labels. It works on the plain text of the tokens.
type linkScanner struct {
	s   string
	pos int
}

func (ls *linkScanner) peek() byte {
	if ls.pos < len(ls.s) {
		return ls.s[ls.pos]
	}
	return 0
}

// spnl skips spaces and tabs with at most one line ending among them.
func (ls *linkScanner) spnl() {
	ls.skipSpace()
	if ls.peek() == '\r' {
		ls.pos++
		if ls.peek() == '\n' {
			ls.pos++
		}
	} else if ls.peek() == '\n' {
		ls.pos++
	}
	ls.skipSpace()
}

func (ls *linkScanner) skipSpace() {
	for ls.pos < len(ls.s) && (ls.s[ls.pos] == ' ' || ls.s[ls.pos] == '\t') {
		ls.pos++
	}
}

// label scans "[...]" and returns its inner text.
func (ls *linkScanner) label() (string, bool) {
	if ls.peek() != '[' {
		return "", false
	}
	for i := ls.pos + 1; i < len(ls.s) && i-ls.pos <= maxLabelLen+1; i++ {
		switch ls.s[i] {
		case '\\':
			i++
		case '[':
			return "", false
		case ']':
			inner := ls.s[ls.pos+1 : i]
			ls.pos = i + 1
			return inner, true
		}
	}
	return "", false
}

// destination scans a link destination and returns it unescaped, without
// percent-encoding applied.
func (ls *linkScanner) destination() (string, bool) {
	if ls.peek() == '<' {
		for i := ls.pos + 1; i < len(ls.s); i++ {
			switch ls.s[i] {
			case '\\':
				if i+1 < len(ls.s) && token.IsASCIIPunct(ls.s[i+1]) {
					i++
				}
			case '\n', '\r', '<':
				return "", false
			case '>':
				raw := ls.s[ls.pos+1 : i]
				ls.pos = i + 1
				return unescapeString(raw), true
			}
		}
		return "", false
	}
	start := ls.pos
	depth := 0
	for ls.pos < len(ls.s) {
		c := ls.s[ls.pos]
		if c == '\\' && ls.pos+1 < len(ls.s) && token.IsASCIIPunct(ls.s[ls.pos+1]) {
			ls.pos += 2
			continue
		}
		if c == '(' {
			if depth++; depth > maxLinkParens {
				ls.pos = start
				return "", false
			}
		} else if c == ')' {
			if depth == 0 {
				break
			}
			depth--
		} else if c <= ' ' || c == 0x7f {
			break
		}
		ls.pos++
	}
	if ls.pos == start && ls.peek() != ')' {
		return "", false
	}
	if depth != 0 {
		ls.pos = start
		return "", false
	}
	return unescapeString(ls.s[start:ls.pos]), true
}

// title scans a quoted or parenthesized link title.
func (ls *linkScanner) title() (string, bool) {
	closer := byte(0)
	switch ls.peek() {
	case '"':
		closer = '"'
	case '\'':
		closer = '\''
	case '(':
		closer = ')'
	default:
		return "", false
	}
	for i := ls.pos + 1; i < len(ls.s); i++ {
		c := ls.s[i]
		switch {
		case c == '\\':
			i++
		case c == closer:
			raw := ls.s[ls.pos+1 : i]
			ls.pos = i + 1
			return unescapeString(raw), true
		case closer == ')' && c == '(':
			return "", false
		}
	}
	return "", false
}

// atLineEnd skips trailing spaces and reports whether a line ending or the
// end of input follows, consuming it.
func (ls *linkScanner) atLineEnd() bool {
	save := ls.pos
	ls.skipSpace()
	switch {
	case ls.pos >= len(ls.s):
		return true
	case ls.s[ls.pos] == '\n':
		ls.pos++
		return true
	case ls.s[ls.pos] == '\r':
		ls.pos++
		if ls.peek() == '\n' {
			ls.pos++
		}
		return true
	}
	ls.pos = save
	return false
}

type linkDefinition struct {
	label string
	url   string
	title string
}

// parseLinkDefinition reads one link reference definition at the start of s.
// It returns the number of bytes consumed, or 0 when s does not start with one.
func parseLinkDefinition(s string) (int, linkDefinition) {
	ls := &linkScanner{s: s}
	label, ok := ls.label()
	if !ok || NormalizeLabel(label) == "" || ls.peek() != ':' {
		return 0, linkDefinition{}
	}
	ls.pos++
	ls.spnl()
	angle := ls.peek() == '<'
	dest, ok := ls.destination()
	if !ok || (dest == "" && !angle) {
		return 0, linkDefinition{}
	}
	beforeTitle := ls.pos
	ls.spnl()
	title := ""
	hasTitle := false
	if ls.pos != beforeTitle {
		title, hasTitle = ls.title()
	}
	if !hasTitle {
		ls.pos = beforeTitle
	}
	if !ls.atLineEnd() {
		if !hasTitle {
			return 0, linkDefinition{}
		}
		// A title followed by junk is dropped; the destination alone may still
		// end the line.
		title = ""
		ls.pos = beforeTitle
		if !ls.atLineEnd() {
			return 0, linkDefinition{}
		}
	}
	return ls.pos, linkDefinition{label: label, url: dest, title: title}
}

var entityPrefix = regexp.MustCompile(`^&(?:#[xX][0-9a-fA-F]{1,6}|#[0-9]{1,7}|[A-Za-z][A-Za-z0-9]{1,31});`)

// unescapeString resolves backslash escapes and character references.
func unescapeString(s string) string {
	if !strings.ContainsAny(s, "\\&") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s) && token.IsASCIIPunct(s[i+1]):
			b.WriteByte(s[i+1])
			i++
		case c == '&':
			if m := entityPrefix.FindString(s[i:]); m != "" {
				if decoded, ok := decodeEntity(m); ok {
					b.WriteString(decoded)
					i += len(m) - 1
					continue
				}
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// decodeEntity decodes a complete character reference such as "&amp;" or
// "&#x41;". Numeric references outside the Unicode scalar range decode to
// U+FFFD. ok is false for unknown names.
func decodeEntity(s string) (string, bool) {
	if strings.HasPrefix(s, "&#") {
		n, ok := parseNumericRef(s)
		if !ok {
			return "\uFFFD", true
		}
		return string(rune(n)), true
	}
	decoded := html.UnescapeString(s)
	if decoded == s || utf8.RuneCountInString(decoded) > 2 {
		return s, false
	}
	return decoded, true
}

func parseNumericRef(s string) (uint64, bool) {
	body := strings.TrimSuffix(s[2:], ";")
	base := 10
	if body != "" && (body[0] == 'x' || body[0] == 'X') {
		base = 16
		body = body[1:]
	}
	n, err := strconv.ParseUint(body, base, 32)
	if err != nil {
		return 0, false
	}
	return n, n != 0 && n <= utf8.MaxRune && (n < 0xD800 || n > 0xDFFF)
}

func numericRefValid(s string) bool {
	_, ok := parseNumericRef(s)
	return ok
}

const urlSafe = ";/?:@&=+$,-_.!~*'()#"

// normalizeURL percent-encodes bytes outside the URL-safe set. Existing
// %XX escapes are kept. bad reports a stray '%' that had to be escaped.
func normalizeURL(s string) (out string, bad bool) {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '%':
			if i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
				b.WriteString(s[i : i+3])
				i += 2
				continue
			}
			bad = true
			b.WriteString("%25")
		case c < 0x80 && (isAlnum(c) || strings.IndexByte(urlSafe, c) >= 0):
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String(), bad
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isAlnum(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
