package mdast

import (
	"strings"

	"golang.org/x/net/html/atom"
)

// blockTags are the tag names that start an HTML block of type 6.
var blockTags = func() map[string]bool {
	names := strings.Fields(`address article aside base basefont blockquote body
		caption center col colgroup dd details dialog dir div dl dt fieldset
		figcaption figure footer form frame frameset h1 h2 h3 h4 h5 h6 head
		header hr html iframe legend li link main menu menuitem nav noframes
		ol optgroup option p param search section summary table tbody td
		tfoot th thead title tr track ul`)
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set
}()

// rawTags hold content that is never parsed as Markdown (type 1).
var rawTags = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Pre:      true,
	atom.Style:    true,
	atom.Textarea: true,
}

// htmlBlockStart returns the HTML block type (1-6) that s starts, or 0.
func htmlBlockStart(s string) int {
	switch {
	case len(s) < 2 || s[0] != '<':
		return 0
	case strings.HasPrefix(s, "<!--"):
		return 2
	case strings.HasPrefix(s, "<?"):
		return 3
	case strings.HasPrefix(s, "<![CDATA["):
		return 5
	case s[1] == '!' && len(s) > 2 && isLetter(s[2]):
		return 4
	}
	closing := s[1] == '/'
	name, rest := tagName(s[1:])
	if closing {
		name, rest = tagName(s[2:])
	}
	if name == "" {
		return 0
	}
	lower := strings.ToLower(name)
	if !closing && rawTags[atom.Lookup([]byte(lower))] && endsTagName(rest, false) {
		return 1
	}
	if blockTags[lower] && endsTagName(rest, true) {
		return 6
	}
	return 0
}

func tagName(s string) (name, rest string) {
	if s == "" || !isLetter(s[0]) {
		return "", s
	}
	i := 1
	for i < len(s) && (isAlnum(s[i]) || s[i] == '-') {
		i++
	}
	return s[:i], s[i:]
}

// endsTagName reports whether rest may follow a tag name: whitespace, '>',
// the end of the line, or "/>" when selfClose is allowed.
func endsTagName(rest string, selfClose bool) bool {
	if rest == "" {
		return true
	}
	switch rest[0] {
	case ' ', '\t', '>':
		return true
	case '/':
		return selfClose && strings.HasPrefix(rest, "/>")
	}
	return false
}

// isOpenOrCloseTag reports whether tag is an open or closing tag whose name
// is not one of the raw-content tags.
func isOpenOrCloseTag(tag string) bool {
	s := strings.TrimPrefix(tag[1:], "/")
	name, _ := tagName(s)
	return name != "" && !rawTags[atom.Lookup([]byte(strings.ToLower(name)))]
}

// htmlBlockEnds reports whether line satisfies the end condition of an HTML
// block of type t (1-5).
func htmlBlockEnds(t int, line string) bool {
	switch t {
	case 1:
		lower := strings.ToLower(line)
		for _, end := range []string{"</script>", "</pre>", "</style>", "</textarea>"} {
			if strings.Contains(lower, end) {
				return true
			}
		}
		return false
	case 2:
		return strings.Contains(line, "-->")
	case 3:
		return strings.Contains(line, "?>")
	case 4:
		return strings.Contains(line, ">")
	case 5:
		return strings.Contains(line, "]]>")
	}
	return false
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
