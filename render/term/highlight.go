package term

import (
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// highlight colors code with the chroma lexer for lang and returns one
// string per source line. It reports false when lang is unknown.
func highlight(code, lang, styleName string) ([]string, bool) {
	if lang == "" || styleName == "" {
		return nil, false
	}
	lexer := lexers.Get(lang)
	if lexer == nil {
		return nil, false
	}
	lexer = chroma.Coalesce(lexer)
	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return nil, false
	}
	style := styles.Get(styleName)

	lines := []string{""}
	var cur strings.Builder
	for tok := iterator(); tok != chroma.EOF; tok = iterator() {
		prefix := sgr(style.Get(tok.Type))
		for i, part := range strings.Split(tok.Value, "\n") {
			if i > 0 {
				lines[len(lines)-1] = cur.String()
				lines = append(lines, "")
				cur.Reset()
			}
			if part == "" {
				continue
			}
			if prefix == "" {
				cur.WriteString(part)
				continue
			}
			cur.WriteString(prefix + part + Reset)
		}
	}
	lines[len(lines)-1] = cur.String()
	// Lexers may append a newline the source did not have.
	if n := strings.Count(code, "\n") + 1; len(lines) > n {
		lines = lines[:n]
	}
	return lines, true
}

// sgr converts a chroma style entry to a foreground-only SGR sequence.
func sgr(entry chroma.StyleEntry) string {
	var codes []string
	if entry.Colour.IsSet() {
		codes = append(codes, "38;2;"+strconv.Itoa(int(entry.Colour.Red()))+";"+
			strconv.Itoa(int(entry.Colour.Green()))+";"+strconv.Itoa(int(entry.Colour.Blue())))
	}
	if entry.Bold == chroma.Yes {
		codes = append(codes, "1")
	}
	if entry.Italic == chroma.Yes {
		codes = append(codes, "3")
	}
	if entry.Underline == chroma.Yes {
		codes = append(codes, "4")
	}
	if len(codes) == 0 {
		return ""
	}
	return "\x1b[" + strings.Join(codes, ";") + "m"
}
