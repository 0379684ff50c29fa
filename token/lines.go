package token

import "strings"

// Line is the run of tokens between two line endings.
type Line struct {
	Tokens []Token
	// End is the Newline, CarriageReturn or EOF token terminating the line.
	End Token
}

// Start returns the byte offset where the line begins.
func (l Line) Start() int {
	if len(l.Tokens) > 0 {
		return l.Tokens[0].Range.Start
	}
	return l.End.Range.Start
}

// Text returns the line content without its terminator.
func (l Line) Text() string { return Join(l.Tokens) }

// Lines splits toks into lines. Block composites and tokens that span a line
// ending are re-scanned one line at a time, so every Line holds only
// single-line tokens contained in it and ranges stay absolute. A trailing
// line ending does not open an empty line.
func Lines(toks []Token) []Line {
	var (
		lines []Line
		cur   []Token
	)
	var add func(t Token)
	add = func(t Token) {
		switch {
		case t.Kind == Newline || t.Kind == CarriageReturn:
			lines = append(lines, Line{Tokens: cur, End: t})
			cur = nil
		case t.Kind == EOF:
			if len(cur) > 0 {
				lines = append(lines, Line{Tokens: cur, End: t})
				cur = nil
			}
		case t.Kind.isBlockComposite() || strings.ContainsAny(t.Text, "\n\r"):
			for _, sub := range rescan(t) {
				if spansLines(sub) {
					// Line mode never yields these; split rather than loop.
					for _, piece := range splitLineEnds(sub) {
						add(piece)
					}
					continue
				}
				add(sub)
			}
		default:
			cur = append(cur, t)
		}
	}
	for _, t := range toks {
		add(t)
	}
	if len(cur) > 0 {
		// Streams without EOF still close their last line.
		end := cur[len(cur)-1].Range.End
		lines = append(lines, Line{Tokens: cur, End: Token{Kind: EOF, Range: Range{Start: end, End: end}}})
	}
	return lines
}

// ScanLine tokenizes a single line of text starting at byte offset base using
// only constructs that fit on one line.
func ScanLine(text string, base int) []Token {
	s := scanner{src: text, base: base, lineMode: true}
	s.run()
	return s.toks
}

func rescan(t Token) []Token {
	return ScanLine(t.Text, t.Range.Start)
}

func spansLines(t Token) bool {
	if t.Kind == Newline || t.Kind == CarriageReturn {
		return false
	}
	return t.Kind.isBlockComposite() || strings.ContainsAny(t.Text, "\n\r")
}

// splitLineEnds cuts t into Text tokens and the line endings between them.
func splitLineEnds(t Token) []Token {
	var out []Token
	text, base, start := t.Text, t.Range.Start, 0
	piece := func(k Kind, from, to int) {
		out = append(out, Token{Kind: k, Text: text[from:to], Range: Range{Start: base + from, End: base + to}})
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c != '\n' && c != '\r' {
			continue
		}
		if i > start {
			piece(Text, start, i)
		}
		end, kind := i+1, Newline
		if c == '\r' {
			if i+1 < len(text) && text[i+1] == '\n' {
				end = i + 2
			} else {
				kind = CarriageReturn
			}
		}
		piece(kind, i, end)
		start = end
		i = end - 1
	}
	if start < len(text) {
		piece(Text, start, len(text))
	}
	return out
}
