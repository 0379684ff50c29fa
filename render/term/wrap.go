package term

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/ansi"
)

// piece is a run of text sharing one style and link target. A break piece
// forces a new line.
type piece struct {
	text  string
	style Style
	url   string
	brk   bool
}

func piecesWidth(pieces []piece) int {
	w := 0
	for _, p := range pieces {
		w += runewidth.StringWidth(p.text)
	}
	return w
}

// lineBuilder fills lines word by word. Spaces are the only break
// opportunities; a word may span several pieces.
type lineBuilder struct {
	width    int
	softWrap bool
	osc8     bool

	lines    []string
	cur      strings.Builder
	curWidth int
	word     []piece
	wordW    int
	gap      bool
}

func (lb *lineBuilder) add(p piece) {
	if p.brk {
		lb.endWord()
		lb.newline()
		return
	}
	for i, part := range strings.Split(p.text, " ") {
		if i > 0 {
			lb.endWord()
			lb.gap = true
		}
		if part == "" {
			continue
		}
		lb.word = append(lb.word, piece{text: part, style: p.style, url: p.url})
		lb.wordW += runewidth.StringWidth(part)
	}
}

func (lb *lineBuilder) endWord() {
	if len(lb.word) == 0 {
		return
	}
	if lb.curWidth > 0 && lb.width > 0 && lb.curWidth+1+lb.wordW > lb.width {
		lb.newline()
	}
	if lb.curWidth > 0 && lb.gap {
		lb.cur.WriteByte(' ')
		lb.curWidth++
	}
	lb.gap = false
	if lb.softWrap && lb.width > 0 && lb.wordW > lb.width {
		lb.splitWord()
	} else {
		for _, p := range lb.word {
			lb.emit(p)
		}
		lb.curWidth += lb.wordW
	}
	lb.word = lb.word[:0]
	lb.wordW = 0
}

// splitWord breaks an overlong word at the line width.
func (lb *lineBuilder) splitWord() {
	for _, p := range lb.word {
		var chunk strings.Builder
		for _, r := range p.text {
			rw := runewidth.RuneWidth(r)
			if lb.curWidth+rw > lb.width && lb.curWidth > 0 {
				lb.emit(piece{text: chunk.String(), style: p.style, url: p.url})
				chunk.Reset()
				lb.newline()
			}
			chunk.WriteRune(r)
			lb.curWidth += rw
		}
		lb.emit(piece{text: chunk.String(), style: p.style, url: p.url})
	}
}

func (lb *lineBuilder) emit(p piece) {
	text := p.text
	if text == "" {
		return
	}
	if lb.osc8 && p.url != "" {
		text = hyperlink(p.url, text)
	}
	lb.cur.WriteString(p.style.apply(text))
}

func (lb *lineBuilder) newline() {
	lb.lines = append(lb.lines, lb.cur.String())
	lb.cur.Reset()
	lb.curWidth = 0
	lb.gap = false
}

func (lb *lineBuilder) finish() []string {
	lb.endWord()
	if lb.curWidth > 0 || lb.cur.Len() > 0 || len(lb.lines) == 0 {
		lb.newline()
	}
	return lb.lines
}

// joinPieces renders pieces on one line without wrapping.
func joinPieces(pieces []piece) string {
	var b strings.Builder
	for _, p := range pieces {
		if p.brk {
			b.WriteByte(' ')
			continue
		}
		b.WriteString(p.style.apply(p.text))
	}
	return b.String()
}

// truncatePieces cuts pieces to limit columns, ending with an ellipsis.
func truncatePieces(pieces []piece, limit int) []piece {
	if piecesWidth(pieces) <= limit {
		return pieces
	}
	var out []piece
	room := limit - 1
	for _, p := range pieces {
		w := runewidth.StringWidth(p.text)
		if w <= room {
			out = append(out, p)
			room -= w
			continue
		}
		ellipsis := piece{text: "…", style: p.style}
		p.text = runewidth.Truncate(p.text, room, "")
		return append(out, p, ellipsis)
	}
	return out
}

func truncateWithEllipsis(text string, limit int) string {
	if ansi.PrintableRuneWidth(text) <= limit {
		return text
	}
	if limit <= 0 {
		return ""
	}
	return runewidth.Truncate(text, limit, "…")
}

// fitURL shortens url to limit columns, dropping the scheme first.
func fitURL(url string, limit int) string {
	if ansi.PrintableRuneWidth(url) <= limit {
		return url
	}
	if idx := strings.Index(url, "://"); idx != -1 {
		trimmed := url[idx+3:]
		if ansi.PrintableRuneWidth(trimmed) <= limit {
			return trimmed
		}
		url = trimmed
	}
	return truncateWithEllipsis(url, limit)
}

// prefixLines prepends first to the first line and rest to the others.
// Empty lines get rest without trailing spaces.
func prefixLines(lines []string, first, rest string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		prefix := rest
		if i == 0 {
			prefix = first
		}
		if line == "" {
			out[i] = strings.TrimRight(prefix, " ")
			continue
		}
		out[i] = prefix + line
	}
	return out
}
