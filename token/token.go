// Package token splits Markdown source into a flat, lossless token stream.
//
// Tokenize never fails: every byte of the input belongs to exactly one token and
// the stream always ends with a zero-width EOF token. Multi-character constructs
// that can be recognised without block context (fenced code, code spans, HTML,
// entities, autolinks, math) are emitted as composite tokens; everything else is
// a single punctuation character or a run of text, digits or whitespace.
//
// Lines regroups a stream by source line. It always rescans block composites
// (fenced code, formula blocks, HTML blocks) and any token spanning a line
// ending with ScanLine, so line-level consumers see the composite's lines
// and not the composite itself. Scanning keeps per-kind memos of closer
// searches that failed, so repeated unclosed openers cost linear time.
package token

import (
	"strconv"
	"strings"
)

// Kind classifies a token.
type Kind uint8

const (
	EOF Kind = iota
	Text
	Number
	Space
	Tab
	Newline
	CarriageReturn

	Hash
	Asterisk
	Underscore
	Tilde
	Dash
	Plus
	Backtick
	Pipe
	LBracket
	RBracket
	LParen
	RParen
	LBrace
	RBrace
	Less
	Greater
	Ampersand
	Caret
	At
	Dollar
	Backslash
	Colon
	Semicolon
	Equals
	Dot
	Bang
	Quote
	Apostrophe
	// Punct is any other ASCII punctuation character.
	Punct

	FencedCode
	IndentedCode
	CodeSpan
	HTMLTag
	HTMLBlock
	HTMLComment
	Entity
	Autolink
	Formula
	FormulaBlock
	CustomContainer
)

var kindNames = [...]string{
	EOF:             "EOF",
	Text:            "Text",
	Number:          "Number",
	Space:           "Space",
	Tab:             "Tab",
	Newline:         "Newline",
	CarriageReturn:  "CarriageReturn",
	Hash:            "Hash",
	Asterisk:        "Asterisk",
	Underscore:      "Underscore",
	Tilde:           "Tilde",
	Dash:            "Dash",
	Plus:            "Plus",
	Backtick:        "Backtick",
	Pipe:            "Pipe",
	LBracket:        "LBracket",
	RBracket:        "RBracket",
	LParen:          "LParen",
	RParen:          "RParen",
	LBrace:          "LBrace",
	RBrace:          "RBrace",
	Less:            "Less",
	Greater:         "Greater",
	Ampersand:       "Ampersand",
	Caret:           "Caret",
	At:              "At",
	Dollar:          "Dollar",
	Backslash:       "Backslash",
	Colon:           "Colon",
	Semicolon:       "Semicolon",
	Equals:          "Equals",
	Dot:             "Dot",
	Bang:            "Bang",
	Quote:           "Quote",
	Apostrophe:      "Apostrophe",
	Punct:           "Punct",
	FencedCode:      "FencedCode",
	IndentedCode:    "IndentedCode",
	CodeSpan:        "CodeSpan",
	HTMLTag:         "HTMLTag",
	HTMLBlock:       "HTMLBlock",
	HTMLComment:     "HTMLComment",
	Entity:          "Entity",
	Autolink:        "Autolink",
	Formula:         "Formula",
	FormulaBlock:    "FormulaBlock",
	CustomContainer: "CustomContainer",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// IsPunct reports whether k is a single ASCII punctuation character.
func (k Kind) IsPunct() bool { return k >= Hash && k <= Punct }

// IsComposite reports whether k is a pre-scanned multi-character construct.
func (k Kind) IsComposite() bool { return k >= FencedCode }

func (k Kind) isBlockComposite() bool {
	switch k {
	case FencedCode, IndentedCode, HTMLBlock, FormulaBlock, CustomContainer:
		return true
	}
	return false
}

// IsSpace reports whether k is horizontal whitespace.
func (k Kind) IsSpace() bool { return k == Space || k == Tab }

// IsLineEnd reports whether k terminates a line.
func (k Kind) IsLineEnd() bool { return k == Newline || k == CarriageReturn || k == EOF }

// Range is a half-open byte range into the source.
type Range struct {
	Start int
	End   int
}

// Len returns the number of bytes covered.
func (r Range) Len() int { return r.End - r.Start }

// Token is one classified slice of the source.
type Token struct {
	Kind  Kind
	Text  string
	Range Range
}

// Slice returns the sub-token covering t.Text[i:j] with the same kind.
func (t Token) Slice(i, j int) Token {
	return Token{Kind: t.Kind, Text: t.Text[i:j], Range: Range{Start: t.Range.Start + i, End: t.Range.Start + j}}
}

func (t Token) String() string {
	return t.Kind.String() + "(" + strconv.Quote(t.Text) + ")"
}

// Join concatenates the text of toks.
func Join(toks []Token) string {
	switch len(toks) {
	case 0:
		return ""
	case 1:
		return toks[0].Text
	}
	var b strings.Builder
	for _, t := range toks {
		b.WriteString(t.Text)
	}
	return b.String()
}

var punctKinds = [128]Kind{
	'#': Hash, '*': Asterisk, '_': Underscore, '~': Tilde, '-': Dash, '+': Plus,
	'`': Backtick, '|': Pipe, '[': LBracket, ']': RBracket, '(': LParen, ')': RParen,
	'{': LBrace, '}': RBrace, '<': Less, '>': Greater, '&': Ampersand, '^': Caret,
	'@': At, '$': Dollar, '\\': Backslash, ':': Colon, ';': Semicolon, '=': Equals,
	'.': Dot, '!': Bang, '"': Quote, '\'': Apostrophe,
}

// PunctKind returns the token kind of the ASCII punctuation byte c.
func PunctKind(c byte) Kind {
	if c < 128 {
		if k := punctKinds[c]; k != EOF {
			return k
		}
	}
	return Punct
}

// IsASCIIPunct reports whether c is ASCII punctuation as CommonMark defines it.
func IsASCIIPunct(c byte) bool {
	return '!' <= c && c <= '/' || ':' <= c && c <= '@' || '[' <= c && c <= '`' || '{' <= c && c <= '~'
}
