package term

import (
	"sort"
	"strings"
)

// Style describes a terminal style as an ANSI prefix sequence.
type Style struct {
	Prefix string
}

func (s Style) apply(text string) string {
	if s.Prefix == "" || text == "" {
		return text
	}
	return s.Prefix + text + Reset
}

// Styles groups the semantic styles used by the renderer.
type Styles struct {
	Text           Style
	Heading        [6]Style
	Emphasis       Style
	Strong         Style
	EmphasisStrong Style
	Strike         Style
	CodeInline     Style
	CodeBlock      Style
	Quote          Style
	ListMarker     Style
	LinkText       Style
	LinkURL        Style
	ThematicBreak  Style
	Math           Style
	Admonition     Style
	Footnote       Style
	TableBorder    Style
	TableHeader    Style
	// CodeTheme is the chroma style for fenced code; empty disables
	// highlighting.
	CodeTheme string
}

// Theme provides named styles for Markdown rendering.
type Theme interface {
	Name() string
	Styles() Styles
}

type theme struct {
	name   string
	styles Styles
}

func (t theme) Name() string   { return t.name }
func (t theme) Styles() Styles { return t.styles }

// NewTheme returns a Theme from a Styles definition.
func NewTheme(name string, styles Styles) Theme {
	return theme{name: name, styles: styles}
}

// BoringTheme returns a theme without any escape sequences.
func BoringTheme() Theme {
	return NewTheme("boring", Styles{})
}

func style(prefixes ...string) Style {
	var b strings.Builder
	for _, p := range prefixes {
		b.WriteString(p)
	}
	return Style{Prefix: b.String()}
}

// StylesFromPalette derives the renderer styles from a palette.
func StylesFromPalette(p Palette) Styles {
	return Styles{
		Text:           style(p.Text),
		Heading:        [6]Style{style(Bold, p.H1), style(Bold, p.H2), style(Bold, p.H3), style(p.H4), style(p.H5), style(p.H6)},
		Emphasis:       style(Italic, p.Emphasis),
		Strong:         style(Bold, p.Strong),
		EmphasisStrong: style(Bold, Italic, p.EmphasisStrong),
		Strike:         style(Strike, p.Text),
		CodeInline:     style(p.CodeInline),
		CodeBlock:      style(p.CodeBlock),
		Quote:          style(p.Quote),
		ListMarker:     style(p.ListMarker),
		LinkText:       style(Underline, p.LinkText),
		LinkURL:        style(p.LinkURL),
		ThematicBreak:  style(p.ThematicBreak),
		Math:           style(Italic, p.Math),
		Admonition:     style(Bold, p.Admonition),
		Footnote:       style(p.Footnote),
		TableBorder:    style(p.TableBorder),
		TableHeader:    style(Bold, p.Text),
		CodeTheme:      p.Chroma,
	}
}

var builtinThemes = map[string]Theme{
	"default":          NewTheme("default", StylesFromPalette(PaletteDefault)),
	"gruvbox":          NewTheme("gruvbox", StylesFromPalette(PaletteGruvbox)),
	"dracula":          NewTheme("dracula", StylesFromPalette(PaletteDracula)),
	"nord":             NewTheme("nord", StylesFromPalette(PaletteNord)),
	"solarized-dark":   NewTheme("solarized-dark", StylesFromPalette(PaletteSolarizedDark)),
	"solarized-light":  NewTheme("solarized-light", StylesFromPalette(PaletteSolarizedLight)),
	"github-dark":      NewTheme("github-dark", StylesFromPalette(PaletteGithubDark)),
	"github-light":     NewTheme("github-light", StylesFromPalette(PaletteGithubLight)),
	"tokyo-night":      NewTheme("tokyo-night", StylesFromPalette(PaletteTokyoNight)),
	"catppuccin-mocha": NewTheme("catppuccin-mocha", StylesFromPalette(PaletteCatppuccinMocha)),
}

// AvailableThemes returns the names of built-in themes.
func AvailableThemes() []string {
	names := make([]string, 0, len(builtinThemes))
	for name := range builtinThemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ThemeByName returns a built-in theme by name.
func ThemeByName(name string) (Theme, bool) {
	if name == "" {
		return builtinThemes["default"], true
	}
	t, ok := builtinThemes[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// DefaultTheme returns the default built-in theme.
func DefaultTheme() Theme {
	return builtinThemes["default"]
}
