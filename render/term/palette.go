package term

import (
	"strconv"
	"strings"
)

// SGR sequences shared by every palette.
const (
	Reset     = "\x1b[0m"
	Bold      = "\x1b[1m"
	Faint     = "\x1b[2m"
	Italic    = "\x1b[3m"
	Underline = "\x1b[4m"
	Strike    = "\x1b[9m"
)

// Palette assigns a foreground color to each semantic role. Colors are SGR
// sequences; an empty string leaves the terminal default.
type Palette struct {
	Text           string
	H1, H2, H3     string
	H4, H5, H6     string
	Emphasis       string
	Strong         string
	EmphasisStrong string
	CodeInline     string
	CodeBlock      string
	Quote          string
	ListMarker     string
	LinkText       string
	LinkURL        string
	ThematicBreak  string
	Math           string
	Admonition     string
	Footnote       string
	TableBorder    string
	// Chroma names the chroma style used for fenced code.
	Chroma string
}

// fg returns the 24-bit foreground sequence for a #rrggbb color.
func fg(hex string) string {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return ""
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return ""
	}
	return "\x1b[38;2;" + strconv.Itoa(int(v>>16&0xff)) + ";" +
		strconv.Itoa(int(v>>8&0xff)) + ";" + strconv.Itoa(int(v&0xff)) + "m"
}

var (
	PaletteDefault = Palette{
		H1: "\x1b[1;35m", H2: "\x1b[1;34m", H3: "\x1b[1;36m",
		H4: "\x1b[1;32m", H5: "\x1b[1;33m", H6: "\x1b[1;37m",
		CodeInline:    "\x1b[33m",
		CodeBlock:     "\x1b[37m",
		Quote:         "\x1b[90m",
		ListMarker:    "\x1b[36m",
		LinkText:      "\x1b[34m",
		LinkURL:       "\x1b[90m",
		ThematicBreak: "\x1b[90m",
		Math:          "\x1b[32m",
		Admonition:    "\x1b[1;33m",
		Footnote:      "\x1b[36m",
		TableBorder:   "\x1b[90m",
		Chroma:        "monokai",
	}

	PaletteGruvbox = Palette{
		Text: fg("#ebdbb2"),
		H1:   fg("#fb4934"), H2: fg("#fabd2f"), H3: fg("#b8bb26"),
		H4: fg("#8ec07c"), H5: fg("#83a598"), H6: fg("#d3869b"),
		Emphasis:       fg("#d3869b"),
		Strong:         fg("#fe8019"),
		EmphasisStrong: fg("#fb4934"),
		CodeInline:     fg("#fabd2f"),
		CodeBlock:      fg("#ebdbb2"),
		Quote:          fg("#928374"),
		ListMarker:     fg("#fe8019"),
		LinkText:       fg("#83a598"),
		LinkURL:        fg("#928374"),
		ThematicBreak:  fg("#928374"),
		Math:           fg("#b8bb26"),
		Admonition:     fg("#fabd2f"),
		Footnote:       fg("#8ec07c"),
		TableBorder:    fg("#928374"),
		Chroma:         "gruvbox",
	}

	PaletteDracula = Palette{
		Text: fg("#f8f8f2"),
		H1:   fg("#ff79c6"), H2: fg("#bd93f9"), H3: fg("#8be9fd"),
		H4: fg("#50fa7b"), H5: fg("#f1fa8c"), H6: fg("#ffb86c"),
		Emphasis:       fg("#f1fa8c"),
		Strong:         fg("#ffb86c"),
		EmphasisStrong: fg("#ff79c6"),
		CodeInline:     fg("#50fa7b"),
		CodeBlock:      fg("#f8f8f2"),
		Quote:          fg("#6272a4"),
		ListMarker:     fg("#bd93f9"),
		LinkText:       fg("#8be9fd"),
		LinkURL:        fg("#6272a4"),
		ThematicBreak:  fg("#6272a4"),
		Math:           fg("#50fa7b"),
		Admonition:     fg("#ff5555"),
		Footnote:       fg("#bd93f9"),
		TableBorder:    fg("#6272a4"),
		Chroma:         "dracula",
	}

	PaletteNord = Palette{
		Text: fg("#d8dee9"),
		H1:   fg("#88c0d0"), H2: fg("#81a1c1"), H3: fg("#8fbcbb"),
		H4: fg("#a3be8c"), H5: fg("#ebcb8b"), H6: fg("#b48ead"),
		Emphasis:       fg("#b48ead"),
		Strong:         fg("#d08770"),
		EmphasisStrong: fg("#bf616a"),
		CodeInline:     fg("#a3be8c"),
		CodeBlock:      fg("#d8dee9"),
		Quote:          fg("#4c566a"),
		ListMarker:     fg("#81a1c1"),
		LinkText:       fg("#88c0d0"),
		LinkURL:        fg("#4c566a"),
		ThematicBreak:  fg("#4c566a"),
		Math:           fg("#8fbcbb"),
		Admonition:     fg("#ebcb8b"),
		Footnote:       fg("#5e81ac"),
		TableBorder:    fg("#4c566a"),
		Chroma:         "nord",
	}

	PaletteSolarizedDark = Palette{
		Text: fg("#839496"),
		H1:   fg("#cb4b16"), H2: fg("#b58900"), H3: fg("#268bd2"),
		H4: fg("#2aa198"), H5: fg("#859900"), H6: fg("#6c71c4"),
		Emphasis:       fg("#d33682"),
		Strong:         fg("#cb4b16"),
		EmphasisStrong: fg("#dc322f"),
		CodeInline:     fg("#2aa198"),
		CodeBlock:      fg("#93a1a1"),
		Quote:          fg("#586e75"),
		ListMarker:     fg("#b58900"),
		LinkText:       fg("#268bd2"),
		LinkURL:        fg("#586e75"),
		ThematicBreak:  fg("#586e75"),
		Math:           fg("#859900"),
		Admonition:     fg("#b58900"),
		Footnote:       fg("#6c71c4"),
		TableBorder:    fg("#586e75"),
		Chroma:         "solarized-dark",
	}

	PaletteSolarizedLight = Palette{
		Text: fg("#657b83"),
		H1:   fg("#cb4b16"), H2: fg("#b58900"), H3: fg("#268bd2"),
		H4: fg("#2aa198"), H5: fg("#859900"), H6: fg("#6c71c4"),
		Emphasis:       fg("#d33682"),
		Strong:         fg("#cb4b16"),
		EmphasisStrong: fg("#dc322f"),
		CodeInline:     fg("#2aa198"),
		CodeBlock:      fg("#586e75"),
		Quote:          fg("#93a1a1"),
		ListMarker:     fg("#b58900"),
		LinkText:       fg("#268bd2"),
		LinkURL:        fg("#93a1a1"),
		ThematicBreak:  fg("#93a1a1"),
		Math:           fg("#859900"),
		Admonition:     fg("#b58900"),
		Footnote:       fg("#6c71c4"),
		TableBorder:    fg("#93a1a1"),
		Chroma:         "solarized-light",
	}

	PaletteGithubDark = Palette{
		Text: fg("#c9d1d9"),
		H1:   fg("#79c0ff"), H2: fg("#d2a8ff"), H3: fg("#7ee787"),
		H4: fg("#ffa657"), H5: fg("#ff7b72"), H6: fg("#8b949e"),
		Emphasis:       fg("#d2a8ff"),
		Strong:         fg("#ffa657"),
		EmphasisStrong: fg("#ff7b72"),
		CodeInline:     fg("#a5d6ff"),
		CodeBlock:      fg("#c9d1d9"),
		Quote:          fg("#8b949e"),
		ListMarker:     fg("#79c0ff"),
		LinkText:       fg("#58a6ff"),
		LinkURL:        fg("#8b949e"),
		ThematicBreak:  fg("#30363d"),
		Math:           fg("#7ee787"),
		Admonition:     fg("#d29922"),
		Footnote:       fg("#79c0ff"),
		TableBorder:    fg("#8b949e"),
		Chroma:         "github-dark",
	}

	PaletteGithubLight = Palette{
		Text: fg("#24292f"),
		H1:   fg("#0550ae"), H2: fg("#8250df"), H3: fg("#116329"),
		H4: fg("#953800"), H5: fg("#cf222e"), H6: fg("#6e7781"),
		Emphasis:       fg("#8250df"),
		Strong:         fg("#953800"),
		EmphasisStrong: fg("#cf222e"),
		CodeInline:     fg("#0a3069"),
		CodeBlock:      fg("#24292f"),
		Quote:          fg("#6e7781"),
		ListMarker:     fg("#0550ae"),
		LinkText:       fg("#0969da"),
		LinkURL:        fg("#6e7781"),
		ThematicBreak:  fg("#d0d7de"),
		Math:           fg("#116329"),
		Admonition:     fg("#9a6700"),
		Footnote:       fg("#0550ae"),
		TableBorder:    fg("#6e7781"),
		Chroma:         "github",
	}

	PaletteTokyoNight = Palette{
		Text: fg("#c0caf5"),
		H1:   fg("#7aa2f7"), H2: fg("#bb9af7"), H3: fg("#7dcfff"),
		H4: fg("#9ece6a"), H5: fg("#e0af68"), H6: fg("#ff9e64"),
		Emphasis:       fg("#bb9af7"),
		Strong:         fg("#ff9e64"),
		EmphasisStrong: fg("#f7768e"),
		CodeInline:     fg("#9ece6a"),
		CodeBlock:      fg("#c0caf5"),
		Quote:          fg("#565f89"),
		ListMarker:     fg("#7aa2f7"),
		LinkText:       fg("#7dcfff"),
		LinkURL:        fg("#565f89"),
		ThematicBreak:  fg("#565f89"),
		Math:           fg("#9ece6a"),
		Admonition:     fg("#e0af68"),
		Footnote:       fg("#bb9af7"),
		TableBorder:    fg("#565f89"),
		Chroma:         "tokyonight-night",
	}

	PaletteCatppuccinMocha = Palette{
		Text: fg("#cdd6f4"),
		H1:   fg("#cba6f7"), H2: fg("#89b4fa"), H3: fg("#74c7ec"),
		H4: fg("#a6e3a1"), H5: fg("#f9e2af"), H6: fg("#fab387"),
		Emphasis:       fg("#f5c2e7"),
		Strong:         fg("#fab387"),
		EmphasisStrong: fg("#f38ba8"),
		CodeInline:     fg("#a6e3a1"),
		CodeBlock:      fg("#cdd6f4"),
		Quote:          fg("#6c7086"),
		ListMarker:     fg("#cba6f7"),
		LinkText:       fg("#89b4fa"),
		LinkURL:        fg("#6c7086"),
		ThematicBreak:  fg("#6c7086"),
		Math:           fg("#94e2d5"),
		Admonition:     fg("#f9e2af"),
		Footnote:       fg("#b4befe"),
		TableBorder:    fg("#6c7086"),
		Chroma:         "catppuccin-mocha",
	}
)
