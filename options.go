package mdast

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Extension is a set of syntax extensions layered over CommonMark.
type Extension uint32

const (
	// ExtTables enables GFM pipe tables.
	ExtTables Extension = 1 << iota
	// ExtStrikethrough enables ~~strike~~ spans.
	ExtStrikethrough
	// ExtTaskLists turns items starting with [ ] or [x] into task items.
	ExtTaskLists
	// ExtFootnotes enables [^id] references and [^id]: definitions.
	ExtFootnotes
	// ExtCitations enables [@id] references and [@id]: definitions.
	ExtCitations
	// ExtMath enables $inline$, $$display$$ and \(..\) / \[..\] formulas.
	ExtMath
	// ExtAdmonitions enables ::: fenced admonition containers.
	ExtAdmonitions
	// ExtAutolinks enables bare www., http(s):// and email autolinks.
	ExtAutolinks
	// ExtFrontMatter strips and decodes a leading metadata block.
	ExtFrontMatter

	// ExtNone is plain CommonMark.
	ExtNone Extension = 0
	// ExtGFM is the GitHub Flavored Markdown set.
	ExtGFM = ExtTables | ExtStrikethrough | ExtTaskLists | ExtAutolinks | ExtFootnotes
	// ExtAll enables every extension.
	ExtAll = ExtGFM | ExtCitations | ExtMath | ExtAdmonitions | ExtFrontMatter
)

var extensionNames = map[string]Extension{
	"tables":        ExtTables,
	"strikethrough": ExtStrikethrough,
	"tasklists":     ExtTaskLists,
	"footnotes":     ExtFootnotes,
	"citations":     ExtCitations,
	"math":          ExtMath,
	"admonitions":   ExtAdmonitions,
	"autolinks":     ExtAutolinks,
	"frontmatter":   ExtFrontMatter,
	"gfm":           ExtGFM,
	"all":           ExtAll,
}

// Has reports whether every extension in x is enabled in e.
func (e Extension) Has(x Extension) bool { return e&x == x }

// String lists the single extensions in e, comma separated.
func (e Extension) String() string {
	var names []string
	for name, x := range extensionNames {
		if x&(x-1) == 0 && e.Has(x) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// ExtensionByName resolves a case-insensitive extension or group name.
func ExtensionByName(name string) (Extension, bool) {
	x, ok := extensionNames[strings.ToLower(strings.TrimSpace(name))]
	return x, ok
}

// ExtensionNames returns the accepted extension names in order.
func ExtensionNames() []string {
	names := make([]string, 0, len(extensionNames))
	for name := range extensionNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Option configures parsing.
type Option func(*config)

type config struct {
	ext            Extension
	maxNesting     int
	rejectBinary   bool
	keepUnresolved bool
	logger         logrus.FieldLogger
}

const defaultMaxNesting = 64

func newConfig(opts []Option) config {
	cfg := config{ext: ExtAll, maxNesting: defaultMaxNesting}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.maxNesting <= 0 {
		cfg.maxNesting = defaultMaxNesting
	}
	return cfg
}

// WithExtensions enables exactly the given extensions.
func WithExtensions(ext Extension) Option {
	return func(cfg *config) {
		cfg.ext = ext
	}
}

// WithoutExtensions disables the given extensions, keeping the rest.
func WithoutExtensions(ext Extension) Option {
	return func(cfg *config) {
		cfg.ext &^= ext
	}
}

// WithMaxNesting caps how deep block containers may nest.
func WithMaxNesting(depth int) Option {
	return func(cfg *config) {
		cfg.maxNesting = depth
	}
}

// WithRejectBinary makes Parse fail with ErrBinaryInput on input that looks
// binary instead of sanitizing it.
func WithRejectBinary(enabled bool) Option {
	return func(cfg *config) {
		cfg.rejectBinary = enabled
	}
}

// WithKeepUnresolved leaves references without a definition in the tree as
// Reference nodes instead of turning them back into text.
func WithKeepUnresolved(enabled bool) Option {
	return func(cfg *config) {
		cfg.keepUnresolved = enabled
	}
}

// WithLogger sets where diagnostics are logged at debug level.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}
