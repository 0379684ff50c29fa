package mdast

import (
	"fmt"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// DiagnosticKind classifies a Diagnostic.
type DiagnosticKind uint8

const (
	DiagInvalidUTF8 DiagnosticKind = iota + 1
	DiagNUL
	DiagUnusedDefinition
	DiagDuplicateDefinition
	DiagUnresolvedReference
	DiagUndefinedFootnote
	DiagInvalidCharRef
	DiagUnclosedFence
	DiagUnclosedBlock
	DiagNestingLimit
	DiagFrontMatter
	DiagDestination
)

var diagnosticNames = map[DiagnosticKind]string{
	DiagInvalidUTF8:         "invalid-utf8",
	DiagNUL:                 "nul",
	DiagUnusedDefinition:    "unused-definition",
	DiagDuplicateDefinition: "duplicate-definition",
	DiagUnresolvedReference: "unresolved-reference",
	DiagUndefinedFootnote:   "undefined-footnote",
	DiagInvalidCharRef:      "invalid-char-ref",
	DiagUnclosedFence:       "unclosed-fence",
	DiagUnclosedBlock:       "unclosed-block",
	DiagNestingLimit:        "nesting-limit",
	DiagFrontMatter:         "front-matter",
	DiagDestination:         "destination",
}

func (k DiagnosticKind) String() string {
	if name, ok := diagnosticNames[k]; ok {
		return name
	}
	return "diagnostic(" + strconv.Itoa(int(k)) + ")"
}

// Diagnostic is a recoverable problem noticed while parsing. Parsing never
// fails because of one; the document is still built.
type Diagnostic struct {
	Kind    DiagnosticKind
	Line    int
	Message string
}

func (d Diagnostic) Error() string {
	if d.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", d.Line, d.Kind, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}

// Diagnostics is the ordered list collected during one parse.
type Diagnostics []Diagnostic

// Err folds the diagnostics into a single error, or nil when there are none.
func (d Diagnostics) Err() error {
	var merr *multierror.Error
	for _, diag := range d {
		merr = multierror.Append(merr, diag)
	}
	return merr.ErrorOrNil()
}

// Filter returns the diagnostics whose kind is one of kinds.
func (d Diagnostics) Filter(kinds ...DiagnosticKind) Diagnostics {
	var out Diagnostics
	for _, diag := range d {
		for _, k := range kinds {
			if diag.Kind == k {
				out = append(out, diag)
				break
			}
		}
	}
	return out
}

func (d *Diagnostics) add(kind DiagnosticKind, line int, format string, args ...any) {
	*d = append(*d, Diagnostic{Kind: kind, Line: line, Message: fmt.Sprintf(format, args...)})
}

func (d Diagnostics) log(logger logrus.FieldLogger) {
	if logger == nil {
		return
	}
	for _, diag := range d {
		logger.WithFields(logrus.Fields{
			"kind": diag.Kind.String(),
			"line": diag.Line,
		}).Debug(diag.Message)
	}
}
