// Package ast holds the document tree produced by the parser.
//
// The tree is an arena: nodes live in one slice inside a Tree and refer to
// each other by NodeID. Every node except the root has exactly one parent and
// appears exactly once in that parent's Children.
package ast

import "strconv"

// NodeID addresses a node inside its Tree.
type NodeID int32

// NoNode is the parent of the root and of detached nodes.
const NoNode NodeID = -1

// Kind tags the variant held by a Node.
type Kind uint8

const (
	KindDocument Kind = iota
	KindHeader
	KindParagraph
	KindBlockquote
	KindOrderedList
	KindUnorderedList
	KindListItem
	KindTaskListItem
	KindCodeBlock
	KindHTMLBlock
	KindThematicBreak
	KindTable
	KindTableRow
	KindTableCell
	KindFootnote
	KindCitation
	KindFormulaBlock
	KindAdmonition

	KindText
	KindEmphasis
	KindStrong
	KindStrike
	KindInlineCode
	KindLink
	KindImage
	KindReference
	KindLineBreak
	KindHTMLInline
	KindComment
	KindFootnoteReference
	KindCitationReference
	KindFormula

	kindCount
)

var kindNames = [kindCount]string{
	KindDocument:          "Document",
	KindHeader:            "Header",
	KindParagraph:         "Paragraph",
	KindBlockquote:        "Blockquote",
	KindOrderedList:       "OrderedList",
	KindUnorderedList:     "UnorderedList",
	KindListItem:          "ListItem",
	KindTaskListItem:      "TaskListItem",
	KindCodeBlock:         "CodeBlock",
	KindHTMLBlock:         "HTMLBlock",
	KindThematicBreak:     "ThematicBreak",
	KindTable:             "Table",
	KindTableRow:          "TableRow",
	KindTableCell:         "TableCell",
	KindFootnote:          "Footnote",
	KindCitation:          "Citation",
	KindFormulaBlock:      "FormulaBlock",
	KindAdmonition:        "Admonition",
	KindText:              "Text",
	KindEmphasis:          "Emphasis",
	KindStrong:            "Strong",
	KindStrike:            "Strike",
	KindInlineCode:        "InlineCode",
	KindLink:              "Link",
	KindImage:             "Image",
	KindReference:         "Reference",
	KindLineBreak:         "LineBreak",
	KindHTMLInline:        "HTMLInline",
	KindComment:           "Comment",
	KindFootnoteReference: "FootnoteReference",
	KindCitationReference: "CitationReference",
	KindFormula:           "Formula",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// IsBlock reports whether k is a block-level kind.
func (k Kind) IsBlock() bool { return k < KindText }

// IsInline reports whether k is an inline kind.
func (k Kind) IsInline() bool { return k >= KindText && k < kindCount }

// IsContainer reports whether nodes of kind k may hold block children.
func (k Kind) IsContainer() bool {
	switch k {
	case KindDocument, KindBlockquote, KindOrderedList, KindUnorderedList,
		KindListItem, KindTaskListItem, KindFootnote, KindCitation, KindAdmonition:
		return true
	}
	return false
}

// IsList reports whether k is an ordered or unordered list.
func (k Kind) IsList() bool { return k == KindOrderedList || k == KindUnorderedList }

// IsItem reports whether k is a list item or task list item.
func (k Kind) IsItem() bool { return k == KindListItem || k == KindTaskListItem }

// Alignment is the horizontal alignment of a table column.
type Alignment uint8

const (
	AlignNone Alignment = iota
	AlignLeft
	AlignRight
	AlignCenter
)

func (a Alignment) String() string {
	switch a {
	case AlignLeft:
		return "left"
	case AlignRight:
		return "right"
	case AlignCenter:
		return "center"
	}
	return "none"
}

// Node is one tree node. Payload fields are shared between kinds; each field
// lists the kinds that use it.
type Node struct {
	Kind     Kind
	Parent   NodeID
	Children []NodeID
	// Line is the 1-based source line a block starts on (0 for inlines).
	Line int

	// Level is the heading level 1-6 (Header).
	Level int
	// Start is the first item number (OrderedList).
	Start int
	// Tight is false when items are separated by blank lines (lists).
	Tight bool
	// Marker is the list marker as written, e.g. "-" or "3." (lists, items).
	Marker string
	// Checked is the task state (TaskListItem).
	Checked bool

	// Literal is the verbatim content: Text, CodeBlock, HTMLBlock, HTMLInline,
	// Comment, InlineCode, Formula and FormulaBlock. For Reference it holds the
	// closing bracket text used when the reference falls back to plain text.
	Literal string
	// Info is the full info string of a fenced CodeBlock.
	Info string
	// Language is the first word of Info (CodeBlock).
	Language string
	// Fenced distinguishes fenced from indented code (CodeBlock).
	Fenced bool

	// URL is the destination (Link, Image, Reference).
	URL string
	// Title is the link title (Link, Image, Reference) or admonition title.
	Title string
	// Alt is the plain-text description (Image).
	Alt string
	// Identifier is the normalized label (Reference, Footnote,
	// FootnoteReference, Citation, CitationReference).
	Identifier string
	// Label is the label as written (Reference, Footnote, FootnoteReference,
	// Citation, CitationReference).
	Label string
	// Name is the admonition kind, e.g. "note" (Admonition).
	Name string
	// Autolink marks links written as bare or angle-bracket URLs (Link).
	Autolink bool

	// Header marks the header row (TableRow).
	Header bool
	// Align is the column alignment (TableCell).
	Align Alignment
	// Hard marks hard line breaks (LineBreak) and display math (Formula).
	Hard bool
	// Image marks a Reference written as an image.
	Image bool
	// Index is the 1-based footnote number (Footnote, FootnoteReference).
	Index int
}

// FirstChild returns the first child or NoNode.
func (n *Node) FirstChild() NodeID {
	if len(n.Children) == 0 {
		return NoNode
	}
	return n.Children[0]
}

// LastChild returns the last child or NoNode.
func (n *Node) LastChild() NodeID {
	if len(n.Children) == 0 {
		return NoNode
	}
	return n.Children[len(n.Children)-1]
}
