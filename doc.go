// Package mdast parses Markdown into a typed syntax tree.
//
// The parser covers CommonMark plus the common extensions: GFM tables,
// strikethrough, task lists and autolinks, footnotes, citations, math and
// admonitions. Each extension can be switched off with WithoutExtensions.
// Parsing never fails on malformed Markdown; anything that does not form a
// construct is kept as text and problems worth knowing about are reported
// as Diagnostics on the Document.
//
// Source is tokenized first (package token), then split into lines and fed
// through a block engine that keeps a stack of open containers. Inline
// content of each leaf block is resolved when the leaf closes, so link
// references that are defined later in the document are filled in once the
// definition is seen.
//
// Example:
//
//	doc := mdast.ParseString("# Hello\n\nSee [the docs][docs].\n\n[docs]: https://example.com\n")
//	for _, id := range doc.Tree.Find(doc.Tree.Root(), ast.KindLink) {
//		fmt.Println(doc.Tree.Node(id).URL)
//	}
//
// The tree can be turned into HTML with render/html or into ANSI for a
// terminal with render/term.
package mdast
