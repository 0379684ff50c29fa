package mdast

import (
	"strings"

	"golang.org/x/text/cases"

	"pkt.systems/mdast/ast"
)

// Definition is a link reference definition, "[label]: url 'title'".
type Definition struct {
	Label string
	URL   string
	Title string
	Line  int

	used bool
}

// NormalizeLabel returns the matching key for a link label: Unicode case
// folded, surrounding whitespace trimmed and inner runs of whitespace
// collapsed to one space.
func NormalizeLabel(label string) string {
	fields := strings.FieldsFunc(label, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(fields) == 0 {
		return ""
	}
	return cases.Fold().String(strings.Join(fields, " "))
}

type referenceTable struct {
	defs      map[string]*Definition
	defOrder  []string
	pending   map[string][]ast.NodeID
	waitOrder []string

	footnotes    map[string]ast.NodeID
	footnoteDefs []ast.NodeID
	footnoteRefs []ast.NodeID
	citations    map[string]ast.NodeID

	// reverted maps a reference that goes back to text onto the node that
	// follows its closing bracket, or NoNode. Parents listed in dirty have
	// their children rebuilt once, by settleText.
	reverted map[ast.NodeID]ast.NodeID
	dirty    []ast.NodeID
	isDirty  map[ast.NodeID]bool
}

func newReferenceTable() *referenceTable {
	return &referenceTable{
		defs:      make(map[string]*Definition),
		pending:   make(map[string][]ast.NodeID),
		footnotes: make(map[string]ast.NodeID),
		citations: make(map[string]ast.NodeID),
		reverted:  make(map[ast.NodeID]ast.NodeID),
		isDirty:   make(map[ast.NodeID]bool),
	}
}

// define registers a link reference definition. The first definition of a
// label wins. References that were waiting for it are resolved.
func (p *parser) define(label, url, title string, line int) {
	key := NormalizeLabel(label)
	if key == "" {
		return
	}
	if prev, ok := p.refs.defs[key]; ok {
		p.diags.add(DiagDuplicateDefinition, line, "definition of [%s] ignored, first defined on line %d", label, prev.Line)
		return
	}
	def := &Definition{Label: label, URL: url, Title: title, Line: line}
	p.refs.defs[key] = def
	p.refs.defOrder = append(p.refs.defOrder, key)
	waiting := p.refs.pending[key]
	delete(p.refs.pending, key)
	for _, id := range waiting {
		p.resolveReference(id, def)
	}
}

func (p *parser) lookup(key string) *Definition {
	def, ok := p.refs.defs[key]
	if !ok {
		return nil
	}
	def.used = true
	return def
}

// await parks a Reference node until a definition for key shows up.
func (p *parser) await(key string, id ast.NodeID) {
	if _, ok := p.refs.pending[key]; !ok {
		p.refs.waitOrder = append(p.refs.waitOrder, key)
	}
	p.refs.pending[key] = append(p.refs.pending[key], id)
}

func (p *parser) resolveReference(id ast.NodeID, def *Definition) {
	n := p.tree.Node(id)
	if n.Kind != ast.KindReference {
		return
	}
	if !n.Image && p.linkNearby(id) {
		p.revertReference(id, p.shortcutAfter(id))
		return
	}
	def.used = true
	n.URL = def.URL
	n.Title = def.Title
	if n.Image {
		n.Kind = ast.KindImage
		n.Alt = p.tree.ContentText(id)
	} else {
		n.Kind = ast.KindLink
	}
}

// linkNearby reports whether turning id into a link would nest links.
func (p *parser) linkNearby(id ast.NodeID) bool {
	if p.tree.Ancestor(id, ast.KindLink) != ast.NoNode {
		return true
	}
	return len(p.tree.Find(id, ast.KindLink)) > 0
}

// shortcutAfter handles a full reference "[text][label]" that cannot become
// a link: the "[label]" part is retried as a shortcut reference. It returns
// the link to place after the reverted text, or NoNode.
func (p *parser) shortcutAfter(id ast.NodeID) ast.NodeID {
	n := p.tree.Node(id)
	if n.Parent == ast.NoNode || !strings.HasPrefix(n.Literal, "][") {
		return ast.NoNode
	}
	if p.tree.Ancestor(id, ast.KindLink) != ast.NoNode {
		return ast.NoNode
	}
	label := n.Literal[2 : len(n.Literal)-1]
	def := p.lookup(NormalizeLabel(label))
	if def == nil {
		return ast.NoNode
	}
	link := p.tree.New(ast.KindLink)
	ln := p.tree.Node(link)
	ln.URL, ln.Title = def.URL, def.Title
	p.tree.Append(link, p.tree.NewText(label))
	n.Literal = "]"
	return link
}

// revertReference puts the brackets of an unresolved reference back as text,
// followed by trailer when there is one. Parents are rebuilt by settleText.
func (p *parser) revertReference(id, trailer ast.NodeID) {
	n := p.tree.Node(id)
	if n.Parent == ast.NoNode {
		text := p.bracketText(id) + p.tree.Text(id) + n.Literal
		p.tree.SetChildren(id, nil)
		n.Kind = ast.KindText
		n.Literal = text
		return
	}
	p.refs.reverted[id] = trailer
	p.touch(n.Parent)
}

func (p *parser) replaceWithText(id ast.NodeID, s string) {
	n := p.tree.Node(id)
	p.tree.SetChildren(id, nil)
	n.Kind = ast.KindText
	n.Literal = s
	p.touch(n.Parent)
}

func (p *parser) bracketText(id ast.NodeID) string {
	if p.tree.Node(id).Image {
		return "!["
	}
	return "["
}

// touch queues the nearest parent of id that stays in the tree.
func (p *parser) touch(id ast.NodeID) {
	for id != ast.NoNode {
		if _, ok := p.refs.reverted[id]; !ok {
			break
		}
		id = p.tree.Node(id).Parent
	}
	if id == ast.NoNode || p.refs.isDirty[id] {
		return
	}
	p.refs.isDirty[id] = true
	p.refs.dirty = append(p.refs.dirty, id)
}

// settleText rebuilds every queued parent in one pass: reverted references
// are spread into their text and adjacent text is joined.
func (p *parser) settleText() {
	for _, id := range p.refs.dirty {
		if _, ok := p.refs.reverted[id]; ok {
			continue
		}
		p.tree.SetChildren(id, mergeText(p.tree, p.spread(p.tree.Node(id).Children)))
	}
	p.refs.dirty = p.refs.dirty[:0]
	clear(p.refs.isDirty)
	clear(p.refs.reverted)
}

func (p *parser) spread(ids []ast.NodeID) []ast.NodeID {
	out := make([]ast.NodeID, 0, len(ids))
	for _, id := range ids {
		trailer, ok := p.refs.reverted[id]
		if !ok {
			out = append(out, id)
			continue
		}
		n := p.tree.Node(id)
		kids := n.Children
		p.tree.SetChildren(id, nil)
		out = append(out, p.tree.NewText(p.bracketText(id)))
		out = append(out, p.spread(kids)...)
		out = append(out, p.tree.NewText(n.Literal))
		if trailer != ast.NoNode {
			out = append(out, trailer)
		}
	}
	return out
}

func (p *parser) defineFootnote(id ast.NodeID) {
	n := p.tree.Node(id)
	if _, ok := p.refs.footnotes[n.Identifier]; ok {
		p.diags.add(DiagDuplicateDefinition, n.Line, "footnote [^%s] defined again", n.Label)
		return
	}
	p.refs.footnotes[n.Identifier] = id
	p.refs.footnoteDefs = append(p.refs.footnoteDefs, id)
}

func (p *parser) defineCitation(id ast.NodeID) {
	n := p.tree.Node(id)
	if _, ok := p.refs.citations[n.Identifier]; ok {
		p.diags.add(DiagDuplicateDefinition, n.Line, "citation [@%s] defined again", n.Label)
		return
	}
	p.refs.citations[n.Identifier] = id
}

// finishReferences settles everything that waited for the end of input:
// unresolved references, footnote numbering and unused definitions.
func (p *parser) finishReferences() []ast.NodeID {
	for _, key := range p.refs.waitOrder {
		for _, id := range p.refs.pending[key] {
			n := p.tree.Node(id)
			if n.Kind != ast.KindReference {
				continue
			}
			p.diags.add(DiagUnresolvedReference, p.lineOf(id), "no definition for [%s]", n.Label)
			if !p.cfg.keepUnresolved {
				p.revertReference(id, ast.NoNode)
			}
		}
	}

	var order []ast.NodeID
	index := make(map[string]int)
	for _, ref := range p.refs.footnoteRefs {
		n := p.tree.Node(ref)
		def, ok := p.refs.footnotes[n.Identifier]
		if !ok {
			p.diags.add(DiagUndefinedFootnote, p.lineOf(ref), "footnote [^%s] is not defined", n.Label)
			p.replaceWithText(ref, "[^"+n.Label+"]")
			continue
		}
		i, seen := index[n.Identifier]
		if !seen {
			i = len(index) + 1
			index[n.Identifier] = i
			p.tree.Node(def).Index = i
			order = append(order, def)
		}
		n.Index = i
	}
	p.settleText()

	for _, key := range p.refs.defOrder {
		if def := p.refs.defs[key]; !def.used {
			p.diags.add(DiagUnusedDefinition, def.Line, "definition [%s] is never used", def.Label)
		}
	}
	for _, def := range p.refs.footnoteDefs {
		if n := p.tree.Node(def); n.Index == 0 {
			p.diags.add(DiagUnusedDefinition, n.Line, "footnote [^%s] is never referenced", n.Label)
		}
	}
	return order
}

// lineOf returns the start line of the block holding id.
func (p *parser) lineOf(id ast.NodeID) int {
	for ; id != ast.NoNode; id = p.tree.Node(id).Parent {
		if n := p.tree.Node(id); n.Line > 0 {
			return n.Line
		}
	}
	return 0
}
