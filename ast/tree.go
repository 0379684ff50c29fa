package ast

import (
	"fmt"
	"strings"
)

// Tree is an arena of nodes rooted at a Document.
type Tree struct {
	nodes []*Node
}

// NewTree returns a tree holding only the Document root.
func NewTree() *Tree {
	t := &Tree{nodes: make([]*Node, 0, 64)}
	t.New(KindDocument)
	return t
}

// Root returns the Document node.
func (t *Tree) Root() NodeID { return 0 }

// Len returns the number of nodes allocated, attached or not.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the node for id. Pointers stay valid while the tree grows.
func (t *Tree) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil
	}
	return t.nodes[id]
}

// Kind returns the kind of id.
func (t *Tree) Kind(id NodeID) Kind { return t.nodes[id].Kind }

// New allocates a detached node of the given kind.
func (t *Tree) New(kind Kind) NodeID {
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, &Node{Kind: kind, Parent: NoNode})
	return id
}

// NewText allocates a detached Text node.
func (t *Tree) NewText(s string) NodeID {
	id := t.New(KindText)
	t.nodes[id].Literal = s
	return id
}

// Append attaches child as the last child of parent, detaching it first.
func (t *Tree) Append(parent, child NodeID) {
	t.Detach(child)
	p := t.nodes[parent]
	p.Children = append(p.Children, child)
	t.nodes[child].Parent = parent
}

// SetChildren replaces the children of parent with ids, which must be
// detached or already children of parent.
func (t *Tree) SetChildren(parent NodeID, ids []NodeID) {
	p := t.nodes[parent]
	for _, c := range p.Children {
		t.nodes[c].Parent = NoNode
	}
	for _, c := range ids {
		if cp := t.nodes[c].Parent; cp != NoNode {
			t.removeFrom(cp, c)
		}
		t.nodes[c].Parent = parent
	}
	p.Children = ids
}

// InsertAfter attaches node as the sibling directly after ref.
func (t *Tree) InsertAfter(ref, node NodeID) {
	t.Detach(node)
	parent := t.nodes[ref].Parent
	p := t.nodes[parent]
	i := t.IndexOf(ref)
	p.Children = append(p.Children, NoNode)
	copy(p.Children[i+2:], p.Children[i+1:])
	p.Children[i+1] = node
	t.nodes[node].Parent = parent
}

// InsertBefore attaches node as the sibling directly before ref.
func (t *Tree) InsertBefore(ref, node NodeID) {
	t.Detach(node)
	parent := t.nodes[ref].Parent
	p := t.nodes[parent]
	i := t.IndexOf(ref)
	p.Children = append(p.Children, NoNode)
	copy(p.Children[i+1:], p.Children[i:])
	p.Children[i] = node
	t.nodes[node].Parent = parent
}

// Replace puts node at the position of old, which becomes detached.
func (t *Tree) Replace(old, node NodeID) {
	if old == node {
		return
	}
	t.Detach(node)
	parent := t.nodes[old].Parent
	if parent == NoNode {
		return
	}
	i := t.IndexOf(old)
	t.nodes[parent].Children[i] = node
	t.nodes[node].Parent = parent
	t.nodes[old].Parent = NoNode
}

// Unwrap replaces id by its children in its parent.
func (t *Tree) Unwrap(id NodeID) {
	n := t.nodes[id]
	parent := n.Parent
	if parent == NoNode {
		return
	}
	i := t.IndexOf(id)
	p := t.nodes[parent]
	kids := n.Children
	n.Children = nil
	out := make([]NodeID, 0, len(p.Children)-1+len(kids))
	out = append(out, p.Children[:i]...)
	out = append(out, kids...)
	out = append(out, p.Children[i+1:]...)
	p.Children = out
	for _, c := range kids {
		t.nodes[c].Parent = parent
	}
	n.Parent = NoNode
}

// Detach removes id from its parent. The node stays in the arena.
func (t *Tree) Detach(id NodeID) {
	parent := t.nodes[id].Parent
	if parent == NoNode {
		return
	}
	t.removeFrom(parent, id)
	t.nodes[id].Parent = NoNode
}

func (t *Tree) removeFrom(parent, id NodeID) {
	p := t.nodes[parent]
	for i, c := range p.Children {
		if c == id {
			p.Children = append(p.Children[:i:i], p.Children[i+1:]...)
			return
		}
	}
}

// IndexOf returns the position of id among its siblings, or -1.
func (t *Tree) IndexOf(id NodeID) int {
	parent := t.nodes[id].Parent
	if parent == NoNode {
		return -1
	}
	for i, c := range t.nodes[parent].Children {
		if c == id {
			return i
		}
	}
	return -1
}

// Next returns the following sibling of id, or NoNode.
func (t *Tree) Next(id NodeID) NodeID {
	parent := t.nodes[id].Parent
	if parent == NoNode {
		return NoNode
	}
	kids := t.nodes[parent].Children
	if i := t.IndexOf(id); i >= 0 && i+1 < len(kids) {
		return kids[i+1]
	}
	return NoNode
}

// Ancestor returns the nearest ancestor of id with the given kind, or NoNode.
func (t *Tree) Ancestor(id NodeID, kinds ...Kind) NodeID {
	for p := t.nodes[id].Parent; p != NoNode; p = t.nodes[p].Parent {
		for _, k := range kinds {
			if t.nodes[p].Kind == k {
				return p
			}
		}
	}
	return NoNode
}

// Check verifies the tree invariants for every node reachable from the root:
// each child points back at its parent and no node is reachable twice.
func (t *Tree) Check() error {
	seen := make(map[NodeID]bool, len(t.nodes))
	var visit func(id NodeID) error
	visit = func(id NodeID) error {
		if seen[id] {
			return fmt.Errorf("ast: node %d reachable twice", id)
		}
		seen[id] = true
		for _, c := range t.nodes[id].Children {
			if t.nodes[c].Parent != id {
				return fmt.Errorf("ast: node %d has parent %d, want %d", c, t.nodes[c].Parent, id)
			}
			if err := visit(c); err != nil {
				return err
			}
		}
		return nil
	}
	if t.nodes[0].Parent != NoNode {
		return fmt.Errorf("ast: root has parent %d", t.nodes[0].Parent)
	}
	return visit(t.Root())
}

// Text returns the plain text beneath id: literals of text-like nodes with
// soft breaks as spaces and hard breaks as newlines.
func (t *Tree) Text(id NodeID) string {
	var b strings.Builder
	t.Walk(id, func(n NodeID, entering bool) WalkStatus {
		if !entering {
			return WalkContinue
		}
		node := t.nodes[n]
		switch node.Kind {
		case KindText, KindInlineCode, KindFormula, KindCodeBlock, KindFormulaBlock:
			b.WriteString(node.Literal)
		case KindLineBreak:
			if node.Hard {
				b.WriteByte('\n')
			} else {
				b.WriteByte(' ')
			}
		case KindImage:
			b.WriteString(node.Alt)
			return WalkSkipChildren
		}
		return WalkContinue
	})
	return b.String()
}

// ContentText is Text over the children of id, so an image yields the text
// of its description rather than its Alt.
func (t *Tree) ContentText(id NodeID) string {
	var b strings.Builder
	for _, c := range t.nodes[id].Children {
		b.WriteString(t.Text(c))
	}
	return b.String()
}
