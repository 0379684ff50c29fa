package html

import (
	"strconv"

	"pkt.systems/mdast/ast"
)

func (r *renderer) footnoteRef(n *ast.Node) {
	num := strconv.Itoa(n.Index)
	r.fnRefs[n.Index]++
	id := "fnref-" + num
	if seen := r.fnRefs[n.Index]; seen > 1 {
		id += "-" + strconv.Itoa(seen)
	}
	r.write(`<sup class="footnote-ref"><a href="#fn-` + num + `" id="` + id + `">` + num + `</a></sup>`)
}

// footnoteSection lists referenced footnotes in numbering order, each with a
// link back to its first reference.
func (r *renderer) footnoteSection() {
	if len(r.doc.Footnotes) == 0 {
		return
	}
	r.cr()
	r.write("<section class=\"footnotes\">\n<ol>\n")
	for _, def := range r.doc.Footnotes {
		n := r.tree.Node(def)
		r.write(`<li id="fn-` + strconv.Itoa(n.Index) + "\">\n")
		r.backrefIndex = n.Index
		r.backrefTarget = ast.NoNode
		if last := n.LastChild(); last != ast.NoNode && r.tree.Kind(last) == ast.KindParagraph {
			r.backrefTarget = last
		}
		r.children(def)
		if r.backrefTarget == ast.NoNode {
			r.cr()
			r.backref()
			r.write("\n")
		}
		r.cr()
		r.write("</li>\n")
	}
	r.write("</ol>\n</section>\n")
}

func (r *renderer) backref() {
	r.write(` <a href="#fnref-` + strconv.Itoa(r.backrefIndex) + `" class="footnote-backref">↩</a>`)
}
