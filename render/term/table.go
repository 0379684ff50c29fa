package term

import (
	"strings"

	"pkt.systems/mdast/ast"
)

const minColumnWidth = 3

// table draws rows with │ separators and a rule under the header. Cells
// never wrap; when the table is wider than width the widest columns shrink
// and overflowing cells end with an ellipsis.
func (r *renderer) table(n *ast.Node, width int) []string {
	var rows [][][]piece
	var aligns []ast.Alignment
	headerRows := 0
	for _, row := range n.Children {
		rn := r.tree.Node(row)
		if rn.Header {
			headerRows++
		}
		var cells [][]piece
		for i, cell := range rn.Children {
			base := r.styles.Text
			if rn.Header {
				base = r.styles.TableHeader
			}
			cells = append(cells, r.inlines(cell, base))
			if i >= len(aligns) {
				aligns = append(aligns, r.tree.Node(cell).Align)
			}
		}
		rows = append(rows, cells)
	}
	widths := make([]int, len(aligns))
	for _, cells := range rows {
		for i, cell := range cells {
			widths[i] = max(widths[i], piecesWidth(cell), 1)
		}
	}
	shrinkColumns(widths, width-3*len(widths)-1)

	border := r.styles.TableBorder.apply("│")
	var out []string
	for ri, cells := range rows {
		var b strings.Builder
		b.WriteString(border)
		for i := range widths {
			var cell []piece
			if i < len(cells) {
				cell = truncatePieces(cells[i], widths[i])
			}
			b.WriteByte(' ')
			b.WriteString(pad(joinPieces(cell), piecesWidth(cell), widths[i], aligns[i]))
			b.WriteByte(' ')
			b.WriteString(border)
		}
		out = append(out, b.String())
		if ri == headerRows-1 {
			out = append(out, r.rule(widths))
		}
	}
	return out
}

func (r *renderer) rule(widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat("─", w+2)
	}
	return r.styles.TableBorder.apply("├" + strings.Join(parts, "┼") + "┤")
}

// shrinkColumns narrows the widest column until the total fits budget or
// every column is at the minimum.
func shrinkColumns(widths []int, budget int) {
	total := 0
	for _, w := range widths {
		total += w
	}
	for total > budget {
		widest := 0
		for i, w := range widths {
			if w > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= minColumnWidth {
			return
		}
		widths[widest]--
		total--
	}
}

func pad(text string, textWidth, width int, align ast.Alignment) string {
	gap := width - textWidth
	if gap <= 0 {
		return text
	}
	switch align {
	case ast.AlignRight:
		return strings.Repeat(" ", gap) + text
	case ast.AlignCenter:
		left := gap / 2
		return strings.Repeat(" ", left) + text + strings.Repeat(" ", gap-left)
	}
	return text + strings.Repeat(" ", gap)
}
