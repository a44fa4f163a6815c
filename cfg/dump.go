package cfg

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Dump writes the live blocks with their edges and instructions as a table.
func (g *Graph) Dump(w io.Writer) {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("CFG @%s (%d blocks)", g.Proc, g.Len()))
	t.AppendHeader(table.Row{"ID", "Block", "Preds", "Succs", "Instructions"})

	for _, b := range g.Blocks() {
		instrs := make([]string, 0, len(b.Instrs))
		for _, inst := range b.Instrs {
			instrs = append(instrs, inst.String())
		}
		t.AppendRow(table.Row{
			b.ID,
			b.Label.String(),
			g.labelList(b.Preds),
			g.labelList(b.Succs),
			strings.Join(instrs, "\n"),
		})
		t.AppendSeparator()
	}

	fmt.Fprintln(w, t.Render())
}

func (g *Graph) labelList(ids []BlockID) string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, g.blocks[id].Label.String())
	}
	return strings.Join(names, " ")
}
