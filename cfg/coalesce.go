package cfg

import "github.com/sarchlab/tacopt/tac"

// Coalesce merges a block B into its predecessor A when A can only go to B
// and B can only be entered from A.
type Coalesce struct{}

// Name returns the pass name.
func (Coalesce) Name() string { return "coalesce" }

// Run merges blocks bottom-up until no pair qualifies.
func (Coalesce) Run(g *Graph) bool {
	changed := false

	for {
		merged := false

		blocks := g.Blocks()
		for i := len(blocks) - 1; i >= 0; i-- {
			a := blocks[i]
			if a.removed || len(a.Succs) != 1 {
				continue
			}

			b := g.blocks[a.Succs[0]]
			if b == a || g.IsEntry(b) || len(b.Preds) != 1 {
				continue
			}
			if last := a.Last(); last.Op != tac.OpJmp {
				continue
			}

			merge(g, a, b)
			merged = true
		}

		if !merged {
			return changed
		}
		changed = true
	}
}

// merge appends the body of b to a. Every jump of a leads to b, so the
// trailing jmp and any conditional jumps are dropped.
func merge(g *Graph, a, b *Block) {
	Trace("Coalesced blocks", "proc", g.Proc, "into", a.Label, "from", b.Label)

	instrs := make([]*tac.Instr, 0, len(a.Instrs)+len(b.Instrs))
	for _, inst := range a.Instrs[:len(a.Instrs)-1] {
		if inst.Op.IsCondJump() {
			continue
		}
		instrs = append(instrs, inst)
	}
	instrs = append(instrs, b.Instrs[1:]...)

	a.Instrs = instrs
	g.remove(b)
	g.relink()
}
