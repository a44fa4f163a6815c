package cfg

import "github.com/sarchlab/tacopt/tac"

// Serialize lays the live blocks out as one instruction list, starting at
// the entry. A block ending in `jmp X` is followed by X when X has not been
// placed yet, and the jmp is dropped. Otherwise the next block is the first
// unplaced one in arena order. Every live block is placed exactly once.
func (g *Graph) Serialize() []*tac.Instr {
	order := g.Blocks()
	placed := make([]bool, len(g.blocks))

	nextUnplaced := func() *Block {
		for _, b := range order {
			if !placed[b.ID] {
				return b
			}
		}
		return nil
	}

	var out []*tac.Instr
	for b := g.Entry(); b != nil; {
		placed[b.ID] = true

		var follow *Block
		if last := b.Last(); last.Op == tac.OpJmp {
			l, _ := last.Target()
			if t, ok := g.Block(l); ok && !placed[t.ID] {
				follow = t
			}
		}

		if follow != nil {
			out = append(out, tac.CloneBody(b.Instrs[:len(b.Instrs)-1])...)
		} else {
			out = append(out, tac.CloneBody(b.Instrs)...)
			follow = nextUnplaced()
		}
		b = follow
	}

	return out
}
