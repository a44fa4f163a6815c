package cfg

import "github.com/sarchlab/tacopt/tac"

// Thread bypasses trampolines, blocks that only jump elsewhere, by pointing
// their single predecessor at the final destination. It also drops a
// conditional jump that is immediately followed by a jmp to the same label.
type Thread struct{}

// Name returns the pass name.
func (Thread) Name() string { return "thread" }

// Run threads jumps until nothing changes.
func (Thread) Run(g *Graph) bool {
	changed := false

	for {
		progress := false
		for _, b := range g.Blocks() {
			if dropRedundantCondJump(g, b) {
				progress = true
			}

			target, ok := trampolineTarget(g, b)
			if !ok || len(b.Preds) != 1 {
				continue
			}

			pred := g.blocks[b.Preds[0]]
			for _, inst := range pred.Instrs {
				if !inst.Op.IsJump() {
					continue
				}
				if l, _ := inst.Target(); l == b.Label {
					inst.SetTarget(target)
				}
			}
			Trace("Threaded jump", "proc", g.Proc, "from", pred.Label, "via", b.Label, "to", target)

			g.relink()
			progress = true
		}

		if !progress {
			return changed
		}
		changed = true
	}
}

// trampolineTarget returns the destination of b if b is a trampoline other
// than the entry and does not jump to itself.
func trampolineTarget(g *Graph, b *Block) (tac.Label, bool) {
	if g.IsEntry(b) || len(b.Instrs) != 2 || b.Last().Op != tac.OpJmp {
		return 0, false
	}

	target, _ := b.Last().Target()
	if target == b.Label {
		return 0, false
	}
	return target, true
}

func dropRedundantCondJump(g *Graph, b *Block) bool {
	n := len(b.Instrs)
	if n < 3 || b.Last().Op != tac.OpJmp || !b.Instrs[n-2].Op.IsCondJump() {
		return false
	}

	jcc, _ := b.Instrs[n-2].Target()
	jmp, _ := b.Last().Target()
	if jcc != jmp {
		return false
	}

	b.Instrs = append(b.Instrs[:n-2], b.Last())
	g.relink()
	return true
}
