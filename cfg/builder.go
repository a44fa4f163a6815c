package cfg

import (
	"github.com/sarchlab/tacopt/tac"
)

// Build partitions the body of proc into basic blocks. The body must end
// with ret, or with jmp when the procedure never returns. proc is not
// modified.
//
// A label is inserted at the start if the body does not begin with one, and
// after every jump or ret that is not already followed by a label. Fresh
// labels are numbered above every label already used by the procedure.
// Blocks that would fall through get an explicit jmp to the next block.
func Build(proc *tac.Proc) (_ *Graph, err error) {
	defer recoverInvariant(&err)

	g := &Graph{Proc: proc.Name, index: make(map[tac.Label]BlockID)}

	body := proc.Body
	if len(body) == 0 || !body[len(body)-1].Op.IsTerminator() {
		var last *tac.Instr
		if len(body) > 0 {
			last = body[len(body)-1]
		}
		g.fail(nil, last, "body does not end in jmp or ret")
	}

	labeled := labelBoundaries(body, tac.MaxLabel(body, proc.Labels)+1)

	var cur *Block
	for _, inst := range labeled {
		if inst.Op == tac.OpLabel {
			if cur != nil {
				g.closeBlock(cur, inst)
			}
			l, _ := inst.Target()
			cur = &Block{Label: l}
			g.add(cur)
		}
		cur.Instrs = append(cur.Instrs, inst)
	}
	g.closeBlock(cur, nil)

	g.check()

	Trace("Built CFG", "proc", g.Proc, "blocks", g.Len())
	return g, nil
}

// labelBoundaries copies body, inserting the entry label and the labels
// that follow jumps and returns. Labels are allocated from next upwards.
func labelBoundaries(body []*tac.Instr, next tac.Label) []*tac.Instr {
	out := make([]*tac.Instr, 0, len(body)+len(body)/2+1)
	if body[0].Op != tac.OpLabel {
		out = append(out, tac.NewLabel(tac.EntryLabel))
	}

	for i, inst := range body {
		out = append(out, inst.Clone())

		endsRun := inst.Op.IsJump() || inst.Op == tac.OpRet
		if endsRun && i+1 < len(body) && body[i+1].Op != tac.OpLabel {
			out = append(out, tac.NewLabel(next))
			next++
		}
	}

	return out
}

// closeBlock gives b an explicit jump to the label that follows it when b
// does not already end in a terminator.
func (g *Graph) closeBlock(b *Block, following *tac.Instr) {
	if b.Last().Op.IsTerminator() {
		return
	}
	if following == nil {
		g.fail(b, b.Last(), "block falls off the end of the procedure")
	}

	l, _ := following.Target()
	b.Instrs = append(b.Instrs, tac.Jmp(l))
}
