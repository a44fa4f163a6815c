package cfg

import (
	"fmt"

	"github.com/sarchlab/tacopt/tac"
)

// signs is a set of sign classes of the tested value.
type signs uint8

const (
	negative signs = 1 << iota
	zero
	positive
)

// takenOn returns the sign classes of the tested value for which op jumps.
func takenOn(op tac.Opcode) signs {
	switch op {
	case tac.OpJz:
		return zero
	case tac.OpJnz:
		return negative | positive
	case tac.OpJl:
		return negative
	case tac.OpJle:
		return negative | zero
	case tac.OpJnl:
		return zero | positive
	case tac.OpJnle:
		return positive
	}

	panic(fmt.Sprintf("%s is not a conditional jump", op))
}

// Implies reports whether b is taken whenever a is taken on the same value.
func Implies(a, b tac.Opcode) bool {
	return takenOn(a)&^takenOn(b) == 0
}

// Excludes reports whether b is never taken when a is taken on the same
// value.
func Excludes(a, b tac.Opcode) bool {
	return takenOn(a)&takenOn(b) == 0
}

// CondJump resolves conditional jumps whose outcome is fixed by the jump
// that led into their block. When a jump `jcc t, L` is the only way into L,
// any later test of t in L that runs before t is written again is either
// always taken or never taken.
type CondJump struct{}

// Name returns the pass name.
func (CondJump) Name() string { return "condjump" }

// edge is a way out of a block on which cc holds for tested.
type edge struct {
	cc     tac.Opcode
	tested tac.Temp
	to     tac.Label
}

// Run simplifies the conditional jumps that can be decided statically.
func (CondJump) Run(g *Graph) bool {
	changed := false

	for _, a := range g.Blocks() {
		if a.removed {
			continue
		}
		for _, e := range outEdges(a) {
			if simplifyAlong(g, a, e) {
				g.relink()
				changed = true
				break
			}
		}
	}

	return changed
}

// outEdges lists the edges of a that carry a known condition: the taken
// edge of every conditional jump, and the fall-through edge of a final
// `jcc t, L1; jmp L2` with L1 != L2, on which the negated condition holds.
func outEdges(a *Block) []edge {
	var edges []edge
	for _, inst := range a.Instrs {
		if !inst.Op.IsCondJump() {
			continue
		}
		t, ok := inst.Tested().(tac.Temp)
		if !ok {
			continue
		}
		to, _ := inst.Target()
		edges = append(edges, edge{cc: inst.Op, tested: t, to: to})
	}

	n := len(a.Instrs)
	if n >= 3 && a.Last().Op == tac.OpJmp && a.Instrs[n-2].Op.IsCondJump() {
		jcc := a.Instrs[n-2]
		taken, _ := jcc.Target()
		fall, _ := a.Last().Target()
		if t, ok := jcc.Tested().(tac.Temp); ok && taken != fall {
			edges = append(edges, edge{cc: jcc.Op.Negate(), tested: t, to: fall})
		}
	}

	return edges
}

func simplifyAlong(g *Graph, a *Block, e edge) bool {
	b, ok := g.Block(e.to)
	if !ok || g.IsEntry(b) {
		return false
	}
	if len(b.Preds) != 1 || b.Preds[0] != a.ID || a.jumpsTo(b.Label) != 1 {
		return false
	}

	changed := false
	for k := 1; k < len(b.Instrs); k++ {
		inst := b.Instrs[k]

		if inst.Op.IsCondJump() && inst.Tested() == tac.Operand(e.tested) {
			switch {
			case Implies(e.cc, inst.Op):
				to, _ := inst.Target()
				Trace("Resolved conditional jump as taken",
					"proc", g.Proc, "block", b.Label, "instr", inst.String(), "implied_by", e.cc.String())
				b.Instrs = append(b.Instrs[:k:k], tac.Jmp(to))
				return true

			case Excludes(e.cc, inst.Op):
				Trace("Resolved conditional jump as not taken",
					"proc", g.Proc, "block", b.Label, "instr", inst.String(), "excluded_by", e.cc.String())
				b.Instrs = append(b.Instrs[:k], b.Instrs[k+1:]...)
				k--
				changed = true
				continue
			}
		}

		if inst.Writes(e.tested) {
			break
		}
	}

	return changed
}
