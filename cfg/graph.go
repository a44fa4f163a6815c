// Package cfg builds the control-flow graph of a procedure, simplifies it,
// and serializes it back into linear three-address code.
//
// Blocks live in an arena indexed by BlockID. Removing a block only marks
// it, so IDs held by a pass stay valid while the graph is being rewritten.
// The first block is the entry. It is never removed and behaves as if the
// procedure start were an extra predecessor.
package cfg

import (
	"fmt"

	"github.com/sarchlab/tacopt/tac"
)

// BlockID is the stable index of a block in its graph.
type BlockID int

// Block is a basic block. Instrs[0] is its label and the last instruction is
// a jmp or a ret.
type Block struct {
	ID     BlockID
	Label  tac.Label
	Instrs []*tac.Instr

	Succs []BlockID
	Preds []BlockID

	removed bool
}

// Removed reports whether the block has been deleted from its graph.
func (b *Block) Removed() bool {
	return b.removed
}

// Last returns the terminator of the block.
func (b *Block) Last() *tac.Instr {
	return b.Instrs[len(b.Instrs)-1]
}

// jumpsTo counts the jumps of b that target l.
func (b *Block) jumpsTo(l tac.Label) int {
	n := 0
	for _, inst := range b.Instrs {
		if !inst.Op.IsJump() {
			continue
		}
		if t, _ := inst.Target(); t == l {
			n++
		}
	}
	return n
}

// InvariantError reports a graph that violates the block invariants. It
// always indicates a defect in an earlier stage.
type InvariantError struct {
	Proc  string
	Block tac.Label
	Instr *tac.Instr
	Msg   string
}

func (e *InvariantError) Error() string {
	if e.Instr != nil {
		return fmt.Sprintf("cfg @%s, block %s: %s at %q", e.Proc, e.Block, e.Msg, e.Instr)
	}
	return fmt.Sprintf("cfg @%s, block %s: %s", e.Proc, e.Block, e.Msg)
}

// recoverInvariant converts an InvariantError panic into an error.
func recoverInvariant(err *error) {
	if r := recover(); r != nil {
		ie, ok := r.(*InvariantError)
		if !ok {
			panic(r)
		}
		*err = ie
	}
}

// Graph is the control-flow graph of one procedure.
type Graph struct {
	Proc string

	blocks []*Block
	index  map[tac.Label]BlockID
}

func (g *Graph) fail(b *Block, inst *tac.Instr, format string, args ...any) {
	e := &InvariantError{Proc: g.Proc, Instr: inst, Msg: fmt.Sprintf(format, args...)}
	if b != nil {
		e.Block = b.Label
	}
	panic(e)
}

// Entry returns the entry block.
func (g *Graph) Entry() *Block {
	return g.blocks[0]
}

// IsEntry reports whether b is the entry block.
func (g *Graph) IsEntry(b *Block) bool {
	return b.ID == 0
}

// Blocks returns the live blocks in arena order.
func (g *Graph) Blocks() []*Block {
	live := make([]*Block, 0, len(g.blocks))
	for _, b := range g.blocks {
		if !b.removed {
			live = append(live, b)
		}
	}
	return live
}

// Len returns the number of live blocks.
func (g *Graph) Len() int {
	n := 0
	for _, b := range g.blocks {
		if !b.removed {
			n++
		}
	}
	return n
}

// Block returns the live block labelled l.
func (g *Graph) Block(l tac.Label) (*Block, bool) {
	id, ok := g.index[l]
	if !ok {
		return nil, false
	}
	return g.blocks[id], true
}

// At returns the block with the given ID, live or not.
func (g *Graph) At(id BlockID) *Block {
	return g.blocks[id]
}

func (g *Graph) add(b *Block) {
	if _, dup := g.index[b.Label]; dup {
		g.fail(b, b.Instrs[0], "duplicate label")
	}
	b.ID = BlockID(len(g.blocks))
	g.blocks = append(g.blocks, b)
	g.index[b.Label] = b.ID
}

func (g *Graph) remove(b *Block) {
	if g.IsEntry(b) {
		g.fail(b, nil, "removal of the entry block")
	}
	b.removed = true
	delete(g.index, b.Label)
}

// relink recomputes every successor and predecessor list from the jumps in
// the live blocks.
func (g *Graph) relink() {
	live := g.Blocks()
	for _, b := range g.blocks {
		b.Succs = nil
		b.Preds = nil
	}

	for _, b := range live {
		for _, inst := range b.Instrs {
			if !inst.Op.IsJump() {
				continue
			}
			l, _ := inst.Target()
			id, ok := g.index[l]
			if !ok {
				g.fail(b, inst, "jump to undefined label %s", l)
			}
			if !containsID(b.Succs, id) {
				b.Succs = append(b.Succs, id)
			}
		}
	}

	for _, b := range live {
		for _, s := range b.Succs {
			g.blocks[s].Preds = append(g.blocks[s].Preds, b.ID)
		}
	}
}

func containsID(ids []BlockID, id BlockID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// Check verifies the block invariants: every live block starts with its
// label, ends with exactly one jmp or ret, contains only well-formed
// instructions, and every jump names a live block.
func (g *Graph) Check() (err error) {
	defer recoverInvariant(&err)
	g.check()
	return nil
}

func (g *Graph) check() {
	if len(g.blocks) == 0 || g.Entry().removed {
		g.fail(nil, nil, "graph has no entry block")
	}

	owner := make(map[*tac.Instr]BlockID)
	for _, b := range g.Blocks() {
		if len(b.Instrs) < 2 {
			g.fail(b, nil, "block has no terminator")
		}

		first := b.Instrs[0]
		if l, ok := first.Target(); first.Op != tac.OpLabel || !ok || l != b.Label {
			g.fail(b, first, "block does not start with its label")
		}
		if id, ok := g.index[b.Label]; !ok || id != b.ID {
			g.fail(b, first, "block label is not indexed")
		}

		for k, inst := range b.Instrs {
			if err := tac.Validate(inst); err != nil {
				g.fail(b, inst, "%v", err)
			}
			if prev, dup := owner[inst]; dup {
				g.fail(b, inst, "instruction also belongs to block %d", prev)
			}
			owner[inst] = b.ID

			switch {
			case k > 0 && inst.Op == tac.OpLabel:
				g.fail(b, inst, "label inside a block")
			case k < len(b.Instrs)-1 && inst.Op.IsTerminator():
				g.fail(b, inst, "terminator before the end of the block")
			case k == len(b.Instrs)-1 && !inst.Op.IsTerminator():
				g.fail(b, inst, "block does not end in jmp or ret")
			}
		}
	}

	g.relink()
}
