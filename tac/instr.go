// Package tac defines the three-address code that flows between the emitter,
// the CFG optimizer and the machine-code backend.
//
// A Program is a list of global variables and procedures. Each procedure
// owns its temporaries and labels; the handles are only meaningful inside
// the procedure that issued them.
//
//	tac.Program
//	  ├── GlobalVar (zero or more)
//	  └── Proc (zero or more)
//	      ├── Params (ordered temporaries)
//	      └── Body (ordered instructions)
//	          ├── Op     (closed Opcode enumeration)
//	          ├── Args   (Int, Temp, Label, Global, ProcRef)
//	          └── Result (Temp or Global, nil if the opcode produces nothing)
package tac

import (
	"fmt"
	"sort"
)

// Instr is a single TAC instruction.
type Instr struct {
	Op     Opcode
	Args   []Operand
	Result Operand
}

// GlobalVar is a global integer variable with its initial value.
type GlobalVar struct {
	Name string
	Init int64
}

// Proc is the TAC of one procedure.
type Proc struct {
	Name   string
	Params []Temp
	Body   []*Instr
	Temps  []Temp
	Labels []Label
}

// Program is a whole compilation unit.
type Program struct {
	Globals []*GlobalVar
	Procs   []*Proc
}

// Proc returns the procedure with the given name.
func (p *Program) Proc(name string) (*Proc, bool) {
	for _, proc := range p.Procs {
		if proc.Name == name {
			return proc, true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the program.
func (p *Program) Clone() *Program {
	c := &Program{}
	for _, g := range p.Globals {
		gc := *g
		c.Globals = append(c.Globals, &gc)
	}
	for _, proc := range p.Procs {
		c.Procs = append(c.Procs, proc.Clone())
	}
	return c
}

// Clone returns a deep copy of the procedure.
func (p *Proc) Clone() *Proc {
	return &Proc{
		Name:   p.Name,
		Params: append([]Temp(nil), p.Params...),
		Body:   CloneBody(p.Body),
		Temps:  append([]Temp(nil), p.Temps...),
		Labels: append([]Label(nil), p.Labels...),
	}
}

// CloneBody deep-copies an instruction list.
func CloneBody(body []*Instr) []*Instr {
	out := make([]*Instr, len(body))
	for i, inst := range body {
		out[i] = inst.Clone()
	}
	return out
}

// Clone returns a copy of the instruction that shares no slices with it.
func (i *Instr) Clone() *Instr {
	return &Instr{
		Op:     i.Op,
		Args:   append([]Operand(nil), i.Args...),
		Result: i.Result,
	}
}

// Target returns the label a jump or label instruction refers to.
func (i *Instr) Target() (Label, bool) {
	if len(i.Args) == 0 {
		return 0, false
	}

	switch {
	case i.Op == OpLabel, i.Op == OpJmp:
		l, ok := i.Args[0].(Label)
		return l, ok
	case i.Op.IsCondJump() && len(i.Args) == 2:
		l, ok := i.Args[1].(Label)
		return l, ok
	}

	return 0, false
}

// SetTarget rewrites the destination of a jump.
func (i *Instr) SetTarget(l Label) {
	switch {
	case i.Op == OpJmp:
		i.Args[0] = l
	case i.Op.IsCondJump():
		i.Args[1] = l
	default:
		panic(fmt.Sprintf("SetTarget on non-jump %s", i))
	}
}

// Tested returns the operand compared against zero by a conditional jump.
func (i *Instr) Tested() Operand {
	if !i.Op.IsCondJump() {
		return nil
	}
	return i.Args[0]
}

// Writes reports whether the instruction stores into o.
func (i *Instr) Writes(o Operand) bool {
	return i.Result != nil && i.Result == o
}

// NewLabel creates a label instruction.
func NewLabel(l Label) *Instr {
	return &Instr{Op: OpLabel, Args: []Operand{l}}
}

// Jmp creates an unconditional jump.
func Jmp(l Label) *Instr {
	return &Instr{Op: OpJmp, Args: []Operand{l}}
}

// CondJmp creates a conditional jump on v.
func CondJmp(op Opcode, v Operand, l Label) *Instr {
	return &Instr{Op: op, Args: []Operand{v, l}}
}

// Const creates `dst = const v`.
func Const(dst Operand, v int64) *Instr {
	return &Instr{Op: OpConst, Args: []Operand{Int(v)}, Result: dst}
}

// Copy creates `dst = copy src`.
func Copy(dst, src Operand) *Instr {
	return &Instr{Op: OpCopy, Args: []Operand{src}, Result: dst}
}

// Binary creates `dst = op a, b`.
func Binary(op Opcode, dst, a, b Operand) *Instr {
	return &Instr{Op: op, Args: []Operand{a, b}, Result: dst}
}

// Unary creates `dst = op a`.
func Unary(op Opcode, dst, a Operand) *Instr {
	return &Instr{Op: op, Args: []Operand{a}, Result: dst}
}

// Param creates the pseudo-instruction passing argument number index.
func Param(index int, v Operand) *Instr {
	return &Instr{Op: OpParam, Args: []Operand{Int(index), v}}
}

// Call creates a call with n arguments. dst is nil for void callees.
func Call(dst Operand, proc string, n int) *Instr {
	return &Instr{Op: OpCall, Args: []Operand{ProcRef(proc), Int(n)}, Result: dst}
}

// Ret creates a return, with or without a value.
func Ret(v Operand) *Instr {
	if v == nil {
		return &Instr{Op: OpRet}
	}
	return &Instr{Op: OpRet, Args: []Operand{v}}
}

// Print creates a print instruction.
func Print(v Operand) *Instr {
	return &Instr{Op: OpPrint, Args: []Operand{v}}
}

// LabelsOf returns the labels defined in body, in ascending order.
func LabelsOf(body []*Instr) []Label {
	var labels []Label
	for _, inst := range body {
		if inst.Op == OpLabel {
			if l, ok := inst.Target(); ok {
				labels = append(labels, l)
			}
		}
	}
	sort.Slice(labels, func(a, b int) bool { return labels[a] < labels[b] })
	return labels
}

// MaxLabel returns the largest label index referenced in body or listed in
// extra, or -1 when there is none.
func MaxLabel(body []*Instr, extra []Label) Label {
	max := Label(-1)
	for _, l := range extra {
		if l > max {
			max = l
		}
	}
	for _, inst := range body {
		if l, ok := inst.Target(); ok && l > max {
			max = l
		}
	}
	return max
}

// UsedTemps returns the registered temporaries that are parameters or
// appear in the body, in registration order.
func (p *Proc) UsedTemps() []Temp {
	used := make(map[Temp]bool, len(p.Temps))
	for _, t := range p.Params {
		used[t] = true
	}
	for _, inst := range p.Body {
		for _, a := range inst.Args {
			if t, ok := a.(Temp); ok {
				used[t] = true
			}
		}
		if t, ok := inst.Result.(Temp); ok {
			used[t] = true
		}
	}

	out := make([]Temp, 0, len(p.Temps))
	for _, t := range p.Temps {
		if used[t] {
			out = append(out, t)
		}
	}
	return out
}
