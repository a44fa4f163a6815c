package tac

import "fmt"

// Opcode is the operation performed by a TAC instruction.
type Opcode int

// The full TAC instruction set.
const (
	OpConst Opcode = iota
	OpCopy

	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr

	OpNeg
	OpNot

	OpLabel
	OpJmp

	OpJz
	OpJnz
	OpJl
	OpJle
	OpJnl
	OpJnle

	OpParam
	OpCall
	OpRet
	OpPrint

	numOpcodes
)

var opcodeNames = [...]string{
	OpConst: "const",
	OpCopy:  "copy",
	OpAdd:   "add",
	OpSub:   "sub",
	OpMul:   "mul",
	OpDiv:   "div",
	OpMod:   "mod",
	OpAnd:   "and",
	OpOr:    "or",
	OpXor:   "xor",
	OpShl:   "shl",
	OpShr:   "shr",
	OpNeg:   "neg",
	OpNot:   "not",
	OpLabel: "label",
	OpJmp:   "jmp",
	OpJz:    "jz",
	OpJnz:   "jnz",
	OpJl:    "jl",
	OpJle:   "jle",
	OpJnl:   "jnl",
	OpJnle:  "jnle",
	OpParam: "param",
	OpCall:  "call",
	OpRet:   "ret",
	OpPrint: "print",
}

var opcodesByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, name := range opcodeNames {
		m[name] = Opcode(op)
	}
	return m
}()

// CondJumps lists the conditional jump opcodes.
var CondJumps = []Opcode{OpJz, OpJnz, OpJl, OpJle, OpJnl, OpJnle}

func (op Opcode) String() string {
	if op < 0 || op >= numOpcodes {
		return fmt.Sprintf("opcode(%d)", int(op))
	}
	return opcodeNames[op]
}

// ParseOpcode returns the opcode with the given wire name.
func ParseOpcode(name string) (Opcode, error) {
	op, ok := opcodesByName[name]
	if !ok {
		return 0, fmt.Errorf("unknown opcode %q", name)
	}
	return op, nil
}

// IsBinary reports whether op takes two value operands and produces a result.
func (op Opcode) IsBinary() bool {
	return op >= OpAdd && op <= OpShr
}

// IsUnary reports whether op takes one value operand and produces a result.
func (op Opcode) IsUnary() bool {
	return op == OpNeg || op == OpNot
}

// IsCondJump reports whether op is one of the jcc family.
func (op Opcode) IsCondJump() bool {
	return op >= OpJz && op <= OpJnle
}

// IsJump reports whether op transfers control to a label.
func (op Opcode) IsJump() bool {
	return op == OpJmp || op.IsCondJump()
}

// IsTerminator reports whether op unconditionally leaves the current block.
func (op Opcode) IsTerminator() bool {
	return op == OpJmp || op == OpRet
}

// Holds reports whether a conditional jump is taken when its tested value
// is v. The tested value is the result of `left - right`, so the conditions
// are comparisons of v against zero.
func (op Opcode) Holds(v int64) bool {
	switch op {
	case OpJz:
		return v == 0
	case OpJnz:
		return v != 0
	case OpJl:
		return v < 0
	case OpJle:
		return v <= 0
	case OpJnl:
		return v >= 0
	case OpJnle:
		return v > 0
	}

	panic(fmt.Sprintf("%s is not a conditional jump", op))
}

// Negate returns the conditional jump that is taken exactly when op is not.
func (op Opcode) Negate() Opcode {
	switch op {
	case OpJz:
		return OpJnz
	case OpJnz:
		return OpJz
	case OpJl:
		return OpJnl
	case OpJnl:
		return OpJl
	case OpJle:
		return OpJnle
	case OpJnle:
		return OpJle
	}

	panic(fmt.Sprintf("%s is not a conditional jump", op))
}
