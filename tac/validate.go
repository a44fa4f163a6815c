package tac

import "fmt"

// ShapeError reports an instruction whose operands do not match its opcode.
type ShapeError struct {
	Instr *Instr
	Msg   string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("malformed instruction %q: %s", e.Instr, e.Msg)
}

// Validate checks the operand shape of an instruction.
func Validate(i *Instr) error {
	if i == nil {
		return &ShapeError{Instr: &Instr{}, Msg: "nil instruction"}
	}
	if i.Op < 0 || i.Op >= numOpcodes {
		return &ShapeError{Instr: i, Msg: "unknown opcode"}
	}

	switch {
	case i.Op == OpConst:
		if err := i.arity(1); err != nil {
			return err
		}
		if _, ok := i.Args[0].(Int); !ok {
			return i.fail("const takes an integer literal")
		}
		return i.needResult()

	case i.Op == OpCopy, i.Op.IsUnary():
		if err := i.arity(1); err != nil {
			return err
		}
		if err := i.value(0); err != nil {
			return err
		}
		return i.needResult()

	case i.Op.IsBinary():
		if err := i.arity(2); err != nil {
			return err
		}
		if err := i.value(0); err != nil {
			return err
		}
		if err := i.value(1); err != nil {
			return err
		}
		return i.needResult()

	case i.Op == OpLabel, i.Op == OpJmp:
		if err := i.arity(1); err != nil {
			return err
		}
		if _, ok := i.Args[0].(Label); !ok {
			return i.fail("operand must be a label")
		}
		return i.noResult()

	case i.Op.IsCondJump():
		if err := i.arity(2); err != nil {
			return err
		}
		if err := i.value(0); err != nil {
			return err
		}
		if _, ok := i.Args[1].(Label); !ok {
			return i.fail("second operand must be a label")
		}
		return i.noResult()

	case i.Op == OpParam:
		if err := i.arity(2); err != nil {
			return err
		}
		if n, ok := i.Args[0].(Int); !ok || n < 1 {
			return i.fail("param index must be a positive integer")
		}
		if err := i.value(1); err != nil {
			return err
		}
		return i.noResult()

	case i.Op == OpCall:
		if err := i.arity(2); err != nil {
			return err
		}
		if _, ok := i.Args[0].(ProcRef); !ok {
			return i.fail("call target must be a procedure")
		}
		if n, ok := i.Args[1].(Int); !ok || n < 0 {
			return i.fail("call argument count must be a non-negative integer")
		}
		if i.Result != nil && !IsDest(i.Result) {
			return i.fail("call result must be a temporary or global")
		}
		return nil

	case i.Op == OpRet:
		if len(i.Args) > 1 {
			return i.fail("ret takes at most one operand")
		}
		if len(i.Args) == 1 {
			if err := i.value(0); err != nil {
				return err
			}
		}
		return i.noResult()

	case i.Op == OpPrint:
		if err := i.arity(1); err != nil {
			return err
		}
		if err := i.value(0); err != nil {
			return err
		}
		return i.noResult()
	}

	return i.fail("unhandled opcode")
}

func (i *Instr) fail(format string, args ...any) error {
	return &ShapeError{Instr: i, Msg: fmt.Sprintf(format, args...)}
}

func (i *Instr) arity(n int) error {
	if len(i.Args) != n {
		return i.fail("expected %d operands, got %d", n, len(i.Args))
	}
	for k, a := range i.Args {
		if a == nil {
			return i.fail("operand %d is missing", k)
		}
	}
	return nil
}

func (i *Instr) value(k int) error {
	if !IsValue(i.Args[k]) {
		return i.fail("operand %d must be a value, got %s", k, i.Args[k])
	}
	return nil
}

func (i *Instr) needResult() error {
	if i.Result == nil || !IsDest(i.Result) {
		return i.fail("%s needs a temporary or global result", i.Op)
	}
	return nil
}

func (i *Instr) noResult() error {
	if i.Result != nil {
		return i.fail("%s must not have a result", i.Op)
	}
	return nil
}
