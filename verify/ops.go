package verify

import (
	"errors"
	"fmt"

	"github.com/sarchlab/tacopt/tac"
)

// ErrDivideByZero is returned when div or mod has a zero divisor.
var ErrDivideByZero = errors.New("division by zero")

// evalBinary applies a binary TAC operator with 64-bit wrapping semantics.
// Shift amounts are taken modulo 64 and shr is arithmetic.
func evalBinary(op tac.Opcode, a, b int64) (int64, error) {
	switch op {
	case tac.OpAdd:
		return a + b, nil
	case tac.OpSub:
		return a - b, nil
	case tac.OpMul:
		return a * b, nil
	case tac.OpDiv:
		if b == 0 {
			return 0, ErrDivideByZero
		}
		return a / b, nil
	case tac.OpMod:
		if b == 0 {
			return 0, ErrDivideByZero
		}
		return a % b, nil
	case tac.OpAnd:
		return a & b, nil
	case tac.OpOr:
		return a | b, nil
	case tac.OpXor:
		return a ^ b, nil
	case tac.OpShl:
		return a << uint64(b&63), nil
	case tac.OpShr:
		return a >> uint64(b&63), nil
	}

	return 0, fmt.Errorf("%s is not a binary operator", op)
}

func evalUnary(op tac.Opcode, a int64) (int64, error) {
	switch op {
	case tac.OpNeg:
		return -a, nil
	case tac.OpNot:
		return ^a, nil
	}

	return 0, fmt.Errorf("%s is not a unary operator", op)
}
