package tac

import (
	"fmt"
	"strconv"
	"strings"
)

// Operand is an argument or result of an instruction. The set of operand
// kinds is closed: Int, Temp, Label, Global and ProcRef.
type Operand interface {
	fmt.Stringer
	isOperand()
}

// Int is an integer literal.
type Int int64

// Temp is a procedure-local temporary. Temporaries are unique within their
// owning procedure only.
type Temp int

// Label is a procedure-local jump target.
type Label int

// EntryLabel is the synthetic label given to an entry block that did not
// start with a label.
const EntryLabel Label = -1

// Global names a global variable.
type Global string

// ProcRef names a procedure in call position.
type ProcRef string

func (Int) isOperand()     {}
func (Temp) isOperand()    {}
func (Label) isOperand()   {}
func (Global) isOperand()  {}
func (ProcRef) isOperand() {}

func (i Int) String() string {
	return strconv.FormatInt(int64(i), 10)
}

func (t Temp) String() string {
	return "%" + strconv.Itoa(int(t))
}

func (l Label) String() string {
	if l == EntryLabel {
		return "%.Lentry"
	}
	return "%.L" + strconv.Itoa(int(l))
}

func (g Global) String() string {
	return "@" + string(g)
}

func (p ProcRef) String() string {
	return "@" + string(p)
}

// IsValue reports whether o can be read as an integer value.
func IsValue(o Operand) bool {
	switch o.(type) {
	case Int, Temp, Global:
		return true
	}
	return false
}

// IsDest reports whether o can receive the result of an instruction.
func IsDest(o Operand) bool {
	switch o.(type) {
	case Temp, Global:
		return true
	}
	return false
}

// ParseTemp parses the wire form of a temporary with a numeric name.
func ParseTemp(s string) (Temp, error) {
	if !strings.HasPrefix(s, "%") || strings.HasPrefix(s, "%.") {
		return 0, fmt.Errorf("invalid temporary %q", s)
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid temporary %q", s)
	}
	return Temp(n), nil
}

// ParseLabel parses the wire form of a label with a numeric name or the
// entry label.
func ParseLabel(s string) (Label, error) {
	if !strings.HasPrefix(s, "%.L") {
		return 0, fmt.Errorf("invalid label %q", s)
	}
	if s == "%.Lentry" {
		return EntryLabel, nil
	}
	n, err := strconv.Atoi(s[3:])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid label %q", s)
	}
	return Label(n), nil
}
