package tac

import (
	"fmt"
	"strconv"
	"strings"
)

// String renders the instruction in the text form accepted by ParseInstr,
// e.g. `%3 = sub %1, %2` or `jnle %3, %.L1`.
func (i *Instr) String() string {
	if i == nil {
		return "<nil>"
	}

	var sb strings.Builder
	if i.Result != nil {
		sb.WriteString(i.Result.String())
		sb.WriteString(" = ")
	}
	sb.WriteString(i.Op.String())
	for k, a := range i.Args {
		if k == 0 {
			sb.WriteString(" ")
		} else {
			sb.WriteString(", ")
		}
		if a == nil {
			sb.WriteString("<nil>")
			continue
		}
		sb.WriteString(a.String())
	}
	return sb.String()
}

// ParseInstr parses the text form of one instruction.
func ParseInstr(line string) (*Instr, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, fmt.Errorf("empty instruction")
	}

	inst := &Instr{}
	if lhs, rhs, found := strings.Cut(line, "="); found {
		res, err := parseTextOperand(strings.TrimSpace(lhs), false)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", line, err)
		}
		inst.Result = res
		line = strings.TrimSpace(rhs)
	}

	name, rest, _ := strings.Cut(line, " ")
	op, err := ParseOpcode(name)
	if err != nil {
		return nil, err
	}
	inst.Op = op

	rest = strings.TrimSpace(rest)
	if rest != "" {
		for k, field := range strings.Split(rest, ",") {
			a, err := parseTextOperand(strings.TrimSpace(field), op == OpCall && k == 0)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", line, err)
			}
			inst.Args = append(inst.Args, a)
		}
	}

	if err := Validate(inst); err != nil {
		return nil, err
	}
	return inst, nil
}

// MustParseBody parses one instruction per line and panics on error. Blank
// lines are skipped.
func MustParseBody(lines ...string) []*Instr {
	var body []*Instr
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		inst, err := ParseInstr(line)
		if err != nil {
			panic(err)
		}
		body = append(body, inst)
	}
	return body
}

func parseTextOperand(s string, procPos bool) (Operand, error) {
	switch {
	case s == "":
		return nil, fmt.Errorf("missing operand")
	case strings.HasPrefix(s, "%.L"):
		return ParseLabel(s)
	case strings.HasPrefix(s, "%"):
		return ParseTemp(s)
	case strings.HasPrefix(s, "@"):
		if procPos {
			return ProcRef(s[1:]), nil
		}
		return Global(s[1:]), nil
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid operand %q", s)
	}
	return Int(n), nil
}
