package verify

import (
	"fmt"

	"github.com/sarchlab/tacopt/tac"
)

// RunLint performs static checks on a TAC program.
// Returns a list of issues found, or an empty list if there are none.
func RunLint(program *tac.Program) []Issue {
	var issues []Issue

	globals := make(map[string]bool, len(program.Globals))
	for _, g := range program.Globals {
		if globals[g.Name] {
			issues = append(issues, Issue{
				Type:    IssueGlobal,
				Index:   -1,
				Message: fmt.Sprintf("global @%s declared more than once", g.Name),
				Details: map[string]interface{}{"global": g.Name},
			})
		}
		globals[g.Name] = true
	}

	procs := make(map[string]*tac.Proc, len(program.Procs))
	for _, p := range program.Procs {
		if _, dup := procs[p.Name]; dup {
			issues = append(issues, Issue{
				Type:    IssueCall,
				Proc:    p.Name,
				Index:   -1,
				Message: fmt.Sprintf("procedure @%s defined more than once", p.Name),
			})
			continue
		}
		procs[p.Name] = p
	}

	for _, p := range program.Procs {
		issues = append(issues, lintProc(p, procs, globals)...)
	}

	return issues
}

// Fatal reports whether the issue makes the program unusable. Unregistered
// temporaries are harmless to every later stage.
func (i Issue) Fatal() bool {
	return i.Type != IssueTemp
}

// String formats the issue on one line.
func (i Issue) String() string {
	if i.Proc == "" {
		return fmt.Sprintf("[%s] %s", i.Type, i.Message)
	}
	if i.Index < 0 {
		return fmt.Sprintf("[%s] @%s: %s", i.Type, i.Proc, i.Message)
	}
	return fmt.Sprintf("[%s] @%s #%d: %s", i.Type, i.Proc, i.Index, i.Message)
}

func lintProc(p *tac.Proc, procs map[string]*tac.Proc, globals map[string]bool) []Issue {
	var issues []Issue
	report := func(t IssueType, idx int, details map[string]interface{}, format string, args ...any) {
		issues = append(issues, Issue{
			Type:    t,
			Proc:    p.Name,
			Index:   idx,
			Message: fmt.Sprintf(format, args...),
			Details: details,
		})
	}

	temps := make(map[tac.Temp]bool, len(p.Temps))
	for _, t := range p.Temps {
		temps[t] = true
	}
	for _, t := range p.Params {
		if !temps[t] {
			report(IssueTemp, -1, map[string]interface{}{"temp": t.String()},
				"parameter %s is not a registered temporary", t)
		}
	}

	defined := make(map[tac.Label]int)
	for i, inst := range p.Body {
		if inst == nil || inst.Op != tac.OpLabel {
			continue
		}
		l, _ := inst.Target()
		if first, dup := defined[l]; dup {
			report(IssueLabel, i, map[string]interface{}{"label": l.String(), "first": first},
				"label %s defined more than once", l)
			continue
		}
		defined[l] = i
	}

	pending := 0
	for i, inst := range p.Body {
		if err := tac.Validate(inst); err != nil {
			report(IssueShape, i, nil, "%v", err)
			continue
		}

		if l, ok := inst.Target(); ok && inst.Op != tac.OpLabel {
			if _, ok := defined[l]; !ok {
				report(IssueLabel, i, map[string]interface{}{"label": l.String()},
					"jump to undefined label %s", l)
			}
		}

		operands := append([]tac.Operand{inst.Result}, inst.Args...)
		for _, o := range operands {
			switch o := o.(type) {
			case tac.Temp:
				if !temps[o] {
					report(IssueTemp, i, map[string]interface{}{"temp": o.String()},
						"temporary %s is not registered", o)
					temps[o] = true
				}
			case tac.Global:
				if !globals[string(o)] {
					report(IssueGlobal, i, map[string]interface{}{"global": string(o)},
						"undeclared global %s", o)
				}
			}
		}

		switch inst.Op {
		case tac.OpParam:
			idx := int(inst.Args[0].(tac.Int))
			if idx != pending+1 {
				report(IssueCall, i, map[string]interface{}{"expected": pending + 1, "got": idx},
					"param %d out of sequence", idx)
			}
			pending = idx
			continue

		case tac.OpCall:
			name := string(inst.Args[0].(tac.ProcRef))
			n := int(inst.Args[1].(tac.Int))
			if n != pending {
				report(IssueCall, i, map[string]interface{}{"staged": pending, "count": n},
					"call to @%s with %d arguments after %d params", name, n, pending)
			}
			if callee, ok := procs[name]; !ok {
				report(IssueCall, i, map[string]interface{}{"callee": name},
					"call to unknown procedure @%s", name)
			} else if len(callee.Params) != n {
				report(IssueCall, i, map[string]interface{}{"callee": name, "params": len(callee.Params)},
					"@%s takes %d arguments, called with %d", name, len(callee.Params), n)
			}
			pending = 0
			continue
		}

		if pending > 0 && (inst.Op == tac.OpLabel || inst.Op.IsTerminator() || inst.Op.IsCondJump()) {
			report(IssueCall, i, map[string]interface{}{"staged": pending},
				"%d params staged but never passed to a call", pending)
			pending = 0
		}
	}

	if len(p.Body) == 0 || p.Body[len(p.Body)-1] == nil || !p.Body[len(p.Body)-1].Op.IsTerminator() {
		report(IssueFlow, len(p.Body)-1, nil, "control falls off the end of the body")
	}

	return issues
}
