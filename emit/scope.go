package emit

import "github.com/sarchlab/tacopt/tac"

type loopTargets struct {
	continueTo tac.Label
	breakTo    tac.Label
}

// Scope maps source variables to temporaries and mints fresh temporaries and
// labels for one procedure.
type Scope struct {
	globals map[string]bool
	layers  []map[string]tac.Temp
	loops   []loopTargets

	nextTemp  tac.Temp
	nextLabel tac.Label
	temps     []tac.Temp
	labels    []tac.Label
}

// NewScope creates a scope whose outermost layer holds the given global
// variable names. A new Scope must be used for every procedure.
func NewScope(globals []string) *Scope {
	s := &Scope{globals: make(map[string]bool, len(globals))}
	for _, g := range globals {
		s.globals[g] = true
	}
	return s
}

// EnterScope pushes a fresh name layer.
func (s *Scope) EnterScope() {
	s.layers = append(s.layers, make(map[string]tac.Temp))
}

// ExitScope pops the innermost name layer.
func (s *Scope) ExitScope() {
	if len(s.layers) == 0 {
		fail("exit from an empty scope stack")
	}
	s.layers = s.layers[:len(s.layers)-1]
}

// Bind allocates a fresh temporary for name in the innermost layer.
func (s *Scope) Bind(name string) tac.Temp {
	t := s.FreshTemp()
	s.BindTo(name, t)
	return t
}

// BindTo binds name to an existing temporary in the innermost layer.
func (s *Scope) BindTo(name string, t tac.Temp) {
	if len(s.layers) == 0 {
		fail("bind of %q outside any scope", name)
	}
	s.layers[len(s.layers)-1][name] = t
}

// Lookup resolves name innermost to outermost, then among the globals.
func (s *Scope) Lookup(name string) tac.Operand {
	for i := len(s.layers) - 1; i >= 0; i-- {
		if t, ok := s.layers[i][name]; ok {
			return t
		}
	}
	if s.globals[name] {
		return tac.Global(name)
	}

	fail("unbound variable %q", name)
	return nil
}

// FreshTemp returns a temporary that has not been used in this procedure.
func (s *Scope) FreshTemp() tac.Temp {
	t := s.nextTemp
	s.nextTemp++
	s.temps = append(s.temps, t)
	return t
}

// FreshLabel returns a label that has not been used in this procedure.
func (s *Scope) FreshLabel() tac.Label {
	l := s.nextLabel
	s.nextLabel++
	s.labels = append(s.labels, l)
	return l
}

// EnterLoop records the targets of continue and break for a new loop.
func (s *Scope) EnterLoop(continueTo, breakTo tac.Label) {
	s.loops = append(s.loops, loopTargets{continueTo: continueTo, breakTo: breakTo})
}

// ExitLoop pops the innermost loop.
func (s *Scope) ExitLoop() {
	if len(s.loops) == 0 {
		fail("exit from an empty loop stack")
	}
	s.loops = s.loops[:len(s.loops)-1]
}

// Break returns the label a break statement jumps to.
func (s *Scope) Break() tac.Label {
	return s.innermostLoop("break").breakTo
}

// Continue returns the label a continue statement jumps to.
func (s *Scope) Continue() tac.Label {
	return s.innermostLoop("continue").continueTo
}

func (s *Scope) innermostLoop(stmt string) loopTargets {
	if len(s.loops) == 0 {
		fail("%s outside a loop", stmt)
	}
	return s.loops[len(s.loops)-1]
}

// Temps lists every temporary issued so far, in issue order.
func (s *Scope) Temps() []tac.Temp {
	return append([]tac.Temp(nil), s.temps...)
}

// Labels lists every label issued so far, in issue order.
func (s *Scope) Labels() []tac.Label {
	return append([]tac.Label(nil), s.labels...)
}
