// Package emit lowers the typed AST into three-address code.
//
// Integer expressions are evaluated into a destination operand. Boolean
// expressions are lowered as control flow against a pair of labels and are
// only turned into 0/1 values where a value is required, such as stores,
// arguments and print.
package emit

import (
	"fmt"
	"log/slog"

	"github.com/sarchlab/tacopt/ast"
	"github.com/sarchlab/tacopt/tac"
)

// Error is an internal error found while lowering a procedure. It means the
// AST did not satisfy the type checker's guarantees.
type Error struct {
	Proc string
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("emit @%s: %s", e.Proc, e.Msg)
}

func fail(format string, args ...any) {
	panic(&Error{Msg: fmt.Sprintf(format, args...)})
}

var jccOf = map[ast.BinaryOp]tac.Opcode{
	ast.Eq: tac.OpJz,
	ast.Ne: tac.OpJnz,
	ast.Lt: tac.OpJl,
	ast.Le: tac.OpJle,
	ast.Gt: tac.OpJnle,
	ast.Ge: tac.OpJnl,
}

var arithOf = map[ast.BinaryOp]tac.Opcode{
	ast.Add:    tac.OpAdd,
	ast.Sub:    tac.OpSub,
	ast.Mul:    tac.OpMul,
	ast.Div:    tac.OpDiv,
	ast.Mod:    tac.OpMod,
	ast.BitAnd: tac.OpAnd,
	ast.BitOr:  tac.OpOr,
	ast.BitXor: tac.OpXor,
	ast.Shl:    tac.OpShl,
	ast.Shr:    tac.OpShr,
}

// EmitProgram lowers every global and procedure of p.
func EmitProgram(p *ast.Program) (*tac.Program, error) {
	out := &tac.Program{}
	globals := make([]string, 0, len(p.Globals))
	for _, g := range p.Globals {
		globals = append(globals, g.Name)
		out.Globals = append(out.Globals, &tac.GlobalVar{Name: g.Name, Init: g.Init})
	}

	for _, proc := range p.Procs {
		tp, err := EmitProc(proc, globals)
		if err != nil {
			return nil, err
		}
		slog.Debug("Emitted TAC",
			"proc", proc.Name,
			"instrs", len(tp.Body),
			"temps", len(tp.Temps),
			"labels", len(tp.Labels))
		out.Procs = append(out.Procs, tp)
	}

	return out, nil
}

// EmitProc lowers one procedure. globals lists the names visible in the
// outermost scope.
func EmitProc(proc *ast.Proc, globals []string) (tp *tac.Proc, err error) {
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(*Error)
			if !ok {
				panic(r)
			}
			e.Proc = proc.Name
			tp, err = nil, e
		}
	}()

	em := &emitter{scope: NewScope(globals)}
	em.scope.EnterScope()
	defer em.scope.ExitScope()

	params := make([]tac.Temp, 0, len(proc.Params))
	for _, p := range proc.Params {
		params = append(params, em.scope.Bind(p.Name))
	}

	if proc.Body != nil {
		em.block(proc.Body)
	}
	if n := len(em.body); n == 0 || em.body[n-1].Op != tac.OpRet {
		em.emit(tac.Ret(nil))
	}

	for _, inst := range em.body {
		if verr := tac.Validate(inst); verr != nil {
			fail("%v", verr)
		}
	}

	return &tac.Proc{
		Name:   proc.Name,
		Params: params,
		Body:   em.body,
		Temps:  em.scope.Temps(),
		Labels: em.scope.Labels(),
	}, nil
}

type emitter struct {
	scope *Scope
	body  []*tac.Instr
}

func (em *emitter) emit(i *tac.Instr) {
	em.body = append(em.body, i)
}

func (em *emitter) block(b *ast.BlockStmt) {
	em.scope.EnterScope()
	defer em.scope.ExitScope()

	for _, s := range b.Stmts {
		em.stmt(s)
	}
}

func (em *emitter) loop(continueTo, breakTo tac.Label, body *ast.BlockStmt) {
	em.scope.EnterLoop(continueTo, breakTo)
	defer em.scope.ExitLoop()

	em.block(body)
}

func (em *emitter) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.BlockStmt:
		em.block(s)

	case *ast.VarDecl:
		// The initializer still sees any outer binding of the name.
		t := em.scope.FreshTemp()
		em.store(s.Init, t)
		em.scope.BindTo(s.Name, t)

	case *ast.AssignStmt:
		dst := em.scope.Lookup(s.Name)
		if s.Value.Type() == ast.Bool && !isValueNode(s.Value) {
			t := em.scope.FreshTemp()
			em.materialize(s.Value, t)
			em.emit(tac.Copy(dst, t))
			return
		}
		em.intExpr(s.Value, dst)

	case *ast.EvalStmt:
		if call, ok := s.X.(*ast.CallExpr); ok {
			var dst tac.Operand
			if call.Ty != ast.Void {
				dst = em.scope.FreshTemp()
			}
			em.call(call, dst)
			return
		}
		em.store(s.X, em.scope.FreshTemp())

	case *ast.PrintStmt:
		em.emit(tac.Print(em.value(s.X)))

	case *ast.IfStmt:
		lTrue := em.scope.FreshLabel()
		lFalse := em.scope.FreshLabel()
		lOver := em.scope.FreshLabel()

		em.cond(s.Cond, lTrue, lFalse)
		em.emit(tac.NewLabel(lTrue))
		em.block(s.Then)
		em.emit(tac.Jmp(lOver))
		em.emit(tac.NewLabel(lFalse))
		if s.Else != nil {
			em.stmt(s.Else)
		}
		em.emit(tac.NewLabel(lOver))

	case *ast.WhileStmt:
		lHead := em.scope.FreshLabel()
		lBody := em.scope.FreshLabel()
		lEnd := em.scope.FreshLabel()

		em.emit(tac.NewLabel(lHead))
		em.cond(s.Cond, lBody, lEnd)
		em.emit(tac.NewLabel(lBody))
		em.loop(lHead, lEnd, s.Body)
		em.emit(tac.Jmp(lHead))
		em.emit(tac.NewLabel(lEnd))

	case *ast.BreakStmt:
		em.emit(tac.Jmp(em.scope.Break()))

	case *ast.ContinueStmt:
		em.emit(tac.Jmp(em.scope.Continue()))

	case *ast.ReturnStmt:
		if s.Value == nil {
			em.emit(tac.Ret(nil))
			return
		}
		em.emit(tac.Ret(em.value(s.Value)))

	default:
		fail("unknown statement %T", s)
	}
}

// isValueNode reports whether e already denotes a stored 0/1 or integer
// value, so a boolean of that shape needs no materialization.
func isValueNode(e ast.Expr) bool {
	switch e.(type) {
	case *ast.VarRef, *ast.CallExpr:
		return true
	}
	return false
}

// value returns an operand holding the value of e. Variables are read in
// place.
func (em *emitter) value(e ast.Expr) tac.Operand {
	if v, ok := e.(*ast.VarRef); ok {
		return em.scope.Lookup(v.Name)
	}

	t := em.scope.FreshTemp()
	em.store(e, t)
	return t
}

// store evaluates e of any type into dst.
func (em *emitter) store(e ast.Expr, dst tac.Operand) {
	if e.Type() == ast.Bool && !isValueNode(e) {
		em.materialize(e, dst)
		return
	}
	em.intExpr(e, dst)
}

func (em *emitter) materialize(e ast.Expr, dst tac.Operand) {
	lTrue := em.scope.FreshLabel()
	lFalse := em.scope.FreshLabel()

	em.emit(tac.Const(dst, 0))
	em.cond(e, lTrue, lFalse)
	em.emit(tac.NewLabel(lTrue))
	em.emit(tac.Const(dst, 1))
	em.emit(tac.NewLabel(lFalse))
}

func (em *emitter) intExpr(e ast.Expr, dst tac.Operand) {
	switch e := e.(type) {
	case *ast.IntLit:
		em.emit(tac.Const(dst, e.Value))

	case *ast.VarRef:
		if src := em.scope.Lookup(e.Name); src != dst {
			em.emit(tac.Copy(dst, src))
		}

	case *ast.CallExpr:
		if e.Ty == ast.Void {
			fail("void call to @%s used as a value", e.Proc)
		}
		em.call(e, dst)

	case *ast.UnaryExpr:
		var op tac.Opcode
		switch {
		case e.Ty != ast.Int:
			fail("unary %s of type %s lowered as an integer", e.Op, e.Ty)
		case e.Op == ast.Neg:
			op = tac.OpNeg
		case e.Op == ast.BitNot:
			op = tac.OpNot
		default:
			fail("unary %s lowered as an integer", e.Op)
		}
		a := em.scope.FreshTemp()
		em.intExpr(e.Arg, a)
		em.emit(tac.Unary(op, dst, a))

	case *ast.BinaryExpr:
		op, ok := arithOf[e.Op]
		if !ok || e.Ty != ast.Int {
			fail("binary %s of type %s lowered as an integer", e.Op, e.Ty)
		}
		a := em.scope.FreshTemp()
		em.intExpr(e.Left, a)
		b := em.scope.FreshTemp()
		em.intExpr(e.Right, b)
		em.emit(tac.Binary(op, dst, a, b))

	default:
		fail("expression %T lowered as an integer", e)
	}
}

// cond lowers a boolean expression as a jump to lTrue or lFalse.
func (em *emitter) cond(e ast.Expr, lTrue, lFalse tac.Label) {
	if e.Type() != ast.Bool {
		fail("expression of type %s used as a condition", e.Type())
	}

	switch e := e.(type) {
	case *ast.BoolLit:
		if e.Value {
			em.emit(tac.Jmp(lTrue))
		} else {
			em.emit(tac.Jmp(lFalse))
		}

	case *ast.VarRef:
		em.emit(tac.CondJmp(tac.OpJnz, em.scope.Lookup(e.Name), lTrue))
		em.emit(tac.Jmp(lFalse))

	case *ast.CallExpr:
		t := em.scope.FreshTemp()
		em.call(e, t)
		em.emit(tac.CondJmp(tac.OpJnz, t, lTrue))
		em.emit(tac.Jmp(lFalse))

	case *ast.UnaryExpr:
		if e.Op != ast.LogNot {
			fail("unary %s used as a condition", e.Op)
		}
		em.cond(e.Arg, lFalse, lTrue)

	case *ast.BinaryExpr:
		em.condBinary(e, lTrue, lFalse)

	default:
		fail("expression %T used as a condition", e)
	}
}

func (em *emitter) condBinary(e *ast.BinaryExpr, lTrue, lFalse tac.Label) {
	switch {
	case e.Op == ast.LogAnd:
		lMid := em.scope.FreshLabel()
		em.cond(e.Left, lMid, lFalse)
		em.emit(tac.NewLabel(lMid))
		em.cond(e.Right, lTrue, lFalse)

	case e.Op == ast.LogOr:
		lMid := em.scope.FreshLabel()
		em.cond(e.Left, lTrue, lMid)
		em.emit(tac.NewLabel(lMid))
		em.cond(e.Right, lTrue, lFalse)

	case e.Op.IsRelational():
		a := em.scope.FreshTemp()
		em.store(e.Left, a)
		b := em.scope.FreshTemp()
		em.store(e.Right, b)
		d := em.scope.FreshTemp()
		em.emit(tac.Binary(tac.OpSub, d, a, b))
		em.emit(tac.CondJmp(jccOf[e.Op], d, lTrue))
		em.emit(tac.Jmp(lFalse))

	default:
		fail("binary %s used as a condition", e.Op)
	}
}

func (em *emitter) call(e *ast.CallExpr, dst tac.Operand) {
	args := make([]tac.Temp, len(e.Args))
	for i, a := range e.Args {
		args[i] = em.scope.FreshTemp()
		em.store(a, args[i])
	}
	for i, t := range args {
		em.emit(tac.Param(i+1, t))
	}

	if e.Ty == ast.Void {
		dst = nil
	}
	em.emit(tac.Call(dst, e.Proc, len(e.Args)))
}
