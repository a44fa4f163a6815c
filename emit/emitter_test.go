package emit

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tacopt/ast"
	"github.com/sarchlab/tacopt/tac"
)

func lines(body []*tac.Instr) []string {
	out := make([]string, len(body))
	for i, inst := range body {
		out[i] = inst.String()
	}
	return out
}

func proc(name string, params []ast.Param, stmts ...ast.Stmt) *ast.Proc {
	return &ast.Proc{Name: name, Params: params, Body: ast.Block(stmts...)}
}

func intParam(name string) ast.Param  { return ast.Param{Name: name, Ty: ast.Int} }
func boolParam(name string) ast.Param { return ast.Param{Name: name, Ty: ast.Bool} }

var _ = Describe("Emitter", func() {
	It("should lower a while loop with a subtraction and jnle", func() {
		p := proc("f", []ast.Param{intParam("x")},
			&ast.WhileStmt{
				Cond: ast.Binary(ast.Gt, ast.IntVar("x"), ast.Num(0)),
				Body: ast.Block(&ast.AssignStmt{
					Name:  "x",
					Value: ast.Binary(ast.Sub, ast.IntVar("x"), ast.Num(1)),
				}),
			})

		tp, err := EmitProc(p, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(tp.Params).To(Equal([]tac.Temp{0}))
		Expect(lines(tp.Body)).To(Equal([]string{
			"label %.L0",
			"%1 = copy %0",
			"%2 = const 0",
			"%3 = sub %1, %2",
			"jnle %3, %.L1",
			"jmp %.L2",
			"label %.L1",
			"%4 = copy %0",
			"%5 = const 1",
			"%0 = sub %4, %5",
			"jmp %.L0",
			"label %.L2",
			"ret",
		}))
		Expect(tp.Labels).To(Equal([]tac.Label{0, 1, 2}))
		Expect(tp.Temps).To(HaveLen(6))
	})

	It("should short-circuit conjunctions", func() {
		p := proc("f", []ast.Param{intParam("a"), intParam("b"), boolParam("c")},
			&ast.IfStmt{
				Cond: ast.Binary(ast.LogAnd,
					ast.Binary(ast.Lt, ast.IntVar("a"), ast.IntVar("b")),
					ast.BoolVar("c")),
				Then: ast.Block(&ast.PrintStmt{X: ast.IntVar("a")}),
			})

		tp, err := EmitProc(p, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(lines(tp.Body)).To(Equal([]string{
			"%3 = copy %0",
			"%4 = copy %1",
			"%5 = sub %3, %4",
			"jl %5, %.L3",
			"jmp %.L1",
			"label %.L3",
			"jnz %2, %.L0",
			"jmp %.L1",
			"label %.L0",
			"print %0",
			"jmp %.L2",
			"label %.L1",
			"label %.L2",
			"ret",
		}))
	})

	It("should materialize a boolean store through a fresh temporary", func() {
		p := proc("f", []ast.Param{boolParam("b")},
			&ast.AssignStmt{Name: "b", Value: ast.Unary(ast.LogNot, ast.BoolVar("b"))})

		tp, err := EmitProc(p, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(lines(tp.Body)).To(Equal([]string{
			"%1 = const 0",
			"jnz %0, %.L1",
			"jmp %.L0",
			"label %.L0",
			"%1 = const 1",
			"label %.L1",
			"%0 = copy %1",
			"ret",
		}))
	})

	It("should lower all arguments before the params and the call", func() {
		p := proc("g", []ast.Param{intParam("x")},
			&ast.PrintStmt{X: ast.Call("f", ast.Int,
				ast.Num(1),
				ast.Binary(ast.Add, ast.IntVar("x"), ast.Num(2)))})

		tp, err := EmitProc(p, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(lines(tp.Body)).To(Equal([]string{
			"%2 = const 1",
			"%4 = copy %0",
			"%5 = const 2",
			"%3 = add %4, %5",
			"param 1, %2",
			"param 2, %3",
			"%1 = call @f, 2",
			"print %1",
			"ret",
		}))
	})

	It("should drop the result of void calls", func() {
		p := proc("g", nil, &ast.EvalStmt{X: ast.Call("h", ast.Void)})

		tp, err := EmitProc(p, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(lines(tp.Body)).To(Equal([]string{"call @h, 0", "ret"}))
	})

	It("should let an initializer read the shadowed binding", func() {
		p := proc("f", nil,
			&ast.VarDecl{Name: "x", Ty: ast.Int, Init: ast.Num(1)},
			ast.Block(
				&ast.VarDecl{Name: "x", Ty: ast.Int,
					Init: ast.Binary(ast.Add, ast.IntVar("x"), ast.Num(1))},
				&ast.PrintStmt{X: ast.IntVar("x")},
			),
			&ast.PrintStmt{X: ast.IntVar("x")},
		)

		tp, err := EmitProc(p, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(lines(tp.Body)).To(Equal([]string{
			"%0 = const 1",
			"%2 = copy %0",
			"%3 = const 1",
			"%1 = add %2, %3",
			"print %1",
			"print %0",
			"ret",
		}))
	})

	It("should address globals directly", func() {
		p := proc("f", nil, &ast.AssignStmt{Name: "g", Value: ast.Num(5)})

		tp, err := EmitProc(p, []string{"g"})
		Expect(err).NotTo(HaveOccurred())
		Expect(lines(tp.Body)).To(Equal([]string{"@g = const 5", "ret"}))
	})

	It("should not append a second ret", func() {
		p := proc("f", nil, &ast.ReturnStmt{Value: ast.Num(3)})

		tp, err := EmitProc(p, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(lines(tp.Body)).To(Equal([]string{"%0 = const 3", "ret %0"}))
	})

	It("should resolve break to the loop exit", func() {
		p := proc("f", nil, &ast.WhileStmt{
			Cond: ast.Lit(true),
			Body: ast.Block(&ast.BreakStmt{}),
		})

		tp, err := EmitProc(p, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(lines(tp.Body)).To(Equal([]string{
			"label %.L0",
			"jmp %.L1",
			"label %.L1",
			"jmp %.L2",
			"jmp %.L0",
			"label %.L2",
			"ret",
		}))
	})

	It("should still lower statements after a return", func() {
		p := proc("f", nil,
			&ast.ReturnStmt{Value: ast.Num(1)},
			&ast.PrintStmt{X: ast.Num(2)},
		)

		tp, err := EmitProc(p, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(lines(tp.Body)).To(Equal([]string{
			"%0 = const 1",
			"ret %0",
			"%1 = const 2",
			"print %1",
			"ret",
		}))
	})

	Context("when the AST breaks the type checker's guarantees", func() {
		It("should report unbound variables with the procedure name", func() {
			p := proc("main", nil, &ast.PrintStmt{X: ast.IntVar("ghost")})

			_, err := EmitProc(p, nil)
			var emitErr *Error
			Expect(errors.As(err, &emitErr)).To(BeTrue())
			Expect(emitErr.Proc).To(Equal("main"))
			Expect(emitErr.Msg).To(ContainSubstring("ghost"))
		})

		It("should reject loop control outside a loop", func() {
			_, err := EmitProc(proc("f", nil, &ast.ContinueStmt{}), nil)
			Expect(err).To(MatchError(ContainSubstring("outside a loop")))
		})

		It("should reject an integer used as a condition", func() {
			p := proc("f", nil, &ast.IfStmt{Cond: ast.Num(1), Then: ast.Block()})
			_, err := EmitProc(p, nil)
			Expect(err).To(HaveOccurred())
		})
	})

	It("should be deterministic", func() {
		prog := &ast.Program{
			Globals: []*ast.GlobalVar{{Name: "g", Ty: ast.Int, Init: 4}},
			Procs: []*ast.Proc{
				proc("main", nil,
					&ast.VarDecl{Name: "b", Ty: ast.Bool, Init: ast.Binary(ast.LogOr,
						ast.Binary(ast.Eq, ast.IntVar("g"), ast.Num(4)),
						ast.Lit(false))},
					&ast.PrintStmt{X: ast.BoolVar("b")},
				),
			},
		}

		first, err := EmitProgram(prog)
		Expect(err).NotTo(HaveOccurred())
		second, err := EmitProgram(prog)
		Expect(err).NotTo(HaveOccurred())

		Expect(first.Globals).To(HaveLen(1))
		Expect(lines(first.Procs[0].Body)).To(Equal(lines(second.Procs[0].Body)))
	})
})
