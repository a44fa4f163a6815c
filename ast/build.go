package ast

// Num creates an integer literal.
func Num(v int64) *IntLit { return &IntLit{Value: v} }

// Lit creates a boolean literal.
func Lit(b bool) *BoolLit { return &BoolLit{Value: b} }

// IntVar reads an integer variable.
func IntVar(name string) *VarRef { return &VarRef{Name: name, Ty: Int} }

// BoolVar reads a boolean variable.
func BoolVar(name string) *VarRef { return &VarRef{Name: name, Ty: Bool} }

// Unary applies op to x and annotates the result type from the operator.
func Unary(op UnaryOp, x Expr) *UnaryExpr {
	ty := Int
	if op == LogNot {
		ty = Bool
	}
	return &UnaryExpr{Op: op, Arg: x, Ty: ty}
}

// Binary applies op to l and r and annotates the result type from the
// operator.
func Binary(op BinaryOp, l, r Expr) *BinaryExpr {
	ty := Int
	if !op.IsArith() {
		ty = Bool
	}
	return &BinaryExpr{Op: op, Left: l, Right: r, Ty: ty}
}

// Call creates a call to proc returning ret.
func Call(proc string, ret Type, args ...Expr) *CallExpr {
	return &CallExpr{Proc: proc, Args: args, Ty: ret}
}

// Block creates a block statement.
func Block(stmts ...Stmt) *BlockStmt { return &BlockStmt{Stmts: stmts} }
