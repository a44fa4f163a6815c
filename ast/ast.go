// Package ast defines the typed syntax tree produced by the type checker.
//
// Every expression carries its semantic type. The emitter trusts these
// annotations and does not check them again.
package ast

import "fmt"

// Type is the semantic type of an expression or procedure result.
type Type int

// The source language types.
const (
	Void Type = iota
	Int
	Bool
)

func (t Type) String() string {
	switch t {
	case Void:
		return "void"
	case Int:
		return "int"
	case Bool:
		return "bool"
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// ParseType returns the type with the given source name.
func ParseType(s string) (Type, error) {
	switch s {
	case "void", "":
		return Void, nil
	case "int":
		return Int, nil
	case "bool":
		return Bool, nil
	}
	return Void, fmt.Errorf("unknown type %q", s)
}

// UnaryOp is a prefix operator.
type UnaryOp int

// Unary operators.
const (
	Neg UnaryOp = iota
	BitNot
	LogNot
)

var unaryOpNames = [...]string{Neg: "-", BitNot: "~", LogNot: "!"}

func (op UnaryOp) String() string {
	if op < 0 || int(op) >= len(unaryOpNames) {
		return fmt.Sprintf("unop(%d)", int(op))
	}
	return unaryOpNames[op]
}

// BinaryOp is an infix operator.
type BinaryOp int

// Binary operators. Add through Shr produce integers, Eq through Ge compare
// integers, LogAnd and LogOr combine booleans with short-circuit evaluation.
const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	Mod
	BitAnd
	BitOr
	BitXor
	Shl
	Shr

	Eq
	Ne
	Lt
	Le
	Gt
	Ge

	LogAnd
	LogOr

	numBinaryOps
)

var binaryOpNames = [...]string{
	Add: "+", Sub: "-", Mul: "*", Div: "/", Mod: "%",
	BitAnd: "&", BitOr: "|", BitXor: "^", Shl: "<<", Shr: ">>",
	Eq: "==", Ne: "!=", Lt: "<", Le: "<=", Gt: ">", Ge: ">=",
	LogAnd: "&&", LogOr: "||",
}

func (op BinaryOp) String() string {
	if op < 0 || op >= numBinaryOps {
		return fmt.Sprintf("binop(%d)", int(op))
	}
	return binaryOpNames[op]
}

// IsArith reports whether op maps to a TAC arithmetic instruction.
func (op BinaryOp) IsArith() bool { return op >= Add && op <= Shr }

// IsRelational reports whether op compares two integers.
func (op BinaryOp) IsRelational() bool { return op >= Eq && op <= Ge }

// IsLogical reports whether op is a short-circuit boolean connective.
func (op BinaryOp) IsLogical() bool { return op == LogAnd || op == LogOr }

// ParseUnaryOp returns the unary operator written as s.
func ParseUnaryOp(s string) (UnaryOp, error) {
	for op, name := range unaryOpNames {
		if name == s {
			return UnaryOp(op), nil
		}
	}
	return 0, fmt.Errorf("unknown unary operator %q", s)
}

// ParseBinaryOp returns the binary operator written as s.
func ParseBinaryOp(s string) (BinaryOp, error) {
	for op, name := range binaryOpNames {
		if name == s {
			return BinaryOp(op), nil
		}
	}
	return 0, fmt.Errorf("unknown binary operator %q", s)
}

// Expr is a typed expression. The set of implementations is closed.
type Expr interface {
	Type() Type
	exprNode()
}

// IntLit is an integer literal.
type IntLit struct {
	Value int64
}

// BoolLit is `true` or `false`.
type BoolLit struct {
	Value bool
}

// VarRef reads a local or global variable.
type VarRef struct {
	Name string
	Ty   Type
}

// UnaryExpr applies a prefix operator.
type UnaryExpr struct {
	Op  UnaryOp
	Arg Expr
	Ty  Type
}

// BinaryExpr applies an infix operator.
type BinaryExpr struct {
	Op          BinaryOp
	Left, Right Expr
	Ty          Type
}

// CallExpr calls a procedure. Ty is the callee's return type.
type CallExpr struct {
	Proc string
	Args []Expr
	Ty   Type
}

func (*IntLit) Type() Type       { return Int }
func (*BoolLit) Type() Type      { return Bool }
func (e *VarRef) Type() Type     { return e.Ty }
func (e *UnaryExpr) Type() Type  { return e.Ty }
func (e *BinaryExpr) Type() Type { return e.Ty }
func (e *CallExpr) Type() Type   { return e.Ty }

func (*IntLit) exprNode()     {}
func (*BoolLit) exprNode()    {}
func (*VarRef) exprNode()     {}
func (*UnaryExpr) exprNode()  {}
func (*BinaryExpr) exprNode() {}
func (*CallExpr) exprNode()   {}

// Stmt is a statement. The set of implementations is closed.
type Stmt interface {
	stmtNode()
}

// BlockStmt is a braced statement list that opens a scope.
type BlockStmt struct {
	Stmts []Stmt
}

// VarDecl declares a local variable in the enclosing block.
type VarDecl struct {
	Name string
	Ty   Type
	Init Expr
}

// AssignStmt stores into an existing variable.
type AssignStmt struct {
	Name  string
	Value Expr
}

// EvalStmt evaluates an expression for its side effects.
type EvalStmt struct {
	X Expr
}

// PrintStmt prints an integer or boolean.
type PrintStmt struct {
	X Expr
}

// IfStmt is a conditional. Else is nil, a *BlockStmt or an *IfStmt.
type IfStmt struct {
	Cond Expr
	Then *BlockStmt
	Else Stmt
}

// WhileStmt is a pre-tested loop.
type WhileStmt struct {
	Cond Expr
	Body *BlockStmt
}

// BreakStmt leaves the innermost loop.
type BreakStmt struct{}

// ContinueStmt jumps to the head of the innermost loop.
type ContinueStmt struct{}

// ReturnStmt leaves the procedure. Value is nil in void procedures.
type ReturnStmt struct {
	Value Expr
}

func (*BlockStmt) stmtNode()    {}
func (*VarDecl) stmtNode()      {}
func (*AssignStmt) stmtNode()   {}
func (*EvalStmt) stmtNode()     {}
func (*PrintStmt) stmtNode()    {}
func (*IfStmt) stmtNode()       {}
func (*WhileStmt) stmtNode()    {}
func (*BreakStmt) stmtNode()    {}
func (*ContinueStmt) stmtNode() {}
func (*ReturnStmt) stmtNode()   {}

// Param is a typed procedure parameter.
type Param struct {
	Name string
	Ty   Type
}

// Proc is a procedure declaration.
type Proc struct {
	Name   string
	Params []Param
	Return Type
	Body   *BlockStmt
}

// GlobalVar is a global variable with a constant initializer. Booleans are
// stored as 0 or 1.
type GlobalVar struct {
	Name string
	Ty   Type
	Init int64
}

// Program is a type-checked compilation unit.
type Program struct {
	Globals []*GlobalVar
	Procs   []*Proc
}
