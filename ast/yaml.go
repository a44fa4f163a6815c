package ast

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type yamlProgram struct {
	Globals []yamlGlobal `yaml:"globals"`
	Procs   []yamlProc   `yaml:"procs"`
}

type yamlGlobal struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	Init string `yaml:"init"`
}

type yamlParam struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type yamlProc struct {
	Name   string      `yaml:"name"`
	Params []yamlParam `yaml:"params"`
	Return string      `yaml:"return"`
	Body   []yamlStmt  `yaml:"body"`
}

type yamlStmt struct {
	Kind  string     `yaml:"kind"`
	Name  string     `yaml:"name"`
	Type  string     `yaml:"type"`
	Init  *yamlExpr  `yaml:"init"`
	Value *yamlExpr  `yaml:"value"`
	Expr  *yamlExpr  `yaml:"expr"`
	Cond  *yamlExpr  `yaml:"cond"`
	Then  []yamlStmt `yaml:"then"`
	Else  []yamlStmt `yaml:"else"`
	Body  []yamlStmt `yaml:"body"`
}

type yamlExpr struct {
	Kind  string      `yaml:"kind"`
	Value string      `yaml:"value"`
	Name  string      `yaml:"name"`
	Type  string      `yaml:"type"`
	Op    string      `yaml:"op"`
	Arg   *yamlExpr   `yaml:"arg"`
	Left  *yamlExpr   `yaml:"left"`
	Right *yamlExpr   `yaml:"right"`
	Args  []*yamlExpr `yaml:"args"`
}

// LoadProgramFileFromYAML reads a typed AST stored as YAML.
func LoadProgramFileFromYAML(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open AST file: %w", err)
	}
	defer f.Close()

	return ReadProgramYAML(f)
}

// ReadProgramYAML decodes a typed AST. Each statement and expression node
// names its variant in a `kind` field.
func ReadProgramYAML(r io.Reader) (*Program, error) {
	var yp yamlProgram
	if err := yaml.NewDecoder(r).Decode(&yp); err != nil {
		return nil, fmt.Errorf("failed to decode AST: %w", err)
	}

	p := &Program{}
	for _, yg := range yp.Globals {
		g, err := convertGlobal(yg)
		if err != nil {
			return nil, err
		}
		p.Globals = append(p.Globals, g)
	}
	for _, yproc := range yp.Procs {
		proc, err := convertProc(yproc)
		if err != nil {
			return nil, fmt.Errorf("proc %s: %w", yproc.Name, err)
		}
		p.Procs = append(p.Procs, proc)
	}

	return p, nil
}

func convertGlobal(yg yamlGlobal) (*GlobalVar, error) {
	ty, err := ParseType(yg.Type)
	if err != nil {
		return nil, fmt.Errorf("global %s: %w", yg.Name, err)
	}

	g := &GlobalVar{Name: yg.Name, Ty: ty}
	switch yg.Init {
	case "", "false":
	case "true":
		g.Init = 1
	default:
		g.Init, err = strconv.ParseInt(yg.Init, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("global %s: invalid initializer %q", yg.Name, yg.Init)
		}
	}
	return g, nil
}

func convertProc(yp yamlProc) (*Proc, error) {
	ret, err := ParseType(yp.Return)
	if err != nil {
		return nil, err
	}

	proc := &Proc{Name: yp.Name, Return: ret}
	for _, param := range yp.Params {
		ty, err := ParseType(param.Type)
		if err != nil {
			return nil, err
		}
		proc.Params = append(proc.Params, Param{Name: param.Name, Ty: ty})
	}

	proc.Body, err = convertBlock(yp.Body)
	if err != nil {
		return nil, err
	}
	return proc, nil
}

func convertBlock(ys []yamlStmt) (*BlockStmt, error) {
	b := &BlockStmt{}
	for i := range ys {
		s, err := convertStmt(&ys[i])
		if err != nil {
			return nil, err
		}
		b.Stmts = append(b.Stmts, s)
	}
	return b, nil
}

func convertStmt(ys *yamlStmt) (Stmt, error) {
	switch ys.Kind {
	case "block":
		return convertBlock(ys.Body)

	case "vardecl":
		ty, err := ParseType(ys.Type)
		if err != nil {
			return nil, err
		}
		init, err := convertExpr(ys.Init)
		if err != nil {
			return nil, err
		}
		return &VarDecl{Name: ys.Name, Ty: ty, Init: init}, nil

	case "assign":
		v, err := convertExpr(ys.Value)
		if err != nil {
			return nil, err
		}
		return &AssignStmt{Name: ys.Name, Value: v}, nil

	case "eval", "print":
		x, err := convertExpr(ys.Expr)
		if err != nil {
			return nil, err
		}
		if ys.Kind == "print" {
			return &PrintStmt{X: x}, nil
		}
		return &EvalStmt{X: x}, nil

	case "if":
		return convertIf(ys)

	case "while":
		cond, err := convertExpr(ys.Cond)
		if err != nil {
			return nil, err
		}
		body, err := convertBlock(ys.Body)
		if err != nil {
			return nil, err
		}
		return &WhileStmt{Cond: cond, Body: body}, nil

	case "break":
		return &BreakStmt{}, nil

	case "continue":
		return &ContinueStmt{}, nil

	case "return":
		if ys.Value == nil {
			return &ReturnStmt{}, nil
		}
		v, err := convertExpr(ys.Value)
		if err != nil {
			return nil, err
		}
		return &ReturnStmt{Value: v}, nil
	}

	return nil, fmt.Errorf("unknown statement kind %q", ys.Kind)
}

func convertIf(ys *yamlStmt) (Stmt, error) {
	cond, err := convertExpr(ys.Cond)
	if err != nil {
		return nil, err
	}
	then, err := convertBlock(ys.Then)
	if err != nil {
		return nil, err
	}

	s := &IfStmt{Cond: cond, Then: then}
	switch {
	case ys.Else == nil:
	case len(ys.Else) == 1 && ys.Else[0].Kind == "if":
		s.Else, err = convertIf(&ys.Else[0])
	default:
		s.Else, err = convertBlock(ys.Else)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func convertExpr(ye *yamlExpr) (Expr, error) {
	if ye == nil {
		return nil, fmt.Errorf("missing expression")
	}

	switch ye.Kind {
	case "int":
		v, err := strconv.ParseInt(ye.Value, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer literal %q", ye.Value)
		}
		return Num(v), nil

	case "bool":
		v, err := strconv.ParseBool(ye.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid boolean literal %q", ye.Value)
		}
		return Lit(v), nil

	case "var":
		ty, err := ParseType(ye.Type)
		if err != nil {
			return nil, err
		}
		return &VarRef{Name: ye.Name, Ty: ty}, nil

	case "unop":
		op, err := ParseUnaryOp(ye.Op)
		if err != nil {
			return nil, err
		}
		arg, err := convertExpr(ye.Arg)
		if err != nil {
			return nil, err
		}
		return Unary(op, arg), nil

	case "binop":
		op, err := ParseBinaryOp(ye.Op)
		if err != nil {
			return nil, err
		}
		l, err := convertExpr(ye.Left)
		if err != nil {
			return nil, err
		}
		r, err := convertExpr(ye.Right)
		if err != nil {
			return nil, err
		}
		return Binary(op, l, r), nil

	case "call":
		ty, err := ParseType(ye.Type)
		if err != nil {
			return nil, err
		}
		call := &CallExpr{Proc: ye.Name, Ty: ty}
		for _, ya := range ye.Args {
			a, err := convertExpr(ya)
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, a)
		}
		return call, nil
	}

	return nil, fmt.Errorf("unknown expression kind %q", ye.Kind)
}
