// Package verify provides checking tools for three-address code.
//
// It implements two complementary stages:
//
// 1. Static Lint (lint.go): structural checks at module boundaries
//   - SHAPE checks: operand kinds and counts per opcode
//   - LABEL checks: duplicate label definitions, jumps to undefined labels
//   - TEMP checks: temporaries missing from the procedure record
//   - FLOW checks: bodies whose control falls off the end
//   - CALL checks: unknown callees, argument counts, param sequences
//
// 2. Functional Simulator (funcsim.go): a TAC interpreter
//   - Executes one instruction per tick of an akita engine
//   - Records every printed value
//   - Used to compare a program before and after CFG optimization
//
// # IR Structure
//
// A tac.Program holds the globals and procedures of one compilation unit:
//
//	tac.Program
//	  ├── GlobalVar (name, initial value)
//	  └── Proc (one or more)
//	      └── Instr (ordered)
//	          ├── Op     (const, copy, add, ..., jz, ..., call, ret, print)
//	          ├── Args   (literal, %temp, %.Llabel, @global, @proc)
//	          └── Result (%temp or @global)
//
// # Calling Convention
//
// `param i, v` stages argument i of the next call in the caller's frame.
// `call @f, n` binds the staged values to the n parameters of f and pushes
// a frame. `ret v` pops it and stores v into the call's result, if any.
//
// # Usage Example
//
//	issues := verify.RunLint(program)
//	for _, issue := range issues {
//	    log.Printf("[%s] @%s #%d: %s", issue.Type, issue.Proc, issue.Index, issue.Message)
//	}
//
//	fs, err := verify.NewSimulatorBuilder().
//	    WithMaxSteps(100000).
//	    Build("FuncSim", program)
//	if err != nil {
//	    panic(err)
//	}
//	if err := fs.Run("main"); err != nil {
//	    panic(err)
//	}
//	fmt.Println(fs.Output())
package verify

// IssueType categorizes lint issues
type IssueType string

const (
	IssueShape  IssueType = "SHAPE"  // Malformed instruction
	IssueLabel  IssueType = "LABEL"  // Duplicate or undefined label
	IssueTemp   IssueType = "TEMP"   // Temporary not registered in the procedure
	IssueGlobal IssueType = "GLOBAL" // Undeclared or duplicate global
	IssueFlow   IssueType = "FLOW"   // Control falls off the end of the body
	IssueCall   IssueType = "CALL"   // Bad callee, argument count or param sequence
)

// Issue represents a single lint issue
type Issue struct {
	Type    IssueType              // Category of the issue
	Proc    string                 // Procedure name ("" for program-level issues)
	Index   int                    // Instruction index or -1
	Message string                 // Human-readable description
	Details map[string]interface{} // Additional structured data
}
