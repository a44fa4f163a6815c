package verify

import (
	"errors"
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/tacopt/tac"
)

// ErrStepLimit is returned when a run executes more instructions than the
// simulator allows.
var ErrStepLimit = errors.New("step limit exceeded")

type procImage struct {
	proc   *tac.Proc
	labels map[tac.Label]int
}

type frame struct {
	image *procImage
	pc    int
	temps map[tac.Temp]int64

	// staged holds the arguments of the next call, retDest the operand that
	// receives the result of the call in progress.
	staged  []int64
	retDest tac.Operand
}

// FunctionalSimulator interprets a TAC program one instruction per tick.
type FunctionalSimulator struct {
	*sim.TickingComponent

	procs    map[string]*procImage
	initial  map[string]int64
	maxSteps int

	globals map[string]int64
	stack   []*frame
	steps   int
	elapsed sim.VTimeInSec
	output  []int64
	result  int64
	done    bool
	err     error

	// TraceInstr, when set, is called before each instruction executes.
	TraceInstr func(proc string, pc int, inst *tac.Instr)
}

// Tick executes one instruction.
func (fs *FunctionalSimulator) Tick() (madeProgress bool) {
	if fs.done || fs.err != nil || len(fs.stack) == 0 {
		return false
	}

	if fs.maxSteps > 0 && fs.steps >= fs.maxSteps {
		fs.err = fmt.Errorf("@%s: %w (%d)", fs.top().image.proc.Name, ErrStepLimit, fs.maxSteps)
		return false
	}
	fs.steps++

	if err := fs.step(); err != nil {
		f := fs.top()
		fs.err = fmt.Errorf("@%s, instruction %d: %w", f.image.proc.Name, f.pc, err)
		return false
	}

	return true
}

// Run executes procedure entry with the given arguments until it returns.
func (fs *FunctionalSimulator) Run(entry string, args ...int64) error {
	image, ok := fs.procs[entry]
	if !ok {
		return fmt.Errorf("unknown entry procedure @%s", entry)
	}
	if len(args) != len(image.proc.Params) {
		return fmt.Errorf("@%s takes %d arguments, got %d",
			entry, len(image.proc.Params), len(args))
	}

	fs.reset()
	fs.stack = append(fs.stack, newFrame(image, args))

	// The previous run may have ended at the current time, so the first
	// tick goes to the next cycle.
	start := fs.Engine.CurrentTime()
	fs.TickLater()
	fs.Engine.Run()
	fs.elapsed = fs.Engine.CurrentTime() - start

	if fs.err != nil {
		return fs.err
	}
	if !fs.done {
		return fmt.Errorf("@%s did not return", entry)
	}
	return nil
}

// Output returns the values printed by the last run, in order.
func (fs *FunctionalSimulator) Output() []int64 {
	return append([]int64(nil), fs.output...)
}

// Result returns the value returned by the entry procedure of the last run.
func (fs *FunctionalSimulator) Result() int64 {
	return fs.result
}

// Steps returns the number of instructions executed by the last run.
func (fs *FunctionalSimulator) Steps() int {
	return fs.steps
}

// Elapsed returns the simulated time the last run took. It depends on the
// frequency the simulator was built with.
func (fs *FunctionalSimulator) Elapsed() sim.VTimeInSec {
	return fs.elapsed
}

// Global returns the current value of a global variable.
func (fs *FunctionalSimulator) Global(name string) (int64, bool) {
	v, ok := fs.globals[name]
	return v, ok
}

func (fs *FunctionalSimulator) reset() {
	fs.globals = make(map[string]int64, len(fs.initial))
	for name, v := range fs.initial {
		fs.globals[name] = v
	}
	fs.stack = nil
	fs.steps = 0
	fs.elapsed = 0
	fs.output = nil
	fs.result = 0
	fs.done = false
	fs.err = nil
}

func newFrame(image *procImage, args []int64) *frame {
	f := &frame{image: image, temps: make(map[tac.Temp]int64)}
	for i, p := range image.proc.Params {
		f.temps[p] = args[i]
	}
	return f
}

func (fs *FunctionalSimulator) top() *frame {
	return fs.stack[len(fs.stack)-1]
}

func (fs *FunctionalSimulator) read(f *frame, o tac.Operand) (int64, error) {
	switch o := o.(type) {
	case tac.Int:
		return int64(o), nil
	case tac.Temp:
		v, ok := f.temps[o]
		if !ok {
			return 0, fmt.Errorf("read of undefined temporary %s", o)
		}
		return v, nil
	case tac.Global:
		v, ok := fs.globals[string(o)]
		if !ok {
			return 0, fmt.Errorf("read of undeclared global %s", o)
		}
		return v, nil
	}

	return 0, fmt.Errorf("operand %v is not a value", o)
}

func (fs *FunctionalSimulator) write(f *frame, o tac.Operand, v int64) error {
	switch o := o.(type) {
	case tac.Temp:
		f.temps[o] = v
		return nil
	case tac.Global:
		if _, ok := fs.globals[string(o)]; !ok {
			return fmt.Errorf("write to undeclared global %s", o)
		}
		fs.globals[string(o)] = v
		return nil
	}

	return fmt.Errorf("operand %v is not a destination", o)
}

func (fs *FunctionalSimulator) jump(f *frame, inst *tac.Instr) error {
	l, _ := inst.Target()
	pc, ok := f.image.labels[l]
	if !ok {
		return fmt.Errorf("jump to undefined label %s", l)
	}
	f.pc = pc
	return nil
}

func (fs *FunctionalSimulator) step() error {
	f := fs.top()
	body := f.image.proc.Body
	if f.pc < 0 || f.pc >= len(body) {
		return fmt.Errorf("control fell off the end of the body")
	}

	inst := body[f.pc]
	if fs.TraceInstr != nil {
		fs.TraceInstr(f.image.proc.Name, f.pc, inst)
	}

	switch {
	case inst.Op == tac.OpConst, inst.Op == tac.OpCopy:
		v, err := fs.read(f, inst.Args[0])
		if err != nil {
			return err
		}
		f.pc++
		return fs.write(f, inst.Result, v)

	case inst.Op.IsBinary():
		a, err := fs.read(f, inst.Args[0])
		if err != nil {
			return err
		}
		b, err := fs.read(f, inst.Args[1])
		if err != nil {
			return err
		}
		v, err := evalBinary(inst.Op, a, b)
		if err != nil {
			return err
		}
		f.pc++
		return fs.write(f, inst.Result, v)

	case inst.Op.IsUnary():
		a, err := fs.read(f, inst.Args[0])
		if err != nil {
			return err
		}
		v, err := evalUnary(inst.Op, a)
		if err != nil {
			return err
		}
		f.pc++
		return fs.write(f, inst.Result, v)

	case inst.Op == tac.OpLabel:
		f.pc++
		return nil

	case inst.Op == tac.OpJmp:
		return fs.jump(f, inst)

	case inst.Op.IsCondJump():
		v, err := fs.read(f, inst.Args[0])
		if err != nil {
			return err
		}
		if inst.Op.Holds(v) {
			return fs.jump(f, inst)
		}
		f.pc++
		return nil

	case inst.Op == tac.OpParam:
		return fs.stage(f, inst)

	case inst.Op == tac.OpCall:
		return fs.call(f, inst)

	case inst.Op == tac.OpRet:
		return fs.ret(f, inst)

	case inst.Op == tac.OpPrint:
		v, err := fs.read(f, inst.Args[0])
		if err != nil {
			return err
		}
		fs.output = append(fs.output, v)
		f.pc++
		return nil
	}

	return fmt.Errorf("unknown opcode %s", inst.Op)
}

func (fs *FunctionalSimulator) stage(f *frame, inst *tac.Instr) error {
	idx := int(inst.Args[0].(tac.Int))
	v, err := fs.read(f, inst.Args[1])
	if err != nil {
		return err
	}

	for len(f.staged) < idx {
		f.staged = append(f.staged, 0)
	}
	f.staged[idx-1] = v
	f.pc++
	return nil
}

func (fs *FunctionalSimulator) call(f *frame, inst *tac.Instr) error {
	name := string(inst.Args[0].(tac.ProcRef))
	n := int(inst.Args[1].(tac.Int))

	callee, ok := fs.procs[name]
	if !ok {
		return fmt.Errorf("call to unknown procedure @%s", name)
	}
	if n != len(callee.proc.Params) || len(f.staged) < n {
		return fmt.Errorf("call to @%s with %d arguments (%d staged, %d expected)",
			name, n, len(f.staged), len(callee.proc.Params))
	}

	args := f.staged[:n]
	f.staged = nil
	f.retDest = inst.Result
	fs.stack = append(fs.stack, newFrame(callee, args))
	return nil
}

func (fs *FunctionalSimulator) ret(f *frame, inst *tac.Instr) error {
	var v int64
	if len(inst.Args) == 1 {
		var err error
		if v, err = fs.read(f, inst.Args[0]); err != nil {
			return err
		}
	}

	fs.stack = fs.stack[:len(fs.stack)-1]
	if len(fs.stack) == 0 {
		fs.result = v
		fs.done = true
		return nil
	}

	caller := fs.top()
	dest := caller.retDest
	caller.retDest = nil
	caller.pc++
	if dest != nil {
		return fs.write(caller, dest, v)
	}
	return nil
}
