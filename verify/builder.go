package verify

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/tacopt/tac"
)

// SimulatorBuilder can create functional simulators.
type SimulatorBuilder struct {
	engine   sim.Engine
	freq     sim.Freq
	maxSteps int
}

// NewSimulatorBuilder returns a builder with a 1 GHz clock and a limit of
// one million executed instructions per run.
func NewSimulatorBuilder() SimulatorBuilder {
	return SimulatorBuilder{
		freq:     1 * sim.GHz,
		maxSteps: 1000000,
	}
}

// WithEngine sets the engine. A serial engine is created if none is given.
func (b SimulatorBuilder) WithEngine(engine sim.Engine) SimulatorBuilder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency at which instructions execute.
func (b SimulatorBuilder) WithFreq(freq sim.Freq) SimulatorBuilder {
	b.freq = freq
	return b
}

// WithMaxSteps bounds the instructions executed per run. Zero disables the
// bound.
func (b SimulatorBuilder) WithMaxSteps(n int) SimulatorBuilder {
	if n < 0 {
		panic("max steps must not be negative")
	}
	b.maxSteps = n
	return b
}

// Build creates a simulator for program.
func (b SimulatorBuilder) Build(name string, program *tac.Program) (*FunctionalSimulator, error) {
	engine := b.engine
	if engine == nil {
		engine = sim.NewSerialEngine()
	}
	freq := b.freq
	if freq == 0 {
		freq = 1 * sim.GHz
	}

	fs := &FunctionalSimulator{
		procs:    make(map[string]*procImage, len(program.Procs)),
		initial:  make(map[string]int64, len(program.Globals)),
		maxSteps: b.maxSteps,
	}
	fs.TickingComponent = sim.NewTickingComponent(name, engine, freq, fs)

	for _, g := range program.Globals {
		fs.initial[g.Name] = g.Init
	}

	for _, p := range program.Procs {
		if _, dup := fs.procs[p.Name]; dup {
			return nil, fmt.Errorf("duplicate procedure @%s", p.Name)
		}

		image := &procImage{proc: p, labels: make(map[tac.Label]int)}
		for i, inst := range p.Body {
			if inst.Op != tac.OpLabel {
				continue
			}
			l, _ := inst.Target()
			if _, dup := image.labels[l]; dup {
				return nil, fmt.Errorf("@%s: duplicate label %s", p.Name, l)
			}
			image.labels[l] = i
		}
		fs.procs[p.Name] = image
	}

	return fs, nil
}

// Interpret runs entry of program on a fresh engine and returns the printed
// values and the entry's return value.
func Interpret(program *tac.Program, entry string, maxSteps int, args ...int64) ([]int64, int64, error) {
	fs, err := NewSimulatorBuilder().
		WithMaxSteps(maxSteps).
		Build("FuncSim", program)
	if err != nil {
		return nil, 0, err
	}

	if err := fs.Run(entry, args...); err != nil {
		return fs.Output(), 0, err
	}
	return fs.Output(), fs.Result(), nil
}
