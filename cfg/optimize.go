package cfg

import (
	"log/slog"

	"github.com/sarchlab/tacopt/tac"
)

// A Pass rewrites a graph in place and reports whether it changed anything.
// A pass must leave the block invariants intact.
type Pass interface {
	Name() string
	Run(g *Graph) bool
}

// Options selects the optional passes of the pipeline. Unreachable-code
// elimination always runs.
type Options struct {
	CondJump bool
	Thread   bool
	Coalesce bool

	// MaxRounds bounds the number of pipeline rounds. Zero means no bound.
	MaxRounds int
}

// DefaultOptions enables every pass.
func DefaultOptions() Options {
	return Options{
		CondJump:  true,
		Thread:    true,
		Coalesce:  true,
		MaxRounds: 64,
	}
}

// Pipeline returns the passes of one optimization round, in order.
func (o Options) Pipeline() []Pass {
	var passes []Pass
	if o.CondJump {
		passes = append(passes, CondJump{})
	}
	passes = append(passes, UCE{})
	if o.Thread {
		passes = append(passes, Thread{})
	}
	if o.Coalesce {
		passes = append(passes, Coalesce{})
	}
	return append(passes, UCE{})
}

// Optimize runs the pipeline until a round changes nothing. The invariants
// are checked after every pass.
func Optimize(g *Graph, opts Options) (err error) {
	defer recoverInvariant(&err)

	passes := opts.Pipeline()
	for round := 1; ; round++ {
		if opts.MaxRounds > 0 && round > opts.MaxRounds {
			slog.Warn("Optimization stopped before reaching a fixpoint",
				"proc", g.Proc, "rounds", opts.MaxRounds)
			return nil
		}

		changed := false
		for _, p := range passes {
			if p.Run(g) {
				changed = true
				Trace("Pass changed graph",
					"proc", g.Proc, "round", round, "pass", p.Name(), "blocks", g.Len())
			}
			g.check()
		}

		if !changed {
			slog.Debug("Optimized CFG", "proc", g.Proc, "rounds", round, "blocks", g.Len())
			return nil
		}
	}
}

// OptimizeProc builds, optimizes and serializes the body of proc.
func OptimizeProc(proc *tac.Proc, opts Options) ([]*tac.Instr, error) {
	g, err := Build(proc)
	if err != nil {
		return nil, err
	}

	if err := Optimize(g, opts); err != nil {
		return nil, err
	}

	return g.Serialize(), nil
}
