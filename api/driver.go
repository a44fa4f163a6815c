// Package api defines the driver API of the compilation pipeline.
package api

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/sarchlab/tacopt/ast"
	"github.com/sarchlab/tacopt/cfg"
	"github.com/sarchlab/tacopt/config"
	"github.com/sarchlab/tacopt/emit"
	"github.com/sarchlab/tacopt/tac"
	"github.com/sarchlab/tacopt/verify"
)

// Backend consumes the final TAC of a compilation.
type Backend interface {
	Generate(p *tac.Program) error
}

// FileBackend writes the program as JSON TAC.
type FileBackend struct {
	Path string
}

// Generate writes p to the backend's file.
func (b FileBackend) Generate(p *tac.Program) error {
	return tac.SaveProgramFile(b.Path, p)
}

// Driver runs the pipeline stages on a compilation unit.
type Driver interface {
	// Emit lowers a typed AST to TAC and lints the result.
	Emit(prog *ast.Program) (*tac.Program, error)

	// CompileTAC optimizes TAC, lints and optionally verifies the result,
	// and hands it to the backend. The input is not modified.
	CompileTAC(prog *tac.Program) (*tac.Program, error)

	// Compile runs Emit and then CompileTAC, unless the configuration stops
	// after TAC emission. It returns the program of the last stage run.
	Compile(prog *ast.Program) (*tac.Program, error)
}

type driverImpl struct {
	name       string
	config     config.Config
	backend    Backend
	report     io.Writer
	reportFile string
	cfgDump    io.Writer
}

func (d *driverImpl) Compile(prog *ast.Program) (*tac.Program, error) {
	tp, err := d.Emit(prog)
	if err != nil {
		return nil, err
	}

	if d.config.StopAfterTAC {
		slog.Info("Stopped after TAC emission", "driver", d.name)
		return tp, nil
	}

	return d.CompileTAC(tp)
}

func (d *driverImpl) Emit(prog *ast.Program) (*tac.Program, error) {
	tp, err := emit.EmitProgram(prog)
	if err != nil {
		return nil, err
	}

	if err := d.lint(tp, "emitted TAC"); err != nil {
		return nil, err
	}

	return tp, nil
}

func (d *driverImpl) CompileTAC(prog *tac.Program) (*tac.Program, error) {
	if err := d.lint(prog, "input TAC"); err != nil {
		return nil, err
	}

	out := prog.Clone()
	if !d.config.NoCFG {
		if err := d.optimize(out); err != nil {
			return nil, err
		}
		if err := d.lint(out, "optimized TAC"); err != nil {
			return nil, err
		}
	}

	if d.config.Verify {
		if err := d.verify(prog, out); err != nil {
			return nil, err
		}
	}

	if d.config.StopAfterCFG {
		slog.Info("Stopped after CFG optimization", "driver", d.name)
		return out, nil
	}

	if d.backend != nil {
		if err := d.backend.Generate(out); err != nil {
			return nil, fmt.Errorf("backend failed: %w", err)
		}
	}

	return out, nil
}

// optimize replaces each procedure body with its optimized layout. The
// label and temporary lists are narrowed to what the new body still uses.
func (d *driverImpl) optimize(p *tac.Program) error {
	opts := d.config.Options()
	for _, proc := range p.Procs {
		before := len(proc.Body)

		g, err := cfg.Build(proc)
		if err != nil {
			return err
		}
		if err := cfg.Optimize(g, opts); err != nil {
			return err
		}
		if d.cfgDump != nil {
			g.Dump(d.cfgDump)
		}

		proc.Body = g.Serialize()
		proc.Labels = tac.LabelsOf(proc.Body)
		proc.Temps = proc.UsedTemps()

		slog.Debug("Optimized procedure",
			"driver", d.name, "proc", proc.Name, "before", before, "after", len(proc.Body))
	}
	return nil
}

func (d *driverImpl) lint(p *tac.Program, what string) error {
	fatal := 0
	for _, issue := range verify.RunLint(p) {
		if !issue.Fatal() {
			slog.Warn("Lint issue", "driver", d.name, "stage", what, "issue", issue.String())
			continue
		}
		slog.Error("Lint issue", "driver", d.name, "stage", what, "issue", issue.String())
		fatal++
	}

	if fatal > 0 {
		return fmt.Errorf("%s has %d lint errors", what, fatal)
	}
	return nil
}

func (d *driverImpl) verify(before, after *tac.Program) error {
	if _, ok := before.Proc(d.config.Entry); !ok {
		slog.Warn("Skipping verification, no entry procedure",
			"driver", d.name, "entry", d.config.Entry)
		return nil
	}

	r := verify.GenerateReport(before, after, d.config.Entry, d.config.Simulator())
	if d.report != nil {
		r.WriteReport(d.report)
	}
	if d.reportFile != "" {
		if err := r.SaveReportToFile(d.reportFile); err != nil {
			return err
		}
	}

	if !r.Equivalent {
		return fmt.Errorf("optimized @%s diverges: printed %v before and %v after",
			d.config.Entry, r.Before.Output, r.After.Output)
	}

	if r.Inconclusive {
		slog.Warn("Verification reached the step limit, outputs agree so far",
			"driver", d.name, "entry", d.config.Entry,
			"printed_before", len(r.Before.Output), "printed_after", len(r.After.Output))
		return nil
	}

	slog.Info("Verified optimization",
		"driver", d.name, "entry", d.config.Entry,
		"steps_before", r.Before.Steps, "steps_after", r.After.Steps)
	return nil
}
