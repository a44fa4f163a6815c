package verify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/tacopt/tac"
)

// Run is the observable behavior of one simulated execution.
type Run struct {
	Output []int64
	Result int64
	Steps  int
	Time   sim.VTimeInSec
	Err    error
}

// ProcSize is the instruction count of one procedure before and after
// optimization. Before is zero for procedures that only exist after.
type ProcSize struct {
	Name   string
	Before int
	After  int
}

// Report compares a program before and after optimization.
type Report struct {
	Entry      string
	LintIssues []Issue
	Sizes      []ProcSize
	Before     Run
	After      Run
	Equivalent bool

	// Inconclusive is set when a run stopped at the step limit. Equivalent
	// then only states that the shorter output is a prefix of the longer.
	Inconclusive bool
}

// GenerateReport lints after and runs entry in both programs on one engine.
// Runs that both finish are equivalent when they print the same values,
// return the same value and either both succeed or both fail.
func GenerateReport(before, after *tac.Program, entry string, sims SimulatorBuilder) *Report {
	r := &Report{
		Entry:      entry,
		LintIssues: RunLint(after),
	}

	for _, p := range after.Procs {
		size := ProcSize{Name: p.Name, After: len(p.Body)}
		if orig, ok := before.Proc(p.Name); ok {
			size.Before = len(orig.Body)
		}
		r.Sizes = append(r.Sizes, size)
	}

	if sims.engine == nil {
		sims = sims.WithEngine(sim.NewSerialEngine())
	}
	r.Before = simulate(sims, "Before", before, entry)
	r.After = simulate(sims, "After", after, entry)

	if errors.Is(r.Before.Err, ErrStepLimit) || errors.Is(r.After.Err, ErrStepLimit) {
		r.Inconclusive = true
		r.Equivalent = isPrefix(r.Before.Output, r.After.Output) ||
			isPrefix(r.After.Output, r.Before.Output)
		return r
	}

	r.Equivalent = (r.Before.Err == nil) == (r.After.Err == nil) &&
		r.Before.Result == r.After.Result &&
		len(r.Before.Output) == len(r.After.Output) &&
		isPrefix(r.Before.Output, r.After.Output)

	return r
}

func simulate(sims SimulatorBuilder, name string, p *tac.Program, entry string) Run {
	fs, err := sims.Build(name, p)
	if err != nil {
		return Run{Err: err}
	}

	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		fs.TraceInstr = func(proc string, pc int, inst *tac.Instr) {
			slog.Debug("Executing instruction",
				"sim", name, "proc", proc, "pc", pc, "instr", inst.String())
		}
	}

	err = fs.Run(entry)
	return Run{
		Output: fs.Output(),
		Result: fs.Result(),
		Steps:  fs.Steps(),
		Time:   fs.Elapsed(),
		Err:    err,
	}
}

// isPrefix reports whether a is a prefix of b.
func isPrefix(a, b []int64) bool {
	if len(a) > len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// WriteReport writes a formatted report to a writer
func (r *Report) WriteReport(w io.Writer) {
	separator := strings.Repeat("=", 60)

	fmt.Fprintln(w, separator)
	fmt.Fprintln(w, "TAC OPTIMIZATION VERIFICATION REPORT")
	fmt.Fprintln(w, separator)

	sizes := table.NewWriter()
	sizes.SetTitle("Instructions per procedure")
	sizes.AppendHeader(table.Row{"Procedure", "Before", "After"})
	for _, size := range r.Sizes {
		sizes.AppendRow(table.Row{"@" + size.Name, size.Before, size.After})
	}
	fmt.Fprintln(w, sizes.Render())

	fmt.Fprintln(w)
	if len(r.LintIssues) == 0 {
		fmt.Fprintln(w, "✓ No lint issues found!")
	} else {
		issues := table.NewWriter()
		issues.SetTitle(fmt.Sprintf("%d lint issues", len(r.LintIssues)))
		issues.AppendHeader(table.Row{"Type", "Procedure", "Index", "Message"})
		for _, issue := range r.LintIssues {
			issues.AppendRow(table.Row{issue.Type, issue.Proc, issue.Index, issue.Message})
		}
		fmt.Fprintln(w, issues.Render())
	}

	fmt.Fprintln(w)
	runs := table.NewWriter()
	runs.SetTitle("Simulation of @" + r.Entry)
	runs.AppendHeader(table.Row{"Program", "Steps", "Time", "Result", "Printed", "Error"})
	for _, row := range []struct {
		name string
		run  Run
	}{{"before", r.Before}, {"after", r.After}} {
		errText := ""
		if row.run.Err != nil {
			errText = row.run.Err.Error()
		}
		elapsed := fmt.Sprintf("%.0f ns", float64(row.run.Time)*1e9)
		runs.AppendRow(table.Row{
			row.name, row.run.Steps, elapsed, row.run.Result, len(row.run.Output), errText,
		})
	}
	fmt.Fprintln(w, runs.Render())

	fmt.Fprintln(w)
	switch {
	case r.Equivalent && r.Inconclusive:
		fmt.Fprintln(w, "✓ Optimized program agrees up to the step limit")
	case r.Equivalent:
		fmt.Fprintln(w, "✓ Optimized program is equivalent")
	default:
		fmt.Fprintln(w, "⚠ Optimized program diverges")
	}
}

// SaveReportToFile saves the report to a file.
func (r *Report) SaveReportToFile(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	r.WriteReport(file)
	return nil
}
