// Command tacopt lowers a typed AST to three-address code, optimizes its
// control-flow graph and writes the result as JSON TAC.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/tacopt/api"
	"github.com/sarchlab/tacopt/ast"
	"github.com/sarchlab/tacopt/config"
	"github.com/sarchlab/tacopt/tac"
)

var (
	stopTAC    = flag.Bool("stop-tac", false, "Stop after TAC emission.")
	stopCFG    = flag.Bool("stop-cfg", false, "Stop after CFG optimization.")
	noCFG      = flag.Bool("no-cfg", false, "Skip CFG optimization.")
	compileTAC = flag.Bool("compile-tac", false, "Read JSON TAC instead of a typed AST.")
	keepTAC    = flag.Bool("keep-tac", false, "Also write the unoptimized TAC to <base>.emit.tac.json.")
	verifyRun  = flag.Bool("verify", false, "Check that the optimized program prints the same values.")
	reportPath = flag.String("report", "", "Write the verification report to this file instead of stdout.")
	dumpCFG    = flag.Bool("dump-cfg", false, "Print the optimized CFG of each procedure.")
	configPath = flag.String("config", "", "YAML configuration file.")
	output     = flag.String("o", "", "Output file. Defaults to <base>.tac.json.")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <input>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		atexit.Exit(1)
	}

	if err := run(flag.Arg(0)); err != nil {
		slog.Error("Compilation failed", "input", flag.Arg(0), "error", err.Error())
		fmt.Fprintf(os.Stderr, "tacopt: %v\n", err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func loadConfig() (config.Config, error) {
	c := config.Default()
	if *configPath != "" {
		var err error
		if c, err = config.LoadFile(*configPath); err != nil {
			return c, err
		}
	}

	if *stopTAC {
		c = c.WithStopAfterTAC(true)
	}
	if *stopCFG {
		c = c.WithStopAfterCFG(true)
	}
	if *noCFG {
		c = c.WithNoCFG(true)
	}
	if *verifyRun || *reportPath != "" {
		c = c.WithVerify(true)
	}

	return c, c.Validate()
}

func baseName(input string) string {
	for _, ext := range []string{".tac.json", ".json", ".yaml", ".yml"} {
		if strings.HasSuffix(input, ext) {
			return strings.TrimSuffix(input, ext)
		}
	}
	return input
}

func run(input string) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}

	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: c.Level()})
	slog.SetDefault(slog.New(handler))

	base := baseName(input)
	out := *output
	if out == "" {
		out = base + ".tac.json"
	}

	builder := api.NewDriverBuilder().
		WithConfig(c).
		WithBackend(api.FileBackend{Path: out})
	if *reportPath != "" {
		builder = builder.WithReportFile(*reportPath)
	} else {
		builder = builder.WithReportWriter(os.Stdout)
	}
	if *dumpCFG {
		builder = builder.WithCFGDumpWriter(os.Stdout)
	}
	driver := builder.Build("Driver")

	var tp *tac.Program
	if *compileTAC {
		if tp, err = tac.LoadProgramFile(input); err != nil {
			return err
		}
	} else {
		prog, err := ast.LoadProgramFileFromYAML(input)
		if err != nil {
			return err
		}
		if tp, err = driver.Emit(prog); err != nil {
			return err
		}
	}

	if *keepTAC {
		if err := tac.SaveProgramFile(base+".emit.tac.json", tp); err != nil {
			return err
		}
	}

	if c.StopAfterTAC {
		return tac.SaveProgramFile(out, tp)
	}

	result, err := driver.CompileTAC(tp)
	if err != nil {
		return err
	}

	if c.StopAfterCFG {
		return tac.SaveProgramFile(out, result)
	}

	slog.Info("Wrote TAC", "output", out, "procs", len(result.Procs))
	return nil
}
