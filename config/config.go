// Package config holds the settings of a compilation pipeline run.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sarchlab/akita/v4/sim"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/tacopt/cfg"
	"github.com/sarchlab/tacopt/verify"
)

// Passes selects the optional CFG passes.
type Passes struct {
	CondJump   bool `yaml:"cond_jump"`
	Threading  bool `yaml:"threading"`
	Coalescing bool `yaml:"coalescing"`
}

// Config controls which stages run and how.
type Config struct {
	MaxRounds    int    `yaml:"max_rounds"`
	Passes       Passes `yaml:"passes"`
	StopAfterTAC bool   `yaml:"stop_after_tac"`
	StopAfterCFG bool   `yaml:"stop_after_cfg"`
	NoCFG        bool   `yaml:"no_cfg"`
	Verify       bool   `yaml:"verify"`
	Entry        string `yaml:"entry"`
	MaxSimSteps  int    `yaml:"max_sim_steps"`
	SimFreqMHz   int    `yaml:"sim_freq_mhz"`
	LogLevel     string `yaml:"log_level"`
}

// Default returns the configuration used when no file is given. Every pass
// is enabled and verification is off.
func Default() Config {
	return Config{
		MaxRounds: 64,
		Passes: Passes{
			CondJump:   true,
			Threading:  true,
			Coalescing: true,
		},
		Entry:       "main",
		MaxSimSteps: 1000000,
		SimFreqMHz:  1000,
		LogLevel:    "warn",
	}
}

// LoadFile reads a YAML configuration. Keys missing from the file keep
// their default values.
func LoadFile(path string) (Config, error) {
	c := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("config %s: %w", path, err)
	}

	return c, nil
}

// Validate rejects contradictory or out-of-range settings.
func (c Config) Validate() error {
	if c.MaxRounds < 0 {
		return fmt.Errorf("max_rounds must not be negative")
	}
	if c.MaxSimSteps < 0 {
		return fmt.Errorf("max_sim_steps must not be negative")
	}
	if c.SimFreqMHz < 0 {
		return fmt.Errorf("sim_freq_mhz must not be negative")
	}
	if c.NoCFG && c.StopAfterCFG {
		return fmt.Errorf("no_cfg and stop_after_cfg are mutually exclusive")
	}
	if c.Verify && c.Entry == "" {
		return fmt.Errorf("verify needs an entry procedure")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// WithMaxRounds bounds the optimization rounds per procedure.
func (c Config) WithMaxRounds(n int) Config {
	c.MaxRounds = n
	return c
}

// WithPasses selects the optional passes.
func (c Config) WithPasses(p Passes) Config {
	c.Passes = p
	return c
}

// WithStopAfterTAC makes the driver stop once TAC has been emitted.
func (c Config) WithStopAfterTAC(stop bool) Config {
	c.StopAfterTAC = stop
	return c
}

// WithStopAfterCFG makes the driver stop once the CFG has been optimized.
func (c Config) WithStopAfterCFG(stop bool) Config {
	c.StopAfterCFG = stop
	return c
}

// WithNoCFG skips the CFG stage.
func (c Config) WithNoCFG(skip bool) Config {
	c.NoCFG = skip
	return c
}

// WithVerify enables the equivalence check of the optimized program.
func (c Config) WithVerify(verify bool) Config {
	c.Verify = verify
	return c
}

// WithEntry sets the procedure run by the equivalence check.
func (c Config) WithEntry(name string) Config {
	c.Entry = name
	return c
}

// WithMaxSimSteps bounds the instructions executed per simulated run.
func (c Config) WithMaxSimSteps(n int) Config {
	c.MaxSimSteps = n
	return c
}

// WithSimFreqMHz sets the clock of the simulated runs. Zero keeps the
// simulator's default of 1 GHz.
func (c Config) WithSimFreqMHz(mhz int) Config {
	c.SimFreqMHz = mhz
	return c
}

// WithLogLevel sets the log level by name.
func (c Config) WithLogLevel(level string) Config {
	c.LogLevel = level
	return c
}

// Options converts the pass selection for the optimizer.
func (c Config) Options() cfg.Options {
	return cfg.Options{
		CondJump:  c.Passes.CondJump,
		Thread:    c.Passes.Threading,
		Coalesce:  c.Passes.Coalescing,
		MaxRounds: c.MaxRounds,
	}
}

// Simulator returns the builder for the simulated runs of the equivalence
// check.
func (c Config) Simulator() verify.SimulatorBuilder {
	b := verify.NewSimulatorBuilder().WithMaxSteps(c.MaxSimSteps)
	if c.SimFreqMHz > 0 {
		b = b.WithFreq(sim.Freq(c.SimFreqMHz) * sim.MHz)
	}
	return b
}

// Level returns the configured log level. Unknown names give info.
func (c Config) Level() slog.Level {
	l, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

// ParseLevel maps trace, debug, info, warn and error to slog levels. The
// empty string is info. Pass activity is logged at cfg.LevelTrace, just
// above info, so trace only adds the records below it.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "trace":
		return slog.Level(-100), nil
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
}
