package api

import (
	"io"

	"github.com/sarchlab/tacopt/config"
)

// DriverBuilder creates a new instance of Driver.
type DriverBuilder struct {
	config     config.Config
	backend    Backend
	report     io.Writer
	reportFile string
	cfgDump    io.Writer
}

// NewDriverBuilder returns a builder with the default configuration and no
// backend.
func NewDriverBuilder() DriverBuilder {
	return DriverBuilder{config: config.Default()}
}

// WithConfig sets the pipeline configuration.
func (b DriverBuilder) WithConfig(c config.Config) DriverBuilder {
	b.config = c
	return b
}

// WithBackend sets the consumer of the final TAC.
func (b DriverBuilder) WithBackend(backend Backend) DriverBuilder {
	b.backend = backend
	return b
}

// WithReportWriter sets where verification reports are written.
func (b DriverBuilder) WithReportWriter(w io.Writer) DriverBuilder {
	b.report = w
	return b
}

// WithReportFile sets a file that receives each verification report.
func (b DriverBuilder) WithReportFile(path string) DriverBuilder {
	b.reportFile = path
	return b
}

// WithCFGDumpWriter sets where the optimized graph of each procedure is
// printed.
func (b DriverBuilder) WithCFGDumpWriter(w io.Writer) DriverBuilder {
	b.cfgDump = w
	return b
}

// Build create a driver.
func (b DriverBuilder) Build(name string) Driver {
	return &driverImpl{
		name:       name,
		config:     b.config,
		backend:    b.backend,
		report:     b.report,
		reportFile: b.reportFile,
		cfgDump:    b.cfgDump,
	}
}
