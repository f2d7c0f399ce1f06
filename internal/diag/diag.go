// Package diag wires up the structured logger shared by the CLI's
// --verbose tracing and the language server's request logging.
package diag

import (
	"github.com/tliron/commonlog"
)

// Configure sets the global commonlog level. verbose=true turns on debug
// logging (level 1); otherwise only warnings and above are logged (level 0).
func Configure(verbose bool) {
	level := 0
	if verbose {
		level = 1
	}
	commonlog.Configure(level, nil)
}

// Logger returns a named commonlog.Logger, the unit other packages log
// through (e.g. "minic.lsp", "minic.cli").
func Logger(name string) commonlog.Logger {
	return commonlog.GetLogger(name)
}
