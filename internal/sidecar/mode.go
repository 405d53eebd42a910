// Package sidecar assembles the wire codec, socket layer, multiplexer and
// event emitter into the four run-modes spec §4.7 describes: Lsp, Execute,
// WatchPlot and Check.
package sidecar

import (
	"time"

	"github.com/posit-dev/ark-sidecar-go/internal/events"
	"github.com/posit-dev/ark-sidecar-go/internal/logging"
	"github.com/posit-dev/ark-sidecar-go/internal/wire"
)

// Mode is one of the four run-modes, fixed at startup.
type Mode int

const (
	Lsp Mode = iota
	Execute
	WatchPlot
	Check
)

// Comm target names (spec §3).
const (
	LspCommTarget          = "positron.lsp"
	PlotCommTarget         = "positron.plot"
	UICommTarget           = "positron.ui"
	HelpCommTarget         = "positron.help"
	VariablesCommTarget    = "positron.variables"
	DataExplorerCommTarget = "positron.dataExplorer"
)

// Options bundles everything a mode driver needs besides the connection
// info itself: parsed CLI flags plus the already-initialized ambient
// collaborators (emitter, logging reload handle).
type Options struct {
	Connection wire.ConnectionInfo
	Timeout    time.Duration

	IPAddress   string
	Code        string
	WaitForIdle bool
	VerifyLSP   bool

	Emitter   *events.Emitter
	LogReload logging.ReloadHandle
}

// deadline returns a context.Context deadline computed from now and the
// configured timeout, the same bounded-context shape the teacher's
// goplsclient.minTimeout uses around its gopls calls.
func (o Options) deadline() time.Time {
	return time.Now().Add(o.Timeout)
}
