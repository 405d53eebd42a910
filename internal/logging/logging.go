// Package logging wires klog up for the sidecar and exposes a reload handle
// the reload_log_level stdin command can use to rebuild the verbosity
// filter without restarting the process. It mirrors the upstream sidecar's
// clone-shared log-reload handle (itself a thin wrapper over a replaceable
// filter), rebuilt here on top of klog's own "-v" flag instead of a
// tracing-subscriber reload layer.
package logging

import (
	"flag"
	"os"
	"strconv"
	"sync"

	"k8s.io/klog/v2"
)

// envLevelVar is consulted whenever the reload handle is asked to "inherit"
// its level, the Go-side equivalent of the upstream sidecar's
// build_env_filter() falling back to RUST_LOG.
const envLevelVar = "KERNEL_LOG_LEVEL"

// ReloadHandle is a cheaply-copyable pointer to klog's mutable verbosity
// flag. Reload is an idempotent replacement of that flag's value, not a
// mutation protocol (spec §5, §9) — safe to share across the stdin-command
// handler and main without a mutex around the hot logging path.
type ReloadHandle struct {
	vFlag *flag.Flag
}

// initFlags registers klog's flags on the default flag set exactly once per
// process: klog.InitFlags panics ("flag redefined") if called a second time
// against the same flag.FlagSet, which a production process never does (main
// calls Setup once) but a test binary exercising Setup repeatedly would.
var initFlags sync.Once

// Setup registers klog's flags on the default flag set, sets the initial
// verbosity from level, and returns a ReloadHandle for later use by the
// reload_log_level stdin command. main calls it once, after flag.Parse, so
// klog's own flags are registered only then and are not accepted on the
// command line; the verbosity comes from level.
func Setup(level int) ReloadHandle {
	initFlags.Do(func() { klog.InitFlags(nil) })
	_ = flag.Set("logtostderr", "true")
	_ = flag.Set("v", strconv.Itoa(level))
	return ReloadHandle{vFlag: flag.Lookup("v")}
}

// Reload re-derives klog's verbosity. An empty string or "inherit" rebuilds
// from KERNEL_LOG_LEVEL (default 0 if unset or unparsable); any other value
// is parsed as an integer klog level directly.
func (h ReloadHandle) Reload(level string) {
	if level == "" || level == "inherit" {
		level = os.Getenv(envLevelVar)
	}
	n, err := strconv.Atoi(level)
	if err != nil {
		n = 0
	}
	if h.vFlag == nil {
		h.vFlag = flag.Lookup("v")
	}
	if h.vFlag == nil {
		klog.Warningf("logging reload requested but klog's -v flag is not registered")
		return
	}
	if err := h.vFlag.Value.Set(strconv.Itoa(n)); err != nil {
		klog.Warningf("failed to reload log level to %d: %v", n, err)
		return
	}
	klog.Infof("reloaded sidecar logging filter to level %d", n)
}
