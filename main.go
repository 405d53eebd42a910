package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"github.com/posit-dev/ark-sidecar-go/internal/events"
	"github.com/posit-dev/ark-sidecar-go/internal/logging"
	"github.com/posit-dev/ark-sidecar-go/internal/sidecar"
	"github.com/posit-dev/ark-sidecar-go/internal/wire"
)

// defaultTimeoutMS is the default value of --timeout-ms (spec §6).
const defaultTimeoutMS = 15000

var (
	flagConnectionFile = flag.String("connection-file", "", "Path to the Jupyter connection JSON (required)")
	flagIPAddress      = flag.String("ip-address", "", "IP published into the LSP comm_open (lsp mode only)")
	flagTimeoutMS      = flag.Int("timeout-ms", defaultTimeoutMS, "Timeout, in milliseconds, applied to deadlined waits")
	flagExecute        = flag.Bool("execute", false, "Run in execute mode")
	flagWatchPlot      = flag.Bool("watch-plot", false, "Run in watch-plot mode")
	flagCheck          = flag.Bool("check", false, "Run in check mode")
	flagCode           = flag.String("code", "", "Code to execute (execute mode only)")
	flagCodeBase64     = flag.Bool("code-base64", false, "Decode --code as base64 before sending")
	flagWaitForIdle    = flag.Bool("wait-for-idle", false, "Execute mode: wait for idle status before exiting")
	flagLogLevel       = flag.Int("log-level", 0, "Initial klog verbosity; overridden by KERNEL_LOG_LEVEL if set and this flag is absent")
	flagVerifyLSP      = flag.Bool("verify-lsp", false, "Lsp mode: probe the discovered port with a minimal LSP handshake before exiting")
	flagHelp           = flag.Bool("help", false, "Print usage and exit")
)

func main() {
	flag.BoolVar(flagHelp, "h", false, "Print usage and exit (shorthand)")
	flag.Parse()

	if *flagHelp {
		printUsage()
		os.Exit(0)
	}

	logLevel := *flagLogLevel
	logLevelSet := false
	flag.Visit(func(f *flag.Flag) { logLevelSet = logLevelSet || f.Name == "log-level" })
	if env, ok := os.LookupEnv("KERNEL_LOG_LEVEL"); ok && !logLevelSet {
		if n, err := strconv.Atoi(env); err == nil {
			logLevel = n
		}
	}
	logReload := logging.Setup(logLevel)
	emitter := events.NewEmitter(os.Stdout)

	if err := run(emitter, logReload); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, color.New(color.FgRed).Sprintf("ark-sidecar: %v", err))
		_ = emitter.Error(err.Error())
		os.Exit(1)
	}
}

func run(emitter *events.Emitter, logReload logging.ReloadHandle) error {
	if *flagConnectionFile == "" {
		return wire.NewConfigError("missing required flag --connection-file")
	}

	mode := modeFromFlags()
	if mode == sidecar.Lsp && *flagIPAddress == "" {
		return wire.NewConfigError("lsp mode requires --ip-address")
	}

	info, err := wire.ReadConnectionInfo(*flagConnectionFile)
	if err != nil {
		return err
	}

	code, err := decodeCode(*flagCode, *flagCodeBase64)
	if err != nil {
		return err
	}

	opts := sidecar.Options{
		Connection:  info,
		Timeout:     time.Duration(*flagTimeoutMS) * time.Millisecond,
		IPAddress:   *flagIPAddress,
		Code:        code,
		WaitForIdle: *flagWaitForIdle,
		VerifyLSP:   *flagVerifyLSP,
		Emitter:     emitter,
		LogReload:   logReload,
	}

	ctx := context.Background()
	switch mode {
	case sidecar.Lsp:
		return sidecar.RunLsp(ctx, opts)
	case sidecar.Execute:
		return sidecar.RunExecute(ctx, opts)
	case sidecar.Check:
		return sidecar.RunCheck(ctx, opts)
	case sidecar.WatchPlot:
		return sidecar.RunWatch(ctx, opts, *flagConnectionFile)
	default:
		return errors.Errorf("unknown mode %v", mode)
	}
}

func modeFromFlags() sidecar.Mode {
	switch {
	case *flagExecute:
		return sidecar.Execute
	case *flagWatchPlot:
		return sidecar.WatchPlot
	case *flagCheck:
		return sidecar.Check
	default:
		return sidecar.Lsp
	}
}

// decodeCode optionally base64-decodes code, per --code-base64 (spec §6).
func decodeCode(code string, isBase64 bool) (string, error) {
	if !isBase64 {
		return code, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(code)
	if err != nil {
		return "", errors.WithMessage(err, "decoding --code as base64")
	}
	return string(decoded), nil
}

func printUsage() {
	bold := color.New(color.Bold)
	_, _ = bold.Fprintln(os.Stderr, "ark-sidecar")
	_, _ = fmt.Fprintln(os.Stderr, "Bridges an editor extension to a running Jupyter kernel over ZeroMQ.")
	_, _ = fmt.Fprintln(os.Stderr, "")
	_, _ = fmt.Fprintln(os.Stderr, "Usage:")
	_, _ = fmt.Fprintln(os.Stderr, "  ark-sidecar --connection-file <path> --ip-address <addr> [--timeout-ms <ms>]")
	_, _ = fmt.Fprintln(os.Stderr, "  ark-sidecar --execute --connection-file <path> --code <text> [--code-base64] [--wait-for-idle]")
	_, _ = fmt.Fprintln(os.Stderr, "  ark-sidecar --watch-plot --connection-file <path>")
	_, _ = fmt.Fprintln(os.Stderr, "  ark-sidecar --check --connection-file <path>")
	_, _ = fmt.Fprintln(os.Stderr, "")
	flag.PrintDefaults()
}
