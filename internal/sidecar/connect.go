package sidecar

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/posit-dev/ark-sidecar-go/internal/wire"
)

// emptyReader satisfies io.Reader with an immediate EOF, for modes that
// start a mux.Sources but have no stdin command surface of their own (Lsp,
// Execute and Check all terminate before ever reading a command).
type emptyReader struct{}

func (emptyReader) Read([]byte) (int, error) { return 0, io.EOF }

// conn bundles the wire-level collaborators every mode driver needs: a
// codec bound to the connection key, a fresh session, and whichever sockets
// this mode requires.
type conn struct {
	codec   *wire.Codec
	session wire.Session
	shell   *wire.SyncSocket
	iopub   *wire.SyncSocket
}

// connectShellOnly dials only the shell socket, for Check mode (spec §4.2,
// §4.7 — check mode "opens shell only").
func connectShellOnly(ctx context.Context, info wire.ConnectionInfo) (*conn, error) {
	session, err := wire.NewSession("")
	if err != nil {
		return nil, errors.WithMessage(err, "generating session")
	}
	shell, err := wire.DialShell(ctx, info.ShellAddr())
	if err != nil {
		return nil, err
	}
	return &conn{
		codec:   wire.NewCodec(info.SigningKey()),
		session: session,
		shell:   shell,
	}, nil
}

// connectShellAndIOPub dials both sockets, for Lsp, Execute-with-wait and
// WatchPlot modes.
func connectShellAndIOPub(ctx context.Context, info wire.ConnectionInfo) (*conn, error) {
	session, err := wire.NewSession("")
	if err != nil {
		return nil, errors.WithMessage(err, "generating session")
	}
	shell, err := wire.DialShell(ctx, info.ShellAddr())
	if err != nil {
		return nil, err
	}
	iopub, err := wire.DialIOPub(ctx, info.IOPubAddr())
	if err != nil {
		_ = shell.Close()
		return nil, err
	}
	return &conn{
		codec:   wire.NewCodec(info.SigningKey()),
		session: session,
		shell:   shell,
		iopub:   iopub,
	}, nil
}

// close releases whichever sockets were dialed.
func (c *conn) close() {
	if c.shell != nil {
		_ = c.shell.Close()
	}
	if c.iopub != nil {
		_ = c.iopub.Close()
	}
}
