// Package lspcheck performs an optional, non-fatal LSP initialize/initialized
// handshake against the port the comm-port locator discovered in Lsp mode,
// gated by --verify-lsp. It is a diagnostic about port liveness, not a new
// invariant: a failed probe never changes the lsp_port event or exit code
// (spec §4.7's Lsp mode driver is otherwise unchanged).
package lspcheck

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/pkg/errors"
	"go.lsp.dev/jsonrpc2"
	lsp "go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"k8s.io/klog/v2"
)

// ConnectTimeout bounds the TCP dial and the initialize round trip,
// matching the teacher's goplsclient connect budget.
var ConnectTimeout = 2000 * time.Millisecond

// Probe dials 127.0.0.1:port and performs a minimal initialize/initialized
// handshake, logging the outcome at warn level on failure rather than
// surfacing an error: this is a supplemental diagnostic, never a reason to
// withhold the lsp_port event.
func Probe(ctx context.Context, port uint16) {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	ctx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	if err != nil {
		klog.Warningf("lsp verify: failed to dial %s: %v", addr, err)
		return
	}
	defer conn.Close()

	stream := jsonrpc2.NewStream(conn)
	rpcConn := jsonrpc2.NewConn(stream)
	rpcConn.Go(context.Background(), jsonrpc2.MethodNotFoundHandler)
	defer rpcConn.Close()

	var capabilities lsp.InitializeResult
	_, err = rpcConn.Call(ctx, lsp.MethodInitialize, &lsp.InitializeParams{
		ProcessID: 0,
		RootURI:   uri.File("/"),
	}, &capabilities)
	if err != nil {
		klog.Warningf("lsp verify: initialize call to %s failed: %v", addr, errors.WithStack(err))
		return
	}

	if err := rpcConn.Notify(ctx, lsp.MethodInitialized, &lsp.InitializedParams{}); err != nil {
		klog.Warningf("lsp verify: initialized notification to %s failed: %v", addr, err)
		return
	}

	klog.V(1).Infof("lsp verify: handshake with %s succeeded", addr)
}
