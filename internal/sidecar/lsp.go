package sidecar

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/posit-dev/ark-sidecar-go/internal/lspcheck"
	"github.com/posit-dev/ark-sidecar-go/internal/mux"
	"github.com/posit-dev/ark-sidecar-go/internal/portlocator"
	"github.com/posit-dev/ark-sidecar-go/internal/wire"
)

func newCommID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// RunLsp opens the positron.lsp comm, waits for the kernel to report the
// port it bound the language server on, emits lsp_port, and exits (spec
// §4.7 Lsp).
func RunLsp(ctx context.Context, opts Options) error {
	c, err := connectShellAndIOPub(ctx, opts.Connection)
	if err != nil {
		return err
	}
	defer c.close()

	commID, err := newCommID()
	if err != nil {
		return errors.WithMessage(err, "generating lsp comm id")
	}
	if _, err := c.sendCommOpen(commID, LspCommTarget, map[string]interface{}{
		"ip_address": opts.IPAddress,
	}); err != nil {
		return err
	}

	ctx, cancel := context.WithDeadline(ctx, opts.deadline())
	defer cancel()

	sources := mux.Start(ctx, c.codec, emptyReader{}, c.iopub, nil)

	for {
		select {
		case ev, ok := <-sources.IOPub:
			if !ok {
				return newTimeout("lsp comm port")
			}
			if ev.Err != nil {
				return ev.Err
			}
			port, done, err := handleLspIOPubEvent(ev, commID)
			if err != nil {
				return err
			}
			if done {
				if opts.VerifyLSP {
					lspcheck.Probe(ctx, port)
				}
				return opts.Emitter.LspPort(port)
			}
		case <-ctx.Done():
			return newTimeout("lsp comm port")
		}
	}
}

// handleLspIOPubEvent classifies one IOPub event while waiting for the LSP
// port: messages for other comm ids are ignored, a comm_close for ours is
// fatal, and a comm_msg for ours is searched for a port.
func handleLspIOPubEvent(ev mux.Event, commID string) (port uint16, done bool, err error) {
	switch content := ev.Content.(type) {
	case wire.CommMsgContent:
		if content.CommID != commID {
			return 0, false, nil
		}
		if p, ok := portlocator.Find(content.Data); ok {
			return p, true, nil
		}
		return 0, false, nil
	case wire.CommCloseContent:
		if content.CommID != commID {
			return 0, false, nil
		}
		return 0, false, newCommClosed(commID)
	default:
		klog.V(2).Infof("lsp: ignoring iopub message of type %s while waiting for port", ev.Content.MsgType())
		return 0, false, nil
	}
}
