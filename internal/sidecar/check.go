package sidecar

import (
	"context"

	"k8s.io/klog/v2"

	"github.com/posit-dev/ark-sidecar-go/internal/mux"
)

// RunCheck sends a kernel_info_request and waits for any reply whose
// parent_header.msg_id matches, with a quirk: a decode failure on a
// matching reply is itself treated as a positive liveness signal, since the
// upstream kernel may omit fields serde/encoding-json would otherwise
// require (spec §4.7 Check).
func RunCheck(ctx context.Context, opts Options) error {
	c, err := connectShellOnly(ctx, opts.Connection)
	if err != nil {
		return err
	}
	defer c.close()

	msgID, err := c.sendKernelInfoRequest()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithDeadline(ctx, opts.deadline())
	defer cancel()

	sources := mux.Start(ctx, c.codec, emptyReader{}, nil, c.shell)
	for {
		select {
		case ev, ok := <-sources.Shell:
			if !ok {
				return newTimeout("kernel_info_reply")
			}
			if ev.Err != nil {
				if ev.Msg != nil && ev.Msg.ParentHeader.MsgID == msgID {
					klog.V(1).Infof("check: treating decode failure on matching reply as liveness signal: %v", ev.Err)
					return opts.Emitter.Alive()
				}
				return ev.Err
			}
			if ev.Msg.ParentHeader.MsgID != msgID {
				continue
			}
			return opts.Emitter.Alive()
		case <-ctx.Done():
			return newTimeout("kernel_info_reply")
		}
	}
}
