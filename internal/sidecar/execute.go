package sidecar

import (
	"context"

	"k8s.io/klog/v2"

	"github.com/posit-dev/ark-sidecar-go/internal/mux"
	"github.com/posit-dev/ark-sidecar-go/internal/wire"
)

// RunExecute sends an execute_request and, if WaitForIdle is set, waits on
// IOPub for the matching idle status before exiting (spec §4.7 Execute).
func RunExecute(ctx context.Context, opts Options) error {
	if !opts.WaitForIdle {
		c, err := connectShellOnly(ctx, opts.Connection)
		if err != nil {
			return err
		}
		defer c.close()
		_, err = c.sendExecuteRequest(opts.Code)
		return err
	}

	c, err := connectShellAndIOPub(ctx, opts.Connection)
	if err != nil {
		return err
	}
	defer c.close()

	msgID, err := c.sendExecuteRequest(opts.Code)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithDeadline(ctx, opts.deadline())
	defer cancel()

	sources := mux.Start(ctx, c.codec, emptyReader{}, c.iopub, nil)
	for {
		select {
		case ev, ok := <-sources.IOPub:
			if !ok {
				return newTimeout("idle status")
			}
			if ev.Err != nil {
				return ev.Err
			}
			status, ok := ev.Content.(wire.StatusContent)
			if !ok {
				klog.V(2).Infof("execute: ignoring iopub message of type %s while waiting for idle", ev.Content.MsgType())
				continue
			}
			if ev.Msg.ParentHeader.MsgID != msgID {
				continue
			}
			if status.ExecutionState == "idle" {
				return nil
			}
		case <-ctx.Done():
			return newTimeout("idle status")
		}
	}
}
