package sidecar

import (
	"github.com/pkg/errors"

	"github.com/posit-dev/ark-sidecar-go/internal/wire"
)

// sendOnShell builds a fresh header for msgType, sends content on the shell
// socket, and returns the outbound msg_id so callers can watch for a
// matching reply.
func (c *conn) sendOnShell(msgType string, content interface{}) (string, error) {
	header, err := c.session.NewHeader(msgType)
	if err != nil {
		return "", errors.WithMessagef(err, "building header for outbound %s", msgType)
	}
	err = c.shell.Send(c.codec, wire.Composed{
		Header:  header,
		Content: content,
	})
	if err != nil {
		return "", err
	}
	return header.MsgID, nil
}

// sendCommOpen opens a comm with the given id and target name, and whatever
// data the caller supplies (e.g. {"ip_address": ...} for the Lsp comm).
func (c *conn) sendCommOpen(commID, targetName string, data map[string]interface{}) (string, error) {
	if data == nil {
		data = map[string]interface{}{}
	}
	return c.sendOnShell("comm_open", wire.CommOpenContent{
		CommID:     commID,
		TargetName: targetName,
		Data:       data,
	})
}

// sendCommMsg forwards a comm_msg on shell, as the editor requested via its
// own comm_msg stdin command.
func (c *conn) sendCommMsg(commID string, data map[string]interface{}) (string, error) {
	return c.sendOnShell("comm_msg", wire.CommMsgContent{CommID: commID, Data: data})
}

// sendCommClose closes a comm; data defaults to an empty object (spec
// §4.6's stdin command table).
func (c *conn) sendCommClose(commID string, data map[string]interface{}) (string, error) {
	if data == nil {
		data = map[string]interface{}{}
	}
	return c.sendOnShell("comm_close", wire.CommCloseContent{CommID: commID, Data: data})
}

// sendExecuteRequest submits code for execution.
func (c *conn) sendExecuteRequest(code string) (string, error) {
	return c.sendOnShell("execute_request", wire.ExecuteRequestContent{
		Code:            code,
		Silent:          false,
		StoreHistory:    true,
		UserExpressions: map[string]interface{}{},
		AllowStdin:      false,
		StopOnError:     true,
	})
}

// sendKernelInfoRequest probes kernel liveness (check mode).
func (c *conn) sendKernelInfoRequest() (string, error) {
	return c.sendOnShell("kernel_info_request", wire.KernelInfoRequestContent{})
}
