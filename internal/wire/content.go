package wire

import (
	"encoding/json"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Content is the closed tagged union of Jupyter message contents this
// sidecar understands. msg_type is the tag; anything the sidecar does not
// recognize decodes to OpaqueContent instead of failing, so the multiplexer
// can drop it rather than abort the connection.
type Content interface {
	// MsgType returns the wire msg_type this content was decoded from (or
	// will be encoded as).
	MsgType() string
}

// StatusContent is the `status` broadcast on IOPub.
type StatusContent struct {
	ExecutionState string `json:"execution_state"`
}

func (StatusContent) MsgType() string { return "status" }

// ExecuteRequestContent is sent by the sidecar on shell to run code.
type ExecuteRequestContent struct {
	Code            string                 `json:"code"`
	Silent          bool                   `json:"silent"`
	StoreHistory    bool                   `json:"store_history"`
	UserExpressions map[string]interface{} `json:"user_expressions"`
	AllowStdin      bool                   `json:"allow_stdin"`
	StopOnError     bool                   `json:"stop_on_error"`
}

func (ExecuteRequestContent) MsgType() string { return "execute_request" }

// KernelInfoRequestContent is sent by the sidecar on shell in check mode. It
// carries no fields.
type KernelInfoRequestContent struct{}

func (KernelInfoRequestContent) MsgType() string { return "kernel_info_request" }

// CommOpenContent opens a named comm, in either direction.
type CommOpenContent struct {
	CommID     string                 `json:"comm_id"`
	TargetName string                 `json:"target_name"`
	Data       map[string]interface{} `json:"data"`
}

func (CommOpenContent) MsgType() string { return "comm_open" }

// CommMsgContent carries a payload over an already-open comm, in either
// direction.
type CommMsgContent struct {
	CommID string                 `json:"comm_id"`
	Data   map[string]interface{} `json:"data"`
}

func (CommMsgContent) MsgType() string { return "comm_msg" }

// CommCloseContent terminates a comm. The upstream kernel sometimes omits
// `data` entirely; decodeCommClose below tolerates that rather than
// surfacing a DecodeError.
type CommCloseContent struct {
	CommID string                 `json:"comm_id"`
	Data   map[string]interface{} `json:"data"`
}

func (CommCloseContent) MsgType() string { return "comm_close" }

// DisplayDataContent is a rich display broadcast on IOPub.
type DisplayDataContent struct {
	Data      map[string]interface{} `json:"data"`
	Metadata  map[string]interface{} `json:"metadata"`
	Transient map[string]interface{} `json:"transient"`
}

func (DisplayDataContent) MsgType() string { return "display_data" }

// UpdateDisplayDataContent replaces a previously displayed output, keyed by
// display_id in Transient.
type UpdateDisplayDataContent struct {
	Data      map[string]interface{} `json:"data"`
	Metadata  map[string]interface{} `json:"metadata"`
	Transient map[string]interface{} `json:"transient"`
}

func (UpdateDisplayDataContent) MsgType() string { return "update_display_data" }

// StreamContent is stdout/stderr text from the kernel (spec's
// "stream_content"; the wire msg_type is "stream" per Jupyter 5.3, matching
// the naming the teacher repo uses for its PublishWriteStream helper).
type StreamContent struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

func (StreamContent) MsgType() string { return "stream" }

// OpaqueContent is any msg_type the sidecar does not special-case. The
// multiplexer drops these; they are not an error.
type OpaqueContent struct {
	WireMsgType string
	Raw         json.RawMessage
}

func (c OpaqueContent) MsgType() string { return c.WireMsgType }

// DecodeError reports a JSON or message-type decode failure, other than the
// whitelisted comm_close-without-data exemption (handled below) and the
// check-mode exemption (handled by the check mode driver itself).
type DecodeError struct {
	msgType string
	cause   error
}

func (e *DecodeError) Error() string {
	return errors.Wrapf(e.cause, "decoding %s content", e.msgType).Error()
}

func (e *DecodeError) Unwrap() error { return e.cause }

// DecodeContent dispatches raw content bytes on msg_type, producing the
// matching tagged variant. Unknown types never fail: they become
// OpaqueContent for the multiplexer to drop.
func DecodeContent(msgType string, raw json.RawMessage) (Content, error) {
	switch msgType {
	case "status":
		var c StatusContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, &DecodeError{msgType: msgType, cause: err}
		}
		return c, nil
	case "execute_request":
		var c ExecuteRequestContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, &DecodeError{msgType: msgType, cause: err}
		}
		return c, nil
	case "kernel_info_request":
		return KernelInfoRequestContent{}, nil
	case "comm_open":
		var c CommOpenContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, &DecodeError{msgType: msgType, cause: err}
		}
		return c, nil
	case "comm_msg":
		var c CommMsgContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, &DecodeError{msgType: msgType, cause: err}
		}
		return c, nil
	case "comm_close":
		return decodeCommClose(raw)
	case "display_data":
		var c DisplayDataContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, &DecodeError{msgType: msgType, cause: err}
		}
		return c, nil
	case "update_display_data":
		var c UpdateDisplayDataContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, &DecodeError{msgType: msgType, cause: err}
		}
		return c, nil
	case "stream":
		var c StreamContent
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, &DecodeError{msgType: msgType, cause: err}
		}
		return c, nil
	default:
		return OpaqueContent{WireMsgType: msgType, Raw: raw}, nil
	}
}

// decodeCommClose implements the sole whitelisted decode exemption: the
// upstream kernel sometimes omits `data` on comm_close entirely. That is
// tolerated here, logged at warn level, and treated as an empty-data close,
// rather than surfacing as a DecodeError.
func decodeCommClose(raw json.RawMessage) (Content, error) {
	var c CommCloseContent
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, &DecodeError{msgType: "comm_close", cause: err}
	}
	if c.Data == nil {
		klog.Warningf("comm_close for %s arrived without a data field; treating as empty", c.CommID)
		c.Data = map[string]interface{}{}
	}
	return c, nil
}
