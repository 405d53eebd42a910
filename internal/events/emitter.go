// Package events implements the outbound line-JSON event emitter: one
// json.Marshal, one newline, one flush, per event, matching the stdout
// schema in spec §6.
package events

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"

	"github.com/pkg/errors"
)

// Emitter writes exactly one JSON object per line to its underlying writer,
// flushing after every write so events appear to the editor as soon as the
// multiplexer produces them (spec §4.5 — no buffering or batching).
type Emitter struct {
	mu  sync.Mutex
	out *bufio.Writer
}

// NewEmitter wraps w (typically os.Stdout) for line-JSON event output.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{out: bufio.NewWriter(w)}
}

// emit marshals v, a struct carrying its own `event` tag, and writes it
// followed by a newline, then flushes.
func (e *Emitter) emit(v interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return errors.WithMessage(err, "marshaling event")
	}
	if _, err := e.out.Write(data); err != nil {
		return errors.WithMessage(err, "writing event")
	}
	if err := e.out.WriteByte('\n'); err != nil {
		return errors.WithMessage(err, "writing event newline")
	}
	return e.out.Flush()
}

// LspPort emits {event:"lsp_port", port}.
func (e *Emitter) LspPort(port uint16) error {
	return e.emit(struct {
		Event string `json:"event"`
		Port  uint16 `json:"port"`
	}{"lsp_port", port})
}

// Alive emits {event:"alive"}.
func (e *Emitter) Alive() error {
	return e.emit(struct {
		Event string `json:"event"`
	}{"alive"})
}

// Error emits {event:"error", message}.
func (e *Emitter) Error(message string) error {
	return e.emit(struct {
		Event   string `json:"event"`
		Message string `json:"message"`
	}{"error", message})
}

// KernelStatus emits {event:"kernel_status", status}. status must be one of
// "idle", "busy", "starting", "unknown".
func (e *Emitter) KernelStatus(status string) error {
	return e.emit(struct {
		Event  string `json:"event"`
		Status string `json:"status"`
	}{"kernel_status", status})
}

// DisplayData emits {event:"display_data"|"update_display_data", data,
// display_id}. update controls which event tag is used.
func (e *Emitter) DisplayData(update bool, base64PNG string, displayID *string) error {
	event := "display_data"
	if update {
		event = "update_display_data"
	}
	return e.emit(struct {
		Event     string  `json:"event"`
		Data      string  `json:"data"`
		DisplayID *string `json:"display_id"`
	}{event, base64PNG, displayID})
}

// CommOpen emits one of comm_open/ui_comm_open/help_comm_open/
// variables_comm_open/data_explorer_comm_open, per the target-name-specific
// event name passed in.
func (e *Emitter) CommOpen(event, commID, targetName string, data map[string]interface{}) error {
	return e.emit(struct {
		Event      string                 `json:"event"`
		CommID     string                 `json:"comm_id"`
		TargetName string                 `json:"target_name"`
		Data       map[string]interface{} `json:"data"`
	}{event, commID, targetName, data})
}

// CommMsg emits {event:"comm_msg", comm_id, data}.
func (e *Emitter) CommMsg(commID string, data map[string]interface{}) error {
	return e.emit(struct {
		Event  string                 `json:"event"`
		CommID string                 `json:"comm_id"`
		Data   map[string]interface{} `json:"data"`
	}{"comm_msg", commID, data})
}

// CommClose emits {event:"comm_close", comm_id}.
func (e *Emitter) CommClose(commID string) error {
	return e.emit(struct {
		Event  string `json:"event"`
		CommID string `json:"comm_id"`
	}{"comm_close", commID})
}

// SpecializedCommMsg emits show_html_file/show_help: {event, comm_id, data}.
func (e *Emitter) SpecializedCommMsg(event, commID string, data map[string]interface{}) error {
	return e.emit(struct {
		Event  string                 `json:"event"`
		CommID string                 `json:"comm_id"`
		Data   map[string]interface{} `json:"data"`
	}{event, commID, data})
}

// HTTPGDURL emits the vestigial {event:"httpgd_url", url}, retained per
// spec §9's legacy stream-prefix note, watch mode only.
func (e *Emitter) HTTPGDURL(url string) error {
	return e.emit(struct {
		Event string `json:"event"`
		URL   string `json:"url"`
	}{"httpgd_url", url})
}
