package sidecar

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/posit-dev/ark-sidecar-go/internal/correlate"
	"github.com/posit-dev/ark-sidecar-go/internal/mux"
	"github.com/posit-dev/ark-sidecar-go/internal/watchfile"
	"github.com/posit-dev/ark-sidecar-go/internal/wire"
)

// errConnectionFileGone is fatal: the kernel is presumed dead once its
// connection file disappears, the same way a failed socket read is fatal
// elsewhere in the loop (spec §4.2, §7 SocketError).
var errConnectionFileGone = errors.New("connection file removed: kernel is presumed gone")

// httpgdStreamPrefix is the vestigial legacy prefix spec §9 preserves: a
// stdout stream fragment beginning with it is translated to an httpgd_url
// event instead of being dropped like other stream content.
const httpgdStreamPrefix = "__VSCODE_R_HTTPGD_URL__="

// watchCommTargets lists the comms WatchPlot opens immediately, and the
// event tag emitted for each (spec §4.7 WatchPlot).
var watchCommTargets = []struct {
	target string
	event  string
}{
	{HelpCommTarget, "help_comm_open"},
	{UICommTarget, "ui_comm_open"},
	{VariablesCommTarget, "variables_comm_open"},
	{DataExplorerCommTarget, "data_explorer_comm_open"},
}

// RunWatch opens help/ui/variables/dataExplorer comms, reports their ids to
// the editor, then runs the full multiplexer loop with no deadline until
// stdin closes or a socket read fails fatally (spec §4.7 WatchPlot).
func RunWatch(ctx context.Context, opts Options, connFilePath string) error {
	c, err := connectShellAndIOPub(ctx, opts.Connection)
	if err != nil {
		return err
	}
	defer c.close()

	for _, wanted := range watchCommTargets {
		commID, err := newCommID()
		if err != nil {
			return err
		}
		if _, err := c.sendCommOpen(commID, wanted.target, map[string]interface{}{}); err != nil {
			return err
		}
		if err := opts.Emitter.CommOpen(wanted.event, commID, wanted.target, map[string]interface{}{}); err != nil {
			return err
		}
	}

	var fileGone <-chan struct{}
	if connFilePath != "" {
		watcher, err := watchfile.Watch(connFilePath)
		if err != nil {
			klog.Warningf("watch: could not watch connection file %s: %v", connFilePath, err)
		} else {
			defer watcher.Close()
			fileGone = watcher.Gone()
		}
	}

	pending := correlate.NewPending()
	sources := mux.Start(ctx, c.codec, os.Stdin, c.iopub, c.shell)

	for {
		select {
		case cmd, ok := <-sources.Stdin:
			if !ok {
				return nil
			}
			if err := dispatchStdinCommand(c, opts, pending, cmd); err != nil {
				return err
			}
		case ev, ok := <-sources.IOPub:
			if !ok {
				return nil
			}
			if ev.Err != nil {
				return ev.Err
			}
			if err := handleIOPubEvent(opts, pending, ev); err != nil {
				return err
			}
		case ev, ok := <-sources.Shell:
			if !ok {
				return nil
			}
			if ev.Err != nil {
				return ev.Err
			}
			if err := handleShellEvent(opts, pending, ev); err != nil {
				return err
			}
		case <-fileGone:
			return errConnectionFileGone
		case <-ctx.Done():
			return nil
		}
	}
}

// commSender is the subset of *conn that dispatchStdinCommand needs,
// narrowed out so the dispatch logic can be tested without a real socket.
type commSender interface {
	sendCommMsg(commID string, data map[string]interface{}) (string, error)
	sendCommOpen(commID, targetName string, data map[string]interface{}) (string, error)
	sendCommClose(commID string, data map[string]interface{}) (string, error)
}

// dispatchStdinCommand implements spec §4.6's stdin command table. Unknown
// commands and malformed JSON never reach here: mux.pollStdin already
// drops those.
func dispatchStdinCommand(c commSender, opts Options, pending *correlate.Pending, cmd mux.Command) error {
	switch cmd.Command {
	case "comm_msg":
		msgID, err := c.sendCommMsg(cmd.CommID, cmd.Data)
		if err != nil {
			return err
		}
		if id, ok := cmd.Data["id"]; ok {
			pending.Record(msgID, requestIDString(id))
		}
		return nil
	case "comm_open":
		_, err := c.sendCommOpen(cmd.CommID, cmd.TargetName, cmd.Data)
		return err
	case "comm_close":
		_, err := c.sendCommClose(cmd.CommID, cmd.Data)
		return err
	case "reload_log_level":
		opts.LogReload.Reload(cmd.LogLevel)
		return nil
	default:
		return nil
	}
}

// requestIDString normalizes data.id (string or number, per spec §4.4) into
// the string form Pending stores.
func requestIDString(id interface{}) string {
	switch v := id.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return ""
	}
}

func handleIOPubEvent(opts Options, pending *correlate.Pending, ev mux.Event) error {
	switch content := ev.Content.(type) {
	case wire.DisplayDataContent:
		return emitDisplayDataIfPNG(opts, false, content.Data, content.Transient)
	case wire.UpdateDisplayDataContent:
		return emitDisplayDataIfPNG(opts, true, content.Data, content.Transient)
	case wire.StreamContent:
		return emitLegacyHTTPGDIfPrefixed(opts, content)
	case wire.CommOpenContent:
		event, ok := commOpenEventFor(content.TargetName)
		if !ok {
			klog.V(3).Infof("watch: dropping comm_open for unrecognized target %q", content.TargetName)
			return nil
		}
		return opts.Emitter.CommOpen(event, content.CommID, content.TargetName, content.Data)
	case wire.CommMsgContent:
		data := pending.Apply(ev.Msg.ParentHeader.MsgID, content.Data)
		return emitCommMsg(opts, content.CommID, data)
	case wire.CommCloseContent:
		return opts.Emitter.CommClose(content.CommID)
	case wire.StatusContent:
		return opts.Emitter.KernelStatus(normalizeStatus(content.ExecutionState))
	default:
		klog.V(3).Infof("watch: dropping iopub message of type %s", ev.Content.MsgType())
		return nil
	}
}

// handleShellEvent implements spec §4.6: the watch loop attends only to
// comm_msg replies on shell; everything else is discarded.
func handleShellEvent(opts Options, pending *correlate.Pending, ev mux.Event) error {
	content, ok := ev.Content.(wire.CommMsgContent)
	if !ok {
		klog.V(3).Infof("watch: dropping shell message of type %s", ev.Content.MsgType())
		return nil
	}
	data := pending.Apply(ev.Msg.ParentHeader.MsgID, content.Data)
	return emitCommMsg(opts, content.CommID, data)
}

func emitCommMsg(opts Options, commID string, data map[string]interface{}) error {
	if method, _ := data["method"].(string); method == "show_html_file" {
		return opts.Emitter.SpecializedCommMsg("show_html_file", commID, data)
	}
	if method, _ := data["method"].(string); method == "show_help" {
		return opts.Emitter.SpecializedCommMsg("show_help", commID, data)
	}
	return opts.Emitter.CommMsg(commID, data)
}

// commOpenEventFor maps a comm_open target name to its outbound event tag.
// Only the five known targets produce an event (spec §4.6: "comm_open: map
// target name to the corresponding *_comm_open event; unknown targets
// drop") — positron.plot maps to the generic "comm_open" tag, matching
// original_source/ark-sidecar/src/handlers.rs's PLOT_COMM_TARGET case, and
// everything else reports ok=false so the caller drops it instead of
// forwarding a garbage target name under the same generic tag.
func commOpenEventFor(targetName string) (event string, ok bool) {
	switch targetName {
	case PlotCommTarget:
		return "comm_open", true
	case HelpCommTarget:
		return "help_comm_open", true
	case UICommTarget:
		return "ui_comm_open", true
	case VariablesCommTarget:
		return "variables_comm_open", true
	case DataExplorerCommTarget:
		return "data_explorer_comm_open", true
	default:
		return "", false
	}
}

func normalizeStatus(state string) string {
	switch state {
	case "idle", "busy", "starting":
		return state
	default:
		return "unknown"
	}
}

func emitDisplayDataIfPNG(opts Options, update bool, data, transient map[string]interface{}) error {
	png, ok := data["image/png"].(string)
	if !ok {
		return nil
	}
	var displayID *string
	if id, ok := transient["display_id"].(string); ok {
		displayID = &id
	}
	return opts.Emitter.DisplayData(update, png, displayID)
}

func emitLegacyHTTPGDIfPrefixed(opts Options, content wire.StreamContent) error {
	if !strings.HasPrefix(content.Text, httpgdStreamPrefix) {
		return nil
	}
	url := strings.TrimSpace(strings.TrimPrefix(content.Text, httpgdStreamPrefix))
	return opts.Emitter.HTTPGDURL(url)
}
