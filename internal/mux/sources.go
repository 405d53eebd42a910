// Package mux implements the cooperative multiplexer: three polling
// goroutines (stdin, iopub, shell) feed buffered channels that a mode
// driver's own select consumes, the client-side generalization of the
// teacher's dispatcher.RunKernel poll()+WaitGroup shape, supervised here by
// golang.org/x/sync/errgroup instead of a hand-rolled WaitGroup.
package mux

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/posit-dev/ark-sidecar-go/internal/wire"
)

// Command is a parsed stdin line (spec §4.6's stdin command table).
type Command struct {
	Command    string                 `json:"command"`
	CommID     string                 `json:"comm_id"`
	TargetName string                 `json:"target_name"`
	Data       map[string]interface{} `json:"data"`
	LogLevel   string                 `json:"log_level"`
}

// Event is one decoded message read off a ZMQ socket, or the error that
// occurred trying to read and decode one. A non-nil Err is always fatal to
// the socket that produced it: spec §4.2 makes every shell/iopub read/send
// failure fatal to the enclosing mode.
type Event struct {
	Msg     *wire.Message
	Content wire.Content
	Err     error
}

// Sources is the set of three producer channels the multiplexer loop
// selects over, plus the supervising errgroup for their polling goroutines.
type Sources struct {
	Stdin chan Command
	IOPub chan Event
	Shell chan Event

	group *errgroup.Group
}

// Start launches the stdin reader and, for whichever sockets are non-nil,
// the iopub/shell pollers. Pass a nil socket to omit that source entirely
// (spec §4.2 — check mode has no iopub, lsp/execute-without-wait have no
// need for shell polling beyond their single awaited reply).
func Start(ctx context.Context, codec *wire.Codec, stdin io.Reader, iopub, shell *wire.SyncSocket) *Sources {
	group, ctx := errgroup.WithContext(ctx)
	s := &Sources{
		Stdin: make(chan Command, 1),
		IOPub: make(chan Event, 1),
		Shell: make(chan Event, 1),
		group: group,
	}

	group.Go(func() error {
		s.pollStdin(ctx, stdin)
		return nil
	})
	if iopub != nil {
		group.Go(func() error {
			s.pollSocket(ctx, codec, iopub, s.IOPub)
			return nil
		})
	} else {
		close(s.IOPub)
	}
	if shell != nil {
		group.Go(func() error {
			s.pollSocket(ctx, codec, shell, s.Shell)
			return nil
		})
	} else {
		close(s.Shell)
	}

	return s
}

// Wait blocks until every polling goroutine has returned.
func (s *Sources) Wait() error {
	return s.group.Wait()
}

// pollStdin reads line-delimited JSON commands until EOF or ctx is done.
// Malformed lines and unknown commands are logged and skipped, never
// forwarded as errors: spec §4.6 and §7 both make stdin-side decode
// failures locally recoverable.
func (s *Sources) pollStdin(ctx context.Context, r io.Reader) {
	defer close(s.Stdin)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var cmd Command
		if err := json.Unmarshal(line, &cmd); err != nil {
			klog.Warningf("stdin: dropping malformed command line: %v", err)
			continue
		}
		if !isRecognizedCommand(cmd.Command) {
			klog.Warningf("stdin: dropping unrecognized command %q", cmd.Command)
			continue
		}
		select {
		case s.Stdin <- cmd:
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		klog.Warningf("stdin: scan error, treating as EOF: %v", err)
	}
}

func isRecognizedCommand(command string) bool {
	switch command {
	case "comm_msg", "comm_open", "comm_close", "reload_log_level":
		return true
	default:
		return false
	}
}

// pollSocket reads and decodes messages from sck until a fatal error, then
// forwards that error once and stops: spec §4.2's "any send or receive
// error at the socket level is fatal to the enclosing mode."
func (s *Sources) pollSocket(ctx context.Context, codec *wire.Codec, sck *wire.SyncSocket, out chan Event) {
	defer close(out)
	for {
		zmqMsg, err := sck.Recv()
		if err != nil {
			forward(ctx, out, Event{Err: errors.WithMessage(err, "receiving from socket")})
			return
		}
		msg, rawContent, err := codec.Decode(zmqMsg)
		if err != nil {
			forward(ctx, out, Event{Err: err})
			return
		}
		content, err := wire.DecodeContent(msg.Header.MsgType, rawContent)
		if err != nil {
			forward(ctx, out, Event{Msg: msg, Err: err})
			return
		}
		msg.Content = content
		if !forward(ctx, out, Event{Msg: msg, Content: content}) {
			return
		}
	}
}

func forward[T any](ctx context.Context, ch chan T, v T) bool {
	select {
	case ch <- v:
		return true
	case <-ctx.Done():
		return false
	}
}
