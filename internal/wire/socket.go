package wire

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-zeromq/zmq4"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
)

// SocketError reports a connect/send/receive failure at the socket layer.
// It is fatal to whichever mode was using the socket.
type SocketError struct {
	op    string
	cause error
}

func (e *SocketError) Error() string {
	return errors.WithMessage(e.cause, e.op).Error()
}

func (e *SocketError) Unwrap() error { return e.cause }

func newSocketError(op string, cause error) error {
	return &SocketError{op: op, cause: cause}
}

// SyncSocket wraps a zmq4.Socket with a lock guarding write access, the same
// shape the teacher's kernel-side SocketGroup uses, generalized here to
// client-side Dial instead of server-side Listen.
type SyncSocket struct {
	Socket zmq4.Socket
	Lock   sync.Mutex
}

// RunLocked locks the socket and runs fn, the same pattern the teacher uses
// around its heartbeat echo and outbound sends.
func (s *SyncSocket) RunLocked(fn func(socket zmq4.Socket) error) error {
	s.Lock.Lock()
	defer s.Lock.Unlock()
	return fn(s.Socket)
}

// peerIdentity is the dealer identity this sidecar presents to the kernel on
// the shell socket.
func peerIdentity() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("sidecar-%s", id.String()), nil
}

// DialShell opens a Dealer socket to the kernel's shell port, identifying
// itself as "sidecar-<uuid>".
func DialShell(ctx context.Context, addr string) (*SyncSocket, error) {
	id, err := peerIdentity()
	if err != nil {
		return nil, errors.WithMessage(err, "generating shell peer identity")
	}
	sck := zmq4.NewDealer(ctx, zmq4.WithID(zmq4.SocketIdentity(id)))
	if err := sck.Dial(addr); err != nil {
		return nil, newSocketError(fmt.Sprintf("dialing shell socket at %s", addr), err)
	}
	return &SyncSocket{Socket: sck}, nil
}

// DialIOPub opens a Sub socket to the kernel's iopub port, subscribed to the
// empty topic so it receives every broadcast.
func DialIOPub(ctx context.Context, addr string) (*SyncSocket, error) {
	sck := zmq4.NewSub(ctx)
	if err := sck.Dial(addr); err != nil {
		return nil, newSocketError(fmt.Sprintf("dialing iopub socket at %s", addr), err)
	}
	if err := sck.SetOption(zmq4.OptionSubscribe, ""); err != nil {
		return nil, newSocketError("subscribing to iopub topic", err)
	}
	return &SyncSocket{Socket: sck}, nil
}

// Send frames and sends a Composed message. A Dealer socket needs no
// explicit identity frame of its own on the way out — ZMQ attaches routing
// on the connection itself, and the Router on the kernel side recovers our
// identity from that, not from a frame we'd have to prepend.
func (s *SyncSocket) Send(codec *Codec, msg Composed) error {
	encoded, err := codec.Encode(msg)
	if err != nil {
		return errors.WithMessagef(err, "encoding outbound %s message", msg.Header.MsgType)
	}
	return s.RunLocked(func(socket zmq4.Socket) error {
		if err := socket.SendMulti(encoded); err != nil {
			return newSocketError(fmt.Sprintf("sending %s message", msg.Header.MsgType), err)
		}
		return nil
	})
}

// Recv blocks for the next multipart message on this socket.
func (s *SyncSocket) Recv() (zmq4.Msg, error) {
	msg, err := s.Socket.Recv()
	if err != nil {
		return msg, newSocketError("receiving message", err)
	}
	return msg, nil
}

// Close releases the underlying zmq4 socket.
func (s *SyncSocket) Close() error {
	return s.Socket.Close()
}
