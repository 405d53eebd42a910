package wire

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/go-zeromq/zmq4"
	"github.com/pkg/errors"
)

// SignatureMismatch reports that an inbound message's HMAC signature did not
// match the one recomputed from the connection key. This is always fatal:
// the core rejects tampered traffic rather than attempt to proceed.
type SignatureMismatch struct{}

func (*SignatureMismatch) Error() string {
	return "signature mismatch: inbound message does not match the connection key"
}

// Codec frames, signs and verifies Jupyter multipart messages for one
// connection key.
type Codec struct {
	key []byte
}

// NewCodec builds a Codec bound to the given signing key. An empty key
// disables both signing and verification, per the Jupyter wire protocol.
func NewCodec(key []byte) *Codec {
	return &Codec{key: key}
}

// sign returns the raw HMAC-SHA256 over the four JSON frames, or nil when
// the codec has no key.
func (c *Codec) sign(header, parentHeader, metadata, content []byte) []byte {
	if len(c.key) == 0 {
		return nil
	}
	mac := hmac.New(sha256.New, c.key)
	mac.Write(header)
	mac.Write(parentHeader)
	mac.Write(metadata)
	mac.Write(content)
	return mac.Sum(nil)
}

// Encode serializes a Composed message into the four JSON frames plus a
// signature frame, ready to be prefixed with identity frames and the
// delimiter and sent as a zmq4.Msg.
func (c *Codec) Encode(msg Composed) (zmq4.Msg, error) {
	header, err := json.Marshal(msg.Header)
	if err != nil {
		return zmq4.Msg{}, errors.WithMessage(err, "marshaling header")
	}
	parentHeader, err := json.Marshal(msg.ParentHeader)
	if err != nil {
		return zmq4.Msg{}, errors.WithMessage(err, "marshaling parent_header")
	}
	if msg.Metadata == nil {
		msg.Metadata = map[string]interface{}{}
	}
	metadata, err := json.Marshal(msg.Metadata)
	if err != nil {
		return zmq4.Msg{}, errors.WithMessage(err, "marshaling metadata")
	}
	content, err := json.Marshal(msg.Content)
	if err != nil {
		return zmq4.Msg{}, errors.WithMessage(err, "marshaling content")
	}

	sig := []byte(hex.EncodeToString(c.sign(header, parentHeader, metadata, content)))

	frames := [][]byte{
		[]byte(delimiter),
		sig,
		header,
		parentHeader,
		metadata,
		content,
	}
	return zmq4.NewMsgFrom(frames...), nil
}

// Decode splits the identity frames from the signed payload, verifies the
// signature and unmarshals the four JSON frames. The content frame is left
// un-dispatched: callers that need a typed Content should follow up with
// DecodeContent(header.MsgType, ...) once they have peeked the frame.
func (c *Codec) Decode(zmqMsg zmq4.Msg) (*Message, json.RawMessage, error) {
	parts := zmqMsg.Frames

	i := 0
	for i < len(parts) && string(parts[i]) != delimiter {
		i++
	}
	if i >= len(parts) {
		return nil, nil, errors.New("malformed message: missing <IDS|MSG> delimiter")
	}
	if i+5 >= len(parts) {
		return nil, nil, errors.New("malformed message: fewer than four JSON frames after the delimiter")
	}

	m := &Message{Identities: parts[:i]}
	sigFrame := parts[i+1]
	header := parts[i+2]
	parentHeader := parts[i+3]
	metadata := parts[i+4]
	content := parts[i+5]

	if len(c.key) != 0 {
		sig := c.sign(header, parentHeader, metadata, content)
		decoded := make([]byte, hex.DecodedLen(len(sigFrame)))
		n, err := hex.Decode(decoded, sigFrame)
		if err != nil || !hmac.Equal(sig, decoded[:n]) {
			return nil, nil, &SignatureMismatch{}
		}
	}

	if err := json.Unmarshal(header, &m.Header); err != nil {
		return nil, nil, &DecodeError{msgType: "header", cause: err}
	}
	if err := json.Unmarshal(parentHeader, &m.ParentHeader); err != nil {
		return nil, nil, &DecodeError{msgType: "parent_header", cause: err}
	}
	if err := json.Unmarshal(metadata, &m.Metadata); err != nil {
		return nil, nil, &DecodeError{msgType: "metadata", cause: err}
	}

	return m, content, nil
}
