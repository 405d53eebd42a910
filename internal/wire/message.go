package wire

import (
	"time"

	"github.com/gofrs/uuid"
)

// ProtocolVersion is the Jupyter messaging protocol version stamped into
// every outbound header.
const ProtocolVersion = "5.3"

// delimiter is the literal frame separating ZMQ identity routing frames from
// the signed Jupyter payload.
const delimiter = "<IDS|MSG>"

// Header is the `header` (and, on replies, `parent_header`) frame of a
// Jupyter message.
type Header struct {
	MsgID           string `json:"msg_id"`
	Username        string `json:"username"`
	Session         string `json:"session"`
	MsgType         string `json:"msg_type"`
	ProtocolVersion string `json:"version"`
	Date            string `json:"date"`
}

// Session is the ephemeral per-process identifier stamped into every
// outbound message's header. One is generated at startup and lives for the
// process lifetime.
type Session struct {
	ID       string
	Username string
}

// NewSession generates a fresh session identifier.
func NewSession(username string) (Session, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return Session{}, err
	}
	if username == "" {
		username = "sidecar"
	}
	return Session{ID: id.String(), Username: username}, nil
}

// NewHeader builds a fresh header for an outbound message of the given type,
// stamped with this session and a freshly generated msg_id.
func (s Session) NewHeader(msgType string) (Header, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return Header{}, err
	}
	return Header{
		MsgID:           id.String(),
		Username:        s.Username,
		Session:         s.ID,
		MsgType:         msgType,
		ProtocolVersion: ProtocolVersion,
		Date:            time.Now().UTC().Format(time.RFC3339Nano),
	}, nil
}

// Message is a fully decoded inbound Jupyter message: the four JSON frames
// plus whatever identity/routing frames preceded the delimiter.
type Message struct {
	Identities   [][]byte
	Header       Header
	ParentHeader Header
	Metadata     map[string]interface{}
	Content      Content
}

// Composed is the outbound counterpart: what the caller assembles before
// handing it to the codec for signing and framing.
type Composed struct {
	Header       Header
	ParentHeader Header
	Metadata     map[string]interface{}
	Content      interface{}
}
