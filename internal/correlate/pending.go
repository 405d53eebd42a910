// Package correlate implements the request-id correlator: the mapping from
// an outbound comm message's msg_id to the caller-supplied request id that
// should be stamped back onto its reply.
//
// Pending is owned exclusively by the multiplexer loop (spec §5 — the core
// has no mutexes or channels outside the socket polling goroutines), so it
// needs no locking of its own.
package correlate

// Pending tracks msg_id -> request_id for comm_msg forwards that still await
// a reply.
type Pending struct {
	byMsgID map[string]string
}

// NewPending builds an empty correlation table.
func NewPending() *Pending {
	return &Pending{byMsgID: make(map[string]string)}
}

// Record remembers that outbound message outboundMsgID carries requestID,
// to be stamped onto whichever reply arrives with a matching
// parent_header.msg_id.
func (p *Pending) Record(outboundMsgID, requestID string) {
	p.byMsgID[outboundMsgID] = requestID
}

// Resolve looks up the pending request id for a reply's parent msg_id. The
// entry, if any, is removed unconditionally: spec §3 and §4.4 guarantee
// every entry is removed exactly once, whether by stamping a reply or by
// discovering the reply already carries its own id.
func (p *Pending) Resolve(parentMsgID string) (requestID string, ok bool) {
	requestID, ok = p.byMsgID[parentMsgID]
	if ok {
		delete(p.byMsgID, parentMsgID)
	}
	return requestID, ok
}

// Len reports the number of outstanding correlations, used by tests to
// assert the table empties out.
func (p *Pending) Len() int {
	return len(p.byMsgID)
}

// Apply implements spec §4.4's reply-side logic for one inbound comm_msg's
// data: if data already carries an "id", the pending entry (if any) is
// dropped and data passed through unchanged; otherwise, if a pending entry
// matches parentMsgID, "id" is stamped into data from the correlation table.
func (p *Pending) Apply(parentMsgID string, data map[string]interface{}) map[string]interface{} {
	if _, hasID := data["id"]; hasID {
		p.Resolve(parentMsgID)
		return data
	}
	if requestID, ok := p.Resolve(parentMsgID); ok {
		data["id"] = requestID
	}
	return data
}
