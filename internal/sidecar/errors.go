package sidecar

import "fmt"

// Timeout reports that a deadlined wait (lsp, execute --wait-for-idle,
// check) expired with no qualifying message.
type Timeout struct {
	waitingFor string
}

func (e *Timeout) Error() string {
	return fmt.Sprintf("timed out waiting for %s", e.waitingFor)
}

func newTimeout(waitingFor string) error {
	return &Timeout{waitingFor: waitingFor}
}

// CommClosed reports that, in Lsp mode, the kernel closed our comm before
// ever sending a port.
type CommClosed struct {
	commID string
}

func (e *CommClosed) Error() string {
	return fmt.Sprintf("comm %s was closed before a port was received", e.commID)
}

func newCommClosed(commID string) error {
	return &CommClosed{commID: commID}
}
