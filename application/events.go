package application

import (
	"fedrelay/domain/identity"
	"fedrelay/domain/protocol"
)

// event is anything the actor loop can consume. All mutation of the
// directories, handshake state, and pending-query table happens from
// within handle(event), so there is exactly one mutator (§5).
type event interface{ isEvent() }

type evFrame struct {
	sess  Session
	frame *protocol.Frame
}

type evSessionOpened struct {
	sess     Session
	outbound bool
	addr     string // non-empty only for outbound (dialed) sessions
}

type evSessionClosed struct {
	sess Session
}

type evQueryDeadline struct {
	addr identity.PublicKey
}

type evSnapshotRequest struct {
	reply chan Snapshot
}

func (evFrame) isEvent()           {}
func (evSessionOpened) isEvent()   {}
func (evSessionClosed) isEvent()   {}
func (evQueryDeadline) isEvent()   {}
func (evSnapshotRequest) isEvent() {}
