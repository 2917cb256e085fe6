package application

import (
	"bytes"
	"crypto/rand"

	"fedrelay/domain/identity"
	"fedrelay/domain/protocol"
)

// handshakeState is the per-session ephemeral state the engine tracks while
// a session moves from INIT to authenticated (§4.3).
type handshakeState struct {
	challenge       [32]byte
	provisionalPeer bool
}

// handshakeEngine drives the challenge/response state machine. It never
// touches the directories itself — only Node knows enough about current
// directory contents to decide client-vs-peer upgrade, so Handle returns a
// descriptive outcome and leaves directory mutation to the caller.
type handshakeEngine struct {
	own    identity.KeyPair
	states map[Session]*handshakeState
}

func newHandshakeEngine(own identity.KeyPair) *handshakeEngine {
	return &handshakeEngine{own: own, states: make(map[Session]*handshakeState)}
}

// Greet emits the initial challenge frame for a newly opened session
// (§4.3 INIT). provisionalPeer marks sessions this node dialed itself.
func (h *handshakeEngine) Greet(sess Session, provisionalPeer bool) *protocol.Frame {
	st := &handshakeState{provisionalPeer: provisionalPeer}
	if _, err := rand.Read(st.challenge[:]); err != nil {
		panic(err)
	}
	h.states[sess] = st
	return &protocol.Frame{Type: protocol.TypeHandshake, Payload: append([]byte(nil), st.challenge[:]...)}
}

// Forget drops a session's handshake state, on close or after it becomes
// authenticated. Any HANDSHAKE frame other than the one-byte confirmation
// arriving with no recorded state closes the session, so this also seals
// off replay after authentication.
func (h *handshakeEngine) Forget(sess Session) {
	delete(h.states, sess)
}

type handshakeOutcome int

const (
	outcomeClose handshakeOutcome = iota
	outcomeReply
	outcomeAuthenticated
	outcomeConfirmed
)

// handshakeResult is what Handle decided for one inbound HANDSHAKE frame.
type handshakeResult struct {
	outcome         handshakeOutcome
	reply           *protocol.Frame
	key             identity.PublicKey
	provisionalPeer bool
}

// Handle processes one inbound HANDSHAKE frame per the shape table in §4.3.
func (h *handshakeEngine) Handle(sess Session, f *protocol.Frame) handshakeResult {
	st, ok := h.states[sess]
	if !ok {
		// The other side's confirmation can arrive after this side has
		// already authenticated the session and forgotten its state.
		if len(f.Payload) == 1 && f.Payload[0] == 0x01 {
			return handshakeResult{outcome: outcomeConfirmed}
		}
		return handshakeResult{outcome: outcomeClose}
	}

	switch {
	case len(f.Payload) == 32 && f.Signature.IsZero():
		// An unsigned challenge from a side we haven't identified ourselves
		// to yet: sign it back, attaching our own identity as proof.
		reply := &protocol.Frame{
			Type:      protocol.TypeHandshake,
			Payload:   append([]byte(nil), f.Payload...),
			SenderID:  h.own.Public,
			Signature: h.own.Sign(f.Payload),
		}
		return handshakeResult{outcome: outcomeReply, reply: reply}

	case len(f.Payload) == 32 && !f.Signature.IsZero():
		if !identity.Verify(f.SenderID, f.Payload, f.Signature) {
			return handshakeResult{outcome: outcomeClose}
		}
		if !bytes.Equal(f.Payload, st.challenge[:]) {
			return handshakeResult{outcome: outcomeClose}
		}
		confirm := &protocol.Frame{Type: protocol.TypeHandshake, Payload: []byte{0x01}, SenderID: h.own.Public}
		return handshakeResult{
			outcome:         outcomeAuthenticated,
			reply:           confirm,
			key:             f.SenderID,
			provisionalPeer: st.provisionalPeer,
		}

	case len(f.Payload) == 1 && f.Payload[0] == 0x01:
		return handshakeResult{outcome: outcomeConfirmed}

	default:
		return handshakeResult{outcome: outcomeClose}
	}
}
