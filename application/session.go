package application

import "fedrelay/domain/protocol"

// Session is a transport's view of one bidirectional binary stream (§3
// "Session"). Implementations own their own send-side serialization — Send
// must not block the actor goroutine for longer than it takes to enqueue.
type Session interface {
	// ID is a local opaque identifier used only for logging.
	ID() string
	// Send enqueues one frame for delivery. It returns an error if the
	// session is already closed or the frame cannot be encoded; it never
	// blocks on network I/O.
	Send(f *protocol.Frame) error
	// Close tears down the session. Idempotent.
	Close() error
}

// Readable is implemented by sessions that need an explicit signal to begin
// consuming inbound frames once the actor has recorded them as open. A
// dialed session must not start reading until after SessionOpened has been
// posted, so the handshake greeting is never raced by an inbound frame;
// accepted sessions have no such ordering requirement and need not
// implement this.
type Readable interface {
	StartReading(node *Node)
}

// Kind classifies a session as the handshake engine resolves it.
type Kind int

const (
	KindUnset Kind = iota
	KindClient
	KindPeer
)

func (k Kind) String() string {
	switch k {
	case KindClient:
		return "client"
	case KindPeer:
		return "peer"
	default:
		return "unset"
	}
}
