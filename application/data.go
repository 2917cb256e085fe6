package application

import (
	"fedrelay/domain/identity"
	"fedrelay/domain/protocol"
)

// onDataFrame implements the data router (§4.5): strip the 32-byte
// addressee prefix and deliver locally, or hand off to the location
// service on a miss. Called only for sessions already classified client or
// peer.
func (n *Node) onDataFrame(sess Session, f *protocol.Frame) {
	if len(f.Payload) < identity.PublicKeySize {
		n.logger.Printf("session %s: dropping %s frame shorter than address prefix", sess.ID(), f.Type)
		return
	}

	var addr identity.PublicKey
	copy(addr[:], f.Payload[:identity.PublicKeySize])
	rest := f.Payload[identity.PublicKeySize:]

	if rec, ok := n.clients.Lookup(addr); ok && rec.Session != nil {
		out := &protocol.Frame{
			Type:     f.Type,
			Payload:  append([]byte(nil), rest...),
			SenderID: f.SenderID,
		}
		if err := rec.Session.Send(out); err != nil {
			n.logger.Printf("delivery to %s failed: %v", addr.Hex(), err)
		}
		return
	}

	n.forwardRemote(addr, f, sess)
}
