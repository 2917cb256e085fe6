package application

import (
	"time"

	"golang.org/x/sync/errgroup"

	"fedrelay/domain/identity"
	"fedrelay/domain/protocol"
)

// forwardRemote is forward_remote from §4.6: park a deep copy of frame
// behind a federated lookup for addr, unless one is already in flight.
func (n *Node) forwardRemote(addr identity.PublicKey, frame *protocol.Frame, sender Session) {
	entry := &pendingEntry{
		Frame:     frame.Clone(),
		Deadline:  time.Now().Add(5 * time.Second),
		SenderRef: sender.ID(),
	}
	if !n.pending.TryInsert(addr, entry) {
		n.logger.Printf("dropping duplicate DATA for %s: query already in flight", addr.Hex())
		return
	}
	entry.cancel = n.afterFunc(5*time.Second, func() {
		n.Post(evQueryDeadline{addr: addr})
	})
	n.broadcastQuery(addr)
}

// broadcastQuery fans QUERY_CLIENT(addr) out to every currently open peer
// session concurrently (§4.7). A slow or blocking peer write must never
// delay delivery to the others, so every send runs on its own goroutine
// under an errgroup.Group; a send failure is logged, not propagated, since
// one unreachable peer must not cancel the query to the rest.
func (n *Node) broadcastQuery(addr identity.PublicKey) {
	frame := &protocol.Frame{
		Type:     protocol.TypeNodeInfo,
		Payload:  protocol.EncodeQueryClient(addr),
		SenderID: n.self.Public,
	}
	var g errgroup.Group
	for _, s := range n.peers.OpenSessions() {
		s := s
		g.Go(func() error {
			if err := s.Send(frame); err != nil {
				n.logger.Printf("broadcast QUERY_CLIENT to %s failed: %v", s.ID(), err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// onQueryDeadline expires a pending entry whose 5-second window elapsed
// without a response (§4.6 "On deadline").
func (n *Node) onQueryDeadline(addr identity.PublicKey) {
	if _, ok := n.pending.Expire(addr); ok {
		n.logger.Printf("pending query for %s expired", addr.Hex())
	}
}

// onQueryResponse implements §4.6's QUERY_RESPONSE handling: first-wins
// consumption of the pending entry, then forwarding to the claimed owner
// if it names a peer with an open session.
func (n *Node) onQueryResponse(resp protocol.QueryResponseBody) {
	entry, ok := n.pending.Take(resp.Target)
	if !ok {
		return
	}
	if resp.Status != protocol.QueryFound {
		return
	}
	rec, ok := n.peers.Lookup(resp.Owner)
	if !ok || rec.Session == nil {
		return
	}
	out := &protocol.Frame{
		Type:     entry.Frame.Type,
		Payload:  entry.Frame.Payload,
		SenderID: entry.Frame.SenderID,
	}
	if err := rec.Session.Send(out); err != nil {
		n.logger.Printf("forwarding to owner %s failed: %v", resp.Owner.Hex(), err)
	}
}
