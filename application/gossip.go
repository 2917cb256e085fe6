package application

import (
	"time"

	"fedrelay/domain/protocol"
)

// onNodeInfoFrame sub-dispatches a NODE_INFO frame by its first payload
// byte (§4.7). Called only for sessions already classified client or peer.
func (n *Node) onNodeInfoFrame(sess Session, f *protocol.Frame) {
	if len(f.Payload) < 1 {
		n.logger.Printf("session %s: dropping empty NODE_INFO payload", sess.ID())
		return
	}
	subtype := protocol.NodeInfoSubtype(f.Payload[0])
	body := f.Payload[1:]

	switch subtype {
	case protocol.SubtypeRequestServers:
		n.handleRequestServers(sess)
	case protocol.SubtypeResponseServers:
		if n.classify(sess) != KindPeer {
			return
		}
		n.handleResponseServers(body)
	case protocol.SubtypeAddServer:
		n.handleAddServer(body)
	case protocol.SubtypeQueryClient:
		n.handleQueryClient(sess, body)
	case protocol.SubtypeQueryResponse:
		n.handleQueryResponse(body)
	default:
		n.logger.Printf("session %s: ignoring NODE_INFO subtype %d", sess.ID(), subtype)
	}
}

// handleRequestServers replies with every peer directory entry whose
// address is known, excluding this node's own identity.
func (n *Node) handleRequestServers(sess Session) {
	var adverts []protocol.ServerAdvert
	for _, r := range n.peers.All() {
		if r.Address != "" && r.Address != "unknown" {
			adverts = append(adverts, protocol.ServerAdvert{PublicKey: r.Key, Address: r.Address})
		}
	}
	frame := &protocol.Frame{
		Type:     protocol.TypeNodeInfo,
		Payload:  protocol.EncodeResponseServers(adverts),
		SenderID: n.self.Public,
	}
	if err := sess.Send(frame); err != nil {
		n.logger.Printf("session %s: RESPONSE_SERVERS send failed: %v", sess.ID(), err)
	}
}

// handleResponseServers inserts sessionless peer records for newly
// advertised peers and schedules a discovery dial for each (§4.7).
func (n *Node) handleResponseServers(body []byte) {
	adverts, err := protocol.DecodeResponseServers(body)
	if err != nil {
		n.logger.Printf("malformed RESPONSE_SERVERS: %v", err)
		return
	}
	for _, a := range adverts {
		if a.PublicKey == n.self.Public {
			continue
		}
		if a.Address == n.ownAddr {
			continue // self-address suppression (§3)
		}
		if n.peers.Has(a.PublicKey) {
			continue
		}
		n.peers.PutSessionless(a.PublicKey, a.Address)
		n.scheduleDial(a.Address, 100*time.Millisecond)
	}
}

// handleAddServer dials addr unless it is this node's own listening URL or
// already known as a peer address (§3, §4.7).
func (n *Node) handleAddServer(body []byte) {
	addr, err := protocol.DecodeAddServer(body)
	if err != nil {
		n.logger.Printf("malformed ADD_SERVER: %v", err)
		return
	}
	if addr == n.ownAddr {
		return
	}
	if n.peers.HasAddress(addr) {
		return
	}
	n.scheduleDial(addr, 0)
}

// handleQueryClient answers a one-hop lookup: found+own key if the target
// is a local client, not-found otherwise. Never forwarded further (§4.7).
func (n *Node) handleQueryClient(sess Session, body []byte) {
	target, err := protocol.DecodeQueryClient(body)
	if err != nil {
		n.logger.Printf("malformed QUERY_CLIENT: %v", err)
		return
	}

	var payload []byte
	if n.clients.Has(target) {
		owner := n.self.Public
		payload = protocol.EncodeQueryResponse(protocol.QueryFound, target, &owner)
	} else {
		payload = protocol.EncodeQueryResponse(protocol.QueryNotFound, target, nil)
	}
	frame := &protocol.Frame{Type: protocol.TypeNodeInfo, Payload: payload, SenderID: n.self.Public}
	if err := sess.Send(frame); err != nil {
		n.logger.Printf("session %s: QUERY_RESPONSE send failed: %v", sess.ID(), err)
	}
}

func (n *Node) handleQueryResponse(body []byte) {
	resp, err := protocol.DecodeQueryResponse(body)
	if err != nil {
		n.logger.Printf("malformed QUERY_RESPONSE: %v", err)
		return
	}
	n.onQueryResponse(resp)
}
