package application

import (
	"sort"

	"fedrelay/domain/identity"
)

// ClientView is one read-only row of the local-client directory.
type ClientView struct {
	Key identity.PublicKey
}

// PeerView is one read-only row of the peer directory.
type PeerView struct {
	Key       identity.PublicKey
	Address   string
	Connected bool
}

// Snapshot is a consistent, point-in-time, read-only view of node state —
// everything the operator status view needs and nothing it can mutate
// (§5: only the actor mutates directories, handshake state, and the
// pending-query table; a Snapshot is a copy handed out across that
// boundary).
type Snapshot struct {
	Clients []ClientView
	Peers   []PeerView
	Pending []identity.PublicKey
}

// Snapshot returns a consistent view of current node state, safe to call
// from any goroutine. It blocks until the actor processes the request.
func (n *Node) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	n.Post(evSnapshotRequest{reply: reply})
	return <-reply
}

func (n *Node) snapshot() Snapshot {
	s := Snapshot{}
	for _, r := range n.clients.All() {
		s.Clients = append(s.Clients, ClientView{Key: r.Key})
	}
	for _, r := range n.peers.All() {
		s.Peers = append(s.Peers, PeerView{Key: r.Key, Address: r.Address, Connected: r.Session != nil})
	}
	s.Pending = n.pending.Addrs()

	sort.Slice(s.Clients, func(i, j int) bool { return s.Clients[i].Key.Hex() < s.Clients[j].Key.Hex() })
	sort.Slice(s.Peers, func(i, j int) bool { return s.Peers[i].Key.Hex() < s.Peers[j].Key.Hex() })
	sort.Slice(s.Pending, func(i, j int) bool { return s.Pending[i].Hex() < s.Pending[j].Hex() })
	return s
}
