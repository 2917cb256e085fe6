package application

import (
	"errors"
	"sync"
	"testing"
	"time"

	"fedrelay/domain/identity"
	"fedrelay/domain/protocol"
)

var errClosedSession = errors.New("fakeSession: closed")

type fakeSession struct {
	mu     sync.Mutex
	id     string
	sent   []*protocol.Frame
	closed bool
}

func newFakeSession(id string) *fakeSession { return &fakeSession{id: id} }

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Send(f *protocol.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosedSession
	}
	s.sent = append(s.sent, f)
	return nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSession) last() *protocol.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return nil
	}
	return s.sent[len(s.sent)-1]
}

func (s *fakeSession) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func (s *fakeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func authenticateClient(t *testing.T, n *Node, sess *fakeSession, kp identity.KeyPair) {
	t.Helper()
	n.onSessionOpened(sess, false, "")
	challenge := sess.last().Payload

	resp := &protocol.Frame{
		Type:      protocol.TypeHandshake,
		Payload:   challenge,
		SenderID:  kp.Public,
		Signature: kp.Sign(challenge),
	}
	n.onFrame(sess, resp)
}

// authenticatePeer drives the handshake for a session pre-marked as peer, as
// a dialed session is, but with no dial address recorded.
func authenticatePeer(t *testing.T, n *Node, sess *fakeSession, kp identity.KeyPair) {
	t.Helper()
	authenticateDialedPeer(t, n, sess, kp, "")
}

// authenticateDialedPeer drives the handshake for a session this node
// dialed out to at addr, mirroring what scheduleDial/onSessionOpened does.
func authenticateDialedPeer(t *testing.T, n *Node, sess *fakeSession, kp identity.KeyPair, addr string) {
	t.Helper()
	n.onSessionOpened(sess, true, addr)
	challenge := sess.last().Payload

	resp := &protocol.Frame{
		Type:      protocol.TypeHandshake,
		Payload:   challenge,
		SenderID:  kp.Public,
		Signature: kp.Sign(challenge),
	}
	n.onFrame(sess, resp)
}

func TestHandshakeSuccess(t *testing.T) {
	server, _ := identity.Generate()
	client, _ := identity.Generate()
	n := NewNode(nil, server, "ws://server:8080", nil)
	sess := newFakeSession("s1")

	authenticateClient(t, n, sess, client)

	if sess.count() != 2 {
		t.Fatalf("expected challenge + confirm frames, got %d sends", sess.count())
	}
	confirm := sess.last()
	if confirm.Type != protocol.TypeHandshake || len(confirm.Payload) != 1 || confirm.Payload[0] != 0x01 {
		t.Fatalf("expected confirmation frame, got %+v", confirm)
	}
	if confirm.SenderID != server.Public {
		t.Fatalf("confirm sender_id = %x, want own key", confirm.SenderID)
	}

	snap := n.snapshot()
	if len(snap.Clients) != 1 || snap.Clients[0].Key != client.Public {
		t.Fatalf("client directory = %+v, want [%x]", snap.Clients, client.Public)
	}
}

func TestHandshakeChallengeMismatch(t *testing.T) {
	server, _ := identity.Generate()
	client, _ := identity.Generate()
	n := NewNode(nil, server, "ws://server:8080", nil)
	sess := newFakeSession("s1")

	n.onSessionOpened(sess, false, "")

	wrong := make([]byte, 32)
	wrong[0] = 0xFF
	resp := &protocol.Frame{
		Type:      protocol.TypeHandshake,
		Payload:   wrong,
		SenderID:  client.Public,
		Signature: client.Sign(wrong),
	}
	n.onFrame(sess, resp)

	if !sess.isClosed() {
		t.Fatal("expected session to be closed on challenge mismatch")
	}
	if len(n.snapshot().Clients) != 0 {
		t.Fatal("expected no directory mutation on failed handshake")
	}
}

func TestLocalDelivery(t *testing.T) {
	server, _ := identity.Generate()
	kc1, _ := identity.Generate()
	kc2, _ := identity.Generate()
	n := NewNode(nil, server, "ws://server:8080", nil)

	s1, s2 := newFakeSession("c1"), newFakeSession("c2")
	authenticateClient(t, n, s1, kc1)
	authenticateClient(t, n, s2, kc2)

	payload := append(append([]byte(nil), kc2.Public[:]...), []byte("hi")...)
	data := &protocol.Frame{Type: protocol.TypeData, Payload: payload, SenderID: kc1.Public}
	n.onFrame(s1, data)

	got := s2.last()
	if got.Type != protocol.TypeData {
		t.Fatalf("delivered frame type = %v, want DATA", got.Type)
	}
	if string(got.Payload) != "hi" {
		t.Fatalf("delivered payload = %q, want %q", got.Payload, "hi")
	}
	if got.SenderID != kc1.Public {
		t.Fatalf("delivered sender_id = %x, want %x", got.SenderID, kc1.Public)
	}
}

func TestFederatedDelivery(t *testing.T) {
	n1Self, _ := identity.Generate()
	n2Self, _ := identity.Generate()
	kc1, _ := identity.Generate()
	kc2, _ := identity.Generate()

	n1 := NewNode(nil, n1Self, "ws://n1:8080", nil)

	// Peer session on N1's side representing the link to N2.
	peerSess := newFakeSession("peer-to-n2")
	authenticatePeer(t, n1, peerSess, n2Self)
	peerSess.mu.Lock()
	peerSess.sent = nil // discard the REQUEST_SERVERS sent on peer authentication
	peerSess.mu.Unlock()

	clientSess := newFakeSession("c1")
	authenticateClient(t, n1, clientSess, kc1)

	payload := append(append([]byte(nil), kc2.Public[:]...), []byte("hi")...)
	data := &protocol.Frame{Type: protocol.TypeData, Payload: payload, SenderID: kc1.Public}
	n1.onFrame(clientSess, data)

	query := peerSess.last()
	if query.Type != protocol.TypeNodeInfo || protocol.NodeInfoSubtype(query.Payload[0]) != protocol.SubtypeQueryClient {
		t.Fatalf("expected QUERY_CLIENT broadcast, got %+v", query)
	}
	target, err := protocol.DecodeQueryClient(query.Payload[1:])
	if err != nil || target != kc2.Public {
		t.Fatalf("query target = %x, want %x (err=%v)", target, kc2.Public, err)
	}

	resp := &protocol.Frame{
		Type:     protocol.TypeNodeInfo,
		Payload:  protocol.EncodeQueryResponse(protocol.QueryFound, kc2.Public, &n2Self.Public),
		SenderID: n2Self.Public,
	}
	n1.onFrame(peerSess, resp)

	forwarded := peerSess.last()
	if forwarded.Type != protocol.TypeData {
		t.Fatalf("expected forwarded DATA frame, got %+v", forwarded)
	}
	if string(forwarded.Payload) != string(payload) {
		t.Fatalf("forwarded payload = %x, want %x (prefix retained)", forwarded.Payload, payload)
	}
	if forwarded.SenderID != kc1.Public {
		t.Fatalf("forwarded sender_id = %x, want %x", forwarded.SenderID, kc1.Public)
	}
	if n1.pending.Len() != 0 {
		t.Fatal("pending entry should be consumed after QUERY_RESPONSE")
	}
}

func TestQueryTimeoutAndDuplicateSuppression(t *testing.T) {
	server, _ := identity.Generate()
	kc1, _ := identity.Generate()
	missing, _ := identity.Generate()
	n := NewNode(nil, server, "ws://server:8080", nil)

	var scheduled func()
	n.afterFunc = func(d time.Duration, f func()) func() {
		scheduled = f
		return func() { scheduled = nil }
	}

	clientSess := newFakeSession("c1")
	authenticateClient(t, n, clientSess, kc1)

	first := append(append([]byte(nil), missing.Public[:]...), []byte("hi")...)
	n.onFrame(clientSess, &protocol.Frame{Type: protocol.TypeData, Payload: first, SenderID: kc1.Public})
	if n.pending.Len() != 1 {
		t.Fatalf("expected one pending entry, got %d", n.pending.Len())
	}

	second := append(append([]byte(nil), missing.Public[:]...), []byte("again")...)
	n.onFrame(clientSess, &protocol.Frame{Type: protocol.TypeData, Payload: second, SenderID: kc1.Public})
	if n.pending.Len() != 1 {
		t.Fatal("second DATA to the same pending addressee must be dropped, not queued")
	}

	if scheduled == nil {
		t.Fatal("expected a deadline timer to have been armed")
	}
	scheduled()
	n.onQueryDeadline(missing.Public)
	if n.pending.Len() != 0 {
		t.Fatal("expected pending entry to be removed after deadline")
	}
}

func TestPeerDiscovery(t *testing.T) {
	n1Self, _ := identity.Generate()
	n2Self, _ := identity.Generate()
	n3Self, _ := identity.Generate()

	dialed := make(chan string, 1)
	dialer := dialerFunc(func(addr string) (Session, error) {
		dialed <- addr
		return newFakeSession("dialed-" + addr), nil
	})

	n1 := NewNode(nil, n1Self, "ws://n1:8080", dialer)

	peerSess := newFakeSession("peer-to-n2")
	authenticatePeer(t, n1, peerSess, n2Self)

	resp := &protocol.Frame{
		Type: protocol.TypeNodeInfo,
		Payload: protocol.EncodeResponseServers([]protocol.ServerAdvert{
			{PublicKey: n3Self.Public, Address: "ws://n3:8080"},
		}),
		SenderID: n2Self.Public,
	}
	n1.onFrame(peerSess, resp)

	select {
	case addr := <-dialed:
		if addr != "ws://n3:8080" {
			t.Fatalf("dialed %q, want ws://n3:8080", addr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected discovery dial within the 100ms+ schedule window")
	}

	if rec, ok := n1.peers.Lookup(n3Self.Public); !ok || rec.Address != "ws://n3:8080" {
		t.Fatalf("expected sessionless peer record for n3, got %+v ok=%v", rec, ok)
	}
}

// TestOutboundPeerAddressPreserved guards against the dial address being
// dropped between scheduleDial and the peerRecord Attach creates: both the
// --connect seed peer (Seed) and an ADD_SERVER-triggered dial go through
// exactly this onSessionOpened(sess, true, addr) path with no prior
// PutSessionless call, unlike RESPONSE_SERVERS-discovered peers.
func TestOutboundPeerAddressPreserved(t *testing.T) {
	n1Self, _ := identity.Generate()
	n2Self, _ := identity.Generate()
	n := NewNode(nil, n1Self, "ws://n1:8080", nil)

	sess := newFakeSession("dialed-n2")
	authenticateDialedPeer(t, n, sess, n2Self, "ws://n2:8080")

	rec, ok := n.peers.Lookup(n2Self.Public)
	if !ok {
		t.Fatal("expected a peer record for n2")
	}
	if rec.Address != "ws://n2:8080" {
		t.Fatalf("peer address = %q, want %q (not preserved from the dial)", rec.Address, "ws://n2:8080")
	}

	snap := n.snapshot()
	if len(snap.Peers) != 1 || snap.Peers[0].Address != "ws://n2:8080" {
		t.Fatalf("snapshot peers = %+v, want address ws://n2:8080", snap.Peers)
	}
}

type dialerFunc func(addr string) (Session, error)

func (f dialerFunc) Dial(addr string) (Session, error) { return f(addr) }
