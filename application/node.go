package application

import (
	"context"
	"time"

	"fedrelay/domain/identity"
	"fedrelay/domain/protocol"
)

// Dialer establishes outbound peer sessions. Implemented by the transport
// package; Node never touches a socket directly (§4.8).
type Dialer interface {
	Dial(addr string) (Session, error)
}

// Node is the single actor described in §5: one goroutine (Run) owns the
// two directories, the handshake engine, and the pending-query table.
// Every other goroutine (session readers, dial attempts, query-deadline
// timers) only ever submits events through Post; it never reaches into
// Node's state directly.
type Node struct {
	logger  Logger
	self    identity.KeyPair
	ownAddr string

	clients *clientDirectory
	peers   *peerDirectory
	pending *pendingQueries
	hs      *handshakeEngine
	dialer  Dialer

	// afterFunc is time.AfterFunc by default; overridable in tests so
	// deadline behavior doesn't require real 5-second sleeps.
	afterFunc func(d time.Duration, f func()) func()

	events chan event
}

// NewNode constructs a Node. ownAddr is this node's own listening URL, used
// for self-address suppression (§3). dialer may be nil if outbound peer
// connections are never needed (e.g. in tests exercising only local/inbound
// behavior).
func NewNode(logger Logger, self identity.KeyPair, ownAddr string, dialer Dialer) *Node {
	if logger == nil {
		logger = nopLogger{}
	}
	n := &Node{
		logger:  logger,
		self:    self,
		ownAddr: ownAddr,
		clients: newClientDirectory(),
		peers:   newPeerDirectory(),
		pending: newPendingQueries(),
		hs:      newHandshakeEngine(self),
		dialer:  dialer,
		events:  make(chan event, 256),
	}
	n.afterFunc = func(d time.Duration, f func()) func() {
		t := time.AfterFunc(d, f)
		return func() { t.Stop() }
	}
	return n
}

// Post submits an event for the actor to process. Safe to call from any
// goroutine.
func (n *Node) Post(e event) {
	n.events <- e
}

// SessionOpened reports a newly accepted or dialed transport session. Call
// this once, before the first frame read, so the handshake challenge goes
// out before anything else can arrive on the session.
func (n *Node) SessionOpened(sess Session, outbound bool) {
	n.Post(evSessionOpened{sess: sess, outbound: outbound})
}

// SessionClosed reports that a transport session has ended.
func (n *Node) SessionClosed(sess Session) {
	n.Post(evSessionClosed{sess: sess})
}

// FrameReceived reports one decoded inbound frame for sess.
func (n *Node) FrameReceived(sess Session, f *protocol.Frame) {
	n.Post(evFrame{sess: sess, frame: f})
}

// Run drives the actor loop until ctx is cancelled.
func (n *Node) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-n.events:
			n.handle(e)
		}
	}
}

func (n *Node) handle(e event) {
	switch ev := e.(type) {
	case evFrame:
		n.onFrame(ev.sess, ev.frame)
	case evSessionOpened:
		n.onSessionOpened(ev.sess, ev.outbound, ev.addr)
	case evSessionClosed:
		n.onSessionClosed(ev.sess)
	case evQueryDeadline:
		n.onQueryDeadline(ev.addr)
	case evSnapshotRequest:
		ev.reply <- n.snapshot()
	}
}

// onSessionOpened greets a newly accepted or dialed session with a
// challenge (§4.3 INIT). outbound sessions are pre-marked "peer". For an
// outbound session, addr is the URL it was dialed against; it's stashed so
// the peerRecord Attach creates once this session authenticates carries the
// real dial address instead of "unknown" (§3, §4.7).
func (n *Node) onSessionOpened(sess Session, outbound bool, addr string) {
	if outbound && addr != "" {
		n.peers.NotePendingAddress(sess, addr)
	}
	reply := n.hs.Greet(sess, outbound)
	if err := sess.Send(reply); err != nil {
		n.logger.Printf("session %s: sending initial challenge failed: %v", sess.ID(), err)
	}
}

// onSessionClosed tears down any directory or handshake state referencing
// sess. Pending queries are untouched — they live on their own deadlines
// (§4.8).
func (n *Node) onSessionClosed(sess Session) {
	n.hs.Forget(sess)
	n.clients.RemoveBySession(sess)
	n.peers.DetachSession(sess)
}

// onFrame is the message dispatcher (§4.4): route by frame.Type, closing
// the session on any unexpected shape or unauthenticated access.
func (n *Node) onFrame(sess Session, f *protocol.Frame) {
	switch f.Type {
	case protocol.TypeHandshake:
		n.onHandshakeFrame(sess, f)
	case protocol.TypeData, protocol.TypeSignedData:
		if n.classify(sess) == KindUnset {
			sess.Close()
			return
		}
		n.onDataFrame(sess, f)
	case protocol.TypeNodeInfo:
		if n.classify(sess) == KindUnset {
			sess.Close()
			return
		}
		n.onNodeInfoFrame(sess, f)
	default:
		n.logger.Printf("session %s: closing on unknown frame type %d", sess.ID(), f.Type)
		sess.Close()
	}
}

// classify reports how sess is currently recognized by the directories.
func (n *Node) classify(sess Session) Kind {
	if _, ok := n.clients.LookupBySession(sess); ok {
		return KindClient
	}
	if _, ok := n.peers.LookupBySession(sess); ok {
		return KindPeer
	}
	return KindUnset
}

func (n *Node) onHandshakeFrame(sess Session, f *protocol.Frame) {
	res := n.hs.Handle(sess, f)
	switch res.outcome {
	case outcomeClose:
		sess.Close()
	case outcomeReply:
		if err := sess.Send(res.reply); err != nil {
			n.logger.Printf("session %s: handshake reply failed: %v", sess.ID(), err)
		}
	case outcomeConfirmed:
		// No directory change beyond what the earlier authenticating step
		// already made.
	case outcomeAuthenticated:
		n.applyAuthentication(sess, res)
	}
}

// applyAuthentication installs the directory record for a newly-proven key
// and sends the confirmation frame. A peer-typed session always wins over
// any pre-existing client record for the same key (§9 Open Question #2:
// the stronger "one directory entry per key system-wide" invariant binds).
func (n *Node) applyAuthentication(sess Session, res handshakeResult) {
	becomesPeer := res.provisionalPeer || n.peers.Has(res.key)

	if becomesPeer {
		n.evictClientRecord(res.key)
		n.peers.Attach(res.key, sess)
		n.logger.Printf("session %s authenticated as peer %s", sess.ID(), res.key.Hex())
		if err := sess.Send(res.reply); err != nil {
			n.logger.Printf("session %s: confirmation send failed: %v", sess.ID(), err)
		}
		n.hs.Forget(sess)
		n.onPeerAuthenticated(sess)
		return
	}

	n.clients.Put(res.key, sess, time.Now())
	n.logger.Printf("session %s authenticated as client %s", sess.ID(), res.key.Hex())
	if err := sess.Send(res.reply); err != nil {
		n.logger.Printf("session %s: confirmation send failed: %v", sess.ID(), err)
	}
	n.hs.Forget(sess)
}

func (n *Node) evictClientRecord(key identity.PublicKey) {
	if r, ok := n.clients.Lookup(key); ok {
		if r.Session != nil {
			r.Session.Close()
		}
		n.clients.RemoveByKey(key)
	}
}

// onPeerAuthenticated seeds discovery: emit REQUEST_SERVERS on every newly
// authenticated peer session (§4.7 "Peer discovery is opportunistic").
func (n *Node) onPeerAuthenticated(sess Session) {
	frame := &protocol.Frame{
		Type:     protocol.TypeNodeInfo,
		Payload:  protocol.EncodeRequestServers(),
		SenderID: n.self.Public,
	}
	if err := sess.Send(frame); err != nil {
		n.logger.Printf("session %s: REQUEST_SERVERS send failed: %v", sess.ID(), err)
	}
}
