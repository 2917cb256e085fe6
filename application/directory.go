package application

import (
	"time"

	"fedrelay/domain/identity"
)

// clientRecord is a local-client directory entry (§3 "Local-client record").
type clientRecord struct {
	Key             identity.PublicKey
	Session         Session
	AuthenticatedAt time.Time
}

// clientDirectory maps client public keys to sessions, with a reverse index
// from session to key so a session close can find what to remove (§4.2).
type clientDirectory struct {
	byKey     map[identity.PublicKey]*clientRecord
	bySession map[Session]identity.PublicKey
}

func newClientDirectory() *clientDirectory {
	return &clientDirectory{
		byKey:     make(map[identity.PublicKey]*clientRecord),
		bySession: make(map[Session]identity.PublicKey),
	}
}

// Put inserts or replaces the record for key. If a prior session was
// attached and differs from sess, it is closed before the index updates,
// per the replace-closes-old-session invariant (§3, §4.2).
func (d *clientDirectory) Put(key identity.PublicKey, sess Session, now time.Time) {
	if old, ok := d.byKey[key]; ok {
		if old.Session != nil && old.Session != sess {
			old.Session.Close()
		}
		delete(d.bySession, old.Session)
	}
	d.byKey[key] = &clientRecord{Key: key, Session: sess, AuthenticatedAt: now}
	d.bySession[sess] = key
}

func (d *clientDirectory) RemoveByKey(key identity.PublicKey) {
	if r, ok := d.byKey[key]; ok {
		delete(d.bySession, r.Session)
		delete(d.byKey, key)
	}
}

func (d *clientDirectory) RemoveBySession(sess Session) {
	if key, ok := d.bySession[sess]; ok {
		delete(d.byKey, key)
		delete(d.bySession, sess)
	}
}

func (d *clientDirectory) Lookup(key identity.PublicKey) (*clientRecord, bool) {
	r, ok := d.byKey[key]
	return r, ok
}

func (d *clientDirectory) LookupBySession(sess Session) (identity.PublicKey, bool) {
	key, ok := d.bySession[sess]
	return key, ok
}

func (d *clientDirectory) Has(key identity.PublicKey) bool {
	_, ok := d.byKey[key]
	return ok
}

func (d *clientDirectory) All() []*clientRecord {
	out := make([]*clientRecord, 0, len(d.byKey))
	for _, r := range d.byKey {
		out = append(out, r)
	}
	return out
}

// peerRecord is a peer-directory entry (§3 "Peer record"). Session is nil
// for a "known-about" sessionless record.
type peerRecord struct {
	Key     identity.PublicKey
	Address string // "unknown" if never learned
	Session Session
}

// peerDirectory maps peer public keys to records, with a reverse index from
// attached session to key (§4.2).
type peerDirectory struct {
	byKey     map[identity.PublicKey]*peerRecord
	bySession map[Session]identity.PublicKey

	// pendingAddr holds the dial address for an outbound session whose
	// peer key isn't known yet — the handshake hasn't completed, so there
	// is no key to index a peerRecord by. Attach consumes this once the
	// session authenticates; DetachSession clears it if the session never
	// gets that far (§3 "Peer record" requires the real dial address, not
	// "unknown", for any peer this node dialed out to).
	pendingAddr map[Session]string
}

func newPeerDirectory() *peerDirectory {
	return &peerDirectory{
		byKey:       make(map[identity.PublicKey]*peerRecord),
		bySession:   make(map[Session]identity.PublicKey),
		pendingAddr: make(map[Session]string),
	}
}

// NotePendingAddress records the address sess was dialed against, so that a
// subsequent Attach for the key this session authenticates as can stamp the
// real address instead of falling back to "unknown" (§3, §4.7).
func (d *peerDirectory) NotePendingAddress(sess Session, address string) {
	d.pendingAddr[sess] = address
}

// PutSessionless inserts a known-about record with no session attached, for
// discovery (RESPONSE_SERVERS) or when only an address is known. A no-op if
// the key is already present.
func (d *peerDirectory) PutSessionless(key identity.PublicKey, address string) {
	if _, ok := d.byKey[key]; ok {
		return
	}
	d.byKey[key] = &peerRecord{Key: key, Address: address}
}

// Attach upserts key with sess attached, preserving any prior known address.
// If this is a brand-new record and sess was dialed out by this node (see
// NotePendingAddress), the dial address is preserved instead of "unknown".
// The prior session, if any and distinct, is closed first (§4.2, §4.3).
func (d *peerDirectory) Attach(key identity.PublicKey, sess Session) {
	r, ok := d.byKey[key]
	if !ok {
		address := "unknown"
		if a, ok := d.pendingAddr[sess]; ok {
			address = a
		}
		r = &peerRecord{Key: key, Address: address}
		d.byKey[key] = r
	} else if r.Session != nil && r.Session != sess {
		r.Session.Close()
		delete(d.bySession, r.Session)
	}
	r.Session = sess
	d.bySession[sess] = key
	delete(d.pendingAddr, sess)
}

// DetachSession removes the session attachment on a close but keeps the
// record itself (and its address) so the peer remains re-dialable (§3
// "Lifecycle").
func (d *peerDirectory) DetachSession(sess Session) {
	delete(d.pendingAddr, sess)
	key, ok := d.bySession[sess]
	if !ok {
		return
	}
	delete(d.bySession, sess)
	if r, ok := d.byKey[key]; ok {
		r.Session = nil
	}
}

func (d *peerDirectory) Lookup(key identity.PublicKey) (*peerRecord, bool) {
	r, ok := d.byKey[key]
	return r, ok
}

func (d *peerDirectory) LookupBySession(sess Session) (identity.PublicKey, bool) {
	key, ok := d.bySession[sess]
	return key, ok
}

func (d *peerDirectory) Has(key identity.PublicKey) bool {
	_, ok := d.byKey[key]
	return ok
}

func (d *peerDirectory) HasAddress(address string) bool {
	for _, r := range d.byKey {
		if r.Address == address {
			return true
		}
	}
	return false
}

func (d *peerDirectory) All() []*peerRecord {
	out := make([]*peerRecord, 0, len(d.byKey))
	for _, r := range d.byKey {
		out = append(out, r)
	}
	return out
}

// OpenSessions returns the sessions of every peer record currently attached,
// for gossip fan-out broadcast (§4.7).
func (d *peerDirectory) OpenSessions() []Session {
	out := make([]Session, 0, len(d.byKey))
	for _, r := range d.byKey {
		if r.Session != nil {
			out = append(out, r.Session)
		}
	}
	return out
}
