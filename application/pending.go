package application

import (
	"time"

	"fedrelay/domain/identity"
	"fedrelay/domain/protocol"
)

// pendingEntry parks one DATA frame behind a federated lookup (§3 "Pending
// query", §4.6).
type pendingEntry struct {
	Frame     *protocol.Frame // deep copy; independent backing storage
	Deadline  time.Time
	SenderRef string // session ID of the frame's origin, for diagnostics
	cancel    func() // stops the deadline timer once consumed
}

// pendingQueries is the one-entry-per-addressee table the location service
// owns. At most one outstanding query per addressee (§4.6 rule 1).
type pendingQueries struct {
	byAddr map[identity.PublicKey]*pendingEntry
}

func newPendingQueries() *pendingQueries {
	return &pendingQueries{byAddr: make(map[identity.PublicKey]*pendingEntry)}
}

// TryInsert inserts an entry for addr if none exists yet, returning true on
// insert and false if an entry was already present (caller must then drop
// the new frame silently, per §4.6 rule 1 / §7 "Duplicate pending query").
func (p *pendingQueries) TryInsert(addr identity.PublicKey, entry *pendingEntry) bool {
	if _, exists := p.byAddr[addr]; exists {
		return false
	}
	p.byAddr[addr] = entry
	return true
}

// Take removes and returns the entry for addr, cancelling its deadline
// timer. The bool is false if no entry existed (§4.6 rule 2, first-wins).
func (p *pendingQueries) Take(addr identity.PublicKey) (*pendingEntry, bool) {
	e, ok := p.byAddr[addr]
	if !ok {
		return nil, false
	}
	delete(p.byAddr, addr)
	if e.cancel != nil {
		e.cancel()
	}
	return e, true
}

// Expire removes the entry for addr only if it is still the same logical
// deadline — invoked from the deadline timer, guarding against a response
// that already consumed the entry between the timer firing and this
// handler running on the actor.
func (p *pendingQueries) Expire(addr identity.PublicKey) (*pendingEntry, bool) {
	e, ok := p.byAddr[addr]
	if !ok {
		return nil, false
	}
	delete(p.byAddr, addr)
	return e, true
}

func (p *pendingQueries) Len() int { return len(p.byAddr) }

func (p *pendingQueries) Addrs() []identity.PublicKey {
	out := make([]identity.PublicKey, 0, len(p.byAddr))
	for k := range p.byAddr {
		out = append(out, k)
	}
	return out
}
