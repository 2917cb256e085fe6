package application

import "time"

// Seed schedules an immediate dial to addr — used once at startup for the
// operator-supplied --connect seed peer (§6 "Configuration surface").
func (n *Node) Seed(addr string) {
	n.scheduleDial(addr, 0)
}

// scheduleDial dials addr (optionally after delay) on a fresh goroutine —
// the dial itself is a suspension point (§5) and must not block the actor.
// Success or failure is reported back via Post, so directory mutation
// still happens only inside the actor loop.
func (n *Node) scheduleDial(addr string, delay time.Duration) {
	if n.dialer == nil {
		return
	}
	go func() {
		if delay > 0 {
			time.Sleep(delay)
		}
		sess, err := n.dialer.Dial(addr)
		if err != nil {
			n.logger.Printf("dial %s failed: %v", addr, err)
			return
		}
		n.Post(evSessionOpened{sess: sess, outbound: true, addr: addr})
		// Only start consuming inbound frames after SessionOpened is queued
		// ahead of them (see Readable's doc comment).
		if r, ok := sess.(Readable); ok {
			r.StartReading(n)
		}
	}()
}
