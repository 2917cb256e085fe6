package ws

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/coder/websocket"

	"fedrelay/application"
)

// Dialer establishes outbound peer sessions (§4.8 "Transport adapter" —
// the outbound half), implementing application.Dialer.
type Dialer struct {
	nextID atomic.Uint64
}

// NewDialer builds a Dialer.
func NewDialer() *Dialer {
	return &Dialer{}
}

// Dial connects to addr. The returned session does not start reading
// frames until StartReading is called — see application.Readable.
func (d *Dialer) Dial(addr string) (application.Session, error) {
	conn, _, err := websocket.Dial(context.Background(), addr, nil)
	if err != nil {
		return nil, fmt.Errorf("ws: dial %s: %w", addr, err)
	}
	id := fmt.Sprintf("out-%d-%s", d.nextID.Add(1), addr)
	return New(id, conn), nil
}
