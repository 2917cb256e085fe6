// Package client is the SDK side of §6's "Contract to the client": dial the
// relay, complete the challenge/response handshake, then send and receive
// opaque payloads addressed by public key.
package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/coder/websocket"

	"fedrelay/domain/identity"
	"fedrelay/domain/protocol"
)

// EventKind discriminates a Client event — the typed sum-type events the
// design notes ask for in place of the reference's onopen/onmessage
// callbacks (§9).
type EventKind int

const (
	EventAuthenticated EventKind = iota
	EventMessage
	EventClosed
)

// Event is one item delivered on a Client's event channel.
type Event struct {
	Kind     EventKind
	SenderID identity.PublicKey // set on EventMessage
	Payload  []byte             // set on EventMessage; addressee prefix already stripped
	Err      error              // set on EventClosed; nil on a clean close
}

// Client is one authenticated (once the handshake completes) session to a
// relay node.
type Client struct {
	conn   *websocket.Conn
	kp     identity.KeyPair
	events chan Event

	ctx    context.Context
	cancel context.CancelFunc

	sendMu sync.Mutex
}

// Dial connects to url (a "ws://host:port/relay" relay listener) and starts
// the handshake. Events — including EventAuthenticated — arrive on the
// channel returned by Events.
func Dial(ctx context.Context, url string, kp identity.KeyPair) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", url, err)
	}
	cctx, cancel := context.WithCancel(ctx)
	c := &Client{
		conn:   conn,
		kp:     kp,
		events: make(chan Event, 32),
		ctx:    cctx,
		cancel: cancel,
	}
	go c.run()
	return c, nil
}

// Events returns the channel events are delivered on. Closed when the
// session ends.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Send delivers payload to addressee. SIGNED_DATA is not produced here —
// see SendSigned for the end-to-end-authenticated variant (§6).
func (c *Client) Send(addressee identity.PublicKey, payload []byte) error {
	return c.sendData(protocol.TypeData, addressee, payload)
}

// SendSigned produces a SIGNED_DATA frame whose payload is
// addressee(32) || signature(64) || content, with the signature covering
// content under this client's key. The relay does not verify this
// signature — the receiving client must (§6).
func (c *Client) SendSigned(addressee identity.PublicKey, content []byte) error {
	sig := c.kp.Sign(content)
	full := make([]byte, identity.PublicKeySize+identity.SignatureSize+len(content))
	copy(full, addressee[:])
	copy(full[identity.PublicKeySize:], sig[:])
	copy(full[identity.PublicKeySize+identity.SignatureSize:], content)
	return c.write(&protocol.Frame{Type: protocol.TypeSignedData, Payload: full, SenderID: c.kp.Public})
}

func (c *Client) sendData(t protocol.Type, addressee identity.PublicKey, payload []byte) error {
	full := make([]byte, identity.PublicKeySize+len(payload))
	copy(full, addressee[:])
	copy(full[identity.PublicKeySize:], payload)
	return c.write(&protocol.Frame{Type: t, Payload: full, SenderID: c.kp.Public})
}

// Close ends the session.
func (c *Client) Close() error {
	c.cancel()
	return c.conn.Close(websocket.StatusNormalClosure, "closed")
}

func (c *Client) write(f *protocol.Frame) error {
	buf, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.conn.Write(c.ctx, websocket.MessageBinary, buf)
}

func (c *Client) run() {
	defer close(c.events)
	defer c.conn.Close(websocket.StatusNormalClosure, "session ended")

	for {
		_, data, err := c.conn.Read(c.ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				err = nil
			}
			c.emit(Event{Kind: EventClosed, Err: err})
			return
		}
		frame, err := protocol.Decode(data)
		if err != nil {
			c.emit(Event{Kind: EventClosed, Err: fmt.Errorf("client: decoding frame: %w", err)})
			return
		}

		switch frame.Type {
		case protocol.TypeHandshake:
			if err := c.handleHandshake(frame); err != nil {
				c.emit(Event{Kind: EventClosed, Err: err})
				return
			}
		case protocol.TypeData, protocol.TypeSignedData:
			c.emit(Event{Kind: EventMessage, SenderID: frame.SenderID, Payload: frame.Payload})
		case protocol.TypeNodeInfo:
			// Gossip is relay-to-relay traffic; the client SDK has no use
			// for it and silently ignores any it is sent.
		}
	}
}

// handleHandshake drives the client half of §4.3 as literally walked
// through in spec.md §8 scenario 1: sign whatever 32-byte challenge the
// relay sends, then wait for the one-byte confirmation.
func (c *Client) handleHandshake(f *protocol.Frame) error {
	switch {
	case len(f.Payload) == 32 && f.Signature.IsZero():
		sig := c.kp.Sign(f.Payload)
		reply := &protocol.Frame{
			Type:      protocol.TypeHandshake,
			Payload:   append([]byte(nil), f.Payload...),
			SenderID:  c.kp.Public,
			Signature: sig,
		}
		return c.write(reply)

	case len(f.Payload) == 1 && f.Payload[0] == 0x01:
		c.emit(Event{Kind: EventAuthenticated})
		return nil

	default:
		return fmt.Errorf("client: unexpected handshake frame shape (payload len %d)", len(f.Payload))
	}
}

func (c *Client) emit(e Event) {
	select {
	case c.events <- e:
	case <-c.ctx.Done():
	}
}
