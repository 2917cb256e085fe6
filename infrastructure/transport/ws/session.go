// Package ws adapts github.com/coder/websocket into the application.Session
// contract: one WebSocket binary message per frame (§4.1, §6 "the transport
// must deliver each frame as a single message").
package ws

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"

	"fedrelay/application"
	"fedrelay/domain/protocol"
)

var errSessionClosed = errors.New("ws: session closed")

// outboundQueueSize bounds how many frames can be enqueued ahead of the
// writer goroutine before Send blocks; generous enough that a single
// gossip broadcast never stalls the actor's synchronous Send call.
const outboundQueueSize = 64

// Session wraps one *websocket.Conn as an application.Session. A dedicated
// writer goroutine serializes outbound frames so Send only needs to
// enqueue — per §5, frame writes are a suspension point that must not
// block the actor.
type Session struct {
	id     string
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
	out    chan []byte
	closed atomic.Bool
	once   sync.Once
}

// New wraps conn as a Session identified by id and starts its writer loop.
func New(id string, conn *websocket.Conn) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{id: id, conn: conn, ctx: ctx, cancel: cancel, out: make(chan []byte, outboundQueueSize)}
	go s.writeLoop()
	return s
}

func (s *Session) ID() string { return s.id }

// Send marshals f and enqueues it for the writer goroutine. Never blocks on
// network I/O.
func (s *Session) Send(f *protocol.Frame) error {
	if s.closed.Load() {
		return errSessionClosed
	}
	buf, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	select {
	case s.out <- buf:
		return nil
	case <-s.ctx.Done():
		return errSessionClosed
	}
}

func (s *Session) writeLoop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case buf := <-s.out:
			if err := s.conn.Write(s.ctx, websocket.MessageBinary, buf); err != nil {
				s.Close()
				return
			}
		}
	}
}

// Close tears down the session. Idempotent.
func (s *Session) Close() error {
	s.once.Do(func() {
		s.closed.Store(true)
		s.cancel()
		s.conn.Close(websocket.StatusNormalClosure, "session closed")
	})
	return nil
}

// StartReading begins consuming inbound frames on its own goroutine.
// Implements application.Readable for dialed sessions — see that
// interface's doc comment for why the ordering matters.
func (s *Session) StartReading(node *application.Node) {
	go s.ReadLoop(node)
}

// ReadLoop reads frames from conn until it closes or ctx is cancelled,
// feeding each one to node. It owns reporting the session's lifecycle to
// node: call this after node.SessionOpened has already been posted.
func (s *Session) ReadLoop(node *application.Node) {
	defer func() {
		s.Close()
		node.SessionClosed(s)
	}()

	for {
		_, data, err := s.conn.Read(s.ctx)
		if err != nil {
			return
		}
		frame, err := protocol.Decode(data)
		if err != nil {
			// A decode failure is a protocol violation (§7 "Decode
			// failure"): close the session outright.
			return
		}
		node.FrameReceived(s, frame)
	}
}
