package ws

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/coder/websocket"

	"fedrelay/application"
)

// RelayPath is the HTTP path the relay listener upgrades on.
const RelayPath = "/relay"

// Server accepts inbound WebSocket sessions and hands each one to a Node as
// an application.Session (§4.8 "Transport adapter" — the inbound half).
type Server struct {
	node     *application.Node
	logger   application.Logger
	nextID   atomic.Uint64
	listener net.Listener
}

// NewServer builds a Server for node, logging through logger (may be nil).
func NewServer(node *application.Node, logger application.Logger) *Server {
	return &Server{node: node, logger: logger}
}

// ListenAndServe binds addr (":8080" form) and serves upgrades until ctx is
// cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("ws: bind %s: %w", addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc(RelayPath, s.handleUpgrade)
	httpSrv := &http.Server{Handler: mux}

	go func() {
		<-ctx.Done()
		httpSrv.Close()
	}()

	if err := httpSrv.Serve(ln); err != nil && ctx.Err() == nil {
		return fmt.Errorf("ws: serve: %w", err)
	}
	return nil
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log("accept from %s failed: %v", r.RemoteAddr, err)
		return
	}

	id := fmt.Sprintf("in-%d-%s", s.nextID.Add(1), r.RemoteAddr)
	sess := New(id, conn)

	s.node.SessionOpened(sess, false)
	sess.ReadLoop(s.node)
}

func (s *Server) log(format string, v ...any) {
	if s.logger != nil {
		s.logger.Printf(format, v...)
	}
}
