package ws

import (
	"context"
	"testing"
	"time"

	"fedrelay/application"
	"fedrelay/client"
	"fedrelay/domain/identity"
)

func TestServerClientHandshakeAndLocalDelivery(t *testing.T) {
	serverKey, err := identity.Generate()
	if err != nil {
		t.Fatalf("generating server identity: %v", err)
	}
	kc1, _ := identity.Generate()
	kc2, _ := identity.Generate()

	node := application.NewNode(nil, serverKey, "ws://unused", NewDialer())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go node.Run(ctx)

	srv := NewServer(node, nil)
	go srv.ListenAndServe(ctx, "127.0.0.1:0")
	url := "ws://" + waitForListener(t, srv) + RelayPath

	c1, err := client.Dial(ctx, url, kc1)
	if err != nil {
		t.Fatalf("dialing c1: %v", err)
	}
	defer c1.Close()
	waitAuthenticated(t, c1)

	c2, err := client.Dial(ctx, url, kc2)
	if err != nil {
		t.Fatalf("dialing c2: %v", err)
	}
	defer c2.Close()
	waitAuthenticated(t, c2)

	if err := c1.Send(kc2.Public, []byte("hi")); err != nil {
		t.Fatalf("c1.Send: %v", err)
	}

	select {
	case ev := <-c2.Events():
		if ev.Kind != client.EventMessage {
			t.Fatalf("expected EventMessage, got %+v", ev)
		}
		if string(ev.Payload) != "hi" {
			t.Errorf("payload = %q, want %q", ev.Payload, "hi")
		}
		if ev.SenderID != kc1.Public {
			t.Errorf("sender_id = %x, want %x", ev.SenderID, kc1.Public)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for delivered message")
	}
}

func waitForListener(t *testing.T, srv *Server) string {
	t.Helper()
	for i := 0; i < 200; i++ {
		if srv.listener != nil {
			return srv.listener.Addr().String()
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("server never started listening")
	return ""
}

func waitAuthenticated(t *testing.T, c *client.Client) {
	t.Helper()
	select {
	case ev := <-c.Events():
		if ev.Kind != client.EventAuthenticated {
			t.Fatalf("expected EventAuthenticated, got %+v", ev)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for authentication")
	}
}
