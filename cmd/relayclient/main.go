// Command relayclient is a minimal interactive client for a relay node:
// it reads "<hex-addressee> <message>" lines from stdin and prints
// messages it receives (spec.md §6 "Contract to the client").
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"fedrelay/client"
	"fedrelay/client/keystore"
	"fedrelay/domain/identity"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	url := flag.String("url", "ws://localhost:8080/relay", "relay WebSocket URL")
	keyPath := flag.String("keyfile", "", "path to the client keystore file (default: ~/.fedrelay/client_key.json)")
	flag.Parse()

	path := *keyPath
	if path == "" {
		var err error
		path, err = keystore.DefaultPath()
		if err != nil {
			return err
		}
	}
	kp, err := keystore.LoadOrGenerate(path)
	if err != nil {
		return fmt.Errorf("relayclient: %w", err)
	}
	fmt.Printf("identity: %s\n", kp.Public.Hex())

	ctx := context.Background()
	c, err := client.Dial(ctx, *url, kp)
	if err != nil {
		return fmt.Errorf("relayclient: %w", err)
	}
	defer c.Close()

	go func() {
		for ev := range c.Events() {
			switch ev.Kind {
			case client.EventAuthenticated:
				fmt.Println("authenticated")
			case client.EventMessage:
				fmt.Printf("from %s: %s\n", ev.SenderID.Hex(), ev.Payload)
			case client.EventClosed:
				if ev.Err != nil {
					fmt.Fprintf(os.Stderr, "session closed: %v\n", ev.Err)
				}
				os.Exit(0)
			}
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 {
			fmt.Fprintln(os.Stderr, "usage: <hex-addressee> <message>")
			continue
		}
		addressee, err := identity.PublicKeyFromHex(parts[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad addressee: %v\n", err)
			continue
		}
		if err := c.Send(addressee, []byte(parts[1])); err != nil {
			fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
		}
	}
	return scanner.Err()
}
