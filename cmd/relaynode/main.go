// Command relaynode runs one federated message relay node (spec.md §1-§8).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"fedrelay/application"
	"fedrelay/domain/identity"
	"fedrelay/infrastructure/config"
	"fedrelay/infrastructure/logging"
	"fedrelay/infrastructure/transport/ws"
	"fedrelay/presentation/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.NewDefaultConfiguration(os.Args[1:])
	if err != nil {
		return err
	}

	logger := logging.NewLogLogger(os.Stderr)

	self, err := identity.Generate()
	if err != nil {
		return fmt.Errorf("relaynode: generating node identity: %w", err)
	}
	logger.Printf("node identity %s listening on %s", self.Public.Hex(), cfg.ListenAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, unix.SIGTERM)
	go func() {
		<-sigCh
		logger.Printf("shutting down")
		cancel()
	}()

	node := application.NewNode(logger, self, cfg.ListenAddr, ws.NewDialer())
	server := ws.NewServer(node, logger)

	// The node's actor loop and its WebSocket listener are the two
	// long-lived drivers of this process; group them so that either one
	// exiting tears the other down, and so a listener bind failure is
	// reported back through Wait rather than a side channel.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		node.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return server.ListenAndServe(gctx, ":"+cfg.Port)
	})

	if cfg.ConnectTo != "" {
		node.Seed(cfg.ConnectTo)
	}

	if cfg.TUI {
		if _, err := tea.NewProgram(tui.New(node)).Run(); err != nil {
			cancel()
			return fmt.Errorf("relaynode: tui: %w", err)
		}
		cancel()
	} else {
		<-gctx.Done()
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("relaynode: %w", err)
	}
	return nil
}
