// Package config resolves the node's configuration surface: a listening
// port and an optional single seed peer (§6 "Configuration surface").
package config

import (
	"flag"
	"fmt"
	"os"
)

const defaultPort = "8080"

// Configuration is the process-wide configuration surface spec.md §6
// names: PORT and a single --connect seed address. Deliberately a plain
// struct, not a file-backed DSL — two scalars don't justify one.
type Configuration struct {
	Port       string
	ConnectTo  string // "" if --connect was not passed
	TUI        bool
	ListenAddr string // derived: ws://localhost:<port>/relay, the node's own URL for self-address suppression
}

// NewDefaultConfiguration reads PORT from the environment and parses
// --connect/--tui from args (os.Args[1:] form, excluding the program name).
func NewDefaultConfiguration(args []string) (*Configuration, error) {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	fs := flag.NewFlagSet("relaynode", flag.ContinueOnError)
	connect := fs.String("connect", "", "address of a seed peer to dial on startup")
	tui := fs.Bool("tui", false, "show a live operator status view")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: parsing flags: %w", err)
	}

	return &Configuration{
		Port:       port,
		ConnectTo:  *connect,
		TUI:        *tui,
		ListenAddr: fmt.Sprintf("ws://localhost:%s/relay", port),
	}, nil
}
