// Package keystore persists a client's long-lived Ed25519 signing identity
// between runs (spec.md calls client keys "long-lived"; §3's "non-persistent"
// rule is scoped to a relay node's own identity, not a client's).
package keystore

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ed25519"

	"fedrelay/domain/identity"
)

type fileFormat struct {
	PrivateKeyB64 string `json:"private_key"`
}

// DefaultPath returns ~/.fedrelay/client_key.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("keystore: resolving home directory: %w", err)
	}
	return filepath.Join(home, ".fedrelay", "client_key.json"), nil
}

// LoadOrGenerate reads an existing keypair from path, or generates and
// persists a fresh one if the file does not exist yet.
func LoadOrGenerate(path string) (identity.KeyPair, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return decode(path, data)
	}
	if !os.IsNotExist(err) {
		return identity.KeyPair{}, fmt.Errorf("keystore: reading %s: %w", path, err)
	}

	kp, err := identity.Generate()
	if err != nil {
		return identity.KeyPair{}, fmt.Errorf("keystore: generating keypair: %w", err)
	}
	if err := save(path, kp); err != nil {
		return identity.KeyPair{}, err
	}
	return kp, nil
}

func decode(path string, data []byte) (identity.KeyPair, error) {
	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		return identity.KeyPair{}, fmt.Errorf("keystore: parsing %s: %w", path, err)
	}
	raw, err := base64.StdEncoding.DecodeString(ff.PrivateKeyB64)
	if err != nil {
		return identity.KeyPair{}, fmt.Errorf("keystore: decoding key in %s: %w", path, err)
	}
	return identity.FromPrivateKey(ed25519.PrivateKey(raw)), nil
}

func save(path string, kp identity.KeyPair) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("keystore: creating directory for %s: %w", path, err)
	}
	ff := fileFormat{PrivateKeyB64: base64.StdEncoding.EncodeToString(kp.PrivateKeyBytes())}
	data, err := json.MarshalIndent(ff, "", "  ")
	if err != nil {
		return fmt.Errorf("keystore: encoding keypair: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("keystore: writing %s: %w", path, err)
	}
	return nil
}
