// Package identity defines the key and signature value types shared by every
// layer of the relay: directories key on PublicKey, frames carry it as
// sender_id, and the handshake engine signs/verifies with it.
package identity

import "encoding/hex"

// PublicKeySize is the length in bytes of an Ed25519 public key.
const PublicKeySize = 32

// SignatureSize is the length in bytes of an Ed25519 signature.
const SignatureSize = 64

// PublicKey is a 32-byte Ed25519 public key, compared and hashed by value so
// it can key a map directly — hex is only for log lines and wire encoding.
type PublicKey [PublicKeySize]byte

// IsZero reports whether k is the all-zero key, the frame codec's sentinel
// for "sender not yet known".
func (k PublicKey) IsZero() bool {
	return k == PublicKey{}
}

// Hex returns the canonical 64-character lowercase hex identifier.
func (k PublicKey) Hex() string {
	return hex.EncodeToString(k[:])
}

// PublicKeyFromHex parses a 64-character hex string into a PublicKey.
func PublicKeyFromHex(s string) (PublicKey, error) {
	var k PublicKey
	b, err := hex.DecodeString(s)
	if err != nil {
		return k, err
	}
	if len(b) != PublicKeySize {
		return k, errBadKeyLength
	}
	copy(k[:], b)
	return k, nil
}

// Signature is a 64-byte Ed25519 signature.
type Signature [SignatureSize]byte

// IsZero reports whether s is the all-zero signature, the frame codec's
// sentinel for "not signed".
func (s Signature) IsZero() bool {
	return s == Signature{}
}
