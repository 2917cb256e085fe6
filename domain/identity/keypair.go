package identity

import (
	"crypto/rand"

	"golang.org/x/crypto/ed25519"
)

// KeyPair is an Ed25519 signing identity: a long-lived public key and the
// private key used to prove possession of it during a handshake (§4.3).
type KeyPair struct {
	Public  PublicKey
	private ed25519.PrivateKey
}

// Generate creates a fresh Ed25519 keypair from the system CSPRNG.
func Generate() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, err
	}
	var kp KeyPair
	copy(kp.Public[:], pub)
	kp.private = priv
	return kp, nil
}

// FromPrivateKey rebuilds a KeyPair from a raw 64-byte Ed25519 private key,
// as loaded from an on-disk keystore.
func FromPrivateKey(priv ed25519.PrivateKey) KeyPair {
	var kp KeyPair
	copy(kp.Public[:], priv.Public().(ed25519.PublicKey))
	kp.private = priv
	return kp
}

// PrivateKeyBytes exposes the raw private key for persistence.
func (kp KeyPair) PrivateKeyBytes() []byte {
	return append([]byte(nil), kp.private...)
}

// Sign signs message with the keypair's private key.
func (kp KeyPair) Sign(message []byte) Signature {
	var sig Signature
	copy(sig[:], ed25519.Sign(kp.private, message))
	return sig
}

// Verify checks that sig is a valid Ed25519 signature over message under pub.
func Verify(pub PublicKey, message []byte, sig Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(pub[:]), message, sig[:])
}
