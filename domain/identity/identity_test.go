package identity

import (
	"testing"

	"golang.org/x/crypto/ed25519"
)

func TestKeyPairSignVerify(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	msg := []byte("challenge bytes")
	sig := kp.Sign(msg)

	if !Verify(kp.Public, msg, sig) {
		t.Fatal("Verify rejected a signature produced by the matching keypair")
	}
	if Verify(kp.Public, []byte("different message"), sig) {
		t.Fatal("Verify accepted a signature over the wrong message")
	}

	other, _ := Generate()
	if Verify(other.Public, msg, sig) {
		t.Fatal("Verify accepted a signature under the wrong public key")
	}
}

func TestFromPrivateKeyRoundTrip(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	raw := kp.PrivateKeyBytes()
	restored := FromPrivateKey(ed25519.PrivateKey(raw))

	if restored.Public != kp.Public {
		t.Fatalf("restored public key = %x, want %x", restored.Public, kp.Public)
	}
	msg := []byte("round trip")
	if !Verify(restored.Public, msg, restored.Sign(msg)) {
		t.Fatal("restored keypair cannot produce a verifiable signature")
	}
}

func TestPublicKeyHexRoundTrip(t *testing.T) {
	kp, _ := Generate()
	hex := kp.Public.Hex()

	parsed, err := PublicKeyFromHex(hex)
	if err != nil {
		t.Fatalf("PublicKeyFromHex: %v", err)
	}
	if parsed != kp.Public {
		t.Fatalf("parsed key = %x, want %x", parsed, kp.Public)
	}

	if _, err := PublicKeyFromHex("not hex"); err == nil {
		t.Fatal("expected an error decoding invalid hex")
	}
	if _, err := PublicKeyFromHex("ab"); err == nil {
		t.Fatal("expected an error decoding a too-short key")
	}
}

func TestZeroValues(t *testing.T) {
	var k PublicKey
	if !k.IsZero() {
		t.Fatal("zero-value PublicKey should report IsZero")
	}
	var s Signature
	if !s.IsZero() {
		t.Fatal("zero-value Signature should report IsZero")
	}
}
