package vaultcrypto

import (
	"crypto/ed25519"
	"fmt"
)

// SignKeyPair is an Ed25519 keypair identifying a device for sync-operation
// signing, the source of a device's device_id and its operation signatures.
type SignKeyPair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// GenerateSignKeyPair creates a new Ed25519 keypair via the CSPRNG.
func GenerateSignKeyPair() (SignKeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return SignKeyPair{}, err
	}

	return SignKeyPair{Public: pub, Private: priv}, nil
}

// Sign produces a 64-byte Ed25519 signature over msg.
func Sign(priv ed25519.PrivateKey, msg []byte) []byte {
	return ed25519.Sign(priv, msg)
}

// Verify reports whether sig is a valid Ed25519 signature over msg under pub.
func Verify(pub ed25519.PublicKey, msg, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}

	return ed25519.Verify(pub, msg, sig)
}

// VerifyStrict is like Verify but returns an error describing why
// verification failed, for callers that want a wrapped cause.
func VerifyStrict(pub ed25519.PublicKey, msg, sig []byte) error {
	if !Verify(pub, msg, sig) {
		return fmt.Errorf("vaultcrypto: signature verification failed")
	}

	return nil
}
