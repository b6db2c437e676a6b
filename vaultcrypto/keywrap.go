package vaultcrypto

import (
	"errors"

	"golang.org/x/crypto/curve25519"
)

// ErrKeyWrapFailed is returned by [UnwrapKey] when the sealed blob does not
// authenticate under the recipient's X25519 secret key.
var ErrKeyWrapFailed = errors.New("vaultcrypto: key unwrap authentication failed")

// X25519KeyPair is a recipient keypair for [WrapKey]/[UnwrapKey], a future
// per-vault sharing hook. Sharing itself is out of scope for v1, but the
// primitive is kept as part of the crypto layer's narrow, audited surface.
type X25519KeyPair struct {
	Public [32]byte
	Secret [32]byte
}

// GenerateX25519KeyPair creates a new X25519 keypair via the CSPRNG.
func GenerateX25519KeyPair() (X25519KeyPair, error) {
	var kp X25519KeyPair

	sec, err := RandBytes(32)
	if err != nil {
		return kp, err
	}

	copy(kp.Secret[:], sec)

	pub, err := curve25519.X25519(kp.Secret[:], curve25519.Basepoint)
	if err != nil {
		return kp, err
	}

	copy(kp.Public[:], pub)

	return kp, nil
}

// WrapKey seals key (typically a VaultKey) for recipientPub: an ephemeral
// X25519 keypair performs ECDH with recipientPub, the shared secret is run
// through HKDF, and the result seals key with XChaCha20-Poly1305. The
// returned blob is ephemeralPub(32)‖sealed(...).
func WrapKey(key []byte, recipientPub [32]byte) ([]byte, error) {
	eph, err := GenerateX25519KeyPair()
	if err != nil {
		return nil, err
	}

	shared, err := curve25519.X25519(eph.Secret[:], recipientPub[:])
	if err != nil {
		return nil, err
	}

	wrapKey, err := HKDFDerive(shared, "witflo.keywrap.v1")
	if err != nil {
		return nil, err
	}

	aead, err := NewXChaChaAEAD(wrapKey)
	if err != nil {
		return nil, err
	}

	sealed, err := aead.Seal(key, nil)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, 32+len(sealed))
	out = append(out, eph.Public[:]...)
	out = append(out, sealed...)

	return out, nil
}

// UnwrapKey reverses [WrapKey] given the recipient's X25519 secret key.
func UnwrapKey(blob []byte, recipientSecret [32]byte) ([]byte, error) {
	if len(blob) < 32 {
		return nil, ErrKeyWrapFailed
	}

	ephPub, sealed := blob[:32], blob[32:]

	shared, err := curve25519.X25519(recipientSecret[:], ephPub)
	if err != nil {
		return nil, ErrKeyWrapFailed
	}

	wrapKey, err := HKDFDerive(shared, "witflo.keywrap.v1")
	if err != nil {
		return nil, ErrKeyWrapFailed
	}

	aead, err := NewXChaChaAEAD(wrapKey)
	if err != nil {
		return nil, ErrKeyWrapFailed
	}

	plaintext, err := aead.Open(sealed, nil)
	if err != nil {
		return nil, ErrKeyWrapFailed
	}

	return plaintext, nil
}
