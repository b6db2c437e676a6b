package vaultcrypto

import (
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrNilAEAD is returned when an operation is attempted on a nil XChaChaAEAD.
var ErrNilAEAD = errors.New("vaultcrypto: AEAD is nil")

// XChaChaAEAD wraps a [chacha20poly1305] cipher in its extended-nonce
// (XChaCha20-Poly1305) construction, used for every at-rest and wire
// encryption in the system.
type XChaChaAEAD struct {
	aead chacha20poly1305.AEAD
}

// NewXChaChaAEAD constructs an AEAD over a 32-byte key.
func NewXChaChaAEAD(key []byte) (*XChaChaAEAD, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}

	return &XChaChaAEAD{aead: aead}, nil
}

// Seal encrypts plaintext under a fresh random 24-byte nonce drawn from the
// CSPRNG and returns nonce‖ciphertext‖tag, the canonical at-rest format
// `nonce(24)‖body‖tag(16)`.
func (x *XChaChaAEAD) Seal(plaintext, aad []byte) ([]byte, error) {
	if x == nil {
		return nil, ErrNilAEAD
	}

	nonce, err := RandBytes(chacha20poly1305.NonceSizeX)
	if err != nil {
		return nil, err
	}

	out := x.aead.Seal(nonce, nonce, plaintext, aad)

	return out, nil
}

// Open decrypts a blob produced by [XChaChaAEAD.Seal]. A failed
// authentication check is reported via the returned error; callers should
// translate this to [witerrors.AuthenticationFailure] or
// [witerrors.CorruptedObject]/[witerrors.CorruptedIndex] depending on
// context; callers should not expose a finer-grained distinction to the user.
func (x *XChaChaAEAD) Open(sealed, aad []byte) ([]byte, error) {
	if x == nil {
		return nil, ErrNilAEAD
	}

	if len(sealed) < chacha20poly1305.NonceSizeX {
		return nil, errors.New("vaultcrypto: ciphertext too short")
	}

	nonce, body := sealed[:chacha20poly1305.NonceSizeX], sealed[chacha20poly1305.NonceSizeX:]

	return x.aead.Open(nil, nonce, body, aad)
}
