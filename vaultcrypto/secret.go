package vaultcrypto

import (
	"crypto/subtle"
	"errors"
)

// ErrSecretDisposed is returned by any operation attempted on a [Secret]
// after it has been disposed.
var ErrSecretDisposed = errors.New("secret: already disposed")

// Secret is a fixed-length byte holder that guarantees its backing memory is
// overwritten with zeros exactly once, either on an explicit call to
// [Secret.Dispose] or implicitly via [Secret.Close] (so it composes with
// defer). Reads after disposal fail with [ErrSecretDisposed].
//
// Copies must go through [Secret.Copy]; the struct intentionally has no
// exported fields, so a plain Go assignment shares the same backing array
// rather than duplicating secret bytes.
type Secret struct {
	b        []byte
	disposed bool
}

// NewSecret takes ownership of b; callers must not retain or mutate b after
// this call.
func NewSecret(b []byte) *Secret {
	return &Secret{b: b}
}

// Bytes returns the live secret bytes. The returned slice aliases the
// Secret's internal storage and must not be retained past disposal.
func (s *Secret) Bytes() ([]byte, error) {
	if s == nil || s.disposed {
		return nil, ErrSecretDisposed
	}

	return s.b, nil
}

// Len returns the secret's length, or 0 if disposed.
func (s *Secret) Len() int {
	if s == nil || s.disposed {
		return 0
	}

	return len(s.b)
}

// Copy returns a new Secret holding an independent copy of the bytes.
func (s *Secret) Copy() (*Secret, error) {
	b, err := s.Bytes()
	if err != nil {
		return nil, err
	}

	cp := make([]byte, len(b))
	copy(cp, b)

	return NewSecret(cp), nil
}

// Equal reports whether two secrets hold identical bytes, in constant time.
func (s *Secret) Equal(other *Secret) bool {
	a, err1 := s.Bytes()
	b, err2 := other.Bytes()

	if err1 != nil || err2 != nil {
		return false
	}

	if len(a) != len(b) {
		return false
	}

	return subtle.ConstantTimeCompare(a, b) == 1
}

// Dispose overwrites the backing memory with zeros and marks the secret
// disposed. Safe to call multiple times.
func (s *Secret) Dispose() {
	if s == nil || s.disposed {
		return
	}

	for i := range s.b {
		s.b[i] = 0
	}

	s.disposed = true
}

// Close disposes the secret. It always returns nil, allowing
// `defer secret.Close()` in code that otherwise checks defer'd errors.
func (s *Secret) Close() error {
	s.Dispose()
	return nil
}
