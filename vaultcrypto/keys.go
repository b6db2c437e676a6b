package vaultcrypto

import "fmt"

// KeySize is the byte length every typed key in this package carries as an
// invariant: 32 bytes, suitable directly as an XChaCha20-Poly1305 key.
const KeySize = 32

// MasterUnlockKey is the 32-byte key derived from the workspace passphrase
// via Argon2id. It exists only in memory while the workspace is unlocked and
// is used solely to AEAD-encrypt/decrypt the workspace keyring.
type MasterUnlockKey struct{ secret *Secret }

// VaultKey is the 32-byte per-vault key stored in the workspace keyring. It
// is the root from which every note's ContentKey and notebook's NotebookKey
// are derived via HKDF.
type VaultKey struct{ secret *Secret }

// NotebookKey is a 32-byte key, HKDF-derived from a VaultKey with an info
// string built from the notebook id, used to encrypt a notebook's
// object-store blob.
type NotebookKey struct{ secret *Secret }

// ContentKey is a 32-byte key, HKDF-derived from a VaultKey with an info
// string built from the note id, used to encrypt a note's object-store blob.
type ContentKey struct{ secret *Secret }

// SearchIndexKey is a 32-byte key, HKDF-derived from a VaultKey, used to
// encrypt the search index side-channel.
type SearchIndexKey struct{ secret *Secret }

// newTypedKey validates length and wraps b in a Secret. b's ownership
// transfers to the caller's wrapping type.
func newTypedKey(name string, b []byte) (*Secret, error) {
	if len(b) != KeySize {
		return nil, fmt.Errorf("vaultcrypto: %s must be %d bytes, got %d", name, KeySize, len(b))
	}

	return NewSecret(b), nil
}

func NewMasterUnlockKey(b []byte) (MasterUnlockKey, error) {
	s, err := newTypedKey("MasterUnlockKey", b)
	return MasterUnlockKey{secret: s}, err
}

func NewVaultKey(b []byte) (VaultKey, error) {
	s, err := newTypedKey("VaultKey", b)
	return VaultKey{secret: s}, err
}

func NewNotebookKey(b []byte) (NotebookKey, error) {
	s, err := newTypedKey("NotebookKey", b)
	return NotebookKey{secret: s}, err
}

func NewContentKey(b []byte) (ContentKey, error) {
	s, err := newTypedKey("ContentKey", b)
	return ContentKey{secret: s}, err
}

func NewSearchIndexKey(b []byte) (SearchIndexKey, error) {
	s, err := newTypedKey("SearchIndexKey", b)
	return SearchIndexKey{secret: s}, err
}

func (k MasterUnlockKey) Bytes() ([]byte, error) { return k.secret.Bytes() }
func (k MasterUnlockKey) Dispose()               { k.secret.Dispose() }

func (k VaultKey) Bytes() ([]byte, error) { return k.secret.Bytes() }
func (k VaultKey) Dispose()               { k.secret.Dispose() }

func (k VaultKey) Copy() (VaultKey, error) {
	cp, err := k.secret.Copy()
	if err != nil {
		return VaultKey{}, err
	}

	return VaultKey{secret: cp}, nil
}

func (k NotebookKey) Bytes() ([]byte, error) { return k.secret.Bytes() }
func (k NotebookKey) Dispose()               { k.secret.Dispose() }

func (k ContentKey) Bytes() ([]byte, error) { return k.secret.Bytes() }
func (k ContentKey) Dispose()               { k.secret.Dispose() }

func (k SearchIndexKey) Bytes() ([]byte, error) { return k.secret.Bytes() }
func (k SearchIndexKey) Dispose()               { k.secret.Dispose() }
