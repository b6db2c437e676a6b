package vaultcrypto

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HKDFDerive produces a 32-byte key from key using info as the HKDF "info"
// context string, e.g. "witflo.sync.operations.v1" or, for per-note
// ContentKey derivation, "witflo.content.<note id>.v2".
func HKDFDerive(key []byte, info string) ([]byte, error) {
	r := hkdf.New(sha256.New, key, nil, []byte(info))

	out := make([]byte, KeySize)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}

	return out, nil
}

// DeriveContentKey derives the ContentKey for a note from its VaultKey.
func DeriveContentKey(vk VaultKey, noteID string) (ContentKey, error) {
	vkb, err := vk.Bytes()
	if err != nil {
		return ContentKey{}, err
	}

	derived, err := HKDFDerive(vkb, "witflo.content."+noteID+".v2")
	if err != nil {
		return ContentKey{}, err
	}

	return NewContentKey(derived)
}

// DeriveNotebookKey derives the NotebookKey for a notebook from its VaultKey.
func DeriveNotebookKey(vk VaultKey, notebookID string) (NotebookKey, error) {
	vkb, err := vk.Bytes()
	if err != nil {
		return NotebookKey{}, err
	}

	derived, err := HKDFDerive(vkb, "witflo.notebook."+notebookID)
	if err != nil {
		return NotebookKey{}, err
	}

	return NewNotebookKey(derived)
}

// DeriveSyncOpKey derives the key used to encrypt sync operations for a vault.
func DeriveSyncOpKey(vk VaultKey) (*Secret, error) {
	vkb, err := vk.Bytes()
	if err != nil {
		return nil, err
	}

	derived, err := HKDFDerive(vkb, "witflo.sync.operations.v1")
	if err != nil {
		return nil, err
	}

	return NewSecret(derived), nil
}

// DeriveSearchIndexKey derives the SearchIndexKey for a vault.
func DeriveSearchIndexKey(vk VaultKey) (SearchIndexKey, error) {
	vkb, err := vk.Bytes()
	if err != nil {
		return SearchIndexKey{}, err
	}

	derived, err := HKDFDerive(vkb, "witflo.search.index.v1")
	if err != nil {
		return SearchIndexKey{}, err
	}

	return NewSearchIndexKey(derived)
}
