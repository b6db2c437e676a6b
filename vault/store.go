package vault

import (
	"os"
	"path/filepath"

	"github.com/nativewit/witflo/fsatomic"
	"github.com/nativewit/witflo/vaultcrypto"
	"github.com/nativewit/witflo/witerrors"
)

// ObjectStore is the flat content-addressed tree under <vault>/objects/.
// An object's path is hash[0:2]/hash[2:], where hash is the lowercase hex
// BLAKE2b-256 digest of the ciphertext. Objects are immutable; garbage
// collection of unreferenced blobs is out of scope.
type ObjectStore struct {
	root string
}

// NewObjectStore roots an ObjectStore at <vault>/objects.
func NewObjectStore(vaultRoot string) *ObjectStore {
	return &ObjectStore{root: filepath.Join(vaultRoot, "objects")}
}

func (s *ObjectStore) pathFor(hash string) string {
	return filepath.Join(s.root, hash[:2], hash[2:])
}

// Put computes BLAKE2b-256 over ciphertext and writes it atomically to its
// content-addressed path. Writing the same ciphertext twice is a no-op:
// Put detects the existing file by name before writing.
func (s *ObjectStore) Put(ciphertext []byte) (hash string, retErr error) {
	hash = vaultcrypto.HashHex(ciphertext)
	path := s.pathFor(hash)

	if _, err := os.Stat(path); err == nil {
		return hash, nil
	} else if !os.IsNotExist(err) {
		return "", witerrors.IoErrorFor(path, err)
	}

	if err := fsatomic.WriteFile(path, ciphertext, 0o600); err != nil {
		return "", witerrors.IoErrorFor(path, err)
	}

	return hash, nil
}

// Get reads the ciphertext stored under hash.
func (s *ObjectStore) Get(hash string) ([]byte, error) {
	path := s.pathFor(hash)

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, witerrors.CorruptedObjectError(hash, err)
		}

		return nil, witerrors.IoErrorFor(path, err)
	}

	return b, nil
}

// Exists reports whether an object with the given hash is present.
func (s *ObjectStore) Exists(hash string) bool {
	_, err := os.Stat(s.pathFor(hash))
	return err == nil
}
