package vaultcrypto

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// HashSize is the digest length produced by [Hash]: 32 bytes.
const HashSize = blake2b.Size256

// Hash returns the BLAKE2b-256 digest of b, used both to name content-store
// objects and to content-address sync-operation ciphertexts.
func Hash(b []byte) [HashSize]byte {
	return blake2b.Sum256(b)
}

// HashHex returns the lowercase hex encoding of Hash(b), the form object
// filenames and EncryptedSyncOp.content_hash use.
func HashHex(b []byte) string {
	h := Hash(b)
	return hex.EncodeToString(h[:])
}
