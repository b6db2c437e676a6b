package syncop

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/nativewit/witflo/fsatomic"
	"github.com/nativewit/witflo/vaultcrypto"
	"github.com/nativewit/witflo/witerrors"
)

// PendingDir is the directory under a vault root holding not-yet-pushed
// EncryptedSyncOp files.
const PendingDir = "sync/pending"

// PendingQueue manages <vault>/sync/pending/<op_id>.op.enc.
type PendingQueue struct {
	dir string
}

// NewPendingQueue roots a PendingQueue at vaultRoot/sync/pending.
func NewPendingQueue(vaultRoot string) *PendingQueue {
	return &PendingQueue{dir: filepath.Join(vaultRoot, PendingDir)}
}

func (q *PendingQueue) pathFor(opID string) string {
	return filepath.Join(q.dir, opID+".op.enc")
}

// Enqueue atomically writes enc to its pending file.
func (q *PendingQueue) Enqueue(enc EncryptedSyncOp) error {
	if err := fsatomic.WriteFile(q.pathFor(enc.OpID), enc.Ciphertext, 0o600); err != nil {
		return witerrors.IoErrorFor(q.pathFor(enc.OpID), err)
	}

	return nil
}

// List returns every pending op, in no particular order. Timestamp is left
// zero: only ciphertext is persisted to a pending file, and push order does
// not depend on it. Callers that need the plaintext timestamp (e.g. for
// logging) can [Decrypt] an entry with the vault key.
func (q *PendingQueue) List() ([]EncryptedSyncOp, error) {
	entries, err := os.ReadDir(q.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, witerrors.IoErrorFor(q.dir, err)
	}

	var ops []EncryptedSyncOp

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".op.enc") {
			continue
		}

		opID := strings.TrimSuffix(e.Name(), ".op.enc")

		path := filepath.Join(q.dir, e.Name())

		b, err := os.ReadFile(path)
		if err != nil {
			return nil, witerrors.IoErrorFor(path, err)
		}

		ops = append(ops, EncryptedSyncOp{
			OpID:        opID,
			Ciphertext:  b,
			ContentHash: vaultcrypto.HashHex(b),
		})
	}

	return ops, nil
}

// Remove deletes a pushed op's pending file. Missing files are not an
// error: a redelivered push result or a concurrent remove already cleared it.
func (q *PendingQueue) Remove(opID string) error {
	if err := os.Remove(q.pathFor(opID)); err != nil && !os.IsNotExist(err) {
		return witerrors.IoErrorFor(q.pathFor(opID), err)
	}

	return nil
}
