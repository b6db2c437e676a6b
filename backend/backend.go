// Package backend defines the opaque transport contract for syncing a
// vault: push/pull of already-encrypted sync operations and
// content-addressed blob storage, plus the mandatory no-network LocalOnly
// implementation.
package backend

import (
	"context"

	"github.com/nativewit/witflo/syncop"
)

// Status reports a backend's current connectivity for host-UI display.
type Status struct {
	Connected     bool
	Authenticated bool
	LastSyncTime  *int64
	Pending       int
	Total         int
	Error         string
}

// Backend is the interchangeable sync transport contract. Every method
// receives only ciphertext; a Backend MUST NOT be able to read vault
// content.
type Backend interface {
	// Initialize prepares the backend for calls (authentication, connection
	// setup). Called once before any other method.
	Initialize(ctx context.Context) error

	// PushOps uploads ops for vaultID. Partial failure is reported via
	// PushResult.FailedOpIDs; the caller removes only the ops that
	// succeeded from its pending queue.
	PushOps(ctx context.Context, vaultID string, ops []syncop.EncryptedSyncOp) (syncop.PushResult, error)

	// PullOps returns ops newer than cursor (nil cursor means "from the
	// beginning"), up to limit, plus the new cursor position to persist.
	PullOps(ctx context.Context, vaultID string, cursor *syncop.SyncCursor, limit int) (syncop.PullResult, error)

	UploadBlob(ctx context.Context, vaultID, blobID string, data []byte) error
	DownloadBlob(ctx context.Context, vaultID, blobID string) ([]byte, error)
	BlobExists(ctx context.Context, vaultID, blobID string) (bool, error)
	DeleteBlob(ctx context.Context, vaultID, blobID string) error

	Status(ctx context.Context) (Status, error)
}
