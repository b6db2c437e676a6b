package backend

import (
	"context"
	"time"

	"github.com/nativewit/witflo/syncop"
	"github.com/nativewit/witflo/witerrors"
)

// LocalOnly is the mandatory default backend: every method except
// DownloadBlob succeeds trivially and no bytes ever leave the device.
// Pushing always reports zero pushed (every op stays pending); pulling
// always returns empty. DownloadBlob returns a BackendError, since no blob
// is ever stored. This is what makes the core fully functional with no
// network at all.
type LocalOnly struct {
	startedAt time.Time
}

// NewLocalOnly constructs a ready-to-use LocalOnly backend.
func NewLocalOnly() *LocalOnly {
	return &LocalOnly{startedAt: time.Now().UTC()}
}

func (b *LocalOnly) Initialize(ctx context.Context) error {
	return nil
}

func (b *LocalOnly) PushOps(ctx context.Context, vaultID string, ops []syncop.EncryptedSyncOp) (syncop.PushResult, error) {
	failed := make([]string, 0, len(ops))
	for _, op := range ops {
		failed = append(failed, op.OpID)
	}

	return syncop.PushResult{PushedCount: 0, FailedOpIDs: failed}, nil
}

func (b *LocalOnly) PullOps(ctx context.Context, vaultID string, cursor *syncop.SyncCursor, limit int) (syncop.PullResult, error) {
	newCursor := syncop.SyncCursor{UpdatedAt: time.Now().UTC()}
	if cursor != nil {
		newCursor = *cursor
	}

	return syncop.PullResult{Ops: nil, NewCursor: newCursor}, nil
}

func (b *LocalOnly) UploadBlob(ctx context.Context, vaultID, blobID string, data []byte) error {
	return nil
}

func (b *LocalOnly) DownloadBlob(ctx context.Context, vaultID, blobID string) ([]byte, error) {
	return nil, witerrors.BackendErrorFor("LocalOnly stores no blobs", witerrors.New(witerrors.BackendError, "blob not found"))
}

func (b *LocalOnly) BlobExists(ctx context.Context, vaultID, blobID string) (bool, error) {
	return false, nil
}

func (b *LocalOnly) DeleteBlob(ctx context.Context, vaultID, blobID string) error {
	return nil
}

func (b *LocalOnly) Status(ctx context.Context) (Status, error) {
	return Status{
		Connected:     true,
		Authenticated: true,
		Pending:       0,
		Total:         0,
	}, nil
}
