package syncmgr

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/nativewit/witflo/backend"
	"github.com/nativewit/witflo/syncop"
	"github.com/nativewit/witflo/vault"
	"github.com/nativewit/witflo/vaultcrypto"
)

// fakeBackend is an in-memory stand-in for a real Backend, used only to
// drive Manager's push/pull bookkeeping in tests.
type fakeBackend struct {
	mu      sync.Mutex
	stored  []syncop.EncryptedSyncOp
	failIDs map[string]bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{failIDs: make(map[string]bool)}
}

func (f *fakeBackend) Initialize(ctx context.Context) error { return nil }

func (f *fakeBackend) PushOps(ctx context.Context, vaultID string, ops []syncop.EncryptedSyncOp) (syncop.PushResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var failed []string

	for _, op := range ops {
		if f.failIDs[op.OpID] {
			failed = append(failed, op.OpID)
			continue
		}

		f.stored = append(f.stored, op)
	}

	return syncop.PushResult{PushedCount: len(ops) - len(failed), FailedOpIDs: failed}, nil
}

func (f *fakeBackend) PullOps(ctx context.Context, vaultID string, cursor *syncop.SyncCursor, limit int) (syncop.PullResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return syncop.PullResult{
		Ops:       append([]syncop.EncryptedSyncOp(nil), f.stored...),
		NewCursor: syncop.SyncCursor{LastTimestamp: 999},
	}, nil
}

func (f *fakeBackend) UploadBlob(ctx context.Context, vaultID, blobID string, data []byte) error {
	return nil
}

func (f *fakeBackend) DownloadBlob(ctx context.Context, vaultID, blobID string) ([]byte, error) {
	return nil, nil
}

func (f *fakeBackend) BlobExists(ctx context.Context, vaultID, blobID string) (bool, error) {
	return false, nil
}

func (f *fakeBackend) DeleteBlob(ctx context.Context, vaultID, blobID string) error { return nil }

func (f *fakeBackend) Status(ctx context.Context) (backend.Status, error) {
	return backend.Status{Connected: true}, nil
}

func newTestVaultKeyForManager(t *testing.T) vaultcrypto.VaultKey {
	t.Helper()

	b, err := vaultcrypto.RandBytes(vaultcrypto.KeySize)
	if err != nil {
		t.Fatalf("RandBytes: %v", err)
	}

	vk, err := vaultcrypto.NewVaultKey(b)
	if err != nil {
		t.Fatalf("NewVaultKey: %v", err)
	}

	return vk
}

func newTestManager(t *testing.T, be backend.Backend) (*Manager, *vault.UnlockedVault, vaultcrypto.SignKeyPair, vaultcrypto.VaultKey) {
	t.Helper()

	vk := newTestVaultKeyForManager(t)

	uv, err := vault.Create(t.TempDir(), "vault-1", vk)
	if err != nil {
		t.Fatalf("vault.Create: %v", err)
	}

	t.Cleanup(uv.Close)

	kp, err := vaultcrypto.GenerateSignKeyPair()
	if err != nil {
		t.Fatalf("GenerateSignKeyPair: %v", err)
	}

	devices := syncop.NewDeviceRegistry()
	devices.Register("device-a", kp.Public)

	m := NewManager("vault-1", uv, vk, "device-a", kp, devices, be, 0, zerolog.Nop())

	return m, uv, kp, vk
}

func TestManagerEmitThenPushRemovesFromQueue(t *testing.T) {
	be := newFakeBackend()
	m, _, _, _ := newTestManager(t, be)

	title := "hello"

	if err := m.Emit(syncop.CreateNote, "note-1", syncop.NotePayload{Title: &title}); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	pending, err := m.queue.List()
	if err != nil {
		t.Fatalf("queue.List: %v", err)
	}

	if len(pending) != 1 {
		t.Fatalf("pending len = %d, want 1", len(pending))
	}

	pushed, err := m.Push(context.Background())
	if err != nil {
		t.Fatalf("Push: %v", err)
	}

	if pushed != 1 {
		t.Fatalf("pushed = %d, want 1", pushed)
	}

	pending, err = m.queue.List()
	if err != nil {
		t.Fatalf("queue.List after push: %v", err)
	}

	if len(pending) != 0 {
		t.Fatalf("pending after push len = %d, want 0", len(pending))
	}
}

func TestManagerPullAppliesRemoteOps(t *testing.T) {
	be := newFakeBackend()

	producer, _, kp, vk := newTestManager(t, be)

	title := "remote note"
	if err := producer.Emit(syncop.CreateNote, "note-remote", syncop.NotePayload{Title: &title}); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	if _, err := producer.Push(context.Background()); err != nil {
		t.Fatalf("Push: %v", err)
	}

	// A second device shares the backend and the same vault key (as if
	// this were a second replica of the same vault) and pulls the op down.
	uv2, err := vault.Create(t.TempDir(), "vault-1-replica", vk)
	if err != nil {
		t.Fatalf("vault.Create replica: %v", err)
	}

	t.Cleanup(uv2.Close)

	devices2 := syncop.NewDeviceRegistry()
	devices2.Register("device-a", kp.Public)

	consumer := NewManager("vault-1", uv2, vk, "device-b", kp, devices2, be, 0, zerolog.Nop())

	pulled, err := consumer.Pull(context.Background(), 10)
	if err != nil {
		t.Fatalf("Pull: %v", err)
	}

	if pulled != 1 {
		t.Fatalf("pulled = %d, want 1", pulled)
	}

	note, err := uv2.Notes.Load("note-remote")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if note.Title != "remote note" {
		t.Fatalf("Title = %q, want %q", note.Title, "remote note")
	}
}

func TestManagerSyncReportsSuccess(t *testing.T) {
	be := newFakeBackend()
	m, _, _, _ := newTestManager(t, be)

	title := "x"
	if err := m.Emit(syncop.CreateNote, "note-1", syncop.NotePayload{Title: &title}); err != nil {
		t.Fatalf("Emit: %v", err)
	}

	result := m.Sync(context.Background())
	if !result.Success {
		t.Fatalf("Sync() = %+v, want Success=true", result)
	}

	if result.Pushed != 1 {
		t.Fatalf("Pushed = %d, want 1", result.Pushed)
	}
}
