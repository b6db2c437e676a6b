package workspace_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nativewit/witflo/witerrors"
	"github.com/nativewit/witflo/workspace"
)

func TestInitializeThenUnlock(t *testing.T) {
	root := t.TempDir()

	ws, err := workspace.Initialize(root, []byte("correct horse battery staple"))
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if ws.WorkspaceID() == "" {
		t.Fatal("expected non-empty workspace id")
	}

	ws.Lock()

	unlocked, err := workspace.Unlock(root, []byte("correct horse battery staple"))
	if err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	if unlocked.WorkspaceID() != ws.WorkspaceID() {
		t.Fatalf("workspace id mismatch after unlock: got %s want %s", unlocked.WorkspaceID(), ws.WorkspaceID())
	}
}

func TestInitializeTwiceFails(t *testing.T) {
	root := t.TempDir()

	if _, err := workspace.Initialize(root, []byte("pw1")); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if _, err := workspace.Initialize(root, []byte("pw2")); !witerrors.Is(err, witerrors.WorkspaceAlreadyExists) {
		t.Fatalf("expected WorkspaceAlreadyExists, got %v", err)
	}
}

func TestUnlockWrongPassphrase(t *testing.T) {
	root := t.TempDir()

	ws, err := workspace.Initialize(root, []byte("right password"))
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	ws.Lock()

	if _, err := workspace.Unlock(root, []byte("wrong password")); !witerrors.Is(err, witerrors.InvalidPassphrase) {
		t.Fatalf("expected InvalidPassphrase, got %v", err)
	}
}

func TestUnlockMissingWorkspace(t *testing.T) {
	root := t.TempDir()

	if _, err := workspace.Unlock(root, []byte("whatever")); !witerrors.Is(err, witerrors.WorkspaceNotFound) {
		t.Fatalf("expected WorkspaceNotFound, got %v", err)
	}
}

func TestAddAndRemoveVault(t *testing.T) {
	root := t.TempDir()

	ws, err := workspace.Initialize(root, []byte("pw"))
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	vk, err := ws.AddVault("vault-1", false)
	if err != nil {
		t.Fatalf("AddVault: %v", err)
	}

	defer vk.Dispose()

	vaults, err := ws.ListVaults()
	if err != nil {
		t.Fatalf("ListVaults: %v", err)
	}

	if len(vaults) != 1 || vaults[0].VaultID != "vault-1" {
		t.Fatalf("unexpected vaults: %+v", vaults)
	}

	if err := ws.RemoveVault("vault-1"); err != nil {
		t.Fatalf("RemoveVault: %v", err)
	}

	vaults, err = ws.ListVaults()
	if err != nil {
		t.Fatalf("ListVaults: %v", err)
	}

	if len(vaults) != 0 {
		t.Fatalf("expected no vaults after removal, got %+v", vaults)
	}
}

func TestChangeMasterPasswordPreservesVaultKeys(t *testing.T) {
	root := t.TempDir()

	ws, err := workspace.Initialize(root, []byte("old-password"))
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	vk, err := ws.AddVault("vault-1", true)
	if err != nil {
		t.Fatalf("AddVault: %v", err)
	}

	before, err := vk.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	beforeCopy := append([]byte(nil), before...)

	if err := ws.ChangeMasterPassword([]byte("old-password"), []byte("new-password")); err != nil {
		t.Fatalf("ChangeMasterPassword: %v", err)
	}

	ws.Lock()

	reopened, err := workspace.Unlock(root, []byte("new-password"))
	if err != nil {
		t.Fatalf("Unlock with new password: %v", err)
	}

	if _, err := workspace.Unlock(root, []byte("old-password")); err == nil {
		t.Fatal("expected old password to no longer unlock the workspace")
	}

	newVK, err := reopened.VaultKey("vault-1")
	if err != nil {
		t.Fatalf("VaultKey: %v", err)
	}

	after, err := newVK.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	if string(after) != string(beforeCopy) {
		t.Fatal("expected vault key to survive a master password change unchanged")
	}
}

func TestAutoLockExpiresWorkspace(t *testing.T) {
	root := t.TempDir()

	ws, err := workspace.Initialize(root, []byte("pw"))
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	ws.EnableAutoLock(30*time.Millisecond, false)

	if _, err := ws.VaultKey("nonexistent"); !witerrors.Is(err, witerrors.VaultNotFound) {
		t.Fatalf("expected VaultNotFound while still unlocked, got %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	if _, err := ws.AddVault("vault-1", false); !witerrors.Is(err, witerrors.InvariantViolated) {
		t.Fatalf("expected workspace to be locked after idle timeout, got %v", err)
	}
}

func TestMetadataFileIsPlaintextJSON(t *testing.T) {
	root := t.TempDir()

	if _, err := workspace.Initialize(root, []byte("pw")); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(root, workspace.MetadataFileName))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if len(b) == 0 {
		t.Fatal("expected non-empty metadata file")
	}
}
