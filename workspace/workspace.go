package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nativewit/witflo/fsatomic"
	"github.com/nativewit/witflo/vaultcrypto"
	"github.com/nativewit/witflo/witerrors"
)

// cleanupFunc is a deferred teardown step, run in LIFO order by
// [Workspace.Lock].
type cleanupFunc func()

// Workspace owns the decrypted keyring and MasterUnlockKey for as long as
// the workspace is unlocked. The zero value is not usable; construct via
// [Initialize] or [Unlock].
type Workspace struct {
	Root string

	mu       sync.Mutex
	metadata Metadata
	muk      vaultcrypto.MasterUnlockKey
	keyring  Keyring
	unlocked bool

	cleanupFuncs []cleanupFunc

	autoLock *autoLockTimer
}

// VaultInfo is the caller-facing summary of one entry in the keyring,
// returned by [Workspace.ListVaults].
type VaultInfo struct {
	VaultID     string
	CreatedAt   time.Time
	SyncEnabled bool
}

func metadataPath(root string) string { return filepath.Join(root, MetadataFileName) }
func keyringPath(root string) string  { return filepath.Join(root, KeyringFileName) }
func vaultsDir(root string) string    { return filepath.Join(root, "vaults") }

// Initialize creates a brand-new workspace at root: root must not already
// contain a metadata file. It benchmarks Argon2id parameters for the host,
// derives the MasterUnlockKey, seals an empty keyring, and atomically writes
// metadata then keyring then creates the vaults/ directory.
//
// passphrase is zeroized before this function returns, success or failure.
func Initialize(root string, passphrase []byte) (ws *Workspace, retErr error) {
	defer zeroize(passphrase)

	if _, err := os.Stat(metadataPath(root)); err == nil {
		return nil, witerrors.ErrWorkspaceAlreadyExists
	} else if !os.IsNotExist(err) {
		return nil, witerrors.IoErrorFor(metadataPath(root), err)
	}

	salt, err := vaultcrypto.RandBytes(16)
	if err != nil {
		return nil, witerrors.Wrap(witerrors.InvalidInput, "generate master key salt", err)
	}

	params := vaultcrypto.BenchmarkArgon2idParams(passphrase, salt)

	kdf := vaultcrypto.NewArgon2idKDF(params)
	derived := kdf.DeriveKey(passphrase, salt)

	muk, err := vaultcrypto.NewMasterUnlockKey(derived)
	if err != nil {
		return nil, witerrors.Wrap(witerrors.InvalidInput, "construct master unlock key", err)
	}

	keyringNonce, err := vaultcrypto.RandBytes(24)
	if err != nil {
		return nil, witerrors.Wrap(witerrors.InvalidInput, "generate keyring nonce", err)
	}

	meta := Metadata{
		Version:     MetadataVersion,
		WorkspaceID: uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		Crypto: CryptoParams{
			MasterKeySalt: salt,
			Argon2Params:  params,
			KeyringNonce:  keyringNonce,
		},
	}

	keyring := newEmptyKeyring()

	sealed, err := sealKeyring(muk, keyring)
	if err != nil {
		return nil, err
	}

	metaBytes, err := meta.marshal()
	if err != nil {
		return nil, witerrors.Wrap(witerrors.InvalidInput, "marshal workspace metadata", err)
	}

	if err := fsatomic.WriteFile(metadataPath(root), metaBytes, 0o600); err != nil {
		return nil, witerrors.IoErrorFor(metadataPath(root), err)
	}

	if err := fsatomic.WriteFile(keyringPath(root), sealed, 0o600); err != nil {
		return nil, witerrors.IoErrorFor(keyringPath(root), err)
	}

	if err := os.MkdirAll(vaultsDir(root), 0o700); err != nil {
		return nil, witerrors.IoErrorFor(vaultsDir(root), err)
	}

	return &Workspace{
		Root:     root,
		metadata: meta,
		muk:      muk,
		keyring:  keyring,
		unlocked: true,
	}, nil
}

// Unlock reads the on-disk metadata and keyring and derives the
// MasterUnlockKey from passphrase. A wrong passphrase and a corrupted
// keyring both surface as [witerrors.InvalidPassphrase], intentionally
// indistinguishable at this layer.
//
// passphrase is zeroized before this function returns, success or failure.
func Unlock(root string, passphrase []byte) (ws *Workspace, retErr error) {
	defer zeroize(passphrase)

	metaBytes, err := os.ReadFile(metadataPath(root))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, witerrors.ErrWorkspaceNotFound
		}

		return nil, witerrors.IoErrorFor(metadataPath(root), err)
	}

	meta, err := unmarshalMetadata(metaBytes)
	if err != nil {
		return nil, witerrors.Wrap(witerrors.InvalidInput, "parse workspace metadata", err)
	}

	if meta.Version != MetadataVersion {
		return nil, witerrors.UnsupportedVersionError(meta.Version, MetadataVersion)
	}

	kdf := vaultcrypto.NewArgon2idKDF(meta.Crypto.Argon2Params)
	derived := kdf.DeriveKey(passphrase, meta.Crypto.MasterKeySalt)

	muk, err := vaultcrypto.NewMasterUnlockKey(derived)
	if err != nil {
		return nil, witerrors.Wrap(witerrors.InvalidInput, "construct master unlock key", err)
	}

	sealed, err := os.ReadFile(keyringPath(root))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, witerrors.ErrInvalidPassphrase
		}

		return nil, witerrors.IoErrorFor(keyringPath(root), err)
	}

	keyring, err := openKeyring(muk, meta.Crypto.KeyringNonce, sealed)
	if err != nil {
		muk.Dispose()
		return nil, witerrors.ErrInvalidPassphrase
	}

	return &Workspace{
		Root:     root,
		metadata: meta,
		muk:      muk,
		keyring:  keyring,
		unlocked: true,
	}, nil
}

// FromMasterUnlockKey rebuilds a Workspace from an already-derived
// MasterUnlockKey, skipping the Argon2id re-derivation Unlock performs.
// This is how a CLI invocation resumes a workspace custodied by the
// session daemon: the daemon hands back the same bytes a passphrase
// unlock would have derived. Ownership of muk passes to the returned
// Workspace.
func FromMasterUnlockKey(root string, muk vaultcrypto.MasterUnlockKey) (*Workspace, error) {
	metaBytes, err := os.ReadFile(metadataPath(root))
	if err != nil {
		if os.IsNotExist(err) {
			muk.Dispose()
			return nil, witerrors.ErrWorkspaceNotFound
		}

		muk.Dispose()
		return nil, witerrors.IoErrorFor(metadataPath(root), err)
	}

	meta, err := unmarshalMetadata(metaBytes)
	if err != nil {
		muk.Dispose()
		return nil, witerrors.Wrap(witerrors.InvalidInput, "parse workspace metadata", err)
	}

	if meta.Version != MetadataVersion {
		muk.Dispose()
		return nil, witerrors.UnsupportedVersionError(meta.Version, MetadataVersion)
	}

	sealed, err := os.ReadFile(keyringPath(root))
	if err != nil {
		muk.Dispose()

		if os.IsNotExist(err) {
			return nil, witerrors.ErrInvalidPassphrase
		}

		return nil, witerrors.IoErrorFor(keyringPath(root), err)
	}

	keyring, err := openKeyring(muk, meta.Crypto.KeyringNonce, sealed)
	if err != nil {
		muk.Dispose()
		return nil, witerrors.ErrInvalidPassphrase
	}

	return &Workspace{
		Root:     root,
		metadata: meta,
		muk:      muk,
		keyring:  keyring,
		unlocked: true,
	}, nil
}

// MasterUnlockKeyCopy returns an independent copy of the live
// MasterUnlockKey, for a caller (e.g. the session daemon client) that
// needs to hand its own disposable copy to another component.
func (ws *Workspace) MasterUnlockKeyCopy() (vaultcrypto.MasterUnlockKey, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if err := ws.requireUnlocked(); err != nil {
		return vaultcrypto.MasterUnlockKey{}, err
	}

	b, err := ws.muk.Bytes()
	if err != nil {
		return vaultcrypto.MasterUnlockKey{}, err
	}

	return vaultcrypto.NewMasterUnlockKey(append([]byte(nil), b...))
}

// sealKeyring serializes and AEAD-encrypts keyring under muk. The nonce is
// a fresh random one drawn by [vaultcrypto.XChaChaAEAD.Seal] and stored as
// the blob's prefix; the metadata's keyring_nonce is not used. The whole
// file is the raw AEAD blob, with no prepended length.
func sealKeyring(muk vaultcrypto.MasterUnlockKey, keyring Keyring) ([]byte, error) {
	mukBytes, err := muk.Bytes()
	if err != nil {
		return nil, witerrors.Wrap(witerrors.InvariantViolated, "read disposed master unlock key", err)
	}

	aead, err := vaultcrypto.NewXChaChaAEAD(mukBytes)
	if err != nil {
		return nil, witerrors.Wrap(witerrors.InvalidInput, "construct keyring aead", err)
	}

	plaintext, err := keyring.marshal()
	if err != nil {
		return nil, witerrors.Wrap(witerrors.InvalidInput, "marshal keyring", err)
	}

	sealed, err := aead.Seal(plaintext, nil)
	if err != nil {
		return nil, witerrors.Wrap(witerrors.InvalidInput, "seal keyring", err)
	}

	return sealed, nil
}

// openKeyring decrypts sealed under muk and parses the resulting plaintext.
// The nonce parameter is accepted for symmetry with the on-disk format but
// is not required: [vaultcrypto.XChaChaAEAD.Open] reads the nonce back out
// of the sealed blob's own prefix.
func openKeyring(muk vaultcrypto.MasterUnlockKey, _ []byte, sealed []byte) (Keyring, error) {
	mukBytes, err := muk.Bytes()
	if err != nil {
		return Keyring{}, err
	}

	aead, err := vaultcrypto.NewXChaChaAEAD(mukBytes)
	if err != nil {
		return Keyring{}, err
	}

	plaintext, err := aead.Open(sealed, nil)
	if err != nil {
		return Keyring{}, err
	}

	return unmarshalKeyring(plaintext)
}

func (ws *Workspace) writeKeyringLocked() error {
	sealed, err := sealKeyring(ws.muk, ws.keyring)
	if err != nil {
		return err
	}

	if err := fsatomic.WriteFile(keyringPath(ws.Root), sealed, 0o600); err != nil {
		return witerrors.IoErrorFor(keyringPath(ws.Root), err)
	}

	return nil
}

// Lock zeroizes the MasterUnlockKey and every VaultKey in the live keyring,
// and marks the workspace disposed. Safe to call multiple times.
func (ws *Workspace) Lock() {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if !ws.unlocked {
		return
	}

	for i := len(ws.cleanupFuncs) - 1; i >= 0; i-- {
		ws.cleanupFuncs[i]()
	}

	ws.cleanupFuncs = nil

	ws.muk.Dispose()

	for id, entry := range ws.keyring.Vaults {
		zeroize(entry.VaultKey)
		ws.keyring.Vaults[id] = entry
	}

	ws.unlocked = false
}

// RegisterCleanup registers f to run, in LIFO order, when the workspace locks.
func (ws *Workspace) RegisterCleanup(f func()) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	ws.cleanupFuncs = append(ws.cleanupFuncs, f)
}

func (ws *Workspace) requireUnlocked() error {
	if !ws.unlocked {
		return witerrors.New(witerrors.InvariantViolated, "workspace is locked")
	}

	return nil
}

// ChangeMasterPassword verifies current by re-deriving and comparing against
// the live MUK, then generates a new salt and keyring nonce, re-benchmarks
// Argon2 parameters, re-encrypts the keyring under the new key, and writes
// metadata then keyring atomically. Vault keys themselves are never
// re-wrapped — only the MUK that wraps the keyring changes — which is what
// makes this operation O(keyring size) rather than O(vault contents).
func (ws *Workspace) ChangeMasterPassword(current, newPassphrase []byte) (retErr error) {
	defer zeroize(current)
	defer zeroize(newPassphrase)

	ws.mu.Lock()
	defer ws.mu.Unlock()

	if err := ws.requireUnlocked(); err != nil {
		return err
	}

	kdf := vaultcrypto.NewArgon2idKDF(ws.metadata.Crypto.Argon2Params)
	candidate := kdf.DeriveKey(current, ws.metadata.Crypto.MasterKeySalt)

	mukBytes, err := ws.muk.Bytes()
	if err != nil {
		return witerrors.Wrap(witerrors.InvariantViolated, "read live master unlock key", err)
	}

	candidateSecret := vaultcrypto.NewSecret(candidate)
	defer candidateSecret.Dispose()

	liveSecret := vaultcrypto.NewSecret(append([]byte(nil), mukBytes...))
	defer liveSecret.Dispose()

	if !candidateSecret.Equal(liveSecret) {
		return witerrors.ErrInvalidPassphrase
	}

	newSalt, err := vaultcrypto.RandBytes(16)
	if err != nil {
		return witerrors.Wrap(witerrors.InvalidInput, "generate new master key salt", err)
	}

	newParams := vaultcrypto.BenchmarkArgon2idParams(newPassphrase, newSalt)
	newKDF := vaultcrypto.NewArgon2idKDF(newParams)
	newDerived := newKDF.DeriveKey(newPassphrase, newSalt)

	newMUK, err := vaultcrypto.NewMasterUnlockKey(newDerived)
	if err != nil {
		return witerrors.Wrap(witerrors.InvalidInput, "construct new master unlock key", err)
	}

	newKeyringNonce, err := vaultcrypto.RandBytes(24)
	if err != nil {
		return witerrors.Wrap(witerrors.InvalidInput, "generate new keyring nonce", err)
	}

	sealed, err := sealKeyring(newMUK, ws.keyring)
	if err != nil {
		return err
	}

	newMeta := ws.metadata
	newMeta.Crypto.MasterKeySalt = newSalt
	newMeta.Crypto.Argon2Params = newParams
	newMeta.Crypto.KeyringNonce = newKeyringNonce

	metaBytes, err := newMeta.marshal()
	if err != nil {
		return witerrors.Wrap(witerrors.InvalidInput, "marshal workspace metadata", err)
	}

	if err := fsatomic.WriteFile(metadataPath(ws.Root), metaBytes, 0o600); err != nil {
		return witerrors.IoErrorFor(metadataPath(ws.Root), err)
	}

	if err := fsatomic.WriteFile(keyringPath(ws.Root), sealed, 0o600); err != nil {
		return witerrors.IoErrorFor(keyringPath(ws.Root), err)
	}

	oldMUK := ws.muk
	ws.muk = newMUK
	ws.metadata = newMeta

	oldMUK.Dispose()

	return nil
}

// AddVault generates a random VaultKey, inserts a new keyring entry, and
// re-encrypts and atomically writes the keyring. vaultID is caller-supplied
// (typically a fresh UUIDv4 minted by the vault package when the directory
// is created).
func (ws *Workspace) AddVault(vaultID string, syncEnabled bool) (vaultcrypto.VaultKey, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if err := ws.requireUnlocked(); err != nil {
		return vaultcrypto.VaultKey{}, err
	}

	if _, exists := ws.keyring.Vaults[vaultID]; exists {
		return vaultcrypto.VaultKey{}, witerrors.New(witerrors.InvalidInput, fmt.Sprintf("vault %s already present in keyring", vaultID))
	}

	keyBytes, err := vaultcrypto.RandBytes(vaultcrypto.KeySize)
	if err != nil {
		return vaultcrypto.VaultKey{}, witerrors.Wrap(witerrors.InvalidInput, "generate vault key", err)
	}

	ws.keyring.Vaults[vaultID] = VaultKeyEntry{
		VaultKey:    keyBytes,
		CreatedAt:   time.Now().UTC(),
		SyncEnabled: syncEnabled,
	}
	ws.keyring.ModifiedAt = time.Now().UTC()

	if err := ws.writeKeyringLocked(); err != nil {
		delete(ws.keyring.Vaults, vaultID)
		return vaultcrypto.VaultKey{}, err
	}

	return vaultcrypto.NewVaultKey(append([]byte(nil), keyBytes...))
}

// RemoveVault drops vaultID's keyring entry and re-encrypts the keyring.
// The vault directory on disk is untouched; its objects become
// undecryptable but are not deleted — that is the caller's responsibility.
func (ws *Workspace) RemoveVault(vaultID string) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if err := ws.requireUnlocked(); err != nil {
		return err
	}

	entry, ok := ws.keyring.Vaults[vaultID]
	if !ok {
		return witerrors.ErrVaultNotFound
	}

	delete(ws.keyring.Vaults, vaultID)
	ws.keyring.ModifiedAt = time.Now().UTC()

	if err := ws.writeKeyringLocked(); err != nil {
		ws.keyring.Vaults[vaultID] = entry
		return err
	}

	zeroize(entry.VaultKey)

	return nil
}

// VaultKey returns a copy of the live VaultKey for vaultID. The caller owns
// the returned key and must dispose it.
func (ws *Workspace) VaultKey(vaultID string) (vaultcrypto.VaultKey, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if err := ws.requireUnlocked(); err != nil {
		return vaultcrypto.VaultKey{}, err
	}

	entry, ok := ws.keyring.Vaults[vaultID]
	if !ok {
		return vaultcrypto.VaultKey{}, witerrors.ErrVaultNotFound
	}

	return vaultcrypto.NewVaultKey(append([]byte(nil), entry.VaultKey...))
}

// ListVaults returns a snapshot of every vault entry in the live keyring.
func (ws *Workspace) ListVaults() ([]VaultInfo, error) {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if err := ws.requireUnlocked(); err != nil {
		return nil, err
	}

	infos := make([]VaultInfo, 0, len(ws.keyring.Vaults))
	for id, entry := range ws.keyring.Vaults {
		infos = append(infos, VaultInfo{VaultID: id, CreatedAt: entry.CreatedAt, SyncEnabled: entry.SyncEnabled})
	}

	return infos, nil
}

// Metadata returns a copy of the workspace's plaintext metadata.
func (ws *Workspace) Metadata() Metadata {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	return ws.metadata
}

// WorkspaceID returns the workspace's UUID.
func (ws *Workspace) WorkspaceID() string {
	return ws.Metadata().WorkspaceID
}

func zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
