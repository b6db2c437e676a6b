package vault

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/nativewit/witflo/fsatomic"
	"github.com/nativewit/witflo/vaultcrypto"
	"github.com/nativewit/witflo/witerrors"
)

// vaultDirs are the directories every vault root must contain, created by
// [Create] and expected to already exist by [Open].
var vaultDirs = []string{"objects", "refs", "sync/pending"}

// UnlockedVault is the handle callers operate on once a vault's VaultKey has
// been recovered from the workspace keyring: it owns a private copy of the
// key, the object store, and the note/notebook repositories built on top of
// it. Disposing the vault zeroizes its key copy.
type UnlockedVault struct {
	root     string
	header   Header
	vaultKey vaultcrypto.VaultKey

	Store     *ObjectStore
	Notes     *NoteRepository
	Notebooks *NotebookRepository
}

// Create initializes a brand-new vault directory tree at root and writes
// its plaintext header. vaultKey is copied; the caller retains ownership of
// the original.
func Create(root string, vaultID string, vaultKey vaultcrypto.VaultKey) (*UnlockedVault, error) {
	for _, dir := range vaultDirs {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o700); err != nil {
			return nil, witerrors.IoErrorFor(filepath.Join(root, dir), err)
		}
	}

	now := time.Now().UTC()
	header := Header{
		Version:    HeaderVersion,
		VaultID:    vaultID,
		CreatedAt:  now,
		ModifiedAt: now,
	}

	b, err := header.marshal()
	if err != nil {
		return nil, witerrors.Wrap(witerrors.InvalidInput, "marshal vault header", err)
	}

	if err := fsatomic.WriteFile(filepath.Join(root, HeaderFileName), b, 0o600); err != nil {
		return nil, witerrors.IoErrorFor(filepath.Join(root, HeaderFileName), err)
	}

	return open(root, header, vaultKey)
}

// Open loads an existing vault's plaintext header and builds repositories
// over it, then reloads both indices from disk. vaultKey is copied; the
// caller retains ownership of the original.
func Open(root string, vaultKey vaultcrypto.VaultKey) (*UnlockedVault, error) {
	path := filepath.Join(root, HeaderFileName)

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, witerrors.ErrVaultNotFound
		}

		return nil, witerrors.IoErrorFor(path, err)
	}

	header, err := unmarshalHeader(b)
	if err != nil {
		return nil, witerrors.Wrap(witerrors.InvalidInput, "parse vault header", err)
	}

	if header.Version != HeaderVersion {
		return nil, witerrors.UnsupportedVersionError(header.Version, HeaderVersion)
	}

	uv, err := open(root, header, vaultKey)
	if err != nil {
		return nil, err
	}

	if err := uv.Notes.ReloadIndex(); err != nil {
		return nil, err
	}

	if err := uv.Notebooks.ReloadIndex(); err != nil {
		return nil, err
	}

	return uv, nil
}

func open(root string, header Header, vaultKey vaultcrypto.VaultKey) (*UnlockedVault, error) {
	vk, err := vaultKey.Copy()
	if err != nil {
		return nil, err
	}

	store := NewObjectStore(root)

	return &UnlockedVault{
		root:      root,
		header:    header,
		vaultKey:  vk,
		Store:     store,
		Notes:     NewNoteRepository(root, vk, store),
		Notebooks: NewNotebookRepository(root, vk, store),
	}, nil
}

// VaultID returns the vault's identifier from its plaintext header.
func (v *UnlockedVault) VaultID() string {
	return v.header.VaultID
}

// Root returns the vault's filesystem root.
func (v *UnlockedVault) Root() string {
	return v.root
}

// Close zeroizes the vault's private key copy. The UnlockedVault must not
// be used afterward.
func (v *UnlockedVault) Close() {
	v.vaultKey.Dispose()
}

// SaveNote persists note and keeps its notebook's cached note count in
// sync, completing the save by refreshing dependent caches.
func (v *UnlockedVault) SaveNote(note Note) (NoteMetadata, error) {
	row, err := v.Notes.Save(note)
	if err != nil {
		return NoteMetadata{}, err
	}

	if row.NotebookID != "" {
		v.refreshNotebookCount(row.NotebookID)
	}

	return row, nil
}

// TrashNote trashes a note and refreshes its notebook's note count.
func (v *UnlockedVault) TrashNote(id string) (NoteMetadata, error) {
	row, err := v.Notes.Trash(id)
	if err != nil {
		return NoteMetadata{}, err
	}

	if row.NotebookID != "" {
		v.refreshNotebookCount(row.NotebookID)
	}

	return row, nil
}

// RestoreNote restores a trashed note and refreshes its notebook's note count.
func (v *UnlockedVault) RestoreNote(id string) (NoteMetadata, error) {
	row, err := v.Notes.Restore(id)
	if err != nil {
		return NoteMetadata{}, err
	}

	if row.NotebookID != "" {
		v.refreshNotebookCount(row.NotebookID)
	}

	return row, nil
}

// DeleteNote permanently removes a note from the index and refreshes its
// former notebook's note count.
func (v *UnlockedVault) DeleteNote(id string) error {
	var notebookID string
	if meta, ok := v.findNoteMetadata(id); ok {
		notebookID = meta.NotebookID
	}

	if err := v.Notes.Delete(id); err != nil {
		return err
	}

	if notebookID != "" {
		v.refreshNotebookCount(notebookID)
	}

	return nil
}

func (v *UnlockedVault) findNoteMetadata(id string) (NoteMetadata, bool) {
	for _, row := range v.Notes.All() {
		if row.ID == id {
			return row, true
		}
	}

	return NoteMetadata{}, false
}

// refreshNotebookCount recomputes the non-trashed note count (archived
// notes included) for notebookID from
// the note cache and persists it to the notebook index. Errors are not
// propagated: note count is a denormalized convenience field, not an
// invariant the caller's operation should fail over.
func (v *UnlockedVault) refreshNotebookCount(notebookID string) {
	count := 0

	for _, row := range v.Notes.ListByNotebook(notebookID) {
		if !row.IsTrashed {
			count++
		}
	}

	_ = v.Notebooks.SetNoteCount(notebookID, count)
}

// NewNoteID returns a fresh note identifier, exported so callers building a
// [Note] before the first save can stamp a stable id up front.
func NewNoteID() string {
	return uuid.NewString()
}

// NewNotebookID returns a fresh notebook identifier.
func NewNotebookID() string {
	return uuid.NewString()
}
