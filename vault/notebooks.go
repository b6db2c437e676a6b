package vault

import (
	"encoding/json"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nativewit/witflo/vaultcrypto"
	"github.com/nativewit/witflo/witerrors"
)

// NotebooksIndexFileName is the encrypted metadata index for notebooks.
const NotebooksIndexFileName = "refs/notebooks.jsonl.enc"

// NotebookRepository is the query/mutation surface over a vault's
// notebooks, mirroring [NoteRepository]'s cache-over-encrypted-index design.
type NotebookRepository struct {
	vaultKey  vaultcrypto.VaultKey
	store     *ObjectStore
	indexPath string

	mu    sync.Mutex
	cache map[string]NotebookMetadata
}

// NewNotebookRepository constructs a repository rooted at vaultRoot.
func NewNotebookRepository(vaultRoot string, vaultKey vaultcrypto.VaultKey, store *ObjectStore) *NotebookRepository {
	return &NotebookRepository{
		vaultKey:  vaultKey,
		store:     store,
		indexPath: filepath.Join(vaultRoot, NotebooksIndexFileName),
		cache:     make(map[string]NotebookMetadata),
	}
}

func (r *NotebookRepository) indexAEAD() (*vaultcrypto.XChaChaAEAD, error) {
	vkb, err := r.vaultKey.Bytes()
	if err != nil {
		return nil, witerrors.Wrap(witerrors.InvariantViolated, "read vault key", err)
	}

	derived, err := vaultcrypto.HKDFDerive(vkb, "witflo.index.notebooks.v1")
	if err != nil {
		return nil, err
	}

	return vaultcrypto.NewXChaChaAEAD(derived)
}

// ReloadIndex replaces the in-memory cache from the encrypted index file.
func (r *NotebookRepository) ReloadIndex() error {
	aead, err := r.indexAEAD()
	if err != nil {
		return err
	}

	rows, err := readEncryptedIndex[NotebookMetadata](r.indexPath, aead)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache = make(map[string]NotebookMetadata, len(rows))
	for _, row := range rows {
		r.cache[row.ID] = row
	}

	return nil
}

func (r *NotebookRepository) rewriteLocked() error {
	aead, err := r.indexAEAD()
	if err != nil {
		return err
	}

	rows := make([]NotebookMetadata, 0, len(r.cache))
	for _, row := range r.cache {
		rows = append(rows, row)
	}

	return writeEncryptedIndex(r.indexPath, aead, rows)
}

func snapshotNotebooks(cache map[string]NotebookMetadata) map[string]NotebookMetadata {
	cp := make(map[string]NotebookMetadata, len(cache))
	for k, v := range cache {
		cp[k] = v
	}

	return cp
}

// Save encrypts and persists notebook, updating the metadata index.
func (r *NotebookRepository) Save(nb Notebook) (NotebookMetadata, error) {
	if nb.ID == "" {
		nb.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	if nb.CreatedAt.IsZero() {
		nb.CreatedAt = now
	}

	nb.ModifiedAt = now

	return r.save(nb, "")
}

// ApplyRemote persists nb exactly as supplied by the sync applicator,
// stamping the resulting row's LastOpID with opID.
func (r *NotebookRepository) ApplyRemote(nb Notebook, opID string) (NotebookMetadata, error) {
	return r.save(nb, opID)
}

func (r *NotebookRepository) save(nb Notebook, opID string) (NotebookMetadata, error) {
	nbKey, err := vaultcrypto.DeriveNotebookKey(r.vaultKey, nb.ID)
	if err != nil {
		return NotebookMetadata{}, err
	}
	defer nbKey.Dispose()

	nbkBytes, err := nbKey.Bytes()
	if err != nil {
		return NotebookMetadata{}, err
	}

	aead, err := vaultcrypto.NewXChaChaAEAD(nbkBytes)
	if err != nil {
		return NotebookMetadata{}, err
	}

	plaintext, err := json.Marshal(nb)
	if err != nil {
		return NotebookMetadata{}, witerrors.Wrap(witerrors.InvalidInput, "marshal notebook", err)
	}

	sealed, err := aead.Seal(plaintext, []byte(nb.ID))
	if err != nil {
		return NotebookMetadata{}, witerrors.Wrap(witerrors.InvalidInput, "seal notebook content", err)
	}

	hash, err := r.store.Put(sealed)
	if err != nil {
		return NotebookMetadata{}, err
	}

	row := NotebookMetadata{
		ID:          nb.ID,
		Name:        nb.Name,
		IsArchived:  nb.IsArchived,
		NoteCount:   nb.NoteCount,
		CreatedAt:   nb.CreatedAt,
		ModifiedAt:  nb.ModifiedAt,
		ContentHash: hash,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if opID != "" {
		row.LastOpID = opID
	} else if existing, ok := r.cache[nb.ID]; ok {
		row.LastOpID = existing.LastOpID
	}

	previous := snapshotNotebooks(r.cache)
	r.cache[row.ID] = row

	if err := r.rewriteLocked(); err != nil {
		r.cache = previous
		return NotebookMetadata{}, err
	}

	return row, nil
}

// Load reads a notebook's full content.
func (r *NotebookRepository) Load(id string) (Notebook, error) {
	r.mu.Lock()
	row, ok := r.cache[id]
	r.mu.Unlock()

	if !ok {
		return Notebook{}, witerrors.ErrNotebookMissing
	}

	ciphertext, err := r.store.Get(row.ContentHash)
	if err != nil {
		return Notebook{}, err
	}

	nbKey, err := vaultcrypto.DeriveNotebookKey(r.vaultKey, id)
	if err != nil {
		return Notebook{}, err
	}
	defer nbKey.Dispose()

	nbkBytes, err := nbKey.Bytes()
	if err != nil {
		return Notebook{}, err
	}

	aead, err := vaultcrypto.NewXChaChaAEAD(nbkBytes)
	if err != nil {
		return Notebook{}, err
	}

	plaintext, err := aead.Open(ciphertext, []byte(id))
	if err != nil {
		return Notebook{}, witerrors.CorruptedObjectError(row.ContentHash, err)
	}

	var nb Notebook
	if err := json.Unmarshal(plaintext, &nb); err != nil {
		return Notebook{}, witerrors.Wrap(witerrors.InvalidInput, "parse notebook content", err)
	}

	return nb, nil
}

// Delete removes id's row from the index.
func (r *NotebookRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.cache[id]; !ok {
		return witerrors.ErrNotebookMissing
	}

	previous := snapshotNotebooks(r.cache)
	delete(r.cache, id)

	if err := r.rewriteLocked(); err != nil {
		r.cache = previous
		return err
	}

	return nil
}

// SetArchived sets a notebook's archived flag.
func (r *NotebookRepository) SetArchived(id string, archived bool) (NotebookMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.cache[id]
	if !ok {
		return NotebookMetadata{}, witerrors.ErrNotebookMissing
	}

	previous := snapshotNotebooks(r.cache)

	row.IsArchived = archived
	row.ModifiedAt = time.Now().UTC()
	r.cache[id] = row

	if err := r.rewriteLocked(); err != nil {
		r.cache = previous
		return NotebookMetadata{}, err
	}

	return row, nil
}

// SetNoteCount updates the cached note count for id, used by the note
// repository after a save/delete/trash changes a notebook's membership.
// A missing notebook id is silently ignored: a note's NotebookID field may
// reference a notebook that was deleted out from under it.
func (r *NotebookRepository) SetNoteCount(id string, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.cache[id]
	if !ok {
		return nil
	}

	previous := snapshotNotebooks(r.cache)

	row.NoteCount = count
	r.cache[id] = row

	if err := r.rewriteLocked(); err != nil {
		r.cache = previous
		return err
	}

	return nil
}

// List returns every notebook, archived or not.
func (r *NotebookRepository) List() []NotebookMetadata {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := make([]NotebookMetadata, 0, len(r.cache))
	for _, row := range r.cache {
		rows = append(rows, row)
	}

	return rows
}

// Get returns the cached metadata row for id.
func (r *NotebookRepository) Get(id string) (NotebookMetadata, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.cache[id]

	return row, ok
}
