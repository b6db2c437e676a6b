package vault

import (
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nativewit/witflo/vaultcrypto"
	"github.com/nativewit/witflo/witerrors"
)

// NotesIndexFileName is the encrypted metadata index for notes.
const NotesIndexFileName = "refs/notes.jsonl.enc"

// NoteStats summarizes the note repository's current contents.
type NoteStats struct {
	Total    int
	Active   int
	Archived int
	Trashed  int
	Pinned   int
}

// NoteRepository is the query/mutation surface over a vault's notes: an
// in-memory cache of [NoteMetadata] backed by the encrypted index file and
// the content-addressed object store.
//
// All mutations go through a single mutex, so index rewrites are
// serialized against reloads the way a single-threaded executor per vault
// would be (here realized as a plain mutex rather than a separate executor
// goroutine, since Go's blocking calls make that unnecessary).
type NoteRepository struct {
	vaultKey  vaultcrypto.VaultKey
	store     *ObjectStore
	indexPath string

	mu    sync.Mutex
	cache map[string]NoteMetadata
}

// NewNoteRepository constructs a repository rooted at vaultRoot, ready for
// [NoteRepository.ReloadIndex].
func NewNoteRepository(vaultRoot string, vaultKey vaultcrypto.VaultKey, store *ObjectStore) *NoteRepository {
	return &NoteRepository{
		vaultKey:  vaultKey,
		store:     store,
		indexPath: filepath.Join(vaultRoot, NotesIndexFileName),
		cache:     make(map[string]NoteMetadata),
	}
}

func (r *NoteRepository) indexAEAD() (*vaultcrypto.XChaChaAEAD, error) {
	vkb, err := r.vaultKey.Bytes()
	if err != nil {
		return nil, witerrors.Wrap(witerrors.InvariantViolated, "read vault key", err)
	}

	derived, err := vaultcrypto.HKDFDerive(vkb, "witflo.index.notes.v1")
	if err != nil {
		return nil, err
	}

	return vaultcrypto.NewXChaChaAEAD(derived)
}

// ReloadIndex fully replaces the in-memory metadata cache from the
// encrypted index file on disk. Called on startup and by the file watcher.
func (r *NoteRepository) ReloadIndex() error {
	aead, err := r.indexAEAD()
	if err != nil {
		return err
	}

	rows, err := readEncryptedIndex[NoteMetadata](r.indexPath, aead)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.cache = make(map[string]NoteMetadata, len(rows))
	for _, row := range rows {
		r.cache[row.ID] = row
	}

	return nil
}

// rewriteLocked persists the current cache to the encrypted index. Caller
// must hold r.mu. On failure, the caller is responsible for rolling the
// cache back to its previous snapshot.
func (r *NoteRepository) rewriteLocked() error {
	aead, err := r.indexAEAD()
	if err != nil {
		return err
	}

	rows := make([]NoteMetadata, 0, len(r.cache))
	for _, row := range r.cache {
		rows = append(rows, row)
	}

	return writeEncryptedIndex(r.indexPath, aead, rows)
}

// snapshotNotes returns a copy of the cache, for rollback on a failed rewrite.
func snapshotNotes(cache map[string]NoteMetadata) map[string]NoteMetadata {
	cp := make(map[string]NoteMetadata, len(cache))
	for k, v := range cache {
		cp[k] = v
	}

	return cp
}

// Save encrypts and persists note's content, updates the metadata index,
// and returns the resulting NoteMetadata. Each save increments note.Version
// and stamps ModifiedAt with the current time.
func (r *NoteRepository) Save(note Note) (NoteMetadata, error) {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}

	note.ModifiedAt = now
	note.Version++

	return r.save(note, "")
}

// ApplyRemote persists note exactly as supplied by the sync applicator:
// ModifiedAt and Version are taken from note as given (not stamped with
// "now" or auto-incremented), and the resulting row's LastOpID is set to
// opID for future CRDT tie-breaking.
func (r *NoteRepository) ApplyRemote(note Note, opID string) (NoteMetadata, error) {
	return r.save(note, opID)
}

func (r *NoteRepository) save(note Note, opID string) (NoteMetadata, error) {
	contentKey, err := vaultcrypto.DeriveContentKey(r.vaultKey, note.ID)
	if err != nil {
		return NoteMetadata{}, err
	}
	defer contentKey.Dispose()

	ckBytes, err := contentKey.Bytes()
	if err != nil {
		return NoteMetadata{}, err
	}

	aead, err := vaultcrypto.NewXChaChaAEAD(ckBytes)
	if err != nil {
		return NoteMetadata{}, err
	}

	plaintext, err := json.Marshal(note)
	if err != nil {
		return NoteMetadata{}, witerrors.Wrap(witerrors.InvalidInput, "marshal note", err)
	}

	sealed, err := aead.Seal(plaintext, []byte(note.ID))
	if err != nil {
		return NoteMetadata{}, witerrors.Wrap(witerrors.InvalidInput, "seal note content", err)
	}

	hash, err := r.store.Put(sealed)
	if err != nil {
		return NoteMetadata{}, err
	}

	row := NoteMetadata{
		ID:          note.ID,
		Title:       note.Title,
		Tags:        note.Tags,
		CreatedAt:   note.CreatedAt,
		ModifiedAt:  note.ModifiedAt,
		IsPinned:    note.IsPinned,
		IsArchived:  note.IsArchived,
		IsTrashed:   note.IsTrashed,
		Version:     note.Version,
		Preview:     buildPreview(note.Content),
		ContentHash: hash,
		NotebookID:  note.NotebookID,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if opID != "" {
		row.LastOpID = opID
	} else if existing, ok := r.cache[note.ID]; ok {
		row.LastOpID = existing.LastOpID
	}

	previous := snapshotNotes(r.cache)
	r.cache[row.ID] = row

	if err := r.rewriteLocked(); err != nil {
		r.cache = previous
		return NoteMetadata{}, err
	}

	return row, nil
}

// Load reads a note's full content: metadata cache lookup, object-store
// read by content hash, AEAD decrypt with the re-derived ContentKey, and
// JSON parse.
func (r *NoteRepository) Load(id string) (Note, error) {
	r.mu.Lock()
	row, ok := r.cache[id]
	r.mu.Unlock()

	if !ok {
		return Note{}, witerrors.ErrNoteMissing
	}

	ciphertext, err := r.store.Get(row.ContentHash)
	if err != nil {
		return Note{}, err
	}

	contentKey, err := vaultcrypto.DeriveContentKey(r.vaultKey, id)
	if err != nil {
		return Note{}, err
	}
	defer contentKey.Dispose()

	ckBytes, err := contentKey.Bytes()
	if err != nil {
		return Note{}, err
	}

	aead, err := vaultcrypto.NewXChaChaAEAD(ckBytes)
	if err != nil {
		return Note{}, err
	}

	plaintext, err := aead.Open(ciphertext, []byte(id))
	if err != nil {
		return Note{}, witerrors.CorruptedObjectError(row.ContentHash, err)
	}

	var note Note
	if err := json.Unmarshal(plaintext, &note); err != nil {
		return Note{}, witerrors.Wrap(witerrors.InvalidInput, "parse note content", err)
	}

	return note, nil
}

// mutateLocked applies mutate to the cached row for id and persists the
// result, rolling the cache back on a rewrite failure.
func (r *NoteRepository) mutateLocked(id string, mutate func(*NoteMetadata)) (NoteMetadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.cache[id]
	if !ok {
		return NoteMetadata{}, witerrors.ErrNoteMissing
	}

	previous := snapshotNotes(r.cache)

	mutate(&row)
	row.ModifiedAt = time.Now().UTC()
	r.cache[id] = row

	if err := r.rewriteLocked(); err != nil {
		r.cache = previous
		return NoteMetadata{}, err
	}

	return row, nil
}

// Delete removes id's row from the index. The object-store blob is left in
// place; garbage collection of unreferenced blobs is out of scope.
func (r *NoteRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.cache[id]; !ok {
		return witerrors.ErrNoteMissing
	}

	previous := snapshotNotes(r.cache)
	delete(r.cache, id)

	if err := r.rewriteLocked(); err != nil {
		r.cache = previous
		return err
	}

	return nil
}

// Trash marks a note as trashed.
func (r *NoteRepository) Trash(id string) (NoteMetadata, error) {
	return r.mutateLocked(id, func(row *NoteMetadata) {
		row.IsTrashed = true
	})
}

// Restore clears a note's trashed flag.
func (r *NoteRepository) Restore(id string) (NoteMetadata, error) {
	return r.mutateLocked(id, func(row *NoteMetadata) {
		row.IsTrashed = false
	})
}

// SetPinned sets a note's pinned flag.
func (r *NoteRepository) SetPinned(id string, pinned bool) (NoteMetadata, error) {
	return r.mutateLocked(id, func(row *NoteMetadata) {
		row.IsPinned = pinned
	})
}

// SetArchived sets a note's archived flag.
func (r *NoteRepository) SetArchived(id string, archived bool) (NoteMetadata, error) {
	return r.mutateLocked(id, func(row *NoteMetadata) {
		row.IsArchived = archived
	})
}

// All returns a snapshot of every cached row, regardless of trashed,
// archived, or pinned state. Used by the repository's own query methods
// and by external diffing (e.g. the file watcher) after a reload.
func (r *NoteRepository) All() []NoteMetadata {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := make([]NoteMetadata, 0, len(r.cache))
	for _, row := range r.cache {
		rows = append(rows, row)
	}

	return rows
}

// sortByPinnedThenModified orders rows with IsPinned descending then
// ModifiedAt descending, the ordering active-note listings present.
func sortByPinnedThenModified(rows []NoteMetadata) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].IsPinned != rows[j].IsPinned {
			return rows[i].IsPinned
		}

		return rows[i].ModifiedAt.After(rows[j].ModifiedAt)
	})
}

// ListActive returns non-archived, non-trashed notes, pinned first then by
// recency.
func (r *NoteRepository) ListActive() []NoteMetadata {
	rows := make([]NoteMetadata, 0)

	for _, row := range r.All() {
		if !row.IsArchived && !row.IsTrashed {
			rows = append(rows, row)
		}
	}

	sortByPinnedThenModified(rows)

	return rows
}

// ListByNotebook returns every note belonging to notebookID, archived and
// trashed notes included.
func (r *NoteRepository) ListByNotebook(notebookID string) []NoteMetadata {
	rows := make([]NoteMetadata, 0)

	for _, row := range r.All() {
		if row.NotebookID == notebookID {
			rows = append(rows, row)
		}
	}

	sortByPinnedThenModified(rows)

	return rows
}

// ListTrashed returns every trashed note.
func (r *NoteRepository) ListTrashed() []NoteMetadata {
	rows := make([]NoteMetadata, 0)

	for _, row := range r.All() {
		if row.IsTrashed {
			rows = append(rows, row)
		}
	}

	sortByPinnedThenModified(rows)

	return rows
}

// ListArchived returns every archived, non-trashed note.
func (r *NoteRepository) ListArchived() []NoteMetadata {
	rows := make([]NoteMetadata, 0)

	for _, row := range r.All() {
		if row.IsArchived && !row.IsTrashed {
			rows = append(rows, row)
		}
	}

	sortByPinnedThenModified(rows)

	return rows
}

// ListPinned returns every pinned, non-trashed note.
func (r *NoteRepository) ListPinned() []NoteMetadata {
	rows := make([]NoteMetadata, 0)

	for _, row := range r.All() {
		if row.IsPinned && !row.IsTrashed {
			rows = append(rows, row)
		}
	}

	sortByPinnedThenModified(rows)

	return rows
}

// SearchByTitle returns notes whose title contains q, case-insensitive.
func (r *NoteRepository) SearchByTitle(q string) []NoteMetadata {
	q = strings.ToLower(q)
	rows := make([]NoteMetadata, 0)

	for _, row := range r.All() {
		if strings.Contains(strings.ToLower(row.Title), q) {
			rows = append(rows, row)
		}
	}

	sortByPinnedThenModified(rows)

	return rows
}

// ListByTag returns notes carrying tag.
func (r *NoteRepository) ListByTag(tag string) []NoteMetadata {
	rows := make([]NoteMetadata, 0)

	for _, row := range r.All() {
		for _, t := range row.Tags {
			if t == tag {
				rows = append(rows, row)
				break
			}
		}
	}

	sortByPinnedThenModified(rows)

	return rows
}

// Stats summarizes the repository's current contents.
func (r *NoteRepository) Stats() NoteStats {
	var s NoteStats

	for _, row := range r.All() {
		s.Total++

		switch {
		case row.IsTrashed:
			s.Trashed++
		case row.IsArchived:
			s.Archived++
		default:
			s.Active++
		}

		if row.IsPinned {
			s.Pinned++
		}
	}

	return s
}
