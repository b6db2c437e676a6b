package vault

import (
	"os"
	"testing"

	"github.com/nativewit/witflo/vaultcrypto"
	"github.com/nativewit/witflo/witerrors"
)

func newTestVaultKey(t *testing.T) vaultcrypto.VaultKey {
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

func newTestVault(t *testing.T) *UnlockedVault {
	t.Helper()

	vk := newTestVaultKey(t)
	uv, err := Create(t.TempDir(), "vault-"+NewNoteID(), vk)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	t.Cleanup(uv.Close)

	return uv
}

func TestCreateThenOpenRoundTrip(t *testing.T) {
	vk := newTestVaultKey(t)
	root := t.TempDir()

	uv, err := Create(root, "v1", vk)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := uv.SaveNote(Note{Title: "hello", Content: "world"}); err != nil {
		t.Fatalf("SaveNote: %v", err)
	}

	uv.Close()

	reopened, err := Open(root, vk)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reopened.Close()

	active := reopened.Notes.ListActive()
	if len(active) != 1 {
		t.Fatalf("ListActive after reopen = %d rows, want 1", len(active))
	}

	if active[0].Title != "hello" {
		t.Fatalf("Title = %q, want hello", active[0].Title)
	}
}

func TestSaveAndLoadNoteRoundTrip(t *testing.T) {
	uv := newTestVault(t)

	row, err := uv.SaveNote(Note{Title: "first", Content: "some content here"})
	if err != nil {
		t.Fatalf("SaveNote: %v", err)
	}

	loaded, err := uv.Notes.Load(row.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.Content != "some content here" {
		t.Fatalf("Content = %q, want %q", loaded.Content, "some content here")
	}

	if loaded.Version != 1 {
		t.Fatalf("Version = %d, want 1", loaded.Version)
	}
}

func TestSaveIncrementsVersion(t *testing.T) {
	uv := newTestVault(t)

	row, err := uv.SaveNote(Note{Title: "v1", Content: "a"})
	if err != nil {
		t.Fatalf("SaveNote: %v", err)
	}

	updated := Note{ID: row.ID, Title: "v2", Content: "b", Version: row.Version}

	row2, err := uv.SaveNote(updated)
	if err != nil {
		t.Fatalf("SaveNote (update): %v", err)
	}

	if row2.Version != 2 {
		t.Fatalf("Version = %d, want 2", row2.Version)
	}

	loaded, err := uv.Notes.Load(row.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.Content != "b" {
		t.Fatalf("Content = %q, want b", loaded.Content)
	}
}

func TestLoadMissingNoteReturnsNoteMissing(t *testing.T) {
	uv := newTestVault(t)

	_, err := uv.Notes.Load("does-not-exist")
	if !witerrors.Is(err, witerrors.NoteMissing) {
		t.Fatalf("err = %v, want NoteMissing", err)
	}
}

func TestTrashAndRestoreNote(t *testing.T) {
	uv := newTestVault(t)

	row, err := uv.SaveNote(Note{Title: "t", Content: "c"})
	if err != nil {
		t.Fatalf("SaveNote: %v", err)
	}

	if _, err := uv.TrashNote(row.ID); err != nil {
		t.Fatalf("TrashNote: %v", err)
	}

	if len(uv.Notes.ListActive()) != 0 {
		t.Fatalf("ListActive should be empty after trash")
	}

	if len(uv.Notes.ListTrashed()) != 1 {
		t.Fatalf("ListTrashed should contain the trashed note")
	}

	if _, err := uv.RestoreNote(row.ID); err != nil {
		t.Fatalf("RestoreNote: %v", err)
	}

	if len(uv.Notes.ListActive()) != 1 {
		t.Fatalf("ListActive should contain the restored note")
	}
}

func TestPinnedNotesSortFirst(t *testing.T) {
	uv := newTestVault(t)

	if _, err := uv.SaveNote(Note{Title: "plain", Content: "c"}); err != nil {
		t.Fatalf("SaveNote: %v", err)
	}

	pinned, err := uv.SaveNote(Note{Title: "pinned", Content: "c", IsPinned: true})
	if err != nil {
		t.Fatalf("SaveNote: %v", err)
	}

	active := uv.Notes.ListActive()
	if len(active) != 2 {
		t.Fatalf("ListActive = %d rows, want 2", len(active))
	}

	if active[0].ID != pinned.ID {
		t.Fatalf("ListActive[0] = %q, want the pinned note first", active[0].ID)
	}
}

func TestSearchByTitleCaseInsensitive(t *testing.T) {
	uv := newTestVault(t)

	if _, err := uv.SaveNote(Note{Title: "Shopping List", Content: "milk"}); err != nil {
		t.Fatalf("SaveNote: %v", err)
	}

	if _, err := uv.SaveNote(Note{Title: "Meeting Notes", Content: "agenda"}); err != nil {
		t.Fatalf("SaveNote: %v", err)
	}

	matches := uv.Notes.SearchByTitle("shopping")
	if len(matches) != 1 {
		t.Fatalf("SearchByTitle = %d rows, want 1", len(matches))
	}

	if matches[0].Title != "Shopping List" {
		t.Fatalf("match = %q, want Shopping List", matches[0].Title)
	}
}

func TestListByTag(t *testing.T) {
	uv := newTestVault(t)

	if _, err := uv.SaveNote(Note{Title: "a", Content: "c", Tags: []string{"work", "urgent"}}); err != nil {
		t.Fatalf("SaveNote: %v", err)
	}

	if _, err := uv.SaveNote(Note{Title: "b", Content: "c", Tags: []string{"personal"}}); err != nil {
		t.Fatalf("SaveNote: %v", err)
	}

	matches := uv.Notes.ListByTag("urgent")
	if len(matches) != 1 || matches[0].Title != "a" {
		t.Fatalf("ListByTag(urgent) = %+v, want just note a", matches)
	}
}

func TestStats(t *testing.T) {
	uv := newTestVault(t)

	active, err := uv.SaveNote(Note{Title: "active", Content: "c"})
	if err != nil {
		t.Fatalf("SaveNote: %v", err)
	}

	archived, err := uv.SaveNote(Note{Title: "archived", Content: "c"})
	if err != nil {
		t.Fatalf("SaveNote: %v", err)
	}

	if _, err := uv.Notes.SetArchived(archived.ID, true); err != nil {
		t.Fatalf("SetArchived: %v", err)
	}

	if _, err := uv.Notes.SetPinned(active.ID, true); err != nil {
		t.Fatalf("SetPinned: %v", err)
	}

	trashed, err := uv.SaveNote(Note{Title: "trashed", Content: "c"})
	if err != nil {
		t.Fatalf("SaveNote: %v", err)
	}

	if _, err := uv.TrashNote(trashed.ID); err != nil {
		t.Fatalf("TrashNote: %v", err)
	}

	stats := uv.Notes.Stats()

	if stats.Total != 3 {
		t.Fatalf("Total = %d, want 3", stats.Total)
	}

	if stats.Active != 1 {
		t.Fatalf("Active = %d, want 1", stats.Active)
	}

	if stats.Archived != 1 {
		t.Fatalf("Archived = %d, want 1", stats.Archived)
	}

	if stats.Trashed != 1 {
		t.Fatalf("Trashed = %d, want 1", stats.Trashed)
	}

	if stats.Pinned != 1 {
		t.Fatalf("Pinned = %d, want 1", stats.Pinned)
	}
}

func TestNotebookNoteCountTracksMembership(t *testing.T) {
	uv := newTestVault(t)

	nb, err := uv.Notebooks.Save(Notebook{Name: "Work"})
	if err != nil {
		t.Fatalf("Notebooks.Save: %v", err)
	}

	note, err := uv.SaveNote(Note{Title: "n1", Content: "c", NotebookID: nb.ID})
	if err != nil {
		t.Fatalf("SaveNote: %v", err)
	}

	row, ok := uv.Notebooks.Get(nb.ID)
	if !ok {
		t.Fatalf("Notebooks.Get: not found")
	}

	if row.NoteCount != 1 {
		t.Fatalf("NoteCount = %d, want 1", row.NoteCount)
	}

	if _, err := uv.TrashNote(note.ID); err != nil {
		t.Fatalf("TrashNote: %v", err)
	}

	row, _ = uv.Notebooks.Get(nb.ID)
	if row.NoteCount != 0 {
		t.Fatalf("NoteCount after trash = %d, want 0", row.NoteCount)
	}
}

func TestCorruptedObjectDetected(t *testing.T) {
	uv := newTestVault(t)

	row, err := uv.SaveNote(Note{Title: "t", Content: "c"})
	if err != nil {
		t.Fatalf("SaveNote: %v", err)
	}

	path := uv.Store.pathFor(row.ContentHash)

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read object: %v", err)
	}

	raw[len(raw)-1] ^= 0xFF

	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write tampered object: %v", err)
	}

	_, err = uv.Notes.Load(row.ID)
	if !witerrors.Is(err, witerrors.CorruptedObject) {
		t.Fatalf("err = %v, want CorruptedObject", err)
	}
}
