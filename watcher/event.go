// Package watcher implements the file-watcher-driven reload pipeline: OS
// filesystem notifications, per-path debouncing, content-hash
// deduplication, self-write suppression, and cache-diff-derived change
// events for a vault's (or the workspace's) on-disk state.
package watcher

import "github.com/nativewit/witflo/vault"

// Kind classifies what changed on disk.
type Kind int

const (
	_ Kind = iota

	// NotesIndexChanged fires after refs/notes.jsonl.enc is reloaded. Diff
	// is delivered as one event per affected note id.
	NotesIndexChanged

	// NotebooksIndexChanged is the notebook analogue of NotesIndexChanged.
	NotebooksIndexChanged

	// SyncOpEnqueued fires when a new sync/pending/<op_id>.op.enc appears.
	SyncOpEnqueued

	// CursorChanged fires after sync/cursor.enc is rewritten externally.
	CursorChanged

	// HeaderChanged fires after vault.header is rewritten externally. A
	// [WorkspaceWatcher] also sends it, with no ID, when the workspace
	// metadata or keyring file changes.
	HeaderChanged

	// VaultDiscovered fires when the workspace watcher sees a new
	// vaults/<vault_id>/vault.header appear.
	VaultDiscovered
)

// ChangeKind classifies a single cache-diff entry.
type ChangeKind int

const (
	_ ChangeKind = iota

	Added
	Modified
	Removed
)

// Event is what subscribers receive from [Watcher.Events]. Only the fields
// relevant to Kind are populated.
type Event struct {
	Kind   Kind
	Change ChangeKind

	// ID is the note/notebook id for index events, the op id for
	// SyncOpEnqueued, or the vault id for VaultDiscovered.
	ID string

	NoteMetadata     *vault.NoteMetadata
	NotebookMetadata *vault.NotebookMetadata
}

// diffNotes compares two full-cache snapshots by id and returns one Event
// per addition, removal, or modification (by modified_at/version).
func diffNotes(old, updated []vault.NoteMetadata) []Event {
	oldByID := make(map[string]vault.NoteMetadata, len(old))
	for _, row := range old {
		oldByID[row.ID] = row
	}

	newByID := make(map[string]vault.NoteMetadata, len(updated))
	for _, row := range updated {
		newByID[row.ID] = row
	}

	var events []Event

	for id, row := range newByID {
		row := row

		prev, existed := oldByID[id]
		switch {
		case !existed:
			events = append(events, Event{Kind: NotesIndexChanged, Change: Added, ID: id, NoteMetadata: &row})
		case !prev.ModifiedAt.Equal(row.ModifiedAt) || prev.Version != row.Version:
			events = append(events, Event{Kind: NotesIndexChanged, Change: Modified, ID: id, NoteMetadata: &row})
		}
	}

	for id := range oldByID {
		if _, ok := newByID[id]; !ok {
			events = append(events, Event{Kind: NotesIndexChanged, Change: Removed, ID: id})
		}
	}

	return events
}

// diffNotebooks is the notebook analogue of diffNotes.
func diffNotebooks(old, updated []vault.NotebookMetadata) []Event {
	oldByID := make(map[string]vault.NotebookMetadata, len(old))
	for _, row := range old {
		oldByID[row.ID] = row
	}

	newByID := make(map[string]vault.NotebookMetadata, len(updated))
	for _, row := range updated {
		newByID[row.ID] = row
	}

	var events []Event

	for id, row := range newByID {
		row := row

		prev, existed := oldByID[id]
		switch {
		case !existed:
			events = append(events, Event{Kind: NotebooksIndexChanged, Change: Added, ID: id, NotebookMetadata: &row})
		case !prev.ModifiedAt.Equal(row.ModifiedAt):
			events = append(events, Event{Kind: NotebooksIndexChanged, Change: Modified, ID: id, NotebookMetadata: &row})
		}
	}

	for id := range oldByID {
		if _, ok := newByID[id]; !ok {
			events = append(events, Event{Kind: NotebooksIndexChanged, Change: Removed, ID: id})
		}
	}

	return events
}
