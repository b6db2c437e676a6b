// Package syncop implements the sync operation log: the Lamport-ordered,
// Ed25519-signed, AEAD-encrypted operation schema that reconciles two
// devices' divergent vault histories via a last-writer-wins CRDT
// applicator.
package syncop

import (
	"encoding/json"
	"time"
)

// OpType identifies what kind of mutation a SyncOperation records.
type OpType string

const (
	CreateNote     OpType = "createNote"
	UpdateNote     OpType = "updateNote"
	DeleteNote     OpType = "deleteNote"
	MoveNote       OpType = "moveNote"
	CreateNotebook OpType = "createNotebook"
	UpdateNotebook OpType = "updateNotebook"
	DeleteNotebook OpType = "deleteNotebook"
	AddTag         OpType = "addTag"
	RemoveTag      OpType = "removeTag"
)

// SyncOperation is the logical, decrypted form of one change to apply to a
// remote vault replica. Payload is op-type-specific raw JSON, decoded by
// the applicator according to Type.
type SyncOperation struct {
	OpID      string          `json:"op_id"`
	Type      OpType          `json:"type"`
	TargetID  string          `json:"target_id"`
	Timestamp int64           `json:"timestamp"`
	DeviceID  string          `json:"device_id"`
	CreatedAt time.Time       `json:"created_at"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Signature []byte          `json:"signature,omitempty"`
}

// NotePayload is the payload for createNote/updateNote: the fields present
// are the fields to apply; absent fields (nil pointers / zero Tags) leave
// the corresponding local field untouched on an update.
type NotePayload struct {
	Title      *string   `json:"title,omitempty"`
	Content    *string   `json:"content,omitempty"`
	NotebookID *string   `json:"notebook_id,omitempty"`
	Tags       *[]string `json:"tags,omitempty"`
	IsPinned   *bool     `json:"is_pinned,omitempty"`
	IsArchived *bool     `json:"is_archived,omitempty"`
}

// NotebookPayload is the payload for createNotebook/updateNotebook.
type NotebookPayload struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	IsArchived  *bool   `json:"is_archived,omitempty"`
}

// MovePayload is the payload for moveNote.
type MovePayload struct {
	NotebookID string `json:"notebook_id"`
}

// TagPayload is the payload for addTag/removeTag (v1: logged and skipped).
type TagPayload struct {
	Tag string `json:"tag"`
}

// EncryptedSyncOp is the at-rest/wire form of a SyncOperation: op_id stays
// plaintext for ordering and filenames, everything else is opaque
// ciphertext to any backend.
type EncryptedSyncOp struct {
	OpID        string `json:"op_id"`
	Ciphertext  []byte `json:"ciphertext"`
	ContentHash string `json:"content_hash"`
	Timestamp   int64  `json:"timestamp"`
}

// SyncCursor tracks pull progress for a vault.
type SyncCursor struct {
	LastTimestamp int64     `json:"last_timestamp"`
	LastOpID      string    `json:"last_op_id,omitempty"`
	SyncedCount   int       `json:"synced_count"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PushResult is returned by a Backend's push_ops call.
type PushResult struct {
	PushedCount int
	FailedOpIDs []string
}

// PullResult is returned by a Backend's pull_ops call.
type PullResult struct {
	Ops       []EncryptedSyncOp
	NewCursor SyncCursor
}
