package syncop

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/nativewit/witflo/vault"
	"github.com/nativewit/witflo/witerrors"
)

// Applicator applies verified, decrypted SyncOperations to a vault's
// repositories according to a last-writer-wins decision table.
type Applicator struct {
	vault   *vault.UnlockedVault
	devices *DeviceRegistry
	logger  zerolog.Logger
}

// NewApplicator builds an Applicator over v, verifying incoming signatures
// against devices.
func NewApplicator(v *vault.UnlockedVault, devices *DeviceRegistry, logger zerolog.Logger) *Applicator {
	return &Applicator{
		vault:   v,
		devices: devices,
		logger:  logger.With().Str("component", "sync_applicator").Logger(),
	}
}

// Apply verifies op's signature against its producing device's registered
// key, then applies it per the last-writer-wins decision table. A
// verification failure is returned as [witerrors.ErrAuthenticationFailure]
// and the op is never applied.
func (a *Applicator) Apply(op SyncOperation) error {
	pub, ok := a.devices.Lookup(op.DeviceID)
	if !ok {
		return witerrors.ErrAuthenticationFailure
	}

	if err := VerifySignature(op, pub); err != nil {
		return err
	}

	switch op.Type {
	case CreateNote, UpdateNote:
		return a.applyNote(op)
	case DeleteNote:
		return a.applyDeleteNote(op)
	case MoveNote:
		return a.applyMoveNote(op)
	case CreateNotebook, UpdateNotebook:
		return a.applyNotebook(op)
	case DeleteNotebook:
		return a.applyDeleteNotebook(op)
	case AddTag, RemoveTag:
		a.logger.Warn().Str("op_id", op.OpID).Str("target_id", op.TargetID).Msg("tag CRDT not implemented in v1, skipping")
		return nil
	default:
		return witerrors.New(witerrors.InvalidInput, "unknown sync operation type: "+string(op.Type))
	}
}

// localWins reports whether the existing local state should be kept over
// op, per the tie-break rule: remote wins if remote_ts > local_ts, or if
// equal and remote op id sorts after the local tie-break id.
func localWins(remoteTS int64, localTS int64, remoteOpID, localTieBreakID string) bool {
	if remoteTS != localTS {
		return remoteTS < localTS
	}

	return remoteOpID <= localTieBreakID
}

func (a *Applicator) applyNote(op SyncOperation) error {
	var payload NotePayload
	if err := json.Unmarshal(op.Payload, &payload); err != nil {
		return witerrors.Wrap(witerrors.InvalidInput, "parse note payload", err)
	}

	existing, existsLocally := a.lookupNote(op.TargetID)

	if op.Type == CreateNote && existsLocally {
		localTS := existing.ModifiedAt.UnixMilli()
		tieBreak := existing.LastOpID
		if tieBreak == "" {
			tieBreak = existing.ID
		}

		if localWins(op.Timestamp, localTS, op.OpID, tieBreak) {
			a.logger.Debug().Str("op_id", op.OpID).Msg("createNote discarded: local state wins")
			return nil
		}
	}

	if op.Type == UpdateNote && !existsLocally {
		a.logger.Warn().Str("op_id", op.OpID).Str("target_id", op.TargetID).Msg("updateNote with no local row, discarding")
		return nil
	}

	if op.Type == UpdateNote && existsLocally {
		localTS := existing.ModifiedAt.UnixMilli()
		tieBreak := existing.LastOpID
		if tieBreak == "" {
			tieBreak = existing.ID
		}

		if localWins(op.Timestamp, localTS, op.OpID, tieBreak) {
			a.logger.Debug().Str("op_id", op.OpID).Msg("updateNote discarded: local state wins")
			return nil
		}
	}

	note := vault.Note{ID: op.TargetID}

	if existsLocally {
		loaded, err := a.vault.Notes.Load(op.TargetID)
		if err != nil {
			return err
		}

		note = loaded
	}

	applyNotePayload(&note, payload)
	note.ModifiedAt = msToTime(op.Timestamp)

	if !existsLocally {
		note.CreatedAt = note.ModifiedAt
	}

	_, err := a.vault.Notes.ApplyRemote(note, op.OpID)

	return err
}

func applyNotePayload(note *vault.Note, p NotePayload) {
	if p.Title != nil {
		note.Title = *p.Title
	}

	if p.Content != nil {
		note.Content = *p.Content
	}

	if p.NotebookID != nil {
		note.NotebookID = *p.NotebookID
	}

	if p.Tags != nil {
		note.Tags = *p.Tags
	}

	if p.IsPinned != nil {
		note.IsPinned = *p.IsPinned
	}

	if p.IsArchived != nil {
		note.IsArchived = *p.IsArchived
	}
}

func (a *Applicator) applyDeleteNote(op SyncOperation) error {
	if _, exists := a.lookupNote(op.TargetID); !exists {
		return nil
	}

	return a.vault.Notes.Delete(op.TargetID)
}

func (a *Applicator) applyMoveNote(op SyncOperation) error {
	var payload MovePayload
	if err := json.Unmarshal(op.Payload, &payload); err != nil {
		return witerrors.Wrap(witerrors.InvalidInput, "parse move payload", err)
	}

	existing, exists := a.lookupNote(op.TargetID)
	if !exists {
		a.logger.Warn().Str("op_id", op.OpID).Msg("moveNote with no local row, discarding")
		return nil
	}

	if op.Timestamp <= existing.ModifiedAt.UnixMilli() {
		return nil
	}

	note, err := a.vault.Notes.Load(op.TargetID)
	if err != nil {
		return err
	}

	note.NotebookID = payload.NotebookID
	note.ModifiedAt = msToTime(op.Timestamp)

	_, err = a.vault.Notes.ApplyRemote(note, op.OpID)

	return err
}

func (a *Applicator) lookupNote(id string) (vault.NoteMetadata, bool) {
	for _, row := range a.vault.Notes.All() {
		if row.ID == id {
			return row, true
		}
	}

	return vault.NoteMetadata{}, false
}

func (a *Applicator) applyNotebook(op SyncOperation) error {
	var payload NotebookPayload
	if err := json.Unmarshal(op.Payload, &payload); err != nil {
		return witerrors.Wrap(witerrors.InvalidInput, "parse notebook payload", err)
	}

	existing, existsLocally := a.vault.Notebooks.Get(op.TargetID)

	if op.Type == CreateNotebook && existsLocally {
		localTS := existing.ModifiedAt.UnixMilli()
		tieBreak := existing.LastOpID
		if tieBreak == "" {
			tieBreak = existing.ID
		}

		if localWins(op.Timestamp, localTS, op.OpID, tieBreak) {
			return nil
		}
	}

	if op.Type == UpdateNotebook && !existsLocally {
		a.logger.Warn().Str("op_id", op.OpID).Msg("updateNotebook with no local row, discarding")
		return nil
	}

	if op.Type == UpdateNotebook && existsLocally {
		localTS := existing.ModifiedAt.UnixMilli()
		tieBreak := existing.LastOpID
		if tieBreak == "" {
			tieBreak = existing.ID
		}

		if localWins(op.Timestamp, localTS, op.OpID, tieBreak) {
			return nil
		}
	}

	nb := vault.Notebook{ID: op.TargetID}

	if existsLocally {
		loaded, err := a.vault.Notebooks.Load(op.TargetID)
		if err != nil {
			return err
		}

		nb = loaded
	}

	if payload.Name != nil {
		nb.Name = *payload.Name
	}

	if payload.Description != nil {
		nb.Description = *payload.Description
	}

	if payload.Color != nil {
		nb.Color = *payload.Color
	}

	if payload.Icon != nil {
		nb.Icon = *payload.Icon
	}

	if payload.IsArchived != nil {
		nb.IsArchived = *payload.IsArchived
	}

	nb.ModifiedAt = msToTime(op.Timestamp)

	if !existsLocally {
		nb.CreatedAt = nb.ModifiedAt
	}

	_, err := a.vault.Notebooks.ApplyRemote(nb, op.OpID)

	return err
}

func (a *Applicator) applyDeleteNotebook(op SyncOperation) error {
	if _, exists := a.vault.Notebooks.Get(op.TargetID); !exists {
		return nil
	}

	return a.vault.Notebooks.Delete(op.TargetID)
}
