// Package syncmgr wires together a vault, its pending-op queue and cursor,
// a Backend, and the CRDT applicator into the push/pull/sync operations
// the host/CLI contract exposes as a single `sync()` call.
package syncmgr

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/nativewit/witflo/backend"
	"github.com/nativewit/witflo/syncop"
	"github.com/nativewit/witflo/vault"
	"github.com/nativewit/witflo/vaultcrypto"
	"github.com/nativewit/witflo/witerrors"
)

// Result is the host-facing summary of a sync() call.
type Result struct {
	Pushed  int
	Pulled  int
	Success bool
	Error   error
}

// Manager owns one vault's sync state: its clock, pending queue, cursor,
// and applicator.
type Manager struct {
	vaultID  string
	vault    *vault.UnlockedVault
	vaultKey vaultcrypto.VaultKey
	deviceID string
	signKey  vaultcrypto.SignKeyPair

	queue      *syncop.PendingQueue
	applicator *syncop.Applicator
	backend    backend.Backend
	clock      *syncop.Clock

	logger zerolog.Logger
}

// NewManager builds a Manager for v. vaultKey is the same key the vault
// was opened with; the caller retains ownership. startClock seeds the
// Lamport clock (callers should pass max(cursor.LastTimestamp,
// current wall-clock millis) so remote timestamps and local modified_at
// values stay comparable — see [syncop.Clock]).
func NewManager(vaultID string, v *vault.UnlockedVault, vaultKey vaultcrypto.VaultKey, deviceID string, signKey vaultcrypto.SignKeyPair, devices *syncop.DeviceRegistry, be backend.Backend, startClock int64, logger zerolog.Logger) *Manager {
	return &Manager{
		vaultID:    vaultID,
		vault:      v,
		vaultKey:   vaultKey,
		deviceID:   deviceID,
		signKey:    signKey,
		queue:      syncop.NewPendingQueue(v.Root()),
		applicator: syncop.NewApplicator(v, devices, logger),
		backend:    be,
		clock:      syncop.NewClock(startClock),
		logger:     logger.With().Str("component", "sync_manager").Str("vault_id", vaultID).Logger(),
	}
}

// Emit builds, signs, encrypts, and enqueues a new local operation. The
// clock value is not persisted: Push writes no cursor, and Pull saves the
// cursor the backend returns rather than the local clock. A new Manager
// starts from the startClock passed to [NewManager].
func (m *Manager) Emit(opType syncop.OpType, targetID string, payload any) error {
	op, err := syncop.Build(m.clock, m.deviceID, opType, targetID, payload, m.signKey)
	if err != nil {
		return err
	}

	enc, err := syncop.Encrypt(op, m.vaultKey)
	if err != nil {
		return err
	}

	return m.queue.Enqueue(enc)
}

// Push sends every pending op to the backend and removes the ones it
// confirms succeeded.
func (m *Manager) Push(ctx context.Context) (int, error) {
	pending, err := m.queue.List()
	if err != nil {
		return 0, err
	}

	if len(pending) == 0 {
		return 0, nil
	}

	result, err := m.backend.PushOps(ctx, m.vaultID, pending)
	if err != nil {
		return 0, witerrors.BackendErrorFor("push_ops", err)
	}

	failed := make(map[string]bool, len(result.FailedOpIDs))
	for _, id := range result.FailedOpIDs {
		failed[id] = true
	}

	removed := 0

	for _, op := range pending {
		if failed[op.OpID] {
			continue
		}

		if err := m.queue.Remove(op.OpID); err != nil {
			m.logger.Warn().Err(err).Str("op_id", op.OpID).Msg("failed to remove pushed op")
			continue
		}

		removed++
	}

	return removed, nil
}

// Pull fetches ops newer than the persisted cursor, decrypts and verifies
// each, and applies it via the CRDT applicator. An op that fails to
// decrypt or apply is logged and dropped, not retried; the cursor the
// backend returned is then saved, so it moves past dropped ops too.
func (m *Manager) Pull(ctx context.Context, limit int) (int, error) {
	cursor, err := syncop.LoadCursor(m.vault.Root(), m.vaultKey)
	if err != nil {
		return 0, err
	}

	result, err := m.backend.PullOps(ctx, m.vaultID, &cursor, limit)
	if err != nil {
		return 0, witerrors.BackendErrorFor("pull_ops", err)
	}

	applied := 0

	for _, enc := range result.Ops {
		op, err := syncop.Decrypt(enc, m.vaultKey)
		if err != nil {
			m.logger.Warn().Err(err).Str("op_id", enc.OpID).Msg("dropping undecryptable sync op")
			continue
		}

		m.clock.Observe(op.Timestamp)

		if err := m.applicator.Apply(op); err != nil {
			m.logger.Warn().Err(err).Str("op_id", op.OpID).Msg("dropping sync op: apply failed")
			continue
		}

		applied++
	}

	if err := syncop.SaveCursor(m.vault.Root(), m.vaultKey, result.NewCursor); err != nil {
		return applied, err
	}

	return applied, nil
}

// Sync performs a push followed by a pull, matching the host contract's
// single `sync()` entry point.
func (m *Manager) Sync(ctx context.Context) Result {
	pushed, err := m.Push(ctx)
	if err != nil {
		return Result{Success: false, Error: err}
	}

	pulled, err := m.Pull(ctx, 256)
	if err != nil {
		return Result{Pushed: pushed, Success: false, Error: err}
	}

	return Result{Pushed: pushed, Pulled: pulled, Success: true}
}
