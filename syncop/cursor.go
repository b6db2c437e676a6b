package syncop

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/nativewit/witflo/fsatomic"
	"github.com/nativewit/witflo/vaultcrypto"
	"github.com/nativewit/witflo/witerrors"
)

// CursorFileName is the encrypted sync cursor file under a vault root.
const CursorFileName = "sync/cursor.enc"

func cursorAEAD(vaultKey vaultcrypto.VaultKey) (*vaultcrypto.XChaChaAEAD, error) {
	secret, err := vaultcrypto.DeriveSyncOpKey(vaultKey)
	if err != nil {
		return nil, err
	}
	defer secret.Dispose()

	keyBytes, err := secret.Bytes()
	if err != nil {
		return nil, err
	}

	return vaultcrypto.NewXChaChaAEAD(keyBytes)
}

// LoadCursor reads and decrypts the sync cursor. A missing file is treated
// as a fresh cursor at timestamp zero (first sync).
func LoadCursor(vaultRoot string, vaultKey vaultcrypto.VaultKey) (SyncCursor, error) {
	path := filepath.Join(vaultRoot, CursorFileName)

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return SyncCursor{}, nil
		}

		return SyncCursor{}, witerrors.IoErrorFor(path, err)
	}

	aead, err := cursorAEAD(vaultKey)
	if err != nil {
		return SyncCursor{}, err
	}

	plaintext, err := aead.Open(raw, nil)
	if err != nil {
		return SyncCursor{}, witerrors.CorruptedIndexError(path, err)
	}

	var cursor SyncCursor
	if err := json.Unmarshal(plaintext, &cursor); err != nil {
		return SyncCursor{}, witerrors.Wrap(witerrors.InvalidInput, "parse sync cursor", err)
	}

	return cursor, nil
}

// SaveCursor encrypts and atomically persists cursor.
func SaveCursor(vaultRoot string, vaultKey vaultcrypto.VaultKey, cursor SyncCursor) error {
	cursor.UpdatedAt = time.Now().UTC()

	aead, err := cursorAEAD(vaultKey)
	if err != nil {
		return err
	}

	plaintext, err := json.Marshal(cursor)
	if err != nil {
		return witerrors.Wrap(witerrors.InvalidInput, "marshal sync cursor", err)
	}

	sealed, err := aead.Seal(plaintext, nil)
	if err != nil {
		return witerrors.Wrap(witerrors.InvalidInput, "seal sync cursor", err)
	}

	path := filepath.Join(vaultRoot, CursorFileName)

	if err := fsatomic.WriteFile(path, sealed, 0o600); err != nil {
		return witerrors.IoErrorFor(path, err)
	}

	return nil
}
