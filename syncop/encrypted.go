package syncop

import (
	"encoding/json"

	"github.com/nativewit/witflo/vaultcrypto"
	"github.com/nativewit/witflo/witerrors"
)

// syncOpAEAD builds the AEAD keyed by HKDF(VaultKey, "witflo.sync.operations.v1"),
// the key an EncryptedSyncOp is sealed and opened under.
func syncOpAEAD(vaultKey vaultcrypto.VaultKey) (*vaultcrypto.XChaChaAEAD, error) {
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

// Encrypt canonically serializes the full signed op (including signature)
// and AEAD-seals it with AAD = op_id, producing the wire/at-rest form.
func Encrypt(op SyncOperation, vaultKey vaultcrypto.VaultKey) (EncryptedSyncOp, error) {
	aead, err := syncOpAEAD(vaultKey)
	if err != nil {
		return EncryptedSyncOp{}, err
	}

	plaintext, err := json.Marshal(op)
	if err != nil {
		return EncryptedSyncOp{}, witerrors.Wrap(witerrors.InvalidInput, "marshal signed sync op", err)
	}

	sealed, err := aead.Seal(plaintext, []byte(op.OpID))
	if err != nil {
		return EncryptedSyncOp{}, witerrors.Wrap(witerrors.InvalidInput, "seal sync op", err)
	}

	return EncryptedSyncOp{
		OpID:        op.OpID,
		Ciphertext:  sealed,
		ContentHash: vaultcrypto.HashHex(sealed),
		Timestamp:   op.Timestamp,
	}, nil
}

// Decrypt reverses [Encrypt]. The returned SyncOperation's Signature is
// still unverified; callers must call [VerifySignature] before applying it.
func Decrypt(enc EncryptedSyncOp, vaultKey vaultcrypto.VaultKey) (SyncOperation, error) {
	aead, err := syncOpAEAD(vaultKey)
	if err != nil {
		return SyncOperation{}, err
	}

	plaintext, err := aead.Open(enc.Ciphertext, []byte(enc.OpID))
	if err != nil {
		return SyncOperation{}, witerrors.CorruptedObjectError(enc.OpID, err)
	}

	var op SyncOperation
	if err := json.Unmarshal(plaintext, &op); err != nil {
		return SyncOperation{}, witerrors.Wrap(witerrors.InvalidInput, "parse sync op", err)
	}

	return op, nil
}
