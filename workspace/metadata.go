// Package workspace implements the top-level unlock/lock state machine: a
// single on-disk workspace root holding plaintext metadata, an
// AEAD-encrypted keyring of per-vault keys, and the master-password
// operations that mutate them.
package workspace

import (
	"encoding/json"
	"time"

	"github.com/nativewit/witflo/vaultcrypto"
)

// MetadataVersion is the only WorkspaceMetadata.Version this binary understands.
const MetadataVersion = 2

// MetadataFileName is the plaintext metadata file at the workspace root.
const MetadataFileName = ".witflo-workspace"

// KeyringFileName is the AEAD-encrypted keyring file at the workspace root.
const KeyringFileName = ".witflo-keyring.enc"

// CryptoParams mirrors WorkspaceMetadata.crypto: everything needed to
// re-derive the MasterUnlockKey from a passphrase, plus a random
// KeyringNonce. KeyringNonce is regenerated with each new salt but is not
// the nonce the keyring is sealed with: the sealed keyring carries its own
// random nonce as a prefix.
type CryptoParams struct {
	MasterKeySalt []byte                   `json:"master_key_salt"`
	Argon2Params  vaultcrypto.Argon2Params `json:"argon2_params"`
	KeyringNonce  []byte                   `json:"keyring_nonce"`
}

// Metadata is the plaintext JSON document at <root>/.witflo-workspace.
// It contains no secrets and is safe to sync via any channel.
type Metadata struct {
	Version     int          `json:"version"`
	WorkspaceID string       `json:"workspace_id"`
	CreatedAt   time.Time    `json:"created_at"`
	Crypto      CryptoParams `json:"crypto"`
}

func (m Metadata) marshal() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

func unmarshalMetadata(b []byte) (Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(b, &m); err != nil {
		return Metadata{}, err
	}

	return m, nil
}
