package workspace

import (
	"encoding/json"
	"time"
)

// VaultKeyEntry is one vault's key material within the plaintext keyring.
type VaultKeyEntry struct {
	VaultKey    []byte    `json:"vault_key"`
	CreatedAt   time.Time `json:"created_at"`
	SyncEnabled bool      `json:"sync_enabled"`
}

// Keyring is the plaintext form of WorkspaceKeyring, held only in memory
// while the workspace is unlocked; at rest it exists solely as the AEAD
// ciphertext in KeyringFileName.
type Keyring struct {
	Version    int                      `json:"version"`
	Vaults     map[string]VaultKeyEntry `json:"vaults"`
	ModifiedAt time.Time                `json:"modified_at"`
}

// KeyringVersion is the current Keyring.Version this binary writes.
const KeyringVersion = 1

func newEmptyKeyring() Keyring {
	return Keyring{
		Version:    KeyringVersion,
		Vaults:     make(map[string]VaultKeyEntry),
		ModifiedAt: time.Now().UTC(),
	}
}

func (k Keyring) marshal() ([]byte, error) {
	return json.Marshal(k)
}

func unmarshalKeyring(b []byte) (Keyring, error) {
	var k Keyring
	if err := json.Unmarshal(b, &k); err != nil {
		return Keyring{}, err
	}

	if k.Vaults == nil {
		k.Vaults = make(map[string]VaultKeyEntry)
	}

	return k, nil
}
