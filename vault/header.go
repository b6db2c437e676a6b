// Package vault implements the per-vault persistent core: a content-addressed
// encrypted object store, encrypted JSONL metadata indices with an
// in-memory cache, and the note/notebook repository query surface built on
// top of them.
package vault

import (
	"encoding/json"
	"time"
)

// HeaderVersion is the only VaultHeader.Version this binary understands.
const HeaderVersion = 1

// HeaderFileName is the plaintext vault header file.
const HeaderFileName = "vault.header"

// Header is the plaintext JSON document at <vault>/vault.header. It carries
// no key material; all vault keys live in the workspace keyring.
type Header struct {
	Version    int       `json:"version"`
	VaultID    string    `json:"vault_id"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

func (h Header) marshal() ([]byte, error) {
	return json.MarshalIndent(h, "", "  ")
}

func unmarshalHeader(b []byte) (Header, error) {
	var h Header
	if err := json.Unmarshal(b, &h); err != nil {
		return Header{}, err
	}

	return h, nil
}
