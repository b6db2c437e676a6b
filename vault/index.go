package vault

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/nativewit/witflo/fsatomic"
	"github.com/nativewit/witflo/vaultcrypto"
	"github.com/nativewit/witflo/witerrors"
)

// readEncryptedIndex decrypts path with aead and splits the plaintext into
// JSONL rows, each unmarshaled via unmarshalRow. A missing file is treated
// as an empty index (first run).
//
// The on-disk format is a single AEAD encryption of the whole newline-joined
// JSONL plaintext, rather than per-row length-prefixed records: it is the
// simpler of the two to keep sequentially consistent with the atomic
// rewrite-whole protocol the index already requires.
func readEncryptedIndex[T any](path string, aead *vaultcrypto.XChaChaAEAD) ([]T, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, witerrors.IoErrorFor(path, err)
	}

	plaintext, err := aead.Open(raw, nil)
	if err != nil {
		return nil, witerrors.CorruptedIndexError(path, err)
	}

	lines := bytes.Split(bytes.TrimRight(plaintext, "\n"), []byte("\n"))

	rows := make([]T, 0, len(lines))

	for _, line := range lines {
		if len(line) == 0 {
			continue
		}

		var row T
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, witerrors.CorruptedIndexError(path, err)
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// writeEncryptedIndex serializes rows as newline-joined JSON and AEAD-seals
// and atomically writes the result to path.
func writeEncryptedIndex[T any](path string, aead *vaultcrypto.XChaChaAEAD, rows []T) error {
	var buf bytes.Buffer

	for _, row := range rows {
		b, err := json.Marshal(row)
		if err != nil {
			return witerrors.Wrap(witerrors.InvalidInput, "marshal index row", err)
		}

		buf.Write(b)
		buf.WriteByte('\n')
	}

	sealed, err := aead.Seal(buf.Bytes(), nil)
	if err != nil {
		return witerrors.Wrap(witerrors.InvalidInput, "seal index", err)
	}

	if err := fsatomic.WriteFile(path, sealed, 0o600); err != nil {
		return witerrors.IoErrorFor(path, err)
	}

	return nil
}
