package syncop

import (
	"testing"

	"github.com/nativewit/witflo/vaultcrypto"
	"github.com/nativewit/witflo/witerrors"
)

func newTestVaultKeyForSync(t *testing.T) vaultcrypto.VaultKey {
	t.Helper()

	b, err := vaultcrypto.RandBytes(vaultcrypto.KeySize)
	if err != nil {
		t.Fatalf("RandBytes: %v", err)
	}

	vk, err := vaultcrypto.NewVaultKey(b)
	if err != nil {
		t.Fatalf("NewVaultKey: %v", err)
	}

	return vk
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	vk := newTestVaultKeyForSync(t)
	clock := NewClock(0)
	kp := newTestSignKeyPair(t)

	op, err := Build(clock, "device-a", CreateNote, "note-1", NotePayload{}, kp)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	enc, err := Encrypt(op, vk)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if enc.OpID != op.OpID {
		t.Fatalf("OpID = %q, want %q", enc.OpID, op.OpID)
	}

	decrypted, err := Decrypt(enc, vk)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}

	if decrypted.OpID != op.OpID || decrypted.TargetID != op.TargetID {
		t.Fatalf("Decrypt() = %+v, want %+v", decrypted, op)
	}

	if err := VerifySignature(decrypted, kp.Public); err != nil {
		t.Fatalf("VerifySignature after round trip: %v", err)
	}
}

func TestDecryptWrongKeyFails(t *testing.T) {
	vk := newTestVaultKeyForSync(t)
	other := newTestVaultKeyForSync(t)
	clock := NewClock(0)
	kp := newTestSignKeyPair(t)

	op, err := Build(clock, "device-a", CreateNote, "note-1", NotePayload{}, kp)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	enc, err := Encrypt(op, vk)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if _, err := Decrypt(enc, other); err == nil {
		t.Fatal("Decrypt: want error under wrong vault key, got nil")
	} else if !witerrors.Is(err, witerrors.CorruptedObject) {
		t.Fatalf("Decrypt error kind = %v, want CorruptedObject", err)
	}
}

func TestDecryptTamperedCiphertextFails(t *testing.T) {
	vk := newTestVaultKeyForSync(t)
	clock := NewClock(0)
	kp := newTestSignKeyPair(t)

	op, err := Build(clock, "device-a", CreateNote, "note-1", NotePayload{}, kp)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	enc, err := Encrypt(op, vk)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	enc.Ciphertext[0] ^= 0xFF

	if _, err := Decrypt(enc, vk); err == nil {
		t.Fatal("Decrypt: want error on tampered ciphertext, got nil")
	}
}
