package vaultcrypto_test

import (
	"bytes"
	"testing"

	"github.com/nativewit/witflo/vaultcrypto"
)

func TestXChaChaAEADRoundTrip(t *testing.T) {
	key, err := vaultcrypto.RandBytes(32)
	if err != nil {
		t.Fatalf("RandBytes: %v", err)
	}

	aead, err := vaultcrypto.NewXChaChaAEAD(key)
	if err != nil {
		t.Fatalf("NewXChaChaAEAD: %v", err)
	}

	plaintext := []byte("the quick brown fox")
	aad := []byte("note-id-123")

	sealed, err := aead.Seal(plaintext, aad)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	got, err := aead.Open(sealed, aad)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if !bytes.Equal(got, plaintext) {
		t.Fatalf("got = %q, want %q", got, plaintext)
	}
}

func TestXChaChaAEADTamperDetection(t *testing.T) {
	key, _ := vaultcrypto.RandBytes(32)
	aead, err := vaultcrypto.NewXChaChaAEAD(key)
	if err != nil {
		t.Fatalf("NewXChaChaAEAD: %v", err)
	}

	sealed, err := aead.Seal([]byte("payload"), []byte("aad"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	tampered := bytes.Clone(sealed)
	tampered[len(tampered)-1] ^= 0xFF

	if _, err := aead.Open(tampered, []byte("aad")); err == nil {
		t.Fatal("expected authentication failure on tampered ciphertext, got nil error")
	}

	if _, err := aead.Open(sealed, []byte("wrong-aad")); err == nil {
		t.Fatal("expected authentication failure on mismatched AAD, got nil error")
	}
}

func TestSecretZeroizationOnDispose(t *testing.T) {
	secret := vaultcrypto.NewSecret([]byte("super-secret-passphrase"))

	b, err := secret.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	if len(b) == 0 {
		t.Fatal("expected non-empty secret before dispose")
	}

	secret.Dispose()

	if _, err := secret.Bytes(); err == nil {
		t.Fatal("expected error reading disposed secret")
	}

	for _, v := range b {
		if v != 0 {
			t.Fatalf("expected backing array zeroed after dispose, found byte %x", v)
		}
	}
}

func TestSecretEqualConstantTime(t *testing.T) {
	a := vaultcrypto.NewSecret([]byte("abcd"))
	b := vaultcrypto.NewSecret([]byte("abcd"))
	c := vaultcrypto.NewSecret([]byte("abce"))

	if !a.Equal(b) {
		t.Fatal("expected equal secrets to compare equal")
	}

	if a.Equal(c) {
		t.Fatal("expected differing secrets to compare unequal")
	}
}

func TestTypedKeyRejectsWrongLength(t *testing.T) {
	if _, err := vaultcrypto.NewVaultKey([]byte("too-short")); err == nil {
		t.Fatal("expected error constructing VaultKey from short byte slice")
	}

	valid, err := vaultcrypto.RandBytes(vaultcrypto.KeySize)
	if err != nil {
		t.Fatalf("RandBytes: %v", err)
	}

	if _, err := vaultcrypto.NewVaultKey(valid); err != nil {
		t.Fatalf("NewVaultKey: %v", err)
	}
}
