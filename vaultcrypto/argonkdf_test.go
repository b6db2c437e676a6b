package vaultcrypto_test

import (
	"testing"

	"github.com/nativewit/witflo/vaultcrypto"
)

func TestArgon2idKDFDeriveKeyDeterministic(t *testing.T) {
	params := vaultcrypto.Argon2Params{
		MemoryKiB:   32 * 1024,
		Iterations:  1,
		Parallelism: 2,
		Version:     vaultcrypto.DefaultArgon2idVersion,
	}

	kdf := vaultcrypto.NewArgon2idKDF(params)

	salt := []byte("0123456789abcdef")
	k1 := kdf.DeriveKey([]byte("correct horse battery staple"), salt)
	k2 := kdf.DeriveKey([]byte("correct horse battery staple"), salt)

	if len(k1) != vaultcrypto.KeySize {
		t.Fatalf("expected %d-byte key, got %d", vaultcrypto.KeySize, len(k1))
	}

	if string(k1) != string(k2) {
		t.Fatal("expected deterministic derivation for identical password/salt/params")
	}

	k3 := kdf.DeriveKey([]byte("wrong password"), salt)
	if string(k1) == string(k3) {
		t.Fatal("expected different keys for different passwords")
	}
}

func TestHKDFDeriveIsDeterministicAndInfoBound(t *testing.T) {
	key, err := vaultcrypto.RandBytes(vaultcrypto.KeySize)
	if err != nil {
		t.Fatalf("RandBytes: %v", err)
	}

	a, err := vaultcrypto.HKDFDerive(key, "witflo.note.abc")
	if err != nil {
		t.Fatalf("HKDFDerive: %v", err)
	}

	b, err := vaultcrypto.HKDFDerive(key, "witflo.note.abc")
	if err != nil {
		t.Fatalf("HKDFDerive: %v", err)
	}

	if string(a) != string(b) {
		t.Fatal("expected HKDFDerive to be deterministic for identical inputs")
	}

	c, err := vaultcrypto.HKDFDerive(key, "witflo.note.xyz")
	if err != nil {
		t.Fatalf("HKDFDerive: %v", err)
	}

	if string(a) == string(c) {
		t.Fatal("expected different info strings to produce different keys")
	}
}
