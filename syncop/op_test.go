package syncop

import (
	"testing"

	"github.com/nativewit/witflo/vaultcrypto"
)

func newTestSignKeyPair(t *testing.T) vaultcrypto.SignKeyPair {
	t.Helper()

	kp, err := vaultcrypto.GenerateSignKeyPair()
	if err != nil {
		t.Fatalf("GenerateSignKeyPair: %v", err)
	}

	return kp
}

func TestBuildProducesVerifiableSignature(t *testing.T) {
	clock := NewClock(0)
	kp := newTestSignKeyPair(t)

	op, err := Build(clock, "device-a", CreateNote, "note-1", NotePayload{}, kp)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if op.Timestamp != 1 {
		t.Fatalf("Timestamp = %d, want 1", op.Timestamp)
	}

	if err := VerifySignature(op, kp.Public); err != nil {
		t.Fatalf("VerifySignature: %v", err)
	}
}

func TestVerifySignatureRejectsTamperedField(t *testing.T) {
	clock := NewClock(0)
	kp := newTestSignKeyPair(t)

	op, err := Build(clock, "device-a", CreateNote, "note-1", NotePayload{}, kp)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	op.TargetID = "note-2"

	if err := VerifySignature(op, kp.Public); err == nil {
		t.Fatal("VerifySignature: want error after tampering, got nil")
	}
}

func TestVerifySignatureRejectsWrongKey(t *testing.T) {
	clock := NewClock(0)
	kp := newTestSignKeyPair(t)
	other := newTestSignKeyPair(t)

	op, err := Build(clock, "device-a", CreateNote, "note-1", NotePayload{}, kp)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if err := VerifySignature(op, other.Public); err == nil {
		t.Fatal("VerifySignature: want error under wrong key, got nil")
	}
}

func TestCanonicalBytesDeterministic(t *testing.T) {
	clock := NewClock(0)
	kp := newTestSignKeyPair(t)

	op, err := Build(clock, "device-a", UpdateNote, "note-1", NotePayload{}, kp)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	a, err := canonicalBytes(op)
	if err != nil {
		t.Fatalf("canonicalBytes: %v", err)
	}

	b, err := canonicalBytes(op)
	if err != nil {
		t.Fatalf("canonicalBytes: %v", err)
	}

	if string(a) != string(b) {
		t.Fatalf("canonicalBytes not deterministic: %q != %q", a, b)
	}
}
