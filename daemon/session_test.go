package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nativewit/witflo/vaultcrypto"
)

func newTestMUKBytes(t *testing.T) []byte {
	t.Helper()

	b, err := vaultcrypto.RandBytes(vaultcrypto.KeySize)
	if err != nil {
		t.Fatalf("RandBytes: %v", err)
	}

	return b
}

func TestSessionServerLoginThenGetSession(t *testing.T) {
	sh := newSessionHandler(zerolog.Nop())
	ctx := context.Background()

	mukBytes := newTestMUKBytes(t)

	if _, err := sh.Login(ctx, &LoginRequest{WorkspaceRoot: "/ws/a", MUK: mukBytes, Duration: time.Minute}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	resp, err := sh.GetSession(ctx, &GetSessionRequest{WorkspaceRoot: "/ws/a"})
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}

	if !resp.Found {
		t.Fatal("GetSession: Found = false, want true")
	}

	if string(resp.MUK) != string(mukBytes) {
		t.Fatal("GetSession: MUK bytes do not match what was logged in")
	}
}

func TestSessionServerGetSessionMissingReturnsNotFound(t *testing.T) {
	sh := newSessionHandler(zerolog.Nop())

	resp, err := sh.GetSession(context.Background(), &GetSessionRequest{WorkspaceRoot: "/ws/unknown"})
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}

	if resp.Found {
		t.Fatal("GetSession: Found = true for a workspace never logged in")
	}
}

func TestSessionServerLogoutEndsSession(t *testing.T) {
	sh := newSessionHandler(zerolog.Nop())
	ctx := context.Background()

	mukBytes := newTestMUKBytes(t)

	if _, err := sh.Login(ctx, &LoginRequest{WorkspaceRoot: "/ws/a", MUK: mukBytes, Duration: time.Minute}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := sh.Logout(ctx, &LogoutRequest{WorkspaceRoot: "/ws/a"}); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	resp, err := sh.GetSession(ctx, &GetSessionRequest{WorkspaceRoot: "/ws/a"})
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}

	if resp.Found {
		t.Fatal("GetSession: Found = true after Logout")
	}
}

func TestSessionServerLoginReplacesExistingSession(t *testing.T) {
	sh := newSessionHandler(zerolog.Nop())
	ctx := context.Background()

	first := newTestMUKBytes(t)
	second := newTestMUKBytes(t)

	if _, err := sh.Login(ctx, &LoginRequest{WorkspaceRoot: "/ws/a", MUK: first, Duration: time.Minute}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := sh.Login(ctx, &LoginRequest{WorkspaceRoot: "/ws/a", MUK: second, Duration: time.Minute}); err != nil {
		t.Fatalf("second Login: %v", err)
	}

	resp, err := sh.GetSession(ctx, &GetSessionRequest{WorkspaceRoot: "/ws/a"})
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}

	if string(resp.MUK) != string(second) {
		t.Fatal("GetSession: expected second login's key to have replaced the first")
	}
}

func TestSessionExpiresAfterDuration(t *testing.T) {
	sh := newSessionHandler(zerolog.Nop())
	ctx := context.Background()

	mukBytes := newTestMUKBytes(t)

	if _, err := sh.Login(ctx, &LoginRequest{WorkspaceRoot: "/ws/a", MUK: mukBytes, Duration: 20 * time.Millisecond}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	time.Sleep(200 * time.Millisecond)

	resp, err := sh.GetSession(ctx, &GetSessionRequest{WorkspaceRoot: "/ws/a"})
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}

	if resp.Found {
		t.Fatal("GetSession: Found = true after idle duration elapsed")
	}
}

func TestSafeMapStoreLoadDelete(t *testing.T) {
	m := newSafeMap[string, int]()

	m.store("a", 1)

	v, ok := m.load("a")
	if !ok || v != 1 {
		t.Fatalf("load(a) = (%d, %v), want (1, true)", v, ok)
	}

	m.delete("a")

	if _, ok := m.load("a"); ok {
		t.Fatal("load(a) after delete: ok = true, want false")
	}
}
