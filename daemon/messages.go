package daemon

import "time"

// LoginRequest asks the daemon to custody an already-derived
// MasterUnlockKey for workspaceRoot, for the given duration. The
// daemon never sees a passphrase and never runs the KDF itself — muk is
// handed to it fully derived by the caller.
type LoginRequest struct {
	WorkspaceRoot string
	MUK           []byte
	Duration      time.Duration
}

// LoginResponse is empty; a nil error means the session was stored.
type LoginResponse struct{}

// LogoutRequest ends a custodied session immediately, zeroizing its MUK.
type LogoutRequest struct {
	WorkspaceRoot string
}

type LogoutResponse struct{}

// GetSessionRequest asks for a still-live session's MUK.
type GetSessionRequest struct {
	WorkspaceRoot string
}

// GetSessionResponse carries the custodied key back to the caller. Found is
// false if no session exists for the workspace (expired, never logged in,
// or logged out).
type GetSessionResponse struct {
	MUK   []byte
	Found bool
}
