package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/nativewit/witflo/vaultcrypto"
)

// ErrEmptyWorkspaceRoot is returned by every client method given an empty
// workspace root.
var ErrEmptyWorkspaceRoot = errors.New("workspace root must not be empty")

// SessionClient is a higher-level wrapper over the raw generated-style
// SessionServer client, working in terms of vaultcrypto.MasterUnlockKey
// rather than raw bytes.
type SessionClient struct {
	rpc     SessionServer
	cleanup func() error
}

// NewSessionClient wraps an existing RPC stub.
func NewSessionClient(rpc SessionServer, cleanup func() error) *SessionClient {
	return &SessionClient{rpc: rpc, cleanup: cleanup}
}

// Login asks the daemon to custody muk's bytes for workspaceRoot for
// duration. muk is disposed by the caller as usual; the daemon holds its
// own copy.
func (c *SessionClient) Login(ctx context.Context, workspaceRoot string, muk vaultcrypto.MasterUnlockKey, duration time.Duration) error {
	if workspaceRoot == "" {
		return ErrEmptyWorkspaceRoot
	}

	mukBytes, err := muk.Bytes()
	if err != nil {
		return err
	}

	_, err = c.rpc.Login(ctx, &LoginRequest{
		WorkspaceRoot: workspaceRoot,
		MUK:           mukBytes,
		Duration:      duration,
	})

	return err
}

// Logout ends a custodied session immediately.
func (c *SessionClient) Logout(ctx context.Context, workspaceRoot string) error {
	if workspaceRoot == "" {
		return ErrEmptyWorkspaceRoot
	}

	_, err := c.rpc.Logout(ctx, &LogoutRequest{WorkspaceRoot: workspaceRoot})

	return err
}

// GetSession fetches a still-live custodied key for workspaceRoot. found is
// false if no session exists.
func (c *SessionClient) GetSession(ctx context.Context, workspaceRoot string) (muk vaultcrypto.MasterUnlockKey, found bool, err error) {
	if workspaceRoot == "" {
		return vaultcrypto.MasterUnlockKey{}, false, ErrEmptyWorkspaceRoot
	}

	resp, err := c.rpc.GetSession(ctx, &GetSessionRequest{WorkspaceRoot: workspaceRoot})
	if err != nil {
		return vaultcrypto.MasterUnlockKey{}, false, err
	}

	if !resp.Found {
		return vaultcrypto.MasterUnlockKey{}, false, nil
	}

	muk, err = vaultcrypto.NewMasterUnlockKey(resp.MUK)
	if err != nil {
		return vaultcrypto.MasterUnlockKey{}, false, err
	}

	return muk, true, nil
}

// Close releases the underlying connection.
func (c *SessionClient) Close() error {
	if c.cleanup == nil {
		return nil
	}

	return c.cleanup()
}

// Client dials the daemon's UNIX socket at socketPath, first verifying it
// is owned by the current user with safe permissions, and returns a ready
// SessionClient.
func Client(socketPath string) (*SessionClient, error) {
	if err := verifySocketSecure(socketPath, os.Getuid()); err != nil {
		return nil, err
	}

	conn, err := grpc.NewClient("unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	rpc := newRawSessionClient(conn)

	return NewSessionClient(rpc, conn.Close), nil
}

func verifySocketSecure(path string, uid int) error {
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("could not stat socket: %w", err)
	}

	stat, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return errors.New("unexpected file stat type")
	}

	if int(stat.Uid) != uid {
		return fmt.Errorf("unexpected socket owner uid: got %d, want %d", stat.Uid, uid)
	}

	if (fi.Mode() & os.ModeSymlink) != 0 {
		return fmt.Errorf("refusing to follow symlink: %s", path)
	}

	if fi.Mode().Perm() != socketPerm {
		return fmt.Errorf("socket file has insecure permissions: %v", fi.Mode().Perm())
	}

	if (fi.Mode() & os.ModeSocket) == 0 {
		return fmt.Errorf("file is not a socket: %s", path)
	}

	return nil
}
