// Package daemon implements the auto-lock session daemon (cmd/witflod):
// a background process that custodies an already-derived
// MasterUnlockKey on behalf of short-lived CLI invocations, so that two
// CLI commands run within the session duration don't re-prompt for the
// workspace passphrase. It never derives a key itself.
package daemon

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
	"google.golang.org/grpc"
)

// socketPerm is the file permission mode for the unix domain socket.
const socketPerm = 0o600

// SocketPath returns the default per-user socket path for the running uid.
func SocketPath() string {
	return fmt.Sprintf("/run/user/%d/witflod.sock", os.Getuid())
}

// getCred returns the credentials from the remote end of a unix socket.
func getCred(conn net.Conn) (*unix.Ucred, error) {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return nil, fmt.Errorf("connection is not a *net.UnixConn: got %T", conn)
	}

	rawConn, err := unixConn.SyscallConn()
	if err != nil {
		return nil, err
	}

	var (
		ucred    *unix.Ucred
		ucredErr error
	)

	err = rawConn.Control(func(fd uintptr) {
		ucred, ucredErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil {
		return nil, err
	}

	if ucredErr != nil {
		return nil, ucredErr
	}

	return ucred, nil
}

// uidCheckingListener only accepts connections from the allowed UID,
// closing and skipping anything else.
type uidCheckingListener struct {
	net.Listener
	allowedUID int
	logger     zerolog.Logger
}

func (l *uidCheckingListener) Accept() (net.Conn, error) {
	for {
		conn, err := l.Listener.Accept()
		if err != nil {
			return nil, err
		}

		ucred, err := getCred(conn)
		if err != nil {
			l.logger.Warn().Err(err).Msg("uid check failed")
			_ = conn.Close()

			continue
		}

		if int(ucred.Uid) != l.allowedUID {
			l.logger.Warn().Int("uid", int(ucred.Uid)).Msg("connection from disallowed uid")
			_ = conn.Close()

			continue
		}

		return conn, nil
	}
}

// Run starts witflod and serves the session custody RPCs over a
// UID-checked UNIX domain socket at socketPath, until the process
// receives SIGINT or SIGTERM.
func Run(socketPath string, logger zerolog.Logger) error {
	logger = logger.With().Str("component", "witflod").Logger()
	logger.Info().Str("socket", socketPath).Msg("daemon started")

	_ = os.Remove(socketPath)

	socket, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("unix socket listen: %w", err)
	}
	defer func() {
		_ = socket.Close()
		_ = os.Remove(socketPath)
	}()

	if err := os.Chmod(socketPath, socketPerm); err != nil {
		return fmt.Errorf("unix socket chmod: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := grpc.NewServer()
	handler := newSessionHandler(logger)

	RegisterSessionServer(srv, handler)

	lis := &uidCheckingListener{
		Listener:   socket,
		allowedUID: os.Getuid(),
		logger:     logger,
	}

	done := make(chan struct{})

	go func() {
		defer close(done)

		logger.Info().Str("addr", socket.Addr().String()).Msg("server listening")

		if err := srv.Serve(lis); err != nil {
			logger.Warn().Err(err).Msg("grpc server stopped with error")
			return
		}

		logger.Info().Msg("grpc server stopped")
	}()

	<-ctx.Done()

	logger.Info().Msg("received shutdown signal: shutting down")

	srv.Stop()
	handler.stopAll()

	<-done

	logger.Info().Msg("shutdown complete")

	return nil
}
