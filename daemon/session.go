package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nativewit/witflo/vaultcrypto"
)

// safeMap is a mutex-guarded generic map.
type safeMap[K comparable, V any] struct {
	data map[K]V
	mu   sync.RWMutex
}

func newSafeMap[K comparable, V any]() *safeMap[K, V] {
	return &safeMap[K, V]{data: make(map[K]V)}
}

func (m *safeMap[K, V]) store(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = value
}

func (m *safeMap[K, V]) load(key K) (value V, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok = m.data[key]

	return
}

func (m *safeMap[K, V]) delete(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
}

// deleteIfCurrent removes key only if its stored value is still current,
// so a stale cleanup can't delete a newer value stored under the same key.
func (m *safeMap[K, V]) deleteIfCurrent(key K, current V, eq func(a, b V) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.data[key]; ok && eq(v, current) {
		delete(m.data, key)
	}
}

// Range calls f for every entry, stopping early if f returns false. The map
// is write-locked for the duration of the iteration.
func (m *safeMap[K, V]) Range(f func(K, V) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range m.data {
		if !f(k, v) {
			break
		}
	}
}

// session custodies one workspace's decrypted MasterUnlockKey for
// duration, auto-expiring and zeroizing it on a ticker.
type session struct {
	muk      vaultcrypto.MasterUnlockKey
	duration time.Duration
	done     chan struct{}
}

func newSession(duration time.Duration, muk vaultcrypto.MasterUnlockKey) *session {
	return &session{
		muk:      muk,
		duration: duration,
		done:     make(chan struct{}),
	}
}

func (s *session) start(cleanup func()) {
	defer cleanup()

	ticker := time.NewTicker(s.duration)
	defer ticker.Stop()

	select {
	case <-ticker.C:
	case <-s.done:
	}

	s.muk.Dispose()
}

func (s *session) stop() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// sessionServer implements [SessionServer]: one session per workspace
// root, custodying the root's MasterUnlockKey for a caller-chosen duration
// counted from Login (GetSession does not extend it). The daemon never
// derives a key; it only holds what Login hands it.
type sessionServer struct {
	sessions *safeMap[string, *session]
	logger   zerolog.Logger
}

func newSessionHandler(logger zerolog.Logger) *sessionServer {
	return &sessionServer{
		sessions: newSafeMap[string, *session](),
		logger:   logger.With().Str("component", "session_daemon").Logger(),
	}
}

// stopAll stops every active session, zeroizing each custodied key.
func (sh *sessionServer) stopAll() {
	sh.sessions.Range(func(_ string, s *session) bool {
		s.stop()
		return true
	})
}

func (sh *sessionServer) Login(_ context.Context, req *LoginRequest) (*LoginResponse, error) {
	if req.WorkspaceRoot == "" {
		return nil, status.Error(codes.InvalidArgument, "workspace root must not be empty")
	}

	muk, err := vaultcrypto.NewMasterUnlockKey(req.MUK)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid master unlock key: %v", err)
	}

	if existing, ok := sh.sessions.load(req.WorkspaceRoot); ok {
		existing.stop()
	}

	sess := newSession(req.Duration, muk)
	sh.sessions.store(req.WorkspaceRoot, sess)

	sh.logger.Info().Str("workspace_root", req.WorkspaceRoot).Dur("duration", req.Duration).Msg("session started")

	root := req.WorkspaceRoot
	go sess.start(func() {
		sh.sessions.deleteIfCurrent(root, sess, func(a, b *session) bool { return a == b })
		sh.logger.Info().Str("workspace_root", root).Msg("session ended")
	})

	return &LoginResponse{}, nil
}

func (sh *sessionServer) Logout(_ context.Context, req *LogoutRequest) (*LogoutResponse, error) {
	sess, ok := sh.sessions.load(req.WorkspaceRoot)
	if !ok {
		return nil, status.Error(codes.NotFound, "no session found for the given workspace root")
	}

	sess.stop()
	sh.sessions.delete(req.WorkspaceRoot)

	return &LogoutResponse{}, nil
}

func (sh *sessionServer) GetSession(_ context.Context, req *GetSessionRequest) (*GetSessionResponse, error) {
	sess, ok := sh.sessions.load(req.WorkspaceRoot)
	if !ok {
		return &GetSessionResponse{Found: false}, nil
	}

	mukBytes, err := sess.muk.Bytes()
	if err != nil {
		return &GetSessionResponse{Found: false}, nil
	}

	return &GetSessionResponse{MUK: mukBytes, Found: true}, nil
}
