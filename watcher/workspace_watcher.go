package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/nativewit/witflo/vault"
	"github.com/nativewit/witflo/workspace"
)

// WorkspaceWatcher monitors a workspace root for metadata/keyring changes
// and new-vault discovery: a second instance of the app, or a restored
// backup, creating `vaults/<vault_id>/vault.header` under a workspace this
// process already has open.
type WorkspaceWatcher struct {
	root   string
	logger zerolog.Logger

	fsw *fsnotify.Watcher

	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup

	mu          sync.Mutex
	knownVaults map[string]bool

	debounceMu     sync.Mutex
	debounceTimers map[string]*time.Timer
}

// NewWorkspaceWatcher builds a WorkspaceWatcher rooted at workspaceRoot.
// knownVaultIDs seeds the set of vaults already known to the caller, so
// that a fresh watcher doesn't re-announce them as newly discovered.
func NewWorkspaceWatcher(workspaceRoot string, knownVaultIDs []string, logger zerolog.Logger) (*WorkspaceWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	vaultsDir := filepath.Join(workspaceRoot, "vaults")
	if err := os.MkdirAll(vaultsDir, 0o700); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &WorkspaceWatcher{
		root:           workspaceRoot,
		logger:         logger.With().Str("component", "workspace_watcher").Logger(),
		fsw:            fsw,
		events:         make(chan Event, 16),
		done:           make(chan struct{}),
		knownVaults:    make(map[string]bool, len(knownVaultIDs)),
		debounceTimers: make(map[string]*time.Timer),
	}

	for _, id := range knownVaultIDs {
		w.knownVaults[id] = true
	}

	if err := fsw.Add(workspaceRoot); err != nil {
		fsw.Close()
		return nil, err
	}

	if err := fsw.Add(vaultsDir); err != nil {
		fsw.Close()
		return nil, err
	}

	entries, err := os.ReadDir(vaultsDir)
	if err == nil {
		for _, e := range entries {
			if e.IsDir() {
				fsw.Add(filepath.Join(vaultsDir, e.Name()))
			}
		}
	}

	return w, nil
}

// Events returns the channel subscribers read [Event]s from.
func (w *WorkspaceWatcher) Events() <-chan Event {
	return w.events
}

// Start launches the event-processing goroutine.
func (w *WorkspaceWatcher) Start() {
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()

		for {
			select {
			case ev, ok := <-w.fsw.Events:
				if !ok {
					return
				}

				w.onRawEvent(ev)

			case err, ok := <-w.fsw.Errors:
				if !ok {
					return
				}

				w.logger.Warn().Err(err).Msg("fsnotify error")

			case <-w.done:
				return
			}
		}
	}()
}

// Close stops the watcher and releases its resources.
func (w *WorkspaceWatcher) Close() error {
	close(w.done)
	w.wg.Wait()

	w.debounceMu.Lock()
	for _, t := range w.debounceTimers {
		t.Stop()
	}
	w.debounceMu.Unlock()

	close(w.events)

	return w.fsw.Close()
}

func (w *WorkspaceWatcher) onRawEvent(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return
	}

	if ev.Has(fsnotify.Create) && filepath.Dir(rel) == "vaults" {
		if fi, statErr := os.Stat(ev.Name); statErr == nil && fi.IsDir() {
			_ = w.fsw.Add(ev.Name)

			header := filepath.Join(ev.Name, vault.HeaderFileName)
			if _, statErr := os.Stat(header); statErr == nil {
				ev.Name, rel = header, filepath.Join(rel, vault.HeaderFileName)
			}
		}
	}

	isMetadata := rel == workspace.MetadataFileName || rel == workspace.KeyringFileName
	isVaultHeader := strings.HasPrefix(rel, "vaults"+string(filepath.Separator)) && strings.HasSuffix(rel, vault.HeaderFileName)

	if !isMetadata && !isVaultHeader {
		return
	}

	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if t, ok := w.debounceTimers[ev.Name]; ok {
		t.Stop()
	}

	path := ev.Name

	w.debounceTimers[path] = time.AfterFunc(debounceWindow, func() {
		w.handleDebounced(path, isVaultHeader)
	})
}

func (w *WorkspaceWatcher) handleDebounced(path string, isVaultHeader bool) {
	w.debounceMu.Lock()
	delete(w.debounceTimers, path)
	w.debounceMu.Unlock()

	if !isVaultHeader {
		w.events <- Event{Kind: HeaderChanged}
		return
	}

	vaultID := filepath.Base(filepath.Dir(path))

	w.mu.Lock()
	alreadyKnown := w.knownVaults[vaultID]
	w.knownVaults[vaultID] = true
	w.mu.Unlock()

	if alreadyKnown {
		return
	}

	w.events <- Event{Kind: VaultDiscovered, ID: vaultID}
}
