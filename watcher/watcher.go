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
	"github.com/nativewit/witflo/vaultcrypto"
)

// debounceWindow coalesces events for the same path.
const debounceWindow = 400 * time.Millisecond

// suppressWindow is how long a self-write is defended against an echoed
// external event for the same (path, id) pair.
const suppressWindow = 2 * time.Second

// corruptRetryDelay is the wait before the single retry of a failed file
// read.
const corruptRetryDelay = 250 * time.Millisecond

// Watcher monitors one vault's directory tree and turns raw fsnotify
// events into debounced, deduplicated, cache-diffed [Event]s.
type Watcher struct {
	root      string
	notes     *vault.NoteRepository
	notebooks *vault.NotebookRepository
	logger    zerolog.Logger

	fsw *fsnotify.Watcher

	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup

	debounceMu     sync.Mutex
	debounceTimers map[string]*time.Timer

	hashMu        sync.Mutex
	lastKnownHash map[string]string

	suppressMu sync.Mutex
	suppressed map[string]time.Time
}

// New builds a Watcher rooted at vaultRoot, watching vault.header, refs/,
// and sync/ for changes. Call [Watcher.Start] to begin delivering events.
func New(vaultRoot string, notes *vault.NoteRepository, notebooks *vault.NotebookRepository, logger zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:           vaultRoot,
		notes:          notes,
		notebooks:      notebooks,
		logger:         logger.With().Str("component", "watcher").Str("vault_root", vaultRoot).Logger(),
		fsw:            fsw,
		events:         make(chan Event, 64),
		done:           make(chan struct{}),
		debounceTimers: make(map[string]*time.Timer),
		lastKnownHash:  make(map[string]string),
		suppressed:     make(map[string]time.Time),
	}

	for _, dir := range []string{vaultRoot, filepath.Join(vaultRoot, "refs"), filepath.Join(vaultRoot, "sync"), filepath.Join(vaultRoot, "sync", "pending")} {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	return w, nil
}

// Events returns the channel subscribers read [Event]s from.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start launches the event-processing goroutine. Safe to call once.
func (w *Watcher) Start() {
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

// Close stops the watcher goroutine, cancels pending debounce timers, and
// releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
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

// SuppressSelfWrite records that id's file at path was just written by this
// process, so the echoed external event for the same (path, id) pair,
// arriving within [suppressWindow], is treated as self-noise and its
// cache-diff entry dropped. Concurrent changes to a different id at the
// same path are not affected.
func (w *Watcher) SuppressSelfWrite(path, id string) {
	w.suppressMu.Lock()
	defer w.suppressMu.Unlock()

	w.suppressed[suppressKey(path, id)] = time.Now().Add(suppressWindow)
}

func suppressKey(path, id string) string {
	return path + "\x00" + id
}

func (w *Watcher) isSuppressed(path, id string) bool {
	w.suppressMu.Lock()
	defer w.suppressMu.Unlock()

	expiry, ok := w.suppressed[suppressKey(path, id)]
	if !ok {
		return false
	}

	if time.Now().After(expiry) {
		delete(w.suppressed, suppressKey(path, id))
		return false
	}

	return true
}

// onRawEvent filters to paths the watcher tracks and (re)starts that
// path's debounce timer.
func (w *Watcher) onRawEvent(ev fsnotify.Event) {
	if !w.relevant(ev.Name) {
		return
	}

	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if t, ok := w.debounceTimers[ev.Name]; ok {
		t.Stop()
	}

	w.debounceTimers[ev.Name] = time.AfterFunc(debounceWindow, func() {
		w.handleDebounced(ev.Name)
	})
}

// relevant is the per-vault filter: vault.header, refs/*.jsonl.enc,
// sync/cursor.enc, sync/pending/*.op.enc.
func (w *Watcher) relevant(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}

	switch {
	case rel == vault.HeaderFileName:
		return true
	case rel == vault.NotesIndexFileName || rel == vault.NotebooksIndexFileName:
		return true
	case rel == filepath.Join("sync", "cursor.enc"):
		return true
	case strings.HasPrefix(rel, filepath.Join("sync", "pending")+string(filepath.Separator)) && strings.HasSuffix(rel, ".op.enc"):
		return true
	default:
		return false
	}
}

// handleDebounced runs the content-hash dedup step and dispatches the
// reload action appropriate to path. A failed file read is retried once
// after corruptRetryDelay; an index that fails to decrypt or parse during
// the reload is logged and the event dropped, with no retry.
func (w *Watcher) handleDebounced(path string) {
	w.debounceMu.Lock()
	delete(w.debounceTimers, path)
	w.debounceMu.Unlock()

	changed, err := w.hashChanged(path)
	if err != nil {
		time.Sleep(corruptRetryDelay)

		changed, err = w.hashChanged(path)
		if err != nil {
			w.logger.Warn().Err(err).Str("path", path).Msg("dropping event after retry")
			return
		}
	}

	if !changed {
		return
	}

	rel, _ := filepath.Rel(w.root, path)

	switch {
	case rel == vault.HeaderFileName:
		w.events <- Event{Kind: HeaderChanged}

	case rel == vault.NotesIndexFileName:
		w.reloadNotes()

	case rel == vault.NotebooksIndexFileName:
		w.reloadNotebooks()

	case rel == filepath.Join("sync", "cursor.enc"):
		w.events <- Event{Kind: CursorChanged}

	case strings.HasSuffix(rel, ".op.enc"):
		opID := strings.TrimSuffix(filepath.Base(rel), ".op.enc")
		w.events <- Event{Kind: SyncOpEnqueued, ID: opID}
	}
}

// hashChanged reads path, computes its BLAKE2b-256 hash, and compares it to
// the last known hash for that path. A missing file (removed between the
// debounce firing and the read) is reported as changed with no error, so
// callers still dispatch a reload that will observe the removal via the
// index diff.
func (w *Watcher) hashChanged(path string) (bool, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}

		return false, err
	}

	hash := vaultcrypto.HashHex(b)

	w.hashMu.Lock()
	defer w.hashMu.Unlock()

	if w.lastKnownHash[path] == hash {
		return false, nil
	}

	w.lastKnownHash[path] = hash

	return true, nil
}

func (w *Watcher) reloadNotes() {
	before := w.notes.All()

	if err := w.notes.ReloadIndex(); err != nil {
		w.logger.Warn().Err(err).Msg("reload notes index")
		return
	}

	after := w.notes.All()

	indexPath := filepath.Join(w.root, vault.NotesIndexFileName)

	for _, ev := range diffNotes(before, after) {
		if w.isSuppressed(indexPath, ev.ID) {
			continue
		}

		w.events <- ev
	}
}

func (w *Watcher) reloadNotebooks() {
	before := w.notebooks.List()

	if err := w.notebooks.ReloadIndex(); err != nil {
		w.logger.Warn().Err(err).Msg("reload notebooks index")
		return
	}

	after := w.notebooks.List()

	indexPath := filepath.Join(w.root, vault.NotebooksIndexFileName)

	for _, ev := range diffNotebooks(before, after) {
		if w.isSuppressed(indexPath, ev.ID) {
			continue
		}

		w.events <- ev
	}
}
