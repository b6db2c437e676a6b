package workspace

import (
	"sync"
	"time"
)

// autoLockTimer is an idle timer handle: reset() postpones expiry, expiry
// (or an explicit background signal, when lockOnBackground is set) invokes
// the configured lock callback exactly once.
type autoLockTimer struct {
	mu              sync.Mutex
	duration        time.Duration
	lockOnBackground bool
	timer           *time.Timer
	onExpire        func()
	stopped         bool
}

// newAutoLockTimer starts an idle timer that calls onExpire after duration
// of inactivity, unless reset first. lockOnBackground controls whether
// [autoLockTimer.Background] also triggers onExpire.
func newAutoLockTimer(duration time.Duration, lockOnBackground bool, onExpire func()) *autoLockTimer {
	a := &autoLockTimer{
		duration:         duration,
		lockOnBackground: lockOnBackground,
		onExpire:         onExpire,
	}

	a.timer = time.AfterFunc(duration, a.fire)

	return a
}

func (a *autoLockTimer) fire() {
	a.mu.Lock()
	stopped := a.stopped
	a.stopped = true
	onExpire := a.onExpire
	a.mu.Unlock()

	if !stopped && onExpire != nil {
		onExpire()
	}
}

// Reset is called on every user-initiated operation to postpone expiry.
func (a *autoLockTimer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return
	}

	a.timer.Reset(a.duration)
}

// Background signals that the host application moved to the background.
// If lockOnBackground is set, this triggers lock immediately.
func (a *autoLockTimer) Background() {
	if a.lockOnBackground {
		a.fire()
	}
}

// Stop cancels the timer without firing onExpire.
func (a *autoLockTimer) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopped = true
	a.timer.Stop()
}

// EnableAutoLock installs an idle timer on ws: after idleDuration of no
// Reset call, or immediately on Background() when lockOnBackground is set,
// the workspace locks. Returns a handle the caller uses to reset/stop it;
// the handle is also registered as a cleanup so Lock stops it exactly once.
func (ws *Workspace) EnableAutoLock(idleDuration time.Duration, lockOnBackground bool) *autoLockTimer {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	a := newAutoLockTimer(idleDuration, lockOnBackground, ws.Lock)
	ws.autoLock = a
	ws.cleanupFuncs = append(ws.cleanupFuncs, a.Stop)

	return a
}

// ResetAutoLock postpones the workspace's idle timer, if one is installed.
// Call this on every user-initiated operation so idle custody only kicks
// in after genuine inactivity.
func (ws *Workspace) ResetAutoLock() {
	ws.mu.Lock()
	a := ws.autoLock
	ws.mu.Unlock()

	if a != nil {
		a.Reset()
	}
}
