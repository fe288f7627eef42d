// Package registry tracks at most one live renderer process per
// monitor and owns spawn, stop and exit detection. It never restarts
// anything on its own; reconcile policy lives in the supervisor.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loykin/wpe/internal/mpvpaper"
)

// ErrAlreadyRunning is returned by Spawn when the monitor already has
// a live handle. The caller must stop it first.
var ErrAlreadyRunning = errors.New("renderer already running")

// DefaultGracePeriod bounds the wait between a graceful termination
// request and the forced kill escalation.
const DefaultGracePeriod = 3 * time.Second

// killConfirmWait bounds the secondary wait after SIGKILL before the
// stop gives up on confirming the exit.
const killConfirmWait = 200 * time.Millisecond

// ExitEvent reports a renderer that ended on its own (crash or
// external kill), as opposed to a requested stop.
type ExitEvent struct {
	Monitor string
	PID     int
	At      time.Time
	Err     error
}

// Handle is the runtime record for one monitor's renderer process.
// Handles are never mutated once installed; a reconfigure replaces the
// whole handle.
type Handle struct {
	Monitor   string
	PID       int
	SpawnedAt time.Time
	Command   mpvpaper.Command

	proc          Proc
	stopRequested atomic.Bool
	reaped        atomic.Bool
}

// Registry maps monitor id to its live handle.
type Registry struct {
	launcher Launcher
	grace    time.Duration

	mu      sync.Mutex
	handles map[string]*Handle

	events chan ExitEvent
}

// New creates a registry spawning through the given launcher.
func New(launcher Launcher) *Registry {
	return &Registry{
		launcher: launcher,
		grace:    DefaultGracePeriod,
		handles:  make(map[string]*Handle),
		events:   make(chan ExitEvent, 64),
	}
}

// SetGracePeriod overrides the stop escalation timeout. Tests inject a
// short one; production keeps the default.
func (r *Registry) SetGracePeriod(d time.Duration) {
	if d > 0 {
		r.grace = d
	}
}

// Events delivers exit notifications for renderers that died on their
// own. Requested stops are not reported here.
func (r *Registry) Events() <-chan ExitEvent { return r.events }

// Spawn launches a renderer for the monitor and installs its handle.
// Fails with ErrAlreadyRunning when a live handle exists.
func (r *Registry) Spawn(monitor string, cmd mpvpaper.Command) (Handle, error) {
	r.mu.Lock()
	if _, live := r.handles[monitor]; live {
		r.mu.Unlock()
		return Handle{}, fmt.Errorf("%s: %w", monitor, ErrAlreadyRunning)
	}
	r.mu.Unlock()

	proc, err := r.launcher.Launch(monitor, cmd)
	if err != nil {
		return Handle{}, fmt.Errorf("launch renderer for %s: %w", monitor, err)
	}

	h := &Handle{
		Monitor:   monitor,
		PID:       proc.PID(),
		SpawnedAt: time.Now(),
		Command:   cmd,
		proc:      proc,
	}

	r.mu.Lock()
	if _, live := r.handles[monitor]; live {
		// Lost the race to a concurrent spawn for the same monitor.
		r.mu.Unlock()
		_ = proc.Kill()
		return Handle{}, fmt.Errorf("%s: %w", monitor, ErrAlreadyRunning)
	}
	r.handles[monitor] = h
	r.mu.Unlock()

	go r.watch(h)

	slog.Debug("renderer spawned", "monitor", monitor, "pid", h.PID, "command", cmd.String())
	return h.snapshot(), nil
}

// watch waits for the process to end. Self-exits are reported as
// events; requested stops are finalized by Stop itself.
func (r *Registry) watch(h *Handle) {
	<-h.proc.Done()
	if h.stopRequested.Load() {
		return
	}
	if !h.reaped.CompareAndSwap(false, true) {
		return
	}
	r.remove(h)
	ev := ExitEvent{Monitor: h.Monitor, PID: h.PID, At: time.Now(), Err: h.proc.ExitErr()}
	slog.Warn("renderer exited unexpectedly", "monitor", h.Monitor, "pid", h.PID, "error", ev.Err)
	select {
	case r.events <- ev:
	default:
		// Nobody draining events; drop rather than block exit handling.
	}
}

// remove deletes the handle only if it is still the installed one.
func (r *Registry) remove(h *Handle) {
	r.mu.Lock()
	if cur, ok := r.handles[h.Monitor]; ok && cur == h {
		delete(r.handles, h.Monitor)
	}
	r.mu.Unlock()
}

// Stop terminates the monitor's renderer if one is tracked. Stopping a
// monitor with no live handle is a no-op success. The handle is
// removed even when escalation was needed.
func (r *Registry) Stop(monitor string) error {
	r.mu.Lock()
	h := r.handles[monitor]
	r.mu.Unlock()
	if h == nil {
		return nil
	}

	h.stopRequested.Store(true)
	if err := h.proc.Terminate(); err != nil {
		slog.Debug("graceful termination request failed", "monitor", monitor, "error", err)
	}

	var stopErr error
	select {
	case <-h.proc.Done():
	case <-time.After(r.grace):
		_ = h.proc.Kill()
		select {
		case <-h.proc.Done():
			stopErr = fmt.Errorf("renderer for %s killed after %s grace period", monitor, r.grace)
		case <-time.After(killConfirmWait):
			stopErr = fmt.Errorf("renderer for %s did not confirm exit after kill", monitor)
		}
	}

	h.reaped.Store(true)
	r.remove(h)
	slog.Debug("renderer stopped", "monitor", monitor, "pid", h.PID)
	return stopErr
}

// IsRunning reports whether the monitor has a live handle.
func (r *Registry) IsRunning(monitor string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.handles[monitor]
	return ok
}

// Lookup returns a copy of the monitor's handle, if tracked.
func (r *Registry) Lookup(monitor string) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[monitor]
	if !ok {
		return Handle{}, false
	}
	return h.snapshot(), true
}

// Monitors lists monitor ids with a live handle.
func (r *Registry) Monitors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.handles))
	for m := range r.handles {
		out = append(out, m)
	}
	return out
}

// Snapshot returns copies of every live handle, keyed by monitor.
func (r *Registry) Snapshot() map[string]Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Handle, len(r.handles))
	for m, h := range r.handles {
		out[m] = h.snapshot()
	}
	return out
}

// PollExits reconciles the registry against processes that have
// already ended, returning one event per reaped monitor. The watch
// goroutines normally get there first; this exists for front ends
// that prefer pull-style consumption.
func (r *Registry) PollExits() []ExitEvent {
	r.mu.Lock()
	candidates := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		candidates = append(candidates, h)
	}
	r.mu.Unlock()

	var evs []ExitEvent
	for _, h := range candidates {
		select {
		case <-h.proc.Done():
		default:
			continue
		}
		if h.stopRequested.Load() || !h.reaped.CompareAndSwap(false, true) {
			continue
		}
		r.remove(h)
		evs = append(evs, ExitEvent{Monitor: h.Monitor, PID: h.PID, At: time.Now(), Err: h.proc.ExitErr()})
	}
	return evs
}

func (h *Handle) snapshot() Handle {
	return Handle{
		Monitor:   h.Monitor,
		PID:       h.PID,
		SpawnedAt: h.SpawnedAt,
		Command:   h.Command,
	}
}
