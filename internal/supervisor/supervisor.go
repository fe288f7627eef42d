// Package supervisor reconciles the set of running renderer processes
// against a validated wallpaper configuration. It owns the process
// registry exclusively; front ends only read snapshots and issue
// control requests through it.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/loykin/wpe/internal/config"
	"github.com/loykin/wpe/internal/history"
	"github.com/loykin/wpe/internal/metrics"
	"github.com/loykin/wpe/internal/mpvpaper"
	"github.com/loykin/wpe/internal/registry"
)

// ErrConcurrentReconcile is returned when an operation for a monitor
// arrives while another one is still in flight for the same monitor.
// The caller retries; operations are never queued behind each other.
var ErrConcurrentReconcile = errors.New("concurrent operation in flight for monitor")

// Outcome classifies what Apply did for one monitor.
type Outcome string

const (
	OutcomeStarted   Outcome = "started"
	OutcomeRestarted Outcome = "restarted"
	OutcomeStopped   Outcome = "stopped"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeFailed    Outcome = "failed"
)

// Result is the per-monitor outcome of an Apply.
type Result struct {
	Monitor string  `json:"monitor"`
	Outcome Outcome `json:"outcome"`
	Err     error   `json:"-"`
	Reason  string  `json:"reason,omitempty"`
}

// ApplyReport lists per-monitor outcomes in a stable order: config
// order first, then monitors that were stopped because they are no
// longer present in the collection.
type ApplyReport struct {
	Results []Result `json:"results"`
}

// Failed returns the subset of results that did not succeed.
func (r ApplyReport) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Outcome == OutcomeFailed {
			out = append(out, res)
		}
	}
	return out
}

// StopFailure reports one monitor whose stop did not complete cleanly.
type StopFailure struct {
	Monitor string `json:"monitor"`
	Err     error  `json:"-"`
	Reason  string `json:"reason"`
}

// RunState is the externally visible state of one monitor.
type RunState struct {
	Running   bool      `json:"running"`
	PID       int       `json:"pid,omitempty"`
	SpawnedAt time.Time `json:"spawned_at,omitzero"`
	Command   string    `json:"command,omitempty"`
}

// Supervisor enforces at-most-one renderer per monitor and the
// restart-on-change policy. All mutations are serialized per monitor;
// distinct monitors proceed fully in parallel.
type Supervisor struct {
	reg *registry.Registry

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	known  map[string]struct{}
	sinks  []history.Sink
	events chan registry.ExitEvent

	watchDone chan struct{}
}

// New wraps a registry and starts the background exit watcher.
func New(reg *registry.Registry) *Supervisor {
	s := &Supervisor{
		reg:       reg,
		locks:     make(map[string]*sync.Mutex),
		known:     make(map[string]struct{}),
		events:    make(chan registry.ExitEvent, 64),
		watchDone: make(chan struct{}),
	}
	go s.watchExits()
	return s
}

// SetHistorySinks configures lifecycle event sinks. Passing none
// clears the list.
func (s *Supervisor) SetHistorySinks(sinks ...history.Sink) {
	s.mu.Lock()
	s.sinks = append([]history.Sink(nil), sinks...)
	s.mu.Unlock()
}

// Events delivers crash/exit notifications to the front end. Pull
// consumers can ignore this and call Snapshot instead.
func (s *Supervisor) Events() <-chan registry.ExitEvent { return s.events }

// Close stops the exit watcher. Running renderers are left alone;
// call StopAll first to tear them down.
func (s *Supervisor) Close() {
	select {
	case <-s.watchDone:
	default:
		close(s.watchDone)
	}
}

// watchExits consumes registry exit events: a renderer that died on
// its own is recorded and reported, never respawned here. The next
// Apply decides what to do about it.
func (s *Supervisor) watchExits() {
	for {
		select {
		case <-s.watchDone:
			return
		case ev := <-s.reg.Events():
			metrics.IncCrash(ev.Monitor)
			metrics.SetRunning(len(s.reg.Monitors()))
			detail := ""
			if ev.Err != nil {
				detail = ev.Err.Error()
			}
			s.record(history.Event{
				Type: history.EventCrash, Monitor: ev.Monitor, PID: ev.PID,
				Detail: detail, OccurredAt: ev.At,
			})
			select {
			case s.events <- ev:
			default:
			}
		}
	}
}

func (s *Supervisor) record(ev history.Event) {
	s.mu.Lock()
	sinks := append([]history.Sink(nil), s.sinks...)
	s.mu.Unlock()
	for _, sink := range sinks {
		if err := sink.Send(context.Background(), ev); err != nil {
			slog.Debug("history sink rejected event", "monitor", ev.Monitor, "error", err)
		}
	}
}

func (s *Supervisor) lockFor(monitor string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	mu, ok := s.locks[monitor]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[monitor] = mu
	}
	s.known[monitor] = struct{}{}
	return mu
}

// Apply reconciles the running set against the collection in one
// pass: enabled entries are started (or restarted when their built
// command changed), disabled entries are torn down, and monitors no
// longer present in the collection are stopped.
func (s *Supervisor) Apply(col config.Collection) ApplyReport {
	report := s.startAll(col)

	var removed []string
	for _, m := range s.reg.Monitors() {
		if !col.Has(m) {
			removed = append(removed, m)
		}
	}
	sort.Strings(removed)

	results := make([]Result, len(removed))
	var wg sync.WaitGroup
	for i, m := range removed {
		wg.Add(1)
		go func(i int, m string) {
			defer wg.Done()
			results[i] = s.teardown(m)
		}(i, m)
	}
	wg.Wait()

	report.Results = append(report.Results, results...)
	metrics.SetRunning(len(s.reg.Monitors()))
	return report
}

// StartAll brings every entry in the collection to its desired state
// without touching monitors outside the collection.
func (s *Supervisor) StartAll(col config.Collection) ApplyReport {
	report := s.startAll(col)
	metrics.SetRunning(len(s.reg.Monitors()))
	return report
}

func (s *Supervisor) startAll(col config.Collection) ApplyReport {
	wallpapers := col.Wallpapers()
	results := make([]Result, len(wallpapers))
	var wg sync.WaitGroup
	for i, w := range wallpapers {
		wg.Add(1)
		go func(i int, w config.Wallpaper) {
			defer wg.Done()
			results[i] = s.applyEntry(w)
		}(i, w)
	}
	wg.Wait()
	return ApplyReport{Results: results}
}

// applyEntry reconciles a single monitor. It holds that monitor's lock
// for the duration so a racing operation on the same monitor is
// rejected rather than interleaved.
func (s *Supervisor) applyEntry(w config.Wallpaper) Result {
	mu := s.lockFor(w.Monitor)
	if !mu.TryLock() {
		return failed(w.Monitor, fmt.Errorf("%s: %w", w.Monitor, ErrConcurrentReconcile))
	}
	defer mu.Unlock()

	if !w.Enabled {
		return s.teardownLocked(w.Monitor)
	}

	cmd := mpvpaper.Build(w)

	if h, running := s.reg.Lookup(w.Monitor); running {
		if h.Command.Equal(cmd) {
			return Result{Monitor: w.Monitor, Outcome: OutcomeUnchanged}
		}
		if err := s.stopMonitor(w.Monitor); err != nil {
			return failed(w.Monitor, fmt.Errorf("replace renderer: %w", err))
		}
		if err := s.spawnMonitor(w.Monitor, cmd); err != nil {
			return failed(w.Monitor, err)
		}
		metrics.IncRestart(w.Monitor)
		slog.Info("renderer restarted with new configuration", "monitor", w.Monitor)
		return Result{Monitor: w.Monitor, Outcome: OutcomeRestarted}
	}

	if err := s.spawnMonitor(w.Monitor, cmd); err != nil {
		return failed(w.Monitor, err)
	}
	slog.Info("renderer started", "monitor", w.Monitor, "media", w.ResolvedPath, "kind", w.Kind.String())
	return Result{Monitor: w.Monitor, Outcome: OutcomeStarted}
}

// teardown stops a monitor under its lock, rejecting concurrent work.
func (s *Supervisor) teardown(monitor string) Result {
	mu := s.lockFor(monitor)
	if !mu.TryLock() {
		return failed(monitor, fmt.Errorf("%s: %w", monitor, ErrConcurrentReconcile))
	}
	defer mu.Unlock()
	return s.teardownLocked(monitor)
}

func (s *Supervisor) teardownLocked(monitor string) Result {
	if !s.reg.IsRunning(monitor) {
		return Result{Monitor: monitor, Outcome: OutcomeUnchanged}
	}
	if err := s.stopMonitor(monitor); err != nil {
		return failed(monitor, err)
	}
	slog.Info("renderer stopped", "monitor", monitor)
	return Result{Monitor: monitor, Outcome: OutcomeStopped}
}

func (s *Supervisor) spawnMonitor(monitor string, cmd mpvpaper.Command) error {
	h, err := s.reg.Spawn(monitor, cmd)
	if err != nil {
		return err
	}
	metrics.IncSpawn(monitor)
	s.record(history.Event{
		Type: history.EventSpawn, Monitor: monitor, PID: h.PID,
		Command: cmd.String(), OccurredAt: h.SpawnedAt,
	})
	return nil
}

func (s *Supervisor) stopMonitor(monitor string) error {
	h, tracked := s.reg.Lookup(monitor)
	err := s.reg.Stop(monitor)
	if tracked {
		metrics.IncStop(monitor)
		detail := ""
		if err != nil {
			detail = err.Error()
		}
		s.record(history.Event{
			Type: history.EventStop, Monitor: monitor, PID: h.PID,
			Command: h.Command.String(), Detail: detail, OccurredAt: time.Now(),
		})
	}
	return err
}

// StopAll stops every tracked renderer regardless of its entry's
// enabled flag. Each stop is attempted independently; failures are
// collected, never short-circuited.
func (s *Supervisor) StopAll() []StopFailure {
	monitors := s.reg.Monitors()
	sort.Strings(monitors)

	failures := make([]*StopFailure, len(monitors))
	var wg sync.WaitGroup
	for i, m := range monitors {
		wg.Add(1)
		go func(i int, m string) {
			defer wg.Done()
			mu := s.lockFor(m)
			mu.Lock()
			defer mu.Unlock()
			if err := s.stopMonitor(m); err != nil {
				failures[i] = &StopFailure{Monitor: m, Err: err, Reason: err.Error()}
			}
		}(i, m)
	}
	wg.Wait()

	var out []StopFailure
	for _, f := range failures {
		if f != nil {
			out = append(out, *f)
		}
	}
	metrics.SetRunning(len(s.reg.Monitors()))
	return out
}

// Snapshot reports the state of every monitor the supervisor has ever
// operated on. Monitors without a live handle show as stopped.
func (s *Supervisor) Snapshot() map[string]RunState {
	s.mu.Lock()
	known := make([]string, 0, len(s.known))
	for m := range s.known {
		known = append(known, m)
	}
	s.mu.Unlock()

	out := make(map[string]RunState, len(known))
	for _, m := range known {
		out[m] = RunState{}
	}
	for m, h := range s.reg.Snapshot() {
		out[m] = RunState{Running: true, PID: h.PID, SpawnedAt: h.SpawnedAt, Command: h.Command.String()}
	}
	return out
}

// IsRunning reports whether a renderer is tracked for the monitor.
func (s *Supervisor) IsRunning(monitor string) bool { return s.reg.IsRunning(monitor) }

// PollExits exposes the registry's pull-style exit reconciliation for
// front ends that do not consume the event channel.
func (s *Supervisor) PollExits() []registry.ExitEvent {
	evs := s.reg.PollExits()
	for _, ev := range evs {
		metrics.IncCrash(ev.Monitor)
		detail := ""
		if ev.Err != nil {
			detail = ev.Err.Error()
		}
		s.record(history.Event{
			Type: history.EventCrash, Monitor: ev.Monitor, PID: ev.PID,
			Detail: detail, OccurredAt: ev.At,
		})
	}
	if len(evs) > 0 {
		metrics.SetRunning(len(s.reg.Monitors()))
	}
	return evs
}

func failed(monitor string, err error) Result {
	return Result{Monitor: monitor, Outcome: OutcomeFailed, Err: err, Reason: err.Error()}
}
