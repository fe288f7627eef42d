// Package wpe supervises per-monitor wallpaper renderer processes.
// This file is a thin facade over the internal packages for embedding.
package wpe

import (
	"time"

	"github.com/loykin/wpe/internal/config"
	"github.com/loykin/wpe/internal/history"
	"github.com/loykin/wpe/internal/logger"
	"github.com/loykin/wpe/internal/mpvpaper"
	"github.com/loykin/wpe/internal/registry"
	"github.com/loykin/wpe/internal/supervisor"
)

// Re-export core types for external consumers. These are aliases so
// conversions are zero-cost.

type Entry = config.Entry

type Wallpaper = config.Wallpaper

type Collection = config.Collection

type EntryError = config.EntryError

type Command = mpvpaper.Command

type ApplyReport = supervisor.ApplyReport

type Result = supervisor.Result

type Outcome = supervisor.Outcome

const (
	OutcomeStarted   = supervisor.OutcomeStarted
	OutcomeRestarted = supervisor.OutcomeRestarted
	OutcomeStopped   = supervisor.OutcomeStopped
	OutcomeUnchanged = supervisor.OutcomeUnchanged
	OutcomeFailed    = supervisor.OutcomeFailed
)

type StopFailure = supervisor.StopFailure

type RunState = supervisor.RunState

type ExitEvent = registry.ExitEvent

type HistorySink = history.Sink

type Launcher = registry.Launcher

type LogConfig = logger.Config

// Validate checks raw entries and returns the valid subset plus one
// error per rejected entry.
func Validate(entries []Entry) (Collection, []EntryError) { return config.Validate(entries) }

// BuildCommand maps a validated, enabled entry to its renderer invocation.
func BuildCommand(w Wallpaper) Command { return mpvpaper.Build(w) }

// Engine bundles a process registry with its supervisor.
type Engine struct {
	reg *registry.Registry
	sup *supervisor.Supervisor
}

// Options configures a new Engine.
type Options struct {
	// Launcher overrides how renderer processes are started. Nil means
	// real mpvpaper processes via os/exec.
	Launcher Launcher
	// Log configures captured renderer stdout/stderr.
	Log LogConfig
	// GracePeriod bounds stop escalation; zero keeps the default.
	GracePeriod time.Duration
}

// New creates an Engine supervising real renderer processes.
func New() *Engine { return NewWithOptions(Options{}) }

// NewWithOptions creates an Engine with explicit wiring.
func NewWithOptions(opts Options) *Engine {
	l := opts.Launcher
	if l == nil {
		l = &registry.ExecLauncher{Log: opts.Log}
	}
	reg := registry.New(l)
	if opts.GracePeriod > 0 {
		reg.SetGracePeriod(opts.GracePeriod)
	}
	return &Engine{reg: reg, sup: supervisor.New(reg)}
}

func (e *Engine) SetHistorySinks(sinks ...HistorySink) { e.sup.SetHistorySinks(sinks...) }

func (e *Engine) Apply(col Collection) ApplyReport { return e.sup.Apply(col) }

func (e *Engine) StartAll(col Collection) ApplyReport { return e.sup.StartAll(col) }

func (e *Engine) StopAll() []StopFailure { return e.sup.StopAll() }

func (e *Engine) Snapshot() map[string]RunState { return e.sup.Snapshot() }

func (e *Engine) IsRunning(monitor string) bool { return e.sup.IsRunning(monitor) }

func (e *Engine) Events() <-chan ExitEvent { return e.sup.Events() }

func (e *Engine) PollExits() []ExitEvent { return e.sup.PollExits() }

// Supervisor exposes the underlying supervisor for the HTTP router.
func (e *Engine) Supervisor() *supervisor.Supervisor { return e.sup }

// Close stops background exit watching. Running renderers are left
// alone; call StopAll first to tear them down.
func (e *Engine) Close() { e.sup.Close() }
