package wpe_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/loykin/wpe"
	"github.com/loykin/wpe/internal/registry"
)

type fakeProc struct {
	pid  int
	mu   sync.Mutex
	done chan struct{}
	err  error
}

func (p *fakeProc) PID() int { return p.pid }

func (p *fakeProc) Terminate() error { p.exit(nil); return nil }

func (p *fakeProc) Kill() error { p.exit(errors.New("killed")); return nil }

func (p *fakeProc) exit(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.done:
	default:
		p.err = err
		close(p.done)
	}
}

func (p *fakeProc) Done() <-chan struct{} { return p.done }

func (p *fakeProc) ExitErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

type fakeLauncher struct {
	mu       sync.Mutex
	nextPID  int
	procs    map[string]*fakeProc
	commands map[string]wpe.Command
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{nextPID: 5000, procs: map[string]*fakeProc{}, commands: map[string]wpe.Command{}}
}

func (l *fakeLauncher) Launch(monitor string, cmd wpe.Command) (registry.Proc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextPID++
	p := &fakeProc{pid: l.nextPID, done: make(chan struct{})}
	l.procs[monitor] = p
	l.commands[monitor] = cmd
	return p, nil
}

func (l *fakeLauncher) command(monitor string) wpe.Command {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.commands[monitor]
}

func newEngine(t *testing.T) (*wpe.Engine, *fakeLauncher) {
	t.Helper()
	l := newFakeLauncher()
	eng := wpe.NewWithOptions(wpe.Options{Launcher: l, GracePeriod: 20 * time.Millisecond})
	t.Cleanup(eng.Close)
	return eng, l
}

func entry(monitor, path string) wpe.Entry {
	return wpe.Entry{
		Monitor:         monitor,
		Path:            path,
		Enabled:         true,
		Scale:           "fit",
		Order:           "sequential",
		IntervalSeconds: 300,
	}
}

// End-to-end: a video file on one output and a shuffled folder
// slideshow on another, applied, inspected and torn down through the
// public surface only.
func TestEngineLifecycle(t *testing.T) {
	eng, l := newEngine(t)

	dir := t.TempDir()
	video := filepath.Join(dir, "ocean.mp4")
	require.NoError(t, os.WriteFile(video, []byte("x"), 0o644))
	slides := t.TempDir()

	folder := entry("DP-2", slides)
	folder.Order = "random"
	folder.IntervalSeconds = 60

	col, errs := wpe.Validate([]wpe.Entry{entry("DP-1", video), folder})
	require.Empty(t, errs)
	require.Equal(t, 2, col.Len())

	report := eng.Apply(col)
	require.Empty(t, report.Failed())
	for _, res := range report.Results {
		require.Equal(t, wpe.OutcomeStarted, res.Outcome, res.Monitor)
	}

	require.True(t, eng.IsRunning("DP-1"))
	require.Contains(t, l.command("DP-1").String(), "--loop-file=inf")
	require.Contains(t, l.command("DP-2").String(), "-n 60")
	require.Contains(t, l.command("DP-2").String(), "--shuffle")

	snap := eng.Snapshot()
	require.Len(t, snap, 2)
	require.True(t, snap["DP-1"].Running)
	require.NotZero(t, snap["DP-1"].PID)

	require.Empty(t, eng.StopAll())
	require.False(t, eng.IsRunning("DP-1"))
	require.False(t, eng.IsRunning("DP-2"))
}

func TestEngineRestartOnlyOnChange(t *testing.T) {
	eng, l := newEngine(t)

	video := filepath.Join(t.TempDir(), "a.mp4")
	require.NoError(t, os.WriteFile(video, []byte("x"), 0o644))

	col, errs := wpe.Validate([]wpe.Entry{entry("DP-1", video)})
	require.Empty(t, errs)
	eng.Apply(col)
	firstPID := eng.Snapshot()["DP-1"].PID

	report := eng.Apply(col)
	require.Equal(t, wpe.OutcomeUnchanged, report.Results[0].Outcome)
	require.Equal(t, firstPID, eng.Snapshot()["DP-1"].PID)

	changed := entry("DP-1", video)
	changed.Scale = "stretch"
	col, errs = wpe.Validate([]wpe.Entry{changed})
	require.Empty(t, errs)
	report = eng.Apply(col)
	require.Equal(t, wpe.OutcomeRestarted, report.Results[0].Outcome)
	require.NotEqual(t, firstPID, eng.Snapshot()["DP-1"].PID)
	require.True(t, strings.Contains(l.command("DP-1").String(), "--keepaspect=yes"))
}

func TestEngineForwardsCrashEvents(t *testing.T) {
	eng, l := newEngine(t)

	video := filepath.Join(t.TempDir(), "a.mp4")
	require.NoError(t, os.WriteFile(video, []byte("x"), 0o644))
	col, errs := wpe.Validate([]wpe.Entry{entry("DP-1", video)})
	require.Empty(t, errs)
	eng.Apply(col)

	l.procs["DP-1"].exit(errors.New("renderer lost the display"))

	select {
	case ev := <-eng.Events():
		require.Equal(t, "DP-1", ev.Monitor)
		require.Error(t, ev.Err)
	case <-time.After(time.Second):
		t.Fatal("no crash event")
	}
}

func TestBuildCommandFacade(t *testing.T) {
	video := filepath.Join(t.TempDir(), "a.mp4")
	require.NoError(t, os.WriteFile(video, []byte("x"), 0o644))

	col, errs := wpe.Validate([]wpe.Entry{entry("DP-1", video)})
	require.Empty(t, errs)
	w, ok := col.Get("DP-1")
	require.True(t, ok)

	cmd := wpe.BuildCommand(w)
	require.Equal(t, "mpvpaper", cmd.Program)
	require.Equal(t, video, cmd.Args[len(cmd.Args)-1])
}
