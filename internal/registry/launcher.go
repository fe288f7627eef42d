package registry

import (
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"

	"github.com/loykin/wpe/internal/logger"
	"github.com/loykin/wpe/internal/mpvpaper"
)

// Proc is a handle on one launched renderer process.
type Proc interface {
	PID() int
	// Terminate requests a graceful exit (SIGTERM to the process group).
	Terminate() error
	// Kill forces the process down (SIGKILL to the process group).
	Kill() error
	// Done is closed once the process has been reaped.
	Done() <-chan struct{}
	// ExitErr reports the wait result; only meaningful after Done closes.
	ExitErr() error
}

// Launcher starts renderer processes. It is injected into the registry
// so tests run without mpvpaper or a compositor.
type Launcher interface {
	Launch(monitor string, cmd mpvpaper.Command) (Proc, error)
}

// ExecLauncher launches real renderer processes via os/exec. Each
// child gets its own process group so signals reach mpv's descendants,
// and output is captured through rotating log files when configured.
type ExecLauncher struct {
	Log logger.Config
}

func (l *ExecLauncher) Launch(monitor string, cmd mpvpaper.Command) (Proc, error) {
	// ok: argv is assembled from validated config, never raw user text
	// #nosec G204
	c := exec.Command(cmd.Program, cmd.Args...)
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	outW, errW, err := l.Log.Writers(monitor)
	if err != nil {
		slog.Warn("renderer output capture unavailable", "monitor", monitor, "error", err)
		outW, errW = nil, nil
	}
	if outW != nil {
		c.Stdout = outW
		c.Stderr = errW
	} else {
		null, _ := os.OpenFile(os.DevNull, os.O_RDWR, 0)
		c.Stdout = null
		c.Stderr = null
	}

	if err := c.Start(); err != nil {
		closeAll(outW, errW)
		return nil, err
	}

	p := &execProc{cmd: c, out: outW, errOut: errW, done: make(chan struct{})}
	go p.wait()
	return p, nil
}

type execProc struct {
	cmd     *exec.Cmd
	out     io.WriteCloser
	errOut  io.WriteCloser
	exitErr error
	done    chan struct{}
}

func (p *execProc) wait() {
	p.exitErr = p.cmd.Wait()
	closeAll(p.out, p.errOut)
	close(p.done)
}

func (p *execProc) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *execProc) Terminate() error { return p.signalGroup(syscall.SIGTERM) }

func (p *execProc) Kill() error { return p.signalGroup(syscall.SIGKILL) }

func (p *execProc) signalGroup(sig syscall.Signal) error {
	if p.cmd.Process == nil {
		return nil
	}
	return syscall.Kill(-p.cmd.Process.Pid, sig)
}

func (p *execProc) Done() <-chan struct{} { return p.done }

func (p *execProc) ExitErr() error { return p.exitErr }

func closeAll(ws ...io.WriteCloser) {
	for _, w := range ws {
		if w != nil {
			_ = w.Close()
		}
	}
}
