// Package mpvpaper builds renderer invocations. mpvpaper draws one
// output's wallpaper per process; wpe runs one instance per enabled
// monitor.
package mpvpaper

import (
	"strconv"
	"strings"

	"github.com/loykin/wpe/internal/config"
)

// Program is the renderer binary, expected on PATH.
const Program = "mpvpaper"

// Command is the fully resolved invocation for one monitor's renderer.
// It is retained on the running handle so a reconfigure can tell
// whether the running process is already what the entry asks for.
type Command struct {
	Program string
	Args    []string
}

// Argv returns the full argument vector including the program name.
func (c Command) Argv() []string {
	return append([]string{c.Program}, c.Args...)
}

func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// Equal reports whether two invocations are identical. Used by the
// supervisor's restart-on-change comparison.
func (c Command) Equal(o Command) bool {
	if c.Program != o.Program || len(c.Args) != len(o.Args) {
		return false
	}
	for i := range c.Args {
		if c.Args[i] != o.Args[i] {
			return false
		}
	}
	return true
}

// Build maps one validated, enabled entry to its mpvpaper invocation.
// It is pure and cannot fail: anything that could go wrong is a
// validation-time concern. Folder entries become slideshow invocations
// carrying order and interval; file entries loop a single source and
// ignore both.
func Build(w config.Wallpaper) Command {
	var args []string

	if w.Kind == config.MediaFolder {
		interval := w.IntervalSeconds
		if interval < 1 {
			interval = 1
		}
		args = append(args, "-n", strconv.Itoa(interval))
	}

	args = append(args, "-o", strings.Join(mpvOptions(w), " "))
	args = append(args, w.Monitor, w.ResolvedPath)

	return Command{Program: Program, Args: args}
}

func mpvOptions(w config.Wallpaper) []string {
	// hwdec=auto-safe means hardware decoding with software fallback.
	// Fixed policy, not user-configurable.
	opts := []string{"--no-audio", "--osc=no", "--no-osd-bar", "--hwdec=auto-safe"}

	if w.Kind == config.MediaFolder {
		if w.Order == config.OrderRandom {
			opts = append(opts, "--shuffle")
		} else {
			opts = append(opts, "--no-shuffle")
		}
	} else {
		opts = append(opts, "--loop-file=inf")
	}

	switch w.Scale {
	case config.ScaleFit:
		opts = append(opts, "--keepaspect=no")
	case config.ScaleStretch:
		opts = append(opts, "--keepaspect=yes")
	case config.ScaleOriginal:
		opts = append(opts, "--keepaspect=yes", "--video-unscaled=downscale-big")
	}

	return opts
}
