package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// configHeader documents the file format for people editing it by hand.
// Viper drops comments on write, so the file is serialized here instead.
const configHeader = `# ///////////////////////////////////////////////
# This config powers WallPaper Engine (wpe).
# Each display starts with [[wallpapers]] and is
# auto-populated either by the GUI or by
# running wpe apply on first run. monitor is
# the output we're targeting. path is the
# image, video, or folder. scale controls how
# mpvpaper scales the source: fit fills the
# monitor, stretch preserves aspect ratio, and
# original uses the source resolution. Set enabled
# to false to leave a display unconfigured without
# clearing the path. order is for folders:
# sequential (A-Z) or random.
# interval_seconds is the amount of time (in
# seconds) before folder content swaps to the
# next image or video.
# ///////////////////////////////////////////////
`

// Save writes the config as TOML with the documentation header.
func Save(path string, fc FileConfig) error {
	var b strings.Builder
	b.WriteString(configHeader)
	b.WriteString("\n[server]\n")
	fmt.Fprintf(&b, "listen = %s\n", tomlString(fc.Server.Listen))

	if fc.Log.Dir != "" {
		b.WriteString("\n[log]\n")
		fmt.Fprintf(&b, "dir = %s\n", tomlString(fc.Log.Dir))
		if fc.Log.MaxSizeMB > 0 {
			fmt.Fprintf(&b, "max_size_mb = %d\n", fc.Log.MaxSizeMB)
		}
		if fc.Log.MaxBackups > 0 {
			fmt.Fprintf(&b, "max_backups = %d\n", fc.Log.MaxBackups)
		}
		if fc.Log.MaxAgeDays > 0 {
			fmt.Fprintf(&b, "max_age_days = %d\n", fc.Log.MaxAgeDays)
		}
		if fc.Log.Compress {
			b.WriteString("compress = true\n")
		}
	}

	if fc.History.Enabled || fc.History.Path != "" {
		b.WriteString("\n[history]\n")
		fmt.Fprintf(&b, "enabled = %t\n", fc.History.Enabled)
		if fc.History.Path != "" {
			fmt.Fprintf(&b, "path = %s\n", tomlString(fc.History.Path))
		}
	}

	for _, e := range fc.Wallpapers {
		b.WriteString("\n[[wallpapers]]\n")
		fmt.Fprintf(&b, "monitor = %s\n", tomlString(e.Monitor))
		fmt.Fprintf(&b, "path = %s\n", tomlString(e.Path))
		fmt.Fprintf(&b, "enabled = %t\n", e.Enabled)
		fmt.Fprintf(&b, "scale = %s\n", tomlString(string(e.Scale)))
		fmt.Fprintf(&b, "order = %s\n", tomlString(string(e.Order)))
		fmt.Fprintf(&b, "interval_seconds = %d\n", e.IntervalSeconds)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// tomlString renders a TOML basic string. Go's quoting rules are a
// superset of what these values need (no control characters in paths
// or connector names).
func tomlString(s string) string { return strconv.Quote(s) }
