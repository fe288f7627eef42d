package main

import (
	"log/slog"

	"github.com/loykin/wpe/internal/config"
	"github.com/loykin/wpe/internal/display"
)

func resolveConfigPath(flags *GlobalFlags) (string, error) {
	if flags.ConfigPath != "" {
		return flags.ConfigPath, nil
	}
	return config.DefaultPath()
}

// enumerateMonitorIDs lists connected outputs for config seeding.
// Enumeration failing (no X server, headless session) is not fatal;
// the seeded config just starts with a single placeholder entry.
func enumerateMonitorIDs() []string {
	monitors, err := display.X11{}.List()
	if err != nil {
		slog.Warn("display enumeration unavailable", "error", err)
		return nil
	}
	return display.IDs(monitors)
}
