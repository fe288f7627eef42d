package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/loykin/wpe/internal/logger"
	"github.com/spf13/viper"
)

// ScaleMode controls how the renderer scales the source to the output.
type ScaleMode string

const (
	// ScaleFit fills the entire output with non-uniform scaling.
	ScaleFit ScaleMode = "fit"
	// ScaleStretch preserves the aspect ratio (letterboxed/pillarboxed).
	ScaleStretch ScaleMode = "stretch"
	// ScaleOriginal renders at source resolution, downscaling only oversized media.
	ScaleOriginal ScaleMode = "original"
)

// Order controls playback order for folder slideshows.
type Order string

const (
	OrderSequential Order = "sequential"
	OrderRandom     Order = "random"
)

const (
	// DefaultIntervalSeconds is the slideshow delay used when an entry does not set one.
	DefaultIntervalSeconds = 300
	// PlaceholderPath marks a freshly seeded entry that has not been pointed at real media yet.
	PlaceholderPath = "your/image/or/folder/here"
)

// Entry is one monitor's wallpaper slot as written in config.toml.
type Entry struct {
	Monitor         string    `toml:"monitor" mapstructure:"monitor"`
	Path            string    `toml:"path" mapstructure:"path"`
	Enabled         bool      `toml:"enabled" mapstructure:"enabled"`
	Scale           ScaleMode `toml:"scale" mapstructure:"scale"`
	Order           Order     `toml:"order" mapstructure:"order"`
	IntervalSeconds int       `toml:"interval_seconds" mapstructure:"interval_seconds"`
}

// MediaKind classifies a validated entry's resolved path.
type MediaKind int

const (
	MediaImage MediaKind = iota
	MediaVideo
	MediaFolder
)

func (k MediaKind) String() string {
	switch k {
	case MediaVideo:
		return "video"
	case MediaFolder:
		return "folder"
	default:
		return "image"
	}
}

// Wallpaper is a validated entry. ResolvedPath has ~ and env prefixes
// expanded and is known to exist on disk for enabled entries.
type Wallpaper struct {
	Entry
	ResolvedPath string
	Kind         MediaKind
}

// EntryError reports one malformed entry. Validation of siblings continues.
type EntryError struct {
	Index   int
	Monitor string
	Err     error
}

func (e EntryError) Error() string {
	if e.Monitor != "" {
		return fmt.Sprintf("wallpapers[%d] (%s): %v", e.Index, e.Monitor, e.Err)
	}
	return fmt.Sprintf("wallpapers[%d]: %v", e.Index, e.Err)
}

func (e EntryError) Unwrap() error { return e.Err }

// ErrNoUsableEntries is returned by callers that require at least one valid entry.
var ErrNoUsableEntries = errors.New("no usable wallpaper entries in configuration")

// Collection is an ordered set of validated entries, unique per monitor.
type Collection struct {
	wallpapers []Wallpaper
	byMonitor  map[string]int
}

// Wallpapers returns the validated entries in config order.
func (c Collection) Wallpapers() []Wallpaper { return c.wallpapers }

// Get looks up a validated entry by monitor id.
func (c Collection) Get(monitor string) (Wallpaper, bool) {
	i, ok := c.byMonitor[monitor]
	if !ok {
		return Wallpaper{}, false
	}
	return c.wallpapers[i], true
}

// Has reports whether the collection contains an entry for monitor.
func (c Collection) Has(monitor string) bool {
	_, ok := c.byMonitor[monitor]
	return ok
}

func (c Collection) Len() int { return len(c.wallpapers) }

// Validate checks every entry independently and returns the valid
// subset plus one error per rejected entry. A malformed entry never
// aborts validation of its siblings. Duplicate monitor ids are
// rejected (the later entry loses) rather than silently overwriting.
func Validate(entries []Entry) (Collection, []EntryError) {
	col := Collection{byMonitor: make(map[string]int)}
	var errs []EntryError

	reject := func(i int, e Entry, err error) {
		errs = append(errs, EntryError{Index: i, Monitor: e.Monitor, Err: err})
	}

	for i, e := range entries {
		if strings.TrimSpace(e.Monitor) == "" {
			reject(i, e, errors.New("missing monitor assignment"))
			continue
		}
		if _, dup := col.byMonitor[e.Monitor]; dup {
			reject(i, e, fmt.Errorf("duplicate entry for monitor %s", e.Monitor))
			continue
		}
		switch e.Scale {
		case ScaleFit, ScaleStretch, ScaleOriginal:
		default:
			reject(i, e, fmt.Errorf("unknown scale mode %q", e.Scale))
			continue
		}
		switch e.Order {
		case OrderSequential, OrderRandom:
		default:
			reject(i, e, fmt.Errorf("unknown order %q", e.Order))
			continue
		}
		if e.IntervalSeconds <= 0 {
			reject(i, e, fmt.Errorf("interval_seconds must be positive, got %d", e.IntervalSeconds))
			continue
		}

		w := Wallpaper{Entry: e}
		if e.Enabled {
			if strings.TrimSpace(e.Path) == "" || e.Path == PlaceholderPath {
				reject(i, e, errors.New("enabled entry has no configured path"))
				continue
			}
			w.ResolvedPath = ExpandPath(e.Path)
			kind, err := detectMediaKind(w.ResolvedPath)
			if err != nil {
				reject(i, e, err)
				continue
			}
			w.Kind = kind
		}

		col.byMonitor[e.Monitor] = len(col.wallpapers)
		col.wallpapers = append(col.wallpapers, w)
	}
	return col, errs
}

// detectMediaKind stats the resolved path once. The invocation builder
// relies on this and never touches the filesystem itself.
func detectMediaKind(path string) (MediaKind, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("unable to access %s: %w", path, err)
	}
	if fi.IsDir() {
		return MediaFolder, nil
	}
	if !fi.Mode().IsRegular() {
		return 0, fmt.Errorf("%s is neither a file nor a folder", path)
	}
	if isProbablyVideo(path) {
		return MediaVideo, nil
	}
	return MediaImage, nil
}

var videoExtensions = map[string]struct{}{
	"mp4": {}, "mkv": {}, "webm": {}, "mov": {}, "avi": {}, "flv": {},
	"wmv": {}, "m4v": {}, "mpg": {}, "mpeg": {}, "ogv": {}, "ts": {},
	"m2ts": {}, "mxf": {}, "3gp": {}, "m4p": {},
}

func isProbablyVideo(path string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	_, ok := videoExtensions[ext]
	return ok
}

// ServerConfig holds the serve daemon's listen address.
type ServerConfig struct {
	Listen string `toml:"listen" mapstructure:"listen"`
}

// HistoryConfig enables the optional sqlite lifecycle event log.
type HistoryConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Path    string `toml:"path" mapstructure:"path"`
}

// FileConfig is the top-level config.toml structure.
type FileConfig struct {
	Wallpapers []Entry       `toml:"wallpapers" mapstructure:"wallpapers"`
	Log        logger.Config `toml:"log" mapstructure:"log"`
	Server     ServerConfig  `toml:"server" mapstructure:"server"`
	History    HistoryConfig `toml:"history" mapstructure:"history"`
}

// DefaultListen is the serve daemon's default bind address.
const DefaultListen = "127.0.0.1:8943"

// Load reads and decodes a TOML config file. Missing per-entry fields
// get the same defaults the seeded file documents.
func Load(path string) (FileConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return FileConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}
	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return FileConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	for i := range fc.Wallpapers {
		applyEntryDefaults(&fc.Wallpapers[i])
	}
	if fc.Server.Listen == "" {
		fc.Server.Listen = DefaultListen
	}
	return fc, nil
}

func applyEntryDefaults(e *Entry) {
	if e.Scale == "" {
		e.Scale = ScaleFit
	}
	if e.Order == "" {
		e.Order = OrderSequential
	}
	if e.IntervalSeconds == 0 {
		e.IntervalSeconds = DefaultIntervalSeconds
	}
}

// DefaultPath resolves ~/.config/wpe/config.toml, honoring
// XDG_CONFIG_HOME, and creates the directory if needed.
func DefaultPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	dir := filepath.Join(base, "wpe")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create config dir %s: %w", dir, err)
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Seed ensures a config file exists, writing one disabled entry per
// known monitor on first run (or a single placeholder entry when no
// monitors were found). Returns the config and whether it was created.
func Seed(path string, monitors []string) (FileConfig, bool, error) {
	if _, err := os.Stat(path); err == nil {
		fc, lerr := Load(path)
		return fc, false, lerr
	}

	fc := FileConfig{Server: ServerConfig{Listen: DefaultListen}}
	if len(monitors) == 0 {
		fc.Wallpapers = []Entry{defaultEntry("")}
	} else {
		for _, m := range monitors {
			fc.Wallpapers = append(fc.Wallpapers, defaultEntry(m))
		}
	}
	if err := Save(path, fc); err != nil {
		return FileConfig{}, false, err
	}
	return fc, true, nil
}

func defaultEntry(monitor string) Entry {
	return Entry{
		Monitor:         monitor,
		Path:            PlaceholderPath,
		Enabled:         false,
		Scale:           ScaleFit,
		Order:           OrderSequential,
		IntervalSeconds: DefaultIntervalSeconds,
	}
}
