package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validEntry(monitor, path string) Entry {
	return Entry{
		Monitor:         monitor,
		Path:            path,
		Enabled:         true,
		Scale:           ScaleFit,
		Order:           OrderSequential,
		IntervalSeconds: DefaultIntervalSeconds,
	}
}

func mediaFile(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatalf("write media file: %v", err)
	}
	return p
}

func TestValidateAcceptsFileAndFolder(t *testing.T) {
	video := mediaFile(t, "clip.mp4")
	dir := t.TempDir()

	col, errs := Validate([]Entry{
		validEntry("DP-1", video),
		{Monitor: "DP-2", Path: dir, Enabled: true, Scale: ScaleStretch, Order: OrderRandom, IntervalSeconds: 60},
	})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if col.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", col.Len())
	}
	w, ok := col.Get("DP-1")
	if !ok || w.Kind != MediaVideo {
		t.Fatalf("DP-1: ok=%v kind=%v", ok, w.Kind)
	}
	w, ok = col.Get("DP-2")
	if !ok || w.Kind != MediaFolder {
		t.Fatalf("DP-2: ok=%v kind=%v", ok, w.Kind)
	}
}

func TestValidateClassifiesImages(t *testing.T) {
	img := mediaFile(t, "wall.png")
	col, errs := Validate([]Entry{validEntry("DP-1", img)})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	w, _ := col.Get("DP-1")
	if w.Kind != MediaImage {
		t.Fatalf("expected image kind, got %v", w.Kind)
	}
}

func TestValidateRejectsMalformedEntriesIndependently(t *testing.T) {
	good := mediaFile(t, "ok.mkv")

	entries := []Entry{
		{Monitor: "", Path: good, Enabled: true, Scale: ScaleFit, Order: OrderSequential, IntervalSeconds: 10},
		{Monitor: "DP-1", Path: good, Enabled: true, Scale: "cover", Order: OrderSequential, IntervalSeconds: 10},
		{Monitor: "DP-2", Path: good, Enabled: true, Scale: ScaleFit, Order: "alphabetical", IntervalSeconds: 10},
		{Monitor: "DP-3", Path: good, Enabled: true, Scale: ScaleFit, Order: OrderSequential, IntervalSeconds: 0},
		validEntry("DP-4", good),
	}
	col, errs := Validate(entries)
	if len(errs) != 4 {
		t.Fatalf("expected 4 errors, got %d: %v", len(errs), errs)
	}
	if col.Len() != 1 || !col.Has("DP-4") {
		t.Fatalf("expected only DP-4 to survive, got %d entries", col.Len())
	}
	for i, e := range errs {
		if e.Index != i {
			t.Fatalf("error %d has index %d", i, e.Index)
		}
	}
}

func TestValidateRejectsDuplicateMonitor(t *testing.T) {
	good := mediaFile(t, "a.mp4")
	col, errs := Validate([]Entry{
		validEntry("DP-1", good),
		validEntry("DP-1", good),
	})
	if col.Len() != 1 {
		t.Fatalf("expected first entry kept, got %d", col.Len())
	}
	if len(errs) != 1 || !strings.Contains(errs[0].Error(), "duplicate") {
		t.Fatalf("expected duplicate error, got %v", errs)
	}
}

func TestValidateEnabledRequiresExistingPath(t *testing.T) {
	cases := []Entry{
		{Monitor: "DP-1", Path: "", Enabled: true, Scale: ScaleFit, Order: OrderSequential, IntervalSeconds: 10},
		{Monitor: "DP-2", Path: PlaceholderPath, Enabled: true, Scale: ScaleFit, Order: OrderSequential, IntervalSeconds: 10},
		{Monitor: "DP-3", Path: "/nonexistent/media.mp4", Enabled: true, Scale: ScaleFit, Order: OrderSequential, IntervalSeconds: 10},
	}
	col, errs := Validate(cases)
	if col.Len() != 0 {
		t.Fatalf("expected no valid entries, got %d", col.Len())
	}
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(errs), errs)
	}
}

func TestValidateDisabledEntryNeedsNoPath(t *testing.T) {
	col, errs := Validate([]Entry{
		{Monitor: "DP-1", Path: PlaceholderPath, Enabled: false, Scale: ScaleFit, Order: OrderSequential, IntervalSeconds: 10},
	})
	if len(errs) != 0 {
		t.Fatalf("disabled entry rejected: %v", errs)
	}
	w, ok := col.Get("DP-1")
	if !ok || w.Enabled {
		t.Fatalf("expected inert disabled entry, got ok=%v enabled=%v", ok, w.Enabled)
	}
}

func TestLoadAppliesEntryDefaults(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.toml")
	data := `
[[wallpapers]]
monitor = "DP-1"
path = "some/where"
enabled = false
`
	if err := os.WriteFile(file, []byte(data), 0o644); err != nil {
		t.Fatalf("write toml: %v", err)
	}
	fc, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(fc.Wallpapers) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(fc.Wallpapers))
	}
	e := fc.Wallpapers[0]
	if e.Scale != ScaleFit || e.Order != OrderSequential || e.IntervalSeconds != DefaultIntervalSeconds {
		t.Fatalf("defaults not applied: %+v", e)
	}
	if fc.Server.Listen != DefaultListen {
		t.Fatalf("expected default listen, got %q", fc.Server.Listen)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.toml")
	fc := FileConfig{
		Server:  ServerConfig{Listen: "127.0.0.1:9999"},
		History: HistoryConfig{Enabled: true, Path: "/tmp/h.db"},
		Wallpapers: []Entry{
			{Monitor: "DP-1", Path: "/media/wall.mp4", Enabled: true, Scale: ScaleOriginal, Order: OrderRandom, IntervalSeconds: 42},
			{Monitor: "HDMI-A-1", Path: PlaceholderPath, Enabled: false, Scale: ScaleFit, Order: OrderSequential, IntervalSeconds: DefaultIntervalSeconds},
		},
	}
	fc.Log.Dir = "/tmp/wpe-logs"
	if err := Save(file, fc); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.HasPrefix(string(raw), "# ///") {
		t.Fatalf("header comment missing:\n%s", raw)
	}

	got, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Server.Listen != "127.0.0.1:9999" {
		t.Fatalf("listen lost: %q", got.Server.Listen)
	}
	if !got.History.Enabled || got.History.Path != "/tmp/h.db" {
		t.Fatalf("history lost: %+v", got.History)
	}
	if got.Log.Dir != "/tmp/wpe-logs" {
		t.Fatalf("log dir lost: %+v", got.Log)
	}
	if len(got.Wallpapers) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got.Wallpapers))
	}
	e := got.Wallpapers[0]
	if e.Monitor != "DP-1" || e.Scale != ScaleOriginal || e.Order != OrderRandom || e.IntervalSeconds != 42 || !e.Enabled {
		t.Fatalf("entry 0 mismatch: %+v", e)
	}
}

func TestSeedCreatesOneEntryPerMonitor(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.toml")

	fc, created, err := Seed(file, []string{"DP-1", "DP-2"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !created {
		t.Fatal("expected config to be created")
	}
	if len(fc.Wallpapers) != 2 {
		t.Fatalf("expected 2 seeded entries, got %d", len(fc.Wallpapers))
	}
	for _, e := range fc.Wallpapers {
		if e.Enabled {
			t.Fatalf("seeded entry must be disabled: %+v", e)
		}
		if e.Path != PlaceholderPath {
			t.Fatalf("seeded entry missing placeholder: %+v", e)
		}
	}

	// Second call must load, not reseed.
	_, created, err = Seed(file, []string{"DP-9"})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if created {
		t.Fatal("existing config must not be reseeded")
	}
}

func TestSeedWithoutMonitorsWritesPlaceholder(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.toml")
	fc, created, err := Seed(file, nil)
	if err != nil || !created {
		t.Fatalf("seed: created=%v err=%v", created, err)
	}
	if len(fc.Wallpapers) != 1 || fc.Wallpapers[0].Monitor != "" {
		t.Fatalf("expected single placeholder entry, got %+v", fc.Wallpapers)
	}
}
