// Package display abstracts monitor enumeration. The supervisor core
// only consumes monitor ids; geometry exists for front-end display.
package display

// Monitor describes one connected output.
type Monitor struct {
	ID     string `json:"id"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Enumerator lists connected outputs. Injected so the rest of the
// program is testable without a windowing system.
type Enumerator interface {
	List() ([]Monitor, error)
}

// Static is a fixed monitor list, useful for tests and for driving wpe
// from environments where enumeration is unavailable.
type Static []Monitor

func (s Static) List() ([]Monitor, error) { return s, nil }

// IDs extracts just the monitor ids.
func IDs(monitors []Monitor) []string {
	out := make([]string, 0, len(monitors))
	for _, m := range monitors {
		out = append(out, m.ID)
	}
	return out
}
