package history

import (
	"context"
	"time"
)

// EventType defines the kind of renderer lifecycle event.
type EventType string

const (
	EventSpawn EventType = "spawn"
	EventStop  EventType = "stop"
	EventCrash EventType = "crash"
)

// Event records one lifecycle transition of a monitor's renderer. This
// is diagnostics only; the supervisor's in-memory registry remains the
// single source of truth for what is running.
type Event struct {
	Type       EventType `json:"type"`
	Monitor    string    `json:"monitor"`
	PID        int       `json:"pid"`
	Command    string    `json:"command"`
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Sink is a destination for lifecycle events. Implementations must be
// safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
	Close() error
}
