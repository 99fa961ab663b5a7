// Package bus delivers unit lifecycle events to the rest of the system.
// Delivery is at-least-once, best-effort: there is no durable queue, and a
// subscriber that cannot keep up misses events rather than blocking the
// loader.
package bus

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type identifies a lifecycle event kind.
type Type string

const (
	UnitLoaded     Type = "unit-loaded"
	UnitLoadFailed Type = "unit-load-failed"
	UnitUnloaded   Type = "unit-unloaded"
)

// Event is one lifecycle notification.
type Event struct {
	ID       string
	Type     Type
	Unit     string
	Error    string
	LoadTime time.Duration
	At       time.Time
}

// NewEvent stamps a fresh event with a unique ID and the current time.
func NewEvent(t Type, unitName string) Event {
	return Event{
		ID:   uuid.NewString(),
		Type: t,
		Unit: unitName,
		At:   time.Now(),
	}
}

// Notifier publishes lifecycle events. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Publish(ctx context.Context, ev Event) error
}

// Noop discards every event. Useful as a default and in tests.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
