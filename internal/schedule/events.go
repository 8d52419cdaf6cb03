package schedule

import "github.com/rosterforge/rosterforge/internal/models"

type EventKind string

const (
	EventCreated      EventKind = "activity.created"
	EventUpdated      EventKind = "activity.updated"
	EventDeleted      EventKind = "activity.deleted"
	EventAvailability EventKind = "availability.updated"
)

// Event describes one committed change. Activity is empty for availability events.
type Event struct {
	Kind      EventKind
	TeamID    string
	Activity  models.Activity
	WeekStart string
}

// Publisher receives committed changes. Publish must not block on slow consumers.
type Publisher interface {
	Publish(Event)
}

type discard struct{}

func (discard) Publish(Event) {}

// Discard drops every event.
var Discard Publisher = discard{}

// Publishers fans one event out to several publishers in order.
type Publishers []Publisher

func (ps Publishers) Publish(evt Event) {
	for _, p := range ps {
		if p != nil {
			p.Publish(evt)
		}
	}
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Event)

func (f PublisherFunc) Publish(evt Event) {
	f(evt)
}
