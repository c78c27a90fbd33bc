package listings

import (
	"time"

	"rentdetail/internal/domain/shared/events"
)

const (
	EventListingCreated = "listing.created"
	EventListingUpdated = "listing.updated"
	EventListingRemoved = "listing.removed"
	EventListingsReset  = "listings.reset"
)

// ChangedEvent announces that the shared listing collection went stale.
// ListingID is empty for collection-wide changes.
type ChangedEvent struct {
	Name      string
	ListingID ListingID
	At        time.Time
}

func (e ChangedEvent) EventName() string     { return e.Name }
func (e ChangedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ChangedEvent) OccurredAt() time.Time { return e.At }

// Known reports whether the event name is one the catalog publishes.
func (e ChangedEvent) Known() bool {
	switch e.Name {
	case EventListingCreated, EventListingUpdated, EventListingRemoved, EventListingsReset:
		return true
	default:
		return false
	}
}

var _ events.DomainEvent = ChangedEvent{}
