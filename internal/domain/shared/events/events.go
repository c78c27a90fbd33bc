package events

import "time"

// DomainEvent is anything the service announces on the change topic.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}
