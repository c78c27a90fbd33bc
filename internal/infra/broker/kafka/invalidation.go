package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"rentdetail/internal/app/commands"
	listingapp "rentdetail/internal/app/handlers/listings"
	"rentdetail/internal/app/middleware"
	"rentdetail/internal/domain/listings"
	"rentdetail/internal/domain/shared/events"
)

// changeMessage is the wire form of listings.ChangedEvent.
type changeMessage struct {
	Event     string    `json:"event"`
	ListingID string    `json:"listing_id,omitempty"`
	At        time.Time `json:"at"`
}

func decodeChange(msg *sarama.ConsumerMessage) (listings.ChangedEvent, error) {
	var m changeMessage
	if err := json.Unmarshal(msg.Value, &m); err != nil {
		return listings.ChangedEvent{}, err
	}
	if m.ListingID == "" && len(msg.Key) > 0 {
		m.ListingID = string(msg.Key)
	}
	if m.At.IsZero() {
		m.At = msg.Timestamp
	}
	return listings.ChangedEvent{Name: m.Event, ListingID: listings.ListingID(m.ListingID), At: m.At}, nil
}

func encodeChange(event events.DomainEvent) ([]byte, error) {
	return json.Marshal(changeMessage{Event: event.EventName(), ListingID: event.AggregateID(), At: event.OccurredAt().UTC()})
}

// InvalidationHandler drops the listing cache for every message on the change topic.
// Payloads it cannot read still invalidate.
type InvalidationHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

func (h InvalidationHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	log := h.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	cmd := listingapp.InvalidateCatalogCommand{Reason: "unreadable change event"}
	event, err := decodeChange(msg)
	switch {
	case err != nil:
		log.Warn("undecodable listing change", "offset", msg.Offset, "error", err)
	case !event.Known():
		log.Warn("unknown listing change event", "event", event.Name, "offset", msg.Offset)
		cmd.Reason = event.Name
		cmd.ListingID = string(event.ListingID)
	default:
		cmd.Reason = event.Name
		cmd.ListingID = string(event.ListingID)
	}

	_, err = commands.Dispatch[listingapp.InvalidateCatalogCommand, listingapp.InvalidationResult](
		middleware.TrustedCaller(ctx), h.Commands, cmd)
	if err != nil {
		return err
	}
	log.Info("listing cache invalidated", "reason", cmd.Reason, "listing_id", cmd.ListingID)
	return nil
}

var _ MessageHandler = InvalidationHandler{}
