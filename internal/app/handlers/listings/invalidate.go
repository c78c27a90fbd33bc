package listings

import (
	"context"
	"time"

	"rentdetail/internal/app/commands"
)

const invalidateCatalogKey = "listings.invalidate"

// InvalidateCatalogCommand forces the next catalog read to hit the source.
type InvalidateCatalogCommand struct {
	Reason    string
	ListingID string
}

func (c InvalidateCatalogCommand) Key() string      { return invalidateCatalogKey }
func (c InvalidateCatalogCommand) Privileged() bool { return true }

type InvalidationResult struct {
	Reason    string    `json:"reason"`
	ListingID string    `json:"listing_id,omitempty"`
	At        time.Time `json:"at"`
}

type InvalidateCatalogHandler struct {
	Catalog Invalidator
	Now     func() time.Time
}

func (h *InvalidateCatalogHandler) Handle(ctx context.Context, cmd InvalidateCatalogCommand) (InvalidationResult, error) {
	if h.Catalog == nil {
		return InvalidationResult{}, ErrCatalogUnavailable
	}
	h.Catalog.Invalidate()
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	return InvalidationResult{Reason: cmd.Reason, ListingID: cmd.ListingID, At: now().UTC()}, nil
}

var _ commands.Handler[InvalidateCatalogCommand, InvalidationResult] = (*InvalidateCatalogHandler)(nil)
