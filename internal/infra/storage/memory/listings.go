package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"

	domainlistings "rentdetail/internal/domain/listings"
	"rentdetail/internal/infra/feed"
)

// ListingRepository is an in-memory listing source. Not suitable for production.
type ListingRepository struct {
	mu    sync.RWMutex
	order []domainlistings.ListingID
	items map[domainlistings.ListingID]domainlistings.Listing
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{
		items: make(map[domainlistings.ListingID]domainlistings.Listing),
	}
}

// All returns listings in insertion order.
func (r *ListingRepository) All(ctx context.Context) ([]domainlistings.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domainlistings.Listing, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id])
	}
	return out, nil
}

// ByID returns a listing or domainlistings.ErrNotFound.
func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (domainlistings.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	listing, ok := r.items[id]
	if !ok {
		return domainlistings.Listing{}, domainlistings.ErrNotFound
	}
	return listing, nil
}

// Save stores or replaces a listing; replacing keeps its position.
func (r *ListingRepository) Save(ctx context.Context, listing domainlistings.Listing) error {
	if listing.ID == "" {
		return domainlistings.ErrIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[listing.ID]; !exists {
		r.order = append(r.order, listing.ID)
	}
	r.items[listing.ID] = listing
	return nil
}

// Delete removes a listing; unknown ids are ignored.
func (r *ListingRepository) Delete(ctx context.Context, id domainlistings.ListingID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return
	}
	delete(r.items, id)
	r.order = slices.DeleteFunc(r.order, func(v domainlistings.ListingID) bool { return v == id })
}

// LoadFixtures imports a JSON fixtures file. A missing file is not an error.
func (r *ListingRepository) LoadFixtures(ctx context.Context, path string, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("listing fixtures file not found, skipping", "path", path)
			return 0, nil
		}
		return 0, fmt.Errorf("read fixtures: %w", err)
	}
	defer f.Close()

	decoded, err := feed.NewDecoder(logger).Decode(f)
	if err != nil {
		return 0, fmt.Errorf("decode fixtures: %w", err)
	}
	imported := 0
	for _, listing := range decoded {
		if err := r.Save(ctx, listing); err != nil {
			logger.Error("cannot store fixture listing", "listing_id", listing.ID, "error", err)
			continue
		}
		imported++
	}
	logger.Info("listing fixtures imported", "path", path, "count", imported)
	return imported, nil
}

var _ domainlistings.Source = (*ListingRepository)(nil)
