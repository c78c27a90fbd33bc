package listings

import (
	"context"
	"errors"

	"rentdetail/internal/app/dto"
	domainlistings "rentdetail/internal/domain/listings"
)

var ErrCatalogUnavailable = errors.New("listings: catalog unavailable")

// Catalog is the shared, read-through listing collection.
type Catalog interface {
	FetchAll(ctx context.Context) error
	SelectAll() []domainlistings.Listing
}

// Invalidator drops the cached collection.
type Invalidator interface {
	Invalidate()
}

// ImageResolver maps stored image references to URLs.
type ImageResolver interface {
	ImageURL(ctx context.Context, ref string) string
}

func imageURLFunc(ctx context.Context, images ImageResolver) dto.ImageURLFunc {
	if images == nil {
		return nil
	}
	return func(ref string) string { return images.ImageURL(ctx, ref) }
}

func loadSnapshot(ctx context.Context, catalog Catalog) ([]domainlistings.Listing, error) {
	if catalog == nil {
		return nil, ErrCatalogUnavailable
	}
	if err := catalog.FetchAll(ctx); err != nil {
		return nil, errors.Join(ErrCatalogUnavailable, err)
	}
	return catalog.SelectAll(), nil
}
