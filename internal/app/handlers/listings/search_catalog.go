package listings

import (
	"context"
	"strings"

	"rentdetail/internal/app/dto"
	"rentdetail/internal/app/queries"
	domainlistings "rentdetail/internal/domain/listings"
)

const (
	searchCatalogKey = "listings.catalog"
	defaultLimit     = 24
	maxLimit         = 100
)

// SearchCatalogQuery filters the shared collection. Empty filters match everything.
type SearchCatalogQuery struct {
	City   string
	Region string
	Text   string
	Limit  int
	Offset int
}

func (q SearchCatalogQuery) Key() string { return searchCatalogKey }

func (q SearchCatalogQuery) normalized() SearchCatalogQuery {
	q.City = strings.TrimSpace(q.City)
	q.Region = strings.TrimSpace(q.Region)
	q.Text = strings.ToLower(strings.TrimSpace(q.Text))
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

type SearchCatalogHandler struct {
	Catalog Catalog
	Images  ImageResolver
}

func (h *SearchCatalogHandler) Handle(ctx context.Context, q SearchCatalogQuery) (dto.ListingCatalog, error) {
	snapshot, err := loadSnapshot(ctx, h.Catalog)
	if err != nil {
		return dto.ListingCatalog{}, err
	}
	q = q.normalized()

	matches := make([]domainlistings.Listing, 0, len(snapshot))
	for _, listing := range snapshot {
		if q.City != "" && !strings.EqualFold(listing.City, q.City) {
			continue
		}
		if q.Region != "" && !strings.EqualFold(listing.Region, q.Region) {
			continue
		}
		if q.Text != "" && !matchText(listing, q.Text) {
			continue
		}
		matches = append(matches, listing)
	}

	total := len(matches)
	start := min(q.Offset, total)
	end := min(start+q.Limit, total)

	resolve := imageURLFunc(ctx, h.Images)
	items := make([]dto.ListingCard, 0, end-start)
	for _, listing := range matches[start:end] {
		items = append(items, dto.MapListingCard(listing, resolve))
	}
	return dto.ListingCatalog{Items: items, Total: total, Limit: q.Limit, Offset: q.Offset}, nil
}

func matchText(listing domainlistings.Listing, needle string) bool {
	full := strings.ToLower(strings.Join([]string{
		listing.Title,
		listing.Description,
		listing.Address,
		listing.City,
		listing.Region,
	}, " "))
	return strings.Contains(full, needle)
}

var _ queries.Handler[SearchCatalogQuery, dto.ListingCatalog] = (*SearchCatalogHandler)(nil)
