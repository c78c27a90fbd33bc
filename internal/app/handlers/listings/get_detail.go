package listings

import (
	"context"

	"rentdetail/internal/app/dto"
	"rentdetail/internal/app/queries"
	domainlistings "rentdetail/internal/domain/listings"
)

const getDetailKey = "listings.detail"

// GetDetailQuery loads one listing for the detail surface.
type GetDetailQuery struct {
	ListingID string
}

func (q GetDetailQuery) Key() string { return getDetailKey }

type GetDetailHandler struct {
	Catalog Catalog
	Images  ImageResolver
}

func (h *GetDetailHandler) Handle(ctx context.Context, q GetDetailQuery) (dto.ListingDetail, error) {
	snapshot, err := loadSnapshot(ctx, h.Catalog)
	if err != nil {
		return dto.ListingDetail{}, err
	}
	listing, err := domainlistings.FindIn(snapshot, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.ListingDetail{}, err
	}
	return dto.MapListingDetail(listing, imageURLFunc(ctx, h.Images)), nil
}

var _ queries.Handler[GetDetailQuery, dto.ListingDetail] = (*GetDetailHandler)(nil)
