package dto

import (
	"net/url"

	domainlistings "rentdetail/internal/domain/listings"
)

// ListingCard is a compact catalog entry.
type ListingCard struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PriceLabel string `json:"price_label"`
	Thumbnail  string `json:"thumbnail,omitempty"`
	DetailPath string `json:"detail_path"`
}

type ListingCatalog struct {
	Items  []ListingCard `json:"items"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

func MapListingCard(listing domainlistings.Listing, imageURL ImageURLFunc) ListingCard {
	card := ListingCard{
		ID:         string(listing.ID),
		Title:      listing.Title,
		City:       listing.City,
		Region:     listing.Region,
		PriceLabel: FormatMonthlyPrice(listing.Price),
		DetailPath: DetailPath(listing.ID),
	}
	if listing.HasImage() {
		card.Thumbnail = listing.Image
		if imageURL != nil {
			card.Thumbnail = imageURL(listing.Image)
		}
	}
	return card
}

// DetailPath is the HTML route of a listing page.
func DetailPath(id domainlistings.ListingID) string {
	return "/rents/" + url.PathEscape(string(id))
}
